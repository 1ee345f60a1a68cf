package digest

import (
	"io"
	"time"

	"github.com/voroninsergei/askbrain/internal/aggregate"
	"github.com/voroninsergei/askbrain/internal/feed"
	"github.com/voroninsergei/askbrain/internal/rank"
	"github.com/voroninsergei/askbrain/internal/summarize"
)

// DigestItem pairs a ranked post with its summary.
type DigestItem struct {
	Rank    int
	Post    feed.Post
	Summary summarize.Summary
	AlsoIn  []string // other feeds that carried the post
}

// DigestInput is the full input for a digest formatter.
type DigestInput struct {
	Items       []DigestItem
	Feeds       int // number of feeds requested
	TotalPosts  int // posts collected before dedup
	FetchedAt   time.Time
	Failures    []aggregate.Failure
	Overlaps    []rank.Overlap
	CategoryTop map[string]int
}

// Formatter writes a formatted digest to w.
type Formatter interface {
	Format(w io.Writer, input DigestInput) error
}

// NewInput builds formatter input from a run result.
func NewInput(res *aggregate.Result, s summarize.Summarizer) DigestInput {
	items := make([]DigestItem, 0, len(res.Posts))
	for i, p := range res.Posts {
		items = append(items, DigestItem{
			Rank:    i + 1,
			Post:    p,
			Summary: s.Summarize(p),
			AlsoIn:  res.AlsoIn[p.UID],
		})
	}
	return DigestInput{
		Items:       items,
		Feeds:       len(res.SourceFeeds),
		TotalPosts:  res.TotalPosts,
		FetchedAt:   res.FetchedAt,
		Failures:    res.Failures,
		Overlaps:    res.Overlaps,
		CategoryTop: res.CategoryStats,
	}
}
