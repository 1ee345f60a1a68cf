// Package rank orders feed posts by popularity.
package rank

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/voroninsergei/askbrain/internal/feed"
)

// TieBreak decides the order of posts with equal views.
type TieBreak string

const (
	TieNone      TieBreak = "none"      // keep the order posts were collected in
	TieUID       TieBreak = "uid"       // uid ascending
	TiePublished TieBreak = "published" // newer first, then uid
)

// ParseTieBreak parses a tie-break name. An empty string means TieNone.
func ParseTieBreak(s string) (TieBreak, error) {
	switch tb := TieBreak(strings.ToLower(strings.TrimSpace(s))); tb {
	case "", TieNone:
		return TieNone, nil
	case TieUID, TiePublished:
		return tb, nil
	default:
		return "", fmt.Errorf("unknown tie-break %q (want none, uid or published)", s)
	}
}

// Entry is a post together with the feed it was fetched from.
type Entry struct {
	Post    feed.Post
	FeedUID string
}

// Dedup keeps one entry per uid. The last entry seen for a uid wins but takes
// the position of the first one.
func Dedup(entries []Entry) []Entry {
	index := make(map[string]int, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if i, ok := index[e.Post.UID]; ok {
			out[i] = e
			continue
		}
		index[e.Post.UID] = len(out)
		out = append(out, e)
	}
	return out
}

// Sort orders entries by views, highest first. The sort is stable, so equal
// views keep their relative order unless tb says otherwise.
func Sort(entries []Entry, tb TieBreak) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Post.Stats.Views, a.Post.Stats.Views); c != 0 {
			return c
		}
		switch tb {
		case TieUID:
			return strings.Compare(a.Post.UID, b.Post.UID)
		case TiePublished:
			if c := b.Post.Published.Compare(a.Post.Published); c != 0 {
				return c
			}
			return strings.Compare(a.Post.UID, b.Post.UID)
		}
		return 0
	})
}

// Top returns at most limit entries from the front of a ranked slice.
// A negative limit is treated as zero.
func Top(entries []Entry, limit int) []Entry {
	limit = max(limit, 0)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return slices.Clone(entries)
}

// Posts strips the feed annotation.
func Posts(entries []Entry) []feed.Post {
	posts := make([]feed.Post, len(entries))
	for i, e := range entries {
		posts[i] = e.Post
	}
	return posts
}
