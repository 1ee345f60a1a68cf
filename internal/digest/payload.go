// Package digest shapes a ranking result into output files and summaries.
package digest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/voroninsergei/askbrain/internal/aggregate"
	"github.com/voroninsergei/askbrain/internal/feed"
)

// PostsPayload is the content of the posts file.
type PostsPayload struct {
	OverallTop []feed.Post            `json:"overall_top"`
	ByCategory map[string][]feed.Post `json:"by_category"`
}

// MetaPayload is the content of the metadata file.
type MetaPayload struct {
	FetchedAt   string         `json:"fetched_at"`
	SourceFeeds []string       `json:"source_feeds"`
	TotalPosts  int            `json:"total_posts"`
	ResultPosts int            `json:"result_posts"`
	Categories  map[string]int `json:"categories"`
}

// Posts shapes the ranked posts. Collections are never null.
func Posts(res *aggregate.Result) PostsPayload {
	out := PostsPayload{
		OverallTop: nonNil(res.Posts),
		ByCategory: make(map[string][]feed.Post, len(res.PostsByCategory)),
	}
	for name, posts := range res.PostsByCategory {
		out.ByCategory[name] = nonNil(posts)
	}
	return out
}

// Meta shapes the run metadata. fetched_at carries the local UTC offset.
func Meta(res *aggregate.Result) MetaPayload {
	out := MetaPayload{
		FetchedAt:   res.FetchedAt.Local().Format(time.RFC3339Nano),
		SourceFeeds: append([]string{}, res.SourceFeeds...),
		TotalPosts:  res.TotalPosts,
		ResultPosts: len(res.Posts),
		Categories:  make(map[string]int, len(res.CategoryStats)),
	}
	for name, n := range res.CategoryStats {
		out.Categories[name] = n
	}
	return out
}

// WriteJSONFile writes v as indented JSON to path, creating parent
// directories. The file is replaced atomically.
func WriteJSONFile(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func nonNil(posts []feed.Post) []feed.Post {
	if posts == nil {
		return []feed.Post{}
	}
	return posts
}
