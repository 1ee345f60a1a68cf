package digest

import (
	"encoding/json"
	"io"
	"time"
)

type jsonDigest struct {
	Meta     jsonMeta      `json:"meta"`
	Top      []jsonItem    `json:"top"`
	Failures []jsonFailure `json:"failures"`
}

type jsonMeta struct {
	Feeds       int    `json:"feeds"`
	TotalPosts  int    `json:"total_posts"`
	ResultPosts int    `json:"result_posts"`
	FetchedAt   string `json:"fetched_at,omitempty"`
}

type jsonItem struct {
	Rank      int      `json:"rank"`
	UID       string   `json:"uid"`
	URL       string   `json:"url,omitempty"`
	Published string   `json:"published"`
	Views     int      `json:"views"`
	Likes     int      `json:"likes"`
	Headline  string   `json:"headline"`
	Snippet   string   `json:"snippet,omitempty"`
	AlsoIn    []string `json:"also_in,omitempty"`
}

type jsonFailure struct {
	FeedUID string `json:"feed_uid"`
	Error   string `json:"error"`
}

// JSONFormatter formats a digest as JSON.
type JSONFormatter struct{}

// NewJSON creates a JSON formatter.
func NewJSON() *JSONFormatter {
	return &JSONFormatter{}
}

// Format writes the digest as JSON to w.
func (f *JSONFormatter) Format(w io.Writer, input DigestInput) error {
	out := jsonDigest{
		Meta: jsonMeta{
			Feeds:       input.Feeds,
			TotalPosts:  input.TotalPosts,
			ResultPosts: len(input.Items),
		},
		Top:      make([]jsonItem, 0, len(input.Items)),
		Failures: make([]jsonFailure, 0, len(input.Failures)),
	}
	if !input.FetchedAt.IsZero() {
		out.Meta.FetchedAt = input.FetchedAt.Local().Format(time.RFC3339)
	}

	for _, item := range input.Items {
		out.Top = append(out.Top, jsonItem{
			Rank:      item.Rank,
			UID:       item.Post.UID,
			URL:       item.Post.URL,
			Published: item.Post.Published.Format(time.RFC3339),
			Views:     item.Post.Stats.Views,
			Likes:     item.Post.Stats.Likes,
			Headline:  item.Summary.Headline,
			Snippet:   item.Summary.Snippet,
			AlsoIn:    item.AlsoIn,
		})
	}
	for _, fl := range input.Failures {
		out.Failures = append(out.Failures, jsonFailure{FeedUID: fl.FeedUID, Error: fl.Err.Error()})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}
