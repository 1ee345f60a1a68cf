// Package summarize turns post markup into short plain-text lines for
// console and markdown output.
package summarize

import "github.com/voroninsergei/askbrain/internal/feed"

// Summary holds the plain-text view of a post.
type Summary struct {
	Headline string   // title, or the first sentence of the body
	Snippet  string   // first sentence of the description or text
	Links    []string // URLs found in the body
}

// Summarizer produces a summary of a post.
type Summarizer interface {
	Summarize(p feed.Post) Summary
}
