// Package feed defines the records returned by the Tilda feeds API.
package feed

import (
	"errors"
	"fmt"
	"time"
)

// SortOrder is the date ordering requested from the API.
type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

// Stats holds a post's engagement counters.
type Stats struct {
	Views int `json:"views"`
	Likes int `json:"likes"`
}

// Post is one content item of a feed. Optional fields are nil when the
// source omits them.
type Post struct {
	UID       string    `json:"uid"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Published time.Time `json:"published"`
	Stats     Stats     `json:"stats"`
	Parts     []string  `json:"parts"`
	Image     *string   `json:"image"`
	Descr     *string   `json:"descr"`
	Text      *string   `json:"text"`
}

// Response is one page (slice) of a feed.
type Response struct {
	FeedUID   string
	Posts     []Post
	Slice     int
	Total     int
	NextSlice *int // nil ends pagination
}

// SliceParams is the cursor for a single page request.
type SliceParams struct {
	Size     int
	Slice    int
	SortDate SortOrder
}

// FirstSlice returns the parameters of the first page of a feed.
func FirstSlice(size int) (SliceParams, error) {
	if size < 1 {
		return SliceParams{}, fmt.Errorf("page size must be positive, got %d", size)
	}
	return SliceParams{Size: size, Slice: 1, SortDate: SortDesc}, nil
}

// Next returns the parameters for the page pointed to by nextSlice.
// ok is false when nextSlice is nil, which means the feed is exhausted.
func (p SliceParams) Next(nextSlice *int) (next SliceParams, ok bool) {
	if nextSlice == nil {
		return SliceParams{}, false
	}
	return SliceParams{Size: p.Size, Slice: *nextSlice, SortDate: p.SortDate}, true
}

// Validate reports whether the parameters can be sent to the API.
func (p SliceParams) Validate() error {
	if p.Size < 1 {
		return fmt.Errorf("page size must be positive, got %d", p.Size)
	}
	if p.Slice < 1 {
		return fmt.Errorf("slice must start at 1, got %d", p.Slice)
	}
	switch p.SortDate {
	case SortDesc, SortAsc:
	default:
		return fmt.Errorf("unknown sort order %q", p.SortDate)
	}
	return nil
}

// ErrMissingPublished is returned when a raw post carries no publication time.
var ErrMissingPublished = errors.New("published is required")
