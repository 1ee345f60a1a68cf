package feed

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Zone-less layouts are read in the caller's location.
var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParsePost builds a Post from one raw API record. Missing optional fields get
// their defaults; only a missing or unreadable publication time is an error.
func ParsePost(raw map[string]any, loc *time.Location) (Post, error) {
	if loc == nil {
		loc = time.UTC
	}

	published, err := parsePublished(raw["published"], loc)
	if err != nil {
		return Post{}, fmt.Errorf("post %q: %w", stringField(raw, "uid"), err)
	}

	stats, _ := raw["stats"].(map[string]any)

	return Post{
		UID:       stringField(raw, "uid"),
		Title:     stringField(raw, "title"),
		URL:       stringField(raw, "url"),
		Published: published,
		Stats: Stats{
			Views: counter(stats, "views"),
			Likes: counter(stats, "likes"),
		},
		Parts: partTitles(raw["postparts"]),
		Image: optionalString(raw, "image"),
		Descr: optionalString(raw, "descr"),
		Text:  optionalString(raw, "text"),
	}, nil
}

// ParseResponse builds a Response from a decoded page body.
func ParseResponse(raw map[string]any, loc *time.Location) (Response, error) {
	var posts []Post
	if v, ok := raw["posts"]; ok && v != nil {
		items, ok := v.([]any)
		if !ok {
			return Response{}, fmt.Errorf("posts: expected array, got %T", v)
		}
		posts = make([]Post, 0, len(items))
		for i, item := range items {
			rec, ok := item.(map[string]any)
			if !ok {
				return Response{}, fmt.Errorf("posts[%d]: expected object, got %T", i, item)
			}
			p, err := ParsePost(rec, loc)
			if err != nil {
				return Response{}, fmt.Errorf("posts[%d]: %w", i, err)
			}
			posts = append(posts, p)
		}
	}
	if posts == nil {
		posts = []Post{}
	}

	resp := Response{
		FeedUID: stringField(raw, "feeduid"),
		Posts:   posts,
		Slice:   1,
		Total:   len(posts),
	}
	if v := raw["slice"]; v != nil {
		n, ok := toInt(v)
		if !ok || n < 1 {
			return Response{}, fmt.Errorf("slice: unexpected value %v", v)
		}
		resp.Slice = n
	}
	if n, ok := toInt(raw["total"]); ok {
		resp.Total = n
	}

	next, err := nextSlice(raw["nextslice"])
	if err != nil {
		return Response{}, err
	}
	resp.NextSlice = next
	return resp, nil
}

func nextSlice(v any) (*int, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	n, ok := toInt(v)
	if !ok {
		return nil, fmt.Errorf("nextslice: unexpected value %v", v)
	}
	if n < 1 {
		return nil, fmt.Errorf("nextslice: must be at least 1, got %d", n)
	}
	return &n, nil
}

// Unix values above this are milliseconds.
const unixMilliThreshold = 2e10

func parsePublished(v any, loc *time.Location) (time.Time, error) {
	ts, err := parseTime(v, loc)
	if err != nil {
		return time.Time{}, err
	}
	if y := ts.Year(); y < 0 || y > 9999 {
		return time.Time{}, fmt.Errorf("published: year %d out of range", y)
	}
	return ts, nil
}

func parseTime(v any, loc *time.Location) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, ErrMissingPublished
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, ErrMissingPublished
		}
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts, nil
		}
		for _, layout := range localLayouts {
			if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
				return ts, nil
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return unixTime(f, loc)
		}
		return time.Time{}, fmt.Errorf("published: unrecognised time %q", s)
	case float64:
		return unixTime(t, loc)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("published: %w", err)
		}
		return unixTime(f, loc)
	default:
		return time.Time{}, fmt.Errorf("published: unexpected type %T", v)
	}
}

// unixTime reads seconds, or milliseconds when the value is too large to be
// seconds.
func unixTime(v float64, loc *time.Location) (time.Time, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > math.MaxInt64/1e6 {
		return time.Time{}, fmt.Errorf("published: unix time %v out of range", v)
	}
	if math.Abs(v) > unixMilliThreshold {
		return time.UnixMicro(int64(v * 1e3)).In(loc), nil
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*1e9)).In(loc), nil
}

func partTitles(v any) []string {
	parts := []string{}
	items, ok := v.([]any)
	if !ok {
		return parts
	}
	for _, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if title := stringField(rec, "parttitle"); title != "" {
			parts = append(parts, title)
		}
	}
	return parts
}

func stringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func optionalString(raw map[string]any, key string) *string {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil
	}
	s := stringField(raw, key)
	return &s
}

// counter reads a non-negative engagement counter, 0 when absent or malformed.
func counter(raw map[string]any, key string) int {
	if raw == nil {
		return 0
	}
	n, ok := toInt(raw[key])
	if !ok || n < 0 {
		return 0
	}
	return n
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if math.Trunc(n) != n || math.Abs(n) > 1<<53 {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
