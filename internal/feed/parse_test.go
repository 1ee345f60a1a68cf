package feed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

func TestParsePost_Full(t *testing.T) {
	raw := decode(t, `{
		"uid": "post1",
		"title": "Post 1",
		"url": "https://example.com/post1",
		"published": "2025-10-09 05:00:00",
		"stats": {"views": 5, "likes": 2},
		"postparts": [{"parttitle": "News"}, {"parttitle": ""}, {"other": "x"}, {"parttitle": "Tech"}],
		"image": "https://example.com/1.png",
		"descr": "<p>short</p>",
		"text": "body"
	}`)

	p, err := ParsePost(raw, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, "post1", p.UID)
	assert.Equal(t, "Post 1", p.Title)
	assert.Equal(t, "https://example.com/post1", p.URL)
	assert.Equal(t, time.Date(2025, 10, 9, 5, 0, 0, 0, time.UTC), p.Published)
	assert.Equal(t, Stats{Views: 5, Likes: 2}, p.Stats)
	assert.Equal(t, []string{"News", "Tech"}, p.Parts)
	require.NotNil(t, p.Image)
	assert.Equal(t, "https://example.com/1.png", *p.Image)
	require.NotNil(t, p.Descr)
	assert.Equal(t, "<p>short</p>", *p.Descr)
	require.NotNil(t, p.Text)
	assert.Equal(t, "body", *p.Text)
}

func TestParsePost_Defaults(t *testing.T) {
	p, err := ParsePost(decode(t, `{"published": "2025-10-09"}`), time.UTC)
	require.NoError(t, err)

	assert.Empty(t, p.UID)
	assert.Empty(t, p.Title)
	assert.Empty(t, p.URL)
	assert.Equal(t, Stats{}, p.Stats)
	assert.NotNil(t, p.Parts)
	assert.Empty(t, p.Parts)
	assert.Nil(t, p.Image)
	assert.Nil(t, p.Descr)
	assert.Nil(t, p.Text)
}

func TestParsePost_PublishedForms(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)

	tests := map[string]struct {
		value any
		want  time.Time
	}{
		"space separated": {"2025-10-09 05:00:00", time.Date(2025, 10, 9, 5, 0, 0, 0, msk)},
		"iso local":       {"2025-10-09T05:00:00", time.Date(2025, 10, 9, 5, 0, 0, 0, msk)},
		"rfc3339":         {"2025-10-09T05:00:00Z", time.Date(2025, 10, 9, 5, 0, 0, 0, time.UTC)},
		"date only":       {"2025-10-09", time.Date(2025, 10, 9, 0, 0, 0, 0, msk)},
		"unix number":     {float64(1760000000), time.Unix(1760000000, 0)},
		"unix string":     {"1760000000", time.Unix(1760000000, 0)},
		"unix millis":     {float64(1760000000123), time.UnixMilli(1760000000123)},
		"millis string":   {"1760000000000", time.UnixMilli(1760000000000)},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := ParsePost(map[string]any{"published": tc.value}, msk)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(p.Published), "got %s want %s", p.Published, tc.want)
			assert.NotNil(t, p.Published.Location())
		})
	}
}

func TestParsePost_PublishedRequired(t *testing.T) {
	_, err := ParsePost(map[string]any{"uid": "x"}, time.UTC)
	assert.ErrorIs(t, err, ErrMissingPublished)

	_, err = ParsePost(map[string]any{"uid": "x", "published": "yesterday"}, time.UTC)
	assert.Error(t, err)
}

func TestParsePost_PublishedOutOfRange(t *testing.T) {
	tests := map[string]any{
		"beyond millis":          float64(1e13),
		"negative beyond millis": float64(-1e13),
		"infinite string":        "1e400",
		"huge number":            float64(1e300),
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePost(map[string]any{"uid": "x", "published": value}, time.UTC)
			assert.ErrorContains(t, err, "published")
		})
	}
}

func TestParsePost_HugeCounterIsZero(t *testing.T) {
	p, err := ParsePost(decode(t, `{"published": "2025-10-09", "stats": {"views": 1e20, "likes": 2.5}}`), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stats.Views)
	assert.Equal(t, 0, p.Stats.Likes)
}

func TestParsePost_NegativeAndStringCounters(t *testing.T) {
	p, err := ParsePost(decode(t, `{"published": "2025-10-09", "stats": {"views": "42", "likes": -3}}`), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 42, p.Stats.Views)
	assert.Equal(t, 0, p.Stats.Likes)
}

func TestParseResponse_Pages(t *testing.T) {
	resp, err := ParseResponse(decode(t, `{
		"feeduid": "824854191681",
		"posts": [{"uid": "post1", "published": "2025-10-09 05:00:00"}],
		"slice": 1,
		"total": 2,
		"nextslice": 2
	}`), time.UTC)
	require.NoError(t, err)

	assert.Equal(t, "824854191681", resp.FeedUID)
	require.Len(t, resp.Posts, 1)
	assert.Equal(t, 1, resp.Slice)
	assert.Equal(t, 2, resp.Total)
	require.NotNil(t, resp.NextSlice)
	assert.Equal(t, 2, *resp.NextSlice)

	last, err := ParseResponse(decode(t, `{"posts": [], "slice": 2, "nextslice": null}`), time.UTC)
	require.NoError(t, err)
	assert.Nil(t, last.NextSlice)
	assert.Equal(t, 0, last.Total)

	empty, err := ParseResponse(decode(t, `{"nextslice": ""}`), time.UTC)
	require.NoError(t, err)
	assert.Nil(t, empty.NextSlice)
	assert.Equal(t, 1, empty.Slice)
	assert.NotNil(t, empty.Posts)
}

func TestParseResponse_StringNextSlice(t *testing.T) {
	resp, err := ParseResponse(decode(t, `{"nextslice": "3"}`), time.UTC)
	require.NoError(t, err)
	require.NotNil(t, resp.NextSlice)
	assert.Equal(t, 3, *resp.NextSlice)
}

func TestParseResponse_ShapeErrors(t *testing.T) {
	tests := map[string]string{
		"posts not array":      `{"posts": {"uid": "a"}}`,
		"post not object":      `{"posts": ["a"]}`,
		"missing published":    `{"posts": [{"uid": "a"}]}`,
		"zero nextslice":       `{"posts": [], "nextslice": 0}`,
		"garbage nextslice":    `{"posts": [], "nextslice": "soon"}`,
		"negative nextslice":   `{"posts": [], "nextslice": -1}`,
		"fractional nextslice": `{"posts": [], "nextslice": 2.5}`,
		"huge nextslice":       `{"posts": [], "nextslice": 1e20}`,
		"fractional slice":     `{"posts": [], "slice": 1.5}`,
		"zero slice":           `{"posts": [], "slice": 0}`,
		"garbage slice":        `{"posts": [], "slice": "first"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseResponse(decode(t, body), time.UTC)
			assert.Error(t, err)
		})
	}
}

func TestSliceParams_Next(t *testing.T) {
	first, err := FirstSlice(100)
	require.NoError(t, err)
	assert.Equal(t, SliceParams{Size: 100, Slice: 1, SortDate: SortDesc}, first)
	require.NoError(t, first.Validate())

	two := 2
	next, ok := first.Next(&two)
	require.True(t, ok)
	assert.Equal(t, SliceParams{Size: 100, Slice: 2, SortDate: SortDesc}, next)

	_, ok = next.Next(nil)
	assert.False(t, ok)

	_, err = FirstSlice(0)
	assert.Error(t, err)
	assert.Error(t, SliceParams{Size: 1, Slice: 0, SortDate: SortDesc}.Validate())
	assert.Error(t, SliceParams{Size: 1, Slice: 1, SortDate: "random"}.Validate())
}
