package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voroninsergei/askbrain/internal/aggregate"
	"github.com/voroninsergei/askbrain/internal/config"
)

type postsFile struct {
	OverallTop []struct {
		UID   string   `json:"uid"`
		Parts []string `json:"parts"`
		Descr *string  `json:"descr"`
		Image *string  `json:"image"`
		Stats struct {
			Views int `json:"views"`
		} `json:"stats"`
	} `json:"overall_top"`
	ByCategory map[string][]json.RawMessage `json:"by_category"`
}

type metaFile struct {
	FetchedAt   string         `json:"fetched_at"`
	SourceFeeds []string       `json:"source_feeds"`
	TotalPosts  int            `json:"total_posts"`
	ResultPosts int            `json:"result_posts"`
	Categories  map[string]int `json:"categories"`
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestFetchTop_Pipeline(t *testing.T) {
	ts := newFakeTilda(t, map[string][]fakePost{
		"feed1": {{"a", 5}, {"b", 15}, {"d", 1}},
		"feed2": {{"c", 10}, {"b", 20}},
	})
	useSettings(t, map[string]string{
		config.KeyOriginHost: "https://askbrain.ru",
		config.KeyFeedUIDs:   "feed1, feed2",
		config.KeyAPIURL:     ts.URL + "/api/getfeed/",
		config.KeyPageSize:   "2",
	})

	dir := t.TempDir()
	output := filepath.Join(dir, "data", "top_posts.json")
	meta := filepath.Join(dir, "data", "top_posts_meta.json")

	stdout, stderr, err := runCLI(t, "fetch-top",
		"--output", output, "--meta-output", meta, "--limit", "3", "--format", "markdown")
	require.NoError(t, err)

	var posts postsFile
	readJSON(t, output, &posts)
	require.Len(t, posts.OverallTop, 3)
	assert.Equal(t, "b", posts.OverallTop[0].UID)
	assert.Equal(t, "c", posts.OverallTop[1].UID)
	assert.Equal(t, "a", posts.OverallTop[2].UID)
	assert.Equal(t, []string{"Блог"}, posts.OverallTop[0].Parts)
	require.NotNil(t, posts.OverallTop[0].Descr)
	assert.Nil(t, posts.OverallTop[0].Image)
	assert.NotNil(t, posts.ByCategory)
	assert.Empty(t, posts.ByCategory)

	var m metaFile
	readJSON(t, meta, &m)
	assert.Equal(t, []string{"feed1", "feed2"}, m.SourceFeeds)
	assert.Equal(t, 5, m.TotalPosts)
	assert.Equal(t, 3, m.ResultPosts)
	assert.NotEmpty(t, m.FetchedAt)
	assert.NotNil(t, m.Categories)

	assert.Contains(t, stdout, "# askbrain top posts")
	assert.Contains(t, stdout, "2 feeds, 5 posts, top 3")
	assert.Contains(t, stderr, "run_id=")
	assert.Contains(t, stderr, "results written")
}

func TestFetchTop_Categories(t *testing.T) {
	ts := newFakeTilda(t, map[string][]fakePost{
		"news":  {{"a", 30}, {"b", 20}},
		"promo": {{"c", 25}},
	})
	dir := t.TempDir()
	categories := filepath.Join(dir, "categories.yaml")
	require.NoError(t, os.WriteFile(categories, []byte("categories:\n  editorial: [news]\n  ads: [promo]\n"), 0o644))

	useSettings(t, map[string]string{
		config.KeyOriginHost:     "https://askbrain.ru",
		config.KeyFeedUIDs:       "news,promo",
		config.KeyAPIURL:         ts.URL,
		config.KeyCategoriesFile: categories,
	})

	output := filepath.Join(dir, "top.json")
	meta := filepath.Join(dir, "meta.json")
	_, _, err := runCLI(t, "fetch-top", "--output", output, "--meta-output", meta, "--format", "none")
	require.NoError(t, err)

	var posts postsFile
	readJSON(t, output, &posts)
	assert.Len(t, posts.ByCategory["editorial"], 2)
	assert.Len(t, posts.ByCategory["ads"], 1)

	var m metaFile
	readJSON(t, meta, &m)
	assert.Equal(t, map[string]int{"editorial": 2, "ads": 1}, m.Categories)
}

func TestFetchTop_PartialFailureSucceeds(t *testing.T) {
	ts := newFakeTilda(t, map[string][]fakePost{"ok": {{"a", 1}}})
	useSettings(t, map[string]string{
		config.KeyOriginHost: "https://askbrain.ru",
		config.KeyFeedUIDs:   "ok,broken",
		config.KeyAPIURL:     ts.URL,
	})

	dir := t.TempDir()
	stdout, stderr, err := runCLI(t, "fetch-top",
		"--output", filepath.Join(dir, "top.json"),
		"--meta-output", filepath.Join(dir, "meta.json"),
		"--no-color")
	require.NoError(t, err)

	assert.Contains(t, stdout, "--- Failed feeds (1) ---")
	assert.Contains(t, stdout, "broken")
	assert.Contains(t, stderr, "feed fetch failed")
	assert.Contains(t, stderr, "feed_uid=broken")
}

func TestFetchTop_BadTimestampFailsOnlyItsFeed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		published := "1760000000000"
		if r.URL.Query().Get("feeduid") == "broken" {
			published = "1e15"
		}
		_, _ = fmt.Fprintf(w, `{"posts": [{"uid": "%s-1", "published": %s, "stats": {"views": 7}}]}`,
			r.URL.Query().Get("feeduid"), published)
	}))
	defer ts.Close()

	useSettings(t, map[string]string{
		config.KeyOriginHost: "https://askbrain.ru",
		config.KeyFeedUIDs:   "millis,broken",
		config.KeyAPIURL:     ts.URL,
	})

	dir := t.TempDir()
	output := filepath.Join(dir, "top.json")
	meta := filepath.Join(dir, "meta.json")
	stdout, _, err := runCLI(t, "fetch-top", "--output", output, "--meta-output", meta, "--no-color")
	require.NoError(t, err)

	var posts postsFile
	readJSON(t, output, &posts)
	require.Len(t, posts.OverallTop, 1)
	assert.Equal(t, "millis-1", posts.OverallTop[0].UID)

	var m metaFile
	readJSON(t, meta, &m)
	assert.Equal(t, 1, m.TotalPosts)
	assert.Contains(t, stdout, "--- Failed feeds (1) ---")
	assert.Contains(t, stdout, "broken")
}

func TestFetchTop_AllFeedsFailedStillWritesFiles(t *testing.T) {
	ts := newFakeTilda(t, map[string][]fakePost{})
	useSettings(t, map[string]string{
		config.KeyOriginHost: "https://askbrain.ru",
		config.KeyFeedUIDs:   "x,y",
		config.KeyAPIURL:     ts.URL,
	})

	dir := t.TempDir()
	output := filepath.Join(dir, "top.json")
	meta := filepath.Join(dir, "meta.json")
	_, _, err := runCLI(t, "fetch-top", "--output", output, "--meta-output", meta, "--format", "json")

	require.ErrorIs(t, err, aggregate.ErrAllFeedsFailed)
	assert.FileExists(t, output)

	var m metaFile
	readJSON(t, meta, &m)
	assert.Equal(t, 0, m.TotalPosts)
	assert.Equal(t, 0, m.ResultPosts)
}

func TestFetchTop_ConfigurationError(t *testing.T) {
	useSettings(t, map[string]string{config.KeyOriginHost: "https://askbrain.ru"})

	dir := t.TempDir()
	output := filepath.Join(dir, "top.json")
	_, _, err := runCLI(t, "fetch-top", "--output", output)

	var cerr *config.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, config.KeyFeedUIDs, cerr.Key)
	assert.NoFileExists(t, output)
}

func TestFetchTop_WriteFailure(t *testing.T) {
	ts := newFakeTilda(t, map[string][]fakePost{"f": {{"a", 1}}})
	useSettings(t, map[string]string{
		config.KeyOriginHost: "https://askbrain.ru",
		config.KeyFeedUIDs:   "f",
		config.KeyAPIURL:     ts.URL,
	})

	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, _, err := runCLI(t, "fetch-top", "--output", filepath.Join(blocker, "top.json"), "--format", "none")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "write posts"), err.Error())
}

func TestFetchTop_BadFlags(t *testing.T) {
	_, _, err := runCLI(t, "fetch-top", "--format", "html")
	assert.ErrorContains(t, err, "unknown format")

	_, _, err = runCLI(t, "fetch-top", "--limit", "-1")
	assert.ErrorContains(t, err, "--limit")
}

func TestSelectFormatter(t *testing.T) {
	for _, f := range []string{"terminal", "markdown", "json", ""} {
		got, err := selectFormatter(f, false)
		require.NoError(t, err)
		assert.NotNil(t, got, f)
	}

	got, err := selectFormatter("none", false)
	require.NoError(t, err)
	assert.Nil(t, got)
}
