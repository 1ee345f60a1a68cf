package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/voroninsergei/askbrain/internal/config"
	"github.com/voroninsergei/askbrain/internal/retry"
)

type fakePost struct {
	UID   string
	Views int
}

// newFakeTilda serves feeds page by page, two posts per page. Feeds missing
// from pages answer 500.
func newFakeTilda(t *testing.T, feeds map[string][]fakePost) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		posts, ok := feeds[q.Get("feeduid")]
		if !ok || r.Header.Get("Origin") != "https://askbrain.ru" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		slice, _ := strconv.Atoi(q.Get("slice"))
		size, _ := strconv.Atoi(q.Get("size"))
		start := (slice - 1) * size
		end := min(start+size, len(posts))
		start = min(start, end)

		page := make([]map[string]any, 0, end-start)
		for _, p := range posts[start:end] {
			page = append(page, map[string]any{
				"uid":       p.UID,
				"title":     "Post " + p.UID,
				"url":       "https://askbrain.ru/tpost/" + p.UID,
				"published": "2025-10-09 05:00:00",
				"stats":     map[string]any{"views": p.Views, "likes": 1},
				"postparts": []map[string]any{{"parttitle": "Блог"}},
				"descr":     "<p>About " + p.UID + ".</p>",
			})
		}
		body := map[string]any{
			"feeduid": q.Get("feeduid"),
			"posts":   page,
			"slice":   slice,
			"total":   len(posts),
		}
		if end < len(posts) {
			body["nextslice"] = slice + 1
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// useSettings makes the CLI read values instead of the environment and
// retry quickly.
func useSettings(t *testing.T, values map[string]string) {
	t.Helper()
	oldLoad, oldPolicy := loadSettings, retryPolicy
	t.Cleanup(func() { loadSettings, retryPolicy = oldLoad, oldPolicy })

	loadSettings = func() (*config.Settings, error) { return config.FromMap(values) }
	retryPolicy = retry.Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		Multiplier:  2,
		MaxDelay:    2 * time.Millisecond,
	}
}

// runCLI executes the root command with fresh flag values.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	envFile, logLevel = "", ""
	fetchOutput, fetchMetaOutput = DefaultOutput, DefaultMetaOutput
	fetchLimit, fetchFormat, noColor = 0, "terminal", false
	initDir, doctorOutputDir = ".", "data"

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}
