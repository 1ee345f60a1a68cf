package digest

import (
	"errors"
	"time"

	"github.com/voroninsergei/askbrain/internal/aggregate"
	"github.com/voroninsergei/askbrain/internal/feed"
	"github.com/voroninsergei/askbrain/internal/rank"
	"github.com/voroninsergei/askbrain/internal/summarize"
)

func ptr(s string) *string { return &s }

func testResult() *aggregate.Result {
	published := time.Date(2025, 10, 9, 5, 0, 0, 0, time.UTC)
	return &aggregate.Result{
		FetchedAt: time.Date(2025, 10, 9, 12, 30, 0, 0, time.UTC),
		Posts: []feed.Post{
			{
				UID: "b", Title: "Как выбрать курс", URL: "https://askbrain.ru/tpost/b",
				Published: published, Stats: feed.Stats{Views: 20, Likes: 3},
				Parts: []string{"Блог"}, Descr: ptr("<p>Пять критериев. Подробнее.</p>"),
			},
			{
				UID: "c", Title: "Second", URL: "https://askbrain.ru/tpost/c",
				Published: published, Stats: feed.Stats{Views: 10},
				Parts: []string{},
			},
		},
		SourceFeeds: []string{"feed1", "feed2", "feed3"},
		TotalPosts:  4,
		Failures:    []aggregate.Failure{{FeedUID: "feed3", Err: errors.New("transport failed after 5 attempt(s)")}},
		AlsoIn:      map[string][]string{"b": {"feed1"}},
		Overlaps:    []rank.Overlap{{UID: "b", Title: "Как выбрать курс", Feeds: []string{"feed1", "feed2"}}},
		PostsByCategory: map[string][]feed.Post{
			"editorial": {{UID: "b", Parts: []string{}}},
		},
		CategoryStats: map[string]int{"editorial": 1},
	}
}

func testInput() DigestInput {
	return NewInput(testResult(), summarize.NewHeuristic())
}
