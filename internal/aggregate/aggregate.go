// Package aggregate fetches several feeds concurrently and ranks their posts.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/voroninsergei/askbrain/internal/feed"
	"github.com/voroninsergei/askbrain/internal/rank"
	"github.com/voroninsergei/askbrain/internal/source"
)

const (
	DefaultLimit       = 10
	DefaultConcurrency = 2
)

// ErrAllFeedsFailed is reported by Result.Err when no requested feed could be fetched.
var ErrAllFeedsFailed = errors.New("all feeds failed")

// FeedObserver is told about every finished feed.
type FeedObserver interface {
	ObserveFeed(feedUID string, posts int, elapsed time.Duration, err error)
}

// Failure is a feed that could not be fetched.
type Failure struct {
	FeedUID string
	Err     error
}

// Result is the outcome of one run.
type Result struct {
	FetchedAt   time.Time
	Posts       []feed.Post // ranked, at most limit
	SourceFeeds []string    // as requested
	TotalPosts  int         // before dedup
	Failures    []Failure   // in request order

	PostsByCategory map[string][]feed.Post
	CategoryStats   map[string]int
	AlsoIn          map[string][]string // uid -> other feeds that carried the post
	Overlaps        []rank.Overlap
}

// Err returns ErrAllFeedsFailed when feeds were requested and none succeeded.
func (r *Result) Err() error {
	if len(r.SourceFeeds) == 0 || len(r.Failures) < len(r.SourceFeeds) {
		return nil
	}
	return fmt.Errorf("%w: %d of %d", ErrAllFeedsFailed, len(r.Failures), len(r.SourceFeeds))
}

// Service ranks posts across feeds.
type Service struct {
	client      source.FeedClient
	limit       int
	concurrency int
	tieBreak    rank.TieBreak
	categories  map[string][]string
	observer    FeedObserver
	log         *slog.Logger
	now         func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLimit sets how many posts the result keeps.
func WithLimit(n int) Option {
	return func(s *Service) { s.limit = max(n, 0) }
}

// WithConcurrency caps the feeds fetched at the same time. Values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(s *Service) { s.concurrency = max(n, 1) }
}

// WithTieBreak sets the order of posts with equal views.
func WithTieBreak(tb rank.TieBreak) Option {
	return func(s *Service) { s.tieBreak = tb }
}

// WithCategories groups feeds into named categories.
func WithCategories(c map[string][]string) Option {
	return func(s *Service) { s.categories = c }
}

// WithObserver registers a feed observer.
func WithObserver(o FeedObserver) Option {
	return func(s *Service) { s.observer = o }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service reading feeds through client.
func New(client source.FeedClient, opts ...Option) *Service {
	s := &Service{
		client:      client,
		limit:       DefaultLimit,
		concurrency: DefaultConcurrency,
		tieBreak:    rank.TieNone,
		log:         slog.New(slog.DiscardHandler),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type outcome struct {
	index   int
	feedUID string
	posts   []feed.Post
	err     error
}

// FetchTopPosts fetches every feed, drops duplicate uids and returns the most
// viewed posts. A failing feed is logged and counted as empty. The only error
// returned is the context's.
func (s *Service) FetchTopPosts(ctx context.Context, feedUIDs []string) (*Result, error) {
	feeds := append([]string{}, feedUIDs...)

	var (
		entries  []rank.Entry
		failures = make([]*Failure, len(feeds))
	)
	if len(feeds) > 0 {
		for o := range s.fetchAll(ctx, feeds) {
			if o.err != nil {
				s.log.Error("feed fetch failed",
					slog.String("feed_uid", o.feedUID),
					slog.Any("error", o.err),
				)
				failures[o.index] = &Failure{FeedUID: o.feedUID, Err: o.err}
				continue
			}
			for _, p := range o.posts {
				entries = append(entries, rank.Entry{Post: p, FeedUID: o.feedUID})
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ranked := rank.Dedup(entries)
	rank.Sort(ranked, s.tieBreak)
	top := rank.Top(ranked, s.limit)
	feedsByUID := rank.FeedsByUID(entries)
	byCategory, stats := rank.Categorize(ranked, feedsByUID, s.categories, s.limit)

	res := &Result{
		FetchedAt:       s.now(),
		Posts:           rank.Posts(top),
		SourceFeeds:     feeds,
		TotalPosts:      len(entries),
		PostsByCategory: make(map[string][]feed.Post, len(byCategory)),
		CategoryStats:   stats,
		AlsoIn:          rank.AlsoIn(top, feedsByUID),
		Overlaps:        rank.FindOverlap(entries, 2),
	}
	for name, list := range byCategory {
		res.PostsByCategory[name] = rank.Posts(list)
	}
	for _, f := range failures {
		if f != nil {
			res.Failures = append(res.Failures, *f)
		}
	}

	s.log.Info("ranking complete",
		slog.Int("feeds", len(feeds)),
		slog.Int("failed_feeds", len(res.Failures)),
		slog.Int("total_posts", res.TotalPosts),
		slog.Int("unique_posts", len(ranked)),
		slog.Int("result_posts", len(res.Posts)),
	)
	return res, nil
}

// fetchAll starts one goroutine per feed and yields outcomes as they finish.
// At most s.concurrency feeds are being paged through at any moment.
func (s *Service) fetchAll(ctx context.Context, feeds []string) <-chan outcome {
	sem := semaphore.NewWeighted(int64(s.concurrency))
	results := make(chan outcome, len(feeds))

	var wg sync.WaitGroup
	for i, uid := range feeds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.fetchFeed(ctx, sem, i, uid)
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

func (s *Service) fetchFeed(ctx context.Context, sem *semaphore.Weighted, index int, feedUID string) (o outcome) {
	o = outcome{index: index, feedUID: feedUID}

	if err := sem.Acquire(ctx, 1); err != nil {
		o.err = err
		return o
	}
	defer sem.Release(1)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.posts = nil
			o.err = fmt.Errorf("panic while fetching feed: %v", r)
		}
		if s.observer != nil {
			s.observer.ObserveFeed(feedUID, len(o.posts), time.Since(start), o.err)
		}
	}()

	s.log.Info("fetching feed", slog.String("feed_uid", feedUID))
	posts, err := s.client.FetchAllPosts(ctx, feedUID)
	if err != nil {
		o.err = err
		return o
	}
	s.log.Info("feed fetched", slog.String("feed_uid", feedUID), slog.Int("posts", len(posts)))
	o.posts = posts
	return o
}
