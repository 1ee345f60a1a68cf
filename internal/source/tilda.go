package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/voroninsergei/askbrain/internal/feed"
	"github.com/voroninsergei/askbrain/internal/retry"
)

const (
	// DefaultAPIURL is the public Tilda feeds endpoint.
	DefaultAPIURL = "https://feeds.tildaapi.com/api/getfeed/"

	tildaRequestTimeout = 10 * time.Second
	tildaConnectTimeout = 5 * time.Second
	tildaUserAgent      = "askbrain/1.0"
	tildaMaxBodyBytes   = 32 << 20
)

// PageObserver is told about every finished page fetch.
type PageObserver interface {
	ObservePage(feedUID string, attempts int, err error)
}

// TildaConfig configures a TildaClient.
type TildaConfig struct {
	APIURL   string
	Origin   string
	PageSize int
	Location *time.Location
	Retry    retry.Policy
	// RequestsPerSecond limits page requests across all feeds. 0 disables it.
	RequestsPerSecond float64
}

// TildaClient reads feeds from the Tilda feeds API. It is safe for concurrent
// use; all feeds share one HTTP connection pool.
type TildaClient struct {
	cfg      TildaConfig
	apiURL   *url.URL
	client   *http.Client
	limiter  *rate.Limiter
	observer PageObserver
	log      *slog.Logger
}

// Option customizes a TildaClient.
type Option func(*TildaClient)

// WithHTTPClient replaces the default HTTP client. Origin and Referer headers
// are still set on every request.
func WithHTTPClient(c *http.Client) Option {
	return func(tc *TildaClient) { tc.client = c }
}

// WithObserver registers a page observer.
func WithObserver(o PageObserver) Option {
	return func(tc *TildaClient) { tc.observer = o }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(tc *TildaClient) { tc.log = l }
}

// NewTilda creates a Tilda feed client.
func NewTilda(cfg TildaConfig, opts ...Option) (*TildaClient, error) {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	apiURL, err := url.ParseRequestURI(cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("tilda: invalid api url %q: %w", cfg.APIURL, err)
	}
	if cfg.Origin == "" {
		return nil, errors.New("tilda: origin is required")
	}
	if _, err := feed.FirstSlice(cfg.PageSize); err != nil {
		return nil, fmt.Errorf("tilda: %w", err)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("tilda: %w", err)
	}
	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("tilda: requests per second must not be negative, got %v", cfg.RequestsPerSecond)
	}

	tc := &TildaClient{
		cfg:    cfg,
		apiURL: apiURL,
		client: defaultHTTPClient(),
		log:    slog.New(slog.DiscardHandler),
	}
	if cfg.RequestsPerSecond > 0 {
		tc.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	for _, opt := range opts {
		opt(tc)
	}

	base := tc.client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped := *tc.client
	wrapped.Transport = &headerTransport{base: base, origin: cfg.Origin}
	tc.client = &wrapped

	return tc, nil
}

func defaultHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   tildaConnectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	return &http.Client{
		Timeout:   tildaRequestTimeout,
		Transport: transport,
	}
}

// headerTransport sets the headers the feeds API checks on every request.
type headerTransport struct {
	base   http.RoundTripper
	origin string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Origin", t.origin)
	req.Header.Set("Referer", t.origin)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", tildaUserAgent)
	}
	req.Header.Set("Accept", "application/json")
	return t.base.RoundTrip(req)
}

// FetchAllPosts returns every post of the feed in page order.
func (tc *TildaClient) FetchAllPosts(ctx context.Context, feedUID string) ([]feed.Post, error) {
	params, err := feed.FirstSlice(tc.cfg.PageSize)
	if err != nil {
		return nil, err
	}

	var posts []feed.Post
	for {
		resp, err := tc.FetchPage(ctx, feedUID, params)
		if err != nil {
			return nil, err
		}
		posts = append(posts, resp.Posts...)

		next, ok := params.Next(resp.NextSlice)
		if !ok {
			break
		}
		params = next
	}

	tc.log.Debug("feed exhausted",
		slog.String("feed_uid", feedUID),
		slog.Int("posts", len(posts)),
		slog.Int("last_slice", params.Slice),
	)
	if posts == nil {
		posts = []feed.Post{}
	}
	return posts, nil
}

// FetchPage fetches and parses a single slice, retrying transient failures.
func (tc *TildaClient) FetchPage(ctx context.Context, feedUID string, params feed.SliceParams) (feed.Response, error) {
	if err := params.Validate(); err != nil {
		return feed.Response{}, err
	}

	attempts := 0
	resp, err := retry.Do(ctx, tc.cfg.Retry, IsTransient,
		func(attempt int, err error, wait time.Duration) {
			tc.log.Warn("page fetch failed, retrying",
				slog.String("feed_uid", feedUID),
				slog.Int("slice", params.Slice),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.Any("error", err),
			)
		},
		func() (feed.Response, error) {
			attempts++
			return tc.fetchOnce(ctx, feedUID, params)
		},
	)

	if err != nil {
		var perr *ProtocolError
		if !errors.As(err, &perr) {
			te := &TransportError{FeedUID: feedUID, Slice: params.Slice, Attempts: attempts, Err: err}
			var serr *statusError
			if errors.As(err, &serr) {
				te.StatusCode = serr.code
			}
			err = te
		}
	}
	if tc.observer != nil {
		tc.observer.ObservePage(feedUID, attempts, err)
	}
	return resp, err
}

func (tc *TildaClient) fetchOnce(ctx context.Context, feedUID string, params feed.SliceParams) (feed.Response, error) {
	if tc.limiter != nil {
		if err := tc.limiter.Wait(ctx); err != nil {
			return feed.Response{}, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tc.pageURL(feedUID, params), nil)
	if err != nil {
		return feed.Response{}, &ProtocolError{FeedUID: feedUID, Slice: params.Slice, Err: err}
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return feed.Response{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return feed.Response{}, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, tildaMaxBodyBytes))
	if err != nil {
		return feed.Response{}, fmt.Errorf("read body: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return feed.Response{}, &ProtocolError{FeedUID: feedUID, Slice: params.Slice, Err: fmt.Errorf("decode body: %w", err)}
	}
	if raw == nil {
		return feed.Response{}, &ProtocolError{FeedUID: feedUID, Slice: params.Slice, Err: errors.New("empty body")}
	}

	page, err := feed.ParseResponse(raw, tc.cfg.Location)
	if err != nil {
		return feed.Response{}, &ProtocolError{FeedUID: feedUID, Slice: params.Slice, Err: err}
	}
	return page, nil
}

func (tc *TildaClient) pageURL(feedUID string, params feed.SliceParams) string {
	u := *tc.apiURL
	q := u.Query()
	q.Set("feeduid", feedUID)
	q.Set("size", strconv.Itoa(params.Size))
	q.Set("slice", strconv.Itoa(params.Slice))
	q.Set("sort[date]", string(params.SortDate))
	q.Set("filters[date]", "")
	q.Set("getparts", "true")
	u.RawQuery = q.Encode()
	return u.String()
}
