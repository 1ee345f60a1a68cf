// Package metrics records run metrics for askbrain and pushes them to a
// Prometheus Pushgateway.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/voroninsergei/askbrain/internal/source"
)

const (
	namespace = "askbrain"
	// JobName is the Pushgateway job the metrics are grouped under.
	JobName = "askbrain_fetch_top"
)

// Status label values.
const (
	StatusOK           = "ok"
	StatusTransportErr = "transport_error"
	StatusProtocolErr  = "protocol_error"
	StatusCanceled     = "canceled"
	StatusOtherErr     = "error"
)

// Recorder holds the metrics of one run in its own registry.
type Recorder struct {
	registry *prometheus.Registry

	PagesTotal       *prometheus.CounterVec
	PageRetries      prometheus.Counter
	FeedsTotal       *prometheus.CounterVec
	FeedDuration     *prometheus.HistogramVec
	FeedPosts        *prometheus.GaugeVec
	TotalPosts       prometheus.Gauge
	ResultPosts      prometheus.Gauge
	LastRunSuccess   prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,

		PagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_total",
				Help:      "Total number of feed page fetches by outcome",
			},
			[]string{"status"},
		),
		PageRetries: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "page_retries_total",
				Help:      "Total number of repeated page requests",
			},
		),
		FeedsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feeds_total",
				Help:      "Total number of feed fetches by outcome",
			},
			[]string{"status"},
		),
		FeedDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "feed_duration_seconds",
				Help:      "Duration of a full feed fetch in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"feed_uid"},
		),
		FeedPosts: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "feed_posts",
				Help:      "Posts returned by each feed in the last run",
			},
			[]string{"feed_uid"},
		),
		TotalPosts: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "total_posts",
				Help:      "Posts collected in the last run before dedup",
			},
		),
		ResultPosts: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "result_posts",
				Help:      "Posts in the last ranked result",
			},
		),
		LastRunSuccess: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_success",
				Help:      "Whether the last run succeeded (1 = success, 0 = failure)",
			},
		),
		LastRunTimestamp: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last run finished",
			},
		),
	}
}

// ObservePage records one finished page fetch.
func (r *Recorder) ObservePage(_ string, attempts int, err error) {
	r.PagesTotal.WithLabelValues(Status(err)).Inc()
	if attempts > 1 {
		r.PageRetries.Add(float64(attempts - 1))
	}
}

// ObserveFeed records one finished feed.
func (r *Recorder) ObserveFeed(feedUID string, posts int, elapsed time.Duration, err error) {
	r.FeedsTotal.WithLabelValues(Status(err)).Inc()
	r.FeedDuration.WithLabelValues(feedUID).Observe(elapsed.Seconds())
	r.FeedPosts.WithLabelValues(feedUID).Set(float64(posts))
}

// RecordRun records the outcome of the whole run.
func (r *Recorder) RecordRun(totalPosts, resultPosts int, success bool, finishedAt time.Time) {
	r.TotalPosts.Set(float64(totalPosts))
	r.ResultPosts.Set(float64(resultPosts))
	if success {
		r.LastRunSuccess.Set(1)
	} else {
		r.LastRunSuccess.Set(0)
	}
	r.LastRunTimestamp.Set(float64(finishedAt.Unix()))
}

// Push sends every metric to the Pushgateway at url, replacing the previous
// push of the same job.
func (r *Recorder) Push(ctx context.Context, url string) error {
	if err := push.New(url, JobName).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// Status maps an error to a status label value.
func Status(err error) string {
	var (
		terr *source.TransportError
		perr *source.ProtocolError
	)
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCanceled
	case errors.As(err, &perr):
		return StatusProtocolErr
	case errors.As(err, &terr):
		return StatusTransportErr
	default:
		return StatusOtherErr
	}
}
