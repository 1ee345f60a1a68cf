package cli

import (
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/voroninsergei/askbrain/internal/config"
	"github.com/voroninsergei/askbrain/internal/retry"
	"github.com/voroninsergei/askbrain/internal/source"
)

// loadSettings resolves settings once per process. Tests replace it.
var loadSettings = func() (*config.Settings, error) {
	if envFile != "" {
		config.SetEnvFile(envFile)
	}
	return config.Get()
}

// retryPolicy is the page retry policy of fetch-top. Tests replace it.
var retryPolicy = retry.DefaultPolicy

// newLogger returns a text logger on w tagged with the command and a fresh run id.
// --log-level wins over LOG_LEVEL.
func newLogger(w io.Writer, s *config.Settings, component string) (*slog.Logger, error) {
	level := s.LogLevel
	if logLevel != "" {
		l, err := config.ParseLogLevel(logLevel)
		if err != nil {
			return nil, err
		}
		level = l
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With(
		slog.String("component", component),
		slog.String("run_id", uuid.NewString()),
	), nil
}

func newTildaClient(s *config.Settings, policy retry.Policy, opts ...source.Option) (*source.TildaClient, error) {
	return source.NewTilda(source.TildaConfig{
		APIURL:            s.APIURL,
		Origin:            s.OriginHost,
		PageSize:          s.PageSize,
		Location:          s.Location,
		Retry:             policy,
		RequestsPerSecond: s.RequestsPerSecond,
	}, opts...)
}
