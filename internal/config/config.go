// Package config resolves askbrain settings from the environment and an
// optional dotenv file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/voroninsergei/askbrain/internal/rank"
)

const (
	DefaultEnvFile     = ".env"
	EnvFileVar         = "ASKBRAIN_ENV_FILE"
	DefaultPageSize    = 100
	DefaultConcurrency = 2
	DefaultTopLimit    = 10
	DefaultTimezone    = "UTC"
)

// Setting keys.
const (
	KeyOriginHost     = "ORIGIN_HOST"
	KeyFeedUIDs       = "TILDA_FEED_UIDS"
	KeyPageSize       = "TILDA_SIZE"
	KeyConcurrency    = "TILDA_CONCURRENCY"
	KeyAPIURL         = "TILDA_API_URL"
	KeyTimezone       = "TILDA_TIMEZONE"
	KeyRPS            = "TILDA_RPS"
	KeyCategoriesFile = "TILDA_CATEGORIES_FILE"
	KeyTopLimit       = "TOP_LIMIT"
	KeyTieBreak       = "TOP_TIEBREAK"
	KeyPushgatewayURL = "PUSHGATEWAY_URL"
	KeyLogLevel       = "LOG_LEVEL"
)

// ConfigurationError is a required setting that is missing or malformed.
type ConfigurationError struct {
	Key    string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %s: %v", e.Key, e.Reason, e.Err)
	}
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Settings is the resolved configuration of one process.
type Settings struct {
	OriginHost        string
	FeedUIDs          []string
	PageSize          int
	Concurrency       int
	APIURL            string // empty means the public endpoint
	Location          *time.Location
	RequestsPerSecond float64
	CategoriesFile    string
	TopLimit          int
	TieBreak          rank.TieBreak
	PushgatewayURL    string
	LogLevel          slog.Level

	// EnvFile is the dotenv file the settings were read from, if any.
	EnvFile string
}

var (
	envFileOverride string
	getOnce         = sync.OnceValues(func() (*Settings, error) { return Load(envFileOverride) })
)

// SetEnvFile selects the dotenv file used by Get. It has no effect after the
// first call to Get.
func SetEnvFile(path string) {
	envFileOverride = path
}

// Get resolves the settings once per process and returns the same result on
// every call.
func Get() (*Settings, error) {
	return getOnce()
}

// Load reads settings from the process environment overlaid with the dotenv
// file at envFile. With an empty envFile, $ASKBRAIN_ENV_FILE or ./.env is used
// if it exists. An explicitly named file must exist.
func Load(envFile string) (*Settings, error) {
	path, explicit := resolveEnvFile(envFile)

	values := environ()
	fileValues, err := godotenv.Read(path)
	switch {
	case err == nil:
		for k, v := range fileValues {
			values[k] = v
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		path = ""
	default:
		return nil, &ConfigurationError{Key: EnvFileVar, Reason: fmt.Sprintf("read %s", path), Err: err}
	}

	s, err := FromMap(values)
	if err != nil {
		return nil, err
	}
	s.EnvFile = path
	return s, nil
}

func resolveEnvFile(flag string) (path string, explicit bool) {
	if flag != "" {
		return flag, true
	}
	if env := os.Getenv(EnvFileVar); env != "" {
		if !filepath.IsAbs(env) {
			if wd, err := os.Getwd(); err == nil {
				env = filepath.Join(wd, env)
			}
		}
		return env, false
	}
	return DefaultEnvFile, false
}

func environ() map[string]string {
	m := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}

// FromMap builds settings from key/value pairs, applying defaults and
// validating every key.
func FromMap(values map[string]string) (*Settings, error) {
	get := func(key string) string { return strings.TrimSpace(values[key]) }

	s := &Settings{
		OriginHost:     get(KeyOriginHost),
		FeedUIDs:       SplitList(values[KeyFeedUIDs]),
		APIURL:         get(KeyAPIURL),
		CategoriesFile: get(KeyCategoriesFile),
		PushgatewayURL: get(KeyPushgatewayURL),
	}

	if s.OriginHost == "" {
		return nil, &ConfigurationError{Key: KeyOriginHost, Reason: "is required"}
	}
	if err := checkHTTPURL(s.OriginHost); err != nil {
		return nil, &ConfigurationError{Key: KeyOriginHost, Reason: "must be an http(s) URL", Err: err}
	}
	if len(s.FeedUIDs) == 0 {
		return nil, &ConfigurationError{Key: KeyFeedUIDs, Reason: "must contain at least one feed uid"}
	}

	var err error
	if s.PageSize, err = intValue(get(KeyPageSize), KeyPageSize, DefaultPageSize, 1); err != nil {
		return nil, err
	}
	if s.Concurrency, err = intValue(get(KeyConcurrency), KeyConcurrency, DefaultConcurrency, math.MinInt); err != nil {
		return nil, err
	}
	if s.TopLimit, err = intValue(get(KeyTopLimit), KeyTopLimit, DefaultTopLimit, 1); err != nil {
		return nil, err
	}

	if v := get(KeyRPS); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps < 0 {
			return nil, &ConfigurationError{Key: KeyRPS, Reason: fmt.Sprintf("must be a non-negative number, got %q", v)}
		}
		s.RequestsPerSecond = rps
	}

	if s.APIURL != "" {
		if err := checkHTTPURL(s.APIURL); err != nil {
			return nil, &ConfigurationError{Key: KeyAPIURL, Reason: "must be an http(s) URL", Err: err}
		}
	}
	if s.PushgatewayURL != "" {
		if err := checkHTTPURL(s.PushgatewayURL); err != nil {
			return nil, &ConfigurationError{Key: KeyPushgatewayURL, Reason: "must be an http(s) URL", Err: err}
		}
	}

	tz := get(KeyTimezone)
	if tz == "" {
		tz = DefaultTimezone
	}
	if s.Location, err = time.LoadLocation(tz); err != nil {
		return nil, &ConfigurationError{Key: KeyTimezone, Reason: "unknown time zone", Err: err}
	}

	if s.TieBreak, err = rank.ParseTieBreak(get(KeyTieBreak)); err != nil {
		return nil, &ConfigurationError{Key: KeyTieBreak, Reason: "invalid value", Err: err}
	}

	if s.LogLevel, err = ParseLogLevel(get(KeyLogLevel)); err != nil {
		return nil, &ConfigurationError{Key: KeyLogLevel, Reason: "invalid value", Err: err}
	}

	return s, nil
}

// SplitList splits a comma-separated list, dropping blank items.
func SplitList(v string) []string {
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// ParseLogLevel parses debug, info, warn or error. Empty means info.
func ParseLogLevel(v string) (slog.Level, error) {
	var level slog.Level
	if v == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return 0, err
	}
	return level, nil
}

func intValue(v, key string, def, minValue int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ConfigurationError{Key: key, Reason: fmt.Sprintf("must be an integer, got %q", v)}
	}
	if n < minValue {
		return 0, &ConfigurationError{Key: key, Reason: fmt.Sprintf("must be at least %d, got %d", minValue, n)}
	}
	return n, nil
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
