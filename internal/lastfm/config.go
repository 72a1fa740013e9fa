// Package lastfm is a small Last.fm client covering the two lookups the
// stagehand needs: tags for a track and an artist's popular titles.
package lastfm

import (
	"errors"
	"net/http"
	"time"
)

// DefaultBaseURL is the Last.fm 2.0 REST endpoint.
const DefaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

const (
	defaultTimeout    = 10 * time.Second
	defaultRetryBase  = time.Second
	defaultMaxRetries = 3
	defaultCacheSize  = 2048
	defaultCacheTTL   = 24 * time.Hour
)

// ErrMissingAPIKey is returned by New when Config.APIKey is empty.
var ErrMissingAPIKey = errors.New("missing last.fm api key")

// Config configures a Client. Only APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	// Timeout bounds a single HTTP round trip.
	Timeout time.Duration
	// RetryBase is the first delay of the rate-limit backoff, doubled on
	// each of MaxRetries further attempts. Zero MaxRetries means 3 and a
	// negative value disables retrying.
	RetryBase  time.Duration
	MaxRetries int
	// HTTPClient overrides the transport; Timeout is ignored when set.
	HTTPClient *http.Client
	// CacheSize bounds the remembered tag and title lookups, each; CacheTTL
	// is how long one stays valid.
	CacheSize int
	CacheTTL  time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.RetryBase <= 0 {
		c.RetryBase = defaultRetryBase
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.CacheSize <= 0 {
		c.CacheSize = defaultCacheSize
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	return c
}

// New returns a Client for cfg.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg = cfg.withDefaults()
	return &Client{
		cfg:    cfg,
		tags:   newMemo[[]Tag](cfg.CacheSize, cfg.CacheTTL),
		titles: newMemo[[]string](cfg.CacheSize, cfg.CacheTTL),
	}, nil
}
