package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrMissingCredentials is returned when the Spotify client ID or secret is not set.
var ErrMissingCredentials = errors.New("missing spotify client id or secret")

// Config holds the Spotify application credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	// TokenURL overrides the Spotify accounts endpoint.
	TokenURL string
	// CachePath overrides the default token cache location.
	CachePath string
}

// Authenticator obtains app-level Spotify tokens with the client-credentials
// flow. Tokens are cached on disk and reused until they expire.
type Authenticator struct {
	source *cachingTokenSource
	cache  *TokenCache
	logger *slog.Logger
}

// New creates an Authenticator. Returns ErrMissingCredentials if either
// credential is empty.
func New(cfg Config, logger *slog.Logger) (*Authenticator, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if logger == nil {
		logger = slog.Default()
	}

	var cache *TokenCache
	if cfg.CachePath != "" {
		cache = NewTokenCache(cfg.CachePath)
	} else {
		c, err := DefaultTokenCache()
		if err != nil {
			return nil, fmt.Errorf("creating token cache: %w", err)
		}
		cache = c
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
	}

	a := &Authenticator{cache: cache, logger: logger}
	a.source = &cachingTokenSource{
		fetch:  cc.Token,
		cache:  cache,
		logger: logger,
	}
	return a, nil
}

// Token returns a valid access token, fetching a new one when the cached
// token is missing or expired.
func (a *Authenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	return a.source.token(ctx)
}

// Client returns a Spotify API client authorized with app credentials.
func (a *Authenticator) Client(ctx context.Context) *spotify.Client {
	return spotify.New(oauth2.NewClient(ctx, a.source), spotify.WithRetry(true))
}

// Logout removes the cached token.
func (a *Authenticator) Logout() error {
	return a.cache.Delete()
}

// cachingTokenSource serves the in-memory token, then the on-disk token,
// then a freshly fetched one, saving new tokens to disk.
type cachingTokenSource struct {
	fetch  func(ctx context.Context) (*oauth2.Token, error)
	cache  *TokenCache
	logger *slog.Logger

	mu       sync.Mutex
	current  *oauth2.Token
	diskRead bool
}

// Token implements oauth2.TokenSource.
func (s *cachingTokenSource) Token() (*oauth2.Token, error) {
	return s.token(context.Background())
}

func (s *cachingTokenSource) token(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Valid() {
		return s.current, nil
	}

	if !s.diskRead {
		s.diskRead = true
		cached, err := s.cache.Load()
		if err != nil {
			s.logger.Warn("ignoring unreadable token cache", "path", s.cache.Path(), "error", err)
		} else if cached.Valid() {
			s.current = cached
			return cached, nil
		}
	}

	tok, err := s.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching client credentials token: %w", err)
	}
	s.current = tok

	// Log but don't fail - the token is usable.
	if err := s.cache.Save(tok); err != nil {
		s.logger.Warn("failed to cache token", "error", err)
	}
	return tok, nil
}
