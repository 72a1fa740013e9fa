// Package config loads stagehand settings from defaults, an optional
// stagehand.toml, a .env file, STAGEHAND_ environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Keys recognized in the config file, environment and flags.
const (
	KeyLowThreshold     = "stage-low-threshold"
	KeyHighThreshold    = "stage-high-threshold"
	KeyCooldownMs       = "auto-leave-cooldown-ms"
	KeyRingSize         = "exclusion-ring-size"
	KeyRetryCap         = "selection-retry-cap"
	KeyOversample       = "genre-oversample-constant"
	KeyTickInterval     = "tick-interval"
	KeyLookupTimeout    = "lookup-timeout"
	KeyHistorySize      = "history-size"
	KeyVibeWindow       = "vibe-window"
	KeyStartGlued       = "start-glued"
	KeySelfID           = "self-id"
	KeyRoomID           = "room-id"
	KeyAddr             = "addr"
	KeyCatalogBackend   = "catalog-backend"
	KeyCatalogURL       = "catalog-url"
	KeyCatalogToken     = "catalog-token"
	KeyCatalogLimit     = "catalog-limit"
	KeyCatalogArtistLim = "catalog-artist-limit"
	KeySpotifyID        = "spotify-id"
	KeySpotifySecret    = "spotify-secret"
	KeySpotifyMarket    = "spotify-market"
	KeyLastfmAPIKey     = "lastfm-api-key"
	KeyDatabaseURL      = "database-url"
	KeyPoolFile         = "pool-file"
	KeyLogLevel         = "log-level"
	KeyLogFormat        = "log-format"
)

// Catalog backends.
const (
	BackendRoom    = "room"
	BackendSpotify = "spotify"
)

const (
	envPrefix  = "STAGEHAND"
	configName = "stagehand"
	configType = "toml"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the resolved stagehand configuration.
type Config struct {
	LowThreshold  int
	HighThreshold int
	Cooldown      time.Duration
	RingSize      int
	RetryCap      int
	Oversample    int
	TickInterval  time.Duration
	LookupTimeout time.Duration
	HistorySize   int
	VibeWindow    int
	StartGlued    bool

	SelfID string
	RoomID string
	Addr   string

	CatalogBackend     string
	CatalogURL         string
	CatalogToken       string
	CatalogLimit       int
	CatalogArtistLimit int

	SpotifyID     string
	SpotifySecret string
	SpotifyMarket string

	LastfmAPIKey string
	DatabaseURL  string
	PoolFile     string

	LogLevel  string
	LogFormat string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyLowThreshold, 3)
	v.SetDefault(KeyHighThreshold, 3)
	v.SetDefault(KeyCooldownMs, 120000)
	v.SetDefault(KeyRingSize, 15)
	v.SetDefault(KeyRetryCap, 3)
	v.SetDefault(KeyOversample, 5)
	v.SetDefault(KeyTickInterval, "10s")
	v.SetDefault(KeyLookupTimeout, "10s")
	v.SetDefault(KeyHistorySize, 50)
	v.SetDefault(KeyVibeWindow, 5)
	v.SetDefault(KeyStartGlued, false)
	v.SetDefault(KeyRoomID, "default")
	v.SetDefault(KeyAddr, "127.0.0.1:8080")
	v.SetDefault(KeyCatalogBackend, BackendRoom)
	v.SetDefault(KeyCatalogLimit, 20)
	v.SetDefault(KeyCatalogArtistLim, 30)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
}

// Load reads configuration into a Config. A missing config file or .env is
// not an error. Flags must already be bound to v.
func Load(v *viper.Viper, configFile string) (Config, error) {
	// Values already in the environment win over .env.
	_ = godotenv.Load()

	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// Unprefixed names used by the Spotify and Last.fm tooling.
	_ = v.BindEnv(KeySpotifyID, "STAGEHAND_SPOTIFY_ID", "SPOTIFY_ID")
	_ = v.BindEnv(KeySpotifySecret, "STAGEHAND_SPOTIFY_SECRET", "SPOTIFY_SECRET")
	_ = v.BindEnv(KeyLastfmAPIKey, "STAGEHAND_LASTFM_API_KEY", "LASTFM_API_KEY")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := Config{
		LowThreshold:       v.GetInt(KeyLowThreshold),
		HighThreshold:      v.GetInt(KeyHighThreshold),
		Cooldown:           time.Duration(v.GetInt64(KeyCooldownMs)) * time.Millisecond,
		RingSize:           v.GetInt(KeyRingSize),
		RetryCap:           v.GetInt(KeyRetryCap),
		Oversample:         v.GetInt(KeyOversample),
		TickInterval:       v.GetDuration(KeyTickInterval),
		LookupTimeout:      v.GetDuration(KeyLookupTimeout),
		HistorySize:        v.GetInt(KeyHistorySize),
		VibeWindow:         v.GetInt(KeyVibeWindow),
		StartGlued:         v.GetBool(KeyStartGlued),
		SelfID:             strings.TrimSpace(v.GetString(KeySelfID)),
		RoomID:             v.GetString(KeyRoomID),
		Addr:               v.GetString(KeyAddr),
		CatalogBackend:     strings.ToLower(v.GetString(KeyCatalogBackend)),
		CatalogURL:         v.GetString(KeyCatalogURL),
		CatalogToken:       v.GetString(KeyCatalogToken),
		CatalogLimit:       v.GetInt(KeyCatalogLimit),
		CatalogArtistLimit: v.GetInt(KeyCatalogArtistLim),
		SpotifyID:          v.GetString(KeySpotifyID),
		SpotifySecret:      v.GetString(KeySpotifySecret),
		SpotifyMarket:      v.GetString(KeySpotifyMarket),
		LastfmAPIKey:       v.GetString(KeyLastfmAPIKey),
		DatabaseURL:        v.GetString(KeyDatabaseURL),
		PoolFile:           v.GetString(KeyPoolFile),
		LogLevel:           v.GetString(KeyLogLevel),
		LogFormat:          v.GetString(KeyLogFormat),
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	positive := []struct {
		key string
		val int
	}{
		{KeyLowThreshold, c.LowThreshold},
		{KeyHighThreshold, c.HighThreshold},
		{KeyRingSize, c.RingSize},
		{KeyRetryCap, c.RetryCap},
		{KeyOversample, c.Oversample},
		{KeyHistorySize, c.HistorySize},
		{KeyVibeWindow, c.VibeWindow},
		{KeyCatalogLimit, c.CatalogLimit},
		{KeyCatalogArtistLim, c.CatalogArtistLimit},
	}
	for _, p := range positive {
		if p.val <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalid, p.key, p.val)
		}
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalid, KeyCooldownMs)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalid, KeyTickInterval)
	}
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalid, KeyLookupTimeout)
	}
	if c.SelfID == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalid, KeySelfID)
	}
	switch c.CatalogBackend {
	case BackendRoom:
	case BackendSpotify:
		if c.SpotifyID == "" || c.SpotifySecret == "" {
			return fmt.Errorf("%w: %s and %s are required for the spotify backend", ErrInvalid, KeySpotifyID, KeySpotifySecret)
		}
	default:
		return fmt.Errorf("%w: unknown %s %q", ErrInvalid, KeyCatalogBackend, c.CatalogBackend)
	}
	return nil
}
