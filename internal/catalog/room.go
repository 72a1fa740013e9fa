package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DefaultRoomURL is the room platform's playlist search endpoint.
	DefaultRoomURL = "https://gateway.prod.tt.fm/api/playlist-service/search/v2"

	roomSource       = "room"
	defaultRetryBase = 500 * time.Millisecond
	maxRetries       = 2
)

// RoomConfig configures a RoomSearcher.
type RoomConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
	// RetryBase is the first backoff delay for 429 and 5xx responses.
	RetryBase time.Duration
}

// RoomSearcher searches the room platform's own catalog over HTTP.
type RoomSearcher struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retryBase  time.Duration
}

// NewRoomSearcher creates a RoomSearcher.
func NewRoomSearcher(cfg RoomConfig) *RoomSearcher {
	s := &RoomSearcher{
		baseURL:    cfg.URL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retryBase:  cfg.RetryBase,
	}
	if s.baseURL == "" {
		s.baseURL = DefaultRoomURL
	}
	if s.httpClient.Timeout <= 0 {
		s.httpClient.Timeout = 10 * time.Second
	}
	if s.retryBase <= 0 {
		s.retryBase = defaultRetryBase
	}
	return s
}

// roomSearchResponse is the playlist search payload.
type roomSearchResponse struct {
	Songs []roomSong `json:"songs"`
}

type roomSong struct {
	ID                string         `json:"id"`
	SongID            string         `json:"songId"`
	ArtistName        string         `json:"artistName"`
	TrackName         string         `json:"trackName"`
	AlbumName         string         `json:"albumName"`
	Album             *roomAlbum     `json:"album"`
	Explicit          bool           `json:"explicit"`
	Duration          float64        `json:"duration"`
	MusicProviders    map[string]any `json:"musicProviders"`
	MusicProvidersIDs map[string]any `json:"musicProvidersIds"`
}

type roomAlbum struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Search implements Searcher. 429 and 5xx responses are retried with
// exponential backoff.
func (s *RoomSearcher) Search(ctx context.Context, q Query) ([]Entry, error) {
	params := url.Values{}
	params.Set("q", q.Text)
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Explicit {
		params.Set("explicit", "true")
	}
	reqURL := s.baseURL + "?" + params.Encode()

	var body []byte
	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(s.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		b, err := s.doSingleRequest(ctx, reqURL)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching catalog for %q: %w", q.Text, err)
	}

	var resp roomSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing catalog response: %w", err)
	}

	entries := make([]Entry, 0, len(resp.Songs))
	for _, song := range resp.Songs {
		entries = append(entries, song.entry())
	}
	return entries, nil
}

func (s *RoomSearcher) doSingleRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("executing request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, retry.RetryableError(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return body, nil
}

func (s roomSong) entry() Entry {
	e := Entry{
		ID:         s.SongID,
		Artist:     s.ArtistName,
		Title:      s.TrackName,
		Album:      s.AlbumName,
		Explicit:   s.Explicit,
		DurationMs: int(s.Duration * 1000),
		Source:     roomSource,
	}
	if e.ID == "" {
		e.ID = s.ID
	}
	if s.Album != nil {
		if e.Album == "" {
			e.Album = s.Album.Name
		}
		e.Compilation = s.Album.Type == "compilation"
	}

	providers := make(map[string]string, len(s.MusicProviders)+len(s.MusicProvidersIDs))
	for _, m := range []map[string]any{s.MusicProviders, s.MusicProvidersIDs} {
		for name, v := range m {
			if id := providerID(v); id != "" {
				providers[name] = id
			}
		}
	}
	if len(providers) > 0 {
		e.Providers = providers
	}
	return e
}

// providerID reduces a provider value to a string; false, null and empty
// values mean the provider is absent.
func providerID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case bool:
		if id {
			return "true"
		}
	case map[string]any:
		if len(id) > 0 {
			return "true"
		}
	}
	return ""
}
