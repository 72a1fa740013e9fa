package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sethvargo/go-retry"
)

const userAgent = "stagehand/1.0"

var (
	// ErrRateLimited means Last.fm kept answering with error 29 after all
	// retries were spent.
	ErrRateLimited = errors.New("last.fm rate limit exceeded")
	// ErrInvalidAPIKey means Last.fm rejected the key (error 10).
	ErrInvalidAPIKey = errors.New("last.fm rejected api key")
)

// Error is any other error payload returned by Last.fm.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("last.fm error %d: %s", e.Code, e.Message)
}

const (
	codeInvalidAPIKey = 10
	codeRateLimited   = 29
)

// errorBody is present on every failing response, whatever the HTTP status.
type errorBody struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

func (b errorBody) err() error {
	switch b.Code {
	case 0:
		return nil
	case codeRateLimited:
		return ErrRateLimited
	case codeInvalidAPIKey:
		return ErrInvalidAPIKey
	default:
		return &Error{Code: b.Code, Message: b.Message}
	}
}

// call invokes a Last.fm method and decodes the JSON body into out.
// Rate-limit answers are retried with exponential backoff.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("method", method)
	q.Set("api_key", c.cfg.APIKey)
	q.Set("format", "json")
	q.Set("autocorrect", "1")
	reqURL := c.cfg.BaseURL + "?" + q.Encode()

	var body []byte
	backoff := retry.WithMaxRetries(uint64(c.cfg.MaxRetries), retry.NewExponential(c.cfg.RetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		b, err := c.get(ctx, reqURL)
		if errors.Is(err, ErrRateLimited) {
			return retry.RetryableError(err)
		}
		body = b
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", method, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		if err := eb.err(); err != nil {
			return nil, err
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}
