// Package spotify provides a catalog searcher backed by the Spotify Web API.
package spotify

import (
	"github.com/zmb3/spotify/v2"
)

// Client wraps the Spotify API client.
type Client struct {
	api    *spotify.Client
	market string
}

// Option configures a Client.
type Option func(*Client)

// WithMarket restricts searches to tracks playable in the given ISO country code.
func WithMarket(code string) Option {
	return func(c *Client) {
		c.market = code
	}
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client, opts ...Option) *Client {
	c := &Client{api: api}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
