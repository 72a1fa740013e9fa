package lastfm

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// topTracksLimit is how many titles artist.getTopTracks is asked for.
const topTracksLimit = 50

// Tag is a Last.fm tag. Count is only reported for track tags.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count,omitempty"`
	URL   string `json:"url"`
}

type topTags struct {
	TopTags struct {
		Tag []Tag `json:"tag"`
	} `json:"toptags"`
}

type topTracks struct {
	TopTracks struct {
		Track []struct {
			Name string `json:"name"`
		} `json:"track"`
	} `json:"toptracks"`
}

// Client talks to the Last.fm API. Successful lookups are remembered in
// memory, so repeated questions about the same track cost nothing.
type Client struct {
	cfg    Config
	tags   *memo[[]Tag]
	titles *memo[[]string]
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// GetTags returns the top tags of a track. When the track has none the
// artist's tags are used instead. The result is never nil.
func (c *Client) GetTags(ctx context.Context, artist, track string) ([]Tag, error) {
	if track != "" {
		tags, err := c.topTags(ctx, "track.getTopTags", url.Values{"artist": {artist}, "track": {track}})
		if err != nil || len(tags) > 0 {
			return tags, err
		}
	}
	return c.topTags(ctx, "artist.getTopTags", url.Values{"artist": {artist}})
}

func (c *Client) topTags(ctx context.Context, method string, params url.Values) ([]Tag, error) {
	key := method + "\x00" + fold(params.Get("artist")) + "\x00" + fold(params.Get("track"))
	if tags, ok := c.tags.get(key); ok {
		return tags, nil
	}

	var resp topTags
	if err := c.call(ctx, method, params, &resp); err != nil {
		return nil, err
	}
	tags := resp.TopTags.Tag
	if tags == nil {
		tags = []Tag{}
	}
	c.tags.put(key, tags)
	return tags, nil
}

// GetTopTrackTitles returns an artist's most played titles, blank and
// case-insensitively duplicated names removed. Empty listings are not
// remembered so that a later call asks again.
func (c *Client) GetTopTrackTitles(ctx context.Context, artist string) ([]string, error) {
	key := fold(artist)
	if titles, ok := c.titles.get(key); ok {
		return titles, nil
	}

	var resp topTracks
	params := url.Values{"artist": {artist}, "limit": {strconv.Itoa(topTracksLimit)}}
	if err := c.call(ctx, "artist.getTopTracks", params, &resp); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(resp.TopTracks.Track))
	seen := make(map[string]bool, len(resp.TopTracks.Track))
	for _, t := range resp.TopTracks.Track {
		name := strings.TrimSpace(t.Name)
		if name == "" || seen[fold(name)] {
			continue
		}
		seen[fold(name)] = true
		titles = append(titles, name)
	}
	if len(titles) > 0 {
		c.titles.put(key, titles)
	}
	return titles, nil
}
