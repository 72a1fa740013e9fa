// Package genre defines the three genre buckets the repertoire is organized
// into and the weight vector describing a room's current mix.
package genre

import (
	"fmt"
	"strings"
)

// Bucket is a coarse genre category.
type Bucket int

const (
	HipHop Bucket = iota
	Rock
	Metal
)

// Buckets lists every bucket in a stable order.
var Buckets = []Bucket{HipHop, Rock, Metal}

// String returns the bucket's config name.
func (b Bucket) String() string {
	switch b {
	case HipHop:
		return "hiphop"
	case Rock:
		return "rock"
	case Metal:
		return "metal"
	default:
		return fmt.Sprintf("bucket(%d)", int(b))
	}
}

// ParseBucket maps a config name to a Bucket.
func ParseBucket(s string) (Bucket, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hiphop", "hip-hop", "hip_hop", "hip hop", "rap":
		return HipHop, nil
	case "rock":
		return Rock, nil
	case "metal":
		return Metal, nil
	default:
		return 0, fmt.Errorf("unknown genre bucket %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (b Bucket) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Bucket) UnmarshalText(text []byte) error {
	parsed, err := ParseBucket(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Weights is a non-exclusive count per bucket.
type Weights struct {
	HipHop int `json:"hipHop"`
	Rock   int `json:"rock"`
	Metal  int `json:"metal"`
}

// Uniform returns a vector giving every bucket the same weight.
func Uniform() Weights {
	return Weights{HipHop: 1, Rock: 1, Metal: 1}
}

// Get returns the weight of a bucket.
func (w Weights) Get(b Bucket) int {
	switch b {
	case HipHop:
		return w.HipHop
	case Rock:
		return w.Rock
	case Metal:
		return w.Metal
	default:
		return 0
	}
}

// Add increments a bucket by one.
func (w *Weights) Add(b Bucket) {
	switch b {
	case HipHop:
		w.HipHop++
	case Rock:
		w.Rock++
	case Metal:
		w.Metal++
	}
}

// Total returns the sum over all buckets.
func (w Weights) Total() int {
	return w.HipHop + w.Rock + w.Metal
}

// IsZero reports whether no bucket has weight.
func (w Weights) IsZero() bool {
	return w.Total() <= 0
}

func (w Weights) String() string {
	return fmt.Sprintf("hiphop=%d rock=%d metal=%d", w.HipHop, w.Rock, w.Metal)
}

// keyword lists are matched as substrings of lowercased tags.
var keywords = map[Bucket][]string{
	HipHop: {"rap", "hip-hop", "hip hop", "hiphop", "r&b", "rnb", "boom bap", "trap"},
	Rock:   {"rock", "punk", "indie", "alternative", "post-", "grunge", "shoegaze", "emo"},
	Metal:  {"metal", "doom", "sludge", "stoner", "djent", "grindcore"},
}

// Classify returns the buckets matched by any of the tags, each at most once,
// in Buckets order.
func Classify(tags []string) []Bucket {
	var out []Bucket
	for _, b := range Buckets {
		if matchesAny(tags, keywords[b]) {
			out = append(out, b)
		}
	}
	return out
}

func matchesAny(tags, words []string) bool {
	for _, tag := range tags {
		t := strings.ToLower(tag)
		for _, w := range words {
			if strings.Contains(t, w) {
				return true
			}
		}
	}
	return false
}
