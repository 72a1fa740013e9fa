package repertoire

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/justestif/go-stagehand/internal/genre"
)

// Pool format errors.
var (
	ErrUnknownPoolFormat = errors.New("unknown pool file format")
	ErrEmptyPool         = errors.New("pool has no artists")
)

//go:embed pool.toml
var defaultPoolTOML []byte

// Pool is a curated list of artists per genre bucket.
type Pool struct {
	HipHop []string `toml:"hiphop" yaml:"hiphop" json:"hiphop"`
	Rock   []string `toml:"rock" yaml:"rock" json:"rock"`
	Metal  []string `toml:"metal" yaml:"metal" json:"metal"`
}

// DefaultPool returns the embedded curated pool.
func DefaultPool() Pool {
	p, err := ParsePool(defaultPoolTOML, "toml")
	if err != nil {
		panic(fmt.Sprintf("embedded pool: %v", err))
	}
	return p
}

// LoadPool reads a pool file, choosing the decoder by extension
// (.toml, .yaml or .yml).
func LoadPool(path string) (Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pool{}, fmt.Errorf("reading pool file: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	p, err := ParsePool(data, format)
	if err != nil {
		return Pool{}, fmt.Errorf("loading %s: %w", path, err)
	}
	return p, nil
}

// ParsePool decodes a pool in the given format ("toml", "yaml" or "yml").
// Blank names are dropped and duplicates within a bucket removed.
func ParsePool(data []byte, format string) (Pool, error) {
	var p Pool
	switch format {
	case "toml":
		if err := toml.Unmarshal(data, &p); err != nil {
			return Pool{}, fmt.Errorf("parsing toml pool: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return Pool{}, fmt.Errorf("parsing yaml pool: %w", err)
		}
	default:
		return Pool{}, fmt.Errorf("%w: %q", ErrUnknownPoolFormat, format)
	}

	p.HipHop = clean(p.HipHop)
	p.Rock = clean(p.Rock)
	p.Metal = clean(p.Metal)
	if p.Size() == 0 {
		return Pool{}, ErrEmptyPool
	}
	return p, nil
}

// Artists returns the artists of one bucket.
func (p Pool) Artists(b genre.Bucket) []string {
	switch b {
	case genre.HipHop:
		return p.HipHop
	case genre.Rock:
		return p.Rock
	case genre.Metal:
		return p.Metal
	default:
		return nil
	}
}

// Size returns the number of artists across all buckets.
func (p Pool) Size() int {
	return len(p.HipHop) + len(p.Rock) + len(p.Metal)
}

func clean(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		k := strings.ToLower(n)
		if n == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, n)
	}
	return out
}
