package catalog

import (
	"strings"
	"unicode"
)

// Filter holds the hard rejection rules applied to every search hit.
type Filter struct {
	// Disallowed providers. An entry sourced only from these is rejected.
	Disallowed []string
	// Allowed providers. An entry must carry at least one of these.
	Allowed []string
	// VariantMarkers reject edited/clean/instrumental renditions.
	VariantMarkers []string
	// AlbumMarkers reject compilation-style releases.
	AlbumMarkers []string
}

// DefaultFilter returns the filter used by the room platform.
func DefaultFilter() Filter {
	return Filter{
		Disallowed: []string{ProviderSoundCloud},
		Allowed: []string{
			ProviderSpotify, ProviderApple, ProviderYouTube,
			ProviderDeezer, ProviderTidal, ProviderAmazonMusic,
		},
		VariantMarkers: []string{"edited", "clean", "radio edit", "acapella", "a cappella", "instrumental"},
		AlbumMarkers:   []string{"greatest hits", "best of", "compilation", "soundtrack", "tribute"},
	}
}

// Accept reports whether e passes every hard filter, and if not, why.
func (f Filter) Accept(e Entry) (bool, string) {
	switch {
	case f.onlyDisallowed(e):
		return false, "disallowed provider"
	case !f.hasAllowed(e):
		return false, "no allowed provider"
	case f.isVariant(e.Title):
		return false, "variant title"
	case e.Compilation || f.isCompilationAlbum(e.Album):
		return false, "compilation album"
	}
	return true, ""
}

// Apply returns the entries that pass every hard filter, preserving order.
func (f Filter) Apply(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if ok, _ := f.Accept(e); ok {
			out = append(out, e)
		}
	}
	return out
}

func (f Filter) onlyDisallowed(e Entry) bool {
	if len(e.Providers) == 0 {
		return false
	}
	for name := range e.Providers {
		if !matchesProvider(name, f.Disallowed) {
			return false
		}
	}
	return true
}

func (f Filter) hasAllowed(e Entry) bool {
	for name := range e.Providers {
		if matchesProvider(name, f.Allowed) {
			return true
		}
	}
	return false
}

// matchesProvider compares case-insensitively by prefix so that variants
// such as "soundCloudPublic" count as "soundcloud".
func matchesProvider(name string, list []string) bool {
	n := strings.ToLower(name)
	for _, p := range list {
		if strings.HasPrefix(n, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func (f Filter) isVariant(title string) bool {
	for _, seg := range qualifierSegments(title) {
		for _, m := range f.VariantMarkers {
			if strings.Contains(seg, m) {
				return true
			}
		}
	}
	return false
}

func (f Filter) isCompilationAlbum(album string) bool {
	a := strings.ToLower(album)
	for _, m := range f.AlbumMarkers {
		if strings.Contains(a, m) {
			return true
		}
	}
	return false
}

// qualifierSegments returns the lowercased parenthesised, bracketed and
// " - " suffix parts of a title, e.g. "Song (Clean) - Radio Edit" yields
// "clean" and "radio edit".
func qualifierSegments(title string) []string {
	t := strings.ToLower(title)
	var segs []string

	for _, pair := range [][2]byte{{'(', ')'}, {'[', ']'}} {
		rest := t
		for {
			open := strings.IndexByte(rest, pair[0])
			if open < 0 {
				break
			}
			end := strings.IndexByte(rest[open+1:], pair[1])
			if end < 0 {
				segs = append(segs, rest[open+1:])
				break
			}
			segs = append(segs, rest[open+1:open+1+end])
			rest = rest[open+1+end+1:]
		}
	}

	if i := strings.Index(t, " - "); i >= 0 {
		segs = append(segs, t[i+3:])
	}
	return segs
}

// looseArtistMatch matches when either name contains the other.
func looseArtistMatch(got, want string) bool {
	g := fold(got)
	w := fold(want)
	if g == "" || w == "" {
		return false
	}
	return strings.Contains(g, w) || strings.Contains(w, g)
}

// looseTitleMatch is looseArtistMatch ignoring punctuation.
func looseTitleMatch(got, want string) bool {
	g := stripPunct(fold(got))
	w := stripPunct(fold(want))
	if g == "" || w == "" {
		return false
	}
	return strings.Contains(g, w) || strings.Contains(w, g)
}

// strictArtistMatch matches exactly, or exactly up to a trailing "feat." or
// "&" clause. Other joiners (" with ", " x ", commas) are treated as part of
// the artist name.
func strictArtistMatch(got, want string) bool {
	g := fold(got)
	w := fold(want)
	if g == "" || w == "" {
		return false
	}
	return g == w || primaryArtist(g) == w
}

var featureSeparators = []string{
	" feat. ", " feat ", " ft. ", " ft ", " featuring ", " (feat", " (ft", " & ",
}

// primaryArtist returns the leading artist of a folded credit string.
func primaryArtist(credit string) string {
	cut := len(credit)
	for _, sep := range featureSeparators {
		if i := strings.Index(credit, sep); i >= 0 && i < cut {
			cut = i
		}
	}
	return strings.TrimSpace(credit[:cut])
}

func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func stripPunct(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
