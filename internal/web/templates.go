package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"
)

// Templates renders the dashboard. Each page is its own set built on top of
// the shared layouts and fragments; fragments can also be rendered alone
// for htmx-style polling.
type Templates struct {
	pages     map[string]*template.Template
	fragments *template.Template
}

// NewTemplates parses layouts/, partials/ and pages/ from fsys.
func NewTemplates(fsys fs.FS) (*Templates, error) {
	shared, err := template.New("shared").Funcs(funcs).ParseFS(fsys, "layouts/*.html", "partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing layouts: %w", err)
	}
	fragments, err := template.New("fragments").Funcs(funcs).ParseFS(fsys, "partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing partials: %w", err)
	}

	files, err := fs.Glob(fsys, "pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	t := &Templates{pages: make(map[string]*template.Template, len(files)), fragments: fragments}
	for _, file := range files {
		set, err := shared.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := set.ParseFS(fsys, file); err != nil {
			return nil, fmt.Errorf("parsing page %s: %w", file, err)
		}
		t.pages[strings.TrimSuffix(path.Base(file), ".html")] = set
	}
	return t, nil
}

// Render writes a full page wrapped in the "base" layout.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	set, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("page %q not found", page)
	}
	return set.ExecuteTemplate(w, "base", data)
}

// RenderPartial writes a single fragment by its defined name.
func (t *Templates) RenderPartial(w io.Writer, name string, data any) error {
	if t.fragments.Lookup(name) == nil {
		return fmt.Errorf("partial %q not found", name)
	}
	return t.fragments.ExecuteTemplate(w, name, data)
}

var funcs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Local().Format("15:04:05")
	},
	"formatDuration": func(d time.Duration) string {
		if d <= 0 {
			return "-"
		}
		return d.Round(time.Second).String()
	},
	"add": func(a, b int) int { return a + b },
}

// PageData is what every page needs for the layout.
type PageData struct {
	Title       string
	CurrentPath string
}

// StatusPageData feeds both the status page and the stage fragment.
type StatusPageData struct {
	PageData
	Status StatusResponse
}
