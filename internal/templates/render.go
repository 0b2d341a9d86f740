// Package templates renders the viewer page and the HTML fragments patched
// into it over SSE.
package templates

import (
	"bytes"
	"embed"
	"html/template"
	"math"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/joeblew999/plat-basemap/internal/control"
)

//go:embed html/*.html
var builtin embed.FS

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// percent formats an opacity in [0, 1] as a whole percentage.
	"percent": func(v float64) string {
		return strconv.Itoa(int(math.Round(v*100))) + "%"
	},
}

// Renderer manages HTML templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// Default returns a renderer over the built-in templates.
func Default() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(builtin, "html/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// New creates a renderer from the built-in templates, overridden by any
// *.html files in dir that define the same names.
func New(dir string) (*Renderer, error) {
	r, err := Default()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return r, nil
	}
	if err := r.Reload(dir); err != nil {
		return nil, err
	}
	return r, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(buf, name, data)
}

// Reload re-parses the built-in templates and applies overrides from dir
// (useful for dev hot-reload).
func (r *Renderer) Reload(dir string) error {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(builtin, "html/*.html")
	if err != nil {
		return err
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return err
	}
	if len(matches) > 0 {
		if tmpl, err = tmpl.ParseFiles(matches...); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}

// PageData is what the viewer page needs.
type PageData struct {
	Title     string
	StreamURL string
}

// Page renders the viewer page.
func (r *Renderer) Page(data PageData) (string, error) {
	return r.Render("viewer", data)
}

// LayerControl renders the layer switcher. controlURL is the session's
// control endpoint prefix.
func (r *Renderer) LayerControl(controlURL string, v control.View) (string, error) {
	return r.Render("layer-control", struct {
		ControlURL string
		View       control.View
	}{controlURL, v})
}
