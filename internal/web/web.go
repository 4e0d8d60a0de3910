// Package web holds the server-rendered views and browser assets.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin/render"
)

//go:embed templates static
var files embed.FS

const (
	layoutFile   = "templates/layout.html"
	partialsFile = "templates/partials.html"
	pagesDir     = "templates/pages"
)

// Renderer maps a page name to a template set of layout + partials + page.
// It satisfies gin's render.HTMLRender.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every embedded page once
func NewRenderer() (*Renderer, error) {
	entries, err := fs.ReadDir(files, pagesDir)
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".html" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".html")

		t, err := template.New(name).
			Funcs(funcs).
			ParseFS(files, layoutFile, partialsFile, path.Join(pagesDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages}, nil
}

// Instance implements render.HTMLRender
func (r *Renderer) Instance(name string, data any) render.Render {
	t, ok := r.pages[name]
	if !ok {
		return missingPage{name: name}
	}
	return render.HTML{Template: t, Name: "layout", Data: data}
}

// Has reports whether a page with the given name was parsed
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// Static returns the browser assets rooted at the static directory
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

type missingPage struct {
	name string
}

func (m missingPage) Render(w http.ResponseWriter) error {
	return fmt.Errorf("page %q not found", m.name)
}

func (m missingPage) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}

var funcs = template.FuncMap{
	"formatDate": func(t time.Time) string {
		return t.Format("02/01/2006")
	},
	"add": func(a, b int) int { return a + b },
	"pages": func(total int) []int {
		out := make([]int, total)
		for i := range out {
			out[i] = i + 1
		}
		return out
	},
}
