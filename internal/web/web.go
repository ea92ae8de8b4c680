// Package web holds the server-rendered pages and their static assets.
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
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page names.
const (
	PageVideoList   = "video_list.html"
	PageVideoDetail = "video_detail.html"
	PageVideoForm   = "video_form.html"
	PageLogin       = "login.html"
)

// Static returns the embedded static assets rooted at the static directory.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Renderer executes page templates inside the shared base layout.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page. staticURL is the prefix assets are served
// from, either the CDN or the local /static/ route.
func NewRenderer(staticURL string) (*Renderer, error) {
	if !strings.HasSuffix(staticURL, "/") {
		staticURL += "/"
	}
	funcs := template.FuncMap{
		"static": func(name string) string { return staticURL + strings.TrimPrefix(name, "/") },
		"date":   func(t time.Time) string { return t.UTC().Format("Jan. 2, 2006, 3:04 p.m.") },
	}

	r := &Renderer{pages: map[string]*template.Template{}}
	for _, page := range []string{PageVideoList, PageVideoDetail, PageVideoForm, PageLogin} {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/base.html", path.Join("templates", page))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		r.pages[page] = tmpl
	}
	return r, nil
}

// Render writes the page with the given status code.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data interface{}) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf strings.Builder
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write([]byte(buf.String()))
	return err
}
