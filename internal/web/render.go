// Package web implements the HTML surface of Gebo using chi.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/starford/gebo/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// markdown converts snippet text to HTML. Raw HTML in the source is not
// passed through (goldmark default) and the output is sanitized on top, so
// snippet content can never inject markup into the page.
var (
	markdown  = goldmark.New(goldmark.WithExtensions(extension.GFM))
	sanitizer = bluemonday.UGCPolicy()
)

// RenderMarkdown converts Markdown source to sanitized HTML.
func RenderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes()))
}

// snippetView is a snippet prepared for template rendering.
type snippetView struct {
	ID    int64
	Title string
	HTML  template.HTML
}

func newSnippetView(s models.Snippet) snippetView {
	return snippetView{ID: s.ID, Title: s.Title, HTML: RenderMarkdown(s.Text)}
}

// page is the data passed to every template.
type page struct {
	Title       string
	Flashes     []Flash
	User        *models.User
	AuthEnabled bool

	Query    string
	Snippets []snippetView
	Snippet  *snippetView
	Form     map[string]string
	Errors   map[string]string
	Question string
	ShowUser *models.User
}

// renderer parses and executes the embedded page templates. Each page
// template defines a "content" block inside the shared base layout.
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	names := []string{
		"index", "results", "snippet", "edit_snippet", "confirm",
		"login", "add_user", "user", "error",
	}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t, err := template.ParseFS(templateFS, "templates/base.tmpl", "templates/"+name+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("web: parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &renderer{pages: pages}, nil
}

func (rn *renderer) render(w http.ResponseWriter, status int, name string, data page) {
	t, ok := rn.pages[name]
	if !ok {
		http.Error(w, "internal error", http.StatusInternalServerError)
		slog.Error("unknown template", slog.String("name", name))
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		slog.Error("template execute failed", slog.String("name", name), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
