package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/tangled-dev/tangled/shared/domain"
	"github.com/tangled-dev/tangled/shared/logger"
	"github.com/tangled-dev/tangled/shared/validation"
)

const (
	baseTemplate     = "base.html"
	partialsTemplate = "partials.html"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// StaticFS is the tree served under /static.
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

var funcs = template.FuncMap{
	"bytesToMB": validation.FormatSizeMB,
	"timeAgo":   timeAgo,
	"accept":    func(mimes []string) string { return strings.Join(mimes, ",") },
	"lower":     strings.ToLower,
}

func mustLoadTemplates() map[string]*template.Template {
	templates := make(map[string]*template.Template)
	files, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	for _, f := range files {
		if path.Ext(f.Name()) != ".html" || f.Name() == baseTemplate || f.Name() == partialsTemplate {
			continue
		}
		templates[f.Name()] = template.Must(template.New(baseTemplate).Funcs(funcs).ParseFS(
			templateFS,
			"templates/"+baseTemplate,
			"templates/"+f.Name(),
			"templates/"+partialsTemplate,
		))
	}
	return templates
}

// TemplateData wraps page data with what every page shows.
type TemplateData struct {
	Data   any
	User   *domain.User
	Error  string
	Notice string
	// CSRFToken goes into every form that posts back
	CSRFToken string
}

type threadView struct {
	domain.Thread
	Rendered template.HTML
}

type indexPage struct {
	Draft         domain.Draft
	Profile       *domain.Profile
	Uploading     bool
	Threads       []threadView
	MaxImageSize  int64
	AllowedMimes  []string
	FeedAvailable bool
}

func (h *Handler) renderTemplate(w http.ResponseWriter, name string, data TemplateData) {
	tmpl, ok := h.templates[name]
	if !ok {
		http.Error(w, fmt.Sprintf("Template %s not found", name), http.StatusInternalServerError)
		return
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, data); err != nil {
		logger.Log.Error("error executing template", "template", name, "error", err)
		http.Error(w, "Internal Server Error rendering template", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (h *Handler) renderThreads(threads []domain.Thread) []threadView {
	views := make([]threadView, len(threads))
	for i, t := range threads {
		views[i] = threadView{Thread: t, Rendered: h.renderer.Render(t.Body)}
	}
	return views
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return t.Format("2 Jan 2006")
}
