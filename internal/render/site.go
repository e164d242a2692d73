package render

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"uch/internal/middleware"
	"uch/internal/sitecontext"
)

// Site renders public blog pages. Every page receives the sidebar keys
// produced by the context processor chain; keys supplied by the view
// override processor keys of the same name.
type Site struct {
	templates map[string]*template.Template
	chain     sitecontext.Chain
}

// NewSite parses the blog templates, each paired with the blog layout.
func NewSite(devMode bool, mediaURL MediaURLFunc, chain sitecontext.Chain) (*Site, error) {
	funcs := sharedFuncs(devMode, mediaURL)

	s := &Site{
		templates: make(map[string]*template.Template),
		chain:     chain,
	}

	entries, err := templateFS.ReadDir("templates/blog")
	if err != nil {
		return nil, fmt.Errorf("read embedded blog templates: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == "base.html" || strings.HasPrefix(name, "_") {
			continue
		}
		tmpl, err := template.New("base.html").Funcs(funcs).ParseFS(
			templateFS, "templates/blog/base.html", "templates/blog/_*.html", "templates/blog/"+name,
		)
		if err != nil {
			return nil, fmt.Errorf("parse blog template %s: %w", name, err)
		}
		s.templates[strings.TrimSuffix(name, ".html")] = tmpl
	}
	return s, nil
}

// Context builds the template context for a request: processor output,
// request-scoped values, then the view's own data.
func (s *Site) Context(r *http.Request, data map[string]any) map[string]any {
	ctx := s.chain.Build(r)
	ctx["request_path"] = r.URL.Path
	ctx["base"] = MountPrefix(r.URL.Path)
	ctx["user"] = middleware.SessionFromCtx(r.Context())
	ctx["csrf_token"] = middleware.CSRFTokenFromCtx(r.Context())
	ctx["year"] = time.Now().Year()
	for k, v := range data {
		ctx[k] = v
	}
	return ctx
}

// Page renders a blog page with the given status.
func (s *Site) Page(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	tmpl, ok := s.templates[name]
	if !ok {
		http.Error(w, fmt.Sprintf("template %q not found", name), http.StatusInternalServerError)
		return
	}
	ctx := s.Context(r, data)
	writeBuffered(w, status, func(buf io.Writer) error {
		return tmpl.ExecuteTemplate(buf, "base.html", ctx)
	}, name)
}

// NotFound renders the blog 404 page.
func (s *Site) NotFound(w http.ResponseWriter, r *http.Request) {
	s.Page(w, r, http.StatusNotFound, "not_found", map[string]any{"title": "Page not found"})
}

// ServerError renders the blog 500 page.
func (s *Site) ServerError(w http.ResponseWriter, r *http.Request) {
	s.Page(w, r, http.StatusInternalServerError, "server_error", map[string]any{"title": "Server error"})
}

// MountPrefix returns "/blog" for requests served under the /blog mount
// and "" for the root mount.
func MountPrefix(path string) string {
	if path == "/blog" || strings.HasPrefix(path, "/blog/") {
		return "/blog"
	}
	return ""
}
