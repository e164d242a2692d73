// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for the admin interface
// and the public blog. Admin pages support full-page and HTMX partial
// rendering, detecting the request type via the HX-Request header.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"uch/internal/markdown"
	"uch/internal/middleware"
	"uch/internal/session"
)

//go:embed templates/admin/*.html templates/blog/*.html
var templateFS embed.FS

// PageData holds all data passed to admin templates.
type PageData struct {
	Title     string         // Page title for <title> tag
	Section   string         // Active sidebar section (e.g., "dashboard", "articles")
	Session   *session.Data  // Current user session (nil if unauthenticated)
	CSRFToken string         // CSRF token for forms and HTMX headers
	Data      map[string]any // Page-specific data
	Flashes   []Flash        // One-time notification messages
}

// Flash represents a one-time notification message displayed to the user.
type Flash struct {
	Type    string // "success", "error", "warning", "info"
	Message string
}

// MediaURLFunc resolves a storage key to its public URL.
type MediaURLFunc func(key string) string

// Renderer handles template parsing and execution for admin pages.
type Renderer struct {
	templates map[string]*template.Template
	funcMap   template.FuncMap
}

// standaloneTemplates lists templates that render as full HTML pages
// without the base layout (they have their own <html>, <head>, etc.).
var standaloneTemplates = map[string]bool{
	"login":      true,
	"2fa_setup":  true,
	"2fa_verify": true,
}

// sharedFuncs are available to admin and blog templates alike.
func sharedFuncs(devMode bool, mediaURL MediaURLFunc) template.FuncMap {
	return template.FuncMap{
		// isDev returns true when the app runs in development mode.
		"isDev": func() bool { return devMode },
		// mediaURL turns a storage key into a public URL; empty keys stay empty.
		"mediaURL": func(key string) string {
			if key == "" || mediaURL == nil {
				return ""
			}
			return mediaURL(key)
		},
		"date": func(t any) string {
			switch v := t.(type) {
			case time.Time:
				if v.IsZero() {
					return ""
				}
				return v.Format("January 2, 2006")
			case *time.Time:
				if v == nil {
					return ""
				}
				return v.Format("January 2, 2006")
			}
			return ""
		},
		"isoDate": func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
		// safeHTML marks stored, already sanitized HTML as trusted.
		"safeHTML": func(s string) template.HTML { return template.HTML(s) },
		// plain strips markup, for excerpts derived from rendered content.
		"plain":    markdown.StripTags,
		"truncate": truncate,
		"dict":     dict,
		"add":      func(a, b int) int { return a + b },
		"sub":      func(a, b int) int { return a - b },
	}
}

// dict builds a map from alternating keys and values so partial
// templates can receive more than one argument.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		k, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[k] = pairs[i+1]
	}
	return m, nil
}

// truncate shortens s to n runes, appending "..." when cut.
func truncate(n int, s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}

// New creates a Renderer by parsing all admin templates from the embedded
// filesystem. Each page template is paired with the base layout.
// When devMode is true, templates use CDN-hosted assets (TailwindCSS, HTMX,
// AlpineJS); when false, they reference compiled local static files.
func New(devMode bool, mediaURL MediaURLFunc) (*Renderer, error) {
	funcs := sharedFuncs(devMode, mediaURL)
	funcs["activeClass"] = func(current, target string) string {
		if current == target {
			return "bg-gray-900 text-white"
		}
		return "text-gray-300 hover:bg-gray-700 hover:text-white"
	}
	// deref safely dereferences a string pointer for use in templates.
	funcs["deref"] = func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	// catIndent returns a category name with non-breaking space indentation
	// based on depth. Used for hierarchical <select> dropdowns.
	funcs["catIndent"] = func(depth int, name string) string {
		if depth == 0 {
			return name
		}
		return strings.Repeat("    ", depth) + name
	}
	// uuidEq compares a *uuid.UUID pointer with a uuid.UUID value.
	// Returns true if the pointer is non-nil and points to the same value.
	funcs["uuidEq"] = func(ptr *uuid.UUID, val uuid.UUID) bool {
		return ptr != nil && *ptr == val
	}

	r := &Renderer{
		templates: make(map[string]*template.Template),
		funcMap:   funcs,
	}

	entries, err := templateFS.ReadDir("templates/admin")
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == "base.html" {
			continue
		}

		// Strip .html extension for the template name.
		tmplName := strings.TrimSuffix(name, ".html")

		// Standalone templates render as full pages without the base layout.
		var tmpl *template.Template
		var parseErr error

		if standaloneTemplates[tmplName] {
			tmpl, parseErr = template.New(name).Funcs(r.funcMap).ParseFS(
				templateFS, "templates/admin/"+name,
			)
		} else {
			tmpl, parseErr = template.New("base.html").Funcs(r.funcMap).ParseFS(
				templateFS, "templates/admin/base.html", "templates/admin/"+name,
			)
		}

		if parseErr != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, parseErr)
		}

		r.templates[tmplName] = tmpl
	}

	return r, nil
}

// Page renders a full admin page or an HTMX partial, depending on the
// request headers. For HTMX requests, only the "content" block is sent.
// For full page loads, the entire base layout is rendered.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	rn.PageStatus(w, r, http.StatusOK, name, data)
}

// PageStatus is Page with an explicit status code, used to re-render
// forms with validation errors as 422.
func (rn *Renderer) PageStatus(w http.ResponseWriter, r *http.Request, status int, name string, data *PageData) {
	tmpl, ok := rn.templates[name]
	if !ok {
		http.Error(w, fmt.Sprintf("template %q not found", name), http.StatusInternalServerError)
		return
	}

	// Inject CSRF token from context (set by CSRF middleware).
	data.CSRFToken = middleware.CSRFTokenFromCtx(r.Context())

	// Inject session from context.
	if data.Session == nil {
		data.Session = middleware.SessionFromCtx(r.Context())
	}
	if data.Data == nil {
		data.Data = map[string]any{}
	}

	// HTMX request: render only the content fragment.
	execName := "content"
	if !isHTMX(r) {
		execName = "base.html"
		// Standalone pages use their own root template (not base.html).
		if standaloneTemplates[name] {
			execName = name + ".html"
		}
	}

	writeBuffered(w, status, func(buf io.Writer) error {
		return tmpl.ExecuteTemplate(buf, execName, data)
	}, name)
}

// writeBuffered executes a template into memory first so a failing
// template yields a clean 500 instead of a half-written page.
func writeBuffered(w http.ResponseWriter, status int, exec func(io.Writer) error, name string) {
	var buf bytes.Buffer
	if err := exec(&buf); err != nil {
		slog.Error("template render failed", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// isHTMX returns true if the request was made by HTMX (has HX-Request header).
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
