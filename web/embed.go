// Package web provides embedded static assets (CSS) for the blog and the
// admin interface, served at /static/. In development the admin layout
// loads TailwindCSS from a CDN instead of admin.css.
package web

import "embed"

// StaticFS embeds the web/static/ directory tree.
//
//go:embed all:static
var StaticFS embed.FS
