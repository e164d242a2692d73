// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown converts article Markdown into sanitized HTML using
// goldmark for rendering and bluemonday for sanitizing.
package markdown

import (
	"bytes"
	stdhtml "html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// md is the configured goldmark instance, reused across calls.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM, // tables, strikethrough, autolinks, task lists
		extension.Footnote,
		extension.Typographer, // smart quotes and dashes
		highlighting.NewHighlighting(
			highlighting.WithStyle("monokai"),
			highlighting.WithFormatOptions(),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(), // heading anchors for a table of contents
	),
	goldmark.WithRendererOptions(
		html.WithUnsafe(), // raw HTML is allowed through and stripped by the policy below
	),
)

// policy is the sanitizer applied to rendered HTML. It starts from the
// user-generated-content policy and keeps the inline styles emitted by the
// syntax highlighter plus heading ids.
var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("style").OnElements("pre", "span", "code")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^[a-zA-Z0-9\s\-_]+$`)).Globally()
	p.AllowAttrs("id").Matching(bluemonday.SpaceSeparatedTokens).OnElements("h1", "h2", "h3", "h4", "h5", "h6", "li", "sup")
	p.AllowStyles("color", "background-color", "font-weight", "font-style", "text-decoration").Globally()
	return p
}

// ToHTML converts Markdown source into sanitized HTML. Empty or
// whitespace-only input yields an empty string; any other input yields
// non-empty HTML. Source that sanitizes away entirely (raw script, iframe,
// HTML comments) is shown escaped in a paragraph.
func ToHTML(source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	out := policy.Sanitize(buf.String())
	if strings.TrimSpace(out) == "" {
		return "<p>" + stdhtml.EscapeString(strings.TrimSpace(source)) + "</p>", nil
	}
	return out, nil
}

var strict = bluemonday.StrictPolicy()

// StripTags returns text with every HTML element removed. Entities are
// decoded again so the result is plain text that templates can escape.
func StripTags(text string) string {
	return stdhtml.UnescapeString(strict.Sanitize(text))
}
