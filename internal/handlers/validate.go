package handlers

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"uch/internal/models"
)

// Validation limits for blog fields, matching the column sizes.
const (
	maxTitleLen        = 200
	maxSlugLen         = 200
	maxExcerptLen      = 500
	maxContentLen      = 100_000
	maxCategoryNameLen = 100
	maxCategorySlugLen = 100
	maxMediaTitleLen   = 200
)

// tooLong reports whether s exceeds n characters.
func tooLong(s string, n int) bool {
	return utf8.RuneCountInString(s) > n
}

// validateArticle checks article form inputs and returns the first error found.
func validateArticle(title, slug, excerpt, content string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "Title is required."
	}
	if tooLong(title, maxTitleLen) {
		return "Title is too long (max 200 characters)."
	}
	if tooLong(slug, maxSlugLen) {
		return "Slug is too long (max 200 characters)."
	}
	if tooLong(excerpt, maxExcerptLen) {
		return "Excerpt is too long (max 500 characters)."
	}
	if tooLong(content, maxContentLen) {
		return "Content is too long (max 100,000 characters)."
	}
	return ""
}

// validateCategory checks category form inputs.
func validateCategory(name, slug string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Name is required."
	}
	if tooLong(name, maxCategoryNameLen) {
		return "Name is too long (max 100 characters)."
	}
	if tooLong(slug, maxCategorySlugLen) {
		return "Slug is too long (max 100 characters)."
	}
	return ""
}

// validateMediaTitle checks the media title field.
func validateMediaTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "Title is required."
	}
	if tooLong(title, maxMediaTitleLen) {
		return "Title is too long (max 200 characters)."
	}
	return ""
}

// validateComment checks sanitized comment text.
func validateComment(content string) string {
	if content == "" {
		return "Comment cannot be empty."
	}
	if tooLong(content, models.CommentMaxLength) {
		return "Comment is too long (max 1,000 characters)."
	}
	return ""
}

// validateTags checks each tag name against the tag column size.
func validateTags(names []string) string {
	for _, name := range names {
		if tooLong(name, models.TagMaxLength) {
			return fmt.Sprintf("Tag names are limited to %d characters.", models.TagMaxLength)
		}
	}
	return ""
}
