// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// ArticleStatus represents the publishing state of an article.
type ArticleStatus string

const (
	ArticleStatusDraft     ArticleStatus = "draft"
	ArticleStatusPublished ArticleStatus = "published"
	ArticleStatusArchived  ArticleStatus = "archived"
)

// ArticleStatuses lists every valid status in display order.
var ArticleStatuses = []ArticleStatus{
	ArticleStatusDraft,
	ArticleStatusPublished,
	ArticleStatusArchived,
}

// Valid reports whether s is one of the known statuses.
func (s ArticleStatus) Valid() bool {
	for _, v := range ArticleStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns the human readable status name.
func (s ArticleStatus) Label() string {
	switch s {
	case ArticleStatusDraft:
		return "Draft"
	case ArticleStatusPublished:
		return "Published"
	case ArticleStatusArchived:
		return "Archived"
	}
	return string(s)
}

// Article is a blog post. ContentHTML is derived from Content on every save
// and PublishedAt is stamped once, the first time the article is published.
type Article struct {
	ID            uuid.UUID     `json:"id"`
	Title         string        `json:"title"`
	Slug          string        `json:"slug"`
	Excerpt       string        `json:"excerpt"`
	Content       string        `json:"content"`
	ContentHTML   string        `json:"content_html"`
	CoverImage    string        `json:"cover_image"`
	Status        ArticleStatus `json:"status"`
	IsFeatured    bool          `json:"is_featured"`
	AllowComments bool          `json:"allow_comments"`
	AuthorID      uuid.UUID     `json:"author_id"`
	CategoryID    *uuid.UUID    `json:"category_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	PublishedAt   *time.Time    `json:"published_at,omitempty"`

	// Virtual fields populated by store methods.
	AuthorName   string `json:"author_name,omitempty"`
	CategoryName string `json:"category_name,omitempty"`
	CategorySlug string `json:"category_slug,omitempty"`
	CommentCount int    `json:"comment_count"`
	Tags         []Tag  `json:"tags,omitempty"`
}

// IsPublished returns true if the article is in published status.
func (a *Article) IsPublished() bool {
	return a.Status == ArticleStatusPublished
}

// TagNames returns the article's tags joined for the edit form.
func (a *Article) TagNames() string {
	names := make([]string, len(a.Tags))
	for i, t := range a.Tags {
		names[i] = t.Name
	}
	return joinTags(names)
}
