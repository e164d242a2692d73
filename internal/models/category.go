// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Category represents a node in the hierarchical blog category tree.
// Articles can have at most one category assigned.
type Category struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id"`
	SortOrder   int        `json:"sort_order"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Virtual fields populated by store methods.
	ParentName   string     `json:"parent_name,omitempty"`
	Children     []Category `json:"children,omitempty"`
	Depth        int        `json:"depth"`
	ArticleCount int        `json:"article_count"`
}

// String returns the category name, used wherever a category is displayed
// as a single value (admin columns, select options).
func (c Category) String() string {
	return c.Name
}
