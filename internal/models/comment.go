package models

import (
	"time"

	"github.com/google/uuid"
)

// CommentMaxLength is the maximum number of characters in a comment body.
const CommentMaxLength = 1000

// Comment is a reader's reply to an article, optionally nested under another
// comment. New comments are hidden until approved.
type Comment struct {
	ID         uuid.UUID  `json:"id"`
	ArticleID  uuid.UUID  `json:"article_id"`
	AuthorID   uuid.UUID  `json:"author_id"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	Content    string     `json:"content"`
	IsApproved bool       `json:"is_approved"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Virtual fields populated by store methods.
	AuthorName   string    `json:"author_name,omitempty"`
	ArticleTitle string    `json:"article_title,omitempty"`
	ArticleSlug  string    `json:"article_slug,omitempty"`
	Replies      []Comment `json:"replies,omitempty"`
}

// Preview returns the first n characters of the comment, with "..." appended
// when the content was cut.
func (c *Comment) Preview(n int) string {
	r := []rune(c.Content)
	if len(r) <= n {
		return c.Content
	}
	return string(r[:n]) + "..."
}

// Thread arranges a flat, chronologically ordered comment list into reply
// trees. Comments whose parent is not in the list become roots.
func Thread(flat []Comment) []Comment {
	index := make(map[uuid.UUID]int, len(flat))
	for i, c := range flat {
		index[c.ID] = i
	}

	children := make(map[uuid.UUID][]int)
	var roots []int
	for i, c := range flat {
		if c.ParentID != nil {
			if _, ok := index[*c.ParentID]; ok {
				children[*c.ParentID] = append(children[*c.ParentID], i)
				continue
			}
		}
		roots = append(roots, i)
	}

	var build func(i int) Comment
	build = func(i int) Comment {
		c := flat[i]
		c.Replies = nil
		for _, ci := range children[c.ID] {
			c.Replies = append(c.Replies, build(ci))
		}
		return c
	}

	out := make([]Comment, 0, len(roots))
	for _, i := range roots {
		out = append(out, build(i))
	}
	return out
}
