// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"uch/internal/markdown"
	"uch/internal/models"
)

// ArticleStore handles all article-related database operations.
type ArticleStore struct {
	db *sql.DB
}

// NewArticleStore creates a new ArticleStore with the given database connection.
func NewArticleStore(db *sql.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

// articleColumns lists the article table columns in scan order.
const articleColumns = `id, title, slug, excerpt, content, content_html, cover_image,
	status, is_featured, allow_comments, author_id, category_id,
	created_at, updated_at, published_at`

// articleSelect reads articles with their author, category and comment count.
const articleSelect = `
	SELECT a.id, a.title, a.slug, a.excerpt, a.content, a.content_html, a.cover_image,
	       a.status, a.is_featured, a.allow_comments, a.author_id, a.category_id,
	       a.created_at, a.updated_at, a.published_at,
	       u.display_name, COALESCE(c.name, ''), COALESCE(c.slug, ''),
	       (SELECT COUNT(*) FROM comments cm WHERE cm.article_id = a.id) AS comment_count
	FROM articles a
	JOIN users u ON u.id = a.author_id
	LEFT JOIN categories c ON c.id = a.category_id`

const (
	// articleOrder is the default article ordering: newest publication first.
	articleOrder = ` ORDER BY a.published_at DESC NULLS LAST, a.created_at DESC`
	// articleOrderCreated orders by creation time only.
	articleOrderCreated = ` ORDER BY a.created_at DESC`
)

// articleSearchFields are the columns matched by free-text search.
var articleSearchFields = []string{"a.title", "a.content", "a.excerpt"}

// scanArticle scans the plain article columns.
func scanArticle(scanner interface{ Scan(...any) error }) (*models.Article, error) {
	var a models.Article
	err := scanner.Scan(
		&a.ID, &a.Title, &a.Slug, &a.Excerpt, &a.Content, &a.ContentHTML, &a.CoverImage,
		&a.Status, &a.IsFeatured, &a.AllowComments, &a.AuthorID, &a.CategoryID,
		&a.CreatedAt, &a.UpdatedAt, &a.PublishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// scanArticleRow scans an articleSelect row, including the virtual fields.
func scanArticleRow(scanner interface{ Scan(...any) error }) (*models.Article, error) {
	var a models.Article
	err := scanner.Scan(
		&a.ID, &a.Title, &a.Slug, &a.Excerpt, &a.Content, &a.ContentHTML, &a.CoverImage,
		&a.Status, &a.IsFeatured, &a.AllowComments, &a.AuthorID, &a.CategoryID,
		&a.CreatedAt, &a.UpdatedAt, &a.PublishedAt,
		&a.AuthorName, &a.CategoryName, &a.CategorySlug, &a.CommentCount,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ArticleQuery narrows an article listing. Zero values mean "no filter".
type ArticleQuery struct {
	Status       models.ArticleStatus
	CategoryID   *uuid.UUID
	TagSlug      string
	Search       string
	IsFeatured   *bool
	ExcludeID    *uuid.UUID
	CreatedSince *time.Time
	// NewestCreated orders by created_at instead of the publication order.
	NewestCreated bool
	// WithTags loads each article's tags.
	WithTags bool
	Limit    int
	Offset   int
}

// PublishedArticles returns a query restricted to published articles.
func PublishedArticles() ArticleQuery {
	return ArticleQuery{Status: models.ArticleStatusPublished}
}

func (q ArticleQuery) where() *where {
	w := &where{}
	if q.Status != "" {
		w.add("a.status = ?", q.Status)
	}
	if q.CategoryID != nil {
		w.add("a.category_id = ?", *q.CategoryID)
	}
	if q.TagSlug != "" {
		w.add(`EXISTS (SELECT 1 FROM article_tags at JOIN tags t ON t.id = at.tag_id
			WHERE at.article_id = a.id AND t.slug = ?)`, q.TagSlug)
	}
	if q.IsFeatured != nil {
		w.add("a.is_featured = ?", *q.IsFeatured)
	}
	if q.ExcludeID != nil {
		w.add("a.id <> ?", *q.ExcludeID)
	}
	if q.CreatedSince != nil {
		w.add("a.created_at >= ?", *q.CreatedSince)
	}
	w.search(q.Search, articleSearchFields...)
	return w
}

// List returns the articles matching q.
func (s *ArticleStore) List(q ArticleQuery) ([]models.Article, error) {
	w := q.where()
	order := articleOrder
	if q.NewestCreated {
		order = articleOrderCreated
	}
	rows, err := s.db.Query(articleSelect+w.sql()+order+w.page(q.Limit, q.Offset), w.args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var items []models.Article
	for rows.Next() {
		a, err := scanArticleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	if q.WithTags && len(items) > 0 {
		if err := s.attachTags(items); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// Count returns the number of articles matching q, ignoring paging.
func (s *ArticleStore) Count(q ArticleQuery) (int, error) {
	w := q.where()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM articles a`+w.sql(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

// attachTags loads the tags of every article in items with one query.
func (s *ArticleStore) attachTags(items []models.Article) error {
	ids := make([]uuid.UUID, len(items))
	pos := make(map[uuid.UUID]int, len(items))
	for i, a := range items {
		ids[i] = a.ID
		pos[a.ID] = i
	}

	rows, err := s.db.Query(`
		SELECT at.article_id, t.id, t.name, t.slug
		FROM article_tags at
		JOIN tags t ON t.id = at.tag_id
		WHERE at.article_id = ANY($1::uuid[])
		ORDER BY t.name
	`, uuidArray(ids))
	if err != nil {
		return fmt.Errorf("load article tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var articleID uuid.UUID
		var t models.Tag
		if err := rows.Scan(&articleID, &t.ID, &t.Name, &t.Slug); err != nil {
			return fmt.Errorf("scan article tag: %w", err)
		}
		if i, ok := pos[articleID]; ok {
			items[i].Tags = append(items[i].Tags, t)
		}
	}
	return rows.Err()
}

// FindByID retrieves an article by its UUID, with its tags. Returns nil if
// not found.
func (s *ArticleStore) FindByID(id uuid.UUID) (*models.Article, error) {
	return s.findOne("find article by id", articleSelect+` WHERE a.id = $1`, id)
}

// FindPublishedBySlug retrieves a published article by slug, with its tags.
// Drafts and archived articles are reported as not found.
func (s *ArticleStore) FindPublishedBySlug(slug string) (*models.Article, error) {
	return s.findOne("find published article", articleSelect+` WHERE a.slug = $1 AND a.status = 'published'`, slug)
}

func (s *ArticleStore) findOne(op, query string, arg any) (*models.Article, error) {
	a, err := scanArticleRow(s.db.QueryRow(query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	items := []models.Article{*a}
	if err := s.attachTags(items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// prepare applies the save rules shared by Create and Update: the HTML
// body is re-rendered from Markdown and the publication stamp is computed.
// The returned time is the candidate published_at, or nil when the
// article is not published.
func prepare(a *models.Article) (*time.Time, error) {
	html, err := markdown.ToHTML(a.Content)
	if err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	a.ContentHTML = html
	a.Title = strings.TrimSpace(a.Title)

	if a.Status != models.ArticleStatusPublished {
		return a.PublishedAt, nil
	}
	if a.PublishedAt != nil {
		return a.PublishedAt, nil
	}
	now := time.Now()
	return &now, nil
}

// Create inserts a new article and returns it with the generated ID.
func (s *ArticleStore) Create(a *models.Article) (*models.Article, error) {
	publishedAt, err := prepare(a)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRow(`
		INSERT INTO articles (title, slug, excerpt, content, content_html, cover_image,
		                      status, is_featured, allow_comments, author_id, category_id, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+articleColumns,
		a.Title, a.Slug, a.Excerpt, a.Content, a.ContentHTML, a.CoverImage,
		a.Status, a.IsFeatured, a.AllowComments, a.AuthorID, a.CategoryID, publishedAt,
	)
	result, err := scanArticle(row)
	if isUniqueViolation(err) {
		return nil, ErrSlugTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}
	return result, nil
}

// Update saves an existing article. An already stored published_at is
// never overwritten; it is only filled in when still empty and the
// article is published. a.PublishedAt and a.ContentHTML reflect the saved
// row afterwards.
func (s *ArticleStore) Update(a *models.Article) error {
	publishedAt, err := prepare(a)
	if err != nil {
		return err
	}

	err = s.db.QueryRow(`
		UPDATE articles SET
			title = $1, slug = $2, excerpt = $3, content = $4, content_html = $5,
			cover_image = $6, status = $7, is_featured = $8, allow_comments = $9,
			author_id = $10, category_id = $11,
			published_at = COALESCE(published_at, $12), updated_at = NOW()
		WHERE id = $13
		RETURNING published_at, updated_at
	`, a.Title, a.Slug, a.Excerpt, a.Content, a.ContentHTML,
		a.CoverImage, a.Status, a.IsFeatured, a.AllowComments,
		a.AuthorID, a.CategoryID, publishedAt, a.ID,
	).Scan(&a.PublishedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrSlugTaken
	}
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}
	return nil
}

// Delete removes an article by ID. Comments and tag links are removed by
// ON DELETE CASCADE.
func (s *ArticleStore) Delete(id uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	return nil
}

// SlugExists reports whether another article already uses slug.
func (s *ArticleStore) SlugExists(slug string, exceptID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM articles WHERE slug = $1 AND id <> $2)`, slug, exceptID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check article slug: %w", err)
	}
	return exists, nil
}

// uuidArray formats ids as a PostgreSQL array literal for use with a
// ::uuid[] cast.
func uuidArray(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}
