// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"uch/internal/models"
)

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `id, name, slug, description, parent_id, sort_order, is_active, created_at, updated_at`

// categorySelect reads categories joined with their parent name and an
// aggregate article count. The count expression is filled in per query.
const categorySelect = `
	SELECT c.id, c.name, c.slug, c.description, c.parent_id, c.sort_order,
	       c.is_active, c.created_at, c.updated_at,
	       COALESCE(p.name, '') AS parent_name,
	       (SELECT COUNT(*) FROM articles a WHERE a.category_id = c.id%s) AS article_count
	FROM categories c
	LEFT JOIN categories p ON p.id = c.parent_id`

// categorySearchFields are the columns matched by the admin search box.
var categorySearchFields = []string{"c.name", "c.description"}

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description,
		&c.ParentID, &c.SortOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// scanCategoryRow scans a categorySelect row, including the virtual fields.
func scanCategoryRow(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description,
		&c.ParentID, &c.SortOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
		&c.ParentName, &c.ArticleCount,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CategoryQuery narrows an admin category listing. Nil pointers mean
// "any value".
type CategoryQuery struct {
	Search   string
	IsActive *bool
	ParentID *uuid.UUID
	TopLevel bool
	Limit    int
	Offset   int
}

func (q CategoryQuery) where() *where {
	w := &where{}
	if q.IsActive != nil {
		w.add("c.is_active = ?", *q.IsActive)
	}
	if q.TopLevel {
		w.add("c.parent_id IS NULL")
	} else if q.ParentID != nil {
		w.add("c.parent_id = ?", *q.ParentID)
	}
	w.search(q.Search, categorySearchFields...)
	return w
}

// List returns categories matching q ordered by sort_order then name, each
// with its total article count and parent name.
func (s *CategoryStore) List(q CategoryQuery) ([]models.Category, error) {
	w := q.where()
	query := fmt.Sprintf(categorySelect, "") + w.sql() +
		` ORDER BY c.sort_order, c.name` + w.page(q.Limit, q.Offset)
	return s.query("list categories", query, w.args...)
}

// Count returns the number of categories matching q, ignoring paging.
func (s *CategoryStore) Count(q CategoryQuery) (int, error) {
	w := q.where()
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM categories c`+w.sql(), w.args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

// Active returns active categories in display order. A positive limit caps
// the result.
func (s *CategoryStore) Active(limit int) ([]models.Category, error) {
	active := true
	return s.List(CategoryQuery{IsActive: &active, Limit: limit})
}

// TopLevelActive returns active categories that have no parent.
func (s *CategoryStore) TopLevelActive() ([]models.Category, error) {
	active := true
	return s.List(CategoryQuery{IsActive: &active, TopLevel: true})
}

// WithPublishedArticles returns active categories that contain at least one
// published article. ArticleCount holds the published count.
func (s *CategoryStore) WithPublishedArticles(limit int) ([]models.Category, error) {
	w := &where{}
	w.add("c.is_active = TRUE")
	query := `SELECT * FROM (` + fmt.Sprintf(categorySelect, " AND a.status = 'published'") + w.sql() +
		`) sub WHERE sub.article_count > 0 ORDER BY sub.sort_order, sub.name` + w.page(limit, 0)
	return s.query("list categories with articles", query, w.args...)
}

// CountActive returns the number of active categories.
func (s *CategoryStore) CountActive() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM categories WHERE is_active = TRUE`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active categories: %w", err)
	}
	return n, nil
}

func (s *CategoryStore) query(op, query string, args ...any) ([]models.Category, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		c, err := scanCategoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// Tree returns all categories as a nested tree structure.
func (s *CategoryStore) Tree() ([]models.Category, error) {
	flat, err := s.List(CategoryQuery{})
	if err != nil {
		return nil, err
	}
	return buildTree(flat, nil, 0), nil
}

// buildTree recursively builds a tree from a flat list.
func buildTree(flat []models.Category, parentID *uuid.UUID, depth int) []models.Category {
	var result []models.Category
	for _, c := range flat {
		if ptrEqual(c.ParentID, parentID) {
			c.Depth = depth
			c.Children = buildTree(flat, &c.ID, depth+1)
			result = append(result, c)
		}
	}
	return result
}

// ptrEqual compares two *uuid.UUID for equality (both nil or same value).
func ptrEqual(a, b *uuid.UUID) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// FlatTree returns categories as a flat list ordered for display,
// with Depth set for indentation. Useful for <select> dropdowns.
func (s *CategoryStore) FlatTree() ([]models.Category, error) {
	tree, err := s.Tree()
	if err != nil {
		return nil, err
	}
	var result []models.Category
	flattenTree(tree, &result)
	return result, nil
}

// flattenTree walks a category tree depth-first, appending to result.
func flattenTree(cats []models.Category, result *[]models.Category) {
	for _, c := range cats {
		*result = append(*result, c)
		if len(c.Children) > 0 {
			flattenTree(c.Children, result)
		}
	}
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(id uuid.UUID) (*models.Category, error) {
	row := s.db.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// FindBySlug retrieves a category by slug regardless of its active flag.
// Returns nil if not found.
func (s *CategoryStore) FindBySlug(slug string) (*models.Category, error) {
	row := s.db.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by slug: %w", err)
	}
	return c, nil
}

// Create inserts a new category and returns it.
func (s *CategoryStore) Create(c *models.Category) (*models.Category, error) {
	row := s.db.QueryRow(`
		INSERT INTO categories (name, slug, description, parent_id, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+categoryColumns,
		c.Name, c.Slug, c.Description, c.ParentID, c.SortOrder, c.IsActive,
	)
	result, err := scanCategory(row)
	if isUniqueViolation(err) {
		return nil, ErrSlugTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return result, nil
}

// Update modifies an existing category. It refuses to place a category
// beneath itself or any of its descendants.
func (s *CategoryStore) Update(c *models.Category) error {
	if c.ParentID != nil {
		cycle, err := s.isAncestorOrSelf(c.ID, *c.ParentID)
		if err != nil {
			return err
		}
		if cycle {
			return ErrCategoryCycle
		}
	}

	_, err := s.db.Exec(`
		UPDATE categories SET
			name = $1, slug = $2, description = $3, parent_id = $4,
			sort_order = $5, is_active = $6, updated_at = NOW()
		WHERE id = $7
	`, c.Name, c.Slug, c.Description, c.ParentID, c.SortOrder, c.IsActive, c.ID)
	if isUniqueViolation(err) {
		return ErrSlugTaken
	}
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// isAncestorOrSelf reports whether id appears in the ancestor chain that
// starts at (and includes) start.
func (s *CategoryStore) isAncestorOrSelf(id, start uuid.UUID) (bool, error) {
	if id == start {
		return true, nil
	}
	var found bool
	err := s.db.QueryRow(`
		WITH RECURSIVE chain AS (
			SELECT id, parent_id, 1 AS depth FROM categories WHERE id = $1
			UNION ALL
			SELECT p.id, p.parent_id, chain.depth + 1
			FROM categories p JOIN chain ON p.id = chain.parent_id
			WHERE chain.depth < 100
		)
		SELECT EXISTS (SELECT 1 FROM chain WHERE id = $2)
	`, start, id).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check category ancestry: %w", err)
	}
	return found, nil
}

// Delete removes a category by ID. Child categories are removed with it
// (ON DELETE CASCADE) and its articles become uncategorised (ON DELETE SET NULL).
func (s *CategoryStore) Delete(id uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// NextSortOrder returns the next sort_order value for a given parent.
func (s *CategoryStore) NextSortOrder(parentID *uuid.UUID) (int, error) {
	var maxOrder sql.NullInt64
	var err error
	if parentID == nil {
		err = s.db.QueryRow(`SELECT MAX(sort_order) FROM categories WHERE parent_id IS NULL`).Scan(&maxOrder)
	} else {
		err = s.db.QueryRow(`SELECT MAX(sort_order) FROM categories WHERE parent_id = $1`, *parentID).Scan(&maxOrder)
	}
	if err != nil {
		return 0, fmt.Errorf("next sort order: %w", err)
	}
	if maxOrder.Valid {
		return int(maxOrder.Int64) + 1, nil
	}
	return 0, nil
}
