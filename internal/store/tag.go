package store

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"uch/internal/models"
	"uch/internal/slug"
)

// TagStore manages tags and their links to articles.
type TagStore struct {
	db *sql.DB
}

// NewTagStore creates a new TagStore with the given database connection.
func NewTagStore(db *sql.DB) *TagStore {
	return &TagStore{db: db}
}

// Popular returns tags ordered by how many articles use them, most used
// first, ties broken by name. A positive limit caps the result.
func (s *TagStore) Popular(limit int) ([]models.Tag, error) {
	w := &where{}
	rows, err := s.db.Query(`
		SELECT t.id, t.name, t.slug, COUNT(at.article_id) AS num_times
		FROM tags t
		LEFT JOIN article_tags at ON at.tag_id = t.id
		GROUP BY t.id
		ORDER BY num_times DESC, t.name`+w.page(limit, 0), w.args...)
	if err != nil {
		return nil, fmt.Errorf("popular tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Count); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// FindBySlug retrieves a tag by slug. Returns nil if not found.
func (s *TagStore) FindBySlug(tagSlug string) (*models.Tag, error) {
	var t models.Tag
	err := s.db.QueryRow(`SELECT id, name, slug FROM tags WHERE slug = $1`, tagSlug).Scan(&t.ID, &t.Name, &t.Slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find tag by slug: %w", err)
	}
	return &t, nil
}

// SetForArticle replaces the tags of an article with names. Names are
// matched to existing tags case-insensitively; unknown names create new
// tags.
func (s *TagStore) SetForArticle(articleID uuid.UUID, names []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM article_tags WHERE article_id = $1`, articleID); err != nil {
		return fmt.Errorf("clear article tags: %w", err)
	}

	for _, name := range names {
		tagID, err := ensureTag(tx, name)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
			INSERT INTO article_tags (article_id, tag_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, articleID, tagID); err != nil {
			return fmt.Errorf("link tag %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit article tags: %w", err)
	}
	return nil
}

// DeleteUnused removes tags no longer attached to any article and returns
// how many were removed.
func (s *TagStore) DeleteUnused() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM tags t WHERE NOT EXISTS (SELECT 1 FROM article_tags at WHERE at.tag_id = t.id)`)
	if err != nil {
		return 0, fmt.Errorf("delete unused tags: %w", err)
	}
	return res.RowsAffected()
}

// ensureTag returns the id of the tag named name (case-insensitive),
// creating it with a unique slug when missing.
func ensureTag(tx *sql.Tx, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRow(`SELECT id FROM tags WHERE LOWER(name) = LOWER($1)`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return uuid.Nil, fmt.Errorf("find tag %q: %w", name, err)
	}

	base := slug.Truncate(slug.Generate(name), 90)
	if base == "" {
		base = "tag"
	}
	candidate := base
	for i := 2; ; i++ {
		var taken bool
		if err := tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM tags WHERE slug = $1)`, candidate).Scan(&taken); err != nil {
			return uuid.Nil, fmt.Errorf("check tag slug: %w", err)
		}
		if !taken {
			break
		}
		candidate = base + "-" + strconv.Itoa(i)
	}

	if err := tx.QueryRow(`INSERT INTO tags (name, slug) VALUES ($1, $2) RETURNING id`, name, candidate).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("create tag %q: %w", name, err)
	}
	return id, nil
}
