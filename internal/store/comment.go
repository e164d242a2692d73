package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"uch/internal/models"
)

// CommentStore manages article comments.
type CommentStore struct {
	db *sql.DB
}

// NewCommentStore creates a new CommentStore with the given database connection.
func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

const commentColumns = `id, article_id, author_id, parent_id, content, is_approved, created_at, updated_at`

const commentSelect = `
	SELECT cm.id, cm.article_id, cm.author_id, cm.parent_id, cm.content, cm.is_approved,
	       cm.created_at, cm.updated_at,
	       u.display_name, a.title, a.slug
	FROM comments cm
	JOIN users u ON u.id = cm.author_id
	JOIN articles a ON a.id = cm.article_id`

// commentSearchFields are the columns matched by the admin search box.
var commentSearchFields = []string{"cm.content", "u.display_name", "a.title"}

func scanComment(scanner interface{ Scan(...any) error }) (*models.Comment, error) {
	var c models.Comment
	err := scanner.Scan(
		&c.ID, &c.ArticleID, &c.AuthorID, &c.ParentID, &c.Content, &c.IsApproved,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCommentRow(scanner interface{ Scan(...any) error }) (*models.Comment, error) {
	var c models.Comment
	err := scanner.Scan(
		&c.ID, &c.ArticleID, &c.AuthorID, &c.ParentID, &c.Content, &c.IsApproved,
		&c.CreatedAt, &c.UpdatedAt,
		&c.AuthorName, &c.ArticleTitle, &c.ArticleSlug,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CommentQuery narrows an admin comment listing.
type CommentQuery struct {
	Search       string
	IsApproved   *bool
	ArticleID    *uuid.UUID
	CreatedSince *time.Time
	Limit        int
	Offset       int
}

func (q CommentQuery) where() *where {
	w := &where{}
	if q.IsApproved != nil {
		w.add("cm.is_approved = ?", *q.IsApproved)
	}
	if q.ArticleID != nil {
		w.add("cm.article_id = ?", *q.ArticleID)
	}
	if q.CreatedSince != nil {
		w.add("cm.created_at >= ?", *q.CreatedSince)
	}
	w.search(q.Search, commentSearchFields...)
	return w
}

// List returns comments matching q, newest first.
func (s *CommentStore) List(q CommentQuery) ([]models.Comment, error) {
	w := q.where()
	rows, err := s.db.Query(commentSelect+w.sql()+` ORDER BY cm.created_at DESC`+w.page(q.Limit, q.Offset), w.args...)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()
	return collectComments(rows)
}

// Count returns the number of comments matching q, ignoring paging.
func (s *CommentStore) Count(q CommentQuery) (int, error) {
	w := q.where()
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM comments cm
		JOIN users u ON u.id = cm.author_id
		JOIN articles a ON a.id = cm.article_id`+w.sql(), w.args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return n, nil
}

// ApprovedThreads returns the approved comments of an article arranged as
// reply trees, oldest first. Replies below an unapproved comment are hidden.
func (s *CommentStore) ApprovedThreads(articleID uuid.UUID) ([]models.Comment, error) {
	rows, err := s.db.Query(commentSelect+`
		WHERE cm.article_id = $1 AND cm.is_approved = TRUE
		ORDER BY cm.created_at ASC`, articleID)
	if err != nil {
		return nil, fmt.Errorf("list approved comments: %w", err)
	}
	defer rows.Close()

	flat, err := collectComments(rows)
	if err != nil {
		return nil, err
	}

	// Rows are oldest first, so a parent is always seen before its replies.
	shown := make(map[uuid.UUID]bool, len(flat))
	visible := flat[:0]
	for _, c := range flat {
		if c.ParentID == nil || shown[*c.ParentID] {
			shown[c.ID] = true
			visible = append(visible, c)
		}
	}
	return models.Thread(visible), nil
}

func collectComments(rows *sql.Rows) ([]models.Comment, error) {
	var items []models.Comment
	for rows.Next() {
		c, err := scanCommentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindByID retrieves a comment by ID. Returns nil if not found.
func (s *CommentStore) FindByID(id uuid.UUID) (*models.Comment, error) {
	c, err := scanComment(s.db.QueryRow(`SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find comment by id: %w", err)
	}
	return c, nil
}

// Create inserts a new comment. Comments always start unapproved.
func (s *CommentStore) Create(c *models.Comment) (*models.Comment, error) {
	result, err := scanComment(s.db.QueryRow(`
		INSERT INTO comments (article_id, author_id, parent_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING `+commentColumns,
		c.ArticleID, c.AuthorID, c.ParentID, c.Content,
	))
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return result, nil
}

// SetApproved sets the approval flag on every listed comment in a single
// statement and returns the number of rows changed.
func (s *CommentStore) SetApproved(ids []uuid.UUID, approved bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.db.Exec(`
		UPDATE comments SET is_approved = $1, updated_at = NOW()
		WHERE id = ANY($2::uuid[])
	`, approved, uuidArray(ids))
	if err != nil {
		return 0, fmt.Errorf("set comment approval: %w", err)
	}
	return res.RowsAffected()
}

// Delete removes a comment and, through ON DELETE CASCADE, its replies.
func (s *CommentStore) Delete(id uuid.UUID) error {
	if _, err := s.db.Exec(`DELETE FROM comments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// CountPending returns the number of comments awaiting approval.
func (s *CommentStore) CountPending() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM comments WHERE is_approved = FALSE`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending comments: %w", err)
	}
	return n, nil
}
