// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"uch/internal/models"
)

// MediaStore handles all media-related database operations.
type MediaStore struct {
	db *sql.DB
}

// NewMediaStore creates a new MediaStore with the given database connection.
func NewMediaStore(db *sql.DB) *MediaStore {
	return &MediaStore{db: db}
}

// mediaColumns lists the columns selected in media queries.
const mediaColumns = `m.id, m.title, m.description, m.file_path, m.original_name, m.content_type,
	m.size_bytes, m.file_type, m.thumbnail, m.metadata, m.uploaded_by, m.uploaded_at`

const mediaSelect = `SELECT ` + mediaColumns + `, u.display_name
	FROM media_items m
	JOIN users u ON u.id = m.uploaded_by`

// mediaSearchFields are the columns matched by the admin search box.
var mediaSearchFields = []string{"m.title", "m.description"}

// scanMedia scans a media row from the result set. withUploader also reads
// the trailing uploader name column.
func scanMedia(scanner interface{ Scan(...any) error }, withUploader bool) (*models.MediaItem, error) {
	var m models.MediaItem
	var meta []byte
	dest := []any{
		&m.ID, &m.Title, &m.Description, &m.FilePath, &m.OriginalName, &m.ContentType,
		&m.SizeBytes, &m.FileType, &m.Thumbnail, &meta, &m.UploadedBy, &m.UploadedAt,
	}
	if withUploader {
		dest = append(dest, &m.UploaderName)
	}
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &m.Metadata); err != nil {
			return nil, fmt.Errorf("decode media metadata: %w", err)
		}
	}
	return &m, nil
}

// encodeMetadata serializes metadata for the JSONB column, mapping nil to
// an empty object.
func encodeMetadata(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode media metadata: %w", err)
	}
	return data, nil
}

// MediaQuery narrows an admin media listing.
type MediaQuery struct {
	Search        string
	FileType      models.MediaType
	UploadedSince *time.Time
	Limit         int
	Offset        int
}

func (q MediaQuery) where() *where {
	w := &where{}
	if q.FileType != "" {
		w.add("m.file_type = ?", q.FileType)
	}
	if q.UploadedSince != nil {
		w.add("m.uploaded_at >= ?", *q.UploadedSince)
	}
	w.search(q.Search, mediaSearchFields...)
	return w
}

// Create inserts a new media record and returns it with the generated ID.
func (s *MediaStore) Create(m *models.MediaItem) (*models.MediaItem, error) {
	meta, err := encodeMetadata(m.Metadata)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRow(`
		INSERT INTO media_items AS m (title, description, file_path, original_name, content_type,
			size_bytes, file_type, thumbnail, metadata, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+mediaColumns,
		m.Title, m.Description, m.FilePath, m.OriginalName, m.ContentType,
		m.SizeBytes, m.FileType, m.Thumbnail, meta, m.UploadedBy,
	)
	created, err := scanMedia(row, false)
	if err != nil {
		return nil, fmt.Errorf("create media: %w", err)
	}
	return created, nil
}

// Update saves the editable fields of a media item.
func (s *MediaStore) Update(m *models.MediaItem) error {
	_, err := s.db.Exec(`
		UPDATE media_items SET title = $1, description = $2 WHERE id = $3
	`, m.Title, m.Description, m.ID)
	if err != nil {
		return fmt.Errorf("update media: %w", err)
	}
	return nil
}

// FindByID retrieves a single media record by its UUID.
func (s *MediaStore) FindByID(id uuid.UUID) (*models.MediaItem, error) {
	m, err := scanMedia(s.db.QueryRow(mediaSelect+` WHERE m.id = $1`, id), true)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find media by id: %w", err)
	}
	return m, nil
}

// List returns media items matching q, newest upload first.
func (s *MediaStore) List(q MediaQuery) ([]models.MediaItem, error) {
	w := q.where()
	rows, err := s.db.Query(mediaSelect+w.sql()+` ORDER BY m.uploaded_at DESC`+w.page(q.Limit, q.Offset), w.args...)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	var items []models.MediaItem
	for rows.Next() {
		m, err := scanMedia(rows, true)
		if err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		items = append(items, *m)
	}
	return items, rows.Err()
}

// Count returns the number of media items matching q, ignoring paging.
func (s *MediaStore) Count(q MediaQuery) (int, error) {
	w := q.where()
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM media_items m`+w.sql(), w.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count media: %w", err)
	}
	return count, nil
}

// Delete removes a media record and returns it so the caller can clean
// up the stored files.
func (s *MediaStore) Delete(id uuid.UUID) (*models.MediaItem, error) {
	row := s.db.QueryRow(`
		DELETE FROM media_items AS m WHERE m.id = $1
		RETURNING `+mediaColumns, id)
	m, err := scanMedia(row, false)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete media: %w", err)
	}
	return m, nil
}
