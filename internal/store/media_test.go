package store

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uch/internal/models"
)

var mediaRowColumns = []string{
	"id", "title", "description", "file_path", "original_name", "content_type",
	"size_bytes", "file_type", "thumbnail", "metadata", "uploaded_by", "uploaded_at",
}

func TestMediaStoreCreateEncodesMetadata(t *testing.T) {
	db, mock := newMock(t)
	s := NewMediaStore(db)

	uploader := uuid.New()
	id := uuid.New()
	mock.ExpectQuery(`INSERT INTO media_items AS m`).
		WithArgs("Song", "", "media/2026/01/02/a.mp3", "a.mp3", "audio/mpeg", int64(2048), "audio", "",
			[]byte(`{"artist":"Band"}`), uploader).
		WillReturnRows(sqlmock.NewRows(mediaRowColumns).AddRow(
			id.String(), "Song", "", "media/2026/01/02/a.mp3", "a.mp3", "audio/mpeg",
			2048, "audio", "", []byte(`{"artist":"Band"}`), uploader.String(), time.Now(),
		))

	got, err := s.Create(&models.MediaItem{
		Title:        "Song",
		FilePath:     "media/2026/01/02/a.mp3",
		OriginalName: "a.mp3",
		ContentType:  "audio/mpeg",
		SizeBytes:    2048,
		FileType:     models.MediaTypeAudio,
		Metadata:     map[string]any{"artist": "Band"},
		UploadedBy:   uploader,
	})
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Band", got.Metadata["artist"])
}

func TestEncodeMetadataNil(t *testing.T) {
	data, err := encodeMetadata(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestMediaQueryWhere(t *testing.T) {
	since := time.Now()
	w := MediaQuery{Search: "logo", FileType: models.MediaTypeImage, UploadedSince: &since}.where()
	assert.Equal(t, " WHERE m.file_type = $1 AND m.uploaded_at >= $2 AND (m.title ILIKE $3 OR m.description ILIKE $3)", w.sql())
}

// --- Integration tests ---

func TestMediaStoreLifecycle(t *testing.T) {
	db := testDB(t)
	s := NewMediaStore(db)
	uploader := testUser(t, db)

	created, err := s.Create(&models.MediaItem{
		Title:        "Logo",
		FilePath:     "media/test/" + uuid.NewString()[:8] + ".png",
		OriginalName: "logo.png",
		ContentType:  "image/png",
		SizeBytes:    1024,
		FileType:     models.MediaTypeImage,
		Metadata:     map[string]any{"width": 64, "height": 32},
		UploadedBy:   uploader.ID,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	found, err := s.FindByID(created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Store Tester", found.UploaderName)
	assert.EqualValues(t, 64, found.Metadata["width"])

	found.Title = "Logo (dark)"
	require.NoError(t, s.Update(found))

	items, err := s.List(MediaQuery{Search: "dark", FileType: models.MediaTypeImage})
	require.NoError(t, err)
	var ids []uuid.UUID
	for _, m := range items {
		ids = append(ids, m.ID)
	}
	assert.Contains(t, ids, created.ID)

	deleted, err := s.Delete(created.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.Equal(t, created.FilePath, deleted.FilePath)

	again, err := s.Delete(created.ID)
	require.NoError(t, err)
	assert.Nil(t, again)
}
