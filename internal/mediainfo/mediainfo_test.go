package mediainfo

import (
	"bytes"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uch/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		contentType string
		ext         string
		want        models.MediaType
	}{
		{"image/png", ".png", models.MediaTypeImage},
		{"image/svg+xml", ".svg", models.MediaTypeImage},
		{"audio/mpeg", ".mp3", models.MediaTypeAudio},
		{"video/mp4", ".mp4", models.MediaTypeVideo},
		{"application/pdf", ".pdf", models.MediaTypeDocument},
		{"text/plain", ".txt", models.MediaTypeDocument},
		{"text/plain", ".OBJ", models.MediaType3D},
		{"application/octet-stream", ".stl", models.MediaType3D},
		{"model/gltf-binary", "", models.MediaType3D},
		{"application/octet-stream", "", models.MediaTypeDocument},
	}
	for _, tt := range tests {
		t.Run(tt.contentType+tt.ext, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.contentType, tt.ext))
		})
	}
}

func TestInspectImage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 32))))

	info, err := Inspect("Photo.PNG", buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, ".png", info.Extension)
	assert.Equal(t, models.MediaTypeImage, info.FileType)
	assert.Equal(t, 64, info.Metadata["width"])
	assert.Equal(t, 32, info.Metadata["height"])
	assert.Equal(t, "png", info.Metadata["extension"])
}

func TestInspectPDF(t *testing.T) {
	info, err := Inspect("paper.pdf", []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", info.ContentType)
	assert.Equal(t, models.MediaTypeDocument, info.FileType)
}

func TestInspectFallsBackToSniffedExtension(t *testing.T) {
	info, err := Inspect("upload", []byte("%PDF-1.4\n"))
	require.NoError(t, err)
	assert.Equal(t, ".pdf", info.Extension)
}

func TestInspectModel(t *testing.T) {
	info, err := Inspect("teapot.obj", []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"))
	require.NoError(t, err)
	assert.Equal(t, models.MediaType3D, info.FileType)
}

func TestInspectBlocksHTML(t *testing.T) {
	_, err := Inspect("page.html", []byte("<!DOCTYPE html><html><script>alert(1)</script></html>"))
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestInspectAudioWithoutTags(t *testing.T) {
	// A bare RIFF/WAVE header sniffs as audio but carries no tags.
	wav := append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 32)...)
	info, err := Inspect("tone.wav", wav)
	require.NoError(t, err)
	assert.Equal(t, models.MediaTypeAudio, info.FileType)
	assert.NotContains(t, info.Metadata, "title")
}

func TestKeys(t *testing.T) {
	now := time.Date(2026, time.January, 31, 10, 0, 0, 0, time.UTC)
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	assert.Equal(t, "media/2026/01/31/11111111-2222-3333-4444-555555555555.png", StorageKey(now, id, ".png"))
	assert.Equal(t, "media/thumbnails/2026/01/31/11111111-2222-3333-4444-555555555555.jpg", ThumbnailKey(now, id))
	assert.Equal(t, "articles/2026/01/31/11111111-2222-3333-4444-555555555555.jpg", CoverKey(now, id))
}
