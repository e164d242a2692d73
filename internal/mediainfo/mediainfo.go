// Package mediainfo inspects uploaded files: it sniffs the MIME type,
// classifies the file into a media type and extracts metadata (image
// dimensions, audio tags) stored alongside the media item.
package mediainfo

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"uch/internal/imaging"
	"uch/internal/models"
)

// ErrBlocked is returned for file types that may not be uploaded.
var ErrBlocked = errors.New("mediainfo: file type not allowed")

// blockedTypes are never stored: they would be served from our origin.
var blockedTypes = []string{
	"text/html",
	"application/javascript",
	"application/x-elf",
	"application/x-msdownload",
	"application/x-mach-binary",
	"application/x-sh",
}

// modelExtensions identify 3D model files, which sniff as generic types.
var modelExtensions = map[string]bool{
	".glb":   true,
	".gltf":  true,
	".obj":   true,
	".stl":   true,
	".fbx":   true,
	".3ds":   true,
	".blend": true,
	".dae":   true,
}

// Info is the result of inspecting a file.
type Info struct {
	ContentType string
	Extension   string // lower-case, with leading dot
	FileType    models.MediaType
	Metadata    map[string]any
}

// Inspect sniffs data and collects metadata. filename is the client-side
// name and only contributes its extension.
func Inspect(filename string, data []byte) (Info, error) {
	mt := mimetype.Detect(data)
	for _, b := range blockedTypes {
		if mt.Is(b) {
			return Info{}, fmt.Errorf("%w: %s", ErrBlocked, mt.String())
		}
	}

	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = mt.Extension()
	}
	contentType := mt.String()
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}

	info := Info{
		ContentType: contentType,
		Extension:   ext,
		FileType:    Classify(contentType, ext),
		Metadata:    map[string]any{"mime": contentType},
	}
	if ext != "" {
		info.Metadata["extension"] = strings.TrimPrefix(ext, ".")
	}

	switch info.FileType {
	case models.MediaTypeImage:
		if w, h, format, err := imaging.Dimensions(data); err == nil {
			info.Metadata["width"] = w
			info.Metadata["height"] = h
			info.Metadata["format"] = format
		}
	case models.MediaTypeAudio:
		for k, v := range audioTags(data) {
			info.Metadata[k] = v
		}
	}
	return info, nil
}

// Classify maps a MIME type and extension to a media type. Anything not
// recognised as image, audio, video or 3D model is a document.
func Classify(contentType, ext string) models.MediaType {
	switch {
	case modelExtensions[strings.ToLower(ext)], strings.HasPrefix(contentType, "model/"):
		return models.MediaType3D
	case strings.HasPrefix(contentType, "image/"):
		return models.MediaTypeImage
	case strings.HasPrefix(contentType, "audio/"):
		return models.MediaTypeAudio
	case strings.HasPrefix(contentType, "video/"):
		return models.MediaTypeVideo
	}
	return models.MediaTypeDocument
}

// audioTags reads ID3/MP4/FLAC/OGG tags. Files without tags yield nil.
func audioTags(data []byte) map[string]any {
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	out := map[string]any{
		"tag_format": string(m.Format()),
	}
	set := func(key, val string) {
		if val = strings.TrimSpace(val); val != "" {
			out[key] = val
		}
	}
	set("title", m.Title())
	set("artist", m.Artist())
	set("album", m.Album())
	set("genre", m.Genre())
	if y := m.Year(); y > 0 {
		out["year"] = y
	}
	if n, _ := m.Track(); n > 0 {
		out["track"] = n
	}
	return out
}

// StorageKey returns the storage key of an upload: media/YYYY/MM/DD/<id><ext>.
func StorageKey(now time.Time, id uuid.UUID, ext string) string {
	return fmt.Sprintf("media/%s/%s%s", now.Format("2006/01/02"), id, ext)
}

// ThumbnailKey returns the storage key of an upload's JPEG thumbnail.
func ThumbnailKey(now time.Time, id uuid.UUID) string {
	return fmt.Sprintf("media/thumbnails/%s/%s.jpg", now.Format("2006/01/02"), id)
}

// CoverKey returns the storage key of an article cover image.
func CoverKey(now time.Time, id uuid.UUID) string {
	return fmt.Sprintf("articles/%s/%s.jpg", now.Format("2006/01/02"), id)
}
