// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"
)

// MediaType classifies an uploaded file.
type MediaType string

const (
	MediaTypeImage    MediaType = "image"
	MediaTypeAudio    MediaType = "audio"
	MediaTypeVideo    MediaType = "video"
	MediaTypeDocument MediaType = "document"
	MediaType3D       MediaType = "3d"
)

// MediaTypes lists every valid media type in display order.
var MediaTypes = []MediaType{
	MediaTypeImage,
	MediaTypeAudio,
	MediaTypeVideo,
	MediaTypeDocument,
	MediaType3D,
}

// Label returns the human readable media type name.
func (t MediaType) Label() string {
	switch t {
	case MediaTypeImage:
		return "Image"
	case MediaTypeAudio:
		return "Audio"
	case MediaTypeVideo:
		return "Video"
	case MediaTypeDocument:
		return "Document"
	case MediaType3D:
		return "3D Model"
	}
	return string(t)
}

// MediaItem is an uploaded file with its storage path, an optional
// thumbnail and free-form metadata extracted at upload time.
type MediaItem struct {
	ID           uuid.UUID      `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	FilePath     string         `json:"file_path"`
	OriginalName string         `json:"original_name"`
	ContentType  string         `json:"content_type"`
	SizeBytes    int64          `json:"size_bytes"`
	FileType     MediaType      `json:"file_type"`
	Thumbnail    string         `json:"thumbnail"`
	Metadata     map[string]any `json:"metadata"`
	UploadedBy   uuid.UUID      `json:"uploaded_by"`
	UploadedAt   time.Time      `json:"uploaded_at"`

	// Virtual fields populated by store methods and handlers.
	UploaderName string `json:"uploader_name,omitempty"`
	URL          string `json:"url,omitempty"`
	ThumbURL     string `json:"thumb_url,omitempty"`
}

// IsImage returns true if the media item is an image.
func (m *MediaItem) IsImage() bool {
	return m.FileType == MediaTypeImage
}

// Preview renders the admin list preview: a 100px wide image for images,
// otherwise the file type.
func (m *MediaItem) Preview() template.HTML {
	if m.IsImage() && m.URL != "" {
		src := m.URL
		if m.ThumbURL != "" {
			src = m.ThumbURL
		}
		return template.HTML(fmt.Sprintf(`<img src="%s" width="100" />`, template.HTMLEscapeString(src)))
	}
	return template.HTML(template.HTMLEscapeString("File: " + string(m.FileType)))
}

// HumanSize returns a human-readable file size string.
func (m *MediaItem) HumanSize() string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case m.SizeBytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(m.SizeBytes)/float64(mb))
	case m.SizeBytes >= kb:
		return fmt.Sprintf("%.0f KB", float64(m.SizeBytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", m.SizeBytes)
	}
}
