package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"uch/internal/adminui"
	"uch/internal/imaging"
	"uch/internal/mediainfo"
	"uch/internal/metrics"
	"uch/internal/middleware"
	"uch/internal/models"
	"uch/internal/pagination"
	"uch/internal/render"
	"uch/internal/store"
)

// maxUploadSize is the maximum allowed file upload size (50 MB).
const maxUploadSize = 50 << 20

// mediaList configures the media changelist.
func mediaList() *adminui.List[models.MediaItem] {
	types := make([]adminui.Choice, 0, len(models.MediaTypes))
	for _, t := range models.MediaTypes {
		types = append(types, adminui.Choice{Value: string(t), Label: t.Label()})
	}
	return &adminui.List[models.MediaItem]{
		Title:    "Media",
		BasePath: "/admin/media",
		Columns: []adminui.Column[models.MediaItem]{
			{Label: "Title", Value: func(m models.MediaItem) any { return m.Title }},
			{Label: "Type", Value: func(m models.MediaItem) any { return m.FileType.Label() }},
			{Label: "Uploaded by", Value: func(m models.MediaItem) any { return m.UploaderName }},
			{Label: "Uploaded", Value: func(m models.MediaItem) any { return m.UploadedAt }},
			{Label: "Preview", Value: func(m models.MediaItem) any { return m.Preview() }},
		},
		Filters: []adminui.Filter{
			{Param: "file_type", Label: "Type", Choices: types},
			adminui.DateFilter("uploaded_at", "Uploaded"),
		},
		SearchFields: []string{"title", "description"},
		RowID:        func(m models.MediaItem) string { return m.ID.String() },
		Ordering:     "-uploaded_at",
	}
}

func (a *Admin) mediaQuery(st adminui.State) store.MediaQuery {
	return store.MediaQuery{
		Search:        st.Search,
		FileType:      models.MediaType(st.Filters["file_type"]),
		UploadedSince: st.Since("uploaded_at", a.now()),
	}
}

// withURLs fills the public file and thumbnail URLs.
func (a *Admin) withURLs(m *models.MediaItem) {
	m.URL = a.files.URL(m.FilePath)
	if m.Thumbnail != "" {
		m.ThumbURL = a.files.URL(m.Thumbnail)
	}
}

// MediaLibrary renders the media changelist.
func (a *Admin) MediaLibrary(w http.ResponseWriter, r *http.Request) {
	changelist(a, w, r, mediaList(), "media", true,
		func(st adminui.State) (int, error) { return a.media.Count(a.mediaQuery(st)) },
		func(st adminui.State, p pagination.Page) ([]models.MediaItem, error) {
			q := a.mediaQuery(st)
			q.Limit, q.Offset = p.Limit(), p.Offset()
			items, err := a.media.List(q)
			for i := range items {
				a.withURLs(&items[i])
			}
			return items, err
		})
}

// MediaNew renders the upload form.
func (a *Admin) MediaNew(w http.ResponseWriter, r *http.Request) {
	a.mediaForm(w, r, http.StatusOK, &models.MediaItem{}, true, "")
}

// MediaUpload stores an uploaded file, generates a thumbnail for images
// and records the metadata extracted from the file.
func (a *Admin) MediaUpload(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	fail := func(status int, msg string) {
		if wantsJSON(r) {
			writeMediaError(w, msg, status)
			return
		}
		a.mediaForm(w, r, status, &models.MediaItem{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
		}, true, msg)
	}

	// Limit request body to maxUploadSize + some overhead for form fields.
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		fail(http.StatusRequestEntityTooLarge, "File too large. Maximum size is 50 MB.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		fail(http.StatusBadRequest, "No file provided.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		fail(http.StatusInternalServerError, "Failed to read file.")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}
	if msg := validateMediaTitle(title); msg != "" {
		fail(http.StatusUnprocessableEntity, msg)
		return
	}

	info, err := mediainfo.Inspect(header.Filename, data)
	if errors.Is(err, mediainfo.ErrBlocked) {
		fail(http.StatusBadRequest, "This file type is not allowed.")
		return
	}
	if err != nil {
		slog.Error("inspect upload failed", "error", err)
		fail(http.StatusInternalServerError, "Failed to process file.")
		return
	}

	ctx := r.Context()
	now := a.now()
	fileID := uuid.New()
	key := mediainfo.StorageKey(now, fileID, info.Extension)
	if err := a.files.Save(ctx, key, info.ContentType, bytes.NewReader(data), int64(len(data))); err != nil {
		slog.Error("media upload failed", "error", err, "key", key)
		fail(http.StatusInternalServerError, "Failed to upload file.")
		return
	}

	// Thumbnails are best-effort; the upload succeeds without one.
	var thumbKey string
	if info.FileType == models.MediaTypeImage {
		thumb, err := imaging.Thumbnail(data)
		switch {
		case err != nil:
			slog.Warn("thumbnail generation failed", "error", err, "key", key)
		case thumb != nil:
			tk := mediainfo.ThumbnailKey(now, fileID)
			if err := a.files.Save(ctx, tk, thumb.ContentType, bytes.NewReader(thumb.Data), int64(len(thumb.Data))); err != nil {
				slog.Warn("thumbnail upload failed", "error", err, "key", tk)
			} else {
				thumbKey = tk
			}
		}
	}

	created, err := a.media.Create(&models.MediaItem{
		Title:        title,
		Description:  strings.TrimSpace(r.FormValue("description")),
		FilePath:     key,
		OriginalName: header.Filename,
		ContentType:  info.ContentType,
		SizeBytes:    int64(len(data)),
		FileType:     info.FileType,
		Thumbnail:    thumbKey,
		Metadata:     info.Metadata,
		UploadedBy:   sess.UserID,
	})
	if err != nil {
		slog.Error("media db insert failed", "error", err, "key", key)
		a.removeFiles(r, key, thumbKey)
		fail(http.StatusInternalServerError, "Failed to save file metadata.")
		return
	}
	metrics.MediaUploads.WithLabelValues(string(created.FileType)).Inc()
	slog.Info("media uploaded", "id", created.ID, "type", created.FileType, "size", created.SizeBytes)

	if wantsJSON(r) {
		a.withURLs(created)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id":        created.ID,
			"url":       created.URL,
			"thumb_url": created.ThumbURL,
			"filename":  created.OriginalName,
			"size":      created.HumanSize(),
			"type":      created.FileType,
		})
		return
	}
	http.Redirect(w, r, "/admin/media", http.StatusSeeOther)
}

// MediaEdit renders the edit form of a media item.
func (a *Admin) MediaEdit(w http.ResponseWriter, r *http.Request) {
	m, ok := a.loadMedia(w, r)
	if !ok {
		return
	}
	a.mediaForm(w, r, http.StatusOK, m, false, "")
}

// MediaUpdate saves the title and description of a media item.
func (a *Admin) MediaUpdate(w http.ResponseWriter, r *http.Request) {
	m, ok := a.loadMedia(w, r)
	if !ok {
		return
	}
	m.Title = strings.TrimSpace(r.FormValue("title"))
	m.Description = strings.TrimSpace(r.FormValue("description"))
	if msg := validateMediaTitle(m.Title); msg != "" {
		a.mediaForm(w, r, http.StatusUnprocessableEntity, m, false, msg)
		return
	}
	if err := a.media.Update(m); err != nil {
		slog.Error("update media failed", "error", err)
		a.mediaForm(w, r, http.StatusInternalServerError, m, false, "Failed to save media.")
		return
	}
	http.Redirect(w, r, "/admin/media", http.StatusSeeOther)
}

// MediaDelete removes a media item from both storage and the database.
func (a *Admin) MediaDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	// Delete from DB first (returns the row for file cleanup).
	deleted, err := a.media.Delete(id)
	if err != nil {
		slog.Error("media db delete failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if deleted == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	a.removeFiles(r, deleted.FilePath, deleted.Thumbnail)
	a.invalidate(r.Context(), "media", id, "delete")

	if r.Header.Get("HX-Request") == "true" {
		// Empty body for HTMX swap (removes the row).
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/admin/media", http.StatusSeeOther)
}

// removeFiles deletes stored objects, logging failures.
func (a *Admin) removeFiles(r *http.Request, keys ...string) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if err := a.files.Delete(r.Context(), k); err != nil {
			slog.Warn("storage delete failed", "error", err, "key", k)
		}
	}
}

func (a *Admin) loadMedia(w http.ResponseWriter, r *http.Request) (*models.MediaItem, bool) {
	id, ok := parseID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return nil, false
	}
	m, err := a.media.FindByID(id)
	if err != nil {
		slog.Error("media lookup failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	if m == nil {
		http.NotFound(w, r)
		return nil, false
	}
	a.withURLs(m)
	return m, true
}

func (a *Admin) mediaForm(w http.ResponseWriter, r *http.Request, status int, m *models.MediaItem, isNew bool, errMsg string) {
	title := "Edit Media"
	if isNew {
		title = "Upload Media"
	}
	a.renderer.PageStatus(w, r, status, "media_form", &render.PageData{
		Title:   title,
		Section: "media",
		Data: map[string]any{
			"Media": m,
			"IsNew": isNew,
			"Error": errMsg,
		},
	})
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// writeMediaError writes a JSON error response for media operations.
func writeMediaError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
