// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the UCH blog.
// Handlers are grouped by concern (admin, public, auth) and receive
// their dependencies through the handler struct.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"uch/internal/adminui"
	"uch/internal/cache"
	"uch/internal/middleware"
	"uch/internal/models"
	"uch/internal/pagination"
	"uch/internal/render"
	"uch/internal/storage"
	"uch/internal/store"
)

// adminPageSize is the number of rows per changelist page.
const adminPageSize = 25

// ArticleAdminStore is the subset of store.ArticleStore the admin uses.
type ArticleAdminStore interface {
	List(q store.ArticleQuery) ([]models.Article, error)
	Count(q store.ArticleQuery) (int, error)
	FindByID(id uuid.UUID) (*models.Article, error)
	Create(a *models.Article) (*models.Article, error)
	Update(a *models.Article) error
	Delete(id uuid.UUID) error
	SlugExists(slug string, exceptID uuid.UUID) (bool, error)
}

// CategoryAdminStore is the subset of store.CategoryStore the admin uses.
type CategoryAdminStore interface {
	List(q store.CategoryQuery) ([]models.Category, error)
	Count(q store.CategoryQuery) (int, error)
	FlatTree() ([]models.Category, error)
	FindByID(id uuid.UUID) (*models.Category, error)
	Create(c *models.Category) (*models.Category, error)
	Update(c *models.Category) error
	Delete(id uuid.UUID) error
	NextSortOrder(parentID *uuid.UUID) (int, error)
}

// TagAdminStore is the subset of store.TagStore the admin uses.
type TagAdminStore interface {
	SetForArticle(articleID uuid.UUID, names []string) error
	DeleteUnused() (int64, error)
}

// CommentAdminStore is the subset of store.CommentStore the admin uses.
type CommentAdminStore interface {
	List(q store.CommentQuery) ([]models.Comment, error)
	Count(q store.CommentQuery) (int, error)
	SetApproved(ids []uuid.UUID, approved bool) (int64, error)
	Delete(id uuid.UUID) error
	CountPending() (int, error)
}

// MediaAdminStore is the subset of store.MediaStore the admin uses.
type MediaAdminStore interface {
	Create(m *models.MediaItem) (*models.MediaItem, error)
	Update(m *models.MediaItem) error
	FindByID(id uuid.UUID) (*models.MediaItem, error)
	List(q store.MediaQuery) ([]models.MediaItem, error)
	Count(q store.MediaQuery) (int, error)
	Delete(id uuid.UUID) (*models.MediaItem, error)
}

// UserAdminStore is the subset of store.UserStore the admin uses.
type UserAdminStore interface {
	FindByEmail(email string) (*models.User, error)
	List() ([]models.User, error)
	Create(email, password, displayName string, role models.Role) (*models.User, error)
	ResetTOTP(userID uuid.UUID) error
	Delete(userID uuid.UUID) error
	Count() (int, error)
}

// Admin groups all admin panel HTTP handlers and their dependencies.
type Admin struct {
	renderer   *render.Renderer
	articles   ArticleAdminStore
	categories CategoryAdminStore
	tags       TagAdminStore
	comments   CommentAdminStore
	media      MediaAdminStore
	users      UserAdminStore
	files      storage.Storage
	pageCache  *cache.PageCache
	now        func() time.Time
}

// NewAdmin creates a new Admin handler group with the given dependencies.
// pageCache may be nil when page caching is disabled.
func NewAdmin(renderer *render.Renderer, articles ArticleAdminStore, categories CategoryAdminStore, tags TagAdminStore, comments CommentAdminStore, media MediaAdminStore, users UserAdminStore, files storage.Storage, pageCache *cache.PageCache) *Admin {
	return &Admin{
		renderer:   renderer,
		articles:   articles,
		categories: categories,
		tags:       tags,
		comments:   comments,
		media:      media,
		users:      users,
		files:      files,
		pageCache:  pageCache,
		now:        time.Now,
	}
}

// Dashboard renders the admin dashboard page with content counts.
func (a *Admin) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{}
	count := func(key string, fn func() (int, error)) {
		n, err := fn()
		if err != nil {
			slog.Error("dashboard count failed", "stat", key, "error", err)
		}
		data[key] = n
	}

	count("ArticleCount", func() (int, error) { return a.articles.Count(store.ArticleQuery{}) })
	count("PublishedCount", func() (int, error) { return a.articles.Count(store.PublishedArticles()) })
	count("DraftCount", func() (int, error) {
		return a.articles.Count(store.ArticleQuery{Status: models.ArticleStatusDraft})
	})
	count("CategoryCount", func() (int, error) { return a.categories.Count(store.CategoryQuery{}) })
	count("PendingComments", a.comments.CountPending)
	count("MediaCount", func() (int, error) { return a.media.Count(store.MediaQuery{}) })
	count("UserCount", a.users.Count)

	recent, err := a.articles.List(store.ArticleQuery{NewestCreated: true, Limit: 5})
	if err != nil {
		slog.Error("list recent articles failed", "error", err)
	}
	data["RecentArticles"] = recent

	a.renderer.Page(w, r, "dashboard", &render.PageData{
		Title:   "Dashboard",
		Section: "dashboard",
		Data:    data,
	})
}

// changelist renders one page of an adminui list. count and fetch turn the
// parsed state into store queries.
func changelist[T any](a *Admin, w http.ResponseWriter, r *http.Request, l *adminui.List[T], section string, editable bool,
	count func(adminui.State) (int, error), fetch func(adminui.State, pagination.Page) ([]T, error)) {
	st := l.Parse(r)

	total, err := count(st)
	if err != nil {
		slog.Error("changelist count failed", "list", l.Title, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	page, err := pagination.Paginate(total, adminPageSize, st.Page)
	if err != nil {
		http.Redirect(w, r, l.BasePath, http.StatusSeeOther)
		return
	}

	items, err := fetch(st, page)
	if err != nil {
		slog.Error("changelist fetch failed", "list", l.Title, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	a.renderer.Page(w, r, "changelist", &render.PageData{
		Title:   l.Title,
		Section: section,
		Data: map[string]any{
			"Table":    l.Table(items, st, page),
			"Editable": editable,
		},
	})
}

// parseID reads the {id} URL parameter.
func parseID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

// optionalUUID parses a form value that may be empty.
func optionalUUID(v string) *uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &id
}

// checkbox reports whether a form checkbox was ticked.
func checkbox(r *http.Request, name string) bool {
	v := r.FormValue(name)
	return v == "on" || v == "true" || v == "1"
}

// categoryChoices turns categories into filter choices, indented by depth.
func categoryChoices(cats []models.Category) []adminui.Choice {
	choices := make([]adminui.Choice, 0, len(cats))
	for _, c := range cats {
		choices = append(choices, adminui.Choice{
			Value: c.ID.String(),
			Label: strings.Repeat("- ", c.Depth) + c.Name,
		})
	}
	return choices
}

// invalidate clears the public page cache after a content change.
func (a *Admin) invalidate(ctx context.Context, what string, id uuid.UUID, action string) {
	if a.pageCache != nil {
		a.pageCache.InvalidateAll(ctx)
	}
	slog.Info("content changed", "type", what, "id", id, "action", action)
}

// --- Users ---

// UsersList renders the user management page.
func (a *Admin) UsersList(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.List()
	if err != nil {
		slog.Error("list users failed", "error", err)
	}

	a.renderer.Page(w, r, "users_list", &render.PageData{
		Title:   "Users",
		Section: "users",
		Data:    map[string]any{"Users": users},
	})
}

// UserResetTwoFA resets another user's 2FA, forcing re-setup on next login.
func (a *Admin) UserResetTwoFA(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	targetID, ok := parseID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if targetID == sess.UserID {
		http.Error(w, "Cannot reset your own 2FA", http.StatusForbidden)
		return
	}

	if err := a.users.ResetTOTP(targetID); err != nil {
		slog.Error("reset 2fa failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	slog.Info("2fa reset by admin", "admin", sess.Email, "target_user", targetID)
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

// UserDelete removes a user together with their articles, comments and
// uploads.
func (a *Admin) UserDelete(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	targetID, ok := parseID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if targetID == sess.UserID {
		http.Error(w, "Cannot delete yourself", http.StatusForbidden)
		return
	}

	if err := a.users.Delete(targetID); err != nil {
		slog.Error("delete user failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	slog.Info("user deleted", "admin", sess.Email, "target_user", targetID)
	a.invalidate(r.Context(), "user", targetID, "delete")
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

// UserNew renders the new user creation form.
func (a *Admin) UserNew(w http.ResponseWriter, r *http.Request) {
	a.renderer.Page(w, r, "user_form", &render.PageData{
		Title:   "New User",
		Section: "users",
		Data:    map[string]any{"Role": string(models.RoleAuthor)},
	})
}

// UserCreate handles the new user form submission.
func (a *Admin) UserCreate(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	displayName := strings.TrimSpace(r.FormValue("display_name"))
	password := r.FormValue("password")
	role := models.Role(r.FormValue("role"))

	fail := func(status int, msg string) {
		a.renderer.PageStatus(w, r, status, "user_form", &render.PageData{
			Title:   "New User",
			Section: "users",
			Data: map[string]any{
				"Error":       msg,
				"Email":       email,
				"DisplayName": displayName,
				"Role":        string(role),
			},
		})
	}

	var errMsg string
	switch {
	case email == "":
		errMsg = "Email is required."
	case displayName == "":
		errMsg = "Display name is required."
	case len(password) < 8:
		errMsg = "Password must be at least 8 characters."
	case role != models.RoleAdmin && role != models.RoleEditor && role != models.RoleAuthor && role != models.RoleReader:
		errMsg = "Invalid role."
	}
	if errMsg != "" {
		fail(http.StatusUnprocessableEntity, errMsg)
		return
	}

	existing, err := a.users.FindByEmail(email)
	if err != nil {
		slog.Error("user lookup failed", "error", err)
		fail(http.StatusInternalServerError, "Failed to create user.")
		return
	}
	if existing != nil {
		fail(http.StatusUnprocessableEntity, "A user with this email already exists.")
		return
	}

	if _, err := a.users.Create(email, password, displayName, role); err != nil {
		slog.Error("create user failed", "error", err)
		fail(http.StatusInternalServerError, "Failed to create user.")
		return
	}

	sess := middleware.SessionFromCtx(r.Context())
	slog.Info("user created", "admin", sess.Email, "new_user", email, "role", role)

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/admin/users")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}
