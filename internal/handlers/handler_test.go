// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests:
// in-memory stores, real template renderers, a miniredis-backed session
// store and an in-memory media filesystem.
package handlers

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"golang.org/x/crypto/bcrypt"

	"uch/internal/cache"
	"uch/internal/middleware"
	"uch/internal/models"
	"uch/internal/render"
	"uch/internal/session"
	"uch/internal/sitecontext"
	"uch/internal/storage"
	"uch/internal/store"
)

// --- articles ---

type fakeArticles struct {
	items   []models.Article
	saveErr error
}

func (f *fakeArticles) match(a models.Article, q store.ArticleQuery) bool {
	if q.Status != "" && a.Status != q.Status {
		return false
	}
	if q.CategoryID != nil && (a.CategoryID == nil || *a.CategoryID != *q.CategoryID) {
		return false
	}
	if q.IsFeatured != nil && a.IsFeatured != *q.IsFeatured {
		return false
	}
	if q.ExcludeID != nil && a.ID == *q.ExcludeID {
		return false
	}
	if q.Search != "" && !strings.Contains(strings.ToLower(a.Title+" "+a.Content), strings.ToLower(q.Search)) {
		return false
	}
	if q.TagSlug != "" {
		found := false
		for _, t := range a.Tags {
			if t.Slug == q.TagSlug {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (f *fakeArticles) List(q store.ArticleQuery) ([]models.Article, error) {
	var out []models.Article
	for _, a := range f.items {
		if f.match(a, q) {
			out = append(out, a)
		}
	}
	if q.Offset > len(out) {
		return nil, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeArticles) Count(q store.ArticleQuery) (int, error) {
	n := 0
	for _, a := range f.items {
		if f.match(a, q) {
			n++
		}
	}
	return n, nil
}

func (f *fakeArticles) FindByID(id uuid.UUID) (*models.Article, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			a := f.items[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (f *fakeArticles) FindPublishedBySlug(slug string) (*models.Article, error) {
	for i := range f.items {
		if f.items[i].Slug == slug && f.items[i].IsPublished() {
			a := f.items[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (f *fakeArticles) Create(a *models.Article) (*models.Article, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	f.items = append(f.items, *a)
	return a, nil
}

func (f *fakeArticles) Update(a *models.Article) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	for i := range f.items {
		if f.items[i].ID == a.ID {
			f.items[i] = *a
			return nil
		}
	}
	return nil
}

func (f *fakeArticles) Delete(id uuid.UUID) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeArticles) SlugExists(slug string, exceptID uuid.UUID) (bool, error) {
	for _, a := range f.items {
		if a.Slug == slug && a.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

// --- categories ---

type fakeCategories struct {
	items     []models.Category
	updateErr error
}

func (f *fakeCategories) List(q store.CategoryQuery) ([]models.Category, error) {
	return f.items, nil
}

func (f *fakeCategories) Count(q store.CategoryQuery) (int, error) {
	return len(f.items), nil
}

func (f *fakeCategories) Active(limit int) ([]models.Category, error) {
	var out []models.Category
	for _, c := range f.items {
		if c.IsActive {
			out = append(out, c)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCategories) TopLevelActive() ([]models.Category, error) {
	var out []models.Category
	for _, c := range f.items {
		if c.IsActive && c.ParentID == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCategories) WithPublishedArticles(limit int) ([]models.Category, error) {
	return f.Active(limit)
}

func (f *fakeCategories) CountActive() (int, error) {
	cats, _ := f.Active(0)
	return len(cats), nil
}

func (f *fakeCategories) FlatTree() ([]models.Category, error) {
	return f.items, nil
}

func (f *fakeCategories) FindByID(id uuid.UUID) (*models.Category, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			c := f.items[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeCategories) FindBySlug(slug string) (*models.Category, error) {
	for i := range f.items {
		if f.items[i].Slug == slug && f.items[i].IsActive {
			c := f.items[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeCategories) Create(c *models.Category) (*models.Category, error) {
	for _, existing := range f.items {
		if existing.Slug == c.Slug {
			return nil, store.ErrSlugTaken
		}
	}
	c.ID = uuid.New()
	f.items = append(f.items, *c)
	return c, nil
}

func (f *fakeCategories) Update(c *models.Category) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.items {
		if f.items[i].ID == c.ID {
			f.items[i] = *c
		}
	}
	return nil
}

func (f *fakeCategories) Delete(id uuid.UUID) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeCategories) NextSortOrder(parentID *uuid.UUID) (int, error) {
	next := 0
	for _, c := range f.items {
		sameParent := (c.ParentID == nil && parentID == nil) ||
			(c.ParentID != nil && parentID != nil && *c.ParentID == *parentID)
		if sameParent && c.SortOrder >= next {
			next = c.SortOrder + 1
		}
	}
	return next, nil
}

// --- tags ---

type fakeTags struct {
	popular  []models.Tag
	assigned map[uuid.UUID][]string
	pruned   int
	setErr   error
}

func (f *fakeTags) Popular(limit int) ([]models.Tag, error) {
	if limit > 0 && len(f.popular) > limit {
		return f.popular[:limit], nil
	}
	return f.popular, nil
}

func (f *fakeTags) FindBySlug(slug string) (*models.Tag, error) {
	for i := range f.popular {
		if f.popular[i].Slug == slug {
			t := f.popular[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (f *fakeTags) SetForArticle(articleID uuid.UUID, names []string) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.assigned == nil {
		f.assigned = make(map[uuid.UUID][]string)
	}
	f.assigned[articleID] = names
	return nil
}

func (f *fakeTags) DeleteUnused() (int64, error) {
	f.pruned++
	return 0, nil
}

// --- comments ---

type fakeComments struct {
	items []models.Comment
}

func (f *fakeComments) ApprovedThreads(articleID uuid.UUID) ([]models.Comment, error) {
	var flat []models.Comment
	for _, c := range f.items {
		if c.ArticleID == articleID && c.IsApproved {
			flat = append(flat, c)
		}
	}
	return models.Thread(flat), nil
}

func (f *fakeComments) FindByID(id uuid.UUID) (*models.Comment, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			c := f.items[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeComments) Create(c *models.Comment) (*models.Comment, error) {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	f.items = append(f.items, *c)
	return c, nil
}

func (f *fakeComments) List(q store.CommentQuery) ([]models.Comment, error) {
	var out []models.Comment
	for _, c := range f.items {
		if q.IsApproved != nil && c.IsApproved != *q.IsApproved {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeComments) Count(q store.CommentQuery) (int, error) {
	items, _ := f.List(q)
	return len(items), nil
}

func (f *fakeComments) SetApproved(ids []uuid.UUID, approved bool) (int64, error) {
	var n int64
	for _, id := range ids {
		for i := range f.items {
			if f.items[i].ID == id {
				f.items[i].IsApproved = approved
				n++
			}
		}
	}
	return n, nil
}

func (f *fakeComments) Delete(id uuid.UUID) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeComments) CountPending() (int, error) {
	n := 0
	for _, c := range f.items {
		if !c.IsApproved {
			n++
		}
	}
	return n, nil
}

// --- media ---

type fakeMedia struct {
	items []models.MediaItem
}

func (f *fakeMedia) Create(m *models.MediaItem) (*models.MediaItem, error) {
	m.ID = uuid.New()
	m.UploadedAt = time.Now()
	f.items = append(f.items, *m)
	return m, nil
}

func (f *fakeMedia) Update(m *models.MediaItem) error {
	for i := range f.items {
		if f.items[i].ID == m.ID {
			f.items[i].Title = m.Title
			f.items[i].Description = m.Description
		}
	}
	return nil
}

func (f *fakeMedia) FindByID(id uuid.UUID) (*models.MediaItem, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			m := f.items[i]
			return &m, nil
		}
	}
	return nil, nil
}

func (f *fakeMedia) List(q store.MediaQuery) ([]models.MediaItem, error) {
	return append([]models.MediaItem(nil), f.items...), nil
}

func (f *fakeMedia) Count(q store.MediaQuery) (int, error) {
	return len(f.items), nil
}

func (f *fakeMedia) Delete(id uuid.UUID) (*models.MediaItem, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			m := f.items[i]
			f.items = append(f.items[:i], f.items[i+1:]...)
			return &m, nil
		}
	}
	return nil, nil
}

// --- users ---

type fakeUsers struct {
	items []models.User
}

func (f *fakeUsers) add(t *testing.T, email, password string, role models.Role, totpSecret string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u := models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  strings.Split(email, "@")[0],
		Role:         role,
	}
	if totpSecret != "" {
		u.TOTPSecret = &totpSecret
		u.TOTPEnabled = true
	}
	f.items = append(f.items, u)
	return u
}

func (f *fakeUsers) FindByEmail(email string) (*models.User, error) {
	for i := range f.items {
		if strings.EqualFold(f.items[i].Email, email) {
			u := f.items[i]
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindByID(id uuid.UUID) (*models.User, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			u := f.items[i]
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) List() ([]models.User, error) {
	out := append([]models.User(nil), f.items...)
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (f *fakeUsers) Create(email, password, displayName string, role models.Role) (*models.User, error) {
	u := models.User{ID: uuid.New(), Email: email, DisplayName: displayName, Role: role}
	f.items = append(f.items, u)
	return &u, nil
}

func (f *fakeUsers) SetTOTPSecret(userID uuid.UUID, secret string) error {
	for i := range f.items {
		if f.items[i].ID == userID {
			f.items[i].TOTPSecret = &secret
		}
	}
	return nil
}

func (f *fakeUsers) EnableTOTP(userID uuid.UUID) error {
	for i := range f.items {
		if f.items[i].ID == userID {
			f.items[i].TOTPEnabled = true
		}
	}
	return nil
}

func (f *fakeUsers) ResetTOTP(userID uuid.UUID) error {
	for i := range f.items {
		if f.items[i].ID == userID {
			f.items[i].TOTPSecret = nil
			f.items[i].TOTPEnabled = false
		}
	}
	return nil
}

func (f *fakeUsers) Delete(userID uuid.UUID) error {
	for i := range f.items {
		if f.items[i].ID == userID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeUsers) Count() (int, error) {
	return len(f.items), nil
}

func (f *fakeUsers) CheckPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// testEnv holds all dependencies for handler tests.
type testEnv struct {
	Valkey     *miniredis.Miniredis
	Sessions   *session.Store
	PageCache  *cache.PageCache
	Files      *storage.Local
	FS         afero.Fs
	Articles   *fakeArticles
	Categories *fakeCategories
	Tags       *fakeTags
	Comments   *fakeComments
	Media      *fakeMedia
	Users      *fakeUsers
	Admin      *Admin
	Auth       *Auth
	Public     *Public
}

// newTestEnv creates a complete test environment with empty stores.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	fsys := afero.NewMemMapFs()
	files := storage.NewLocal(fsys, "/media/")

	env := &testEnv{
		Valkey:     mr,
		Sessions:   session.NewStore(client, false),
		PageCache:  cache.NewPageCache(client, time.Minute),
		Files:      files,
		FS:         fsys,
		Articles:   &fakeArticles{},
		Categories: &fakeCategories{},
		Tags:       &fakeTags{},
		Comments:   &fakeComments{},
		Media:      &fakeMedia{},
		Users:      &fakeUsers{},
	}

	renderer, err := render.New(true, files.URL)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	site, err := render.NewSite(true, files.URL, sitecontext.Default(sitecontext.Sources{
		Categories: env.Categories,
		Articles:   env.Articles,
		Tags:       env.Tags,
	}))
	if err != nil {
		t.Fatalf("render.NewSite: %v", err)
	}

	env.Admin = NewAdmin(renderer, env.Articles, env.Categories, env.Tags, env.Comments, env.Media, env.Users, files, env.PageCache)
	env.Auth = NewAuth(renderer, env.Sessions, env.Users)
	env.Public = NewPublic(site, env.Articles, env.Categories, env.Tags, env.Comments, 2)
	return env
}

// publishedArticle returns a published article with the given slug.
func publishedArticle(title, slug string) models.Article {
	now := time.Now()
	return models.Article{
		ID:            uuid.New(),
		Title:         title,
		Slug:          slug,
		Content:       "Body of " + title,
		ContentHTML:   "<p>Body of " + title + "</p>",
		Status:        models.ArticleStatusPublished,
		AllowComments: true,
		AuthorID:      uuid.New(),
		AuthorName:    "Writer",
		CreatedAt:     now,
		UpdatedAt:     now,
		PublishedAt:   &now,
	}
}

// ctxWithSession adds session data to a context using the middleware key.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, middleware.SessionKey, data)
}

// testSession creates a session.Data for testing.
func testSession(userID uuid.UUID, email, role string, twoFADone bool) *session.Data {
	return &session.Data{
		UserID:      userID,
		Email:       email,
		DisplayName: "Test User",
		Role:        role,
		TwoFADone:   twoFADone,
	}
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withChiURLParamAndSession adds both chi URL param and session to a request.
func withChiURLParamAndSession(r *http.Request, key, value string, sess *session.Data) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, middleware.SessionKey, sess)
	return r.WithContext(ctx)
}
