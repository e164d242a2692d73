package handlers

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"uch/internal/adminui"
	"uch/internal/imaging"
	"uch/internal/mediainfo"
	"uch/internal/middleware"
	"uch/internal/models"
	"uch/internal/pagination"
	"uch/internal/render"
	"uch/internal/slug"
	"uch/internal/store"
)

// articleList configures the article changelist.
func articleList(tree []models.Category) *adminui.List[models.Article] {
	statuses := make([]adminui.Choice, 0, len(models.ArticleStatuses))
	for _, s := range models.ArticleStatuses {
		statuses = append(statuses, adminui.Choice{Value: string(s), Label: s.Label()})
	}
	return &adminui.List[models.Article]{
		Title:    "Articles",
		BasePath: "/admin/articles",
		Columns: []adminui.Column[models.Article]{
			{Label: "Title", Value: func(a models.Article) any { return a.Title }},
			{Label: "Author", Value: func(a models.Article) any { return a.AuthorName }},
			{Label: "Category", Value: func(a models.Article) any { return a.CategoryName }},
			{Label: "Status", Value: func(a models.Article) any { return a.Status.Label() }},
			{Label: "Published", Value: func(a models.Article) any { return a.PublishedAt }},
			{Label: "Featured", Value: func(a models.Article) any { return a.IsFeatured }},
			{Label: "Comments", Value: func(a models.Article) any { return a.CommentCount }},
		},
		Filters: []adminui.Filter{
			{Param: "status", Label: "Status", Choices: statuses},
			{Param: "category", Label: "Category", Choices: categoryChoices(tree)},
			{Param: "is_featured", Label: "Featured", Choices: adminui.YesNo()},
			adminui.DateFilter("created_at", "Created"),
		},
		SearchFields: []string{"title", "content", "excerpt"},
		RowID:        func(a models.Article) string { return a.ID.String() },
		Ordering:     "-published_at, -created_at",
	}
}

func (a *Admin) articleQuery(st adminui.State) store.ArticleQuery {
	return store.ArticleQuery{
		Status:       models.ArticleStatus(st.Filters["status"]),
		CategoryID:   st.UUID("category"),
		IsFeatured:   st.Bool("is_featured"),
		CreatedSince: st.Since("created_at", a.now()),
		Search:       st.Search,
	}
}

// ArticlesList renders the article changelist.
func (a *Admin) ArticlesList(w http.ResponseWriter, r *http.Request) {
	tree, err := a.categories.FlatTree()
	if err != nil {
		slog.Error("load category tree failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	changelist(a, w, r, articleList(tree), "articles", true,
		func(st adminui.State) (int, error) { return a.articles.Count(a.articleQuery(st)) },
		func(st adminui.State, p pagination.Page) ([]models.Article, error) {
			q := a.articleQuery(st)
			q.Limit, q.Offset = p.Limit(), p.Offset()
			return a.articles.List(q)
		})
}

// ArticleNew renders the empty article form.
func (a *Admin) ArticleNew(w http.ResponseWriter, r *http.Request) {
	a.articleForm(w, r, http.StatusOK, &models.Article{
		Status:        models.ArticleStatusDraft,
		AllowComments: true,
	}, true, "")
}

// ArticleCreate handles the new article form submission. The author
// defaults to the signed-in user.
func (a *Admin) ArticleCreate(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		a.articleForm(w, r, http.StatusRequestEntityTooLarge, &models.Article{}, true, "Upload too large. Maximum size is 50 MB.")
		return
	}

	art := &models.Article{}
	autoSlug, msg := a.bindArticle(r, art)
	if msg != "" {
		a.articleForm(w, r, http.StatusUnprocessableEntity, art, true, msg)
		return
	}
	if art.AuthorID == uuid.Nil {
		art.AuthorID = sess.UserID
	}
	if msg := a.ensureSlug(art, autoSlug); msg != "" {
		a.articleForm(w, r, http.StatusUnprocessableEntity, art, true, msg)
		return
	}
	if msg := a.saveCover(r, art); msg != "" {
		a.articleForm(w, r, http.StatusUnprocessableEntity, art, true, msg)
		return
	}

	created, err := a.articles.Create(art)
	if err != nil {
		a.articleSaveFailed(w, r, art, true, "", err)
		return
	}
	a.invalidate(r.Context(), "article", created.ID, "create")

	if err := a.tags.SetForArticle(created.ID, tagNames(art.Tags)); err != nil {
		a.articleTagsFailed(w, r, created, err)
		return
	}
	http.Redirect(w, r, "/admin/articles", http.StatusSeeOther)
}

// ArticleEdit renders the edit form for an existing article.
func (a *Admin) ArticleEdit(w http.ResponseWriter, r *http.Request) {
	art, ok := a.loadArticle(w, r)
	if !ok {
		return
	}
	a.articleForm(w, r, http.StatusOK, art, false, "")
}

// ArticleUpdate handles the edit form submission.
func (a *Admin) ArticleUpdate(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "Upload too large", http.StatusRequestEntityTooLarge)
		return
	}

	art, ok := a.loadArticle(w, r)
	if !ok {
		return
	}
	oldCover := art.CoverImage

	autoSlug, msg := a.bindArticle(r, art)
	if msg != "" {
		a.articleForm(w, r, http.StatusUnprocessableEntity, art, false, msg)
		return
	}
	if art.AuthorID == uuid.Nil {
		art.AuthorID = sess.UserID
	}
	if msg := a.ensureSlug(art, autoSlug); msg != "" {
		a.articleForm(w, r, http.StatusUnprocessableEntity, art, false, msg)
		return
	}
	if checkbox(r, "remove_cover") {
		art.CoverImage = ""
	}
	if msg := a.saveCover(r, art); msg != "" {
		a.articleForm(w, r, http.StatusUnprocessableEntity, art, false, msg)
		return
	}

	if err := a.articles.Update(art); err != nil {
		a.articleSaveFailed(w, r, art, false, oldCover, err)
		return
	}
	if oldCover != "" && oldCover != art.CoverImage {
		if err := a.files.Delete(r.Context(), oldCover); err != nil {
			slog.Warn("delete old cover failed", "error", err, "key", oldCover)
		}
	}
	a.invalidate(r.Context(), "article", art.ID, "update")

	if err := a.tags.SetForArticle(art.ID, tagNames(art.Tags)); err != nil {
		a.articleTagsFailed(w, r, art, err)
		return
	}
	http.Redirect(w, r, "/admin/articles", http.StatusSeeOther)
}

// ArticleDelete removes an article. Its comments and tag links cascade.
func (a *Admin) ArticleDelete(w http.ResponseWriter, r *http.Request) {
	art, ok := a.loadArticle(w, r)
	if !ok {
		return
	}
	if err := a.articles.Delete(art.ID); err != nil {
		slog.Error("delete article failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if art.CoverImage != "" {
		if err := a.files.Delete(r.Context(), art.CoverImage); err != nil {
			slog.Warn("delete cover failed", "error", err, "key", art.CoverImage)
		}
	}
	if n, err := a.tags.DeleteUnused(); err != nil {
		slog.Warn("delete unused tags failed", "error", err)
	} else if n > 0 {
		slog.Info("unused tags removed", "count", n)
	}

	a.invalidate(r.Context(), "article", art.ID, "delete")
	http.Redirect(w, r, "/admin/articles", http.StatusSeeOther)
}

func (a *Admin) loadArticle(w http.ResponseWriter, r *http.Request) (*models.Article, bool) {
	id, ok := parseID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return nil, false
	}
	art, err := a.articles.FindByID(id)
	if err != nil {
		slog.Error("find article failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	if art == nil {
		http.NotFound(w, r)
		return nil, false
	}
	return art, true
}

// bindArticle copies form values into art and validates them. It reports
// whether the slug was left empty and must be generated.
func (a *Admin) bindArticle(r *http.Request, art *models.Article) (bool, string) {
	art.Title = strings.TrimSpace(r.FormValue("title"))
	art.Slug = strings.TrimSpace(r.FormValue("slug"))
	art.Excerpt = strings.TrimSpace(r.FormValue("excerpt"))
	art.Content = r.FormValue("content")
	art.Status = models.ArticleStatus(r.FormValue("status"))
	art.CategoryID = optionalUUID(r.FormValue("category_id"))
	art.IsFeatured = checkbox(r, "is_featured")
	art.AllowComments = checkbox(r, "allow_comments")
	if author := optionalUUID(r.FormValue("author_id")); author != nil {
		art.AuthorID = *author
	}
	names := models.ParseTags(r.FormValue("tags"))
	art.Tags = make([]models.Tag, len(names))
	for i, name := range names {
		art.Tags[i] = models.Tag{Name: name}
	}

	if msg := validateArticle(art.Title, art.Slug, art.Excerpt, art.Content); msg != "" {
		return false, msg
	}
	if msg := validateTags(names); msg != "" {
		return false, msg
	}
	if !art.Status.Valid() {
		return false, "Invalid status."
	}
	return art.Slug == "", ""
}

func tagNames(tags []models.Tag) []string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return names
}

// ensureSlug normalizes the slug. A generated slug gets a numeric suffix
// when taken; a typed one is reported as a conflict.
func (a *Admin) ensureSlug(art *models.Article, generated bool) string {
	source := art.Slug
	if generated {
		source = art.Title
	}
	base := slug.Truncate(slug.Generate(source), maxSlugLen)
	if base == "" {
		return "Slug could not be generated from the title; please enter one."
	}

	candidate := base
	for i := 2; ; i++ {
		taken, err := a.articles.SlugExists(candidate, art.ID)
		if err != nil {
			slog.Error("check slug failed", "error", err)
			return "Failed to check the slug."
		}
		if !taken {
			art.Slug = candidate
			return ""
		}
		if !generated {
			art.Slug = candidate
			return "An article with this slug already exists."
		}
		suffix := "-" + strconv.Itoa(i)
		candidate = slug.Truncate(base, maxSlugLen-len(suffix)) + suffix
	}
}

// saveCover stores an uploaded cover image resized to the cover variant.
func (a *Admin) saveCover(r *http.Request, art *models.Article) string {
	file, _, err := r.FormFile("cover")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return ""
	}
	if err != nil {
		return "Failed to read the cover image."
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "Failed to read the cover image."
	}
	img, err := imaging.Resize(data, imaging.Cover)
	if err != nil {
		slog.Warn("cover processing failed", "error", err)
		return "Cover must be a JPEG, PNG, GIF or WebP image."
	}

	key := mediainfo.CoverKey(a.now(), uuid.New())
	if err := a.files.Save(r.Context(), key, img.ContentType, bytes.NewReader(img.Data), int64(len(img.Data))); err != nil {
		slog.Error("save cover failed", "error", err, "key", key)
		return "Failed to store the cover image."
	}
	art.CoverImage = key
	return ""
}

// articleSaveFailed re-renders the form after a failed insert or update.
// A cover uploaded for this attempt is removed again.
func (a *Admin) articleSaveFailed(w http.ResponseWriter, r *http.Request, art *models.Article, isNew bool, storedCover string, err error) {
	if art.CoverImage != "" && art.CoverImage != storedCover {
		if derr := a.files.Delete(r.Context(), art.CoverImage); derr != nil {
			slog.Warn("delete unsaved cover failed", "error", derr, "key", art.CoverImage)
		}
		art.CoverImage = storedCover
	}
	if errors.Is(err, store.ErrSlugTaken) {
		a.articleForm(w, r, http.StatusUnprocessableEntity, art, isNew, "An article with this slug already exists.")
		return
	}
	slog.Error("save article failed", "error", err)
	a.articleForm(w, r, http.StatusInternalServerError, art, isNew, "Failed to save article.")
}

// articleTagsFailed reports a saved article whose tags could not be stored.
// The edit form is shown so the editor can retry.
func (a *Admin) articleTagsFailed(w http.ResponseWriter, r *http.Request, art *models.Article, err error) {
	slog.Error("set article tags failed", "error", err, "article", art.ID)
	a.articleForm(w, r, http.StatusInternalServerError, art, false, "The article was saved, but its tags could not be stored. Please save again.")
}

func (a *Admin) articleForm(w http.ResponseWriter, r *http.Request, status int, art *models.Article, isNew bool, errMsg string) {
	cats, err := a.categories.FlatTree()
	if err != nil {
		slog.Error("load category tree failed", "error", err)
	}
	authors, err := a.users.List()
	if err != nil {
		slog.Error("list users failed", "error", err)
	}
	staff := authors[:0:0]
	for _, u := range authors {
		if u.IsStaff() {
			staff = append(staff, u)
		}
	}

	title := "Edit Article"
	if isNew {
		title = "New Article"
	}
	a.renderer.PageStatus(w, r, status, "article_form", &render.PageData{
		Title:   title,
		Section: "articles",
		Data: map[string]any{
			"Article":    art,
			"Categories": cats,
			"Authors":    staff,
			"Statuses":   models.ArticleStatuses,
			"IsNew":      isNew,
			"Error":      errMsg,
		},
	})
}
