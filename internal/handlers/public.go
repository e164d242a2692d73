// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"uch/internal/markdown"
	"uch/internal/metrics"
	"uch/internal/middleware"
	"uch/internal/models"
	"uch/internal/pagination"
	"uch/internal/render"
	"uch/internal/store"
)

// Sidebar and home page sizes.
const (
	homeFeatured   = 3
	homeRecent     = 6
	homeCategories = 8
	sidebarRecent  = 5
	sidebarTags    = 10
)

// ArticleReader is the subset of store.ArticleStore the blog reads.
type ArticleReader interface {
	List(q store.ArticleQuery) ([]models.Article, error)
	Count(q store.ArticleQuery) (int, error)
	FindPublishedBySlug(slug string) (*models.Article, error)
}

// CategoryReader is the subset of store.CategoryStore the blog reads.
type CategoryReader interface {
	Active(limit int) ([]models.Category, error)
	TopLevelActive() ([]models.Category, error)
	FindBySlug(slug string) (*models.Category, error)
}

// TagReader is the subset of store.TagStore the blog reads.
type TagReader interface {
	Popular(limit int) ([]models.Tag, error)
	FindBySlug(slug string) (*models.Tag, error)
}

// CommentBoard is the subset of store.CommentStore used by article pages.
type CommentBoard interface {
	ApprovedThreads(articleID uuid.UUID) ([]models.Comment, error)
	FindByID(id uuid.UUID) (*models.Comment, error)
	Create(c *models.Comment) (*models.Comment, error)
}

// Public groups handlers for the public blog. Anonymous GET responses are
// cached by the page cache middleware, so nothing here touches the cache.
type Public struct {
	site       *render.Site
	articles   ArticleReader
	categories CategoryReader
	tags       TagReader
	comments   CommentBoard
	pageSize   int
}

// NewPublic creates a new Public handler group.
func NewPublic(site *render.Site, articles ArticleReader, categories CategoryReader, tags TagReader, comments CommentBoard, pageSize int) *Public {
	if pageSize < 1 {
		pageSize = 10
	}
	return &Public{
		site:       site,
		articles:   articles,
		categories: categories,
		tags:       tags,
		comments:   comments,
		pageSize:   pageSize,
	}
}

// Health reports liveness with a literal OK body.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// NotFound renders the blog 404 page for unmatched routes.
func (p *Public) NotFound(w http.ResponseWriter, r *http.Request) {
	p.site.NotFound(w, r)
}

// Home renders featured and recent articles with categories and tags.
func (p *Public) Home(w http.ResponseWriter, r *http.Request) {
	featuredOnly := true
	featuredQ := store.PublishedArticles()
	featuredQ.IsFeatured = &featuredOnly
	featuredQ.Limit = homeFeatured
	featured, err := p.articles.List(featuredQ)
	if err != nil {
		p.fail(w, r, "list featured articles failed", err)
		return
	}

	recentQ := store.PublishedArticles()
	recentQ.Limit = homeRecent
	recent, err := p.articles.List(recentQ)
	if err != nil {
		p.fail(w, r, "list recent articles failed", err)
		return
	}

	cats, err := p.categories.Active(homeCategories)
	if err != nil {
		p.fail(w, r, "list categories failed", err)
		return
	}

	tags, err := p.tags.Popular(sidebarTags)
	if err != nil {
		p.fail(w, r, "list popular tags failed", err)
		return
	}

	p.site.Page(w, r, http.StatusOK, "home", map[string]any{
		"title":             "Home",
		"featured_articles": featured,
		"recent_articles":   recent,
		"categories":        cats,
		"popular_tags":      tags,
	})
}

// ArticleList renders the paginated list of published articles, filtered
// by ?tag= and ?q=.
func (p *Public) ArticleList(w http.ResponseWriter, r *http.Request) {
	p.renderList(w, r, nil)
}

// CategoryArticles renders the article list restricted to one category.
func (p *Public) CategoryArticles(w http.ResponseWriter, r *http.Request) {
	cat, err := p.categories.FindBySlug(chi.URLParam(r, "slug"))
	if err != nil {
		p.fail(w, r, "find category failed", err)
		return
	}
	if cat == nil {
		p.site.NotFound(w, r)
		return
	}
	p.renderList(w, r, cat)
}

func (p *Public) renderList(w http.ResponseWriter, r *http.Request, cat *models.Category) {
	params := r.URL.Query()
	q := store.PublishedArticles()
	q.TagSlug = strings.TrimSpace(params.Get("tag"))
	q.Search = strings.TrimSpace(params.Get("q"))
	q.WithTags = true
	if cat != nil {
		q.CategoryID = &cat.ID
	}

	total, err := p.articles.Count(q)
	if err != nil {
		p.fail(w, r, "count articles failed", err)
		return
	}

	page, err := pagination.Paginate(total, p.pageSize, params.Get("page"))
	if err != nil {
		p.site.NotFound(w, r)
		return
	}

	q.Limit = page.Limit()
	q.Offset = page.Offset()
	items, err := p.articles.List(q)
	if err != nil {
		p.fail(w, r, "list articles failed", err)
		return
	}

	sidebar, err := p.sidebar(nil)
	if err != nil {
		p.fail(w, r, "load sidebar failed", err)
		return
	}

	currentTag := q.TagSlug
	if q.TagSlug != "" {
		tag, err := p.tags.FindBySlug(q.TagSlug)
		if err != nil {
			p.fail(w, r, "find tag failed", err)
			return
		}
		if tag != nil {
			currentTag = tag.Name
		}
	}

	title := "Articles"
	if cat != nil {
		title = cat.Name
	}
	data := map[string]any{
		"title":        title,
		"articles":     items,
		"page":         page,
		"pages":        pageLinks(r.URL, page),
		"category":     cat,
		"current_tag":  currentTag,
		"search_query": q.Search,
	}
	for k, v := range sidebar {
		data[k] = v
	}
	p.site.Page(w, r, http.StatusOK, "article_list", data)
}

// ArticleDetail renders one published article with its approved comments.
func (p *Public) ArticleDetail(w http.ResponseWriter, r *http.Request) {
	p.renderDetail(w, r, http.StatusOK, nil)
}

// renderDetail renders the article page. extra carries comment form state
// when re-rendering after a rejected comment.
func (p *Public) renderDetail(w http.ResponseWriter, r *http.Request, status int, extra map[string]any) {
	article, err := p.articles.FindPublishedBySlug(chi.URLParam(r, "slug"))
	if err != nil {
		p.fail(w, r, "find article failed", err)
		return
	}
	if article == nil {
		p.site.NotFound(w, r)
		return
	}

	threads, err := p.comments.ApprovedThreads(article.ID)
	if err != nil {
		p.fail(w, r, "list comments failed", err)
		return
	}

	sidebar, err := p.sidebar(&article.ID)
	if err != nil {
		p.fail(w, r, "load sidebar failed", err)
		return
	}

	data := map[string]any{
		"title":           article.Title,
		"article":         article,
		"tags":            article.Tags,
		"comments":        threads,
		"comment_pending": r.URL.Query().Get("comment") == "pending",
	}
	for k, v := range sidebar {
		data[k] = v
	}
	for k, v := range extra {
		data[k] = v
	}
	p.site.Page(w, r, status, "article_detail", data)
}

// CategoryList renders the top-level active categories.
func (p *Public) CategoryList(w http.ResponseWriter, r *http.Request) {
	cats, err := p.categories.TopLevelActive()
	if err != nil {
		p.fail(w, r, "list categories failed", err)
		return
	}

	recentQ := store.PublishedArticles()
	recentQ.Limit = sidebarRecent
	recent, err := p.articles.List(recentQ)
	if err != nil {
		p.fail(w, r, "list recent articles failed", err)
		return
	}

	p.site.Page(w, r, http.StatusOK, "category_list", map[string]any{
		"title":           "Categories",
		"categories":      cats,
		"recent_articles": recent,
	})
}

// CommentCreate stores a comment from a signed-in user. Comments await
// moderation, so the page is not invalidated.
func (p *Public) CommentCreate(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	articlePath := articleBase(r.URL.Path) + slug + "/"

	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil || !sess.TwoFADone {
		http.Redirect(w, r, middleware.LoginURL(articlePath+"#comments"), http.StatusSeeOther)
		return
	}

	article, err := p.articles.FindPublishedBySlug(slug)
	if err != nil {
		p.fail(w, r, "find article failed", err)
		return
	}
	if article == nil {
		p.site.NotFound(w, r)
		return
	}

	raw := r.FormValue("content")
	if !article.AllowComments {
		p.renderDetail(w, r, http.StatusForbidden, map[string]any{
			"comment_error": "Comments are closed for this article.",
		})
		return
	}

	content := strings.TrimSpace(markdown.StripTags(raw))
	if msg := validateComment(content); msg != "" {
		p.renderDetail(w, r, http.StatusUnprocessableEntity, map[string]any{
			"comment_error":   msg,
			"comment_content": raw,
		})
		return
	}

	comment := &models.Comment{
		ArticleID: article.ID,
		AuthorID:  sess.UserID,
		Content:   content,
	}

	if v := r.FormValue("parent"); v != "" {
		parentID, err := uuid.Parse(v)
		if err != nil {
			p.renderDetail(w, r, http.StatusUnprocessableEntity, map[string]any{
				"comment_error":   "Invalid reply target.",
				"comment_content": raw,
			})
			return
		}
		parent, err := p.comments.FindByID(parentID)
		if err != nil {
			p.fail(w, r, "find parent comment failed", err)
			return
		}
		if parent == nil || parent.ArticleID != article.ID {
			p.renderDetail(w, r, http.StatusUnprocessableEntity, map[string]any{
				"comment_error":   "Invalid reply target.",
				"comment_content": raw,
			})
			return
		}
		comment.ParentID = &parent.ID
	}

	if _, err := p.comments.Create(comment); err != nil {
		p.fail(w, r, "create comment failed", err)
		return
	}
	metrics.CommentsPosted.Inc()

	slog.Info("comment posted", "article", article.Slug, "user", sess.UserID)
	http.Redirect(w, r, articlePath+"?comment=pending#comments", http.StatusSeeOther)
}

// sidebar loads the list and detail sidebar: active categories, recent
// published articles (optionally excluding one) and popular tags.
func (p *Public) sidebar(exclude *uuid.UUID) (map[string]any, error) {
	cats, err := p.categories.Active(0)
	if err != nil {
		return nil, err
	}
	recentQ := store.PublishedArticles()
	recentQ.ExcludeID = exclude
	recentQ.Limit = sidebarRecent
	recent, err := p.articles.List(recentQ)
	if err != nil {
		return nil, err
	}
	tags, err := p.tags.Popular(sidebarTags)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"categories":      cats,
		"recent_articles": recent,
		"popular_tags":    tags,
	}, nil
}

// fail logs err and renders the blog error page.
func (p *Public) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.Error(msg, "error", err, "path", r.URL.Path)
	p.site.ServerError(w, r)
}

// articleBase returns the article URL prefix for the mount the request
// came through, so /blog/ pages link within /blog/.
func articleBase(path string) string {
	return render.MountPrefix(path) + "/articles/"
}

// PageLink is one numbered link in the blog pager.
type PageLink struct {
	Number  int
	URL     string
	Current bool
}

// Pager holds the prepared pagination links of a list page.
type Pager struct {
	Prev    string
	Next    string
	Numbers []PageLink
}

// pageLinks builds pager URLs that keep the current tag and search query.
func pageLinks(u *url.URL, page pagination.Page) Pager {
	link := func(n int) string {
		q := u.Query()
		q.Set("page", strconv.Itoa(n))
		return "?" + q.Encode()
	}
	var pg Pager
	if page.HasPrevious() {
		pg.Prev = link(page.PreviousNumber())
	}
	if page.HasNext() {
		pg.Next = link(page.NextNumber())
	}
	if page.HasOtherPages() {
		for _, n := range page.Numbers() {
			pg.Numbers = append(pg.Numbers, PageLink{Number: n, URL: link(n), Current: n == page.Number})
		}
	}
	return pg
}
