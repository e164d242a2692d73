package handlers

import (
	"log/slog"
	"net/http"

	"uch/internal/adminui"
	"uch/internal/models"
	"uch/internal/pagination"
	"uch/internal/store"
)

// commentArticleChoices caps the article filter to recent articles.
const commentArticleChoices = 50

// Bulk actions available on the comment changelist.
const (
	actionApprove    = "approve"
	actionDisapprove = "disapprove"
	actionDelete     = "delete"
)

// commentList configures the comment changelist.
func commentList(articles []models.Article) *adminui.List[models.Comment] {
	choices := make([]adminui.Choice, 0, len(articles))
	for _, a := range articles {
		choices = append(choices, adminui.Choice{Value: a.ID.String(), Label: a.Title})
	}
	return &adminui.List[models.Comment]{
		Title:    "Comments",
		BasePath: "/admin/comments",
		Columns: []adminui.Column[models.Comment]{
			{Label: "Author", Value: func(c models.Comment) any { return c.AuthorName }},
			{Label: "Article", Value: func(c models.Comment) any { return c.ArticleTitle }},
			{Label: "Content", Value: func(c models.Comment) any { return c.Preview(50) }},
			{Label: "Approved", Value: func(c models.Comment) any { return c.IsApproved }},
			{Label: "Created", Value: func(c models.Comment) any { return c.CreatedAt }},
		},
		Filters: []adminui.Filter{
			{Param: "is_approved", Label: "Approved", Choices: adminui.YesNo()},
			adminui.DateFilter("created_at", "Created"),
			{Param: "article", Label: "Article", Choices: choices},
		},
		SearchFields: []string{"content", "author name", "article title"},
		Actions: []adminui.Action{
			{Name: actionApprove, Label: "Approve selected comments"},
			{Name: actionDisapprove, Label: "Disapprove selected comments"},
			{Name: actionDelete, Label: "Delete selected comments"},
		},
		RowID:    func(c models.Comment) string { return c.ID.String() },
		Ordering: "-created_at",
	}
}

func (a *Admin) commentQuery(st adminui.State) store.CommentQuery {
	return store.CommentQuery{
		Search:       st.Search,
		IsApproved:   st.Bool("is_approved"),
		ArticleID:    st.UUID("article"),
		CreatedSince: st.Since("created_at", a.now()),
	}
}

func (a *Admin) commentList() (*adminui.List[models.Comment], error) {
	recent, err := a.articles.List(store.ArticleQuery{NewestCreated: true, Limit: commentArticleChoices})
	if err != nil {
		return nil, err
	}
	return commentList(recent), nil
}

// CommentsList renders the comment changelist.
func (a *Admin) CommentsList(w http.ResponseWriter, r *http.Request) {
	l, err := a.commentList()
	if err != nil {
		slog.Error("list comment articles failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	changelist(a, w, r, l, "comments", false,
		func(st adminui.State) (int, error) { return a.comments.Count(a.commentQuery(st)) },
		func(st adminui.State, p pagination.Page) ([]models.Comment, error) {
			q := a.commentQuery(st)
			q.Limit, q.Offset = p.Limit(), p.Offset()
			return a.comments.List(q)
		})
}

// CommentsAction applies a bulk action to the selected comments. Approval
// changes are a single UPDATE.
func (a *Admin) CommentsAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	l := commentList(nil)
	action, ids := l.Selection(r)

	back := r.PostFormValue("return")
	if back == "" || safeNext(back) == "" {
		back = l.BasePath
	}

	if action == "" || len(ids) == 0 {
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	var changed int64
	switch action {
	case actionApprove, actionDisapprove:
		n, err := a.comments.SetApproved(ids, action == actionApprove)
		if err != nil {
			slog.Error("bulk comment approval failed", "error", err, "action", action)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		changed = n
	case actionDelete:
		for _, id := range ids {
			if err := a.comments.Delete(id); err != nil {
				slog.Error("delete comment failed", "error", err, "id", id)
				continue
			}
			changed++
		}
	}

	slog.Info("comment bulk action", "action", action, "selected", len(ids), "changed", changed)
	if a.pageCache != nil {
		a.pageCache.InvalidateAll(r.Context())
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// CommentDelete removes one comment and its replies.
func (a *Admin) CommentDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if err := a.comments.Delete(id); err != nil {
		slog.Error("delete comment failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	a.invalidate(r.Context(), "comment", id, "delete")
	http.Redirect(w, r, "/admin/comments", http.StatusSeeOther)
}
