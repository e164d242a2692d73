package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"uch/internal/adminui"
	"uch/internal/models"
	"uch/internal/pagination"
	"uch/internal/render"
	"uch/internal/slug"
	"uch/internal/store"
)

// categoryList configures the category changelist. Parent choices come
// from the current category tree.
func categoryList(tree []models.Category) *adminui.List[models.Category] {
	return &adminui.List[models.Category]{
		Title:    "Categories",
		BasePath: "/admin/categories",
		Columns: []adminui.Column[models.Category]{
			{Label: "Name", Value: func(c models.Category) any { return c.Name }},
			{Label: "Parent", Value: func(c models.Category) any { return c.ParentName }},
			{Label: "Order", Value: func(c models.Category) any { return c.SortOrder }},
			{Label: "Active", Value: func(c models.Category) any { return c.IsActive }},
			{Label: "Articles", Value: func(c models.Category) any { return c.ArticleCount }},
		},
		Filters: []adminui.Filter{
			{Param: "is_active", Label: "Active", Choices: adminui.YesNo()},
			{Param: "parent", Label: "Parent", Choices: categoryChoices(tree)},
		},
		SearchFields: []string{"name", "description"},
		RowID:        func(c models.Category) string { return c.ID.String() },
		Ordering:     "order, name",
	}
}

func categoryQuery(st adminui.State) store.CategoryQuery {
	return store.CategoryQuery{
		Search:   st.Search,
		IsActive: st.Bool("is_active"),
		ParentID: st.UUID("parent"),
	}
}

// CategoriesList renders the category changelist.
func (a *Admin) CategoriesList(w http.ResponseWriter, r *http.Request) {
	tree, err := a.categories.FlatTree()
	if err != nil {
		slog.Error("load category tree failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	changelist(a, w, r, categoryList(tree), "categories", true,
		func(st adminui.State) (int, error) { return a.categories.Count(categoryQuery(st)) },
		func(st adminui.State, p pagination.Page) ([]models.Category, error) {
			q := categoryQuery(st)
			q.Limit, q.Offset = p.Limit(), p.Offset()
			return a.categories.List(q)
		})
}

// CategoryNew renders the empty category form.
func (a *Admin) CategoryNew(w http.ResponseWriter, r *http.Request) {
	a.categoryForm(w, r, http.StatusOK, &models.Category{IsActive: true}, true, "")
}

// CategoryCreate handles the new category form submission.
func (a *Admin) CategoryCreate(w http.ResponseWriter, r *http.Request) {
	c := &models.Category{}
	if msg := a.bindCategory(r, c); msg != "" {
		a.categoryForm(w, r, http.StatusUnprocessableEntity, c, true, msg)
		return
	}

	if strings.TrimSpace(r.FormValue("sort_order")) == "" {
		next, err := a.categories.NextSortOrder(c.ParentID)
		if err != nil {
			slog.Error("next sort order failed", "error", err)
		}
		c.SortOrder = next
	}

	created, err := a.categories.Create(c)
	if err != nil {
		a.categorySaveFailed(w, r, c, true, err)
		return
	}

	a.invalidate(r.Context(), "category", created.ID, "create")
	http.Redirect(w, r, "/admin/categories", http.StatusSeeOther)
}

// CategoryEdit renders the edit form for an existing category.
func (a *Admin) CategoryEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	c, err := a.categories.FindByID(id)
	if err != nil {
		slog.Error("find category failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if c == nil {
		http.NotFound(w, r)
		return
	}
	a.categoryForm(w, r, http.StatusOK, c, false, "")
}

// CategoryUpdate handles the edit form submission.
func (a *Admin) CategoryUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	c, err := a.categories.FindByID(id)
	if err != nil {
		slog.Error("find category failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if c == nil {
		http.NotFound(w, r)
		return
	}

	if msg := a.bindCategory(r, c); msg != "" {
		a.categoryForm(w, r, http.StatusUnprocessableEntity, c, false, msg)
		return
	}

	if err := a.categories.Update(c); err != nil {
		a.categorySaveFailed(w, r, c, false, err)
		return
	}

	a.invalidate(r.Context(), "category", c.ID, "update")
	http.Redirect(w, r, "/admin/categories", http.StatusSeeOther)
}

// CategoryDelete removes a category and its children. Articles in it
// become uncategorised.
func (a *Admin) CategoryDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if err := a.categories.Delete(id); err != nil {
		slog.Error("delete category failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	a.invalidate(r.Context(), "category", id, "delete")
	http.Redirect(w, r, "/admin/categories", http.StatusSeeOther)
}

// bindCategory copies form values into c and validates them. An empty
// slug is generated from the name.
func (a *Admin) bindCategory(r *http.Request, c *models.Category) string {
	c.Name = strings.TrimSpace(r.FormValue("name"))
	c.Slug = strings.TrimSpace(r.FormValue("slug"))
	c.Description = strings.TrimSpace(r.FormValue("description"))
	c.ParentID = optionalUUID(r.FormValue("parent_id"))
	c.IsActive = checkbox(r, "is_active")

	if msg := validateCategory(c.Name, c.Slug); msg != "" {
		return msg
	}
	if c.Slug == "" {
		c.Slug = slug.Truncate(slug.Generate(c.Name), maxCategorySlugLen)
	} else {
		c.Slug = slug.Generate(c.Slug)
	}
	if c.Slug == "" {
		return "Slug could not be generated from the name; please enter one."
	}

	if v := strings.TrimSpace(r.FormValue("sort_order")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return "Order must be a non-negative number."
		}
		c.SortOrder = n
	}
	return ""
}

// categorySaveFailed maps store errors to form messages.
func (a *Admin) categorySaveFailed(w http.ResponseWriter, r *http.Request, c *models.Category, isNew bool, err error) {
	switch {
	case errors.Is(err, store.ErrSlugTaken):
		a.categoryForm(w, r, http.StatusUnprocessableEntity, c, isNew, "A category with this slug already exists.")
	case errors.Is(err, store.ErrCategoryCycle):
		a.categoryForm(w, r, http.StatusUnprocessableEntity, c, isNew, "A category cannot be placed under itself or one of its children.")
	default:
		slog.Error("save category failed", "error", err)
		a.categoryForm(w, r, http.StatusInternalServerError, c, isNew, "Failed to save category.")
	}
}

func (a *Admin) categoryForm(w http.ResponseWriter, r *http.Request, status int, c *models.Category, isNew bool, errMsg string) {
	tree, err := a.categories.FlatTree()
	if err != nil {
		slog.Error("load category tree failed", "error", err)
	}

	// A category cannot be its own parent; hide it from the choices.
	parents := make([]models.Category, 0, len(tree))
	for _, t := range tree {
		if isNew || t.ID != c.ID {
			parents = append(parents, t)
		}
	}

	title := "Edit Category"
	if isNew {
		title = "New Category"
	}
	a.renderer.PageStatus(w, r, status, "category_form", &render.PageData{
		Title:   title,
		Section: "categories",
		Data: map[string]any{
			"Category": c,
			"Parents":  parents,
			"IsNew":    isNew,
			"Error":    errMsg,
		},
	})
}
