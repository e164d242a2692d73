// Package adminui describes admin changelist pages declaratively: which
// columns a list shows, which filters and search fields it offers and which
// bulk actions apply to selected rows. Handlers translate the parsed State
// into store queries and hand the resulting rows back for rendering.
package adminui

import (
	"html/template"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"uch/internal/pagination"
)

// Column renders one table cell per row. Value may return template.HTML
// for pre-escaped markup such as thumbnails.
type Column[T any] struct {
	Label string
	Value func(T) any
}

// Choice is one selectable value of a filter.
type Choice struct {
	Value string
	Label string
}

// Filter is a sidebar filter bound to a query parameter.
type Filter struct {
	Param   string
	Label   string
	Choices []Choice
}

// Action is a bulk action applied to the selected rows.
type Action struct {
	Name  string
	Label string
}

// List configures the changelist page of one entity.
type List[T any] struct {
	Title    string
	BasePath string // e.g. "/admin/articles"
	Columns  []Column[T]
	Filters  []Filter
	// SearchFields names the fields searched by the "q" parameter. It is
	// shown as the search box hint; an empty slice hides the search box.
	SearchFields []string
	Actions      []Action
	RowID        func(T) string
	// Ordering describes the default sort, for display only.
	Ordering string
}

// State is the parsed changelist query: search text, active filter values
// and the raw page parameter.
type State struct {
	Search  string
	Filters map[string]string
	Page    string
}

// Parse reads search, filter and page parameters from the request. Unknown
// filter values are dropped.
func (l *List[T]) Parse(r *http.Request) State {
	q := r.URL.Query()
	st := State{
		Search:  strings.TrimSpace(q.Get("q")),
		Filters: make(map[string]string),
		Page:    q.Get("page"),
	}
	for _, f := range l.Filters {
		v := q.Get(f.Param)
		if v == "" {
			continue
		}
		for _, c := range f.Choices {
			if c.Value == v {
				st.Filters[f.Param] = v
				break
			}
		}
	}
	return st
}

// Bool interprets a yes/no filter ("1"/"0"). Nil means not filtered.
func (s State) Bool(param string) *bool {
	switch s.Filters[param] {
	case "1":
		v := true
		return &v
	case "0":
		v := false
		return &v
	}
	return nil
}

// UUID returns a filter value parsed as a UUID, or nil.
func (s State) UUID(param string) *uuid.UUID {
	id, err := uuid.Parse(s.Filters[param])
	if err != nil {
		return nil
	}
	return &id
}

// Since resolves a date-range filter to its lower bound relative to now.
func (s State) Since(param string, now time.Time) *time.Time {
	return DateRange(s.Filters[param]).Since(now)
}

// values encodes the state back into query parameters.
func (s State) values() url.Values {
	v := url.Values{}
	if s.Search != "" {
		v.Set("q", s.Search)
	}
	for k, val := range s.Filters {
		v.Set(k, val)
	}
	return v
}

// YesNo is the choice set of boolean filters.
func YesNo() []Choice {
	return []Choice{{Value: "1", Label: "Yes"}, {Value: "0", Label: "No"}}
}

// DateRange is a relative creation-date filter value.
type DateRange string

const (
	AnyDate   DateRange = ""
	Today     DateRange = "today"
	Past7Days DateRange = "past_7_days"
	ThisMonth DateRange = "this_month"
	ThisYear  DateRange = "this_year"
)

// Since returns the start of the range, or nil for AnyDate and unknown
// values.
func (d DateRange) Since(now time.Time) *time.Time {
	y, m, day := now.Date()
	loc := now.Location()
	var t time.Time
	switch d {
	case Today:
		t = time.Date(y, m, day, 0, 0, 0, 0, loc)
	case Past7Days:
		t = time.Date(y, m, day-7, 0, 0, 0, 0, loc)
	case ThisMonth:
		t = time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case ThisYear:
		t = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return nil
	}
	return &t
}

// DateFilter returns a filter offering the standard date ranges.
func DateFilter(param, label string) Filter {
	return Filter{
		Param: param,
		Label: label,
		Choices: []Choice{
			{Value: string(Today), Label: "Today"},
			{Value: string(Past7Days), Label: "Past 7 days"},
			{Value: string(ThisMonth), Label: "This month"},
			{Value: string(ThisYear), Label: "This year"},
		},
	}
}

// Selection reads a bulk action request: the chosen action (validated
// against the list's actions) and the selected row IDs. Malformed IDs are
// skipped.
func (l *List[T]) Selection(r *http.Request) (string, []uuid.UUID) {
	action := r.PostFormValue("action")
	valid := false
	for _, a := range l.Actions {
		if a.Name == action {
			valid = true
			break
		}
	}
	if !valid {
		return "", nil
	}
	var ids []uuid.UUID
	for _, raw := range r.PostForm["selected"] {
		if id, err := uuid.Parse(raw); err == nil {
			ids = append(ids, id)
		}
	}
	return action, ids
}

// Row is one rendered table row.
type Row struct {
	ID    string
	Cells []any
}

// ChoiceLink is a filter choice with the URL that selects it.
type ChoiceLink struct {
	Label    string
	URL      string
	Selected bool
}

// FilterView is a filter ready for the template.
type FilterView struct {
	Label   string
	Choices []ChoiceLink
}

// PageLink points to one page of the changelist.
type PageLink struct {
	Number  int
	URL     string
	Current bool
}

// Table is everything the changelist template needs.
type Table struct {
	Title      string
	BasePath   string
	Headers    []string
	Rows       []Row
	Filters    []FilterView
	Search     string
	SearchHint string
	Actions    []Action
	Ordering   string
	Page       pagination.Page
	Pages      []PageLink
	ClearURL   string
}

// Table renders items, the current page of results, into a Table.
func (l *List[T]) Table(items []T, st State, page pagination.Page) Table {
	t := Table{
		Title:    l.Title,
		BasePath: l.BasePath,
		Search:   st.Search,
		Actions:  l.Actions,
		Ordering: l.Ordering,
		Page:     page,
		ClearURL: l.BasePath,
	}
	if len(l.SearchFields) > 0 {
		t.SearchHint = "Search " + strings.Join(l.SearchFields, ", ")
	}
	for _, c := range l.Columns {
		t.Headers = append(t.Headers, c.Label)
	}
	for _, item := range items {
		row := Row{}
		if l.RowID != nil {
			row.ID = l.RowID(item)
		}
		for _, c := range l.Columns {
			row.Cells = append(row.Cells, display(c.Value(item)))
		}
		t.Rows = append(t.Rows, row)
	}

	for _, f := range l.Filters {
		fv := FilterView{Label: f.Label}
		fv.Choices = append(fv.Choices, ChoiceLink{
			Label:    "All",
			URL:      l.url(st, f.Param, ""),
			Selected: st.Filters[f.Param] == "",
		})
		for _, c := range f.Choices {
			fv.Choices = append(fv.Choices, ChoiceLink{
				Label:    c.Label,
				URL:      l.url(st, f.Param, c.Value),
				Selected: st.Filters[f.Param] == c.Value,
			})
		}
		t.Filters = append(t.Filters, fv)
	}

	if page.HasOtherPages() {
		for _, n := range page.Numbers() {
			t.Pages = append(t.Pages, PageLink{
				Number:  n,
				URL:     l.url(st, "page", strconv.Itoa(n)),
				Current: n == page.Number,
			})
		}
	}
	return t
}

// url builds a changelist URL from the state with one parameter replaced.
// Changing a filter resets the page.
func (l *List[T]) url(st State, param, value string) string {
	v := st.values()
	if param != "page" {
		v.Del("page")
	}
	if value == "" {
		v.Del(param)
	} else {
		v.Set(param, value)
	}
	if len(v) == 0 {
		return l.BasePath
	}
	return l.BasePath + "?" + encodeSorted(v)
}

func encodeSorted(v url.Values) string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v.Get(k)))
	}
	return strings.Join(parts, "&")
}

// display converts common cell values to their admin representation.
func display(v any) any {
	switch x := v.(type) {
	case nil:
		return "-"
	case bool:
		if x {
			return template.HTML(`<span class="text-green-600" title="Yes">&#10004;</span>`)
		}
		return template.HTML(`<span class="text-red-600" title="No">&#10008;</span>`)
	case time.Time:
		if x.IsZero() {
			return "-"
		}
		return x.Format("Jan 2, 2006 15:04")
	case *time.Time:
		if x == nil {
			return "-"
		}
		return x.Format("Jan 2, 2006 15:04")
	case string:
		if x == "" {
			return "-"
		}
		return x
	}
	return v
}
