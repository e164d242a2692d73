package adminui

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uch/internal/pagination"
)

type post struct {
	ID     uuid.UUID
	Title  string
	Status string
	Live   bool
}

func postList() *List[post] {
	return &List[post]{
		Title:    "Posts",
		BasePath: "/admin/posts",
		Columns: []Column[post]{
			{Label: "Title", Value: func(p post) any { return p.Title }},
			{Label: "Live", Value: func(p post) any { return p.Live }},
		},
		Filters: []Filter{
			{Param: "status", Label: "Status", Choices: []Choice{
				{Value: "draft", Label: "Draft"},
				{Value: "published", Label: "Published"},
			}},
			{Param: "live", Label: "Live", Choices: YesNo()},
			DateFilter("created", "Created"),
		},
		SearchFields: []string{"title", "content"},
		Actions:      []Action{{Name: "approve", Label: "Approve selected"}},
		RowID:        func(p post) string { return p.ID.String() },
	}
}

func TestParse(t *testing.T) {
	l := postList()
	r := httptest.NewRequest(http.MethodGet, "/admin/posts?q=+go+&status=draft&live=1&created=bogus&page=2", nil)

	st := l.Parse(r)
	assert.Equal(t, "go", st.Search)
	assert.Equal(t, "2", st.Page)
	assert.Equal(t, map[string]string{"status": "draft", "live": "1"}, st.Filters)

	live := st.Bool("live")
	require.NotNil(t, live)
	assert.True(t, *live)
	assert.Nil(t, st.Bool("status"))
	assert.Nil(t, st.Since("created", time.Now()))
}

func TestStateUUID(t *testing.T) {
	id := uuid.New()
	st := State{Filters: map[string]string{"article": id.String(), "bad": "nope"}}
	require.NotNil(t, st.UUID("article"))
	assert.Equal(t, id, *st.UUID("article"))
	assert.Nil(t, st.UUID("bad"))
	assert.Nil(t, st.UUID("missing"))
}

func TestDateRangeSince(t *testing.T) {
	now := time.Date(2026, time.March, 5, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		r    DateRange
		want *time.Time
	}{
		{Today, ptr(time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC))},
		{Past7Days, ptr(time.Date(2026, time.February, 26, 0, 0, 0, 0, time.UTC))},
		{ThisMonth, ptr(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))},
		{ThisYear, ptr(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))},
		{AnyDate, nil},
		{DateRange("yesterday"), nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Since(now))
		})
	}
}

func ptr(t time.Time) *time.Time { return &t }

func TestTable(t *testing.T) {
	l := postList()
	items := []post{
		{ID: uuid.New(), Title: "First", Live: true},
		{ID: uuid.New(), Title: "", Live: false},
	}
	st := State{Search: "go", Filters: map[string]string{"status": "draft"}}
	page, err := pagination.Paginate(25, 10, "2")
	require.NoError(t, err)

	tbl := l.Table(items, st, page)

	assert.Equal(t, []string{"Title", "Live"}, tbl.Headers)
	assert.Equal(t, "Search title, content", tbl.SearchHint)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, items[0].ID.String(), tbl.Rows[0].ID)
	assert.Equal(t, "First", tbl.Rows[0].Cells[0])
	assert.Equal(t, "-", tbl.Rows[1].Cells[0], "empty strings render as a dash")
	assert.IsType(t, template.HTML(""), tbl.Rows[0].Cells[1])

	require.Len(t, tbl.Filters, 3)
	status := tbl.Filters[0]
	require.Len(t, status.Choices, 3)
	assert.Equal(t, "All", status.Choices[0].Label)
	assert.False(t, status.Choices[0].Selected)
	assert.Equal(t, "/admin/posts?q=go", status.Choices[0].URL)
	assert.True(t, status.Choices[1].Selected)
	assert.Equal(t, "/admin/posts?q=go&status=published", status.Choices[2].URL)

	require.Len(t, tbl.Pages, 3)
	assert.True(t, tbl.Pages[1].Current)
	assert.Equal(t, "/admin/posts?page=3&q=go&status=draft", tbl.Pages[2].URL)
}

func TestTableSinglePageHasNoLinks(t *testing.T) {
	page, err := pagination.Paginate(3, 10, "")
	require.NoError(t, err)
	tbl := postList().Table(nil, State{Filters: map[string]string{}}, page)
	assert.Empty(t, tbl.Pages)
	assert.Empty(t, tbl.Rows)
}

func TestSelection(t *testing.T) {
	l := postList()
	a, b := uuid.New(), uuid.New()

	form := url.Values{}
	form.Set("action", "approve")
	form.Add("selected", a.String())
	form.Add("selected", "not-a-uuid")
	form.Add("selected", b.String())

	r := httptest.NewRequest(http.MethodPost, "/admin/posts/action", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.NoError(t, r.ParseForm())

	action, ids := l.Selection(r)
	assert.Equal(t, "approve", action)
	assert.Equal(t, []uuid.UUID{a, b}, ids)

	form.Set("action", "drop_tables")
	r = httptest.NewRequest(http.MethodPost, "/admin/posts/action", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.NoError(t, r.ParseForm())

	action, ids = l.Selection(r)
	assert.Empty(t, action)
	assert.Nil(t, ids)
}

func TestDisplay(t *testing.T) {
	ts := time.Date(2026, time.January, 2, 3, 4, 0, 0, time.UTC)
	var nilTime *time.Time

	assert.Equal(t, "-", display(nil))
	assert.Equal(t, "-", display(""))
	assert.Equal(t, "-", display(time.Time{}))
	assert.Equal(t, "-", display(nilTime))
	assert.Equal(t, "Jan 2, 2026 03:04", display(ts))
	assert.Equal(t, "Jan 2, 2026 03:04", display(&ts))
	assert.Equal(t, 42, display(42))
}
