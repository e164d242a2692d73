package store

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uch/internal/models"
)

func TestTagStorePopular(t *testing.T) {
	db, mock := newMock(t)
	s := NewTagStore(db)

	mock.ExpectQuery(`ORDER BY num_times DESC, t.name LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "num_times"}).
			AddRow(uuid.NewString(), "go", "go", 5).
			AddRow(uuid.NewString(), "web", "web", 2))

	tags, err := s.Popular(10)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "go", tags[0].Name)
	assert.Equal(t, 5, tags[0].Count)
}

func TestTagStoreSetForArticleReusesAndCreates(t *testing.T) {
	db, mock := newMock(t)
	s := NewTagStore(db)

	article := uuid.New()
	existing := uuid.New()
	created := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM article_tags WHERE article_id = \$1`).
		WithArgs(article).
		WillReturnResult(sqlmock.NewResult(0, 3))

	// "Go" matches the stored "go" tag case-insensitively.
	mock.ExpectQuery(`SELECT id FROM tags WHERE LOWER\(name\) = LOWER\(\$1\)`).
		WithArgs("Go").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(existing.String()))
	mock.ExpectExec(`INSERT INTO article_tags`).
		WithArgs(article, existing).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// "Web Dev" is new and its first slug choice is taken.
	mock.ExpectQuery(`SELECT id FROM tags WHERE LOWER\(name\) = LOWER\(\$1\)`).
		WithArgs("Web Dev").
		WillReturnRows(sqlmock.NewRows(nil))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM tags WHERE slug = \$1\)`).
		WithArgs("web-dev").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM tags WHERE slug = \$1\)`).
		WithArgs("web-dev-2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`INSERT INTO tags \(name, slug\) VALUES \(\$1, \$2\) RETURNING id`).
		WithArgs("Web Dev", "web-dev-2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(created.String()))
	mock.ExpectExec(`INSERT INTO article_tags`).
		WithArgs(article, created).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SetForArticle(article, models.ParseTags("Go, Web Dev, go")))
}

func TestTagStoreSetForArticleRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	s := NewTagStore(db)

	article := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM article_tags`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.SetForArticle(article, []string{"x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestTagStoreCountsDraftsAndFindsBySlug(t *testing.T) {
	db := testDB(t)
	s := NewTagStore(db)
	author := testUser(t, db)

	name := "draft-count-" + uuid.NewString()[:8]
	slug := "tag-draft-" + uuid.NewString()[:8]
	t.Cleanup(func() {
		cleanArticles(t, db, slug)
		db.Exec("DELETE FROM tags WHERE name = $1", name)
	})

	draft, err := NewArticleStore(db).Create(&models.Article{
		Title: "Draft", Slug: slug, Status: models.ArticleStatusDraft, AuthorID: author.ID,
	})
	require.NoError(t, err)
	require.NoError(t, s.SetForArticle(draft.ID, []string{name}))

	tag, err := s.FindBySlug(name)
	require.NoError(t, err)
	require.NotNil(t, tag)
	assert.Equal(t, name, tag.Name)

	tags, err := s.Popular(0)
	require.NoError(t, err)
	count := -1
	for _, tg := range tags {
		if tg.Name == name {
			count = tg.Count
		}
	}
	assert.Equal(t, 1, count, "draft articles count toward the tag")

	missing, err := s.FindBySlug("no-such-" + uuid.NewString()[:8])
	require.NoError(t, err)
	assert.Nil(t, missing)
}
