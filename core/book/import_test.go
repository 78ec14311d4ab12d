package book_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/book"
	"github.com/kitab-bazar/server/tests"
)

func TestImport(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()
	svc := env.Svc.Books
	admin := env.Admin(t)
	pub, pubUsr := env.Publisher(t, "Ekata Books", "ekata@kitab.test")

	t.Run("bad files", func(t *testing.T) {
		_, err := svc.Import(ctx, admin, strings.NewReader(""))
		assert.True(t, core.IsValidationError(err))

		_, err = svc.Import(ctx, admin, strings.NewReader("title,isbn,publisher\nMuna Madan,9789993304001,Ekata Books\n"))
		assert.True(t, core.IsValidationError(err), "missing price column")
	})

	csv := "Title,ISBN,Price,Language,Published_Date,Publisher,Category\n" +
		"Muna Madan,978-9993304001,250,,,Ekata Books,Poetry\n" +
		"Broken,9789993304003,abc,,,Ekata Books,Poetry\n" +
		"Orphan,9789993304004,100,,,Nobody,Poetry\n" +
		"Palpasa Cafe,9789993304002,400,English,2008-01-01,Ekata Books,Novel\n"

	res, err := svc.Import(ctx, admin, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Zero(t, res.Updated)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "line 3: price: invalid price", res.Errors[0])
	assert.Contains(t, res.Errors[1], "line 4: publisher: unknown publisher")

	books, err := svc.Query(ctx, admin, book.QueryFilter{Search: "palpasa"}, nil)
	require.NoError(t, err)
	require.Len(t, books, 1)
	palpasa := books[0]
	assert.Equal(t, pub.ID, palpasa.PublisherID)
	assert.Equal(t, book.LanguageEnglish, palpasa.Language)
	assert.Equal(t, time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC), palpasa.PublishedDate)
	assert.True(t, palpasa.IsPublished)

	cats, err := svc.Categories(ctx, "")
	require.NoError(t, err)
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"Poetry", "Novel"}, names, "missing categories are created")

	t.Run("existing isbn updates", func(t *testing.T) {
		res, err := svc.Import(ctx, admin, strings.NewReader("title,isbn,price,publisher\nMuna Madan,9789993304001,300,Ekata Books\n"))
		require.NoError(t, err)
		assert.Equal(t, 1, res.Updated)
		assert.Zero(t, res.Created)

		books, err := svc.Query(ctx, admin, book.QueryFilter{Search: "muna"}, nil)
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, 300, books[0].Price)
		assert.Equal(t, book.LanguageNepali, books[0].Language)
	})

	t.Run("publishers cannot import", func(t *testing.T) {
		_, err := svc.Import(ctx, pubUsr, strings.NewReader(csv))
		assert.Equal(t, core.ErrPermissionDenied, err)
	})
}
