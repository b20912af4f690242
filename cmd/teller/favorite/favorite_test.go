package favorite_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamasbrandstadter/teller/cmd/teller/directory"
	"github.com/tamasbrandstadter/teller/cmd/teller/favorite"
	"github.com/tamasbrandstadter/teller/internal/bankapi"
	"github.com/tamasbrandstadter/teller/internal/testbackend"
)

func newBook(t *testing.T) (*favorite.Book, *testbackend.Backend) {
	b := testbackend.New(testbackend.DefaultAccounts()...)
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	api := bankapi.NewClient(bankapi.Config{BaseURL: srv.URL + "/", Timeout: time.Second})
	accounts := directory.Accounts(api)
	require.NoError(t, accounts.Load(context.Background()))

	book := favorite.NewBook(api, testbackend.Operator.ID, accounts)
	require.NoError(t, book.Load(context.Background()))
	return book, b
}

func TestAddAndResolveAlias(t *testing.T) {
	book, _ := newBook(t)

	f, err := book.Add(context.Background(), "Tienda", "1002")

	require.NoError(t, err)
	assert.Equal(t, favorite.Favorite{Alias: "Tienda", AccountNumber: "1002"}, f)
	assert.Equal(t, []favorite.Favorite{f}, book.List())

	number, ok := book.ResolveAlias("tienda")
	assert.True(t, ok)
	assert.Equal(t, "1002", number)
}

func TestAddResolvesAccountByLabel(t *testing.T) {
	book, _ := newBook(t)

	f, err := book.Add(context.Background(), "Ana", "1003 - Ana López")

	require.NoError(t, err)
	assert.Equal(t, "1003", f.AccountNumber)
}

func TestAddValidation(t *testing.T) {
	tests := []struct {
		name    string
		alias   string
		account string
		want    error
	}{
		{name: "blank alias", alias: "  ", account: "1002", want: favorite.ErrInvalidAlias},
		{name: "alias with digits", alias: "Tienda 2", account: "1002", want: favorite.ErrInvalidAlias},
		{name: "unknown account", alias: "Nadie", account: "9999", want: favorite.ErrUnknownAccount},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			book, b := newBook(t)

			_, err := book.Add(context.Background(), tc.alias, tc.account)

			assert.ErrorIs(t, err, tc.want)
			assert.Zero(t, b.Hits("POST /users/:id/favorites"))
		})
	}
}

func TestAddDuplicateAlias(t *testing.T) {
	book, _ := newBook(t)
	_, err := book.Add(context.Background(), "Tienda", "1002")
	require.NoError(t, err)

	_, err = book.Add(context.Background(), "TIENDA", "1001")

	assert.ErrorIs(t, err, favorite.ErrDuplicateAlias)
}

func TestRemove(t *testing.T) {
	book, _ := newBook(t)
	_, err := book.Add(context.Background(), "Tienda", "1002")
	require.NoError(t, err)

	require.NoError(t, book.Remove(context.Background(), "Tienda"))

	assert.Empty(t, book.List())
	_, ok := book.ResolveAlias("Tienda")
	assert.False(t, ok)
}

func TestRemoveUnknownAlias(t *testing.T) {
	book, _ := newBook(t)

	err := book.Remove(context.Background(), "Nadie")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "El alias Nadie no existe")
}

func TestFailedReloadAfterAddKeepsSavedAliases(t *testing.T) {
	book, b := newBook(t)
	_, err := book.Add(context.Background(), "Casa", "1001")
	require.NoError(t, err)

	b.FailNext("GET /users/:id/favorites", http.StatusInternalServerError, "")
	_, err = book.Add(context.Background(), "Tienda", "1002")
	require.NoError(t, err)

	number, ok := book.ResolveAlias("Casa")
	assert.True(t, ok)
	assert.Equal(t, "1001", number)
	assert.Equal(t, 3, b.Hits("GET /users/:id/favorites"))
}

func TestFailedReloadAfterRemoveKeepsSavedAliases(t *testing.T) {
	book, b := newBook(t)
	_, err := book.Add(context.Background(), "Casa", "1001")
	require.NoError(t, err)
	_, err = book.Add(context.Background(), "Tienda", "1002")
	require.NoError(t, err)

	b.FailNext("GET /users/:id/favorites", http.StatusInternalServerError, "")
	require.NoError(t, book.Remove(context.Background(), "Tienda"))

	number, ok := book.ResolveAlias("Casa")
	assert.True(t, ok)
	assert.Equal(t, "1001", number)
}
