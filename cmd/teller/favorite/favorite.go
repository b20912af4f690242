package favorite

import (
	"context"
	"iter"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/teller/cmd/teller/account"
	"github.com/tamasbrandstadter/teller/cmd/teller/directory"
	"github.com/tamasbrandstadter/teller/cmd/teller/validate"
	"github.com/tamasbrandstadter/teller/internal/bankapi"
)

var (
	ErrInvalidAlias   = errors.New(validate.Messages[validate.Text])
	ErrUnknownAccount = errors.New("account does not exist")
	ErrDuplicateAlias = errors.New("alias already in use")
)

type Favorite struct {
	Alias         string
	AccountNumber string
}

func (f Favorite) Label() string      { return f.Alias }
func (f Favorite) Identifier() string { return f.AccountNumber }

type API interface {
	ListFavorites(ctx context.Context, userID string) ([]bankapi.Favorite, error)
	AddFavorite(ctx context.Context, userID string, f bankapi.Favorite) (bankapi.Favorite, error)
	DeleteFavorite(ctx context.Context, userID, alias string) error
}

type Accounts interface {
	ResolveExact(term string) (account.Account, bool)
}

type Book struct {
	api      API
	userID   string
	accounts Accounts
	dir      *directory.Directory[Favorite]
}

func NewBook(api API, userID string, accounts Accounts) *Book {
	b := &Book{api: api, userID: userID, accounts: accounts}
	b.dir = directory.New("favorites", b.fetch)
	return b
}

func (b *Book) fetch(ctx context.Context) ([]Favorite, error) {
	favs, err := b.api.ListFavorites(ctx, b.userID)
	if err != nil {
		return nil, err
	}

	out := make([]Favorite, 0, len(favs))
	for _, f := range favs {
		out = append(out, Favorite{Alias: f.Alias, AccountNumber: f.AccountNumber})
	}
	return out, nil
}

func (b *Book) Load(ctx context.Context) error {
	return b.dir.Load(ctx)
}

func (b *Book) List() []Favorite {
	return b.dir.Entries()
}

func (b *Book) Search(term string) iter.Seq[Favorite] {
	return b.dir.Search(term)
}

func (b *Book) Add(ctx context.Context, alias, accountTerm string) (Favorite, error) {
	alias = strings.TrimSpace(alias)
	if !validate.IsNonEmptyText(alias) {
		return Favorite{}, ErrInvalidAlias
	}
	if _, ok := b.ResolveAlias(alias); ok {
		return Favorite{}, ErrDuplicateAlias
	}

	acc, ok := b.accounts.ResolveExact(accountTerm)
	if !ok {
		return Favorite{}, ErrUnknownAccount
	}

	created, err := b.api.AddFavorite(ctx, b.userID, bankapi.Favorite{Alias: alias, AccountNumber: acc.Number})
	if err != nil {
		return Favorite{}, errors.Wrap(err, "add favorite")
	}

	log.WithFields(log.Fields{"alias": created.Alias, "account": created.AccountNumber}).Info("favorite added")

	if err := b.dir.Reload(ctx); err != nil {
		log.WithError(err).Warn("favorites list is out of date")
	}
	return Favorite{Alias: created.Alias, AccountNumber: created.AccountNumber}, nil
}

func (b *Book) Remove(ctx context.Context, alias string) error {
	if err := b.api.DeleteFavorite(ctx, b.userID, strings.TrimSpace(alias)); err != nil {
		return errors.Wrap(err, "remove favorite")
	}

	log.WithField("alias", alias).Info("favorite removed")

	if err := b.dir.Reload(ctx); err != nil {
		log.WithError(err).Warn("favorites list is out of date")
	}
	return nil
}

func (b *Book) ResolveAlias(alias string) (string, bool) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return "", false
	}

	for f := range b.dir.Search("") {
		if strings.EqualFold(f.Alias, alias) {
			return f.AccountNumber, true
		}
	}
	return "", false
}
