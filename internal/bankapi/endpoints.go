package bankapi

import (
	"context"
	"fmt"
	"net/http"
)

func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	var res LoginResult
	if err := c.do(ctx, http.MethodPost, login, creds, &res, nil); err != nil {
		return LoginResult{}, err
	}
	return res, nil
}

func (c *Client) FetchAccounts(ctx context.Context) ([]Account, error) {
	accs := make([]Account, 0)
	if err := c.read(ctx, accounts, &accs); err != nil {
		return nil, err
	}
	return accs, nil
}

func (c *Client) FetchUsers(ctx context.Context) ([]User, error) {
	us := make([]User, 0)
	if err := c.read(ctx, users, &us); err != nil {
		return nil, err
	}
	return us, nil
}

func (c *Client) FetchOrganizations(ctx context.Context) ([]Organization, error) {
	orgs := make([]Organization, 0)
	if err := c.read(ctx, organizations, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

func (c *Client) FetchHistory(ctx context.Context, accountNumber string) ([]HistoryEntry, error) {
	entries := make([]HistoryEntry, 0)
	if err := c.read(ctx, fmt.Sprintf(accountHistory, escape(accountNumber)), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SubmitTransaction is never retried; idempotencyKey lets the backend discard
// a duplicate should the caller resubmit after an ambiguous failure.
func (c *Client) SubmitTransaction(ctx context.Context, p TransactionPayload, idempotencyKey string) (Confirmation, error) {
	h := http.Header{}
	if idempotencyKey != "" {
		h.Set(idempotencyHeader, idempotencyKey)
	}

	var conf Confirmation
	if err := c.do(ctx, http.MethodPost, transactions, p, &conf, h); err != nil {
		return Confirmation{}, err
	}
	return conf, nil
}

func (c *Client) ListFavorites(ctx context.Context, userID string) ([]Favorite, error) {
	favs := make([]Favorite, 0)
	if err := c.read(ctx, fmt.Sprintf(favorites, escape(userID)), &favs); err != nil {
		return nil, err
	}
	return favs, nil
}

func (c *Client) AddFavorite(ctx context.Context, userID string, f Favorite) (Favorite, error) {
	var created Favorite
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf(favorites, escape(userID)), f, &created, nil); err != nil {
		return Favorite{}, err
	}
	return created, nil
}

func (c *Client) DeleteFavorite(ctx context.Context, userID, alias string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf(favoriteByAlias, escape(userID), escape(alias)), nil, nil, nil)
}

func (c *Client) RegisterUser(ctx context.Context, r UserRegistration) (User, error) {
	var u User
	if err := c.do(ctx, http.MethodPost, users, r, &u, nil); err != nil {
		return User{}, err
	}
	return u, nil
}

func (c *Client) RegisterOrganization(ctx context.Context, r OrganizationRegistration) (Organization, error) {
	var o Organization
	if err := c.do(ctx, http.MethodPost, organizations, r, &o, nil); err != nil {
		return Organization{}, err
	}
	return o, nil
}

func (c *Client) CreateAccount(ctx context.Context, r AccountCreation) (Account, error) {
	var acc Account
	if err := c.do(ctx, http.MethodPost, accounts, r, &acc, nil); err != nil {
		return Account{}, err
	}
	return acc, nil
}
