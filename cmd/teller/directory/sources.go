package directory

import (
	"context"

	"github.com/tamasbrandstadter/teller/cmd/teller/account"
	"github.com/tamasbrandstadter/teller/internal/bankapi"
)

type AccountSource interface {
	FetchAccounts(ctx context.Context) ([]bankapi.Account, error)
}

type UserSource interface {
	FetchUsers(ctx context.Context) ([]bankapi.User, error)
}

type OrganizationSource interface {
	FetchOrganizations(ctx context.Context) ([]bankapi.Organization, error)
}

func Accounts(src AccountSource) *Directory[account.Account] {
	return New("accounts", func(ctx context.Context) ([]account.Account, error) {
		accs, err := src.FetchAccounts(ctx)
		if err != nil {
			return nil, err
		}

		out := make([]account.Account, 0, len(accs))
		for _, a := range accs {
			out = append(out, account.FromAPI(a))
		}
		return out, nil
	})
}

func Users(src UserSource) *Directory[account.User] {
	return New("users", func(ctx context.Context) ([]account.User, error) {
		us, err := src.FetchUsers(ctx)
		if err != nil {
			return nil, err
		}

		out := make([]account.User, 0, len(us))
		for _, u := range us {
			out = append(out, account.UserFromAPI(u))
		}
		return out, nil
	})
}

func Organizations(src OrganizationSource) *Directory[account.Organization] {
	return New("organizations", func(ctx context.Context) ([]account.Organization, error) {
		orgs, err := src.FetchOrganizations(ctx)
		if err != nil {
			return nil, err
		}

		out := make([]account.Organization, 0, len(orgs))
		for _, o := range orgs {
			out = append(out, account.OrganizationFromAPI(o))
		}
		return out, nil
	})
}
