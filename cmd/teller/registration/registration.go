package registration

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/teller/cmd/teller/account"
	"github.com/tamasbrandstadter/teller/cmd/teller/validate"
	"github.com/tamasbrandstadter/teller/internal/bankapi"
)

type UserForm struct {
	Name     string `json:"name" validate:"required,text"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,phone"`
	DPI      string `json:"dpi" validate:"required,dpi"`
	Password string `json:"password" validate:"required,min=8"`
}

type OrganizationForm struct {
	Name  string `json:"name" validate:"required,text"`
	NIT   string `json:"nit" validate:"required,nit"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,phone"`
}

type AccountForm struct {
	OwnerID        string `json:"ownerId" validate:"required"`
	OwnerKind      string `json:"ownerKind" validate:"required,oneof=USER ORGANIZATION"`
	AccountType    string `json:"accountType" validate:"required,accounttype"`
	InitialDeposit string `json:"initialDeposit" validate:"required,amount"`
}

type API interface {
	RegisterUser(ctx context.Context, r bankapi.UserRegistration) (bankapi.User, error)
	RegisterOrganization(ctx context.Context, r bankapi.OrganizationRegistration) (bankapi.Organization, error)
	CreateAccount(ctx context.Context, r bankapi.AccountCreation) (bankapi.Account, error)
}

type Refresher interface {
	Refresh(ctx context.Context)
}

type Service struct {
	api      API
	users    Refresher
	orgs     Refresher
	accounts Refresher
}

func NewService(api API, users, orgs, accounts Refresher) *Service {
	return &Service{api: api, users: users, orgs: orgs, accounts: accounts}
}

func (s *Service) RegisterUser(ctx context.Context, f UserForm) (account.User, error) {
	f = UserForm{
		Name:     strings.TrimSpace(f.Name),
		Email:    strings.TrimSpace(f.Email),
		Phone:    strings.TrimSpace(f.Phone),
		DPI:      strings.TrimSpace(f.DPI),
		Password: f.Password,
	}
	if verrs := Validate(f); verrs != nil {
		return account.User{}, verrs
	}

	u, err := s.api.RegisterUser(ctx, bankapi.UserRegistration{
		Name:     f.Name,
		Email:    f.Email,
		Phone:    f.Phone,
		DPI:      f.DPI,
		Password: f.Password,
	})
	if err != nil {
		return account.User{}, errors.Wrap(err, "register user")
	}

	log.WithField("user", u.ID).Info("user registered")
	refresh(ctx, s.users)

	return account.UserFromAPI(u), nil
}

func (s *Service) RegisterOrganization(ctx context.Context, f OrganizationForm) (account.Organization, error) {
	f = OrganizationForm{
		Name:  strings.TrimSpace(f.Name),
		NIT:   strings.ToUpper(strings.TrimSpace(f.NIT)),
		Email: strings.TrimSpace(f.Email),
		Phone: strings.TrimSpace(f.Phone),
	}
	if verrs := Validate(f); verrs != nil {
		return account.Organization{}, verrs
	}

	o, err := s.api.RegisterOrganization(ctx, bankapi.OrganizationRegistration{
		Name:  f.Name,
		NIT:   f.NIT,
		Email: f.Email,
		Phone: f.Phone,
	})
	if err != nil {
		return account.Organization{}, errors.Wrap(err, "register organization")
	}

	log.WithField("organization", o.ID).Info("organization registered")
	refresh(ctx, s.orgs)

	return account.OrganizationFromAPI(o), nil
}

func (s *Service) OpenAccount(ctx context.Context, f AccountForm) (account.Account, error) {
	f.OwnerKind = strings.ToUpper(strings.TrimSpace(f.OwnerKind))
	f.InitialDeposit = strings.TrimSpace(f.InitialDeposit)
	if verrs := Validate(f); verrs != nil {
		return account.Account{}, verrs
	}

	cents, _ := validate.ParseCents(f.InitialDeposit)

	a, err := s.api.CreateAccount(ctx, bankapi.AccountCreation{
		OwnerID:        f.OwnerID,
		OwnerKind:      f.OwnerKind,
		AccountType:    string(account.ParseType(f.AccountType)),
		InitialDeposit: account.FromCents(cents),
	})
	if err != nil {
		return account.Account{}, errors.Wrap(err, "open account")
	}

	log.WithFields(log.Fields{"account": a.AccountNumber, "owner": a.OwnerID}).Info("account opened")
	refresh(ctx, s.accounts)

	return account.FromAPI(a), nil
}

func refresh(ctx context.Context, r Refresher) {
	if r != nil {
		r.Refresh(context.WithoutCancel(ctx))
	}
}
