package prompt

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/teller/cmd/teller/account"
	"github.com/tamasbrandstadter/teller/cmd/teller/directory"
	"github.com/tamasbrandstadter/teller/cmd/teller/favorite"
	"github.com/tamasbrandstadter/teller/cmd/teller/notification"
	"github.com/tamasbrandstadter/teller/cmd/teller/registration"
	"github.com/tamasbrandstadter/teller/cmd/teller/session"
	"github.com/tamasbrandstadter/teller/cmd/teller/transaction"
	"github.com/tamasbrandstadter/teller/cmd/teller/validate"
)

const (
	actionTransaction  = "transaction"
	actionHistory      = "history"
	actionFavorites    = "favorites"
	actionUser         = "user"
	actionOrganization = "organization"
	actionAccount      = "account"
	actionLogout       = "logout"
	actionQuit         = "quit"
)

var ErrLoggedOut = errors.New("logged out")

type App struct {
	Session       *session.Session
	Sessions      *session.Manager
	Accounts      *directory.Directory[account.Account]
	Users         *directory.Directory[account.User]
	Organizations *directory.Directory[account.Organization]
	Controller    *transaction.Controller
	Favorites     *favorite.Book
	Registration  *registration.Service
	Inbox         *notification.Inbox
	Out           io.Writer
}

func Login(ctx context.Context) (username, password string, err error) {
	err = huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Usuario").Value(&username).Validate(registration.Check("required")),
		huh.NewInput().Title("Contraseña").EchoMode(huh.EchoModePassword).Value(&password),
	)).RunWithContext(ctx)
	return username, password, err
}

func (a *App) Run(ctx context.Context) error {
	for {
		a.flush()

		var action string
		err := huh.NewForm(huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Operador: %s", a.Session.Profile().Name)).
				Options(
					huh.NewOption("Nueva transacción", actionTransaction),
					huh.NewOption("Historial de cuenta", actionHistory),
					huh.NewOption("Favoritos", actionFavorites),
					huh.NewOption("Registrar usuario", actionUser),
					huh.NewOption("Registrar organización", actionOrganization),
					huh.NewOption("Abrir cuenta", actionAccount),
					huh.NewOption("Cerrar sesión", actionLogout),
					huh.NewOption("Salir", actionQuit),
				).
				Value(&action),
		)).RunWithContext(ctx)
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return errors.Wrap(err, "menu")
		}

		switch action {
		case actionTransaction:
			err = a.transaction(ctx)
		case actionHistory:
			err = a.history(ctx)
		case actionFavorites:
			err = a.favorites(ctx)
		case actionUser:
			err = a.registerUser(ctx)
		case actionOrganization:
			err = a.registerOrganization(ctx)
		case actionAccount:
			err = a.openAccount(ctx)
		case actionLogout:
			if err := a.Sessions.Logout(ctx, a.Session); err != nil {
				log.WithError(err).Warn("logout")
			}
			return ErrLoggedOut
		case actionQuit:
			return nil
		}

		if err != nil && !errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintf(a.Out, "Error: %v\n", err)
		}
	}
}

func (a *App) flush() {
	for _, n := range a.Inbox.Drain() {
		fmt.Fprintln(a.Out, FormatNotification(n))
	}
}

func (a *App) transaction(ctx context.Context) error {
	for {
		v := a.Controller.Values()
		typ, src, amt, dst := string(v.Type), v.Source, v.Amount, v.Destination

		accounts := Suggestions(a.Accounts.Search(""))
		destinations := append(Suggestions(a.Favorites.Search("")), accounts...)

		options := make([]huh.Option[string], 0, len(transaction.Types))
		for _, t := range transaction.Types {
			options = append(options, huh.NewOption(t.Label(), string(t)))
		}

		err := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().Title("Tipo").Options(options...).Value(&typ),
				huh.NewInput().Title("Cuenta origen").Suggestions(accounts).Value(&src),
				huh.NewInput().Title("Monto (GTQ)").Value(&amt),
			),
			huh.NewGroup(
				huh.NewInput().Title("Cuenta destino").Description("Número, titular o alias favorito").Suggestions(destinations).Value(&dst),
			).WithHideFunc(func() bool { return !transaction.Type(typ).NeedsDestination() }),
		).RunWithContext(ctx)
		if err != nil {
			return err
		}

		for _, set := range []func() error{
			func() error { return a.Controller.SetType(transaction.Type(typ)) },
			func() error { return a.Controller.SetSource(src) },
			func() error { return a.Controller.SetAmount(amt) },
			func() error { return a.Controller.SetDestination(dst) },
		} {
			if err := set(); err != nil {
				return err
			}
		}

		st, err := a.Controller.Submit(ctx)
		switch {
		case errors.Is(err, transaction.ErrValidation):
			fmt.Fprint(a.Out, FormatErrors(a.Controller.Errors()))
			continue
		case err != nil:
			return err
		}

		fmt.Fprintln(a.Out, FormatState(st))
		a.flush()

		if _, failed := st.(transaction.Failed); failed {
			var retry bool
			if err := run(ctx, huh.NewConfirm().Title("¿Corregir y reintentar?").Value(&retry)); err != nil || !retry {
				return err
			}
			continue
		}
		return nil
	}
}

func (a *App) history(ctx context.Context) error {
	var number string
	err := run(ctx, huh.NewInput().
		Title("Cuenta").
		Suggestions(Suggestions(a.Accounts.Search(""))).
		Value(&number))
	if err != nil {
		return err
	}

	acc, ok := a.Accounts.ResolveExact(number)
	if !ok {
		return errors.New(transaction.MsgUnknownAccount)
	}

	entries, err := a.Session.API().FetchHistory(ctx, acc.Number)
	if err != nil {
		return errors.Wrap(err, "history")
	}

	movements := make([]account.Movement, 0, len(entries))
	for _, e := range entries {
		movements = append(movements, account.MovementFromAPI(e))
	}

	fmt.Fprintf(a.Out, "%s  saldo %s\n", acc.Label(), acc.DisplayBalance())
	fmt.Fprint(a.Out, FormatHistory(acc.Number, movements))
	return nil
}

func (a *App) favorites(ctx context.Context) error {
	fmt.Fprint(a.Out, FormatFavorites(a.Favorites.List()))

	var action string
	err := run(ctx, huh.NewSelect[string]().
		Title("Favoritos").
		Options(
			huh.NewOption("Agregar", "add"),
			huh.NewOption("Eliminar", "remove"),
			huh.NewOption("Volver", "back"),
		).
		Value(&action))
	if err != nil {
		return err
	}

	switch action {
	case "add":
		var alias, number string
		err := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Alias").Value(&alias).Validate(registration.Check("required,"+validate.Text)),
			huh.NewInput().Title("Cuenta").Suggestions(Suggestions(a.Accounts.Search(""))).Value(&number),
		)).RunWithContext(ctx)
		if err != nil {
			return err
		}
		if _, err := a.Favorites.Add(ctx, alias, number); err != nil {
			return err
		}
	case "remove":
		var alias string
		options := make([]huh.Option[string], 0)
		for f := range a.Favorites.Search("") {
			options = append(options, huh.NewOption(f.Alias+" ("+f.AccountNumber+")", f.Alias))
		}
		if len(options) == 0 {
			return nil
		}
		if err := run(ctx, huh.NewSelect[string]().Title("Eliminar").Options(options...).Value(&alias)); err != nil {
			return err
		}
		if err := a.Favorites.Remove(ctx, alias); err != nil {
			return err
		}
	}

	fmt.Fprint(a.Out, FormatFavorites(a.Favorites.List()))
	return nil
}

func (a *App) registerUser(ctx context.Context) error {
	var f registration.UserForm
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Nombre").Value(&f.Name).Validate(registration.Check("required,"+validate.Text)),
		huh.NewInput().Title("Correo").Value(&f.Email).Validate(registration.Check("required,email")),
		huh.NewInput().Title("Teléfono").Value(&f.Phone).Validate(registration.Check("required,"+validate.Phone)),
		huh.NewInput().Title("DPI").Value(&f.DPI).Validate(registration.Check("required,"+validate.DPI)),
		huh.NewInput().Title("Contraseña").EchoMode(huh.EchoModePassword).Value(&f.Password).Validate(registration.Check("required,min=8")),
	)).RunWithContext(ctx)
	if err != nil {
		return err
	}

	u, err := a.Registration.RegisterUser(ctx, f)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "Usuario %s registrado (%s)\n", u.Name, u.ID)
	return nil
}

func (a *App) registerOrganization(ctx context.Context) error {
	var f registration.OrganizationForm
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Nombre").Value(&f.Name).Validate(registration.Check("required,"+validate.Text)),
		huh.NewInput().Title("NIT").Value(&f.NIT).Validate(registration.Check("required,"+validate.NIT)),
		huh.NewInput().Title("Correo").Value(&f.Email).Validate(registration.Check("required,email")),
		huh.NewInput().Title("Teléfono").Value(&f.Phone).Validate(registration.Check("required,"+validate.Phone)),
	)).RunWithContext(ctx)
	if err != nil {
		return err
	}

	o, err := a.Registration.RegisterOrganization(ctx, f)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "Organización %s registrada (%s)\n", o.Name, o.ID)
	return nil
}

func (a *App) openAccount(ctx context.Context) error {
	f := registration.AccountForm{OwnerKind: string(account.UserOwner), AccountType: string(account.Savings), InitialDeposit: "0"}

	owners := make([]huh.Option[string], 0)
	for u := range a.Users.Search("") {
		owners = append(owners, huh.NewOption(u.Name+" ("+u.DPI+")", string(account.UserOwner)+":"+u.ID))
	}
	for o := range a.Organizations.Search("") {
		owners = append(owners, huh.NewOption(o.Name+" ("+o.NIT+")", string(account.OrganizationOwner)+":"+o.ID))
	}
	if len(owners) == 0 {
		return errors.New("no hay usuarios ni organizaciones registrados")
	}

	var owner string
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().Title("Titular").Options(owners...).Value(&owner),
		huh.NewSelect[string]().Title("Tipo de cuenta").Options(
			huh.NewOption(account.Savings.Label(), string(account.Savings)),
			huh.NewOption(account.Checking.Label(), string(account.Checking)),
		).Value(&f.AccountType),
		huh.NewInput().Title("Depósito inicial (GTQ)").Value(&f.InitialDeposit).Validate(registration.Check("required,"+validate.Amount)),
	)).RunWithContext(ctx)
	if err != nil {
		return err
	}

	f.OwnerKind, f.OwnerID = splitOwner(owner)

	acc, err := a.Registration.OpenAccount(ctx, f)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "Cuenta %s (%s) abierta con %s\n", acc.Number, acc.Type.Label(), acc.DisplayBalance())
	return nil
}

func splitOwner(s string) (kind, id string) {
	kind, id, _ = strings.Cut(s, ":")
	return kind, id
}

func run(ctx context.Context, fields ...huh.Field) error {
	return huh.NewForm(huh.NewGroup(fields...)).RunWithContext(ctx)
}
