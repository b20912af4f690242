package account

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/tamasbrandstadter/teller/internal/bankapi"
)

const Currency = "GTQ"

type Type string

const (
	Savings    Type = "SAVINGS"
	Checking   Type = "CHECKING"
	Investment Type = "INVESTMENT"
)

func ParseType(s string) Type {
	switch t := strings.ToUpper(strings.TrimSpace(s)); t {
	case "SAVINGS", "AHORRO":
		return Savings
	case "CHECKING", "MONETARIA":
		return Checking
	default:
		return Type(t)
	}
}

func (t Type) WithdrawalEligible() bool {
	return t == Savings || t == Checking
}

func (t Type) Openable() bool {
	return t == Savings || t == Checking
}

func (t Type) Label() string {
	switch t {
	case Savings:
		return "Ahorro"
	case Checking:
		return "Monetaria"
	default:
		return string(t)
	}
}

type OwnerKind string

const (
	UserOwner         OwnerKind = "USER"
	OrganizationOwner OwnerKind = "ORGANIZATION"
)

type Account struct {
	Number    string
	Type      Type
	Balance   int64
	OwnerID   string
	OwnerName string
	OwnerKind OwnerKind
	Active    bool
}

func FromAPI(a bankapi.Account) Account {
	return Account{
		Number:    a.AccountNumber,
		Type:      ParseType(a.AccountType),
		Balance:   ToCents(a.Balance),
		OwnerID:   a.OwnerID,
		OwnerName: a.OwnerName,
		OwnerKind: OwnerKind(strings.ToUpper(a.OwnerKind)),
		Active:    a.Active,
	}
}

func (a Account) Label() string {
	if a.OwnerName == "" {
		return a.Number
	}
	return fmt.Sprintf("%s - %s", a.Number, a.OwnerName)
}

func (a Account) Identifier() string {
	return a.Number
}

func (a Account) DisplayBalance() string {
	return Display(a.Balance)
}

type User struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	DPI       string
	CreatedAt time.Time
}

func UserFromAPI(u bankapi.User) User {
	return User{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, DPI: u.DPI, CreatedAt: u.CreatedAt}
}

func (u User) Label() string      { return u.Name }
func (u User) Identifier() string { return u.DPI }

type Organization struct {
	ID        string
	Name      string
	NIT       string
	Email     string
	Phone     string
	CreatedAt time.Time
}

func OrganizationFromAPI(o bankapi.Organization) Organization {
	return Organization{ID: o.ID, Name: o.Name, NIT: o.NIT, Email: o.Email, Phone: o.Phone, CreatedAt: o.CreatedAt}
}

func (o Organization) Label() string      { return o.Name }
func (o Organization) Identifier() string { return o.NIT }

func ToCents(f float64) int64 {
	return int64(math.Round(f * 100))
}

func FromCents(c int64) float64 {
	return float64(c) / 100
}

func Display(cents int64) string {
	return money.New(cents, Currency).Display()
}
