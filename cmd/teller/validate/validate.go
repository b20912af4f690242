package validate

import (
	"regexp"
	"strconv"
	"strings"
)

const MaxTransactionAmount int64 = 200000

const (
	Text              = "text"
	Amount            = "amount"
	TransactionAmount = "transactionAmount"
	Email             = "email"
	Phone             = "phone"
	DPI               = "dpi"
	NIT               = "nit"
)

var Messages = map[string]string{
	Text:              "only letters and spaces are allowed",
	Amount:            "amount must be a non-negative number with at most 2 decimals",
	TransactionAmount: "amount must be greater than 0.00 and at most 2000.00",
	Email:             "invalid email address",
	Phone:             "phone number must have 8 digits",
	DPI:               "DPI must have 13 digits",
	NIT:               "invalid NIT",
}

var (
	textRe   = regexp.MustCompile(`^[\p{L} ]+$`)
	amountRe = regexp.MustCompile(`^(\d{1,13})(?:\.(\d{1,2}))?$`)
	emailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe  = regexp.MustCompile(`^(?:\+502\s?)?\d{4}[\s-]?\d{4}$`)
	dpiRe    = regexp.MustCompile(`^\d{4}\s?\d{5}\s?\d{4}$`)
	nitRe    = regexp.MustCompile(`^\d{1,12}-?[\dkK]$`)
)

func IsNonEmptyText(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) > 0 && textRe.MatchString(s)
}

func IsValidAmount(s string) bool {
	_, ok := ParseCents(s)
	return ok
}

func IsTransactionAmount(s string) bool {
	c, ok := ParseCents(s)
	return ok && c > 0 && c <= MaxTransactionAmount
}

func IsValidEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

func IsValidPhoneNumber(s string) bool {
	return phoneRe.MatchString(strings.TrimSpace(s))
}

func IsValidIdentityDocument(s string) bool {
	return dpiRe.MatchString(strings.TrimSpace(s))
}

func IsValidNIT(s string) bool {
	return nitRe.MatchString(strings.TrimSpace(s))
}

func ParseCents(s string) (int64, bool) {
	m := amountRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}

	units, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}

	frac := m[2]
	for len(frac) < 2 {
		frac += "0"
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, false
	}

	return units*100 + cents, true
}
