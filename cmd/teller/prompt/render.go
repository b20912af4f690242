package prompt

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/tamasbrandstadter/teller/cmd/teller/account"
	"github.com/tamasbrandstadter/teller/cmd/teller/directory"
	"github.com/tamasbrandstadter/teller/cmd/teller/favorite"
	"github.com/tamasbrandstadter/teller/cmd/teller/notification"
	"github.com/tamasbrandstadter/teller/cmd/teller/transaction"
)

func Suggestions[T directory.Entry](entries iter.Seq[T]) []string {
	var out []string
	for e := range entries {
		out = append(out, e.Identifier())
		if l := e.Label(); l != e.Identifier() {
			out = append(out, l)
		}
	}
	return out
}

func FormatErrors(errs map[string]string) string {
	order := []string{transaction.FieldType, transaction.FieldSource, transaction.FieldAmount, transaction.FieldDestination}

	var b strings.Builder
	for _, field := range order {
		if msg, ok := errs[field]; ok {
			fmt.Fprintf(&b, "  %s: %s\n", field, msg)
		}
	}
	return b.String()
}

func FormatState(st transaction.State) string {
	switch s := st.(type) {
	case transaction.Succeeded:
		c := s.Confirmation
		ref := ""
		if c.ID != "" {
			ref = " (ref " + c.ID + ")"
		}
		return fmt.Sprintf("%s de %s realizado%s", c.Type.Label(), account.Display(c.Amount), ref)
	case transaction.Failed:
		return "Error: " + s.Message
	case transaction.Submitting:
		return "Enviando..."
	case transaction.Validating:
		return "Validando..."
	case transaction.Editing:
		return ""
	default:
		return ""
	}
}

func FormatHistory(number string, movements []account.Movement) string {
	if len(movements) == 0 {
		return "Sin movimientos\n"
	}

	sorted := slices.Clone(movements)
	slices.SortStableFunc(sorted, func(a, b account.Movement) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	var b strings.Builder
	for _, m := range sorted {
		counterpart := ""
		if m.Type == string(transaction.Transfer) {
			if m.Source == number {
				counterpart = "-> " + m.Destination
			} else {
				counterpart = "<- " + m.Source
			}
		}
		fmt.Fprintf(&b, "%s  %-14s %14s  %s\n",
			m.CreatedAt.Format("2006-01-02 15:04"),
			transaction.Type(m.Type).Label(),
			account.Display(m.Signed(number)),
			counterpart,
		)
	}
	return b.String()
}

func FormatFavorites(favs []favorite.Favorite) string {
	if len(favs) == 0 {
		return "Sin favoritos\n"
	}

	var b strings.Builder
	for _, f := range favs {
		fmt.Fprintf(&b, "%-20s %s\n", f.Alias, f.AccountNumber)
	}
	return b.String()
}

func FormatNotification(n notification.Notification) string {
	mark := "i"
	switch n.Kind {
	case notification.Success:
		mark = "✓"
	case notification.Failure:
		mark = "✗"
	}
	return fmt.Sprintf("[%s] %s: %s", mark, n.Title, n.Message)
}
