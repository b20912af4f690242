package account

import (
	"time"

	"github.com/tamasbrandstadter/teller/internal/bankapi"
)

type Movement struct {
	ID          string
	Type        string
	Source      string
	Destination string
	Amount      int64
	CreatedAt   time.Time
}

func MovementFromAPI(h bankapi.HistoryEntry) Movement {
	return Movement{
		ID:          h.ID,
		Type:        h.Type,
		Source:      h.SourceAccount,
		Destination: h.DestinationAccount,
		Amount:      ToCents(h.Amount),
		CreatedAt:   h.CreatedAt,
	}
}

func (m Movement) Signed(number string) int64 {
	switch m.Type {
	case "WITHDRAWAL":
		return -m.Amount
	case "TRANSFER":
		if m.Source == number {
			return -m.Amount
		}
	}
	return m.Amount
}
