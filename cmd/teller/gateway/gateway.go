package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/teller/cmd/teller/account"
	"github.com/tamasbrandstadter/teller/cmd/teller/transaction"
	"github.com/tamasbrandstadter/teller/internal/bankapi"
	"github.com/tamasbrandstadter/teller/internal/web"
)

const DefaultTimeout = 15 * time.Second

type API interface {
	SubmitTransaction(ctx context.Context, p bankapi.TransactionPayload, idempotencyKey string) (bankapi.Confirmation, error)
}

type Gateway struct {
	api     API
	timeout time.Duration
}

func New(api API, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{api: api, timeout: timeout}
}

// Submit sends req once. Every error returned is a *transaction.Failure.
func (g *Gateway) Submit(ctx context.Context, req transaction.Request) (transaction.Confirmation, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	p := Payload(req)
	key := uuid.New().String()

	entry := log.WithFields(log.Fields{
		"type":           p.Type,
		"source":         p.SourceAccount,
		"amount":         p.Amount,
		"idempotencyKey": key,
	})
	entry.Info("submitting transaction")

	conf, err := g.api.SubmitTransaction(ctx, p, key)
	if err != nil {
		f := normalize(err)
		entry.WithError(err).WithField("failure", f.Kind).Warn("transaction not accepted")
		return transaction.Confirmation{}, f
	}

	created := conf.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	entry.WithField("reference", conf.ID).Info("transaction accepted")

	return transaction.Confirmation{
		ID:        conf.ID,
		Type:      req.Type,
		Amount:    req.Amount,
		CreatedAt: created,
	}, nil
}

func Payload(req transaction.Request) bankapi.TransactionPayload {
	p := bankapi.TransactionPayload{
		Type:          string(req.Type),
		SourceAccount: req.SourceAccount,
		Amount:        account.FromCents(req.Amount),
		RequestedBy:   req.RequestedBy,
	}
	if req.Type.NeedsDestination() {
		p.DestinationAccount = req.DestinationAccount
	}
	return p
}

func normalize(err error) *transaction.Failure {
	var re *web.ResponseError
	if errors.As(err, &re) && re.Message != "" {
		return &transaction.Failure{Kind: transaction.Rejection, Message: re.Message, Err: err}
	}
	return &transaction.Failure{Kind: transaction.Transport, Err: err}
}
