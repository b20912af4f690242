package transaction

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/teller/cmd/teller/account"
	"github.com/tamasbrandstadter/teller/cmd/teller/form"
	"github.com/tamasbrandstadter/teller/cmd/teller/notification"
	"github.com/tamasbrandstadter/teller/cmd/teller/session"
	"github.com/tamasbrandstadter/teller/cmd/teller/validate"
)

const (
	MsgUnknownType       = "select a transaction type"
	MsgUnknownAccount    = "account does not exist"
	MsgSameAccount       = "destination must differ from the source account"
	MsgIneligibleAccount = "withdrawals are only allowed from savings or checking accounts"
	MsgInvalidAmount     = "enter a valid amount with up to two decimals"
	MsgNonPositiveAmount = "amount must be greater than zero"
	MsgGenericFailure    = "the transaction could not be completed, please try again"
)

var MsgCeilingExceeded = "amount must not exceed " + account.Display(validate.MaxTransactionAmount)

var (
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrValidation         = errors.New("transaction form has invalid fields")
	ErrNoSession          = errors.New("no active session")
)

type Accounts interface {
	ResolveExact(term string) (account.Account, bool)
	Refresh(ctx context.Context)
}

type AliasResolver interface {
	ResolveAlias(alias string) (string, bool)
}

type Option func(*Controller)

func WithClearDestinationOnTypeChange() Option {
	return func(c *Controller) {
		c.clearDestination = true
	}
}

func WithFavorites(r AliasResolver) Option {
	return func(c *Controller) {
		c.favorites = r
	}
}

// WithStateHook calls fn on every state change while the controller lock is
// held. fn must not call back into the controller.
func WithStateHook(fn func(from, to State)) Option {
	return func(c *Controller) {
		c.hook = fn
	}
}

type Values struct {
	Type        Type
	Source      string
	Amount      string
	Destination string
}

type Controller struct {
	session   *session.Session
	accounts  Accounts
	submitter Submitter
	notifier  notification.Notifier
	favorites AliasResolver
	hook      func(from, to State)

	clearDestination bool

	mu          sync.Mutex
	state       State
	kind        *form.Field[Type]
	source      *form.Field[string]
	amount      *form.Field[string]
	destination *form.Field[string]
}

func NewController(s *session.Session, accounts Accounts, submitter Submitter, notifier notification.Notifier, opts ...Option) *Controller {
	c := &Controller{
		session:   s,
		accounts:  accounts,
		submitter: submitter,
		notifier:  notifier,
		state:     Editing{},
		kind:      form.NewField(form.Matches(Type.Valid, MsgUnknownType)),
		source:    form.NewField(form.Required()),
		amount: form.NewField(
			form.Required(),
			form.Matches(validate.IsValidAmount, MsgInvalidAmount),
			form.Matches(positive, MsgNonPositiveAmount),
			form.Matches(withinCeiling, MsgCeilingExceeded),
		),
		destination: form.NewField(form.Required()),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func positive(s string) bool {
	c, ok := validate.ParseCents(s)
	return ok && c > 0
}

func withinCeiling(s string) bool {
	c, ok := validate.ParseCents(s)
	return ok && c <= validate.MaxTransactionAmount
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Values() Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Values{
		Type:        c.kind.Value(),
		Source:      c.source.Value(),
		Amount:      c.amount.Value(),
		Destination: c.destination.Value(),
	}
}

func (c *Controller) Errors() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	errs := make(map[string]string)
	for name, msg := range map[string]string{
		FieldType:        c.kind.Err(),
		FieldSource:      c.source.Err(),
		FieldAmount:      c.amount.Err(),
		FieldDestination: c.destination.Err(),
	} {
		if msg != "" {
			errs[name] = msg
		}
	}
	return errs
}

func (c *Controller) SetType(t Type) error {
	return c.edit(func() {
		prev := c.kind.Value()
		c.kind.Set(t)
		if c.clearDestination && prev != t && !t.NeedsDestination() {
			c.destination.Reset()
		}
	})
}

func (c *Controller) SetSource(s string) error {
	return c.edit(func() { c.source.Set(s) })
}

func (c *Controller) SetAmount(s string) error {
	return c.edit(func() { c.amount.Set(s) })
}

func (c *Controller) SetDestination(s string) error {
	return c.edit(func() { c.destination.Set(s) })
}

func (c *Controller) edit(apply func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.state.(Submitting); ok {
		return ErrSubmissionInFlight
	}

	apply()
	c.transition(Editing{})
	return nil
}

func (c *Controller) transition(to State) {
	from := c.state
	c.state = to
	if c.hook != nil {
		c.hook(from, to)
	}
}

// Submit validates the form and, when every field passes, sends it through
// the submitter. A rejected or failed submission is reported as a Failed
// state, not as an error. The returned error is ErrSubmissionInFlight,
// ErrNoSession or ErrValidation.
func (c *Controller) Submit(ctx context.Context) (State, error) {
	c.mu.Lock()

	if _, ok := c.state.(Submitting); ok {
		c.mu.Unlock()
		return c.State(), ErrSubmissionInFlight
	}

	if !c.session.Active() {
		st := c.state
		c.mu.Unlock()
		return st, ErrNoSession
	}

	c.transition(Validating{})

	req, ok := c.validate()
	if !ok {
		c.transition(Editing{})
		c.mu.Unlock()
		return Editing{}, ErrValidation
	}

	req.RequestedBy = c.session.OperatorID()
	c.transition(Submitting{Request: req})
	c.mu.Unlock()

	conf, err := c.submitter.Submit(ctx, req)

	c.mu.Lock()
	var next State
	if err != nil {
		next = Failed{Message: failureMessage(err)}
	} else {
		c.kind.Reset()
		c.source.Reset()
		c.amount.Reset()
		c.destination.Reset()
		next = Succeeded{Confirmation: conf}
	}
	c.transition(next)
	c.mu.Unlock()

	switch st := next.(type) {
	case Succeeded:
		// balances changed, the refresh must outlive this call
		c.accounts.Refresh(context.WithoutCancel(ctx))
		c.notify(ctx, notification.Success, st.Confirmation.Type.Label(), successMessage(st.Confirmation))
	case Failed:
		log.WithError(err).WithFields(log.Fields{
			"type":   req.Type,
			"source": req.SourceAccount,
		}).Warn("transaction submission failed")
		c.notify(ctx, notification.Failure, req.Type.Label(), st.Message)
	}

	return next, nil
}

func (c *Controller) validate() (Request, bool) {
	typeOK := c.kind.Validate()
	t := c.kind.Value()

	var src account.Account
	sourceOK := c.source.Validate()
	if sourceOK {
		a, found := c.accounts.ResolveExact(c.source.Value())
		switch {
		case !found:
			c.source.Fail(MsgUnknownAccount)
			sourceOK = false
		case t == Withdrawal && !a.Type.WithdrawalEligible():
			c.source.Fail(MsgIneligibleAccount)
			sourceOK = false
		default:
			src = a
		}
	}

	amountOK := c.amount.Validate()

	dstNumber := ""
	destinationOK := true
	if t.NeedsDestination() {
		destinationOK = c.destination.Validate()
		if destinationOK {
			number, found := c.resolveDestination(c.destination.Value())
			switch {
			case !found:
				c.destination.Fail(MsgUnknownAccount)
				destinationOK = false
			case sameAccount(src, c.source.Value(), number):
				c.destination.Fail(MsgSameAccount)
				destinationOK = false
			default:
				dstNumber = number
			}
		}
	} else {
		c.destination.ClearErr()
	}

	if !typeOK || !sourceOK || !amountOK || !destinationOK {
		return Request{}, false
	}

	cents, _ := validate.ParseCents(c.amount.Value())
	return Request{
		Type:               t,
		SourceAccount:      src.Number,
		DestinationAccount: dstNumber,
		Amount:             cents,
	}, true
}

func (c *Controller) resolveDestination(term string) (string, bool) {
	if a, ok := c.accounts.ResolveExact(term); ok {
		return a.Number, true
	}

	if c.favorites == nil {
		return "", false
	}

	number, ok := c.favorites.ResolveAlias(strings.TrimSpace(term))
	if !ok {
		return "", false
	}
	if a, ok := c.accounts.ResolveExact(number); ok {
		return a.Number, true
	}
	return "", false
}

func sameAccount(src account.Account, rawSource, destination string) bool {
	if src.Number != "" {
		return src.Number == destination
	}
	return strings.TrimSpace(rawSource) == destination
}

func failureMessage(err error) string {
	var f *Failure
	if errors.As(err, &f) && f.Message != "" {
		return f.Message
	}
	return MsgGenericFailure
}

func successMessage(conf Confirmation) string {
	return fmt.Sprintf("%s of %s completed", conf.Type.Label(), account.Display(conf.Amount))
}

func (c *Controller) notify(ctx context.Context, kind notification.Kind, title, message string) {
	if c.notifier == nil {
		return
	}

	n := notification.Notification{
		Kind:      kind,
		Title:     title,
		Message:   message,
		Operator:  c.session.OperatorID(),
		CreatedAt: time.Now().UTC(),
	}
	if err := c.notifier.Notify(context.WithoutCancel(ctx), n); err != nil {
		log.WithError(err).Warn("failed to deliver transaction notification")
	}
}
