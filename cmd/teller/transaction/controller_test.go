package transaction_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamasbrandstadter/teller/cmd/teller/account"
	"github.com/tamasbrandstadter/teller/cmd/teller/directory"
	"github.com/tamasbrandstadter/teller/cmd/teller/gateway"
	"github.com/tamasbrandstadter/teller/cmd/teller/notification"
	"github.com/tamasbrandstadter/teller/cmd/teller/session"
	"github.com/tamasbrandstadter/teller/cmd/teller/transaction"
	"github.com/tamasbrandstadter/teller/internal/bankapi"
	"github.com/tamasbrandstadter/teller/internal/testbackend"
)

type fixture struct {
	backend  *testbackend.Backend
	accounts *directory.Directory[account.Account]
	inbox    *notification.Inbox
	session  *session.Session
	ctrl     *transaction.Controller
}

func newFixture(t *testing.T, accounts []bankapi.Account, opts ...transaction.Option) *fixture {
	b := testbackend.New(accounts...)
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	api := bankapi.NewClient(bankapi.Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second})
	s := session.New(testbackend.Operator, testbackend.Token(time.Hour), time.Time{}, api)

	dir := directory.Accounts(s.API())
	require.NoError(t, dir.Load(context.Background()))

	inbox := &notification.Inbox{}
	ctrl := transaction.NewController(s, dir, gateway.New(s.API(), time.Second), inbox, opts...)

	return &fixture{backend: b, accounts: dir, inbox: inbox, session: s, ctrl: ctrl}
}

func (f *fixture) fill(t *testing.T, typ transaction.Type, source, amount, destination string) {
	require.NoError(t, f.ctrl.SetType(typ))
	require.NoError(t, f.ctrl.SetSource(source))
	require.NoError(t, f.ctrl.SetAmount(amount))
	if destination != "" {
		require.NoError(t, f.ctrl.SetDestination(destination))
	}
}

func TestDepositSucceedsClearsFormAndRefreshesDirectory(t *testing.T) {
	f := newFixture(t, testbackend.DefaultAccounts())
	f.fill(t, transaction.Deposit, "1001", "50.00", "")

	st, err := f.ctrl.Submit(context.Background())

	require.NoError(t, err)
	succeeded, ok := st.(transaction.Succeeded)
	require.True(t, ok, "got state %s", transaction.Name(st))
	assert.Equal(t, transaction.Deposit, succeeded.Confirmation.Type)
	assert.Equal(t, int64(5000), succeeded.Confirmation.Amount)

	assert.Equal(t, transaction.Values{}, f.ctrl.Values())
	assert.Empty(t, f.ctrl.Errors())

	assert.Eventually(t, func() bool {
		a, found := f.accounts.ResolveExact("1001")
		return found && a.Balance == 55000
	}, 2*time.Second, 10*time.Millisecond)

	notes := f.inbox.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, notification.Success, notes[0].Kind)
	assert.Contains(t, notes[0].Message, "50.00")
	assert.Equal(t, "adm-1", notes[0].Operator)

	p, _ := f.backend.LastSubmission()
	assert.Equal(t, "adm-1", p.RequestedBy)
}

func TestTransferToSameAccountFailsWithoutNetworkCall(t *testing.T) {
	f := newFixture(t, testbackend.DefaultAccounts())
	f.fill(t, transaction.Transfer, "1001", "10.00", "1001")

	st, err := f.ctrl.Submit(context.Background())

	assert.ErrorIs(t, err, transaction.ErrValidation)
	assert.IsType(t, transaction.Editing{}, st)
	assert.Equal(t, map[string]string{transaction.FieldDestination: transaction.MsgSameAccount}, f.ctrl.Errors())
	assert.Zero(t, f.backend.Hits("POST /transactions"))
}

func TestSameAccountDetectedThroughLabel(t *testing.T) {
	f := newFixture(t, testbackend.DefaultAccounts())
	f.fill(t, transaction.Transfer, "1001", "10.00", "1001 - Ana López")

	_, err := f.ctrl.Submit(context.Background())

	assert.ErrorIs(t, err, transaction.ErrValidation)
	assert.Equal(t, transaction.MsgSameAccount, f.ctrl.Errors()[transaction.FieldDestination])
}

func TestWithdrawalFromIneligibleAccountFails(t *testing.T) {
	accounts := []bankapi.Account{
		{AccountNumber: "1001", AccountType: "INVESTMENT", Balance: 900, OwnerID: "usr-1", OwnerName: "Ana López", OwnerKind: "USER", Active: true},
	}
	f := newFixture(t, accounts)
	f.fill(t, transaction.Withdrawal, "1001", "10.00", "")

	_, err := f.ctrl.Submit(context.Background())

	assert.ErrorIs(t, err, transaction.ErrValidation)
	assert.Equal(t, map[string]string{transaction.FieldSource: transaction.MsgIneligibleAccount}, f.ctrl.Errors())
	assert.Zero(t, f.backend.Hits("POST /transactions"))
}

func TestWithdrawalEligibilityByAccountType(t *testing.T) {
	tests := []struct {
		accountType string
		eligible    bool
	}{
		{accountType: "SAVINGS", eligible: true},
		{accountType: "AHORRO", eligible: true},
		{accountType: "CHECKING", eligible: true},
		{accountType: "MONETARIA", eligible: true},
		{accountType: "INVESTMENT", eligible: false},
		{accountType: "PLAZO_FIJO", eligible: false},
	}

	for _, tc := range tests {
		t.Run(tc.accountType, func(t *testing.T) {
			f := newFixture(t, []bankapi.Account{{AccountNumber: "2001", AccountType: tc.accountType, Balance: 100, Active: true}})
			f.fill(t, transaction.Withdrawal, "2001", "1.00", "")

			st, err := f.ctrl.Submit(context.Background())

			if tc.eligible {
				assert.NoError(t, err)
				assert.IsType(t, transaction.Succeeded{}, st)
				return
			}
			assert.ErrorIs(t, err, transaction.ErrValidation)
			assert.Equal(t, transaction.MsgIneligibleAccount, f.ctrl.Errors()[transaction.FieldSource])
		})
	}
}

func TestAmountRules(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{amount: "2000.01", want: transaction.MsgCeilingExceeded},
		{amount: "2000.00", want: ""},
		{amount: "0.01", want: ""},
		{amount: "0", want: transaction.MsgNonPositiveAmount},
		{amount: "0.00", want: transaction.MsgNonPositiveAmount},
		{amount: "-5", want: transaction.MsgInvalidAmount},
		{amount: "10.123", want: transaction.MsgInvalidAmount},
		{amount: "abc", want: transaction.MsgInvalidAmount},
		{amount: "  ", want: "this field is required"},
	}

	for _, tc := range tests {
		t.Run(tc.amount, func(t *testing.T) {
			f := newFixture(t, testbackend.DefaultAccounts())
			f.fill(t, transaction.Deposit, "1001", tc.amount, "")

			_, err := f.ctrl.Submit(context.Background())

			if tc.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, transaction.ErrValidation)
			assert.Equal(t, map[string]string{transaction.FieldAmount: tc.want}, f.ctrl.Errors())
		})
	}
}

func TestCeilingMessageMentionsLimit(t *testing.T) {
	assert.Contains(t, transaction.MsgCeilingExceeded, "2,000.00")
}

func TestEveryFieldIsValidatedTogether(t *testing.T) {
	f := newFixture(t, testbackend.DefaultAccounts())
	require.NoError(t, f.ctrl.SetType(transaction.Transfer))
	require.NoError(t, f.ctrl.SetSource("9999"))

	_, err := f.ctrl.Submit(context.Background())

	assert.ErrorIs(t, err, transaction.ErrValidation)
	want := map[string]string{
		transaction.FieldSource:      transaction.MsgUnknownAccount,
		transaction.FieldAmount:      "this field is required",
		transaction.FieldDestination: "this field is required",
	}
	if diff := cmp.Diff(want, f.ctrl.Errors()); diff != "" {
		t.Errorf("unexpected field errors:\n%v", diff)
	}
}

func TestMissingTypeIsReported(t *testing.T) {
	f := newFixture(t, testbackend.DefaultAccounts())
	require.NoError(t, f.ctrl.SetSource("1001"))
	require.NoError(t, f.ctrl.SetAmount("5"))

	_, err := f.ctrl.Submit(context.Background())

	assert.ErrorIs(t, err, transaction.ErrValidation)
	assert.Equal(t, transaction.MsgUnknownType, f.ctrl.Errors()[transaction.FieldType])
}

func TestEditClearsOnlyThatFieldError(t *testing.T) {
	f := newFixture(t, testbackend.DefaultAccounts())
	require.NoError(t, f.ctrl.SetType(transaction.Transfer))

	_, _ = f.ctrl.Submit(context.Background())
	require.Contains(t, f.ctrl.Errors(), transaction.FieldAmount)

	require.NoError(t, f.ctrl.SetAmount("1"))

	errs := f.ctrl.Errors()
	assert.NotContains(t, errs, transaction.FieldAmount)
	assert.Contains(t, errs, transaction.FieldSource)
}

func TestBackendRejectionKeepsFieldsAndSurfacesMessage(t *testing.T) {
	f := newFixture(t, testbackend.DefaultAccounts())
	f.fill(t, transaction.Transfer, "1002", "150.00", "1001")

	st, err := f.ctrl.Submit(context.Background())

	require.NoError(t, err)
	failed, ok := st.(transaction.Failed)
	require.True(t, ok, "got state %s", transaction.Name(st))
	assert.Equal(t, testbackend.InsufficientFunds, failed.Message)

	assert.Equal(t, transaction.Values{
		Type:        transaction.Transfer,
		Source:      "1002",
		Amount:      "150.00",
		Destination: "1001",
	}, f.ctrl.Values())

	notes := f.inbox.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, notification.Failure, notes[0].Kind)
	assert.Equal(t, testbackend.InsufficientFunds, notes[0].Message)
}

func TestForcedBackendMessageIsShownVerbatim(t *testing.T) {
	f := newFixture(t, testbackend.DefaultAccounts())
	f.backend.FailNext("POST /transactions", 422, "Fondos insuficientes")
	f.fill(t, transaction.Deposit, "1001", "10.00", "")

	st, err := f.ctrl.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, transaction.Failed{Message: "Fondos insuficientes"}, st)
	assert.Equal(t, "10.00", f.ctrl.Values().Amount)
}

func TestTransportFailureShowsGenericMessage(t *testing.T) {
	f := newFixture(t, testbackend.DefaultAccounts())
	f.backend.FailNext("POST /transactions", 502, "")
	f.fill(t, transaction.Deposit, "1001", "10.00", "")

	st, err := f.ctrl.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, transaction.Failed{Message: transaction.MsgGenericFailure}, st)
	assert.Equal(t, 1, f.backend.Hits("POST /transactions"))
}

func TestResubmitAfterFailure(t *testing.T) {
	f := newFixture(t, testbackend.DefaultAccounts())
	f.backend.FailNext("POST /transactions", 503, "")
	f.fill(t, transaction.Deposit, "1001", "10.00", "")

	st, _ := f.ctrl.Submit(context.Background())
	require.IsType(t, transaction.Failed{}, st)

	st, err := f.ctrl.Submit(context.Background())

	require.NoError(t, err)
	assert.IsType(t, transaction.Succeeded{}, st)
}

func TestStaleDestinationIsKeptOnTypeChange(t *testing.T) {
	f := newFixture(t, testbackend.DefaultAccounts())
	f.fill(t, transaction.Transfer, "1001", "10.00", "1002")

	require.NoError(t, f.ctrl.SetType(transaction.Deposit))
	assert.Equal(t, "1002", f.ctrl.Values().Destination)

	st, err := f.ctrl.Submit(context.Background())

	require.NoError(t, err)
	assert.IsType(t, transaction.Succeeded{}, st)
	p, _ := f.backend.LastSubmission()
	assert.Empty(t, p.DestinationAccount)
}

func TestClearDestinationOnTypeChangeOption(t *testing.T) {
	f := newFixture(t, testbackend.DefaultAccounts(), transaction.WithClearDestinationOnTypeChange())
	f.fill(t, transaction.Transfer, "1001", "10.00", "1002")

	require.NoError(t, f.ctrl.SetType(transaction.Withdrawal))

	assert.Empty(t, f.ctrl.Values().Destination)
}

type aliases map[string]string

func (a aliases) ResolveAlias(alias string) (string, bool) {
	n, ok := a[alias]
	return n, ok
}

func TestTransferToFavoriteAlias(t *testing.T) {
	f := newFixture(t, testbackend.DefaultAccounts(), transaction.WithFavorites(aliases{"Tienda": "1002"}))
	f.fill(t, transaction.Transfer, "1001", "25.00", "Tienda")

	st, err := f.ctrl.Submit(context.Background())

	require.NoError(t, err)
	assert.IsType(t, transaction.Succeeded{}, st)
	p, _ := f.backend.LastSubmission()
	assert.Equal(t, "1002", p.DestinationAccount)
}

func TestSubmitWithoutActiveSession(t *testing.T) {
	ctrl := transaction.NewController(nil, nil, nil, nil)

	_, err := ctrl.Submit(context.Background())

	assert.ErrorIs(t, err, transaction.ErrNoSession)
}

type blockingSubmitter struct {
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func (b *blockingSubmitter) Submit(ctx context.Context, req transaction.Request) (transaction.Confirmation, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()

	<-b.release
	return transaction.Confirmation{ID: "tx-1", Type: req.Type, Amount: req.Amount}, nil
}

type staticAccounts []account.Account

func (s staticAccounts) ResolveExact(term string) (account.Account, bool) {
	for _, a := range s {
		if a.Number == term {
			return a, true
		}
	}
	return account.Account{}, false
}

func (staticAccounts) Refresh(context.Context) {}

func TestOnlyOneSubmissionInFlight(t *testing.T) {
	sub := &blockingSubmitter{release: make(chan struct{})}
	s := session.New(testbackend.Operator, "token", time.Time{}, bankapi.NewClient(bankapi.Config{}))
	ctrl := transaction.NewController(s, staticAccounts{{Number: "1001", Type: account.Savings}}, sub, nil)
	require.NoError(t, ctrl.SetType(transaction.Deposit))
	require.NoError(t, ctrl.SetSource("1001"))
	require.NoError(t, ctrl.SetAmount("5"))

	done := make(chan transaction.State)
	go func() {
		st, _ := ctrl.Submit(context.Background())
		done <- st
	}()

	assert.Eventually(t, func() bool {
		_, ok := ctrl.State().(transaction.Submitting)
		return ok
	}, time.Second, time.Millisecond)

	_, err := ctrl.Submit(context.Background())
	assert.ErrorIs(t, err, transaction.ErrSubmissionInFlight)
	assert.ErrorIs(t, ctrl.SetAmount("6"), transaction.ErrSubmissionInFlight)

	close(sub.release)
	st := <-done

	assert.IsType(t, transaction.Succeeded{}, st)
	assert.Equal(t, 1, sub.calls)
}

func TestLifecycleTransitions(t *testing.T) {
	var seen []string
	hook := transaction.WithStateHook(func(_, to transaction.State) {
		seen = append(seen, transaction.Name(to))
	})
	f := newFixture(t, testbackend.DefaultAccounts(), hook)
	f.fill(t, transaction.Deposit, "1001", "1.00", "")
	seen = nil

	_, err := f.ctrl.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"validating", "submitting", "succeeded"}, seen)
}

func TestSubmissionPropertyRoundTrip(t *testing.T) {
	f := newFixture(t, testbackend.DefaultAccounts())

	steps := []struct {
		typ         transaction.Type
		source      string
		amount      string
		destination string
	}{
		{typ: transaction.Deposit, source: "1002", amount: "20.50"},
		{typ: transaction.Transfer, source: "1001", amount: "100.00", destination: "1002"},
		{typ: transaction.Withdrawal, source: "1002", amount: "0.50"},
	}

	for _, s := range steps {
		f.fill(t, s.typ, s.source, s.amount, s.destination)
		st, err := f.ctrl.Submit(context.Background())
		require.NoError(t, err)
		require.IsType(t, transaction.Succeeded{}, st)
		f.accounts.Wait()
	}

	a1001, _ := f.accounts.ResolveExact("1001")
	a1002, _ := f.accounts.ResolveExact("1002")
	assert.Equal(t, int64(40000), a1001.Balance)
	assert.Equal(t, int64(22000), a1002.Balance)
}
