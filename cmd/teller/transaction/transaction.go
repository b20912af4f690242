package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Type string

const (
	Deposit    Type = "DEPOSIT"
	Transfer   Type = "TRANSFER"
	Withdrawal Type = "WITHDRAWAL"
)

var Types = []Type{Deposit, Transfer, Withdrawal}

func ParseType(s string) (Type, bool) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.Valid()
}

func (t Type) Valid() bool {
	switch t {
	case Deposit, Transfer, Withdrawal:
		return true
	}
	return false
}

func (t Type) NeedsDestination() bool {
	return t == Transfer
}

func (t Type) Label() string {
	switch t {
	case Deposit:
		return "Depósito"
	case Transfer:
		return "Transferencia"
	case Withdrawal:
		return "Retiro"
	default:
		return string(t)
	}
}

const (
	FieldType        = "transactionType"
	FieldSource      = "sourceAccount"
	FieldAmount      = "amount"
	FieldDestination = "destinationAccount"
)

type Request struct {
	Type               Type
	SourceAccount      string
	DestinationAccount string
	Amount             int64
	RequestedBy        string
}

type Confirmation struct {
	ID        string
	Type      Type
	Amount    int64
	CreatedAt time.Time
}

type FailureKind int

const (
	Rejection FailureKind = iota
	Transport
)

func (k FailureKind) String() string {
	if k == Rejection {
		return "rejection"
	}
	return "transport"
}

// Failure is the single shape every failed submission is reported in.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Message != "" {
		return f.Message
	}
	if f.Err != nil {
		return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
	}
	return f.Kind.String() + " failure"
}

func (f *Failure) Unwrap() error { return f.Err }

func (f *Failure) Cause() error { return f.Err }

type Submitter interface {
	Submit(ctx context.Context, req Request) (Confirmation, error)
}
