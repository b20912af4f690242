package notification

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type Kind string

const (
	Success Kind = "success"
	Failure Kind = "error"
	Info    Kind = "info"
)

type Notification struct {
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Operator  string    `json:"operator,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type Logger struct{}

func (Logger) Notify(_ context.Context, n Notification) error {
	entry := log.WithFields(log.Fields{
		"kind":     n.Kind,
		"title":    n.Title,
		"operator": n.Operator,
	})

	if n.Kind == Failure {
		entry.Warn(n.Message)
	} else {
		entry.Info(n.Message)
	}
	return nil
}

type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, n Notification) error {
	var first error
	for _, notifier := range f {
		if err := notifier.Notify(ctx, n); err != nil {
			log.WithError(err).WithField("kind", n.Kind).Warn("failed to deliver notification")
			if first == nil {
				first = err
			}
		}
	}
	return first
}

type Inbox struct {
	mu    sync.Mutex
	items []Notification
}

func (i *Inbox) Notify(_ context.Context, n Notification) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.items = append(i.items, n)
	return nil
}

func (i *Inbox) Drain() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.items
	i.items = nil
	return out
}
