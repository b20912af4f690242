package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/streadway/amqp"
	"github.com/tamasbrandstadter/teller/internal/mq"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	published  []published
	publishErr error
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.declared = append(f.declared, name+"/"+kind)
	return nil
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestPublisherPublishesToNotificationsExchange(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch)
	require.NoError(t, err)

	created := time.Now().UTC().Truncate(time.Second)
	n := Notification{Kind: Success, Title: "Depósito", Message: "DEPOSIT of GTQ50.00 completed", Operator: "adm-1", CreatedAt: created}

	require.NoError(t, p.Notify(context.Background(), n))

	assert.Equal(t, []string{mq.NotificationsExchange + "/topic"}, ch.declared)
	require.Len(t, ch.published, 1)

	got := ch.published[0]
	assert.Equal(t, mq.NotificationsExchange, got.exchange)
	assert.Equal(t, "teller.success", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	_, err = uuid.Parse(got.msg.MessageId)
	assert.NoError(t, err)

	var decoded Notification
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, n, decoded)
}

func TestPublisherWrapsPublishErrors(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	p, err := NewPublisher(ch)
	require.NoError(t, err)

	err = p.Notify(context.Background(), Notification{Kind: Failure})

	assert.EqualError(t, err, "publish to teller-notifications: channel closed")
}

type failing struct{}

func (failing) Notify(context.Context, Notification) error { return errors.New("boom") }

func TestFanoutDeliversToAllAndReturnsFirstError(t *testing.T) {
	var a, b Inbox
	f := Fanout{&a, failing{}, &b, Logger{}}

	err := f.Notify(context.Background(), Notification{Kind: Info, Message: "hello"})

	assert.EqualError(t, err, "boom")
	assert.Len(t, a.Drain(), 1)
	assert.Len(t, b.Drain(), 1)
}

func TestInboxDrain(t *testing.T) {
	var in Inbox
	_ = in.Notify(context.Background(), Notification{Message: "first"})
	_ = in.Notify(context.Background(), Notification{Message: "second"})

	got := in.Drain()

	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Message)
	assert.Empty(t, in.Drain())
}
