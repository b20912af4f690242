package notification

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
	"github.com/tamasbrandstadter/teller/internal/mq"
)

type Channel interface {
	mq.Declarer
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Publisher struct {
	ch Channel
}

func NewPublisher(ch Channel) (*Publisher, error) {
	if err := mq.DeclareNotifications(ch); err != nil {
		return nil, errors.Wrap(err, "declare notifications exchange")
	}
	return &Publisher{ch: ch}, nil
}

func RouteKey(k Kind) string {
	return "teller." + string(k)
}

func (p *Publisher) Notify(_ context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "marshal notification")
	}

	err = p.ch.Publish(mq.NotificationsExchange, RouteKey(n.Kind), false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    uuid.New().String(),
		Timestamp:    n.CreatedAt,
		Body:         body,
		DeliveryMode: amqp.Transient,
	})
	if err != nil {
		return errors.Wrapf(err, "publish to %s", mq.NotificationsExchange)
	}
	return nil
}
