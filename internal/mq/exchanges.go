package mq

import (
	"github.com/streadway/amqp"
)

const (
	NotificationsExchange = "teller-notifications"
	kind                  = "topic"
)

type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
}

func DeclareNotifications(ch Declarer) error {
	return ch.ExchangeDeclare(NotificationsExchange, kind, true, false, false, false, nil)
}
