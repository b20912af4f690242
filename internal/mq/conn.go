package mq

import (
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

type Config struct {
	User string
	Pass string
	Host string
	Port int
}

type Conn struct {
	Connection *amqp.Connection
	Channel    *amqp.Channel
}

func NewConnection(cfg Config) (Conn, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.User, cfg.Pass, cfg.Host, cfg.Port)

	log.Info("connecting to mq")
	conn, err := amqp.Dial(url)
	if err != nil {
		return Conn{}, errors.Wrap(err, "dial mq")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return Conn{}, errors.Wrap(err, "open mq channel")
	}

	log.Info("connected to mq")
	return Conn{Connection: conn, Channel: ch}, nil
}

func (c Conn) Close() error {
	if c.Channel != nil {
		if err := c.Channel.Close(); err != nil {
			log.Warnf("error closing mq channel: %v", err)
		}
	}
	if c.Connection != nil {
		return c.Connection.Close()
	}
	return nil
}
