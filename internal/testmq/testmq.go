package testmq

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/tamasbrandstadter/teller/internal/mq"
)

const (
	user = "guest"

	password = "guest"

	defaultPort = 5672
)

var ErrNoBroker = errors.New("APP_MQ_HOST not set")

func Open() (mq.Conn, error) {
	host := os.Getenv("APP_MQ_HOST")
	if host == "" {
		return mq.Conn{}, ErrNoBroker
	}

	port := defaultPort
	if p, err := strconv.Atoi(os.Getenv("APP_MQ_PORT")); err == nil {
		port = p
	}

	return mq.NewConnection(mq.Config{
		User: user,
		Pass: password,
		Host: host,
		Port: port,
	})
}
