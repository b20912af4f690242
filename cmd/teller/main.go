package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/teller/cmd/teller/directory"
	"github.com/tamasbrandstadter/teller/cmd/teller/favorite"
	"github.com/tamasbrandstadter/teller/cmd/teller/gateway"
	"github.com/tamasbrandstadter/teller/cmd/teller/notification"
	"github.com/tamasbrandstadter/teller/cmd/teller/prompt"
	"github.com/tamasbrandstadter/teller/cmd/teller/registration"
	"github.com/tamasbrandstadter/teller/cmd/teller/session"
	"github.com/tamasbrandstadter/teller/cmd/teller/transaction"
	"github.com/tamasbrandstadter/teller/internal/bankapi"
	"github.com/tamasbrandstadter/teller/internal/cache"
	"github.com/tamasbrandstadter/teller/internal/env"
	"github.com/tamasbrandstadter/teller/internal/mq"
)

func main() {
	log.SetFormatter(&log.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})

	if err := run(); err != nil {
		log.Errorf("teller: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envCfg, err := env.GetEnvCfg()
	if err != nil {
		return errors.Wrap(err, "parse env vars")
	}

	api := bankapi.NewClient(bankapi.Config{
		BaseURL:            envCfg.APIBaseURL,
		Timeout:            envCfg.RequestTimeout,
		LoadAttempts:       envCfg.LoadAttempts,
		LoadRetryDelay:     envCfg.LoadRetryDelay,
		BreakerMaxFailures: envCfg.BreakerMaxFailures,
		BreakerOpenTimeout: envCfg.BreakerOpenTimeout,
	})

	var store session.Store = cache.NewLocal()
	if envCfg.RedisEnabled() {
		r, err := cache.NewConnection(cache.Config{Host: envCfg.RedisHost, Pass: envCfg.RedisPass, Port: envCfg.RedisPort})
		if err != nil {
			log.Warnf("redis unavailable, sessions will not survive a restart: %v", err)
		} else {
			defer func() {
				if err := r.Close(); err != nil {
					log.Errorf("error closing redis: %v", err)
				}
			}()
			store = r.Sessions
		}
	}

	inbox := &notification.Inbox{}
	notifiers := notification.Fanout{notification.Logger{}, inbox}
	if envCfg.MQEnabled() {
		conn, err := mq.NewConnection(mq.Config{User: envCfg.MQUser, Pass: envCfg.MQPass, Host: envCfg.MQHost, Port: envCfg.MQPort})
		if err != nil {
			log.Warnf("mq unavailable, notifications stay local: %v", err)
		} else {
			defer func() {
				if err := conn.Close(); err != nil {
					log.Errorf("error closing mq: %v", err)
				}
			}()
			p, err := notification.NewPublisher(conn.Channel)
			if err != nil {
				log.Warnf("notifications exchange unavailable: %v", err)
			} else {
				notifiers = append(notifiers, p)
			}
		}
	}

	sessions := session.NewManager(api, store, envCfg.SessionTTL)

	for {
		s, err := login(ctx, sessions)
		if err != nil {
			return err
		}

		err = serve(ctx, envCfg, s, sessions, notifiers, inbox)
		if errors.Is(err, prompt.ErrLoggedOut) {
			continue
		}
		return err
	}
}

func login(ctx context.Context, sessions *session.Manager) (*session.Session, error) {
	s, err := sessions.Resume(ctx)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, session.ErrNoSession) && !errors.Is(err, session.ErrExpired) {
		log.Warnf("could not resume session: %v", err)
	}

	for {
		username, password, err := prompt.Login(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "login")
		}

		s, err := sessions.Login(ctx, username, password)
		if err == nil {
			return s, nil
		}
		log.Errorf("login failed: %v", err)
	}
}

func serve(ctx context.Context, envCfg env.Cfg, s *session.Session, sessions *session.Manager, notifier notification.Notifier, inbox *notification.Inbox) error {
	client := s.API()

	accounts := directory.Accounts(client)
	users := directory.Users(client)
	orgs := directory.Organizations(client)
	favorites := favorite.NewBook(client, s.OperatorID(), accounts)

	for name, load := range map[string]func(context.Context) error{
		"accounts":      accounts.Load,
		"users":         users.Load,
		"organizations": orgs.Load,
		"favorites":     favorites.Load,
	} {
		if err := load(ctx); err != nil {
			log.Warnf("%s not available: %v", name, err)
		}
	}

	opts := []transaction.Option{transaction.WithFavorites(favorites)}
	if envCfg.ClearDestinationOnTypeChange {
		opts = append(opts, transaction.WithClearDestinationOnTypeChange())
	}

	app := prompt.App{
		Session:       s,
		Sessions:      sessions,
		Accounts:      accounts,
		Users:         users,
		Organizations: orgs,
		Controller:    transaction.NewController(s, accounts, gateway.New(client, envCfg.SubmitTimeout), notifier, opts...),
		Favorites:     favorites,
		Registration:  registration.NewService(client, users, orgs, accounts),
		Inbox:         inbox,
		Out:           os.Stdout,
	}

	defer func() {
		accounts.Wait()
		users.Wait()
		orgs.Wait()
	}()

	return app.Run(ctx)
}
