package bankapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/tamasbrandstadter/teller/internal/web"
)

const (
	login             = "/auth/login"
	accounts          = "/accounts"
	accountHistory    = "/accounts/%s/transactions"
	users             = "/users"
	organizations     = "/organizations"
	transactions      = "/transactions"
	favorites         = "/users/%s/favorites"
	favoriteByAlias   = "/users/%s/favorites/%s"
	idempotencyHeader = "Idempotency-Key"
)

type Config struct {
	BaseURL            string
	Timeout            time.Duration
	LoadAttempts       uint
	LoadRetryDelay     time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

type Client struct {
	baseURL  string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	attempts uint
	delay    time.Duration
	token    string
}

func NewClient(cfg Config) *Client {
	if cfg.LoadAttempts == 0 {
		cfg.LoadAttempts = 1
	}
	if cfg.LoadRetryDelay == 0 {
		cfg.LoadRetryDelay = 200 * time.Millisecond
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}
	if cfg.BreakerOpenTimeout == 0 {
		cfg.BreakerOpenTimeout = 30 * time.Second
	}

	maxFailures := cfg.BreakerMaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "bankapi",
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})

	return &Client{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		http:     &http.Client{Timeout: cfg.Timeout},
		breaker:  cb,
		attempts: cfg.LoadAttempts,
		delay:    cfg.LoadRetryDelay,
	}
}

func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}, header http.Header) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
		body = b
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		for k, v := range header {
			req.Header[k] = v
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}

		// server side failures count against the breaker, rejections do not
		if resp.StatusCode >= http.StatusInternalServerError {
			defer closeBody(resp.Body)
			return nil, web.Decode(resp, nil)
		}

		return resp, nil
	})
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}

	resp := res.(*http.Response)
	defer closeBody(resp.Body)

	if err := web.Decode(resp, out); err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}

	return nil
}

func (c *Client) read(ctx context.Context, path string, out interface{}) error {
	return retry.Do(
		func() error {
			return c.do(ctx, http.MethodGet, path, nil, out, nil)
		},
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && IsTransient(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).Warnf("retrying %s, attempt %d", path, n+1)
		}),
	)
}

func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var re *web.ResponseError
	if errors.As(err, &re) {
		return re.Status >= http.StatusInternalServerError
	}

	var se *web.StatusError
	if errors.As(err, &se) {
		return se.Code >= http.StatusInternalServerError
	}

	var ue *url.Error
	return errors.As(err, &ue)
}

func closeBody(b io.ReadCloser) {
	if err := b.Close(); err != nil {
		log.WithError(errors.Wrap(err, "close response body")).Info("bankapi")
	}
}

func escape(s string) string {
	return url.PathEscape(s)
}
