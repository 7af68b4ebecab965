package twitter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/pool"
)

// Client scrapes the legacy Twitter web frontend. It implements Fetcher.
type Client struct {
	client httpDoer
	pool   *pool.Pool[*Account]
	cfg    ClientConfig

	jitter  func(ctx context.Context) error
	backoff func(attempt int) time.Duration
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a fully-wired Twitter client. Accounts are logged in (or
// restored from saved sessions) up front; the ones that fail stay inactive.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts := []stealth.ClientOption{
		stealth.WithHeaderOrder(twitterHeaderOrder),
	}
	if cfg.DefaultProxy != "" {
		opts = append(opts, stealth.WithProxy(cfg.DefaultProxy))
	}
	bc, err := stealth.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("stealth client: %w", err)
	}

	c := newClient(cfg, bc)
	for _, acc := range c.cfg.Accounts {
		if acc.Proxy != "" {
			accClient, err := stealth.NewClient(
				stealth.WithProxy(acc.Proxy),
				stealth.WithProfile(acc.Profile.TLSProfile),
				stealth.WithHeaderOrder(twitterHeaderOrder),
			)
			if err != nil {
				slog.Warn("per-account client failed", slog.String("user", acc.Username), slog.Any("error", err))
			} else {
				acc.client = accClient
			}
		}
		c.activate(ctx, acc)
	}
	return c, nil
}

// newClient wires a client around doer without touching the network.
func newClient(cfg ClientConfig, doer httpDoer) *Client {
	cfg.defaults()

	for i, acc := range cfg.Accounts {
		acc.prepare(i, cfg.RateLimit)
	}

	poolCfg := pool.Config{
		AlertHook: func(topic string, payload any) {
			slog.Warn("pool alert", slog.String("topic", topic), slog.Any("payload", payload))
		},
		ProxyBackoff: pool.BackoffConfig{
			InitialWait: cfg.ProxyBackoffInitial,
			MaxWait:     cfg.ProxyBackoffMax,
			Multiplier:  2.0,
			JitterPct:   0.3,
		},
	}

	return &Client{
		client:  doer,
		pool:    pool.New(cfg.Accounts, poolCfg),
		cfg:     cfg,
		jitter:  stealth.DefaultJitter.Sleep,
		backoff: stealth.DefaultBackoff.Duration,
	}
}

// activate loads or logs in an account, deactivating it on failure.
func (c *Client) activate(ctx context.Context, acc *Account) {
	if err := c.loadOrLogin(ctx, acc, c.clientForAccount(acc)); err != nil {
		slog.Warn("account login failed", slog.String("user", acc.Username), slog.Any("error", err))
		acc.SetActive(false)
	}
}

// clientForAccount returns the per-account client if available, otherwise the shared client.
func (c *Client) clientForAccount(acc *Account) httpDoer {
	if acc.client != nil {
		return acc.client
	}
	return c.client
}

// Pool returns the underlying account pool.
func (c *Client) Pool() *pool.Pool[*Account] {
	return c.pool
}

// observePage calls the page hook with the endpoint name of a walk's path.
func (c *Client) observePage(path string, items int) {
	if c.cfg.PageHook != nil {
		c.cfg.PageHook(endpointFor(path), items)
	}
}

// recordAPICall calls the metrics hook if configured.
func (c *Client) recordAPICall(endpoint string, success, rateLimited bool) {
	if c.cfg.MetricsHook != nil {
		c.cfg.MetricsHook(endpoint, success, rateLimited)
	}
}
