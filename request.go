package twitter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
)

const maxRetries = 3

// httpDoer is the part of *stealth.BrowserClient the client relies on.
type httpDoer interface {
	DoWithHeaderOrder(method, url string, headers map[string]string, body io.Reader, order []string) ([]byte, map[string]string, int, error)
	GetCookieValue(url, name string) string
}

// doGET executes a GET request with multi-account rotation, ct0 rotation,
// relogin and bounded retries. Without a usable account it goes anonymous.
func (c *Client) doGET(ctx context.Context, endpoint, rawURL string, xhr bool) ([]byte, error) {
	// Anti-fingerprint jitter
	if err := c.jitter(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			delay := c.backoff(attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, retry, err := c.attempt(ctx, c.nextAccount(endpoint), endpoint, rawURL, xhr)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
		slog.Debug("request failed, retrying",
			slog.String("endpoint", endpoint),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))
	}
	return nil, fmt.Errorf("%s failed after %d attempts: %w", endpoint, maxRetries, lastErr)
}

// nextAccount picks a pool account allowed to call endpoint, or nil.
func (c *Client) nextAccount(endpoint string) *Account {
	if c.pool == nil {
		return nil
	}
	acc, err := c.pool.Next(func(a *Account) bool { return a.usable(endpoint) })
	if err != nil {
		return nil
	}
	return acc
}

// attempt performs one request. retry reports whether a failed attempt may
// be repeated.
func (c *Client) attempt(ctx context.Context, acc *Account, endpoint, rawURL string, xhr bool) (body []byte, retry bool, err error) {
	bc := c.client
	var authTok, ct0, ua string
	if acc != nil {
		// Proactive ct0 rotation
		if acc.CT0Age() > ct0MaxAge {
			acc.RotateCT0()
			slog.Info("ct0 rotated (proactive)", slog.String("user", acc.Username))
			c.persist(acc)
		}
		bc = c.clientForAccount(acc)
		authTok, ct0, ua = acc.Credentials()
	}

	body, respHdrs, status, err := bc.DoWithHeaderOrder("GET", rawURL,
		pageHeaders(c.cfg.BaseURL, authTok, ct0, ua, xhr), nil, twitterHeaderOrder)
	if err != nil {
		c.recordAPICall(endpoint, false, false)
		if acc != nil {
			if acc.Proxy != "" && isProxyError(err) {
				c.markProxyDown(acc)
			} else {
				acc.RecordFailure()
			}
		}
		return nil, true, fmt.Errorf("%s: %w", endpoint, err)
	}

	if acc != nil {
		// Reset proxy consecutive failures on any HTTP response
		acc.mu.Lock()
		acc.proxyConsecFails = 0
		acc.mu.Unlock()
	}

	herr := &HTTPError{Endpoint: endpoint, Status: status, Body: truncateBytes(body, 200)}
	switch {
	case status == 429:
		c.recordAPICall(endpoint, false, true)
		if acc != nil {
			acc.MarkEndpointRateLimited(endpoint, parseRateLimitReset(respHdrs["x-rate-limit-reset"]))
		}
		return nil, true, herr

	case status == 401 || status == 403:
		c.recordAPICall(endpoint, false, false)
		if class := classifyError(body); acc != nil && class != errNone {
			return nil, true, c.handleAccountError(ctx, acc, class)
		}
		return nil, false, herr

	case status >= 500:
		c.recordAPICall(endpoint, false, false)
		slog.Warn("server error", slog.String("endpoint", endpoint), slog.Int("status", status))
		return nil, true, herr

	case status != 200:
		c.recordAPICall(endpoint, false, false)
		if acc != nil && status != 404 {
			c.recordAccountFailure(acc)
		}
		return nil, false, herr
	}

	// HTTP 200: the legacy feed may still carry an error envelope
	if class := classifyError(body); class != errNone {
		c.recordAPICall(endpoint, false, false)
		if acc == nil {
			return nil, true, fmt.Errorf("%s: twitter error (%s)", endpoint, class)
		}
		return nil, true, c.handleAccountError(ctx, acc, class)
	}

	if acc != nil {
		if newCT0 := cookieFromHeaders(respHdrs, "ct0"); newCT0 != "" && newCT0 != ct0 {
			acc.SetCT0(newCT0)
			c.persist(acc)
		}
		acc.RecordSuccess()
	}
	c.recordAPICall(endpoint, true, false)
	return body, false, nil
}

// handleAccountError applies the remedy for an account-level error class and
// returns the error that describes it. The caller retries with whatever
// account the pool hands out next.
func (c *Client) handleAccountError(ctx context.Context, acc *Account, class errorClass) error {
	switch class {
	case errCSRF:
		slog.Warn("CSRF error 353, rotating ct0", slog.String("user", acc.Username))
		acc.RotateCT0()
		c.persist(acc)
		return fmt.Errorf("csrf mismatch for %s", acc.Username)

	case errAuthExpired:
		slog.Warn("auth expired (code 32), attempting relogin", slog.String("user", acc.Username))
		if err := c.relogin(ctx, acc); err != nil {
			slog.Warn("relogin failed, soft-deactivating", slog.String("user", acc.Username), slog.Any("error", err))
			c.pool.SoftDeactivate(acc, c.cfg.AuthCooldown)
			return err
		}
		return fmt.Errorf("auth expired for %s", acc.Username)

	case errInternal:
		slog.Warn("error 131, retrying", slog.String("user", acc.Username))
		return fmt.Errorf("twitter internal error (131)")

	case errBanned:
		slog.Warn("account banned (code 88)", slog.String("user", acc.Username))
		c.pool.SoftDeactivate(acc, c.cfg.BanCooldown)
		return fmt.Errorf("account %s banned", acc.Username)

	case errSuspended:
		slog.Warn("account suspended (code 64), permanently deactivating", slog.String("user", acc.Username))
		c.pool.DeactivateItem(acc)
		return fmt.Errorf("account %s suspended", acc.Username)

	case errLocked:
		slog.Warn("account locked (code 326, captcha needed)", slog.String("user", acc.Username))
		if c.cfg.CaptchaSolver != nil {
			slog.Info("attempting CAPTCHA unlock via relogin", slog.String("user", acc.Username))
			err := c.relogin(ctx, acc)
			if err == nil {
				return fmt.Errorf("account %s was locked, relogged in", acc.Username)
			}
			slog.Warn("CAPTCHA unlock failed", slog.String("user", acc.Username), slog.Any("error", err))
		}
		c.pool.SoftDeactivate(acc, c.cfg.BanCooldown)
		return fmt.Errorf("account %s locked", acc.Username)
	}

	// errBlocked, errNotAuthorized
	slog.Warn("account error", slog.String("user", acc.Username), slog.String("class", class.String()))
	c.pool.SoftDeactivate(acc, c.cfg.AuthCooldown)
	return fmt.Errorf("account %s: %s", acc.Username, class)
}

// recordAccountFailure counts a failure and deactivates unhealthy accounts.
func (c *Client) recordAccountFailure(acc *Account) {
	if shouldDeactivate := acc.RecordFailure(); !shouldDeactivate {
		return
	}
	total, failed, consec := acc.Stats()
	slog.Warn("account unhealthy, deactivating",
		slog.String("user", acc.Username),
		slog.Int("total", total),
		slog.Int("failed", failed),
		slog.Int("consec", consec))
	c.pool.DeactivateItem(acc)
}

// persist saves the account's current session, logging failures.
func (c *Client) persist(acc *Account) {
	authTok, ct0, _ := acc.Credentials()
	if err := saveSession(c.cfg.SessionDir, acc.Username, authTok, ct0); err != nil {
		slog.Warn("session save failed", slog.String("user", acc.Username), slog.Any("error", err))
	}
}

// isProxyError returns true if the error looks like a proxy connectivity failure.
func isProxyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "proxy") ||
		strings.Contains(msg, "SOCKS") ||
		strings.Contains(msg, "tunnel") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host")
}

// markProxyDown applies exponential backoff for proxy failures.
func (c *Client) markProxyDown(acc *Account) {
	acc.mu.Lock()
	acc.proxyConsecFails++
	fails := acc.proxyConsecFails
	acc.mu.Unlock()

	duration := stealth.BackoffConfig{
		InitialWait: c.cfg.ProxyBackoffInitial,
		MaxWait:     c.cfg.ProxyBackoffMax,
		Multiplier:  2.0,
		JitterPct:   0.3,
	}.Duration(fails - 1)

	acc.mu.Lock()
	acc.proxyBackoff = time.Now().Add(duration)
	acc.mu.Unlock()

	slog.Warn("proxy down, backing off",
		slog.String("user", acc.Username),
		slog.String("proxy", stealth.MaskProxy(acc.Proxy)),
		slog.Int("consec_fails", fails),
		slog.Duration("backoff", duration))
}

func truncateBytes(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
