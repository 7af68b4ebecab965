package twitter

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/pool"
	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// Account is a logged-in Twitter session the client can scrape with.
// Accounts are optional: without any, requests go out anonymously.
type Account struct {
	Username   string
	Password   string
	AuthToken  string
	CT0        string
	TOTPSecret string
	Proxy      string
	UserAgent  string
	Profile    stealth.BrowserProfile

	active       bool
	reactivateAt time.Time
	client       httpDoer

	mu               sync.Mutex
	ct0RefreshedAt   time.Time
	proxyBackoff     time.Time
	proxyConsecFails int
	rateLimiter      *ratelimit.Limiter

	pool.HealthTracker
}

// ID implements pool.Identity.
func (a *Account) ID() string { return a.Username }

// IsActive implements pool.Identity.
func (a *Account) IsActive() bool { return a.active }

// SetActive implements pool.Identity.
func (a *Account) SetActive(v bool) { a.active = v }

// ReactivateAt implements pool.Identity.
func (a *Account) ReactivateAt() time.Time { return a.reactivateAt }

// SetReactivateAt implements pool.Identity.
func (a *Account) SetReactivateAt(t time.Time) { a.reactivateAt = t }

// CT0Age returns the time since the ct0 token was last refreshed.
func (a *Account) CT0Age() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ct0RefreshedAt.IsZero() {
		return 24 * time.Hour
	}
	return time.Since(a.ct0RefreshedAt)
}

// RotateCT0 generates a fresh ct0 token and updates the refresh timestamp.
func (a *Account) RotateCT0() {
	a.SetCT0(GenerateCT0())
}

// SetCT0 updates the ct0 from a server response.
func (a *Account) SetCT0(ct0 string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.CT0 = ct0
	a.ct0RefreshedAt = time.Now()
}

// Credentials returns a snapshot of (authToken, ct0, userAgent) under lock.
func (a *Account) Credentials() (authToken, ct0, userAgent string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.AuthToken, a.CT0, a.UserAgent
}

// SetCredentials atomically updates auth_token and ct0.
func (a *Account) SetCredentials(authToken, ct0 string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.AuthToken = authToken
	a.CT0 = ct0
	a.ct0RefreshedAt = time.Now()
}

// usable reports whether the account may take a request to endpoint now.
func (a *Account) usable(endpoint string) bool {
	a.mu.Lock()
	rl, backoff := a.rateLimiter, a.proxyBackoff
	a.mu.Unlock()
	if time.Now().Before(backoff) {
		return false
	}
	return rl == nil || rl.Allow(endpoint)
}

// MarkEndpointRateLimited marks an endpoint as rate-limited for this account.
func (a *Account) MarkEndpointRateLimited(endpoint string, until time.Time) {
	a.mu.Lock()
	rl := a.rateLimiter
	a.mu.Unlock()
	if rl != nil {
		rl.MarkRateLimited(endpoint, until)
	}
}

// EndpointAvailableAt returns when this account will be available for the given endpoint.
func (a *Account) EndpointAvailableAt(endpoint string) time.Time {
	a.mu.Lock()
	rl := a.rateLimiter
	a.mu.Unlock()
	if rl == nil {
		return time.Time{}
	}
	return rl.AvailableAt(endpoint)
}

// AssignBrowserProfile sets a browser profile based on index.
func AssignBrowserProfile(acc *Account, idx int) {
	p := stealth.BuiltinProfiles[idx%len(stealth.BuiltinProfiles)]
	acc.Profile = p
	acc.UserAgent = p.UserAgent
}

// ParseAccounts parses a comma-separated list of accounts.
// Format: "user1:pass1,user2:pass2" or "user1:pass1:auth_token:ct0,..."
// or "user1:pass1:auth_token:ct0:totp_secret,...".
func ParseAccounts(raw string) []*Account {
	var accounts []*Account
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 5)
		if len(parts) < 2 {
			slog.Warn("invalid account entry, skipping", slog.String("entry", entry))
			continue
		}
		acc := &Account{Username: parts[0], Password: parts[1]}
		if len(parts) >= 4 {
			acc.AuthToken = parts[2]
			acc.CT0 = parts[3]
		}
		if len(parts) >= 5 {
			acc.TOTPSecret = parts[4]
		}
		accounts = append(accounts, acc)
	}
	return accounts
}

// prepare readies an account for the pool: it is activated, given a browser
// profile unless one is set, and gets its own limiter and health tracker.
func (a *Account) prepare(idx int, cfg ratelimit.Config) {
	a.active = true
	if a.Profile.UserAgent == "" {
		ua := a.UserAgent
		AssignBrowserProfile(a, idx)
		if ua != "" {
			a.UserAgent = ua
		}
	}
	if a.AuthToken != "" && a.CT0 != "" && a.ct0RefreshedAt.IsZero() {
		a.ct0RefreshedAt = time.Now()
	}
	a.rateLimiter = ratelimit.NewLimiter(cfg)
	a.HealthTracker = pool.DefaultHealthTracker()
}
