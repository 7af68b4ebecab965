package twitter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrConfiguration reports conflicting or forbidden options. It is
	// returned before any request is made and is never worth retrying.
	ErrConfiguration = errors.New("twitter: invalid configuration")

	// ErrNotFound reports a missing resource: a 404 from the feed or a
	// selector that matched nothing.
	ErrNotFound = errors.New("twitter: not found")

	// ErrConversion reports a Markup value that holds no known input kind.
	ErrConversion = errors.New("twitter: cannot convert markup")

	// ErrRateLimited reports a 429 response.
	ErrRateLimited = errors.New("twitter: rate limited")
)

// HTTPError is a non-200 response from the feed.
type HTTPError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s HTTP %d: %s", e.Endpoint, e.Status, e.Body)
}

// Unwrap maps well-known statuses onto the package sentinels.
func (e *HTTPError) Unwrap() error {
	switch e.Status {
	case 404:
		return ErrNotFound
	case 429:
		return ErrRateLimited
	}
	return nil
}

// retryable reports whether the transport may try the request again.
func (e *HTTPError) retryable() bool {
	return e.Status == 429 || e.Status >= 500
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// errorClass categorizes Twitter error payloads for targeted handling.
type errorClass int

const (
	errNone          errorClass = iota
	errBanned                   // 88: rate limit abuse
	errSuspended                // 64: account suspended
	errLocked                   // 326: account locked (captcha needed)
	errCSRF                     // 353: csrf token mismatch
	errAuthExpired              // 32: could not authenticate
	errBlocked                  // 161: blocked from performing action
	errNotAuthorized            // 179, 219: not authorized
	errInternal                 // 131: Twitter internal error
)

func (c errorClass) String() string {
	switch c {
	case errBanned:
		return "banned"
	case errSuspended:
		return "suspended"
	case errLocked:
		return "locked"
	case errCSRF:
		return "csrf"
	case errAuthExpired:
		return "auth_expired"
	case errBlocked:
		return "blocked"
	case errNotAuthorized:
		return "not_authorized"
	case errInternal:
		return "internal"
	}
	return "none"
}

// classifyError inspects a response body for known Twitter error codes.
// The legacy /i/ endpoints answer errors with the same {"errors":[...]}
// envelope as the API, so HTML bodies simply classify as errNone.
func classifyError(body []byte) errorClass {
	var errResp struct {
		Errors []struct {
			Code int `json:"code"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &errResp) != nil || len(errResp.Errors) == 0 {
		return errNone
	}

	for _, e := range errResp.Errors {
		switch e.Code {
		case 88:
			return errBanned
		case 64:
			return errSuspended
		case 326:
			return errLocked
		case 353:
			return errCSRF
		case 32:
			return errAuthExpired
		case 161:
			return errBlocked
		case 179, 219:
			return errNotAuthorized
		case 131:
			return errInternal
		}
	}
	return errNone
}

// parseRateLimitReset parses the x-rate-limit-reset unix timestamp header.
// Falls back to 15 minutes from now if missing or invalid.
func parseRateLimitReset(v string) time.Time {
	if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(ts, 0)
	}
	return time.Now().Add(15 * time.Minute)
}
