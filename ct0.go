package twitter

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// GenerateCT0 generates a random 32-byte hex string for use as a ct0 CSRF token.
func GenerateCT0() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// ct0MaxAge is the maximum age of a ct0 token before proactive rotation.
const ct0MaxAge = 4 * time.Hour

// cookieFromHeaders finds a cookie value in a set-cookie response header.
func cookieFromHeaders(headers map[string]string, name string) string {
	prefix := name + "="
	for _, part := range strings.Split(headers["set-cookie"], ";") {
		part = strings.TrimSpace(part)
		// several cookies may be folded into one header
		if i := strings.LastIndex(part, ", "); i >= 0 && !strings.HasPrefix(part, prefix) {
			part = part[i+2:]
		}
		if v, ok := strings.CutPrefix(part, prefix); ok && v != "" {
			return v
		}
	}
	return ""
}
