package twitter

import stealth "github.com/anatolykoptev/go-stealth"

// defaultUserAgent is the fallback User-Agent when no per-account UA is set.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

const (
	acceptXHR  = "application/json, text/javascript, */*; q=0.01"
	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
)

// pageHeaders returns the headers of a browser request against the legacy
// web frontend. xhr selects the JSON feed variant the timeline scripts use.
// Anonymous requests pass an empty authToken and carry no cookies.
func pageHeaders(baseURL, authToken, ct0, userAgent string, xhr bool) map[string]string {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	h := map[string]string{
		"user-agent":      userAgent,
		"accept-language": "en-US,en;q=0.9",
		"accept-encoding": "gzip, deflate, br",
		"referer":         baseURL + "/",
	}
	if xhr {
		h["accept"] = acceptXHR
		h["x-requested-with"] = "XMLHttpRequest"
		h["x-twitter-active-user"] = "yes"
		h["sec-fetch-dest"] = "empty"
		h["sec-fetch-mode"] = "cors"
		h["sec-fetch-site"] = "same-origin"
	} else {
		h["accept"] = acceptHTML
		h["sec-fetch-dest"] = "document"
		h["sec-fetch-mode"] = "navigate"
		h["sec-fetch-site"] = "none"
	}
	if authToken != "" {
		h["cookie"] = "auth_token=" + authToken + "; ct0=" + ct0
		h["x-csrf-token"] = ct0
	}
	for k, v := range stealth.ClientHintsHeaders(userAgent) {
		h[k] = v
	}
	return h
}

// loginFlowHeaders returns headers required for the login flow API.
func loginFlowHeaders(guestToken, ct0 string) map[string]string {
	h := map[string]string{
		"authorization":             "Bearer " + BearerToken,
		"content-type":              "application/json",
		"x-guest-token":             guestToken,
		"x-twitter-active-user":     "yes",
		"x-twitter-client-language": "en",
		"user-agent":                defaultUserAgent,
		"accept":                    "*/*",
		"accept-language":           "en-US,en;q=0.9",
		"referer":                   "https://twitter.com/",
		"origin":                    "https://twitter.com",
	}
	if ct0 != "" {
		h["x-csrf-token"] = ct0
	}
	return h
}

// twitterHeaderOrder is the header order for TLS fingerprint consistency.
var twitterHeaderOrder = []string{
	"authorization",
	"content-type",
	"x-csrf-token",
	"x-guest-token",
	"x-requested-with",
	"x-twitter-active-user",
	"x-twitter-client-language",
	"sec-ch-ua",
	"sec-ch-ua-mobile",
	"sec-ch-ua-platform",
	"sec-fetch-dest",
	"sec-fetch-mode",
	"sec-fetch-site",
	"cookie",
	"user-agent",
	"accept",
	"accept-language",
	"accept-encoding",
	"referer",
	"origin",
}
