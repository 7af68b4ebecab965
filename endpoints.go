package twitter

import "strings"

const (
	defaultBaseURL = "https://twitter.com"
	twitterAPIURL  = "https://api.twitter.com"
)

// BearerToken is the public web-app token the onboarding API expects during
// login. The legacy HTML feed itself only needs session cookies.
const BearerToken = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"

// Endpoint names used for per-account rate limiting and metrics.
const (
	EndpointTimeline     = "timeline"
	EndpointSearch       = "search"
	EndpointFeed         = "feed"
	EndpointTweet        = "tweet"
	EndpointProfilePopup = "profile_popup"
	EndpointProfilePage  = "profile_page"
	EndpointIntentUser   = "intent_user"
)

const (
	searchPath = "/search/timeline"
	popupPath  = "/i/profiles/popup"
	statusPath = "/i/web/status/"
	intentPath = "/intent/user"
)

// timelinePath is the feed path of a user's tweets, relative to /i.
func timelinePath(username string) string {
	return "/profiles/show/" + username + "/timeline/tweets"
}

// endpointFor names the feed endpoint a paginated path belongs to.
func endpointFor(path string) string {
	switch {
	case path == searchPath:
		return EndpointSearch
	case strings.HasPrefix(path, "/profiles/show/") && strings.HasSuffix(path, "/timeline/tweets"):
		return EndpointTimeline
	}
	return EndpointFeed
}
