package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/url"
	"strings"
)

// ValidID reports whether id looks like a tweet or user id.
func ValidID(id string) bool {
	return numericIDRe.MatchString(id)
}

// TimelineOptions selects where a timeline walk starts. After walks towards
// newer tweets, Before towards older ones; at most one may be set.
type TimelineOptions struct {
	After  string
	Before string
}

// Timeline prepares a walk over a user's tweets, newest first unless After is
// set. Nothing is fetched until the first call to Next.
func (c *Client) Timeline(username string, opts TimelineOptions) (*Pagination, error) {
	if !handleRe.MatchString(username) {
		return nil, configErrorf("invalid username %q", username)
	}
	// timeline positions are plain tweet ids
	if opts.After != "" && !ValidID(opts.After) {
		return nil, configErrorf("invalid tweet id for after: %q", opts.After)
	}
	if opts.Before != "" && !ValidID(opts.Before) {
		return nil, configErrorf("invalid tweet id for before: %q", opts.Before)
	}
	return Paginate(c, timelinePath(username), PaginateOptions{
		InitialMin: opts.After,
		InitialMax: opts.Before,
		OnPage:     c.observePage,
	})
}

// SearchOptions configures a search.
type SearchOptions struct {
	// Top selects the most popular tweets instead of the latest.
	Top bool
	// FromID restricts the search to tweets older than this id.
	FromID string
	// Cursor resumes a previous search from its older end.
	Cursor string
	Stream StreamOptions
}

func (o SearchOptions) params(query string) (url.Values, error) {
	if strings.TrimSpace(query) == "" {
		return nil, configErrorf("empty search query")
	}
	if o.FromID != "" {
		if !ValidID(o.FromID) {
			return nil, configErrorf("invalid tweet id for from: %q", o.FromID)
		}
		query += " max_id:" + o.FromID
	}
	v := url.Values{}
	v.Set("q", query)
	if !o.Top {
		v.Set("f", "tweets")
	}
	v.Set("src", "typd")
	return v, nil
}

// SearchPages prepares a single walk over search results. cursor overrides
// opts.Cursor when set.
func (c *Client) SearchPages(query string, opts SearchOptions, cursor string) (*Pagination, error) {
	params, err := opts.params(query)
	if err != nil {
		return nil, err
	}
	if cursor == "" {
		cursor = opts.Cursor
	}
	return Paginate(c, searchPath, PaginateOptions{
		Params:     params,
		InitialMax: cursor,
		OnPage:     c.observePage,
	})
}

// Search streams search results, newest first, bounded and filtered by
// opts.Stream. Failed fetches are retried up to opts.Stream.MaxRetries times
// from the last cursor reached.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (iter.Seq2[*Tweet, error], error) {
	if _, err := opts.params(query); err != nil {
		return nil, err
	}
	stream := opts.Stream
	if stream.Backoff == nil {
		stream.Backoff = c.backoff
	}
	return Stream(ctx, func(cursor string) (*Pagination, error) {
		return c.SearchPages(query, opts, cursor)
	}, stream), nil
}

// GetTweet scrapes a single tweet by id.
func (c *Client) GetTweet(ctx context.Context, id string) (*Tweet, error) {
	if !ValidID(id) {
		return nil, configErrorf("invalid tweet id %q", id)
	}
	page, err := c.getPage(ctx, EndpointTweet, statusPath+id, nil, false)
	if err != nil {
		return nil, fmt.Errorf("get tweet %s: %w", id, err)
	}
	return ParseTweet(FromString(page), ".permalink-tweet")
}

// ProfileQuery names a user by exactly one of Username or UserID.
type ProfileQuery struct {
	Username string
	UserID   string
}

// GetProfile scrapes the hover-card profile of a user. The popup is served
// from the internal frontend API and is far less rate-limited than the
// profile page, but lacks the FullProfile fields.
func (c *Client) GetProfile(ctx context.Context, q ProfileQuery) (*Profile, error) {
	if (q.Username == "") == (q.UserID == "") {
		return nil, configErrorf("exactly one of username or user id must be set")
	}
	params := url.Values{}
	if q.Username != "" {
		params.Set("screen_name", q.Username)
	} else {
		params.Set("user_id", q.UserID)
	}
	body, err := c.getPage(ctx, EndpointProfilePopup, popupPath, params, true)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	var popup struct {
		HTML string `json:"html"`
	}
	if err := json.Unmarshal([]byte(body), &popup); err != nil {
		return nil, fmt.Errorf("decode profile popup: %w", err)
	}
	return ParseProfile(FromString(popup.HTML))
}

// GetFullProfile scrapes a user's profile page.
func (c *Client) GetFullProfile(ctx context.Context, username string) (*FullProfile, error) {
	if username == "" {
		return nil, configErrorf("username must be set")
	}
	page, err := c.getPage(ctx, EndpointProfilePage, "/"+username, nil, false)
	if err != nil {
		return nil, fmt.Errorf("get full profile %s: %w", username, err)
	}
	return ParseFullProfile(FromString(page))
}

// ScreenName resolves a user id to the user's current handle.
func (c *Client) ScreenName(ctx context.Context, userID string) (string, error) {
	if !ValidID(userID) {
		return "", configErrorf("invalid user id %q", userID)
	}
	page, err := c.getPage(ctx, EndpointIntentUser, intentPath, url.Values{"user_id": {userID}}, false)
	if err != nil {
		return "", fmt.Errorf("screen name of %s: %w", userID, err)
	}
	return parseScreenName(FromString(page))
}

// UserID resolves a handle to the user's id.
func (c *Client) UserID(ctx context.Context, screenName string) (string, error) {
	if screenName == "" {
		return "", configErrorf("screen name must be set")
	}
	page, err := c.getPage(ctx, EndpointProfilePage, "/"+screenName, nil, false)
	if err != nil {
		return "", fmt.Errorf("user id of %s: %w", screenName, err)
	}
	return parseUserID(FromString(page))
}
