package twitter

import "time"

// Content is the text of a tweet or bio with its entities pulled out of line.
//
// Text holds placeholders of the form ${#n} (hashtag), ${@n} (mention),
// ${$n} (cashtag) and ${:n} (url), where n indexes the matching slice.
type Content struct {
	Text           string   `json:"text"`
	URLs           []string `json:"urls" validate:"dive,omitempty,url"`
	Hashtags       []string `json:"hashtags" validate:"dive,omitempty,hashtag"`
	Cashtags       []string `json:"cashtags" validate:"dive,omitempty,cashtag"`
	MentionIDs     []string `json:"mention_ids" validate:"dive,numeric_id"`
	MentionHandles []string `json:"mention_handles" validate:"dive,handle"`
}

// BioContent is Content without mention ids. Profile bios render every
// mention with a zero user id, so only the handles carry information.
type BioContent struct {
	Text           string   `json:"text"`
	URLs           []string `json:"urls" validate:"dive,omitempty,url"`
	Hashtags       []string `json:"hashtags" validate:"dive,omitempty,hashtag"`
	Cashtags       []string `json:"cashtags" validate:"dive,omitempty,cashtag"`
	MentionHandles []string `json:"mention_handles" validate:"dive,handle"`
}

// TweetStats are the engagement counters of a tweet at LastUpdated.
type TweetStats struct {
	Replies  int `json:"replies" validate:"min=0"`
	Retweets int `json:"retweets" validate:"min=0"`
	Likes    int `json:"likes" validate:"min=0"`
}

// Tweet is a single post scraped from the HTML feed.
type Tweet struct {
	ID        string    `json:"id" validate:"numeric_id"`
	UserID    string    `json:"user_id" validate:"numeric_id"`
	Username  string    `json:"username" validate:"handle"`
	Timestamp time.Time `json:"timestamp" validate:"tweet_time"`
	Content   Content   `json:"content"`

	// ConversationID is the root tweet of the thread, empty when unknown.
	ConversationID string `json:"conversation_id,omitempty" validate:"omitempty,numeric_id"`
	// QuotedID is the id of the quoted tweet, empty when nothing is quoted.
	QuotedID string `json:"quoted_id,omitempty" validate:"omitempty,numeric_id"`

	HTML        string     `json:"html" validate:"required"`
	LastUpdated time.Time  `json:"last_updated" validate:"not_future"`
	Stats       TweetStats `json:"stats"`
}

// ProfileStats are the counters shown on a profile.
type ProfileStats struct {
	Tweets    int `json:"tweets" validate:"min=0"`
	Following int `json:"following" validate:"min=0"`
	Followers int `json:"followers" validate:"min=0"`
}

// Profile is the partial profile from the hover card popup.
type Profile struct {
	UserID      string       `json:"user_id" validate:"numeric_id"`
	Name        string       `json:"name" validate:"required"`
	Username    string       `json:"username" validate:"handle"`
	BannerURL   string       `json:"banner_url,omitempty" validate:"omitempty,url"`
	AvatarURL   string       `json:"avatar_url,omitempty" validate:"omitempty,url"`
	IsProtected bool         `json:"is_protected"`
	Bio         BioContent   `json:"bio"`
	LastUpdated time.Time    `json:"last_updated" validate:"not_future"`
	Stats       ProfileStats `json:"stats"`
	HTML        string       `json:"html" validate:"required"`
}

// FullProfile is the profile scraped from twitter.com/<username>.
type FullProfile struct {
	Profile

	JoinedAt   time.Time `json:"joined_at" validate:"tweet_time"`
	Location   string    `json:"location,omitempty"`
	WebsiteURL string    `json:"website_url,omitempty" validate:"omitempty,url"`
	// Color is the profile link colour as #RRGGBB.
	Color string `json:"color" validate:"profile_color"`
}

// Page is one raw response of the cursor-paginated HTML feed.
type Page struct {
	ItemsHTML   string `json:"items_html"`
	MinPosition string `json:"min_position"`
	MaxPosition string `json:"max_position"`
	// NewLatentCount is nil when the response carries no count hint.
	NewLatentCount *int `json:"new_latent_count"`
	// HasMoreItems is decoded but unreliable: it reads false while scraping
	// quickly even when more items exist.
	HasMoreItems bool `json:"has_more_items"`
}
