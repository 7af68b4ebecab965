package twitter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// now stamps LastUpdated on every extracted record.
var now = time.Now

// twitterTimeLayout matches titles like "1:26 PM - 25 Sep 2016".
const twitterTimeLayout = "3:04 PM - 2 Jan 2006"

var (
	bannerStyleRe = regexp.MustCompile(`background-image:\s*url\(['"]?([^'")]+)/[^/'")]+['"]?\)`)
	cssRuleRe     = regexp.MustCompile(`([^{}]+)\{([^{}]*)\}`)
)

// ParseTwitterTime parses the timestamp titles Twitter renders on profiles.
// The result is in UTC.
func ParseTwitterTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(twitterTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable date %q: %w", s, err)
	}
	return t, nil
}

// ParseTweet extracts the first tweet matched by selector, ".tweet" when
// selector is empty. It fails with ErrNotFound when nothing matches.
func ParseTweet(m Markup, selector string) (*Tweet, error) {
	if selector == "" {
		selector = ".tweet"
	}
	sel, err := m.findFirst(selector)
	if err != nil {
		return nil, err
	}
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: no tweet matches %q", ErrNotFound, selector)
	}

	content, err := ExtractContent(FromSelection(sel), ".tweet-text")
	if err != nil {
		return nil, fmt.Errorf("tweet content: %w", err)
	}

	var timestamp time.Time
	if ms, err := strconv.ParseInt(sel.Find("span._timestamp").AttrOr("data-time-ms", ""), 10, 64); err == nil {
		timestamp = time.UnixMilli(ms).UTC()
	}

	return &Tweet{
		ID:             sel.AttrOr("data-tweet-id", ""),
		UserID:         sel.AttrOr("data-user-id", ""),
		Username:       sel.AttrOr("data-screen-name", ""),
		Timestamp:      timestamp,
		Content:        content,
		ConversationID: sel.AttrOr("data-conversation-id", ""),
		QuotedID:       optionalAttr(sel, ".QuoteTweet-link", "data-conversation-id"),
		HTML:           outerHTML(sel),
		LastUpdated:    now(),
		Stats: TweetStats{
			Replies:  statCount(sel, ".ProfileTweet-action--reply"),
			Retweets: statCount(sel, ".ProfileTweet-action--retweet"),
			Likes:    statCount(sel, ".ProfileTweet-action--favorite"),
		},
	}, nil
}

// ParseProfile extracts the partial profile of a hover card popup.
func ParseProfile(m Markup) (*Profile, error) {
	sel, err := m.findFirst(".profile-card")
	if err != nil {
		return nil, err
	}
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: no profile card", ErrNotFound)
	}

	bio, err := ExtractBioContent(FromSelection(sel), ".bio")
	if err != nil {
		return nil, fmt.Errorf("profile bio: %w", err)
	}

	actions := sel.Find(".user-actions").First()
	stats := sel.Find(".ProfileCardStats-statValue")

	var banner string
	if match := bannerStyleRe.FindStringSubmatch(sel.Find(".ProfileCard-bg").AttrOr("style", "")); match != nil {
		// the plain url 404s for older accounts, 1500x500 is the largest size served
		banner = match[1] + "/1500x500"
	}

	avatar := avatarURL(sel.Find(".ProfileCard-avatarLink > img").AttrOr("src", ""))
	// "_bigger" is actually a smaller rendition of the original image
	avatar = strings.Replace(avatar, "_bigger", "", 1)

	return &Profile{
		UserID:      actions.AttrOr("data-user-id", ""),
		Name:        actions.AttrOr("data-name", ""),
		Username:    actions.AttrOr("data-screen-name", ""),
		BannerURL:   banner,
		AvatarURL:   avatar,
		IsProtected: actions.AttrOr("data-protected", "") == "true",
		Bio:         bio,
		LastUpdated: now(),
		Stats: ProfileStats{
			Tweets:    atoiOr(stats.Eq(0).AttrOr("data-count", ""), 0),
			Following: atoiOr(stats.Eq(1).AttrOr("data-count", ""), 0),
			Followers: atoiOr(stats.Eq(2).AttrOr("data-count", ""), 0),
		},
		HTML: outerHTML(sel),
	}, nil
}

// ParseFullProfile extracts the profile rendered on twitter.com/<username>.
func ParseFullProfile(m Markup) (*FullProfile, error) {
	sel, err := m.findFirst("#page-container")
	if err != nil {
		return nil, err
	}
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: no profile page container", ErrNotFound)
	}

	bio, err := ExtractBioContent(FromSelection(sel), ".ProfileHeaderCard-bio")
	if err != nil {
		return nil, fmt.Errorf("profile bio: %w", err)
	}

	joinedAt, err := ParseTwitterTime(sel.Find(".ProfileHeaderCard-joinDateText").AttrOr("title", ""))
	if err != nil {
		return nil, fmt.Errorf("profile join date: %w", err)
	}

	color, err := profileColor(sel.Find(`style[id^="user-style-"]`).First().Text())
	if err != nil {
		return nil, err
	}

	return &FullProfile{
		Profile: Profile{
			UserID:      sel.Find(".ProfileNav").AttrOr("data-user-id", ""),
			Name:        sel.Find(".ProfileHeaderCard-nameLink").Text(),
			Username:    sel.Find(".ProfileHeaderCard-screennameLink > span.username > b").Text(),
			BannerURL:   sel.Find(".ProfileCanopy-headerBg > img").AttrOr("src", ""),
			AvatarURL:   avatarURL(sel.Find(".ProfileAvatar-image").AttrOr("src", "")),
			IsProtected: sel.Find(".ProfileHeaderCard-badges > a > .Icon--protected").Length() == 1,
			Bio:         bio,
			LastUpdated: now(),
			Stats: ProfileStats{
				Tweets:    atoiOr(sel.Find(".ProfileNav-item--tweets [data-count]").AttrOr("data-count", ""), 0),
				Following: atoiOr(sel.Find(".ProfileNav-item--following [data-count]").AttrOr("data-count", ""), 0),
				Followers: atoiOr(sel.Find(".ProfileNav-item--followers [data-count]").AttrOr("data-count", ""), 0),
			},
			HTML: outerHTML(sel),
		},
		JoinedAt:   joinedAt,
		Location:   strings.TrimSpace(sel.Find(".ProfileHeaderCard-locationText").Text()),
		WebsiteURL: optionalAttr(sel, ".ProfileHeaderCard-urlText > a", "title"),
		Color:      color,
	}, nil
}

// parseScreenName reads the handle from the /intent/user page.
func parseScreenName(m Markup) (string, error) {
	sel, err := m.findFirst("span.nickname")
	if err != nil {
		return "", err
	}
	name := stripSigil(strings.TrimSpace(sel.Text()))
	if name == "" {
		return "", fmt.Errorf("%w: no screen name on intent page", ErrNotFound)
	}
	return name, nil
}

// parseUserID reads the numeric user id from a profile page.
func parseUserID(m Markup) (string, error) {
	sel, err := m.findFirst("div.ProfileNav")
	if err != nil {
		return "", err
	}
	id := sel.AttrOr("data-user-id", "")
	if id == "" {
		return "", fmt.Errorf("%w: no user id on profile page", ErrNotFound)
	}
	return id, nil
}

// profileColor finds the link colour in the user stylesheet: the first
// declaration of the first rule whose selector list contains "a".
func profileColor(css string) (string, error) {
	for _, rule := range cssRuleRe.FindAllStringSubmatch(css, -1) {
		isLink := false
		for _, s := range strings.Split(rule[1], ",") {
			if strings.TrimSpace(s) == "a" {
				isLink = true
				break
			}
		}
		if !isLink {
			continue
		}
		decl, _, _ := strings.Cut(rule[2], ";")
		_, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		return strings.TrimSpace(value), nil
	}
	return "", fmt.Errorf("%w: no link colour in user style", ErrNotFound)
}

// optionalAttr returns attr of the first element matching selector under
// sel, or "" when there is no such element or attribute.
func optionalAttr(sel *goquery.Selection, selector, attr string) string {
	found := sel.Find(selector).First()
	if found.Length() == 0 {
		return ""
	}
	return found.AttrOr(attr, "")
}

// statCount reads a [data-tweet-stat-count] counter below the action
// element, 0 when the counter is missing.
func statCount(sel *goquery.Selection, action string) int {
	return atoiOr(optionalAttr(sel, action+" [data-tweet-stat-count]", "data-tweet-stat-count"), 0)
}

// avatarURL drops the placeholder image served for accounts without one.
func avatarURL(src string) string {
	if src == "" || strings.Contains(src, "default_profile") {
		return ""
	}
	return src
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
