package twitter

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

// fixedNow pins the package clock for the duration of a test.
func fixedNow(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

const sampleTweet = `<div class="tweet js-stream-tweet" data-tweet-id="1000" data-user-id="42" data-screen-name="alice" data-conversation-id="999">` +
	`<span class="_timestamp" data-time-ms="1474810000000"></span>` +
	`<p class="tweet-text">Hello <a class="twitter-atreply" data-mentioned-user-id="7">@<b>bob</b></a> see <a class="twitter-hashtag">#<b>GoLang</b></a> and <a class="twitter-cashtag">$<b>aapl</b></a> <a class="twitter-timeline-link" data-expanded-url="https://example.com/x">example.com</a><a class="twitter-timeline-link u-hidden" data-expanded-url="https://pic.twitter.com/z">pic</a> <img class="Emoji" alt="🎉"></p>` +
	`<div class="QuoteTweet"><a class="QuoteTweet-link" data-conversation-id="555"></a></div>` +
	`<div class="ProfileTweet-action--reply"><span class="ProfileTweet-actionCount" data-tweet-stat-count="3"></span></div>` +
	`<div class="ProfileTweet-action--retweet"><span class="ProfileTweet-actionCount" data-tweet-stat-count="5"></span></div>` +
	`<div class="ProfileTweet-action--favorite"></div>` +
	`</div>`

// tweetFragment renders a minimal feed item with the given id.
func tweetFragment(id int) string {
	return fmt.Sprintf(`<li class="stream-item"><div class="tweet" data-tweet-id="%d" data-user-id="42" data-screen-name="alice">`+
		`<span class="_timestamp" data-time-ms="1474810000000"></span>`+
		`<p class="tweet-text">tweet %d</p></div></li>`, id, id)
}

// itemsHTML renders n feed items with consecutive ids starting at first.
func itemsHTML(first, n int) string {
	var b strings.Builder
	for i := range n {
		b.WriteString(tweetFragment(first + i))
	}
	return b.String()
}

func intPtr(n int) *int { return &n }
