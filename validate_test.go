package twitter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTweet() *Tweet {
	return &Tweet{
		ID:        "1000",
		UserID:    "42",
		Username:  "alice",
		Timestamp: time.Date(2016, 9, 25, 13, 26, 0, 0, time.UTC),
		Content: Content{
			Text:           "hi ${@0} ${#0} ${$0} ${:0}",
			URLs:           []string{"https://example.com"},
			Hashtags:       []string{"golang"},
			Cashtags:       []string{"AAPL"},
			MentionIDs:     []string{"7"},
			MentionHandles: []string{"bob"},
		},
		HTML:        "<div></div>",
		LastUpdated: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestValidateTweet(t *testing.T) {
	fixedNow(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, ValidateTweet(validTweet()))

	tests := []struct {
		name   string
		mutate func(*Tweet)
	}{
		{"non numeric id", func(tw *Tweet) { tw.ID = "12a" }},
		{"long handle", func(tw *Tweet) { tw.Username = "a_very_long_handle_x" }},
		{"before first tweet", func(tw *Tweet) { tw.Timestamp = time.Date(2006, 1, 1, 0, 0, 0, 0, time.UTC) }},
		{"in the future", func(tw *Tweet) { tw.Timestamp = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }},
		{"upper-case hashtag", func(tw *Tweet) { tw.Content.Hashtags = []string{"GoLang"} }},
		{"long cashtag", func(tw *Tweet) { tw.Content.Cashtags = []string{"ABCDEFG"} }},
		{"unpaired mentions", func(tw *Tweet) { tw.Content.MentionHandles = []string{"bob", "carol"} }},
		{"dangling placeholder", func(tw *Tweet) { tw.Content.Text += " ${#1}" }},
		{"bad quoted id", func(tw *Tweet) { tw.QuotedID = "x" }},
		{"negative stat", func(tw *Tweet) { tw.Stats.Likes = -1 }},
		{"empty html", func(tw *Tweet) { tw.HTML = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := validTweet()
			tt.mutate(tw)
			assert.Error(t, ValidateTweet(tw))
			assert.False(t, IsValidTweet(tw))
		})
	}
}

func TestValidateTweet_EscapedPlaceholder(t *testing.T) {
	fixedNow(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	tw := validTweet()
	tw.Content.Text += ` \${#9}`
	assert.NoError(t, ValidateTweet(tw))
}

func TestValidateTweet_LiteralPlaceholderText(t *testing.T) {
	fixedNow(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	c, err := ExtractContent(FromString(`<p>literal ${#0} and ${#3} pay $<strong>{@0}</strong></p>`), "p")
	require.NoError(t, err)
	tw := validTweet()
	tw.Content = c
	assert.NoError(t, ValidateTweet(tw))
}

func TestValidateTweet_Parsed(t *testing.T) {
	tweet, err := ParseTweet(FromString(sampleTweet), "")
	require.NoError(t, err)
	assert.NoError(t, ValidateTweet(tweet))
}

func TestValidateProfile(t *testing.T) {
	p, err := ParseProfile(FromString(sampleProfileCard))
	require.NoError(t, err)
	require.NoError(t, ValidateProfile(p))

	p.UserID = ""
	assert.Error(t, ValidateProfile(p))
	assert.Error(t, ValidateProfile(nil))
}

func TestValidateFullProfile(t *testing.T) {
	p, err := ParseFullProfile(FromString(sampleProfilePage))
	require.NoError(t, err)
	require.NoError(t, ValidateFullProfile(p))

	p.Color = "blue"
	assert.Error(t, ValidateFullProfile(p))
}
