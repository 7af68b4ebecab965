package twitter

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// firstTweet is the creation time of the first tweet; nothing earlier exists.
var firstTweet = time.Date(2006, time.March, 21, 0, 0, 0, 0, time.UTC)

var (
	numericIDRe    = regexp.MustCompile(`^[0-9]+$`)
	handleRe       = regexp.MustCompile(`^\w{1,15}$`)
	hashtagRe      = regexp.MustCompile(`^[\p{Ll}\p{Lo}\p{Lm}\p{M}\p{Nd}_]*[\p{Ll}\p{Lo}\p{Lm}\p{M}_][\p{Ll}\p{Lo}\p{Lm}\p{M}\p{Nd}_]*$`)
	cashtagRe      = regexp.MustCompile(`^([a-zA-Z]+[a-zA-Z_]*)?[a-zA-Z]+$`)
	profileColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	placeholderRe  = regexp.MustCompile(`(\\?)\$\{([#@$:])([0-9]+)\}`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	matches := func(re *regexp.Regexp) validator.Func {
		return func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		}
	}
	must(v.RegisterValidation("numeric_id", matches(numericIDRe)))
	must(v.RegisterValidation("handle", matches(handleRe)))
	must(v.RegisterValidation("hashtag", matches(hashtagRe)))
	must(v.RegisterValidation("cashtag", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return len(s) <= 6 && cashtagRe.MatchString(s)
	}))
	must(v.RegisterValidation("profile_color", matches(profileColorRe)))
	must(v.RegisterValidation("tweet_time", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && !t.Before(firstTweet) && !t.After(now())
	}))
	must(v.RegisterValidation("not_future", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && !t.IsZero() && !t.After(now())
	}))

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		c := sl.Current().Interface().(Content)
		if len(c.MentionIDs) != len(c.MentionHandles) {
			sl.ReportError(c.MentionIDs, "MentionIDs", "MentionIDs", "mentions_paired", "")
		}
		checkPlaceholders(sl, c.Text, len(c.Hashtags), len(c.MentionHandles), len(c.Cashtags), len(c.URLs))
	}, Content{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		c := sl.Current().Interface().(BioContent)
		checkPlaceholders(sl, c.Text, len(c.Hashtags), len(c.MentionHandles), len(c.Cashtags), len(c.URLs))
	}, BioContent{})
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// checkPlaceholders reports every placeholder in text whose index has no
// entry in the slice of its kind. Escaped \${ sequences are literal text.
func checkPlaceholders(sl validator.StructLevel, text string, hashtags, mentions, cashtags, urls int) {
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		if m[1] != "" {
			continue
		}
		idx, err := strconv.Atoi(m[3])
		if err != nil {
			sl.ReportError(text, "Text", "Text", "placeholder", m[0])
			continue
		}
		var n int
		switch m[2] {
		case "#":
			n = hashtags
		case "@":
			n = mentions
		case "$":
			n = cashtags
		case ":":
			n = urls
		}
		if idx >= n {
			sl.ReportError(text, "Text", "Text", "placeholder", m[0])
		}
	}
}

// ValidateTweet checks a scraped tweet for well-formed ids, handles,
// entities and timestamps. It fits StreamOptions.Valid via IsValidTweet.
func ValidateTweet(t *Tweet) error {
	if t == nil {
		return fmt.Errorf("invalid tweet: nil")
	}
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid tweet %s: %w", t.ID, err)
	}
	return nil
}

// ValidateProfile checks a scraped profile.
func ValidateProfile(p *Profile) error {
	if p == nil {
		return fmt.Errorf("invalid profile: nil")
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid profile %s: %w", p.Username, err)
	}
	return nil
}

// ValidateFullProfile checks a full profile, including join date and colour.
func ValidateFullProfile(p *FullProfile) error {
	if p == nil {
		return fmt.Errorf("invalid profile: nil")
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid profile %s: %w", p.Username, err)
	}
	return nil
}

// IsValidTweet reports whether ValidateTweet accepts t.
func IsValidTweet(t *Tweet) bool {
	return ValidateTweet(t) == nil
}
