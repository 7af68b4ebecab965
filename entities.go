package twitter

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	lowerCaser = cases.Lower(language.Und)
	upperCaser = cases.Upper(language.Und)
)

// ExtractContent rebuilds the text under the first element matched by
// selector, replacing hashtags, mentions, cashtags and links with
// placeholders that index into the returned slices. A selector matching
// nothing yields an empty Content.
func ExtractContent(m Markup, selector string) (Content, error) {
	sel, err := m.findFirst(selector)
	if err != nil {
		return Content{}, err
	}
	return walkEntities(sel), nil
}

// ExtractBioContent is ExtractContent for profile bios, which carry no
// usable mention ids.
func ExtractBioContent(m Markup, selector string) (BioContent, error) {
	c, err := ExtractContent(m, selector)
	if err != nil {
		return BioContent{}, err
	}
	return BioContent{
		Text:           c.Text,
		URLs:           c.URLs,
		Hashtags:       c.Hashtags,
		Cashtags:       c.Cashtags,
		MentionHandles: c.MentionHandles,
	}, nil
}

// walkEntities visits the direct children of sel in document order.
func walkEntities(sel *goquery.Selection) Content {
	c := Content{
		URLs:           []string{},
		Hashtags:       []string{},
		Cashtags:       []string{},
		MentionIDs:     []string{},
		MentionHandles: []string{},
	}
	if sel.Length() == 0 {
		return c
	}

	// raw holds the literal text since the last placeholder
	var text, raw strings.Builder
	flush := func() {
		text.WriteString(escapeText(raw.String()))
		raw.Reset()
	}
	sel.Contents().Each(func(_ int, el *goquery.Selection) {
		n := el.Get(0)
		switch {
		case n.Type == html.TextNode || (n.Type == html.ElementNode && n.Data == "strong"):
			// <strong> wraps words matching a search query
			raw.WriteString(el.Text())

		case n.Type != html.ElementNode:
			// comments and doctype nodes carry no text

		case n.Data == "img":
			// emojis are images keeping the character in alt
			if el.HasClass("Emoji") {
				raw.WriteString(el.AttrOr("alt", ""))
			}

		case n.Data == "a":
			switch {
			case el.HasClass("twitter-hashtag"):
				flush()
				writePlaceholder(&text, '#', len(c.Hashtags))
				c.Hashtags = append(c.Hashtags, lowerCaser.String(stripSigil(el.Text())))

			case el.HasClass("twitter-atreply"):
				flush()
				writePlaceholder(&text, '@', len(c.MentionIDs))
				c.MentionIDs = append(c.MentionIDs, el.AttrOr("data-mentioned-user-id", ""))
				c.MentionHandles = append(c.MentionHandles, stripSigil(el.Text()))

			case el.HasClass("twitter-cashtag"):
				flush()
				writePlaceholder(&text, '$', len(c.Cashtags))
				c.Cashtags = append(c.Cashtags, upperCaser.String(stripSigil(el.Text())))

			case el.HasClass("twitter-timeline-link") && !el.HasClass("u-hidden"):
				// hidden links belong to cards and media, not to the text
				flush()
				writePlaceholder(&text, ':', len(c.URLs))
				c.URLs = append(c.URLs, el.AttrOr("data-expanded-url", ""))
			}
		}
	})
	flush()
	c.Text = text.String()
	return c
}

func writePlaceholder(b *strings.Builder, kind byte, idx int) {
	b.WriteString("${")
	b.WriteByte(kind)
	b.WriteString(strconv.Itoa(idx))
	b.WriteByte('}')
}

// escapeText keeps raw text from being read as placeholder syntax: every
// "${" becomes `\${` and a trailing backslash becomes `\ `.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, "${", `\${`)
	if strings.HasSuffix(s, `\`) {
		s += " "
	}
	return s
}

// stripSigil drops the leading #, @ or $ of an entity anchor.
func stripSigil(s string) string {
	_, size := utf8.DecodeRuneInString(s)
	return s[size:]
}
