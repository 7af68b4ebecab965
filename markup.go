package twitter

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tdewolff/minify/v2"
	mhtml "github.com/tdewolff/minify/v2/html"
	"golang.org/x/net/html"
)

type markupKind int

const (
	markupInvalid markupKind = iota
	markupDocument
	markupSelection
	markupNode
	markupRaw
)

// Markup is the input of every extractor: an already-parsed document, an
// already-parsed node or selection, or raw HTML. Build one with FromDocument,
// FromSelection, FromNode or FromString; the zero value is rejected with
// ErrConversion.
type Markup struct {
	kind markupKind
	doc  *goquery.Document
	sel  *goquery.Selection
	node *html.Node
	raw  string
}

// FromDocument wraps a parsed document. Selectors search its descendants.
func FromDocument(doc *goquery.Document) Markup {
	return Markup{kind: markupDocument, doc: doc}
}

// FromSelection wraps a selection. Selectors search descendants of the
// selected elements, not the elements themselves.
func FromSelection(sel *goquery.Selection) Markup {
	return Markup{kind: markupSelection, sel: sel}
}

// FromNode wraps a single element. Selectors match the element itself as
// well as its descendants.
func FromNode(n *html.Node) Markup {
	return Markup{kind: markupNode, node: n}
}

// FromString wraps raw HTML, parsed on use.
func FromString(s string) Markup {
	return Markup{kind: markupRaw, raw: s}
}

// Find normalizes the markup to a selection and applies selector to it.
func (m Markup) Find(selector string) (*goquery.Selection, error) {
	switch m.kind {
	case markupDocument:
		if m.doc == nil {
			break
		}
		return m.doc.Find(selector), nil
	case markupSelection:
		if m.sel == nil {
			break
		}
		return m.sel.Find(selector), nil
	case markupNode:
		if m.node == nil {
			break
		}
		root := goquery.NewDocumentFromNode(m.node).Selection
		return root.Filter(selector).AddSelection(root.Find(selector)), nil
	case markupRaw:
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(m.raw))
		if err != nil {
			return nil, fmt.Errorf("%w: parse html: %v", ErrConversion, err)
		}
		return doc.Find(selector), nil
	}
	return nil, ErrConversion
}

// findFirst is Find narrowed to the first match.
func (m Markup) findFirst(selector string) (*goquery.Selection, error) {
	sel, err := m.Find(selector)
	if err != nil {
		return nil, err
	}
	return sel.First(), nil
}

var minifier = func() *minify.M {
	m := minify.New()
	m.AddFunc("text/html", mhtml.Minify)
	return m
}()

// outerHTML renders the first element of sel and minifies it. The
// unminified markup is returned if the minifier rejects it.
func outerHTML(sel *goquery.Selection) string {
	raw, err := goquery.OuterHtml(sel.First())
	if err != nil {
		slog.Debug("render outer html failed", slog.Any("error", err))
		return ""
	}
	out, err := minifier.String("text/html", raw)
	if err != nil {
		slog.Debug("minify failed, keeping raw html", slog.Any("error", err))
		return raw
	}
	return out
}
