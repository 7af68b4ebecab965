package twitter

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Direction of a pagination run.
type Direction int

const (
	// Descending walks from the most recent items towards older ones.
	Descending Direction = iota
	// Ascending walks from InitialMin towards newer items.
	Ascending
)

func (d Direction) String() string {
	if d == Ascending {
		return "ascending"
	}
	return "descending"
}

const (
	paramMinPosition = "min_position"
	paramMaxPosition = "max_position"

	// cursorSentinel suffixes cursors meaning "no further data".
	cursorSentinel = "--"

	// itemSelector matches item fragments in a page, sponsored ones excluded.
	itemSelector = ".tweet:not(.promoted-tweet)"
)

// Fetcher performs one request for a page of the legacy HTML feed.
type Fetcher interface {
	Fetch(ctx context.Context, path string, params url.Values) (*Page, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, path string, params url.Values) (*Page, error)

func (f FetcherFunc) Fetch(ctx context.Context, path string, params url.Values) (*Page, error) {
	return f(ctx, path, params)
}

// PaginateOptions configures a pagination run. InitialMin and InitialMax are
// mutually exclusive; setting InitialMin makes the run ascending.
type PaginateOptions struct {
	Params     url.Values
	InitialMin string
	InitialMax string

	// StopWhen reports whether a page ends the run. Defaults to StopOnNoNewItems.
	StopWhen func(*Page) bool
	// OnPage is called after every successful fetch with the number of items
	// the page contributed.
	OnPage func(path string, items int)
}

// StopOnNoNewItems stops when the feed reports a new item count of zero.
func StopOnNoNewItems(p *Page) bool {
	return p.NewLatentCount != nil && *p.NewLatentCount == 0
}

// Pagination is a lazy, strictly sequential walk over a cursor-paginated
// feed. It is not safe for concurrent use.
//
//	p, err := twitter.Paginate(client, "/search/timeline", opts)
//	for p.Next(ctx) {
//		use(p.Tweet())
//	}
//	if err := p.Err(); err != nil { ... }
type Pagination struct {
	fetcher   Fetcher
	path      string
	params    url.Values
	direction Direction
	stopWhen  func(*Page) bool
	onPage    func(string, int)

	cursor  string
	start   string
	end     string
	fetched bool
	done    bool

	pending []*goquery.Selection
	tweet   *Tweet
	err     error
}

// Paginate validates opts and prepares a run over path. No request is made
// until the first call to Next.
func Paginate(f Fetcher, path string, opts PaginateOptions) (*Pagination, error) {
	if f == nil {
		return nil, configErrorf("fetcher is nil")
	}
	if opts.InitialMin != "" && opts.InitialMax != "" {
		return nil, configErrorf("initial cursors must not be set together")
	}
	if opts.Params.Has(paramMinPosition) || opts.Params.Has(paramMaxPosition) {
		return nil, configErrorf("params must not set %s or %s", paramMinPosition, paramMaxPosition)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	p := &Pagination{
		fetcher:  f,
		path:     path,
		params:   opts.Params,
		stopWhen: opts.StopWhen,
		onPage:   opts.OnPage,
		cursor:   opts.InitialMax,
	}
	if opts.InitialMin != "" {
		p.direction = Ascending
		p.cursor = opts.InitialMin
	}
	if p.stopWhen == nil {
		p.stopWhen = StopOnNoNewItems
	}
	return p, nil
}

// Direction reports the direction chosen from the initial cursors.
func (p *Pagination) Direction() Direction { return p.direction }

// Next advances to the next tweet, fetching a page when the current one is
// exhausted. It returns false when the run completes or fails; check Err.
func (p *Pagination) Next(ctx context.Context) bool {
	p.tweet = nil
	for len(p.pending) == 0 {
		if p.done || p.err != nil {
			return false
		}
		if err := p.step(ctx); err != nil {
			p.err = err
			return false
		}
	}

	sel := p.pending[0]
	p.pending = p.pending[1:]
	tweet, err := ParseTweet(FromNode(sel.Get(0)), "")
	if err != nil {
		p.err = fmt.Errorf("parse item on %s: %w", p.path, err)
		p.pending = nil
		return false
	}
	p.tweet = tweet
	return true
}

// step fetches one page, updates the cursor state and queues its items.
func (p *Pagination) step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := url.Values{}
	for k, v := range p.params {
		params[k] = append([]string(nil), v...)
	}
	if p.direction == Ascending {
		params.Set(paramMinPosition, p.cursor)
		params.Set(paramMaxPosition, "")
	} else {
		params.Set(paramMaxPosition, p.cursor)
		params.Set(paramMinPosition, "")
	}

	page, err := p.fetcher.Fetch(ctx, p.path, params)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", p.path, err)
	}

	anchor, advance := page.MaxPosition, page.MinPosition
	if p.direction == Ascending {
		anchor, advance = page.MinPosition, page.MaxPosition
	}

	prevEnd := p.end
	if advance != "" {
		p.end = advance
	}
	if !p.fetched {
		p.start = anchor
		p.fetched = true
	}

	items, err := splitItems(page.ItemsHTML)
	if err != nil {
		return fmt.Errorf("split items on %s: %w", p.path, err)
	}
	p.pending = items
	if p.onPage != nil {
		p.onPage(p.path, len(items))
	}

	switch {
	case advance == "":
		p.done = true
	case advance == prevEnd:
		slog.Debug("cursor repeated, stopping",
			slog.String("path", p.path),
			slog.String("cursor", advance))
		p.done = true
	case p.stopWhen(page):
		p.done = true
	default:
		p.cursor = advance
	}

	slog.Debug("page fetched",
		slog.String("path", p.path),
		slog.String("direction", p.direction.String()),
		slog.Int("items", len(items)),
		slog.Bool("last", p.done))
	return nil
}

// Tweet returns the tweet produced by the last successful Next.
func (p *Pagination) Tweet() *Tweet { return p.tweet }

// Err returns the error that ended the run, if any.
func (p *Pagination) Err() error { return p.err }

// All drains the run as an iterator. A terminal error is yielded once,
// with a nil tweet, as the last element.
func (p *Pagination) All(ctx context.Context) iter.Seq2[*Tweet, error] {
	return func(yield func(*Tweet, error) bool) {
		for p.Next(ctx) {
			if !yield(p.Tweet(), nil) {
				return
			}
		}
		if err := p.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Min returns the cursor at the older end of the items seen so far, or ""
// when there is none. Meaningful once the run has completed or failed.
func (p *Pagination) Min() string {
	if p.direction == Ascending {
		return normalizeCursor(p.start)
	}
	return normalizeCursor(p.end)
}

// Max returns the cursor at the newer end of the items seen so far, or ""
// when there is none. Meaningful once the run has completed or failed.
func (p *Pagination) Max() string {
	if p.direction == Ascending {
		return normalizeCursor(p.end)
	}
	return normalizeCursor(p.start)
}

// resumeCursor is the cursor a new run in the same direction continues from.
func (p *Pagination) resumeCursor() string {
	if p.fetched && p.end != "" {
		return p.end
	}
	return p.cursor
}

func normalizeCursor(c string) string {
	if strings.HasSuffix(c, cursorSentinel) {
		return ""
	}
	return c
}

// splitItems parses a page's items_html into item fragments in document order.
func splitItems(itemsHTML string) ([]*goquery.Selection, error) {
	if strings.TrimSpace(itemsHTML) == "" {
		return nil, nil
	}
	sel, err := FromString(itemsHTML).Find(itemSelector)
	if err != nil {
		return nil, err
	}
	items := make([]*goquery.Selection, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		items = append(items, s)
	})
	return items, nil
}
