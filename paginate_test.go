package twitter

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFeed serves pages in order and records every request.
type fakeFeed struct {
	pages []*Page
	errAt int // 1-based call that fails, 0 for never
	err   error

	calls  int
	paths  []string
	params []url.Values
}

func (f *fakeFeed) Fetch(_ context.Context, path string, params url.Values) (*Page, error) {
	f.calls++
	f.paths = append(f.paths, path)
	f.params = append(f.params, params)
	if f.errAt == f.calls {
		return nil, f.err
	}
	if f.calls > len(f.pages) {
		return nil, errors.New("fake feed exhausted")
	}
	return f.pages[f.calls-1], nil
}

func collectIDs(t *testing.T, p *Pagination) []string {
	t.Helper()
	var ids []string
	for tweet, err := range p.All(context.Background()) {
		if err != nil {
			break
		}
		ids = append(ids, tweet.ID)
	}
	return ids
}

func TestPaginate_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		opts PaginateOptions
	}{
		{"both initial cursors", PaginateOptions{InitialMin: "1", InitialMax: "2"}},
		{"min_position in params", PaginateOptions{Params: url.Values{"min_position": {"1"}}}},
		{"max_position in params", PaginateOptions{Params: url.Values{"max_position": {""}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := &fakeFeed{}
			_, err := Paginate(feed, "/search/timeline", tt.opts)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
			if feed.calls != 0 {
				t.Fatalf("expected no fetch, got %d", feed.calls)
			}
		})
	}
}

func TestPaginate_Lazy(t *testing.T) {
	feed := &fakeFeed{pages: []*Page{{ItemsHTML: itemsHTML(1, 1)}}}
	p, err := Paginate(feed, "search/timeline", PaginateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, feed.calls)

	require.True(t, p.Next(context.Background()))
	assert.Equal(t, 1, feed.calls)
	assert.Equal(t, "/search/timeline", feed.paths[0])
}

func TestPaginate_ThreePages(t *testing.T) {
	feed := &fakeFeed{pages: []*Page{
		{ItemsHTML: itemsHTML(1, 20), MaxPosition: "TOP", MinPosition: "C1", NewLatentCount: intPtr(20)},
		{ItemsHTML: itemsHTML(21, 15), MaxPosition: "TOP", MinPosition: "C2", NewLatentCount: intPtr(15)},
		{ItemsHTML: "", MaxPosition: "TOP", MinPosition: "C2", NewLatentCount: intPtr(0)},
	}}
	p, err := Paginate(feed, "/search/timeline", PaginateOptions{Params: url.Values{"q": {"golang"}}})
	require.NoError(t, err)

	ids := collectIDs(t, p)
	require.NoError(t, p.Err())
	require.Len(t, ids, 35)
	for i, id := range ids {
		assert.Equal(t, atoiOr(id, -1), i+1, "item %d out of order", i)
	}

	assert.Equal(t, 3, feed.calls)
	assert.Equal(t, "C2", p.Min())
	assert.Equal(t, "TOP", p.Max())
	assert.NotEqual(t, p.Min(), p.Max())
	assert.Equal(t, Descending, p.Direction())

	// descending requests carry max_position and clear min_position
	assert.Equal(t, "", feed.params[0].Get("max_position"))
	assert.Equal(t, "C1", feed.params[1].Get("max_position"))
	assert.Equal(t, "C2", feed.params[2].Get("max_position"))
	for _, params := range feed.params {
		assert.True(t, params.Has("min_position"))
		assert.Equal(t, "", params.Get("min_position"))
		assert.Equal(t, "golang", params.Get("q"))
	}
}

func TestPaginate_FirstPageEmpty(t *testing.T) {
	feed := &fakeFeed{pages: []*Page{
		{ItemsHTML: "", MinPosition: "", MaxPosition: "--", NewLatentCount: intPtr(0)},
	}}
	p, err := Paginate(feed, "/profiles/show/alice/timeline/tweets", PaginateOptions{})
	require.NoError(t, err)

	ids := collectIDs(t, p)
	require.NoError(t, p.Err())
	assert.Empty(t, ids)
	assert.Equal(t, 1, feed.calls)
	assert.Empty(t, p.Min())
	assert.Empty(t, p.Max())
}

func TestPaginate_CycleGuard(t *testing.T) {
	feed := &fakeFeed{pages: []*Page{
		{ItemsHTML: itemsHTML(1, 2), MaxPosition: "TOP", MinPosition: "C1"},
		{ItemsHTML: itemsHTML(3, 2), MaxPosition: "TOP", MinPosition: "C1"},
		{ItemsHTML: itemsHTML(5, 2), MaxPosition: "TOP", MinPosition: "C9"},
	}}
	p, err := Paginate(feed, "/search/timeline", PaginateOptions{})
	require.NoError(t, err)

	ids := collectIDs(t, p)
	require.NoError(t, p.Err())
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids)
	assert.Equal(t, 2, feed.calls)
	assert.Equal(t, "C1", p.Min())
}

func TestPaginate_Ascending(t *testing.T) {
	feed := &fakeFeed{pages: []*Page{
		{ItemsHTML: itemsHTML(10, 2), MinPosition: "A0", MaxPosition: "A1"},
		{ItemsHTML: itemsHTML(12, 1), MinPosition: "A0", MaxPosition: ""},
	}}
	p, err := Paginate(feed, "/search/timeline", PaginateOptions{InitialMin: "START"})
	require.NoError(t, err)
	assert.Equal(t, Ascending, p.Direction())

	ids := collectIDs(t, p)
	require.NoError(t, p.Err())
	assert.Equal(t, []string{"10", "11", "12"}, ids)

	assert.Equal(t, "START", feed.params[0].Get("min_position"))
	assert.Equal(t, "", feed.params[0].Get("max_position"))
	assert.Equal(t, "A1", feed.params[1].Get("min_position"))

	// the last page had no advancing cursor, so the previous one is kept
	assert.Equal(t, "A0", p.Min())
	assert.Equal(t, "A1", p.Max())
}

func TestPaginate_SentinelCursor(t *testing.T) {
	feed := &fakeFeed{pages: []*Page{
		{ItemsHTML: itemsHTML(1, 1), MaxPosition: "TOP", MinPosition: "1-0--", NewLatentCount: intPtr(0)},
	}}
	p, err := Paginate(feed, "/search/timeline", PaginateOptions{})
	require.NoError(t, err)

	assert.Len(t, collectIDs(t, p), 1)
	assert.Empty(t, p.Min())
	assert.Equal(t, "TOP", p.Max())
}

func TestPaginate_FetchError(t *testing.T) {
	boom := &HTTPError{Endpoint: "/search/timeline", Status: 404}
	feed := &fakeFeed{
		pages: []*Page{
			{ItemsHTML: itemsHTML(1, 3), MaxPosition: "TOP", MinPosition: "C1"},
			{ItemsHTML: itemsHTML(4, 3), MaxPosition: "TOP", MinPosition: "C2"},
		},
		errAt: 2,
		err:   boom,
	}
	p, err := Paginate(feed, "/search/timeline", PaginateOptions{})
	require.NoError(t, err)

	var ids []string
	var gotErr error
	for tweet, err := range p.All(context.Background()) {
		if err != nil {
			gotErr = err
			continue
		}
		ids = append(ids, tweet.ID)
	}

	assert.Equal(t, []string{"1", "2", "3"}, ids)
	assert.ErrorIs(t, gotErr, ErrNotFound)
	assert.ErrorIs(t, p.Err(), ErrNotFound)
	assert.Equal(t, 2, feed.calls)

	// captured state survives the failure
	assert.Equal(t, "C1", p.Min())
	assert.Equal(t, "TOP", p.Max())

	assert.False(t, p.Next(context.Background()))
	assert.Equal(t, 2, feed.calls)
}

func TestPaginate_EarlyStop(t *testing.T) {
	feed := &fakeFeed{pages: []*Page{
		{ItemsHTML: itemsHTML(1, 5), MaxPosition: "TOP", MinPosition: "C1"},
		{ItemsHTML: itemsHTML(6, 5), MaxPosition: "TOP", MinPosition: "C2"},
	}}
	p, err := Paginate(feed, "/search/timeline", PaginateOptions{})
	require.NoError(t, err)

	n := 0
	for range p.All(context.Background()) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 1, feed.calls)
}

func TestPaginate_StopWhenInjected(t *testing.T) {
	feed := &fakeFeed{pages: []*Page{
		{ItemsHTML: itemsHTML(1, 1), MaxPosition: "TOP", MinPosition: "C1", NewLatentCount: intPtr(0)},
		{ItemsHTML: itemsHTML(2, 1), MaxPosition: "TOP", MinPosition: ""},
	}}
	var pages []int
	p, err := Paginate(feed, "/search/timeline", PaginateOptions{
		StopWhen: func(*Page) bool { return false },
		OnPage:   func(_ string, items int) { pages = append(pages, items) },
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, collectIDs(t, p))
	assert.Equal(t, []int{1, 1}, pages)
}

func TestPaginate_ContextCanceled(t *testing.T) {
	feed := &fakeFeed{pages: []*Page{{ItemsHTML: itemsHTML(1, 1)}}}
	p, err := Paginate(feed, "/search/timeline", PaginateOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, p.Next(ctx))
	assert.ErrorIs(t, p.Err(), context.Canceled)
	assert.Equal(t, 0, feed.calls)
}

func TestNormalizeCursor(t *testing.T) {
	for in, want := range map[string]string{
		"":                   "",
		"--":                 "",
		"TWEET-1-2--":        "",
		"TWEET-1-2-BD1UO2FF": "TWEET-1-2-BD1UO2FF",
	} {
		if got := normalizeCursor(in); got != want {
			t.Fatalf("normalizeCursor(%q) = %q, want %q", in, got, want)
		}
	}
}
