package twitter

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openFeed(feed Fetcher, cursors *[]string) func(string) (*Pagination, error) {
	return func(cursor string) (*Pagination, error) {
		if cursors != nil {
			*cursors = append(*cursors, cursor)
		}
		return Paginate(feed, "/search/timeline", PaginateOptions{InitialMax: cursor})
	}
}

func drain(t *testing.T, seq func(func(*Tweet, error) bool)) ([]string, error) {
	t.Helper()
	var ids []string
	var last error
	for tweet, err := range seq {
		if err != nil {
			last = err
			continue
		}
		ids = append(ids, tweet.ID)
	}
	return ids, last
}

func TestStream_Limit(t *testing.T) {
	feed := &fakeFeed{pages: []*Page{
		{ItemsHTML: itemsHTML(1, 3), MinPosition: "C1"},
		{ItemsHTML: itemsHTML(4, 3), MinPosition: "C2"},
	}}
	ids, err := drain(t, Stream(context.Background(), openFeed(feed, nil), StreamOptions{Limit: 3}))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids)
	assert.Equal(t, 1, feed.calls)
}

func TestStream_LimitCountsInvalid(t *testing.T) {
	feed := &fakeFeed{pages: []*Page{{ItemsHTML: itemsHTML(1, 5)}}}
	var dropped []string
	ids, err := drain(t, Stream(context.Background(), openFeed(feed, nil), StreamOptions{
		Limit:     4,
		Valid:     func(tw *Tweet) bool { return tw.ID != "2" },
		OnInvalid: func(tw *Tweet) { dropped = append(dropped, tw.ID) },
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3", "4"}, ids)
	assert.Equal(t, []string{"2"}, dropped)
}

func TestStream_UntilID(t *testing.T) {
	feed := &fakeFeed{pages: []*Page{{ItemsHTML: itemsHTML(98, 1) + itemsHTML(99, 1) + itemsHTML(9, 1) + itemsHTML(100, 1)}}}
	ids, err := drain(t, Stream(context.Background(), openFeed(feed, nil), StreamOptions{UntilID: "10"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"98", "99"}, ids)
}

func TestStream_UntilIDAscending(t *testing.T) {
	feed := &fakeFeed{pages: []*Page{{ItemsHTML: itemsHTML(5, 1) + itemsHTML(9, 1) + itemsHTML(10, 1) + itemsHTML(11, 1)}}}
	open := func(string) (*Pagination, error) {
		return Paginate(feed, "/search/timeline", PaginateOptions{InitialMin: "1"})
	}
	ids, err := drain(t, Stream(context.Background(), open, StreamOptions{UntilID: "10"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "9"}, ids)
}

func TestStream_MaxConsecutiveInvalid(t *testing.T) {
	feed := &fakeFeed{pages: []*Page{{ItemsHTML: itemsHTML(1, 10)}}}
	ids, err := drain(t, Stream(context.Background(), openFeed(feed, nil), StreamOptions{
		Valid:                 func(tw *Tweet) bool { return tw.ID == "1" || tw.ID == "4" },
		MaxConsecutiveInvalid: 3,
	}))
	// 2,3 invalid, 4 resets, 5,6,7 reach the threshold
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "4"}, ids)
}

func TestStream_ErrorPropagatesWithoutRetries(t *testing.T) {
	boom := errors.New("network down")
	feed := &fakeFeed{
		pages: []*Page{{ItemsHTML: itemsHTML(1, 2), MinPosition: "C1"}},
		errAt: 2,
		err:   boom,
	}
	ids, err := drain(t, Stream(context.Background(), openFeed(feed, nil), StreamOptions{}))
	assert.Equal(t, []string{"1", "2"}, ids)
	assert.ErrorIs(t, err, boom)
}

func TestStream_RetryReopensFromCursor(t *testing.T) {
	boom := errors.New("flaky")
	var cursors []string
	calls := 0
	feed := FetcherFunc(func(_ context.Context, _ string, params url.Values) (*Page, error) {
		calls++
		switch calls {
		case 1:
			return &Page{ItemsHTML: itemsHTML(1, 2), MaxPosition: "TOP", MinPosition: "C1"}, nil
		case 2:
			return nil, boom
		case 3:
			if got := params["max_position"][0]; got != "C1" {
				t.Errorf("reopened at %q, want C1", got)
			}
			return &Page{ItemsHTML: itemsHTML(3, 2), MaxPosition: "C1", MinPosition: "C2", NewLatentCount: intPtr(0)}, nil
		}
		return nil, errors.New("unexpected call")
	})

	var caught []error
	ids, err := drain(t, Stream(context.Background(), openFeed(feed, &cursors), StreamOptions{
		MaxRetries:    2,
		OnCaughtError: func(err error) { caught = append(caught, err) },
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids)
	assert.Equal(t, []string{"", "C1"}, cursors)
	require.Len(t, caught, 1)
	assert.ErrorIs(t, caught[0], boom)
}

func TestStream_RetriesExhaustedCompletes(t *testing.T) {
	boom := errors.New("always down")
	calls := 0
	feed := FetcherFunc(func(context.Context, string, url.Values) (*Page, error) {
		calls++
		return nil, boom
	})

	var caught int
	ids, err := drain(t, Stream(context.Background(), openFeed(feed, nil), StreamOptions{
		MaxRetries:    3,
		OnCaughtError: func(error) { caught++ },
	}))
	assert.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 3, caught)
	assert.Equal(t, 3, calls)
}

func TestStream_OpenError(t *testing.T) {
	open := func(string) (*Pagination, error) {
		return Paginate(&fakeFeed{}, "/x", PaginateOptions{InitialMin: "1", InitialMax: "2"})
	}
	_, err := drain(t, Stream(context.Background(), open, StreamOptions{MaxRetries: 5}))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestCompareIDs(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1", "2", -1},
		{"10", "9", 1},
		{"1180000000000000000", "1179999999999999999", 1},
		{"0042", "42", 0},
		{"99999999999999999999999", "1", 1},
	}
	for _, tt := range tests {
		if got := compareIDs(tt.a, tt.b); got != tt.want {
			t.Fatalf("compareIDs(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
