package twitter

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"
	"time"
)

// DefaultMaxConsecutiveInvalid ends a stream after this many invalid tweets
// in a row.
const DefaultMaxConsecutiveInvalid = 100

// StreamOptions bounds and filters a Stream.
type StreamOptions struct {
	// Limit caps the number of tweets read, invalid ones included. Zero means
	// no limit.
	Limit int
	// UntilID ends the stream at the first tweet at or past this id: ids at
	// or below it when descending, at or above it when ascending.
	UntilID string

	// Valid filters tweets; invalid ones are passed to OnInvalid and dropped.
	Valid     func(*Tweet) bool
	OnInvalid func(*Tweet)
	// MaxConsecutiveInvalid ends the stream normally once reached.
	// Defaults to DefaultMaxConsecutiveInvalid.
	MaxConsecutiveInvalid int

	// MaxRetries is the number of consecutive failures tolerated. Each failure
	// is passed to OnCaughtError and the feed is reopened from the last cursor.
	// Zero returns the first error; reaching the limit ends the stream normally.
	MaxRetries    int
	OnCaughtError func(error)
	// Backoff is the wait before reopening after the n-th consecutive failure.
	Backoff func(n int) time.Duration
}

// Stream reads tweets from paginations produced by open. open receives ""
// for the first run and the last captured cursor when reopening after a
// failure.
func Stream(ctx context.Context, open func(cursor string) (*Pagination, error), opts StreamOptions) iter.Seq2[*Tweet, error] {
	if opts.MaxConsecutiveInvalid <= 0 {
		opts.MaxConsecutiveInvalid = DefaultMaxConsecutiveInvalid
	}

	return func(yield func(*Tweet, error) bool) {
		p, err := open("")
		if err != nil {
			yield(nil, err)
			return
		}

		var read, invalid, failures int
		for {
			for p.Next(ctx) {
				tweet := p.Tweet()
				read++

				if opts.UntilID != "" && reachedID(tweet.ID, opts.UntilID, p.Direction()) {
					return
				}

				if opts.Valid == nil || opts.Valid(tweet) {
					invalid, failures = 0, 0
					if !yield(tweet, nil) {
						return
					}
				} else {
					invalid++
					if opts.OnInvalid != nil {
						opts.OnInvalid(tweet)
					}
					if invalid >= opts.MaxConsecutiveInvalid {
						slog.Warn("too many consecutive invalid tweets, stopping",
							slog.Int("invalid", invalid))
						return
					}
				}

				if opts.Limit > 0 && read >= opts.Limit {
					return
				}
			}

			err := p.Err()
			if err == nil {
				return
			}
			if opts.MaxRetries == 0 || ctx.Err() != nil || errors.Is(err, ErrConfiguration) {
				yield(nil, err)
				return
			}

			failures++
			if opts.OnCaughtError != nil {
				opts.OnCaughtError(err)
			}
			if failures >= opts.MaxRetries {
				slog.Warn("retries exhausted, stopping",
					slog.Int("failures", failures),
					slog.Any("error", err))
				return
			}

			if opts.Backoff != nil {
				select {
				case <-ctx.Done():
					yield(nil, ctx.Err())
					return
				case <-time.After(opts.Backoff(failures)):
				}
			}

			cursor := p.resumeCursor()
			slog.Debug("reopening feed",
				slog.String("cursor", cursor),
				slog.Int("attempt", failures))
			if p, err = open(cursor); err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// reachedID reports whether id is at or past until in the walk direction.
func reachedID(id, until string, dir Direction) bool {
	c := compareIDs(id, until)
	if dir == Ascending {
		return c >= 0
	}
	return c <= 0
}

// compareIDs compares two decimal ids numerically without overflow.
func compareIDs(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
