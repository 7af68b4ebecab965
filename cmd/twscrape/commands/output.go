package commands

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"log/slog"

	twitter "github.com/anatolykoptev/go-twitter-scrape"
)

// writeTweets writes every tweet of seq as a JSON line and stores it when a
// database is open.
func writeTweets(ctx context.Context, w io.Writer, seq iter.Seq2[*twitter.Tweet, error]) (int, error) {
	enc := json.NewEncoder(w)
	var n, added int
	for tweet, err := range seq {
		if err != nil {
			return n, err
		}
		if err := enc.Encode(tweet); err != nil {
			return n, err
		}
		n++
		if app.store != nil {
			inserted, err := app.store.SaveTweet(ctx, tweet)
			if err != nil {
				return n, err
			}
			if inserted {
				added++
			}
		}
	}
	slog.Info("tweets written", slog.Int("count", n), slog.Int("new", added))
	return n, nil
}

func writeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// streamOptions builds the stream bounds shared by the feed commands.
func streamOptions(limit int, untilID string) twitter.StreamOptions {
	opts := twitter.StreamOptions{
		Limit:      limit,
		UntilID:    untilID,
		MaxRetries: app.cfg.MaxRetries,
		OnCaughtError: func(err error) {
			slog.Warn("fetch failed, resuming", slog.Any("error", err))
		},
	}
	if opts.Limit == 0 {
		opts.Limit = app.cfg.Limit
	}
	if app.cfg.ValidOnly {
		opts.Valid = twitter.IsValidTweet
		opts.OnInvalid = func(t *twitter.Tweet) {
			slog.Debug("invalid tweet skipped", slog.String("id", t.ID))
		}
	}
	return opts
}

// resumeFrom returns the stored older-end cursor of feed when resume is set.
func resumeFrom(ctx context.Context, feed string, resume bool) (string, error) {
	if !resume || app.store == nil {
		return "", nil
	}
	c, ok, err := app.store.Cursor(ctx, feed)
	if err != nil || !ok {
		return "", err
	}
	slog.Info("resuming", slog.String("feed", feed), slog.String("cursor", c.Min))
	return c.Min, nil
}

// saveCursors records where the last pagination of feed ended.
func saveCursors(ctx context.Context, feed string, p *twitter.Pagination) error {
	if app.store == nil || p == nil {
		return nil
	}
	return app.store.SaveCursor(ctx, feed, p.Min(), p.Max())
}
