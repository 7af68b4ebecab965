// Package store keeps scraped tweets and feed cursors in a SQLite file so
// runs can be resumed and deduplicated.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	twitter "github.com/anatolykoptev/go-twitter-scrape"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store is a SQLite-backed tweet and cursor store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// sqlite allows one writer; a single connection also keeps :memory: stable
	db.SetMaxOpenConns(1)

	version, err := runMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Debug("store opened", slog.String("path", path), slog.Uint64("schema", uint64(version)))
	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) (uint, error) {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTweet stores t. A tweet already present keeps its content; only the
// stats, HTML and LastUpdated are refreshed. inserted reports whether the
// tweet was new.
func (s *Store) SaveTweet(ctx context.Context, t *twitter.Tweet) (inserted bool, err error) {
	content, err := json.Marshal(t.Content)
	if err != nil {
		return false, fmt.Errorf("encode content of %s: %w", t.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO tweets (
			id, user_id, username, conversation_id, quoted_id, posted_at,
			content, replies, retweets, likes, html, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.UserID, t.Username, t.ConversationID, t.QuotedID, t.Timestamp.UnixMilli(),
		string(content), t.Stats.Replies, t.Stats.Retweets, t.Stats.Likes, t.HTML, t.LastUpdated.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to store tweet %s: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	if n == 0 {
		_, err = tx.ExecContext(ctx, `
			UPDATE tweets
			SET replies = ?, retweets = ?, likes = ?, html = ?, last_updated = ?
			WHERE id = ?
		`, t.Stats.Replies, t.Stats.Retweets, t.Stats.Likes, t.HTML, t.LastUpdated.UnixMilli(), t.ID)
		if err != nil {
			return false, fmt.Errorf("failed to refresh tweet %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return n > 0, nil
}

// Tweet returns the stored tweet with id, or twitter.ErrNotFound.
func (s *Store) Tweet(ctx context.Context, id string) (*twitter.Tweet, error) {
	var (
		t                 twitter.Tweet
		content           string
		postedAt, updated int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, username, conversation_id, quoted_id, posted_at,
		       content, replies, retweets, likes, html, last_updated
		FROM tweets
		WHERE id = ?
	`, id).Scan(&t.ID, &t.UserID, &t.Username, &t.ConversationID, &t.QuotedID, &postedAt,
		&content, &t.Stats.Replies, &t.Stats.Retweets, &t.Stats.Likes, &t.HTML, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tweet %s: %w", id, twitter.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tweet %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(content), &t.Content); err != nil {
		return nil, fmt.Errorf("decode content of %s: %w", id, err)
	}
	t.Timestamp = time.UnixMilli(postedAt).UTC()
	t.LastUpdated = time.UnixMilli(updated).UTC()
	return &t, nil
}

// Count returns the number of stored tweets.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tweets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tweets: %w", err)
	}
	return n, nil
}

// Cursor is the saved position of a feed walk.
type Cursor struct {
	Feed      string
	Min       string
	Max       string
	UpdatedAt time.Time
}

// SaveCursor records the cursors a walk over feed ended at. Empty values keep
// what was stored before.
func (s *Store) SaveCursor(ctx context.Context, feed, minPos, maxPos string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cursors (feed, min_pos, max_pos, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (feed) DO UPDATE SET
			min_pos = CASE WHEN excluded.min_pos = '' THEN cursors.min_pos ELSE excluded.min_pos END,
			max_pos = CASE WHEN excluded.max_pos = '' THEN cursors.max_pos ELSE excluded.max_pos END,
			updated_at = excluded.updated_at
	`, feed, minPos, maxPos, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save cursor for %s: %w", feed, err)
	}
	return nil
}

// Cursor returns the saved cursor of feed. ok is false when none was saved.
func (s *Store) Cursor(ctx context.Context, feed string) (c Cursor, ok bool, err error) {
	var updated int64
	err = s.db.QueryRowContext(ctx, `
		SELECT feed, min_pos, max_pos, updated_at FROM cursors WHERE feed = ?
	`, feed).Scan(&c.Feed, &c.Min, &c.Max, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Cursor{}, false, nil
	}
	if err != nil {
		return Cursor{}, false, fmt.Errorf("failed to get cursor for %s: %w", feed, err)
	}
	c.UpdatedAt = time.UnixMilli(updated)
	return c, true, nil
}
