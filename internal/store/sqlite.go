// ABOUTME: SQLite implementation of MessageStore using modernc.org/sqlite
// ABOUTME: Single-connection handle with upsert-by-id and timestamp-based purge

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements MessageStore using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time

	closeMu sync.Mutex
	closed  bool
}

// NewSQLiteStore opens (or creates) the database at path.
// Parent directories are created if needed; ":memory:" is accepted for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection: statements are serialized and :memory: keeps its data.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS messages (
			id          TEXT PRIMARY KEY,
			channel_id  TEXT,
			author_id   TEXT,
			author_tag  TEXT,
			content     TEXT,
			embed_data  TEXT,
			timestamp   INTEGER NOT NULL,
			guild_id    TEXT,
			created_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);

		CREATE INDEX IF NOT EXISTS idx_messages_channel_ts
			ON messages(channel_id, timestamp DESC);

		CREATE INDEX IF NOT EXISTS idx_messages_timestamp
			ON messages(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put upserts msg. created_at survives replacement so it keeps the first insert time.
func (s *SQLiteStore) Put(ctx context.Context, msg *StoredMessage) error {
	if msg.ID == "" {
		return &StorageError{Op: "put", Err: errors.New("message id is required")}
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	query := `
		INSERT INTO messages (id, channel_id, author_id, author_tag, content, embed_data, timestamp, guild_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			channel_id = excluded.channel_id,
			author_id  = excluded.author_id,
			author_tag = excluded.author_tag,
			content    = excluded.content,
			embed_data = excluded.embed_data,
			timestamp  = excluded.timestamp,
			guild_id   = excluded.guild_id
	`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		nullString(msg.ChannelID),
		nullString(msg.AuthorID),
		nullString(msg.AuthorTag),
		nullString(msg.Content),
		nullString(msg.EmbedData),
		ts.UnixMilli(),
		nullString(msg.GuildID),
	)
	if err != nil {
		return &StorageError{Op: "put", Err: err}
	}
	return nil
}

// Get retrieves a stored message by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*StoredMessage, error) {
	query := `
		SELECT id, channel_id, author_id, author_tag, content, embed_data, timestamp, guild_id, created_at
		FROM messages
		WHERE id = ?
	`
	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}
	return msg, nil
}

// Delete removes the row for id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return 0, &StorageError{Op: "delete", Err: err}
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, &StorageError{Op: "delete", Err: err}
	}
	return n, nil
}

// ListByChannel returns up to limit messages for channelID, newest first.
func (s *SQLiteStore) ListByChannel(ctx context.Context, channelID string, limit int) ([]*StoredMessage, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, channel_id, author_id, author_tag, content, embed_data, timestamp, guild_id, created_at
		FROM messages
		WHERE channel_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, channelID, limit)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	var messages []*StoredMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, &StorageError{Op: "list", Err: err}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	return messages, nil
}

// PurgeOlderThan deletes every row captured before now-maxAge.
func (s *SQLiteStore) PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge).UnixMilli()

	result, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, &StorageError{Op: "purge", Err: err}
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, &StorageError{Op: "purge", Err: err}
	}

	s.logger.Info("cleaned old messages", "removed", n, "max_age", maxAge)
	return n, nil
}

// Close releases the database handle. Later calls are no-ops.
func (s *SQLiteStore) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.db.Close(); err != nil {
		return &StorageError{Op: "close", Err: err}
	}
	s.logger.Info("database connection closed")
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*StoredMessage, error) {
	var (
		msg                                                     StoredMessage
		channelID, authorID, authorTag, content, embeds, guildID sql.NullString
		ts, createdAt                                           int64
	)
	if err := row.Scan(&msg.ID, &channelID, &authorID, &authorTag, &content, &embeds, &ts, &guildID, &createdAt); err != nil {
		return nil, err
	}
	msg.ChannelID = channelID.String
	msg.AuthorID = authorID.String
	msg.AuthorTag = authorTag.String
	msg.Content = content.String
	msg.EmbedData = embeds.String
	msg.GuildID = guildID.String
	msg.Timestamp = time.UnixMilli(ts)
	msg.CreatedAt = time.Unix(createdAt, 0)
	return &msg, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ MessageStore = (*SQLiteStore)(nil)
