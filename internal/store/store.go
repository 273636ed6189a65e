// ABOUTME: MessageStore interface and StoredMessage type for the log-channel shadow store
// ABOUTME: Defines ErrNotFound and StorageError used by every store implementation

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2389/staffbot/internal/platform"
)

// ErrNotFound is returned when a requested message is not stored
var ErrNotFound = errors.New("not found")

// DefaultListLimit is the page size used when ListByChannel gets limit <= 0
const DefaultListLimit = 100

// StorageError wraps an underlying storage fault. Callers match it with
// errors.As; the store never retries on its own.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// StoredMessage is the shadow copy of a message seen in the watched channel.
// Empty strings are stored as NULL.
type StoredMessage struct {
	ID        string
	ChannelID string
	AuthorID  string
	AuthorTag string
	GuildID   string
	Content   string
	EmbedData string    // JSON array of embeds, empty when there were none
	Timestamp time.Time // capture time, millisecond precision
	CreatedAt time.Time // set by the database on first insert
}

// Embeds decodes EmbedData.
func (m *StoredMessage) Embeds() ([]*platform.Embed, error) {
	if m.EmbedData == "" {
		return nil, nil
	}
	var embeds []*platform.Embed
	if err := json.Unmarshal([]byte(m.EmbedData), &embeds); err != nil {
		return nil, fmt.Errorf("decoding embed data: %w", err)
	}
	return embeds, nil
}

// FromMessage captures msg for storage. Missing author data is tolerated.
func FromMessage(msg *platform.Message, capturedAt time.Time) (*StoredMessage, error) {
	sm := &StoredMessage{
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		GuildID:   msg.GuildID,
		Content:   msg.Content,
		Timestamp: capturedAt,
	}
	if msg.Author != nil {
		sm.AuthorID = msg.Author.ID
		sm.AuthorTag = msg.Author.Tag()
	}
	if len(msg.Embeds) > 0 {
		data, err := json.Marshal(msg.Embeds)
		if err != nil {
			return nil, fmt.Errorf("encoding embeds: %w", err)
		}
		sm.EmbedData = string(data)
	}
	return sm, nil
}

// MessageStore is the persistence contract for shadow-stored messages.
type MessageStore interface {
	// Put inserts or replaces the row for msg.ID. A zero Timestamp is set to now.
	Put(ctx context.Context, msg *StoredMessage) error
	// Get returns ErrNotFound when id is not stored.
	Get(ctx context.Context, id string) (*StoredMessage, error)
	// Delete returns the number of rows removed (0 or 1).
	Delete(ctx context.Context, id string) (int64, error)
	// ListByChannel returns newest first.
	ListByChannel(ctx context.Context, channelID string, limit int) ([]*StoredMessage, error)
	// PurgeOlderThan removes rows whose Timestamp is before now-maxAge.
	PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error)
	// Close is safe to call more than once.
	Close() error
}
