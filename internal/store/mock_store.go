// ABOUTME: Mock MessageStore implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject storage faults

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory MessageStore implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	messages map[string]*StoredMessage // keyed by message ID
	now      func() time.Time
	closed   bool

	// Err, when set, is returned (wrapped in StorageError) by every operation.
	Err error
	// Puts counts successful Put calls.
	Puts int
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		messages: make(map[string]*StoredMessage),
		now:      time.Now,
	}
}

// Put stores a copy of msg.
func (m *MockStore) Put(ctx context.Context, msg *StoredMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return &StorageError{Op: "put", Err: m.Err}
	}

	cp := *msg
	if cp.Timestamp.IsZero() {
		cp.Timestamp = m.now()
	}
	if prev, ok := m.messages[cp.ID]; ok {
		cp.CreatedAt = prev.CreatedAt
	} else {
		cp.CreatedAt = m.now().Truncate(time.Second)
	}
	m.messages[cp.ID] = &cp
	m.Puts++
	return nil
}

// Get retrieves a message by ID.
func (m *MockStore) Get(ctx context.Context, id string) (*StoredMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, &StorageError{Op: "get", Err: m.Err}
	}

	msg, ok := m.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *msg
	return &cp, nil
}

// Delete removes a message by ID.
func (m *MockStore) Delete(ctx context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return 0, &StorageError{Op: "delete", Err: m.Err}
	}

	if _, ok := m.messages[id]; !ok {
		return 0, nil
	}
	delete(m.messages, id)
	return 1, nil
}

// ListByChannel returns messages for a channel, newest first.
func (m *MockStore) ListByChannel(ctx context.Context, channelID string, limit int) ([]*StoredMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, &StorageError{Op: "list", Err: m.Err}
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var result []*StoredMessage
	for _, msg := range m.messages {
		if msg.ChannelID == channelID {
			cp := *msg
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// PurgeOlderThan removes messages captured before now-maxAge.
func (m *MockStore) PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return 0, &StorageError{Op: "purge", Err: m.Err}
	}

	cutoff := m.now().Add(-maxAge)
	var n int64
	for id, msg := range m.messages {
		if msg.Timestamp.Before(cutoff) {
			delete(m.messages, id)
			n++
		}
	}
	return n, nil
}

// Close marks the store closed.
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Len returns the number of stored messages.
func (m *MockStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// Closed reports whether Close was called.
func (m *MockStore) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

var _ MessageStore = (*MockStore)(nil)
