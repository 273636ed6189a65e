// Package store provides the shadow store for log-channel messages using SQLite.
//
// # Architecture
//
// MessageStore is the only way to read or write shadow copies. SQLiteStore is
// the production implementation; MockStore is an in-memory double for tests.
//
// # Data Model
//
// One table, keyed by platform message id:
//
//	messages(id PK, channel_id, author_id, author_tag, content, embed_data,
//	         timestamp, guild_id, created_at)
//
// timestamp is the capture time in milliseconds since the epoch and drives
// retention. created_at is assigned by SQLite on first insert.
//
// Writes are upserts: observing the same id again (for example after an edit)
// replaces the row rather than adding one.
//
// # SQLite Configuration
//
//	PRAGMA journal_mode=WAL;
//
// The handle is limited to one open connection, so statements are serialized.
//
// # Error Handling
//
//   - ErrNotFound: Get found no row
//   - *StorageError: any driver or I/O failure, with the failing operation in Op
//
// The store does not retry. Callers decide whether a failure is fatal.
//
// # Testing
//
// Use NewMockStore() for unit tests and NewSQLiteStore(":memory:") or a file
// under t.TempDir() for integration tests with real SQLite.
package store
