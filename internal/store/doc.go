// ABOUTME: Package documentation for session persistence
// ABOUTME: Describes the three snapshot slots and the available backends

// Package store persists the conversation session across restarts.
//
// Three independent slots are written, each whenever its value
// changes: the conversation identifier, the full message log, and
// the user profile. On construction the session reads all three back;
// message timestamps are serialized as RFC 3339 and reconstituted as
// time.Time on load.
//
// SQLiteStore is the durable implementation (modernc.org/sqlite,
// schema created on open). MemoryStore backs tests and ephemeral
// runs.
package store
