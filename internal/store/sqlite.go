// ABOUTME: SQLite implementation of SessionStore using modernc.org/sqlite
// ABOUTME: One session_state table keyed by slot name, schema created on open

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/2389/coven-chat/internal/message"
	"github.com/2389/coven-chat/internal/profile"
)

// SQLiteStore implements SessionStore on a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the session database at the given
// path. Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL keeps concurrent snapshot writes cheap
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("session store opened", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS session_state (
			slot TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveConversationID persists the conversation identifier.
func (s *SQLiteStore) SaveConversationID(id string) error {
	if id == "" {
		return s.deleteSlot(slotConversationID)
	}
	return s.saveSlot(slotConversationID, id)
}

// LoadConversationID returns the persisted id, or "" if none.
func (s *SQLiteStore) LoadConversationID() (string, error) {
	value, ok, err := s.loadSlot(slotConversationID)
	if err != nil || !ok {
		return "", err
	}
	return value, nil
}

// SaveMessages persists the full message log as JSON. Timestamps
// serialize as RFC 3339 through time.Time's standard encoding.
func (s *SQLiteStore) SaveMessages(msgs []message.Message) error {
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encoding messages: %w", err)
	}
	return s.saveSlot(slotMessages, string(data))
}

// LoadMessages returns the persisted log, or an empty slice if none.
func (s *SQLiteStore) LoadMessages() ([]message.Message, error) {
	value, ok, err := s.loadSlot(slotMessages)
	if err != nil || !ok {
		return nil, err
	}
	var msgs []message.Message
	if err := json.Unmarshal([]byte(value), &msgs); err != nil {
		return nil, fmt.Errorf("decoding messages: %w", err)
	}
	return msgs, nil
}

// SaveProfile persists the profile, or removes the slot when nil.
func (s *SQLiteStore) SaveProfile(p *profile.Profile) error {
	if p == nil {
		return s.deleteSlot(slotProfile)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	return s.saveSlot(slotProfile, string(data))
}

// LoadProfile returns the persisted profile, or nil if none.
func (s *SQLiteStore) LoadProfile() (*profile.Profile, error) {
	value, ok, err := s.loadSlot(slotProfile)
	if err != nil || !ok {
		return nil, err
	}
	var p profile.Profile
	if err := json.Unmarshal([]byte(value), &p); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	return &p, nil
}

// Clear removes all persisted session state.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM session_state"); err != nil {
		return fmt.Errorf("clearing session state: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) saveSlot(slot, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO session_state (slot, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, slot, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving %s: %w", slot, err)
	}
	return nil
}

func (s *SQLiteStore) loadSlot(slot string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM session_state WHERE slot = ?", slot).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("loading %s: %w", slot, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) deleteSlot(slot string) error {
	if _, err := s.db.Exec("DELETE FROM session_state WHERE slot = ?", slot); err != nil {
		return fmt.Errorf("deleting %s: %w", slot, err)
	}
	return nil
}
