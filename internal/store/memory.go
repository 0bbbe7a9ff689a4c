// ABOUTME: In-memory SessionStore for tests and ephemeral runs
// ABOUTME: Round-trips values through JSON so it behaves like the durable store

package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/2389/coven-chat/internal/message"
	"github.com/2389/coven-chat/internal/profile"
)

// MemoryStore implements SessionStore in memory. Values round-trip
// through JSON so serialization bugs surface in tests exactly as they
// would against SQLite.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]string)}
}

func (m *MemoryStore) SaveConversationID(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		delete(m.slots, slotConversationID)
		return nil
	}
	m.slots[slotConversationID] = id
	return nil
}

func (m *MemoryStore) LoadConversationID() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[slotConversationID], nil
}

func (m *MemoryStore) SaveMessages(msgs []message.Message) error {
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encoding messages: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slotMessages] = string(data)
	return nil
}

func (m *MemoryStore) LoadMessages() ([]message.Message, error) {
	m.mu.Lock()
	value, ok := m.slots[slotMessages]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var msgs []message.Message
	if err := json.Unmarshal([]byte(value), &msgs); err != nil {
		return nil, fmt.Errorf("decoding messages: %w", err)
	}
	return msgs, nil
}

func (m *MemoryStore) SaveProfile(p *profile.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p == nil {
		delete(m.slots, slotProfile)
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	m.slots[slotProfile] = string(data)
	return nil
}

func (m *MemoryStore) LoadProfile() (*profile.Profile, error) {
	m.mu.Lock()
	value, ok := m.slots[slotProfile]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var p profile.Profile
	if err := json.Unmarshal([]byte(value), &p); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	return &p, nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = make(map[string]string)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
