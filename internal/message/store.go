// ABOUTME: In-memory ordered message log with change notification
// ABOUTME: Owns ID/timestamp assignment and guards terminal-status immutability

package message

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds the ordered conversation log. All methods are safe for
// concurrent use. The change hook fires after every mutation with a
// snapshot of the full log, outside the Store's lock.
type Store struct {
	mu       sync.Mutex
	messages []Message
	onChange func([]Message)
}

// NewStore creates an empty message log.
func NewStore() *Store {
	return &Store{}
}

// SetChangeHook registers fn to be called with a snapshot of the log
// after every mutation. Passing nil removes the hook.
func (s *Store) SetChangeHook(fn func([]Message)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Append adds a new message to the end of the log, assigning a fresh
// ID and the current time, and returns the created record.
func (s *Store) Append(role Role, content string, status Status) Message {
	s.mu.Lock()
	msg := Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Status:    status,
		Timestamp: time.Now(),
	}
	s.messages = append(s.messages, msg)
	hook, snapshot := s.onChange, s.snapshotLocked()
	s.mu.Unlock()

	if hook != nil {
		hook(snapshot)
	}
	return msg
}

// Update patches the message with the given ID in place. It is a
// no-op if the ID is unknown, and it refuses to change the status of
// a message already in a terminal state. It returns true if a change
// was applied.
func (s *Store) Update(id string, patch Patch) bool {
	s.mu.Lock()
	idx := -1
	for i := range s.messages {
		if s.messages[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}

	msg := &s.messages[idx]
	if msg.Status.Terminal() && patch.Status != nil && *patch.Status != msg.Status {
		s.mu.Unlock()
		return false
	}
	if patch.Content != nil {
		msg.Content = *patch.Content
	}
	if patch.Status != nil {
		msg.Status = *patch.Status
	}
	hook, snapshot := s.onChange, s.snapshotLocked()
	s.mu.Unlock()

	if hook != nil {
		hook(snapshot)
	}
	return true
}

// Get returns the message with the given ID, if present.
func (s *Store) Get(id string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// All returns a snapshot of the log in insertion order.
func (s *Store) All() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Len returns the number of messages in the log.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Replace swaps the whole log, used when restoring a persisted
// session. The change hook is not fired: restoring is not a change.
func (s *Store) Replace(msgs []Message) {
	s.mu.Lock()
	s.messages = make([]Message, len(msgs))
	copy(s.messages, msgs)
	s.mu.Unlock()
}

// Reset empties the log and fires the change hook.
func (s *Store) Reset() {
	s.mu.Lock()
	s.messages = nil
	hook, snapshot := s.onChange, s.snapshotLocked()
	s.mu.Unlock()

	if hook != nil {
		hook(snapshot)
	}
}

func (s *Store) snapshotLocked() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
