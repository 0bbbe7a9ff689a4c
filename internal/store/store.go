// ABOUTME: SessionStore interface and persisted snapshot shapes
// ABOUTME: Three keyed slots: conversation id, message log, profile

package store

import (
	"github.com/2389/coven-chat/internal/message"
	"github.com/2389/coven-chat/internal/profile"
)

// Slot names for the three persisted entries.
const (
	slotConversationID = "conversation_id"
	slotMessages       = "messages"
	slotProfile        = "profile"
)

// SessionStore is the persistence boundary the session depends on.
// Implementations must tolerate loads before any save (empty string,
// empty slice, nil profile respectively).
type SessionStore interface {
	// SaveConversationID persists the server-assigned conversation id.
	SaveConversationID(id string) error

	// LoadConversationID returns the persisted id, or "" if none.
	LoadConversationID() (string, error)

	// SaveMessages persists the full message log.
	SaveMessages(msgs []message.Message) error

	// LoadMessages returns the persisted log in insertion order, with
	// timestamps reconstituted as time.Time.
	LoadMessages() ([]message.Message, error)

	// SaveProfile persists the resolved profile. A nil profile removes
	// the slot.
	SaveProfile(p *profile.Profile) error

	// LoadProfile returns the persisted profile, or nil if unresolved.
	LoadProfile() (*profile.Profile, error)

	// Clear removes all three slots.
	Clear() error

	// Close releases the backing resources.
	Close() error
}
