// ABOUTME: Message type and enums for conversation turns
// ABOUTME: Defines Role, Status and the serialized message record

package message

import "time"

// Role identifies the author side of a message.
type Role string

const (
	// RoleUser is a message typed by the user.
	RoleUser Role = "user"
	// RoleAssistant is an answer (or pending answer) from the backend.
	RoleAssistant Role = "assistant"
)

// Status tracks the delivery state of a message.
type Status string

const (
	// StatusSending marks an assistant message whose answer is still pending.
	StatusSending Status = "sending"
	// StatusSent is the successful terminal status.
	StatusSent Status = "sent"
	// StatusError is the failed terminal status.
	StatusError Status = "error"
)

// Terminal reports whether the status is absorbing.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusError
}

// Message is one conversation turn. ID and Timestamp are assigned by
// the Store on append and never change afterwards.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Patch describes an in-place update to a message. Nil fields are
// left untouched.
type Patch struct {
	Content *string
	Status  *Status
}
