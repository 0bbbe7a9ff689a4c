// ABOUTME: Package documentation for the message log
// ABOUTME: Describes the ordered conversation log and its mutation rules

// Package message provides the ordered, mutable log of conversation
// turns shared between the session orchestrator and the polling
// controller.
//
// # Overview
//
// The Store is the single piece of mutable state shared across the
// client core. The session appends user messages and assistant
// placeholders; the polling controller patches exactly one assistant
// message per poll session, identified by ID. Messages are kept in
// insertion order and are never reordered.
//
// # Status lifecycle
//
// User messages are created directly as StatusSent. Assistant
// messages are created as StatusSending and transition exactly once
// to StatusSent or StatusError. Terminal statuses are absorbing: the
// Store rejects any patch that would move a message out of StatusSent
// or StatusError.
//
// # Persistence
//
// The Store does not persist anything itself. A change hook, set via
// SetChangeHook, receives a snapshot of the full log after every
// mutation; the session uses it to write the log to durable storage.
// The hook is invoked outside the Store's lock, so it may safely call
// back into the Store.
package message
