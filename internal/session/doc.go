// ABOUTME: Package documentation for the conversation session
// ABOUTME: Describes orchestration of gate, backend dispatch, polling and persistence

// Package session ties the conversation core together.
//
// A Session owns the message log and the conversation identity. Send
// routes the first message of a fresh session through the profile
// gate, appends the user message and an assistant placeholder,
// dispatches create-or-continue to the backend, and hands the
// resulting (conversation, request, message) triple to the polling
// controller. Clear tears everything down: active poll, log,
// identity, profile, and persisted state.
//
// Conversation identity, the message log, and the profile are each
// persisted whenever they change and restored on construction, so a
// restart resumes the same conversation.
package session
