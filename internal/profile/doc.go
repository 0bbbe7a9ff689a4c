// ABOUTME: Package documentation for the profile gate
// ABOUTME: Covers the one-time interception of the first outgoing message

// Package profile implements the optional one-time user profile and
// the gate that intercepts the very first outgoing message.
//
// The gate is a small state machine: idle, awaiting-input, resolved.
// On a fresh session the first send is held (no network call happens)
// until the user submits profile fields or explicitly skips. Either
// path resolves the gate permanently; only clearing the conversation
// re-arms it. Resolution releases the held message exactly once, with
// the non-empty profile fields folded in as a single annotation line.
package profile
