// ABOUTME: Package documentation for the answer polling controller
// ABOUTME: Explains the poll loop states, cadence schedule, watchdog and generations

// Package poller implements the polling loop that discovers whether
// an answer job has produced its answer.
//
// # States
//
// A poll session moves idle → polling → one of finished, failed,
// timed-out, cancelled. Terminal states are absorbing: once entered,
// no further network calls are made and both timers are released.
//
// # Algorithm
//
// The first poll is issued immediately. Each response is classified:
// a transport failure, backend error payload, or malformed response
// fails the session and marks the target message as errored; a
// finished payload completes it with the answer; in_progress keeps
// polling. The cadence is derived from elapsed time since loop start
// (fast at first, slower as the job drags on) and is recomputed
// before each re-arm.
//
// # Watchdog
//
// A single watchdog timer bounds silence, not total duration: every
// in_progress response re-arms it for a full ceiling period, and
// nothing else does. If it fires, the session times out and the
// target message is marked with a timeout error.
//
// # Generations
//
// Exactly one session is active per Controller. Starting a new
// session or calling Stop bumps a generation counter under the
// Controller's lock; every message mutation re-checks the generation
// first, so a superseded loop's late results are detected and
// dropped rather than racing the new session.
package poller
