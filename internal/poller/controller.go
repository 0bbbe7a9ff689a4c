// ABOUTME: Polling controller owning the per-answer poll loop
// ABOUTME: One active session, generation-checked mutations, synchronous cancellation

package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/coven-chat/internal/backend"
	"github.com/2389/coven-chat/internal/message"
)

// State is the lifecycle position of the current poll session.
type State string

const (
	StateIdle      State = "idle"
	StatePolling   State = "polling"
	StateFinished  State = "finished"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed-out"
	StateCancelled State = "cancelled"
)

// timeoutMessage is what the target message shows when the watchdog fires.
const timeoutMessage = "timed out waiting for an answer"

// Backend is the slice of the job API the controller needs.
type Backend interface {
	PollAnswer(ctx context.Context, conversationID, requestID string) (*backend.PollResult, error)
}

// MessageLog is the slice of the message store the controller needs.
// The controller only ever patches the single message it was handed.
type MessageLog interface {
	Update(id string, patch message.Patch) bool
}

// pollSession is the ephemeral state of one loop.
type pollSession struct {
	conversationID string
	requestID      string
	messageID      string
	done           chan struct{}
}

// Controller runs at most one poll loop at a time. Starting a new
// session supersedes the previous one: its context is cancelled and
// its generation invalidated before the new loop begins, so a stale
// loop can never mutate a message once superseded.
type Controller struct {
	backend  Backend
	log      MessageLog
	schedule Schedule
	logger   *slog.Logger

	mu         sync.Mutex
	generation uint64
	state      State
	cancel     context.CancelFunc
	done       chan struct{}
}

// New creates a controller. Unset schedule fields are filled from
// DefaultSchedule individually, so the zero value and partial
// schedules are both usable.
func New(bk Backend, log MessageLog, schedule Schedule, logger *slog.Logger) *Controller {
	schedule = schedule.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		backend:  bk,
		log:      log,
		schedule: schedule,
		logger:   logger.With("component", "poller"),
		state:    StateIdle,
	}
}

// Start begins polling for the answer to (conversationID, requestID),
// mutating the message identified by messageID as the loop reaches a
// terminal state. Any previous session is stopped first.
func (c *Controller) Start(conversationID, requestID, messageID string) {
	ctx, cancel := context.WithCancel(context.Background())
	ps := &pollSession{
		conversationID: conversationID,
		requestID:      requestID,
		messageID:      messageID,
		done:           make(chan struct{}),
	}

	c.mu.Lock()
	c.stopLocked()
	c.generation++
	gen := c.generation
	c.state = StatePolling
	c.cancel = cancel
	c.done = ps.done
	c.mu.Unlock()

	c.logger.Debug("poll session started",
		"conversation_id", conversationID,
		"request_id", requestID,
		"message_id", messageID,
	)

	go c.run(ctx, gen, ps)
}

// Stop cancels the active session, if any. It returns once the
// session can no longer mutate any message; the loop goroutine may
// still be winding down an in-flight request, but its result is
// guaranteed to be discarded.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.stopLocked()
	c.generation++
	if c.state == StatePolling {
		c.state = StateCancelled
	}
	c.mu.Unlock()
}

// stopLocked cancels the current session's context. Callers hold c.mu.
func (c *Controller) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// State returns the state of the most recent session, or StateIdle if
// none was ever started.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done returns a channel closed when the most recent session's loop
// has fully exited. With no session it returns an already-closed
// channel.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.done
}

func (c *Controller) run(ctx context.Context, gen uint64, ps *pollSession) {
	defer close(ps.done)

	start := time.Now()
	watchdog := time.NewTimer(c.schedule.WatchdogCeiling)
	defer watchdog.Stop()
	// Attempt #1 fires immediately; later arms use the cadence.
	interval := time.NewTimer(0)
	defer interval.Stop()

	type attempt struct {
		res *backend.PollResult
		err error
	}

	for {
		select {
		case <-ctx.Done():
			c.conclude(gen, StateCancelled, "", nil)
			return
		case <-watchdog.C:
			c.concludeTimeout(gen, ps)
			return
		case <-interval.C:
		}

		// The attempt runs concurrently so the watchdog can fire at its
		// ceiling even while a request hangs; a late result from an
		// abandoned attempt lands in the buffered channel and is dropped.
		resCh := make(chan attempt, 1)
		go func() {
			res, err := c.backend.PollAnswer(ctx, ps.conversationID, ps.requestID)
			resCh <- attempt{res: res, err: err}
		}()

		var cur attempt
		select {
		case <-ctx.Done():
			c.conclude(gen, StateCancelled, "", nil)
			return
		case <-watchdog.C:
			c.concludeTimeout(gen, ps)
			return
		case cur = <-resCh:
		}

		res, err := cur.res, cur.err
		if ctx.Err() != nil {
			c.conclude(gen, StateCancelled, "", nil)
			return
		}

		switch {
		case err != nil:
			c.concludeFailure(gen, ps, err)
			return

		case res.Status == backend.PollFinished:
			answer := res.Answer
			sent := message.StatusSent
			if c.conclude(gen, StateFinished, ps.messageID, &message.Patch{Content: &answer, Status: &sent}) {
				c.logger.Debug("answer received",
					"request_id", ps.requestID,
					"elapsed", time.Since(start),
				)
			}
			return

		case res.Status == backend.PollInProgress:
			// Liveness signal: this is the only transition that re-arms
			// the watchdog, and it always gets a full ceiling period.
			if !watchdog.Stop() {
				select {
				case <-watchdog.C:
				default:
				}
			}
			watchdog.Reset(c.schedule.WatchdogCeiling)
			interval.Reset(c.schedule.CadenceAt(time.Since(start)))

		default:
			// The client maps error and unknown payloads to errors, so
			// this is unreachable; treat it as a contract violation.
			c.concludeFailure(gen, ps, &backend.ProtocolError{Reason: "unclassified poll result"})
			return
		}
	}
}

// concludeTimeout marks the session timed out and errors the message.
func (c *Controller) concludeTimeout(gen uint64, ps *pollSession) {
	content := timeoutMessage
	errored := message.StatusError
	if c.conclude(gen, StateTimedOut, ps.messageID, &message.Patch{Content: &content, Status: &errored}) {
		c.logger.Warn("poll session timed out",
			"conversation_id", ps.conversationID,
			"request_id", ps.requestID,
		)
	}
}

// concludeFailure marks the session failed with the error's message.
func (c *Controller) concludeFailure(gen uint64, ps *pollSession, err error) {
	content := err.Error()
	errored := message.StatusError
	if c.conclude(gen, StateFailed, ps.messageID, &message.Patch{Content: &content, Status: &errored}) {
		c.logger.Warn("poll session failed",
			"conversation_id", ps.conversationID,
			"request_id", ps.requestID,
			"error", err,
		)
	}
}

// conclude moves the session to a terminal state and applies the
// message patch, but only if gen is still the current generation.
// The generation check and the mutation happen under one lock
// acquisition, so a session superseded mid-flight can never touch
// the log. It returns whether the transition was applied.
func (c *Controller) conclude(gen uint64, st State, messageID string, patch *message.Patch) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debug("discarding stale poll result", "state", st)
		return false
	}
	c.state = st
	if patch != nil && messageID != "" {
		c.log.Update(messageID, *patch)
	}
	return true
}
