// ABOUTME: ConversationSession orchestrator: send, profile resolution, clear
// ABOUTME: Persists identity, log and profile on change; restores them on construction

package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/2389/coven-chat/internal/backend"
	"github.com/2389/coven-chat/internal/message"
	"github.com/2389/coven-chat/internal/profile"
	"github.com/2389/coven-chat/internal/store"
)

// ErrEmptyMessage is returned by Send for blank input.
var ErrEmptyMessage = errors.New("message is empty")

// ErrProfilePending is returned by Send while the profile prompt is
// awaiting input; the held message must be resolved or skipped first.
var ErrProfilePending = errors.New("profile prompt is awaiting input")

// interruptedMessage marks assistant placeholders found still pending
// after a restart; their poll loop died with the process.
const interruptedMessage = "interrupted before an answer arrived"

// Backend is the slice of the job API the session needs.
type Backend interface {
	CreateConversation(ctx context.Context, message string, prof *profile.Profile) (*backend.StartResult, error)
	ContinueConversation(ctx context.Context, conversationID, message string, prof *profile.Profile) (*backend.StartResult, error)
}

// Poller is the polling controller surface the session drives.
type Poller interface {
	Start(conversationID, requestID, messageID string)
	Stop()
}

// SendOutcome reports what a Send (or profile resolution) did.
type SendOutcome struct {
	// HeldForProfile is true when the message was intercepted by the
	// profile gate instead of being sent; resolve or skip to release it.
	HeldForProfile bool

	// UserMessageID and AssistantMessageID identify the appended pair
	// when a dispatch happened.
	UserMessageID      string
	AssistantMessageID string
}

// Session is the top-level conversation orchestrator.
type Session struct {
	backend  Backend
	poller   Poller
	messages *message.Store
	store    store.SessionStore
	gate     *profile.Gate
	logger   *slog.Logger

	mu             sync.Mutex
	conversationID string

	// sendMu serializes dispatch and Clear so rapid repeated sends
	// cannot race the create-vs-continue decision, and a clear cannot
	// interleave with a send already past the gate.
	sendMu sync.Mutex
}

// New builds a session, restoring conversation identity, message log
// and profile from the store. Assistant messages persisted while still
// pending are marked errored: their poll loop did not survive the
// restart.
func New(bk Backend, pl Poller, msgs *message.Store, st store.SessionStore, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		backend:  bk,
		poller:   pl,
		messages: msgs,
		store:    st,
		logger:   logger.With("component", "session"),
	}

	conversationID, err := st.LoadConversationID()
	if err != nil {
		return nil, err
	}
	s.conversationID = conversationID

	restored, err := st.LoadMessages()
	if err != nil {
		return nil, err
	}
	msgs.Replace(restored)

	prof, err := st.LoadProfile()
	if err != nil {
		return nil, err
	}
	s.gate = profile.Restore(prof)

	msgs.SetChangeHook(s.persistMessages)

	var dangling int
	for _, m := range restored {
		if m.Role == message.RoleAssistant && m.Status == message.StatusSending {
			content := interruptedMessage
			errored := message.StatusError
			msgs.Update(m.ID, message.Patch{Content: &content, Status: &errored})
			dangling++
		}
	}

	if conversationID != "" || len(restored) > 0 {
		s.logger.Info("session restored",
			"conversation_id", conversationID,
			"messages", len(restored),
			"interrupted", dangling,
			"profile_resolved", prof != nil,
		)
	}
	return s, nil
}

// Send submits a user message. On a fresh session with no resolved
// profile the message is held by the gate (HeldForProfile) and no
// network call happens until ResolveProfile or SkipProfile. On a
// backend failure the assistant placeholder is marked errored, no
// poll starts, and the error is returned.
func (s *Session) Send(ctx context.Context, text string) (*SendOutcome, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	held, pending := s.gate.Intercept(text, s.ConversationID() != "")
	if pending {
		return nil, ErrProfilePending
	}
	if held {
		return &SendOutcome{HeldForProfile: true}, nil
	}
	return s.dispatch(ctx, text, text)
}

// ResolveProfile answers the profile prompt. When a message is held
// it is released and dispatched, with the profile annotation folded
// into the outgoing request only; the same call also serves the
// explicit edit-profile action, which just records the new profile.
// The profile persists either way.
func (s *Session) ResolveProfile(ctx context.Context, p profile.Profile) (*SendOutcome, error) {
	text, released := s.gate.Resolve(p)
	s.persistProfile()
	if !released {
		return nil, nil
	}
	return s.dispatch(ctx, text, p.Annotate(text))
}

// SkipProfile resolves the prompt with an empty profile. Skipping
// still counts as resolved: the prompt is never shown again.
func (s *Session) SkipProfile(ctx context.Context) (*SendOutcome, error) {
	text, released := s.gate.Skip()
	s.persistProfile()
	if !released {
		return nil, nil
	}
	return s.dispatch(ctx, text, text)
}

// dispatch records text in the log and sends wire to the backend.
// The two differ only on a gate release, where wire carries the
// profile annotation.
func (s *Session) dispatch(ctx context.Context, text, wire string) (*SendOutcome, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	conversationID := s.conversationID
	s.mu.Unlock()

	user := s.messages.Append(message.RoleUser, text, message.StatusSent)
	placeholder := s.messages.Append(message.RoleAssistant, "", message.StatusSending)
	outcome := &SendOutcome{UserMessageID: user.ID, AssistantMessageID: placeholder.ID}

	prof := s.gate.Profile()
	var res *backend.StartResult
	var err error
	if conversationID == "" {
		res, err = s.backend.CreateConversation(ctx, wire, prof)
	} else {
		res, err = s.backend.ContinueConversation(ctx, conversationID, wire, prof)
	}
	if err != nil {
		content := err.Error()
		errored := message.StatusError
		s.messages.Update(placeholder.ID, message.Patch{Content: &content, Status: &errored})
		s.logger.Warn("send failed", "error", err)
		return outcome, err
	}

	s.mu.Lock()
	if s.conversationID == "" {
		s.conversationID = res.ConversationID
	}
	s.mu.Unlock()

	if conversationID == "" {
		s.persistConversationID(res.ConversationID)
	}

	s.poller.Start(res.ConversationID, res.RequestID, placeholder.ID)
	return outcome, nil
}

// Clear stops any active poll, empties the log, unsets conversation
// identity and profile, and wipes persisted state. This is the only
// way to re-arm the profile gate.
func (s *Session) Clear() error {
	// Stop the active loop's timers before anything else, then
	// serialize with any dispatch already past the gate. A send in
	// flight may start a fresh poll before we get the lock, so stop
	// again once we hold it.
	s.poller.Stop()
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	s.poller.Stop()

	s.mu.Lock()
	s.conversationID = ""
	s.mu.Unlock()

	s.messages.Reset()
	s.gate.Reset()

	if err := s.store.Clear(); err != nil {
		s.logger.Error("failed to clear persisted state", "error", err)
		return err
	}
	s.logger.Info("conversation cleared")
	return nil
}

// Stop cancels any active poll without touching the log or persisted
// state. This is the navigation-away path.
func (s *Session) Stop() {
	s.poller.Stop()
}

// ConversationID returns the server-assigned identity, or "" before
// the first successful create.
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Messages returns a snapshot of the conversation log.
func (s *Session) Messages() []message.Message {
	return s.messages.All()
}

// GateState exposes the profile gate's state.
func (s *Session) GateState() profile.GateState {
	return s.gate.State()
}

// Profile returns the resolved profile, or nil.
func (s *Session) Profile() *profile.Profile {
	return s.gate.Profile()
}

// persistMessages is the message store's change hook.
func (s *Session) persistMessages(msgs []message.Message) {
	if err := s.store.SaveMessages(msgs); err != nil {
		s.logger.Error("failed to persist message log", "error", err)
	}
}

func (s *Session) persistConversationID(id string) {
	if err := s.store.SaveConversationID(id); err != nil {
		s.logger.Error("failed to persist conversation id", "error", err)
	}
}

func (s *Session) persistProfile() {
	if err := s.store.SaveProfile(s.gate.Profile()); err != nil {
		s.logger.Error("failed to persist profile", "error", err)
	}
}
