// ABOUTME: End-to-end scenarios with the real backend client and poller
// ABOUTME: Exercises the full send → create → poll → answer pipeline over httptest

package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/backend"
	"github.com/2389/coven-chat/internal/message"
	"github.com/2389/coven-chat/internal/poller"
	"github.com/2389/coven-chat/internal/profile"
	"github.com/2389/coven-chat/internal/store"
)

// scriptedServer is a minimal answer-job backend: every message gets
// request id r1, and polls walk the scripted poll results in order.
type scriptedServer struct {
	mu          sync.Mutex
	polls       []backend.PollResult
	pollCount   int
	createBody  map[string]any
	createCalls int
}

func (ss *scriptedServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/conversations", func(w http.ResponseWriter, r *http.Request) {
		ss.mu.Lock()
		ss.createCalls++
		json.NewDecoder(r.Body).Decode(&ss.createBody)
		ss.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"conversation_id": "c1", "request_id": "r1"})
	})
	mux.HandleFunc("POST /api/conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"conversation_id": r.PathValue("id"), "request_id": "r1"})
	})
	mux.HandleFunc("GET /api/conversations/{id}/answer", func(w http.ResponseWriter, r *http.Request) {
		ss.mu.Lock()
		i := ss.pollCount
		ss.pollCount++
		if i >= len(ss.polls) {
			i = len(ss.polls) - 1
		}
		res := ss.polls[i]
		ss.mu.Unlock()
		json.NewEncoder(w).Encode(res)
	})
	return mux
}

func fastSchedule() poller.Schedule {
	return poller.Schedule{
		FastCadence:     10 * time.Millisecond,
		FastWindow:      50 * time.Millisecond,
		MediumCadence:   20 * time.Millisecond,
		MediumWindow:    200 * time.Millisecond,
		SlowCadence:     30 * time.Millisecond,
		WatchdogCeiling: 500 * time.Millisecond,
	}
}

func TestScenario_AdaAsksAndGetsAnswer(t *testing.T) {
	ss := &scriptedServer{polls: []backend.PollResult{
		{Status: backend.PollInProgress},
		{Status: backend.PollFinished, Answer: "hi!"},
	}}
	srv := httptest.NewServer(ss.handler())
	defer srv.Close()

	client := backend.NewClient(srv.URL, 5*time.Second, nil)
	msgs := message.NewStore()
	ctrl := poller.New(client, msgs, fastSchedule(), nil)
	st := store.NewMemoryStore()
	sess, err := New(client, ctrl, msgs, st, nil)
	require.NoError(t, err)

	// Fresh session: the first send opens the gate.
	out, err := sess.Send(context.Background(), "hello")
	require.NoError(t, err)
	require.True(t, out.HeldForProfile)
	assert.Zero(t, ss.createCalls)

	// The user introduces themselves; the held message goes out once.
	out, err = sess.ResolveProfile(context.Background(), profile.Profile{Name: "Ada"})
	require.NoError(t, err)
	require.NotNil(t, out)

	select {
	case <-ctrl.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("answer never arrived")
	}

	ss.mu.Lock()
	createCalls, createBody := ss.createCalls, ss.createBody
	ss.mu.Unlock()
	require.Equal(t, 1, createCalls)
	assert.Equal(t, "[Name: Ada]\n\nhello", createBody["message"],
		"the wire payload carries the profile annotation")

	all := sess.Messages()
	require.Len(t, all, 2)
	assert.Equal(t, message.RoleUser, all[0].Role)
	assert.Equal(t, "hello", all[0].Content,
		"the log keeps the raw text the user typed")
	assert.Equal(t, message.StatusSent, all[1].Status)
	assert.Equal(t, "hi!", all[1].Content)

	persisted, err := st.LoadConversationID()
	require.NoError(t, err)
	assert.Equal(t, "c1", persisted)
}

func TestScenario_ClearMidPollThenFreshConversation(t *testing.T) {
	// The backend never finishes, so the poll is guaranteed active
	// when clear hits.
	ss := &scriptedServer{polls: []backend.PollResult{{Status: backend.PollInProgress}}}
	srv := httptest.NewServer(ss.handler())
	defer srv.Close()

	client := backend.NewClient(srv.URL, 5*time.Second, nil)
	msgs := message.NewStore()
	ctrl := poller.New(client, msgs, fastSchedule(), nil)
	sess, err := New(client, ctrl, msgs, store.NewMemoryStore(), nil)
	require.NoError(t, err)

	_, err = sess.Send(context.Background(), "hello")
	require.NoError(t, err)
	_, err = sess.SkipProfile(context.Background())
	require.NoError(t, err)
	require.Equal(t, poller.StatePolling, ctrl.State())

	require.NoError(t, sess.Clear())

	select {
	case <-ctrl.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled loop did not exit")
	}
	assert.Equal(t, poller.StateCancelled, ctrl.State())
	assert.Empty(t, sess.Messages())

	// No more polls once cancelled.
	ss.mu.Lock()
	polled := ss.pollCount
	ss.mu.Unlock()
	time.Sleep(100 * time.Millisecond)
	ss.mu.Lock()
	assert.Equal(t, polled, ss.pollCount)
	ss.mu.Unlock()

	// The next message starts a brand-new conversation.
	_, err = sess.Send(context.Background(), "fresh start")
	require.NoError(t, err)
	_, err = sess.SkipProfile(context.Background())
	require.NoError(t, err)

	ss.mu.Lock()
	creates := ss.createCalls
	ss.mu.Unlock()
	assert.Equal(t, 2, creates, "post-clear send must hit create, not continue")

	sess.Stop()
}
