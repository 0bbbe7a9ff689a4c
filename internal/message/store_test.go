// ABOUTME: Tests for the message log
// ABOUTME: Verifies ordering, ID assignment, patch semantics and terminal-status immutability

package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string  { return &s }
func statPtr(s Status) *Status { return &s }

func TestStore_Append_AssignsIDAndTimestamp(t *testing.T) {
	s := NewStore()

	m1 := s.Append(RoleUser, "hello", StatusSent)
	m2 := s.Append(RoleAssistant, "", StatusSending)

	assert.NotEmpty(t, m1.ID)
	assert.NotEmpty(t, m2.ID)
	assert.NotEqual(t, m1.ID, m2.ID)
	assert.False(t, m1.Timestamp.IsZero())
	assert.Equal(t, StatusSending, m2.Status)
}

func TestStore_Append_PreservesInsertionOrder(t *testing.T) {
	s := NewStore()
	s.Append(RoleUser, "one", StatusSent)
	s.Append(RoleAssistant, "two", StatusSent)
	s.Append(RoleUser, "three", StatusSent)

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "one", all[0].Content)
	assert.Equal(t, "two", all[1].Content)
	assert.Equal(t, "three", all[2].Content)
}

func TestStore_Update_PatchesInPlace(t *testing.T) {
	s := NewStore()
	m := s.Append(RoleAssistant, "", StatusSending)

	ok := s.Update(m.ID, Patch{Content: strPtr("answer"), Status: statPtr(StatusSent)})
	require.True(t, ok)

	got, found := s.Get(m.ID)
	require.True(t, found)
	assert.Equal(t, "answer", got.Content)
	assert.Equal(t, StatusSent, got.Status)
	assert.Equal(t, m.Timestamp, got.Timestamp)
}

func TestStore_Update_UnknownIDIsNoop(t *testing.T) {
	s := NewStore()
	s.Append(RoleUser, "hello", StatusSent)

	ok := s.Update("no-such-id", Patch{Content: strPtr("x")})
	assert.False(t, ok)
	assert.Equal(t, "hello", s.All()[0].Content)
}

func TestStore_Update_TerminalStatusIsAbsorbing(t *testing.T) {
	s := NewStore()
	m := s.Append(RoleAssistant, "", StatusSending)

	require.True(t, s.Update(m.ID, Patch{Content: strPtr("done"), Status: statPtr(StatusSent)}))

	// A late error must not overwrite the terminal state.
	ok := s.Update(m.ID, Patch{Content: strPtr("boom"), Status: statPtr(StatusError)})
	assert.False(t, ok)

	got, _ := s.Get(m.ID)
	assert.Equal(t, StatusSent, got.Status)
	assert.Equal(t, "done", got.Content)
}

func TestStore_ChangeHook_FiresOnMutations(t *testing.T) {
	s := NewStore()
	var calls int
	var lastLen int
	s.SetChangeHook(func(msgs []Message) {
		calls++
		lastLen = len(msgs)
	})

	m := s.Append(RoleUser, "hi", StatusSent)
	s.Update(m.ID, Patch{Content: strPtr("hi!")})
	s.Reset()

	assert.Equal(t, 3, calls)
	assert.Equal(t, 0, lastLen)
}

func TestStore_ChangeHook_NotFiredOnRestore(t *testing.T) {
	s := NewStore()
	var calls int
	s.SetChangeHook(func([]Message) { calls++ })

	s.Replace([]Message{{ID: "a", Role: RoleUser, Content: "restored", Status: StatusSent}})

	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, s.Len())
}

func TestStore_ChangeHook_MayCallBackIntoStore(t *testing.T) {
	s := NewStore()
	var seen int
	s.SetChangeHook(func([]Message) {
		seen = s.Len() // must not deadlock
	})

	s.Append(RoleUser, "hi", StatusSent)
	assert.Equal(t, 1, seen)
}
