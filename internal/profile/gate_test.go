// ABOUTME: Tests for the profile gate and annotation formatting
// ABOUTME: Verifies interception conditions, single release, and skip semantics

package profile

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustIntercept(t *testing.T, g *Gate, text string) {
	t.Helper()
	held, pending := g.Intercept(text, false)
	require.True(t, held)
	require.False(t, pending)
}

func TestProfile_Annotate_FixedFieldOrder(t *testing.T) {
	p := Profile{Name: "Ada", TechnicalLevel: LevelExpert, Purpose: "research"}
	got := p.Annotate("hello")
	assert.Equal(t, "[Name: Ada | Technical level: Expert | Purpose: research]\n\nhello", got)
}

func TestProfile_Annotate_OmitsEmptyFields(t *testing.T) {
	p := Profile{Name: "Ada"}
	assert.Equal(t, "[Name: Ada]\n\nhello", p.Annotate("hello"))

	p = Profile{TechnicalLevel: LevelBeginner, Purpose: "learning"}
	assert.Equal(t, "[Technical level: Beginner | Purpose: learning]\n\nhello", p.Annotate("hello"))
}

func TestProfile_Annotate_EmptyProfileIsPassthrough(t *testing.T) {
	assert.Equal(t, "hello", Profile{}.Annotate("hello"))
}

func TestGate_Intercept_ArmsOnlyOnFreshConversation(t *testing.T) {
	g := NewGate()

	// Existing conversation identity bypasses the gate.
	held, pending := g.Intercept("hi", true)
	assert.False(t, held)
	assert.False(t, pending)
	assert.Equal(t, GateIdle, g.State())

	// Fresh conversation arms it.
	held, pending = g.Intercept("hi", false)
	assert.True(t, held)
	assert.False(t, pending)
	assert.Equal(t, GateAwaitingInput, g.State())

	// A second attempt while awaiting reports the pending prompt.
	held, pending = g.Intercept("another", false)
	assert.False(t, held)
	assert.True(t, pending)
}

func TestGate_Intercept_ConcurrentFirstSendsHoldExactlyOne(t *testing.T) {
	g := NewGate()

	var wg sync.WaitGroup
	var mu sync.Mutex
	holds, pendings := 0, 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			held, pending := g.Intercept("hello", false)
			mu.Lock()
			defer mu.Unlock()
			if held {
				holds++
			}
			if pending {
				pendings++
			}
		}()
	}
	wg.Wait()

	// Exactly one send is held; every loser sees the pending prompt
	// rather than slipping through to a dispatch.
	assert.Equal(t, 1, holds)
	assert.Equal(t, 7, pendings)
}

func TestGate_Resolve_ReleasesRawHeldText(t *testing.T) {
	g := NewGate()
	mustIntercept(t, g, "hello")

	text, released := g.Resolve(Profile{Name: "Ada"})
	require.True(t, released)
	assert.Equal(t, "hello", text, "the log keeps the raw text; annotation belongs on the wire")
	assert.Equal(t, GateResolved, g.State())
}

func TestGate_Resolve_SecondCallDoesNotReleaseTwice(t *testing.T) {
	g := NewGate()
	mustIntercept(t, g, "hello")

	_, first := g.Resolve(Profile{Name: "Ada"})
	_, second := g.Resolve(Profile{Name: "Ada"})
	assert.True(t, first)
	assert.False(t, second)
}

func TestGate_Resolve_ConcurrentCallsReleaseExactlyOnce(t *testing.T) {
	g := NewGate()
	mustIntercept(t, g, "hello")

	var wg sync.WaitGroup
	var mu sync.Mutex
	releases := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, released := g.Resolve(Profile{Name: "Ada"}); released {
				mu.Lock()
				releases++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, releases)
}

func TestGate_Skip_ReleasesUnannotated(t *testing.T) {
	g := NewGate()
	mustIntercept(t, g, "hello")

	text, released := g.Skip()
	require.True(t, released)
	assert.Equal(t, "hello", text)

	// Skipped still counts as resolved: never shown again.
	held, _ := g.Intercept("next", false)
	assert.False(t, held)
	require.NotNil(t, g.Profile())
	assert.True(t, g.Profile().IsEmpty())
}

func TestGate_Resolve_EditProfileAfterResolutionDoesNotRelease(t *testing.T) {
	g := NewGate()
	mustIntercept(t, g, "hello")
	_, released := g.Skip()
	require.True(t, released)

	text, released := g.Resolve(Profile{Name: "Ada", Purpose: "edit"})
	assert.False(t, released)
	assert.Empty(t, text)
	assert.Equal(t, "Ada", g.Profile().Name)
}

func TestGate_Restore_ResolvedProfileNeverRearms(t *testing.T) {
	g := Restore(&Profile{Name: "Ada"})
	assert.Equal(t, GateResolved, g.State())
	held, _ := g.Intercept("hi", false)
	assert.False(t, held)
}

func TestGate_Reset_RearmsInterception(t *testing.T) {
	g := NewGate()
	mustIntercept(t, g, "hello")
	g.Skip()

	g.Reset()
	assert.Equal(t, GateIdle, g.State())
	assert.Nil(t, g.Profile())
	held, _ := g.Intercept("again", false)
	assert.True(t, held)
}
