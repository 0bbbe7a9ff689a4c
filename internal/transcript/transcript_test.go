// ABOUTME: Tests for HTML transcript rendering
// ABOUTME: Covers markdown conversion, escaping and error styling

package transcript

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/message"
)

func render(t *testing.T, msgs []message.Message) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "Test Conversation", msgs))
	return buf.String()
}

func TestWrite_AssistantMarkdown(t *testing.T) {
	out := render(t, []message.Message{
		{
			Role:      message.RoleAssistant,
			Content:   "Here is **bold** text.",
			Status:    message.StatusSent,
			Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	})

	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "2026-03-01 12:00:00")
}

func TestWrite_UserContentEscaped(t *testing.T) {
	out := render(t, []message.Message{
		{
			Role:    message.RoleUser,
			Content: "is <script>alert(1)</script> dangerous?",
			Status:  message.StatusSent,
		},
	})

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestWrite_UserLineBreaks(t *testing.T) {
	out := render(t, []message.Message{
		{Role: message.RoleUser, Content: "line one\nline two", Status: message.StatusSent},
	})
	assert.Contains(t, out, "line one<br>line two")
}

func TestWrite_ErrorMessageNotRenderedAsMarkdown(t *testing.T) {
	out := render(t, []message.Message{
		{
			Role:    message.RoleAssistant,
			Content: "backend **failed**",
			Status:  message.StatusError,
		},
	})

	assert.Contains(t, out, `class="msg error"`)
	assert.Contains(t, out, "backend **failed**")
	assert.NotContains(t, out, "<strong>")
}

func TestWrite_EmptyLog(t *testing.T) {
	out := render(t, nil)
	assert.Contains(t, out, "<title>Test Conversation</title>")
}
