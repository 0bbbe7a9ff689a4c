// ABOUTME: HTML transcript export for a conversation's message log
// ABOUTME: Renders assistant markdown via goldmark, escapes user text

// Package transcript renders a message log to a standalone HTML page.
package transcript

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/2389/coven-chat/internal/message"
)

var pageTemplate = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; }
.msg { margin: 1rem 0; padding: 0.75rem 1rem; border-radius: 8px; }
.msg.user { background: #eef2ff; }
.msg.assistant { background: #f4f4f5; }
.msg.error { background: #fef2f2; }
.meta { font-size: 0.8rem; color: #6b7280; margin-bottom: 0.25rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Messages}}<div class="msg {{.Class}}">
<div class="meta">{{.Role}} &middot; {{.Timestamp}}</div>
{{.Body}}
</div>
{{end}}</body>
</html>
`))

type renderedMessage struct {
	Role      string
	Class     string
	Timestamp string
	Body      template.HTML
}

type pageData struct {
	Title    string
	Messages []renderedMessage
}

// Write renders msgs as a full HTML page. Assistant content is treated
// as markdown; user content is escaped verbatim.
func Write(w io.Writer, title string, msgs []message.Message) error {
	data := pageData{Title: title}
	for _, m := range msgs {
		rm := renderedMessage{
			Role:      string(m.Role),
			Class:     cssClass(m),
			Timestamp: m.Timestamp.Format("2006-01-02 15:04:05"),
		}
		body, err := renderBody(m)
		if err != nil {
			return err
		}
		rm.Body = body
		data.Messages = append(data.Messages, rm)
	}
	return pageTemplate.Execute(w, data)
}

func cssClass(m message.Message) string {
	if m.Status == message.StatusError {
		return "error"
	}
	return string(m.Role)
}

func renderBody(m message.Message) (template.HTML, error) {
	if m.Role == message.RoleAssistant && m.Status != message.StatusError {
		var htmlBuf bytes.Buffer
		if err := goldmark.Convert([]byte(m.Content), &htmlBuf); err != nil {
			return "", fmt.Errorf("converting markdown: %w", err)
		}
		return template.HTML(htmlBuf.String()), nil
	}

	// Escape and preserve line breaks for non-markdown content.
	escaped := template.HTMLEscapeString(m.Content)
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return template.HTML("<p>" + escaped + "</p>"), nil
}
