// ABOUTME: HTTP JSON client for the answer-job API
// ABOUTME: Implements createConversation, continueConversation and pollAnswer

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/2389/coven-chat/internal/profile"
)

// PollStatus is the payload status of a poll response.
type PollStatus string

const (
	// PollInProgress means the answer job is still running.
	PollInProgress PollStatus = "in_progress"
	// PollFinished means the answer is ready.
	PollFinished PollStatus = "finished"
	// PollError means the job failed server-side.
	PollError PollStatus = "error"
)

// StartResult is the response to create and continue calls.
type StartResult struct {
	ConversationID string `json:"conversation_id"`
	RequestID      string `json:"request_id"`
}

// PollResult is the response to a poll call.
type PollResult struct {
	Status PollStatus `json:"status"`
	Answer string     `json:"answer,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// startRequest is the JSON body for create and continue calls.
type startRequest struct {
	Message string           `json:"message"`
	Profile *profile.Profile `json:"profile,omitempty"`
}

// errorBody is the optional JSON error shape on non-2xx responses.
type errorBody struct {
	Error string `json:"error"`
}

// Client talks to the answer-job backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a backend client for the given base URL. A zero
// timeout disables the per-request deadline.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "backend"),
	}
}

// CreateConversation submits the first message of a new conversation
// and returns the server-assigned conversation and request IDs.
func (c *Client) CreateConversation(ctx context.Context, message string, prof *profile.Profile) (*StartResult, error) {
	return c.start(ctx, c.baseURL+"/api/conversations", message, prof)
}

// ContinueConversation submits a follow-up message on an existing
// conversation.
func (c *Client) ContinueConversation(ctx context.Context, conversationID, message string, prof *profile.Profile) (*StartResult, error) {
	endpoint := fmt.Sprintf("%s/api/conversations/%s/messages", c.baseURL, url.PathEscape(conversationID))
	return c.start(ctx, endpoint, message, prof)
}

func (c *Client) start(ctx context.Context, endpoint, message string, prof *profile.Profile) (*StartResult, error) {
	// An all-empty profile (explicit skip) is not worth sending.
	if prof != nil && prof.IsEmpty() {
		prof = nil
	}
	payload, err := json.Marshal(startRequest{Message: message, Profile: prof})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result StartResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &ProtocolError{Reason: "unparseable response body"}
	}
	if result.ConversationID == "" || result.RequestID == "" {
		return nil, &ProtocolError{Reason: "response missing conversation or request id"}
	}

	c.logger.Debug("message accepted",
		"conversation_id", result.ConversationID,
		"request_id", result.RequestID,
	)
	return &result, nil
}

// PollAnswer queries the state of an answer job. A well-formed error
// payload is returned as a *BackendError; the caller never needs to
// inspect PollResult.Error itself.
func (c *Client) PollAnswer(ctx context.Context, conversationID, requestID string) (*PollResult, error) {
	endpoint := fmt.Sprintf("%s/api/conversations/%s/answer?request_id=%s",
		c.baseURL, url.PathEscape(conversationID), url.QueryEscape(requestID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result PollResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &ProtocolError{Reason: "unparseable poll response"}
	}

	switch result.Status {
	case PollInProgress:
		return &result, nil
	case PollFinished:
		if result.Answer == "" {
			return nil, &ProtocolError{Reason: "finished status with no answer"}
		}
		return &result, nil
	case PollError:
		return nil, &BackendError{Message: result.Error}
	}
	return nil, &ProtocolError{Reason: fmt.Sprintf("unknown status %q", result.Status)}
}

// do executes the request and returns the body of a 2xx response.
// Anything else becomes a *TransportError, with the server's error
// message folded in when the body carries one.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		terr := &TransportError{StatusCode: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil && eb.Error != "" {
			terr.Message = eb.Error
		}
		return nil, terr
	}
	return body, nil
}
