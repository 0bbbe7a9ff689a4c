// ABOUTME: Typed errors for the answer-job API client
// ABOUTME: TransportError, BackendError and ProtocolError with errors.As support

package backend

import "fmt"

// TransportError is a network failure or a non-2xx HTTP outcome.
// StatusCode is zero for pure network failures.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.StatusCode != 0:
		return fmt.Sprintf("backend returned HTTP %d", e.StatusCode)
	case e.Err != nil:
		return "backend unreachable: " + e.Err.Error()
	}
	return "backend request failed"
}

func (e *TransportError) Unwrap() error { return e.Err }

// BackendError is a well-formed error payload from the job API on an
// otherwise successful call.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "backend reported an error"
}

// ProtocolError is a successful response that violates the contract,
// such as an unparseable payload or a finished status with no answer.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "unexpected backend response: " + e.Reason
}
