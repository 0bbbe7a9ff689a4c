// ABOUTME: Package documentation for the answer-job backend client
// ABOUTME: Describes the create/continue/poll HTTP contract and error taxonomy

// Package backend implements the HTTP client for the answer-job API.
//
// # Contract
//
// The backend exposes three operations, all JSON over HTTP:
//
//   - POST /api/conversations                      create a conversation with the first message
//   - POST /api/conversations/{id}/messages       continue an existing conversation
//   - GET  /api/conversations/{id}/answer         poll for the answer to a request
//
// Create and continue return a conversation ID and a request ID; the
// request ID identifies the answer job to poll. Poll returns a payload
// status of in_progress, finished (with the answer), or error.
//
// # Error classification
//
// A non-2xx HTTP outcome or a network failure is always a
// *TransportError, regardless of body. A 2xx response whose payload
// status is "error" is a *BackendError. A 2xx response that cannot be
// parsed, or a finished payload missing its answer, is a
// *ProtocolError. Callers classify with errors.As.
package backend
