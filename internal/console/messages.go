// Package console exposes the query engine over a WebSocket, for
// interactive exploration without a round-trip per HTTP request.
package console

import "encoding/json"

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server messages.
type ClientMessage struct {
	Type string          `json:"type"` // "query", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// QueryData is the payload for "query" messages. Query is the raw
// query string, exactly as it would follow the '?' of an HTTP request.
type QueryData struct {
	Entity string `json:"entity"`
	Query  string `json:"query"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "session", "result", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// SessionData is sent once after the upgrade.
type SessionData struct {
	SessionID string `json:"session_id"`
}

// ErrorData carries a protocol-level error. Query evaluation errors
// travel inside the result envelope instead.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
