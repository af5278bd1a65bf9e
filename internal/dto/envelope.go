package dto

import "encoding/json"

// Envelope is what relay processes exchange over the broadcast bus.
// Payload is the exact frame to hand to clients; the other fields drive filtering.
type Envelope struct {
	Type string `json:"type"`
	// SenderID is the user id of the originator, kept for logging.
	SenderID string `json:"sender_id"`
	// SessionID identifies the originating connection; receivers skip their own.
	SessionID string `json:"session_id"`
	// Seq is the update log position for yjs-update envelopes, 0 otherwise.
	Seq     int64           `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload"`
}
