package protocol

import "encoding/json"

// MessageType is the event id carried in the envelope ("ui.submit",
// "chat.transcript", "device.audio.ended", ...).
type MessageType string

// MsgError is sent back to a client whose frame could not be decoded or
// routed. It never reaches a session.
const MsgError MessageType = "protocol.error"

// Envelope is the outer JSON wrapper for all WebSocket messages.
//
//	{"type": "<event id>", "payload": { /* event-specific fields */ }}
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrorPayload accompanies MsgError.
type ErrorPayload struct {
	Message string      `json:"message"`
	Type    MessageType `json:"type,omitempty"`
}
