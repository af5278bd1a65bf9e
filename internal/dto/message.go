package dto

import (
	"encoding/json"
	"errors"
	"unicode/utf8"
)

// Message type discriminators used on the client wire.
const (
	TypeYjsUpdate       = "yjs-update"
	TypeAwarenessUpdate = "awareness-update"
	TypeCursorUpdate    = "cursor-update"
	TypeUserJoined      = "user-joined"
	TypeError           = "error"
)

// InvalidJSONMessage is the error text sent back for undecodable frames.
const InvalidJSONMessage = "Invalid JSON"

// ErrInvalidFrame is returned by DecodeInbound for frames that are not UTF-8 JSON.
var ErrInvalidFrame = errors.New("dto: frame is not valid UTF-8 JSON")

// Inbound is one decoded client message. The set of implementations is closed:
// YjsUpdate, AwarenessUpdate, CursorUpdate and Unknown.
type Inbound interface {
	inbound()
}

// YjsUpdate carries an opaque editing operation and an optional full-text snapshot.
type YjsUpdate struct {
	// Update is forwarded and stored as received. A missing field is the JSON literal null.
	Update json.RawMessage
	// Content is nil when the client did not send a string snapshot.
	Content *string
}

// AwarenessUpdate carries ephemeral awareness state.
type AwarenessUpdate struct {
	Awareness Fields
}

// CursorUpdate carries an ephemeral cursor position.
type CursorUpdate struct {
	Cursor Fields
}

// Unknown is any message whose type is not handled. It is dropped without a reply.
type Unknown struct {
	Type string
}

func (YjsUpdate) inbound()       {}
func (AwarenessUpdate) inbound() {}
func (CursorUpdate) inbound()    {}
func (Unknown) inbound()         {}

// Fields is a JSON object whose values are kept undecoded.
type Fields map[string]json.RawMessage

var jsonNull = json.RawMessage("null")

// DecodeInbound classifies a raw text or binary frame.
// Frames that are not valid UTF-8 or not valid JSON return ErrInvalidFrame.
// Valid JSON that is not an object, or has no string "type", decodes to Unknown.
func DecodeInbound(frame []byte) (Inbound, error) {
	if !utf8.Valid(frame) || !json.Valid(frame) {
		return nil, ErrInvalidFrame
	}

	var fields Fields
	if err := json.Unmarshal(frame, &fields); err != nil {
		return Unknown{}, nil
	}
	var msgType string
	if raw, ok := fields["type"]; ok {
		_ = json.Unmarshal(raw, &msgType)
	}

	switch msgType {
	case TypeYjsUpdate:
		msg := YjsUpdate{Update: jsonNull}
		if raw, ok := fields["update"]; ok {
			msg.Update = raw
		}
		if raw, ok := fields["content"]; ok {
			var content string
			if err := json.Unmarshal(raw, &content); err == nil {
				msg.Content = &content
			}
		}
		return msg, nil
	case TypeAwarenessUpdate:
		return AwarenessUpdate{Awareness: objectOrEmpty(fields["awareness"])}, nil
	case TypeCursorUpdate:
		return CursorUpdate{Cursor: objectOrEmpty(fields["cursor"])}, nil
	default:
		return Unknown{Type: msgType}, nil
	}
}

// objectOrEmpty decodes a JSON object, substituting an empty one for anything else.
func objectOrEmpty(raw json.RawMessage) Fields {
	out := Fields{}
	if len(raw) == 0 {
		return out
	}
	var obj Fields
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return out
	}
	return obj
}
