package dto

import (
	"encoding/json"
)

// YjsUpdateDTO is an update relayed to a client, live or during replay.
type YjsUpdateDTO struct {
	Type   string          `json:"type"`
	Update json.RawMessage `json:"update"`
}

// UserJoinedDTO is sent only to the joining connection.
type UserJoinedDTO struct {
	Type   string `json:"type"`
	UserID interface{} `json:"user_id"`
	Color  string      `json:"color"`
}

// ErrorDTO is the reply to a malformed frame.
type ErrorDTO struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// EncodeYjsUpdate builds {"type":"yjs-update","update":<update>}.
func EncodeYjsUpdate(update json.RawMessage) []byte {
	if len(update) == 0 {
		update = jsonNull
	}
	return mustMarshal(YjsUpdateDTO{Type: TypeYjsUpdate, Update: update})
}

// EncodePresence builds an awareness or cursor frame. The payload object is
// tagged with the sender's user_id and color, overwriting any client-sent values.
// key is "awareness" or "cursor". userID is a number or a string, see domain.Identity.WireID.
func EncodePresence(msgType, key string, payload Fields, userID interface{}, color string) []byte {
	tagged := make(Fields, len(payload)+2)
	for k, v := range payload {
		tagged[k] = v
	}
	tagged["user_id"] = mustMarshal(userID)
	tagged["color"] = mustMarshal(color)

	return mustMarshal(map[string]interface{}{
		"type": msgType,
		key:    tagged,
	})
}

// EncodeUserJoined builds the join notice.
func EncodeUserJoined(userID interface{}, color string) []byte {
	return mustMarshal(UserJoinedDTO{Type: TypeUserJoined, UserID: userID, Color: color})
}

// EncodeError builds a protocol error frame.
func EncodeError(message string) []byte {
	return mustMarshal(ErrorDTO{Type: TypeError, Message: message})
}

// mustMarshal is only used with values that always encode: strings, numbers,
// structs of those and json.RawMessage already validated by DecodeInbound.
func mustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic("dto: marshal outbound frame: " + err.Error())
	}
	return b
}
