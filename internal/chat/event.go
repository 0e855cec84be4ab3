package chat

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event names carried in the envelope's "event" field.
const (
	EventMessage    = "message"
	EventUserUpdate = "user-update"
)

var errUnknownEvent = errors.New("unknown event")

// Event is the envelope for every frame in both directions.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// MessagePayload is what a client sends with a "message" event.
type MessagePayload struct {
	Data     string `json:"data"`
	IsFile   bool   `json:"isFile"`
	FileType string `json:"fileType"`
}

// UserUpdate is the roster pushed after every membership change.
type UserUpdate struct {
	Count int      `json:"count"`
	Users []string `json:"users"`
}

func encodeEvent(name string, data any) ([]byte, error) {
	return json.Marshal(Event{Event: name, Data: data})
}

// decodeMessage parses one inbound frame. Only "message" events are accepted.
func decodeMessage(frame []byte) (MessagePayload, error) {
	var in inboundEvent
	if err := json.Unmarshal(frame, &in); err != nil {
		return MessagePayload{}, fmt.Errorf("decode envelope: %w", err)
	}
	if in.Event != EventMessage {
		return MessagePayload{}, fmt.Errorf("%w: %q", errUnknownEvent, in.Event)
	}
	var payload MessagePayload
	if len(in.Data) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(in.Data, &payload); err != nil {
		return MessagePayload{}, fmt.Errorf("decode message: %w", err)
	}
	return payload, nil
}
