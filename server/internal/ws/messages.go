package ws

import (
	"encoding/json"

	"github.com/painless-params/painless/server/internal/store"
)

// Event names used on the wire.
const (
	EventParameterList = "parameter_list"
	EventError         = "error"
	EventUpdate        = "update"
	EventRemove        = "remove"
)

// Message is the JSON envelope for every frame in both directions.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ParameterList is the payload of a parameter_list event.
type ParameterList struct {
	Parameters []store.Parameter `json:"parameters"`
}

// UpdateCommand is the payload of an update event.
type UpdateCommand struct {
	Parameter string `json:"parameter"`
	Value     string `json:"value"`
}

// RemoveCommand is the payload of a remove event.
type RemoveCommand struct {
	Parameter string `json:"parameter"`
}

// ErrorPayload is the payload of an error event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// encode wraps payload in a Message and marshals it.
func encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Event: event, Data: data})
}
