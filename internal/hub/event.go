package hub

import (
	"encoding/json"
	"fmt"
)

// Event names pushed to clients.
const (
	CoordinateHistory  = "coordinate-history"
	NewCoordinate      = "new-coordinate"
	ImageHistory       = "image-history"
	NewImage           = "new-image"
	CoordinatesCleared = "coordinates-cleared"
	ImagesCleared      = "images-cleared"
)

// Event is a named message delivered to every subscriber.
//
// Data holds the JSON-encoded payload. It is nil for signal events such as
// [CoordinatesCleared], which carry no payload.
type Event struct {
	Name string
	Data json.RawMessage
}

// NewEvent encodes payload and returns an [Event] carrying it.
func NewEvent(name string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return Event{Name: name, Data: data}, nil
}

// Signal returns a payload-less [Event].
func Signal(name string) Event {
	return Event{Name: name}
}

// Envelope is the wire form used by message-framed transports.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Envelope wraps the event for framed transports such as WebSocket.
func (e Event) Envelope() Envelope {
	return Envelope{Event: e.Name, Data: e.Data}
}
