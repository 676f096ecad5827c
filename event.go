package relayboard

import (
	"encoding/json"

	"github.com/jpalmerr/relayboard/internal/hub"
)

// Event names delivered to push clients and event callbacks.
const (
	// EventCoordinateHistory carries the full coordinate history. It is sent
	// only to newly connected push clients.
	EventCoordinateHistory = hub.CoordinateHistory

	// EventNewCoordinate carries a single accepted coordinate record.
	EventNewCoordinate = hub.NewCoordinate

	// EventImageHistory carries the full image history, newest first. It is
	// sent on connect, after every image and after every banner that matched
	// an image.
	EventImageHistory = hub.ImageHistory

	// EventNewImage carries a single accepted image record.
	EventNewImage = hub.NewImage

	// EventCoordinatesCleared signals that coordinate history was cleared.
	EventCoordinatesCleared = hub.CoordinatesCleared

	// EventImagesCleared signals that image history was cleared.
	EventImagesCleared = hub.ImagesCleared
)

// Event is a broadcast relay event.
//
// Data is the JSON payload exactly as sent to push clients. It is nil for
// the clear signals. Each callback invocation receives its own copy.
type Event struct {
	Name string
	Data json.RawMessage
}

// IsSignal reports whether the event carries no payload.
func (e Event) IsSignal() bool {
	return len(e.Data) == 0
}
