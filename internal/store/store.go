package store

import (
	"errors"

	"github.com/jpalmerr/relayboard/internal/hub"
)

// DefaultCoordinateLimit is the number of coordinate records retained when no
// limit is configured.
const DefaultCoordinateLimit = 100

// BannerDataKey is the image metadata field set when a banner record matches.
const BannerDataKey = "bannerData"

var (
	// ErrEmptyImageURL is returned when an image or banner has no URL.
	ErrEmptyImageURL = errors.New("imageUrl is required")

	// ErrMissingBannerField is returned when a banner lacks a required field.
	ErrMissingBannerField = errors.New("imageUrl, brand, position and type are required")
)

// CoordinateRecord is a single sensor reading.
type CoordinateRecord struct {
	Distance     float64 `json:"distance"`
	X            float64 `json:"x"`
	Z            float64 `json:"z"`
	PhotoCapture int     `json:"photoCapture"`

	// Timestamp is the time of acceptance in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// ImageRecord references an externally hosted image.
//
// Metadata is open-ended. It gains a [BannerDataKey] entry holding a
// [BannerRecord] when banner data for the same URL arrives.
type ImageRecord struct {
	URL       string         `json:"url"`
	Metadata  map[string]any `json:"metadata"`
	Timestamp int64          `json:"timestamp"`
}

// BannerRecord describes an advertisement overlay for an image URL.
type BannerRecord struct {
	ImageURL  string `json:"imageUrl"`
	Brand     string `json:"brand"`
	Position  string `json:"position"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// CoordinateInput is a validated coordinate submission.
type CoordinateInput struct {
	Distance     float64
	X            float64
	Z            float64
	PhotoCapture int
}

// ImageInput is an image submission. A nil Metadata is stored as an empty map.
type ImageInput struct {
	URL      string
	Metadata map[string]any
}

// BannerInput is a banner submission. All fields are required.
type BannerInput struct {
	ImageURL string
	Brand    string
	Position string
	Type     string
}

// Limits bounds the retained history.
//
// Coordinates must be at least 1. Images and Banners of 0 mean unbounded.
type Limits struct {
	Coordinates int
	Images      int
	Banners     int
}

// DefaultLimits returns the bounds used when none are configured: 100
// coordinates, unbounded images and banners.
func DefaultLimits() Limits {
	return Limits{Coordinates: DefaultCoordinateLimit}
}

// Stats reports current sequence lengths.
type Stats struct {
	Coordinates int `json:"coordinates"`
	Images      int `json:"images"`
	Banners     int `json:"banners"`
}

// Store defines the history operations used by the HTTP layer.
//
// Implementations must be safe for concurrent access and must publish each
// accepted item in the same critical section as the mutation, so no reader
// or new subscriber observes a half-applied update.
type Store interface {
	// AddCoordinate appends a reading and publishes it.
	AddCoordinate(in CoordinateInput) (CoordinateRecord, error)

	// AddImage prepends an image and publishes it along with the full image history.
	AddImage(in ImageInput) (ImageRecord, error)

	// AttachBanner stores a banner and links it to the newest image with the
	// same URL. Reports whether an image was updated.
	AttachBanner(in BannerInput) (BannerRecord, bool, error)

	// ClearCoordinates empties the coordinate history.
	ClearCoordinates()

	// ClearImages empties the image history.
	ClearImages()

	// ClearAll empties every sequence.
	ClearAll()

	// Coordinates returns a snapshot of the coordinate history, oldest first.
	Coordinates() []CoordinateRecord

	// Images returns a snapshot of the image history, newest first.
	Images() []ImageRecord

	// Banners returns a snapshot of the banner history in arrival order.
	Banners() []BannerRecord

	// FindBanner returns the first banner whose ImageURL equals imageURL.
	FindBanner(imageURL string) (BannerRecord, bool)

	// Subscribe registers a push subscription and returns it together with
	// the seed events describing current history.
	Subscribe(transport string) (*hub.Subscription, []hub.Event)

	// Unsubscribe removes a push subscription.
	Unsubscribe(sub *hub.Subscription)

	// Stats reports current sequence lengths.
	Stats() Stats
}
