package store

import (
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/jpalmerr/relayboard/internal/hub"
	"github.com/jpalmerr/relayboard/internal/metrics"
)

// Broadcaster is the subset of [hub.Hub] used by the store.
type Broadcaster interface {
	Publish(ev hub.Event)
	Subscribe(transport string) *hub.Subscription
	Unsubscribe(sub *hub.Subscription)
}

// HistoryStore is the in-memory implementation of [Store].
//
// All operations are serialized under a single mutex. Mutating operations
// encode and publish their events while still holding it, so subscribers see
// events in exactly the order the history changed, and a subscriber that
// joins via [HistoryStore.Subscribe] is seeded with a snapshot that is
// consistent with the first live event it receives.
//
// Encoding happens before the mutation is committed: if an event cannot be
// encoded the history is left unchanged and the error is returned.
type HistoryStore struct {
	mu          sync.Mutex
	coordinates []CoordinateRecord
	images      []ImageRecord
	banners     []BannerRecord

	limits Limits
	bus    Broadcaster
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewHistoryStore creates an empty [HistoryStore] publishing to bus.
//
// A Coordinates limit below 1 selects [DefaultCoordinateLimit]; negative
// Images or Banners limits are treated as unbounded. A nil clock uses the
// real clock.
func NewHistoryStore(bus Broadcaster, limits Limits, clock clockwork.Clock, logger *slog.Logger) *HistoryStore {
	if limits.Coordinates < 1 {
		limits.Coordinates = DefaultCoordinateLimit
	}
	if limits.Images < 0 {
		limits.Images = 0
	}
	if limits.Banners < 0 {
		limits.Banners = 0
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &HistoryStore{
		coordinates: []CoordinateRecord{},
		images:      []ImageRecord{},
		banners:     []BannerRecord{},
		limits:      limits,
		bus:         bus,
		clock:       clock,
		logger:      logger,
	}
	s.recordSizes()
	return s
}

// Limits returns the bounds in effect.
func (s *HistoryStore) Limits() Limits {
	return s.limits
}

// AddCoordinate appends a reading, evicting the oldest once the coordinate
// limit is exceeded, and publishes a new-coordinate event.
func (s *HistoryStore) AddCoordinate(in CoordinateInput) (CoordinateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := CoordinateRecord{
		Distance:     in.Distance,
		X:            in.X,
		Z:            in.Z,
		PhotoCapture: in.PhotoCapture,
		Timestamp:    s.now(),
	}

	ev, err := hub.NewEvent(hub.NewCoordinate, rec)
	if err != nil {
		return CoordinateRecord{}, err
	}

	s.coordinates = append(s.coordinates, rec)
	if over := len(s.coordinates) - s.limits.Coordinates; over > 0 {
		s.coordinates = append([]CoordinateRecord(nil), s.coordinates[over:]...)
		metrics.ItemsEvicted.WithLabelValues("coordinates").Add(float64(over))
	}
	metrics.ItemsAccepted.WithLabelValues("coordinates").Inc()
	s.recordSizes()

	s.bus.Publish(ev)
	return rec, nil
}

// AddImage prepends an image, evicting the oldest when an image limit is set,
// then publishes new-image followed by the full image-history.
func (s *HistoryStore) AddImage(in ImageInput) (ImageRecord, error) {
	if in.URL == "" {
		return ImageRecord{}, ErrEmptyImageURL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	metadata := make(map[string]any, len(in.Metadata))
	maps.Copy(metadata, in.Metadata)

	rec := ImageRecord{
		URL:       in.URL,
		Metadata:  metadata,
		Timestamp: s.now(),
	}

	next := make([]ImageRecord, 0, len(s.images)+1)
	next = append(next, rec)
	next = append(next, s.images...)
	evicted := 0
	if s.limits.Images > 0 && len(next) > s.limits.Images {
		evicted = len(next) - s.limits.Images
		next = next[:s.limits.Images]
	}

	newEv, err := hub.NewEvent(hub.NewImage, rec)
	if err != nil {
		return ImageRecord{}, err
	}
	historyEv, err := hub.NewEvent(hub.ImageHistory, next)
	if err != nil {
		return ImageRecord{}, err
	}

	s.images = next
	if evicted > 0 {
		metrics.ItemsEvicted.WithLabelValues("images").Add(float64(evicted))
	}
	metrics.ItemsAccepted.WithLabelValues("images").Inc()
	s.recordSizes()

	s.bus.Publish(newEv)
	s.bus.Publish(historyEv)
	return rec, nil
}

// AttachBanner appends a banner record and sets the bannerData metadata of
// the first image (newest first) whose URL matches exactly. When an image is
// updated the full image-history is published. No banner-specific event
// exists.
func (s *HistoryStore) AttachBanner(in BannerInput) (BannerRecord, bool, error) {
	if in.ImageURL == "" || in.Brand == "" || in.Position == "" || in.Type == "" {
		return BannerRecord{}, false, ErrMissingBannerField
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := BannerRecord{
		ImageURL:  in.ImageURL,
		Brand:     in.Brand,
		Position:  in.Position,
		Type:      in.Type,
		Timestamp: s.now(),
	}

	match := -1
	for i := range s.images {
		if s.images[i].URL == rec.ImageURL {
			match = i
			break
		}
	}

	var (
		images    = s.images
		historyEv hub.Event
	)
	if match >= 0 {
		// copy-on-write: snapshots already handed out keep the old map
		images = make([]ImageRecord, len(s.images))
		copy(images, s.images)
		metadata := maps.Clone(images[match].Metadata)
		if metadata == nil {
			metadata = make(map[string]any, 1)
		}
		metadata[BannerDataKey] = rec
		images[match].Metadata = metadata

		ev, err := hub.NewEvent(hub.ImageHistory, images)
		if err != nil {
			return BannerRecord{}, false, fmt.Errorf("attach banner to %q: %w", rec.ImageURL, err)
		}
		historyEv = ev
	}

	s.banners = append(s.banners, rec)
	if s.limits.Banners > 0 {
		if over := len(s.banners) - s.limits.Banners; over > 0 {
			s.banners = append([]BannerRecord(nil), s.banners[over:]...)
			metrics.ItemsEvicted.WithLabelValues("banners").Add(float64(over))
		}
	}
	metrics.ItemsAccepted.WithLabelValues("banners").Inc()

	if match < 0 {
		metrics.BannerMatches.WithLabelValues("unmatched").Inc()
		s.recordSizes()
		return rec, false, nil
	}

	s.images = images
	metrics.BannerMatches.WithLabelValues("matched").Inc()
	s.recordSizes()

	s.bus.Publish(historyEv)
	return rec, true, nil
}

// ClearCoordinates empties the coordinate history and publishes coordinates-cleared.
func (s *HistoryStore) ClearCoordinates() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.coordinates = []CoordinateRecord{}
	s.recordSizes()
	s.bus.Publish(hub.Signal(hub.CoordinatesCleared))
}

// ClearImages empties the image history and publishes images-cleared.
func (s *HistoryStore) ClearImages() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.images = []ImageRecord{}
	s.recordSizes()
	s.bus.Publish(hub.Signal(hub.ImagesCleared))
}

// ClearAll empties all three sequences and publishes coordinates-cleared and
// images-cleared. Banner history has no clear event.
func (s *HistoryStore) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.coordinates = []CoordinateRecord{}
	s.images = []ImageRecord{}
	s.banners = []BannerRecord{}
	s.recordSizes()
	s.bus.Publish(hub.Signal(hub.CoordinatesCleared))
	s.bus.Publish(hub.Signal(hub.ImagesCleared))
}

// Coordinates returns a copy of the coordinate history, oldest first.
func (s *HistoryStore) Coordinates() []CoordinateRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CoordinateRecord{}, s.coordinates...)
}

// Images returns a copy of the image history, newest first.
//
// Metadata maps are shared with the store but are never written after
// insertion; banner attachment swaps in a new map instead.
func (s *HistoryStore) Images() []ImageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ImageRecord{}, s.images...)
}

// Banners returns a copy of the banner history in arrival order.
func (s *HistoryStore) Banners() []BannerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]BannerRecord{}, s.banners...)
}

// FindBanner returns the first banner whose ImageURL equals imageURL.
func (s *HistoryStore) FindBanner(imageURL string) (BannerRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.banners {
		if b.ImageURL == imageURL {
			return b, true
		}
	}
	return BannerRecord{}, false
}

// Subscribe registers a subscription with the broadcaster and returns the
// seed events for it: coordinate-history when coordinates exist and
// image-history when images exist. Registration and snapshot happen under the
// store lock, so the subscriber receives every later event exactly once.
//
// Caller must call [HistoryStore.Unsubscribe] when done.
func (s *HistoryStore) Subscribe(transport string) (*hub.Subscription, []hub.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := s.bus.Subscribe(transport)

	var seeds []hub.Event
	if len(s.coordinates) > 0 {
		if ev, err := hub.NewEvent(hub.CoordinateHistory, s.coordinates); err != nil {
			s.logger.Error("failed to encode coordinate seed", "error", err)
		} else {
			seeds = append(seeds, ev)
		}
	}
	if len(s.images) > 0 {
		if ev, err := hub.NewEvent(hub.ImageHistory, s.images); err != nil {
			s.logger.Error("failed to encode image seed", "error", err)
		} else {
			seeds = append(seeds, ev)
		}
	}
	return sub, seeds
}

// Unsubscribe removes a subscription created by [HistoryStore.Subscribe].
func (s *HistoryStore) Unsubscribe(sub *hub.Subscription) {
	s.bus.Unsubscribe(sub)
}

// Stats reports current sequence lengths.
func (s *HistoryStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats()
}

func (s *HistoryStore) stats() Stats {
	return Stats{
		Coordinates: len(s.coordinates),
		Images:      len(s.images),
		Banners:     len(s.banners),
	}
}

// recordSizes updates the history size gauges. Caller must hold s.mu.
func (s *HistoryStore) recordSizes() {
	st := s.stats()
	metrics.HistorySize.WithLabelValues("coordinates").Set(float64(st.Coordinates))
	metrics.HistorySize.WithLabelValues("images").Set(float64(st.Images))
	metrics.HistorySize.WithLabelValues("banners").Set(float64(st.Banners))
}

func (s *HistoryStore) now() int64 {
	return s.clock.Now().UnixMilli()
}
