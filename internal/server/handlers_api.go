package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/jpalmerr/relayboard/internal/metrics"
	"github.com/jpalmerr/relayboard/internal/store"
)

// bannerPathPrefix precedes the image URL in banner lookups.
const bannerPathPrefix = "/api/banner_data/"

// maxBodyBytes caps request bodies accepted by the write endpoints.
const maxBodyBytes = 1 << 20

// coordinateFields names the positional coordinate values for error messages.
var coordinateFields = [...]string{"distance", "x", "z", "photoCapture"}

type successResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type bannerResponse struct {
	Status       string             `json:"status"`
	Data         store.BannerRecord `json:"data"`
	ImageUpdated bool               `json:"imageUpdated"`
}

type errorResponse struct {
	Error   string `json:"error"`
	ErrorID string `json:"errorId,omitempty"`
}

type coordinateRequest struct {
	Coordinates json.RawMessage `json:"coordinates"`
}

type imageRequest struct {
	ImageURL string         `json:"imageUrl"`
	Metadata map[string]any `json:"metadata"`
}

type bannerRequest struct {
	ImageURL string `json:"imageUrl"`
	Brand    string `json:"brand"`
	Position string `json:"position"`
	Type     string `json:"type"`
}

func (s *Server) handleAddCoordinate(w http.ResponseWriter, r *http.Request) {
	var req coordinateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	in, err := parseCoordinates(req.Coordinates)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.store.AddCoordinate(in)
	if err != nil {
		s.failInternal(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, successResponse{Status: "success", Data: rec})
}

func (s *Server) handleAddImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if req.ImageURL == "" {
		s.writeError(w, http.StatusBadRequest, "imageUrl is required")
		return
	}

	rec, err := s.store.AddImage(store.ImageInput{URL: req.ImageURL, Metadata: req.Metadata})
	if err != nil {
		s.failInternal(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, successResponse{Status: "success", Data: rec})
}

func (s *Server) handleAddBanner(w http.ResponseWriter, r *http.Request) {
	var req bannerRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if missing := req.missingFields(); len(missing) > 0 {
		s.writeError(w, http.StatusBadRequest, "missing required fields: "+strings.Join(missing, ", "))
		return
	}

	rec, updated, err := s.store.AttachBanner(store.BannerInput{
		ImageURL: req.ImageURL,
		Brand:    req.Brand,
		Position: req.Position,
		Type:     req.Type,
	})
	if errors.Is(err, store.ErrMissingBannerField) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.failInternal(w, r, err)
		return
	}

	s.logger.Debug("banner data stored", "image_url", rec.ImageURL, "image_updated", updated)
	s.writeJSON(w, http.StatusCreated, bannerResponse{Status: "success", Data: rec, ImageUpdated: updated})
}

func (s *Server) handleListCoordinates(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Coordinates())
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Images())
}

func (s *Server) handleListBanners(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Banners())
}

// handleGetBanner looks up a banner by image URL. The URL is taken from the
// escaped request path, so both percent-encoded and raw absolute URLs
// ("https://cdn/x.jpg") match.
func (s *Server) handleGetBanner(w http.ResponseWriter, r *http.Request) {
	imageURL, err := bannerImageURL(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid imageUrl escape")
		return
	}

	rec, ok := s.store.FindBanner(imageURL)
	if !ok || imageURL == "" {
		s.writeError(w, http.StatusNotFound, "banner data not found")
		return
	}

	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleClearCoordinates(w http.ResponseWriter, r *http.Request) {
	s.store.ClearCoordinates()
	s.logger.Info("coordinate history cleared")
	s.writeJSON(w, http.StatusOK, successResponse{Status: "success", Message: "coordinates cleared"})
}

func (s *Server) handleClearImages(w http.ResponseWriter, r *http.Request) {
	s.store.ClearImages()
	s.logger.Info("image history cleared")
	s.writeJSON(w, http.StatusOK, successResponse{Status: "success", Message: "images cleared"})
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	s.store.ClearAll()
	s.logger.Info("all history cleared")
	s.writeJSON(w, http.StatusOK, successResponse{Status: "success", Message: "all data cleared"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"history": s.store.Stats(),
	})
}

// bannerImageURL returns the unescaped remainder of the request path after
// bannerPathPrefix.
func bannerImageURL(r *http.Request) (string, error) {
	raw := strings.TrimPrefix(r.URL.EscapedPath(), bannerPathPrefix)
	return url.PathUnescape(raw)
}

// parseCoordinates validates the positional [distance, x, z, photoCapture?]
// array. A missing or null photoCapture defaults to 0.
func parseCoordinates(raw json.RawMessage) (store.CoordinateInput, error) {
	shapeErr := errors.New("coordinates must be an array of at least 3 numbers: [distance, x, z, photoCapture?]")

	var values []any
	if len(raw) == 0 || json.Unmarshal(raw, &values) != nil || len(values) < 3 {
		return store.CoordinateInput{}, shapeErr
	}

	var nums [3]float64
	for i := range nums {
		n, ok := values[i].(float64)
		if !ok {
			return store.CoordinateInput{}, fmt.Errorf("coordinates[%d] (%s) must be a number", i, coordinateFields[i])
		}
		nums[i] = n
	}

	in := store.CoordinateInput{Distance: nums[0], X: nums[1], Z: nums[2]}
	if len(values) > 3 && values[3] != nil {
		flag, ok := values[3].(float64)
		if !ok || (flag != 0 && flag != 1) {
			return store.CoordinateInput{}, errors.New("coordinates[3] (photoCapture) must be 0 or 1")
		}
		in.PhotoCapture = int(flag)
	}
	return in, nil
}

// missingFields lists required banner fields that are empty.
func (b bannerRequest) missingFields() []string {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"imageUrl", b.ImageURL},
		{"brand", b.Brand},
		{"position", b.Position},
		{"type", b.Type},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// decodeBody decodes a size-limited JSON body into v. On failure it writes a
// 400 response and returns false.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// failInternal logs err with a fresh correlation ID and writes a generic 500.
func (s *Server) failInternal(w http.ResponseWriter, r *http.Request, err error) {
	errorID := uuid.New().String()
	s.logger.Error("request failed",
		"error_id", errorID,
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
	)
	s.writeInternalError(w, errorID)
}

func (s *Server) writeInternalError(w http.ResponseWriter, errorID string) {
	metrics.RequestsRejected.WithLabelValues("internal").Inc()
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   "internal server error",
		ErrorID: errorID,
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	metrics.RequestsRejected.WithLabelValues(rejectReason(status)).Inc()
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func rejectReason(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusRequestEntityTooLarge:
		return "too_large"
	default:
		return "invalid"
	}
}
