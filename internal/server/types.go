package server

import (
	"github.com/jaki95/ambient-mixer/internal/audio"
	"github.com/jaki95/ambient-mixer/internal/domain"
)

// MixResponse is the current mix together with the gain every track is
// played at.
type MixResponse struct {
	domain.MixDTO
	Gains map[string]float64 `json:"gains"`
}

// AddTrackRequest adds a sound to the mix. Volume defaults to
// domain.DefaultTrackVolume.
type AddTrackRequest struct {
	ID     string `json:"id" binding:"required"`
	Volume *int   `json:"volume"`
}

// VolumeRequest sets a track or master volume. Live previews a track
// volume without committing it to the mix.
type VolumeRequest struct {
	Volume *int `json:"volume" binding:"required"`
	Live   bool `json:"live"`
}

// SavedMixesResponse lists saved mix names.
type SavedMixesResponse struct {
	Mixes []string `json:"mixes"`
}

// StatusResponse reports what the backend is doing.
type StatusResponse struct {
	Service      audio.ServiceStatus `json:"service"`
	ActiveSounds []string            `json:"activeSounds"`
	MixID        string              `json:"mixId"`
	Syncing      bool                `json:"syncing"`
}

// RenderResponse is returned when a render job is accepted.
type RenderResponse struct {
	Message string `json:"message"`
	JobID   string `json:"jobId"`
}

// MessageResponse represents a generic message payload used for success responses.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents a generic error payload used for error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
