package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxTracks is the hard cap on simultaneously mixed tracks.
	MaxTracks = 10

	DefaultTrackVolume  = 50
	DefaultMasterVolume = 100
)

// Track is a single sound in a mix. Tracks are replaced, never mutated.
type Track struct {
	ID      string    `json:"id"`
	Volume  int       `json:"volume"`
	AddedAt time.Time `json:"addedAt"`
}

// MixState is the full state of a mix. Track order is addition order.
type MixState struct {
	Tracks       []Track   `json:"tracks"`
	MasterVolume int       `json:"masterVolume"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// MixDTO is the persisted form of a Mix.
type MixDTO struct {
	ID string `json:"id"`
	MixState
}

// Mix is the immutable mix aggregate. Every transition returns a new *Mix and
// leaves the receiver untouched; transitions that change nothing return the
// receiver itself so callers can detect changes by pointer comparison.
type Mix struct {
	id    string
	state MixState
}

// NewMix creates an empty mix with a fresh identity.
func NewMix() *Mix {
	return NewMixWithID(uuid.NewString())
}

// NewMixWithID creates an empty mix with the given identity.
func NewMixWithID(id string) *Mix {
	now := time.Now()
	return &Mix{
		id: id,
		state: MixState{
			Tracks:       []Track{},
			MasterVolume: DefaultMasterVolume,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

// FromDTO rebuilds a Mix from its persisted form, enforcing all invariants.
func FromDTO(dto MixDTO) (*Mix, error) {
	if !validVolume(dto.MasterVolume) {
		return nil, newMixError(CodeInvalidVolume, "", fmt.Sprintf("master volume %d out of range", dto.MasterVolume))
	}
	if len(dto.Tracks) > MaxTracks {
		return nil, newMixError(CodeLimitExceeded, "", fmt.Sprintf("%d tracks exceed the limit of %d", len(dto.Tracks), MaxTracks))
	}

	seen := make(map[string]struct{}, len(dto.Tracks))
	tracks := make([]Track, 0, len(dto.Tracks))
	for _, t := range dto.Tracks {
		if t.ID == "" {
			return nil, newMixError(CodeInvalidTrackID, "", "track id must not be empty")
		}
		if _, dup := seen[t.ID]; dup {
			return nil, newMixError(CodeDuplicateTrack, t.ID, "track already in mix")
		}
		if !validVolume(t.Volume) {
			return nil, newMixError(CodeInvalidVolume, t.ID, fmt.Sprintf("volume %d out of range", t.Volume))
		}
		seen[t.ID] = struct{}{}
		tracks = append(tracks, t)
	}

	id := dto.ID
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	createdAt, updatedAt := dto.CreatedAt, dto.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	return &Mix{
		id: id,
		state: MixState{
			Tracks:       tracks,
			MasterVolume: dto.MasterVolume,
			CreatedAt:    createdAt,
			UpdatedAt:    updatedAt,
		},
	}, nil
}

// ToDTO returns a detached copy of the mix suitable for persistence.
func (m *Mix) ToDTO() MixDTO {
	return MixDTO{ID: m.id, MixState: m.State()}
}

func (m *Mix) ID() string { return m.id }

func (m *Mix) MasterVolume() int { return m.state.MasterVolume }

func (m *Mix) TrackCount() int { return len(m.state.Tracks) }

func (m *Mix) CreatedAt() time.Time { return m.state.CreatedAt }

func (m *Mix) UpdatedAt() time.Time { return m.state.UpdatedAt }

// State returns a copy of the mix state.
func (m *Mix) State() MixState {
	s := m.state
	s.Tracks = m.Tracks()
	return s
}

// Tracks returns a copy of the track list in addition order.
func (m *Mix) Tracks() []Track {
	out := make([]Track, len(m.state.Tracks))
	copy(out, m.state.Tracks)
	return out
}

// Track looks up a track by id.
func (m *Mix) Track(id string) (Track, bool) {
	if i := m.indexOf(id); i >= 0 {
		return m.state.Tracks[i], true
	}
	return Track{}, false
}

// TrackIDs returns the ids of all tracks in addition order.
func (m *Mix) TrackIDs() []string {
	ids := make([]string, len(m.state.Tracks))
	for i, t := range m.state.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// IsEmpty reports whether the mix has no tracks.
func (m *Mix) IsEmpty() bool { return len(m.state.Tracks) == 0 }

// EnsureNotEmpty fails with MIX_EMPTY when the mix has no tracks.
func (m *Mix) EnsureNotEmpty() error {
	if m.IsEmpty() {
		return newMixError(CodeMixEmpty, "", "mix has no tracks")
	}
	return nil
}

// AddTrack appends a track at volume.
func (m *Mix) AddTrack(id string, volume int) (*Mix, error) {
	if id == "" {
		return nil, newMixError(CodeInvalidTrackID, "", "track id must not be empty")
	}
	if len(m.state.Tracks) >= MaxTracks {
		return nil, newMixError(CodeLimitExceeded, id, fmt.Sprintf("mix already has %d tracks", MaxTracks))
	}
	if m.indexOf(id) >= 0 {
		return nil, newMixError(CodeDuplicateTrack, id, "track already in mix")
	}
	if !validVolume(volume) {
		return nil, newMixError(CodeInvalidVolume, id, fmt.Sprintf("volume %d out of range", volume))
	}

	now := time.Now()
	tracks := make([]Track, len(m.state.Tracks), len(m.state.Tracks)+1)
	copy(tracks, m.state.Tracks)
	tracks = append(tracks, Track{ID: id, Volume: volume, AddedAt: now})

	return m.with(tracks, m.state.MasterVolume, now), nil
}

// RemoveTrack drops the track with id. Removing an unknown id is a no-op.
func (m *Mix) RemoveTrack(id string) *Mix {
	i := m.indexOf(id)
	if i < 0 {
		return m
	}

	tracks := make([]Track, 0, len(m.state.Tracks)-1)
	tracks = append(tracks, m.state.Tracks[:i]...)
	tracks = append(tracks, m.state.Tracks[i+1:]...)

	return m.with(tracks, m.state.MasterVolume, time.Now())
}

// UpdateTrackVolume replaces the volume of track id.
func (m *Mix) UpdateTrackVolume(id string, volume int) (*Mix, error) {
	i := m.indexOf(id)
	if i < 0 {
		return nil, newMixError(CodeTrackNotFound, id, "track not in mix")
	}
	if !validVolume(volume) {
		return nil, newMixError(CodeInvalidVolume, id, fmt.Sprintf("volume %d out of range", volume))
	}
	if m.state.Tracks[i].Volume == volume {
		return m, nil
	}

	tracks := make([]Track, len(m.state.Tracks))
	copy(tracks, m.state.Tracks)
	tracks[i].Volume = volume

	return m.with(tracks, m.state.MasterVolume, time.Now()), nil
}

// UpdateMasterVolume sets the master volume, clamped to [0,100].
func (m *Mix) UpdateMasterVolume(volume int) *Mix {
	volume = clampVolume(volume)
	if volume == m.state.MasterVolume {
		return m
	}
	// Tracks are never mutated in place, so the slice can be shared.
	return m.with(m.state.Tracks, volume, time.Now())
}

// TransientGains returns the output gain of every track keyed by id.
func (m *Mix) TransientGains() map[string]float64 {
	gains := make(map[string]float64, len(m.state.Tracks))
	for _, t := range m.state.Tracks {
		gains[t.ID] = CalculateTransientGain(t.Volume, m.state.MasterVolume, len(m.state.Tracks))
	}
	return gains
}

func (m *Mix) with(tracks []Track, masterVolume int, updatedAt time.Time) *Mix {
	return &Mix{
		id: m.id,
		state: MixState{
			Tracks:       tracks,
			MasterVolume: masterVolume,
			CreatedAt:    m.state.CreatedAt,
			UpdatedAt:    updatedAt,
		},
	}
}

func (m *Mix) indexOf(id string) int {
	for i, t := range m.state.Tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
