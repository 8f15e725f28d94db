package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mixWith(t *testing.T, volumes ...int) *Mix {
	t.Helper()
	m := NewMix()
	for i, v := range volumes {
		var err error
		m, err = m.AddTrack(fmt.Sprintf("track-%d", i), v)
		require.NoError(t, err)
	}
	return m
}

func TestNewMixIsEmpty(t *testing.T) {
	m := NewMix()

	assert.NotEmpty(t, m.ID())
	assert.Equal(t, 0, m.TrackCount())
	assert.Equal(t, DefaultMasterVolume, m.MasterVolume())
	assert.True(t, m.IsEmpty())
	assert.Empty(t, m.TrackIDs())
}

func TestAddTrackReturnsNewMix(t *testing.T) {
	original := NewMix()

	updated, err := original.AddTrack("rain", 80)
	require.NoError(t, err)

	assert.NotSame(t, original, updated)
	assert.Equal(t, 0, original.TrackCount(), "original must not change")
	assert.Equal(t, 1, updated.TrackCount())
	assert.Equal(t, original.ID(), updated.ID())

	track, ok := updated.Track("rain")
	require.True(t, ok)
	assert.Equal(t, 80, track.Volume)
	assert.False(t, track.AddedAt.IsZero())
	assert.False(t, updated.UpdatedAt().Before(original.UpdatedAt()))
}

func TestAddTrackKeepsInsertionOrder(t *testing.T) {
	m := NewMix()
	for _, id := range []string{"rain", "fire", "brown"} {
		var err error
		m, err = m.AddTrack(id, DefaultTrackVolume)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"rain", "fire", "brown"}, m.TrackIDs())
}

func TestAddTrackErrors(t *testing.T) {
	full := mixWith(t, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100)
	require.Equal(t, MaxTracks, full.TrackCount())

	withRain, err := NewMix().AddTrack("rain", 50)
	require.NoError(t, err)

	tests := []struct {
		name string
		mix  *Mix
		id   string
		vol  int
		code ErrorCode
		want error
	}{
		{name: "eleventh track", mix: full, id: "extra", vol: 50, code: CodeLimitExceeded, want: ErrLimitExceeded},
		{name: "duplicate id", mix: withRain, id: "rain", vol: 50, code: CodeDuplicateTrack, want: ErrDuplicateTrack},
		{name: "empty id", mix: withRain, id: "", vol: 50, code: CodeInvalidTrackID, want: ErrInvalidTrackID},
		{name: "volume too high", mix: withRain, id: "fire", vol: 101, code: CodeInvalidVolume, want: ErrInvalidVolume},
		{name: "negative volume", mix: withRain, id: "fire", vol: -1, code: CodeInvalidVolume, want: ErrInvalidVolume},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.mix.TrackCount()
			m, err := tt.mix.AddTrack(tt.id, tt.vol)

			assert.Nil(t, m)
			var mixErr *MixDomainError
			require.True(t, errors.As(err, &mixErr))
			assert.Equal(t, tt.code, mixErr.Code)
			assert.ErrorIs(t, err, tt.want)

			code, ok := CodeOf(err)
			assert.True(t, ok)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, before, tt.mix.TrackCount())
		})
	}
}

func TestRemoveTrack(t *testing.T) {
	m := mixWith(t, 10, 20, 30)

	removed := m.RemoveTrack("track-1")

	assert.Equal(t, []string{"track-0", "track-2"}, removed.TrackIDs())
	assert.Equal(t, 3, m.TrackCount())
}

func TestRemoveMissingTrackIsNoop(t *testing.T) {
	m := mixWith(t, 10)

	same := m.RemoveTrack("missing")

	assert.Equal(t, m.ToDTO(), same.ToDTO())
}

func TestUpdateTrackVolume(t *testing.T) {
	m := mixWith(t, 10, 20)

	updated, err := m.UpdateTrackVolume("track-1", 75)
	require.NoError(t, err)

	track, _ := updated.Track("track-1")
	assert.Equal(t, 75, track.Volume)
	original, _ := m.Track("track-1")
	assert.Equal(t, 20, original.Volume)
}

func TestUpdateTrackVolumeSameValueReturnsSameMix(t *testing.T) {
	m := mixWith(t, 42)

	same, err := m.UpdateTrackVolume("track-0", 42)

	require.NoError(t, err)
	assert.Same(t, m, same)
}

func TestUpdateTrackVolumeErrors(t *testing.T) {
	m := mixWith(t, 42)

	_, err := m.UpdateTrackVolume("missing", 10)
	assert.ErrorIs(t, err, ErrTrackNotFound)

	_, err = m.UpdateTrackVolume("track-0", 150)
	assert.ErrorIs(t, err, ErrInvalidVolume)
}

func TestUpdateMasterVolume(t *testing.T) {
	m := NewMix()

	assert.Same(t, m, m.UpdateMasterVolume(DefaultMasterVolume))
	assert.Same(t, m, m.UpdateMasterVolume(250), "clamped to current value")

	quieter := m.UpdateMasterVolume(40)
	assert.NotSame(t, m, quieter)
	assert.Equal(t, 40, quieter.MasterVolume())
	assert.Equal(t, DefaultMasterVolume, m.MasterVolume())

	assert.Equal(t, 0, quieter.UpdateMasterVolume(-20).MasterVolume())
}

func TestTracksReturnsCopy(t *testing.T) {
	m := mixWith(t, 10)

	tracks := m.Tracks()
	tracks[0].Volume = 99

	track, _ := m.Track("track-0")
	assert.Equal(t, 10, track.Volume)
}

func TestDTORoundTrip(t *testing.T) {
	m := mixWith(t, 10, 55, 100).UpdateMasterVolume(70)

	data, err := json.Marshal(m.ToDTO())
	require.NoError(t, err)

	var dto MixDTO
	require.NoError(t, json.Unmarshal(data, &dto))

	restored, err := FromDTO(dto)
	require.NoError(t, err)

	assert.Equal(t, m.ID(), restored.ID())
	assert.Equal(t, m.TrackIDs(), restored.TrackIDs())
	assert.Equal(t, m.MasterVolume(), restored.MasterVolume())
	for i, track := range m.Tracks() {
		assert.Equal(t, track.Volume, restored.Tracks()[i].Volume)
	}
}

func TestFromDTOValidates(t *testing.T) {
	tests := []struct {
		name string
		dto  MixDTO
		want error
	}{
		{
			name: "master out of range",
			dto:  MixDTO{MixState: MixState{MasterVolume: 101}},
			want: ErrInvalidVolume,
		},
		{
			name: "duplicate ids",
			dto:  MixDTO{MixState: MixState{MasterVolume: 50, Tracks: []Track{{ID: "a"}, {ID: "a"}}}},
			want: ErrDuplicateTrack,
		},
		{
			name: "empty id",
			dto:  MixDTO{MixState: MixState{MasterVolume: 50, Tracks: []Track{{ID: ""}}}},
			want: ErrInvalidTrackID,
		},
		{
			name: "track volume out of range",
			dto:  MixDTO{MixState: MixState{MasterVolume: 50, Tracks: []Track{{ID: "a", Volume: -4}}}},
			want: ErrInvalidVolume,
		},
		{
			name: "too many tracks",
			dto: MixDTO{MixState: MixState{MasterVolume: 50, Tracks: []Track{
				{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}, {ID: "5"}, {ID: "6"},
				{ID: "7"}, {ID: "8"}, {ID: "9"}, {ID: "10"}, {ID: "11"},
			}}},
			want: ErrLimitExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := FromDTO(tt.dto)
			assert.Nil(t, m)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFromDTOAssignsMissingIdentity(t *testing.T) {
	m, err := FromDTO(MixDTO{MixState: MixState{MasterVolume: 80}})

	require.NoError(t, err)
	assert.NotEmpty(t, m.ID())
	assert.False(t, m.CreatedAt().IsZero())
}

func TestEnsureNotEmpty(t *testing.T) {
	assert.ErrorIs(t, NewMix().EnsureNotEmpty(), ErrMixEmpty)
	assert.NoError(t, mixWith(t, 5).EnsureNotEmpty())
}

func TestTransientGainsForFullMix(t *testing.T) {
	m := mixWith(t, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50)

	gains := m.TransientGains()

	assert.Len(t, gains, MaxTracks)
	expected := CalculateTransientGain(50, 100, 10)
	for id, g := range gains {
		assert.Equal(t, expected, g, id)
	}
}

func TestErrorMessages(t *testing.T) {
	_, err := NewMix().UpdateTrackVolume("rain", 10)
	assert.EqualError(t, err, `TRACK_NOT_FOUND: track not in mix (track "rain")`)
}
