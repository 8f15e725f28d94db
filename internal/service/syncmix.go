package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jaki95/ambient-mixer/internal/audio"
	"github.com/jaki95/ambient-mixer/internal/domain"
)

// Player is the part of audio.Port the sync use case drives.
type Player interface {
	ActiveSounds() []string
	SetMasterVolume(ctx context.Context, volume int, opts audio.MasterOptions)
	Play(ctx context.Context, soundID string, volume float64, loop bool) error
	Stop(ctx context.Context, soundID string) error
	SetVolume(ctx context.Context, soundID string, volume domain.VolumeCommand) error
}

// Operation names a per-sound backend call made during a sync pass.
type Operation string

const (
	OpStop      Operation = "stop"
	OpPlay      Operation = "play"
	OpSetVolume Operation = "set_volume"
	// OpSync marks a pass that aborted before finishing its items.
	OpSync Operation = "sync"
)

// ItemResult is the outcome of one per-sound operation. Err is nil on success.
type ItemResult struct {
	SoundID string
	Op      Operation
	Err     error
}

// SyncReport summarises one sync pass.
type SyncReport struct {
	MixID    string
	Results  []ItemResult
	Started  time.Time
	Finished time.Time
}

// Failed returns the results that carry an error.
func (r SyncReport) Failed() []ItemResult {
	var failed []ItemResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// SyncMix makes the player's active set match a mix snapshot.
//
// At most one pass runs at a time. A mix submitted during a pass replaces
// any mix already waiting; when the pass ends, the waiting mix runs on a new
// goroutine. Intermediate mixes are dropped, only the latest one matters.
type SyncMix struct {
	player         Player
	maxConcurrency int
	onReport       func(SyncReport)

	mu      sync.Mutex
	syncing bool
	pending *domain.Mix
	idle    chan struct{}
}

// SyncOption configures a SyncMix.
type SyncOption func(*SyncMix)

// WithMaxConcurrency bounds the number of concurrent per-sound operations.
// Zero or negative means unbounded.
func WithMaxConcurrency(n int) SyncOption {
	return func(u *SyncMix) { u.maxConcurrency = n }
}

// WithReportHandler receives the report of every finished pass, including
// passes started from the pending slot.
func WithReportHandler(fn func(SyncReport)) SyncOption {
	return func(u *SyncMix) { u.onReport = fn }
}

// NewSyncMix creates an idle use case driving player.
func NewSyncMix(player Player, opts ...SyncOption) *SyncMix {
	u := &SyncMix{player: player}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Execute synchronises mix. When idle it runs the pass on the calling
// goroutine and returns its report. When a pass is already running it
// stores mix as the pending snapshot and returns nil immediately.
//
// A started pass always runs to completion; cancelling ctx does not abort
// it.
func (u *SyncMix) Execute(ctx context.Context, mix *domain.Mix) *SyncReport {
	if !u.claim(mix) {
		return nil
	}
	return u.run(ctx, mix)
}

// claim either marks the use case busy and returns true, or parks mix in the
// pending slot and returns false.
func (u *SyncMix) claim(mix *domain.Mix) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.syncing {
		if u.pending != nil {
			slog.Debug("Dropping superseded pending mix", "mixId", u.pending.ID())
		}
		u.pending = mix
		return false
	}
	u.syncing = true
	u.pending = nil
	u.idle = make(chan struct{})
	return true
}

// Syncing reports whether a pass is in flight.
func (u *SyncMix) Syncing() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.syncing
}

// Wait blocks until no pass is running and nothing is pending.
func (u *SyncMix) Wait(ctx context.Context) error {
	u.mu.Lock()
	if !u.syncing {
		u.mu.Unlock()
		return nil
	}
	idle := u.idle
	u.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run performs one pass and then either hands the pending mix to a new
// goroutine or returns to idle. The syncing flag stays set across the hand
// off so a newer Execute cannot slip in ahead of the pending mix.
func (u *SyncMix) run(ctx context.Context, mix *domain.Mix) *SyncReport {
	ctx = context.WithoutCancel(ctx)
	defer u.handOff(ctx)

	report := u.guardedSync(ctx, mix)
	u.deliver(report)
	return &report
}

func (u *SyncMix) handOff(ctx context.Context) {
	u.mu.Lock()
	next := u.pending
	u.pending = nil
	if next == nil {
		u.syncing = false
		close(u.idle)
		u.mu.Unlock()
		return
	}
	u.mu.Unlock()

	go u.run(ctx, next)
}

// guardedSync turns a panic outside the per-item calls into a failed report.
func (u *SyncMix) guardedSync(ctx context.Context, mix *domain.Mix) (report SyncReport) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic during sync: %v", r)
			slog.Error("Sync pass aborted", "error", err)
			report = SyncReport{
				Results:  append(report.Results, ItemResult{Op: OpSync, Err: err}),
				Started:  started,
				Finished: time.Now(),
			}
			if mix != nil {
				report.MixID = mix.ID()
			}
		}
	}()
	return u.performSync(ctx, mix)
}

func (u *SyncMix) deliver(report SyncReport) {
	if u.onReport == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Sync report handler panicked", "mixId", report.MixID, "panic", r)
		}
	}()
	u.onReport(report)
}

func (u *SyncMix) performSync(ctx context.Context, mix *domain.Mix) SyncReport {
	report := SyncReport{MixID: mix.ID(), Started: time.Now()}

	activeIDs := make(map[string]struct{})
	for _, id := range u.player.ActiveSounds() {
		activeIDs[id] = struct{}{}
	}
	tracks := mix.Tracks()
	targetIDs := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		targetIDs[t.ID] = struct{}{}
	}

	// Per-track packets below already include the master volume.
	u.player.SetMasterVolume(ctx, mix.MasterVolume(), audio.MasterOptions{SkipSync: true})

	var stale []string
	for id := range activeIDs {
		if _, keep := targetIDs[id]; !keep {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)

	slog.Debug("Syncing mix",
		"mixId", mix.ID(),
		"active", len(activeIDs),
		"target", len(tracks),
		"stopping", len(stale),
	)

	stopResults := make([]ItemResult, len(stale))
	u.fanOut(len(stale), func(i int) {
		id := stale[i]
		stopResults[i] = u.attempt(mix.ID(), id, OpStop, func() error {
			return u.player.Stop(ctx, id)
		})
	})

	trackResults := make([][]ItemResult, len(tracks))
	trackCount := len(tracks)
	u.fanOut(len(tracks), func(i int) {
		track := tracks[i]
		packet := domain.NewGainPacket(
			domain.CalculateTransientGain(track.Volume, mix.MasterVolume(), trackCount),
			track.Volume,
		)

		if _, active := activeIDs[track.ID]; active {
			trackResults[i] = []ItemResult{u.attempt(mix.ID(), track.ID, OpSetVolume, func() error {
				return u.player.SetVolume(ctx, track.ID, packet)
			})}
			return
		}

		// Play takes the raw volume; the player derives its own gain.
		played := u.attempt(mix.ID(), track.ID, OpPlay, func() error {
			return u.player.Play(ctx, track.ID, domain.ToLinear(track.Volume), true)
		})
		trackResults[i] = []ItemResult{played}
		if played.Err != nil {
			return
		}
		// Play computed headroom from a partial count while sibling plays
		// were in flight; settle on the mix's final track count.
		trackResults[i] = append(trackResults[i], u.attempt(mix.ID(), track.ID, OpSetVolume, func() error {
			return u.player.SetVolume(ctx, track.ID, packet)
		}))
	})

	report.Results = append(report.Results, stopResults...)
	for _, r := range trackResults {
		report.Results = append(report.Results, r...)
	}
	report.Finished = time.Now()

	if failed := report.Failed(); len(failed) > 0 {
		slog.Warn("Sync finished with failures", "mixId", mix.ID(), "failed", len(failed), "total", len(report.Results))
	}
	return report
}

// fanOut runs fn(0..n-1) concurrently and waits for all of them.
func (u *SyncMix) fanOut(n int, fn func(i int)) {
	var g errgroup.Group
	if u.maxConcurrency > 0 {
		g.SetLimit(u.maxConcurrency)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

// attempt runs op and converts an error or panic into an ItemResult so one
// failing sound never stops the rest of the pass.
func (u *SyncMix) attempt(mixID, soundID string, op Operation, fn func() error) (res ItemResult) {
	res = ItemResult{SoundID: soundID, Op: op}
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic during %s: %v", op, r)
		}
		if res.Err != nil {
			slog.Warn("Sync item failed", "mixId", mixID, "soundId", soundID, "op", op, "error", res.Err)
		}
	}()
	res.Err = fn()
	return res
}
