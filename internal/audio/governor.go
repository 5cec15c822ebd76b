package audio

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/chime/internal/model"
)

const (
	// DefaultMinInterval is the minimum time between two played sounds.
	DefaultMinInterval = 500 * time.Millisecond
	// DefaultPlayTimeout bounds a single playback request.
	DefaultPlayTimeout = 2 * time.Second
)

// ErrAssetUnavailable is returned by a Player when an asset cannot be read or
// decoded. The governor then moves on to the next candidate asset.
var ErrAssetUnavailable = errors.New("sound asset unavailable")

// Player performs the actual playback of an asset. volume is in 0.0-1.0.
type Player interface {
	Play(ctx context.Context, asset Asset, volume float64) error
}

// Outcome is the result of one playback attempt.
type Outcome struct {
	Played bool
	Reason model.Reason
	Cause  model.Cause
	Asset  Asset
}

// GovernorOption configures a Governor.
type GovernorOption func(*Governor)

// WithMinInterval sets the debounce interval.
func WithMinInterval(d time.Duration) GovernorOption {
	return func(g *Governor) {
		g.minInterval = d
	}
}

// WithPlayTimeout bounds each playback request. Zero disables the bound.
func WithPlayTimeout(d time.Duration) GovernorOption {
	return func(g *Governor) {
		g.playTimeout = d
	}
}

// WithAssets replaces the kind to asset table.
func WithAssets(assets *AssetTable) GovernorOption {
	return func(g *Governor) {
		g.assets = assets
	}
}

// Governor owns one audio channel: its debounce state, volume handling and
// failure classification. The last-played timestamp is only read and written
// inside AttemptPlay.
type Governor struct {
	mu     sync.Mutex
	logger *slog.Logger
	player Player

	assets      *AssetTable
	minInterval time.Duration
	playTimeout time.Duration

	// Rate limiting
	lastPlayedAt int64 // unix millis of the last successful play
	hasPlayed    bool
}

// NewGovernor creates a Governor that plays through player.
func NewGovernor(player Player, logger *slog.Logger, opts ...GovernorOption) *Governor {
	if logger == nil {
		logger = slog.Default()
	}

	g := &Governor{
		logger:      logger,
		player:      player,
		minInterval: DefaultMinInterval,
		playTimeout: DefaultPlayTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Configure applies options to a running governor. The debounce state is kept.
func (g *Governor) Configure(opts ...GovernorOption) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, opt := range opts {
		opt(g)
	}
}

// AttemptPlay tries to play the sound for kind at nowMillis.
func (g *Governor) AttemptPlay(ctx context.Context, kind model.Kind, settings model.AudioSettings, nowMillis int64) Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()

	candidates := g.assets.Candidates(kind)
	asset := candidates[0]

	volume := settings.ClampedVolume()
	if volume == 0 {
		g.logger.Debug("sound skipped: volume is zero", "kind", kind)
		return Outcome{Reason: model.ReasonSoundPrefDisabled, Cause: model.CauseVolumeZero, Asset: asset}
	}

	// A clock that stepped backwards counts as elapsed
	since := nowMillis - g.lastPlayedAt
	if g.hasPlayed && since >= 0 && since < g.minInterval.Milliseconds() {
		g.logger.Debug("sound debounced", "kind", kind, "since_last_ms", since)
		return Outcome{Reason: model.ReasonSoundPrefDisabled, Cause: model.CauseDebounced, Asset: asset}
	}

	asset, err := g.play(ctx, candidates, float64(volume)/100.0)
	if err != nil {
		cause := model.CausePlaybackFailed
		if errors.Is(err, context.DeadlineExceeded) {
			cause = model.CausePlaybackTimeout
		}
		g.logger.Warn("sound playback failed", "kind", kind, "asset", asset.String(), "error", err)
		return Outcome{Reason: model.ReasonProviderRetryableFailure, Cause: cause, Asset: asset}
	}

	g.lastPlayedAt = nowMillis
	g.hasPlayed = true
	return Outcome{Played: true, Reason: model.ReasonSent, Cause: model.CausePlayed, Asset: asset}
}

// play runs the player with the configured timeout and returns the asset
// that was played, or the one that failed.
func (g *Governor) play(ctx context.Context, candidates []Asset, volume float64) (Asset, error) {
	if g.player == nil {
		return candidates[0], errors.New("no audio player configured")
	}

	if g.playTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.playTimeout)
		defer cancel()
	}

	type result struct {
		asset Asset
		err   error
	}
	done := make(chan result, 1)
	go func() {
		asset, err := g.playFirst(ctx, candidates, volume)
		done <- result{asset, err}
	}()

	select {
	case r := <-done:
		return r.asset, r.err
	case <-ctx.Done():
		// The player may have finished right at the deadline
		select {
		case r := <-done:
			return r.asset, r.err
		default:
		}
		return candidates[0], ctx.Err()
	}
}

// playFirst plays the first candidate that can be loaded. Device errors stop
// the walk; only unavailable assets fall through.
func (g *Governor) playFirst(ctx context.Context, candidates []Asset, volume float64) (Asset, error) {
	var err error
	for _, asset := range candidates {
		err = g.player.Play(ctx, asset, volume)
		if err == nil || !errors.Is(err, ErrAssetUnavailable) {
			return asset, err
		}
		g.logger.Warn("sound asset unavailable, trying fallback", "asset", asset.String(), "error", err)
	}
	return candidates[len(candidates)-1], err
}
