package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/chime/internal/audio"
	"github.com/jmylchreest/chime/internal/config"
	"github.com/jmylchreest/chime/internal/metrics"
	"github.com/jmylchreest/chime/internal/model"
	"github.com/jmylchreest/chime/internal/route"
)

// DecisionRecorder persists decisions. store.Journal implements it.
type DecisionRecorder interface {
	Append(d model.Decision) error
}

// DispatchOptions are per-event overrides. Nil fields use the daemon state.
type DispatchOptions struct {
	HasFocus              *bool
	SuppressWhenUnfocused *bool
}

// Deps are the collaborators of a Dispatcher. Only Sounds is required.
type Deps struct {
	Sounds  *audio.Registry
	Mutes   route.MuteLookup
	Focus   *FocusTracker
	Journal DecisionRecorder
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Clock   func() time.Time
}

// Dispatcher decides delivery for incoming events.
type Dispatcher struct {
	mu  sync.RWMutex
	cfg *config.Config

	policy  *route.Policy
	sounds  *audio.Registry
	focus   *FocusTracker
	journal DecisionRecorder
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	// Called after each decision, e.g. to emit a D-Bus signal
	onDecision func(model.Decision)
}

// NewDispatcher creates a Dispatcher and applies cfg to the sound governors.
func NewDispatcher(cfg *config.Config, deps Deps) *Dispatcher {
	if cfg == nil {
		cfg = config.Default()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Focus == nil {
		deps.Focus = &FocusTracker{}
	}
	if deps.Sounds == nil {
		deps.Sounds = audio.NewRegistry(nil, deps.Logger)
	}

	d := &Dispatcher{
		policy:  route.NewPolicy(deps.Mutes),
		sounds:  deps.Sounds,
		focus:   deps.Focus,
		journal: deps.Journal,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		now:     deps.Clock,
	}
	d.UpdateConfig(cfg)
	return d
}

// Focus returns the tracker the dispatcher reads focus from.
func (d *Dispatcher) Focus() *FocusTracker {
	return d.focus
}

// SetDecisionHandler sets the function called after every decision.
func (d *Dispatcher) SetDecisionHandler(handler func(model.Decision)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onDecision = handler
}

// Config returns the active configuration.
func (d *Dispatcher) Config() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// UpdateConfig swaps the configuration and reconfigures every governor.
// Debounce state survives the swap.
func (d *Dispatcher) UpdateConfig(cfg *config.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cfg = cfg
	d.sounds.Configure(GovernorOptions(cfg)...)
	d.logger.Debug("dispatcher configured",
		"sound_enabled", cfg.Audio.Enabled,
		"volume", cfg.Audio.Volume,
		"min_interval", cfg.Audio.MinInterval.Duration(),
	)
}

// GovernorOptions derives the governor settings from cfg.
func GovernorOptions(cfg *config.Config) []audio.GovernorOption {
	return []audio.GovernorOption{
		audio.WithAssets(audio.NewAssetTable(cfg.SoundPaths(), cfg.Audio.Sounds.Default)),
		audio.WithMinInterval(cfg.Audio.MinInterval.Duration()),
		audio.WithPlayTimeout(cfg.Audio.PlayTimeout.Duration()),
	}
}

// Dispatch decides delivery for event. The only error is an invalid kind;
// every other outcome is reported in the decision.
func (d *Dispatcher) Dispatch(ctx context.Context, event model.NotificationEvent, opts DispatchOptions) (model.Decision, error) {
	if !event.Kind.Valid() {
		return model.Decision{}, model.ErrUnknownKind
	}

	d.mu.RLock()
	cfg := d.cfg
	handler := d.onDecision
	d.mu.RUnlock()

	focus := d.focus.State()
	if opts.HasFocus != nil {
		focus.HasFocus = *opts.HasFocus
	}

	suppress := cfg.SuppressWhenUnfocused(event.Kind)
	if opts.SuppressWhenUnfocused != nil {
		suppress = *opts.SuppressWhenUnfocused
	}

	req := route.Request{
		Event:                 event,
		Audio:                 cfg.AudioSettings(),
		Focus:                 focus,
		SuppressWhenUnfocused: suppress,
		NowMillis:             d.now().UnixMilli(),
	}

	start := time.Now()
	decision := d.policy.Decide(ctx, req, d.sounds.For(event.Account))
	elapsed := time.Since(start)

	d.logger.Info("notification decided",
		"event_id", decision.EventID,
		"kind", decision.Kind,
		"account", decision.Account,
		"show_visual", decision.ShowVisual,
		"sound_played", decision.SoundPlayed,
		"reason", decision.Reason,
		"cause", decision.Cause,
	)

	if d.journal != nil {
		if err := d.journal.Append(decision); err != nil {
			d.logger.Warn("failed to record decision", "event_id", decision.EventID, "error", err)
		}
	}
	d.metrics.RecordDecision(decision, elapsed)

	if handler != nil {
		handler(decision)
	}

	return decision, nil
}
