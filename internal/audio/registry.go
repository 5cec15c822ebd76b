package audio

import (
	"log/slog"
	"sync"
)

// Registry hands out one Governor per local account so that debounce state
// is never shared between accounts. The empty account is valid.
type Registry struct {
	mu        sync.Mutex
	logger    *slog.Logger
	player    Player
	opts      []GovernorOption
	governors map[string]*Governor
}

// NewRegistry creates a Registry whose governors play through player.
func NewRegistry(player Player, logger *slog.Logger, opts ...GovernorOption) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:    logger,
		player:    player,
		opts:      opts,
		governors: make(map[string]*Governor),
	}
}

// For returns the governor for account, creating it on first use.
func (r *Registry) For(account string) *Governor {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.governors[account]; ok {
		return g
	}

	g := NewGovernor(r.player, r.logger.With("account", account), r.opts...)
	r.governors[account] = g
	return g
}

// Configure replaces the options used for new governors and applies them to
// existing ones.
func (r *Registry) Configure(opts ...GovernorOption) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.opts = opts
	for _, g := range r.governors {
		g.Configure(opts...)
	}
}

// Len returns the number of governors created so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.governors)
}
