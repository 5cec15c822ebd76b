package dbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/chime/internal/daemon"
	"github.com/jmylchreest/chime/internal/model"
	"github.com/jmylchreest/chime/internal/store"
)

// Dispatcher decides delivery for an event. daemon.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, event model.NotificationEvent, opts daemon.DispatchOptions) (model.Decision, error)
	Focus() *daemon.FocusTracker
}

// MuteStore mutes and unmutes refs. store.MuteTable implements it.
type MuteStore interface {
	Mute(ref string, until time.Time, reason string, now time.Time) error
	Unmute(ref string) (bool, error)
}

// Server implements the io.github.jmylchreest.Chime D-Bus interface.
type Server struct {
	conn   *dbus.Conn
	logger *slog.Logger

	dispatcher Dispatcher
	mutes      MuteStore
	now        func() time.Time

	// Bounds a single Notify call including playback
	callTimeout time.Duration

	mu      sync.RWMutex
	running bool
}

// NewServer creates a new Server.
func NewServer(dispatcher Dispatcher, mutes MuteStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:      logger,
		dispatcher:  dispatcher,
		mutes:       mutes,
		now:         time.Now,
		callTimeout: 5 * time.Second,
	}
}

// SetClock replaces the clock used for mute timestamps.
func (s *Server) SetClock(now func() time.Time) {
	s.now = now
}

// Start connects to the session bus and exports the chime service.
func (s *Server) Start() error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return s.StartOn(conn)
}

// StartOn exports the service on an existing connection.
func (s *Server) StartOn(conn *dbus.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}
	s.conn = conn

	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: chimeMethods(),
				Signals: chimeSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", DBusBusName)
	}

	s.running = true
	s.logger.Info("D-Bus chime server started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

// Stop releases the bus name.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(DBusBusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		// Don't close the connection as it's shared (SessionBus)
	}

	s.logger.Info("D-Bus chime server stopped")
	return nil
}

// Notify decides delivery for one event.
// D-Bus method: Notify(sssa{sv}a{sv}) -> (sbbbs)
func (s *Server) Notify(
	kind string,
	ref string,
	account string,
	payload map[string]dbus.Variant,
	hints map[string]dbus.Variant,
) (string, bool, bool, bool, string, *dbus.Error) {
	req := &NotifyRequest{Kind: kind, Ref: ref, Account: account, Payload: payload, Hints: hints}

	s.logger.Debug("Notify called", "kind", kind, "ref", ref, "account", account)

	event, err := req.Event()
	if err != nil {
		return "", false, false, false, "", toDBusError(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
	defer cancel()

	d, err := s.dispatcher.Dispatch(ctx, event, daemon.DispatchOptions{
		HasFocus:              req.HasFocus(),
		SuppressWhenUnfocused: req.SuppressWhenUnfocused(),
	})
	if err != nil {
		return "", false, false, false, "", toDBusError(err)
	}

	return d.EventID, d.ShowVisual, d.SoundAttempted, d.SoundPlayed, d.Reason.String(), nil
}

// SetFocus records whether the client window has focus.
// D-Bus method: SetFocus(b) -> nothing
func (s *Server) SetFocus(hasFocus bool) *dbus.Error {
	s.logger.Debug("SetFocus called", "has_focus", hasFocus)
	s.dispatcher.Focus().Set(hasFocus)
	return nil
}

// Mute mutes ref until the given unix time in seconds, 0 meaning until unmuted.
// D-Bus method: Mute(sx) -> nothing
func (s *Server) Mute(ref string, until int64) *dbus.Error {
	s.logger.Debug("Mute called", "ref", ref, "until", until)
	if s.mutes == nil {
		return dbus.NewError(ErrorFailed, []any{"mutes are not available"})
	}

	var untilTime time.Time
	if until > 0 {
		untilTime = time.Unix(until, 0)
	}
	if err := s.mutes.Mute(ref, untilTime, "dbus", s.now()); err != nil {
		return toDBusError(err)
	}
	return nil
}

// Unmute removes the mute for ref.
// D-Bus method: Unmute(s) -> b
func (s *Server) Unmute(ref string) (bool, *dbus.Error) {
	s.logger.Debug("Unmute called", "ref", ref)
	if s.mutes == nil {
		return false, dbus.NewError(ErrorFailed, []any{"mutes are not available"})
	}

	removed, err := s.mutes.Unmute(ref)
	if err != nil {
		return false, toDBusError(err)
	}
	return removed, nil
}

// EmitDecisionMade emits the DecisionMade signal.
func (s *Server) EmitDecisionMade(d model.Decision) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := conn.Emit(DBusPath, DBusInterface+".DecisionMade", d.EventID, d.Kind.String(), d.Reason.String())
	if err != nil {
		return fmt.Errorf("failed to emit DecisionMade signal: %w", err)
	}

	s.logger.Debug("emitted DecisionMade signal", "event_id", d.EventID, "reason", d.Reason)
	return nil
}

// toDBusError maps domain errors to named D-Bus errors.
func toDBusError(err error) *dbus.Error {
	name := ErrorFailed
	switch {
	case errors.Is(err, model.ErrUnknownKind):
		name = ErrorUnknownKind
	case errors.Is(err, model.ErrInvalidPayload), errors.Is(err, store.ErrEmptyRef):
		name = ErrorInvalidArgument
	}
	return dbus.NewError(name, []any{err.Error()})
}

// chimeMethods returns the D-Bus method introspection data.
func chimeMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "Notify",
			Args: []introspect.Arg{
				{Name: "kind", Type: "s", Direction: "in"},
				{Name: "ref", Type: "s", Direction: "in"},
				{Name: "account", Type: "s", Direction: "in"},
				{Name: "payload", Type: "a{sv}", Direction: "in"},
				{Name: "hints", Type: "a{sv}", Direction: "in"},
				{Name: "event_id", Type: "s", Direction: "out"},
				{Name: "show_visual", Type: "b", Direction: "out"},
				{Name: "sound_attempted", Type: "b", Direction: "out"},
				{Name: "sound_played", Type: "b", Direction: "out"},
				{Name: "reason", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "SetFocus",
			Args: []introspect.Arg{
				{Name: "has_focus", Type: "b", Direction: "in"},
			},
		},
		{
			Name: "Mute",
			Args: []introspect.Arg{
				{Name: "ref", Type: "s", Direction: "in"},
				{Name: "until", Type: "x", Direction: "in"},
			},
		},
		{
			Name: "Unmute",
			Args: []introspect.Arg{
				{Name: "ref", Type: "s", Direction: "in"},
				{Name: "removed", Type: "b", Direction: "out"},
			},
		},
	}
}

// chimeSignals returns the D-Bus signal introspection data.
func chimeSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "DecisionMade",
			Args: []introspect.Arg{
				{Name: "event_id", Type: "s"},
				{Name: "kind", Type: "s"},
				{Name: "reason", Type: "s"},
			},
		},
	}
}
