package dbus

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/chime/internal/audio"
	"github.com/jmylchreest/chime/internal/config"
	"github.com/jmylchreest/chime/internal/daemon"
	"github.com/jmylchreest/chime/internal/model"
	"github.com/jmylchreest/chime/internal/store"
)

type silentPlayer struct{}

func (silentPlayer) Play(context.Context, audio.Asset, float64) error { return nil }

var testNow = time.Unix(1_700_000_000, 0)

func newTestServer(t *testing.T) (*Server, *daemon.Dispatcher, *store.MuteTable) {
	t.Helper()

	mutes, err := store.OpenMuteTable(filepath.Join(t.TempDir(), "mutes.json"))
	require.NoError(t, err)

	d := daemon.NewDispatcher(config.Default(), daemon.Deps{
		Sounds: audio.NewRegistry(silentPlayer{}, nil),
		Mutes:  mutes,
		Clock:  func() time.Time { return testNow },
	})

	s := NewServer(d, mutes, nil)
	s.SetClock(func() time.Time { return testNow })
	return s, d, mutes
}

func TestServer_Notify(t *testing.T) {
	s, _, _ := newTestServer(t)

	id, visual, attempted, played, reason, dbusErr := s.Notify(
		"system", "", "",
		map[string]dbus.Variant{"title": dbus.MakeVariant("update ready")},
		nil,
	)
	require.Nil(t, dbusErr)
	assert.NotEmpty(t, id)
	assert.True(t, visual)
	assert.True(t, attempted)
	assert.True(t, played)
	assert.Equal(t, "sent", reason)
}

func TestServer_NotifyHints(t *testing.T) {
	s, _, _ := newTestServer(t)

	// dm_message defaults to suppressed while unfocused.
	_, _, attempted, _, reason, dbusErr := s.Notify("dm_message", "conv", "", nil, nil)
	require.Nil(t, dbusErr)
	assert.False(t, attempted)
	assert.Equal(t, "in_app_suppressed_due_to_push_active_background", reason)

	// has-focus overrides the tracked focus.
	_, _, _, played, reason, dbusErr := s.Notify("dm_message", "conv", "", nil,
		map[string]dbus.Variant{HintHasFocus: dbus.MakeVariant(true)})
	require.Nil(t, dbusErr)
	assert.True(t, played)
	assert.Equal(t, "sent", reason)
}

func TestServer_NotifyErrors(t *testing.T) {
	s, _, _ := newTestServer(t)

	_, _, _, _, _, dbusErr := s.Notify("voice_call", "", "", nil, nil)
	require.NotNil(t, dbusErr)
	assert.Equal(t, ErrorUnknownKind, dbusErr.Name)

	_, _, _, _, _, dbusErr = s.Notify("system", "", "",
		map[string]dbus.Variant{"list": dbus.MakeVariant([]int32{1})}, nil)
	require.NotNil(t, dbusErr)
	assert.Equal(t, ErrorInvalidArgument, dbusErr.Name)
}

func TestServer_SetFocus(t *testing.T) {
	s, d, _ := newTestServer(t)

	require.Nil(t, s.SetFocus(true))
	assert.True(t, d.Focus().State().HasFocus)

	// Focused, so the background suppression for dm_message no longer applies.
	_, _, _, played, _, dbusErr := s.Notify("dm_message", "conv", "", nil, nil)
	require.Nil(t, dbusErr)
	assert.True(t, played)

	require.Nil(t, s.SetFocus(false))
	assert.False(t, d.Focus().State().HasFocus)
}

func TestServer_MuteAndUnmute(t *testing.T) {
	s, _, mutes := newTestServer(t)

	require.Nil(t, s.Mute("conv", 0))
	assert.True(t, mutes.IsMuted("conv", testNow.Add(24*time.Hour)))

	_, visual, _, _, _, dbusErr := s.Notify("dm_message", "conv", "", nil, nil)
	require.Nil(t, dbusErr)
	assert.False(t, visual)

	removed, dbusErr := s.Unmute("conv")
	require.Nil(t, dbusErr)
	assert.True(t, removed)

	removed, dbusErr = s.Unmute("conv")
	require.Nil(t, dbusErr)
	assert.False(t, removed)

	require.Nil(t, s.Mute("chan", testNow.Add(time.Hour).Unix()))
	assert.True(t, mutes.IsMuted("chan", testNow))
	assert.False(t, mutes.IsMuted("chan", testNow.Add(2*time.Hour)))

	dbusErr = s.Mute("", 0)
	require.NotNil(t, dbusErr)
	assert.Equal(t, ErrorInvalidArgument, dbusErr.Name)
}

func TestServer_EmitWithoutConnection(t *testing.T) {
	s, _, _ := newTestServer(t)
	err := s.EmitDecisionMade(model.Decision{EventID: "x", Kind: model.KindSystem, Reason: model.ReasonSent})
	assert.Error(t, err)
}

func TestServer_StopWhenNotRunning(t *testing.T) {
	s, _, _ := newTestServer(t)
	assert.NoError(t, s.Stop())
}

func TestIntrospection(t *testing.T) {
	names := make([]string, 0)
	for _, m := range chimeMethods() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Notify", "SetFocus", "Mute", "Unmute"}, names)

	signals := chimeSignals()
	require.Len(t, signals, 1)
	assert.Equal(t, "DecisionMade", signals[0].Name)
}
