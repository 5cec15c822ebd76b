package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/chime/internal/config"
)

func writeConfig(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestConfigWatcher_ReloadsValidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chime.toml")
	base := time.Now().Add(-time.Hour)
	writeConfig(t, path, "[audio]\nvolume = 50\n", base)

	var mu sync.Mutex
	var applied []*config.Config
	w, err := NewConfigWatcher(path, func(c *config.Config) {
		mu.Lock()
		applied = append(applied, c)
		mu.Unlock()
	}, nil)
	require.NoError(t, err)
	w.SetPollInterval(10 * time.Millisecond)

	w.Start(context.Background())
	defer w.Stop()

	writeConfig(t, path, "[audio]\nvolume = 20\n", base.Add(time.Minute))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(applied) == 1 && applied[0].Audio.Volume == 20
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConfigWatcher_InvalidRevisionIsNotApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chime.toml")
	base := time.Now().Add(-time.Hour)
	writeConfig(t, path, "[audio]\nvolume = 500\n", base)

	w, err := NewConfigWatcher(path, func(*config.Config) {
		t.Fatal("invalid config must not be applied")
	}, nil)
	require.NoError(t, err)

	applied, err := w.poll()
	assert.Error(t, err)
	assert.False(t, applied)

	// The broken revision is not retried until the file changes again.
	applied, err = w.poll()
	assert.NoError(t, err)
	assert.False(t, applied)
}

func TestConfigWatcher_IgnoresUnchangedAndMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chime.toml")

	calls := 0
	w, err := NewConfigWatcher(path, func(*config.Config) { calls++ }, nil)
	require.NoError(t, err)

	applied, err := w.poll()
	require.NoError(t, err)
	assert.False(t, applied)

	writeConfig(t, path, "[audio]\nvolume = 50\n", time.Now().Add(-time.Hour))
	applied, err = w.poll()
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = w.poll()
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 1, calls)
}

func TestConfigWatcher_StartTreatsCurrentFileAsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chime.toml")
	writeConfig(t, path, "[audio]\nvolume = 50\n", time.Now().Add(-time.Hour))

	calls := 0
	w, err := NewConfigWatcher(path, func(*config.Config) { calls++ }, nil)
	require.NoError(t, err)
	w.SetPollInterval(time.Hour)

	w.Start(context.Background())
	w.Stop()

	applied, err := w.poll()
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Zero(t, calls)
}

func TestConfigWatcher_StopIsIdempotent(t *testing.T) {
	w, err := NewConfigWatcher(filepath.Join(t.TempDir(), "chime.toml"), nil, nil)
	require.NoError(t, err)

	w.Stop()
	w.Start(context.Background())
	w.Start(context.Background())
	w.Stop()
	w.Stop()
}

func TestConfigWatcher_DrivesDispatcher(t *testing.T) {
	f := newFixture(t, config.Default())

	path := filepath.Join(t.TempDir(), "chime.toml")
	w, err := NewConfigWatcher(path, f.dispatcher.UpdateConfig, nil)
	require.NoError(t, err)

	writeConfig(t, path, "[audio]\nenabled = false\n", time.Now())
	applied, err := w.poll()
	require.NoError(t, err)
	require.True(t, applied)

	assert.False(t, f.dispatcher.Config().Audio.Enabled)
}
