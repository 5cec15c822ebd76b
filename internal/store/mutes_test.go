package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(1_700_000_000, 0)

func TestLoadMutes_MissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	f, err := LoadMutes(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, f.Mutes)
	assert.Equal(t, MutesSchemaVersion, f.SchemaVersion)

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0600))
	f, err = LoadMutes(corrupt)
	require.NoError(t, err)
	assert.Empty(t, f.Mutes)
}

func TestSaveMutes_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chime", "mutes.json")

	in := &MuteFile{Mutes: map[string]MuteEntry{
		"conv-1": {Until: 0, Reason: "cli", MutedAt: 10},
		"chan-2": {Until: 500, MutedAt: 20},
	}}
	require.NoError(t, SaveMutes(path, in))

	out, err := LoadMutes(path)
	require.NoError(t, err)
	assert.Equal(t, in.Mutes, out.Mutes)
	assert.Equal(t, MutesSchemaVersion, out.SchemaVersion)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestMuteTable_MuteAndExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mutes.json")
	table, err := OpenMuteTable(path)
	require.NoError(t, err)

	require.NoError(t, table.Mute("forever", time.Time{}, "cli", epoch))
	require.NoError(t, table.Mute("hour", epoch.Add(time.Hour), "", epoch))

	assert.True(t, table.IsMuted("forever", epoch.Add(365*24*time.Hour)))
	assert.True(t, table.IsMuted("hour", epoch.Add(59*time.Minute)))
	assert.False(t, table.IsMuted("hour", epoch.Add(time.Hour)))
	assert.False(t, table.IsMuted("other", epoch))

	// A second table on the same file sees the persisted state.
	other, err := OpenMuteTable(path)
	require.NoError(t, err)
	assert.True(t, other.IsMuted("forever", epoch))
	assert.True(t, other.IsMuted("hour", epoch))
}

func TestMuteTable_Unmute(t *testing.T) {
	table, err := OpenMuteTable(filepath.Join(t.TempDir(), "mutes.json"))
	require.NoError(t, err)

	require.NoError(t, table.Mute("conv", time.Time{}, "", epoch))

	removed, err := table.Unmute("conv")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, table.IsMuted("conv", epoch))

	removed, err = table.Unmute("conv")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMuteTable_EmptyRef(t *testing.T) {
	table, err := OpenMuteTable(filepath.Join(t.TempDir(), "mutes.json"))
	require.NoError(t, err)

	assert.ErrorIs(t, table.Mute("  ", time.Time{}, "", epoch), ErrEmptyRef)
	_, err = table.Unmute("")
	assert.ErrorIs(t, err, ErrEmptyRef)
}

func TestMuteTable_ListAndPrune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mutes.json")
	table, err := OpenMuteTable(path)
	require.NoError(t, err)

	require.NoError(t, table.Mute("b", time.Time{}, "", epoch))
	require.NoError(t, table.Mute("a", epoch.Add(time.Hour), "", epoch))
	require.NoError(t, table.Mute("expired", epoch.Add(time.Minute), "", epoch))

	later := epoch.Add(10 * time.Minute)
	list := table.List(later)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Ref)
	assert.Equal(t, "b", list[1].Ref)

	removed, err := table.Prune(later)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	f, err := LoadMutes(path)
	require.NoError(t, err)
	assert.NotContains(t, f.Mutes, "expired")
	assert.Len(t, f.Mutes, 2)

	removed, err = table.Prune(later)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestMuteTable_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mutes.json")
	table, err := OpenMuteTable(path)
	require.NoError(t, err)
	assert.False(t, table.IsMuted("conv", epoch))

	require.NoError(t, SaveMutes(path, &MuteFile{Mutes: map[string]MuteEntry{"conv": {}}}))
	require.NoError(t, table.Reload())
	assert.True(t, table.IsMuted("conv", epoch))
}

func TestWatchMutes_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mutes.json")
	table, err := OpenMuteTable(path)
	require.NoError(t, err)

	fw, err := WatchMutes(table, nil)
	require.NoError(t, err)
	require.NoError(t, fw.Start())
	defer fw.Stop()

	writer, err := OpenMuteTable(path)
	require.NoError(t, err)
	require.NoError(t, writer.Mute("conv", time.Time{}, "cli", epoch))

	assert.Eventually(t, func() bool {
		return table.IsMuted("conv", epoch)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFileWatcher_StopIsIdempotent(t *testing.T) {
	fw, err := NewFileWatcher(filepath.Join(t.TempDir(), "x"), func() {}, nil)
	require.NoError(t, err)
	require.NoError(t, fw.Start())
	require.NoError(t, fw.Start())
	require.NoError(t, fw.Stop())
	require.NoError(t, fw.Stop())
}
