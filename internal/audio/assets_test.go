package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/chime/internal/model"
)

func TestAssetTable_Resolve(t *testing.T) {
	table := NewAssetTable(map[model.Kind]string{
		model.KindDMMessage:      "/sounds/dm.ogg",
		model.KindChannelMention: "",
	}, "")

	tests := []struct {
		kind     model.Kind
		expected Asset
	}{
		{model.KindDMMessage, Asset{Name: "dm_message", Path: "/sounds/dm.ogg"}},
		{model.KindChannelMention, BuiltinChime},
		{model.KindSystem, BuiltinChime},
		{model.Kind("unknown"), BuiltinChime},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, table.Resolve(tt.kind))
		})
	}
}

func TestAssetTable_NilIsTotal(t *testing.T) {
	var table *AssetTable
	assert.Equal(t, BuiltinChime, table.Resolve(model.KindSystem))
	assert.Empty(t, table.Files())
}

func TestAssetTable_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	table := NewAssetTable(nil, "~/sounds/ping.wav")
	assert.Equal(t, filepath.Join(home, "sounds/ping.wav"), table.Resolve(model.KindSystem).Path)
}

func TestAssetTable_Files(t *testing.T) {
	table := NewAssetTable(map[model.Kind]string{
		model.KindDMMessage:      "/b.ogg",
		model.KindChannelMention: "/a.wav",
		model.KindSystem:         "/a.wav",
	}, "/c.mp3")

	assert.Equal(t, []string{"/a.wav", "/b.ogg", "/c.mp3"}, table.Files())
}

func TestAsset_String(t *testing.T) {
	assert.Equal(t, "builtin:chime", BuiltinChime.String())
	assert.True(t, BuiltinChime.Builtin())
	assert.Equal(t, "/x.wav", Asset{Name: "x", Path: "/x.wav"}.String())
}

type recordingInvalidator struct {
	paths chan string
}

func (r *recordingInvalidator) InvalidateCache(path string) {
	r.paths <- path
}

func TestWatcher_InvalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ping.wav")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0600))

	target := &recordingInvalidator{paths: make(chan string, 8)}
	w, err := NewWatcher(target, nil)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	require.NoError(t, w.Watch(path))
	w.Start()

	// Unwatched sibling must be ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.wav"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0600))

	select {
	case got := <-target.paths:
		assert.Equal(t, path, got)
	case <-time.After(2 * time.Second):
		t.Fatal("expected cache invalidation")
	}
}

func TestVolumeToExponent(t *testing.T) {
	assert.InDelta(t, 0.0, volumeToExponent(1.0), 0.0001)
	assert.InDelta(t, -1.0, volumeToExponent(0.5), 0.0001)
	assert.Less(t, volumeToExponent(0), -5.0)
}

func TestAssetTable_Candidates(t *testing.T) {
	withDefault := NewAssetTable(map[model.Kind]string{model.KindDMMessage: "/sounds/dm.wav"}, "/sounds/default.wav")
	assert.Equal(t, []Asset{
		{Name: "dm_message", Path: "/sounds/dm.wav"},
		{Name: "default", Path: "/sounds/default.wav"},
		BuiltinChime,
	}, withDefault.Candidates(model.KindDMMessage))
	assert.Equal(t, []Asset{
		{Name: "default", Path: "/sounds/default.wav"},
		BuiltinChime,
	}, withDefault.Candidates(model.KindSystem))

	builtinOnly := NewAssetTable(nil, "")
	assert.Equal(t, []Asset{BuiltinChime}, builtinOnly.Candidates(model.KindSystem))

	var nilTable *AssetTable
	assert.Equal(t, []Asset{BuiltinChime}, nilTable.Candidates(model.KindSystem))
}
