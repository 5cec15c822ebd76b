package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/chime/internal/model"
)

func decision(id string, reason model.Reason) model.Decision {
	return model.Decision{
		EventID:        id,
		Kind:           model.KindDMMessage,
		Ref:            "conv-1",
		ShowVisual:     true,
		VisualReason:   model.ReasonSent,
		SoundAttempted: true,
		SoundPlayed:    reason == model.ReasonSent,
		Reason:         reason,
		DecidedAt:      time.UnixMilli(1_700_000_000_000).UTC(),
	}
}

func TestJournal_AppendAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "decisions.jsonl")

	j, err := OpenJournal(path)
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Append(decision("a", model.ReasonSent)))
	require.NoError(t, j.Append(decision("b", model.ReasonSoundPrefDisabled)))

	got, err := j.Load()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].EventID)
	assert.Equal(t, model.ReasonSent, got[0].Reason)
	assert.Equal(t, "b", got[1].EventID)
	assert.Equal(t, model.ReasonSoundPrefDisabled, got[1].Reason)

	// Appends after a load still land at the end.
	require.NoError(t, j.Append(decision("c", model.ReasonProviderRetryableFailure)))
	got, err = j.Load()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[2].EventID)
}

func TestJournal_WritesHeaderAndReasonText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")

	j, err := OpenJournal(path)
	require.NoError(t, err)
	require.NoError(t, j.Append(decision("a", model.ReasonSuppressedPushActiveBackground)))
	require.NoError(t, j.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"chime_schema_version":1`)
	assert.Contains(t, lines[1], `"reason":"in_app_suppressed_due_to_push_active_background"`)
}

func TestJournal_ReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")

	j, err := OpenJournal(path)
	require.NoError(t, err)
	require.NoError(t, j.Append(decision("a", model.ReasonSent)))
	require.NoError(t, j.Close())

	j, err = OpenJournal(path)
	require.NoError(t, err)
	defer j.Close()

	got, err := j.Load()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].EventID)
}

func TestJournal_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	content := `{"chime_schema_version":1,"created_at":1}
not json
{"event_id":"ok","kind":"system","show_visual":true,"visual_reason":"sent","reason":"sent","decided_at":"2024-01-01T00:00:00Z"}
{"event_id":"bad","reason":"nope"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	j, err := OpenJournal(path)
	require.NoError(t, err)
	defer j.Close()

	got, err := j.Load()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].EventID)
	assert.Equal(t, model.KindSystem, got[0].Kind)
}

func TestJournal_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"chime_schema_version":99,"created_at":1}`+"\n"), 0600))

	j, err := OpenJournal(path)
	require.NoError(t, err)
	defer j.Close()

	_, err = j.Load()
	assert.Error(t, err)
}

func TestJournal_Tail(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "decisions.jsonl"))
	require.NoError(t, err)
	defer j.Close()

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, j.Append(decision(id, model.ReasonSent)))
	}

	got, err := j.Tail(2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d", got[0].EventID)
	assert.Equal(t, "c", got[1].EventID)

	all, err := j.Tail(0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "a", all[3].EventID)
}

func TestJournal_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	j, err := OpenJournal(path)
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Append(decision("a", model.ReasonSent)))
	require.NoError(t, j.Clear())

	got, err := j.Load()
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, j.Append(decision("b", model.ReasonSent)))
	got, err = j.Load()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].EventID)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `{"chime_schema_version":1`))
}

func TestJournal_Closed(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "decisions.jsonl"))
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	assert.ErrorIs(t, j.Append(decision("a", model.ReasonSent)), ErrJournalClosed)
	_, err = j.Load()
	assert.ErrorIs(t, err, ErrJournalClosed)
	assert.ErrorIs(t, j.Clear(), ErrJournalClosed)
}
