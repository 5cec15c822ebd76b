package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/chime/internal/model"
)

func testDecisions() []model.Decision {
	now := time.Now()
	return []model.Decision{
		{
			EventID: "01A", Kind: model.KindDMMessage, Ref: "conv-1",
			ShowVisual: true, VisualReason: model.ReasonSent,
			SoundAttempted: true, SoundPlayed: true,
			Reason: model.ReasonSent, Cause: model.CausePlayed,
			DecidedAt: now.Add(-time.Minute),
		},
		{
			EventID: "01B", Kind: model.KindSystem,
			ShowVisual: false, VisualReason: model.ReasonConversationMuted,
			SoundAttempted: true,
			Reason:         model.ReasonSoundPrefDisabled, Cause: model.CauseDebounced,
			DecidedAt: now.Add(-time.Hour),
		},
		{
			EventID: "01C", Kind: model.KindChannelMention,
			ShowVisual: true, VisualReason: model.ReasonSent,
			SoundAttempted: true,
			Reason:         model.ReasonProviderRetryableFailure, Cause: model.CausePlaybackTimeout,
			DecidedAt: now,
		},
	}
}

func TestTableFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter(DefaultFormatterOptions()).Format(&buf, testDecisions()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "WHEN"))
	assert.Contains(t, lines[1], "dm_message")
	assert.Contains(t, lines[1], "played")
	assert.Contains(t, lines[1], "1 minute ago")
	assert.Contains(t, lines[2], "sound_pref_disabled (debounced) visual: conversation_muted")
	assert.Contains(t, lines[2], "skipped")
	assert.Contains(t, lines[3], "failed")
}

func TestTableFormatter_NoTime(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter(FormatterOptions{}).Format(&buf, testDecisions()[:1]))
	assert.True(t, strings.HasPrefix(buf.String(), "KIND"))
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter().Format(&buf, testDecisions()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var d model.Decision
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &d))
	assert.Equal(t, "01B", d.EventID)
	assert.Equal(t, model.ReasonSoundPrefDisabled, d.Reason)
	assert.Equal(t, model.CauseDebounced, d.Cause)
}

func TestJSONFormatter_FormatSingle(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter().FormatSingle(&buf, testDecisions()[0]))
	assert.Contains(t, buf.String(), `"reason": "sent"`)
}

func TestPlainFormatter_Format(t *testing.T) {
	f, err := NewPlainFormatter(FormatterOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, testDecisions()[:2]))
	assert.Equal(t,
		"[1] dm_message conv-1: visual=yes sound=played reason=sent\n"+
			"[2] system: visual=no sound=skipped reason=sound_pref_disabled\n",
		buf.String())
}

func TestPlainFormatter_Template(t *testing.T) {
	f, err := NewPlainFormatter(FormatterOptions{Template: "{{.Index}} {{.EventID}} {{.Kind}} {{.Reason}} {{.Sound}}"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, testDecisions()[:1]))
	assert.Equal(t, "1 01A dm_message sent played\n", buf.String())

	_, err = NewPlainFormatter(FormatterOptions{Template: "{{.Broken"})
	assert.Error(t, err)
}

func TestIDsFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIDsFormatter().Format(&buf, testDecisions()))
	assert.Equal(t, "01A\n01B\n01C\n", buf.String())
}

func TestNewFormatter(t *testing.T) {
	for _, format := range FormatTypes() {
		t.Run(string(format), func(t *testing.T) {
			f, err := NewFormatter(format, DefaultFormatterOptions())
			require.NoError(t, err)
			assert.NotNil(t, f)
		})
	}

	f, err := NewFormatter("", DefaultFormatterOptions())
	require.NoError(t, err)
	assert.IsType(t, &TableFormatter{}, f)

	_, err = NewFormatter("dmenu", DefaultFormatterOptions())
	assert.Error(t, err)
}
