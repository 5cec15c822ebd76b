package model

import "time"

// AudioSettings is the user's sound configuration, snapshotted per decision.
type AudioSettings struct {
	MasterSoundEnabled bool `json:"master_sound_enabled"`
	Volume             int  `json:"volume"` // 0-100
	PlayWhenFocused    bool `json:"play_when_focused"`
}

// ClampedVolume returns the volume limited to [0,100].
func (s AudioSettings) ClampedVolume() int {
	return min(max(s.Volume, 0), 100)
}

// FocusState is the window focus observed at decision time.
type FocusState struct {
	HasFocus bool `json:"has_focus"`
}

// Decision is the outcome for one event. It is built once and never mutated.
type Decision struct {
	EventID        string    `json:"event_id"`
	Kind           Kind      `json:"kind"`
	Ref            string    `json:"ref,omitempty"`
	Account        string    `json:"account,omitempty"`
	ShowVisual     bool      `json:"show_visual"`
	VisualReason   Reason    `json:"visual_reason"`
	SoundAttempted bool      `json:"sound_attempted"`
	SoundPlayed    bool      `json:"sound_played"`
	Reason         Reason    `json:"reason"`
	Cause          Cause     `json:"cause,omitempty"`
	Asset          string    `json:"asset,omitempty"`
	DecidedAt      time.Time `json:"decided_at"`
}

// Suppressed reports whether neither channel fired.
func (d Decision) Suppressed() bool {
	return !d.ShowVisual && !d.SoundPlayed
}
