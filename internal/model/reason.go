package model

import "fmt"

// Reason explains a delivery outcome. The text forms are a versioned contract
// shared with telemetry and callers: add values, never repurpose them.
type Reason uint8

const (
	// ReasonSent means the channel fired.
	ReasonSent Reason = iota + 1
	// ReasonSoundPrefDisabled means user configuration suppressed sound.
	ReasonSoundPrefDisabled
	// ReasonSuppressedPushActiveBackground means the app is backgrounded and
	// OS push already covers this notification.
	ReasonSuppressedPushActiveBackground
	// ReasonProviderRetryableFailure means the audio subsystem failed this attempt.
	ReasonProviderRetryableFailure
	// ReasonConversationMuted means the conversation or channel is muted.
	ReasonConversationMuted
)

// Reasons returns every defined reason.
func Reasons() []Reason {
	return []Reason{
		ReasonSent,
		ReasonSoundPrefDisabled,
		ReasonSuppressedPushActiveBackground,
		ReasonProviderRetryableFailure,
		ReasonConversationMuted,
	}
}

// String returns the stable wire name of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonSent:
		return "sent"
	case ReasonSoundPrefDisabled:
		return "sound_pref_disabled"
	case ReasonSuppressedPushActiveBackground:
		return "in_app_suppressed_due_to_push_active_background"
	case ReasonProviderRetryableFailure:
		return "provider_retryable_failure"
	case ReasonConversationMuted:
		return "conversation_muted"
	default:
		return "unknown"
	}
}

// ParseReason converts a wire name back into a Reason.
func ParseReason(s string) (Reason, error) {
	for _, r := range Reasons() {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown reason %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Reason) MarshalText() ([]byte, error) {
	if r == 0 {
		return nil, fmt.Errorf("reason is unset")
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reason) UnmarshalText(text []byte) error {
	parsed, err := ParseReason(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Cause is the fine-grained diagnostic behind a Reason. Several causes share
// the coarse sound_pref_disabled reason; Cause keeps them apart in logs.
type Cause string

const (
	CauseNone                 Cause = ""
	CausePlayed               Cause = "played"
	CauseMasterDisabled       Cause = "master_disabled"
	CausePushActiveBackground Cause = "push_active_background"
	CauseFocused              Cause = "focused"
	CauseVolumeZero           Cause = "volume_zero"
	CauseDebounced            Cause = "debounced"
	CausePlaybackFailed       Cause = "playback_failed"
	CausePlaybackTimeout      Cause = "playback_timeout"
)
