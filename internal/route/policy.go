// Package route decides which channels fire for a notification event.
//
// Sound rules are evaluated in a fixed order and the first match wins:
//
//  1. master sound disabled                    -> sound_pref_disabled
//  2. suppress-when-unfocused and not focused  -> in_app_suppressed_due_to_push_active_background
//  3. focused and sounds-while-focused is off  -> sound_pref_disabled
//  4. otherwise the sound governor decides and its reason is kept as is
//
// The visual channel is decided separately and only mutes can suppress it.
package route

import (
	"context"
	"time"

	"github.com/jmylchreest/chime/internal/audio"
	"github.com/jmylchreest/chime/internal/model"
)

// SoundAttempter plays the sound for a kind. audio.Governor implements it.
type SoundAttempter interface {
	AttemptPlay(ctx context.Context, kind model.Kind, settings model.AudioSettings, nowMillis int64) audio.Outcome
}

// MuteLookup reports whether a conversation or channel is muted at now.
type MuteLookup interface {
	IsMuted(ref string, now time.Time) bool
}

// Request carries everything one decision depends on.
type Request struct {
	Event                 model.NotificationEvent
	Audio                 model.AudioSettings
	Focus                 model.FocusState
	SuppressWhenUnfocused bool
	NowMillis             int64
}

// Policy holds no mutable state; it only references its collaborators.
type Policy struct {
	mutes MuteLookup
}

// NewPolicy creates a Policy. A nil mute lookup means nothing is muted.
func NewPolicy(mutes MuteLookup) *Policy {
	return &Policy{mutes: mutes}
}

// Decide produces the decision for one event. sound is only called when the
// rules above reach step 4.
func (p *Policy) Decide(ctx context.Context, req Request, sound SoundAttempter) model.Decision {
	now := time.UnixMilli(req.NowMillis)

	d := model.Decision{
		EventID:   req.Event.ID,
		Kind:      req.Event.Kind,
		Ref:       req.Event.Ref,
		Account:   req.Event.Account,
		DecidedAt: now,
	}

	d.ShowVisual, d.VisualReason = p.visual(req.Event, now)

	switch {
	case !req.Audio.MasterSoundEnabled:
		d.Reason, d.Cause = model.ReasonSoundPrefDisabled, model.CauseMasterDisabled
	case req.SuppressWhenUnfocused && !req.Focus.HasFocus:
		d.Reason, d.Cause = model.ReasonSuppressedPushActiveBackground, model.CausePushActiveBackground
	case req.Focus.HasFocus && !req.Audio.PlayWhenFocused:
		d.Reason, d.Cause = model.ReasonSoundPrefDisabled, model.CauseFocused
	case sound == nil:
		d.SoundAttempted = true
		d.Reason, d.Cause = model.ReasonProviderRetryableFailure, model.CausePlaybackFailed
	default:
		out := sound.AttemptPlay(ctx, req.Event.Kind, req.Audio, req.NowMillis)
		d.SoundAttempted = true
		d.SoundPlayed = out.Played
		d.Reason = out.Reason
		d.Cause = out.Cause
		d.Asset = out.Asset.String()
	}

	return d
}

// visual decides the visual channel from mute state alone.
func (p *Policy) visual(e model.NotificationEvent, now time.Time) (bool, model.Reason) {
	if e.Ref != "" && p.mutes != nil && p.mutes.IsMuted(e.Ref, now) {
		return false, model.ReasonConversationMuted
	}
	return true, model.ReasonSent
}
