package daemon

import (
	"sync/atomic"

	"github.com/jmylchreest/chime/internal/model"
)

// FocusTracker holds the last focus state reported by the client.
// The zero value reports unfocused.
type FocusTracker struct {
	focused atomic.Bool
}

// Set records whether the client window has focus.
func (f *FocusTracker) Set(hasFocus bool) {
	f.focused.Store(hasFocus)
}

// State returns the current focus snapshot.
func (f *FocusTracker) State() model.FocusState {
	return model.FocusState{HasFocus: f.focused.Load()}
}
