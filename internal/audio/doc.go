// Package audio owns the notification sound channel.
// It resolves per-kind sound assets, debounces bursts, and plays sounds
// through the beep library with volume control.
package audio
