package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// MutesSchemaVersion is the current version of the mutes file schema.
const MutesSchemaVersion = 1

// ErrEmptyRef is returned when muting or unmuting without a ref.
var ErrEmptyRef = errors.New("empty conversation or channel ref")

// MuteEntry is one muted conversation or channel.
type MuteEntry struct {
	Until   int64  `json:"until"`            // Unix seconds, 0 = until unmuted
	Reason  string `json:"reason,omitempty"` // Free text, e.g. "cli"
	MutedAt int64  `json:"muted_at"`         // Unix seconds
}

// Active reports whether the entry still mutes at now.
func (e MuteEntry) Active(now time.Time) bool {
	return e.Until == 0 || now.Unix() < e.Until
}

// MuteFile is the on-disk form of the mute table.
// This is persisted to ~/.local/share/chime/mutes.json and shared by chime and chimed.
type MuteFile struct {
	Mutes         map[string]MuteEntry `json:"mutes"`
	SchemaVersion int                  `json:"schema_version"`
}

// Mute is a listing row.
type Mute struct {
	Ref string
	MuteEntry
}

// mutesFileMutex protects concurrent access to mute files within a process.
var mutesFileMutex sync.RWMutex

// LoadMutes reads the mutes file at path.
// A missing or corrupted file yields an empty table.
func LoadMutes(path string) (*MuteFile, error) {
	mutesFileMutex.RLock()
	defer mutesFileMutex.RUnlock()

	empty := &MuteFile{Mutes: map[string]MuteEntry{}, SchemaVersion: MutesSchemaVersion}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return empty, nil
		}
		return nil, fmt.Errorf("failed to read mutes file: %w", err)
	}

	var f MuteFile
	if err := json.Unmarshal(data, &f); err != nil {
		return empty, nil
	}
	if f.Mutes == nil {
		f.Mutes = map[string]MuteEntry{}
	}
	if f.SchemaVersion == 0 {
		f.SchemaVersion = MutesSchemaVersion
	}
	return &f, nil
}

// SaveMutes writes f to path atomically.
func SaveMutes(path string, f *MuteFile) error {
	mutesFileMutex.Lock()
	defer mutesFileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if f.SchemaVersion == 0 {
		f.SchemaVersion = MutesSchemaVersion
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write mutes file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// MuteTable is the in-memory mute state backed by a mutes file.
// It is safe for concurrent use.
type MuteTable struct {
	path string

	mu      sync.RWMutex
	entries map[string]MuteEntry
}

// OpenMuteTable loads the table from path.
func OpenMuteTable(path string) (*MuteTable, error) {
	t := &MuteTable{path: path, entries: map[string]MuteEntry{}}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Path returns the backing file path.
func (t *MuteTable) Path() string {
	return t.path
}

// Reload replaces the in-memory state with the file contents.
func (t *MuteTable) Reload() error {
	f, err := LoadMutes(t.path)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.entries = f.Mutes
	t.mu.Unlock()
	return nil
}

// IsMuted reports whether ref is muted at now. Expired entries do not mute.
func (t *MuteTable) IsMuted(ref string, now time.Time) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[ref]
	return ok && e.Active(now)
}

// Mute mutes ref until the given time (zero = until unmuted) and persists it.
func (t *MuteTable) Mute(ref string, until time.Time, reason string, now time.Time) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ErrEmptyRef
	}

	entry := MuteEntry{Reason: reason, MutedAt: now.Unix()}
	if !until.IsZero() {
		entry.Until = until.Unix()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	next := cloneEntries(t.entries)
	next[ref] = entry
	if err := SaveMutes(t.path, &MuteFile{Mutes: next}); err != nil {
		return err
	}
	t.entries = next
	return nil
}

// Unmute removes ref and persists the change. It reports whether ref was muted.
func (t *MuteTable) Unmute(ref string) (bool, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false, ErrEmptyRef
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[ref]; !ok {
		return false, nil
	}

	next := cloneEntries(t.entries)
	delete(next, ref)
	if err := SaveMutes(t.path, &MuteFile{Mutes: next}); err != nil {
		return false, err
	}
	t.entries = next
	return true, nil
}

// Prune drops expired entries and persists the table if anything changed.
func (t *MuteTable) Prune(now time.Time) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := make(map[string]MuteEntry, len(t.entries))
	for ref, e := range t.entries {
		if e.Active(now) {
			next[ref] = e
		}
	}

	removed := len(t.entries) - len(next)
	if removed == 0 {
		return 0, nil
	}
	if err := SaveMutes(t.path, &MuteFile{Mutes: next}); err != nil {
		return 0, err
	}
	t.entries = next
	return removed, nil
}

// List returns the mutes active at now, sorted by ref.
func (t *MuteTable) List(now time.Time) []Mute {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Mute, 0, len(t.entries))
	for ref, e := range t.entries {
		if e.Active(now) {
			out = append(out, Mute{Ref: ref, MuteEntry: e})
		}
	}
	slices.SortFunc(out, func(a, b Mute) int { return strings.Compare(a.Ref, b.Ref) })
	return out
}

func cloneEntries(src map[string]MuteEntry) map[string]MuteEntry {
	dst := make(map[string]MuteEntry, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
