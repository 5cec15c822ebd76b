// Package store provides on-disk state for chime: the mute table shared by
// chime and chimed, and the decision journal.
package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/chime/internal/model"
)

// JournalSchemaVersion is the current journal schema version.
const JournalSchemaVersion = 1

// ErrJournalClosed is returned when operations are attempted on a closed journal.
var ErrJournalClosed = errors.New("journal is closed")

// journalHeader is the first line of the JSONL file.
type journalHeader struct {
	ChimeSchemaVersion int   `json:"chime_schema_version"`
	CreatedAt          int64 `json:"created_at"`
}

// Journal appends decisions to a JSONL file, one decision per line.
type Journal struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	closed bool
}

// OpenJournal opens or creates the journal at path.
func OpenJournal(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	j := &Journal{path: path, file: file}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := j.writeHeader(); err != nil {
			_ = file.Close()
			return nil, err
		}
	}

	return j, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

func (j *Journal) writeHeader() error {
	data, err := json.Marshal(journalHeader{
		ChimeSchemaVersion: JournalSchemaVersion,
		CreatedAt:          time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	_, err = j.file.Write(append(data, '\n'))
	return err
}

// Append writes one decision.
func (j *Journal) Append(d model.Decision) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed || j.file == nil {
		return ErrJournalClosed
	}

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode decision: %w", err)
	}

	if _, err := j.file.Write(append(data, '\n')); err != nil {
		return err
	}
	return j.file.Sync()
}

// Load reads every decision in the journal, oldest first. Malformed lines
// are skipped.
func (j *Journal) Load() ([]model.Decision, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed || j.file == nil {
		return nil, ErrJournalClosed
	}

	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", j.path, err)
	}

	var decisions []model.Decision
	scanner := bufio.NewScanner(j.file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if lineNum == 1 {
			var header journalHeader
			if err := json.Unmarshal(line, &header); err == nil && header.ChimeSchemaVersion > 0 {
				if header.ChimeSchemaVersion > JournalSchemaVersion {
					return nil, fmt.Errorf("unsupported schema version %d (max: %d)",
						header.ChimeSchemaVersion, JournalSchemaVersion)
				}
				continue
			}
		}

		var d model.Decision
		if err := json.Unmarshal(line, &d); err != nil || d.EventID == "" {
			continue
		}
		decisions = append(decisions, d)
	}

	if err := scanner.Err(); err != nil {
		return decisions, fmt.Errorf("error reading file: %w", err)
	}

	if _, err := j.file.Seek(0, io.SeekEnd); err != nil {
		return decisions, err
	}

	return decisions, nil
}

// Tail returns the newest n decisions, newest first. n <= 0 returns all.
func (j *Journal) Tail(n int) ([]model.Decision, error) {
	all, err := j.Load()
	if err != nil {
		return nil, err
	}

	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}

	out := make([]model.Decision, len(all))
	for i, d := range all {
		out[len(all)-1-i] = d
	}
	return out, nil
}

// Clear truncates the journal, keeping only the header.
func (j *Journal) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed || j.file == nil {
		return ErrJournalClosed
	}

	if err := j.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate journal: %w", err)
	}
	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := j.writeHeader(); err != nil {
		return err
	}
	return j.file.Sync()
}

// Close releases the file handle.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true

	if j.file != nil {
		err := j.file.Close()
		j.file = nil
		return err
	}
	return nil
}
