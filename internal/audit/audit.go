// Package audit keeps an append-only record of committed database mutations.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Action names a kind of mutation.
type Action string

// Audited actions.
const (
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Entry is one committed mutation.
type Entry struct {
	Time      time.Time `json:"time"`
	Value     *float64  `json:"value,omitempty"`
	SessionID string    `json:"session_id"`
	Action    Action    `json:"action"`
	EntityID  string    `json:"entity_id"`
	RecordIDs []int64   `json:"record_ids"`
	Affected  int64     `json:"affected"`
}

// Recorder receives audit entries.
type Recorder interface {
	Record(entry Entry) error
}

// Log appends JSON lines to a file.
type Log struct {
	now  func() time.Time
	path string
	mu   sync.Mutex
}

// NewLog creates a log writing to path. The file is created on first use.
func NewLog(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Path returns the log file location.
func (l *Log) Path() string {
	return l.path
}

// Record appends entry to the log.
func (l *Log) Record(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Time.IsZero() {
		entry.Time = l.now().UTC()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return fmt.Errorf("create audit directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// Discard drops every entry.
type Discard struct{}

// Record implements Recorder.
func (Discard) Record(Entry) error { return nil }
