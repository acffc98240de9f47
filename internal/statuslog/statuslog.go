// Package statuslog persists the last status confirmed as sent to Learndot
// for each enrolment. The client consults it before a remote call to skip
// updates that have already been delivered.
package statuslog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
)

// Entry records the last status successfully pushed for one enrolment.
type Entry struct {
	// Status is the last status string confirmed as sent
	Status string `json:"status"`

	// UpdatedAt is when the status was last confirmed
	UpdatedAt time.Time `json:"updatedAt"`
}

// Log is the enrolment status ledger. One entry per enrolment ID; only the
// most recent status is retained.
type Log interface {
	// Get returns the entry for an enrolment, or nil if none was recorded.
	Get(ctx context.Context, enrolmentID int64) (*Entry, error)

	// Upsert sets the status for an enrolment and refreshes its timestamp,
	// creating the entry if absent.
	Upsert(ctx context.Context, enrolmentID int64, status string) error
}

// fileLog implements Log using a single JSON file. Writes go through a
// temporary file and rename so readers never observe a partial file, and a
// file lock serializes read-modify-write across processes.
type fileLog struct {
	path string
	lock *flock.Flock
	now  func() time.Time
}

// NewFileLog creates a file-backed status log at path. The parent directory
// is created on first write.
func NewFileLog(path string) Log {
	return &fileLog{
		path: path,
		lock: flock.New(path + ".lock"),
		now:  time.Now,
	}
}

// Get returns the recorded entry for an enrolment, or nil if absent.
func (f *fileLog) Get(ctx context.Context, enrolmentID int64) (*Entry, error) {
	if err := f.lockShared(ctx); err != nil {
		return nil, err
	}
	defer f.unlock()

	entries, err := f.read()
	if err != nil {
		return nil, err
	}

	e, ok := entries[strconv.FormatInt(enrolmentID, 10)]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// Upsert records status for an enrolment with the current timestamp.
func (f *fileLog) Upsert(ctx context.Context, enrolmentID int64, status string) error {
	if err := f.lockExclusive(ctx); err != nil {
		return err
	}
	defer f.unlock()

	entries, err := f.read()
	if err != nil {
		return err
	}

	entries[strconv.FormatInt(enrolmentID, 10)] = Entry{
		Status:    status,
		UpdatedAt: f.now().UTC(),
	}

	return f.write(entries)
}

func (f *fileLog) read() (map[string]Entry, error) {
	// #nosec G304 -- path comes from validated configuration
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			// No file yet - this is OK for first run
			return make(map[string]Entry), nil
		}
		return nil, fmt.Errorf("failed to read status log: %w", err)
	}

	entries := make(map[string]Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status log: %w", err)
	}
	return entries, nil
}

func (f *fileLog) write(entries map[string]Entry) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
		return fmt.Errorf("failed to create status log directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status log: %w", err)
	}

	// Write to temporary file first for atomic operation
	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status log: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, f.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status log: %w", err)
	}

	return nil
}

func (f *fileLog) lockShared(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
		return fmt.Errorf("failed to create status log directory: %w", err)
	}
	if _, err := f.lock.TryRLockContext(ctx, 50*time.Millisecond); err != nil {
		return fmt.Errorf("failed to acquire status log read lock: %w", err)
	}
	return nil
}

func (f *fileLog) lockExclusive(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
		return fmt.Errorf("failed to create status log directory: %w", err)
	}
	if _, err := f.lock.TryLockContext(ctx, 50*time.Millisecond); err != nil {
		return fmt.Errorf("failed to acquire status log write lock: %w", err)
	}
	return nil
}

func (f *fileLog) unlock() {
	_ = f.lock.Unlock()
}
