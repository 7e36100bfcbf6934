// internal/agent/history.go
package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
)

// DefaultHistoryCapacity is the number of actions and screenshots kept.
const DefaultHistoryCapacity = 20

// ring is a fixed-capacity FIFO that overwrites its oldest item when full.
type ring[T any] struct {
	buf   []T
	start int
	n     int
}

func newRing[T any](capacity int) ring[T] {
	return ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// last returns up to count newest items, oldest first.
func (r *ring[T]) last(count int) []T {
	if count > r.n {
		count = r.n
	}
	out := make([]T, 0, count)
	for i := r.n - count; i < r.n; i++ {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	return out
}

func (r *ring[T]) reset() {
	clear(r.buf)
	r.start, r.n = 0, 0
}

// Screenshot is a captured frame kept alongside the action history.
type Screenshot struct {
	PNG []byte    `json:"-"`
	At  time.Time `json:"at"`
}

// History is a bounded record of executed actions and captured screenshots.
// Appends and evictions happen under one lock, so readers never observe more
// than Capacity entries.
type History struct {
	mu          sync.RWMutex
	entries     ring[HistoryEntry]
	screenshots ring[Screenshot]
	now         func() time.Time
}

// NewHistory creates a history holding at most capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		entries:     newRing[HistoryEntry](capacity),
		screenshots: newRing[Screenshot](capacity),
		now:         time.Now,
	}
}

// Capacity returns the maximum number of entries kept.
func (h *History) Capacity() int { return len(h.entries.buf) }

// Append records an action outcome, evicting the oldest entry when full.
func (h *History) Append(action Action, result ActionResult) HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry := HistoryEntry{
		ID:        uuid.NewString(),
		Action:    action,
		Result:    result,
		Timestamp: h.now(),
	}
	h.entries.push(entry)
	return entry
}

// Len returns the number of entries currently held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.entries.n
}

// Entries returns every held entry, oldest first.
func (h *History) Entries() []HistoryEntry {
	return h.Recent(h.Capacity())
}

// Recent returns up to n of the newest entries, oldest first.
func (h *History) Recent(n int) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	return h.entries.last(n)
}

// RecordScreenshot keeps a captured frame, evicting the oldest when full.
func (h *History) RecordScreenshot(png []byte, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.screenshots.push(Screenshot{PNG: png, At: at})
}

// LastScreenshot returns the newest captured frame.
func (h *History) LastScreenshot() (Screenshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	last := h.screenshots.last(1)
	if len(last) == 0 {
		return Screenshot{}, false
	}
	return last[0], true
}

// Clear drops all entries and screenshots.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries.reset()
	h.screenshots.reset()
}

// historyExport is the on-disk shape written by Save.
type historyExport struct {
	SavedAt     time.Time      `json:"saved_at"`
	Capacity    int            `json:"capacity"`
	Actions     []HistoryEntry `json:"actions"`
	Screenshots int            `json:"screenshots"`
}

// Save writes the action history as indented JSON to path.
func (h *History) Save(path string) error {
	h.mu.RLock()
	export := historyExport{
		SavedAt:     h.now(),
		Capacity:    len(h.entries.buf),
		Actions:     h.entries.last(h.entries.n),
		Screenshots: h.screenshots.n,
	}
	h.mu.RUnlock()

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}
