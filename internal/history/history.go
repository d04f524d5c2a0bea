// Package history implements the linear edit-history state machine: an
// append-only provenance chain of artifacts with a movable tip. The first
// record ever pushed is the origin; it survives undo and reset and is only
// discarded when the session ends.
package history

import (
	"errors"

	"clipforge/internal/logging"
	"clipforge/internal/media"
)

// ErrEmpty is returned by accessors on a history that has never been pushed.
// After session init the origin record exists, so callers normally never see
// this.
var ErrEmpty = errors.New("history is empty")

// Record pairs an artifact with the prompt that produced it. The origin
// record has an empty prompt; every other record carries the instruction
// that created its artifact.
type Record struct {
	Artifact media.Artifact
	Prompt   string
}

// IsOrigin reports whether this record is the origin (no producing prompt).
func (r Record) IsOrigin() bool {
	return r.Prompt == ""
}

// History is an append-only vector of records with a logical length.
// Records are never removed except via Undo, which pops exactly the most
// recent one, and Reset, which truncates to the origin.
//
// History is owned by a single session and is not safe for concurrent use.
type History struct {
	records []Record
}

// New creates an empty history. The first Push establishes the origin.
func New() *History {
	return &History{}
}

// Len returns the number of records.
func (h *History) Len() int {
	return len(h.records)
}

// Push appends a record unconditionally.
func (h *History) Push(r Record) {
	h.records = append(h.records, r)
	logging.History("Pushed record %d: %s", len(h.records), r.Artifact.Filename)
}

// Current returns the most recent record.
func (h *History) Current() (Record, error) {
	if len(h.records) == 0 {
		return Record{}, ErrEmpty
	}
	return h.records[len(h.records)-1], nil
}

// Previous returns the second-to-last record. ok is false when fewer than
// two records exist.
func (h *History) Previous() (Record, bool) {
	if len(h.records) < 2 {
		return Record{}, false
	}
	return h.records[len(h.records)-2], true
}

// Undo removes the most recent record and returns the new tip. When only
// the origin remains (or the history is empty) it is a no-op and ok is
// false: the origin is never popped.
func (h *History) Undo() (Record, bool) {
	if len(h.records) <= 1 {
		logging.HistoryDebug("Undo ignored: nothing to undo (len=%d)", len(h.records))
		return Record{}, false
	}
	h.records = h.records[:len(h.records)-1]
	logging.History("Undo: %d records remain", len(h.records))
	return h.records[len(h.records)-1], true
}

// Reset truncates the history to exactly the origin record and returns it.
// Reset is idempotent; on an empty history it returns ErrEmpty.
func (h *History) Reset() (Record, error) {
	if len(h.records) == 0 {
		return Record{}, ErrEmpty
	}
	h.records = h.records[:1]
	logging.History("Reset to origin: %s", h.records[0].Artifact.Filename)
	return h.records[0], nil
}

// Original returns the origin record.
func (h *History) Original() (Record, error) {
	if len(h.records) == 0 {
		return Record{}, ErrEmpty
	}
	return h.records[0], nil
}
