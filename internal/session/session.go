// Package session holds per-operator state that lives between requests: the
// pending conflict queue of an import and the snapshot of an open edit view.
// Nothing here is persisted; dropping a session leaves the ledger untouched.
package session

import (
	"time"

	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/reconcile"
)

// FileSummary reports how one imported file went.
type FileSummary struct {
	Name     string `json:"name"`
	Layout   string `json:"layout,omitempty"`
	Rows     int    `json:"rows"`
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
	Error    string `json:"error,omitempty"`
}

// ImportSummary describes the import a session is resolving.
type ImportSummary struct {
	Files       []FileSummary `json:"files"`
	Parsed      int           `json:"parsed"`
	Categorized int           `json:"categorized"`
	Clean       int           `json:"clean"`
	Conflicts   int           `json:"conflicts"`
	Discarded   int           `json:"discarded"`
}

// EditBatch is the view an operator opened for editing. Saving replaces
// exactly these rows.
type EditBatch struct {
	Original []domain.Transaction
	OpenedAt time.Time
}

// Session is one operator's working context. A Session is not safe for
// concurrent use; the budget service serialises operations on it.
type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Queue is nil until an import has been staged.
	Queue  *reconcile.Queue
	Import *ImportSummary
	// Revision is the ledger revision the staged import was reconciled
	// against.
	Revision uint64

	Edit *EditBatch
}

// HasPendingImport reports whether an import is staged and not yet committed.
func (s *Session) HasPendingImport() bool {
	return s.Queue != nil
}

// ClearImport drops the staged import and its undecided conflicts.
func (s *Session) ClearImport() {
	s.Queue = nil
	s.Import = nil
	s.Revision = 0
	s.touch()
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now()
}

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.touch()
}
