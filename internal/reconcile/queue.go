package reconcile

import (
	"fmt"

	"github.com/dvloznov/household-budget/internal/domain"
)

// State is the queue's position in its lifecycle.
type State int

const (
	// Idle means every conflict has been resolved.
	Idle State = iota
	// Presenting means Current holds a conflict awaiting a decision.
	Presenting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Presenting:
		return "presenting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Disposition is the operator's decision on a single conflict.
type Disposition int

const (
	// DiscardNew drops the incoming row; the ledger is unchanged.
	DiscardNew Disposition = iota
	// Replace removes the existing row and adds the incoming one.
	Replace
	// KeepBoth adds the incoming row and leaves the existing one.
	KeepBoth
)

func (d Disposition) String() string {
	switch d {
	case DiscardNew:
		return "discard-new"
	case Replace:
		return "replace"
	case KeepBoth:
		return "keep-both"
	}
	return fmt.Sprintf("Disposition(%d)", int(d))
}

// ParseDisposition accepts the String forms.
func ParseDisposition(s string) (Disposition, error) {
	switch s {
	case "discard-new", "discard":
		return DiscardNew, nil
	case "replace":
		return Replace, nil
	case "keep-both", "keep":
		return KeepBoth, nil
	}
	return 0, fmt.Errorf("unknown disposition %q", s)
}

// Plan is the ledger change an import will make once committed.
type Plan struct {
	Removals  []domain.Transaction
	Additions []domain.Transaction
}

// Decision records how one conflict was resolved.
type Decision struct {
	Conflict    Conflict
	Disposition Disposition
}

// Queue presents conflicts strictly one at a time. It accumulates removals
// and additions and only hands them out once every conflict is resolved, so
// a half-resolved import can never reach the ledger.
type Queue struct {
	pending   []Conflict
	clean     []domain.Transaction
	removals  []domain.Transaction
	additions []domain.Transaction
	decisions []Decision

	// replaced holds the ExistingIndex of every row already scheduled for
	// removal, so two conflicts against one row remove it once.
	replaced map[int]bool
}

// NewQueue starts a queue over res. Clean rows are scheduled for addition
// up front; they are committed together with the resolved conflicts.
func NewQueue(res Result) *Queue {
	return &Queue{
		pending:  append([]Conflict(nil), res.Conflicts...),
		clean:    append([]domain.Transaction(nil), res.Clean...),
		replaced: make(map[int]bool),
	}
}

// State reports Idle once every conflict has been resolved.
func (q *Queue) State() State {
	if len(q.pending) == 0 {
		return Idle
	}
	return Presenting
}

// Current returns the conflict being presented.
func (q *Queue) Current() (Conflict, error) {
	if len(q.pending) == 0 {
		return Conflict{}, domain.ErrQueueIdle
	}
	return q.pending[0], nil
}

// Pending reports how many conflicts remain, including the current one.
func (q *Queue) Pending() int {
	return len(q.pending)
}

// Decisions returns the resolutions made so far, in order.
func (q *Queue) Decisions() []Decision {
	return append([]Decision(nil), q.decisions...)
}

// Resolve applies d to the current conflict and advances.
func (q *Queue) Resolve(d Disposition) error {
	c, err := q.Current()
	if err != nil {
		return err
	}

	switch d {
	case DiscardNew:
	case Replace:
		if !q.replaced[c.ExistingIndex] {
			q.replaced[c.ExistingIndex] = true
			q.removals = append(q.removals, c.Existing)
		}
		q.additions = append(q.additions, c.New)
	case KeepBoth:
		q.additions = append(q.additions, c.New)
	default:
		return fmt.Errorf("Resolve: unknown disposition %d", int(d))
	}

	q.decisions = append(q.decisions, Decision{Conflict: c, Disposition: d})
	q.pending = q.pending[1:]
	return nil
}

// Plan returns the full ledger change: clean rows plus every addition and
// removal the decisions produced. It fails until the queue has drained.
func (q *Queue) Plan() (Plan, error) {
	if q.State() != Idle {
		return Plan{}, fmt.Errorf("Plan: %d conflicts unresolved: %w", len(q.pending), domain.ErrQueueNotDrained)
	}
	adds := make([]domain.Transaction, 0, len(q.clean)+len(q.additions))
	adds = append(adds, q.clean...)
	adds = append(adds, q.additions...)
	return Plan{
		Removals:  append([]domain.Transaction(nil), q.removals...),
		Additions: adds,
	}, nil
}
