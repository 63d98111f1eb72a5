package history

import (
	"errors"
	"fmt"

	"github.com/serroba/docpatch/internal/ot"
)

// Common errors.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Manager applies operations to states and maintains their history.
// It holds no mutable state and is safe for concurrent use.
type Manager struct {
	typ ot.Type
}

// NewManager creates a manager for the given operation vocabulary.
// A nil typ selects ot.Structural.
func NewManager(typ ot.Type) *Manager {
	if typ == nil {
		typ = ot.Structural{}
	}

	return &Manager{typ: typ}
}

// Patch applies ops to s and records them in the history.
//
// With newTransaction set, or when no transaction exists yet, the ops start
// a new transaction unless they can be merged into the previous one; either
// way entries of undone transactions are discarded. Without it they extend
// the current transaction and any undone transactions stay redoable. The
// version advances by len(ops).
func (m *Manager) Patch(s State, ops ot.Batch, newTransaction bool) (State, error) {
	if len(ops) == 0 {
		return State{}, ot.ErrEmptyBatch
	}

	tx := s.Transaction
	starting := newTransaction || tx == NoTransaction

	if log, ok := m.merge(s.Log, tx, ops, starting); ok {
		doc, err := m.typ.Apply(s.Doc, ops)
		if err != nil {
			return State{}, err
		}

		return State{Doc: doc, Log: log, Transaction: tx, Version: s.Version + len(ops)}, nil
	}

	var log []Entry

	if starting {
		tx++
		log = keepBefore(s.Log, tx, len(ops))
	} else {
		log = make([]Entry, len(s.Log), len(s.Log)+len(ops))
		copy(log, s.Log)
	}

	doc, entries, err := m.record(s.Doc, ops, tx)
	if err != nil {
		return State{}, err
	}

	return State{
		Doc:         doc,
		Log:         append(log, entries...),
		Transaction: tx,
		Version:     s.Version + len(ops),
	}, nil
}

// merge folds a single replace into the last entry of transaction tx.
// When starting is set, the transaction must consist of that entry alone and
// undone transactions are discarded.
func (m *Manager) merge(log []Entry, tx int, ops ot.Batch, starting bool) ([]Entry, bool) {
	if tx == NoTransaction || len(ops) != 1 {
		return nil, false
	}

	var out []Entry
	if starting {
		out = keepBefore(log, tx+1, 0)
	} else {
		out = make([]Entry, len(log))
		copy(out, log)
	}

	last, count := -1, 0

	for i, e := range out {
		if e.Transaction == tx {
			last = i
			count++
		}
	}

	if last < 0 || (starting && count > 1) {
		return nil, false
	}

	merged, ok := m.typ.ComposeSimilar(out[last].Op, ops)
	if !ok {
		return nil, false
	}

	out[last].Op = merged

	return out, true
}

// record applies ops one at a time, enriching each against the document it
// is applied to and precomputing its inverse.
func (m *Manager) record(doc ot.Value, ops ot.Batch, tx int) (ot.Value, []Entry, error) {
	entries := make([]Entry, 0, len(ops))
	cur := doc

	for i, op := range ops {
		enriched, err := m.typ.Enrich(cur, ot.Batch{op})
		if err != nil {
			return ot.Value{}, nil, fmt.Errorf("operation %d: %w", i, err)
		}

		inverse, err := m.typ.InvertWithDoc(enriched[0], cur)
		if err != nil {
			return ot.Value{}, nil, fmt.Errorf("operation %d: %w", i, err)
		}

		next, err := m.typ.Apply(cur, ot.Batch{op})
		if err != nil {
			return ot.Value{}, nil, fmt.Errorf("operation %d: %w", i, err)
		}

		entries = append(entries, Entry{Transaction: tx, Op: enriched[0], Inverse: inverse})
		cur = next
	}

	return cur, entries, nil
}

// Undo reverts the current transaction and returns the operations it applied.
func (m *Manager) Undo(s State) (State, ot.Batch, error) {
	tx := s.Transaction

	entries := s.Entries(tx)
	if tx == NoTransaction || len(entries) == 0 {
		return State{}, nil, fmt.Errorf("%w (transaction=%d)", ErrNothingToUndo, tx)
	}

	ops := make(ot.Batch, len(entries))
	for i, e := range entries {
		ops[len(entries)-1-i] = e.Inverse
	}

	doc, err := m.typ.Apply(s.Doc, ops)
	if err != nil {
		return State{}, nil, err
	}

	return State{Doc: doc, Log: s.Log, Transaction: tx - 1, Version: s.Version + len(ops)}, ops, nil
}

// Redo reapplies the transaction after the current one and returns the
// operations it applied.
func (m *Manager) Redo(s State) (State, ot.Batch, error) {
	tx := s.Transaction + 1

	entries := s.Entries(tx)
	if len(entries) == 0 {
		return State{}, nil, fmt.Errorf("%w (transaction=%d)", ErrNothingToRedo, tx)
	}

	ops := make(ot.Batch, len(entries))
	for i, e := range entries {
		ops[i] = e.Op
	}

	doc, err := m.typ.Apply(s.Doc, ops)
	if err != nil {
		return State{}, nil, err
	}

	return State{Doc: doc, Log: s.Log, Transaction: tx, Version: s.Version + len(ops)}, ops, nil
}
