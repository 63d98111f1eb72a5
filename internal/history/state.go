// Package history keeps the transactional undo/redo log of a document.
//
// A State bundles a document with the log of committed operations, the
// transaction pointer and the version counter. States are values: every
// Manager call returns a new State and leaves its input untouched, so a host
// can keep older states around or persist them as they are.
//
// Each log entry stores the enriched forward operation together with its
// inverse, computed against the document the operation was applied to.
// Undo replays the inverses of the current transaction in reverse order;
// redo replays the forward operations of the next one. Starting a new
// transaction discards every entry at or after it, so there is no branching
// history.
package history

import "github.com/serroba/docpatch/internal/ot"

// NoTransaction is the transaction pointer before any transaction.
const NoTransaction = -1

// Entry is a committed operation tagged with its transaction.
type Entry struct {
	Transaction int
	Op          ot.Operation
	Inverse     ot.Operation
}

// State is a document together with its history.
type State struct {
	Doc         ot.Value
	Log         []Entry
	Transaction int
	Version     int
}

// New returns the state of a fresh document with an empty history.
func New(doc ot.Value) State {
	return State{
		Doc:         doc,
		Transaction: NoTransaction,
	}
}

// HasUndo reports whether Undo can succeed.
func (s State) HasUndo() bool {
	return len(s.Log) > 0 && s.Transaction > NoTransaction
}

// HasRedo reports whether Redo can succeed.
func (s State) HasRedo() bool {
	return len(s.Log) > 0 && s.Transaction < s.lastTransaction()
}

// Entries returns the log entries of transaction tx in log order.
func (s State) Entries(tx int) []Entry {
	var out []Entry

	for _, e := range s.Log {
		if e.Transaction == tx {
			out = append(out, e)
		}
	}

	return out
}

func (s State) lastTransaction() int {
	last := NoTransaction

	for _, e := range s.Log {
		if e.Transaction > last {
			last = e.Transaction
		}
	}

	return last
}

// keepBefore returns a fresh copy of the entries whose transaction is below tx.
func keepBefore(log []Entry, tx int, extra int) []Entry {
	out := make([]Entry, 0, len(log)+extra)

	for _, e := range log {
		if e.Transaction < tx {
			out = append(out, e)
		}
	}

	return out
}
