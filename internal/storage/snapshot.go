package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/serroba/docpatch/internal/history"
	"github.com/serroba/docpatch/internal/ot"
)

// SnapshotPolicy determines when to create snapshots.
type SnapshotPolicy struct {
	mu               sync.Mutex
	threshold        int            // Create snapshot every N records
	opsSinceSnapshot map[string]int // Track records per document since last snapshot
}

// NewSnapshotPolicy creates a policy that triggers snapshots every N records.
func NewSnapshotPolicy(threshold int) *SnapshotPolicy {
	return &SnapshotPolicy{
		threshold:        threshold,
		opsSinceSnapshot: make(map[string]int),
	}
}

// RecordOperation records that a history step was committed.
// Returns true if a snapshot should be created.
func (p *SnapshotPolicy) RecordOperation(docID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.opsSinceSnapshot[docID]++

	return p.threshold > 0 && p.opsSinceSnapshot[docID] >= p.threshold
}

// Reset resets the counter after a snapshot is created.
func (p *SnapshotPolicy) Reset(docID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.opsSinceSnapshot[docID] = 0
}

// Forget drops the counter of a deleted document.
func (p *SnapshotPolicy) Forget(docID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.opsSinceSnapshot, docID)
}

// SetThreshold changes the threshold for all documents.
// A threshold of zero or less disables snapshots.
func (p *SnapshotPolicy) SetThreshold(threshold int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.threshold = threshold
}

// Threshold returns the current threshold.
func (p *SnapshotPolicy) Threshold() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.threshold
}

// OperationsSinceSnapshot returns the number of records since the last snapshot.
func (p *SnapshotPolicy) OperationsSinceSnapshot(docID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.opsSinceSnapshot[docID]
}

// DocumentLoader provides the ability to load a document from storage.
// It handles the snapshot + record replay pattern.
type DocumentLoader struct {
	store Store
}

// NewDocumentLoader creates a new document loader.
func NewDocumentLoader(store Store) *DocumentLoader {
	return &DocumentLoader{store: store}
}

// LoadResult contains the result of loading a document.
type LoadResult struct {
	State   history.State // Reconstructed document and history
	Records int           // Records replayed on top of the snapshot
	IsNew   bool          // True if nothing was stored yet
}

// ReplayFunc reapplies a stored record to a state.
type ReplayFunc func(s history.State, rec Record) (history.State, error)

// Load reconstructs a document's state from storage.
// It loads the latest snapshot, or an empty mapping when there is none, and
// replays every record since.
func (l *DocumentLoader) Load(docID string, replay ReplayFunc) (LoadResult, error) {
	snapshot, err := l.store.LoadSnapshot(docID)

	var state history.State

	hasSnapshot := err == nil

	switch {
	case errors.Is(err, ErrSnapshotNotFound):
		state = history.New(ot.Map(nil))
	case err != nil:
		return LoadResult{}, err
	default:
		state = snapshot.State
	}

	records, err := l.store.LoadRecords(docID, state.Version)
	if err != nil {
		return LoadResult{}, err
	}

	for _, rec := range records {
		state, err = replay(state, rec)
		if err != nil {
			return LoadResult{}, fmt.Errorf("replay version %d: %w", rec.Version, err)
		}

		if state.Version != rec.Version {
			return LoadResult{}, fmt.Errorf("replay version %d: reached version %d", rec.Version, state.Version)
		}
	}

	return LoadResult{
		State:   state,
		Records: len(records),
		IsNew:   !hasSnapshot && len(records) == 0,
	}, nil
}

// Replayer returns a ReplayFunc that reapplies records through m.
func Replayer(m *history.Manager) ReplayFunc {
	return func(s history.State, rec Record) (history.State, error) {
		var err error

		switch rec.Action {
		case ActionPatch:
			s, err = m.Patch(s, rec.Ops, rec.NewTransaction)
		case ActionUndo:
			s, _, err = m.Undo(s)
		case ActionRedo:
			s, _, err = m.Redo(s)
		default:
			err = fmt.Errorf("unknown action %q", rec.Action)
		}

		return s, err
	}
}
