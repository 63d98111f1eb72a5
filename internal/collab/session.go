package collab

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/serroba/docpatch/internal/acl"
	"github.com/serroba/docpatch/internal/codec"
	"github.com/serroba/docpatch/internal/history"
	"github.com/serroba/docpatch/internal/ot"
	"github.com/serroba/docpatch/internal/storage"
	"github.com/serroba/docpatch/internal/ws"
)

// Common errors.
var (
	ErrSessionClosed   = errors.New("session is closed")
	ErrVersionConflict = errors.New("version conflict")
)

// AnyVersion disables the base version check of Apply.
const AnyVersion = -1

// Result describes the state after a committed step.
type Result struct {
	Version     int
	Transaction int
	HasUndo     bool
	HasRedo     bool
	Ops         ot.Batch
}

// DocumentState is a read-only view of a session.
type DocumentState struct {
	Doc         ot.Value
	Version     int
	Transaction int
	HasUndo     bool
	HasRedo     bool
}

// Session serializes the history steps of a single document.
// It wires together the history manager, storage, ACL and broadcasting.
type Session struct {
	docID string

	mu     sync.RWMutex
	state  history.State
	closed bool

	// Dependencies
	history        *history.Manager
	store          storage.Store
	permChecker    *acl.Checker
	hub            *ws.Hub
	snapshotPolicy *storage.SnapshotPolicy
	metrics        *Metrics
}

// SessionConfig holds configuration for creating a session.
type SessionConfig struct {
	DocID          string
	Type           ot.Type
	Store          storage.Store
	PermChecker    *acl.Checker
	Hub            *ws.Hub
	SnapshotPolicy *storage.SnapshotPolicy
	Metrics        *Metrics
}

// NewSession creates a session holding an empty document.
// Call Load to restore the stored state.
func NewSession(cfg SessionConfig) *Session {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Session{
		docID:          cfg.DocID,
		state:          history.New(ot.Map(nil)),
		history:        history.NewManager(cfg.Type),
		store:          cfg.Store,
		permChecker:    cfg.PermChecker,
		hub:            cfg.Hub,
		snapshotPolicy: cfg.SnapshotPolicy,
		metrics:        metrics,
	}
}

// Load initializes the session from the latest snapshot and the records
// stored after it.
func (s *Session) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	exists, err := s.store.DocumentExists(s.docID)
	if err != nil {
		return err
	}

	if !exists {
		return storage.ErrDocumentNotFound
	}

	result, err := storage.NewDocumentLoader(s.store).Load(s.docID, storage.Replayer(s.history))
	if err != nil {
		return fmt.Errorf("load %s: %w", s.docID, err)
	}

	s.state = result.State

	if result.Records > 0 {
		log.Printf("document %s: replayed %d records up to version %d", s.docID, result.Records, s.state.Version)
	}

	return nil
}

// Apply commits ops as one history step on behalf of userID.
// Unless baseVersion is AnyVersion it must equal the current version.
func (s *Session) Apply(clientID, userID string, ops ot.Batch, newTransaction bool, baseVersion int) (Result, error) {
	if err := s.checkPermission(userID, acl.ActionEdit); err != nil {
		return Result{}, err
	}

	return s.step(clientID, userID, storage.ActionPatch, func(cur history.State) (history.State, ot.Batch, error) {
		if baseVersion != AnyVersion && baseVersion != cur.Version {
			s.metrics.Conflicts.Inc()

			return history.State{}, nil, fmt.Errorf("%w: base version %d, current version %d",
				ErrVersionConflict, baseVersion, cur.Version)
		}

		next, err := s.history.Patch(cur, ops, newTransaction)

		return next, ops, err
	}, newTransaction)
}

// Undo reverts the current transaction.
func (s *Session) Undo(clientID, userID string) (Result, error) {
	if err := s.checkPermission(userID, acl.ActionUndo); err != nil {
		return Result{}, err
	}

	return s.step(clientID, userID, storage.ActionUndo, s.history.Undo, false)
}

// Redo reapplies the next transaction.
func (s *Session) Redo(clientID, userID string) (Result, error) {
	if err := s.checkPermission(userID, acl.ActionUndo); err != nil {
		return Result{}, err
	}

	return s.step(clientID, userID, storage.ActionRedo, s.history.Redo, false)
}

type stepFunc func(history.State) (history.State, ot.Batch, error)

// step runs fn against the current state, persists the outcome and only then
// makes it current.
func (s *Session) step(clientID, userID string, action storage.Action, fn stepFunc, newTransaction bool) (Result, error) {
	timer := prometheus.NewTimer(s.metrics.StepDuration.WithLabelValues(string(action)))
	defer timer.ObserveDuration()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Result{}, ErrSessionClosed
	}

	next, ops, err := fn(s.state)
	if err != nil {
		s.metrics.Failures.WithLabelValues(string(action)).Inc()

		return Result{}, err
	}

	rec := storage.Record{
		Version:        next.Version,
		Action:         action,
		NewTransaction: newTransaction,
		Ops:            ops,
		UserID:         userID,
		CreatedAt:      time.Now(),
	}

	if err := s.store.AppendRecord(s.docID, rec); err != nil {
		return Result{}, err
	}

	s.state = next

	s.metrics.Steps.WithLabelValues(string(action)).Inc()
	s.metrics.Operations.Add(float64(len(ops)))
	s.maybeSnapshot()
	s.broadcast(clientID, userID, action, ops)

	return Result{
		Version:     next.Version,
		Transaction: next.Transaction,
		HasUndo:     next.HasUndo(),
		HasRedo:     next.HasRedo(),
		Ops:         ops,
	}, nil
}

// checkPermission verifies the user may perform action.
func (s *Session) checkPermission(userID string, action acl.Action) error {
	if s.permChecker == nil {
		return nil
	}

	return s.permChecker.RequirePermission(s.docID, userID, action)
}

// maybeSnapshot checks if a snapshot should be created and does so.
func (s *Session) maybeSnapshot() {
	if s.snapshotPolicy == nil {
		return
	}

	if s.snapshotPolicy.RecordOperation(s.docID) {
		if err := s.saveSnapshot(); err != nil {
			log.Printf("document %s: snapshot at version %d failed: %v", s.docID, s.state.Version, err)

			return
		}

		s.snapshotPolicy.Reset(s.docID)
	}
}

// broadcast sends the applied operations to other connected clients.
func (s *Session) broadcast(clientID, userID string, action storage.Action, ops ot.Batch) {
	if s.hub == nil {
		return
	}

	data, err := codec.EncodeBatch(ops)
	if err != nil {
		log.Printf("document %s: encode broadcast: %v", s.docID, err)

		return
	}

	s.hub.BroadcastOps(s.docID, s.state.Version, string(action), data, userID, clientID)
}

// saveSnapshot persists the current state.
func (s *Session) saveSnapshot() error {
	if err := s.store.SaveSnapshot(s.docID, s.state); err != nil {
		return err
	}

	s.metrics.Snapshots.Inc()

	return nil
}

// GetState returns the current document state.
// It checks read permission before returning.
func (s *Session) GetState(userID string) (DocumentState, error) {
	if err := s.checkPermission(userID, acl.ActionRead); err != nil {
		return DocumentState{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return DocumentState{}, ErrSessionClosed
	}

	return DocumentState{
		Doc:         s.state.Doc,
		Version:     s.state.Version,
		Transaction: s.state.Transaction,
		HasUndo:     s.state.HasUndo(),
		HasRedo:     s.state.HasRedo(),
	}, nil
}

// History returns a copy of the transaction log and the current transaction.
func (s *Session) History(userID string) ([]history.Entry, int, error) {
	if err := s.checkPermission(userID, acl.ActionHistory); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, 0, ErrSessionClosed
	}

	entries := make([]history.Entry, len(s.state.Log))
	copy(entries, s.state.Log)

	return entries, s.state.Transaction, nil
}

// DocID returns the document ID for this session.
func (s *Session) DocID() string {
	return s.docID
}

// Version returns the current version number.
func (s *Session) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Version
}

// Close closes the session and saves a final snapshot.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	return s.saveSnapshot()
}

// discard closes the session without persisting anything.
func (s *Session) discard() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
}
