package storage

import (
	"errors"
	"time"

	"github.com/serroba/docpatch/internal/history"
	"github.com/serroba/docpatch/internal/ot"
)

// Common errors.
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentExists   = errors.New("document already exists")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// Action identifies the history call a record replays.
type Action string

// Record actions.
const (
	ActionPatch Action = "patch"
	ActionUndo  Action = "undo"
	ActionRedo  Action = "redo"
)

// Record is one committed history step. Version is the document version
// after the step; Ops are the operations it applied to the document.
type Record struct {
	Version        int
	Action         Action
	NewTransaction bool
	Ops            ot.Batch
	UserID         string
	CreatedAt      time.Time
}

// Snapshot represents a point-in-time capture of a document and its history.
type Snapshot struct {
	DocID     string
	Version   int
	State     history.State
	CreatedAt time.Time
}

// Store defines the interface for persisting document state.
// Implementations can use in-memory storage, databases, or other backends.
type Store interface {
	// CreateDocument creates a new document with the given ID.
	// Returns ErrDocumentExists if the document already exists.
	CreateDocument(docID string) error

	// DeleteDocument removes a document with its snapshot and records.
	// Returns ErrDocumentNotFound if the document doesn't exist.
	DeleteDocument(docID string) error

	// DocumentExists checks if a document exists.
	DocumentExists(docID string) (bool, error)

	// SaveSnapshot persists state as the document's latest snapshot and
	// prunes the records it covers.
	// Returns ErrDocumentNotFound if the document doesn't exist.
	SaveSnapshot(docID string, state history.State) error

	// LoadSnapshot retrieves the latest snapshot for a document.
	// Returns ErrDocumentNotFound if the document doesn't exist.
	// Returns ErrSnapshotNotFound if document exists but has no snapshot.
	LoadSnapshot(docID string) (Snapshot, error)

	// AppendRecord adds a record to the document's log.
	// Returns ErrDocumentNotFound if the document doesn't exist.
	AppendRecord(docID string, rec Record) error

	// LoadRecords retrieves all records after the given version.
	// Returns ErrDocumentNotFound if the document doesn't exist.
	LoadRecords(docID string, sinceVersion int) ([]Record, error)

	// LatestVersion returns the highest version stored for a document.
	// Returns ErrDocumentNotFound if the document doesn't exist.
	LatestVersion(docID string) (int, error)
}
