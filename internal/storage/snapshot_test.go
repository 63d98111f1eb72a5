package storage_test

import (
	"errors"
	"testing"

	"github.com/serroba/docpatch/internal/history"
	"github.com/serroba/docpatch/internal/ot"
	"github.com/serroba/docpatch/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotPolicy_TriggersAtThreshold(t *testing.T) {
	t.Parallel()

	policy := storage.NewSnapshotPolicy(5)

	// First 4 records should not trigger
	for i := 0; i < 4; i++ {
		shouldSnapshot := policy.RecordOperation("doc1")
		if shouldSnapshot {
			t.Errorf("should not trigger snapshot at record %d", i+1)
		}
	}

	shouldSnapshot := policy.RecordOperation("doc1")
	if !shouldSnapshot {
		t.Error("should trigger snapshot at threshold")
	}
}

func TestSnapshotPolicy_Reset(t *testing.T) {
	t.Parallel()

	policy := storage.NewSnapshotPolicy(3)

	for i := 0; i < 3; i++ {
		_ = policy.RecordOperation("doc1")
	}

	policy.Reset("doc1")

	count := policy.OperationsSinceSnapshot("doc1")
	if count != 0 {
		t.Errorf("expected count 0 after reset, got %d", count)
	}

	for i := 0; i < 2; i++ {
		if policy.RecordOperation("doc1") {
			t.Errorf("should not trigger at record %d after reset", i+1)
		}
	}

	if !policy.RecordOperation("doc1") {
		t.Error("should trigger after reaching threshold again")
	}
}

func TestSnapshotPolicy_MultipleDocuments(t *testing.T) {
	t.Parallel()

	policy := storage.NewSnapshotPolicy(2)

	assert.False(t, policy.RecordOperation("doc1"))
	assert.False(t, policy.RecordOperation("doc2"))
	assert.True(t, policy.RecordOperation("doc1"))
	assert.Equal(t, 1, policy.OperationsSinceSnapshot("doc2"))
}

func TestSnapshotPolicy_SetThreshold(t *testing.T) {
	t.Parallel()

	policy := storage.NewSnapshotPolicy(10)

	assert.False(t, policy.RecordOperation("doc1"))
	assert.False(t, policy.RecordOperation("doc1"))

	policy.SetThreshold(3)
	assert.Equal(t, 3, policy.Threshold())
	assert.True(t, policy.RecordOperation("doc1"))

	policy.SetThreshold(0)
	assert.False(t, policy.RecordOperation("doc1"))
}

func TestSnapshotPolicy_Forget(t *testing.T) {
	t.Parallel()

	policy := storage.NewSnapshotPolicy(5)
	_ = policy.RecordOperation("doc1")

	policy.Forget("doc1")

	assert.Equal(t, 0, policy.OperationsSinceSnapshot("doc1"))
}

func replayer() storage.ReplayFunc {
	return storage.Replayer(history.NewManager(ot.Structural{}))
}

func TestDocumentLoader_LoadEmpty(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	result, err := storage.NewDocumentLoader(store).Load("doc1", replayer())
	require.NoError(t, err)

	assert.True(t, result.IsNew)
	assert.True(t, result.State.Doc.Equal(ot.Map(nil)))
	assert.Equal(t, 0, result.State.Version)
	assert.Equal(t, history.NoTransaction, result.State.Transaction)
}

func TestDocumentLoader_LoadFromSnapshot(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))
	require.NoError(t, store.SaveSnapshot("doc1", stateAt(10)))

	result, err := storage.NewDocumentLoader(store).Load("doc1", replayer())
	require.NoError(t, err)

	assert.False(t, result.IsNew)
	assert.Equal(t, 10, result.State.Version)
	assert.Equal(t, 0, result.Records)
}

func TestDocumentLoader_LoadWithReplay(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	m := history.NewManager(nil)

	s, err := m.Patch(history.New(ot.Map(nil)), ot.Ops(ot.NewInsert(ot.P("a"), ot.Scalar(1))), true)
	require.NoError(t, err)
	require.NoError(t, store.SaveSnapshot("doc1", s))

	records := []storage.Record{
		{Version: 2, Action: storage.ActionPatch, NewTransaction: true, Ops: ot.Ops(ot.NewInsert(ot.P("b"), ot.Scalar(2)))},
		{Version: 3, Action: storage.ActionUndo},
		{Version: 4, Action: storage.ActionRedo},
		{Version: 5, Action: storage.ActionUndo},
	}

	for _, rec := range records {
		require.NoError(t, store.AppendRecord("doc1", rec))
	}

	result, err := storage.NewDocumentLoader(store).Load("doc1", replayer())
	require.NoError(t, err)

	assert.Equal(t, 5, result.State.Version)
	assert.Equal(t, 4, result.Records)
	assert.Equal(t, 0, result.State.Transaction)
	assert.True(t, result.State.HasRedo())
	assert.True(t, result.State.Doc.Equal(ot.MustFromNative(map[string]any{"a": 1})))
}

func TestDocumentLoader_LoadRecordsOnly(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))
	require.NoError(t, store.AppendRecord("doc1", insertRecord(1, "a")))
	require.NoError(t, store.AppendRecord("doc1", insertRecord(2, "b")))

	result, err := storage.NewDocumentLoader(store).Load("doc1", replayer())
	require.NoError(t, err)

	assert.False(t, result.IsNew)
	assert.Equal(t, 2, result.State.Version)
	assert.True(t, result.State.Doc.Equal(ot.MustFromNative(map[string]any{"a": 1, "b": 2})))
}

func TestDocumentLoader_VersionMismatch(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))
	require.NoError(t, store.AppendRecord("doc1", insertRecord(3, "a")))

	_, err := storage.NewDocumentLoader(store).Load("doc1", replayer())
	require.Error(t, err)
}

func TestDocumentLoader_ReplayError(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))
	require.NoError(t, store.AppendRecord("doc1", storage.Record{Version: 1, Action: storage.ActionUndo}))

	_, err := storage.NewDocumentLoader(store).Load("doc1", replayer())
	require.ErrorIs(t, err, history.ErrNothingToUndo)
}

func TestDocumentLoader_UnknownAction(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))
	require.NoError(t, store.AppendRecord("doc1", storage.Record{Version: 1, Action: "rewind"}))

	_, err := storage.NewDocumentLoader(store).Load("doc1", replayer())
	require.Error(t, err)
}

func TestDocumentLoader_LoadRecordsError(t *testing.T) {
	t.Parallel()

	store := &errorStore{
		loadRecordsErr: errors.New("load records failed"),
	}

	_, err := storage.NewDocumentLoader(store).Load("doc1", replayer())
	if err == nil {
		t.Error("expected error from LoadRecords")
	}
}

func TestDocumentLoader_LoadSnapshotError(t *testing.T) {
	t.Parallel()

	store := &errorStore{
		loadSnapshotErr: errors.New("snapshot error"),
	}

	_, err := storage.NewDocumentLoader(store).Load("doc1", replayer())
	if err == nil {
		t.Error("expected error from LoadSnapshot")
	}
}

// errorStore is a mock store that returns errors for testing.
type errorStore struct {
	loadSnapshotErr error
	loadRecordsErr  error
}

func (e *errorStore) CreateDocument(_ string) error {
	return nil
}

func (e *errorStore) DeleteDocument(_ string) error {
	return nil
}

func (e *errorStore) DocumentExists(_ string) (bool, error) {
	return true, nil
}

func (e *errorStore) SaveSnapshot(_ string, _ history.State) error {
	return nil
}

func (e *errorStore) LoadSnapshot(_ string) (storage.Snapshot, error) {
	if e.loadSnapshotErr != nil {
		return storage.Snapshot{}, e.loadSnapshotErr
	}

	return storage.Snapshot{}, storage.ErrSnapshotNotFound
}

func (e *errorStore) AppendRecord(_ string, _ storage.Record) error {
	return nil
}

func (e *errorStore) LoadRecords(_ string, _ int) ([]storage.Record, error) {
	return nil, e.loadRecordsErr
}

func (e *errorStore) LatestVersion(_ string) (int, error) {
	return 0, nil
}
