package storage_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/serroba/docpatch/internal/history"
	"github.com/serroba/docpatch/internal/ot"
	"github.com/serroba/docpatch/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertRecord(version int, key string) storage.Record {
	return storage.Record{
		Version:        version,
		Action:         storage.ActionPatch,
		NewTransaction: true,
		Ops:            ot.Ops(ot.NewInsert(ot.P(key), ot.Scalar(version))),
		UserID:         "user",
	}
}

func stateAt(version int) history.State {
	s := history.New(ot.MustFromNative(map[string]any{"v": version}))
	s.Version = version

	return s
}

func TestMemoryStore_CreateDocument(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()

	err := store.CreateDocument("doc1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exists, err := store.DocumentExists("doc1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !exists {
		t.Error("expected document to exist after creation")
	}
}

func TestMemoryStore_CreateDocument_AlreadyExists(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()

	require.NoError(t, store.CreateDocument("doc1"))

	err := store.CreateDocument("doc1")
	if !errors.Is(err, storage.ErrDocumentExists) {
		t.Errorf("expected ErrDocumentExists, got %v", err)
	}
}

func TestMemoryStore_DeleteDocument(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))
	require.NoError(t, store.AppendRecord("doc1", insertRecord(1, "a")))

	require.NoError(t, store.DeleteDocument("doc1"))

	exists, err := store.DocumentExists("doc1")
	require.NoError(t, err)
	assert.False(t, exists)

	err = store.DeleteDocument("doc1")
	require.ErrorIs(t, err, storage.ErrDocumentNotFound)

	// The id can be reused afterwards.
	require.NoError(t, store.CreateDocument("doc1"))

	records, err := store.LoadRecords("doc1", 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMemoryStore_DocumentExists_NotFound(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()

	exists, err := store.DocumentExists("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if exists {
		t.Error("expected document to not exist")
	}
}

func TestMemoryStore_SaveAndLoadSnapshot(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	err := store.SaveSnapshot("doc1", stateAt(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snapshot, err := store.LoadSnapshot("doc1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assert.Equal(t, "doc1", snapshot.DocID)
	assert.Equal(t, 10, snapshot.Version)
	assert.False(t, snapshot.CreatedAt.IsZero())
	assert.True(t, snapshot.State.Doc.Equal(stateAt(10).Doc))
}

func TestMemoryStore_SnapshotIsIsolatedFromCaller(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	m := history.NewManager(nil)
	s, err := m.Patch(history.New(ot.Map(nil)), ot.Ops(ot.NewInsert(ot.P("a"), ot.Scalar(1))), true)
	require.NoError(t, err)

	require.NoError(t, store.SaveSnapshot("doc1", s))

	s.Log[0].Transaction = 42

	snapshot, err := store.LoadSnapshot("doc1")
	require.NoError(t, err)
	require.Len(t, snapshot.State.Log, 1)
	assert.Equal(t, 0, snapshot.State.Log[0].Transaction)

	snapshot.State.Log[0].Transaction = 7

	again, err := store.LoadSnapshot("doc1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.State.Log[0].Transaction)
}

func TestMemoryStore_SaveSnapshot_DocumentNotFound(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()

	err := store.SaveSnapshot("nonexistent", stateAt(1))
	if !errors.Is(err, storage.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestMemoryStore_LoadSnapshot_DocumentNotFound(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()

	_, err := store.LoadSnapshot("nonexistent")
	if !errors.Is(err, storage.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestMemoryStore_LoadSnapshot_NoSnapshot(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	_, err := store.LoadSnapshot("doc1")
	if !errors.Is(err, storage.ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestMemoryStore_AppendAndLoadRecords(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.AppendRecord("doc1", insertRecord(i, "k")))
	}

	records, err := store.LoadRecords("doc1", 0)
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i, rec := range records {
		assert.Equal(t, i+1, rec.Version)
		assert.Equal(t, storage.ActionPatch, rec.Action)
	}
}

func TestMemoryStore_AppendRecord_DocumentNotFound(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()

	err := store.AppendRecord("nonexistent", insertRecord(1, "a"))
	if !errors.Is(err, storage.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestMemoryStore_LoadRecords_SinceVersion(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.AppendRecord("doc1", insertRecord(i, "k")))
	}

	records, err := store.LoadRecords("doc1", 3)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 4, records[0].Version)
	assert.Equal(t, 5, records[1].Version)
}

func TestMemoryStore_LoadRecords_DocumentNotFound(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()

	_, err := store.LoadRecords("nonexistent", 0)
	if !errors.Is(err, storage.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestMemoryStore_LatestVersion(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	v, err := store.LatestVersion("doc1")
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	require.NoError(t, store.AppendRecord("doc1", insertRecord(2, "a")))
	require.NoError(t, store.AppendRecord("doc1", insertRecord(4, "b")))

	v, err = store.LatestVersion("doc1")
	require.NoError(t, err)
	assert.Equal(t, 4, v)
}

func TestMemoryStore_LatestVersion_DocumentNotFound(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()

	_, err := store.LatestVersion("nonexistent")
	if !errors.Is(err, storage.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestMemoryStore_LatestVersion_FromSnapshot(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))
	require.NoError(t, store.SaveSnapshot("doc1", stateAt(10)))

	v, err := store.LatestVersion("doc1")
	require.NoError(t, err)
	assert.Equal(t, 10, v)
}

func TestMemoryStore_SnapshotPrunesRecords(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.AppendRecord("doc1", insertRecord(i, "k")))
	}

	require.NoError(t, store.SaveSnapshot("doc1", stateAt(3)))

	records, err := store.LoadRecords("doc1", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 4, records[0].Version)
}

func TestMemoryStore_MultipleDocuments(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))
	require.NoError(t, store.CreateDocument("doc2"))

	require.NoError(t, store.AppendRecord("doc1", insertRecord(1, "a")))
	require.NoError(t, store.AppendRecord("doc2", insertRecord(1, "b")))

	recs1, _ := store.LoadRecords("doc1", 0)
	recs2, _ := store.LoadRecords("doc2", 0)

	require.Len(t, recs1, 1)
	require.Len(t, recs2, 1)
	assert.True(t, recs1[0].Ops[0].Path.Equal(ot.P("a")))
	assert.True(t, recs2[0].Ops[0].Path.Equal(ot.P("b")))
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()

	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			docID := fmt.Sprintf("doc%d", n%4)
			_ = store.CreateDocument(docID)
			_ = store.AppendRecord(docID, insertRecord(n+1, "k"))
			_, _ = store.LoadRecords(docID, 0)
			_, _ = store.LatestVersion(docID)
		}(i)
	}

	wg.Wait()

	total := 0

	for i := 0; i < 4; i++ {
		records, err := store.LoadRecords(fmt.Sprintf("doc%d", i), 0)
		require.NoError(t, err)

		total += len(records)
	}

	assert.Equal(t, 20, total)
}

func TestMemoryStore_SnapshotOverwrite(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	require.NoError(t, store.SaveSnapshot("doc1", stateAt(5)))
	require.NoError(t, store.SaveSnapshot("doc1", stateAt(10)))

	snapshot, err := store.LoadSnapshot("doc1")
	require.NoError(t, err)
	assert.Equal(t, 10, snapshot.Version)
}
