package acl_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/serroba/docpatch/internal/acl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GrantAndRevoke(t *testing.T) {
	t.Parallel()

	type grant struct {
		docID, userID string
		role          acl.Role
	}

	tests := []struct {
		name    string
		grants  []grant
		revoke  []string // user IDs revoked on doc1
		userID  string
		want    acl.Role
		wantErr error
	}{
		{
			name:   "granted role is returned",
			grants: []grant{{"doc1", "alice", acl.Editor}},
			userID: "alice",
			want:   acl.Editor,
		},
		{
			name:   "later grant replaces the role",
			grants: []grant{{"doc1", "alice", acl.Viewer}, {"doc1", "alice", acl.Owner}},
			userID: "alice",
			want:   acl.Owner,
		},
		{
			name:   "roles are per document",
			grants: []grant{{"doc1", "alice", acl.Viewer}, {"doc2", "alice", acl.Owner}},
			userID: "alice",
			want:   acl.Viewer,
		},
		{
			name:    "no grant",
			grants:  []grant{{"doc2", "alice", acl.Owner}},
			userID:  "alice",
			wantErr: acl.ErrPermissionNotFound,
		},
		{
			name:    "revoked",
			grants:  []grant{{"doc1", "alice", acl.Editor}},
			revoke:  []string{"alice"},
			userID:  "alice",
			wantErr: acl.ErrPermissionNotFound,
		},
		{
			name:   "revoking someone else keeps the role",
			grants: []grant{{"doc1", "alice", acl.Editor}, {"doc1", "bob", acl.Viewer}},
			revoke: []string{"bob"},
			userID: "alice",
			want:   acl.Editor,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := acl.NewMemoryStore()

			for _, g := range tt.grants {
				require.NoError(t, store.Grant(g.docID, g.userID, g.role))
			}

			for _, userID := range tt.revoke {
				require.NoError(t, store.Revoke("doc1", userID))
			}

			role, err := store.GetRole("doc1", tt.userID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, role)
		})
	}
}

func TestMemoryStore_Revoke_NotFound(t *testing.T) {
	t.Parallel()

	store := acl.NewMemoryStore()
	require.ErrorIs(t, store.Revoke("doc1", "alice"), acl.ErrPermissionNotFound)

	require.NoError(t, store.Grant("doc1", "alice", acl.Owner))
	require.NoError(t, store.Revoke("doc1", "alice"))
	require.ErrorIs(t, store.Revoke("doc1", "alice"), acl.ErrPermissionNotFound)
}

func TestMemoryStore_ListPermissions(t *testing.T) {
	t.Parallel()

	store := acl.NewMemoryStore()

	empty, err := store.ListPermissions("doc1")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Grant("doc1", "carol", acl.Viewer))
	require.NoError(t, store.Grant("doc1", "alice", acl.Owner))
	require.NoError(t, store.Grant("doc1", "bob", acl.Editor))
	require.NoError(t, store.Grant("doc2", "alice", acl.Owner))

	perms, err := store.ListPermissions("doc1")
	require.NoError(t, err)
	assert.Equal(t, []acl.Permission{
		{DocID: "doc1", UserID: "alice", Role: acl.Owner},
		{DocID: "doc1", UserID: "bob", Role: acl.Editor},
		{DocID: "doc1", UserID: "carol", Role: acl.Viewer},
	}, perms)
}

func TestMemoryStore_RevokeAll(t *testing.T) {
	t.Parallel()

	store := acl.NewMemoryStore()

	require.NoError(t, store.Grant("doc1", "alice", acl.Owner))
	require.NoError(t, store.Grant("doc1", "bob", acl.Editor))
	require.NoError(t, store.Grant("doc2", "alice", acl.Owner))

	require.NoError(t, store.RevokeAll("doc1"))
	require.NoError(t, store.RevokeAll("missing"))

	perms, err := store.ListPermissions("doc1")
	require.NoError(t, err)
	assert.Empty(t, perms)

	role, err := store.GetRole("doc2", "alice")
	require.NoError(t, err)
	assert.Equal(t, acl.Owner, role)
}

func TestMemoryStore_ConcurrentGrants(t *testing.T) {
	t.Parallel()

	store := acl.NewMemoryStore()

	var wg sync.WaitGroup

	for i := 0; i < 25; i++ {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			userID := fmt.Sprintf("user%02d", n)
			assert.NoError(t, store.Grant("doc1", userID, acl.Editor))
			_, _ = store.ListPermissions("doc1")
		}(i)
	}

	wg.Wait()

	perms, err := store.ListPermissions("doc1")
	require.NoError(t, err)
	require.Len(t, perms, 25)
	assert.Equal(t, "user00", perms[0].UserID)
	assert.Equal(t, "user24", perms[24].UserID)
}
