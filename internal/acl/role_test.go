package acl_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/serroba/docpatch/internal/acl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_StringAndParse(t *testing.T) {
	t.Parallel()

	for _, role := range []acl.Role{acl.Viewer, acl.Editor, acl.Owner} {
		parsed, err := acl.ParseRole(role.String())
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}

	assert.Equal(t, "unknown", acl.Role(99).String())

	_, err := acl.ParseRole("admin")
	if !errors.Is(err, acl.ErrUnknownRole) {
		t.Errorf("expected ErrUnknownRole, got %v", err)
	}
}

func TestRole_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(acl.Permission{DocID: "d", UserID: "u", Role: acl.Editor})
	require.NoError(t, err)
	assert.JSONEq(t, `{"docId":"d","userId":"u","role":"editor"}`, string(data))

	var p acl.Permission
	require.NoError(t, json.Unmarshal([]byte(`{"role":"owner"}`), &p))
	assert.Equal(t, acl.Owner, p.Role)

	err = json.Unmarshal([]byte(`{"role":"root"}`), &p)
	require.ErrorIs(t, err, acl.ErrUnknownRole)

	_, err = json.Marshal(acl.Permission{Role: acl.Role(7)})
	require.Error(t, err)
}
