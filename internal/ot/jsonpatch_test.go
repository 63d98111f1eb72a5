package ot_test

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/serroba/docpatch/internal/ot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wI2L/jsondiff"
)

func TestPointer_EscapesKeys(t *testing.T) {
	t.Parallel()

	ptr, err := ot.Pointer(ot.P("a/b", "c~d", 3))
	require.NoError(t, err)

	assert.Equal(t, "/a~1b/c~0d/3", ptr)
}

func TestToJSONPatch_SingleOperations(t *testing.T) {
	t.Parallel()

	patch, err := ot.ToJSONPatch(ot.Ops(
		ot.NewInsert(ot.P("list", 0), ot.Scalar("x")),
		ot.NewReplace(ot.P("name"), ot.Scalar("y")),
		ot.NewRemove(ot.P("gone")),
	))
	require.NoError(t, err)

	expected := jsondiff.Patch{
		{Type: jsondiff.OperationAdd, Path: "/list/0", Value: "x"},
		{Type: jsondiff.OperationReplace, Path: "/name", Value: "y"},
		{Type: jsondiff.OperationRemove, Path: "/gone"},
	}

	assert.Equal(t, expected, patch)
}

func TestToJSONPatch_Ranges(t *testing.T) {
	t.Parallel()

	patch, err := ot.ToJSONPatch(ot.Ops(
		ot.NewInsertRange(ot.P("l", 1), ot.Scalar("a"), ot.Scalar("b")),
		ot.NewRemoveRange(ot.P("l", ot.Range{Index: 0, Length: 2})),
	))
	require.NoError(t, err)

	expected := jsondiff.Patch{
		{Type: jsondiff.OperationAdd, Path: "/l/1", Value: "a"},
		{Type: jsondiff.OperationAdd, Path: "/l/2", Value: "b"},
		{Type: jsondiff.OperationRemove, Path: "/l/0"},
		{Type: jsondiff.OperationRemove, Path: "/l/0"},
	}

	assert.Equal(t, expected, patch)
}

// applyMoves replays RFC 6902 move operations on a flat array.
func applyMoves(t *testing.T, items []any, patch jsondiff.Patch) []any {
	t.Helper()

	index := func(ptr string) int {
		i, err := strconv.Atoi(strings.TrimPrefix(ptr, "/"))
		require.NoError(t, err)

		return i
	}

	for _, op := range patch {
		require.Equal(t, jsondiff.OperationMove, op.Type)

		from, to := index(op.From), index(op.Path)
		v := items[from]
		items = append(items[:from:from], items[from+1:]...)
		items = append(items[:to], append([]any{v}, items[to:]...)...)
	}

	return items
}

func TestToJSONPatch_MoveAndSwapReplayToSameResult(t *testing.T) {
	t.Parallel()

	ops := []ot.Operation{
		ot.NewMoveRange(ot.P(ot.Move(ot.Range{Index: 1, Length: 2}, 4))),
		ot.NewMoveRange(ot.P(ot.Move(ot.Range{Index: 3, Length: 2}, 1))),
		ot.NewSwapRanges(ot.P(ot.Swap(ot.Range{Index: 0, Length: 2}, ot.Range{Index: 3, Length: 2}))),
		ot.NewSwapRanges(ot.P(ot.Swap(ot.Range{Index: 0, Length: 1}, ot.Range{Index: 2, Length: 3}))),
		ot.NewSwapRanges(ot.P(ot.Swap(ot.Range{Index: 1, Length: 2}, ot.Range{Index: 3, Length: 1}))),
	}

	for _, op := range ops {
		op := op

		t.Run(op.String(), func(t *testing.T) {
			t.Parallel()

			doc := ot.Scalars(1, 2, 3, 4, 5, 6)
			expected := applyOne(t, doc, op)

			patch, err := ot.ToJSONPatch(ot.Ops(op))
			require.NoError(t, err)

			items, ok := doc.Native().([]any)
			require.True(t, ok)

			actual := ot.MustFromNative(applyMoves(t, items, patch))
			if !expected.Equal(actual) {
				t.Errorf("expected %v, got %v", expected, actual)
			}
		})
	}
}

func TestToJSONPatch_MarshalsAsRFC6902(t *testing.T) {
	t.Parallel()

	patch, err := ot.ToJSONPatch(ot.Ops(ot.NewReplaceEnriched(ot.P("a"), ot.Scalar(1), ot.Scalar(2))))
	require.NoError(t, err)

	data, err := json.Marshal(patch)
	require.NoError(t, err)

	assert.JSONEq(t, `[{"op":"replace","path":"/a","value":2}]`, string(data))
}
