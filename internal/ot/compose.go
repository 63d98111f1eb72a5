package ot

import "fmt"

// CanMerge reports whether next can be folded into last: both must be
// Replace operations on the same path.
func CanMerge(last Operation, next Batch) bool {
	op, ok := next.Single()
	if !ok {
		return false
	}

	return last.Type == Replace && op.Type == Replace && last.Path.Equal(op.Path)
}

// Merge folds next into last. The result keeps last's previous value, so
// inverting it restores the state from before both edits.
func Merge(last Operation, next Batch) (Operation, error) {
	op, ok := next.Single()
	if !ok {
		return Operation{}, fmt.Errorf("%w: got %d operations", ErrMergeOnBatch, len(next))
	}

	if !CanMerge(last, next) {
		return Operation{}, fmt.Errorf("%w: cannot merge %s into %s", ErrUnsupportedOperation, op.Type, last.Type)
	}

	last.Value = op.Value

	return last, nil
}
