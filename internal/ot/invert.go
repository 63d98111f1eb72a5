package ot

import "fmt"

// Invert returns the operation that undoes op. Replace, Remove and
// RemoveRange must be enriched; see Enrich and InvertWithDoc.
func Invert(op Operation) (Operation, error) {
	if len(op.Path) == 0 {
		return Operation{}, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	if op.IsDataDependent() && !op.HasPrevious {
		return Operation{}, fmt.Errorf("%w: %s %s", ErrMissingPrevious, op.Type, op.Path)
	}

	last := op.Path.Last()

	switch op.Type {
	case Insert:
		return NewRemoveEnriched(op.Path, op.Value), nil
	case InsertRange:
		if last.Kind != IndexSegment {
			return Operation{}, fmt.Errorf("%w: insert_range must end with an index, got %s", ErrInvalidPath, last)
		}

		r := Range{Index: last.Index, Length: op.Value.Len()}

		return NewRemoveRangeEnriched(op.Path.With(At(r)), op.Value), nil
	case Replace:
		return NewReplaceEnriched(op.Path, op.Value, op.Previous), nil
	case Remove:
		return NewInsert(op.Path, op.Previous), nil
	case RemoveRange:
		if last.Kind != RangeSegment {
			return Operation{}, fmt.Errorf("%w: remove_range must end with a range, got %s", ErrInvalidRangeIndex, last)
		}

		if !op.Previous.IsSequence() {
			return Operation{}, fmt.Errorf("%w: remove_range previous must be a sequence", ErrUnsupportedOperation)
		}

		return Operation{
			Type:  InsertRange,
			Path:  op.Path.With(Index(last.Range.Index)),
			Value: op.Previous,
		}, nil
	case SwapRanges:
		if last.Kind != SwapSegment {
			return Operation{}, fmt.Errorf("%w: swap_ranges must end with a swap, got %s", ErrInvalidRangeIndex, last)
		}

		return NewSwapRanges(op.Path.With(invertSwap(last))), nil
	case MoveRange:
		if last.Kind != MoveSegment {
			return Operation{}, fmt.Errorf("%w: move_range must end with a move, got %s", ErrInvalidRangeIndex, last)
		}

		return NewMoveRange(op.Path.With(invertMove(last))), nil
	default:
		return Operation{}, fmt.Errorf("%w: unknown operation type %d", ErrUnsupportedOperation, op.Type)
	}
}

// After a swap the later range's content sits where the earlier one was and
// everything between shifts by the length difference.
func invertSwap(seg Segment) Segment {
	r0, r1 := sortedRanges(seg)

	first := Range{Index: r0.Index, Length: r1.Length}
	second := Range{Index: r1.Index + r1.Length - r0.Length, Length: r0.Length}

	return Swap(first, second)
}

func invertMove(seg Segment) Segment {
	r, pos := seg.Range, seg.To

	// Moving a range to its own end leaves the sequence as it was.
	if pos == r.End() {
		return seg
	}

	if r.Index < pos {
		return Move(Range{Index: pos - r.Length, Length: r.Length}, r.Index)
	}

	return Move(Range{Index: pos, Length: r.Length}, r.Index+r.Length)
}

// InvertWithDoc inverts op reading any missing "before" value from doc,
// which must be the document op was applied to.
func InvertWithDoc(op Operation, doc Value) (Operation, error) {
	if op.IsDataDependent() && !op.HasPrevious {
		enriched, err := EnrichOne(doc, op)
		if err != nil {
			return Operation{}, err
		}

		op = enriched
	}

	return Invert(op)
}

// EnrichOne records the pre-edit value of a Replace, Remove or RemoveRange
// read from doc. Other operations are returned unchanged.
func EnrichOne(doc Value, op Operation) (Operation, error) {
	if !op.IsDataDependent() {
		return op, nil
	}

	if op.Type == RemoveRange && (len(op.Path) == 0 || op.Path.Last().Kind != RangeSegment) {
		return Operation{}, fmt.Errorf("%w: remove_range needs a range segment", ErrInvalidRangeIndex)
	}

	previous, err := GetValue(doc, op.Path)
	if err != nil {
		return Operation{}, fmt.Errorf("enrich %s %s: %w", op.Type, op.Path, err)
	}

	return op.WithPrevious(previous), nil
}

// Enrich enriches every operation of ops against the same pre-batch document.
func Enrich(doc Value, ops Batch) (Batch, error) {
	out := make(Batch, len(ops))

	for i, op := range ops {
		enriched, err := EnrichOne(doc, op)
		if err != nil {
			return nil, err
		}

		out[i] = enriched
	}

	return out, nil
}

// InvertBatch returns the inverses of ops in reverse order, so applying the
// result undoes the whole batch. ops must be enriched.
func InvertBatch(ops Batch) (Batch, error) {
	out := make(Batch, len(ops))

	for i, op := range ops {
		inv, err := Invert(op)
		if err != nil {
			return nil, err
		}

		out[len(ops)-1-i] = inv
	}

	return out, nil
}
