package ot

import (
	"fmt"
	"sort"
)

// Apply folds ops over doc left to right and returns the resulting document.
// doc is never modified. A failure mid-batch is returned immediately and no
// partial result is exposed.
func Apply(doc Value, ops Batch) (Value, error) {
	cur := doc

	for i, op := range ops {
		next, err := ApplyOne(cur, op)
		if err != nil {
			return Value{}, fmt.Errorf("operation %d (%s): %w", i, op.Type, err)
		}

		cur = next
	}

	return cur, nil
}

// ApplyOne applies a single operation. Only the containers along op.Path are
// rebuilt; all other nodes are shared with doc.
func ApplyOne(doc Value, op Operation) (Value, error) {
	if len(op.Path) == 0 {
		return Value{}, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	return applyAt(doc, op, op.Path)
}

func applyAt(v Value, op Operation, path Path) (Value, error) {
	if len(path) == 1 {
		return applyLeaf(v, op, path[0])
	}

	seg := path[0]

	c, err := child(v, seg)
	if err != nil {
		return Value{}, err
	}

	updated, err := applyAt(c, op, path[1:])
	if err != nil {
		return Value{}, err
	}

	return withChild(v, seg, updated), nil
}

// withChild returns a copy of v with the child at seg replaced.
// seg must already have resolved against v.
func withChild(v Value, seg Segment, c Value) Value {
	if v.IsMapping() {
		fields := make(map[string]Value, len(v.fields))
		for k, f := range v.fields {
			fields[k] = f
		}

		fields[seg.Key] = c

		return Value{typ: MappingNode, fields: fields}
	}

	items := append([]Value(nil), v.items...)
	items[seg.Index] = c

	return Value{typ: SequenceNode, items: items}
}

func applyLeaf(v Value, op Operation, seg Segment) (Value, error) {
	switch v.typ {
	case SequenceNode:
		return applySequence(v.items, op, seg)
	case MappingNode:
		return applyMapping(v.fields, op, seg)
	default:
		return Value{}, fmt.Errorf("%w: segment %s addresses into a scalar", ErrInvalidPath, seg)
	}
}

func applyMapping(fields map[string]Value, op Operation, seg Segment) (Value, error) {
	if seg.Kind != KeySegment {
		return Value{}, fmt.Errorf("%w: segment %s on mapping", ErrInvalidPath, seg)
	}

	out := make(map[string]Value, len(fields)+1)
	for k, f := range fields {
		out[k] = f
	}

	switch op.Type {
	case Insert, Replace:
		out[seg.Key] = op.Value
	case Remove:
		if _, ok := out[seg.Key]; !ok {
			return Value{}, fmt.Errorf("%w: no key %q to remove", ErrInvalidPath, seg.Key)
		}

		delete(out, seg.Key)
	case InsertRange, RemoveRange, SwapRanges, MoveRange:
		return Value{}, fmt.Errorf("%w: %s on mapping", ErrUnsupportedOperation, op.Type)
	default:
		return Value{}, fmt.Errorf("%w: unknown operation type %d", ErrUnsupportedOperation, op.Type)
	}

	return Value{typ: MappingNode, fields: out}, nil
}

func applySequence(items []Value, op Operation, seg Segment) (Value, error) {
	var (
		out []Value
		err error
	)

	switch op.Type {
	case Insert:
		out, err = sequenceInsert(items, seg, []Value{op.Value})
	case InsertRange:
		if !op.Value.IsSequence() {
			return Value{}, fmt.Errorf("%w: insert_range value must be a sequence", ErrUnsupportedOperation)
		}

		out, err = sequenceInsert(items, seg, op.Value.items)
	case Replace:
		out, err = sequenceReplace(items, seg, op.Value)
	case Remove:
		out, err = sequenceRemove(items, seg)
	case RemoveRange:
		out, err = sequenceRemoveRange(items, seg)
	case SwapRanges:
		out, err = sequenceSwapRanges(items, seg)
	case MoveRange:
		out, err = sequenceMoveRange(items, seg)
	default:
		return Value{}, fmt.Errorf("%w: unknown operation type %d", ErrUnsupportedOperation, op.Type)
	}

	if err != nil {
		return Value{}, err
	}

	return Value{typ: SequenceNode, items: out}, nil
}

func indexSegment(seg Segment, limit int) (int, error) {
	if seg.Kind != IndexSegment {
		return 0, fmt.Errorf("%w: segment %s on sequence", ErrInvalidPath, seg)
	}

	if seg.Index < 0 || seg.Index > limit {
		return 0, fmt.Errorf("%w: index %d out of bounds", ErrInvalidPath, seg.Index)
	}

	return seg.Index, nil
}

func sequenceInsert(items []Value, seg Segment, values []Value) ([]Value, error) {
	i, err := indexSegment(seg, len(items))
	if err != nil {
		return nil, err
	}

	out := make([]Value, 0, len(items)+len(values))
	out = append(out, items[:i]...)
	out = append(out, values...)
	out = append(out, items[i:]...)

	return out, nil
}

func sequenceReplace(items []Value, seg Segment, value Value) ([]Value, error) {
	i, err := indexSegment(seg, len(items)-1)
	if err != nil {
		return nil, err
	}

	out := append([]Value(nil), items...)
	out[i] = value

	return out, nil
}

func sequenceRemove(items []Value, seg Segment) ([]Value, error) {
	i, err := indexSegment(seg, len(items)-1)
	if err != nil {
		return nil, err
	}

	out := make([]Value, 0, len(items)-1)
	out = append(out, items[:i]...)
	out = append(out, items[i+1:]...)

	return out, nil
}

func sequenceRemoveRange(items []Value, seg Segment) ([]Value, error) {
	if seg.Kind != RangeSegment {
		return nil, fmt.Errorf("%w: remove_range needs a range segment, got %s", ErrInvalidRangeIndex, seg)
	}

	r := seg.Range
	if err := checkRange(r, len(items)); err != nil {
		return nil, err
	}

	out := make([]Value, 0, len(items)-r.Length)
	out = append(out, items[:r.Index]...)
	out = append(out, items[r.End():]...)

	return out, nil
}

// sortedRanges orders the two ranges of a swap segment by index.
func sortedRanges(seg Segment) (Range, Range) {
	rs := []Range{seg.Range, seg.Other}
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Index < rs[j].Index })

	return rs[0], rs[1]
}

func sequenceSwapRanges(items []Value, seg Segment) ([]Value, error) {
	if seg.Kind != SwapSegment {
		return nil, fmt.Errorf("%w: swap_ranges needs a swap segment, got %s", ErrInvalidRangeIndex, seg)
	}

	r0, r1 := sortedRanges(seg)

	for _, r := range []Range{r0, r1} {
		if err := checkRange(r, len(items)); err != nil {
			return nil, err
		}
	}

	if r0.Overlaps(r1) {
		return nil, fmt.Errorf("%w: ranges %s and %s overlap", ErrInvalidRangeIndex, r0, r1)
	}

	out := make([]Value, 0, len(items))
	out = append(out, items[:r0.Index]...)
	out = append(out, items[r1.Index:r1.End()]...)
	out = append(out, items[r0.End():r1.Index]...)
	out = append(out, items[r0.Index:r0.End()]...)
	out = append(out, items[r1.End():]...)

	return out, nil
}

func sequenceMoveRange(items []Value, seg Segment) ([]Value, error) {
	if seg.Kind != MoveSegment {
		return nil, fmt.Errorf("%w: move_range needs a move segment, got %s", ErrInvalidRangeIndex, seg)
	}

	r, pos := seg.Range, seg.To
	if err := checkRange(r, len(items)); err != nil {
		return nil, err
	}

	if r.Contains(pos) {
		return nil, fmt.Errorf("%w: position %d inside %s", ErrInvalidMove, pos, r)
	}

	if pos < 0 || pos > len(items) {
		return nil, fmt.Errorf("%w: position %d out of bounds", ErrInvalidRangeIndex, pos)
	}

	out := make([]Value, 0, len(items))

	if r.Index < pos {
		out = append(out, items[:r.Index]...)
		out = append(out, items[r.End():pos]...)
		out = append(out, items[r.Index:r.End()]...)
		out = append(out, items[pos:]...)
	} else {
		out = append(out, items[:pos]...)
		out = append(out, items[r.Index:r.End()]...)
		out = append(out, items[pos:r.Index]...)
		out = append(out, items[r.End():]...)
	}

	return out, nil
}
