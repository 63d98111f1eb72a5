package ot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wI2L/jsondiff"
)

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// Pointer renders key and index segments as an RFC 6901 JSON pointer.
func Pointer(path Path) (string, error) {
	var b strings.Builder

	for _, seg := range path {
		b.WriteByte('/')

		switch seg.Kind {
		case KeySegment:
			b.WriteString(pointerEscaper.Replace(seg.Key))
		case IndexSegment:
			b.WriteString(strconv.Itoa(seg.Index))
		default:
			return "", fmt.Errorf("%w: %s has no pointer form", ErrInvalidPath, seg)
		}
	}

	return b.String(), nil
}

// ToJSONPatch renders ops as RFC 6902 operations. Range operations expand
// into element-wise add, remove and move operations with the same effect.
func ToJSONPatch(ops Batch) (jsondiff.Patch, error) {
	var patch jsondiff.Patch

	for _, op := range ops {
		rendered, err := toJSONPatch(op)
		if err != nil {
			return nil, err
		}

		patch = append(patch, rendered...)
	}

	return patch, nil
}

func toJSONPatch(op Operation) (jsondiff.Patch, error) {
	if len(op.Path) == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	parent, err := Pointer(op.Path.Parent())
	if err != nil {
		return nil, err
	}

	last := op.Path.Last()

	switch op.Type {
	case Insert, Replace, Remove:
		ptr, err := Pointer(op.Path)
		if err != nil {
			return nil, err
		}

		return jsondiff.Patch{singleOp(op, ptr)}, nil
	case InsertRange:
		if last.Kind != IndexSegment {
			return nil, fmt.Errorf("%w: insert_range must end with an index", ErrInvalidPath)
		}

		patch := make(jsondiff.Patch, 0, op.Value.Len())
		for i, item := range op.Value.Items() {
			patch = append(patch, jsondiff.Operation{
				Type:  jsondiff.OperationAdd,
				Path:  elementPointer(parent, last.Index+i),
				Value: item.Native(),
			})
		}

		return patch, nil
	case RemoveRange:
		if last.Kind != RangeSegment {
			return nil, fmt.Errorf("%w: remove_range must end with a range", ErrInvalidRangeIndex)
		}

		patch := make(jsondiff.Patch, 0, last.Range.Length)
		for i := 0; i < last.Range.Length; i++ {
			patch = append(patch, jsondiff.Operation{
				Type: jsondiff.OperationRemove,
				Path: elementPointer(parent, last.Range.Index),
			})
		}

		return patch, nil
	case MoveRange:
		if last.Kind != MoveSegment {
			return nil, fmt.Errorf("%w: move_range must end with a move", ErrInvalidRangeIndex)
		}

		return moveOps(parent, last.Range, last.To), nil
	case SwapRanges:
		if last.Kind != SwapSegment {
			return nil, fmt.Errorf("%w: swap_ranges must end with a swap", ErrInvalidRangeIndex)
		}

		// Move the later run in front of the earlier one, then move the
		// earlier run to where the later one ended.
		r0, r1 := sortedRanges(last)
		patch := moveOps(parent, r1, r0.Index)
		patch = append(patch, moveOps(parent, Range{Index: r0.Index + r1.Length, Length: r0.Length}, r1.End())...)

		return patch, nil
	default:
		return nil, fmt.Errorf("%w: unknown operation type %d", ErrUnsupportedOperation, op.Type)
	}
}

func singleOp(op Operation, ptr string) jsondiff.Operation {
	switch op.Type {
	case Insert:
		return jsondiff.Operation{Type: jsondiff.OperationAdd, Path: ptr, Value: op.Value.Native()}
	case Replace:
		rendered := jsondiff.Operation{Type: jsondiff.OperationReplace, Path: ptr, Value: op.Value.Native()}
		if op.HasPrevious {
			rendered.OldValue = op.Previous.Native()
		}

		return rendered
	default:
		rendered := jsondiff.Operation{Type: jsondiff.OperationRemove, Path: ptr}
		if op.HasPrevious {
			rendered.OldValue = op.Previous.Native()
		}

		return rendered
	}
}

// moveOps relocates r to pos one element at a time.
func moveOps(parent string, r Range, pos int) jsondiff.Patch {
	if pos == r.End() || pos == r.Index {
		return nil
	}

	patch := make(jsondiff.Patch, 0, r.Length)

	for i := 0; i < r.Length; i++ {
		from, to := r.Index, pos-1
		if pos < r.Index {
			from, to = r.Index+i, pos+i
		}

		patch = append(patch, jsondiff.Operation{
			Type: jsondiff.OperationMove,
			From: elementPointer(parent, from),
			Path: elementPointer(parent, to),
		})
	}

	return patch
}

func elementPointer(parent string, i int) string {
	return parent + "/" + strconv.Itoa(i)
}
