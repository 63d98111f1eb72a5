package ot

import "fmt"

// OpType represents the type of operation.
type OpType int

const (
	Insert OpType = iota
	InsertRange
	Replace
	Remove
	RemoveRange
	SwapRanges
	MoveRange
)

// String returns the wire name of the operation type.
func (t OpType) String() string {
	switch t {
	case Insert:
		return "insert"
	case InsertRange:
		return "insert_range"
	case Replace:
		return "replace"
	case Remove:
		return "remove"
	case RemoveRange:
		return "remove_range"
	case SwapRanges:
		return "swap_ranges"
	case MoveRange:
		return "move_range"
	default:
		return "unknown"
	}
}

// ParseOpType is the inverse of OpType.String.
func ParseOpType(s string) (OpType, bool) {
	for t := Insert; t <= MoveRange; t++ {
		if t.String() == s {
			return t, true
		}
	}

	return 0, false
}

// Operation represents a single edit addressed by Path.
//
// Value holds the inserted or replacing value; for InsertRange it is a
// sequence of the inserted items. Previous holds the pre-edit value of
// Replace, Remove and RemoveRange once the operation has been enriched.
type Operation struct {
	Type        OpType
	Path        Path
	Value       Value
	Previous    Value
	HasPrevious bool
}

// NewInsert creates an insert operation.
func NewInsert(path Path, value Value) Operation {
	return Operation{Type: Insert, Path: path, Value: value}
}

// NewInsertRange creates an operation inserting values at the index the
// path ends with.
func NewInsertRange(path Path, values ...Value) Operation {
	return Operation{Type: InsertRange, Path: path, Value: Seq(values...)}
}

// NewReplace creates a replace operation.
func NewReplace(path Path, value Value) Operation {
	return Operation{Type: Replace, Path: path, Value: value}
}

// NewReplaceEnriched creates a replace operation that remembers the value it overwrites.
func NewReplaceEnriched(path Path, previous, value Value) Operation {
	return Operation{Type: Replace, Path: path, Value: value, Previous: previous, HasPrevious: true}
}

// NewRemove creates a remove operation.
func NewRemove(path Path) Operation {
	return Operation{Type: Remove, Path: path}
}

// NewRemoveEnriched creates a remove operation that remembers the removed value.
func NewRemoveEnriched(path Path, previous Value) Operation {
	return Operation{Type: Remove, Path: path, Previous: previous, HasPrevious: true}
}

// NewRemoveRange creates an operation removing the range the path ends with.
func NewRemoveRange(path Path) Operation {
	return Operation{Type: RemoveRange, Path: path}
}

// NewRemoveRangeEnriched creates a remove-range operation that remembers the
// removed items as a sequence.
func NewRemoveRangeEnriched(path Path, previous Value) Operation {
	return Operation{Type: RemoveRange, Path: path, Previous: previous, HasPrevious: true}
}

// NewSwapRanges creates an operation swapping the two ranges of a swap segment.
func NewSwapRanges(path Path) Operation {
	return Operation{Type: SwapRanges, Path: path}
}

// NewMoveRange creates an operation relocating the range of a move segment.
func NewMoveRange(path Path) Operation {
	return Operation{Type: MoveRange, Path: path}
}

// IsDataDependent reports whether inverting the operation needs the
// pre-edit value.
func (o Operation) IsDataDependent() bool {
	return o.Type == Replace || o.Type == Remove || o.Type == RemoveRange
}

// WithPrevious returns a copy of o enriched with previous.
func (o Operation) WithPrevious(previous Value) Operation {
	o.Previous = previous
	o.HasPrevious = true

	return o
}

// Equal reports whether two operations are identical, including enrichment.
func (o Operation) Equal(other Operation) bool {
	return o.Type == other.Type &&
		o.Path.Equal(other.Path) &&
		o.Value.Equal(other.Value) &&
		o.HasPrevious == other.HasPrevious &&
		(!o.HasPrevious || o.Previous.Equal(other.Previous))
}

func (o Operation) String() string {
	switch o.Type {
	case Insert, InsertRange, Replace:
		return fmt.Sprintf("%s %s %s", o.Type, o.Path, o.Value)
	default:
		return fmt.Sprintf("%s %s", o.Type, o.Path)
	}
}

// Batch is an ordered list of operations applied left to right.
type Batch []Operation

// Ops builds a batch.
func Ops(ops ...Operation) Batch {
	return Batch(ops)
}

// Single returns the only operation of a one-element batch.
func (b Batch) Single() (Operation, bool) {
	if len(b) != 1 {
		return Operation{}, false
	}

	return b[0], true
}

// Equal reports whether two batches hold equal operations in the same order.
func (b Batch) Equal(o Batch) bool {
	if len(b) != len(o) {
		return false
	}

	for i := range b {
		if !b[i].Equal(o[i]) {
			return false
		}
	}

	return true
}
