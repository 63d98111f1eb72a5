package ot

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is the half-open run [Index, Index+Length) of a sequence.
type Range struct {
	Index  int
	Length int
}

// End returns the first index after the range.
func (r Range) End() int {
	return r.Index + r.Length
}

// Contains reports whether pos falls inside the range.
func (r Range) Contains(pos int) bool {
	return pos >= r.Index && pos < r.End()
}

// Overlaps reports whether r and o share at least one index.
func (r Range) Overlaps(o Range) bool {
	return r.Index < o.End() && o.Index < r.End()
}

func (r Range) String() string {
	return fmt.Sprintf("{%d,%d}", r.Index, r.Length)
}

// SegmentKind tells how a path segment addresses its container.
type SegmentKind int

const (
	KeySegment SegmentKind = iota
	IndexSegment
	RangeSegment
	MoveSegment
	SwapSegment
)

// Segment is one step of a Path. Only the final segment of a path may be a
// range, move or swap segment.
type Segment struct {
	Kind  SegmentKind
	Key   string
	Index int
	Range Range
	Other Range // second range of a swap
	To    int   // target position of a move
}

// Key addresses a mapping field.
func Key(k string) Segment {
	return Segment{Kind: KeySegment, Key: k}
}

// Index addresses a sequence element.
func Index(i int) Segment {
	return Segment{Kind: IndexSegment, Index: i}
}

// At addresses a contiguous run of a sequence.
func At(r Range) Segment {
	return Segment{Kind: RangeSegment, Range: r}
}

// Move addresses a run together with the position it moves to.
func Move(r Range, to int) Segment {
	return Segment{Kind: MoveSegment, Range: r, To: to}
}

// Swap addresses two disjoint runs of a sequence.
func Swap(r0, r1 Range) Segment {
	return Segment{Kind: SwapSegment, Range: r0, Other: r1}
}

func (s Segment) String() string {
	switch s.Kind {
	case KeySegment:
		return strconv.Quote(s.Key)
	case IndexSegment:
		return strconv.Itoa(s.Index)
	case RangeSegment:
		return s.Range.String()
	case MoveSegment:
		return fmt.Sprintf("[%s,%d]", s.Range, s.To)
	case SwapSegment:
		return fmt.Sprintf("[%s,%s]", s.Range, s.Other)
	default:
		return "?"
	}
}

// Path is an ordered list of segments addressing a location in a document.
type Path []Segment

// P builds a path from keys (string) and indices (int). Range-shaped
// segments can be passed as Segment values.
func P(parts ...any) Path {
	path := make(Path, len(parts))

	for i, part := range parts {
		switch v := part.(type) {
		case string:
			path[i] = Key(v)
		case int:
			path[i] = Index(v)
		case Range:
			path[i] = At(v)
		case Segment:
			path[i] = v
		default:
			panic(fmt.Sprintf("ot.P: unsupported path part %T", part))
		}
	}

	return path
}

// Equal reports whether two paths address the same location.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}

	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}

	return true
}

// Last returns the final segment. The path must not be empty.
func (p Path) Last() Segment {
	return p[len(p)-1]
}

// Parent returns a copy of all but the final segment.
func (p Path) Parent() Path {
	return append(Path(nil), p[:len(p)-1]...)
}

// With returns a copy of the parent path followed by seg.
func (p Path) With(seg Segment) Path {
	return append(p.Parent(), seg)
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = seg.String()
	}

	return "[" + strings.Join(parts, ",") + "]"
}

// GetValue resolves path against doc. A final range segment on a sequence
// yields the addressed sub-sequence.
func GetValue(doc Value, path Path) (Value, error) {
	if len(path) == 0 {
		return Value{}, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	cur := doc

	for i, seg := range path {
		if i == len(path)-1 && seg.Kind == RangeSegment {
			if !cur.IsSequence() {
				return Value{}, fmt.Errorf("%w: range %s on %s", ErrInvalidPath, seg, cur.Type())
			}

			if err := checkRange(seg.Range, cur.Len()); err != nil {
				return Value{}, err
			}

			return cur.slice(seg.Range.Index, seg.Range.End()), nil
		}

		next, err := child(cur, seg)
		if err != nil {
			return Value{}, err
		}

		cur = next
	}

	return cur, nil
}

// child resolves one key or index segment.
func child(v Value, seg Segment) (Value, error) {
	var (
		c  Value
		ok bool
	)

	switch {
	case seg.Kind == KeySegment && v.IsMapping():
		c, ok = v.Key(seg.Key)
	case seg.Kind == IndexSegment && v.IsSequence():
		c, ok = v.Index(seg.Index)
	}

	if !ok {
		return Value{}, fmt.Errorf("%w: segment %s does not resolve on %s", ErrInvalidPath, seg, v.Type())
	}

	return c, nil
}

func checkRange(r Range, n int) error {
	// Compared without End so huge lengths cannot overflow.
	if r.Index < 0 || r.Length < 0 || r.Index > n || r.Length > n-r.Index {
		return fmt.Errorf("%w: %s out of bounds for length %d", ErrInvalidRangeIndex, r, n)
	}

	return nil
}
