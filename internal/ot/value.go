package ot

import (
	"fmt"
	"math"
	"reflect"
	"sort"
)

// NodeType identifies the shape of a document value.
type NodeType int

const (
	ScalarNode NodeType = iota
	SequenceNode
	MappingNode
)

// String returns the string representation of the node type.
func (t NodeType) String() string {
	switch t {
	case ScalarNode:
		return "scalar"
	case SequenceNode:
		return "sequence"
	case MappingNode:
		return "mapping"
	default:
		return "unknown"
	}
}

// Value is an immutable document node: a scalar, an ordered sequence of
// values, or a mapping from string keys to values.
// The zero Value is the null scalar.
type Value struct {
	typ    NodeType
	scalar any
	items  []Value
	fields map[string]Value
}

// Scalar wraps an opaque leaf value. Integer kinds are stored as int64 and
// floating point kinds as float64.
func Scalar(v any) Value {
	return Value{typ: ScalarNode, scalar: normalizeScalar(v)}
}

// Null returns the null scalar.
func Null() Value {
	return Value{}
}

// Seq builds a sequence from the given items.
func Seq(items ...Value) Value {
	return Value{typ: SequenceNode, items: append([]Value(nil), items...)}
}

// Map builds a mapping from the given fields.
func Map(fields map[string]Value) Value {
	m := make(map[string]Value, len(fields))
	for k, v := range fields {
		m[k] = v
	}

	return Value{typ: MappingNode, fields: m}
}

// Scalars is shorthand for a sequence of scalar values.
func Scalars(vs ...any) Value {
	items := make([]Value, len(vs))
	for i, v := range vs {
		items[i] = Scalar(v)
	}

	return Value{typ: SequenceNode, items: items}
}

// FromNative converts a Go value built from map[string]any, []any and
// scalars into a document value. Nested Values are used as they are.
func FromNative(x any) (Value, error) {
	switch v := x.(type) {
	case Value:
		return v, nil
	case map[string]any:
		fields := make(map[string]Value, len(v))

		for k, child := range v {
			cv, err := FromNative(child)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}

			fields[k] = cv
		}

		return Value{typ: MappingNode, fields: fields}, nil
	case []any:
		items := make([]Value, len(v))

		for i, child := range v {
			cv, err := FromNative(child)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}

			items[i] = cv
		}

		return Value{typ: SequenceNode, items: items}, nil
	case nil, bool, string, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return Scalar(v), nil
	default:
		return Value{}, fmt.Errorf("unsupported native type %T", x)
	}
}

// MustFromNative is FromNative for literals known to be valid.
func MustFromNative(x any) Value {
	v, err := FromNative(x)
	if err != nil {
		panic(err)
	}

	return v
}

func normalizeScalar(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return normalizeUint(uint64(n))
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return normalizeUint(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

// normalizeUint keeps n as an integer when it fits in int64.
func normalizeUint(n uint64) any {
	if n > math.MaxInt64 {
		return float64(n)
	}

	return int64(n)
}

// Type returns the node type.
func (v Value) Type() NodeType { return v.typ }

// IsSequence reports whether v is a sequence.
func (v Value) IsSequence() bool { return v.typ == SequenceNode }

// IsMapping reports whether v is a mapping.
func (v Value) IsMapping() bool { return v.typ == MappingNode }

// Len returns the number of items or fields. Scalars have length 0.
func (v Value) Len() int {
	switch v.typ {
	case SequenceNode:
		return len(v.items)
	case MappingNode:
		return len(v.fields)
	default:
		return 0
	}
}

// Index returns the i-th item of a sequence.
func (v Value) Index(i int) (Value, bool) {
	if v.typ != SequenceNode || i < 0 || i >= len(v.items) {
		return Value{}, false
	}

	return v.items[i], true
}

// Key returns the field stored under k in a mapping.
func (v Value) Key(k string) (Value, bool) {
	if v.typ != MappingNode {
		return Value{}, false
	}

	child, ok := v.fields[k]

	return child, ok
}

// Items returns a copy of the items of a sequence.
func (v Value) Items() []Value {
	if v.typ != SequenceNode {
		return nil
	}

	return append([]Value(nil), v.items...)
}

// Keys returns the keys of a mapping in sorted order.
func (v Value) Keys() []string {
	if v.typ != MappingNode {
		return nil
	}

	keys := make([]string, 0, len(v.fields))
	for k := range v.fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Interface returns the wrapped scalar, or nil for containers.
func (v Value) Interface() any {
	if v.typ != ScalarNode {
		return nil
	}

	return v.scalar
}

// Native converts v into freshly allocated map[string]any / []any / scalar values.
func (v Value) Native() any {
	switch v.typ {
	case SequenceNode:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Native()
		}

		return out
	case MappingNode:
		out := make(map[string]any, len(v.fields))
		for k, child := range v.fields {
			out[k] = child.Native()
		}

		return out
	default:
		return v.scalar
	}
}

// Equal reports whether v and o are structurally equal.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}

	switch v.typ {
	case SequenceNode:
		if len(v.items) != len(o.items) {
			return false
		}

		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}

		return true
	case MappingNode:
		if len(v.fields) != len(o.fields) {
			return false
		}

		for k, child := range v.fields {
			other, ok := o.fields[k]
			if !ok || !child.Equal(other) {
				return false
			}
		}

		return true
	default:
		return reflect.DeepEqual(v.scalar, o.scalar)
	}
}

// String renders v for diagnostics.
func (v Value) String() string {
	return fmt.Sprintf("%v", v.Native())
}

// slice returns items [from, to) as a new sequence.
func (v Value) slice(from, to int) Value {
	return Value{typ: SequenceNode, items: append([]Value(nil), v.items[from:to]...)}
}
