// Package codec converts documents and operations to and from JSON.
//
// Operations travel as objects of the form
//
//	{"op":"replace","path":["items",0,"title"],"value":"x","previous":"y"}
//
// Path elements are strings (mapping keys), integers (sequence indices),
// {"index":i,"length":n} objects (ranges), [range, position] pairs (moves)
// and [range, range] pairs (swaps). A batch is either a single operation
// object or a non-empty array of them.
package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/serroba/docpatch/internal/ot"
	"github.com/tidwall/gjson"
)

// Common errors.
var (
	ErrInvalidJSON    = errors.New("invalid json")
	ErrUnknownOp      = errors.New("unknown operation")
	ErrInvalidSegment = errors.New("invalid path segment")
)

// DecodeValue parses a JSON document. Integral numbers decode as int64,
// every other number as float64.
func DecodeValue(data []byte) (ot.Value, error) {
	if !gjson.ValidBytes(data) {
		return ot.Value{}, ErrInvalidJSON
	}

	return value(gjson.ParseBytes(data))
}

func value(r gjson.Result) (ot.Value, error) {
	switch r.Type {
	case gjson.Null:
		return ot.Null(), nil
	case gjson.False:
		return ot.Scalar(false), nil
	case gjson.True:
		return ot.Scalar(true), nil
	case gjson.String:
		return ot.Scalar(r.Str), nil
	case gjson.Number:
		return number(r.Raw)
	case gjson.JSON:
		return container(r)
	default:
		return ot.Value{}, fmt.Errorf("%w: unexpected token %q", ErrInvalidJSON, r.Raw)
	}
}

func number(raw string) (ot.Value, error) {
	if !strings.ContainsAny(raw, ".eE") {
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return ot.Scalar(i), nil
		}
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return ot.Value{}, fmt.Errorf("%w: %s", ErrInvalidJSON, raw)
	}

	return ot.Scalar(f), nil
}

func container(r gjson.Result) (ot.Value, error) {
	var err error

	if r.IsArray() {
		items := []ot.Value{}

		r.ForEach(func(_, item gjson.Result) bool {
			var v ot.Value

			v, err = value(item)
			items = append(items, v)

			return err == nil
		})

		if err != nil {
			return ot.Value{}, err
		}

		return ot.Seq(items...), nil
	}

	fields := map[string]ot.Value{}

	r.ForEach(func(key, item gjson.Result) bool {
		var v ot.Value

		v, err = value(item)
		fields[key.Str] = v

		return err == nil
	})

	if err != nil {
		return ot.Value{}, err
	}

	return ot.Map(fields), nil
}

// DecodeOperation parses a single operation object.
func DecodeOperation(data []byte) (ot.Operation, error) {
	if !gjson.ValidBytes(data) {
		return ot.Operation{}, ErrInvalidJSON
	}

	return operation(gjson.ParseBytes(data))
}

// DecodeBatch parses an operation object or an array of them.
func DecodeBatch(data []byte) (ot.Batch, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}

	r := gjson.ParseBytes(data)
	if r.IsObject() {
		op, err := operation(r)
		if err != nil {
			return nil, err
		}

		return ot.Ops(op), nil
	}

	if !r.IsArray() {
		return nil, fmt.Errorf("%w: expected operation or array of operations", ErrInvalidJSON)
	}

	elems := r.Array()
	if len(elems) == 0 {
		return nil, ot.ErrEmptyBatch
	}

	ops := make(ot.Batch, 0, len(elems))

	for i, elem := range elems {
		op, err := operation(elem)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}

		ops = append(ops, op)
	}

	return ops, nil
}

func operation(r gjson.Result) (ot.Operation, error) {
	if !r.IsObject() {
		return ot.Operation{}, fmt.Errorf("%w: operation must be an object", ErrInvalidJSON)
	}

	name := r.Get("op")

	typ, ok := ot.ParseOpType(name.String())
	if name.Type != gjson.String || !ok {
		return ot.Operation{}, fmt.Errorf("%w: %s", ErrUnknownOp, name.Raw)
	}

	path, err := decodePath(r.Get("path"))
	if err != nil {
		return ot.Operation{}, err
	}

	op := ot.Operation{Type: typ, Path: path}

	if v := r.Get("value"); v.Exists() {
		if op.Value, err = value(v); err != nil {
			return ot.Operation{}, err
		}
	} else if typ == ot.InsertRange {
		op.Value = ot.Seq()
	}

	if typ == ot.InsertRange && !op.Value.IsSequence() {
		return ot.Operation{}, fmt.Errorf("%w: insert_range value must be an array", ErrInvalidJSON)
	}

	if p := r.Get("previous"); p.Exists() {
		previous, err := value(p)
		if err != nil {
			return ot.Operation{}, err
		}

		op = op.WithPrevious(previous)
	}

	return op, nil
}

func decodePath(r gjson.Result) (ot.Path, error) {
	if !r.IsArray() {
		return nil, fmt.Errorf("%w: path must be an array", ErrInvalidSegment)
	}

	elems := r.Array()
	path := make(ot.Path, 0, len(elems))

	for _, elem := range elems {
		seg, err := segment(elem)
		if err != nil {
			return nil, err
		}

		path = append(path, seg)
	}

	return path, nil
}

func segment(r gjson.Result) (ot.Segment, error) {
	switch {
	case r.Type == gjson.String:
		return ot.Key(r.Str), nil
	case r.Type == gjson.Number:
		i, err := index(r)
		if err != nil {
			return ot.Segment{}, err
		}

		return ot.Index(i), nil
	case r.IsObject():
		rng, err := decodeRange(r)
		if err != nil {
			return ot.Segment{}, err
		}

		return ot.At(rng), nil
	case r.IsArray():
		return pair(r)
	default:
		return ot.Segment{}, fmt.Errorf("%w: %s", ErrInvalidSegment, r.Raw)
	}
}

func pair(r gjson.Result) (ot.Segment, error) {
	elems := r.Array()
	if len(elems) != 2 {
		return ot.Segment{}, fmt.Errorf("%w: %s", ErrInvalidSegment, r.Raw)
	}

	rng, err := decodeRange(elems[0])
	if err != nil {
		return ot.Segment{}, err
	}

	if elems[1].Type == gjson.Number {
		to, err := index(elems[1])
		if err != nil {
			return ot.Segment{}, err
		}

		return ot.Move(rng, to), nil
	}

	other, err := decodeRange(elems[1])
	if err != nil {
		return ot.Segment{}, err
	}

	return ot.Swap(rng, other), nil
}

func decodeRange(r gjson.Result) (ot.Range, error) {
	if !r.IsObject() {
		return ot.Range{}, fmt.Errorf("%w: expected range, got %s", ErrInvalidSegment, r.Raw)
	}

	i, l := r.Get("index"), r.Get("length")
	if i.Type != gjson.Number || l.Type != gjson.Number {
		return ot.Range{}, fmt.Errorf("%w: range needs numeric index and length: %s", ErrInvalidSegment, r.Raw)
	}

	idx, err := index(i)
	if err != nil {
		return ot.Range{}, err
	}

	length, err := index(l)
	if err != nil {
		return ot.Range{}, err
	}

	return ot.Range{Index: idx, Length: length}, nil
}

func index(r gjson.Result) (int, error) {
	i, err := strconv.Atoi(r.Raw)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: %s is not a non-negative integer", ErrInvalidSegment, r.Raw)
	}

	return i, nil
}
