package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/serroba/docpatch/internal/ot"
	"github.com/tidwall/sjson"
)

// EncodeValue renders v as JSON. Mapping keys are written in sorted order and
// floats always carry a fraction or exponent so they decode as floats again.
func EncodeValue(v ot.Value) ([]byte, error) {
	var b strings.Builder

	if err := writeValue(&b, v); err != nil {
		return nil, err
	}

	return []byte(b.String()), nil
}

func writeValue(b *strings.Builder, v ot.Value) error {
	switch v.Type() {
	case ot.SequenceNode:
		b.WriteByte('[')

		for i, item := range v.Items() {
			if i > 0 {
				b.WriteByte(',')
			}

			if err := writeValue(b, item); err != nil {
				return err
			}
		}

		b.WriteByte(']')
	case ot.MappingNode:
		b.WriteByte('{')

		for i, k := range v.Keys() {
			if i > 0 {
				b.WriteByte(',')
			}

			key, _ := json.Marshal(k)
			b.Write(key)
			b.WriteByte(':')

			child, _ := v.Key(k)
			if err := writeValue(b, child); err != nil {
				return err
			}
		}

		b.WriteByte('}')
	default:
		return writeScalar(b, v.Interface())
	}

	return nil
}

func writeScalar(b *strings.Builder, s any) error {
	if f, ok := s.(float64); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %v has no json form", ErrInvalidJSON, f)
		}

		raw := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(raw, ".eE") {
			raw += ".0"
		}

		b.WriteString(raw)

		return nil
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	b.Write(data)

	return nil
}

// EncodeOperation renders op in the wire format read by DecodeOperation.
func EncodeOperation(op ot.Operation) ([]byte, error) {
	raw, err := encodeOperation(op)
	if err != nil {
		return nil, err
	}

	return []byte(raw), nil
}

// EncodeBatch renders ops as a JSON array of operations.
func EncodeBatch(ops ot.Batch) ([]byte, error) {
	out := "[]"

	for _, op := range ops {
		raw, err := encodeOperation(op)
		if err != nil {
			return nil, err
		}

		if out, err = sjson.SetRaw(out, "-1", raw); err != nil {
			return nil, err
		}
	}

	return []byte(out), nil
}

func encodeOperation(op ot.Operation) (string, error) {
	out, err := sjson.Set("{}", "op", op.Type.String())
	if err != nil {
		return "", err
	}

	path, err := encodePath(op.Path)
	if err != nil {
		return "", err
	}

	if out, err = sjson.SetRaw(out, "path", path); err != nil {
		return "", err
	}

	switch op.Type {
	case ot.Insert, ot.InsertRange, ot.Replace:
		if out, err = setValue(out, "value", op.Value); err != nil {
			return "", err
		}
	}

	if op.HasPrevious {
		if out, err = setValue(out, "previous", op.Previous); err != nil {
			return "", err
		}
	}

	return out, nil
}

func setValue(out, key string, v ot.Value) (string, error) {
	raw, err := EncodeValue(v)
	if err != nil {
		return "", err
	}

	return sjson.SetRaw(out, key, string(raw))
}

func encodePath(path ot.Path) (string, error) {
	out := "[]"

	for _, seg := range path {
		var err error

		switch seg.Kind {
		case ot.KeySegment:
			out, err = sjson.Set(out, "-1", seg.Key)
		case ot.IndexSegment:
			out, err = sjson.Set(out, "-1", seg.Index)
		case ot.RangeSegment:
			out, err = sjson.SetRaw(out, "-1", encodeRange(seg.Range))
		case ot.MoveSegment:
			out, err = sjson.SetRaw(out, "-1", "["+encodeRange(seg.Range)+","+strconv.Itoa(seg.To)+"]")
		case ot.SwapSegment:
			out, err = sjson.SetRaw(out, "-1", "["+encodeRange(seg.Range)+","+encodeRange(seg.Other)+"]")
		default:
			err = fmt.Errorf("%w: kind %d", ErrInvalidSegment, seg.Kind)
		}

		if err != nil {
			return "", err
		}
	}

	return out, nil
}

func encodeRange(r ot.Range) string {
	return `{"index":` + strconv.Itoa(r.Index) + `,"length":` + strconv.Itoa(r.Length) + `}`
}
