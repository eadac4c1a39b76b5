package hrana

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind enumerates the variants of a protocol value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindInteger
	KindFloat
	KindText
	KindBlob
)

// Value is one SQL value crossing the wire in either direction. Exactly one
// of the payload fields is meaningful, selected by Kind.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Text  string
	Blob  []byte
}

func Null() Value           { return Value{Kind: KindNull} }
func Integer(i int64) Value { return Value{Kind: KindInteger, Int: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func Text(s string) Value   { return Value{Kind: KindText, Text: s} }
func Blob(b []byte) Value   { return Value{Kind: KindBlob, Blob: b} }

// FromNative converts a backend row value (int64, float64, string, []byte or
// nil) into a protocol Value.
func FromNative(v interface{}) (Value, error) {
	switch n := v.(type) {
	case nil:
		return Null(), nil
	case int64:
		return Integer(n), nil
	case int:
		return Integer(int64(n)), nil
	case float64:
		return Float(n), nil
	case string:
		return Text(n), nil
	case []byte:
		return Blob(n), nil
	case bool:
		if n {
			return Integer(1), nil
		}
		return Integer(0), nil
	}
	return Value{}, fmt.Errorf("unsupported backend value type %T", v)
}

// ToNative converts a protocol Value into the native form the backend binds.
func (v Value) ToNative() interface{} {
	switch v.Kind {
	case KindInteger:
		return v.Int
	case KindFloat:
		return v.Float
	case KindText:
		return v.Text
	case KindBlob:
		return v.Blob
	}
	return nil
}

// EncodeV1 renders the value in the v1 wire shape: raw JSON scalars, with
// blobs wrapped as {"base64": …}.
func (v Value) EncodeV1() interface{} {
	switch v.Kind {
	case KindInteger:
		return v.Int
	case KindFloat:
		return v.Float
	case KindText:
		return v.Text
	case KindBlob:
		return map[string]interface{}{"base64": base64.StdEncoding.EncodeToString(v.Blob)}
	}
	return nil
}

// EncodeV2 renders the value in the tagged {type, …} shape used by the v2
// and v3 protocols. Integers are emitted as decimal strings so 64-bit
// magnitudes survive JSON.
func (v Value) EncodeV2() interface{} {
	switch v.Kind {
	case KindInteger:
		return map[string]interface{}{"type": "integer", "value": strconv.FormatInt(v.Int, 10)}
	case KindFloat:
		return map[string]interface{}{"type": "float", "value": v.Float}
	case KindText:
		return map[string]interface{}{"type": "text", "value": v.Text}
	case KindBlob:
		return map[string]interface{}{"type": "blob", "value": base64.StdEncoding.EncodeToString(v.Blob)}
	}
	return map[string]interface{}{"type": "null"}
}

// taggedValue is the object form of a wire value.
type taggedValue struct {
	Type   *string     `json:"type"`
	Value  interface{} `json:"value"`
	Base64 *string     `json:"base64"`
}

// DecodeValue parses a wire value in any of the accepted shapes: a raw JSON
// scalar, a tagged {type, value} object, or a bare {base64} blob object.
func DecodeValue(raw json.RawMessage) (Value, error) {
	var scalar interface{}
	if err := unmarshalNumberPreserving(raw, &scalar); err != nil {
		return Value{}, fmt.Errorf("malformed value: %w", err)
	}

	switch s := scalar.(type) {
	case nil:
		return Null(), nil
	case string:
		return Text(s), nil
	case bool:
		if s {
			return Integer(1), nil
		}
		return Integer(0), nil
	case json.Number:
		return decodeNumber(s)
	case map[string]interface{}:
		// Fall through to tagged decoding below.
	default:
		return Value{}, fmt.Errorf("unsupported value shape %T", scalar)
	}

	var tagged taggedValue
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return Value{}, fmt.Errorf("malformed value object: %w", err)
	}
	if tagged.Type == nil {
		// A v1 blob literal has no type tag, just the base64 payload.
		if tagged.Base64 != nil {
			return decodeBlob(*tagged.Base64)
		}
		return Value{}, fmt.Errorf("value object is missing a type field")
	}

	switch *tagged.Type {
	case "null":
		return Null(), nil
	case "integer":
		switch n := tagged.Value.(type) {
		case string:
			i, err := strconv.ParseInt(n, 10, 64)
			if err != nil {
				return Value{}, fmt.Errorf("invalid integer value %q: %w", n, err)
			}
			return Integer(i), nil
		case float64:
			i := int64(n)
			if float64(i) != n {
				return Value{}, fmt.Errorf("integer value %v is not a whole number", n)
			}
			return Integer(i), nil
		default:
			return Value{}, fmt.Errorf("invalid integer value of type %T", tagged.Value)
		}
	case "float":
		n, ok := tagged.Value.(float64)
		if !ok {
			return Value{}, fmt.Errorf("invalid float value of type %T", tagged.Value)
		}
		return Float(n), nil
	case "text":
		s, ok := tagged.Value.(string)
		if !ok {
			return Value{}, fmt.Errorf("invalid text value of type %T", tagged.Value)
		}
		return Text(s), nil
	case "blob":
		if tagged.Base64 != nil {
			return decodeBlob(*tagged.Base64)
		}
		if s, ok := tagged.Value.(string); ok {
			return decodeBlob(s)
		}
		return Value{}, fmt.Errorf("blob value is missing base64 data")
	}
	return Value{}, fmt.Errorf("unknown value type %q", *tagged.Type)
}

func decodeNumber(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return Integer(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("invalid numeric value %q: %w", n.String(), err)
	}
	return Float(f), nil
}

func decodeBlob(encoded string) (Value, error) {
	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// Clients following the Hrana convention omit padding.
		b, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return Value{}, fmt.Errorf("invalid base64 blob: %w", err)
		}
	}
	return Blob(b), nil
}

// unmarshalNumberPreserving decodes with json.Number so 64-bit integers are
// not truncated through float64.
func unmarshalNumberPreserving(raw json.RawMessage, out *interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}
