package session

import (
	"encoding/json"
	"fmt"
	"math"
)

// Kind identifies the variant held by a [Value].
type Kind uint8

const (
	KindString Kind = iota + 1
	KindInt
	KindDouble
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

func parseKind(s string) (Kind, error) {
	for k := KindString; k <= KindBool; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown value type %q", s)
}

// Value is a typed metadata value: exactly one of string, int, double or
// bool. Its JSON form records the variant so that an int never comes back
// as a double:
//
//	{"type":"int","value":42}
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
}

// StringValue returns a string Value.
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// IntValue returns an integer Value.
func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

// DoubleValue returns a floating point Value.
func DoubleValue(v float64) Value { return Value{kind: KindDouble, f: v} }

// BoolValue returns a boolean Value.
func BoolValue(v bool) Value { return Value{kind: KindBool, b: v} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// AsString returns the string and whether v holds one.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsInt returns the integer and whether v holds one.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsDouble returns the float and whether v holds one.
func (v Value) AsDouble() (float64, bool) { return v.f, v.kind == KindDouble }

// AsBool returns the boolean and whether v holds one.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

type wireValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var inner any
	switch v.kind {
	case KindString:
		inner = v.s
	case KindInt:
		inner = v.i
	case KindDouble:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("cannot encode non-finite double %v", v.f)
		}
		inner = v.f
	case KindBool:
		inner = v.b
	default:
		return nil, fmt.Errorf("cannot encode empty value")
	}

	raw, err := json.Marshal(inner)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireValue{Type: v.kind.String(), Value: raw})
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	kind, err := parseKind(w.Type)
	if err != nil {
		return err
	}

	out := Value{kind: kind}
	switch kind {
	case KindString:
		err = json.Unmarshal(w.Value, &out.s)
	case KindInt:
		err = json.Unmarshal(w.Value, &out.i)
	case KindDouble:
		err = json.Unmarshal(w.Value, &out.f)
	case KindBool:
		err = json.Unmarshal(w.Value, &out.b)
	}
	if err != nil {
		return fmt.Errorf("invalid %s value: %w", kind, err)
	}
	*v = out
	return nil
}
