// Package config implements the tagged Configurable value used to pass
// transport and session configuration (comm_type, serial_port, baud_rate,
// and friends) without a predetermined schema, replacing the original
// controller's raw C union with an explicit tagged variant.
package config

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/gkcerr"
	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/wire"
)

// Kind discriminates which field of Value is populated.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

// Value is a tagged union over the four types a Configurable can hold. The
// on-wire layout (used only where transport configuration must cross the
// wire, e.g. a relay device) is a fixed 32-byte region: see Encode.
type Value struct {
	kind Kind
	str  string
	i    int64
	f    float64
	b    bool
}

func String(s string) Value { return Value{kind: KindString, str: s} }
func Int(i int64) Value     { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) String() (string, error) {
	if v.kind != KindString {
		return "", fmt.Errorf("%w: not a string", gkcerr.ErrConfigTypeMismatch)
	}
	return v.str, nil
}

func (v Value) Int() (int64, error) {
	if v.kind != KindInt {
		return 0, fmt.Errorf("%w: not an int", gkcerr.ErrConfigTypeMismatch)
	}
	return v.i, nil
}

func (v Value) Float() (float64, error) {
	if v.kind != KindFloat {
		return 0, fmt.Errorf("%w: not a float", gkcerr.ErrConfigTypeMismatch)
	}
	return v.f, nil
}

func (v Value) Bool() (bool, error) {
	if v.kind != KindBool {
		return false, fmt.Errorf("%w: not a bool", gkcerr.ErrConfigTypeMismatch)
	}
	return v.b, nil
}

// Encode writes the 32-byte fixed-layout transit representation: a
// null-terminated string for KindString, or the raw little-endian bits for
// the other kinds. Interpretation on the far end is key-driven, per spec.
func (v Value) Encode() []byte {
	field := make([]byte, 32)
	switch v.kind {
	case KindString:
		copy(field, wire.PutString32(nil, v.str))
	case KindInt:
		binary.LittleEndian.PutUint64(field[:8], uint64(v.i))
	case KindFloat:
		binary.LittleEndian.PutUint64(field[:8], math.Float64bits(v.f))
	case KindBool:
		if v.b {
			field[0] = 1
		}
	}
	return field
}

// Map is a string-keyed bag of Configurable values (insertion order does
// not matter, per spec).
type Map map[string]Value

func (m Map) RequireString(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", gkcerr.ErrConfigMissing, key)
	}
	return v.String()
}

func (m Map) RequireInt(key string) (int64, error) {
	v, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", gkcerr.ErrConfigMissing, key)
	}
	return v.Int()
}

func (m Map) OptionalString(key, fallback string) string {
	v, ok := m[key]
	if !ok {
		return fallback
	}
	s, err := v.String()
	if err != nil {
		return fallback
	}
	return s
}

func (m Map) OptionalInt(key string, fallback int64) int64 {
	v, ok := m[key]
	if !ok {
		return fallback
	}
	i, err := v.Int()
	if err != nil {
		return fallback
	}
	return i
}
