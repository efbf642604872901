// Package wire provides strict little-endian primitive encoding, replacing
// the original controller's reinterpret_cast-based type punning with
// explicit field-by-field (de)serialization. This removes any dependence on
// host endianness or struct padding.
package wire

import (
	"encoding/binary"
	"math"
)

func PutUint8(b []byte, v uint8) []byte   { return append(b, v) }
func PutInt8(b []byte, v int8) []byte     { return append(b, byte(v)) }
func PutBool(b []byte, v bool) []byte {
	if v {
		return append(b, 1)
	}
	return append(b, 0)
}

func PutUint16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}

func PutUint32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func PutFloat32(b []byte, v float32) []byte {
	return PutUint32(b, math.Float32bits(v))
}

// ReadUint8 reads a single byte at off and returns the new offset.
func ReadUint8(b []byte, off int) (uint8, int) {
	return b[off], off + 1
}

func ReadInt8(b []byte, off int) (int8, int) {
	return int8(b[off]), off + 1
}

func ReadBool(b []byte, off int) (bool, int) {
	return b[off] != 0, off + 1
}

func ReadUint16(b []byte, off int) (uint16, int) {
	return binary.LittleEndian.Uint16(b[off : off+2]), off + 2
}

func ReadUint32(b []byte, off int) (uint32, int) {
	return binary.LittleEndian.Uint32(b[off : off+4]), off + 4
}

func ReadFloat32(b []byte, off int) (float32, int) {
	v, next := ReadUint32(b, off)
	return math.Float32frombits(v), next
}

// PutString32 writes a null-terminated, <=31-byte string into a fixed
// 32-byte field, used by the Configurable tagged value's on-wire layout.
func PutString32(b []byte, s string) []byte {
	var field [32]byte
	n := len(s)
	if n > 31 {
		n = 31
	}
	copy(field[:n], s[:n])
	return append(b, field[:]...)
}

// ReadString32 reads a 32-byte fixed field and returns the string up to
// the first NUL (or the full field if unterminated).
func ReadString32(b []byte, off int) (string, int) {
	field := b[off : off+32]
	n := 0
	for n < len(field) && field[n] != 0 {
		n++
	}
	return string(field[:n]), off + 32
}
