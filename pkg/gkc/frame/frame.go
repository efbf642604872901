// Package frame implements the wire envelope: start byte, length-prefixed
// payload, CRC-16 checksum, end byte. It knows nothing about payload
// contents beyond its length and discriminator-free byte slice.
package frame

import (
	"fmt"

	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/crc"
	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/gkcerr"
)

const (
	StartByte byte = 0x02
	EndByte   byte = 0x03

	// NonPayloadBytes is the number of envelope bytes surrounding the
	// payload: start(1) + payload_size(1) + checksum(2) + end(1).
	NonPayloadBytes = 5
	MaxPayloadSize  = 255
)

// Encode wraps payload in the frame envelope: start | len | payload | crc | end.
func Encode(payload []byte) ([]byte, error) {
	n := len(payload)
	if n == 0 || n > MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload length %d", gkcerr.ErrPayloadTooLarge, n)
	}

	out := make([]byte, 0, n+NonPayloadBytes)
	out = append(out, StartByte, byte(n))
	out = append(out, payload...)
	checksum := crc.Checksum16(payload)
	out = append(out, byte(checksum), byte(checksum>>8))
	out = append(out, EndByte)
	return out, nil
}

// Decode validates a complete frame buffer (exactly NonPayloadBytes+len(payload)
// bytes) and returns the payload. Callers that must resynchronize on
// corruption should use package stream instead of calling Decode directly on
// an arbitrary byte stream.
func Decode(buf []byte) ([]byte, error) {
	if len(buf) < NonPayloadBytes {
		return nil, fmt.Errorf("%w: frame too short", gkcerr.ErrBadLength)
	}
	if buf[0] != StartByte {
		return nil, gkcerr.ErrBadStart
	}
	payloadSize := int(buf[1])
	if payloadSize == 0 {
		return nil, fmt.Errorf("%w: zero-length payload", gkcerr.ErrBadLength)
	}
	want := payloadSize + NonPayloadBytes
	if len(buf) != want {
		return nil, fmt.Errorf("%w: want %d bytes, have %d", gkcerr.ErrBadLength, want, len(buf))
	}
	if buf[want-1] != EndByte {
		return nil, gkcerr.ErrBadEnd
	}

	payload := buf[2 : 2+payloadSize]
	checksum := uint16(buf[2+payloadSize]) | uint16(buf[3+payloadSize])<<8
	if crc.Checksum16(payload) != checksum {
		return nil, gkcerr.ErrBadChecksum
	}
	return payload, nil
}
