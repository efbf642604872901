package frame

import (
	"errors"
	"testing"

	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/gkcerr"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte{0x04, 0x78, 0x56, 0x34, 0x12}
	f, err := Encode(payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if f[0] != StartByte || f[len(f)-1] != EndByte {
		t.Fatalf("frame missing sentinels: % x", f)
	}
	got, err := Decode(f)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("Decode = % x, want % x", got, payload)
	}
}

func TestEncodeHandshake1LiteralBytes(t *testing.T) {
	// Handshake1{seq=0x12345678} -> 02 05 04 78 56 34 12 <crc_lo crc_hi> 03
	payload := []byte{0x04, 0x78, 0x56, 0x34, 0x12}
	f, err := Encode(payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0x02, 0x05, 0x04, 0x78, 0x56, 0x34, 0x12, f[7], f[8], 0x03}
	if len(f) != len(want) {
		t.Fatalf("frame length = %d, want %d", len(f), len(want))
	}
	for i := range want {
		if f[i] != want[i] {
			t.Fatalf("byte %d = 0x%02x, want 0x%02x", i, f[i], want[i])
		}
	}
}

func TestEncodeRejectsEmptyAndOversizedPayload(t *testing.T) {
	if _, err := Encode(nil); !errors.Is(err, gkcerr.ErrPayloadTooLarge) {
		t.Fatalf("Encode(nil) error = %v, want ErrPayloadTooLarge", err)
	}
	if _, err := Encode(make([]byte, 256)); !errors.Is(err, gkcerr.ErrPayloadTooLarge) {
		t.Fatalf("Encode(256 bytes) error = %v, want ErrPayloadTooLarge", err)
	}
}

func TestDecodeRejectsBadStart(t *testing.T) {
	f, _ := Encode([]byte{0x01})
	f[0] = 0x00
	if _, err := Decode(f); !errors.Is(err, gkcerr.ErrBadStart) {
		t.Fatalf("Decode error = %v, want ErrBadStart", err)
	}
}

func TestDecodeRejectsBadEnd(t *testing.T) {
	f, _ := Encode([]byte{0x01})
	f[len(f)-1] = 0x00
	if _, err := Decode(f); !errors.Is(err, gkcerr.ErrBadEnd) {
		t.Fatalf("Decode error = %v, want ErrBadEnd", err)
	}
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	f, _ := Encode([]byte{0x01, 0x02, 0x03})
	f[len(f)-2] ^= 0xFF
	if _, err := Decode(f); !errors.Is(err, gkcerr.ErrBadChecksum) {
		t.Fatalf("Decode error = %v, want ErrBadChecksum", err)
	}
}

func TestDecodeRejectsBadLength(t *testing.T) {
	f, _ := Encode([]byte{0x01, 0x02, 0x03})
	short := f[:len(f)-2]
	if _, err := Decode(short); !errors.Is(err, gkcerr.ErrBadLength) {
		t.Fatalf("Decode error = %v, want ErrBadLength", err)
	}
}

func TestMutatingAnyPayloadByteIsDetected(t *testing.T) {
	payload := []byte{0xA3, 0x01, 0x02, 0x03, 0x04}
	f, err := Encode(payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := 2; i < 2+len(payload); i++ {
		mutated := append([]byte(nil), f...)
		mutated[i] ^= 0x01
		if _, err := Decode(mutated); err == nil {
			t.Fatalf("mutating payload byte %d was not detected", i)
		}
	}
}
