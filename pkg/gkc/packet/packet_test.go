package packet

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/gkcerr"
)

func TestRoundTripAllVariants(t *testing.T) {
	cases := []Packet{
		Handshake1{SeqNumber: 0x12345678},
		Handshake2{SeqNumber: 0x12345679},
		GetFirmwareVersion{},
		FirmwareVersion{Major: 0, Minor: 1, Patch: 2},
		ResetMcu{MagicNumber: 0xDEADBEEF},
		Heartbeat{RollingCounter: 7, State: uint8(Active)},
		Config{Values: Configurables{
			MaxSteeringLeft: -0.5, MaxSteeringRight: 0.5, NeutralSteering: 0,
			MaxThrottle: 1, MinThrottle: -1, ZeroThrottle: 0,
			MaxBrake: 2000, MinBrake: 0, ThrottleOffset: 0.1,
			ControlTimeoutMs: 100, CommTimeoutMs: 200, SensorTimeoutMs: 300,
		}},
		StateTransition{RequestedState: uint8(Active)},
		Control{Throttle: 0.5, Steering: 0.25, Brake: 1200.0},
		Sensor{Values: SensorValues{
			WheelSpeedFL: 1.1, WheelSpeedFR: 1.2, WheelSpeedRL: 1.3, WheelSpeedRR: 1.4,
			SteeringAngleRad: 0.2, ServoAngleRad: 0.3, ThrottlePos: 0.4, BrakePressure: 500,
			Voltage: 48.1, Amperage: 12.3,
			FaultBrake: true, FaultSteering: false, FaultThrottle: true,
			FaultInfo: false, FaultWarning: true, FaultError: false, FaultFatal: false,
		}},
		Shutdown1{SeqNumber: 42},
		Shutdown2{SeqNumber: 43},
		Log{Severity: Warning, Message: "low voltage"},
	}

	for _, want := range cases {
		encoded := want.Encode()
		got, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%#v) error: %v", want, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("round trip mismatch: got %#v, want %#v", got, want)
		}
	}
}

func TestControlEncodingLiteralBytes(t *testing.T) {
	p := Control{Throttle: 0.5, Steering: 0.25, Brake: 1200.0}
	encoded := p.Encode()
	if len(encoded) != 13 {
		t.Fatalf("Control payload length = %d, want 13", len(encoded))
	}
	if encoded[0] != FirstByteControl {
		t.Fatalf("first byte = 0x%02x, want 0x%02x", encoded[0], FirstByteControl)
	}
	// 0.5 = 0x3F000000, 0.25 = 0x3E800000, 1200.0 = 0x44960000, little-endian.
	want := []byte{FirstByteControl, 0x00, 0x00, 0x00, 0x3F, 0x00, 0x00, 0x80, 0x3E, 0x00, 0x00, 0x96, 0x44}
	for i := range want {
		if encoded[i] != want[i] {
			t.Fatalf("byte %d = 0x%02x, want 0x%02x", i, encoded[i], want[i])
		}
	}
}

func TestLogDecodeReplacesInvalidUTF8(t *testing.T) {
	body := append([]byte{FirstByteLog, byte(Error)}, 0xFF, 0xFE, 'o', 'k')
	got, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	l, ok := got.(Log)
	if !ok {
		t.Fatalf("Decode returned %T, want Log", got)
	}
	if l.Severity != Error {
		t.Fatalf("severity = %v, want Error", l.Severity)
	}
	if l.Message == "" {
		t.Fatalf("expected non-empty replacement message")
	}
}

func TestDecodeRejectsShortPayload(t *testing.T) {
	_, err := Decode([]byte{FirstByteHandshake1, 0x01, 0x02})
	if !errors.Is(err, gkcerr.ErrShortPayload) {
		t.Fatalf("error = %v, want ErrShortPayload", err)
	}
}

func TestDecodeRejectsUnknownDiscriminator(t *testing.T) {
	_, err := Decode([]byte{0x99})
	if !errors.Is(err, gkcerr.ErrBadDiscriminator) {
		t.Fatalf("error = %v, want ErrBadDiscriminator", err)
	}
}

func TestDecodeRejectsEmptyPayload(t *testing.T) {
	_, err := Decode(nil)
	if !errors.Is(err, gkcerr.ErrShortPayload) {
		t.Fatalf("error = %v, want ErrShortPayload", err)
	}
}
