// Package packet implements the closed catalog of typed payload variants
// exchanged with the MCU: each knows its own discriminator byte and how to
// encode/decode the bytes following it.
package packet

import (
	"fmt"
	"strings"

	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/gkcerr"
	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/wire"
)

// Packet is implemented by every payload variant in the catalog.
type Packet interface {
	FirstByte() byte
	Encode() []byte
}

// Discriminator bytes, frozen per the data model.
const (
	FirstByteHandshake1          = 0x04
	FirstByteHandshake2          = 0x05
	FirstByteGetFirmwareVersion  = 0x06
	FirstByteFirmwareVersion     = 0x07
	FirstByteResetMcu            = 0xFF
	FirstByteHeartbeat           = 0xAA
	FirstByteConfig              = 0xA1
	FirstByteStateTransition     = 0xA2
	FirstByteControl             = 0xA3
	FirstByteSensor              = 0xA4
	FirstByteShutdown1           = 0xB1
	FirstByteShutdown2           = 0xB2
	FirstByteLog                 = 0xC1
)

type Handshake1 struct{ SeqNumber uint32 }

func (Handshake1) FirstByte() byte { return FirstByteHandshake1 }
func (p Handshake1) Encode() []byte {
	b := make([]byte, 0, 5)
	b = append(b, p.FirstByte())
	return wire.PutUint32(b, p.SeqNumber)
}

type Handshake2 struct{ SeqNumber uint32 }

func (Handshake2) FirstByte() byte { return FirstByteHandshake2 }
func (p Handshake2) Encode() []byte {
	b := make([]byte, 0, 5)
	b = append(b, p.FirstByte())
	return wire.PutUint32(b, p.SeqNumber)
}

type GetFirmwareVersion struct{}

func (GetFirmwareVersion) FirstByte() byte   { return FirstByteGetFirmwareVersion }
func (p GetFirmwareVersion) Encode() []byte { return []byte{p.FirstByte()} }

type FirmwareVersion struct {
	Major, Minor, Patch uint8
}

func (FirmwareVersion) FirstByte() byte { return FirstByteFirmwareVersion }
func (p FirmwareVersion) Encode() []byte {
	return []byte{p.FirstByte(), p.Major, p.Minor, p.Patch}
}

type ResetMcu struct{ MagicNumber uint32 }

func (ResetMcu) FirstByte() byte { return FirstByteResetMcu }
func (p ResetMcu) Encode() []byte {
	b := make([]byte, 0, 5)
	b = append(b, p.FirstByte())
	return wire.PutUint32(b, p.MagicNumber)
}

// Heartbeat carries the host's rolling counter outbound, and the MCU's
// reported lifecycle state inbound. The host leaves State at 0 on frames it
// sends; only the MCU populates it meaningfully.
type Heartbeat struct {
	RollingCounter uint8
	State          uint8
}

func (Heartbeat) FirstByte() byte { return FirstByteHeartbeat }
func (p Heartbeat) Encode() []byte {
	return []byte{p.FirstByte(), p.RollingCounter, p.State}
}

type Config struct{ Values Configurables }

func (Config) FirstByte() byte { return FirstByteConfig }
func (p Config) Encode() []byte {
	b := make([]byte, 0, 1+ConfigurablesEncodedLen)
	b = append(b, p.FirstByte())
	return p.Values.encode(b)
}

type StateTransition struct{ RequestedState uint8 }

func (StateTransition) FirstByte() byte { return FirstByteStateTransition }
func (p StateTransition) Encode() []byte {
	return []byte{p.FirstByte(), p.RequestedState}
}

type Control struct {
	Throttle float32
	Steering float32
	Brake    float32
}

func (Control) FirstByte() byte { return FirstByteControl }
func (p Control) Encode() []byte {
	b := make([]byte, 0, 13)
	b = append(b, p.FirstByte())
	b = wire.PutFloat32(b, p.Throttle)
	b = wire.PutFloat32(b, p.Steering)
	b = wire.PutFloat32(b, p.Brake)
	return b
}

type Sensor struct{ Values SensorValues }

func (Sensor) FirstByte() byte { return FirstByteSensor }
func (p Sensor) Encode() []byte {
	b := make([]byte, 0, 1+SensorValuesEncodedLen)
	b = append(b, p.FirstByte())
	return p.Values.encode(b)
}

type Shutdown1 struct{ SeqNumber uint32 }

func (Shutdown1) FirstByte() byte { return FirstByteShutdown1 }
func (p Shutdown1) Encode() []byte {
	b := make([]byte, 0, 5)
	b = append(b, p.FirstByte())
	return wire.PutUint32(b, p.SeqNumber)
}

type Shutdown2 struct{ SeqNumber uint32 }

func (Shutdown2) FirstByte() byte { return FirstByteShutdown2 }
func (p Shutdown2) Encode() []byte {
	b := make([]byte, 0, 5)
	b = append(b, p.FirstByte())
	return wire.PutUint32(b, p.SeqNumber)
}

type Log struct {
	Severity Severity
	Message  string
}

func (Log) FirstByte() byte { return FirstByteLog }
func (p Log) Encode() []byte {
	b := make([]byte, 0, 2+len(p.Message))
	b = append(b, p.FirstByte(), byte(p.Severity))
	return append(b, p.Message...)
}

// Decode looks up payload[0] in the catalog and decodes the remaining bytes
// into the matching variant. It never trusts the discriminator beyond the
// lookup; short payloads for a known type report ErrShortPayload.
func Decode(payload []byte) (Packet, error) {
	if len(payload) == 0 {
		return nil, gkcerr.ErrShortPayload
	}
	fb := payload[0]
	body := payload[1:]

	switch fb {
	case FirstByteHandshake1:
		if len(body) < 4 {
			return nil, shortErr(fb, 4, len(body))
		}
		v, _ := wire.ReadUint32(body, 0)
		return Handshake1{SeqNumber: v}, nil

	case FirstByteHandshake2:
		if len(body) < 4 {
			return nil, shortErr(fb, 4, len(body))
		}
		v, _ := wire.ReadUint32(body, 0)
		return Handshake2{SeqNumber: v}, nil

	case FirstByteGetFirmwareVersion:
		return GetFirmwareVersion{}, nil

	case FirstByteFirmwareVersion:
		if len(body) < 3 {
			return nil, shortErr(fb, 3, len(body))
		}
		return FirmwareVersion{Major: body[0], Minor: body[1], Patch: body[2]}, nil

	case FirstByteResetMcu:
		if len(body) < 4 {
			return nil, shortErr(fb, 4, len(body))
		}
		v, _ := wire.ReadUint32(body, 0)
		return ResetMcu{MagicNumber: v}, nil

	case FirstByteHeartbeat:
		if len(body) < 2 {
			return nil, shortErr(fb, 2, len(body))
		}
		return Heartbeat{RollingCounter: body[0], State: body[1]}, nil

	case FirstByteConfig:
		if len(body) < ConfigurablesEncodedLen {
			return nil, shortErr(fb, ConfigurablesEncodedLen, len(body))
		}
		values, _ := decodeConfigurables(body, 0)
		return Config{Values: values}, nil

	case FirstByteStateTransition:
		if len(body) < 1 {
			return nil, shortErr(fb, 1, len(body))
		}
		return StateTransition{RequestedState: body[0]}, nil

	case FirstByteControl:
		if len(body) < 12 {
			return nil, shortErr(fb, 12, len(body))
		}
		throttle, off := wire.ReadFloat32(body, 0)
		steering, off := wire.ReadFloat32(body, off)
		brake, _ := wire.ReadFloat32(body, off)
		return Control{Throttle: throttle, Steering: steering, Brake: brake}, nil

	case FirstByteSensor:
		if len(body) < SensorValuesEncodedLen {
			return nil, shortErr(fb, SensorValuesEncodedLen, len(body))
		}
		values, _ := decodeSensorValues(body, 0)
		return Sensor{Values: values}, nil

	case FirstByteShutdown1:
		if len(body) < 4 {
			return nil, shortErr(fb, 4, len(body))
		}
		v, _ := wire.ReadUint32(body, 0)
		return Shutdown1{SeqNumber: v}, nil

	case FirstByteShutdown2:
		if len(body) < 4 {
			return nil, shortErr(fb, 4, len(body))
		}
		v, _ := wire.ReadUint32(body, 0)
		return Shutdown2{SeqNumber: v}, nil

	case FirstByteLog:
		if len(body) < 1 {
			return nil, shortErr(fb, 1, len(body))
		}
		msg := strings.ToValidUTF8(string(body[1:]), "�")
		return Log{Severity: Severity(body[0]), Message: msg}, nil

	default:
		return nil, fmt.Errorf("%w: 0x%02x", gkcerr.ErrBadDiscriminator, fb)
	}
}

func shortErr(firstByte byte, want, have int) error {
	return fmt.Errorf("%w: type 0x%02x wants %d body bytes, have %d", gkcerr.ErrShortPayload, firstByte, want, have)
}
