// Package stream implements the self-synchronizing streaming frame parser:
// it accumulates arbitrary byte chunks, resyncs past corruption or noise,
// and dispatches each complete, CRC-valid frame exactly once.
//
// This replaces the original controller's Receive(), which kept a
// process-lifetime static resync index and wrote past the accumulator's
// end via std::copy(..., _buffer.end()) — both undefined behavior. Here the
// resync index is an ordinary field reset on every successful dispatch, and
// bytes are appended, never overwritten past the slice's length.
package stream

import (
	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/crc"
	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/frame"
	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/packet"
)

// Dispatcher receives each successfully decoded packet, synchronously on the
// Feed caller's goroutine. Implementations must not block indefinitely.
type Dispatcher interface {
	Dispatch(p packet.Packet)
}

// DispatchFunc adapts a plain function to Dispatcher.
type DispatchFunc func(p packet.Packet)

func (f DispatchFunc) Dispatch(p packet.Packet) { f(p) }

// Parser owns a growable byte accumulator and a resync cursor, and
// guarantees forward progress on every byte fed to it.
type Parser struct {
	buf    []byte
	resync int

	dispatcher Dispatcher

	// FramingErrors counts locally recovered framing failures (bad length,
	// bad end byte, bad checksum) for observability; it is never surfaced
	// to callers as an error return.
	FramingErrors uint64
}

// New creates a Parser that calls d.Dispatch for every valid frame.
func New(d Dispatcher) *Parser {
	return &Parser{dispatcher: d}
}

// Feed appends chunk to the accumulator and parses as many complete frames
// as are available. Feeding the same stream split into arbitrary chunks
// yields the same dispatch sequence as feeding it all at once.
func (p *Parser) Feed(chunk []byte) {
	p.buf = append(p.buf, chunk...)

	for {
		// Advance to the first start byte, discarding anything before it.
		idx := -1
		for i := p.resync; i < len(p.buf); i++ {
			if p.buf[i] == frame.StartByte {
				idx = i
				break
			}
		}
		if idx < 0 {
			// No start byte at all: drop everything already scanned, keep
			// nothing (no candidate frame can begin in discarded bytes).
			p.buf = p.buf[:0]
			p.resync = 0
			return
		}
		if idx > 0 {
			p.buf = p.buf[idx:]
		}
		p.resync = 0

		if len(p.buf) < frame.NonPayloadBytes {
			return // wait for more bytes
		}

		payloadSize := int(p.buf[1])
		total := payloadSize + frame.NonPayloadBytes
		if payloadSize == 0 {
			// Spurious start byte: treat as noise and look past it.
			p.FramingErrors++
			p.resync = 1
			continue
		}
		if len(p.buf) < total {
			return // wait for more bytes
		}
		if p.buf[total-1] != frame.EndByte {
			p.FramingErrors++
			p.resync = 1
			continue
		}

		payload := p.buf[2 : 2+payloadSize]
		checksum := uint16(p.buf[2+payloadSize]) | uint16(p.buf[3+payloadSize])<<8
		if crc.Checksum16(payload) != checksum {
			p.FramingErrors++
			p.resync = 1
			continue
		}

		pkt, err := packet.Decode(payload)
		if err != nil {
			// Valid frame envelope, unrecognized/malformed payload: still
			// forward progress past this candidate frame rather than
			// looping on it forever.
			p.FramingErrors++
			p.buf = p.buf[total:]
			p.resync = 0
			continue
		}

		p.buf = p.buf[total:]
		p.resync = 0
		if p.dispatcher != nil {
			p.dispatcher.Dispatch(pkt)
		}
	}
}
