package stream

import (
	"testing"

	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/frame"
	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/packet"
)

func mustFrame(t *testing.T, p packet.Packet) []byte {
	t.Helper()
	f, err := frame.Encode(p.Encode())
	if err != nil {
		t.Fatalf("frame.Encode: %v", err)
	}
	return f
}

func collect(d func(p packet.Packet)) (Dispatcher, *[]packet.Packet) {
	var got []packet.Packet
	return DispatchFunc(func(p packet.Packet) {
		got = append(got, p)
		if d != nil {
			d(p)
		}
	}), &got
}

func TestFeedSingleFrame(t *testing.T) {
	disp, got := collect(nil)
	p := New(disp)
	p.Feed(mustFrame(t, packet.Handshake1{SeqNumber: 0x12345678}))

	if len(*got) != 1 {
		t.Fatalf("dispatched %d packets, want 1", len(*got))
	}
	if (*got)[0] != (packet.Handshake1{SeqNumber: 0x12345678}) {
		t.Fatalf("dispatched %#v", (*got)[0])
	}
}

func TestFeedCorruptPrefixResyncs(t *testing.T) {
	disp, got := collect(nil)
	p := New(disp)

	stream := append([]byte{0xFF, 0xFF}, mustFrame(t, packet.Handshake1{SeqNumber: 1})...)
	// Split across three arbitrary chunks.
	splits := [][]byte{stream[:1], stream[1:4], stream[4:]}
	for _, chunk := range splits {
		p.Feed(chunk)
	}

	if len(*got) != 1 {
		t.Fatalf("dispatched %d packets, want 1 (got %#v)", len(*got), *got)
	}
}

func TestFeedByteSplitInvariance(t *testing.T) {
	frames := append(mustFrame(t, packet.Handshake1{SeqNumber: 1}), mustFrame(t, packet.Heartbeat{RollingCounter: 5})...)

	disp1, got1 := collect(nil)
	whole := New(disp1)
	whole.Feed(frames)

	disp2, got2 := collect(nil)
	split := New(disp2)
	for _, b := range frames {
		split.Feed([]byte{b})
	}

	if len(*got1) != len(*got2) || len(*got1) != 2 {
		t.Fatalf("whole dispatched %d, split dispatched %d, want 2 each", len(*got1), len(*got2))
	}
	for i := range *got1 {
		if (*got1)[i] != (*got2)[i] {
			t.Fatalf("frame %d mismatch: whole=%#v split=%#v", i, (*got1)[i], (*got2)[i])
		}
	}
}

func TestFeedDispatchesEachFrameExactlyOnce(t *testing.T) {
	disp, got := collect(nil)
	p := New(disp)

	var stream []byte
	stream = append(stream, mustFrame(t, packet.Handshake1{SeqNumber: 1})...)
	stream = append(stream, 0x02, 0x00, 0x03) // spurious: zero-length payload
	stream = append(stream, mustFrame(t, packet.Shutdown1{SeqNumber: 9})...)

	p.Feed(stream)

	if len(*got) != 2 {
		t.Fatalf("dispatched %d packets, want 2 (got %#v)", len(*got), *got)
	}
	if p.FramingErrors == 0 {
		t.Fatalf("expected FramingErrors to be incremented for the spurious frame")
	}
}

func TestFeedGarbageBetweenFramesStillDispatchesInOrder(t *testing.T) {
	disp, got := collect(nil)
	p := New(disp)

	var stream []byte
	stream = append(stream, mustFrame(t, packet.Handshake1{SeqNumber: 1})...)
	stream = append(stream, 0x99, 0x99, 0x99)
	stream = append(stream, mustFrame(t, packet.Handshake1{SeqNumber: 2})...)
	stream = append(stream, 0xAB)
	stream = append(stream, mustFrame(t, packet.Handshake1{SeqNumber: 3})...)

	p.Feed(stream)

	if len(*got) != 3 {
		t.Fatalf("dispatched %d packets, want 3", len(*got))
	}
	for i, want := range []uint32{1, 2, 3} {
		hs, ok := (*got)[i].(packet.Handshake1)
		if !ok || hs.SeqNumber != want {
			t.Fatalf("frame %d = %#v, want Handshake1{SeqNumber: %d}", i, (*got)[i], want)
		}
	}
}
