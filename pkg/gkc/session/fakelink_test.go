package session

import (
	"sync"

	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/config"
	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/frame"
	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/link"
	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/packet"
)

// fakeLink is an in-memory link.Link used to drive the session controller
// in tests without a real serial device. By default it answers Handshake1
// with a correctly-sequenced Handshake2; tests can disable that via
// autoHandshake to exercise the timeout path.
type fakeLink struct {
	mu            sync.Mutex
	open          bool
	onReceive     link.ReceiveFunc
	sent          []packet.Packet
	autoHandshake bool
}

func newFakeLink() *fakeLink {
	return &fakeLink{autoHandshake: true}
}

// activeFakeLink backs the "fake" comm_type registered below: New() always
// resolves transports through link.Registry, so tests route through it by
// setting this before calling New with comm_type "fake".
var activeFakeLink *fakeLink

func init() {
	link.Registry["fake"] = func() link.Link { return activeFakeLink }
}

func (f *fakeLink) Configure(cfg config.Map) error { return nil }

func (f *fakeLink) Open(onReceive link.ReceiveFunc) error {
	f.mu.Lock()
	f.open = true
	f.onReceive = onReceive
	f.mu.Unlock()
	return nil
}

func (f *fakeLink) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeLink) Close() error {
	f.mu.Lock()
	f.open = false
	f.mu.Unlock()
	return nil
}

func (f *fakeLink) IOType() link.IOType { return link.Serial }

func (f *fakeLink) Send(data []byte) int {
	payload, err := frame.Decode(data)
	if err != nil {
		return 0
	}
	p, err := packet.Decode(payload)
	if err != nil {
		return 0
	}

	f.mu.Lock()
	f.sent = append(f.sent, p)
	onReceive := f.onReceive
	autoHandshake := f.autoHandshake
	f.mu.Unlock()

	if autoHandshake {
		if hs, ok := p.(packet.Handshake1); ok && onReceive != nil {
			f.deliver(onReceive, packet.Handshake2{SeqNumber: hs.SeqNumber + 1})
		}
	}
	return len(data)
}

func (f *fakeLink) deliver(onReceive link.ReceiveFunc, p packet.Packet) {
	fr, err := frame.Encode(p.Encode())
	if err != nil {
		return
	}
	onReceive(fr)
}

func (f *fakeLink) sentPackets() []packet.Packet {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]packet.Packet, len(f.sent))
	copy(out, f.sent)
	return out
}
