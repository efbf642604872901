// Package link abstracts the byte-stream transport beneath the framing
// codec: configure from a generic config map, open/close, non-blocking
// send, and a receive callback driven by a background pump.
package link

import (
	"fmt"

	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/config"
)

// IOType tags which physical transport a Link implements.
type IOType int

const (
	Serial IOType = iota
	Ethernet
	CAN
)

func (t IOType) String() string {
	switch t {
	case Serial:
		return "Serial"
	case Ethernet:
		return "Ethernet"
	case CAN:
		return "CAN"
	default:
		return "Unknown"
	}
}

// ReceiveFunc is invoked with each exact slice of bytes read off the wire.
// It runs on the link's receiver goroutine and must not block indefinitely.
type ReceiveFunc func(data []byte)

// Link is the transport abstraction the session controller drives.
type Link interface {
	Configure(cfg config.Map) error
	Open(onReceive ReceiveFunc) error
	IsOpen() bool
	Close() error
	Send(data []byte) int
	IOType() IOType
}

// Factory constructs a Link implementation; used by Registry to select a
// transport by its comm_type config key.
type Factory func() Link

// Registry maps comm_type names to Link factories. "serial" is registered
// by this package's init; callers may add further transports (ethernet,
// CAN) by assigning into the same map before constructing a session.
var Registry = map[string]Factory{
	"serial": func() Link { return NewSerialLink() },
}

// Lookup resolves name in Registry, returning an error that names the
// transport if it is not registered.
func Lookup(name string) (Link, error) {
	factory, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown comm_type %q", name)
	}
	return factory(), nil
}
