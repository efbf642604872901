package link

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/config"
	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/gkcerr"
)

const (
	defaultBaudRate     = 115200
	defaultParity       = "none"
	defaultStopBits     = "1"
	defaultFlowControl  = "none"
	defaultReadTimeout  = 50 * time.Millisecond
	serialReadChunkSize = 256
)

// SerialLink drives a physical UART against the MCU. It owns a receiver
// goroutine that pumps bytes to the caller's ReceiveFunc as they arrive.
type SerialLink struct {
	mu          sync.Mutex
	port        serial.Port
	portName    string
	baudRate    int
	parity      string
	stopBits    string
	flowControl string

	onReceive ReceiveFunc
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewSerialLink constructs an unconfigured, unopened SerialLink.
func NewSerialLink() *SerialLink {
	return &SerialLink{
		baudRate:    defaultBaudRate,
		parity:      defaultParity,
		stopBits:    defaultStopBits,
		flowControl: defaultFlowControl,
	}
}

// Configure reads serial_port (required) and baud_rate, parity, stop_bits,
// flow_control (all optional, defaulting to 115200/none/1/none) from cfg.
func (s *SerialLink) Configure(cfg config.Map) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	portName, err := cfg.RequireString("serial_port")
	if err != nil {
		return err
	}
	s.portName = portName
	s.baudRate = int(cfg.OptionalInt("baud_rate", int64(defaultBaudRate)))
	s.parity = cfg.OptionalString("parity", defaultParity)
	s.stopBits = cfg.OptionalString("stop_bits", defaultStopBits)
	s.flowControl = cfg.OptionalString("flow_control", defaultFlowControl)
	return nil
}

func parseParity(name string) (serial.Parity, error) {
	switch name {
	case "", "none":
		return serial.NoParity, nil
	case "odd":
		return serial.OddParity, nil
	case "even":
		return serial.EvenParity, nil
	case "mark":
		return serial.MarkParity, nil
	case "space":
		return serial.SpaceParity, nil
	default:
		return 0, fmt.Errorf("%w: unknown parity %q", gkcerr.ErrConfigTypeMismatch, name)
	}
}

func parseStopBits(name string) (serial.StopBits, error) {
	switch name {
	case "", "1":
		return serial.OneStopBit, nil
	case "1.5":
		return serial.OnePointFiveStopBits, nil
	case "2":
		return serial.TwoStopBits, nil
	default:
		return 0, fmt.Errorf("%w: unknown stop_bits %q", gkcerr.ErrConfigTypeMismatch, name)
	}
}

func (s *SerialLink) Open(onReceive ReceiveFunc) error {
	s.mu.Lock()
	if s.portName == "" {
		s.mu.Unlock()
		return fmt.Errorf("%w: serial link not configured", gkcerr.ErrDeviceUnavailable)
	}
	if s.port != nil {
		s.mu.Unlock()
		return nil // already open
	}

	parity, err := parseParity(s.parity)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	stopBits, err := parseStopBits(s.stopBits)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if s.flowControl != "" && s.flowControl != "none" {
		// go.bug.st/serial exposes no portable flow-control knob in Mode;
		// surface the request instead of silently accepting it.
		log.Printf("gkc: flow_control=%q requested but not supported by this transport; ignoring", s.flowControl)
	}

	mode := &serial.Mode{
		BaudRate: s.baudRate,
		DataBits: 8,
		Parity:   parity,
		StopBits: stopBits,
	}
	port, err := serial.Open(s.portName, mode)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: open %s: %v", gkcerr.ErrDeviceUnavailable, s.portName, err)
	}
	if err := port.SetReadTimeout(defaultReadTimeout); err != nil {
		port.Close()
		s.mu.Unlock()
		return fmt.Errorf("%w: set read timeout: %v", gkcerr.ErrDeviceUnavailable, err)
	}

	s.port = port
	s.onReceive = onReceive
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.readLoop()
	return nil
}

func (s *SerialLink) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

func (s *SerialLink) Close() error {
	s.mu.Lock()
	if s.port == nil {
		s.mu.Unlock()
		return nil
	}
	port := s.port
	stopChan := s.stopChan
	s.port = nil
	s.mu.Unlock()

	close(stopChan)
	s.wg.Wait()
	return port.Close()
}

// Send writes data to the port and returns the number of bytes written, 0
// if the link is not open or the write fails.
func (s *SerialLink) Send(data []byte) int {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return 0
	}
	n, err := port.Write(data)
	if err != nil {
		return 0
	}
	return n
}

func (s *SerialLink) IOType() IOType { return Serial }

func (s *SerialLink) readLoop() {
	defer s.wg.Done()

	buf := make([]byte, serialReadChunkSize)
	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		s.mu.Lock()
		port := s.port
		s.mu.Unlock()
		if port == nil {
			return
		}

		n, err := port.Read(buf)
		if err != nil {
			if err != io.EOF {
				time.Sleep(5 * time.Millisecond)
			}
			continue
		}
		if n == 0 {
			continue
		}

		chunk := make([]byte, n)
		copy(chunk, buf[:n])
		if s.onReceive != nil {
			s.onReceive(chunk)
		}
	}
}
