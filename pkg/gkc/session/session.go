// Package session implements the handshake, heartbeat, and lifecycle
// controller sitting on top of the streaming parser and link transport: it
// owns the link exclusively, negotiates with the MCU, and exposes the
// small state-machine API the application layer drives.
package session

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/config"
	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/frame"
	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/gkcerr"
	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/link"
	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/packet"
	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/stream"
)

const heartbeatInterval = 1000 * time.Millisecond

// handshakeWait is the construction-time handshake deadline (3000 ms per
// the handshake negotiation contract). It is a var, not a const, so tests
// can shorten it rather than waiting out the full window.
var handshakeWait = 3000 * time.Millisecond

// Host library version, compared against the MCU's FirmwareVersion
// reply. Mirrors the original packet library's own
// major/minor/patch, which this implementation's wire format matches.
const (
	versionMajor = 0
	versionMinor = 1
	versionPatch = 0
)

// Controller is the session / lifecycle driver. Construct with New; Close
// releases the link and stops all background goroutines.
type Controller struct {
	link   link.Link
	parser *stream.Parser

	mu             sync.Mutex
	currentState   packet.Lifecycle
	handshakeGood  bool
	initialized    bool
	pendingHandshakeSeq *uint32
	pendingShutdownSeq  *uint32
	sensors        *packet.SensorValues
	rollingCounter uint8
	fatalErr       error
	lastErr        error

	handshakeDone chan struct{}
	handshakeOnce sync.Once

	logs logQueue

	subMu       sync.Mutex
	subscribers []chan Event

	stopHeartbeat chan struct{}
	wg            sync.WaitGroup

	closeOnce sync.Once
}

// New resolves comm_type from cfg, configures and opens the chosen link,
// and performs the handshake. It returns gkcerr.ErrHandshakeTimeout if the
// MCU does not answer within 3 seconds; the controller is unusable on any
// returned error and nothing further needs to be closed by the caller.
func New(cfg config.Map) (*Controller, error) {
	commType, err := cfg.RequireString("comm_type")
	if err != nil {
		return nil, err
	}

	l, err := link.Lookup(commType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", gkcerr.ErrUnknownCommType, commType)
	}
	if err := l.Configure(cfg); err != nil {
		return nil, err
	}

	c := &Controller{
		link:          l,
		currentState:  packet.Uninitialized,
		handshakeDone: make(chan struct{}),
		stopHeartbeat: make(chan struct{}),
	}
	c.parser = stream.New(stream.DispatchFunc(c.dispatch))

	if err := l.Open(c.parser.Feed); err != nil {
		return nil, err
	}

	if err := c.sendHandshake(); err != nil {
		l.Close()
		return nil, err
	}

	select {
	case <-c.handshakeDone:
	case <-time.After(handshakeWait):
	}
	if !c.getHandshakeGood() {
		l.Close()
		return nil, gkcerr.ErrHandshakeTimeout
	}

	c.sendRaw(packet.GetFirmwareVersion{})

	c.logInfo("Start streaming heartbeats.")
	c.wg.Add(1)
	go c.streamHeartbeats()

	return c, nil
}

// Close shuts down the heartbeat loop and closes the link. It is safe to
// call more than once.
func (c *Controller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stopHeartbeat)
		err = c.link.Close()
		c.wg.Wait()

		c.subMu.Lock()
		for _, ch := range c.subscribers {
			close(ch)
		}
		c.subscribers = nil
		c.subMu.Unlock()
	})
	return err
}

func (c *Controller) sendRaw(p packet.Packet) bool {
	f, err := frame.Encode(p.Encode())
	if err != nil {
		return false
	}
	return c.link.Send(f) > 0
}

func (c *Controller) sendHandshake() error {
	seq := rand.Uint32()
	c.mu.Lock()
	c.pendingHandshakeSeq = &seq
	c.mu.Unlock()
	if !c.sendRaw(packet.Handshake1{SeqNumber: seq}) {
		return fmt.Errorf("%w: handshake write failed", gkcerr.ErrWriteFailed)
	}
	return nil
}

func (c *Controller) sendShutdown() bool {
	seq := rand.Uint32()
	c.mu.Lock()
	c.pendingShutdownSeq = &seq
	c.mu.Unlock()
	return c.sendRaw(packet.Shutdown1{SeqNumber: seq})
}

func (c *Controller) getHandshakeGood() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handshakeGood
}

func (c *Controller) streamHeartbeats() {
	defer c.wg.Done()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopHeartbeat:
			return
		case <-ticker.C:
			if !c.link.IsOpen() {
				return
			}
			c.mu.Lock()
			counter := c.rollingCounter
			c.rollingCounter++
			c.mu.Unlock()
			c.sendRaw(packet.Heartbeat{RollingCounter: counter, State: 0})
		}
	}
}

// SendControl emits a Control frame unconditionally (link open is the only
// precondition); it returns false if the link rejected the write.
func (c *Controller) SendControl(throttle, steering, brake float32) bool {
	return c.sendRaw(packet.Control{Throttle: throttle, Steering: steering, Brake: brake})
}

// Initialize pushes Config, waits timeout, and succeeds only if the MCU then
// reports Initializing or Inactive. Fails if the current state is not
// Uninitialized.
func (c *Controller) Initialize(values packet.Configurables, timeoutMs uint32) bool {
	if state := c.GetState(); state != packet.Uninitialized {
		c.logWarningf("GKC can only be initialized in uninitialized state. Current state is %s.", state)
		c.setLastErr(fmt.Errorf("%w: initialize requires Uninitialized, current state is %s", gkcerr.ErrPrecondition, state))
		return false
	}
	if !c.link.IsOpen() {
		c.setLastErr(fmt.Errorf("%w: link not open", gkcerr.ErrLinkClosed))
		return false
	}

	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()

	if !c.sendRaw(packet.Config{Values: values}) {
		c.setLastErr(fmt.Errorf("%w: Config write failed", gkcerr.ErrWriteFailed))
		return false
	}

	time.Sleep(time.Duration(timeoutMs) * time.Millisecond)

	state := c.GetState()
	ok := state == packet.Initializing || state == packet.Inactive
	c.mu.Lock()
	c.initialized = ok
	c.mu.Unlock()
	if !ok {
		c.setLastErr(fmt.Errorf("%w: initialize wants Initializing or Inactive, MCU reports %s", gkcerr.ErrStateTransitionRefused, state))
		return false
	}
	c.setLastErr(nil)
	return true
}

// Activate requests the Active state from Inactive.
func (c *Controller) Activate(timeoutMs uint32) bool {
	if state := c.GetState(); state != packet.Inactive {
		c.logWarningf("GKC can only be activated in inactive state. Current state is %s.", state)
		c.setLastErr(fmt.Errorf("%w: activate requires Inactive, current state is %s", gkcerr.ErrPrecondition, state))
		return false
	}
	return c.tryChangeState(packet.Active, timeoutMs)
}

// Deactivate requests the Inactive state from Active. Unlike the original
// controller (which mistakenly called activate() here), this requests
// Inactive via try_change_state.
func (c *Controller) Deactivate(timeoutMs uint32) bool {
	if state := c.GetState(); state != packet.Active {
		c.logWarningf("GKC can only be deactivated in active state. Current state is %s.", state)
		c.setLastErr(fmt.Errorf("%w: deactivate requires Active, current state is %s", gkcerr.ErrPrecondition, state))
		return false
	}
	return c.tryChangeState(packet.Inactive, timeoutMs)
}

// EmergencyStop requests the terminal Emergency state from any state other
// than Uninitialized.
func (c *Controller) EmergencyStop(timeoutMs uint32) bool {
	if c.GetState() == packet.Uninitialized {
		c.logWarning("GKC cannot go to emergency state in uninitialized state.")
		c.setLastErr(fmt.Errorf("%w: emergency stop refused in Uninitialized", gkcerr.ErrPrecondition))
		return false
	}
	return c.tryChangeState(packet.Emergency, timeoutMs)
}

// ReleaseEmergencyStop never succeeds: there is no software path out of
// Emergency. A power cycle is required.
func (c *Controller) ReleaseEmergencyStop(timeoutMs uint32) bool {
	c.logError("Releasing estop is not implemented. Please re-power-cycle.")
	return false
}

// Shutdown requests Emergency then performs the shutdown handshake
// (Shutdown1/Shutdown2). Requires Active or Inactive.
func (c *Controller) Shutdown(timeoutMs uint32) bool {
	state := c.GetState()
	if state != packet.Active && state != packet.Inactive {
		c.logWarningf("GKC can only be shut down in active or inactive state. Current state is %s.", state)
		c.setLastErr(fmt.Errorf("%w: shutdown requires Active or Inactive, current state is %s", gkcerr.ErrPrecondition, state))
		return false
	}
	ok := c.tryChangeState(packet.Emergency, timeoutMs)
	if !c.sendShutdown() {
		c.setLastErr(fmt.Errorf("%w: Shutdown1 write failed", gkcerr.ErrWriteFailed))
		return false
	}
	return ok
}

func (c *Controller) tryChangeState(target packet.Lifecycle, timeoutMs uint32) bool {
	if !c.link.IsOpen() {
		c.setLastErr(fmt.Errorf("%w: link not open", gkcerr.ErrLinkClosed))
		return false
	}
	if !c.sendRaw(packet.StateTransition{RequestedState: uint8(target)}) {
		c.setLastErr(fmt.Errorf("%w: StateTransition write failed", gkcerr.ErrWriteFailed))
		return false
	}
	time.Sleep(time.Duration(timeoutMs) * time.Millisecond)
	if state := c.GetState(); state != target {
		c.setLastErr(fmt.Errorf("%w: requested %s, MCU reports %s", gkcerr.ErrStateTransitionRefused, target, state))
		return false
	}
	c.setLastErr(nil)
	return true
}

// GetSensors returns the latest cached SensorValues and whether any have
// been received yet.
func (c *Controller) GetSensors() (packet.SensorValues, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sensors == nil {
		return packet.SensorValues{}, false
	}
	return *c.sensors, true
}

// GetState returns the current lifecycle state.
func (c *Controller) GetState() packet.Lifecycle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentState
}

// FatalError returns the error that made the controller unusable (e.g. an
// MCU firmware major/minor version mismatch), or nil if none has occurred.
func (c *Controller) FatalError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fatalErr
}

// LastError returns the reason the most recent precondition check, state
// transition, or handshake exchange failed, or nil if the last one
// succeeded. The bool-returning API methods (Initialize, Activate,
// Deactivate, EmergencyStop, Shutdown) only report success/failure; this is
// how a caller recovers the cause behind a false return.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) setLastErr(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

// GetNextLog pops the oldest queued log entry, if any.
func (c *Controller) GetNextLog() (LogEntry, bool) {
	return c.logs.pop()
}

func (c *Controller) dispatch(p packet.Packet) {
	switch v := p.(type) {
	case packet.Handshake1:
		// host-originated, echoed back by some MCUs; ignore.
	case packet.Handshake2:
		c.onHandshake2(v)
	case packet.GetFirmwareVersion:
	case packet.FirmwareVersion:
		c.onFirmwareVersion(v)
	case packet.ResetMcu:
	case packet.Heartbeat:
		c.onHeartbeat(v)
	case packet.Config:
	case packet.StateTransition:
	case packet.Control:
	case packet.Sensor:
		c.onSensor(v)
	case packet.Shutdown1:
	case packet.Shutdown2:
		c.onShutdown2(v)
	case packet.Log:
		c.onLog(v)
	}
}

func (c *Controller) onHandshake2(p packet.Handshake2) {
	c.mu.Lock()
	pending := c.pendingHandshakeSeq
	c.mu.Unlock()

	if pending == nil {
		c.logError("Handshake #2 received, but no handshake #1 was initiated before.")
		c.setLastErr(fmt.Errorf("%w: handshake #2 received before handshake #1 was sent", gkcerr.ErrHandshakeOutOfOrder))
		return
	}
	if *pending+1 != p.SeqNumber {
		c.logWarning("Handshake #2 received, but sequence number does not match.")
		c.setLastErr(fmt.Errorf("%w: handshake #2 sequence %d does not follow #1 sequence %d", gkcerr.ErrHandshakeOutOfOrder, p.SeqNumber, *pending))
		c.mu.Lock()
		c.handshakeGood = false
		c.mu.Unlock()
		return
	}

	c.logInfo("Received valid handshake from GKC.")
	c.setLastErr(nil)
	c.mu.Lock()
	c.handshakeGood = true
	c.mu.Unlock()
	c.handshakeOnce.Do(func() { close(c.handshakeDone) })
}

// onFirmwareVersion treats a major/minor mismatch as fatal: the controller
// cannot safely talk to an MCU running an incompatible packet library, so it
// records the cause, forces the lifecycle state to Emergency, and raises an
// EventFatalError rather than just logging. A patch mismatch is non-fatal.
func (c *Controller) onFirmwareVersion(p packet.FirmwareVersion) {
	if p.Major != versionMajor || p.Minor != versionMinor {
		err := fmt.Errorf("%w: MCU has version %d.%d, host has %d.%d",
			gkcerr.ErrFirmwareMajorMinorMismatch, p.Major, p.Minor, versionMajor, versionMinor)
		c.logErrorf("GKC packet library version mismatch. MCU has version %d.%d whereas this host has version %d.%d.",
			p.Major, p.Minor, versionMajor, versionMinor)

		c.mu.Lock()
		c.fatalErr = err
		c.currentState = packet.Emergency
		c.mu.Unlock()

		c.publish(Event{Kind: EventFatalError, Err: err})
		c.publish(Event{Kind: EventStateChanged, State: packet.Emergency})
		return
	}
	if p.Patch != versionPatch {
		c.logWarning("GKC packet library version: patch number mismatch.")
		return
	}
	c.logInfo("GKC packet library version matched.")
}

func (c *Controller) onHeartbeat(p packet.Heartbeat) {
	c.mu.Lock()
	initialized := c.initialized
	c.mu.Unlock()
	if !initialized {
		return
	}

	state, ok := packet.ValidLifecycle(p.State)
	if !ok {
		c.logWarningf("Heartbeat carried unknown lifecycle state 0x%02x.", p.State)
		return
	}

	c.mu.Lock()
	changed := c.currentState != state
	c.currentState = state
	c.mu.Unlock()
	if changed {
		c.publish(Event{Kind: EventStateChanged, State: state})
	}
}

func (c *Controller) onSensor(p packet.Sensor) {
	if !c.getHandshakeGood() {
		return
	}
	c.mu.Lock()
	c.sensors = &p.Values
	c.mu.Unlock()
	c.publish(Event{Kind: EventSensorUpdated, Sensors: p.Values})
}

func (c *Controller) onShutdown2(p packet.Shutdown2) {
	c.mu.Lock()
	pending := c.pendingShutdownSeq
	c.mu.Unlock()

	if pending == nil {
		c.logError("Shutdown #2 received, but no shutdown #1 was initiated before.")
		return
	}
	if *pending+1 != p.SeqNumber {
		c.logWarning("Shutdown #2 received, but sequence number does not match. Retrying.")
		c.sendShutdown()
		return
	}
}

func (c *Controller) onLog(p packet.Log) {
	entry := LogEntry{Severity: p.Severity, Message: p.Message}
	if dropped := c.logs.push(entry); dropped {
		c.logInfo("log queue full, dropping oldest entry")
	}
	c.publish(Event{Kind: EventLogEmitted, Log: entry})
}

func (c *Controller) logInfo(msg string)    { c.enqueueLocalLog(packet.Info, msg) }
func (c *Controller) logWarning(msg string) { c.enqueueLocalLog(packet.Warning, msg) }
func (c *Controller) logError(msg string)   { c.enqueueLocalLog(packet.Error, msg) }

func (c *Controller) logWarningf(format string, a ...interface{}) {
	c.enqueueLocalLog(packet.Warning, fmt.Sprintf(format, a...))
}
func (c *Controller) logErrorf(format string, a ...interface{}) {
	c.enqueueLocalLog(packet.Error, fmt.Sprintf(format, a...))
}

// enqueueLocalLog records a log entry raised by the controller itself
// (as opposed to one decoded off the wire), so callers observe it the
// same way through GetNextLog/Subscribe.
func (c *Controller) enqueueLocalLog(sev packet.Severity, msg string) {
	log.Printf("gkc: %s: %s", sev, msg)
	entry := LogEntry{Severity: sev, Message: msg}
	c.logs.push(entry)
	c.publish(Event{Kind: EventLogEmitted, Log: entry})
}
