// Command gkctl is the reference application layer for the go-kart
// controller core: it loads a YAML configuration, opens a session against
// the MCU, and bridges it to Redis — publishing CBOR-encoded telemetry and
// draining an operator command list — the way an external node would.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Triton-AI/go-kart-real-time-controller/internal/bus"
	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/session"
)

var configPath = flag.String("config", "/etc/gkctl/config.yaml", "path to YAML configuration file")

const commandPollTimeout = 500 * time.Millisecond

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	fc, err := loadFileConfig(*configPath)
	if err != nil {
		log.Fatalf("gkctl: %v", err)
	}

	redisBus, err := bus.New(fc.Redis.Addr, fc.Redis.Password, fc.Redis.DB)
	if err != nil {
		log.Fatalf("gkctl: %v", err)
	}
	defer redisBus.Close()
	log.Printf("gkctl: connected to redis at %s", fc.Redis.Addr)

	ctrl, err := session.New(fc.sessionConfig())
	if err != nil {
		log.Fatalf("gkctl: session handshake failed: %v", err)
	}
	defer ctrl.Close()
	log.Printf("gkctl: handshake complete, lifecycle state %s", ctrl.GetState())

	if !ctrl.Initialize(fc.Configurables, 500) {
		log.Printf("gkctl: MCU did not leave Uninitialized after Config push")
	}

	stopEvents := make(chan struct{})
	go pumpEvents(ctrl, redisBus, stopEvents)
	go pumpCommands(ctrl, redisBus, stopEvents)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("gkctl: shutting down")
	close(stopEvents)
}

// pumpEvents republishes session events onto Redis pub/sub as CBOR.
func pumpEvents(ctrl *session.Controller, b *bus.Client, stop <-chan struct{}) {
	events := ctrl.Subscribe()
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case session.EventSensorUpdated:
				if err := b.PublishCBOR(bus.SensorChannel, ev.Sensors); err != nil {
					log.Printf("gkctl: publish sensors: %v", err)
				}
			case session.EventLogEmitted:
				if err := b.PublishCBOR(bus.LogChannel, ev.Log); err != nil {
					log.Printf("gkctl: publish log: %v", err)
				}
			case session.EventStateChanged:
				if err := b.PublishCBOR(bus.StateChannel, ev.State.String()); err != nil {
					log.Printf("gkctl: publish state: %v", err)
				}
			case session.EventFatalError:
				log.Printf("gkctl: controller is unusable: %v", ev.Err)
				if err := b.PublishCBOR(bus.StateChannel, ev.Err.Error()); err != nil {
					log.Printf("gkctl: publish fatal error: %v", err)
				}
			}
		}
	}
}

// pumpCommands drains the operator command list and maps each entry to a
// core API call.
func pumpCommands(ctrl *session.Controller, b *bus.Client, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		cmd, err := b.NextCommand(commandPollTimeout)
		if err != nil {
			log.Printf("gkctl: command intake: %v", err)
			continue
		}
		if cmd == nil {
			continue
		}

		switch cmd.Op {
		case "control":
			ctrl.SendControl(cmd.Throttle, cmd.Steering, cmd.Brake)
		case "activate":
			ctrl.Activate(cmd.TimeoutMs)
		case "deactivate":
			ctrl.Deactivate(cmd.TimeoutMs)
		case "emergency_stop":
			ctrl.EmergencyStop(cmd.TimeoutMs)
		case "shutdown":
			ctrl.Shutdown(cmd.TimeoutMs)
		default:
			log.Printf("gkctl: unknown command op %q", cmd.Op)
		}
	}
}
