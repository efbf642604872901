package packet

import "github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/wire"

// Configurables is the packed payload of a Config frame: the tunable limits
// and timeouts the host pushes to the MCU once at initialization.
type Configurables struct {
	MaxSteeringLeft  float32 `yaml:"max_steering_left"`
	MaxSteeringRight float32 `yaml:"max_steering_right"`
	NeutralSteering  float32 `yaml:"neutral_steering"`
	MaxThrottle      float32 `yaml:"max_throttle"`
	MinThrottle      float32 `yaml:"min_throttle"`
	ZeroThrottle     float32 `yaml:"zero_throttle"`
	MaxBrake         float32 `yaml:"max_brake"`
	MinBrake         float32 `yaml:"min_brake"`
	ThrottleOffset   float32 `yaml:"throttle_offset"`

	ControlTimeoutMs uint32 `yaml:"control_timeout_ms"`
	CommTimeoutMs    uint32 `yaml:"comm_timeout_ms"`
	SensorTimeoutMs  uint32 `yaml:"sensor_timeout_ms"`
}

// ConfigurablesEncodedLen is the packed byte length of Configurables: 9 floats + 3 u32s.
const ConfigurablesEncodedLen = 9*4 + 3*4

func (c Configurables) encode(b []byte) []byte {
	b = wire.PutFloat32(b, c.MaxSteeringLeft)
	b = wire.PutFloat32(b, c.MaxSteeringRight)
	b = wire.PutFloat32(b, c.NeutralSteering)
	b = wire.PutFloat32(b, c.MaxThrottle)
	b = wire.PutFloat32(b, c.MinThrottle)
	b = wire.PutFloat32(b, c.ZeroThrottle)
	b = wire.PutFloat32(b, c.MaxBrake)
	b = wire.PutFloat32(b, c.MinBrake)
	b = wire.PutFloat32(b, c.ThrottleOffset)
	b = wire.PutUint32(b, c.ControlTimeoutMs)
	b = wire.PutUint32(b, c.CommTimeoutMs)
	b = wire.PutUint32(b, c.SensorTimeoutMs)
	return b
}

func decodeConfigurables(buf []byte, off int) (Configurables, int) {
	var c Configurables
	c.MaxSteeringLeft, off = wire.ReadFloat32(buf, off)
	c.MaxSteeringRight, off = wire.ReadFloat32(buf, off)
	c.NeutralSteering, off = wire.ReadFloat32(buf, off)
	c.MaxThrottle, off = wire.ReadFloat32(buf, off)
	c.MinThrottle, off = wire.ReadFloat32(buf, off)
	c.ZeroThrottle, off = wire.ReadFloat32(buf, off)
	c.MaxBrake, off = wire.ReadFloat32(buf, off)
	c.MinBrake, off = wire.ReadFloat32(buf, off)
	c.ThrottleOffset, off = wire.ReadFloat32(buf, off)
	c.ControlTimeoutMs, off = wire.ReadUint32(buf, off)
	c.CommTimeoutMs, off = wire.ReadUint32(buf, off)
	c.SensorTimeoutMs, off = wire.ReadUint32(buf, off)
	return c, off
}
