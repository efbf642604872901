package packet

import "github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/wire"

// SensorValues is the packed payload of a Sensor frame: the MCU's latest
// read-back of wheel speeds, steering/servo/throttle position, brake
// pressure, electrical rails, and fault bits.
type SensorValues struct {
	WheelSpeedFL float32
	WheelSpeedFR float32
	WheelSpeedRL float32
	WheelSpeedRR float32

	SteeringAngleRad float32
	ServoAngleRad    float32
	ThrottlePos      float32
	BrakePressure    float32
	Voltage          float32
	Amperage         float32

	FaultBrake    bool
	FaultSteering bool
	FaultThrottle bool
	FaultInfo     bool
	FaultWarning  bool
	FaultError    bool
	FaultFatal    bool
}

const SensorValuesEncodedLen = 10*4 + 7

func (s SensorValues) encode(b []byte) []byte {
	b = wire.PutFloat32(b, s.WheelSpeedFL)
	b = wire.PutFloat32(b, s.WheelSpeedFR)
	b = wire.PutFloat32(b, s.WheelSpeedRL)
	b = wire.PutFloat32(b, s.WheelSpeedRR)
	b = wire.PutFloat32(b, s.SteeringAngleRad)
	b = wire.PutFloat32(b, s.ServoAngleRad)
	b = wire.PutFloat32(b, s.ThrottlePos)
	b = wire.PutFloat32(b, s.BrakePressure)
	b = wire.PutFloat32(b, s.Voltage)
	b = wire.PutFloat32(b, s.Amperage)
	b = wire.PutBool(b, s.FaultBrake)
	b = wire.PutBool(b, s.FaultSteering)
	b = wire.PutBool(b, s.FaultThrottle)
	b = wire.PutBool(b, s.FaultInfo)
	b = wire.PutBool(b, s.FaultWarning)
	b = wire.PutBool(b, s.FaultError)
	b = wire.PutBool(b, s.FaultFatal)
	return b
}

func decodeSensorValues(buf []byte, off int) (SensorValues, int) {
	var s SensorValues
	s.WheelSpeedFL, off = wire.ReadFloat32(buf, off)
	s.WheelSpeedFR, off = wire.ReadFloat32(buf, off)
	s.WheelSpeedRL, off = wire.ReadFloat32(buf, off)
	s.WheelSpeedRR, off = wire.ReadFloat32(buf, off)
	s.SteeringAngleRad, off = wire.ReadFloat32(buf, off)
	s.ServoAngleRad, off = wire.ReadFloat32(buf, off)
	s.ThrottlePos, off = wire.ReadFloat32(buf, off)
	s.BrakePressure, off = wire.ReadFloat32(buf, off)
	s.Voltage, off = wire.ReadFloat32(buf, off)
	s.Amperage, off = wire.ReadFloat32(buf, off)
	s.FaultBrake, off = wire.ReadBool(buf, off)
	s.FaultSteering, off = wire.ReadBool(buf, off)
	s.FaultThrottle, off = wire.ReadBool(buf, off)
	s.FaultInfo, off = wire.ReadBool(buf, off)
	s.FaultWarning, off = wire.ReadBool(buf, off)
	s.FaultError, off = wire.ReadBool(buf, off)
	s.FaultFatal, off = wire.ReadBool(buf, off)
	return s, off
}
