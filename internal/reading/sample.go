package reading

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownChannel = errors.New("unknown sensor channel")
	ErrShortPayload   = errors.New("sensor payload too short")
)

// Sample is the wire form of a reading, suitable for JSON and MQTT.
type Sample struct {
	Channel         Channel   `json:"channel"`
	Values          []float32 `json:"values"`
	TimestampMillis int64     `json:"timestampMillis"`
}

// minValues is the payload length each channel needs.
var minValues = map[Channel]int{
	ChannelAccelerometer: 3,
	ChannelGyroscope:     3,
	ChannelLight:         1,
}

// Reading converts the wire sample into its typed reading.
func (s Sample) Reading() (Reading, error) {
	need, ok := minValues[s.Channel]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, s.Channel)
	}
	if len(s.Values) < need {
		return nil, fmt.Errorf("%w: %s needs %d values, got %d", ErrShortPayload, s.Channel, need, len(s.Values))
	}

	v := s.Values
	switch s.Channel {
	case ChannelAccelerometer:
		return Accel{Vec3: Vec3{X: v[0], Y: v[1], Z: v[2]}, At: s.TimestampMillis}, nil
	case ChannelGyroscope:
		return Gyro{Vec3: Vec3{X: v[0], Y: v[1], Z: v[2]}, At: s.TimestampMillis}, nil
	default:
		return Light{Lux: v[0], At: s.TimestampMillis}, nil
	}
}

// FromReading builds the wire sample for r.
func FromReading(r Reading) Sample {
	s := Sample{Channel: r.Channel(), TimestampMillis: r.TimestampMillis()}
	switch r := r.(type) {
	case Accel:
		s.Values = []float32{r.X, r.Y, r.Z}
	case Gyro:
		s.Values = []float32{r.X, r.Y, r.Z}
	case Light:
		s.Values = []float32{r.Lux}
	}
	return s
}
