package interpreter

import (
	"fmt"
	"math"

	"github.com/relabs-tech/shake_feedback/internal/reading"
)

const (
	// StandardGravity is the y value of a device held upright, in m/s².
	StandardGravity = 9.81
	// straightTolerance is the half-width of the straight band around gravity.
	straightTolerance = 1.0
)

const accelLegend = "Explanation:\n" +
	"- X: movement LEFT/RIGHT\n" +
	"- Y: movement UP/DOWN\n" +
	"- Z: movement FORWARD/BACKWARD (in/out of room)"

// Intensity is the Euclidean norm of the per-axis absolute deltas between
// two consecutive accelerometer readings.
func Intensity(prev, cur reading.Vec3) float32 {
	dx := abs32(cur.X - prev.X)
	dy := abs32(cur.Y - prev.Y)
	dz := abs32(cur.Z - prev.Z)
	return float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
}

// ClassifyTilt maps the gravity-axis value to a tilt state. Every y,
// including 0 and NaN, lands in exactly one state.
func ClassifyTilt(y float32) Tilt {
	switch {
	case math.Abs(float64(y)-StandardGravity) < straightTolerance:
		return TiltStraight
	case y < 0:
		return TiltBackward
	default:
		return TiltForward
	}
}

// FormatAccel renders the accelerometer panel text.
func FormatAccel(v reading.Vec3, intensity float32) string {
	return fmt.Sprintf("Accelerometer\nX: %.2f\nY: %.2f\nZ: %.2f\n\n"+
		"Movement intensity (change): %.2f\n\n"+accelLegend,
		v.X, v.Y, v.Z, intensity)
}

func (in *Interpreter) handleAccel(a reading.Accel) []Command {
	s := &in.state

	if s.FirstAccelRead {
		baseline := a.Vec3
		s.LastAccel = &baseline
		s.FirstAccelRead = false
		return nil
	}

	intensity := Intensity(*s.LastAccel, a.Vec3)
	cur := a.Vec3
	s.LastAccel = &cur

	cmds := []Command{
		TextUpdate{Panel: PanelAccel, Text: FormatAccel(a.Vec3, intensity)},
		TiltChanged{Tilt: ClassifyTilt(a.Y)},
	}

	// compared in single precision, like the readings
	if intensity > float32(s.SensitivityThreshold) && s.allowAlert(a.At) {
		s.recordAlert(a.At)
		cmds = append(cmds, Alert{
			Kind:            AlertMovement,
			Message:         "Strong movement detected!",
			TimestampMillis: a.At,
		})
	}
	return cmds
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
