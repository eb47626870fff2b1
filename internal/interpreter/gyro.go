package interpreter

import (
	"fmt"
	"math"

	"github.com/relabs-tech/shake_feedback/internal/reading"
)

// RotationDurationMillis is the length of every arrow animation.
const RotationDurationMillis = 150

const gyroLegend = "Explanation:\n" +
	"- Rotation Z: rotates the phone around its center (screen up)\n" +
	"- Rotation X: tilts forward/backward over short side (nodding)\n" +
	"- Rotation Y: tilts left/right over long side (shaking head)"

// RateToDegrees converts a rotation rate sample to the angle the arrow
// turns for that sample. The rate is taken as a whole-tick displacement;
// elapsed time between samples is not considered.
func RateToDegrees(rate float32) float64 {
	return float64(rate) * 180 / math.Pi
}

// FormatGyro renders the gyroscope panel text.
func FormatGyro(rate float32) string {
	return fmt.Sprintf("Gyroscope\nRotation Z (rad/s): %.3f\n\n"+gyroLegend, rate)
}

func (in *Interpreter) handleGyro(g reading.Gyro) []Command {
	s := &in.state
	if !s.GyroEnabled {
		return nil
	}

	rate := g.Z
	degrees := RateToDegrees(rate)
	from := s.AccumulatedRotationDegrees
	s.AccumulatedRotationDegrees += degrees

	cmds := []Command{
		TextUpdate{Panel: PanelGyro, Text: FormatGyro(rate)},
		Rotate{
			FromDegrees:    from,
			ToDegrees:      from + degrees,
			Pivot:          PivotCenter,
			DurationMillis: RotationDurationMillis,
			HoldFinalState: true,
		},
	}

	if abs32(rate) > float32(s.SensitivityThreshold)/10 && s.allowAlert(g.At) {
		s.recordAlert(g.At)
		cmds = append(cmds, Alert{
			Kind:            AlertRotation,
			Message:         "Rapid rotation detected!",
			TimestampMillis: g.At,
		})
	}
	return cmds
}
