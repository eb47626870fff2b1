package interpreter

import "github.com/relabs-tech/shake_feedback/internal/reading"

const (
	// DimLux is the light level below which the view is dimmed.
	DimLux = 10

	// DimOpacity is applied in a dark room.
	DimOpacity = 0.3

	// FullOpacity is applied at or above DimLux.
	FullOpacity = 1.0
)

// Opacity maps a lux reading to a display opacity.
func Opacity(lux float32) float64 {
	if lux < DimLux {
		return DimOpacity
	}
	return FullOpacity
}

func (in *Interpreter) handleLight(l reading.Light) []Command {
	return []Command{SetOpacity{Opacity: Opacity(l.Lux)}}
}
