// Package interpreter turns raw accelerometer, gyroscope and light readings
// into feedback commands: movement intensity, tilt classification, an
// accumulated rotation angle, view opacity and rate-limited alerts.
//
// An Interpreter is not safe for concurrent use. Readings and controls are
// expected on a single logical callback path.
package interpreter

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/relabs-tech/shake_feedback/internal/reading"
)

var ErrInvalidSensitivity = errors.New("sensitivity must be a non-negative number")

// Options configures a new session.
type Options struct {
	Sensitivity float64
	GyroEnabled bool
}

// DefaultOptions mirrors the controls of a freshly started app.
var DefaultOptions = Options{Sensitivity: DefaultSensitivity}

// Interpreter owns the state of one observation session.
type Interpreter struct {
	id    string
	state SessionState
}

// New opens a session.
func New(opts Options) (*Interpreter, error) {
	if err := validSensitivity(opts.Sensitivity); err != nil {
		return nil, err
	}
	return &Interpreter{
		id:    uuid.New().String(),
		state: NewSessionState(opts.Sensitivity, opts.GyroEnabled),
	}, nil
}

// ID identifies the session.
func (in *Interpreter) ID() string { return in.id }

// State returns a copy of the session state.
func (in *Interpreter) State() SessionState {
	s := in.state
	if s.LastAccel != nil {
		v := *s.LastAccel
		s.LastAccel = &v
	}
	return s
}

// Handle dispatches a reading to the routine owning its channel.
func (in *Interpreter) Handle(r reading.Reading) []Command {
	switch r := r.(type) {
	case reading.Accel:
		return in.handleAccel(r)
	case reading.Gyro:
		return in.handleGyro(r)
	case reading.Light:
		return in.handleLight(r)
	}
	return nil
}

// Controls returns the commands describing the current control state, for
// a presentation side that has just attached.
func (in *Interpreter) Controls() []Command {
	return append(in.gyroStatus(), sensitivityLabel(in.state.SensitivityThreshold))
}

// SetGyroEnabled toggles rotation tracking. Disabling halts the arrow;
// enabling continues from the accumulated angle.
func (in *Interpreter) SetGyroEnabled(enabled bool) []Command {
	in.state.GyroEnabled = enabled
	cmds := in.gyroStatus()
	if !enabled {
		cmds = append(cmds, StopRotation{})
	}
	return cmds
}

// SetSensitivity replaces the alert threshold from the next reading on.
func (in *Interpreter) SetSensitivity(v float64) ([]Command, error) {
	if err := validSensitivity(v); err != nil {
		return nil, err
	}
	in.state.SensitivityThreshold = v
	return []Command{sensitivityLabel(v)}, nil
}

// Pause ends observation: any visible alert is withdrawn, the arrow stops
// and returns to 0° and the next accelerometer reading becomes a new
// baseline.
func (in *Interpreter) Pause() []Command {
	return append([]Command{CancelAlert{}, StopRotation{}}, in.reset())
}

// Stop ends observation like Pause but leaves a visible alert to expire.
func (in *Interpreter) Stop() []Command {
	return []Command{StopRotation{}, in.reset()}
}

// Resume restarts observation from a fresh baseline.
func (in *Interpreter) Resume() []Command {
	return append([]Command{in.reset()}, in.Controls()...)
}

// reset clears the observation and returns the command that puts
// the arrow back at 0°.
func (in *Interpreter) reset() Command {
	from := in.state.AccumulatedRotationDegrees
	in.state.resetObservation()
	return Rotate{
		FromDegrees:    from,
		ToDegrees:      0,
		Pivot:          PivotCenter,
		HoldFinalState: true,
	}
}

func (in *Interpreter) gyroStatus() []Command {
	text := "DISABLED - arrow is still"
	if in.state.GyroEnabled {
		text = "ACTIVATED - arrow spins"
	}
	return []Command{
		TextUpdate{Panel: PanelGyroStatus, Text: text},
		PanelVisibility{Panel: PanelGyro, Visible: in.state.GyroEnabled},
	}
}

func sensitivityLabel(v float64) Command {
	return TextUpdate{Panel: PanelSensitivity, Text: fmt.Sprintf("Sensitivity: %.1f", v)}
}

func validSensitivity(v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSensitivity, v)
	}
	return nil
}
