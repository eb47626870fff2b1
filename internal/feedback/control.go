package feedback

import (
	"errors"
	"fmt"
)

// Control actions accepted from a UI.
const (
	ActionSetGyro        = "set_gyro"
	ActionSetSensitivity = "set_sensitivity"
	ActionPause          = "pause"
	ActionResume         = "resume"
	ActionStop           = "stop"
)

var ErrInvalidControl = errors.New("invalid control")

// Control is a user control message on the control topic or websocket.
type Control struct {
	Action      string   `json:"action"`
	Enabled     *bool    `json:"enabled,omitempty"`
	Sensitivity *float64 `json:"sensitivity,omitempty"`
}

// Validate checks that the fields needed by the action are present.
func (c Control) Validate() error {
	switch c.Action {
	case ActionSetGyro:
		if c.Enabled == nil {
			return fmt.Errorf("%w: %s needs enabled", ErrInvalidControl, c.Action)
		}
	case ActionSetSensitivity:
		if c.Sensitivity == nil {
			return fmt.Errorf("%w: %s needs sensitivity", ErrInvalidControl, c.Action)
		}
		if *c.Sensitivity < 0 {
			return fmt.Errorf("%w: sensitivity %v is negative", ErrInvalidControl, *c.Sensitivity)
		}
	case ActionPause, ActionResume, ActionStop:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidControl, c.Action)
	}
	return nil
}

// SetGyro builds a rotation tracking toggle.
func SetGyro(enabled bool) Control {
	return Control{Action: ActionSetGyro, Enabled: &enabled}
}

// SetSensitivity builds a threshold update.
func SetSensitivity(v float64) Control {
	return Control{Action: ActionSetSensitivity, Sensitivity: &v}
}
