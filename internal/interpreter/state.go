package interpreter

import "github.com/relabs-tech/shake_feedback/internal/reading"

// DefaultSensitivity is the threshold a new session starts with.
const DefaultSensitivity = 10

// SessionState is the mutable state of one observation session.
//
// LastAccel is nil exactly while FirstAccelRead is true.
// AccumulatedRotationDegrees only changes while GyroEnabled is true.
type SessionState struct {
	LastAccel      *reading.Vec3
	FirstAccelRead bool

	AccumulatedRotationDegrees float64
	GyroEnabled                bool

	SensitivityThreshold float64

	// LastAlertMillis is meaningful only when HasAlerted is set.
	LastAlertMillis int64
	HasAlerted      bool
}

// NewSessionState returns the state of a freshly opened session.
func NewSessionState(sensitivity float64, gyroEnabled bool) SessionState {
	return SessionState{
		FirstAccelRead:       true,
		GyroEnabled:          gyroEnabled,
		SensitivityThreshold: sensitivity,
	}
}

// resetObservation clears the per-observation fields. Controls and the
// alert timeline survive a pause.
func (s *SessionState) resetObservation() {
	s.LastAccel = nil
	s.FirstAccelRead = true
	s.AccumulatedRotationDegrees = 0
}
