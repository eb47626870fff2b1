package interpreter

// Command is an output of the interpreter for the presentation side to
// render. The set of implementations is closed.
type Command interface {
	command()
}

// Panel identifies a text area owned by the presentation side.
type Panel string

const (
	PanelAccel       Panel = "accel"
	PanelGyro        Panel = "gyro"
	PanelGyroStatus  Panel = "gyro_status"
	PanelSensitivity Panel = "sensitivity"
)

// Tilt is the orientation classification derived from the y axis.
type Tilt string

const (
	TiltStraight Tilt = "straight"
	TiltBackward Tilt = "backward"
	TiltForward  Tilt = "forward"
)

// AlertKind names the channel that raised an alert.
type AlertKind string

const (
	AlertMovement AlertKind = "movement"
	AlertRotation AlertKind = "rotation"
)

// PivotCenter is the only rotation pivot the arrow uses.
const PivotCenter = "center"

// TextUpdate replaces the text of a panel.
type TextUpdate struct {
	Panel Panel
	Text  string
}

// PanelVisibility shows or hides a panel.
type PanelVisibility struct {
	Panel   Panel
	Visible bool
}

// TiltChanged selects the background and status label for a tilt state.
type TiltChanged struct {
	Tilt Tilt
}

// Rotate animates the arrow between two absolute angles.
type Rotate struct {
	FromDegrees    float64
	ToDegrees      float64
	Pivot          string
	DurationMillis int64
	HoldFinalState bool
}

// StopRotation halts any in-progress arrow animation.
type StopRotation struct{}

// Alert asks the presentation side to show a short notice.
type Alert struct {
	Kind            AlertKind
	Message         string
	TimestampMillis int64
}

// CancelAlert withdraws a visible alert, best effort.
type CancelAlert struct{}

// SetOpacity sets the opacity of the whole view.
type SetOpacity struct {
	Opacity float64
}

func (TextUpdate) command()      {}
func (PanelVisibility) command() {}
func (TiltChanged) command()     {}
func (Rotate) command()          {}
func (StopRotation) command()    {}
func (Alert) command()           {}
func (CancelAlert) command()     {}
func (SetOpacity) command()      {}
