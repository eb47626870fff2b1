package feedback

import "github.com/relabs-tech/shake_feedback/internal/interpreter"

// TiltStyle is how a tilt state is presented.
type TiltStyle struct {
	Color string // background, #RRGGBB
	Label string // status line
	Short string // fits a 128px display line
}

var tiltStyles = map[interpreter.Tilt]TiltStyle{
	interpreter.TiltStraight: {Color: "#90EE90", Label: "Phone is ALMOST STRAIGHT (Y close to 9.81)", Short: "STRAIGHT"},
	interpreter.TiltBackward: {Color: "#FFA07A", Label: "Phone is ALMOST BACKWARDS (negative Y)", Short: "BACKWARDS"},
	interpreter.TiltForward:  {Color: "#ADD8E6", Label: "Phone is ALMOST PLAIN (positive Y)", Short: "PLAIN"},
}

// StyleFor returns the presentation of t. Unknown states get an empty style.
func StyleFor(t interpreter.Tilt) TiltStyle {
	return tiltStyles[t]
}
