// Package feedback carries interpreter commands and user controls between
// processes as JSON.
package feedback

import (
	"github.com/relabs-tech/shake_feedback/internal/interpreter"
)

// Event types on the feedback topic.
const (
	TypeText         = "text"
	TypeVisibility   = "visibility"
	TypeTilt         = "tilt"
	TypeRotate       = "rotate"
	TypeStopRotation = "stop_rotation"
	TypeAlert        = "alert"
	TypeCancelAlert  = "cancel_alert"
	TypeOpacity      = "opacity"
)

// Event is the wire form of one interpreter command.
type Event struct {
	Type    string `json:"type"`
	Session string `json:"session"`

	// text, visibility
	Panel   string `json:"panel,omitempty"`
	Text    string `json:"text,omitempty"`
	Visible bool   `json:"visible,omitempty"`

	// tilt
	Tilt  string `json:"tilt,omitempty"`
	Label string `json:"label,omitempty"`
	Color string `json:"color,omitempty"`

	// rotate
	From           float64 `json:"from,omitempty"`
	To             float64 `json:"to,omitempty"`
	Pivot          string  `json:"pivot,omitempty"`
	DurationMillis int64   `json:"duration_ms,omitempty"`
	Hold           bool    `json:"hold,omitempty"`

	// alert
	AlertKind       string `json:"alert_kind,omitempty"`
	Message         string `json:"message,omitempty"`
	TimestampMillis int64  `json:"timestamp_ms,omitempty"`

	// opacity
	Opacity float64 `json:"opacity,omitempty"`
}

// FromCommand converts a command emitted by the given session.
func FromCommand(session string, cmd interpreter.Command) Event {
	ev := Event{Session: session}
	switch c := cmd.(type) {
	case interpreter.TextUpdate:
		ev.Type = TypeText
		ev.Panel = string(c.Panel)
		ev.Text = c.Text
	case interpreter.PanelVisibility:
		ev.Type = TypeVisibility
		ev.Panel = string(c.Panel)
		ev.Visible = c.Visible
	case interpreter.TiltChanged:
		style := StyleFor(c.Tilt)
		ev.Type = TypeTilt
		ev.Tilt = string(c.Tilt)
		ev.Label = style.Label
		ev.Color = style.Color
	case interpreter.Rotate:
		ev.Type = TypeRotate
		ev.From = c.FromDegrees
		ev.To = c.ToDegrees
		ev.Pivot = c.Pivot
		ev.DurationMillis = c.DurationMillis
		ev.Hold = c.HoldFinalState
	case interpreter.StopRotation:
		ev.Type = TypeStopRotation
	case interpreter.Alert:
		ev.Type = TypeAlert
		ev.AlertKind = string(c.Kind)
		ev.Message = c.Message
		ev.TimestampMillis = c.TimestampMillis
	case interpreter.CancelAlert:
		ev.Type = TypeCancelAlert
	case interpreter.SetOpacity:
		ev.Type = TypeOpacity
		ev.Opacity = c.Opacity
	}
	return ev
}

// FromCommands converts a batch of commands in order.
func FromCommands(session string, cmds []interpreter.Command) []Event {
	out := make([]Event, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, FromCommand(session, c))
	}
	return out
}
