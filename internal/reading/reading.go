// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package reading defines the timestamped sensor samples delivered by a
// handheld device: tri-axis accelerometer, tri-axis gyroscope and scalar
// ambient light.
package reading

// Channel names a sensor stream on the wire.
type Channel string

const (
	ChannelAccelerometer Channel = "accelerometer"
	ChannelGyroscope     Channel = "gyroscope"
	ChannelLight         Channel = "light"
)

// Channels lists every channel in dispatch order.
var Channels = []Channel{ChannelAccelerometer, ChannelGyroscope, ChannelLight}

// Vec3 is a tri-axis value in device coordinates.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Reading is one sample from a single channel. The set of implementations
// is closed: Accel, Gyro and Light.
type Reading interface {
	Channel() Channel
	TimestampMillis() int64
	sealed()
}

// Accel is an accelerometer sample in m/s².
type Accel struct {
	Vec3
	At int64 // ms
}

// Gyro is a rotation-rate sample in rad/s.
type Gyro struct {
	Vec3
	At int64 // ms
}

// Light is an ambient light sample in lux.
type Light struct {
	Lux float32
	At  int64 // ms
}

func (Accel) Channel() Channel { return ChannelAccelerometer }
func (Gyro) Channel() Channel  { return ChannelGyroscope }
func (Light) Channel() Channel { return ChannelLight }

func (a Accel) TimestampMillis() int64 { return a.At }
func (g Gyro) TimestampMillis() int64  { return g.At }
func (l Light) TimestampMillis() int64 { return l.At }

func (Accel) sealed() {}
func (Gyro) sealed()  {}
func (Light) sealed() {}
