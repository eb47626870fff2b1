// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/shake_feedback/internal/reading"
)

// MockSource generates a phone gently rocking in the hand, a slow spin
// around the screen axis and a room light that dims now and then.
type MockSource struct {
	clock     Clock
	start     time.Time
	lightEach time.Duration
	lastLight time.Time
	pending   queue
}

// NewMockSource creates a mock source. A light reading is produced at most
// once per lightEvery.
func NewMockSource(clock Clock, lightEvery time.Duration) *MockSource {
	return &MockSource{clock: clock, start: clock(), lightEach: lightEvery}
}

func (m *MockSource) Next() (reading.Reading, error) {
	if r, ok := m.pending.pop(); ok {
		return r, nil
	}

	now := m.clock()
	at := now.UnixMilli()
	elapsed := now.Sub(m.start).Seconds()

	// Tilt sweeps from upright to lying flat and slightly backwards.
	tilt := 1.2 * math.Sin(elapsed*0.4)
	shake := 0.0
	if math.Mod(elapsed, 7) < 0.5 {
		shake = 6 * math.Sin(elapsed*40)
	}
	acc := reading.Accel{
		Vec3: reading.Vec3{
			X: float32(0.3*math.Sin(elapsed*1.3) + shake),
			Y: float32(9.81 * math.Cos(tilt)),
			Z: float32(9.81*math.Sin(tilt) + 0.5*shake),
		},
		At: at,
	}
	gyr := reading.Gyro{
		Vec3: reading.Vec3{
			X: float32(0.05 * math.Cos(elapsed)),
			Y: float32(0.05 * math.Sin(elapsed)),
			Z: float32(0.8 * math.Sin(elapsed*0.9)),
		},
		At: at,
	}
	m.pending.push(gyr)

	if m.lastLight.IsZero() || now.Sub(m.lastLight) >= m.lightEach {
		m.lastLight = now
		lux := 110 + 105*math.Sin(elapsed*0.2)
		m.pending.push(reading.Light{Lux: float32(lux), At: at})
	}
	return acc, nil
}
