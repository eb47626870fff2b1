package sensors

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/shake_feedback/internal/reading"
)

// Scenario is a recorded or hand-written sequence of readings.
//
//	name: shake while upright
//	readings:
//	  - {channel: accelerometer, at: 0, values: [0, 9.81, 0]}
//	  - {channel: accelerometer, at: 500, values: [5, 9.81, 0]}
//	  - {channel: light, at: 600, values: [4]}
type Scenario struct {
	Name     string        `yaml:"name"`
	Readings []ScenarioRow `yaml:"readings"`
}

// ScenarioRow is one reading of a scenario.
type ScenarioRow struct {
	Channel string    `yaml:"channel"`
	At      int64     `yaml:"at"`
	Values  []float32 `yaml:"values"`
}

// ParseScenario decodes a YAML scenario and checks every row.
func ParseScenario(data []byte) ([]reading.Reading, string, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, "", fmt.Errorf("decode scenario: %w", err)
	}
	if len(sc.Readings) == 0 {
		return nil, sc.Name, errors.New("scenario has no readings")
	}

	out := make([]reading.Reading, 0, len(sc.Readings))
	for i, row := range sc.Readings {
		s := reading.Sample{Channel: reading.Channel(row.Channel), Values: row.Values, TimestampMillis: row.At}
		r, err := s.Reading()
		if err != nil {
			return nil, sc.Name, fmt.Errorf("scenario row %d: %w", i+1, err)
		}
		out = append(out, r)
	}
	return out, sc.Name, nil
}

// loopGapMillis separates the last reading of a pass from the first of
// the next.
const loopGapMillis = 1000

// ReplaySource plays a scenario back in order. With loop set, each pass
// is shifted in time so timestamps keep increasing.
type ReplaySource struct {
	name     string
	readings []reading.Reading
	loop     bool
	pos      int
	offset   int64
}

// NewReplaySource loads a scenario file.
func NewReplaySource(path string, loop bool) (*ReplaySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	readings, name, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &ReplaySource{name: name, readings: readings, loop: loop}, nil
}

// Name is the scenario name.
func (r *ReplaySource) Name() string { return r.name }

func (r *ReplaySource) Next() (reading.Reading, error) {
	if r.pos >= len(r.readings) {
		if !r.loop {
			return nil, io.EOF
		}
		first := r.readings[0].TimestampMillis()
		last := r.readings[len(r.readings)-1].TimestampMillis()
		r.offset += last - first + loopGapMillis
		r.pos = 0
	}

	rd := r.readings[r.pos]
	r.pos++
	if r.offset == 0 {
		return rd, nil
	}
	return shift(rd, r.offset), nil
}

func shift(rd reading.Reading, by int64) reading.Reading {
	switch v := rd.(type) {
	case reading.Accel:
		v.At += by
		return v
	case reading.Gyro:
		v.At += by
		return v
	case reading.Light:
		v.At += by
		return v
	}
	return rd
}
