// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/relabs-tech/shake_feedback/internal/config"
	"github.com/relabs-tech/shake_feedback/internal/reading"
)

// Source is anything that can provide sensor readings over time:
// mock, MPU9250 hardware, a serial bridge or a replay file.
// Next returns io.EOF when a finite source is exhausted.
type Source interface {
	Next() (reading.Reading, error)
}

// Clock returns the current time; sources stamp readings with it.
type Clock func() time.Time

// queue holds readings produced together (one IMU read yields an
// accelerometer and a gyroscope reading) and hands them out one by one.
type queue []reading.Reading

func (q *queue) push(r ...reading.Reading) { *q = append(*q, r...) }

func (q *queue) pop() (reading.Reading, bool) {
	if len(*q) == 0 {
		return nil, false
	}
	r := (*q)[0]
	*q = (*q)[1:]
	return r, true
}

// Open builds the source selected by cfg.SensorSource.
func Open(cfg *config.Config) (Source, error) {
	switch cfg.SensorSource {
	case config.SourceMock:
		log.Println("sensors: using mock source")
		return NewMockSource(time.Now, time.Duration(cfg.LightSampleInterval)*time.Millisecond), nil
	case config.SourceHardware:
		log.Printf("sensors: using MPU9250 on %s (CS %s)", cfg.IMUSPIDevice, cfg.IMUCSPin)
		return NewHardwareSource(cfg, time.Now)
	case config.SourceSerial:
		log.Printf("sensors: using serial bridge on %s at %d baud", cfg.SerialPort, cfg.SerialBaudRate)
		return NewSerialSource(cfg.SerialPort, cfg.SerialBaudRate)
	case config.SourceReplay:
		log.Printf("sensors: replaying %s (loop=%v)", cfg.ReplayFile, cfg.ReplayLoop)
		return NewReplaySource(cfg.ReplayFile, cfg.ReplayLoop)
	default:
		return nil, fmt.Errorf("unknown sensor source %q", cfg.SensorSource)
	}
}

// Close releases the source if it holds a resource.
func Close(src Source) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
