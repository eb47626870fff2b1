// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"math"
	"time"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/shake_feedback/internal/config"
	"github.com/relabs-tech/shake_feedback/internal/reading"
)

// Full-scale defaults after Init: ±2g and ±250°/s.
const (
	accelLSBPerG    = 16384.0
	gyroLSBPerDPS   = 131.0
	standardGravity = 9.80665
)

var adcChannels = []ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3}

// HardwareSource reads an MPU9250 over SPI for motion and, when wired, a
// photoresistor divider on an ADS1115 channel for ambient light.
type HardwareSource struct {
	imu *mpu9250.MPU9250

	bus        i2c.BusCloser
	lightPin   analog.PinADC
	luxPerVolt float64
	lightEach  time.Duration
	lastLight  time.Time

	clock   Clock
	pending queue
}

// NewHardwareSource initializes the IMU and the light sensor. A missing
// light sensor is not fatal: the light channel simply stays silent.
func NewHardwareSource(cfg *config.Config, clock Clock) (*HardwareSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(cfg.IMUCSPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", cfg.IMUCSPin)
	}

	tr, err := mpu9250.NewSpiTransport(cfg.IMUSPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", cfg.IMUSPIDevice, err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := imu.Calibrate(); err != nil {
		log.Printf("Warning: IMU calibration failed: %v", err)
	} else {
		log.Println("IMU calibration complete")
	}

	src := &HardwareSource{
		imu:        imu,
		luxPerVolt: cfg.LightLuxPerVolt,
		lightEach:  time.Duration(cfg.LightSampleInterval) * time.Millisecond,
		clock:      clock,
	}

	if err := src.openLight(cfg); err != nil {
		log.Printf("light: sensor not available, continuing without light channel: %v", err)
	}
	return src, nil
}

func (s *HardwareSource) openLight(cfg *config.Config) error {
	bus, err := i2creg.Open(cfg.LightI2CBus)
	if err != nil {
		return fmt.Errorf("i2c open on bus %q: %w", cfg.LightI2CBus, err)
	}

	adc, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: cfg.LightI2CAddr})
	if err != nil {
		bus.Close()
		return fmt.Errorf("ADS1115 at 0x%02X: %w", cfg.LightI2CAddr, err)
	}

	pin, err := adc.PinForChannel(adcChannels[cfg.LightADCChannel], 5*physic.Volt, 1*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		bus.Close()
		return fmt.Errorf("ADS1115 channel %d: %w", cfg.LightADCChannel, err)
	}

	s.bus = bus
	s.lightPin = pin
	log.Printf("light: ADS1115 channel %d at 0x%02X ready", cfg.LightADCChannel, cfg.LightI2CAddr)
	return nil
}

// Next returns the next reading, reading the chips when the queue is empty.
func (s *HardwareSource) Next() (reading.Reading, error) {
	if r, ok := s.pending.pop(); ok {
		return r, nil
	}

	now := s.clock()
	at := now.UnixMilli()

	acc, gyr, err := s.readMotion(at)
	if err != nil {
		return nil, err
	}
	s.pending.push(gyr)

	if s.lightPin != nil && (s.lastLight.IsZero() || now.Sub(s.lastLight) >= s.lightEach) {
		s.lastLight = now
		if l, err := s.readLight(at); err != nil {
			log.Printf("light: read error: %v", err)
		} else {
			s.pending.push(l)
		}
	}
	return acc, nil
}

// readMotion reads accelerometer (m/s²) and gyroscope (rad/s) at once.
func (s *HardwareSource) readMotion(at int64) (reading.Accel, reading.Gyro, error) {
	var raw [6]int16
	reads := []struct {
		name string
		fn   func() (int16, error)
	}{
		{"accel X", s.imu.GetAccelerationX},
		{"accel Y", s.imu.GetAccelerationY},
		{"accel Z", s.imu.GetAccelerationZ},
		{"gyro X", s.imu.GetRotationX},
		{"gyro Y", s.imu.GetRotationY},
		{"gyro Z", s.imu.GetRotationZ},
	}
	for i, r := range reads {
		v, err := r.fn()
		if err != nil {
			return reading.Accel{}, reading.Gyro{}, fmt.Errorf("IMU %s: %w", r.name, err)
		}
		raw[i] = v
	}

	acc := reading.Accel{Vec3: reading.Vec3{
		X: countsToMS2(raw[0]),
		Y: countsToMS2(raw[1]),
		Z: countsToMS2(raw[2]),
	}, At: at}
	gyr := reading.Gyro{Vec3: reading.Vec3{
		X: countsToRadS(raw[3]),
		Y: countsToRadS(raw[4]),
		Z: countsToRadS(raw[5]),
	}, At: at}
	return acc, gyr, nil
}

func (s *HardwareSource) readLight(at int64) (reading.Light, error) {
	sample, err := s.lightPin.Read()
	if err != nil {
		return reading.Light{}, err
	}
	return reading.Light{Lux: voltsToLux(sample.V, s.luxPerVolt), At: at}, nil
}

// Close releases the light sensor bus.
func (s *HardwareSource) Close() error {
	if s.lightPin != nil {
		if err := s.lightPin.Halt(); err != nil {
			log.Printf("light: halt: %v", err)
		}
	}
	if s.bus != nil {
		return s.bus.Close()
	}
	return nil
}

func countsToMS2(c int16) float32 {
	return float32(float64(c) / accelLSBPerG * standardGravity)
}

func countsToRadS(c int16) float32 {
	return float32(float64(c) / gyroLSBPerDPS * math.Pi / 180)
}

func voltsToLux(v physic.ElectricPotential, luxPerVolt float64) float32 {
	return float32(float64(v) / float64(physic.Volt) * luxPerVolt)
}
