// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"github.com/relabs-tech/env_sampler/internal/devices/dht22"
)

// DHTReader takes one DHT22 conversion. *dht22.Dev fits, as does the *DHT of
// github.com/MichaelS11/go-dht.
type DHTReader interface {
	Read() (humidity, temperature float64, err error)
}

var _ DHTReader = (*dht22.Dev)(nil)

// dhtSensor serves temperature and humidity from one conversion and makes the
// recoverable read failures match ErrTransient.
type dhtSensor struct {
	dev     DHTReader
	hum     float64
	pending bool
}

// NewDHT22 adapts a DHT22 to HumiditySensor. Its checksum, timing and
// plausibility failures are classified as transient.
func NewDHT22(dev DHTReader) HumiditySensor {
	return &dhtSensor{dev: dev}
}

func (s *dhtSensor) Temperature() (float64, error) {
	hum, temp, err := s.dev.Read()
	if err != nil {
		s.pending = false
		return 0, classifyDHT(err)
	}
	s.hum = hum
	s.pending = true
	return temp, nil
}

func (s *dhtSensor) Humidity() (float64, error) {
	if s.pending {
		s.pending = false
		return s.hum, nil
	}
	hum, _, err := s.dev.Read()
	if err != nil {
		return 0, classifyDHT(err)
	}
	return hum, nil
}

func classifyDHT(err error) error {
	if err != nil && dht22.IsTransient(err) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}

// IAQMeter is the measurement side of an SGP30.
type IAQMeter interface {
	MeasureIAQ() (eco2, tvoc uint16, err error)
}

// sgp30Sensor serves eCO2 and TVOC from a single measure_iaq command: ECO2
// measures and keeps the TVOC half for the next TVOC call.
type sgp30Sensor struct {
	dev     IAQMeter
	tvoc    uint16
	pending bool
}

// NewSGP30 adapts an SGP30 to AirQualitySensor.
func NewSGP30(dev IAQMeter) AirQualitySensor {
	return &sgp30Sensor{dev: dev}
}

func (s *sgp30Sensor) ECO2() (float64, error) {
	eco2, tvoc, err := s.dev.MeasureIAQ()
	if err != nil {
		s.pending = false
		return 0, err
	}
	s.tvoc = tvoc
	s.pending = true
	return float64(eco2), nil
}

func (s *sgp30Sensor) TVOC() (float64, error) {
	if !s.pending {
		_, tvoc, err := s.dev.MeasureIAQ()
		if err != nil {
			return 0, err
		}
		s.tvoc = tvoc
	}
	s.pending = false
	return float64(s.tvoc), nil
}
