// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sgp30 drives the Sensirion SGP30 gas sensor (eCO2/TVOC) over I²C.
// Datasheet: https://sensirion.com/media/documents/984E0DD5/61644B8B/Sensirion_Gas_Sensors_Datasheet_SGP30.pdf
package sgp30

import (
	"errors"
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// Address is the fixed I²C address of the SGP30.
const Address uint16 = 0x58

var (
	ErrCRC        = errors.New("sgp30: crc mismatch")
	ErrFeatureSet = errors.New("sgp30: unsupported feature set")
)

type command struct {
	name  string
	code  uint16
	words int           // response words
	delay time.Duration // max execution time
}

var (
	cmdGetSerialID    = command{name: "get_serial_id", code: 0x3682, words: 3, delay: 10 * time.Millisecond}
	cmdGetFeatureSet  = command{name: "get_feature_set", code: 0x202F, words: 1, delay: 10 * time.Millisecond}
	cmdIAQInit        = command{name: "iaq_init", code: 0x2003, words: 0, delay: 10 * time.Millisecond}
	cmdMeasureIAQ     = command{name: "measure_iaq", code: 0x2008, words: 2, delay: 50 * time.Millisecond}
	cmdGetIAQBaseline = command{name: "get_iaq_baseline", code: 0x2015, words: 2, delay: 10 * time.Millisecond}
	cmdSetIAQBaseline = command{name: "set_iaq_baseline", code: 0x201E, words: 0, delay: 10 * time.Millisecond}
	cmdSetHumidity    = command{name: "set_absolute_humidity", code: 0x2061, words: 0, delay: 10 * time.Millisecond}
)

// Baseline is the pair of compensation values kept by the on-chip algorithm.
type Baseline struct {
	ECO2 uint16 `json:"eco2"`
	TVOC uint16 `json:"tvoc"`
}

// Dev is an SGP30 on an I²C bus.
type Dev struct {
	d        i2c.Dev
	serial   [3]uint16
	features uint16
}

// New checks the serial number and feature set. The IAQ algorithm is not
// started; call IAQInit.
func New(bus i2c.Bus) (*Dev, error) {
	dev := &Dev{d: i2c.Dev{Bus: bus, Addr: Address}}

	serial, err := dev.run(cmdGetSerialID)
	if err != nil {
		return nil, err
	}
	copy(dev.serial[:], serial)

	features, err := dev.run(cmdGetFeatureSet)
	if err != nil {
		return nil, err
	}
	dev.features = features[0]
	if dev.features != 0x0020 && dev.features != 0x0022 {
		return nil, fmt.Errorf("%w: 0x%04X", ErrFeatureSet, dev.features)
	}
	return dev, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("SGP30{%s, serial=%04x%04x%04x}", d.d.Bus, d.serial[0], d.serial[1], d.serial[2])
}

// SerialID returns the 48 bit serial number as three words.
func (d *Dev) SerialID() [3]uint16 {
	return d.serial
}

// FeatureSet returns the product type and IAQ algorithm version word.
func (d *Dev) FeatureSet() uint16 {
	return d.features
}

// IAQInit starts the air quality algorithm. For the first 15s after this
// the sensor reports 400ppm eCO2 and 0ppb TVOC.
func (d *Dev) IAQInit() error {
	_, err := d.run(cmdIAQInit)
	return err
}

// MeasureIAQ returns eCO2 in ppm and TVOC in ppb. The algorithm expects one
// call per second.
func (d *Dev) MeasureIAQ() (eco2, tvoc uint16, err error) {
	w, err := d.run(cmdMeasureIAQ)
	if err != nil {
		return 0, 0, err
	}
	return w[0], w[1], nil
}

// IAQBaseline returns the current algorithm baseline.
func (d *Dev) IAQBaseline() (Baseline, error) {
	w, err := d.run(cmdGetIAQBaseline)
	if err != nil {
		return Baseline{}, err
	}
	return Baseline{ECO2: w[0], TVOC: w[1]}, nil
}

// SetIAQBaseline restores a baseline saved from an earlier run. The sensor
// expects the TVOC word first.
func (d *Dev) SetIAQBaseline(b Baseline) error {
	_, err := d.run(cmdSetIAQBaseline, b.TVOC, b.ECO2)
	return err
}

// SetAbsoluteHumidity sets humidity compensation in g/m³. Zero disables it.
func (d *Dev) SetAbsoluteHumidity(gramsPerM3 float64) error {
	if gramsPerM3 < 0 || gramsPerM3 >= 256 {
		return fmt.Errorf("sgp30: absolute humidity %.3f g/m³ out of range", gramsPerM3)
	}
	// 8.8 fixed point
	return d.setHumidityWord(uint16(gramsPerM3 * 256))
}

func (d *Dev) setHumidityWord(w uint16) error {
	_, err := d.run(cmdSetHumidity, w)
	return err
}

// SetIAQRelativeHumidity sets humidity compensation from a temperature in °C
// and a relative humidity in %.
func (d *Dev) SetIAQRelativeHumidity(celsius, relativeHumidity float64) error {
	return d.SetAbsoluteHumidity(AbsoluteHumidity(celsius, relativeHumidity))
}

// AbsoluteHumidity converts °C and %RH to g/m³ with the Magnus formula.
func AbsoluteHumidity(celsius, relativeHumidity float64) float64 {
	vapour := (relativeHumidity / 100.0) * 6.112 * math.Exp((17.62*celsius)/(243.12+celsius))
	return 216.7 * (vapour / (273.15 + celsius))
}

// run writes a command with optional argument words, waits for it to
// complete and reads back the response words.
func (d *Dev) run(c command, args ...uint16) ([]uint16, error) {
	w := make([]byte, 2, 2+3*len(args))
	w[0] = byte(c.code >> 8)
	w[1] = byte(c.code)
	for _, a := range args {
		w = appendWord(w, a)
	}
	if err := d.d.Tx(w, nil); err != nil {
		return nil, fmt.Errorf("sgp30: %s: %w", c.name, err)
	}
	time.Sleep(c.delay)
	if c.words == 0 {
		return nil, nil
	}

	r := make([]byte, 3*c.words)
	if err := d.d.Tx(nil, r); err != nil {
		return nil, fmt.Errorf("sgp30: %s: read: %w", c.name, err)
	}
	words := make([]uint16, c.words)
	for i := range words {
		chunk := r[3*i : 3*i+3]
		if got := crc8(chunk[:2]); got != chunk[2] {
			return nil, fmt.Errorf("%w: %s word %d: got 0x%02X, want 0x%02X", ErrCRC, c.name, i, chunk[2], got)
		}
		words[i] = uint16(chunk[0])<<8 | uint16(chunk[1])
	}
	return words, nil
}

func appendWord(b []byte, w uint16) []byte {
	hi, lo := byte(w>>8), byte(w)
	return append(b, hi, lo, crc8([]byte{hi, lo}))
}

// crc8 is the Sensirion checksum: polynomial 0x31, init 0xFF.
func crc8(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
