// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package dht22 reads the AM2302/DHT22 single-wire temperature and humidity
// sensor by timing the data line through a periph GPIO pin.
//
// The protocol is bit-banged from user space, so reads fail now and then when
// the scheduler gets in the way. Those failures are reported with the errors
// below and can be retried on the next cycle.
package dht22

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

var (
	ErrNoResponse  = errors.New("dht22: sensor not found, check wiring")
	ErrShortRead   = errors.New("dht22: incomplete frame")
	ErrChecksum    = errors.New("dht22: checksum mismatch")
	ErrImplausible = errors.New("dht22: implausible reading")
)

const (
	// triggerLow is how long the host holds the line low to request a frame.
	triggerLow = 1 * time.Millisecond
	// frameTimeout bounds the whole 40 bit transfer (~5ms on the wire).
	frameTimeout = 50 * time.Millisecond
	// bitThreshold separates a 0 bit (26-28µs high) from a 1 bit (70µs high).
	bitThreshold = 50 * time.Microsecond
	// minInterval is the sensor's minimum time between two conversions.
	minInterval = 2 * time.Second

	frameBits = 40
)

// Dev is a DHT22 on one GPIO pin.
type Dev struct {
	pin gpio.PinIO

	lastRead    time.Time
	lastErr     error
	temperature float64
	humidity    float64
	numErrors   int
}

// NewPin returns a DHT22 on an already resolved pin and leaves the line idle high.
func NewPin(pin gpio.PinIO) (*Dev, error) {
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("dht22: %s: set input: %w", pin, err)
	}
	return &Dev{pin: pin}, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("DHT22{%s}", d.pin)
}

// Read returns humidity in % and temperature in °C from one conversion, in
// the same order as github.com/MichaelS11/go-dht. Like Temperature and
// Humidity it starts a new conversion only if the last one is older than two
// seconds.
func (d *Dev) Read() (humidity, temperature float64, err error) {
	if err := d.measure(); err != nil {
		return 0, 0, err
	}
	return d.humidity, d.temperature, nil
}

// Temperature returns the temperature in °C. A new conversion is started only
// if the previous one is older than two seconds; otherwise the previous
// result, or its error, is returned again.
func (d *Dev) Temperature() (float64, error) {
	if err := d.measure(); err != nil {
		return 0, err
	}
	return d.temperature, nil
}

// Humidity returns the relative humidity in %. It shares the conversion
// cache with Temperature.
func (d *Dev) Humidity() (float64, error) {
	if err := d.measure(); err != nil {
		return 0, err
	}
	return d.humidity, nil
}

// Errors returns the number of failed conversions since New.
func (d *Dev) Errors() int {
	return d.numErrors
}

func (d *Dev) measure() error {
	if !d.lastRead.IsZero() && time.Since(d.lastRead) < minInterval {
		return d.lastErr
	}

	d.lastErr = d.convert()
	d.lastRead = time.Now()
	if d.lastErr != nil {
		d.numErrors++
	}
	return d.lastErr
}

func (d *Dev) convert() error {
	highs, err := d.capture()
	if err != nil {
		return err
	}
	t, h, err := decode(highs)
	if err != nil {
		return err
	}
	d.temperature = t
	d.humidity = h
	return nil
}

// capture triggers a conversion and returns the duration of every high pulse
// seen on the line until the frame is complete or times out.
func (d *Dev) capture() ([]time.Duration, error) {
	if err := d.pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("dht22: %s: trigger: %w", d.pin, err)
	}
	time.Sleep(triggerLow)
	if err := d.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("dht22: %s: release: %w", d.pin, err)
	}

	// Line idle high, sensor ack (80µs low + 80µs high), then 40 bits.
	const want = frameBits + 2
	highs := make([]time.Duration, 0, want)

	deadline := time.Now().Add(frameTimeout)
	level := d.pin.Read()
	edge := time.Now()
	for len(highs) < want {
		now := time.Now()
		if now.After(deadline) {
			break
		}
		l := d.pin.Read()
		if l == level {
			continue
		}
		if level == gpio.High {
			highs = append(highs, now.Sub(edge))
		}
		level = l
		edge = now
	}
	return highs, nil
}

// decode turns the captured high pulses into °C and %RH.
func decode(highs []time.Duration) (float64, float64, error) {
	if len(highs) < 2 {
		return 0, 0, ErrNoResponse
	}
	if len(highs) < frameBits {
		return 0, 0, fmt.Errorf("%w: %d of %d bits", ErrShortRead, len(highs), frameBits)
	}

	var frame [5]byte
	for i, p := range highs[len(highs)-frameBits:] {
		frame[i/8] <<= 1
		if p > bitThreshold {
			frame[i/8] |= 1
		}
	}
	return parseFrame(frame)
}

// parseFrame validates the checksum and scales the raw 16 bit words.
func parseFrame(b [5]byte) (float64, float64, error) {
	sum := b[0] + b[1] + b[2] + b[3]
	if sum != b[4] {
		return 0, 0, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrChecksum, b[4], sum)
	}

	humidity := float64(uint16(b[0])<<8|uint16(b[1])) / 10
	temperature := float64(uint16(b[2]&0x7F)<<8|uint16(b[3])) / 10
	if b[2]&0x80 != 0 {
		temperature = -temperature
	}

	if humidity > 100 || temperature < -40 || temperature > 80 {
		return 0, 0, fmt.Errorf("%w: %.1f°C %.1f%%", ErrImplausible, temperature, humidity)
	}
	return temperature, humidity, nil
}

// IsTransient reports whether err is one of the recoverable read failures.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNoResponse) ||
		errors.Is(err, ErrShortRead) ||
		errors.Is(err, ErrChecksum) ||
		errors.Is(err, ErrImplausible)
}
