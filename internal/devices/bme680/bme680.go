// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bme680 provides a driver for Bosch's BME680 temperature, humidity,
// pressure and gas sensor over I²C.
// Datasheet: https://www.bosch-sensortec.com/media/boschsensortec/downloads/datasheets/bst-bme680-ds001.pdf
//
// Compensation follows the integer formulas of the Bosch reference driver
// (https://github.com/BoschSensortec/BME680_driver).
package bme680

import (
	"errors"
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3/i2c"
)

var (
	ErrChipID  = errors.New("bme680: unexpected chip id")
	ErrTimeout = errors.New("bme680: measurement timed out")
)

// Opts configures oversampling, filtering and the gas heater.
type Opts struct {
	Temperature Oversampling
	Pressure    Oversampling
	Humidity    Oversampling
	Filter      FilterCoefficient

	HeaterTempC    int           // target hot plate temperature, max 400
	HeaterDuration time.Duration // heating time before the gas conversion
	AmbientTempC   int           // used for the heater resistance estimate

	SeaLevelHPa float64 // reference pressure for Altitude
}

// DefaultOpts matches the settings most breakout libraries ship with.
var DefaultOpts = Opts{
	Temperature:    Sampling8X,
	Pressure:       Sampling4X,
	Humidity:       Sampling2X,
	Filter:         Coeff3,
	HeaterTempC:    320,
	HeaterDuration: 150 * time.Millisecond,
	AmbientTempC:   25,
	SeaLevelHPa:    1013.25,
}

// minRefresh is the minimum time between two forced measurements; reads in
// between reuse the last one.
const minRefresh = 100 * time.Millisecond

type calibration struct {
	t1 uint16
	t2 int16
	t3 int8

	p1  uint16
	p2  int16
	p3  int8
	p4  int16
	p5  int16
	p6  int8
	p7  int8
	p8  int16
	p9  int16
	p10 uint8

	h1 uint16
	h2 uint16
	h3 int8
	h4 int8
	h5 int8
	h6 uint8
	h7 int8

	gh1 int8
	gh2 int16
	gh3 int8

	resHeatRange uint8
	resHeatVal   int8
	rangeSwErr   int8
}

// Dev is a BME680 on an I²C bus.
type Dev struct {
	d    i2c.Dev
	opts Opts
	cal  calibration

	last        time.Time
	temperature float64 // °C
	pressure    float64 // Pa
	humidity    float64 // %RH
	gas         float64 // Ω
	gasStable   bool
}

// NewI2C resets the sensor, reads its calibration and programs the heater.
func NewI2C(bus i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{d: i2c.Dev{Bus: bus, Addr: addr}, opts: *opts}
	if d.opts.SeaLevelHPa == 0 {
		d.opts.SeaLevelHPa = DefaultOpts.SeaLevelHPa
	}

	if err := d.writeReg(regSoftReset, softResetCmd); err != nil {
		return nil, fmt.Errorf("bme680: soft reset: %w", err)
	}
	time.Sleep(5 * time.Millisecond)

	id, err := d.readReg(regChipID)
	if err != nil {
		return nil, fmt.Errorf("bme680: read chip id: %w", err)
	}
	if id != ChipID {
		return nil, fmt.Errorf("%w: 0x%02X", ErrChipID, id)
	}

	if err := d.readCalibration(); err != nil {
		return nil, err
	}
	if err := d.configure(); err != nil {
		return nil, err
	}
	return d, nil
}

// ReadChipID reads the chip id register without touching the sensor
// configuration. A BME680 answers 0x61.
func ReadChipID(bus i2c.Bus, addr uint16) (byte, error) {
	d := &Dev{d: i2c.Dev{Bus: bus, Addr: addr}}
	return d.readReg(regChipID)
}

func (d *Dev) String() string {
	return fmt.Sprintf("BME680{%s, 0x%02X}", d.d.Bus, d.d.Addr)
}

func (d *Dev) readCalibration() error {
	var c [coeffSize]byte
	if err := d.d.Tx([]byte{regCoeff1}, c[:25]); err != nil {
		return fmt.Errorf("bme680: read calibration: %w", err)
	}
	if err := d.d.Tx([]byte{regCoeff2}, c[25:]); err != nil {
		return fmt.Errorf("bme680: read calibration: %w", err)
	}

	d.cal.t1 = uint16(c[idxT1MSB])<<8 | uint16(c[idxT1LSB])
	d.cal.t2 = int16(uint16(c[idxT2MSB])<<8 | uint16(c[idxT2LSB]))
	d.cal.t3 = int8(c[idxT3])

	d.cal.p1 = uint16(c[idxP1MSB])<<8 | uint16(c[idxP1LSB])
	d.cal.p2 = int16(uint16(c[idxP2MSB])<<8 | uint16(c[idxP2LSB]))
	d.cal.p3 = int8(c[idxP3])
	d.cal.p4 = int16(uint16(c[idxP4MSB])<<8 | uint16(c[idxP4LSB]))
	d.cal.p5 = int16(uint16(c[idxP5MSB])<<8 | uint16(c[idxP5LSB]))
	d.cal.p6 = int8(c[idxP6])
	d.cal.p7 = int8(c[idxP7])
	d.cal.p8 = int16(uint16(c[idxP8MSB])<<8 | uint16(c[idxP8LSB]))
	d.cal.p9 = int16(uint16(c[idxP9MSB])<<8 | uint16(c[idxP9LSB]))
	d.cal.p10 = c[idxP10]

	// H1 and H2 share the nibbles of 0xE2.
	d.cal.h1 = uint16(c[idxH1MSB])<<4 | uint16(c[idxH1LSB]&0x0F)
	d.cal.h2 = uint16(c[idxH2MSB])<<4 | uint16(c[idxH2LSB]>>4)
	d.cal.h3 = int8(c[idxH3])
	d.cal.h4 = int8(c[idxH4])
	d.cal.h5 = int8(c[idxH5])
	d.cal.h6 = c[idxH6]
	d.cal.h7 = int8(c[idxH7])

	d.cal.gh1 = int8(c[idxGH1])
	d.cal.gh2 = int16(uint16(c[idxGH2MSB])<<8 | uint16(c[idxGH2LSB]))
	d.cal.gh3 = int8(c[idxGH3])

	v, err := d.readReg(regResHeatVal)
	if err != nil {
		return fmt.Errorf("bme680: read heater value: %w", err)
	}
	d.cal.resHeatVal = int8(v)

	v, err = d.readReg(regResHeatRange)
	if err != nil {
		return fmt.Errorf("bme680: read heater range: %w", err)
	}
	d.cal.resHeatRange = (v & 0x30) >> 4

	v, err = d.readReg(regRangeSwErr)
	if err != nil {
		return fmt.Errorf("bme680: read range error: %w", err)
	}
	d.cal.rangeSwErr = (int8(v) & -16) / 16
	return nil
}

func (d *Dev) configure() error {
	writes := []struct {
		reg, val byte
		what     string
	}{
		{regResHeat0, d.heaterResistance(), "heater resistance"},
		{regGasWait0, heaterDuration(d.opts.HeaterDuration), "heater duration"},
		{regCtrlHum, byte(d.opts.Humidity) & 0x07, "humidity oversampling"},
		{regConfig, byte(d.opts.Filter&0x07) << 2, "filter"},
		{regCtrlMeas, d.ctrlMeas(), "oversampling"},
		{regCtrlGas1, runGas, "gas control"},
	}
	for _, w := range writes {
		if err := d.writeReg(w.reg, w.val); err != nil {
			return fmt.Errorf("bme680: set %s: %w", w.what, err)
		}
	}
	return nil
}

func (d *Dev) ctrlMeas() byte {
	return byte(d.opts.Temperature&0x07)<<5 | byte(d.opts.Pressure&0x07)<<2
}

// Temperature returns the compensated temperature in °C.
func (d *Dev) Temperature() (float64, error) {
	if err := d.refresh(); err != nil {
		return 0, err
	}
	return d.temperature, nil
}

// Pressure returns the pressure in hPa.
func (d *Dev) Pressure() (float64, error) {
	if err := d.refresh(); err != nil {
		return 0, err
	}
	return d.pressure / 100, nil
}

// RelativeHumidity returns the relative humidity in %.
func (d *Dev) RelativeHumidity() (float64, error) {
	if err := d.refresh(); err != nil {
		return 0, err
	}
	return d.humidity, nil
}

// Gas returns the gas sensor resistance in Ω.
func (d *Dev) Gas() (float64, error) {
	if err := d.refresh(); err != nil {
		return 0, err
	}
	return d.gas, nil
}

// GasStable reports whether the last gas conversion was valid and ran with
// the heater at its target temperature.
func (d *Dev) GasStable() bool {
	return d.gasStable
}

// Altitude returns the altitude in m derived from the pressure and
// Opts.SeaLevelHPa.
func (d *Dev) Altitude() (float64, error) {
	if err := d.refresh(); err != nil {
		return 0, err
	}
	return Altitude(d.pressure/100, d.opts.SeaLevelHPa), nil
}

// Altitude converts a pressure to an altitude with the barometric formula.
func Altitude(pressureHPa, seaLevelHPa float64) float64 {
	return 44330 * (1.0 - math.Pow(pressureHPa/seaLevelHPa, 0.1903))
}

func (d *Dev) refresh() error {
	if !d.last.IsZero() && time.Since(d.last) < minRefresh {
		return nil
	}
	if err := d.measure(); err != nil {
		return err
	}
	d.last = time.Now()
	return nil
}

// measure runs one forced-mode conversion and compensates the results.
func (d *Dev) measure() error {
	if err := d.writeReg(regCtrlMeas, d.ctrlMeas()|forcedMode); err != nil {
		return fmt.Errorf("bme680: trigger: %w", err)
	}
	time.Sleep(d.measurementDuration())

	var b [dataBlockSize]byte
	deadline := time.Now().Add(time.Second)
	for {
		if err := d.d.Tx([]byte{regMeasStatus}, b[:]); err != nil {
			return fmt.Errorf("bme680: read data: %w", err)
		}
		if b[0]&newDataMask != 0 {
			break
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(5 * time.Millisecond)
	}

	adcPres := int64(b[2])<<12 | int64(b[3])<<4 | int64(b[4])>>4
	adcTemp := int64(b[5])<<12 | int64(b[6])<<4 | int64(b[7])>>4
	adcHum := int64(b[8])<<8 | int64(b[9])
	adcGas := int64(b[13])<<2 | int64(b[14])>>6
	gasRange := b[14] & 0x0F

	tFine := d.cal.tFine(adcTemp)
	d.temperature = float64(compensateTemperature(tFine)) / 100
	d.pressure = float64(d.cal.compensatePressure(tFine, adcPres))
	d.humidity = float64(d.cal.compensateHumidity(tFine, adcHum)) / 1000
	d.gas = float64(d.cal.compensateGas(adcGas, gasRange))
	d.gasStable = b[14]&(gasValidMask|heatStabMask) == gasValidMask|heatStabMask
	return nil
}

// measurementDuration estimates the TPH conversion time plus heating.
func (d *Dev) measurementDuration() time.Duration {
	cycles := [...]int{0, 1, 2, 4, 8, 16}
	osCycles := func(o Oversampling) int {
		if int(o) < len(cycles) {
			return cycles[o]
		}
		return cycles[len(cycles)-1]
	}
	n := osCycles(d.opts.Temperature) + osCycles(d.opts.Pressure) + osCycles(d.opts.Humidity)
	us := n*1963 + 477*4 + 477*5 + 1000
	return time.Duration(us)*time.Microsecond + d.opts.HeaterDuration
}

func (c *calibration) tFine(adcTemp int64) int64 {
	var1 := (adcTemp >> 3) - (int64(c.t1) << 1)
	var2 := (var1 * int64(c.t2)) >> 11
	var3 := ((var1 >> 1) * (var1 >> 1)) >> 12
	var3 = (var3 * (int64(c.t3) << 4)) >> 14
	return var2 + var3
}

// compensateTemperature returns centi-degrees Celsius.
func compensateTemperature(tFine int64) int64 {
	return ((tFine * 5) + 128) >> 8
}

// compensatePressure returns Pa.
func (c *calibration) compensatePressure(tFine, adcPres int64) int64 {
	var1 := (tFine >> 1) - 64000
	var2 := ((((var1 >> 2) * (var1 >> 2)) >> 11) * int64(c.p6)) >> 2
	var2 += (var1 * int64(c.p5)) << 1
	var2 = (var2 >> 2) + (int64(c.p4) << 16)
	var1 = (((((var1 >> 2) * (var1 >> 2)) >> 13) * (int64(c.p3) << 5)) >> 3) + ((int64(c.p2) * var1) >> 1)
	var1 >>= 18
	var1 = ((32768 + var1) * int64(c.p1)) >> 15
	if var1 == 0 {
		return 0
	}

	p := 1048576 - adcPres
	p = (p - (var2 >> 12)) * 3125
	if p >= 1<<30 {
		p = (p / var1) << 1
	} else {
		p = (p << 1) / var1
	}
	var1 = (int64(c.p9) * (((p >> 3) * (p >> 3)) >> 13)) >> 12
	var2 = ((p >> 2) * int64(c.p8)) >> 13
	var3 := ((p >> 8) * (p >> 8) * (p >> 8) * int64(c.p10)) >> 17
	return p + ((var1 + var2 + var3 + (int64(c.p7) << 7)) >> 4)
}

// compensateHumidity returns milli-percent relative humidity, clamped to 0..100%.
func (c *calibration) compensateHumidity(tFine, adcHum int64) int64 {
	tempScaled := ((tFine * 5) + 128) >> 8
	var1 := adcHum - int64(c.h1)*16 - (((tempScaled * int64(c.h3)) / 100) >> 1)
	var2 := (int64(c.h2) * (((tempScaled * int64(c.h4)) / 100) +
		(((tempScaled * ((tempScaled * int64(c.h5)) / 100)) >> 6) / 100) + (1 << 14))) >> 10
	var3 := var1 * var2
	var4 := int64(c.h6) << 7
	var4 = (var4 + ((tempScaled * int64(c.h7)) / 100)) >> 4
	var5 := ((var3 >> 14) * (var3 >> 14)) >> 10
	var6 := (var4 * var5) >> 1
	hum := (((var3 + var6) >> 10) * 1000) >> 12
	switch {
	case hum > 100000:
		return 100000
	case hum < 0:
		return 0
	}
	return hum
}

// compensateGas returns the gas resistance in Ω.
func (c *calibration) compensateGas(adcGas int64, gasRange byte) int64 {
	r := gasRange & 0x0F
	var1 := ((1340 + 5*int64(c.rangeSwErr)) * gasLookup1[r]) >> 16
	var2 := (adcGas << 15) - 16777216 + var1
	if var2 == 0 {
		return 0
	}
	var3 := (gasLookup2[r] * var1) >> 9
	return (var3 + (var2 >> 1)) / var2
}

// heaterResistance converts the target heater temperature into the
// res_heat_0 register value.
func (d *Dev) heaterResistance() byte {
	temp := int64(d.opts.HeaterTempC)
	if temp > 400 {
		temp = 400
	}
	amb := int64(d.opts.AmbientTempC)
	c := d.cal

	var1 := ((amb * int64(c.gh3)) / 1000) * 256
	var2 := (int64(c.gh1) + 784) * (((((int64(c.gh2) + 154009) * temp * 5) / 100) + 3276800) / 10)
	var3 := var1 + (var2 / 2)
	var4 := var3 / (int64(c.resHeatRange) + 4)
	var5 := (131 * int64(c.resHeatVal)) + 65536
	x100 := ((var4 / var5) - 250) * 34
	return byte((x100 + 50) / 100)
}

// heaterDuration encodes a heating time into the gas_wait register: six
// bits of milliseconds and a two bit multiplier (x1, x4, x16, x64).
func heaterDuration(dur time.Duration) byte {
	ms := int(dur / time.Millisecond)
	if ms >= 0xFC0 {
		return 0xFF
	}
	factor := 0
	for ms > 0x3F {
		ms /= 4
		factor++
	}
	return byte(ms + factor*64)
}

func (d *Dev) readReg(reg byte) (byte, error) {
	var b [1]byte
	if err := d.d.Tx([]byte{reg}, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Dev) writeReg(reg, val byte) error {
	return d.d.Tx([]byte{reg, val}, nil)
}
