// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bme680

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

// testCalibration is a coefficient block chosen so the compensated values
// can be worked out by hand.
func testCalibration() [coeffSize]byte {
	var c [coeffSize]byte
	c[idxT1LSB], c[idxT1MSB] = 0xA8, 0x61 // 25000
	c[idxT2LSB], c[idxT2MSB] = 0x90, 0x65 // 26000
	c[idxT3] = 3
	c[idxP1LSB], c[idxP1MSB] = 0xA0, 0x8C // 36000
	c[idxH2MSB] = 0x40                    // H2 = 1024
	return c
}

func initOps(c [coeffSize]byte) []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: Address, W: []byte{regSoftReset, softResetCmd}},
		{Addr: Address, W: []byte{regChipID}, R: []byte{ChipID}},
		{Addr: Address, W: []byte{regCoeff1}, R: c[:25]},
		{Addr: Address, W: []byte{regCoeff2}, R: c[25:]},
		{Addr: Address, W: []byte{regResHeatVal}, R: []byte{0}},
		{Addr: Address, W: []byte{regResHeatRange}, R: []byte{0}},
		{Addr: Address, W: []byte{regRangeSwErr}, R: []byte{0}},
		// 320°C target with zeroed heater coefficients.
		{Addr: Address, W: []byte{regResHeat0, 207}},
		{Addr: Address, W: []byte{regGasWait0, 0x65}},
		{Addr: Address, W: []byte{regCtrlHum, 0x02}},
		{Addr: Address, W: []byte{regConfig, 0x08}},
		{Addr: Address, W: []byte{regCtrlMeas, 0x8C}},
		{Addr: Address, W: []byte{regCtrlGas1, runGas}},
	}
}

func TestNewI2CChipIDMismatch(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: Address, W: []byte{regSoftReset, softResetCmd}},
			{Addr: Address, W: []byte{regChipID}, R: []byte{0x60}},
		},
		DontPanic: true,
	}

	_, err := NewI2C(bus, Address, nil)
	require.ErrorIs(t, err, ErrChipID)
	require.NoError(t, bus.Close())
}

func TestForcedMeasurement(t *testing.T) {
	ops := initOps(testCalibration())
	ops = append(ops,
		i2ctest.IO{Addr: Address, W: []byte{regCtrlMeas, 0x8D}},
		i2ctest.IO{Addr: Address, W: []byte{regMeasStatus}, R: []byte{
			0x80, 0x00,
			0x73, 0x60, 0x00, // pressure adc 472576
			0x75, 0x30, 0x00, // temperature adc 480000
			0x2D, 0x00, // humidity adc 11520
			0x00, 0x00, 0x00,
			0x80, 0x30, // gas adc 512, range 0, valid, heater stable
			0x00, 0x00,
		}},
	)
	bus := &i2ctest.Playback{Ops: ops, DontPanic: true}

	dev, err := NewI2C(bus, Address, nil)
	require.NoError(t, err)

	temp, err := dev.Temperature()
	require.NoError(t, err)
	assert.InDelta(t, 24.80, temp, 1e-9)

	// Within the refresh window nothing else goes on the wire.
	pres, err := dev.Pressure()
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, pres, 1e-9)

	hum, err := dev.RelativeHumidity()
	require.NoError(t, err)
	assert.InDelta(t, 45.0, hum, 1e-9)

	gas, err := dev.Gas()
	require.NoError(t, err)
	assert.InDelta(t, 8000000.0, gas, 1e-9)
	assert.True(t, dev.GasStable())

	alt, err := dev.Altitude()
	require.NoError(t, err)
	assert.InDelta(t, 110.9, alt, 0.5)

	require.NoError(t, bus.Close())
}

func TestHeaterDuration(t *testing.T) {
	assert.Equal(t, byte(0x65), heaterDuration(150*time.Millisecond))
	assert.Equal(t, byte(63), heaterDuration(63*time.Millisecond))
	assert.Equal(t, byte(80), heaterDuration(64*time.Millisecond))
	assert.Equal(t, byte(0xFF), heaterDuration(5*time.Second))
}

func TestAltitude(t *testing.T) {
	assert.InDelta(t, 0.0, Altitude(1013.25, 1013.25), 1e-9)
	assert.InDelta(t, 988.6, Altitude(900, 1013.25), 1.0)
}

func TestCompensateHumidityClamps(t *testing.T) {
	c := calibration{h2: 1024}
	assert.Equal(t, int64(100000), c.compensateHumidity(0, 60000))
	assert.Equal(t, int64(0), c.compensateHumidity(0, 0))
}

func TestCompensatePressureZeroP1(t *testing.T) {
	c := calibration{}
	assert.Equal(t, int64(0), c.compensatePressure(126970, 472576))
}
