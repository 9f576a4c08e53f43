// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sgp30

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func words(ws ...uint16) []byte {
	var b []byte
	for _, w := range ws {
		b = appendWord(b, w)
	}
	return b
}

func cmd(code uint16, args ...uint16) []byte {
	return append([]byte{byte(code >> 8), byte(code)}, words(args...)...)
}

// probeOps is what New sends to a healthy sensor.
func probeOps(features uint16) []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: Address, W: cmd(0x3682)},
		{Addr: Address, R: words(0x0000, 0x0123, 0xABCD)},
		{Addr: Address, W: cmd(0x202F)},
		{Addr: Address, R: words(features)},
	}
}

func newPlayback(ops ...[]i2ctest.IO) *i2ctest.Playback {
	var all []i2ctest.IO
	for _, o := range ops {
		all = append(all, o...)
	}
	return &i2ctest.Playback{Ops: all, DontPanic: true}
}

func TestCRC8(t *testing.T) {
	// Datasheet example.
	assert.Equal(t, byte(0x92), crc8([]byte{0xBE, 0xEF}))
}

func TestNew(t *testing.T) {
	bus := newPlayback(probeOps(0x0022))

	dev, err := New(bus)
	require.NoError(t, err)
	assert.Equal(t, [3]uint16{0x0000, 0x0123, 0xABCD}, dev.SerialID())
	assert.Equal(t, uint16(0x0022), dev.FeatureSet())
	require.NoError(t, bus.Close())
}

func TestNewRejectsUnknownFeatureSet(t *testing.T) {
	bus := newPlayback(probeOps(0x1020))

	_, err := New(bus)
	require.ErrorIs(t, err, ErrFeatureSet)
}

func TestNewRejectsBadCRC(t *testing.T) {
	ops := probeOps(0x0020)
	ops[1].R[2] ^= 0xFF
	bus := newPlayback(ops[:2])

	_, err := New(bus)
	require.ErrorIs(t, err, ErrCRC)
}

func TestMeasureIAQ(t *testing.T) {
	bus := newPlayback(probeOps(0x0020), []i2ctest.IO{
		{Addr: Address, W: cmd(0x2003)},
		{Addr: Address, W: cmd(0x2008)},
		{Addr: Address, R: words(450, 12)},
	})

	dev, err := New(bus)
	require.NoError(t, err)
	require.NoError(t, dev.IAQInit())

	eco2, tvoc, err := dev.MeasureIAQ()
	require.NoError(t, err)
	assert.Equal(t, uint16(450), eco2)
	assert.Equal(t, uint16(12), tvoc)
	require.NoError(t, bus.Close())
}

func TestBaseline(t *testing.T) {
	bus := newPlayback(probeOps(0x0020), []i2ctest.IO{
		// TVOC first on the wire.
		{Addr: Address, W: cmd(0x201E, 0x8AAE, 0x8973)},
		{Addr: Address, W: cmd(0x2015)},
		{Addr: Address, R: words(0x8973, 0x8AAE)},
	})

	dev, err := New(bus)
	require.NoError(t, err)
	require.NoError(t, dev.SetIAQBaseline(Baseline{ECO2: 0x8973, TVOC: 0x8AAE}))

	b, err := dev.IAQBaseline()
	require.NoError(t, err)
	assert.Equal(t, Baseline{ECO2: 0x8973, TVOC: 0x8AAE}, b)
	require.NoError(t, bus.Close())
}

func TestAbsoluteHumidity(t *testing.T) {
	// 22.1°C at 44% is roughly 8.6 g/m³.
	assert.InDelta(t, 8.6, AbsoluteHumidity(22.1, 44), 0.1)
	assert.Equal(t, 0.0, AbsoluteHumidity(25, 0))
}

func TestSetIAQRelativeHumidity(t *testing.T) {
	ah := AbsoluteHumidity(22.1, 44)
	bus := newPlayback(probeOps(0x0020), []i2ctest.IO{
		{Addr: Address, W: cmd(0x2061, uint16(ah*256))},
	})

	dev, err := New(bus)
	require.NoError(t, err)
	require.NoError(t, dev.SetIAQRelativeHumidity(22.1, 44))
	require.NoError(t, bus.Close())
}

func TestSetAbsoluteHumidityRange(t *testing.T) {
	dev := &Dev{}
	assert.Error(t, dev.SetAbsoluteHumidity(-1))
	assert.Error(t, dev.SetAbsoluteHumidity(300))
}
