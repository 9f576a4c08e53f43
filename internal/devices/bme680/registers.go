// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bme680

// Address is the default I²C address (SDO high). 0x76 when SDO is low.
const Address uint16 = 0x77

// ChipID is the value of the chip id register on a BME680.
const ChipID byte = 0x61

const (
	regChipID     byte = 0xD0 // useful for checking the connection
	regSoftReset  byte = 0xE0
	regConfig     byte = 0x75 // IIR filter
	regCtrlMeas   byte = 0x74 // temperature/pressure oversampling, mode
	regCtrlHum    byte = 0x72 // humidity oversampling
	regCtrlGas1   byte = 0x71 // run_gas, heater profile
	regGasWait0   byte = 0x64
	regResHeat0   byte = 0x5A
	regMeasStatus byte = 0x1D // start of the 17 byte data block

	regCoeff1 byte = 0x89 // 25 bytes
	regCoeff2 byte = 0xE1 // 16 bytes

	regResHeatVal   byte = 0x00
	regResHeatRange byte = 0x02
	regRangeSwErr   byte = 0x04
)

const (
	softResetCmd  byte = 0xB6
	newDataMask   byte = 0x80
	runGas        byte = 0x10
	forcedMode    byte = 0x01
	gasValidMask  byte = 0x20
	heatStabMask  byte = 0x10
	coeffSize          = 25 + 16
	dataBlockSize      = 17
)

// Oversampling settings as written to the control registers.
type Oversampling byte

const (
	Skipped Oversampling = iota
	Sampling1X
	Sampling2X
	Sampling4X
	Sampling8X
	Sampling16X
)

// FilterCoefficient is the IIR filter setting. Higher values mean steadier
// measurements but slower reaction times.
type FilterCoefficient byte

const (
	Coeff0 FilterCoefficient = iota
	Coeff1
	Coeff3
	Coeff7
	Coeff15
	Coeff31
	Coeff63
	Coeff127
)

// Indices into the concatenated calibration block (0x89..0xA1, 0xE1..0xF0).
const (
	idxT2LSB  = 1
	idxT2MSB  = 2
	idxT3     = 3
	idxP1LSB  = 5
	idxP1MSB  = 6
	idxP2LSB  = 7
	idxP2MSB  = 8
	idxP3     = 9
	idxP4LSB  = 11
	idxP4MSB  = 12
	idxP5LSB  = 13
	idxP5MSB  = 14
	idxP7     = 15
	idxP6     = 16
	idxP8LSB  = 19
	idxP8MSB  = 20
	idxP9LSB  = 21
	idxP9MSB  = 22
	idxP10    = 23
	idxH2MSB  = 25
	idxH2LSB  = 26
	idxH1LSB  = 26
	idxH1MSB  = 27
	idxH3     = 28
	idxH4     = 29
	idxH5     = 30
	idxH6     = 31
	idxH7     = 32
	idxT1LSB  = 33
	idxT1MSB  = 34
	idxGH2LSB = 35
	idxGH2MSB = 36
	idxGH1    = 37
	idxGH3    = 38
)

// Gas resistance range lookup tables from the Bosch reference driver.
var (
	gasLookup1 = [16]int64{
		2147483647, 2147483647, 2147483647, 2147483647, 2147483647, 2126008810, 2147483647, 2130303777,
		2147483647, 2147483647, 2143188679, 2136746228, 2147483647, 2126008810, 2147483647, 2147483647,
	}
	gasLookup2 = [16]int64{
		4096000000, 2048000000, 1024000000, 512000000, 255744255, 127110228, 64000000, 32258064,
		16016016, 8000000, 4000000, 2000000, 1000000, 500000, 250000, 125000,
	}
)
