// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package env

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Sentinel is the legacy encoding of a missing DHT22 value.
const Sentinel = -1.0

// GroupFields is the number of values in one GroupReading.
const GroupFields = 9

// Value is a reading that may be unavailable for one sampling cycle.
// The zero Value is unavailable.
type Value struct {
	v  float64
	ok bool
}

// Some returns an available Value.
func Some(v float64) Value {
	return Value{v: v, ok: true}
}

// Unavailable returns a Value marking a missing reading.
func Unavailable() Value {
	return Value{}
}

// Get returns the value and whether it is available.
func (v Value) Get() (float64, bool) {
	return v.v, v.ok
}

// Valid reports whether the value is available.
func (v Value) Valid() bool {
	return v.ok
}

// Or returns the value, or fallback if it is unavailable.
func (v Value) Or(fallback float64) float64 {
	if !v.ok {
		return fallback
	}
	return v.v
}

// Float returns the value, or NaN if it is unavailable.
func (v Value) Float() float64 {
	return v.Or(math.NaN())
}

func (v Value) String() string {
	if !v.ok {
		return "n/a"
	}
	return strconv.FormatFloat(v.v, 'f', -1, 64)
}

// MarshalJSON encodes an unavailable value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON decodes null as unavailable.
func (v *Value) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

// GroupReading is one sample of a sensor group (DHT22 + SGP30 + BME680).
// Field order is fixed; Values and the JSON encoding follow it.
type GroupReading struct {
	DHTTempC    Value `json:"dht_temp_c"`   // °C
	DHTHumidity Value `json:"dht_humidity"` // %RH

	ECO2 float64 `json:"sgp30_eco2_ppm"` // ppm
	TVOC float64 `json:"sgp30_tvoc_ppb"` // ppb

	BMETempC       float64 `json:"bme_temp_c"`       // °C, offset-corrected
	BMEGas         float64 `json:"bme_gas_ohm"`      // gas resistance, Ω
	BMEHumidity    float64 `json:"bme_humidity"`     // %RH
	BMEPressureHPa float64 `json:"bme_pressure_hpa"` // hPa
	BMEAltitudeM   float64 `json:"bme_altitude_m"`   // m
}

// Values returns the nine fields in order. Unavailable DHT values are NaN.
func (g GroupReading) Values() [GroupFields]float64 {
	return [GroupFields]float64{
		g.DHTTempC.Float(),
		g.DHTHumidity.Float(),
		g.ECO2,
		g.TVOC,
		g.BMETempC,
		g.BMEGas,
		g.BMEHumidity,
		g.BMEPressureHPa,
		g.BMEAltitudeM,
	}
}

// FieldNames lists the GroupReading fields in flattening order.
var FieldNames = [GroupFields]string{
	"dht_temp_C",
	"dht_humidity",
	"sgp30_eCO2",
	"sgp30_TVOC",
	"bme_temp_C",
	"bme_gas",
	"bme_humidity",
	"bme_pres_hPa",
	"bme_alt_m",
}

// DualReading pairs the indoor and outdoor group readings of one sample.
type DualReading struct {
	In  GroupReading `json:"in"`
	Out GroupReading `json:"out"`
}

// Data flattens the reading into 18 values: all In fields, then all Out fields.
func (d DualReading) Data() []float64 {
	in := d.In.Values()
	out := d.Out.Values()

	data := make([]float64, 0, 2*GroupFields)
	data = append(data, in[:]...)
	return append(data, out[:]...)
}

// LegacyData is Data with unavailable values replaced by Sentinel, for
// consumers of the original -1 encoding.
func (d DualReading) LegacyData() []float64 {
	data := d.Data()
	for i, v := range data {
		if math.IsNaN(v) {
			data[i] = Sentinel
		}
	}
	return data
}

// Labels returns the names matching Data, e.g. "in_dht_temp_C".
func Labels() []string {
	labels := make([]string, 0, 2*GroupFields)
	for _, side := range []string{"in", "out"} {
		for _, name := range FieldNames {
			labels = append(labels, side+"_"+name)
		}
	}
	return labels
}

// Source is anything that can produce dual readings on demand.
// Implementations: live hardware (sensors.Source) and simulation (sim.Source).
type Source interface {
	Sample() (DualReading, error)
}
