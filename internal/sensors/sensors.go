// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors samples a group of environmental sensors (DHT22, SGP30,
// BME680) and assembles their readings into an env.GroupReading.
package sensors

import "errors"

// ErrTransient marks a read failure that is expected now and then and is
// simply retried on the next cycle.
var ErrTransient = errors.New("transient sensor error")

// HumiditySensor is a temperature and relative humidity sensor (DHT22).
type HumiditySensor interface {
	Temperature() (float64, error) // °C
	Humidity() (float64, error)    // %RH
}

// AirQualitySensor reports equivalent CO2 and total VOC (SGP30).
type AirQualitySensor interface {
	ECO2() (float64, error) // ppm
	TVOC() (float64, error) // ppb
}

// CombinedSensor is a temperature, humidity, pressure and gas sensor (BME680).
type CombinedSensor interface {
	Temperature() (float64, error)      // °C
	Gas() (float64, error)              // Ω
	RelativeHumidity() (float64, error) // %RH
	Pressure() (float64, error)         // hPa
	Altitude() (float64, error)         // m
}
