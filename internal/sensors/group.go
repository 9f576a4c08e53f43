// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"
	"log"

	"github.com/relabs-tech/env_sampler/internal/env"
	"github.com/relabs-tech/env_sampler/internal/metrics"
)

// SampleGroup reads one sensor group in a fixed order: DHT22, SGP30, BME680.
//
// DHT22 failures never abort the sample. A transient failure makes both DHT
// fields unavailable silently; any other failure is logged first. SGP30 and
// BME680 failures are returned. offsetC is added to the BME680 temperature.
func SampleGroup(h HumiditySensor, aq AirQualitySensor, c CombinedSensor, offsetC float64) (env.GroupReading, error) {
	var r env.GroupReading

	temp, hum, err := readDHT(h)
	switch {
	case err == nil:
		r.DHTTempC = env.Some(temp)
		r.DHTHumidity = env.Some(hum)
	case errors.Is(err, ErrTransient):
		metrics.DHTFallback.WithLabelValues("transient").Inc()
	default:
		log.Printf("DHT22 error: %v", err)
		metrics.DHTFallback.WithLabelValues("error").Inc()
	}

	var aqErr error
	if r.ECO2, aqErr = aq.ECO2(); aqErr != nil {
		return env.GroupReading{}, fmt.Errorf("SGP30: eCO2: %w", aqErr)
	}
	if r.TVOC, aqErr = aq.TVOC(); aqErr != nil {
		return env.GroupReading{}, fmt.Errorf("SGP30: TVOC: %w", aqErr)
	}

	reads := []struct {
		name string
		read func() (float64, error)
		dst  *float64
	}{
		{"temperature", c.Temperature, &r.BMETempC},
		{"gas", c.Gas, &r.BMEGas},
		{"humidity", c.RelativeHumidity, &r.BMEHumidity},
		{"pressure", c.Pressure, &r.BMEPressureHPa},
		{"altitude", c.Altitude, &r.BMEAltitudeM},
	}
	for _, rd := range reads {
		v, err := rd.read()
		if err != nil {
			return env.GroupReading{}, fmt.Errorf("BME680: %s: %w", rd.name, err)
		}
		*rd.dst = v
	}
	r.BMETempC += offsetC

	return r, nil
}

// readDHT reads temperature then humidity. A failure on either makes the pair
// unusable.
func readDHT(h HumiditySensor) (float64, float64, error) {
	temp, err := h.Temperature()
	if err != nil {
		return 0, 0, err
	}
	hum, err := h.Humidity()
	if err != nil {
		return 0, 0, err
	}
	return temp, hum, nil
}
