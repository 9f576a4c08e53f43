// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sim

import "github.com/relabs-tech/env_sampler/internal/env"

// bmePhaseLagS delays the BME680 temperature and humidity behind the DHT22,
// like a sensor mounted further from the airflow.
const bmePhaseLagS = 2.0

// outPhaseS staggers the "out" group behind the "in" group.
const outPhaseS = 2.0

// signal holds the tuning for one simulated field.
type signal struct {
	min, max float64
	periodS  float64
	noise    float64
	lagS     float64
}

var (
	dhtTemp     = signal{min: 20, max: 25, periodS: 60, noise: 0.25}
	dhtHumidity = signal{min: 40, max: 50, periodS: 120, noise: 0.75}
	eco2        = signal{min: 100, max: 200, periodS: 30, noise: 2}
	tvoc        = signal{min: 10, max: 15, periodS: 60, noise: 0.5}
	bmeTemp     = signal{min: 20, max: 25, periodS: 60, noise: 0.25, lagS: bmePhaseLagS}
	bmeGas      = signal{min: 75, max: 100, periodS: 200, noise: 1}
	bmeHumidity = signal{min: 40, max: 50, periodS: 120, noise: 0.75, lagS: bmePhaseLagS}
	bmePressure = signal{min: 990, max: 1100, periodS: 90, noise: 5}
	bmeAltitude = signal{min: 500, max: 550, periodS: 60, noise: 2}
)

func (g *Generator) signal(s signal, basePhaseS float64) float64 {
	return g.Value(s.min, s.max, s.periodS, basePhaseS-s.lagS, s.noise)
}

// Group simulates one sensor group at the given phase offset (seconds).
func (g *Generator) Group(basePhaseS float64) env.GroupReading {
	return env.GroupReading{
		DHTTempC:       env.Some(g.signal(dhtTemp, basePhaseS)),
		DHTHumidity:    env.Some(g.signal(dhtHumidity, basePhaseS)),
		ECO2:           g.signal(eco2, basePhaseS),
		TVOC:           g.signal(tvoc, basePhaseS),
		BMETempC:       g.signal(bmeTemp, basePhaseS),
		BMEGas:         g.signal(bmeGas, basePhaseS),
		BMEHumidity:    g.signal(bmeHumidity, basePhaseS),
		BMEPressureHPa: g.signal(bmePressure, basePhaseS),
		BMEAltitudeM:   g.signal(bmeAltitude, basePhaseS),
	}
}

// Source is the simulated counterpart of the live sensor source.
type Source struct {
	gen *Generator
}

// NewSource creates a simulated source driven by gen.
func NewSource(gen *Generator) *Source {
	return &Source{gen: gen}
}

// NewDefaultSource creates a simulated source on the system clock.
func NewDefaultSource() *Source {
	return NewSource(NewDefaultGenerator())
}

// Sample never fails.
func (s *Source) Sample() (env.DualReading, error) {
	return env.DualReading{
		In:  s.gen.Group(0),
		Out: s.gen.Group(outPhaseS),
	}, nil
}
