// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sim generates synthetic sensor readings with the same shape and
// envelope as the live hardware: a bounded sine plus uniform noise.
package sim

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
)

// Generator produces noisy periodic values relative to a single time origin
// captured at construction. All fields generated from one Generator share the
// origin, so they stay phase-consistent with each other.
//
// A Generator is not safe for concurrent use.
type Generator struct {
	clock  clockwork.Clock
	origin time.Time
	rng    *rand.Rand
}

// NewGenerator captures clock.Now() as the origin. On the real clock the
// origin carries a monotonic reading, so wall clock steps do not move it.
func NewGenerator(clock clockwork.Clock, rng *rand.Rand) *Generator {
	return &Generator{
		clock:  clock,
		origin: clock.Now(),
		rng:    rng,
	}
}

// NewDefaultGenerator uses the real clock and a randomly seeded source.
func NewDefaultGenerator() *Generator {
	return NewGenerator(clockwork.NewRealClock(), rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// Elapsed returns the seconds since the origin.
func (g *Generator) Elapsed() float64 {
	return g.clock.Since(g.origin).Seconds()
}

// Value returns mid + amp*sin(2π t/periodS) + U(-noise, noise) where
// t = Elapsed() + phaseS, mid and amp span [lo, hi]. The result stays within
// [lo-noise, hi+noise]. A non-positive period disables the oscillation.
func (g *Generator) Value(lo, hi, periodS, phaseS, noise float64) float64 {
	mid := (lo + hi) / 2.0
	amp := (hi - lo) / 2.0

	v := mid
	if periodS > 0 {
		t := g.Elapsed() + phaseS
		freq := 1.0 / periodS
		v += amp * math.Sin(2*math.Pi*freq*t)
	}
	return v + g.noise(noise)
}

func (g *Generator) noise(r float64) float64 {
	if r == 0 {
		return 0
	}
	return (g.rng.Float64()*2 - 1) * r
}
