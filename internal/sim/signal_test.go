// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sim

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(seed uint64) (*Generator, *clockwork.FakeClock) {
	clk := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewGenerator(clk, rand.New(rand.NewPCG(seed, seed))), clk
}

func TestValueQuarterPeriod(t *testing.T) {
	g, clk := newTestGenerator(1)
	clk.Advance(15 * time.Second)

	assert.InDelta(t, 25.0, g.Value(20, 25, 60, 0, 0), 1e-9)
}

func TestValueAtOrigin(t *testing.T) {
	g, _ := newTestGenerator(1)

	assert.InDelta(t, 22.5, g.Value(20, 25, 60, 0, 0), 1e-9)
}

func TestValuePhaseShiftsTime(t *testing.T) {
	g, clk := newTestGenerator(1)
	clk.Advance(10 * time.Second)

	assert.InDelta(t, g.Value(20, 25, 60, 5, 0), 25.0, 1e-9)
	assert.InDelta(t, g.Value(20, 25, 60, -10, 0), 22.5, 1e-9)
}

func TestValueZeroNoiseMatchesSine(t *testing.T) {
	g, clk := newTestGenerator(7)

	for i := 0; i < 50; i++ {
		clk.Advance(1300 * time.Millisecond)
		elapsed := g.Elapsed()
		want := 1045 + 55*math.Sin(2*math.Pi*(elapsed+3)/90)
		assert.InDelta(t, want, g.Value(990, 1100, 90, 3, 0), 1e-9)
	}
}

func TestValueStaysInEnvelope(t *testing.T) {
	g, clk := newTestGenerator(42)
	clk.Advance(7 * time.Second)

	for i := 0; i < 5000; i++ {
		v := g.Value(100, 200, 30, 0, 2)
		require.GreaterOrEqual(t, v, 98.0)
		require.LessOrEqual(t, v, 202.0)
	}
}

func TestValueNoiseIsCentred(t *testing.T) {
	g, _ := newTestGenerator(3)

	var sum float64
	const n = 20000
	for i := 0; i < n; i++ {
		sum += g.Value(20, 25, 60, 0, 1)
	}
	assert.InDelta(t, 22.5, sum/n, 0.05)
}

func TestValueNonPositivePeriod(t *testing.T) {
	g, clk := newTestGenerator(1)
	clk.Advance(13 * time.Second)

	assert.Equal(t, 15.0, g.Value(10, 20, 0, 0, 0))
	assert.Equal(t, 15.0, g.Value(10, 20, -5, 0, 0))
}

func TestRealClockGenerator(t *testing.T) {
	g := NewDefaultGenerator()

	assert.GreaterOrEqual(t, g.Elapsed(), 0.0)
	v := g.Value(20, 25, 60, 0, 0.25)
	assert.GreaterOrEqual(t, v, 19.75)
	assert.LessOrEqual(t, v, 25.25)
}
