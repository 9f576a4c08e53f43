// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package metrics

import (
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/relabs-tech/env_sampler/internal/env"
)

// DHTFallback counts samples whose DHT22 fields were reported unavailable,
// labeled by "transient" or "error".
var DHTFallback = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "env_dht_fallback_total",
		Help: "DHT22 reads replaced by the unavailable marker",
	},
	[]string{"reason"},
)

// Samples counts dual-group samples by outcome ("ok" or "error").
var Samples = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "env_samples_total",
		Help: "The total number of dual-group samples taken",
	},
	[]string{"result"},
)

var SampleDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "env_sample_duration_seconds",
		Help:    "Time taken by one dual-group sample",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	},
)

// Reading holds the latest value of every field, labeled by group and field.
var Reading = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "env_reading",
		Help: "Latest reading per group and field",
	},
	[]string{"group", "field"},
)

var TempHistogram = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "env_temp_distribution_celsius",
		Help:    "Distribution of BME680 temperature readings",
		Buckets: []float64{0, 10, 18, 22, 26, 30, 40},
	},
	[]string{"group"},
)

var ECO2Histogram = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "env_eco2_distribution_ppm",
		Help: "Distribution of SGP30 eCO2 readings",
		// 400 is the sensor floor, above 1000 is stale air
		Buckets: []float64{400, 600, 800, 1000, 1500, 2500, 5000},
	},
	[]string{"group"},
)

// ObserveSample records the outcome and duration of one Sample call.
func ObserveSample(start time.Time, err error) {
	SampleDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		Samples.WithLabelValues("error").Inc()
		return
	}
	Samples.WithLabelValues("ok").Inc()
}

// SetReading updates the gauges and histograms for one group. Unavailable
// fields leave their gauge untouched.
func SetReading(group string, r env.GroupReading) {
	for i, v := range r.Values() {
		if math.IsNaN(v) {
			continue
		}
		Reading.WithLabelValues(group, env.FieldNames[i]).Set(v)
	}
	TempHistogram.WithLabelValues(group).Observe(r.BMETempC)
	ECO2Histogram.WithLabelValues(group).Observe(r.ECO2)
}

// SetDual updates the metrics for both groups.
func SetDual(d env.DualReading) {
	SetReading("in", d.In)
	SetReading("out", d.Out)
}
