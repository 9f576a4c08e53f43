// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/relabs-tech/env_sampler/internal/config"
	"github.com/relabs-tech/env_sampler/internal/devices/sgp30"
	"github.com/relabs-tech/env_sampler/internal/env"
	"github.com/relabs-tech/env_sampler/internal/sensors"
)

var (
	// ErrNoReferenceSamples means no sample had a usable DHT22 reading.
	ErrNoReferenceSamples = errors.New("no samples with a DHT22 reading")
	// ErrTooManySampleErrors means sampling kept failing, e.g. a missing SGP30.
	ErrTooManySampleErrors = errors.New("too many failed samples")
)

// maxAttemptsPerSample bounds collectReadings to this many Sample calls per
// wanted sample.
const maxAttemptsPerSample = 3

// OffsetEstimate is the BME680 temperature correction for one group,
// using the DHT22 as reference.
type OffsetEstimate struct {
	OffsetC float64 `json:"offset_c"`
	StdDevC float64 `json:"stddev_c"`
	Samples int     `json:"samples"` // samples with a DHT22 reading
	Skipped int     `json:"skipped"` // samples without one
}

// GroupCalibration is the calibration result of one group.
type GroupCalibration struct {
	Offset   OffsetEstimate `json:"temperature_offset"`
	Baseline sgp30.Baseline `json:"sgp30_baseline"`
}

// CalibrationResult is written under ./calibration/.
type CalibrationResult struct {
	SchemaVersion int              `json:"schema_version"`
	CalibrationAt string           `json:"calibration_at"` // RFC3339
	In            GroupCalibration `json:"in"`
	Out           GroupCalibration `json:"out"`
}

// EstimateOffset returns mean(DHT22 − BME680) over the readings that have a
// DHT22 value. The readings must be taken with a zero BME680 offset.
func EstimateOffset(readings []env.GroupReading) (OffsetEstimate, error) {
	var diffs []float64
	for _, r := range readings {
		if t, ok := r.DHTTempC.Get(); ok {
			diffs = append(diffs, t-r.BMETempC)
		}
	}
	est := OffsetEstimate{Samples: len(diffs), Skipped: len(readings) - len(diffs)}
	if len(diffs) == 0 {
		return est, ErrNoReferenceSamples
	}
	est.OffsetC = mean(diffs)
	est.StdDevC = stddev(diffs)
	return est, nil
}

func mean(data []float64) float64 {
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

func stddev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := mean(data)
	variance := 0.0
	for _, v := range data {
		diff := v - m
		variance += diff * diff
	}
	variance /= float64(len(data))
	return math.Sqrt(variance)
}

// collectReadings takes n samples, one per interval. Failed samples are
// logged and not counted. It gives up after maxAttemptsPerSample*n calls.
func collectReadings(src env.Source, n int, interval time.Duration) (in, out []env.GroupReading, err error) {
	maxAttempts := maxAttemptsPerSample * n
	for attempts := 0; len(in) < n; attempts++ {
		if attempts == maxAttempts {
			return in, out, fmt.Errorf("%w: %d of %d samples after %d attempts",
				ErrTooManySampleErrors, len(in), n, attempts)
		}

		d, err := src.Sample()
		if err != nil {
			log.Printf("calibration: sample error: %v", err)
		} else {
			in = append(in, d.In)
			out = append(out, d.Out)
			if len(in)%10 == 0 {
				log.Printf("calibration: %d/%d samples", len(in), n)
			}
		}
		if len(in) < n {
			time.Sleep(interval)
		}
	}
	return in, out, nil
}

// configLines renders the result as env_config.txt lines.
func configLines(res CalibrationResult) string {
	var b strings.Builder
	for _, g := range []struct {
		prefix string
		cal    GroupCalibration
	}{{"IN", res.In}, {"OUT", res.Out}} {
		fmt.Fprintf(&b, "%s_BME_TEMP_OFFSET_C=%.2f\n", g.prefix, g.cal.Offset.OffsetC)
		fmt.Fprintf(&b, "%s_SGP30_BASELINE_ECO2=0x%04X\n", g.prefix, g.cal.Baseline.ECO2)
		fmt.Fprintf(&b, "%s_SGP30_BASELINE_TVOC=0x%04X\n", g.prefix, g.cal.Baseline.TVOC)
	}
	return b.String()
}

// saveCalibration writes the result as JSON into dir and returns the path.
func saveCalibration(dir string, res CalibrationResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal calibration results: %w", err)
	}

	name := fmt.Sprintf("%d_env_calibration.json", time.Now().Unix())
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write calibration file: %w", err)
	}
	return path, nil
}

// RunCalibration samples both groups with no temperature offset, estimates
// the BME680 offsets against the DHT22s and reads the SGP30 baselines.
// The SGP30 needs about 12h of operation for a meaningful baseline.
func RunCalibration(w io.Writer) error {
	cfg := config.Get()

	sc := cfg.SensorsConfig()
	sc.In.TempOffsetC = 0
	sc.Out.TempOffsetC = 0

	src, err := sensors.Open(sc)
	if err != nil {
		return fmt.Errorf("sensor init: %w", err)
	}
	defer src.Close()

	n := cfg.CalibrationSamples
	interval := time.Duration(cfg.SampleInterval) * time.Millisecond
	log.Printf("calibration: collecting %d samples every %s", n, interval)
	in, out, err := collectReadings(src, n, interval)
	if err != nil {
		return err
	}

	res := CalibrationResult{
		SchemaVersion: 1,
		CalibrationAt: time.Now().Format(time.RFC3339),
	}
	if res.In.Offset, err = EstimateOffset(in); err != nil {
		return fmt.Errorf("in: %w", err)
	}
	if res.Out.Offset, err = EstimateOffset(out); err != nil {
		return fmt.Errorf("out: %w", err)
	}
	if res.In.Baseline, res.Out.Baseline, err = src.Baselines(); err != nil {
		return fmt.Errorf("SGP30 baseline: %w", err)
	}

	path, err := saveCalibration("calibration", res)
	if err != nil {
		return err
	}
	log.Printf("calibration: saved results to %s", path)

	fmt.Fprintf(w, "in:  offset %.2f°C ±%.2f (%d samples)\n", res.In.Offset.OffsetC, res.In.Offset.StdDevC, res.In.Offset.Samples)
	fmt.Fprintf(w, "out: offset %.2f°C ±%.2f (%d samples)\n", res.Out.Offset.OffsetC, res.Out.Offset.StdDevC, res.Out.Offset.Samples)
	fmt.Fprintf(w, "\n# env_config.txt\n%s", configLines(res))
	return nil
}
