// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Calibration for the env-sampler sensor groups.
//
// Samples both groups with no BME680 temperature offset and estimates, per
// group, the offset that brings the BME680 in line with the DHT22 (mean of
// DHT22 − BME680, with its standard deviation). Also reads the current SGP30
// baselines.
//
// Output:
//
//	Writes a JSON file under ./calibration/ and prints the matching
//	env_config.txt lines.
//
// Run:
//
//	sudo ./calibration -config env_config.txt
//
// The SGP30 baseline is only meaningful after the sensor has been running for
// about 12 hours; the producer must not be running at the same time.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/relabs-tech/env_sampler/internal/app"
	"github.com/relabs-tech/env_sampler/internal/config"
)

func main() {
	configPath := flag.String("config", "env_config.txt", "Path to configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunCalibration(os.Stdout); err != nil {
		log.Fatalf("calibration failed: %v", err)
	}
}
