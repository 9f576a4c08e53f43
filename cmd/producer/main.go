// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/env_sampler/internal/app"
	"github.com/relabs-tech/env_sampler/internal/config"
)

func main() {
	configPath := flag.String("config", "./env_config.txt", "path to configuration file")
	simulate := flag.Bool("sim", false, "publish simulated readings instead of reading the sensors")
	flag.Parse()

	log.Println("starting env-sampler producer (DHT22, SGP30, BME680 → MQTT)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunProducer(*simulate); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
