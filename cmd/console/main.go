// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/relabs-tech/env_sampler/internal/app"
)

func main() {
	interval := flag.Duration("interval", time.Second, "time between readings")
	flag.Parse()

	log.Println("starting env-sampler (mock console)")

	if err := app.RunMockConsole(os.Stdout, *interval); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
