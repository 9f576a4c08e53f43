// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/env_sampler/internal/env"
	"github.com/relabs-tech/env_sampler/internal/sim"
)

// RunMockConsole prints simulated readings once per interval, without a broker.
func RunMockConsole(w io.Writer, interval time.Duration) error {
	src := sim.NewDefaultSource()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if err := printReading(w, src); err != nil {
			return err
		}
	}
	return nil
}

func printReading(w io.Writer, src env.Source) error {
	d, err := src.Sample()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n%s\n", formatGroup("in", d.In), formatGroup("out", d.Out))
	return err
}
