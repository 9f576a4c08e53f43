// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/env_sampler/internal/config"
	"github.com/relabs-tech/env_sampler/internal/devices/bme680"
	"github.com/relabs-tech/env_sampler/internal/devices/sgp30"
)

// ProbeResult is what answered on one group's bus.
type ProbeResult struct {
	Group string

	BMEAddr   uint16
	BMEChipID byte
	BMEErr    error

	SGPSerial   [3]uint16
	SGPFeatures uint16
	SGPErr      error
}

// probeGroup identifies the BME680 and SGP30 on a bus without changing
// their configuration.
func probeGroup(group string, bus i2c.Bus, bmeAddr uint16) ProbeResult {
	res := ProbeResult{Group: group, BMEAddr: bmeAddr}

	res.BMEChipID, res.BMEErr = bme680.ReadChipID(bus, bmeAddr)
	if res.BMEErr == nil && res.BMEChipID != bme680.ChipID {
		res.BMEErr = fmt.Errorf("%w: 0x%02X", bme680.ErrChipID, res.BMEChipID)
	}

	dev, err := sgp30.New(bus)
	if err != nil {
		res.SGPErr = err
		return res
	}
	res.SGPSerial = dev.SerialID()
	res.SGPFeatures = dev.FeatureSet()
	return res
}

func (r ProbeResult) write(w io.Writer) {
	fmt.Fprintf(w, "[%s]\n", r.Group)
	if r.BMEErr != nil {
		fmt.Fprintf(w, "  BME680 @0x%02X: ERROR %v\n", r.BMEAddr, r.BMEErr)
	} else {
		fmt.Fprintf(w, "  BME680 @0x%02X: chip id 0x%02X OK\n", r.BMEAddr, r.BMEChipID)
	}
	if r.SGPErr != nil {
		fmt.Fprintf(w, "  SGP30  @0x%02X: ERROR %v\n", sgp30.Address, r.SGPErr)
	} else {
		fmt.Fprintf(w, "  SGP30  @0x%02X: serial %04X%04X%04X feature set 0x%04X OK\n",
			sgp30.Address, r.SGPSerial[0], r.SGPSerial[1], r.SGPSerial[2], r.SGPFeatures)
	}
}

// RunRegisterDebug probes both groups and prints what was found. It returns
// an error if any device did not answer as expected.
func RunRegisterDebug(w io.Writer) error {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}

	failed := 0
	for _, g := range []struct {
		name string
		cfg  config.GroupConfig
	}{{"in", cfg.In}, {"out", cfg.Out}} {
		bus, err := i2creg.Open(g.cfg.I2CBus)
		if err != nil {
			fmt.Fprintf(w, "[%s]\n  I2C bus %q: ERROR %v\n", g.name, g.cfg.I2CBus, err)
			failed++
			continue
		}
		res := probeGroup(g.name, bus, g.cfg.BMEI2CAddr)
		bus.Close()

		res.write(w)
		if res.BMEErr != nil || res.SGPErr != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d group(s) with missing devices", failed)
	}
	return nil
}
