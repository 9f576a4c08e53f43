// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/relabs-tech/env_sampler/internal/env"
)

// formatGroup renders one group on a single console line.
func formatGroup(label string, g env.GroupReading) string {
	return fmt.Sprintf(
		"[%-3s] DHT T=%5s H=%5s  eCO2=%5.0f TVOC=%4.0f  BME T=%6.2f gas=%7.0f H=%5.1f P=%7.2f alt=%6.1f",
		strings.ToUpper(label),
		formatValue(g.DHTTempC, 1),
		formatValue(g.DHTHumidity, 1),
		g.ECO2, g.TVOC,
		g.BMETempC, g.BMEGas, g.BMEHumidity, g.BMEPressureHPa, g.BMEAltitudeM,
	)
}

func formatValue(v env.Value, prec int) string {
	f, ok := v.Get()
	if !ok {
		return "n/a"
	}
	return strconv.FormatFloat(f, 'f', prec, 64)
}

// formatCSV renders a reading as one CSV line in Data order. Unavailable
// values use the legacy -1 encoding.
func formatCSV(d env.DualReading) string {
	data := d.LegacyData()
	cells := make([]string, len(data))
	for i, v := range data {
		cells[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(cells, ",")
}

// csvHeader matches formatCSV.
func csvHeader() string {
	return strings.Join(env.Labels(), ",")
}
