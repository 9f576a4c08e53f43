// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/relabs-tech/env_sampler/internal/devices/sgp30"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "env_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
# broker
MQTT_BROKER=tcp://broker:1883
TOPIC_ENV=lab/env
SAMPLE_INTERVAL=2000

IN_I2C_BUS=1
IN_DHT_PIN=GPIO20
IN_BME_I2C_ADDR=0x76
IN_BME_TEMP_OFFSET_C=4.5
OUT_SGP30_BASELINE_ECO2=0x8A00
OUT_SGP30_COMP_RH=55
BME_SEA_LEVEL_HPA=1020
SERIAL_PORT=/dev/ttyUSB0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker:1883", cfg.MQTTBroker)
	assert.Equal(t, "lab/env", cfg.TopicEnv)
	assert.Equal(t, 2000, cfg.SampleInterval)
	assert.Equal(t, uint16(0x76), cfg.In.BMEI2CAddr)
	assert.Equal(t, 4.5, cfg.In.BMETempOffsetC)
	assert.Equal(t, uint16(0x8A00), cfg.Out.SGP30BaselineECO2)
	assert.Equal(t, 55.0, cfg.Out.SGP30CompRH)
	assert.Equal(t, 1020.0, cfg.SeaLevelHPa)
	assert.Equal(t, "/dev/ttyUSB0", cfg.SerialPort)

	// untouched keys keep their defaults
	assert.Equal(t, 115200, cfg.SerialBaudRate)
	assert.Equal(t, "GPIO21", cfg.Out.DHTPin)
	assert.Equal(t, uint16(0x8AAE), cfg.In.SGP30BaselineTVOC)
}

func TestDefaultCalibration(t *testing.T) {
	cfg := Default()
	for _, g := range []GroupConfig{cfg.In, cfg.Out} {
		assert.Equal(t, uint16(0x8973), g.SGP30BaselineECO2)
		assert.Equal(t, uint16(0x8AAE), g.SGP30BaselineTVOC)
		assert.Equal(t, 22.1, g.SGP30CompTempC)
		assert.Equal(t, 44.0, g.SGP30CompRH)
		assert.Equal(t, 5.0, g.BMETempOffsetC)
		assert.Equal(t, uint16(0x77), g.BMEI2CAddr)
	}
	require.NoError(t, cfg.validate())
}

func TestParseErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown key":       {"IMU_ACCEL_RANGE": "2"},
		"unknown group key": {"IN_CS_PIN": "GPIO8"},
		"bad bme address":   {"OUT_BME_I2C_ADDR": "0x40"},
		"bad baseline":      {"IN_SGP30_BASELINE_TVOC": "0x1FFFF"},
		"bad humidity":      {"IN_SGP30_COMP_RH": "120"},
		"bad bool":          {"SIMULATE": "maybe"},
		"bad port":          {"WEB_SERVER_PORT": "70000"},
		"zero interval":     {"SAMPLE_INTERVAL": "0"},
		"missing pin":       {"OUT_DHT_PIN": ""},
		"few samples":       {"CALIBRATION_SAMPLES": "1"},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(values)
			assert.Error(t, err)
		})
	}
}

func TestSimulateSkipsHardwareChecks(t *testing.T) {
	cfg, err := Parse(map[string]string{"SIMULATE": "true", "IN_I2C_BUS": ""})
	require.NoError(t, err)
	assert.True(t, cfg.Simulate)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestSensorsConfig(t *testing.T) {
	cfg := Default()
	cfg.Out.BMETempOffsetC = 3.2

	sc := cfg.SensorsConfig()
	assert.Equal(t, "1", sc.In.I2CBus)
	assert.Equal(t, "GPIO21", sc.Out.DHTPin)
	assert.Equal(t, 3.2, sc.Out.TempOffsetC)
	assert.Equal(t, sgp30.Baseline{ECO2: 0x8973, TVOC: 0x8AAE}, sc.In.Baseline)
	assert.Equal(t, 1013.25, sc.SeaLevelHPa)
}
