// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/relabs-tech/env_sampler/internal/devices/sgp30"
	"github.com/relabs-tech/env_sampler/internal/sensors"
)

// GroupConfig is the wiring and calibration of one sensor group.
type GroupConfig struct {
	I2CBus         string
	DHTPin         string
	BMEI2CAddr     uint16
	BMETempOffsetC float64

	SGP30BaselineECO2 uint16
	SGP30BaselineTVOC uint16
	SGP30CompTempC    float64
	SGP30CompRH       float64
}

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicEnv    string // full dual reading
	TopicEnvIn  string
	TopicEnvOut string

	// Sampling
	Simulate       bool
	SampleInterval int // milliseconds

	// Sensor groups
	In          GroupConfig
	Out         GroupConfig
	SeaLevelHPa float64

	// Serial sink, disabled when SerialPort is empty
	SerialPort     string
	SerialBaudRate int

	// Servers, 0 disables the metrics listener
	MetricsPort   int
	WebServerPort int

	// Display
	DisplayUpdateInterval int // milliseconds

	// Calibration
	CalibrationSamples int
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys missing from the file.
// The SGP30 values are the factory calibration of the original deployment.
func Default() *Config {
	group := func(bus, pin string) GroupConfig {
		return GroupConfig{
			I2CBus:            bus,
			DHTPin:            pin,
			BMEI2CAddr:        0x77,
			BMETempOffsetC:    5,
			SGP30BaselineECO2: 0x8973,
			SGP30BaselineTVOC: 0x8AAE,
			SGP30CompTempC:    22.1,
			SGP30CompRH:       44,
		}
	}
	return &Config{
		MQTTBroker:            "tcp://localhost:1883",
		MQTTClientIDProducer:  "env-producer",
		MQTTClientIDConsole:   "env-console",
		MQTTClientIDWeb:       "env-web",
		MQTTClientIDDisplay:   "env-display",
		TopicEnv:              "env/dual",
		TopicEnvIn:            "env/in",
		TopicEnvOut:           "env/out",
		SampleInterval:        1000,
		In:                    group("1", "GPIO20"),
		Out:                   group("3", "GPIO21"),
		SeaLevelHPa:           1013.25,
		SerialBaudRate:        115200,
		MetricsPort:           9100,
		WebServerPort:         8080,
		DisplayUpdateInterval: 1000,
		CalibrationSamples:    60,
	}
}

// Load reads a KEY=VALUE configuration file on top of Default.
func Load(configPath string) (*Config, error) {
	values, err := godotenv.Read(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(values)
}

// Parse applies already split KEY=VALUE pairs on top of Default.
func Parse(values map[string]string) (*Config, error) {
	// Sorted so the first error reported is stable.
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cfg := Default()
	for _, key := range keys {
		if err := cfg.setValue(key, strings.TrimSpace(values[key])); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	if g, rest, ok := c.groupKey(key); ok {
		return g.setValue(key, rest, value)
	}

	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_ENV":
		c.TopicEnv = value
	case "TOPIC_ENV_IN":
		c.TopicEnvIn = value
	case "TOPIC_ENV_OUT":
		c.TopicEnvOut = value

	// Sampling
	case "SIMULATE":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid SIMULATE %q: %w", value, err)
		}
		c.Simulate = b
	case "SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.SampleInterval = interval
	case "BME_SEA_LEVEL_HPA":
		hpa, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid BME_SEA_LEVEL_HPA %q: %w", value, err)
		}
		if hpa < 800 || hpa > 1200 {
			return fmt.Errorf("BME_SEA_LEVEL_HPA must be 800-1200, got %g", hpa)
		}
		c.SeaLevelHPa = hpa

	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q: %w", value, err)
		}
		c.SerialBaudRate = rate

	// Servers
	case "METRICS_PORT":
		port, err := parsePort(key, value)
		if err != nil {
			return err
		}
		c.MetricsPort = port
	case "WEB_SERVER_PORT":
		port, err := parsePort(key, value)
		if err != nil {
			return err
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	// Calibration
	case "CALIBRATION_SAMPLES":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CALIBRATION_SAMPLES %q: %w", value, err)
		}
		if n < 2 {
			return fmt.Errorf("CALIBRATION_SAMPLES must be at least 2, got %d", n)
		}
		c.CalibrationSamples = n

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// groupKey splits IN_* and OUT_* keys.
func (c *Config) groupKey(key string) (*GroupConfig, string, bool) {
	switch {
	case strings.HasPrefix(key, "IN_"):
		return &c.In, strings.TrimPrefix(key, "IN_"), true
	case strings.HasPrefix(key, "OUT_"):
		return &c.Out, strings.TrimPrefix(key, "OUT_"), true
	}
	return nil, "", false
}

func (g *GroupConfig) setValue(key, field, value string) error {
	switch field {
	case "I2C_BUS":
		g.I2CBus = value
	case "DHT_PIN":
		g.DHTPin = value
	case "BME_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		if addr != 0x76 && addr != 0x77 {
			return fmt.Errorf("%s must be 0x76 or 0x77, got 0x%02X", key, addr)
		}
		g.BMEI2CAddr = uint16(addr)
	case "BME_TEMP_OFFSET_C":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		g.BMETempOffsetC = v
	case "SGP30_BASELINE_ECO2":
		v, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		g.SGP30BaselineECO2 = uint16(v)
	case "SGP30_BASELINE_TVOC":
		v, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		g.SGP30BaselineTVOC = uint16(v)
	case "SGP30_COMP_TEMP_C":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		g.SGP30CompTempC = v
	case "SGP30_COMP_RH":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		if v < 0 || v > 100 {
			return fmt.Errorf("%s must be 0-100, got %g", key, v)
		}
		g.SGP30CompRH = v
	default:
		return fmt.Errorf("unknown config key: %q", key)
	}
	return nil
}

func parsePort(key, value string) (int, error) {
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("%s must be 0-65535, got %d", key, port)
	}
	return port, nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicEnv == "" {
		return fmt.Errorf("TOPIC_ENV is required")
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL must be positive")
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive")
	}
	if c.SerialPort != "" && c.SerialBaudRate <= 0 {
		return fmt.Errorf("SERIAL_BAUD_RATE is required when SERIAL_PORT is set")
	}
	if !c.Simulate {
		for name, g := range map[string]GroupConfig{"IN": c.In, "OUT": c.Out} {
			if g.I2CBus == "" {
				return fmt.Errorf("%s_I2C_BUS is required", name)
			}
			if g.DHTPin == "" {
				return fmt.Errorf("%s_DHT_PIN is required", name)
			}
		}
	}
	return nil
}

// SensorsConfig maps the configuration onto the hardware source settings.
func (c *Config) SensorsConfig() sensors.Config {
	group := func(g GroupConfig) sensors.GroupConfig {
		return sensors.GroupConfig{
			I2CBus:      g.I2CBus,
			DHTPin:      g.DHTPin,
			BMEAddr:     g.BMEI2CAddr,
			TempOffsetC: g.BMETempOffsetC,
			Baseline:    sgp30.Baseline{ECO2: g.SGP30BaselineECO2, TVOC: g.SGP30BaselineTVOC},
			CompTempC:   g.SGP30CompTempC,
			CompRH:      g.SGP30CompRH,
		}
	}
	return sensors.Config{
		In:          group(c.In),
		Out:         group(c.Out),
		SeaLevelHPa: c.SeaLevelHPa,
	}
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
