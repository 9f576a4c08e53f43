// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"
	"log"

	"github.com/relabs-tech/env_sampler/internal/devices/bme680"
	"github.com/relabs-tech/env_sampler/internal/devices/dht22"
	"github.com/relabs-tech/env_sampler/internal/devices/sgp30"
	"github.com/relabs-tech/env_sampler/internal/env"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// registry resolves bus and pin names to periph devices.
type registry struct {
	openBus func(name string) (i2c.BusCloser, error)
	pin     func(name string) gpio.PinIO
}

var periphRegistry = registry{openBus: i2creg.Open, pin: gpioreg.ByName}

// Group is one set of sensors sampled together.
type Group struct {
	Humidity    HumiditySensor
	AirQuality  AirQualitySensor
	Combined    CombinedSensor
	TempOffsetC float64 // added to the BME680 temperature
}

// Sample reads the group once.
func (g Group) Sample() (env.GroupReading, error) {
	return SampleGroup(g.Humidity, g.AirQuality, g.Combined, g.TempOffsetC)
}

// GroupConfig describes the wiring and calibration of one group.
type GroupConfig struct {
	I2CBus      string // periph bus name, e.g. "1"
	DHTPin      string // e.g. "GPIO20"
	BMEAddr     uint16
	TempOffsetC float64

	// SGP30 start-up calibration
	Baseline  sgp30.Baseline
	CompTempC float64
	CompRH    float64
}

// Config describes both groups.
type Config struct {
	In          GroupConfig
	Out         GroupConfig
	SeaLevelHPa float64
}

// Source samples the in and out groups on every call.
type Source struct {
	in  Group
	out Group

	buses  []i2c.BusCloser
	sgpIn  *sgp30.Dev
	sgpOut *sgp30.Dev
}

// NewSource builds a Source from already initialized groups.
func NewSource(in, out Group) *Source {
	return &Source{in: in, out: out}
}

// Open brings up the hardware for both groups. It fails on the first device
// that does not initialize and releases whatever was already opened.
func Open(cfg Config) (*Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	return open(cfg, periphRegistry)
}

func open(cfg Config, reg registry) (*Source, error) {
	s := &Source{}
	in, sgpIn, err := s.openGroup(reg, "in", cfg.In, cfg.SeaLevelHPa)
	if err != nil {
		s.Close()
		return nil, err
	}
	out, sgpOut, err := s.openGroup(reg, "out", cfg.Out, cfg.SeaLevelHPa)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.in, s.out = in, out
	s.sgpIn, s.sgpOut = sgpIn, sgpOut

	log.Println("sensors: both groups initialized")
	return s, nil
}

func (s *Source) openGroup(reg registry, name string, gc GroupConfig, seaLevelHPa float64) (Group, *sgp30.Dev, error) {
	bus, err := reg.openBus(gc.I2CBus)
	if err != nil {
		return Group{}, nil, fmt.Errorf("%s: I2C bus %q: %w", name, gc.I2CBus, err)
	}
	s.buses = append(s.buses, bus)

	aq, err := sgp30.New(bus)
	if err != nil {
		return Group{}, nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := aq.IAQInit(); err != nil {
		return Group{}, nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := aq.SetIAQBaseline(gc.Baseline); err != nil {
		return Group{}, nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := aq.SetIAQRelativeHumidity(gc.CompTempC, gc.CompRH); err != nil {
		return Group{}, nil, fmt.Errorf("%s: %w", name, err)
	}
	log.Printf("sensors: %s: %s feature set 0x%04X", name, aq, aq.FeatureSet())

	opts := bme680.DefaultOpts
	if seaLevelHPa > 0 {
		opts.SeaLevelHPa = seaLevelHPa
	}
	bme, err := bme680.NewI2C(bus, gc.BMEAddr, &opts)
	if err != nil {
		return Group{}, nil, fmt.Errorf("%s: %w", name, err)
	}
	log.Printf("sensors: %s: %s", name, bme)

	pin := reg.pin(gc.DHTPin)
	if pin == nil {
		return Group{}, nil, fmt.Errorf("%s: DHT22 pin %q not found", name, gc.DHTPin)
	}
	dht, err := dht22.NewPin(pin)
	if err != nil {
		return Group{}, nil, fmt.Errorf("%s: %w", name, err)
	}
	log.Printf("sensors: %s: %s", name, dht)

	return Group{
		Humidity:    NewDHT22(dht),
		AirQuality:  NewSGP30(aq),
		Combined:    bme,
		TempOffsetC: gc.TempOffsetC,
	}, aq, nil
}

// Sample reads the in group, then the out group.
func (s *Source) Sample() (env.DualReading, error) {
	in, err := s.in.Sample()
	if err != nil {
		return env.DualReading{}, fmt.Errorf("in: %w", err)
	}
	out, err := s.out.Sample()
	if err != nil {
		return env.DualReading{}, fmt.Errorf("out: %w", err)
	}
	return env.DualReading{In: in, Out: out}, nil
}

// Baselines returns the current SGP30 algorithm baselines of both groups.
// Only available on a Source created by Open.
func (s *Source) Baselines() (in, out sgp30.Baseline, err error) {
	if s.sgpIn == nil || s.sgpOut == nil {
		return in, out, errors.New("sensors: no SGP30 devices attached")
	}
	if in, err = s.sgpIn.IAQBaseline(); err != nil {
		return in, out, fmt.Errorf("in: %w", err)
	}
	if out, err = s.sgpOut.IAQBaseline(); err != nil {
		return in, out, fmt.Errorf("out: %w", err)
	}
	return in, out, nil
}

// Close releases the I²C buses.
func (s *Source) Close() error {
	var errs []error
	for _, b := range s.buses {
		errs = append(errs, b.Close())
	}
	s.buses = nil
	return errors.Join(errs...)
}
