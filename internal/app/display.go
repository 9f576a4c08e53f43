// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/env_sampler/internal/config"
	"github.com/relabs-tech/env_sampler/internal/env"
)

// groupDisplay is the OLED sitting on one group's I²C bus.
type groupDisplay struct {
	label string
	bus   i2c.BusCloser
	dev   *ssd1306.Dev
}

// RunDisplay draws the latest in and out readings on one SSD1306 per group.
func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	var displays []groupDisplay
	defer func() {
		for _, d := range displays {
			d.bus.Close()
		}
	}()
	for _, g := range []struct {
		label string
		bus   string
	}{{"in", cfg.In.I2CBus}, {"out", cfg.Out.I2CBus}} {
		bus, err := i2creg.Open(g.bus)
		if err != nil {
			return fmt.Errorf("failed to open I2C bus %q: %w", g.bus, err)
		}
		dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
		if err != nil {
			bus.Close()
			return fmt.Errorf("failed to initialize %s display: %w", g.label, err)
		}
		displays = append(displays, groupDisplay{label: g.label, bus: bus, dev: dev})
		log.Printf("display: %s display initialized on bus %s", g.label, g.bus)

		if err := dev.Draw(dev.Bounds(), splashImage(g.label), image.Point{}); err != nil {
			log.Printf("display: error showing %s splash: %v", g.label, err)
		}
	}

	state := newEnvState()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicEnv, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if err := state.handlePayload(msg.Payload()); err != nil {
			log.Printf("display: %v", err)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicEnv)

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for range ticker.C {
		d, have := state.latest()
		for _, disp := range displays {
			g := d.In
			if disp.label == "out" {
				g = d.Out
			}
			img := groupImage(disp.label, g, have)
			if err := disp.dev.Draw(disp.dev.Bounds(), img, image.Point{}); err != nil {
				log.Printf("display: error updating %s display: %v", disp.label, err)
			}
		}
	}
	return nil
}

// displayLines lays one group out on four 18 character lines.
func displayLines(label string, g env.GroupReading) []string {
	return []string{
		fmt.Sprintf("%-3s DHT %s %s", strings.ToUpper(label), formatValue(g.DHTTempC, 1), formatValue(g.DHTHumidity, 0)),
		fmt.Sprintf("BME %.1fC %.0f%%", g.BMETempC, g.BMEHumidity),
		fmt.Sprintf("CO2 %.0f VOC %.0f", g.ECO2, g.TVOC),
		fmt.Sprintf("%.0fhPa %.0fm", g.BMEPressureHPa, g.BMEAltitudeM),
	}
}

func groupImage(label string, g env.GroupReading, have bool) *image1bit.VerticalLSB {
	if !have {
		return textImage([]string{"", strings.ToUpper(label) + " group", "Waiting..."})
	}
	return textImage(displayLines(label, g))
}

func splashImage(label string) *image1bit.VerticalLSB {
	return textImage([]string{"", "Env Sampler", strings.ToUpper(label) + " group"})
}

// textImage draws up to four lines in the 7x13 font on a blank 128x64 frame.
func textImage(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawString(line)
	}
	return img
}
