// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/env_sampler/internal/config"
	"github.com/relabs-tech/env_sampler/internal/env"
)

// RunConsoleMQTT prints every reading published by the producer.
func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicEnv, 0, func(_ mqtt.Client, msg mqtt.Message) {
		line, err := consoleLine(msg.Payload())
		if err != nil {
			log.Printf("console: %v", err)
			return
		}
		fmt.Println(line)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicEnv)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func consoleLine(payload []byte) (string, error) {
	var d env.DualReading
	if err := json.Unmarshal(payload, &d); err != nil {
		return "", fmt.Errorf("reading unmarshal error: %w", err)
	}
	return formatGroup("in", d.In) + "\n" + formatGroup("out", d.Out), nil
}
