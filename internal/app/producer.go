// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/env_sampler/internal/config"
	"github.com/relabs-tech/env_sampler/internal/env"
	"github.com/relabs-tech/env_sampler/internal/metrics"
	"github.com/relabs-tech/env_sampler/internal/sensors"
	"github.com/relabs-tech/env_sampler/internal/sim"
)

// RunProducer samples the sensor groups every SAMPLE_INTERVAL and publishes
// each reading to MQTT, plus the serial link when one is configured.
func RunProducer(simulate bool) error {
	cfg := config.Get()
	simulate = simulate || cfg.Simulate

	// --- Choose reading source (simulated vs real sensors) ---
	var src env.Source
	if simulate {
		log.Println("producer: using simulated sensor groups")
		src = sim.NewDefaultSource()
	} else {
		live, err := sensors.Open(cfg.SensorsConfig())
		if err != nil {
			return fmt.Errorf("sensor init: %w", err)
		}
		defer live.Close()
		src = live
	}

	if cfg.MetricsPort > 0 {
		go serveMetrics(cfg.MetricsPort)
	}

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("producer: connected to MQTT broker at %s", cfg.MQTTBroker)

	sinks := []ReadingSink{&mqttSink{
		client:   client,
		topic:    cfg.TopicEnv,
		topicIn:  cfg.TopicEnvIn,
		topicOut: cfg.TopicEnvOut,
	}}

	if cfg.SerialPort != "" {
		sink, port, err := openSerialSink(cfg.SerialPort, cfg.SerialBaudRate)
		if err != nil {
			return err
		}
		defer port.Close()
		sinks = append(sinks, sink)
	}

	ticker := time.NewTicker(time.Duration(cfg.SampleInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("producer: starting sample loop")
	for t := range ticker.C {
		d, err := sampleOnce(src, sinks)
		if err != nil {
			log.Printf("producer: %v", err)
			continue
		}
		log.Printf("%s in: T=%.2f eCO2=%.0f  out: T=%.2f eCO2=%.0f",
			t.Format(time.RFC3339), d.In.BMETempC, d.In.ECO2, d.Out.BMETempC, d.Out.ECO2)
	}
	return nil
}

// sampleOnce takes one reading, records it in the metrics and hands it to
// every sink. A failing sink is logged and does not stop the others.
func sampleOnce(src env.Source, sinks []ReadingSink) (env.DualReading, error) {
	start := time.Now()
	d, err := src.Sample()
	metrics.ObserveSample(start, err)
	if err != nil {
		return env.DualReading{}, fmt.Errorf("sample: %w", err)
	}
	metrics.SetDual(d)

	for _, s := range sinks {
		if err := s.Write(d); err != nil {
			log.Printf("producer: sink error: %v", err)
		}
	}
	return d, nil
}

func serveMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	log.Printf("producer: metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("producer: metrics server: %v", err)
	}
}
