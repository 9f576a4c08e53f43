// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/env_sampler/internal/env"
)

// ReadingSink receives every successful sample.
type ReadingSink interface {
	Write(env.DualReading) error
}

// mqttSink publishes the dual reading and each group as retained JSON.
type mqttSink struct {
	client   mqtt.Client
	topic    string
	topicIn  string
	topicOut string
}

func (s *mqttSink) Write(d env.DualReading) error {
	msgs := []struct {
		topic string
		v     any
	}{
		{s.topic, d},
		{s.topicIn, d.In},
		{s.topicOut, d.Out},
	}
	for _, m := range msgs {
		if m.topic == "" {
			continue
		}
		payload, err := json.Marshal(m.v)
		if err != nil {
			return fmt.Errorf("json marshal (%s): %w", m.topic, err)
		}
		if token := s.client.Publish(m.topic, 0, true, payload); token.Wait() && token.Error() != nil {
			return fmt.Errorf("MQTT publish (%s): %w", m.topic, token.Error())
		}
	}
	return nil
}

// csvSink writes one CSV line per reading, header first.
type csvSink struct {
	w      io.Writer
	header bool
}

func newCSVSink(w io.Writer) *csvSink {
	return &csvSink{w: w}
}

func (s *csvSink) Write(d env.DualReading) error {
	if !s.header {
		if _, err := fmt.Fprintln(s.w, csvHeader()); err != nil {
			return err
		}
		s.header = true
	}
	_, err := fmt.Fprintln(s.w, formatCSV(d))
	return err
}

// openSerialSink opens the serial link for the CSV stream.
func openSerialSink(port string, baud int) (*csvSink, io.Closer, error) {
	serialOpts := serial.OpenOptions{
		PortName:        port,
		BaudRate:        uint(baud),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}

	p, err := serial.Open(serialOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("serial open %s: %w", port, err)
	}
	log.Printf("producer: serial port opened on %s at %d baud", port, baud)
	return newCSVSink(p), p, nil
}
