// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/env_sampler/internal/config"
	"github.com/relabs-tech/env_sampler/internal/env"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// envState holds the latest reading and the websocket clients streaming it.
type envState struct {
	mu      sync.RWMutex
	last    env.DualReading
	have    bool
	clients map[*websocket.Conn]*sync.Mutex
}

func newEnvState() *envState {
	return &envState{clients: make(map[*websocket.Conn]*sync.Mutex)}
}

// handlePayload stores a published reading and pushes it to every client.
func (s *envState) handlePayload(payload []byte) error {
	var d env.DualReading
	if err := json.Unmarshal(payload, &d); err != nil {
		return fmt.Errorf("reading unmarshal error: %w", err)
	}
	s.update(d)
	return nil
}

func (s *envState) update(d env.DualReading) {
	s.mu.Lock()
	s.last = d
	s.have = true
	clients := make(map[*websocket.Conn]*sync.Mutex, len(s.clients))
	for c, m := range s.clients {
		clients[c] = m
	}
	s.mu.Unlock()

	for c, m := range clients {
		m.Lock()
		err := c.WriteJSON(d)
		m.Unlock()
		if err != nil {
			log.Printf("web: websocket write error: %v", err)
			s.drop(c)
		}
	}
}

func (s *envState) latest() (env.DualReading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.have
}

func (s *envState) drop(c *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.Close()
}

func (s *envState) handleAPI(w http.ResponseWriter, r *http.Request) {
	d, ok := s.latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(d); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// handleWS streams every new reading, starting with the latest one.
func (s *envState) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}

	m := &sync.Mutex{}
	s.mu.Lock()
	s.clients[conn] = m
	d, have := s.last, s.have
	m.Lock()
	s.mu.Unlock()

	if have {
		err = conn.WriteJSON(d)
	}
	m.Unlock()
	if err != nil {
		s.drop(conn)
		return
	}

	// Reads only detect the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("web: websocket error: %v", err)
			}
			s.drop(conn)
			return
		}
	}
}

func newWebMux(s *envState, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/env", s.handleAPI)
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	return mux
}

// RunWeb subscribes to the readings and serves them over HTTP.
func RunWeb() error {
	cfg := config.Get()
	state := newEnvState()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicEnv, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if err := state.handlePayload(msg.Payload()); err != nil {
			log.Printf("web: %v", err)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to MQTT topic %s", cfg.TopicEnv)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, newWebMux(state, "web"))
}
