// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/relabs-tech/env_sampler/internal/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIEnv(t *testing.T) {
	state := newEnvState()
	srv := httptest.NewServer(newWebMux(state, t.TempDir()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/env")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	in := testGroup()
	in.DHTTempC = env.Unavailable()
	payload, err := json.Marshal(env.DualReading{In: in, Out: testGroup()})
	require.NoError(t, err)
	require.NoError(t, state.handlePayload(payload))

	resp, err = http.Get(srv.URL + "/api/env")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got env.DualReading
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.False(t, got.In.DHTTempC.Valid())
	assert.Equal(t, 450.0, got.Out.ECO2)
}

func TestHandlePayloadRejectsGarbage(t *testing.T) {
	state := newEnvState()
	assert.Error(t, state.handlePayload([]byte("{")))
	_, have := state.latest()
	assert.False(t, have)
}

func TestWebSocketStream(t *testing.T) {
	state := newEnvState()
	srv := httptest.NewServer(newWebMux(state, t.TempDir()))
	defer srv.Close()

	first := env.DualReading{In: testGroup(), Out: testGroup()}
	state.update(first)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	// The latest reading arrives on connect.
	var got env.DualReading
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, first, got)

	second := first
	second.Out.ECO2 = 999
	state.update(second)

	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, 999.0, got.Out.ECO2)
}
