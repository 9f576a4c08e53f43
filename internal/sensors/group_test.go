// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/relabs-tech/env_sampler/internal/devices/dht22"
	"github.com/relabs-tech/env_sampler/internal/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestSampleGroup(t *testing.T) {
	dht := &fakeDHT{temp: 21.5, hum: 45.1}

	r, err := SampleGroup(dht, &fakeAQ{eco2: 450, tvoc: 12}, goodBME(), 5)
	require.NoError(t, err)

	assert.Equal(t, env.Some(21.5), r.DHTTempC)
	assert.Equal(t, env.Some(45.1), r.DHTHumidity)
	assert.Equal(t, [env.GroupFields]float64{21.5, 45.1, 450, 12, 29.0, 5000, 38.2, 1013.2, 120.5}, r.Values())
}

func TestSampleGroupTransientDHT(t *testing.T) {
	logs := captureLog(t)
	dht := NewDHT22(&fakeDHT{tempErr: fmt.Errorf("read: %w", dht22.ErrChecksum)})

	r, err := SampleGroup(dht, &fakeAQ{eco2: 450, tvoc: 12}, goodBME(), 5)
	require.NoError(t, err)

	assert.False(t, r.DHTTempC.Valid())
	assert.False(t, r.DHTHumidity.Valid())
	assert.Equal(t, env.Sentinel, r.DHTTempC.Or(env.Sentinel))
	assert.Equal(t, env.Sentinel, r.DHTHumidity.Or(env.Sentinel))
	assert.Equal(t, 450.0, r.ECO2)
	assert.Equal(t, 12.0, r.TVOC)
	assert.Equal(t, 29.0, r.BMETempC)
	assert.Equal(t, 5000.0, r.BMEGas)
	assert.Equal(t, 38.2, r.BMEHumidity)
	assert.Equal(t, 1013.2, r.BMEPressureHPa)
	assert.Equal(t, 120.5, r.BMEAltitudeM)
	assert.Empty(t, logs.String())
}

func TestSampleGroupOtherDHTErrorIsLogged(t *testing.T) {
	logs := captureLog(t)
	dht := &fakeDHT{tempErr: errors.New("pin busy")}

	r, err := SampleGroup(dht, &fakeAQ{eco2: 450, tvoc: 12}, goodBME(), 0)
	require.NoError(t, err)

	assert.False(t, r.DHTTempC.Valid())
	assert.False(t, r.DHTHumidity.Valid())
	assert.Contains(t, logs.String(), "DHT22 error: pin busy")
	assert.Equal(t, 24.0, r.BMETempC)
}

func TestSampleGroupHumidityFailureDropsBoth(t *testing.T) {
	logs := captureLog(t)
	dht := &fakeDHT{temp: 21.5, humErr: fmt.Errorf("%w: %w", ErrTransient, dht22.ErrShortRead)}

	r, err := SampleGroup(dht, &fakeAQ{eco2: 450, tvoc: 12}, goodBME(), 0)
	require.NoError(t, err)
	assert.False(t, r.DHTTempC.Valid())
	assert.False(t, r.DHTHumidity.Valid())
	assert.Equal(t, 2, dht.calls)
	assert.Empty(t, logs.String())
}

func TestSampleGroupTransientDHTNotRetried(t *testing.T) {
	inner := &fakeDHT{tempErr: dht22.ErrNoResponse}

	_, err := SampleGroup(NewDHT22(inner), &fakeAQ{}, goodBME(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestSampleGroupAirQualityErrorPropagates(t *testing.T) {
	busErr := errors.New("i2c nack")

	_, err := SampleGroup(&fakeDHT{}, &fakeAQ{eco2Err: busErr}, goodBME(), 0)
	require.ErrorIs(t, err, busErr)
	assert.Contains(t, err.Error(), "eCO2")

	_, err = SampleGroup(&fakeDHT{}, &fakeAQ{tvocErr: busErr}, goodBME(), 0)
	require.ErrorIs(t, err, busErr)
	assert.Contains(t, err.Error(), "TVOC")
}

func TestSampleGroupCombinedErrorPropagates(t *testing.T) {
	busErr := errors.New("i2c nack")
	for _, field := range []string{"temperature", "gas", "humidity", "pressure", "altitude"} {
		t.Run(field, func(t *testing.T) {
			bme := goodBME()
			bme.failOn, bme.err = field, busErr

			_, err := SampleGroup(&fakeDHT{}, &fakeAQ{}, bme, 0)
			require.ErrorIs(t, err, busErr)
			assert.Contains(t, err.Error(), "BME680: "+field)
		})
	}
}

func TestSampleGroupOffsetIsPlainAddition(t *testing.T) {
	raw, offset := 21.37, -1.25
	bme := goodBME()
	bme.temp = raw

	r, err := SampleGroup(&fakeDHT{}, &fakeAQ{}, bme, offset)
	require.NoError(t, err)
	assert.Equal(t, raw+offset, r.BMETempC)
}
