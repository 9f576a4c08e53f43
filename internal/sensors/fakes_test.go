// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

type fakeDHT struct {
	temp, hum       float64
	tempErr, humErr error
	calls           int
}

func (f *fakeDHT) Temperature() (float64, error) {
	f.calls++
	return f.temp, f.tempErr
}

func (f *fakeDHT) Humidity() (float64, error) {
	f.calls++
	return f.hum, f.humErr
}

func (f *fakeDHT) Read() (float64, float64, error) {
	f.calls++
	if f.tempErr != nil {
		return 0, 0, f.tempErr
	}
	if f.humErr != nil {
		return 0, 0, f.humErr
	}
	return f.hum, f.temp, nil
}

type fakeAQ struct {
	eco2, tvoc       float64
	eco2Err, tvocErr error
}

func (f *fakeAQ) ECO2() (float64, error) { return f.eco2, f.eco2Err }
func (f *fakeAQ) TVOC() (float64, error) { return f.tvoc, f.tvocErr }

type fakeBME struct {
	temp, gas, hum, pres, alt float64
	err                       error
	failOn                    string
}

func (f *fakeBME) read(name string, v float64) (float64, error) {
	if f.failOn == name {
		return 0, f.err
	}
	return v, nil
}

func (f *fakeBME) Temperature() (float64, error)      { return f.read("temperature", f.temp) }
func (f *fakeBME) Gas() (float64, error)              { return f.read("gas", f.gas) }
func (f *fakeBME) RelativeHumidity() (float64, error) { return f.read("humidity", f.hum) }
func (f *fakeBME) Pressure() (float64, error)         { return f.read("pressure", f.pres) }
func (f *fakeBME) Altitude() (float64, error)         { return f.read("altitude", f.alt) }

func goodBME() *fakeBME {
	return &fakeBME{temp: 24.0, gas: 5000, hum: 38.2, pres: 1013.2, alt: 120.5}
}

type fakeIAQ struct {
	eco2, tvoc []uint16
	err        error
	calls      int
}

func (f *fakeIAQ) MeasureIAQ() (uint16, uint16, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	i := f.calls
	f.calls++
	return f.eco2[i], f.tvoc[i], nil
}
