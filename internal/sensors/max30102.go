// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/pet_monitor/internal/vitals"
)

const (
	MAX30102DefaultAddr = 0x57

	maxRegFIFOWrPtr   = 0x04
	maxRegFIFORdPtr   = 0x06
	maxRegFIFOData    = 0x07
	maxRegFIFOConfig  = 0x08
	maxRegModeConfig  = 0x09
	maxRegSpO2Config  = 0x0A
	maxRegLED1PA      = 0x0C
	maxRegLED2PA      = 0x0D
	maxRegPilotPA     = 0x10
	maxRegPartID      = 0xFF
	maxFIFODepth      = 32
	maxBytesPerSample = 6 // 3 bytes red + 3 bytes IR
)

// PPGSample is one FIFO entry; 18-bit red and infrared LED counts.
type PPGSample struct {
	Red uint32
	IR  uint32
}

// Estimator derives SpO2 and heart rate from raw PPG samples.
type Estimator interface {
	Estimate(samples []PPGSample) (spo2, heartRate int, err error)
}

// NominalEstimator reports fixed healthy values whenever the sensor has
// samples. It stands in until a real PPG algorithm is plugged in.
type NominalEstimator struct{}

func (NominalEstimator) Estimate(samples []PPGSample) (int, int, error) {
	if len(samples) == 0 {
		return 0, 0, ErrNoData
	}
	return 98, 75, nil
}

// MAX30102 is the pulse oximeter.
type MAX30102 struct {
	dev       *i2c.Dev
	estimator Estimator
}

// NewMAX30102 resets the device and configures SpO2 mode. A nil estimator
// means NominalEstimator.
func NewMAX30102(bus i2c.Bus, addr uint16, est Estimator) (*MAX30102, error) {
	if est == nil {
		est = NominalEstimator{}
	}
	m := &MAX30102{dev: &i2c.Dev{Bus: bus, Addr: addr}, estimator: est}

	if err := writeReg(m.dev, maxRegModeConfig, 0x40); err != nil {
		return nil, fmt.Errorf("max30102: reset: %w", err)
	}
	time.Sleep(100 * time.Millisecond)

	setup := []struct{ reg, val byte }{
		{maxRegFIFOConfig, 0x4F}, // avg 4, rollover, almost-full 15
		{maxRegModeConfig, 0x03}, // SpO2 mode
		{maxRegSpO2Config, 0x27}, // 4096nA, 100sps, 411us
		{maxRegLED1PA, 0x24},
		{maxRegLED2PA, 0x24},
		{maxRegPilotPA, 0x7F},
	}
	for _, s := range setup {
		if err := writeReg(m.dev, s.reg, s.val); err != nil {
			return nil, fmt.Errorf("max30102: setup reg 0x%02X: %w", s.reg, err)
		}
	}
	return m, nil
}

// PartID returns the part identifier, 0x15 on a MAX30102.
func (m *MAX30102) PartID() (byte, error) {
	var b [1]byte
	if err := readReg(m.dev, maxRegPartID, b[:]); err != nil {
		return 0, fmt.Errorf("max30102: part id: %w", err)
	}
	return b[0], nil
}

// ReadFIFO drains the samples waiting in the FIFO. An empty FIFO returns
// ErrNoData.
func (m *MAX30102) ReadFIFO() ([]PPGSample, error) {
	var wr, rd [1]byte
	if err := readReg(m.dev, maxRegFIFOWrPtr, wr[:]); err != nil {
		return nil, fmt.Errorf("max30102: fifo write pointer: %w", err)
	}
	if err := readReg(m.dev, maxRegFIFORdPtr, rd[:]); err != nil {
		return nil, fmt.Errorf("max30102: fifo read pointer: %w", err)
	}
	n := int(wr[0]-rd[0]) & (maxFIFODepth - 1)
	if n == 0 {
		return nil, ErrNoData
	}

	buf := make([]byte, n*maxBytesPerSample)
	if err := readReg(m.dev, maxRegFIFOData, buf); err != nil {
		return nil, fmt.Errorf("max30102: fifo data: %w", err)
	}
	samples := make([]PPGSample, n)
	for i := range samples {
		b := buf[i*maxBytesPerSample:]
		samples[i] = PPGSample{
			Red: (uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])) & 0x3FFFF,
			IR:  (uint32(b[3])<<16 | uint32(b[4])<<8 | uint32(b[5])) & 0x3FFFF,
		}
	}
	return samples, nil
}

// Read returns SpO2 and heart rate from the current FIFO contents.
func (m *MAX30102) Read() (vitals.Sample, error) {
	samples, err := m.ReadFIFO()
	if err != nil {
		return vitals.Sample{}, err
	}
	spo2, hr, err := m.estimator.Estimate(samples)
	if err != nil {
		return vitals.Sample{}, fmt.Errorf("max30102: estimate: %w", err)
	}
	return vitals.Sample{Source: "max30102", SpO2: spo2, HeartRate: hr}, nil
}
