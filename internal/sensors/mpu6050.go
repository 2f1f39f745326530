// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/binary"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/pet_monitor/internal/imu"
)

const (
	MPU6050DefaultAddr = 0x68

	mpuRegAccelXOutH = 0x3B
	mpuRegPwrMgmt1   = 0x6B
	mpuRegWhoAmI     = 0x75

	mpuAccelScale = 9.81 / 16384.0 // ±2g full scale, m/s² per LSB
	mpuGyroScale  = 1.0 / 131.0    // ±250°/s full scale
)

// MPU6050 reads acceleration, rotation and die temperature.
type MPU6050 struct {
	dev *i2c.Dev
}

// NewMPU6050 wakes the device from sleep.
func NewMPU6050(bus i2c.Bus, addr uint16) (*MPU6050, error) {
	m := &MPU6050{dev: &i2c.Dev{Bus: bus, Addr: addr}}
	if err := writeReg(m.dev, mpuRegPwrMgmt1, 0x00); err != nil {
		return nil, fmt.Errorf("mpu6050: wake: %w", err)
	}
	time.Sleep(100 * time.Millisecond)
	return m, nil
}

// WhoAmI returns the identity register, 0x68 on a genuine part.
func (m *MPU6050) WhoAmI() (byte, error) {
	var b [1]byte
	if err := readReg(m.dev, mpuRegWhoAmI, b[:]); err != nil {
		return 0, fmt.Errorf("mpu6050: who am i: %w", err)
	}
	return b[0], nil
}

// Read does one burst read of the accel, temperature and gyro registers.
func (m *MPU6050) Read() (imu.Sample, error) {
	var buf [14]byte
	if err := readReg(m.dev, mpuRegAccelXOutH, buf[:]); err != nil {
		return imu.Sample{}, fmt.Errorf("mpu6050: read: %w", err)
	}
	word := func(i int) float64 {
		return float64(int16(binary.BigEndian.Uint16(buf[i:])))
	}
	return imu.Sample{
		Source: "mpu6050",
		Ax:     word(0) * mpuAccelScale,
		Ay:     word(2) * mpuAccelScale,
		Az:     word(4) * mpuAccelScale,
		TempC:  word(6)/340.0 + 36.53,
		Gx:     word(8) * mpuGyroScale,
		Gy:     word(10) * mpuGyroScale,
		Gz:     word(12) * mpuGyroScale,
	}, nil
}
