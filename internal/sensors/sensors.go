// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors drives the collar's I2C devices: the TCA9548A bus
// multiplexer, the MPU6050 motion sensor and the MAX30102 pulse oximeter.
package sensors

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// ErrNoData means the device answered but had nothing new to report.
// Any other error from a Read is a fault.
var ErrNoData = errors.New("sensors: no data available")

// OpenBus initializes the periph host drivers and opens an I2C bus.
// An empty name opens the first bus found.
func OpenBus(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open I2C bus %q: %w", name, err)
	}
	return bus, nil
}

// readReg reads len(buf) bytes starting at reg.
func readReg(d *i2c.Dev, reg byte, buf []byte) error {
	return d.Tx([]byte{reg}, buf)
}

func writeReg(d *i2c.Dev, reg, value byte) error {
	return d.Tx([]byte{reg, value}, nil)
}
