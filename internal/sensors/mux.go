// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Mux serializes access to devices behind a bus multiplexer. Do selects
// channel and runs fn before any other channel can be selected.
type Mux interface {
	Do(channel int, fn func() error) error
}

// TCA9548A is the 8-channel I2C switch. Selecting a channel is a single
// byte write of 1<<channel to the switch address.
type TCA9548A struct {
	mu   sync.Mutex
	bus  i2c.Bus
	addr uint16
}

func NewTCA9548A(bus i2c.Bus, addr uint16) *TCA9548A {
	return &TCA9548A{bus: bus, addr: addr}
}

func (m *TCA9548A) Do(channel int, fn func() error) error {
	if channel < 0 || channel > 7 {
		return fmt.Errorf("tca9548a: channel %d out of range 0-7", channel)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.bus.Tx(m.addr, []byte{1 << channel}, nil); err != nil {
		return fmt.Errorf("tca9548a: select channel %d: %w", channel, err)
	}
	return fn()
}

// Direct is used when every device sits on the bus itself; the channel is ignored.
type Direct struct {
	mu sync.Mutex
}

func (d *Direct) Do(_ int, fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn()
}

// ChannelBus is an i2c.Bus for the devices on one mux channel. Every
// transaction re-selects the channel, so devices on different channels can
// share the physical bus without seeing each other's traffic.
type ChannelBus struct {
	bus     i2c.Bus
	mux     Mux
	channel int
}

func NewChannelBus(bus i2c.Bus, mux Mux, channel int) *ChannelBus {
	return &ChannelBus{bus: bus, mux: mux, channel: channel}
}

func (c *ChannelBus) String() string {
	return fmt.Sprintf("%s/ch%d", c.bus, c.channel)
}

func (c *ChannelBus) Tx(addr uint16, w, r []byte) error {
	return c.mux.Do(c.channel, func() error {
		return c.bus.Tx(addr, w, r)
	})
}

func (c *ChannelBus) SetSpeed(f physic.Frequency) error {
	return c.bus.SetSpeed(f)
}
