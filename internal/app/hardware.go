// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/pet_monitor/internal/config"
	"github.com/relabs-tech/pet_monitor/internal/imu"
	"github.com/relabs-tech/pet_monitor/internal/sensors"
	"github.com/relabs-tech/pet_monitor/internal/vitals"
)

// collar is the sensor hardware brought up from config. A device that
// failed to initialize is left nil and its error recorded.
type collar struct {
	bus i2c.BusCloser
	mux sensors.Mux

	mpu    *sensors.MPU6050
	max    *sensors.MAX30102
	mpuErr error
	maxErr error

	simulated bool
	motion    imu.Source
	vitals    vitals.Source
}

// openCollar opens the bus and sensors named in cfg. It never fails as a
// whole: a missing bus or device only disables that part.
func openCollar(cfg *config.Config, log *zap.Logger) *collar {
	c := &collar{}

	if cfg.SimulateSensors {
		seed := uint64(time.Now().UnixNano())
		c.simulated = true
		c.motion = sensors.NewSimulatedMotion(seed)
		c.vitals = sensors.NewSimulatedVitals(seed)
		log.Info("sensors: using simulated readings")
		return c
	}

	bus, err := sensors.OpenBus(cfg.I2CBus)
	if err != nil {
		log.Error("sensors: I2C bus unavailable, sensors disabled", zap.Error(err))
		c.mpuErr, c.maxErr = err, err
		return c
	}
	c.bus = bus
	if cfg.UseMultiplexer {
		c.mux = sensors.NewTCA9548A(bus, cfg.MuxAddress)
		log.Info("sensors: using TCA9548A multiplexer", zap.String("address", hexAddr(cfg.MuxAddress)))
	} else {
		c.mux = &sensors.Direct{}
	}

	c.mpu, c.mpuErr = sensors.NewMPU6050(c.channel(cfg.MPU6050Channel), cfg.MPU6050Address)
	if c.mpuErr != nil {
		log.Error("sensors: MPU6050 init failed", zap.Int("channel", cfg.MPU6050Channel), zap.Error(c.mpuErr))
	} else {
		c.motion = c.mpu
		log.Info("sensors: MPU6050 ready", zap.Int("channel", cfg.MPU6050Channel))
	}

	c.max, c.maxErr = sensors.NewMAX30102(c.channel(cfg.MAX30102Channel), cfg.MAX30102Address, sensors.NominalEstimator{})
	if c.maxErr != nil {
		log.Error("sensors: MAX30102 init failed", zap.Int("channel", cfg.MAX30102Channel), zap.Error(c.maxErr))
	} else {
		c.vitals = c.max
		log.Info("sensors: MAX30102 ready", zap.Int("channel", cfg.MAX30102Channel))
	}
	return c
}

// channel returns the bus as seen by devices on a multiplexer channel.
func (c *collar) channel(ch int) i2c.Bus {
	return sensors.NewChannelBus(c.bus, c.mux, ch)
}

func (c *collar) hasBus() bool {
	return c.bus != nil
}

func (c *collar) Close() error {
	if c.bus == nil {
		return nil
	}
	return c.bus.Close()
}

var errNoBus = errors.New("no I2C bus")
