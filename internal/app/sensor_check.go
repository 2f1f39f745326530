// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/pet_monitor/internal/config"
	"github.com/relabs-tech/pet_monitor/internal/gps"
	"github.com/relabs-tech/pet_monitor/internal/health"
	"github.com/relabs-tech/pet_monitor/internal/imu"
	"github.com/relabs-tech/pet_monitor/internal/orientation"
	"github.com/relabs-tech/pet_monitor/internal/sensors"
	"github.com/relabs-tech/pet_monitor/internal/vitals"
)

// SensorCheckOptions controls the bring-up tool.
type SensorCheckOptions struct {
	DumpRegisters bool
	Samples       int // readings to print, 0 = until interrupted
	Interval      time.Duration
}

// RunSensorCheck scans the bus, reports each device and prints live
// readings, for checking a collar on the bench.
func RunSensorCheck(cfg *config.Config, log *zap.Logger, out io.Writer, opts SensorCheckOptions) error {
	c := openCollar(cfg, log)
	defer c.Close()

	if !c.simulated {
		if !c.hasBus() {
			return fmt.Errorf("sensor check: %w", errNoBus)
		}
		scanCollar(out, c, cfg)
		reportDevices(out, c, cfg, opts.DumpRegisters)
	}

	var fix *gps.PositionFix
	var receiver *gps.Receiver
	if cfg.UseGPS {
		port, err := gps.OpenSerial(cfg.GPSSerialPort, cfg.GPSBaudRate)
		if err != nil {
			fmt.Fprintf(out, "GPS: %v\n", err)
		} else {
			fix = &gps.PositionFix{}
			receiver = gps.NewReceiver(port, fix, log)
			defer receiver.Close()
			fmt.Fprintf(out, "GPS: reading %s at %d baud\n", cfg.GPSSerialPort, cfg.GPSBaudRate)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	thresholds := thresholdsFrom(cfg)
	for i := 0; opts.Samples == 0 || i < opts.Samples; i++ {
		if receiver != nil {
			if _, err := receiver.Poll(cfg.GPSPollTimeout()); err != nil {
				log.Warn("sensor check: gps read failed", zap.Error(err))
			}
		}
		r := readOnce(c.vitals, c.motion)
		a := health.Analyze(r.Vitals.SpO2, r.Vitals.HeartRate, r.MotionMagnitude(), thresholds)
		fmt.Fprintln(out, formatCheckLine(r, a, fix))

		if err := sleepCtx(ctx, opts.Interval); err != nil {
			break
		}
	}
	return nil
}

func readOnce(vs vitals.Source, ms imu.Source) Reading {
	var r Reading
	if vs == nil {
		r.VitalsErr = errSensorMissing
	} else {
		r.Vitals, r.VitalsErr = vs.Read()
	}
	if ms == nil {
		r.MotionErr = errSensorMissing
	} else if s, err := ms.Read(); err != nil {
		r.MotionErr = err
	} else {
		r.Motion = s
		r.Pose = orientation.FromSample(s)
	}
	return r
}

func scanCollar(out io.Writer, c *collar, cfg *config.Config) {
	fmt.Fprintf(out, "I2C bus %s\n", c.bus)
	writeScan(out, "bus", sensors.Scan(c.bus))
	if !cfg.UseMultiplexer {
		return
	}
	for ch := 0; ch < 8; ch++ {
		var found []uint16
		for _, addr := range sensors.Scan(c.channel(ch)) {
			if addr != cfg.MuxAddress {
				found = append(found, addr)
			}
		}
		writeScan(out, fmt.Sprintf("ch%d", ch), found)
	}
}

func writeScan(out io.Writer, label string, addrs []uint16) {
	if len(addrs) == 0 {
		fmt.Fprintf(out, "  %-4s (none)\n", label)
		return
	}
	for _, addr := range addrs {
		name, ok := sensors.KnownDevices[addr]
		if !ok {
			name = "unknown"
		}
		fmt.Fprintf(out, "  %-4s %s %s\n", label, hexAddr(addr), name)
	}
}

func reportDevices(out io.Writer, c *collar, cfg *config.Config, dump bool) {
	if c.mpuErr != nil {
		fmt.Fprintf(out, "MPU6050: %v\n", c.mpuErr)
	} else if id, err := c.mpu.WhoAmI(); err != nil {
		fmt.Fprintf(out, "MPU6050: WHO_AM_I: %v\n", err)
	} else {
		fmt.Fprintf(out, "MPU6050: WHO_AM_I=0x%02X\n", id)
		if dump {
			dumpDevice(out, "MPU6050", c.channel(cfg.MPU6050Channel), cfg.MPU6050Address, sensors.MPU6050Registers())
		}
	}

	if c.maxErr != nil {
		fmt.Fprintf(out, "MAX30102: %v\n", c.maxErr)
	} else if id, err := c.max.PartID(); err != nil {
		fmt.Fprintf(out, "MAX30102: PART_ID: %v\n", err)
	} else {
		fmt.Fprintf(out, "MAX30102: PART_ID=0x%02X\n", id)
		if dump {
			dumpDevice(out, "MAX30102", c.channel(cfg.MAX30102Channel), cfg.MAX30102Address, sensors.MAX30102Registers())
		}
	}
}

func dumpDevice(out io.Writer, name string, bus i2c.Bus, addr uint16, regs []sensors.RegisterInfo) {
	values, err := sensors.DumpRegisters(bus, addr, regs)
	writeRegisters(out, name, values)
	if err != nil {
		fmt.Fprintf(out, "  %v\n", err)
	}
}

func writeRegisters(out io.Writer, name string, values []sensors.RegisterValue) {
	fmt.Fprintf(out, "%s registers:\n", name)
	for _, v := range values {
		mark := ""
		if v.Access != "W" && v.Value != v.Default {
			mark = " *"
		}
		fmt.Fprintf(out, "  0x%02X %-14s 0x%02X %08b%s\n", v.Address, v.Name, v.Value, v.Value, mark)
	}
}

func formatCheckLine(r Reading, a health.AbnormalReading, fix *gps.PositionFix) string {
	var b strings.Builder
	if r.VitalsErr != nil {
		fmt.Fprintf(&b, "SpO2=--  HR=--  (%v)", r.VitalsErr)
	} else {
		fmt.Fprintf(&b, "SpO2=%d%%  HR=%d", r.Vitals.SpO2, r.Vitals.HeartRate)
	}
	if r.MotionErr != nil {
		fmt.Fprintf(&b, "  motion=--  (%v)", r.MotionErr)
	} else {
		fmt.Fprintf(&b, "  motion=%.2f  roll=%.1f  pitch=%.1f  temp=%.1fC",
			r.MotionMagnitude(), r.Pose.Roll, r.Pose.Pitch, r.Motion.TempC)
	}
	if fix != nil {
		fmt.Fprintf(&b, "  gps=%s", fix.CoordinatesString())
	}
	if a.Count > 0 {
		fmt.Fprintf(&b, "  [%s]", strings.Join(a.Issues, "; "))
	}
	return b.String()
}

func hexAddr(addr uint16) string {
	return fmt.Sprintf("0x%02X", addr)
}
