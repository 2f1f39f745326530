// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// sensor_check scans the collar's I2C bus and prints live sensor readings.
//
// Run:
//
//	go run ./cmd/sensor_check -registers -n 10
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/relabs-tech/pet_monitor/internal/app"
	"github.com/relabs-tech/pet_monitor/internal/config"
	"github.com/relabs-tech/pet_monitor/internal/logger"
)

func main() {
	configPath := flag.String("config", "./monitor_config.txt", "path to configuration file")
	registers := flag.Bool("registers", false, "dump device registers")
	samples := flag.Int("n", 0, "number of readings, 0 = until Ctrl+C")
	interval := flag.Duration("interval", time.Second, "time between readings")
	flag.Parse()

	log.Println("starting pet-monitor sensor check")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	zl, err := logger.New(cfg.LogLevel, "console", "pet-monitor-check")
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zl.Sync()

	opts := app.SensorCheckOptions{
		DumpRegisters: *registers,
		Samples:       *samples,
		Interval:      *interval,
	}
	if err := app.RunSensorCheck(cfg, zl, os.Stdout, opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
