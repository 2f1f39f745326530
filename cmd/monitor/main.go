// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/pet_monitor/internal/app"
	"github.com/relabs-tech/pet_monitor/internal/config"
	"github.com/relabs-tech/pet_monitor/internal/logger"
)

func main() {
	configPath := flag.String("config", "./monitor_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting pet-monitor (sensors → alerts, MQTT)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat, "pet-monitor")
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zl.Sync()

	if err := app.RunMonitor(cfg, zl); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
