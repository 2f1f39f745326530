package main

import (
	"log"
	"os"

	"github.com/relabs-tech/pet_monitor/internal/app"
	"github.com/relabs-tech/pet_monitor/internal/config"
	"github.com/relabs-tech/pet_monitor/internal/logger"
)

func main() {
	log.Println("starting pet-monitor console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal("monitor_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	zl, err := logger.New(cfg.LogLevel, "console", "pet-monitor-console")
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zl.Sync()

	if err := app.RunConsoleMQTT(cfg, zl, os.Stdout); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
