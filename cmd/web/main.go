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

	log.Println("starting pet-monitor web dashboard")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat, "pet-monitor-web")
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zl.Sync()

	if err := app.RunWeb(cfg, zl); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
