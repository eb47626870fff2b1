// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/shake_feedback/internal/app"
	"github.com/relabs-tech/shake_feedback/internal/config"
)

func main() {
	configPath := flag.String("config", "./shake_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting shake-feedback sensor producer (sensors → MQTT)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunSensorProducer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
