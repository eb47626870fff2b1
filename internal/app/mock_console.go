// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/shake_feedback/internal/config"
	"github.com/relabs-tech/shake_feedback/internal/interpreter"
	"github.com/relabs-tech/shake_feedback/internal/sensors"
)

// RunMockConsole runs a whole session in one process: the configured
// source feeds the interpreter and feedback is printed to stdout. No
// broker is needed.
func RunMockConsole() error {
	cfg := config.Get()

	src, err := sensors.Open(cfg)
	if err != nil {
		return err
	}
	defer sensors.Close(src)

	interp, err := interpreter.New(interpreter.Options{
		Sensitivity: cfg.InitialSensitivity,
		GyroEnabled: cfg.GyroEnabled,
	})
	if err != nil {
		return err
	}

	obs := NewObserver(interp, newSourceSubscriber(src, pacerFor(cfg)), &consolePresenter{w: os.Stdout})
	defer obs.Close()

	if err := obs.Resume(); err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	return nil
}
