//go:build linux
// +build linux

package main

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/lattice-iot/gpio-bridge/internal/hal"
)

// initHAL builds the real Raspberry Pi backend on ARM Linux, falling
// back to the simulator everywhere else (non-ARM Linux, or if
// simulate_hardware is set, or if the real backend fails to
// initialize).
func initHAL(simulate bool, logger *zap.Logger) hal.GPIO {
	if simulate {
		logger.Info("simulate_hardware is set, using simulator backend")
		return hal.NewSimulator()
	}

	if runtime.GOARCH != "arm64" && runtime.GOARCH != "arm" {
		logger.Info("non-ARM platform detected, using simulator backend", zap.String("arch", runtime.GOARCH))
		return hal.NewSimulator()
	}

	rpi, err := hal.NewRaspberryPi(logger)
	if err != nil {
		logger.Error("failed to initialize raspberry pi backend, falling back to simulator", zap.Error(err))
		return hal.NewSimulator()
	}

	logger.Info("raspberry pi hal initialized")
	return rpi
}
