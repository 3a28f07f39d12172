//go:build !linux
// +build !linux

package main

import (
	"go.uber.org/zap"

	"github.com/lattice-iot/gpio-bridge/internal/hal"
)

// initHAL is always the simulator on non-Linux builds: the real
// backend depends on go-rpio's /dev/gpiomem mapping, which does not
// exist off Linux.
func initHAL(_ bool, logger *zap.Logger) hal.GPIO {
	logger.Info("non-linux platform detected, using simulator backend")
	return hal.NewSimulator()
}
