// Package controller wires bootstrap, the document-store client, the
// three listeners, the command processor, the schedule engine, and
// the hardware sync loop into one running process, and owns the
// central stop signal of spec §5's cancellation model.
package controller

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lattice-iot/gpio-bridge/internal/bootstrap"
	"github.com/lattice-iot/gpio-bridge/internal/command"
	"github.com/lattice-iot/gpio-bridge/internal/config"
	"github.com/lattice-iot/gpio-bridge/internal/docstore"
	"github.com/lattice-iot/gpio-bridge/internal/hal"
	"github.com/lattice-iot/gpio-bridge/internal/hwsync"
	"github.com/lattice-iot/gpio-bridge/internal/identity"
	"github.com/lattice-iot/gpio-bridge/internal/schedule"
)

// Controller is the assembled, running bridge process.
type Controller struct {
	cfg    *config.Config
	logger *zap.Logger

	gpio   hal.GPIO
	client *docstore.Client

	processor *command.Processor
	engine    *schedule.Engine
	sync      *hwsync.Loop

	desired  *docstore.DesiredListener
	schedLis *docstore.ScheduleListener
	cmdLis   *docstore.CommandListener
}

// New performs bootstrap (spec §4.10 steps 1-6) and assembles every
// component, but starts nothing yet.
func New(ctx context.Context, cfg *config.Config, gpio hal.GPIO, logger *zap.Logger) (*Controller, error) {
	pinTable := hal.DefaultPinTable()
	if cfg.PinTableOverridePath != "" {
		override, err := hal.LoadPinTableOverride(cfg.PinTableOverridePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load pin table override: %w", err)
		}
		logger.Info("using pin table override", zap.String("path", cfg.PinTableOverridePath), zap.Int("pin_count", len(override)))
		pinTable = override
	}

	identityProvider := identity.NewProvider(cfg.HardwareSerialOverride)

	serial, err := identityProvider.HardwareSerial(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap failed: %w", err)
	}

	client := docstore.NewClient(cfg.MQTTBrokerURL, cfg.MQTTClientID, serial, cfg.RPCTimeout(), logger)
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}

	result, err := bootstrap.Run(ctx, gpio, pinTable, identityProvider, client, logger)
	if err != nil {
		client.Disconnect()
		return nil, err
	}

	registry := schedule.NewRegistry()
	executor := schedule.NewHALExecutor(gpio, result.Cache, result.Locker, pinTable, cfg.PWMDefaultFrequencyHz, logger)
	statusWriter := docstore.NewScheduleStatusWriter(client, logger)
	engine := schedule.NewEngine(registry, executor, statusWriter, result.Cache, result.Locker, cfg.ScheduleReevaluateIntervalDuration(), logger)

	processor := command.NewProcessor(gpio, result.Cache, client, result.Locker, registry, cfg.PWMDefaultFrequencyHz, logger)

	applyDesired := func(pin int, desired bool) error {
		result.Locker.Lock(pin)
		defer result.Locker.Unlock(pin)
		if err := gpio.SetDigital(pin, desired); err != nil {
			return err
		}
		result.Cache.SetHardware(pin, desired)
		return nil
	}

	desiredListener := docstore.NewDesiredListener(client, result.Cache, applyDesired, logger)
	scheduleListener := docstore.NewScheduleListener(client, engine, logger)
	commandListener := docstore.NewCommandListener(client, processor, logger)

	syncLoop := hwsync.New(gpio, result.Cache, result.Locker, client, pinTable,
		cfg.PinReadInterval(), cfg.HardwareSyncWriteInterval(), logger)

	return &Controller{
		cfg:       cfg,
		logger:    logger,
		gpio:      gpio,
		client:    client,
		processor: processor,
		engine:    engine,
		sync:      syncLoop,
		desired:   desiredListener,
		schedLis:  scheduleListener,
		cmdLis:    commandListener,
	}, nil
}

// Start implements spec §4.10 step 7: start the three listeners, the
// schedule engine's periodic re-evaluator, and the hardware sync
// loop's reader and writer. The process is "running" once Start
// returns without error.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.desired.Start(); err != nil {
		return fmt.Errorf("failed to start desired-state listener: %w", err)
	}
	if err := c.schedLis.Start(); err != nil {
		return fmt.Errorf("failed to start schedule listener: %w", err)
	}
	if err := c.cmdLis.Start(); err != nil {
		return fmt.Errorf("failed to start command listener: %w", err)
	}
	if err := c.engine.Start(); err != nil {
		return fmt.Errorf("failed to start schedule engine: %w", err)
	}
	c.sync.Start(ctx)

	c.logger.Info("gpio bridge running")
	return nil
}

// Stop implements spec §5's cancellation model: stop the schedule
// engine (signals every executor, 5s deadline per executor), stop the
// sync loop (offline write, drive pins low), then release the HAL.
func (c *Controller) Stop() {
	c.engine.Stop()
	c.sync.Stop()

	if err := c.gpio.Cleanup(); err != nil {
		c.logger.Error("hal cleanup failed during shutdown", zap.Error(err))
	}

	c.client.Disconnect()
}
