// Package bootstrap implements the process-start sequence of spec
// §4.10: capture identity, configure and safe-reset every pin on the
// HAL the caller constructed, read back any previously persisted
// desired state, run the naming pass, and hand the assembled
// components to the caller to start.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lattice-iot/gpio-bridge/internal/docstore"
	"github.com/lattice-iot/gpio-bridge/internal/hal"
	"github.com/lattice-iot/gpio-bridge/internal/identity"
	"github.com/lattice-iot/gpio-bridge/internal/naming"
	"github.com/lattice-iot/gpio-bridge/internal/pincache"
)

// Result is everything bootstrap assembled, ready for the controller
// to wire into listeners, the command processor, the schedule engine,
// and the hardware sync loop.
type Result struct {
	HardwareSerial string
	PinTable       []hal.Descriptor
	Cache          *pincache.Cache
	Locker         *pincache.PinLocker
}

// Run executes spec §4.10 steps 1 and 3 through 6; step 2 (building
// the HAL) is the caller's, which passes it in as gpio. Steps 7-8 (starting the
// listeners, engine, and sync loop) are the controller's job, once it
// has constructed them from this Result plus a connected
// docstore.Client.
func Run(
	ctx context.Context,
	gpio hal.GPIO,
	pinTable []hal.Descriptor,
	identityProvider *identity.Provider,
	client *docstore.Client,
	logger *zap.Logger,
) (*Result, error) {
	serial, err := identityProvider.HardwareSerial(ctx)
	if err != nil {
		return nil, fmt.Errorf("step 1 (capture identity): %w", err)
	}
	logger.Info("captured hardware identity", zap.String("hardware_serial", serial))

	cache := pincache.New()
	locker := pincache.NewPinLocker()

	for _, d := range pinTable {
		if err := gpio.Configure(d.Number, d.Direction, d.PWMCapable); err != nil {
			return nil, fmt.Errorf("step 3 (configure pin %d): %w", d.Number, err)
		}
		cache.Add(d.Number)
		locker.Add(d.Number)
	}

	for _, d := range pinTable {
		if d.Direction != hal.Output {
			continue
		}
		if err := gpio.SetDigital(d.Number, false); err != nil {
			return nil, fmt.Errorf("step 4 (safe-reset pin %d): %w", d.Number, err)
		}
		cache.SetDesired(d.Number, false)
		cache.SetHardware(d.Number, false)
		cache.SetLastRemote(d.Number, false)
	}

	var device docstore.DeviceDoc
	if err := client.Get("state", &device); err != nil {
		logger.Warn("step 5: could not read existing device document, proceeding with safe-reset state only", zap.Error(err))
		device = docstore.DeviceDoc{GPIOState: map[string]docstore.PinDoc{}}
	}

	var desired map[string]docstore.PinDoc
	if err := client.Get("desired", &desired); err != nil {
		logger.Warn("step 5: could not read persisted desired state, proceeding with safe-reset state only", zap.Error(err))
	}

	gpioState := applyPersistedDesiredState(ctx, gpio, cache, pinTable, device, desired, logger)

	runNamingPass(pinTable, device, gpioState)

	skeleton := map[string]any{"gpioState": gpioState}
	if err := client.Update("state", skeleton); err != nil {
		logger.Warn("step 6: failed to publish gpioState skeleton", zap.Error(err))
	}

	return &Result{
		HardwareSerial: serial,
		PinTable:       pinTable,
		Cache:          cache,
		Locker:         locker,
	}, nil
}

// applyPersistedDesiredState implements step 5: populate desired and
// last_remote from any previously persisted gpioState.<pin>.state on
// the "desired" topic (the operator-owned document, per SPEC_FULL.md
// §4.3.1 — not "state", which carries only controller-owned fields)
// and drive the HAL to match, so the process comes up respecting
// previously persisted desired state. It returns the per-pin document
// map, seeded from the "state" topic's controller-owned fields, so the
// naming pass (step 6) can be merged into the same write.
func applyPersistedDesiredState(
	_ context.Context,
	gpio hal.GPIO,
	cache *pincache.Cache,
	pinTable []hal.Descriptor,
	device docstore.DeviceDoc,
	desired map[string]docstore.PinDoc,
	logger *zap.Logger,
) map[string]docstore.PinDoc {
	gpioState := make(map[string]docstore.PinDoc, len(pinTable))

	for _, d := range pinTable {
		key := fmt.Sprintf("%d", d.Number)
		if existing, ok := device.GPIOState[key]; ok {
			gpioState[key] = existing
		} else {
			gpioState[key] = docstore.PinDoc{}
		}

		desiredEntry, ok := desired[key]
		if !ok || d.Direction != hal.Output {
			continue
		}

		cache.SetLastRemote(d.Number, desiredEntry.State)
		cache.SetDesired(d.Number, desiredEntry.State)

		if err := gpio.SetDigital(d.Number, desiredEntry.State); err != nil {
			logger.Error("failed to apply persisted desired state to hardware",
				zap.Int("pin", d.Number), zap.Error(err))
		} else {
			cache.SetHardware(d.Number, desiredEntry.State)
		}
	}

	return gpioState
}

// runNamingPass implements step 6's naming evaluation, mutating
// gpioState entries in place so the final write merges name,
// default_name, and name_customized alongside hardware/desired state.
func runNamingPass(pinTable []hal.Descriptor, device docstore.DeviceDoc, gpioState map[string]docstore.PinDoc) {
	for _, d := range pinTable {
		key := fmt.Sprintf("%d", d.Number)
		existing, present := device.GPIOState[key]

		decision := naming.Evaluate(d, naming.ExistingEntry{
			Present:        present,
			Name:           existing.Name,
			NameCustomized: existing.NameCustomized,
		})

		doc := gpioState[key]
		doc.Name = decision.Name
		doc.DefaultName = decision.DefaultName
		doc.NameCustomized = decision.NameCustomized
		doc.Type = d.Direction.String()
		doc.Subtype = string(d.Subtype)
		doc.PWMCapable = d.PWMCapable
		if decision.NameCustomized && !decision.CustomizedAt.IsZero() {
			doc.CustomizedAt = decision.CustomizedAt
		}
		gpioState[key] = doc
	}
}
