// Package command implements the command processor: consumes commands
// from the command listener, validates them, drives the HAL under
// per-pin exclusion, and records a response document before deleting
// the command (spec §4.4).
package command

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lattice-iot/gpio-bridge/internal/docstore"
	"github.com/lattice-iot/gpio-bridge/internal/hal"
	"github.com/lattice-iot/gpio-bridge/internal/pincache"
)

// PinLocker gives the processor the per-pin exclusive section every
// HAL-driving activity must hold.
type PinLocker interface {
	Lock(pin int)
	Unlock(pin int)
}

// ScheduleOverrideSetter lets the processor mark a pin's schedules as
// overridden when a command preempts an active executor.
type ScheduleOverrideSetter interface {
	// IsActive reports whether any schedule executor is currently
	// running for pin.
	IsActive(pin int) bool
}

// Processor is the command processor.
type Processor struct {
	hal       hal.GPIO
	cache     *pincache.Cache
	client    *docstore.Client
	locker    PinLocker
	schedules ScheduleOverrideSetter
	defaultFreqHz int
	logger    *zap.Logger

	timersMu sync.Mutex
	timers   map[int]*time.Timer
}

func NewProcessor(
	gpio hal.GPIO,
	cache *pincache.Cache,
	client *docstore.Client,
	locker PinLocker,
	schedules ScheduleOverrideSetter,
	defaultFreqHz int,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		hal:           gpio,
		cache:         cache,
		client:        client,
		locker:        locker,
		schedules:     schedules,
		defaultFreqHz: defaultFreqHz,
		logger:        logger,
		timers:        make(map[int]*time.Timer),
	}
}

// HandleCommand implements docstore.CommandHandler. It never blocks
// the caller's listener goroutine longer than one command's worth of
// work; callers that need concurrency across commands should invoke
// this from a dedicated goroutine per delivery.
func (p *Processor) HandleCommand(cmd docstore.CommandDoc) {
	p.locker.Lock(cmd.Pin)

	if err := p.validate(cmd); err != nil {
		p.locker.Unlock(cmd.Pin)
		p.respond(cmd.ID, "error", err.Error())
		return
	}

	if p.schedules.IsActive(cmd.Pin) {
		p.cache.SetOverride(cmd.Pin, true)
	}

	var execErr error
	switch cmd.Type {
	case "pin_control":
		execErr = p.applyDigital(cmd.Pin, cmd.Action == "on")
	case "pwm_control":
		duty := 0
		if cmd.Duty != nil {
			duty = *cmd.Duty
		}
		execErr = p.applyPWM(cmd.Pin, duty)
	}

	if execErr != nil {
		p.locker.Unlock(cmd.Pin)
		p.respond(cmd.ID, "error", execErr.Error())
		return
	}

	if cmd.DurationMs != nil && cmd.Action == "on" {
		p.scheduleAutoOff(cmd.Pin, *cmd.DurationMs)
	}
	p.locker.Unlock(cmd.Pin)

	p.writeHardwareState(cmd.Pin)
	p.respond(cmd.ID, "ok", "")
}

func (p *Processor) validate(cmd docstore.CommandDoc) error {
	if cmd.Type != "pin_control" && cmd.Type != "pwm_control" {
		return fmt.Errorf("unsupported command type %q", cmd.Type)
	}
	if _, ok := p.cache.Get(cmd.Pin); !ok {
		return fmt.Errorf("pin %d is not a known pin", cmd.Pin)
	}
	if cmd.Type == "pin_control" && cmd.Action != "on" && cmd.Action != "off" {
		return fmt.Errorf("unsupported action %q", cmd.Action)
	}
	if cmd.Type == "pwm_control" && cmd.Duty != nil && (*cmd.Duty < 0 || *cmd.Duty > 100) {
		return fmt.Errorf("duty %d out of range 0..100", *cmd.Duty)
	}
	return nil
}

func (p *Processor) applyDigital(pin int, value bool) error {
	if err := p.hal.SetDigital(pin, value); err != nil {
		return err
	}
	p.cache.SetDesired(pin, value)
	p.cache.SetHardware(pin, value)
	return nil
}

func (p *Processor) applyPWM(pin int, duty int) error {
	if err := p.hal.SetPWM(pin, duty, p.defaultFreqHz); err != nil {
		return err
	}
	p.cache.SetPWMDuty(pin, duty)
	p.cache.SetDesired(pin, duty > 0)
	p.cache.SetHardware(pin, duty > 0)
	return nil
}

// scheduleAutoOff arms a one-shot timer that drives the pin off after
// duration elapses, subject to the same per-pin exclusion; if a later
// command or schedule has already changed desired, the timer is a
// no-op (spec §4.4 step 6).
func (p *Processor) scheduleAutoOff(pin int, durationMs int) {
	p.timersMu.Lock()
	if existing, ok := p.timers[pin]; ok {
		existing.Stop()
	}
	timer := time.AfterFunc(time.Duration(durationMs)*time.Millisecond, func() {
		p.locker.Lock(pin)

		if st, ok := p.cache.Get(pin); !ok || !st.Desired {
			p.locker.Unlock(pin)
			return
		}
		if err := p.hal.SetDigital(pin, false); err != nil {
			p.locker.Unlock(pin)
			p.logger.Error("auto-off HAL call failed", zap.Int("pin", pin), zap.Error(err))
			return
		}
		p.cache.SetDesired(pin, false)
		p.cache.SetHardware(pin, false)
		p.locker.Unlock(pin)
		p.writeHardwareState(pin)
	})
	p.timers[pin] = timer
	p.timersMu.Unlock()
}

// writeHardwareState is the best-effort document write of spec §4.4
// step 7: read-modify-write the device document so only this pin's
// hardware_state/last_hardware_read change, retry once after 1s, then
// drop.
func (p *Processor) writeHardwareState(pin int) {
	st, ok := p.cache.Get(pin)
	if !ok {
		return
	}

	readAt := time.Now()
	mutate := func() error {
		return p.client.MutateDevice(func(device *docstore.DeviceDoc) {
			key := strconv.Itoa(pin)
			doc := device.GPIOState[key]
			doc.HardwareState = st.Hardware
			doc.LastHardwareRead = readAt
			device.GPIOState[key] = doc
		})
	}

	if err := mutate(); err != nil {
		time.Sleep(time.Second)
		if err := mutate(); err != nil {
			p.logger.Warn("dropping hardware-state write after retry", zap.Int("pin", pin), zap.Error(err))
		}
	}
}

// respond writes the response document and deletes the command,
// retrying each up to three times before logging and abandoning (spec
// §4.4 step 8).
func (p *Processor) respond(commandID, status, message string) {
	resp := docstore.ResponseDoc{Status: status, Message: message, CompletedAt: time.Now()}

	if !p.retry(3, func() error {
		return p.client.Set("responses/"+commandID, resp)
	}) {
		p.logger.Error("abandoning response write after retries", zap.String("command_id", commandID))
	}

	if !p.retry(3, func() error {
		return p.client.Delete("commands/" + commandID)
	}) {
		p.logger.Error("abandoning command delete after retries", zap.String("command_id", commandID))
	}
}

func (p *Processor) retry(attempts int, fn func() error) bool {
	for i := 0; i < attempts; i++ {
		if err := fn(); err == nil {
			return true
		}
	}
	return false
}
