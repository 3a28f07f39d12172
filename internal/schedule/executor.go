package schedule

import (
	"time"

	"go.uber.org/zap"

	"github.com/lattice-iot/gpio-bridge/internal/hal"
	"github.com/lattice-iot/gpio-bridge/internal/pincache"
)

// HALExecutor is the concrete Executor: it drives the HAL under the
// per-pin exclusive section for every physical transition and checks
// the three pre-action conditions (override, window, stop signal)
// between every HAL call and sleep, per spec §4.5 step 2 and §4.7.
type HALExecutor struct {
	hal           hal.GPIO
	cache         *pincache.Cache
	locker        *pincache.PinLocker
	pwmCapable    map[int]bool
	defaultFreqHz int
	logger        *zap.Logger
}

func NewHALExecutor(gpio hal.GPIO, cache *pincache.Cache, locker *pincache.PinLocker, pinTable []hal.Descriptor, defaultFreqHz int, logger *zap.Logger) *HALExecutor {
	capable := make(map[int]bool, len(pinTable))
	for _, d := range pinTable {
		capable[d.Number] = d.PWMCapable
	}
	return &HALExecutor{hal: gpio, cache: cache, locker: locker, pwmCapable: capable, defaultFreqHz: defaultFreqHz, logger: logger}
}

// preActionCheck reports whether the executor should keep running. It
// is called between every HAL call and every sleep.
func (x *HALExecutor) preActionCheck(d Descriptor, stop <-chan struct{}) (keepGoing bool, status Status) {
	if st, ok := x.cache.Get(d.Pin); ok && st.UserOverrideActive {
		return false, StatusSupersededByOverride
	}
	if !d.Window.IsOpen(time.Now()) {
		return false, StatusSkippedOutOfWindow
	}
	select {
	case <-stop:
		return false, StatusSuccess
	default:
	}
	return true, ""
}

func (x *HALExecutor) setDigital(pin int, value bool) error {
	x.locker.Lock(pin)
	defer x.locker.Unlock(pin)

	if err := x.hal.SetDigital(pin, value); err != nil {
		return err
	}
	x.cache.SetDesired(pin, value)
	x.cache.SetHardware(pin, value)
	return nil
}

func (x *HALExecutor) setPWM(pin int, duty int, freqHz int) error {
	x.locker.Lock(pin)
	defer x.locker.Unlock(pin)

	if err := x.hal.SetPWM(pin, duty, freqHz); err != nil {
		return err
	}
	x.cache.SetPWMDuty(pin, duty)
	x.cache.SetDesired(pin, duty > 0)
	x.cache.SetHardware(pin, duty > 0)
	return nil
}

// sleepInterruptible sleeps for d or returns early (with ok=false) if
// stop fires first.
func sleepInterruptible(d time.Duration, stop <-chan struct{}) (ok bool) {
	select {
	case <-time.After(d):
		return true
	case <-stop:
		return false
	}
}

// Run executes d's type-specific sequence to completion or early
// termination.
func (x *HALExecutor) Run(d Descriptor, stop <-chan struct{}) Status {
	switch d.Type {
	case TypePWMCycle:
		return x.runPWMCycle(d, stop)
	case TypePWMFade:
		return x.runPWMFade(d, stop)
	case TypeDigitalToggle:
		return x.runDigitalToggle(d, stop)
	case TypeHoldState:
		return x.runHoldState(d, stop)
	default:
		x.logger.Error("unknown schedule type", zap.String("type", string(d.Type)))
		return StatusError
	}
}

// runPWMCycle: repeat cycles times: set high, sleep on, set low, sleep
// off. Terminal state false. cycles == 0 makes no HAL calls (B4).
func (x *HALExecutor) runPWMCycle(d Descriptor, stop <-chan struct{}) Status {
	for i := 0; i < d.Cycles; i++ {
		if ok, status := x.preActionCheck(d, stop); !ok {
			return status
		}
		if err := x.setDigital(d.Pin, true); err != nil {
			return StatusError
		}
		if !sleepInterruptible(time.Duration(d.OnDurationMs)*time.Millisecond, stop) {
			x.setDigital(d.Pin, false)
			return StatusSuccess
		}

		if ok, status := x.preActionCheck(d, stop); !ok {
			return status
		}
		if err := x.setDigital(d.Pin, false); err != nil {
			return StatusError
		}
		if !sleepInterruptible(time.Duration(d.OffDurationMs)*time.Millisecond, stop) {
			return StatusSuccess
		}
	}
	return StatusSuccess
}

// runPWMFade: issue `steps` PWM writes linearly interpolating duty
// from start to end over total_duration_ms, sleeping
// total_duration_ms/steps between writes. steps == 1 issues exactly
// one write, the end duty, after the full duration (B3).
func (x *HALExecutor) runPWMFade(d Descriptor, stop <-chan struct{}) Status {
	if !x.pwmCapable[d.Pin] {
		return StatusError
	}
	if !d.Window.IsOpen(time.Now()) {
		return StatusSkippedOutOfWindow
	}

	steps := d.Steps
	if steps < 1 {
		steps = 1
	}
	stepDuration := time.Duration(d.TotalDurationMs/steps) * time.Millisecond

	for i := 1; i <= steps; i++ {
		if ok, status := x.preActionCheck(d, stop); !ok {
			return status
		}
		if !sleepInterruptible(stepDuration, stop) {
			return StatusSuccess
		}

		duty := d.StartDuty + (d.EndDuty-d.StartDuty)*i/steps
		if ok, status := x.preActionCheck(d, stop); !ok {
			return status
		}
		if err := x.setPWM(d.Pin, duty, x.defaultFreqHz); err != nil {
			return StatusError
		}
	}
	return StatusSuccess
}

// runDigitalToggle: repeat cycles times: toggle pin, sleep interval.
// Terminal state is the original state (net-zero toggles).
func (x *HALExecutor) runDigitalToggle(d Descriptor, stop <-chan struct{}) Status {
	st, _ := x.cache.Get(d.Pin)
	original := st.Hardware
	current := original

	for i := 0; i < d.Cycles; i++ {
		if ok, status := x.preActionCheck(d, stop); !ok {
			return status
		}
		current = !current
		if err := x.setDigital(d.Pin, current); err != nil {
			return StatusError
		}
		if !sleepInterruptible(time.Duration(d.ToggleIntervalMs)*time.Millisecond, stop) {
			break
		}
	}

	if current != original {
		x.setDigital(d.Pin, original)
	}
	return StatusSuccess
}

// runHoldState: set pin to state, sleep hold_duration_ms, set pin
// false. Terminal state false.
func (x *HALExecutor) runHoldState(d Descriptor, stop <-chan struct{}) Status {
	if ok, status := x.preActionCheck(d, stop); !ok {
		return status
	}
	if err := x.setDigital(d.Pin, d.HoldState); err != nil {
		return StatusError
	}
	if !sleepInterruptible(time.Duration(d.HoldDurationMs)*time.Millisecond, stop) {
		x.setDigital(d.Pin, false)
		return StatusSuccess
	}

	if ok, status := x.preActionCheck(d, stop); !ok {
		return status
	}
	if err := x.setDigital(d.Pin, false); err != nil {
		return StatusError
	}
	return StatusSuccess
}
