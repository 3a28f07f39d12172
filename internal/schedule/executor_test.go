package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lattice-iot/gpio-bridge/internal/hal"
	"github.com/lattice-iot/gpio-bridge/internal/pincache"
)

func newTestExecutor(t *testing.T, pin int, pwmCapable bool) (*HALExecutor, *hal.Simulator, *pincache.Cache) {
	t.Helper()
	sim := hal.NewSimulator()
	require.NoError(t, sim.Configure(pin, hal.Output, pwmCapable))

	cache := pincache.New()
	cache.Add(pin)

	locker := pincache.NewPinLocker()
	locker.Add(pin)

	table := []hal.Descriptor{{Number: pin, PWMCapable: pwmCapable}}
	return NewHALExecutor(sim, cache, locker, table, 1000, zap.NewNop()), sim, cache
}

// TestPWMCycleZeroCycles covers boundary behavior B4: cycles = 0 makes
// no HAL calls and completes with last_status = success.
func TestPWMCycleZeroCycles(t *testing.T) {
	exec, sim, _ := newTestExecutor(t, 17, false)
	d := Descriptor{Pin: 17, Type: TypePWMCycle, Cycles: 0, Window: Window{Enabled: false}}

	status := exec.Run(d, make(chan struct{}))

	assert.Equal(t, StatusSuccess, status)
	v, err := sim.ReadDigital(17)
	require.NoError(t, err)
	assert.False(t, v)
}

// TestPWMFadeSingleStep covers boundary behavior B3: steps = 1 issues
// exactly one PWM write (the end duty) after total_duration_ms.
func TestPWMFadeSingleStep(t *testing.T) {
	exec, _, cache := newTestExecutor(t, 12, true)
	d := Descriptor{
		Pin: 12, Type: TypePWMFade,
		TotalDurationMs: 1, Steps: 1, StartDuty: 0, EndDuty: 100,
		Window: Window{Enabled: false},
	}

	status := exec.Run(d, make(chan struct{}))

	assert.Equal(t, StatusSuccess, status)
	st, ok := cache.Get(12)
	require.True(t, ok)
	assert.Equal(t, 100, st.PWMDuty)
}

func TestPWMFadeRequiresCapability(t *testing.T) {
	exec, _, _ := newTestExecutor(t, 17, false)
	d := Descriptor{Pin: 17, Type: TypePWMFade, Steps: 1, TotalDurationMs: 1, Window: Window{Enabled: false}}

	status := exec.Run(d, make(chan struct{}))
	assert.Equal(t, StatusError, status)
}

func TestHoldStateTerminatesLow(t *testing.T) {
	exec, sim, _ := newTestExecutor(t, 18, false)
	d := Descriptor{Pin: 18, Type: TypeHoldState, HoldState: true, HoldDurationMs: 1, Window: Window{Enabled: false}}

	status := exec.Run(d, make(chan struct{}))

	assert.Equal(t, StatusSuccess, status)
	v, err := sim.ReadDigital(18)
	require.NoError(t, err)
	assert.False(t, v)
}

func TestDigitalToggleReturnsToOriginalState(t *testing.T) {
	exec, sim, _ := newTestExecutor(t, 23, false)
	d := Descriptor{Pin: 23, Type: TypeDigitalToggle, Cycles: 3, ToggleIntervalMs: 1, Window: Window{Enabled: false}}

	status := exec.Run(d, make(chan struct{}))

	assert.Equal(t, StatusSuccess, status)
	v, err := sim.ReadDigital(23)
	require.NoError(t, err)
	assert.False(t, v, "net-zero toggles must leave the pin at its original state")
}

// TestExecutorStopsOnClosedWindow covers invariant I6: no HAL call
// occurs when the window is closed.
func TestExecutorStopsOnClosedWindow(t *testing.T) {
	exec, sim, _ := newTestExecutor(t, 27, false)
	closedWindow := Window{Enabled: true, StartMin: 0, EndMin: 1} // open only 00:00-00:01
	d := Descriptor{Pin: 27, Type: TypeHoldState, HoldState: true, HoldDurationMs: 1000, Window: closedWindow}

	status := exec.Run(d, make(chan struct{}))

	assert.Equal(t, StatusSkippedOutOfWindow, status)
	v, err := sim.ReadDigital(27)
	require.NoError(t, err)
	assert.False(t, v)
}

func TestOverrideSupersedesExecutor(t *testing.T) {
	exec, _, cache := newTestExecutor(t, 19, false)
	cache.SetOverride(19, true)

	d := Descriptor{Pin: 19, Type: TypeHoldState, HoldState: true, HoldDurationMs: 1000, Window: Window{Enabled: false}}
	status := exec.Run(d, make(chan struct{}))

	assert.Equal(t, StatusSupersededByOverride, status)
}
