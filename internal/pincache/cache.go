// Package pincache holds the in-memory per-pin state triple (desired,
// hardware, last_remote) plus the override flag and PWM duty, and is
// the sole arbiter of "current truth" for every other component.
package pincache

import "sync"

// State is one pin's cached view. Every field is guarded by the
// owning Cache entry's mutex; callers never see a torn read.
type State struct {
	Desired            bool
	Hardware           bool
	LastRemote         bool
	UserOverrideActive bool
	PWMDuty            int
}

type entry struct {
	mu    sync.Mutex
	state State
}

// Cache is a map from pin number to State, with one exclusive section
// per pin and a coarser section guarding the map's own structure
// (adding pins at bootstrap). There is no re-entrant locking: no
// method here calls another method on the same entry while holding
// its lock, so a plain sync.Mutex is sufficient even though the
// originating design speaks of "re-entrant" exclusion per pin.
type Cache struct {
	structMu sync.RWMutex
	entries  map[int]*entry
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[int]*entry)}
}

// Add registers pin with zero-valued state if it is not already
// present. Called only during bootstrap, before any other goroutine
// can observe the pin.
func (c *Cache) Add(pin int) {
	c.structMu.Lock()
	defer c.structMu.Unlock()

	if _, ok := c.entries[pin]; !ok {
		c.entries[pin] = &entry{}
	}
}

func (c *Cache) get(pin int) *entry {
	c.structMu.RLock()
	defer c.structMu.RUnlock()
	return c.entries[pin]
}

// Get returns a copy of pin's current state and whether the pin is
// known to the cache.
func (c *Cache) Get(pin int) (State, bool) {
	e := c.get(pin)
	if e == nil {
		return State{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, true
}

// SetDesired updates desired, the value the remote document says the
// pin should be.
func (c *Cache) SetDesired(pin int, v bool) {
	e := c.get(pin)
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Desired = v
}

// SetHardware updates hardware. Callers must only invoke this from
// inside the HAL-driving critical section: immediately after a
// successful HAL write, or after a HAL read in the sync loop.
func (c *Cache) SetHardware(pin int, v bool) {
	e := c.get(pin)
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Hardware = v
}

// SetLastRemote updates last_remote, used by the desired-state
// listener for change detection.
func (c *Cache) SetLastRemote(pin int, v bool) {
	e := c.get(pin)
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.LastRemote = v
}

// SetOverride sets or clears user_override_active for pin.
func (c *Cache) SetOverride(pin int, v bool) {
	e := c.get(pin)
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.UserOverrideActive = v
}

// SetPWMDuty records the last commanded PWM duty cycle.
func (c *Cache) SetPWMDuty(pin int, duty int) {
	e := c.get(pin)
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.PWMDuty = duty
}

// Snapshot returns a deep copy of every pin's state, for the
// hardware-sync writer to build a document update from without
// holding any per-pin lock for the duration of the write.
func (c *Cache) Snapshot() map[int]State {
	c.structMu.RLock()
	pins := make([]int, 0, len(c.entries))
	for pin := range c.entries {
		pins = append(pins, pin)
	}
	c.structMu.RUnlock()

	out := make(map[int]State, len(pins))
	for _, pin := range pins {
		if st, ok := c.Get(pin); ok {
			out[pin] = st
		}
	}
	return out
}

// Pins returns every pin number known to the cache.
func (c *Cache) Pins() []int {
	c.structMu.RLock()
	defer c.structMu.RUnlock()

	pins := make([]int, 0, len(c.entries))
	for pin := range c.entries {
		pins = append(pins, pin)
	}
	return pins
}
