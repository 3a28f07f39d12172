package pincache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUnknownPin(t *testing.T) {
	c := New()
	_, ok := c.Get(17)
	assert.False(t, ok)
}

func TestAddIsIdempotent(t *testing.T) {
	c := New()
	c.Add(17)
	c.Add(17)

	assert.Len(t, c.Pins(), 1)
}

func TestSettersRoundTrip(t *testing.T) {
	c := New()
	c.Add(17)

	c.SetDesired(17, true)
	c.SetHardware(17, true)
	c.SetLastRemote(17, true)
	c.SetOverride(17, true)
	c.SetPWMDuty(17, 42)

	st, ok := c.Get(17)
	require.True(t, ok)
	assert.True(t, st.Desired)
	assert.True(t, st.Hardware)
	assert.True(t, st.LastRemote)
	assert.True(t, st.UserOverrideActive)
	assert.Equal(t, 42, st.PWMDuty)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	c := New()
	c.Add(17)
	c.SetDesired(17, true)

	snap := c.Snapshot()
	c.SetDesired(17, false)

	assert.True(t, snap[17].Desired, "snapshot must not reflect later mutations")
}

// TestConcurrentPerPinAccess exercises invariant I3.2: concurrent
// writers to different pins, one goroutine per pin, never corrupt each
// other's state (run with -race to also check for data races).
func TestConcurrentPerPinAccess(t *testing.T) {
	c := New()
	for pin := 0; pin < 8; pin++ {
		c.Add(pin)
	}

	var wg sync.WaitGroup
	for pin := 0; pin < 8; pin++ {
		pin := pin
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.SetDesired(pin, i%2 == 0)
				c.SetHardware(pin, i%2 == 0)
			}
		}()
	}
	wg.Wait()

	for pin := 0; pin < 8; pin++ {
		st, ok := c.Get(pin)
		require.True(t, ok)
		assert.Equal(t, st.Desired, st.Hardware)
	}
}
