package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lattice-iot/gpio-bridge/internal/docstore"
	"github.com/lattice-iot/gpio-bridge/internal/hal"
	"github.com/lattice-iot/gpio-bridge/internal/pincache"
)

func testPinTable() []hal.Descriptor {
	return []hal.Descriptor{
		{Number: 17, Physical: 11, Direction: hal.Output, Subtype: hal.SubtypePump},
		{Number: 27, Physical: 13, Direction: hal.Input, Subtype: hal.SubtypeSensor},
	}
}

func TestApplyPersistedDesiredStateRestoresOutputPins(t *testing.T) {
	gpio := hal.NewSimulator()
	table := testPinTable()
	for _, d := range table {
		require.NoError(t, gpio.Configure(d.Number, d.Direction, d.PWMCapable))
	}

	cache := pincache.New()
	for _, d := range table {
		cache.Add(d.Number)
	}

	device := docstore.DeviceDoc{
		GPIOState: map[string]docstore.PinDoc{
			"17": {DefaultName: "Pump 17"},
		},
	}
	desired := map[string]docstore.PinDoc{
		"17": {State: true},
	}

	gpioState := applyPersistedDesiredState(nil, gpio, cache, table, device, desired, zap.NewNop())

	st, ok := cache.Get(17)
	require.True(t, ok)
	assert.True(t, st.Desired)
	assert.True(t, st.LastRemote)
	assert.True(t, st.Hardware)

	hw, err := gpio.ReadDigital(17)
	require.NoError(t, err)
	assert.True(t, hw)

	assert.Contains(t, gpioState, "17")
	assert.Contains(t, gpioState, "27")
}

func TestRunNamingPassFillsSmartDefaultForNewPin(t *testing.T) {
	table := testPinTable()
	device := docstore.DeviceDoc{GPIOState: map[string]docstore.PinDoc{}}
	gpioState := map[string]docstore.PinDoc{
		"17": {}, "27": {},
	}

	runNamingPass(table, device, gpioState)

	assert.NotEmpty(t, gpioState["17"].Name)
	assert.False(t, gpioState["17"].NameCustomized)
	assert.Equal(t, "pump", gpioState["17"].Subtype)
}

func TestRunNamingPassPreservesCustomizedName(t *testing.T) {
	table := testPinTable()
	device := docstore.DeviceDoc{
		GPIOState: map[string]docstore.PinDoc{
			"17": {Name: "Front Porch Pump", NameCustomized: true},
		},
	}
	gpioState := map[string]docstore.PinDoc{
		"17": {Name: "Front Porch Pump", NameCustomized: true},
	}

	runNamingPass(table, device, gpioState)

	assert.Equal(t, "Front Porch Pump", gpioState["17"].Name)
	assert.True(t, gpioState["17"].NameCustomized)
}
