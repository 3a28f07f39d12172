package naming

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lattice-iot/gpio-bridge/internal/hal"
)

func TestSmartDefaultFormat(t *testing.T) {
	d := hal.Descriptor{Number: 17, Physical: 11, Subtype: hal.SubtypePump, Direction: hal.Output, PWMCapable: false}
	assert.Equal(t, "GPIO17 (PIN11) - pump (digital output)", SmartDefault(d))
}

func TestSmartDefaultPWMCapable(t *testing.T) {
	d := hal.Descriptor{Number: 18, Physical: 12, Subtype: hal.SubtypeLight, Direction: hal.Output, PWMCapable: true}
	assert.Equal(t, "GPIO18 (PIN12) - light (PWM-capable)", SmartDefault(d))
}

// TestEvaluateCreatesDefaultForMissingEntry covers the no-entry case.
func TestEvaluateCreatesDefaultForMissingEntry(t *testing.T) {
	d := hal.Descriptor{Number: 17, Physical: 11, Subtype: hal.SubtypePump}
	decision := Evaluate(d, ExistingEntry{Present: false})

	assert.True(t, decision.Changed)
	assert.False(t, decision.NameCustomized)
	assert.Equal(t, SmartDefault(d), decision.Name)
}

// TestEvaluateNeverOverwritesCustomizedName covers invariant I3:
// name_customized == true => the controller never writes name.
func TestEvaluateNeverOverwritesCustomizedName(t *testing.T) {
	d := hal.Descriptor{Number: 17, Physical: 11, Subtype: hal.SubtypePump}
	existing := ExistingEntry{Present: true, Name: "Front Porch Pump", NameCustomized: true}

	decision := Evaluate(d, existing)

	assert.False(t, decision.Changed)
	assert.Equal(t, "Front Porch Pump", decision.Name)
	assert.Equal(t, SmartDefault(d), decision.DefaultName, "default_name still refreshes")
}

func TestEvaluateLeavesUncustomizedNonLegacyNameAlone(t *testing.T) {
	d := hal.Descriptor{Number: 17, Physical: 11, Subtype: hal.SubtypePump}
	existing := ExistingEntry{Present: true, Name: "Something Else", NameCustomized: false}

	decision := Evaluate(d, existing)
	assert.False(t, decision.Changed)
	assert.Equal(t, "Something Else", decision.Name)
}

// TestRenameToCurrentNameIsNoOp covers round-trip property R3.
func TestRenameToCurrentNameIsNoOp(t *testing.T) {
	existing := ExistingEntry{Present: true, Name: "Front Porch Pump", NameCustomized: true}

	_, changed := Rename(existing, "Front Porch Pump", time.Now())
	assert.False(t, changed)
}

func TestRenameToNewNameIsCustomization(t *testing.T) {
	existing := ExistingEntry{Present: true, Name: "GPIO17 (PIN11) - pump (digital output)", NameCustomized: false}
	now := time.Now()

	decision, changed := Rename(existing, "Front Porch Pump", now)
	assert.True(t, changed)
	assert.True(t, decision.NameCustomized)
	assert.Equal(t, "Front Porch Pump", decision.Name)
	assert.Equal(t, now, decision.CustomizedAt)
}

func TestResetClearsCustomization(t *testing.T) {
	d := hal.Descriptor{Number: 17, Physical: 11, Subtype: hal.SubtypePump}
	decision := Reset(d)

	assert.False(t, decision.NameCustomized)
	assert.Equal(t, SmartDefault(d), decision.Name)
}
