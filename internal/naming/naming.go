// Package naming generates and preserves informative pin names (spec
// §4.9): smart defaults at bootstrap, customization preservation
// across restarts, and the rename_pin/reset_pin_name operations.
package naming

import (
	"fmt"
	"time"

	"github.com/lattice-iot/gpio-bridge/internal/hal"
)

// capabilityDescription renders a short human-readable capability
// summary for the smart-default name.
func capabilityDescription(d hal.Descriptor) string {
	if d.PWMCapable {
		return "PWM-capable"
	}
	if d.Direction == hal.Input {
		return "digital input"
	}
	return "digital output"
}

// SmartDefault builds "GPIO{number} (PIN{physical}) - {SUBTYPE}
// ({capability description})".
func SmartDefault(d hal.Descriptor) string {
	return fmt.Sprintf("GPIO%d (PIN%d) - %s (%s)",
		d.Number, d.Physical, string(d.Subtype), capabilityDescription(d))
}

// ExistingEntry is the subset of a stored gpioState.<pin> entry the
// naming pass needs to decide what to do.
type ExistingEntry struct {
	Present        bool
	Name           string
	NameCustomized bool
}

// Decision is the outcome of evaluating one pin against its existing
// document entry.
type Decision struct {
	Name           string
	DefaultName    string
	NameCustomized bool
	CustomizedAt   time.Time
	Changed        bool
}

// legacyDefaults holds hardcoded names from prior naming conventions
// that should be overwritten even though name_customized is false —
// the fixture of "a legacy hardcoded default from a prior convention"
// spec §4.9 requires recognizing. Empty for this repository: the
// system has shipped only one naming convention so far, but the slot
// exists for migrations without touching Evaluate's call sites.
var legacyDefaults = map[string]bool{}

// Evaluate implements the bootstrap naming pass for a single pin,
// per spec §4.9:
//   - no entry exists: smart default, not customized.
//   - name_customized == true: leave name alone, refresh default_name.
//   - name_customized == false and name matches a legacy default:
//     overwrite with the new smart default.
//   - otherwise: leave name untouched.
func Evaluate(d hal.Descriptor, existing ExistingEntry) Decision {
	smart := SmartDefault(d)

	if !existing.Present {
		return Decision{Name: smart, DefaultName: smart, NameCustomized: false, Changed: true}
	}

	if existing.NameCustomized {
		return Decision{Name: existing.Name, DefaultName: smart, NameCustomized: true, Changed: false}
	}

	if legacyDefaults[existing.Name] && existing.Name != smart {
		return Decision{Name: smart, DefaultName: smart, NameCustomized: false, Changed: true}
	}

	return Decision{Name: existing.Name, DefaultName: smart, NameCustomized: false, Changed: false}
}

// Rename implements rename_pin: sets name_customized=true and stamps
// customized_at. Renaming a pin to its current name is a no-op on the
// document (spec round-trip property R3).
func Rename(existing ExistingEntry, newName string, now time.Time) (Decision, bool) {
	if existing.Name == newName {
		return Decision{}, false
	}
	return Decision{Name: newName, NameCustomized: true, CustomizedAt: now, Changed: true}, true
}

// Reset implements reset_pin_name: regenerates the default and clears
// the customized flag.
func Reset(d hal.Descriptor) Decision {
	smart := SmartDefault(d)
	return Decision{Name: smart, DefaultName: smart, NameCustomized: false, Changed: true}
}
