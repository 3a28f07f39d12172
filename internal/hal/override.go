package hal

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// overrideFile is the YAML shape of a pin-table override file: a
// deployment whose wiring differs from the standard 40-pin header
// (different subtype assignments, pins wired for different
// directions) can supply one instead of accepting DefaultPinTable's
// generated rotation.
type overrideFile struct {
	Pins []struct {
		Number     int    `yaml:"number"`
		Physical   int    `yaml:"physical"`
		Direction  string `yaml:"direction"`
		Subtype    string `yaml:"subtype"`
		PWMCapable bool   `yaml:"pwm_capable"`
	} `yaml:"pins"`
}

// LoadPinTableOverride reads a YAML pin-table override file and
// returns the Descriptor set it describes. Returns an error if the
// file is missing, malformed, or names an unknown direction/subtype.
func LoadPinTableOverride(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pin table override %q: %w", path, err)
	}

	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse pin table override %q: %w", path, err)
	}

	table := make([]Descriptor, 0, len(f.Pins))
	for _, p := range f.Pins {
		direction, err := parseDirection(p.Direction)
		if err != nil {
			return nil, fmt.Errorf("pin %d: %w", p.Number, err)
		}
		subtype, err := parseSubtype(p.Subtype)
		if err != nil {
			return nil, fmt.Errorf("pin %d: %w", p.Number, err)
		}

		table = append(table, Descriptor{
			Number:     p.Number,
			Physical:   p.Physical,
			Direction:  direction,
			Subtype:    subtype,
			PWMCapable: p.PWMCapable,
		})
	}

	return table, nil
}

func parseDirection(s string) (Direction, error) {
	switch s {
	case "output", "":
		return Output, nil
	case "input":
		return Input, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

func parseSubtype(s string) (Subtype, error) {
	switch Subtype(s) {
	case SubtypePump, SubtypeLight, SubtypeMotor, SubtypeSensor, SubtypeGeneric:
		return Subtype(s), nil
	case "":
		return SubtypeGeneric, nil
	default:
		return "", fmt.Errorf("unknown subtype %q", s)
	}
}
