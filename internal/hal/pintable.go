package hal

import "sort"

// subtypeRotation is the order new pins are assigned a Subtype in, by
// table index. It has no significance beyond giving the default pin
// table a mix of actuator and sensor pins to exercise naming and
// scheduling against; deployments override individual pins' purpose
// through the naming customization path, not by editing this table.
var subtypeRotation = []Subtype{
	SubtypePump,
	SubtypeLight,
	SubtypeMotor,
	SubtypeSensor,
	SubtypeGeneric,
}

// DefaultPinTable builds the compiled-in Descriptor set for a standard
// 40-pin header, derived from RaspberryPiPinMap. Pins reserved for I2C,
// SPI, UART and 1-Wire are excluded: those physical positions are
// committed to their alternate function and are never offered as
// general-purpose actuator/sensor pins.
func DefaultPinTable() []Descriptor {
	reserved := CapI2C | CapSPI | CapUART | Cap1Wire

	physicals := make([]int, 0, len(RaspberryPiPinMap))
	for physical := range RaspberryPiPinMap {
		physicals = append(physicals, physical)
	}
	sort.Ints(physicals)

	table := make([]Descriptor, 0, len(physicals))
	idx := 0
	for _, physical := range physicals {
		info := RaspberryPiPinMap[physical]
		if info.Capabilities&reserved != 0 {
			continue
		}

		subtype := subtypeRotation[idx%len(subtypeRotation)]
		idx++

		direction := Output
		if subtype == SubtypeSensor {
			direction = Input
		}

		table = append(table, Descriptor{
			Number:     info.BCM,
			Physical:   info.Physical,
			Direction:  direction,
			Subtype:    subtype,
			PWMCapable: info.Capabilities&CapPWM != 0,
		})
	}

	return table
}
