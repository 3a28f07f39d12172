// Package identity provides the hardware-serial provider, which the
// controller and bootstrap call at startup, and the one-shot
// provisioning client, which spec §6 and §1 declare an external
// collaborator and which the GPIO bridge core never invokes.
package identity

import (
	"context"
	"os"
	"strings"

	"github.com/lattice-iot/gpio-bridge/internal/bridgeerr"
)

// Provider supplies the device's hardware serial. It caches nothing:
// every HardwareSerial call reads its sources again. controller.New
// calls it once to address the document-store client, and
// bootstrap.Run calls it once more.
type Provider struct {
	override string
}

// NewProvider builds a Provider. If override is non-empty, every call
// to HardwareSerial returns it unchanged, bypassing hardware
// detection, per the hardware_serial_override configuration option.
func NewProvider(override string) *Provider {
	return &Provider{override: override}
}

// HardwareSerial reads /proc/cpuinfo's Serial line, falling back to
// /etc/machine-id if cpuinfo has none. Returns a bridgeerr.Fatal error
// (KindFatal) if neither source is available, since identity cannot be
// obtained is explicitly a FatalError condition (spec §7).
func (p *Provider) HardwareSerial(ctx context.Context) (string, error) {
	if p.override != "" {
		return p.override, nil
	}

	if serial, ok := readCPUInfoSerial(); ok {
		return serial, nil
	}
	if serial, ok := readMachineID(); ok {
		return serial, nil
	}

	return "", bridgeerr.Fatal("could not determine hardware serial from any source", nil)
}

func readCPUInfoSerial() (string, bool) {
	data, err := os.ReadFile("/proc/cpuinfo")
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "Serial") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				serial := strings.TrimSpace(parts[1])
				if serial != "" {
					return serial, true
				}
			}
		}
	}
	return "", false
}

func readMachineID() (string, bool) {
	data, err := os.ReadFile("/etc/machine-id")
	if err != nil {
		return "", false
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", false
	}
	return id, true
}
