package hal

import (
	"fmt"
	"sync"

	"github.com/lattice-iot/gpio-bridge/internal/bridgeerr"
)

// simPin is the simulator's view of one configured pin.
type simPin struct {
	direction  Direction
	pwmCapable bool
	configured bool
	digital    bool
	dutyPct    int
	freqHz     int
}

// Simulator is an in-memory GPIO backend used whenever the process is
// not running on real Raspberry Pi hardware (non-linux builds, or
// simulate_hardware in config). It never touches real hardware; reads
// simply return whatever was last written, which is sufficient for the
// rest of the bridge since it never depends on external circuit
// behavior.
type Simulator struct {
	mu   sync.Mutex
	pins map[int]*simPin
}

// NewSimulator returns a Simulator with no pins configured.
func NewSimulator() *Simulator {
	return &Simulator{pins: make(map[int]*simPin)}
}

func (s *Simulator) Configure(pin int, direction Direction, pwmCapable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pins[pin] = &simPin{
		direction:  direction,
		pwmCapable: pwmCapable,
		configured: true,
	}
	return nil
}

func (s *Simulator) SetDigital(pin int, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.lookup(pin)
	if err != nil {
		return err
	}
	p.digital = value
	return nil
}

func (s *Simulator) ReadDigital(pin int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.lookup(pin)
	if err != nil {
		return false, err
	}
	return p.digital, nil
}

func (s *Simulator) SetPWM(pin int, dutyPercent int, freqHz int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.lookup(pin)
	if err != nil {
		return err
	}
	if !p.pwmCapable {
		return bridgeerr.Hardware(fmt.Sprintf("pin %d is not PWM-capable", pin), nil)
	}
	p.dutyPct = dutyPercent
	p.freqHz = freqHz
	p.digital = dutyPercent > 0
	return nil
}

func (s *Simulator) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pins {
		if p.direction == Output {
			p.digital = false
			p.dutyPct = 0
		}
	}
	return nil
}

func (s *Simulator) lookup(pin int) (*simPin, error) {
	p, ok := s.pins[pin]
	if !ok || !p.configured {
		return nil, bridgeerr.Hardware(fmt.Sprintf("pin %d is not configured", pin), nil)
	}
	return p, nil
}
