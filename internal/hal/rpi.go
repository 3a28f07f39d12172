package hal

import (
	"fmt"
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
	"go.uber.org/zap"
	"periph.io/x/host/v3"

	"github.com/lattice-iot/gpio-bridge/internal/bridgeerr"
)

// RaspberryPi is the real-hardware GPIO backend. Digital I/O goes
// through go-rpio's direct /dev/gpiomem register mapping; PWM is
// software-generated (go-rpio v4 exposes no hardware PWM duty/frequency
// control) by a per-pin goroutine toggling the line at the configured
// frequency.
type RaspberryPi struct {
	mu   sync.Mutex
	pins map[int]*rpiPin
}

type rpiPin struct {
	handle     rpio.Pin
	direction  Direction
	pwmCapable bool
	pwm        *softPWM
}

// softPWM runs a toggle loop for one pin until stopped.
type softPWM struct {
	stop chan struct{}
	done chan struct{}
}

// NewRaspberryPi initializes periph.io's host drivers and opens
// go-rpio's /dev/gpiomem mapping. Must be called exactly once per
// process; Cleanup releases the mapping. Board detection failure is
// logged but never fatal: digital I/O and software PWM need no board
// identity, only the /dev/gpiomem mapping itself.
func NewRaspberryPi(logger *zap.Logger) (*RaspberryPi, error) {
	if _, err := host.Init(); err != nil {
		return nil, bridgeerr.Fatal("failed to initialize periph.io host drivers", err)
	}
	if err := rpio.Open(); err != nil {
		return nil, bridgeerr.Fatal("failed to open GPIO memory map", err)
	}

	if board, err := DetectBoard(); err != nil {
		logger.Warn("could not detect board model, continuing without it", zap.Error(err))
	} else {
		logger.Info("detected board",
			zap.String("model", board.Name),
			zap.Int("gpio_count", board.NumGPIO),
			zap.String("gpio_chip", board.GPIOChip))
	}

	return &RaspberryPi{pins: make(map[int]*rpiPin)}, nil
}

func (h *RaspberryPi) Configure(pin int, direction Direction, pwmCapable bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.pins[pin]; ok && existing.pwm != nil {
		h.stopPWMLocked(existing)
	}

	handle := rpio.Pin(pin)
	switch direction {
	case Input:
		handle.Input()
	case Output:
		handle.Output()
		handle.Low()
	default:
		return bridgeerr.Hardware(fmt.Sprintf("unsupported direction for pin %d", pin), nil)
	}

	h.pins[pin] = &rpiPin{handle: handle, direction: direction, pwmCapable: pwmCapable}
	return nil
}

func (h *RaspberryPi) SetDigital(pin int, value bool) error {
	h.mu.Lock()
	p, ok := h.pins[pin]
	if ok && p.pwm != nil {
		h.stopPWMLocked(p)
	}
	h.mu.Unlock()

	if !ok {
		return bridgeerr.Hardware(fmt.Sprintf("pin %d is not configured", pin), nil)
	}

	if value {
		p.handle.High()
	} else {
		p.handle.Low()
	}
	return nil
}

func (h *RaspberryPi) ReadDigital(pin int) (bool, error) {
	h.mu.Lock()
	p, ok := h.pins[pin]
	h.mu.Unlock()

	if !ok {
		return false, bridgeerr.Hardware(fmt.Sprintf("pin %d is not configured", pin), nil)
	}
	return p.handle.Read() == rpio.High, nil
}

func (h *RaspberryPi) SetPWM(pin int, dutyPercent int, freqHz int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.pins[pin]
	if !ok {
		return bridgeerr.Hardware(fmt.Sprintf("pin %d is not configured", pin), nil)
	}
	if !p.pwmCapable {
		return bridgeerr.Hardware(fmt.Sprintf("pin %d is not PWM-capable", pin), nil)
	}

	if p.pwm != nil {
		h.stopPWMLocked(p)
	}

	if dutyPercent <= 0 || freqHz <= 0 {
		p.handle.Low()
		return nil
	}
	if dutyPercent >= 100 {
		p.handle.High()
		return nil
	}

	p.pwm = startSoftPWM(p.handle, dutyPercent, freqHz)
	return nil
}

func (h *RaspberryPi) Cleanup() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, p := range h.pins {
		if p.pwm != nil {
			h.stopPWMLocked(p)
		}
		if p.direction == Output {
			p.handle.Low()
		}
	}
	return rpio.Close()
}

// stopPWMLocked must be called with h.mu held.
func (h *RaspberryPi) stopPWMLocked(p *rpiPin) {
	close(p.pwm.stop)
	<-p.pwm.done
	p.pwm = nil
}

func startSoftPWM(pin rpio.Pin, dutyPercent int, freqHz int) *softPWM {
	period := time.Second / time.Duration(freqHz)
	high := period * time.Duration(dutyPercent) / 100
	low := period - high

	sp := &softPWM{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(sp.done)
		for {
			pin.High()
			select {
			case <-time.After(high):
			case <-sp.stop:
				pin.Low()
				return
			}
			pin.Low()
			select {
			case <-time.After(low):
			case <-sp.stop:
				return
			}
		}
	}()
	return sp
}
