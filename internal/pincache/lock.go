package pincache

import "sync"

// PinLocker provides the single per-pin exclusive section shared by
// the command processor, schedule executors, and the hardware-sync
// safe-reset (spec invariant: "single writer per pin"). It is
// deliberately separate from Cache's internal per-field mutex: the
// section here is held across an entire HAL call plus cache update,
// not just a single field mutation.
type PinLocker struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewPinLocker() *PinLocker {
	return &PinLocker{locks: make(map[int]*sync.Mutex)}
}

// Add registers pin so Lock/Unlock can be called for it. Called once
// per pin at bootstrap.
func (l *PinLocker) Add(pin int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.locks[pin]; !ok {
		l.locks[pin] = &sync.Mutex{}
	}
}

func (l *PinLocker) Lock(pin int) {
	l.mu.Lock()
	m, ok := l.locks[pin]
	if !ok {
		m = &sync.Mutex{}
		l.locks[pin] = m
	}
	l.mu.Unlock()
	m.Lock()
}

func (l *PinLocker) Unlock(pin int) {
	l.mu.Lock()
	m, ok := l.locks[pin]
	l.mu.Unlock()
	if ok {
		m.Unlock()
	}
}
