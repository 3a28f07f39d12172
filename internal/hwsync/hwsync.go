// Package hwsync runs the two cooperating activities of spec §4.8: a
// reader that periodically polls every output pin's actual level back
// into the cache, and a writer that periodically publishes a
// hardware_state/mismatch/heartbeat snapshot to the document store.
package hwsync

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lattice-iot/gpio-bridge/internal/docstore"
	"github.com/lattice-iot/gpio-bridge/internal/hal"
	"github.com/lattice-iot/gpio-bridge/internal/pincache"
)

// Loop owns the reader and writer goroutines. Both share the same
// HAL, cache, and document-store client but run on independent
// cadences and independent suspension points, per spec §5.
type Loop struct {
	gpio   hal.GPIO
	cache  *pincache.Cache
	locker *pincache.PinLocker
	client *docstore.Client
	logger *zap.Logger

	outputPins []int

	readInterval  time.Duration
	writeInterval time.Duration

	stop chan struct{}
	done chan struct{}
}

func New(
	gpio hal.GPIO,
	cache *pincache.Cache,
	locker *pincache.PinLocker,
	client *docstore.Client,
	pinTable []hal.Descriptor,
	readInterval, writeInterval time.Duration,
	logger *zap.Logger,
) *Loop {
	outputs := make([]int, 0, len(pinTable))
	for _, d := range pinTable {
		if d.Direction == hal.Output {
			outputs = append(outputs, d.Number)
		}
	}

	return &Loop{
		gpio:          gpio,
		cache:         cache,
		locker:        locker,
		client:        client,
		logger:        logger,
		outputPins:    outputs,
		readInterval:  readInterval,
		writeInterval: writeInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the reader and writer goroutines. Startup
// safe-reset (driving every output pin low and seeding the cache) is
// bootstrap's responsibility (spec §4.10 step 4), not the loop's: the
// reader's first pass simply reads back whatever bootstrap already
// drove.
func (l *Loop) Start(ctx context.Context) {
	readerDone := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(readerDone)
		l.runReader(ctx)
	}()
	go func() {
		defer close(writerDone)
		l.runWriter(ctx)
	}()

	go func() {
		<-readerDone
		<-writerDone
		close(l.done)
	}()
}

// Stop signals both activities to exit after their current iteration
// and performs the shutdown offline write (spec §4.8 "Shutdown").
func (l *Loop) Stop() {
	close(l.stop)
	<-l.done
	l.writeOffline()
	l.driveAllLow()
}

func (l *Loop) runReader(ctx context.Context) {
	ticker := time.NewTicker(l.readInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.readOnce()
		}
	}
}

func (l *Loop) readOnce() {
	for _, pin := range l.outputPins {
		l.locker.Lock(pin)
		v, err := l.gpio.ReadDigital(pin)
		if err != nil {
			l.locker.Unlock(pin)
			l.logger.Warn("hardware sync reader failed to read pin", zap.Int("pin", pin), zap.Error(err))
			continue
		}
		l.cache.SetHardware(pin, v)
		l.locker.Unlock(pin)
	}
}

func (l *Loop) runWriter(ctx context.Context) {
	ticker := time.NewTicker(l.writeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.writeOnce()
		}
	}
}

// writeOnce snapshots the cache and merges hardware_state/mismatch per
// pin plus a top-level heartbeat and online status into the device
// document, read-modify-write (spec §4.8). Every other pin's naming
// and operator-owned fields survive untouched. On failure it skips the
// cycle without retrying: the next cycle corrects the document
// regardless.
func (l *Loop) writeOnce() {
	snapshot := l.cache.Snapshot()
	now := time.Now()

	err := l.client.MutateDevice(func(device *docstore.DeviceDoc) {
		for pin, st := range snapshot {
			key := pinKey(pin)
			doc := device.GPIOState[key]
			doc.HardwareState = st.Hardware
			doc.Mismatch = st.Desired != st.Hardware
			doc.LastHardwareRead = now
			device.GPIOState[key] = doc
		}
		device.LastHeartbeat = now
		device.Status = "online"
	})
	if err != nil {
		l.logger.Warn("hardware sync writer skipped a cycle", zap.Error(err))
	}
}

// writeOffline merges the shutdown status update into the device
// document, best effort.
func (l *Loop) writeOffline() {
	err := l.client.MutateDevice(func(device *docstore.DeviceDoc) {
		device.Status = "offline"
		device.LastHeartbeat = time.Now()
	})
	if err != nil {
		l.logger.Warn("failed to publish offline status", zap.Error(err))
	}
}

// driveAllLow drives every output pin low on shutdown, independent of
// whether the offline document write succeeded.
func (l *Loop) driveAllLow() {
	for _, pin := range l.outputPins {
		l.locker.Lock(pin)
		if err := l.gpio.SetDigital(pin, false); err != nil {
			l.logger.Warn("failed to drive pin low at shutdown", zap.Int("pin", pin), zap.Error(err))
		} else {
			l.cache.SetHardware(pin, false)
		}
		l.locker.Unlock(pin)
	}
}

func pinKey(pin int) string {
	return strconv.Itoa(pin)
}
