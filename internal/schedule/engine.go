package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lattice-iot/gpio-bridge/internal/docstore"
	"github.com/lattice-iot/gpio-bridge/internal/pincache"
)

// statusStringer is satisfied by Status; StatusWriter takes this
// instead of the concrete type so implementations (e.g. docstore)
// never need to import this package.
type statusStringer = fmt.Stringer

// Executor runs one schedule's type-specific hardware sequence.
// Exposed as an interface so the engine can be tested against a fake.
type Executor interface {
	Run(d Descriptor, stop <-chan struct{}) Status
}

// StatusWriter persists a schedule's last_run_at/last_status back to
// the device document, best effort (spec §4.5 step 6).
type StatusWriter interface {
	WriteStatus(pin int, scheduleID string, status statusStringer, runAt time.Time)
}

// Engine ties the registry, the document-diff events, a periodic
// re-evaluator (robfig/cron, @every 60s per spec §4.5), and per-
// schedule executors together.
type Engine struct {
	registry *Registry
	executor Executor
	writer   StatusWriter
	cache    *pincache.Cache
	locker   *pincache.PinLocker
	logger   *zap.Logger

	reevaluateInterval time.Duration
	cron               *cron.Cron
}

func NewEngine(
	registry *Registry,
	executor Executor,
	writer StatusWriter,
	cache *pincache.Cache,
	locker *pincache.PinLocker,
	reevaluateInterval time.Duration,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		registry:           registry,
		executor:           executor,
		writer:             writer,
		cache:              cache,
		locker:             locker,
		logger:             logger,
		reevaluateInterval: reevaluateInterval,
		cron:               cron.New(),
	}
}

// Start launches the periodic re-evaluator. Safe to call once.
func (e *Engine) Start() error {
	spec := fmt.Sprintf("@every %s", e.reevaluateInterval.String())
	_, err := e.cron.AddFunc(spec, e.reevaluate)
	if err != nil {
		return fmt.Errorf("failed to schedule periodic re-evaluation: %w", err)
	}
	e.cron.Start()
	return nil
}

// Stop halts the periodic re-evaluator and signals every running
// executor to stop, awaiting each with a 5s deadline per spec §5.
func (e *Engine) Stop() {
	e.cron.Stop()

	for _, d := range e.registry.All() {
		if h, ok := e.registry.handleFor(d.Pin, d.ScheduleID); ok {
			h.stopAndAwait(5 * time.Second)
			e.registry.setHandle(d.Pin, d.ScheduleID, nil)
		}
	}
}

// HandleScheduleAdd implements docstore.ScheduleEventHandler.
func (e *Engine) HandleScheduleAdd(pin int, scheduleID string, doc docstore.ScheduleDoc) {
	d, err := FromDoc(pin, scheduleID, doc)
	if err != nil {
		e.logger.Warn("schedule document has malformed schema, not launching executor",
			zap.Int("pin", pin), zap.String("schedule_id", scheduleID), zap.Error(err))
		e.writer.WriteStatus(pin, scheduleID, StatusError, time.Now())
		return
	}

	e.registry.put(d)
	if d.Enabled && d.Window.IsOpen(time.Now()) {
		e.launch(d)
	}
}

// HandleScheduleModify implements docstore.ScheduleEventHandler: stop
// any running executor at its next safe point, await it, then treat
// the post-modify schedule as an ADD (spec §4.5).
func (e *Engine) HandleScheduleModify(pin int, scheduleID string, doc docstore.ScheduleDoc) {
	if h, ok := e.registry.handleFor(pin, scheduleID); ok {
		h.stopAndAwait(5 * time.Second)
		e.registry.setHandle(pin, scheduleID, nil)
	}
	e.HandleScheduleAdd(pin, scheduleID, doc)
}

// HandleScheduleRemove implements docstore.ScheduleEventHandler.
func (e *Engine) HandleScheduleRemove(pin int, scheduleID string) {
	if h, ok := e.registry.handleFor(pin, scheduleID); ok {
		h.stopAndAwait(5 * time.Second)
		e.registry.setHandle(pin, scheduleID, nil)
	}
	e.registry.remove(pin, scheduleID)
}

// reevaluate is the once-per-interval loop: launch executors that
// should be running but are not, and signal stops to executors that
// should no longer be running (spec §4.5).
func (e *Engine) reevaluate() {
	now := time.Now()
	for _, d := range e.registry.All() {
		_, running := e.registry.handleFor(d.Pin, d.ScheduleID)
		shouldRun := d.Enabled && d.Window.IsOpen(now)

		switch {
		case shouldRun && !running:
			e.launch(d)
		case !shouldRun && running:
			if h, ok := e.registry.handleFor(d.Pin, d.ScheduleID); ok {
				close(h.stop)
			}
		}
	}
}

// launch starts an executor goroutine for d. A panic inside the
// executor is recovered and logged so a single misbehaving schedule
// never brings down the process (spec §7's global policy).
func (e *Engine) launch(d Descriptor) {
	h := newExecutorHandle()
	e.registry.setHandle(d.Pin, d.ScheduleID, h)

	go func() {
		defer close(h.done)
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("schedule executor panicked",
					zap.Int("pin", d.Pin), zap.String("schedule_id", d.ScheduleID),
					zap.Any("panic", r))
			}
		}()

		status := e.executor.Run(d, h.stop)

		e.registry.setHandle(d.Pin, d.ScheduleID, nil)
		if !e.registry.IsActive(d.Pin) {
			e.cache.SetOverride(d.Pin, false)
		}
		e.writer.WriteStatus(d.Pin, d.ScheduleID, status, time.Now())
	}()
}
