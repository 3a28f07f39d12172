package docstore

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ScheduleStatusWriter implements schedule.StatusWriter: a best-effort
// write of schedules.<id>.last_run_at/last_status back to the device
// document (spec §4.5 step 6).
type ScheduleStatusWriter struct {
	client *Client
	logger *zap.Logger
}

func NewScheduleStatusWriter(client *Client, logger *zap.Logger) *ScheduleStatusWriter {
	return &ScheduleStatusWriter{client: client, logger: logger}
}

// WriteStatus matches the schedule.StatusWriter interface signature
// structurally (status is passed as fmt.Stringer-compatible string to
// avoid docstore depending on the schedule package's Status type). It
// read-modify-writes the device document so only this pin's schedule
// entry changes; every other pin and schedule survives untouched.
func (w *ScheduleStatusWriter) WriteStatus(pin int, scheduleID string, status fmt.Stringer, runAt time.Time) {
	err := w.client.MutateDevice(func(device *DeviceDoc) {
		key := strconv.Itoa(pin)
		doc := device.GPIOState[key]
		if doc.Schedules == nil {
			doc.Schedules = map[string]ScheduleDoc{}
		}
		sched := doc.Schedules[scheduleID]
		sched.LastRunAt = runAt
		sched.LastStatus = status.String()
		doc.Schedules[scheduleID] = sched
		device.GPIOState[key] = doc
	})
	if err != nil {
		w.logger.Warn("dropping schedule status write", zap.Int("pin", pin), zap.String("schedule_id", scheduleID), zap.Error(err))
	}
}
