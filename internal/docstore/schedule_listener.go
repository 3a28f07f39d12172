package docstore

import (
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ScheduleEventHandler receives ADD/MODIFY/REMOVE events diffed out of
// successive gpioState.*.schedules snapshots. Implemented by the
// schedule engine.
type ScheduleEventHandler interface {
	HandleScheduleAdd(pin int, scheduleID string, doc ScheduleDoc)
	HandleScheduleModify(pin int, scheduleID string, doc ScheduleDoc)
	HandleScheduleRemove(pin int, scheduleID string)
}

type scheduleKey struct {
	pin        int
	scheduleID string
}

// ScheduleListener subscribes to the device document and diffs
// gpioState.*.schedules against the schedules seen on the previous
// snapshot, emitting ADD/MODIFY/REMOVE. The broker has no notion of
// schedules as distinct objects — only as a blob under the retained
// "schedules" topic — so this diff is done client-side (spec
// §4.3.1).
type ScheduleListener struct {
	client  *Client
	handler ScheduleEventHandler
	logger  *zap.Logger

	seen map[scheduleKey]ScheduleDoc
}

func NewScheduleListener(client *Client, handler ScheduleEventHandler, logger *zap.Logger) *ScheduleListener {
	return &ScheduleListener{
		client:  client,
		handler: handler,
		logger:  logger,
		seen:    make(map[scheduleKey]ScheduleDoc),
	}
}

func (l *ScheduleListener) Start() error {
	return l.client.Subscribe("schedules", l.onSnapshot)
}

func (l *ScheduleListener) onSnapshot(payload []byte) {
	if len(payload) == 0 {
		return
	}

	var snapshot map[string]map[string]ScheduleDoc
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		l.logger.Warn("schedule snapshot has malformed schema, skipping delivery", zap.Error(err))
		return
	}

	current := make(map[scheduleKey]ScheduleDoc)
	for pinKey, byID := range snapshot {
		pin, err := strconv.Atoi(pinKey)
		if err != nil {
			l.logger.Warn("schedule snapshot has non-integer pin key, skipping entry", zap.String("key", pinKey))
			continue
		}
		for scheduleID, doc := range byID {
			current[scheduleKey{pin: pin, scheduleID: scheduleID}] = doc
		}
	}

	for key, doc := range current {
		prev, existed := l.seen[key]
		switch {
		case !existed:
			l.handler.HandleScheduleAdd(key.pin, key.scheduleID, doc)
		case !scheduleEqual(prev, doc):
			l.handler.HandleScheduleModify(key.pin, key.scheduleID, doc)
		}
	}
	for key := range l.seen {
		if _, stillPresent := current[key]; !stillPresent {
			l.handler.HandleScheduleRemove(key.pin, key.scheduleID)
		}
	}

	l.seen = current
}

// scheduleEqual compares the operator-controlled fields only;
// last_run_at/last_status are controller-owned and must not trigger a
// spurious MODIFY when this listener observes its own writes echoed
// back on reconnect. EndDuty is compared by dereferenced value, not by
// pointer identity, since every unmarshal produces a fresh pointer.
func scheduleEqual(a, b ScheduleDoc) bool {
	a.IsActive, b.IsActive = false, false
	a.LastRunAt, b.LastRunAt = time.Time{}, time.Time{}
	a.LastStatus, b.LastStatus = "", ""

	aEndDuty, bEndDuty := a.EndDuty, b.EndDuty
	a.EndDuty, b.EndDuty = nil, nil

	return a == b && endDutyEqual(aEndDuty, bEndDuty)
}

func endDutyEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
