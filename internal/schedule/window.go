// Package schedule implements the schedule engine: the registry of
// per-pin schedules, the time-window evaluator, the periodic
// re-evaluator, and the per-schedule executors that carry out the
// four execution contracts (spec §4.5–§4.7).
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Window is a parsed "HH:MM"-"HH:MM" time window in local wall-clock
// time.
type Window struct {
	Enabled    bool
	StartMin   int // minutes since midnight
	EndMin     int
}

// ParseWindow parses the wire "HH:MM" fields into a Window.
func ParseWindow(enabled bool, start, end string) (Window, error) {
	if !enabled {
		return Window{Enabled: false}, nil
	}
	startMin, err := parseHHMM(start)
	if err != nil {
		return Window{}, fmt.Errorf("invalid start time %q: %w", start, err)
	}
	endMin, err := parseHHMM(end)
	if err != nil {
		return Window{}, fmt.Errorf("invalid end time %q: %w", end, err)
	}
	return Window{Enabled: true, StartMin: startMin, EndMin: endMin}, nil
}

func parseHHMM(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("out of range")
	}
	return h*60 + m, nil
}

// IsOpen reports whether the window is open at now (local wall-clock
// time), per spec §4.6:
//   - !Enabled: always open (unconditional schedule).
//   - start == end: always open.
//   - start < end: open iff start <= now < end.
//   - start > end: open iff now >= start OR now < end (wraps midnight).
//
// Granularity is one minute; a time equal to end is outside the
// window.
func (w Window) IsOpen(now time.Time) bool {
	if !w.Enabled {
		return true
	}
	nowMin := now.Hour()*60 + now.Minute()

	switch {
	case w.StartMin == w.EndMin:
		return true
	case w.StartMin < w.EndMin:
		return nowMin >= w.StartMin && nowMin < w.EndMin
	default:
		return nowMin >= w.StartMin || nowMin < w.EndMin
	}
}
