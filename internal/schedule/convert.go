package schedule

import "github.com/lattice-iot/gpio-bridge/internal/docstore"

// FromDoc parses the wire shape of a schedule document into a typed
// Descriptor. Returns an error if the time window or schedule type is
// malformed (spec §7's DocumentSchemaError path: "mark last_status =
// error and do not launch an executor").
func FromDoc(pin int, scheduleID string, doc docstore.ScheduleDoc) (Descriptor, error) {
	window, err := ParseWindow(doc.TimeWindow.Enabled, doc.TimeWindow.Start, doc.TimeWindow.End)
	if err != nil {
		return Descriptor{}, err
	}

	// end_duty is optional on the wire, default 100 (spec.md §4.7):
	// StartDuty's default of 0 already coincides with the Go zero value,
	// but EndDuty's default does not, hence the pointer on the wire type.
	endDuty := 100
	if doc.EndDuty != nil {
		endDuty = *doc.EndDuty
	}

	return Descriptor{
		Pin:        pin,
		ScheduleID: scheduleID,
		Type:       Type(doc.Type),
		Enabled:    doc.Enabled,
		Window:     window,

		Cycles:           doc.Cycles,
		OnDurationMs:     doc.OnDurationMs,
		OffDurationMs:    doc.OffDurationMs,
		TotalDurationMs:  doc.TotalDurationMs,
		Steps:            doc.Steps,
		StartDuty:        doc.StartDuty,
		EndDuty:          endDuty,
		ToggleIntervalMs: doc.ToggleIntervalMs,
		HoldState:        doc.State,
		HoldDurationMs:   doc.HoldDurationMs,
	}, nil
}
