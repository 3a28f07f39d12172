// Package docstore implements the real-time document listener set
// (spec §4.3) and the document-store client contract (spec §6's
// Document store client interface) over MQTT: set/update/get/delete,
// plus an on_snapshot-shaped subscription with ADD/MODIFY/REMOVE
// change kinds, delivered as retained-message snapshots.
package docstore

import "time"

// ChangeKind mirrors the cloud document store's on_snapshot change
// kinds.
type ChangeKind string

const (
	ChangeAdd    ChangeKind = "ADD"
	ChangeModify ChangeKind = "MODIFY"
	ChangeRemove ChangeKind = "REMOVE"
)

// PinDoc is the operator- and controller-owned subfields of
// gpioState.<pin_number> as they appear on the wire.
type PinDoc struct {
	// Operator-owned
	State          bool   `json:"state"`
	Enabled        bool   `json:"enabled"`
	PWMDuty        int    `json:"pwm_duty"`
	Name           string `json:"name"`
	NameCustomized bool   `json:"name_customized"`

	// Controller-owned
	HardwareState    bool      `json:"hardware_state"`
	Mismatch         bool      `json:"mismatch"`
	LastHardwareRead time.Time `json:"last_hardware_read,omitempty"`
	DefaultName      string    `json:"default_name"`
	Type             string    `json:"type"`
	Subtype          string    `json:"subtype"`
	Mode             string    `json:"mode"`
	PWMCapable       bool      `json:"pwm_capable"`
	CustomizedAt     time.Time `json:"customized_at,omitempty"`

	Schedules map[string]ScheduleDoc `json:"schedules,omitempty"`
}

// ScheduleDoc is the wire shape of one schedule entry under
// gpioState.<pin>.schedules.<schedule_id>.
type ScheduleDoc struct {
	Type       string `json:"type"`
	Enabled    bool   `json:"enabled"`
	TimeWindow struct {
		Enabled bool   `json:"enabled"`
		Start   string `json:"start"`
		End     string `json:"end"`
	} `json:"time_window"`

	Cycles           int  `json:"cycles,omitempty"`
	OnDurationMs     int  `json:"on_duration_ms,omitempty"`
	OffDurationMs    int  `json:"off_duration_ms,omitempty"`
	TotalDurationMs  int  `json:"total_duration_ms,omitempty"`
	Steps            int  `json:"steps,omitempty"`
	StartDuty        int  `json:"start_duty,omitempty"`
	EndDuty          *int `json:"end_duty,omitempty"`
	ToggleIntervalMs int  `json:"toggle_interval_ms,omitempty"`
	State            bool `json:"state,omitempty"`
	HoldDurationMs   int  `json:"hold_duration_ms,omitempty"`

	IsActive   bool      `json:"is_active"`
	LastRunAt  time.Time `json:"last_run_at,omitempty"`
	LastStatus string    `json:"last_status,omitempty"`
}

// DeviceDoc is the full document at devices/{hardware_serial}.
type DeviceDoc struct {
	Status         string            `json:"status"`
	LastHeartbeat  time.Time         `json:"last_heartbeat"`
	HardwareSerial string            `json:"hardware_serial"`
	GPIOState      map[string]PinDoc `json:"gpioState"`
}

// CommandDoc is one entry under devices/{serial}/commands/{command_id}.
type CommandDoc struct {
	ID         string `json:"id"`
	Type       string `json:"type"` // pin_control, pwm_control
	Pin        int    `json:"pin"`
	Action     string `json:"action"` // on, off
	DurationMs *int   `json:"duration_ms,omitempty"`
	Duty       *int   `json:"duty,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// ResponseDoc is written to responses/{command_id} before the command
// document is deleted.
type ResponseDoc struct {
	Status      string    `json:"status"` // ok, error
	Message     string    `json:"message"`
	CompletedAt time.Time `json:"completed_at"`
}
