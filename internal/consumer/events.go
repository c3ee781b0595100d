package consumer

import "time"

// Event types emitted by the vendor ingestion adapters.
const (
	EventWorkoutRecorded = "workout.recorded"
	EventWorkoutBatch    = "workout.batch"
	EventSleepPhases     = "sleep.phases"
)

// WorkoutRecorded is one parsed workout delivered by a vendor adapter.
type WorkoutRecorded struct {
	UserID             string    `json:"user_id"`
	Provider           string    `json:"provider"`
	DeviceModel        string    `json:"device_model,omitempty"`
	SoftwareVersion    string    `json:"software_version,omitempty"`
	Source             string    `json:"source,omitempty"`
	OriginalSourceName string    `json:"original_source_name,omitempty"`
	VendorCode         string    `json:"vendor_code"`
	VendorCodeDetail   string    `json:"vendor_code_detail,omitempty"`
	ExternalID         string    `json:"external_id,omitempty"`
	StartedAt          time.Time `json:"started_at"`
	EndedAt            time.Time `json:"ended_at"`
	AvgHeartRate       *float64  `json:"avg_heart_rate,omitempty"`
	MaxHeartRate       *float64  `json:"max_heart_rate,omitempty"`
	Steps              *int64    `json:"steps,omitempty"`
	EnergyKcal         *float64  `json:"energy_kcal,omitempty"`
}

// WorkoutBatch carries one provider's bulk upload spanning many users.
type WorkoutBatch struct {
	Provider string            `json:"provider"`
	Workouts []WorkoutRecorded `json:"workouts"`
}

// SleepPhases carries one user's batch of sleep phase events.
type SleepPhases struct {
	UserID             string            `json:"user_id"`
	Provider           string            `json:"provider"`
	DeviceModel        string            `json:"device_model,omitempty"`
	SoftwareVersion    string            `json:"software_version,omitempty"`
	Source             string            `json:"source,omitempty"`
	OriginalSourceName string            `json:"original_source_name,omitempty"`
	Phases             []SleepPhaseEvent `json:"phases"`
}

// SleepPhaseEvent is one phase interval within a SleepPhases batch.
type SleepPhaseEvent struct {
	Phase       string    `json:"phase"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	ExternalID  string    `json:"external_id,omitempty"`
	SourceLabel string    `json:"source_label,omitempty"`
	DeviceID    string    `json:"device_id,omitempty"`
}
