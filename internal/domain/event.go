package domain

import "time"

// EventCategory distinguishes the unified event kinds stored in event_records.
type EventCategory string

const (
	CategoryWorkout EventCategory = "workout"
	CategorySleep   EventCategory = "sleep"
)

// WorkoutType is the canonical workout enumeration every vendor vocabulary maps onto.
type WorkoutType string

const (
	WorkoutRunning          WorkoutType = "running"
	WorkoutCycling          WorkoutType = "cycling"
	WorkoutSwimming         WorkoutType = "swimming"
	WorkoutWalking          WorkoutType = "walking"
	WorkoutHiking           WorkoutType = "hiking"
	WorkoutStrengthTraining WorkoutType = "strength_training"
	WorkoutYoga             WorkoutType = "yoga"
	WorkoutPilates          WorkoutType = "pilates"
	WorkoutRowing           WorkoutType = "rowing"
	WorkoutElliptical       WorkoutType = "elliptical"
	WorkoutCrossTraining    WorkoutType = "cross_training"
	WorkoutTennis           WorkoutType = "tennis"
	WorkoutSoccer           WorkoutType = "soccer"
	WorkoutBasketball       WorkoutType = "basketball"
	WorkoutGolf             WorkoutType = "golf"
	WorkoutSkiing           WorkoutType = "skiing"
	WorkoutSnowboarding     WorkoutType = "snowboarding"
	WorkoutSurfing          WorkoutType = "surfing"
	WorkoutMartialArts      WorkoutType = "martial_arts"
	WorkoutDance            WorkoutType = "dance"
	WorkoutClimbing         WorkoutType = "climbing"
	WorkoutMeditation       WorkoutType = "meditation"
	WorkoutOther            WorkoutType = "other"
)

// EventRecord is a unified event (a workout or a finalized sleep session) tied to one DataSource.
// Rows are immutable after creation; retries resolve to the same row via DedupeKey.
type EventRecord struct {
	ID           string
	UserID       string
	DataSourceID string
	Category     EventCategory
	WorkoutType  WorkoutType
	StartedAt    time.Time
	EndedAt      time.Time
	DurationSec  int64
	DedupeKey    string
	CreatedAt    time.Time
}

// EventRecordDetail holds the typed payload for an EventRecord. Workout and sleep
// columns are mutually exclusive; unused fields stay nil.
type EventRecordDetail struct {
	EventID string

	// Workout aggregates.
	AvgHeartRate *float64
	MaxHeartRate *float64
	Steps        *int64
	EnergyKcal   *float64

	// Sleep stage minutes.
	InBedMin      *int64
	AwakeMin      *int64
	LightMin      *int64
	DeepMin       *int64
	RemMin        *int64
	TotalSleepMin *int64
	DurationMin   *int64

	// Placeholders with no defined computation yet; persisted as NULL.
	IsNap      *bool
	Efficiency *float64
}
