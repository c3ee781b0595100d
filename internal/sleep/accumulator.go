// Package sleep reconstructs discrete sleep sessions from streams of
// possibly out-of-order, possibly gapped phase events.
package sleep

import (
	"context"
	"strings"
	"time"
)

// Phase classifies one sleep phase event.
type Phase string

const (
	PhaseInBed       Phase = "in_bed"
	PhaseAwake       Phase = "awake"
	PhaseCore        Phase = "asleep_core"
	PhaseDeep        Phase = "asleep_deep"
	PhaseREM         Phase = "asleep_rem"
	PhaseUnspecified Phase = "asleep_unspecified"
)

// startPhases are the phases permitted to open a new accumulator from the
// no-session state. A lone awake event never starts a session.
var startPhases = map[Phase]struct{}{
	PhaseInBed:       {},
	PhaseCore:        {},
	PhaseDeep:        {},
	PhaseREM:         {},
	PhaseUnspecified: {},
}

// ParsePhase validates a raw phase string.
func ParsePhase(value string) (Phase, bool) {
	phase := Phase(strings.ToLower(strings.TrimSpace(value)))
	switch phase {
	case PhaseInBed, PhaseAwake, PhaseCore, PhaseDeep, PhaseREM, PhaseUnspecified:
		return phase, true
	}
	return "", false
}

// IsStartPhase reports whether the phase may open a new session.
func IsStartPhase(phase Phase) bool {
	_, ok := startPhases[phase]
	return ok
}

// PhaseEvent is one parsed phase interval delivered by an ingestion adapter.
type PhaseEvent struct {
	Phase       Phase
	Start       time.Time
	End         time.Time
	ExternalID  string
	SourceLabel string
	DeviceID    string
}

// Accumulator is the in-flight state of one user's not-yet-finalized sleep
// session. It lives in the ephemeral keyed store until finalized or expired.
type Accumulator struct {
	UserID        string
	DataSourceID  string
	ExternalID    string
	SourceLabel   string
	DeviceID      string
	Start         time.Time
	LastTimestamp time.Time
	InBedSec      int64
	AwakeSec      int64
	LightSec      int64
	DeepSec       int64
	RemSec        int64
}

// add folds one in-range event into the stage buckets. An unspecified asleep
// phase accumulates into the deep bucket.
func (a *Accumulator) add(phase Phase, seconds int64) {
	switch phase {
	case PhaseInBed:
		a.InBedSec += seconds
	case PhaseAwake:
		a.AwakeSec += seconds
	case PhaseCore:
		a.LightSec += seconds
	case PhaseDeep, PhaseUnspecified:
		a.DeepSec += seconds
	case PhaseREM:
		a.RemSec += seconds
	}
}

// AccumulatorStore is the injected ephemeral keyed capability holding per-user
// accumulators. Entries carry a bounded TTL; get/put/delete are atomic at the
// key level. Absent keys yield nil, nil.
type AccumulatorStore interface {
	Get(ctx context.Context, userID string) (*Accumulator, error)
	Put(ctx context.Context, userID string, acc *Accumulator) error
	Delete(ctx context.Context, userID string) error
	// OpenUsers lists users with an open accumulator, for the sweep process.
	OpenUsers(ctx context.Context) ([]string, error)
}
