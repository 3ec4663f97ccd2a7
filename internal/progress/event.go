// Package progress defines the event structures emitted during feed
// verification runs.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart  Stage = "RUN_START"
	StageRunDone   Stage = "RUN_DONE"
	StageProbeDone Stage = "PROBE_DONE"
)

// OutcomeLabel is the coarse probe result attached to PROBE_DONE events.
type OutcomeLabel string

// Supported outcome labels.
const (
	OutcomeValid   OutcomeLabel = "valid"
	OutcomeInvalid OutcomeLabel = "invalid"
)

// Event captures a single milestone of a verification run.
type Event struct {
	// RunID uniquely identifies a run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Host optionally scopes probe events to a host label.
	Host string
	// URL is the probed URL; set on PROBE_DONE events.
	URL string
	// Outcome labels the probe result; set on PROBE_DONE events.
	Outcome OutcomeLabel
	// Titles counts titles extracted by a probe, or total titles on RUN_DONE.
	Titles int64
	// URLs carries the candidate set size on RUN_START and RUN_DONE.
	URLs int64
	// Valid carries the valid-feed count on RUN_DONE.
	Valid int64
	// Dur captures probe latency or total run wall time.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageProbeDone:
		if e.URL == "" {
			return errors.New("probe done requires url")
		}
		if e.Outcome != OutcomeValid && e.Outcome != OutcomeInvalid {
			return fmt.Errorf("unknown outcome %q", e.Outcome)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
