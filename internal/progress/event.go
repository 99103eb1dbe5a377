package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart       Stage = "RUN_START"
	StageRunDone        Stage = "RUN_DONE"
	StageDomainStart    Stage = "DOMAIN_START"
	StageDomainDone     Stage = "DOMAIN_DONE"
	StageDomainError    Stage = "DOMAIN_ERROR"
	StageKeywordChecked Stage = "KEYWORD_CHECKED"
)

// Event captures a single milestone of a sync run.
type Event struct {
	// RunID identifies the run the event belongs to.
	RunID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle milestone occurred.
	Stage Stage
	// Domain scopes domain and keyword events to one tracked domain.
	Domain string
	// Keyword is set on keyword events.
	Keyword string
	// Position is the organic position resolved for the keyword; 0 when
	// the domain was not ranked or the lookup failed.
	Position int
	// Found reports whether the keyword lookup located the domain.
	Found bool
	// Changed counts worksheet cells rewritten by a domain sync.
	Changed int
	// Dur captures execution latency for lookups and completions.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == "" {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageDomainStart, StageDomainDone, StageDomainError:
		if e.Domain == "" {
			return fmt.Errorf("%s requires domain", e.Stage)
		}
	case StageKeywordChecked:
		if e.Domain == "" {
			return errors.New("keyword event requires domain")
		}
		if e.Keyword == "" {
			return errors.New("keyword event requires keyword")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
