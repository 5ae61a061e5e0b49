// Package escalation carries vote outcomes from the swarm to whoever must act
// on them: the run journal, the in-memory recorder used by the TUI and
// reports, and any further sinks a caller wires in.
package escalation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/crow-eye/internal/consensus"
)

// EventSchemaVersion is the current escalation event version.
const EventSchemaVersion = 1

// Event records one vote and whether the rangers are to be called.
type Event struct {
	Version  int
	EventID  string
	Sequence int64
	RunID    string
	Tick     int
	Result   consensus.Result
	Time     time.Time
}

// Escalate reports whether the vote asked for human intervention.
func (e Event) Escalate() bool { return e.Result.Decision }

// Normalize applies defaults and canonical formatting before validation.
func (e *Event) Normalize() {
	if e == nil {
		return
	}
	if e.Version == 0 {
		e.Version = EventSchemaVersion
	}
	e.EventID = strings.TrimSpace(e.EventID)
	e.RunID = strings.TrimSpace(e.RunID)
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.Time = e.Time.UTC()
}

// Validate enforces the baseline requirements every sink relies on.
func (e Event) Validate() error {
	if e.Version != EventSchemaVersion {
		return fmt.Errorf("version %d not supported", e.Version)
	}
	if e.EventID == "" {
		return errors.New("event_id is required")
	}
	if e.RunID == "" {
		return errors.New("run_id is required")
	}
	if e.Tick < 1 {
		return fmt.Errorf("tick %d out of range", e.Tick)
	}
	return nil
}

func (e Event) String() string {
	return fmt.Sprintf("tick %d: %s on %s", e.Tick, e.Result.String(), e.Result.Threat.String())
}

// Sink consumes escalation events.
type Sink interface {
	Escalate(Event) error
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(Event) error

// Escalate executes f(e).
func (f SinkFunc) Escalate(e Event) error {
	if f == nil {
		return nil
	}
	return f(e)
}

// Fanout delivers every event to each sink in order. All sinks are attempted;
// their errors are joined.
type Fanout []Sink

// Escalate delivers e to every sink.
func (f Fanout) Escalate(e Event) error {
	var errs []error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Escalate(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
