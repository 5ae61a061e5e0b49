package escalation

import (
	"sync"

	"github.com/kingrea/crow-eye/internal/logbook"
)

const (
	defaultBacklogLimit = 50
	defaultDedupeWindow = 1024
)

// Journal is the subset of the run journal the logbook sink writes to.
type Journal interface {
	Info(format string, args ...any)
	Alert(format string, args ...any)
}

var _ Journal = (*logbook.Logbook)(nil)

// LogbookSink writes each vote outcome to the run journal.
type LogbookSink struct {
	Journal Journal
}

// Escalate journals the vote and its consequence.
func (s LogbookSink) Escalate(e Event) error {
	if s.Journal == nil {
		return nil
	}
	s.Journal.Info("tick %d democracy session on %s: %s", e.Tick, e.Result.Threat, e.Result)
	if e.Escalate() {
		s.Journal.Alert("RANGERS ALERTED! Human intervention requested (tick %d, %s)", e.Tick, e.Result.Threat)
	} else {
		s.Journal.Info("swarm handles threat independently (tick %d, %s)", e.Tick, e.Result.Threat)
	}
	return nil
}

// RecorderOption customizes Recorder construction.
type RecorderOption func(*Recorder)

// RecorderWithBacklogLimit overrides how many events are retained.
func RecorderWithBacklogLimit(limit int) RecorderOption {
	return func(r *Recorder) {
		if limit > 0 {
			r.backlogLimit = limit
		}
	}
}

// RecorderWithDedupeWindow controls how many recent event IDs are retained
// for duplicate suppression.
func RecorderWithDedupeWindow(size int) RecorderOption {
	return func(r *Recorder) {
		if size > 0 {
			r.dedupeWindow = size
		}
	}
}

// Recorder keeps a bounded history of escalation events, dropping the oldest
// when full and ignoring events whose ID it has already seen.
type Recorder struct {
	mu           sync.RWMutex
	events       []Event
	recentIDs    map[string]struct{}
	recentOrder  []string
	backlogLimit int
	dedupeWindow int
	votes        int
	escalations  int
}

// NewRecorder constructs a recorder with default limits.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{
		recentIDs:    map[string]struct{}{},
		backlogLimit: defaultBacklogLimit,
		dedupeWindow: defaultDedupeWindow,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.recentOrder = make([]string, 0, r.dedupeWindow)
	return r
}

// Escalate records e unless it is a duplicate.
func (r *Recorder) Escalate(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.EventID != "" && r.seen(e.EventID) {
		return nil
	}
	r.votes++
	if e.Escalate() {
		r.escalations++
	}
	if len(r.events) >= r.backlogLimit {
		r.events = r.events[1:]
	}
	r.events = append(r.events, e)
	return nil
}

// Recent returns up to n of the latest events, oldest first. n <= 0 returns
// everything retained.
func (r *Recorder) Recent(n int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	events := r.events
	if n > 0 && len(events) > n {
		events = events[len(events)-n:]
	}
	return append([]Event(nil), events...)
}

// Last returns the most recent event.
func (r *Recorder) Last() (Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Votes is the number of distinct events recorded, including dropped ones.
func (r *Recorder) Votes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.votes
}

// Escalations is how many recorded votes called the rangers.
func (r *Recorder) Escalations() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.escalations
}

func (r *Recorder) seen(eventID string) bool {
	if _, ok := r.recentIDs[eventID]; ok {
		return true
	}
	r.recentIDs[eventID] = struct{}{}
	r.recentOrder = append(r.recentOrder, eventID)
	if len(r.recentOrder) > r.dedupeWindow {
		oldest := r.recentOrder[0]
		r.recentOrder = r.recentOrder[1:]
		delete(r.recentIDs, oldest)
	}
	return false
}
