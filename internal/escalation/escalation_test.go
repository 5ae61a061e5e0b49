package escalation

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/crow-eye/internal/consensus"
	"github.com/kingrea/crow-eye/internal/threat"
)

func vote(decision bool) consensus.Result {
	return consensus.Result{
		Threat:         threat.New(80, 70, threat.SecondaryAlert),
		Decision:       decision,
		ConsensusRatio: 0.75,
		Voters:         4,
		YesVoters:      3,
		NoVoters:       1,
		Reason:         "75.0% consensus meets 70% threshold",
	}
}

func TestNormalizeAndValidate(t *testing.T) {
	event := Event{EventID: "  evt-1 ", RunID: " run ", Tick: 5}
	event.Normalize()
	if err := event.Validate(); err != nil {
		t.Fatalf("validate normalized event: %v", err)
	}
	if event.Version != EventSchemaVersion || event.EventID != "evt-1" || event.RunID != "run" {
		t.Fatalf("unexpected normalized event: %+v", event)
	}
	if event.Time.IsZero() || event.Time.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", event.Time)
	}

	cases := map[string]Event{
		"version": {Version: 2, EventID: "e", RunID: "r", Tick: 1},
		"id":      {Version: 1, RunID: "r", Tick: 1},
		"run":     {Version: 1, EventID: "e", Tick: 1},
		"tick":    {Version: 1, EventID: "e", RunID: "r"},
	}
	for name, bad := range cases {
		if err := bad.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestFanoutDeliversToAllAndJoinsErrors(t *testing.T) {
	var delivered []string
	boom := errors.New("boom")
	fanout := Fanout{
		SinkFunc(func(e Event) error { delivered = append(delivered, "a"); return boom }),
		nil,
		SinkFunc(func(e Event) error { delivered = append(delivered, "b"); return nil }),
	}
	err := fanout.Escalate(Event{EventID: "evt-1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined boom error, got %v", err)
	}
	if strings.Join(delivered, ",") != "a,b" {
		t.Fatalf("delivered = %v", delivered)
	}
	if err := (Fanout{}).Escalate(Event{}); err != nil {
		t.Fatalf("empty fanout: %v", err)
	}
}

type fakeJournal struct {
	info   []string
	alerts []string
}

func (f *fakeJournal) Info(format string, args ...any) {
	f.info = append(f.info, fmt.Sprintf(format, args...))
}

func (f *fakeJournal) Alert(format string, args ...any) {
	f.alerts = append(f.alerts, fmt.Sprintf(format, args...))
}

func TestLogbookSink(t *testing.T) {
	journal := &fakeJournal{}
	sink := LogbookSink{Journal: journal}

	if err := sink.Escalate(Event{Tick: 5, Result: vote(true)}); err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if len(journal.alerts) != 1 || !strings.Contains(journal.alerts[0], "RANGERS ALERTED") {
		t.Fatalf("alerts = %v", journal.alerts)
	}

	if err := sink.Escalate(Event{Tick: 10, Result: vote(false)}); err != nil {
		t.Fatalf("escalate: %v", err)
	}
	last := journal.info[len(journal.info)-1]
	if !strings.Contains(last, "swarm handles threat independently") {
		t.Fatalf("last info = %q", last)
	}
	if len(journal.alerts) != 1 {
		t.Fatalf("unexpected alert for rejected vote: %v", journal.alerts)
	}

	if err := (LogbookSink{}).Escalate(Event{}); err != nil {
		t.Fatalf("nil journal: %v", err)
	}
}

func TestRecorderDedupesAndCounts(t *testing.T) {
	recorder := NewRecorder()
	first := Event{EventID: "evt-1", Tick: 5, Result: vote(true)}
	second := Event{EventID: "evt-2", Tick: 10, Result: vote(false)}
	for _, e := range []Event{first, first, second} {
		if err := recorder.Escalate(e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if recorder.Votes() != 2 || recorder.Escalations() != 1 {
		t.Fatalf("votes=%d escalations=%d", recorder.Votes(), recorder.Escalations())
	}
	last, ok := recorder.Last()
	if !ok || last.EventID != "evt-2" {
		t.Fatalf("last = %+v, %v", last, ok)
	}
	if got := recorder.Recent(1); len(got) != 1 || got[0].EventID != "evt-2" {
		t.Fatalf("recent(1) = %+v", got)
	}
}

func TestRecorderDropsOldestBeyondBacklog(t *testing.T) {
	recorder := NewRecorder(RecorderWithBacklogLimit(2))
	for i := 1; i <= 3; i++ {
		_ = recorder.Escalate(Event{EventID: fmt.Sprintf("evt-%d", i), Tick: i * 5})
	}
	got := recorder.Recent(0)
	if len(got) != 2 || got[0].EventID != "evt-2" || got[1].EventID != "evt-3" {
		t.Fatalf("recent = %+v", got)
	}
	if recorder.Votes() != 3 {
		t.Fatalf("votes = %d, want 3", recorder.Votes())
	}
	if _, ok := NewRecorder().Last(); ok {
		t.Fatalf("empty recorder reported a last event")
	}
}

func TestRecorderDedupeWindowForgetsOldIDs(t *testing.T) {
	recorder := NewRecorder(RecorderWithDedupeWindow(1))
	_ = recorder.Escalate(Event{EventID: "evt-1"})
	_ = recorder.Escalate(Event{EventID: "evt-2"})
	_ = recorder.Escalate(Event{EventID: "evt-1"})
	if recorder.Votes() != 3 {
		t.Fatalf("votes = %d, want 3 once evt-1 left the window", recorder.Votes())
	}
}
