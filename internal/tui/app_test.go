package tui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/crow-eye/internal/crow"
	"github.com/kingrea/crow-eye/internal/geom"
	"github.com/kingrea/crow-eye/internal/logbook"
	"github.com/kingrea/crow-eye/internal/swarm"
	"github.com/kingrea/crow-eye/internal/threat"
)

func newTestSwarm(t *testing.T, steps int) *swarm.Swarm {
	t.Helper()
	cfg := swarm.DefaultConfig()
	cfg.Steps = steps
	threats := []threat.Threat{
		threat.New(25, 30, threat.PrimaryAlert),
		threat.New(80, 70, threat.SecondaryAlert),
	}
	s, err := swarm.New(cfg, threats, swarm.WithRunID("run-test"))
	if err != nil {
		t.Fatalf("swarm.New: %v", err)
	}
	return s
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestTicksAdvanceUntilDone(t *testing.T) {
	s := newTestSwarm(t, 3)
	app := NewApp(s, WithInterval(time.Millisecond))
	if cmd := app.Init(); cmd == nil {
		t.Fatalf("Init should schedule the first tick")
	}
	var cmd tea.Cmd
	for i := 0; i < 3; i++ {
		_, cmd = app.Update(tickMsg{gen: app.gen})
	}
	if s.Tick() != 3 {
		t.Fatalf("tick = %d, want 3", s.Tick())
	}
	if cmd != nil {
		t.Fatalf("no tick should be scheduled after the last step")
	}
	if !strings.Contains(app.statusMsg, "Run complete: 3 ticks") {
		t.Fatalf("status = %q", app.statusMsg)
	}
	app.Update(tickMsg{gen: app.gen})
	if s.Tick() != 3 {
		t.Fatalf("finished swarm stepped again: tick %d", s.Tick())
	}
}

func TestStaleTickIsDropped(t *testing.T) {
	s := newTestSwarm(t, 5)
	app := NewApp(s)
	app.Init()
	app.Update(tickMsg{gen: app.gen - 1})
	if s.Tick() != 0 {
		t.Fatalf("stale tick advanced the swarm to %d", s.Tick())
	}
}

func TestPauseResumeAndManualStep(t *testing.T) {
	s := newTestSwarm(t, 5)
	app := NewApp(s, WithPaused())
	if cmd := app.Init(); cmd != nil {
		t.Fatalf("paused app should not schedule ticks")
	}
	app.Update(tickMsg{gen: app.gen})
	if s.Tick() != 0 {
		t.Fatalf("paused app advanced on tick")
	}

	app.Update(runeKey('n'))
	app.Update(runeKey('n'))
	if s.Tick() != 2 {
		t.Fatalf("manual steps: tick = %d, want 2", s.Tick())
	}

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if app.paused || cmd == nil {
		t.Fatalf("space should resume and schedule a tick")
	}
	app.Update(runeKey('n'))
	if s.Tick() != 2 {
		t.Fatalf("step key should be ignored while running")
	}

	resumedGen := app.gen
	app.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if !app.paused {
		t.Fatalf("space should pause again")
	}
	app.Update(tickMsg{gen: resumedGen})
	if s.Tick() != 2 {
		t.Fatalf("tick scheduled before pausing must be dropped")
	}
}

func TestSpeedKeysClampInterval(t *testing.T) {
	app := NewApp(newTestSwarm(t, 5), WithPaused())
	for i := 0; i < 10; i++ {
		app.Update(runeKey('+'))
	}
	if app.interval != minInterval {
		t.Fatalf("interval = %s, want %s", app.interval, minInterval)
	}
	for i := 0; i < 20; i++ {
		app.Update(runeKey('-'))
	}
	if app.interval != maxInterval {
		t.Fatalf("interval = %s, want %s", app.interval, maxInterval)
	}
}

func TestVoteShowsInView(t *testing.T) {
	s := newTestSwarm(t, 5)
	app := NewApp(s, WithPaused())
	if !strings.Contains(app.View(), "No vote yet. Sessions run every 5 ticks.") {
		t.Fatalf("expected empty vote panel")
	}
	for i := 0; i < 5; i++ {
		app.Update(runeKey('n'))
	}
	if app.votes != 1 || app.lastVote == nil || app.lastVoteAt != 5 {
		t.Fatalf("vote not recorded: votes=%d at=%d", app.votes, app.lastVoteAt)
	}
	view := app.View()
	for _, want := range []string{"Vote Result:", "Tick 5/5 · complete", "crow-01"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestJournalTailInView(t *testing.T) {
	lb, err := logbook.New(filepath.Join(t.TempDir(), logbook.FileName))
	if err != nil {
		t.Fatalf("logbook.New: %v", err)
	}
	app := NewApp(newTestSwarm(t, 1), WithJournal(lb), WithPaused())
	view := app.View()
	if !strings.Contains(view, "LOG · journal.log (1)") || !strings.Contains(view, "Session opened · run run-test") {
		t.Fatalf("journal panel missing:\n%s", view)
	}
}

func TestQuitKey(t *testing.T) {
	app := NewApp(newTestSwarm(t, 5), WithPaused())
	_, cmd := app.Update(runeKey('q'))
	if cmd == nil {
		t.Fatalf("quit should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestFieldGridPlacesMarkers(t *testing.T) {
	threats := []threat.Threat{threat.New(50, 50, threat.PrimaryAlert)}
	crows := []crow.Snapshot{
		crow.New("crow-01", geom.Point{X: 0, Y: 0}, 0.2).Snapshot(),
		crow.New("crow-02", geom.Point{X: 0, Y: 0}, 0.95).Snapshot(),
		crow.New("crow-03", geom.Point{X: 50, Y: 50}, 0.2).Snapshot(),
		crow.New("crow-04", geom.Point{X: 250, Y: -5}, 0.2).Snapshot(),
		crow.New("crow-05", geom.Point{X: 100, Y: 100}, 0.2).Snapshot(),
	}
	grid := fieldGrid(100, 100, 11, 11, threats, crows)
	if len(grid) != 11 || len(grid[0]) != 11 {
		t.Fatalf("grid is %dx%d", len(grid[0]), len(grid))
	}
	cases := []struct {
		row, col int
		want     rune
	}{
		{0, 0, glyphLeader},
		{5, 5, glyphContact},
		{0, 10, glyphCalm},
		{10, 10, glyphCalm},
		{3, 3, glyphEmpty},
	}
	for _, tc := range cases {
		if got := grid[tc.row][tc.col]; got != tc.want {
			t.Fatalf("grid[%d][%d] = %q, want %q", tc.row, tc.col, got, tc.want)
		}
	}
	if fieldGrid(100, 100, 0, 5, threats, crows) != nil {
		t.Fatalf("empty grid expected for zero columns")
	}
}
