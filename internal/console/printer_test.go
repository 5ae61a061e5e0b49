package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/crow-eye/internal/consensus"
	"github.com/kingrea/crow-eye/internal/crow"
	"github.com/kingrea/crow-eye/internal/geom"
	"github.com/kingrea/crow-eye/internal/swarm"
	"github.com/kingrea/crow-eye/internal/threat"
)

func TestStepWithoutVote(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, Plain())
	leader := crow.New("crow-04", geom.Point{X: 12.34, Y: 56.78}, 0.91).Snapshot()

	p.Step(swarm.StepReport{
		Tick:          3,
		Leaders:       []crow.Snapshot{leader},
		Fractal:       2,
		Alert:         4,
		AverageEnergy: 97.26,
	})

	want := strings.Join([]string{
		"",
		"--- Step 3 ---",
		"LEADER: Crow[12.3,56.8] trust=0.91 [DIRECT] E:100 CALM",
		"Stats: 2 fractal, 4 alert, avg energy: 97.3",
		"SWARM ALERT: 4 crows detecting threats!",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
	assert.NoError(t, p.Err())
}

func TestStepWithVote(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, Plain())
	fire := threat.New(80, 70, threat.SecondaryAlert)

	p.Step(swarm.StepReport{Tick: 5, Vote: &consensus.Result{
		Threat:         fire,
		Voters:         3,
		YesVoters:      1,
		NoVoters:       2,
		ConsensusRatio: 0.5,
		Reason:         "50.0% consensus below 70% threshold",
	}})

	out := buf.String()
	assert.NotContains(t, out, "SWARM ALERT")
	assert.Contains(t, out, "=== CROW DEMOCRACY SESSION ===")
	assert.Contains(t, out, "Voting on: Threat[secondary-alert 60% at 80.0,70.0]")
	assert.Contains(t, out, "Vote Result: NO ALERT (50.0% consensus below 70% threshold) - 1/3 crows, 50.0% consensus")
	assert.Contains(t, out, "Swarm decides to handle threat independently.")
	assert.True(t, strings.HasSuffix(out, strings.Repeat("=", 40)+"\n"))

	buf.Reset()
	p.Step(swarm.StepReport{Tick: 10, Vote: &consensus.Result{Threat: fire, Decision: true, Reason: consensus.ReasonAutomatic}})
	assert.Contains(t, buf.String(), "RANGERS ALERTED! Human intervention requested.")
}

func TestBannerAndSummary(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, Plain())
	p.Banner("run-1", 2, 10)
	p.Summary(15, 3, 1)

	out := buf.String()
	assert.Contains(t, out, "=== Crow Eye Threat Detection Simulation ===\nRun run-1\nLoaded 2 threats\nInitialized swarm of 10 crows\n")
	assert.Contains(t, out, "Run complete: 15 ticks, 3 votes, 1 escalations")
}

type failingWriter struct{ writes int }

func (f *failingWriter) Write([]byte) (int, error) {
	f.writes++
	return 0, errors.New("closed pipe")
}

func TestPrinterStopsAfterFirstWriteError(t *testing.T) {
	w := &failingWriter{}
	p := New(w)
	p.Banner("run-1", 1, 1)
	require.Error(t, p.Err())
	assert.Equal(t, 1, w.writes)
}
