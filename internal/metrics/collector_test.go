package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kingrea/crow-eye/internal/consensus"
	"github.com/kingrea/crow-eye/internal/threat"
)

func TestNewCollector(t *testing.T) {
	collector := NewCollector("", nil)

	assert.NotNil(t, collector.Registry())
	assert.NotNil(t, collector.ticksTotal)
	assert.NotNil(t, collector.votesTotal)
}

func TestCollectorsDoNotShareRegistries(t *testing.T) {
	first := NewCollector(DefaultNamespace, zap.NewNop())
	second := NewCollector(DefaultNamespace, zap.NewNop())

	first.RecordStep(1, 2, 3, 50, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(first.ticksTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(second.ticksTotal))
}

func TestCollector_RecordStep(t *testing.T) {
	collector := NewCollector(DefaultNamespace, zap.NewNop())

	collector.RecordStep(4, 6, 2, 97.5, 2*time.Millisecond)
	collector.RecordStep(3, 1, 2, 96.0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.ticksTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(collector.fractalCrows))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.alertCrows))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.leaderCrows))
	assert.Equal(t, 96.0, testutil.ToFloat64(collector.averageEnergy))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.stepDuration))
}

func TestCollector_RecordVote(t *testing.T) {
	collector := NewCollector(DefaultNamespace, zap.NewNop())

	collector.RecordVote(consensus.Result{
		Threat:    threat.New(50, 30, threat.PrimaryAlert),
		Decision:  true,
		Automatic: true,
	})
	collector.RecordVote(consensus.Result{
		Threat:           threat.New(80, 70, threat.SecondaryAlert),
		TotalVotingPower: 3,
		YesVotes:         2,
		ConsensusRatio:   2.0 / 3.0,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.votesTotal.WithLabelValues("primary-alert", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.votesTotal.WithLabelValues("secondary-alert", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.escalations))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.consensusRatio))
}

func TestCollector_WriteText(t *testing.T) {
	collector := NewCollector(DefaultNamespace, zap.NewNop())
	collector.RecordStep(1, 0, 1, 99.9, time.Millisecond)

	var buf bytes.Buffer
	require.NoError(t, collector.WriteText(&buf))

	out := buf.String()
	assert.Contains(t, out, "# TYPE crow_eye_ticks_total counter")
	assert.Contains(t, out, "crow_eye_ticks_total 1")
	assert.Contains(t, out, "crow_eye_average_energy 99.9")
}

func TestNilCollectorIsSafe(t *testing.T) {
	var collector *Collector
	collector.RecordStep(1, 1, 1, 1, time.Second)
	collector.RecordVote(consensus.Result{})
	assert.NoError(t, collector.WriteText(&bytes.Buffer{}))
	assert.Nil(t, collector.Registry())
}
