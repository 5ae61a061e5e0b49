package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/crow-eye/internal/config"
	"github.com/kingrea/crow-eye/internal/escalation"
	"github.com/kingrea/crow-eye/internal/logbook"
	"github.com/kingrea/crow-eye/internal/logging"
	"github.com/kingrea/crow-eye/internal/metrics"
	"github.com/kingrea/crow-eye/internal/report"
	"github.com/kingrea/crow-eye/internal/swarm"
	"github.com/kingrea/crow-eye/internal/threat"
)

// swarmFlags override the project config for a single invocation. Only
// flags the user actually set are applied.
type swarmFlags struct {
	steps   int
	agents  int
	seed    uint64
	threats string
}

func (f *swarmFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.steps, "steps", 0, "ticks to simulate")
	cmd.Flags().IntVar(&f.agents, "agents", 0, "number of crows")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "random seed for crow placement")
	cmd.Flags().StringVar(&f.threats, "threats", "", "threat file (x,y,category[,severity] rows)")
}

func (f *swarmFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Project.Swarm.Steps = f.steps
	}
	if flags.Changed("agents") {
		cfg.Project.Swarm.Agents = f.agents
	}
	if flags.Changed("seed") {
		cfg.Project.Swarm.Seed = f.seed
	}
	if flags.Changed("threats") {
		cfg.Project.Threats.Source = f.threats
	}
}

// session is everything one simulation run needs, wired from config.
type session struct {
	cfg      *config.Config
	log      *logging.Logger
	journal  *logbook.Logbook
	metrics  *metrics.Collector
	recorder *escalation.Recorder
	threats  []threat.Threat
	swarm    *swarm.Swarm
}

func openSession(cmd *cobra.Command, root *rootOptions, flags *swarmFlags) (*session, error) {
	projectDir, err := root.resolveProjectDir()
	if err != nil {
		return nil, err
	}
	if err := config.InitDir(projectDir); err != nil {
		return nil, err
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	flags.apply(cmd, cfg)

	log, err := logging.New(projectDir, logging.Options{
		Level:   cfg.Project.Log.Level,
		Format:  cfg.Project.Log.Format,
		Verbose: root.verbose,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("%s started in %s", cmd.CommandPath(), projectDir)
	journal, err := logbook.New(cfg.JournalPath())
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	s := &session{
		cfg:     cfg,
		log:     log,
		journal: journal,
		metrics: metrics.NewCollector(cfg.Project.Metrics.Namespace, log.Zap()),
		// Keep every vote of the run for the report.
		recorder: escalation.NewRecorder(escalation.RecorderWithBacklogLimit(cfg.Project.Swarm.Steps)),
	}
	s.threats = threat.LoadOrFallback(cfg.ThreatSource(), log.Zap())
	s.swarm, err = swarm.New(cfg.Project.Swarm, s.threats,
		swarm.WithCrowParams(cfg.Project.Crow),
		swarm.WithFractalParams(cfg.Project.Fractal),
		swarm.WithConsensusParams(cfg.Project.Consensus),
		swarm.WithSink(escalation.Fanout{s.recorder, escalation.LogbookSink{Journal: journal}}),
		swarm.WithMetrics(s.metrics),
		swarm.WithLogger(log.Zap()),
	)
	if err != nil {
		_ = log.Close()
		return nil, err
	}
	journal.Info("Run %s started · %d crows · %d threats · seed %d",
		s.swarm.RunID(), cfg.Project.Swarm.Agents, len(s.threats), cfg.Project.Swarm.Seed)
	return s, nil
}

// saveReport writes the run summary to .crow-eye/reports.
func (s *session) saveReport() (string, error) {
	cfg := s.swarm.Config()
	summary := report.Summary{
		Meta: report.Metadata{
			RunID:       s.swarm.RunID(),
			Seed:        cfg.Seed,
			Agents:      cfg.Agents,
			Steps:       s.swarm.Tick(),
			Threats:     len(s.threats),
			Votes:       s.recorder.Votes(),
			Escalations: s.recorder.Escalations(),
			CreatedAt:   time.Now().UTC(),
			Notes:       map[string]string{"threat_source": s.cfg.ThreatSource()},
		},
		Threats: s.swarm.Threats(),
		Roster:  s.swarm.Roster(),
		Votes:   s.recorder.Recent(0),
	}
	path, err := report.NewStore(s.cfg.ReportsDir()).Save(summary)
	if err != nil {
		return "", err
	}
	s.log.Zap().Info("report saved", zap.String("path", path))
	s.journal.Info("Report saved to %s", path)
	return path, nil
}

func (s *session) Close() error {
	if s == nil {
		return nil
	}
	return s.log.Close()
}
