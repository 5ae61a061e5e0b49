package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/crow-eye/internal/config"
	"github.com/kingrea/crow-eye/internal/console"
	"github.com/kingrea/crow-eye/internal/report"
	"github.com/kingrea/crow-eye/internal/tui"
)

func newInitCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create .crow-eye/ with a default config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := root.resolveProjectDir()
			if err != nil {
				return err
			}
			if err := config.InitDir(projectDir); err != nil {
				return err
			}
			cfg, err := config.NewConfig(projectDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", cfg.ProjectConfigPath())
			return nil
		},
	}
}

type runOptions struct {
	swarmFlags
	plain      bool
	saveReport bool
	metricsOut string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation headless and print every tick",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeadless(cmd, root, opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "disable colours")
	cmd.Flags().BoolVar(&opts.saveReport, "report", false, "save a markdown run report under .crow-eye/reports")
	cmd.Flags().StringVar(&opts.metricsOut, "metrics-out", "", "write the final metrics in Prometheus text format to this file")
	return cmd
}

func runHeadless(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	s, err := openSession(cmd, root, &opts.swarmFlags)
	if err != nil {
		return err
	}
	defer s.Close()

	var printerOpts []console.Option
	if opts.plain {
		printerOpts = append(printerOpts, console.Plain())
	}
	printer := console.New(cmd.OutOrStdout(), printerOpts...)
	printer.Banner(s.swarm.RunID(), len(s.threats), s.swarm.Config().Agents)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runErr := s.swarm.Run(ctx, printer.Step)
	printer.Summary(s.swarm.Tick(), s.recorder.Votes(), s.recorder.Escalations())

	errs := []error{runErr, printer.Err()}
	if opts.saveReport {
		path, err := s.saveReport()
		if err != nil {
			errs = append(errs, err)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Report saved: %s\n", path)
		}
	}
	if opts.metricsOut != "" {
		errs = append(errs, writeMetrics(s, opts.metricsOut))
	}
	return errors.Join(errs...)
}

func writeMetrics(s *session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("metrics: create %s: %w", path, err)
	}
	if err := s.metrics.WriteText(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func newTUICmd(root *rootOptions) *cobra.Command {
	flags := &swarmFlags{}
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Watch the swarm on an interactive board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, root, flags)
			if err != nil {
				return err
			}
			defer s.Close()

			// tea.NewProgram runs the app on the alternate screen until the
			// user quits.
			p := tea.NewProgram(
				tui.NewApp(s.swarm, tui.WithJournal(s.journal)),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run tui: %w", err)
			}
			if _, err := s.saveReport(); err != nil {
				return err
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newReportsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reports",
		Short: "List saved run reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := root.resolveProjectDir()
			if err != nil {
				return err
			}
			cfg, err := config.NewConfig(projectDir)
			if err != nil {
				return err
			}
			entries, err := report.NewStore(cfg.ReportsDir()).List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No reports yet. Run `crow-eye run --report` to create one.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  run %s  %d crows  %d ticks  %d votes  %d escalations  %s\n",
					e.Meta.CreatedAt.Format("2006-01-02 15:04:05"),
					e.Meta.RunID, e.Meta.Agents, e.Meta.Steps, e.Meta.Votes, e.Meta.Escalations, e.Path)
			}
			return nil
		},
	}
}
