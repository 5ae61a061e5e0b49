// Package console prints the headless per-tick rendering of a run.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/crow-eye/internal/swarm"
)

// Option customizes a Printer.
type Option func(*Printer)

// Plain disables all styling.
func Plain() Option {
	return func(p *Printer) {
		p.styles = plainStyles()
	}
}

type styles struct {
	title   lipgloss.Style
	step    lipgloss.Style
	leader  lipgloss.Style
	stats   lipgloss.Style
	warning lipgloss.Style
	session lipgloss.Style
	alerted lipgloss.Style
	calm    lipgloss.Style
}

func colourStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		step:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		leader:  lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
		stats:   lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB347")),
		session: lipgloss.NewStyle().Bold(true),
		alerted: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
		calm:    lipgloss.NewStyle().Foreground(lipgloss.Color("#7BD88F")),
	}
}

func plainStyles() styles {
	s := lipgloss.NewStyle()
	return styles{title: s, step: s, leader: s, stats: s, warning: s, session: s, alerted: s, calm: s}
}

// Printer writes run output to w.
type Printer struct {
	w      io.Writer
	styles styles
	err    error
}

// New creates a Printer writing to w.
func New(w io.Writer, opts ...Option) *Printer {
	p := &Printer{w: w, styles: colourStyles()}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Err returns the first write error encountered.
func (p *Printer) Err() error { return p.err }

// Banner prints the run header.
func (p *Printer) Banner(runID string, threats, crows int) {
	p.line(p.styles.title.Render("=== Crow Eye Threat Detection Simulation ==="))
	p.line(fmt.Sprintf("Run %s", runID))
	p.line(fmt.Sprintf("Loaded %d threats", threats))
	p.line(fmt.Sprintf("Initialized swarm of %d crows", crows))
}

// Step prints one tick: leaders, stats, the swarm alert line and, on voting
// ticks, the democracy session.
func (p *Printer) Step(r swarm.StepReport) {
	p.line("")
	p.line(p.styles.step.Render(fmt.Sprintf("--- Step %d ---", r.Tick)))
	for _, leader := range r.Leaders {
		p.line(p.styles.leader.Render("LEADER: " + leader.String()))
	}
	p.line(p.styles.stats.Render(fmt.Sprintf("Stats: %d fractal, %d alert, avg energy: %.1f",
		r.Fractal, r.Alert, r.AverageEnergy)))
	if r.Alert > 0 {
		p.line(p.styles.warning.Render(fmt.Sprintf("SWARM ALERT: %d crows detecting threats!", r.Alert)))
	}
	if r.Vote == nil {
		return
	}
	p.line("")
	p.line(p.styles.session.Render("=== CROW DEMOCRACY SESSION ==="))
	p.line("Voting on: " + r.Vote.Threat.String())
	p.line(r.Vote.String())
	if r.Vote.Decision {
		p.line(p.styles.alerted.Render("RANGERS ALERTED! Human intervention requested."))
	} else {
		p.line(p.styles.calm.Render("Swarm decides to handle threat independently."))
	}
	p.line(strings.Repeat("=", 40))
}

// Summary prints the closing totals.
func (p *Printer) Summary(ticks, votes, escalations int) {
	p.line("")
	p.line(p.styles.title.Render(fmt.Sprintf("Run complete: %d ticks, %d votes, %d escalations", ticks, votes, escalations)))
}

func (p *Printer) line(s string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, s)
}
