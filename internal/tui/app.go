// internal/tui/app.go
//
// Interactive view of a running swarm. It uses bubbletea, which follows The
// Elm Architecture:
//
// 1. Model: the swarm plus what the screen shows about it
// 2. Update: ticks advance the swarm, keys pause, step or change speed
// 3. View: field map, stats, last vote, roster and the journal tail
//
// The swarm is only ever stepped from Update, so it needs no locking.

package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/crow-eye/internal/consensus"
	"github.com/kingrea/crow-eye/internal/crow"
	"github.com/kingrea/crow-eye/internal/logbook"
	"github.com/kingrea/crow-eye/internal/swarm"
)

const (
	defaultInterval = 400 * time.Millisecond
	minInterval     = 50 * time.Millisecond
	maxInterval     = 5 * time.Second
	logTailLines    = 8
	maxRosterRows   = 12
	fieldCols       = 50
	fieldRows       = 20
)

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithJournal shows the tail of the given logbook under the board.
func WithJournal(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		a.journal = lb
	}
}

// WithInterval sets the delay between automatic ticks.
func WithInterval(d time.Duration) AppOption {
	return func(a *App) {
		if d > 0 {
			a.interval = clampInterval(d)
		}
	}
}

// WithPaused starts the app without scheduling ticks.
func WithPaused() AppOption {
	return func(a *App) {
		a.paused = true
	}
}

// tickMsg carries the generation it was scheduled under. Pausing or changing
// speed bumps the generation so stale ticks are dropped.
type tickMsg struct {
	gen int
}

// App is the bubbletea model for one swarm run.
type App struct {
	swarm   *swarm.Swarm
	journal *logbook.Logbook

	keys     keyMap
	help     help.Model
	roster   table.Model
	interval time.Duration
	paused   bool
	gen      int

	last        swarm.StepReport
	lastVote    *consensus.Result
	lastVoteAt  int
	votes       int
	escalations int
	statusMsg   string

	width  int
	height int
}

// NewApp builds the model around an already constructed swarm.
func NewApp(s *swarm.Swarm, opts ...AppOption) *App {
	roster := s.Roster()
	a := &App{
		swarm:     s,
		keys:      defaultKeyMap(),
		help:      help.New(),
		interval:  defaultInterval,
		last:      swarm.StepReport{Crows: roster},
		statusMsg: fmt.Sprintf("Run %s · %d crows · %d threats", s.RunID(), len(roster), len(s.Threats())),
	}
	a.roster = newRosterTable(roster)
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.journal != nil {
		a.journal.Info("Session opened · run %s", s.RunID())
	}
	return a
}

// Init starts the tick loop unless the app was created paused.
func (a *App) Init() tea.Cmd {
	if a.paused {
		return nil
	}
	return a.scheduleTick()
}

// Update handles ticks, keys and resizes.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		return a, nil
	case tickMsg:
		if msg.gen != a.gen || a.paused || a.swarm.Done() {
			return a, nil
		}
		a.advance()
		if a.swarm.Done() {
			return a, nil
		}
		return a, a.scheduleTick()
	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		if a.journal != nil {
			a.journal.Info("Session closed at tick %d", a.swarm.Tick())
		}
		return a, tea.Quit
	case key.Matches(msg, a.keys.Pause):
		if a.swarm.Done() {
			return a, nil
		}
		a.paused = !a.paused
		if a.paused {
			a.gen++
			a.statusMsg = fmt.Sprintf("Paused at tick %d", a.swarm.Tick())
			return a, nil
		}
		a.statusMsg = "Running"
		return a, a.scheduleTick()
	case key.Matches(msg, a.keys.Step):
		if !a.paused || a.swarm.Done() {
			return a, nil
		}
		a.advance()
		return a, nil
	case key.Matches(msg, a.keys.Faster):
		return a, a.setInterval(a.interval / 2)
	case key.Matches(msg, a.keys.Slower):
		return a, a.setInterval(a.interval * 2)
	}
	return a, nil
}

func (a *App) setInterval(d time.Duration) tea.Cmd {
	a.interval = clampInterval(d)
	a.statusMsg = fmt.Sprintf("Tick interval %s", a.interval)
	if a.paused || a.swarm.Done() {
		return nil
	}
	return a.scheduleTick()
}

func (a *App) scheduleTick() tea.Cmd {
	a.gen++
	gen := a.gen
	return tea.Tick(a.interval, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

func (a *App) advance() {
	report := a.swarm.Step()
	a.last = report
	a.roster.SetRows(rosterRows(report.Crows))
	if report.Vote != nil {
		vote := *report.Vote
		a.lastVote = &vote
		a.lastVoteAt = report.Tick
		a.votes++
		if vote.Decision {
			a.escalations++
		}
	}
	if a.swarm.Done() {
		a.statusMsg = fmt.Sprintf("Run complete: %d ticks, %d votes, %d escalations",
			report.Tick, a.votes, a.escalations)
		if a.journal != nil {
			a.journal.Info("Run %s complete after %d ticks", a.swarm.RunID(), report.Tick)
		}
	}
}

func clampInterval(d time.Duration) time.Duration {
	return min(max(d, minInterval), maxInterval)
}

// View renders the board.
func (a *App) View() string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render("⬡ CROW EYE")

	cfg := a.swarm.Config()
	field := lipgloss.JoinVertical(lipgloss.Left,
		renderField(fieldGrid(cfg.Width, cfg.Height, fieldCols, fieldRows, a.swarm.Threats(), a.last.Crows)),
		fieldLegend(),
	)
	leftBox := panelStyle().Render(field)
	rightBox := panelStyle().Render(lipgloss.JoinVertical(lipgloss.Left,
		a.renderStatsPanel(),
		"",
		a.renderVotePanel(),
		"",
		a.roster.View(),
	))

	var body string
	if a.width > 0 && a.width < lipgloss.Width(leftBox)+lipgloss.Width(rightBox) {
		body = lipgloss.JoinVertical(lipgloss.Left, leftBox, rightBox)
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)
	}

	sections := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(a.statusMsg)
	sections = append(sections, footer, a.help.View(a.keys))
	return strings.Join(sections, "\n")
}

func panelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1)
}

func titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
}

func (a *App) renderStatsPanel() string {
	cfg := a.swarm.Config()
	state := "running"
	switch {
	case a.swarm.Done():
		state = "complete"
	case a.paused:
		state = "paused"
	}
	lines := []string{
		titleStyle().Render(fmt.Sprintf("Tick %d/%d · %s", a.swarm.Tick(), cfg.Steps, state)),
		fmt.Sprintf("Stats: %d fractal, %d alert, avg energy: %.1f",
			a.last.Fractal, a.last.Alert, a.last.AverageEnergy),
		fmt.Sprintf("Leaders: %d · votes: %d · escalations: %d",
			len(a.last.Leaders), a.votes, a.escalations),
	}
	if a.last.Alert > 0 {
		lines = append(lines, lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB347")).
			Render(fmt.Sprintf("SWARM ALERT: %d crows detecting threats!", a.last.Alert)))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderVotePanel() string {
	title := titleStyle().Render("Last democracy session")
	if a.lastVote == nil {
		note := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).
			Render(fmt.Sprintf("No vote yet. Sessions run every %d ticks.", a.swarm.Config().VoteEvery))
		return lipgloss.JoinVertical(lipgloss.Left, title, note)
	}
	verdict := lipgloss.NewStyle().Foreground(lipgloss.Color("#7BD88F")).
		Render("Swarm decides to handle threat independently.")
	if a.lastVote.Decision {
		verdict = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).
			Render("RANGERS ALERTED! Human intervention requested.")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		fmt.Sprintf("Tick %d · %s", a.lastVoteAt, a.lastVote.Threat),
		a.lastVote.String(),
		verdict,
	)
}

func (a *App) renderLogPanel() string {
	if a.journal == nil {
		return ""
	}
	lines, total := a.journal.Tail(logTailLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.journal.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := titleStyle().Render(fmt.Sprintf("LOG · %s (%d)", fileName, total))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return panelStyle().Render(fmt.Sprintf("%s\n%s", head, body))
}

func newRosterTable(roster []crow.Snapshot) table.Model {
	columns := []table.Column{
		{Title: "Crow", Width: 9},
		{Title: "Position", Width: 13},
		{Title: "Trust", Width: 5},
		{Title: "Energy", Width: 6},
		{Title: "Mode", Width: 7},
		{Title: "Alert", Width: 7},
	}
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = lipgloss.NewStyle()
	return table.New(
		table.WithColumns(columns),
		table.WithRows(rosterRows(roster)),
		table.WithHeight(min(max(len(roster), 1), maxRosterRows)+2),
		table.WithFocused(false),
		table.WithStyles(styles),
	)
}

func rosterRows(roster []crow.Snapshot) []table.Row {
	rows := make([]table.Row, 0, len(roster))
	for _, c := range roster {
		name := c.ID
		if c.Veteran {
			name += "*"
		}
		rows = append(rows, table.Row{
			name,
			c.Position.String(),
			fmt.Sprintf("%.2f", c.Trust),
			fmt.Sprintf("%.0f", c.Energy),
			c.Mode(),
			c.Alert.String(),
		})
	}
	return rows
}
