package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/crow-eye/internal/crow"
	"github.com/kingrea/crow-eye/internal/geom"
	"github.com/kingrea/crow-eye/internal/threat"
)

const (
	glyphEmpty     = '.'
	glyphPrimary   = 'P'
	glyphSecondary = 'S'
	glyphContact   = '@'
	glyphCalm      = 'c'
	glyphAlert     = 'a'
	glyphAlarmed   = '!'
	glyphLeader    = 'V'
)

var glyphStyles = map[rune]lipgloss.Style{
	glyphEmpty:     lipgloss.NewStyle().Foreground(lipgloss.Color("#444444")),
	glyphPrimary:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
	glyphSecondary: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB347")),
	glyphContact:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
	glyphCalm:      lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
	glyphAlert:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB347")),
	glyphAlarmed:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
	glyphLeader:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
}

// fieldGrid projects the field onto a cols x rows character grid with the
// origin in the top-left cell. Crows outside the field are pinned to the
// nearest edge. A crow sharing a cell with a threat shows as contact.
func fieldGrid(width, height float64, cols, rows int, threats []threat.Threat, crows []crow.Snapshot) [][]rune {
	if cols < 1 || rows < 1 {
		return nil
	}
	grid := make([][]rune, rows)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(string(glyphEmpty), cols))
	}
	for _, t := range threats {
		col, row := cell(t.Position(), width, height, cols, rows)
		if t.Category() == threat.PrimaryAlert {
			grid[row][col] = glyphPrimary
		} else {
			grid[row][col] = glyphSecondary
		}
	}
	for _, c := range crows {
		col, row := cell(c.Position, width, height, cols, rows)
		switch grid[row][col] {
		case glyphPrimary, glyphSecondary, glyphContact:
			grid[row][col] = glyphContact
		default:
			grid[row][col] = crowGlyph(c, grid[row][col])
		}
	}
	return grid
}

// crowGlyph keeps the most significant marker when crows share a cell.
func crowGlyph(c crow.Snapshot, current rune) rune {
	next := glyphCalm
	switch {
	case c.Alert == crow.Alarmed:
		next = glyphAlarmed
	case c.Veteran:
		next = glyphLeader
	case c.Alert == crow.Alert:
		next = glyphAlert
	}
	if glyphRank(current) > glyphRank(next) {
		return current
	}
	return next
}

func glyphRank(g rune) int {
	switch g {
	case glyphAlarmed:
		return 4
	case glyphLeader:
		return 3
	case glyphAlert:
		return 2
	case glyphCalm:
		return 1
	default:
		return 0
	}
}

func cell(p geom.Point, width, height float64, cols, rows int) (int, int) {
	return scaleAxis(p.X, width, cols), scaleAxis(p.Y, height, rows)
}

func scaleAxis(v, extent float64, cells int) int {
	if extent <= 0 || math.IsNaN(v) {
		return 0
	}
	idx := int(math.Round(v / extent * float64(cells-1)))
	return min(max(idx, 0), cells-1)
}

func renderField(grid [][]rune) string {
	lines := make([]string, len(grid))
	for i, row := range grid {
		var b strings.Builder
		for _, g := range row {
			b.WriteString(glyphStyles[g].Render(string(g)))
		}
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}

func fieldLegend() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render("P primary  S secondary  @ contact  V leader  c calm  a alert  ! alarmed")
}
