// Package report writes run summaries as markdown documents with a YAML
// frontmatter header and lists them back. Reports are output only; nothing
// is ever restored from them.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kingrea/crow-eye/internal/crow"
	"github.com/kingrea/crow-eye/internal/escalation"
	"github.com/kingrea/crow-eye/internal/threat"
)

const fileExt = ".md"

// Summary is everything a run report shows.
type Summary struct {
	Meta    Metadata
	Threats []threat.Threat
	Roster  []crow.Snapshot
	Votes   []escalation.Event
}

// Render builds the markdown body: threats, final roster and vote history.
func Render(s Summary) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Crow Eye run %s\n\n", s.Meta.RunID)
	fmt.Fprintf(&b, "%d crows, %d ticks, seed %d. %d votes, %d escalated to rangers.\n\n",
		s.Meta.Agents, s.Meta.Steps, s.Meta.Seed, s.Meta.Votes, s.Meta.Escalations)

	b.WriteString("## Threats\n\n")
	b.WriteString("| ID | Category | Severity | Position |\n|---|---|---|---|\n")
	for _, t := range s.Threats {
		fmt.Fprintf(&b, "| %s | %s | %.0f%% | %s |\n", orDash(t.ID()), t.Category(), t.Severity()*100, t.Position())
	}

	b.WriteString("\n## Final roster\n\n")
	b.WriteString("| Crow | Position | Trust | Energy | Mode | Alert | Memory |\n|---|---|---|---|---|---|---|\n")
	for _, c := range s.Roster {
		name := c.ID
		if c.Veteran {
			name += " (leader)"
		}
		fmt.Fprintf(&b, "| %s | %s | %.2f | %.0f | %s | %s | %d |\n",
			name, c.Position, c.Trust, c.Energy, c.Mode(), c.Alert, c.Memory)
	}

	b.WriteString("\n## Votes\n\n")
	if len(s.Votes) == 0 {
		b.WriteString("No democracy sessions were held.\n")
		return b.Bytes()
	}
	b.WriteString("| Tick | Threat | Decision | Consensus | Reason |\n|---|---|---|---|---|\n")
	for _, e := range s.Votes {
		decision := "handled by swarm"
		if e.Escalate() {
			decision = "rangers alerted"
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %.1f%% | %s |\n",
			e.Tick, e.Result.Threat, decision, e.Result.ConsensusRatio*100, e.Result.Reason)
	}
	return b.Bytes()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Entry is a saved report found on disk.
type Entry struct {
	Path string
	Meta Metadata
}

// Store manages report files in one directory.
type Store struct {
	dir string
	now func() time.Time
}

// StoreOption customizes a Store during construction.
type StoreOption func(*Store)

// WithClock overrides the clock used for metadata timestamps.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = clock
	}
}

// NewStore builds a store rooted at dir.
func NewStore(dir string, opts ...StoreOption) *Store {
	store := &Store{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Save writes the summary and returns the file path. A zero CreatedAt is
// stamped from the store clock.
func (s *Store) Save(summary Summary) (string, error) {
	if summary.Meta.CreatedAt.IsZero() {
		summary.Meta.CreatedAt = s.now().UTC()
	}
	content, err := WriteFrontMatter(summary.Meta, Render(summary))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("report: ensure dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s%s",
		summary.Meta.CreatedAt.UTC().Format("20060102T150405Z"), shortID(summary.Meta.RunID), fileExt)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("report: write %s: %w", path, err)
	}
	return path, nil
}

// List returns every readable report, newest first. Files without valid
// frontmatter are skipped.
func (s *Store) List() ([]Entry, error) {
	items, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("report: read dir: %w", err)
	}
	var entries []Entry
	for _, item := range items {
		if item.IsDir() || !strings.HasSuffix(item.Name(), fileExt) {
			continue
		}
		path := filepath.Join(s.dir, item.Name())
		meta, _, err := Load(path)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Path: path, Meta: meta})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Meta.CreatedAt.After(entries[j].Meta.CreatedAt)
	})
	return entries, nil
}

// Load reads a saved report.
func Load(path string) (Metadata, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, nil, fmt.Errorf("report: read %s: %w", path, err)
	}
	return ParseFrontMatter(data)
}

func shortID(id string) string {
	id = strings.ReplaceAll(strings.TrimSpace(id), string(filepath.Separator), "-")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
