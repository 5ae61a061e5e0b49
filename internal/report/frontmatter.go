package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("report: missing frontmatter")
	// ErrMalformedFrontMatter indicates the YAML block could not be parsed.
	ErrMalformedFrontMatter = errors.New("report: malformed frontmatter")
)

// Metadata is the run summary stored in a report's frontmatter.
type Metadata struct {
	RunID       string
	Seed        uint64
	Agents      int
	Steps       int
	Threats     int
	Votes       int
	Escalations int
	CreatedAt   time.Time
	Notes       map[string]string
}

// ParseFrontMatter extracts the metadata block and body from a document that
// starts with `---` YAML fences.
func ParseFrontMatter(content []byte) (Metadata, []byte, error) {
	if len(content) == 0 {
		return Metadata{}, nil, ErrMissingFrontMatter
	}
	normalized := normalizeNewlines(content)
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return Metadata{}, nil, ErrMissingFrontMatter
	}
	rest := normalized[4:]
	parts := bytes.SplitN(rest, []byte("\n---\n"), 2)
	if len(parts) < 2 {
		return Metadata{}, nil, ErrMalformedFrontMatter
	}
	var envelope crowEyeEnvelope
	if err := yaml.Unmarshal(parts[0], &envelope); err != nil {
		return Metadata{}, nil, fmt.Errorf("report: parse frontmatter: %w", err)
	}
	meta, err := envelope.toMetadata()
	if err != nil {
		return Metadata{}, nil, err
	}
	return meta, bytes.TrimLeft(parts[1], "\n"), nil
}

// WriteFrontMatter renders metadata + body with YAML fences.
func WriteFrontMatter(meta Metadata, body []byte) ([]byte, error) {
	if meta.RunID == "" {
		return nil, fmt.Errorf("report: metadata missing run id")
	}
	envelope := crowEyeEnvelope{}
	envelope.fromMetadata(meta)
	data, err := yaml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("report: encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(bytes.TrimRight(data, "\n"))
	buf.WriteString("\n---\n\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

type crowEyeEnvelope struct {
	CrowEye crowEyeMetadata `yaml:"crow_eye"`
}

type crowEyeMetadata struct {
	Run         string            `yaml:"run"`
	Seed        uint64            `yaml:"seed"`
	Agents      int               `yaml:"agents"`
	Steps       int               `yaml:"steps"`
	Threats     int               `yaml:"threats"`
	Votes       int               `yaml:"votes"`
	Escalations int               `yaml:"escalations"`
	Created     string            `yaml:"created"`
	Notes       map[string]string `yaml:"notes,omitempty"`
}

func (e crowEyeEnvelope) toMetadata() (Metadata, error) {
	if e.CrowEye.Run == "" {
		return Metadata{}, ErrMalformedFrontMatter
	}
	created, err := parseTime(e.CrowEye.Created)
	if err != nil {
		return Metadata{}, fmt.Errorf("report: parse created timestamp: %w", err)
	}
	return Metadata{
		RunID:       e.CrowEye.Run,
		Seed:        e.CrowEye.Seed,
		Agents:      e.CrowEye.Agents,
		Steps:       e.CrowEye.Steps,
		Threats:     e.CrowEye.Threats,
		Votes:       e.CrowEye.Votes,
		Escalations: e.CrowEye.Escalations,
		CreatedAt:   created,
		Notes:       cloneNotes(e.CrowEye.Notes),
	}, nil
}

func (e *crowEyeEnvelope) fromMetadata(meta Metadata) {
	e.CrowEye = crowEyeMetadata{
		Run:         meta.RunID,
		Seed:        meta.Seed,
		Agents:      meta.Agents,
		Steps:       meta.Steps,
		Threats:     meta.Threats,
		Votes:       meta.Votes,
		Escalations: meta.Escalations,
		Created:     meta.CreatedAt.UTC().Format(timeLayout),
		Notes:       cloneNotes(meta.Notes),
	}
}

func cloneNotes(notes map[string]string) map[string]string {
	if len(notes) == 0 {
		return nil
	}
	cloned := make(map[string]string, len(notes))
	for k, v := range notes {
		cloned[k] = v
	}
	return cloned
}

const timeLayout = time.RFC3339

func parseTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("report: empty created timestamp")
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func normalizeNewlines(content []byte) []byte {
	return bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
}
