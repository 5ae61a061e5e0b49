// internal/config/config.go
//
// This package handles configuration and the .crow-eye directory structure.
// Every project that runs crow-eye gets a .crow-eye/ folder in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/crow-eye/internal/consensus"
	"github.com/kingrea/crow-eye/internal/crow"
	"github.com/kingrea/crow-eye/internal/fractal"
	"github.com/kingrea/crow-eye/internal/swarm"
)

const (
	// CrowEyeDir is the name of the directory we create in each project
	CrowEyeDir = ".crow-eye"

	defaultThreatSource = "data/threats.csv"
	defaultLogLevel     = "info"
	defaultLogFormat    = "console"
	defaultNamespace    = "crow_eye"
	maxFractalDepth     = 20
)

// Environment variables that override config.yaml.
const (
	EnvSeed    = "CROW_EYE_SEED"
	EnvAgents  = "CROW_EYE_AGENTS"
	EnvSteps   = "CROW_EYE_STEPS"
	EnvThreats = "CROW_EYE_THREATS"
)

const defaultProjectConfigYAML = `# crow-eye project configuration
version: 1

# Swarm size, seed and pacing. Votes are held on every vote_every-th tick.
swarm:
  agents: 10
  seed: 42
  steps: 15
  vote_every: 5
  width: 100
  height: 100

# Threat rows (x,y,category[,severity]) relative to the project directory.
# When the file is missing or empty the built-in fallback threats are used.
threats:
  source: data/threats.csv

# Behaviour tuning. Omitted keys keep their defaults.
# crow:
#   memory_radius: 15
#   alert_radius: 20
# fractal:
#   step_size: 5
# consensus:
#   threshold: 0.7
#   proximity_radius: 50

log:
  level: info     # debug, info, warn, error
  format: console # console or json

metrics:
  namespace: crow_eye
`

// ThreatsConfig locates the threat source.
type ThreatsConfig struct {
	Source string `yaml:"source"`
}

// LogConfig selects structured log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig names the metric namespace.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// ProjectConfig models .crow-eye/config.yaml.
type ProjectConfig struct {
	Version   int              `yaml:"version"`
	Swarm     swarm.Config     `yaml:"swarm"`
	Threats   ThreatsConfig    `yaml:"threats"`
	Crow      crow.Params      `yaml:"crow"`
	Fractal   fractal.Params   `yaml:"fractal"`
	Consensus consensus.Params `yaml:"consensus"`
	Log       LogConfig        `yaml:"log"`
	Metrics   MetricsConfig    `yaml:"metrics"`
}

// Config holds the runtime configuration for crow-eye.
type Config struct {
	// ProjectDir is the directory crow-eye was pointed at
	ProjectDir string

	// CrowEyeProjectDir is ProjectDir/.crow-eye
	CrowEyeProjectDir string

	Project ProjectConfig

	lookupEnv func(string) (string, bool)
}

// InitDir creates the .crow-eye directory structure in the given project
// directory and writes a default config.yaml when none exists.
//
// Structure created:
// .crow-eye/
// ├── config.yaml
// ├── logs/         <- structured log and run journal
// └── reports/      <- run summaries
func InitDir(projectDir string) error {
	root := filepath.Join(projectDir, CrowEyeDir)
	for _, dir := range []string{
		filepath.Join(root, "logs"),
		filepath.Join(root, "reports"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return ensureProjectConfig(filepath.Join(root, "config.yaml"))
}

// NewConfig loads .crow-eye/config.yaml (defaults when absent) and applies
// environment overrides.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:        projectDir,
		CrowEyeProjectDir: filepath.Join(projectDir, CrowEyeDir),
		Project:           DefaultProjectConfig(),
		lookupEnv:         os.LookupEnv,
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultProjectConfig returns the configuration used when no file exists.
func DefaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:   1,
		Swarm:     swarm.DefaultConfig(),
		Threats:   ThreatsConfig{Source: defaultThreatSource},
		Crow:      crow.DefaultParams(),
		Fractal:   fractal.DefaultParams(),
		Consensus: consensus.DefaultParams(),
		Log:       LogConfig{Level: defaultLogLevel, Format: defaultLogFormat},
		Metrics:   MetricsConfig{Namespace: defaultNamespace},
	}
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.CrowEyeProjectDir, "logs")
}

// ReportsDir returns the path to the run report directory
func (c *Config) ReportsDir() string {
	return filepath.Join(c.CrowEyeProjectDir, "reports")
}

// JournalPath returns the run journal file.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "journal.log")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.CrowEyeProjectDir, "config.yaml")
}

// ThreatSource returns the resolved threat file path.
func (c *Config) ThreatSource() string {
	return c.Project.Threats.Source
}

func (c *Config) loadProjectConfig() error {
	parsed := DefaultProjectConfig()
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed.applyDefaults()
	if err := parsed.applyEnv(c.lookupEnv); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Log.Level) == "" {
		pc.Log.Level = defaultLogLevel
	}
	if strings.TrimSpace(pc.Log.Format) == "" {
		pc.Log.Format = defaultLogFormat
	}
	if strings.TrimSpace(pc.Metrics.Namespace) == "" {
		pc.Metrics.Namespace = defaultNamespace
	}
}

func (pc *ProjectConfig) applyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	if v, ok := lookup(EnvSeed); ok && strings.TrimSpace(v) != "" {
		seed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}
		pc.Swarm.Seed = seed
	}
	for name, target := range map[string]*int{
		EnvAgents: &pc.Swarm.Agents,
		EnvSteps:  &pc.Swarm.Steps,
	} {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*target = n
	}
	if v, ok := lookup(EnvThreats); ok && strings.TrimSpace(v) != "" {
		pc.Threats.Source = v
	}
	return nil
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Threats.Source = resolvePath(base, pc.Threats.Source)
	pc.Log.Level = strings.ToLower(strings.TrimSpace(pc.Log.Level))
	pc.Log.Format = strings.ToLower(strings.TrimSpace(pc.Log.Format))
	pc.Metrics.Namespace = strings.TrimSpace(pc.Metrics.Namespace)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if err := pc.Swarm.Validate(); err != nil {
		return fmt.Errorf("swarm: %w", err)
	}
	if pc.Crow.MaxEnergy <= 0 {
		return fmt.Errorf("crow.max_energy must be > 0")
	}
	if pc.Crow.MemoryCapacity < 1 {
		return fmt.Errorf("crow.memory_capacity must be >= 1")
	}
	if pc.Fractal.MaxDepth < 0 || pc.Fractal.MaxDepth > maxFractalDepth {
		return fmt.Errorf("fractal.max_depth must be between 0 and %d", maxFractalDepth)
	}
	if pc.Fractal.MaxDepth == 0 && pc.Fractal.BaseDepth+pc.Fractal.TrustDepth > maxFractalDepth {
		return fmt.Errorf("fractal depth is unbounded; set fractal.max_depth")
	}
	if t := pc.Consensus.Threshold; t <= 0 || t > 1 {
		return fmt.Errorf("consensus.threshold must be in (0, 1]")
	}
	switch pc.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	switch pc.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be 'console' or 'json'")
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
