package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kingrea/crow-eye/internal/config"
)

// FileName is the structured log's name inside .crow-eye/logs.
const FileName = "crow-eye.log"

// Options selects verbosity and encoding.
type Options struct {
	Level   string
	Format  string
	Verbose bool
}

// Logger appends structured entries to .crow-eye/logs/crow-eye.log so runs
// can be inspected after the terminal output is gone.
type Logger struct {
	file *os.File
	zap  *zap.Logger
}

// New creates (or reuses) the log file for the current project directory.
func New(projectDir string, opts Options) (*Logger, error) {
	logDir := filepath.Join(projectDir, config.CrowEyeDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	level := parseLevel(opts.Level)
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(newEncoder(opts.Format), zapcore.AddSync(f), level)
	return &Logger{file: f, zap: zap.New(core)}, nil
}

// Zap returns the structured logger. A nil Logger yields a no-op logger.
func (l *Logger) Zap() *zap.Logger {
	if l == nil || l.zap == nil {
		return zap.NewNop()
	}
	return l.zap
}

// Close flushes buffered entries and releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = l.zap.Sync()
	return l.file.Close()
}

// Printf writes a single informational line.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.zap == nil {
		return
	}
	line := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	l.zap.Info(line)
}

func parseLevel(value string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func newEncoder(format string) zapcore.Encoder {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}
