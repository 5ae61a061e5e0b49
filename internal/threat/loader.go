package threat

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const minFields = 3

// Load reads threat rows of the form x,y,category[,severity]. The first row
// is a header and is always skipped. Malformed rows are logged and dropped;
// only a failure of the underlying reader is returned as an error.
func Load(r io.Reader, logger *zap.Logger) ([]Threat, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	var threats []Threat
	row := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				logger.Debug("skipping unreadable threat row", zap.Int("line", parseErr.Line), zap.Error(err))
				continue
			}
			return threats, fmt.Errorf("threat: read source: %w", err)
		}
		if row == 1 {
			continue
		}
		t, err := parseRecord(record)
		if err != nil {
			line, _ := reader.FieldPos(0)
			logger.Debug("skipping malformed threat row", zap.Int("line", line), zap.Error(err))
			continue
		}
		threats = append(threats, t.WithID(fmt.Sprintf("threat-%03d", len(threats)+1)))
	}
	return threats, nil
}

// LoadFile opens path and loads its threats.
func LoadFile(path string, logger *zap.Logger) ([]Threat, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("threat: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f, logger)
}

// LoadOrFallback loads path and falls back to Fallback when the source is
// missing, unreadable, or holds no usable rows.
func LoadOrFallback(path string, logger *zap.Logger) []Threat {
	if logger == nil {
		logger = zap.NewNop()
	}
	path = strings.TrimSpace(path)
	if path == "" {
		logger.Info("no threat source configured, using fallback threats")
		return Fallback()
	}
	threats, err := LoadFile(path, logger)
	if err != nil {
		logger.Warn("threat source unavailable, using fallback threats", zap.String("path", path), zap.Error(err))
		return Fallback()
	}
	if len(threats) == 0 {
		logger.Warn("threat source had no usable rows, using fallback threats", zap.String("path", path))
		return Fallback()
	}
	logger.Info("loaded threats", zap.String("path", path), zap.Int("count", len(threats)))
	return threats
}

func parseRecord(record []string) (Threat, error) {
	if len(record) < minFields {
		return Threat{}, fmt.Errorf("expected at least %d fields, got %d", minFields, len(record))
	}
	x, err := parseCoordinate(record[0])
	if err != nil {
		return Threat{}, fmt.Errorf("x: %w", err)
	}
	y, err := parseCoordinate(record[1])
	if err != nil {
		return Threat{}, fmt.Errorf("y: %w", err)
	}
	category, err := ParseCategory(record[2])
	if err != nil {
		return Threat{}, err
	}
	if len(record) > minFields && strings.TrimSpace(record[3]) != "" {
		severity, err := parseCoordinate(record[3])
		if err != nil {
			return Threat{}, fmt.Errorf("severity: %w", err)
		}
		return NewWithSeverity(x, y, category, severity), nil
	}
	return New(x, y, category), nil
}

func parseCoordinate(value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", value)
	}
	return v, nil
}
