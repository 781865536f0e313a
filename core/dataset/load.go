package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"manhole-tracker/core/record"

	"go.uber.org/zap"
)

// maxLineSize bounds one NDJSON entry; longer lines are skipped as malformed.
var maxLineSize = 16 * 1024 * 1024

// LoadStats describes what Load found in the file.
type LoadStats struct {
	Format Format `json:"format"`
	// Entries counts non-blank lines or array elements.
	Entries   int `json:"entries"`
	Loaded    int `json:"loaded"`
	Malformed int `json:"malformed"`
	NotObject int `json:"not_object"`
	InvalidID int `json:"invalid_id"`
	Duplicate int `json:"duplicate"`
	// Migrated counts records upgraded from the legacy provenance layout.
	Migrated int `json:"migrated"`
	// Unparseable is set when the whole document had to be discarded.
	Unparseable bool `json:"unparseable"`
	Missing     bool `json:"missing"`
}

// Skipped returns the number of entries that were dropped.
func (s LoadStats) Skipped() int {
	return s.Malformed + s.NotObject + s.InvalidID + s.Duplicate
}

// Load reads the dataset at path. A missing file yields an empty dataset. Only
// I/O errors are returned; content problems are logged and counted.
func Load(path string, logger *zap.Logger) (*record.Dataset, LoadStats, error) {
	return LoadAt(path, time.Now(), logger)
}

// LoadAt is Load with an explicit clock for legacy migration.
func LoadAt(path string, now time.Time, logger *zap.Logger) (*record.Dataset, LoadStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("path", path))

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("Dataset file not found, starting empty")
		return record.NewDataset(), LoadStats{Format: FormatNDJSON, Missing: true}, nil
	}
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("read dataset %s: %w", path, err)
	}

	l := &loader{ds: record.NewDataset(), now: now, logger: logger}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		l.stats.Format = FormatArray
		l.loadArray(trimmed)
	} else {
		l.stats.Format = FormatNDJSON
		if err := l.loadLines(data); err != nil {
			return nil, LoadStats{}, fmt.Errorf("read dataset %s: %w", path, err)
		}
		if l.stats.Entries > 0 && l.stats.Loaded == 0 {
			l.stats.Unparseable = true
			logger.Warn("No line of the dataset could be parsed, starting empty")
		}
	}

	logger.Info("Dataset loaded",
		zap.String("format", string(l.stats.Format)),
		zap.Int("records", l.stats.Loaded),
		zap.Int("skipped", l.stats.Skipped()),
		zap.Int("migrated", l.stats.Migrated),
	)
	return l.ds, l.stats, nil
}

type loader struct {
	ds     *record.Dataset
	stats  LoadStats
	now    time.Time
	logger *zap.Logger
}

func (l *loader) loadArray(doc []byte) {
	var entries []json.RawMessage
	if err := json.Unmarshal(doc, &entries); err != nil {
		l.stats.Unparseable = true
		l.logger.Warn("Dataset document is not parseable, starting empty", zap.Error(err))
		return
	}
	for i, raw := range entries {
		l.add(i+1, raw)
	}
}

func (l *loader) loadLines(data []byte) error {
	rd := bufio.NewReader(bytes.NewReader(data))
	line := 0
	for {
		chunk, err := rd.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if len(chunk) > 0 {
			line++
			l.addLine(line, chunk)
		}
		if err != nil {
			return nil
		}
	}
}

func (l *loader) addLine(pos int, chunk []byte) {
	raw := bytes.TrimSpace(chunk)
	if len(raw) == 0 {
		return
	}
	if len(raw) > maxLineSize {
		l.stats.Entries++
		l.stats.Malformed++
		l.logger.Warn("Skipping oversized dataset entry", zap.Int("entry", pos), zap.Int("bytes", len(raw)))
		return
	}
	l.add(pos, raw)
}

func (l *loader) add(pos int, raw []byte) {
	l.stats.Entries++

	var r record.Record
	if err := json.Unmarshal(raw, &r); err != nil {
		switch {
		case errors.Is(err, record.ErrNotObject):
			l.stats.NotObject++
		case errors.Is(err, record.ErrInvalidID):
			l.stats.InvalidID++
		default:
			l.stats.Malformed++
		}
		l.logger.Warn("Skipping dataset entry", zap.Int("entry", pos), zap.Error(err))
		return
	}

	if l.ds.Has(r.ID) {
		l.stats.Duplicate++
		l.logger.Warn("Skipping duplicate id", zap.Int("entry", pos), zap.String("id", r.ID))
		return
	}
	if r.Normalize(l.now) {
		l.stats.Migrated++
	}
	l.ds.Put(&r)
	l.stats.Loaded++
}
