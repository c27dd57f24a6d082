package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"tftrivals/internal/flatten"
)

const csvFileMode = 0644

// CSVSink writes rows to a comma-separated file with a header line,
// replacing the file on every Write
type CSVSink struct {
	path string
}

func NewCSVSink(path string) *CSVSink {
	if path == "" {
		path = DefaultCSVPath
	}
	return &CSVSink{path: path}
}

func (s *CSVSink) Name() string { return s.path }

func (s *CSVSink) Write(ctx context.Context, rows []flatten.FlatRow) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", s.path, err)
	}

	// Write to a sibling temp file so a failed export never truncates the last good one
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(flatten.Header()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range rows {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				tmp.Close()
				return err
			}
		}
		if err := w.Write(row.Record()); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush: %w", err)
	}
	// CreateTemp makes the file owner-only
	if err := tmp.Chmod(csvFileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions on %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", s.path, err)
	}
	return nil
}

func (s *CSVSink) Close() error { return nil }
