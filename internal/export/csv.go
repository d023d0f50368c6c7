// Package export writes the final record set to its destinations: a
// spreadsheet-friendly CSV file, optionally duplicated for Google Sheets
// import, and an optional relational sink.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/startuplens/ycscout/internal/directory"
)

// csvHeader is the exact column order downstream spreadsheet users expect.
var csvHeader = []string{
	"Company Name",
	"YC Batch",
	"Short Description",
	"Founder Name(s)",
	"Founder LinkedIn URL(s)",
}

// CSVConfig controls the CSV destination.
type CSVConfig struct {
	// Path is the output file, created fresh each run.
	Path string
	// SheetsCopy writes a second identical file with a _google_sheets
	// suffix for direct import.
	SheetsCopy bool
}

// CSVWriter renders records into the output CSV. Intermediate directories
// are created automatically and an existing file is truncated.
type CSVWriter struct {
	cfg    CSVConfig
	logger *zap.Logger
}

var _ directory.Exporter = (*CSVWriter)(nil)

// NewCSVWriter builds a CSVWriter for the configured path.
func NewCSVWriter(cfg CSVConfig, logger *zap.Logger) *CSVWriter {
	return &CSVWriter{cfg: cfg, logger: logger}
}

// Export writes all records to the configured path, plus the Sheets copy
// when enabled.
func (w *CSVWriter) Export(_ context.Context, records []directory.StartupRecord) error {
	if err := w.writeFile(w.cfg.Path, records); err != nil {
		return err
	}
	w.logger.Info("csv written",
		zap.String("path", w.cfg.Path),
		zap.Int("records", len(records)))
	if !w.cfg.SheetsCopy {
		return nil
	}
	copyPath := sheetsPath(w.cfg.Path)
	if err := w.writeFile(copyPath, records); err != nil {
		return fmt.Errorf("sheets copy: %w", err)
	}
	w.logger.Info("sheets import copy written", zap.String("path", copyPath))
	return nil
}

func (w *CSVWriter) writeFile(path string, records []directory.StartupRecord) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv %q: %w", path, err)
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(csvHeader); err != nil {
		_ = f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(Row(rec)); err != nil {
			_ = f.Close()
			return fmt.Errorf("write csv row for %q: %w", rec.CompanyName, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv: %w", err)
	}
	return nil
}

// Row flattens one record into the five output columns. Multi-valued
// cells are joined with "; " and anything missing becomes an empty cell.
func Row(rec directory.StartupRecord) []string {
	return []string{
		rec.CompanyName,
		rec.Batch,
		rec.Description,
		strings.Join(rec.Founders, "; "),
		joinLinks(rec.FounderLinks),
	}
}

// joinLinks drops the empty slots left by profile-search misses so the
// cell never renders stray separators.
func joinLinks(links []string) string {
	kept := make([]string, 0, len(links))
	for _, l := range links {
		if l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "; ")
}

func sheetsPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_google_sheets" + ext
}
