package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jo-hoe/fxshelf/internal/backend/database"
)

// ImportReport summarizes an import run.
type ImportReport struct {
	Added   int      `json:"added"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// ExportFileName returns the dated name used for export files.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("imagefx-export-%s.json", now.UTC().Format("2006-01-02"))
}

// Export writes records as an indented JSON array.
func Export(w io.Writer, records []*database.ImageRecord) error {
	if len(records) == 0 {
		return ErrNothingToExport
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// Import reads a JSON array of records from r and adds each one to the store.
// Records whose id or source url is already taken are skipped; the source url is
// not checked beyond what the store enforces.
func Import(ctx context.Context, store database.RecordStore, r io.Reader) (ImportReport, error) {
	var report ImportReport

	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return report, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}
	var elements []json.RawMessage
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return report, fmt.Errorf("%w: expected a JSON array", ErrInvalidImport)
	}
	if err := json.Unmarshal(raw, &elements); err != nil {
		return report, fmt.Errorf("%w: expected a JSON array", ErrInvalidImport)
	}

	for i, element := range elements {
		var record database.ImageRecord
		if err := json.Unmarshal(element, &record); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("element %d: %v", i, err))
			continue
		}
		if record.ID == "" {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("element %d: missing id", i))
			continue
		}

		err := store.Add(ctx, &record)
		switch {
		case err == nil:
			report.Added++
		case errors.Is(err, database.ErrDuplicateKey), errors.Is(err, database.ErrDuplicateSource):
			slog.Debug("skipping imported image", "id", record.ID, "reason", err)
			report.Skipped++
		case errors.Is(err, database.ErrStorageUnavailable):
			return report, err
		default:
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("element %d (%s): %v", i, record.ID, err))
		}
	}

	slog.Info("import finished", "added", report.Added, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}
