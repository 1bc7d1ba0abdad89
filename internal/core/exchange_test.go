package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jo-hoe/fxshelf/internal/backend/database"
)

func TestExportFileName(t *testing.T) {
	got := ExportFileName(time.Date(2024, 2, 9, 23, 0, 0, 0, time.UTC))
	if got != "imagefx-export-2024-02-09.json" {
		t.Errorf("unexpected file name %q", got)
	}
}

func TestExport_Format(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, []*database.ImageRecord{record("1", "u1", "2024-01-01T00:00:00Z", "a")}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "[\n  {\n    \"id\": \"1\",") {
		t.Errorf("expected two-space indented array, got %q", out[:min(len(out), 40)])
	}
	if strings.Contains(out, "lastEdited") {
		t.Error("empty lastEdited must be omitted")
	}
}

func TestExport_Empty(t *testing.T) {
	if err := Export(&bytes.Buffer{}, nil); !errors.Is(err, ErrNothingToExport) {
		t.Errorf("expected ErrNothingToExport, got %v", err)
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	source := newTestStore(t)
	originals := []*database.ImageRecord{
		record("1", "u1", "2024-01-01T00:00:00Z", "a", "b"),
		record("2", "u2", "2024-01-02T00:00:00Z"),
		record("3", "", "not a date", "c"),
	}
	originals[0].Comments = "see https://example.com"
	originals[0].LastEdited = "2024-02-01T10:00:00.000Z"
	originals[1].ThumbnailURL = "data:image/jpeg;base64,AAAA"
	for _, r := range originals {
		if err := source.Add(ctx, r); err != nil {
			t.Fatalf("failed to seed: %v", err)
		}
	}

	all, _ := source.GetAll(ctx)
	var buf bytes.Buffer
	if err := Export(&buf, all); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	target := newTestStore(t)
	report, err := Import(ctx, target, &buf)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.Added != 3 || report.Skipped != 0 || report.Failed != 0 {
		t.Errorf("unexpected report %+v", report)
	}

	imported, _ := target.GetAll(ctx)
	byID := func(records []*database.ImageRecord) {
		sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	}
	byID(imported)
	byID(originals)
	if !reflect.DeepEqual(imported, originals) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", imported, originals)
	}
}

func TestImport_SkipsCollisions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if err := store.Add(ctx, record("1", "u1", "2024-01-01T00:00:00Z")); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	payload, _ := json.Marshal([]*database.ImageRecord{
		record("1", "other", "2024-01-01T00:00:00Z"), // id collision
		record("2", "u1", "2024-01-01T00:00:00Z"),    // url collision
		record("3", "u3", "2024-01-01T00:00:00Z"),
		{URL: "u4"}, // no id
	})

	report, err := Import(ctx, store, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	want := ImportReport{Added: 1, Skipped: 2, Failed: 1}
	if report.Added != want.Added || report.Skipped != want.Skipped || report.Failed != want.Failed {
		t.Errorf("expected %+v, got %+v", want, report)
	}

	all, _ := store.GetAll(ctx)
	if len(all) != 2 {
		t.Errorf("expected 2 records, got %d", len(all))
	}
}

func TestImport_InvalidFormat(t *testing.T) {
	tests := []string{``, `{"id":"1"}`, `null`, `"text"`, `[{"id":`}
	for _, input := range tests {
		_, err := Import(context.Background(), newTestStore(t), strings.NewReader(input))
		if !errors.Is(err, ErrInvalidImport) {
			t.Errorf("Import(%q): expected ErrInvalidImport, got %v", input, err)
		}
	}
}

func TestImport_BadElementCounted(t *testing.T) {
	report, err := Import(context.Background(), newTestStore(t),
		strings.NewReader(`[{"id":"1","url":"u1"},{"id":7},{"id":"2","tags":["x"]}]`))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.Added != 2 || report.Failed != 1 || len(report.Errors) != 1 {
		t.Errorf("unexpected report %+v", report)
	}
}
