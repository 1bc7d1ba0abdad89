package core

import (
	"context"
	"testing"
	"time"

	"github.com/jo-hoe/fxshelf/internal/backend/database"
)

const testSourceURL = "https://labs.google/fx/tools/image-fx/abc123"

func newTestStore(t *testing.T) database.RecordStore {
	t.Helper()
	store, err := database.NewDatabase(context.Background(), "sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestCoreService(t *testing.T) *CoreService {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Database.ConnectionString = ":memory:"
	cfg.Thumbnail.Disabled = true
	svc, err := NewCoreServiceWithStore(cfg, newTestStore(t))
	if err != nil {
		t.Fatalf("failed to create core service: %v", err)
	}
	svc.now = fixedClock(time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC))
	return svc
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func okScrape() ScrapeResult {
	return ScrapeResult{
		Status:   "ok",
		Prompt:   "a quiet harbor at sunset with small fishing boats and gulls",
		Seed:     "42",
		ImageURL: "https://labs.google/fx/api/image-fx/content/abc123.png",
	}
}

func record(id, url, date string, tags ...string) *database.ImageRecord {
	return &database.ImageRecord{
		ID:     id,
		URL:    url,
		Prompt: "prompt " + id,
		Seed:   "seed-" + id,
		Title:  "title " + id,
		Date:   date,
		Tags:   tags,
	}
}

func recordIDs(records []*database.ImageRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}
