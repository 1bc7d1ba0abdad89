package core

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jo-hoe/fxshelf/internal/backend/database"
)

type urlThumbnails struct {
	calls atomic.Int32
}

func (f *urlThumbnails) FromURL(_ context.Context, imageURL string) (string, error) {
	f.calls.Add(1)
	if strings.Contains(imageURL, "broken") {
		return "", errors.New("HTTP error! status: 404")
	}
	return "data:image/jpeg;base64,dGh1bWI=", nil
}

func TestCoreService_RefreshThumbnails(t *testing.T) {
	svc := newTestCoreService(t)
	fake := &urlThumbnails{}
	svc.thumbnails = fake
	ctx := context.Background()

	missing := record("1", "u1", "2024-01-01T00:00:00Z")
	missing.ImageURL = "https://example.com/1.png"
	broken := record("2", "u2", "2024-01-02T00:00:00Z")
	broken.ImageURL = "https://example.com/broken.png"
	present := record("3", "u3", "2024-01-03T00:00:00Z")
	present.ImageURL = "https://example.com/3.png"
	present.ThumbnailURL = "data:image/jpeg;base64,b2xk"
	noImage := record("4", "u4", "2024-01-04T00:00:00Z")

	for _, r := range []*database.ImageRecord{missing, broken, present, noImage} {
		if err := svc.AddImage(ctx, r); err != nil {
			t.Fatalf("AddImage(%s) error = %v", r.ID, err)
		}
	}

	report, err := svc.RefreshThumbnails(ctx)
	if err != nil {
		t.Fatalf("RefreshThumbnails() error = %v", err)
	}
	if report.Checked != 2 || report.Refreshed != 1 || report.Failed != 1 {
		t.Errorf("unexpected report %+v", report)
	}
	if len(report.Errors) != 1 || !strings.HasPrefix(report.Errors[0], "2: ") {
		t.Errorf("unexpected errors %v", report.Errors)
	}
	if got := fake.calls.Load(); got != 2 {
		t.Errorf("expected 2 downloads, got %d", got)
	}

	refreshed, err := svc.Image(ctx, "1")
	if err != nil {
		t.Fatalf("Image() error = %v", err)
	}
	if refreshed.ThumbnailURL != "data:image/jpeg;base64,dGh1bWI=" {
		t.Errorf("expected refreshed thumbnail, got %q", refreshed.ThumbnailURL)
	}
	untouched, _ := svc.Image(ctx, "3")
	if untouched.ThumbnailURL != "data:image/jpeg;base64,b2xk" {
		t.Errorf("existing thumbnail was replaced: %q", untouched.ThumbnailURL)
	}
}

func TestCoreService_RefreshThumbnailsDisabled(t *testing.T) {
	svc := newTestCoreService(t)
	if _, err := svc.RefreshThumbnails(context.Background()); !errors.Is(err, ErrThumbnailsDisabled) {
		t.Errorf("expected ErrThumbnailsDisabled, got %v", err)
	}
}

func TestForEachLimit(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		workers int
	}{
		{"more items than workers", 10, 3},
		{"more workers than items", 2, 8},
		{"zero workers", 5, 0},
		{"no items", 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make([]atomic.Int32, tt.n)
			forEachLimit(context.Background(), tt.n, tt.workers, func(i int) {
				seen[i].Add(1)
			})
			for i := range seen {
				if got := seen[i].Load(); got != 1 {
					t.Errorf("item %d visited %d times", i, got)
				}
			}
		})
	}
}

func TestForEachLimit_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	forEachLimit(ctx, 100, 4, func(int) { calls.Add(1) })
	if calls.Load() != 0 {
		t.Errorf("expected no work after cancel, got %d calls", calls.Load())
	}
}
