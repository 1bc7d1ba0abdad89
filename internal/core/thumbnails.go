package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jo-hoe/fxshelf/internal/backend/database"
)

// RefreshReport summarizes a thumbnail refresh run.
type RefreshReport struct {
	Checked   int      `json:"checked"`
	Refreshed int      `json:"refreshed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// RefreshThumbnails generates thumbnails for records saved without one, for
// example after the image host was unreachable during ingestion. Records that
// gained a thumbnail in the meantime are left alone.
func (service *CoreService) RefreshThumbnails(ctx context.Context) (RefreshReport, error) {
	report := RefreshReport{}
	if service.thumbnails == nil {
		return report, ErrThumbnailsDisabled
	}

	records, err := service.store.GetAll(ctx)
	if err != nil {
		return report, err
	}
	var pending []*database.ImageRecord
	for _, r := range records {
		if r.ThumbnailURL == "" && IsValidImageURL(r.ImageURL) {
			pending = append(pending, r)
		}
	}
	report.Checked = len(pending)
	if len(pending) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	fail := func(r *database.ImageRecord, err error) {
		mu.Lock()
		defer mu.Unlock()
		report.Failed++
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", r.ID, err))
	}

	forEachLimit(ctx, len(pending), service.config.Thumbnail.Workers, func(i int) {
		r := pending[i]
		thumb, err := service.thumbnails.FromURL(ctx, r.ImageURL)
		if err != nil || thumb == "" {
			if err == nil {
				err = fmt.Errorf("no thumbnail produced")
			}
			fail(r, err)
			return
		}

		current, found, err := service.store.GetByID(ctx, r.ID)
		if err != nil {
			fail(r, err)
			return
		}
		if !found || current.ThumbnailURL != "" {
			return
		}
		updated := current.Clone()
		updated.ThumbnailURL = thumb
		if err := service.store.Update(ctx, updated); err != nil {
			fail(r, err)
			return
		}
		mu.Lock()
		report.Refreshed++
		mu.Unlock()
	})

	if err := ctx.Err(); err != nil {
		return report, err
	}
	slog.Info("thumbnails refreshed", "checked", report.Checked, "refreshed", report.Refreshed, "failed", report.Failed)
	return report, nil
}
