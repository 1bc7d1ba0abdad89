package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jo-hoe/fxshelf/internal/backend/database"
	"github.com/jo-hoe/fxshelf/internal/backend/thumbnail"
	"github.com/jo-hoe/fxshelf/internal/query"
)

// EditRequest carries the user editable fields of a record.
type EditRequest struct {
	Title    string   `json:"title" validate:"required"`
	Prompt   string   `json:"prompt" validate:"required"`
	Comments string   `json:"comments"`
	Tags     []string `json:"tags"`
}

type CoreService struct {
	config     *ServiceConfig
	store      database.RecordStore
	ingestion  *IngestionService
	thumbnails ThumbnailSource
	now        func() time.Time
}

func NewCoreService(ctx context.Context, config *ServiceConfig) (*CoreService, error) {
	store, err := getDatabaseService(ctx, config)
	if err != nil {
		return nil, err
	}
	return NewCoreServiceWithStore(config, store)
}

// NewCoreServiceWithStore wires the service around an already initialized store.
func NewCoreServiceWithStore(config *ServiceConfig, store database.RecordStore) (*CoreService, error) {
	var thumbnails ThumbnailSource
	if !config.Thumbnail.Disabled {
		thumbnailer, err := thumbnail.NewThumbnailer(config.Thumbnail.MaxWidth, config.Thumbnail.MaxHeight, config.Thumbnail.Quality)
		if err != nil {
			return nil, fmt.Errorf("invalid thumbnail configuration: %w", err)
		}
		thumbnails = thumbnail.NewService(thumbnail.NewDownloader(config.Thumbnail.DownloadTimeout), thumbnailer)
	}

	return &CoreService{
		config:     config,
		store:      store,
		ingestion:  NewIngestionService(store, thumbnails, config.Source),
		thumbnails: thumbnails,
		now:        time.Now,
	}, nil
}

func getDatabaseService(ctx context.Context, config *ServiceConfig) (database.RecordStore, error) {
	store, err := database.NewDatabase(ctx, config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return store, nil
}

func (service *CoreService) Close() error {
	return service.store.Close()
}

func (service *CoreService) Store() database.RecordStore {
	return service.store
}

func (service *CoreService) Config() *ServiceConfig {
	return service.config
}

func (service *CoreService) Ingest(ctx context.Context, sourceURL string, scrape ScrapeResult) (IngestResult, error) {
	return service.ingestion.Ingest(ctx, sourceURL, scrape)
}

// Images returns every record, newest first.
func (service *CoreService) Images(ctx context.Context) ([]*database.ImageRecord, error) {
	records, err := service.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	query.SortByDateDesc(records)
	return records, nil
}

func (service *CoreService) Image(ctx context.Context, id string) (*database.ImageRecord, error) {
	record, found, err := service.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", database.ErrNotFound, id)
	}
	return record, nil
}

// AddImage stores record as is; only the id and url constraints apply.
func (service *CoreService) AddImage(ctx context.Context, record *database.ImageRecord) error {
	return service.store.Add(ctx, record)
}

// UpdateImage inserts or replaces record.
func (service *CoreService) UpdateImage(ctx context.Context, record *database.ImageRecord) error {
	return service.store.Update(ctx, record)
}

// Edit changes the user editable fields of an existing record and stamps lastEdited.
func (service *CoreService) Edit(ctx context.Context, id string, req EditRequest) (*database.ImageRecord, error) {
	title := strings.TrimSpace(req.Title)
	prompt := strings.TrimSpace(req.Prompt)
	if title == "" || prompt == "" {
		return nil, ErrInvalidEdit
	}

	existing, err := service.Image(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := existing.Clone()
	updated.Title = title
	updated.Prompt = prompt
	updated.Comments = strings.TrimSpace(req.Comments)
	updated.Tags = normalizeTags(req.Tags)
	updated.LastEdited = service.now().UTC().Format(dateLayout)

	if err := service.store.Update(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to update image: %w", err)
	}
	slog.Info("image edited", "id", id, "tags", len(updated.Tags))
	return updated, nil
}

func (service *CoreService) DeleteImage(ctx context.Context, id string) error {
	if err := service.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	slog.Info("image deleted", "id", id)
	return nil
}

func (service *CoreService) ClearImages(ctx context.Context) error {
	if err := service.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear images: %w", err)
	}
	slog.Info("all images cleared")
	return nil
}

// Search runs a free-text query. When text is empty the explicit tag selection
// filters instead.
func (service *CoreService) Search(ctx context.Context, text string, selectedTags []string) ([]*database.ImageRecord, error) {
	ws, err := service.WorkingSet(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) != "" {
		ws.Search(text)
	} else {
		ws.SelectTags(selectedTags)
	}
	return ws.Filtered, nil
}

// Tags returns the popular tag chips with selected highlighted.
func (service *CoreService) Tags(ctx context.Context, selected []string) ([]query.TagChip, error) {
	records, err := service.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return query.Highlight(query.PopularTags(records, service.config.PopularTags), selected), nil
}

// WorkingSet returns a freshly loaded working set.
func (service *CoreService) WorkingSet(ctx context.Context) (*WorkingSet, error) {
	ws := NewWorkingSet(service.config.PopularTags)
	if err := ws.Load(ctx, service.store); err != nil {
		return nil, err
	}
	return ws, nil
}

// Export writes every record, newest first, and returns the suggested file name.
func (service *CoreService) Export(ctx context.Context, w io.Writer) (string, error) {
	records, err := service.Images(ctx)
	if err != nil {
		return "", err
	}
	if err := Export(w, records); err != nil {
		return "", err
	}
	return ExportFileName(service.now()), nil
}

func (service *CoreService) Import(ctx context.Context, r io.Reader) (ImportReport, error) {
	return Import(ctx, service.store, r)
}

// normalizeTags trims tags and drops empty and repeated ones, keeping first-seen order.
func normalizeTags(tags []string) []string {
	var out []string
	for _, tag := range tags {
		if t := strings.TrimSpace(tag); t != "" && indexOf(out, t) < 0 {
			out = append(out, t)
		}
	}
	return out
}
