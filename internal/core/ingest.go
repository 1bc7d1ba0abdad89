package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jo-hoe/fxshelf/internal/backend/database"
)

const (
	titleWordCount  = 7
	timestampLayout = "01/02/2006, 03:04:05 PM"
	dateLayout      = "2006-01-02T15:04:05.000Z07:00"
)

var (
	imageIDPattern      = regexp.MustCompile(`/image-fx/(\w+)`)
	imageExtensionRegex = regexp.MustCompile(`(?i)\.(jpeg|jpg|png|gif|webp)($|\?)`)
)

// ScrapeResult is what the page scraper reports for the current source page.
type ScrapeResult struct {
	Status       string `json:"status"`
	Prompt       string `json:"prompt"`
	Seed         string `json:"seed"`
	ImageURL     string `json:"imageUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Error        string `json:"error"`
}

type Outcome int

const (
	OutcomeAdded Outcome = iota
	OutcomeAddedWithWarnings
	OutcomeDuplicate
	OutcomeInvalid
	OutcomeStorageError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdded:
		return "added"
	case OutcomeAddedWithWarnings:
		return "added_with_warnings"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeStorageError:
		return "storage_error"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

type IngestResult struct {
	Outcome  Outcome
	Record   *database.ImageRecord
	Warnings []string
	Err      error
}

// IsError reports whether the notification for this result is rendered as an error.
func (r IngestResult) IsError() bool {
	return r.Outcome != OutcomeAdded && r.Outcome != OutcomeAddedWithWarnings
}

// Message is the user facing notification text for the result.
func (r IngestResult) Message() string {
	switch r.Outcome {
	case OutcomeAdded:
		return "Image added successfully!"
	case OutcomeAddedWithWarnings:
		return "Image added successfully! (with warnings)"
	case OutcomeDuplicate:
		return "This image is already saved"
	}
	if r.Err != nil {
		return "Error: " + r.Err.Error()
	}
	return "Error: unknown failure"
}

// ThumbnailSource produces a thumbnail for an image url. On failure it may still
// return a fallback thumbnail.
type ThumbnailSource interface {
	FromURL(ctx context.Context, imageURL string) (string, error)
}

type IngestionService struct {
	store      database.RecordStore
	thumbnails ThumbnailSource
	source     Source
	now        func() time.Time
	newID      func() string
}

// NewIngestionService creates the ingestion pipeline. thumbnails may be nil.
func NewIngestionService(store database.RecordStore, thumbnails ThumbnailSource, source Source) *IngestionService {
	return &IngestionService{
		store:      store,
		thumbnails: thumbnails,
		source:     source,
		now:        time.Now,
		newID:      database.GenerateID,
	}
}

// Ingest validates a scrape of sourceURL and stores it as a new record. The returned
// error is nil only for the added outcomes; the result is always populated.
func (s *IngestionService) Ingest(ctx context.Context, sourceURL string, scrape ScrapeResult) (IngestResult, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	result := s.ingest(ctx, sourceURL, scrape)
	switch result.Outcome {
	case OutcomeAdded, OutcomeAddedWithWarnings:
		slog.Info("image ingested", "id", result.Record.ID, "url", sourceURL, "warnings", len(result.Warnings))
	case OutcomeDuplicate:
		slog.Info("image already saved", "url", sourceURL)
	default:
		slog.Error("image ingestion failed", "url", sourceURL, "outcome", result.Outcome.String(), "error", result.Err)
	}
	return result, result.Err
}

func (s *IngestionService) ingest(ctx context.Context, sourceURL string, scrape ScrapeResult) IngestResult {
	if err := s.checkSource(sourceURL); err != nil {
		return IngestResult{Outcome: OutcomeInvalid, Err: err}
	}
	if err := validateScrape(scrape); err != nil {
		return IngestResult{Outcome: OutcomeInvalid, Err: err}
	}

	// cheap pre-check; the store's url constraint decides races
	if _, found, err := s.store.FindByURL(ctx, sourceURL); err != nil {
		return IngestResult{Outcome: OutcomeStorageError, Err: err}
	} else if found {
		return IngestResult{Outcome: OutcomeDuplicate, Err: fmt.Errorf("%w: %s", database.ErrDuplicateSource, sourceURL)}
	}

	var warnings []string
	errorMessage := strings.TrimSpace(scrape.Error)
	if errorMessage != "" {
		warnings = append(warnings, errorMessage)
	}

	imageURL := ValidImageURL(scrape.ImageURL)
	thumbnailURL := ValidImageURL(scrape.ThumbnailURL)
	if thumbnailURL == "" && imageURL != "" && s.thumbnails != nil {
		thumb, err := s.thumbnails.FromURL(ctx, imageURL)
		thumbnailURL = thumb
		if err != nil {
			warnings = append(warnings, err.Error())
			errorMessage = joinMessages(errorMessage, err.Error())
		}
	}

	now := s.now()
	record := &database.ImageRecord{
		ID:           s.newID(),
		Title:        Title(scrape.Prompt),
		URL:          sourceURL,
		ImageID:      ImageIDFromURL(sourceURL),
		Prompt:       scrape.Prompt,
		Seed:         scrape.Seed,
		ImageURL:     imageURL,
		ThumbnailURL: thumbnailURL,
		Date:         now.UTC().Format(dateLayout),
		Timestamp:    now.Local().Format(timestampLayout),
		ErrorMessage: errorMessage,
	}

	if err := s.store.Add(ctx, record); err != nil {
		if errors.Is(err, database.ErrDuplicateSource) {
			return IngestResult{Outcome: OutcomeDuplicate, Err: err}
		}
		return IngestResult{Outcome: OutcomeStorageError, Err: fmt.Errorf("failed to add image: %w", err)}
	}

	outcome := OutcomeAdded
	if len(warnings) > 0 {
		outcome = OutcomeAddedWithWarnings
	}
	return IngestResult{Outcome: outcome, Record: record, Warnings: warnings}
}

func (s *IngestionService) checkSource(sourceURL string) error {
	parsed, err := url.Parse(sourceURL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("%w: %q", ErrUnsupportedSource, sourceURL)
	}
	if !strings.EqualFold(parsed.Hostname(), s.source.Host) || !strings.HasPrefix(parsed.Path, s.source.Path) {
		return fmt.Errorf("%w: %s is not a %s%s page", ErrUnsupportedSource, sourceURL, s.source.Host, s.source.Path)
	}
	return nil
}

func validateScrape(scrape ScrapeResult) error {
	if scrape.Status == "error" {
		if scrape.Error != "" {
			return fmt.Errorf("%w: %s", ErrMissingRequiredField, scrape.Error)
		}
		return fmt.Errorf("%w: failed to get image info", ErrMissingRequiredField)
	}
	var missing []string
	if strings.TrimSpace(scrape.Prompt) == "" {
		missing = append(missing, "prompt")
	}
	if strings.TrimSpace(scrape.Seed) == "" {
		missing = append(missing, "seed")
	}
	if len(missing) == 0 {
		return nil
	}
	if scrape.Error != "" {
		return fmt.Errorf("%w: %s (%s)", ErrMissingRequiredField, strings.Join(missing, ", "), scrape.Error)
	}
	return fmt.Errorf("%w: %s", ErrMissingRequiredField, strings.Join(missing, ", "))
}

// IsValidImageURL reports whether u is an embedded image, has an image file
// extension, or points at the image-fx content endpoints.
func IsValidImageURL(u string) bool {
	if u == "" {
		return false
	}
	if strings.HasPrefix(u, "data:image/") {
		return true
	}
	if imageExtensionRegex.MatchString(u) {
		return true
	}
	return strings.Contains(u, "image-fx") &&
		(strings.Contains(u, "/content/") || strings.Contains(u, "/generate/"))
}

// ValidImageURL returns u when it passes IsValidImageURL and "" otherwise.
func ValidImageURL(u string) string {
	if IsValidImageURL(u) {
		return u
	}
	return ""
}

// Title returns the first seven whitespace separated words of prompt.
func Title(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) > titleWordCount {
		words = words[:titleWordCount]
	}
	return strings.Join(words, " ")
}

func ImageIDFromURL(sourceURL string) string {
	if m := imageIDPattern.FindStringSubmatch(sourceURL); m != nil {
		return m[1]
	}
	return ""
}

func joinMessages(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
