package database

import "time"

// ImageRecord is one saved image entry. JSON names match the export format.
type ImageRecord struct {
	ID           string   `json:"id" db:"id"`
	Title        string   `json:"title" db:"title"`
	URL          string   `json:"url" db:"url"` // source page, at most one record per url
	ImageID      string   `json:"imageId" db:"image_id"`
	Prompt       string   `json:"prompt" db:"prompt"`
	Seed         string   `json:"seed" db:"seed"`
	ImageURL     string   `json:"imageUrl" db:"image_url"`
	ThumbnailURL string   `json:"thumbnailUrl" db:"thumbnail_url"` // usually a data URL
	Date         string   `json:"date" db:"date"`                  // ISO-8601, immutable
	Timestamp    string   `json:"timestamp" db:"timestamp"`
	ErrorMessage string   `json:"errorMessage" db:"error_message"`
	Tags         []string `json:"tags,omitempty" db:"tags"`
	Comments     string   `json:"comments,omitempty" db:"comments"`
	LastEdited   string   `json:"lastEdited,omitempty" db:"last_edited"`
}

// ParsedDate returns the record date and whether it could be parsed.
func (r *ImageRecord) ParsedDate() (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, r.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Clone returns a deep copy so callers can mutate tags without touching the original.
func (r *ImageRecord) Clone() *ImageRecord {
	c := *r
	if r.Tags != nil {
		c.Tags = append([]string(nil), r.Tags...)
	}
	return &c
}
