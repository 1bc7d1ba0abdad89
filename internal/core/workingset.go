package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jo-hoe/fxshelf/internal/backend/database"
	"github.com/jo-hoe/fxshelf/internal/query"
)

// WorkingSet is the in-memory view a browsing surface works on. It is rebuilt
// wholesale from the store and is not safe for concurrent use.
type WorkingSet struct {
	All          []*database.ImageRecord
	Filtered     []*database.ImageRecord
	SelectedTags []string
	SearchText   string

	popularTags int
}

func NewWorkingSet(popularTags int) *WorkingSet {
	if popularTags <= 0 {
		popularTags = query.DefaultPopularTags
	}
	return &WorkingSet{popularTags: popularTags}
}

// Load replaces the working set with the current store content and reapplies
// the active search or tag selection.
func (w *WorkingSet) Load(ctx context.Context, store database.RecordStore) error {
	records, err := store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load images: %w", err)
	}
	w.All = records
	w.refresh()
	return nil
}

// Search applies a free-text query. Hashtags in text replace the selected tags.
func (w *WorkingSet) Search(text string) {
	w.SearchText = text
	q := query.ParseQuery(text)
	w.SelectedTags = q.Tags
	w.Filtered = query.Apply(w.All, q)
}

// ToggleTag adds or removes tag from the selection and filters by the selection
// alone. The search text is cleared.
func (w *WorkingSet) ToggleTag(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}
	w.SearchText = ""
	if i := indexOf(w.SelectedTags, tag); i >= 0 {
		w.SelectedTags = append(w.SelectedTags[:i:i], w.SelectedTags[i+1:]...)
	} else {
		w.SelectedTags = append(w.SelectedTags, tag)
	}
	w.Filtered = query.FilterByTags(w.All, w.SelectedTags)
}

// SelectTags replaces the selection and filters by it. The search text is cleared.
func (w *WorkingSet) SelectTags(tags []string) {
	w.SearchText = ""
	w.SelectedTags = nil
	for _, tag := range tags {
		if t := strings.TrimSpace(tag); t != "" && indexOf(w.SelectedTags, t) < 0 {
			w.SelectedTags = append(w.SelectedTags, t)
		}
	}
	w.Filtered = query.FilterByTags(w.All, w.SelectedTags)
}

// ClickTag adds or removes "#tag" in the search text and searches again.
func (w *WorkingSet) ClickTag(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}
	token := regexp.MustCompile(`(^|\s)#` + regexp.QuoteMeta(tag) + `(\s|$)`)
	text := w.SearchText
	if token.MatchString(text) {
		text = token.ReplaceAllString(text, " ")
	} else {
		text = strings.TrimSpace(text) + " #" + tag
	}
	w.Search(strings.Join(strings.Fields(text), " "))
}

// Remove drops the record from both views.
func (w *WorkingSet) Remove(id string) {
	w.All = removeByID(w.All, id)
	w.Filtered = removeByID(w.Filtered, id)
}

// Replace swaps in an edited record, or appends it when it is new, and refreshes
// the filtered view.
func (w *WorkingSet) Replace(record *database.ImageRecord) {
	replaced := false
	for i, r := range w.All {
		if r.ID == record.ID {
			w.All[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		w.All = append(w.All, record)
	}
	w.refresh()
}

// Reset empties the working set after a clear.
func (w *WorkingSet) Reset() {
	w.All = nil
	w.Filtered = nil
	w.SelectedTags = nil
	w.SearchText = ""
}

func (w *WorkingSet) PopularTags() []query.TagCount {
	return query.PopularTags(w.All, w.popularTags)
}

// Chips returns the popular tags with the current selection highlighted.
func (w *WorkingSet) Chips() []query.TagChip {
	return query.Highlight(w.PopularTags(), w.SelectedTags)
}

func (w *WorkingSet) refresh() {
	if w.SearchText != "" {
		w.Search(w.SearchText)
		return
	}
	w.Filtered = query.FilterByTags(w.All, w.SelectedTags)
}

func removeByID(records []*database.ImageRecord, id string) []*database.ImageRecord {
	out := records[:0:0]
	for _, r := range records {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
