package query

import (
	"sort"
	"strings"

	"github.com/jo-hoe/fxshelf/internal/backend/database"
)

// DefaultPopularTags is how many tags the summary shows.
const DefaultPopularTags = 10

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagChip is a summary entry plus its highlight state.
type TagChip struct {
	TagCount
	Selected bool `json:"selected"`
}

// PopularTags counts trimmed, non-empty tags (case-sensitive) across records and
// returns the n most frequent. Ties keep first-encountered order.
func PopularTags(records []*database.ImageRecord, n int) []TagCount {
	index := map[string]int{}
	var counts []TagCount
	for _, r := range records {
		for _, tag := range r.Tags {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if i, ok := index[tag]; ok {
				counts[i].Count++
				continue
			}
			index[tag] = len(counts)
			counts = append(counts, TagCount{Tag: tag, Count: 1})
		}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if n >= 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// Highlight marks the summary entries that are currently selected.
func Highlight(summary []TagCount, selected []string) []TagChip {
	chips := make([]TagChip, 0, len(summary))
	for _, tc := range summary {
		chips = append(chips, TagChip{TagCount: tc, Selected: contains(selected, tc.Tag)})
	}
	return chips
}
