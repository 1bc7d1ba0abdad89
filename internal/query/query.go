// Package query filters and ranks the in-memory working set of image records.
package query

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jo-hoe/fxshelf/internal/backend/database"
)

// hashtagPattern matches "#" followed by word characters or hyphens.
var hashtagPattern = regexp.MustCompile(`#([\w-]+)`)

// Query is a parsed search string.
type Query struct {
	Tags []string // AND filter, in order of first appearance
	Term string   // lowercased plain text, may be empty
}

// ParseQuery extracts hashtag tokens from text. The remaining text, trimmed and
// lowercased, becomes the plain term.
func ParseQuery(text string) Query {
	text = strings.TrimSpace(text)

	var tags []string
	for _, match := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		if !contains(tags, match[1]) {
			tags = append(tags, match[1])
		}
	}

	term := strings.ToLower(strings.TrimSpace(hashtagPattern.ReplaceAllString(text, "")))
	return Query{Tags: tags, Term: term}
}

// IsEmpty reports whether the query lets every record through.
func (q Query) IsEmpty() bool {
	return len(q.Tags) == 0 && q.Term == ""
}

// Search applies a free-text query: hashtags narrow by tag, the rest by substring.
// The result is a new slice sorted newest first.
func Search(records []*database.ImageRecord, text string) []*database.ImageRecord {
	return Apply(records, ParseQuery(text))
}

// Apply filters records by q and sorts the result newest first.
func Apply(records []*database.ImageRecord, q Query) []*database.ImageRecord {
	result := make([]*database.ImageRecord, 0, len(records))
	for _, r := range records {
		if HasAllTags(r, q.Tags) && matchesTerm(r, q.Term) {
			result = append(result, r)
		}
	}
	SortByDateDesc(result)
	return result
}

// FilterByTags is the tag-toggle path: it ignores any search text.
func FilterByTags(records []*database.ImageRecord, selected []string) []*database.ImageRecord {
	return Apply(records, Query{Tags: selected})
}

// HasAllTags reports whether every tag in want appears among the record's trimmed
// tags. A record without tags never matches a non-empty filter.
func HasAllTags(r *database.ImageRecord, want []string) bool {
	if len(want) == 0 {
		return true
	}
	if len(r.Tags) == 0 {
		return false
	}
	for _, tag := range want {
		found := false
		for _, have := range r.Tags {
			if strings.TrimSpace(have) == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func matchesTerm(r *database.ImageRecord, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Prompt), term) ||
		strings.Contains(strings.ToLower(r.Seed), term) ||
		strings.Contains(strings.ToLower(r.Title), term)
}

// SortByDateDesc orders records newest first. Equal dates keep their input order;
// records whose date does not parse go last.
func SortByDateDesc(records []*database.ImageRecord) {
	type key struct {
		unixMilli int64
		valid     bool
	}
	keys := make(map[*database.ImageRecord]key, len(records))
	for _, r := range records {
		t, ok := r.ParsedDate()
		keys[r] = key{unixMilli: t.UnixMilli(), valid: ok}
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := keys[records[i]], keys[records[j]]
		if a.valid != b.valid {
			return a.valid
		}
		return a.valid && a.unixMilli > b.unixMilli
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
