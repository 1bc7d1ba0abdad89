package query

import (
	"reflect"
	"testing"

	"github.com/jo-hoe/fxshelf/internal/backend/database"
)

func rec(id, date, prompt string, tags ...string) *database.ImageRecord {
	return &database.ImageRecord{
		ID:     id,
		Title:  prompt,
		Prompt: prompt,
		Seed:   "seed-" + id,
		Date:   date,
		Tags:   tags,
	}
}

func ids(records []*database.ImageRecord) []string {
	out := []string{}
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Query
	}{
		{name: "empty", text: "   ", want: Query{Term: ""}},
		{name: "plain text is lowercased", text: "  Sunset Beach ", want: Query{Term: "sunset beach"}},
		{name: "single hashtag", text: "#a", want: Query{Tags: []string{"a"}}},
		{name: "hashtag and text", text: "#a sunset", want: Query{Tags: []string{"a"}, Term: "sunset"}},
		{name: "hyphenated tags", text: "#sci-fi #neo_noir City", want: Query{Tags: []string{"sci-fi", "neo_noir"}, Term: "city"}},
		{name: "repeated hashtag", text: "#a #b #a", want: Query{Tags: []string{"a", "b"}}},
		{name: "lone hash is text", text: "# x", want: Query{Term: "# x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseQuery(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseQuery(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestFilterByTags_AndSemantics(t *testing.T) {
	first := rec("1", "2024-01-01T00:00:00Z", "p", "a", "b")
	second := rec("2", "2024-01-02T00:00:00Z", "p", "a")
	records := []*database.ImageRecord{first, second}

	got := FilterByTags(records, []string{"a", "b"})
	if !reflect.DeepEqual(ids(got), []string{"1"}) {
		t.Fatalf("expected only record 1, got %v", ids(got))
	}

	got = FilterByTags(records, []string{"a"})
	if !reflect.DeepEqual(ids(got), []string{"2", "1"}) {
		t.Fatalf("expected [2 1], got %v", ids(got))
	}

	got = FilterByTags(records, nil)
	if len(got) != 2 {
		t.Fatalf("expected all records without a filter, got %v", ids(got))
	}
}

func TestHasAllTags_SubsetProperty(t *testing.T) {
	r := rec("1", "2024-01-01T00:00:00Z", "p", " a ", "b", "c")
	untagged := rec("2", "2024-01-01T00:00:00Z", "p")

	tagSets := [][]string{
		{}, {"a"}, {"b"}, {"a", "b"}, {"a", "b", "c"}, {"d"}, {"a", "d"}, {"A"},
	}
	have := map[string]bool{"a": true, "b": true, "c": true}
	for _, set := range tagSets {
		subset := true
		for _, tag := range set {
			if !have[tag] {
				subset = false
			}
		}
		if got := HasAllTags(r, set); got != subset {
			t.Errorf("HasAllTags(%v) = %v, want %v", set, got, subset)
		}
		if got := HasAllTags(untagged, set); got != (len(set) == 0) {
			t.Errorf("untagged HasAllTags(%v) = %v", set, got)
		}
	}
}

func TestSearch_HashtagAndTerm(t *testing.T) {
	tagged := rec("1", "2024-01-01T00:00:00Z", "A calm sunset over water", "a")
	untagged := rec("2", "2024-01-02T00:00:00Z", "Sunset in the desert")
	other := rec("3", "2024-01-03T00:00:00Z", "forest at night", "a")

	got := Search([]*database.ImageRecord{tagged, untagged, other}, "#a sunset")
	if !reflect.DeepEqual(ids(got), []string{"1"}) {
		t.Fatalf("expected only the tagged sunset record, got %v", ids(got))
	}
}

func TestSearch_PlainTermMatchesPromptSeedTitle(t *testing.T) {
	byPrompt := rec("1", "2024-01-01T00:00:00Z", "Mountain lake")
	bySeed := rec("2", "2024-01-02T00:00:00Z", "city")
	bySeed.Seed = "LAKE-123"
	byTitle := rec("3", "2024-01-03T00:00:00Z", "river")
	byTitle.Title = "Lakeside"
	none := rec("4", "2024-01-04T00:00:00Z", "desert")

	got := Search([]*database.ImageRecord{byPrompt, bySeed, byTitle, none}, "LAKE")
	if !reflect.DeepEqual(ids(got), []string{"3", "2", "1"}) {
		t.Fatalf("expected [3 2 1], got %v", ids(got))
	}
}

func TestSearch_EmptyReturnsAllSorted(t *testing.T) {
	records := []*database.ImageRecord{
		rec("old", "2023-05-01T00:00:00Z", "p"),
		rec("new", "2024-05-01T00:00:00Z", "p"),
	}
	got := Search(records, "")
	if !reflect.DeepEqual(ids(got), []string{"new", "old"}) {
		t.Fatalf("expected [new old], got %v", ids(got))
	}
	if records[0].ID != "old" {
		t.Fatalf("Search must not reorder its input")
	}
}

func TestSortByDateDesc_StableAndMalformedLast(t *testing.T) {
	records := []*database.ImageRecord{
		rec("bad1", "not a date", "p"),
		rec("tie1", "2024-01-01T00:00:00Z", "p"),
		rec("newest", "2024-03-01T10:00:00.123Z", "p"),
		rec("tie2", "2024-01-01T00:00:00Z", "p"),
		rec("bad2", "", "p"),
		rec("tie3", "2024-01-01T00:00:00Z", "p"),
	}
	SortByDateDesc(records)

	want := []string{"newest", "tie1", "tie2", "tie3", "bad1", "bad2"}
	if !reflect.DeepEqual(ids(records), want) {
		t.Fatalf("expected %v, got %v", want, ids(records))
	}
}
