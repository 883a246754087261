package smartfolder

import (
	"testing"
	"time"

	"videopipe/internal/catalog"
)

func ptr(i int64) *int64 { return &i }

func TestCriteria_EmptyMatchesAll(t *testing.T) {
	c := Criteria{}
	v := &catalog.Video{Title: "Anything", Duration: 42, DateAdded: time.Now()}
	if !c.Matches(v) {
		t.Error("empty criteria should match any video")
	}
}

func TestCriteria_NameFiltersAnyMatch(t *testing.T) {
	c := Criteria{NameFilters: []string{"wedding", "birthday"}}
	if !c.Matches(&catalog.Video{Title: "Summer Wedding 2024"}) {
		t.Error("expected case-insensitive substring match")
	}
	if c.Matches(&catalog.Video{Title: "Graduation"}) {
		t.Error("expected no match for unrelated title")
	}
}

func TestCriteria_AllPresentFieldsMustMatch(t *testing.T) {
	c := Criteria{NameFilters: []string{"clip"}, MinDuration: 60}
	if c.Matches(&catalog.Video{Title: "clip one", Duration: 30}) {
		t.Error("expected no match: duration field fails even though name matches")
	}
	if !c.Matches(&catalog.Video{Title: "clip one", Duration: 90}) {
		t.Error("expected match: both fields satisfied")
	}
}

func TestCriteria_SizeRange(t *testing.T) {
	c := Criteria{MinSize: 1_000_000_000}
	if c.Matches(&catalog.Video{FileSize: ptr(500_000_000)}) {
		t.Error("expected no match below min size")
	}
	if !c.Matches(&catalog.Video{FileSize: ptr(2_000_000_000)}) {
		t.Error("expected match above min size")
	}
	if c.Matches(&catalog.Video{FileSize: nil}) {
		t.Error("expected no match when size is unknown and a size field is set")
	}
}

func TestCriteria_DateRange(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	c := Criteria{StartDate: start, EndDate: end}

	if !c.Matches(&catalog.Video{DateAdded: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}) {
		t.Error("expected match inside date range")
	}
	if c.Matches(&catalog.Video{DateAdded: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)}) {
		t.Error("expected no match before start date")
	}
	if c.Matches(&catalog.Video{DateAdded: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)}) {
		t.Error("expected no match after end date")
	}
}

func TestCacheKey_PipeJoinedKeyValue(t *testing.T) {
	c := Criteria{NameFilters: []string{"foo"}, MinSize: 1048576}
	got := CacheKey(c)
	want := "name:foo|minSize:1048576"
	if got != want {
		t.Errorf("CacheKey = %q, want %q", got, want)
	}
}

func TestCacheKey_EmptyCriteria(t *testing.T) {
	if got := CacheKey(Criteria{}); got != "" {
		t.Errorf("CacheKey(empty) = %q, want empty string", got)
	}
}

func TestFind_SortsByPathWithoutDateRange(t *testing.T) {
	videos := []*catalog.Video{
		{URL: "/lib/b.mp4", Title: "clip"},
		{URL: "/lib/a.mp4", Title: "clip"},
	}
	urls := Find(Criteria{NameFilters: []string{"clip"}}, videos)
	if len(urls) != 2 || urls[0] != "/lib/a.mp4" || urls[1] != "/lib/b.mp4" {
		t.Errorf("urls = %v, want sorted by path", urls)
	}
}

func TestFind_SortsByDateAscendingWhenRangeGiven(t *testing.T) {
	videos := []*catalog.Video{
		{URL: "/lib/b.mp4", DateAdded: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{URL: "/lib/a.mp4", DateAdded: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	c := Criteria{StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	urls := Find(c, videos)
	if len(urls) != 2 || urls[0] != "/lib/a.mp4" || urls[1] != "/lib/b.mp4" {
		t.Errorf("urls = %v, want sorted by date ascending", urls)
	}
}

func TestEvaluator_Refresh_ComputesAddedAndRemoved(t *testing.T) {
	e := New()
	c := Criteria{MinSize: 1_000_000_000}

	first := []*catalog.Video{
		{URL: "/lib/a.mp4", FileSize: ptr(2_000_000_000)},
		{URL: "/lib/b.mp4", FileSize: ptr(2_000_000_000)},
	}
	added, removed, err := e.Refresh(c, first)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(added) != 2 || len(removed) != 0 {
		t.Fatalf("first refresh: added=%v removed=%v", added, removed)
	}

	second := []*catalog.Video{
		{URL: "/lib/a.mp4", FileSize: ptr(2_000_000_000)},
		{URL: "/lib/c.mp4", FileSize: ptr(3_000_000_000)},
	}
	added, removed, err = e.Refresh(c, second)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(added) != 1 || added[0] != "/lib/c.mp4" {
		t.Errorf("added = %v, want [/lib/c.mp4]", added)
	}
	if len(removed) != 1 || removed[0] != "/lib/b.mp4" {
		t.Errorf("removed = %v, want [/lib/b.mp4]", removed)
	}
}

func TestEvaluator_Refresh_NilCatalogIsError(t *testing.T) {
	e := New()
	if _, _, err := e.Refresh(Criteria{}, nil); err == nil {
		t.Error("expected error for nil catalog video set")
	}
}
