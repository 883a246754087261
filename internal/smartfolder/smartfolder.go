// Package smartfolder implements the Smart-Folder Evaluator (spec §4.8): a
// predicate walk over the catalog, result caching keyed by a canonical
// string form of the criteria, and added/removed diffing between refreshes.
package smartfolder

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"videopipe/internal/catalog"
	"videopipe/internal/errs"
	"videopipe/internal/metrics"
)

// Criteria mirrors SmartCriteria (spec §3). A video matches iff every
// present (non-zero) field is satisfied; an empty Criteria matches all.
type Criteria struct {
	NameFilters  []string // case-insensitive substrings, ANY-match
	StartDate    time.Time
	EndDate      time.Time
	MinDuration  float64
	MaxDuration  float64
	MinSize      int64
	MaxSize      int64
	Keywords     []string
	PathPatterns []string
}

// Matches reports whether v satisfies every present field of c (spec §4.2
// invariant: "For all criteria C with no fields set and any Video V:
// C.matches(V) == true").
func (c Criteria) Matches(v *catalog.Video) bool {
	if len(c.NameFilters) > 0 && !anyMatch(c.NameFilters, v.Title) {
		return false
	}
	if !c.StartDate.IsZero() && v.DateAdded.Before(c.StartDate) {
		return false
	}
	if !c.EndDate.IsZero() && v.DateAdded.After(c.EndDate) {
		return false
	}
	if c.MinDuration > 0 && v.Duration < c.MinDuration {
		return false
	}
	if c.MaxDuration > 0 && v.Duration > c.MaxDuration {
		return false
	}
	if c.MinSize > 0 && (v.FileSize == nil || *v.FileSize < c.MinSize) {
		return false
	}
	if c.MaxSize > 0 && (v.FileSize == nil || *v.FileSize > c.MaxSize) {
		return false
	}
	if len(c.Keywords) > 0 {
		haystack := v.Title + " " + strings.Join(mapValues(v.CustomMetadata), " ")
		if !anyMatch(c.Keywords, haystack) {
			return false
		}
	}
	if len(c.PathPatterns) > 0 && !anyMatch(c.PathPatterns, v.URL) {
		return false
	}
	return true
}

func anyMatch(substrings []string, haystack string) bool {
	lower := strings.ToLower(haystack)
	for _, s := range substrings {
		if strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func mapValues(m map[string]string) []string {
	values := make([]string, 0, len(m))
	for _, v := range m {
		values = append(values, v)
	}
	return values
}

// CacheKey returns the canonical pipe-joined "key:value" string form of c,
// used both as the smart-folder result cache key and for cache-key equality
// across refreshes (spec §6 "Smart-folder criteria canonical form").
func CacheKey(c Criteria) string {
	var parts []string
	if len(c.NameFilters) > 0 {
		parts = append(parts, "name:"+strings.Join(c.NameFilters, ","))
	}
	if !c.StartDate.IsZero() {
		parts = append(parts, "startDate:"+c.StartDate.Format(time.RFC3339))
	}
	if !c.EndDate.IsZero() {
		parts = append(parts, "endDate:"+c.EndDate.Format(time.RFC3339))
	}
	if c.MinDuration > 0 {
		parts = append(parts, "minDuration:"+strconv.FormatFloat(c.MinDuration, 'f', -1, 64))
	}
	if c.MaxDuration > 0 {
		parts = append(parts, "maxDuration:"+strconv.FormatFloat(c.MaxDuration, 'f', -1, 64))
	}
	if c.MinSize > 0 {
		parts = append(parts, "minSize:"+strconv.FormatInt(c.MinSize, 10))
	}
	if c.MaxSize > 0 {
		parts = append(parts, "maxSize:"+strconv.FormatInt(c.MaxSize, 10))
	}
	if len(c.Keywords) > 0 {
		parts = append(parts, "keywords:"+strings.Join(c.Keywords, ","))
	}
	if len(c.PathPatterns) > 0 {
		parts = append(parts, "pathPatterns:"+strings.Join(c.PathPatterns, ","))
	}
	return strings.Join(parts, "|")
}

// Evaluator finds videos matching smart-folder criteria and caches results
// keyed by the criteria's canonical form, to compute added/removed diffs on
// refresh (spec §4.8).
type Evaluator struct {
	mu    sync.Mutex
	cache map[string]map[string]bool // cache key -> set of matched URLs
}

// New returns an empty Evaluator.
func New() *Evaluator {
	return &Evaluator{cache: make(map[string]map[string]bool)}
}

// Find runs c's predicate over catalogVideos and returns matching URLs,
// sorted by creation date ascending when a date range is given, else by
// path (spec §4.8).
func Find(c Criteria, catalogVideos []*catalog.Video) []string {
	var matched []*catalog.Video
	for _, v := range catalogVideos {
		if c.Matches(v) {
			matched = append(matched, v)
		}
	}

	if !c.StartDate.IsZero() || !c.EndDate.IsZero() {
		sort.Slice(matched, func(i, j int) bool { return matched[i].DateAdded.Before(matched[j].DateAdded) })
	} else {
		sort.Slice(matched, func(i, j int) bool { return matched[i].URL < matched[j].URL })
	}

	urls := make([]string, len(matched))
	for i, v := range matched {
		urls[i] = v.URL
	}
	return urls
}

// Refresh evaluates c against catalogVideos, diffs the result against the
// previously cached set for c's canonical key, updates the cache, and
// returns the added and removed URLs (spec §4.8 "update operations diff
// against the previous cached set").
func (e *Evaluator) Refresh(c Criteria, catalogVideos []*catalog.Video) (added, removed []string, err error) {
	start := time.Now()
	defer func() { metrics.SmartFolderEvaluationDuration.Observe(time.Since(start).Seconds()) }()

	if catalogVideos == nil {
		metrics.SmartFolderEvaluationsTotal.WithLabelValues("failed").Inc()
		return nil, nil, errs.NewVideoFinderError(errs.QueryFailed, "", fmt.Errorf("nil catalog video set"))
	}

	key := CacheKey(c)
	current := Find(c, catalogVideos)
	currentSet := make(map[string]bool, len(current))
	for _, u := range current {
		currentSet[u] = true
	}

	e.mu.Lock()
	previous := e.cache[key]
	e.cache[key] = currentSet
	e.mu.Unlock()

	for u := range currentSet {
		if !previous[u] {
			added = append(added, u)
		}
	}
	for u := range previous {
		if !currentSet[u] {
			removed = append(removed, u)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)

	metrics.SmartFolderEvaluationsTotal.WithLabelValues("ok").Inc()
	metrics.SmartFolderMatchCount.Observe(float64(len(current)))

	return added, removed, nil
}
