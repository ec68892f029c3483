package guide

import (
	"context"
	"errors"
	"testing"
	"time"

	"partnerguide/internal/cache"
)

type searcherStub struct {
	results map[string][]Candidate
	err     error
	calls   int
}

func (s *searcherStub) SearchNearby(ctx context.Context, category string, center GeoPoint, radiusKm float64, maxResults int) ([]Candidate, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.results[category], nil
}

func TestLocatorFiltersClientAndKnownIdentities(t *testing.T) {
	searcher := &searcherStub{results: map[string][]Candidate{
		"plumber": {
			{Name: "Acme Motorhomes", Address: "1 rue A"},
			{Name: "acme motorhomes", Address: "somewhere else"},
			{Name: "Fresh Plumbing", Address: "2 rue B"},
			{Name: "Known Partner", Address: "3 rue C"},
		},
	}}
	l := NewLocator(testConfig(), searcher, nil)

	exclude := map[string]struct{}{CandidateIdentity("Known Partner", "3 rue C"): {}}
	got := l.Find(context.Background(), "plumber", GeoPoint{Lat: 45.76, Lng: 4.83}, 5, exclude, "Acme Motorhomes")
	if len(got) != 1 || got[0].Name != "Fresh Plumbing" {
		t.Fatalf("unexpected candidates: %+v", got)
	}
}

func TestLocatorSearchFailureDegradesToEmpty(t *testing.T) {
	searcher := &searcherStub{err: errors.New("quota exceeded")}
	l := NewLocator(testConfig(), searcher, nil)

	got := l.Find(context.Background(), "plumber", GeoPoint{}, 5, nil, "")
	if got != nil {
		t.Fatalf("expected empty result on search failure, got %+v", got)
	}
}

func TestLocatorCachesRawResults(t *testing.T) {
	searcher := &searcherStub{results: map[string][]Candidate{
		"plumber": {{Name: "Fresh Plumbing", Address: "2 rue B"}},
	}}
	l := NewLocator(testConfig(), searcher, cache.NewMemory(time.Minute))

	center := GeoPoint{Lat: 45.76, Lng: 4.83}
	first := l.Find(context.Background(), "plumber", center, 5, nil, "")
	second := l.Find(context.Background(), "plumber", center, 5, nil, "")
	if searcher.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", searcher.calls)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("cached lookup changed results: %d vs %d", len(first), len(second))
	}

	// a different radius is a different key
	l.Find(context.Background(), "plumber", center, 10, nil, "")
	if searcher.calls != 2 {
		t.Fatalf("radius change should bypass the cache, got %d calls", searcher.calls)
	}
}

func TestLocatorCacheKeptFreeOfRunFilters(t *testing.T) {
	searcher := &searcherStub{results: map[string][]Candidate{
		"plumber": {
			{Name: "Fresh Plumbing", Address: "2 rue B"},
			{Name: "Known Partner", Address: "3 rue C"},
		},
	}}
	l := NewLocator(testConfig(), searcher, cache.NewMemory(time.Minute))

	center := GeoPoint{Lat: 45.76, Lng: 4.83}
	exclude := map[string]struct{}{CandidateIdentity("Known Partner", "3 rue C"): {}}
	first := l.Find(context.Background(), "plumber", center, 5, exclude, "")
	if len(first) != 1 {
		t.Fatalf("exclusion not applied: %+v", first)
	}

	// a later run with no exclusions sees the full cached set
	second := l.Find(context.Background(), "plumber", center, 5, nil, "")
	if len(second) != 2 {
		t.Fatalf("exclusions leaked into the cache: %+v", second)
	}
}
