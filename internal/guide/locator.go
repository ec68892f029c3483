package guide

import (
	"context"
	"fmt"
	"log"
	"strings"

	"partnerguide/config"
	"partnerguide/internal/cache"
)

// PlaceSearcher is the nearby-business search capability as the locator
// consumes it.
type PlaceSearcher interface {
	SearchNearby(ctx context.Context, category string, center GeoPoint, radiusKm float64, maxResults int) ([]Candidate, error)
}

// Locator runs the nearby search for one category and filters the raw hits:
// the client itself and already-emitted identities never come back. Search
// failures degrade to an empty list so one bad category cannot kill a run.
type Locator struct {
	cfg      *config.Config
	searcher PlaceSearcher
	cache    cache.Cache
	logger   *log.Logger
}

func NewLocator(cfg *config.Config, searcher PlaceSearcher, c cache.Cache) *Locator {
	return &Locator{
		cfg:      cfg,
		searcher: searcher,
		cache:    c,
		logger:   log.New(log.Writer(), "[LOCATOR] ", log.LstdFlags),
	}
}

// Find returns filtered candidates for category around center. The cache key
// covers category, center and radius only; per-run exclusions are applied
// after the cache so one run's filters never leak into another's.
func (l *Locator) Find(ctx context.Context, category string, center GeoPoint, radiusKm float64, exclude map[string]struct{}, clientName string) []Candidate {
	raw, ok := l.cached(ctx, category, center, radiusKm)
	if !ok {
		var err error
		raw, err = l.searcher.SearchNearby(ctx, category, center, radiusKm, l.cfg.Places.MaxResults)
		if err != nil {
			l.logger.Printf("nearby search failed for %q (%.1fkm): %v", category, radiusKm, err)
			return nil
		}
		l.store(ctx, category, center, radiusKm, raw)
	}

	clientName = strings.TrimSpace(clientName)
	out := make([]Candidate, 0, len(raw))
	for _, c := range raw {
		if clientName != "" && strings.EqualFold(strings.TrimSpace(c.Name), clientName) {
			continue
		}
		if _, dup := exclude[CandidateIdentity(c.Name, c.Address)]; dup {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (l *Locator) cacheKey(category string, center GeoPoint, radiusKm float64) string {
	return fmt.Sprintf("%s|%.5f,%.5f|%.1f", category, center.Lat, center.Lng, radiusKm)
}

func (l *Locator) cached(ctx context.Context, category string, center GeoPoint, radiusKm float64) ([]Candidate, bool) {
	if l.cache == nil {
		return nil, false
	}
	var raw []Candidate
	hit, err := l.cache.Get(ctx, l.cacheKey(category, center, radiusKm), &raw)
	if err != nil {
		l.logger.Printf("cache read failed: %v", err)
		return nil, false
	}
	return raw, hit
}

func (l *Locator) store(ctx context.Context, category string, center GeoPoint, radiusKm float64, raw []Candidate) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Set(ctx, l.cacheKey(category, center, radiusKm), raw); err != nil {
		l.logger.Printf("cache write failed: %v", err)
	}
}
