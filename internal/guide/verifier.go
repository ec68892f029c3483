package guide

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"partnerguide/config"
	"partnerguide/internal/registry"
	"partnerguide/internal/telemetry"
)

var registryNumberRe = regexp.MustCompile(`^\d{14}$`)

// mapPrefixes are the listing-URL prefixes accepted as a valid map presence.
var mapPrefixes = []string{
	"https://maps.google.com/",
	"https://www.google.com/maps",
	"https://goo.gl/maps/",
	"https://maps.app.goo.gl/",
}

// Verifier runs the three authenticity checks for each candidate. The checks
// for one candidate run concurrently, each under its own deadline, and a
// failed or timed-out check simply reads as false.
type Verifier struct {
	cfg       config.VerifierConfig
	registry  registry.Lookup
	client    *http.Client
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func NewVerifier(cfg config.VerifierConfig, lookup registry.Lookup, tel *telemetry.Telemetry) *Verifier {
	return &Verifier{
		cfg:       cfg,
		registry:  lookup,
		client:    &http.Client{Timeout: cfg.CheckTimeout},
		telemetry: tel,
		logger:    log.New(log.Writer(), "[VERIFIER] ", log.LstdFlags),
	}
}

// VerifyAll verifies every candidate with bounded concurrency and returns
// the results in input order. Cancellation stops scheduling new candidates;
// results already produced keep their slots.
func (v *Verifier) VerifyAll(ctx context.Context, candidates []Candidate) []VerifiedCandidate {
	out := make([]VerifiedCandidate, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	limit := v.cfg.MaxConcurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, c := range candidates {
		if gctx.Err() != nil {
			out[i] = VerifiedCandidate{Candidate: c}
			continue
		}
		i, c := i, c
		g.Go(func() error {
			out[i] = v.verify(gctx, c)
			return nil
		})
	}
	g.Wait()
	return out
}

func (v *Verifier) verify(ctx context.Context, c Candidate) VerifiedCandidate {
	var res Verification
	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		if c.Website != nil {
			res.WebsiteValid = v.checkWebsite(ctx, *c.Website)
		}
	}()
	go func() {
		defer wg.Done()
		if c.RegistryNumber != nil {
			res.RegistryValid = v.checkRegistry(ctx, *c.RegistryNumber)
		}
	}()
	go func() {
		defer wg.Done()
		if c.MapURL != nil {
			res.MapValid = MapListingValid(*c.MapURL)
		}
	}()
	wg.Wait()

	if v.telemetry != nil {
		v.telemetry.RecordVerification(res.WebsiteValid, res.RegistryValid, res.MapValid)
	}
	return VerifiedCandidate{Candidate: c, Verification: res}
}

// checkWebsite probes the URL with a HEAD request. Anything below 400 counts
// as live; redirects are followed by the client.
func (v *Verifier) checkWebsite(ctx context.Context, raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, v.cfg.CheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return false
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 400
}

// checkRegistry validates the asserted number's shape, then asks the
// company registry whether an active establishment carries it.
func (v *Verifier) checkRegistry(ctx context.Context, number string) bool {
	number = strings.TrimSpace(number)
	if !registryNumberRe.MatchString(number) {
		return false
	}
	if v.registry == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, v.cfg.CheckTimeout)
	defer cancel()

	ok, err := v.registry.Match(ctx, number)
	if err != nil {
		v.logger.Printf("registry lookup failed for %s: %v", number, err)
		return false
	}
	return ok
}

// MapListingValid reports whether the URL points at a recognised map
// listing host. A pure string check, so it never needs a deadline.
func MapListingValid(raw string) bool {
	raw = strings.TrimSpace(raw)
	for _, prefix := range mapPrefixes {
		if strings.HasPrefix(raw, prefix) {
			return true
		}
	}
	return false
}
