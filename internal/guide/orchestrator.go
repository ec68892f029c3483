package guide

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"partnerguide/config"
	"partnerguide/internal/telemetry"
)

// AddressResolver converts the request's free-text address into the run's
// center point.
type AddressResolver interface {
	Resolve(ctx context.Context, address string) (GeoPoint, error)
}

// CategoryStrategist proposes new search categories for a run.
type CategoryStrategist interface {
	Propose(ctx context.Context, req SearchRequest, count int, exclude map[string]struct{}) ([]string, error)
}

// CandidateLocator finds filtered candidates for one category.
type CandidateLocator interface {
	Find(ctx context.Context, category string, center GeoPoint, radiusKm float64, exclude map[string]struct{}, clientName string) []Candidate
}

// CandidateVerifier runs the authenticity checks over a batch.
type CandidateVerifier interface {
	VerifyAll(ctx context.Context, candidates []Candidate) []VerifiedCandidate
}

// ContentEnricher produces guide-ready records from qualified candidates.
type ContentEnricher interface {
	Enrich(ctx context.Context, batch []VerifiedCandidate, category, clientDescription string) ([]Enriched, error)
}

// Orchestrator drives the guide assembly loop: resolve the address once,
// then run rounds of strategy, search, verification and enrichment until
// the target count is reached or every expansion lever is exhausted.
type Orchestrator struct {
	cfg        *config.Config
	geocoder   AddressResolver
	strategist CategoryStrategist
	locator    CandidateLocator
	verifier   CandidateVerifier
	enricher   ContentEnricher
	telemetry  *telemetry.Telemetry
	logger     *log.Logger
}

func NewOrchestrator(
	cfg *config.Config,
	geocoder AddressResolver,
	strategist CategoryStrategist,
	locator CandidateLocator,
	verifier CandidateVerifier,
	enricher ContentEnricher,
	tel *telemetry.Telemetry,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		geocoder:   geocoder,
		strategist: strategist,
		locator:    locator,
		verifier:   verifier,
		enricher:   enricher,
		telemetry:  tel,
		logger:     log.New(log.Writer(), "[ORCHESTRATOR] ", log.LstdFlags),
	}
}

// Run executes one guide generation run. Cancellation through ctx is not an
// error: the result comes back with StateCancelled, the partners found so
// far, and a nil error. All other terminal states follow the usual
// convention, with StateFailed paired with a non-nil error.
func (o *Orchestrator) Run(ctx context.Context, req SearchRequest, sink EventSink) (RunResult, error) {
	if sink == nil {
		sink = NopSink{}
	}
	res := RunResult{StartedAt: time.Now()}
	if err := o.validate(req); err != nil {
		res.State = StateFailed
		res.FinishedAt = time.Now()
		return res, err
	}
	if o.telemetry != nil {
		o.telemetry.RecordRunStart()
	}
	o.logger.Printf("run started: client=%q target=%d radius=%.1fkm", req.ClientName, req.TargetCount, req.RadiusKm)

	sink.OnProgress(ProgressEvent{Message: "Locating the search address...", Percentage: 2})
	center, err := o.geocoder.Resolve(ctx, req.Address)
	if err != nil {
		return o.finish(res, StateFailed, sink), err
	}
	if cancelled(ctx) {
		return o.finish(res, StateCancelled, sink), nil
	}

	// The request's exclusions never search and never appear in the
	// run's used-categories output.
	excluded := make(map[string]struct{}, len(req.ExcludeCategories))
	for _, label := range req.ExcludeCategories {
		excluded[strings.TrimSpace(strings.ToLower(label))] = struct{}{}
	}

	usedSet := make(map[string]struct{})
	identities := make(map[string]struct{})
	radius := req.RadiusKm
	ceiling := o.cfg.Pipeline.RadiusCeilingKm
	if radius > ceiling {
		ceiling = radius
	}
	target := req.TargetCount

rounds:
	for res.Rounds < o.cfg.Pipeline.MaxRounds && len(res.Partners) < target {
		res.Rounds++
		res.FinalRadiusKm = radius
		sink.OnProgress(ProgressEvent{
			Message:    fmt.Sprintf("Round %d: choosing partner categories (%.0fkm radius)...", res.Rounds, radius),
			Percentage: o.percentage(len(res.Partners), target),
		})

		exclude := make(map[string]struct{}, len(excluded)+len(usedSet))
		for label := range excluded {
			exclude[label] = struct{}{}
		}
		for label := range usedSet {
			exclude[label] = struct{}{}
		}
		categories, err := o.strategist.Propose(ctx, req, o.cfg.Pipeline.CategoriesPerRound, exclude)
		if cancelled(ctx) {
			break rounds
		}
		if err != nil {
			o.logger.Printf("round %d: category strategy failed: %v", res.Rounds, err)
			categories = nil
		}

		if len(categories) == 0 {
			if radius >= ceiling {
				o.logger.Printf("round %d: no categories left and radius at ceiling, stopping", res.Rounds)
				break
			}
			radius = expandRadius(radius, ceiling)
			o.logger.Printf("round %d: no new categories, expanding radius to %.1fkm", res.Rounds, radius)
			continue
		}

		for _, category := range categories {
			usedSet[category] = struct{}{}
			res.CategoriesUsed = append(res.CategoriesUsed, category)
		}

		for _, category := range categories {
			if cancelled(ctx) {
				break rounds
			}
			sink.OnProgress(ProgressEvent{
				Message:    fmt.Sprintf("Searching for %q nearby...", category),
				Percentage: o.percentage(len(res.Partners), target),
			})
			candidates := o.locator.Find(ctx, category, center, radius, identities, req.ClientName)
			if len(candidates) == 0 {
				continue
			}

			sink.OnProgress(ProgressEvent{
				Message:    fmt.Sprintf("Verifying %d businesses under %q...", len(candidates), category),
				Percentage: o.percentage(len(res.Partners), target),
			})
			verified := o.verifier.VerifyAll(ctx, candidates)
			if cancelled(ctx) {
				break rounds
			}
			var qualified []VerifiedCandidate
			for _, vc := range verified {
				if vc.Qualified() {
					qualified = append(qualified, vc)
				}
			}
			if len(qualified) == 0 {
				continue
			}

			enriched, err := o.enricher.Enrich(ctx, qualified, category, req.ClientDescription)
			if cancelled(ctx) {
				break rounds
			}
			if err != nil {
				o.logger.Printf("round %d: enrichment failed for %q: %v", res.Rounds, category, err)
				continue
			}

			for _, en := range enriched {
				if !en.Prospectable {
					continue
				}
				id := en.Record.Identity()
				if _, dup := identities[id]; dup {
					continue
				}
				identities[id] = struct{}{}
				res.Partners = append(res.Partners, en.Record)
				sink.OnPartner(en.Record)
				sink.OnProgress(ProgressEvent{
					Message:    fmt.Sprintf("Partner found: %s (%d/%d)", en.Record.Name, len(res.Partners), target),
					Percentage: o.percentage(len(res.Partners), target),
				})
				if len(res.Partners) >= target {
					break rounds
				}
			}
		}

		if len(res.Partners) < target {
			if radius >= ceiling {
				o.logger.Printf("round %d: radius at ceiling with %d/%d partners", res.Rounds, len(res.Partners), target)
			} else {
				radius = expandRadius(radius, ceiling)
			}
		}
	}
	res.FinalRadiusKm = radius

	if cancelled(ctx) {
		return o.finish(res, StateCancelled, sink), nil
	}
	if len(res.Partners) == 0 {
		err := &NoPartnersFoundError{FinalRadiusKm: radius, Rounds: res.Rounds}
		return o.finish(res, StateFailed, sink), err
	}
	if len(res.Partners) >= target {
		return o.finish(res, StateCompleted, sink), nil
	}
	return o.finish(res, StatePartial, sink), nil
}

func (o *Orchestrator) validate(req SearchRequest) error {
	if strings.TrimSpace(req.ClientName) == "" {
		return fmt.Errorf("client_name is required")
	}
	if strings.TrimSpace(req.Address) == "" {
		return fmt.Errorf("address is required")
	}
	if req.TargetCount <= 0 {
		return fmt.Errorf("target_count must be > 0")
	}
	if req.RadiusKm <= 0 {
		return fmt.Errorf("radius_km must be > 0")
	}
	return nil
}

func (o *Orchestrator) finish(res RunResult, state RunState, sink EventSink) RunResult {
	res.State = state
	res.FinishedAt = time.Now()
	if o.telemetry != nil {
		o.telemetry.RecordRunEnd(string(state), res.Rounds, len(res.Partners))
	}
	o.logger.Printf("run %s: %d partners, %d rounds, final radius %.1fkm",
		state, len(res.Partners), res.Rounds, res.FinalRadiusKm)
	if state != StateFailed {
		sink.OnProgress(ProgressEvent{
			Message:    fmt.Sprintf("Run %s with %d partner(s).", state, len(res.Partners)),
			Percentage: 100,
		})
	}
	return res
}

func (o *Orchestrator) percentage(found, target int) float64 {
	if target <= 0 {
		return 0
	}
	pct := float64(found) / float64(target) * 100
	if pct > 100 {
		pct = 100
	}
	if pct < 2 {
		pct = 2
	}
	return pct
}

// expandRadius doubles the radius, clamped to the ceiling. The radius never
// shrinks and never passes the ceiling.
func expandRadius(radius, ceiling float64) float64 {
	radius *= 2
	if radius > ceiling {
		radius = ceiling
	}
	return radius
}

func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
