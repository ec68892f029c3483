package guide

import "fmt"

// UnresolvableAddressError is fatal to the run: every downstream search
// depends on the resolved center point.
type UnresolvableAddressError struct {
	Address string
	Status  string
	Reason  string
}

func (e *UnresolvableAddressError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("address %q could not be resolved (%s): %s", e.Address, e.Status, e.Reason)
	}
	return fmt.Sprintf("address %q could not be resolved (%s)", e.Address, e.Status)
}

// StrategyGenerationError means the category model's output could not be
// parsed into a label sequence. Recoverable: the loop falls back to radius
// expansion.
type StrategyGenerationError struct {
	Cause error
}

func (e *StrategyGenerationError) Error() string {
	return fmt.Sprintf("category strategy output unparseable: %v", e.Cause)
}

func (e *StrategyGenerationError) Unwrap() error { return e.Cause }

// EnrichmentError means one enrichment batch could not be parsed into the
// expected structure. Recoverable: that batch yields nothing this round.
type EnrichmentError struct {
	Category string
	Cause    error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrichment batch for %q failed: %v", e.Category, e.Cause)
}

func (e *EnrichmentError) Unwrap() error { return e.Cause }

// NoPartnersFoundError terminates a run that exhausted every round and the
// radius ceiling with an empty result set. FinalRadiusKm and Rounds let the
// caller advise the user to widen the search or rework the description.
type NoPartnersFoundError struct {
	FinalRadiusKm float64
	Rounds        int
}

func (e *NoPartnersFoundError) Error() string {
	return fmt.Sprintf("no qualified partners found after %d rounds up to a %.0f km radius; widen the search area or rephrase the business description", e.Rounds, e.FinalRadiusKm)
}
