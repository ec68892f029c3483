package guide

import (
	"strings"
	"time"
)

// SearchRequest describes one guide generation run. It is immutable for the
// duration of the run.
type SearchRequest struct {
	ClientName        string   `json:"client_name"`
	ClientDescription string   `json:"client_description"`
	TargetCount       int      `json:"target_count"`
	Address           string   `json:"address"`
	RadiusKm          float64  `json:"radius_km"`
	AllowCategories   []string `json:"allow_categories,omitempty"`
	ExcludeCategories []string `json:"exclude_categories,omitempty"`
	Feedback          string   `json:"feedback,omitempty"`
}

// GeoPoint is a latitude/longitude pair, resolved once per run.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Candidate is a raw, unverified business record returned by the nearby
// search for one category.
type Candidate struct {
	Name           string   `json:"name"`
	Address        string   `json:"address"`
	Phone          *string  `json:"phone,omitempty"`
	Website        *string  `json:"website,omitempty"`
	MapURL         *string  `json:"map_url,omitempty"`
	RegistryNumber *string  `json:"registry_number,omitempty"`
	Rating         *float64 `json:"rating,omitempty"`
	ReviewCount    *int     `json:"review_count,omitempty"`
}

// Verification holds the three independent authenticity check results.
type Verification struct {
	WebsiteValid  bool `json:"website_valid"`
	RegistryValid bool `json:"registry_valid"`
	MapValid      bool `json:"map_valid"`
}

// VerifiedCandidate is a Candidate with its verification flags populated.
type VerifiedCandidate struct {
	Candidate
	Verification Verification `json:"verification"`
}

// Qualified reports whether the candidate passed the authenticity gate:
// a live website plus at least one corroborating signal.
func (v VerifiedCandidate) Qualified() bool {
	return v.Verification.WebsiteValid && (v.Verification.RegistryValid || v.Verification.MapValid)
}

// PartnerRecord is a qualified candidate after content enrichment; the unit
// of the final guide.
type PartnerRecord struct {
	Candidate
	Category     string  `json:"category"`
	Activity     string  `json:"activity"`
	City         string  `json:"city"`
	Extract      string  `json:"extract"`
	Description  string  `json:"description"`
	ManagerPhone *string `json:"manager_phone,omitempty"`
}

// Identity returns the deduplication identity: the lowercase business name,
// combined with the normalised address when one is available.
func (p PartnerRecord) Identity() string {
	return CandidateIdentity(p.Name, p.Address)
}

// CandidateIdentity builds the case-insensitive dedup key shared by the
// locator and the assembly loop.
func CandidateIdentity(name, address string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return name
	}
	return name + "|" + address
}

// RunState is the terminal state of a guide assembly run.
type RunState string

const (
	StateCompleted RunState = "completed"
	StatePartial   RunState = "partial"
	StateCancelled RunState = "cancelled"
	StateFailed    RunState = "failed"
)

// RunResult is the terminal output of one run.
type RunResult struct {
	Partners       []PartnerRecord `json:"partners"`
	CategoriesUsed []string        `json:"categories_used"`
	FinalRadiusKm  float64         `json:"final_radius_km"`
	Rounds         int             `json:"rounds"`
	State          RunState        `json:"state"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
}

// ProgressEvent is a human-readable status update with a 0-100 percentage.
type ProgressEvent struct {
	Message    string  `json:"message"`
	Percentage float64 `json:"percentage"`
}

// EventSink receives incremental run events. Implementations must be safe
// for calls from the run goroutine; the loop never calls it concurrently.
type EventSink interface {
	OnProgress(ProgressEvent)
	OnPartner(PartnerRecord)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) OnProgress(ProgressEvent) {}
func (NopSink) OnPartner(PartnerRecord)  {}
