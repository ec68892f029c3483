package guide

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"partnerguide/config"
	"partnerguide/internal/llm"
)

// Enriched is one enrichment result. Prospectable is the model's relevance
// verdict; the assembly loop drops non-prospectable records and the flag
// never reaches the final guide.
type Enriched struct {
	Record       PartnerRecord
	Prospectable bool
}

// enrichedEntry mirrors one element of the model's JSON answer.
type enrichedEntry struct {
	Prospectable   bool     `json:"prospectable"`
	RegistryNumber string   `json:"registry_number"`
	Activity       string   `json:"activity"`
	City           string   `json:"city"`
	Extract        string   `json:"extract"`
	Description    string   `json:"description"`
	Phone          string   `json:"phone"`
	ManagerPhone   string   `json:"manager_phone"`
	Rating         *float64 `json:"rating"`
	ReviewCount    *int     `json:"review_count"`
	MapURL         string   `json:"map_url"`
}

// Enricher turns verified candidates into guide-ready partner records with
// one batched generation call per category.
type Enricher struct {
	cfg    *config.Config
	llm    llm.Provider
	logger *log.Logger
}

func NewEnricher(cfg *config.Config, provider llm.Provider) *Enricher {
	return &Enricher{
		cfg:    cfg,
		llm:    provider,
		logger: log.New(log.Writer(), "[ENRICHER] ", log.LstdFlags),
	}
}

// Enrich enriches every candidate in batch, preserving order and count.
// A response whose cardinality differs from the batch is rejected whole:
// the loop can live without one category's enrichment, but never with
// silently dropped or invented entries.
func (e *Enricher) Enrich(ctx context.Context, batch []VerifiedCandidate, category, clientDescription string) ([]Enriched, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	prompt := e.createEnrichmentPrompt(batch, category, clientDescription)
	response, err := e.llm.Generate(ctx, prompt, map[string]interface{}{
		"temperature": 0.4,
		"max_tokens":  300 * len(batch),
	})
	if err != nil {
		return nil, &EnrichmentError{Category: category, Cause: err}
	}

	raw, err := ExtractJSON(response)
	if err != nil {
		return nil, &EnrichmentError{Category: category, Cause: err}
	}
	var entries []enrichedEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, &EnrichmentError{Category: category, Cause: err}
	}
	if len(entries) != len(batch) {
		return nil, &EnrichmentError{
			Category: category,
			Cause:    fmt.Errorf("expected %d entries, model returned %d", len(batch), len(entries)),
		}
	}

	out := make([]Enriched, 0, len(batch))
	for i, vc := range batch {
		record := PartnerRecord{
			Candidate:   vc.Candidate,
			Category:    category,
			Activity:    strings.TrimSpace(entries[i].Activity),
			City:        strings.TrimSpace(entries[i].City),
			Extract:     strings.TrimSpace(entries[i].Extract),
			Description: strings.TrimSpace(entries[i].Description),
		}
		e.backfill(&record, entries[i])
		out = append(out, Enriched{Record: record, Prospectable: entries[i].Prospectable})
	}
	return out, nil
}

// backfill fills contact fields the search left empty. Existing values win:
// enrichment adds, it never overwrites or removes.
func (e *Enricher) backfill(record *PartnerRecord, entry enrichedEntry) {
	if record.Phone == nil {
		if p := strings.TrimSpace(entry.Phone); p != "" {
			record.Phone = &p
		}
	}
	if record.RegistryNumber == nil {
		if n := strings.TrimSpace(entry.RegistryNumber); registryNumberRe.MatchString(n) {
			record.RegistryNumber = &n
		}
	}
	if record.MapURL == nil {
		if u := strings.TrimSpace(entry.MapURL); MapListingValid(u) {
			record.MapURL = &u
		}
	}
	if record.Rating == nil && entry.Rating != nil {
		record.Rating = entry.Rating
	}
	if record.ReviewCount == nil && entry.ReviewCount != nil {
		record.ReviewCount = entry.ReviewCount
	}
	if m := strings.TrimSpace(entry.ManagerPhone); m != "" {
		record.ManagerPhone = &m
	}
}

func (e *Enricher) createEnrichmentPrompt(batch []VerifiedCandidate, category, clientDescription string) string {
	type promptCandidate struct {
		Name    string `json:"name"`
		Address string `json:"address"`
		Phone   string `json:"phone"`
		Website string `json:"website,omitempty"`
	}
	listed := make([]promptCandidate, 0, len(batch))
	for _, vc := range batch {
		pc := promptCandidate{Name: vc.Name, Address: vc.Address, Phone: "Non fourni"}
		if vc.Phone != nil {
			pc.Phone = *vc.Phone
		}
		if vc.Website != nil {
			pc.Website = *vc.Website
		}
		listed = append(listed, pc)
	}
	candidatesJSON, _ := json.MarshalIndent(listed, "", "  ")

	return fmt.Sprintf(`You enrich a local B2B partner guide. The guide is built FOR a company whose activity is: %q.
That activity is context only: NEVER name that company or its brand anywhere in your output.
The businesses below were found under the category %q and already passed authenticity checks.

For EACH business, in the SAME ORDER, produce one JSON object with:
- "prospectable": boolean. false for national chains, banks, big-box retail and public administration; true for an independent local business that could act as a referral partner.
- "registry_number": its 14-digit SIRET if you know it with confidence, otherwise "".
- "activity": its precise trade, 2-5 words.
- "city": formatted as "City (postal code) in Region", derived from its address.
- "extract": a factual 20-30 word summary of the business.
- "description": 2-3 paragraphs of SEO-friendly HTML (<p> tags) presenting the business and its local usefulness, ENDING with a call-to-action paragraph that embeds the phone number and address given below. Use ONLY the phone given for the business; when it reads "Non fourni", build the call-to-action around the address alone.
- "phone": its public phone number, or "".
- "manager_phone": the manager's direct line if publicly known, or "".
- "rating": its public review rating as a number, or null.
- "review_count": its public review count as a number, or null.
- "map_url": its map listing URL if you know it, or "".

BUSINESSES:
%s

CRITICAL: return ONLY a valid JSON array with EXACTLY %d objects, one per business, in the order given. No commentary.`,
		clientDescription, category, candidatesJSON, len(batch))
}
