package guide

import (
	"context"
	"errors"
	"strings"
	"testing"

	"partnerguide/config"
)

type providerStub struct {
	responses []string
	err       error
	prompts   []string
}

func (p *providerStub) Generate(ctx context.Context, prompt string, options map[string]interface{}) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if p.err != nil {
		return "", p.err
	}
	idx := len(p.prompts) - 1
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	if idx < 0 {
		return "[]", nil
	}
	return p.responses[idx], nil
}

func (p *providerStub) Model() string { return "stub" }

func testConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{MaxRounds: 5, RadiusCeilingKm: 50, CategoriesPerRound: 5},
		Places:   config.PlacesConfig{MaxResults: 20},
	}
}

func TestStrategistProposeFiltersTaxonomyAndExclusions(t *testing.T) {
	provider := &providerStub{responses: []string{
		"```json\n[\"plumber\", \"unicorn_groomer\", \"electrician\", \"plumber\", \"florist\"]\n```",
	}}
	s := NewStrategist(testConfig(), provider)

	req := SearchRequest{ClientName: "Acme", ClientDescription: "motorhome dealer"}
	exclude := map[string]struct{}{"florist": {}}
	got, err := s.Propose(context.Background(), req, 5, exclude)
	if err != nil {
		t.Fatalf("Propose returned error: %v", err)
	}
	want := []string{"plumber", "electrician"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestStrategistProposeRespectsCount(t *testing.T) {
	provider := &providerStub{responses: []string{
		`["plumber", "electrician", "florist", "bakery", "hardware_store"]`,
	}}
	s := NewStrategist(testConfig(), provider)

	got, err := s.Propose(context.Background(), SearchRequest{ClientName: "Acme"}, 2, nil)
	if err != nil {
		t.Fatalf("Propose returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %d: %v", len(got), got)
	}
}

func TestStrategistProposeAllowListRestrictsVocabulary(t *testing.T) {
	provider := &providerStub{responses: []string{`["plumber"]`}}
	s := NewStrategist(testConfig(), provider)

	req := SearchRequest{ClientName: "Acme", AllowCategories: []string{"plumber", "electrician", "not_a_type"}}
	if _, err := s.Propose(context.Background(), req, 5, nil); err != nil {
		t.Fatalf("Propose returned error: %v", err)
	}
	prompt := provider.prompts[0]
	if !strings.Contains(prompt, `"plumber"`) || !strings.Contains(prompt, `"electrician"`) {
		t.Fatalf("allow-listed categories missing from prompt")
	}
	if strings.Contains(prompt, "not_a_type") {
		t.Fatalf("invalid category leaked into prompt vocabulary")
	}
	if strings.Contains(prompt, `"bakery"`) {
		t.Fatalf("vocabulary not restricted to the allow-list")
	}
}

func TestStrategistProposeUnparseableOutput(t *testing.T) {
	provider := &providerStub{responses: []string{"I could not decide on any categories."}}
	s := NewStrategist(testConfig(), provider)

	_, err := s.Propose(context.Background(), SearchRequest{ClientName: "Acme"}, 5, nil)
	var sgErr *StrategyGenerationError
	if !errors.As(err, &sgErr) {
		t.Fatalf("expected StrategyGenerationError, got %v", err)
	}
}

func TestStrategistProposeProviderError(t *testing.T) {
	provider := &providerStub{err: errors.New("upstream down")}
	s := NewStrategist(testConfig(), provider)

	_, err := s.Propose(context.Background(), SearchRequest{ClientName: "Acme"}, 5, nil)
	var sgErr *StrategyGenerationError
	if !errors.As(err, &sgErr) {
		t.Fatalf("expected StrategyGenerationError, got %v", err)
	}
}

func TestStrategistSuggestDegradesToEmpty(t *testing.T) {
	provider := &providerStub{err: errors.New("upstream down")}
	s := NewStrategist(testConfig(), provider)

	if got := s.Suggest(context.Background(), "motorhome dealer"); got != nil {
		t.Fatalf("expected nil suggestions on failure, got %v", got)
	}
}

func TestStrategistSuggestParsesList(t *testing.T) {
	provider := &providerStub{responses: []string{`["Campgrounds", "Service areas"]`}}
	s := NewStrategist(testConfig(), provider)

	got := s.Suggest(context.Background(), "motorhome dealer")
	if len(got) != 2 || got[0] != "Campgrounds" {
		t.Fatalf("unexpected suggestions: %v", got)
	}
}
