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

// Strategist asks the generation capability for complementary, non-competing
// partner categories, constrained to the searchable taxonomy.
type Strategist struct {
	cfg    *config.Config
	llm    llm.Provider
	logger *log.Logger
}

func NewStrategist(cfg *config.Config, provider llm.Provider) *Strategist {
	return &Strategist{
		cfg:    cfg,
		llm:    provider,
		logger: log.New(log.Writer(), "[STRATEGIST] ", log.LstdFlags),
	}
}

// Propose returns up to count new category labels for the request, each
// taxonomy-valid and absent from exclude. An empty result means no further
// categories are available and the caller should fall back to radius
// expansion. Unparseable model output yields a StrategyGenerationError.
func (s *Strategist) Propose(ctx context.Context, req SearchRequest, count int, exclude map[string]struct{}) ([]string, error) {
	vocabulary := s.vocabulary(req)
	prompt := s.createCategoryPrompt(req, count, exclude, vocabulary)

	response, err := s.llm.Generate(ctx, prompt, map[string]interface{}{
		"temperature": 0.3,
		"max_tokens":  400,
	})
	if err != nil {
		return nil, &StrategyGenerationError{Cause: err}
	}

	raw, err := ExtractJSON(response)
	if err != nil {
		return nil, &StrategyGenerationError{Cause: err}
	}
	var suggested []string
	if err := json.Unmarshal([]byte(raw), &suggested); err != nil {
		return nil, &StrategyGenerationError{Cause: err}
	}

	allowed := make(map[string]struct{}, len(vocabulary))
	for _, v := range vocabulary {
		allowed[v] = struct{}{}
	}

	var out []string
	seen := make(map[string]struct{})
	for _, label := range suggested {
		label = strings.TrimSpace(strings.ToLower(label))
		if label == "" {
			continue
		}
		if _, ok := allowed[label]; !ok {
			s.logger.Printf("dropping category outside taxonomy: %q", label)
			continue
		}
		if _, ok := exclude[label]; ok {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
		if len(out) >= count {
			break
		}
	}
	return out, nil
}

// Suggest returns free-text B2B partner-category ideas for the request form.
// Best effort: any failure degrades to an empty list.
func (s *Strategist) Suggest(ctx context.Context, description string) []string {
	prompt := fmt.Sprintf(`Based on this business activity: %q, suggest 5 relevant, non-competing B2B partner categories.
Think of trades that could act as referral partners. For example, for a motorhome dealer,
suggestions like "Campgrounds", "Service areas" or "Specialised garages" would be relevant.

Return ONLY a valid JSON array of 5 strings.
Example output: ["Architects", "Plumbers", "Electricians", "Real estate agencies", "Landscapers"]`, description)

	response, err := s.llm.Generate(ctx, prompt, map[string]interface{}{"temperature": 0.5, "max_tokens": 300})
	if err != nil {
		s.logger.Printf("category suggestions failed: %v", err)
		return nil
	}
	raw, err := ExtractJSON(response)
	if err != nil {
		s.logger.Printf("category suggestions unparseable: %v", err)
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		s.logger.Printf("category suggestions unparseable: %v", err)
		return nil
	}
	return out
}

// vocabulary returns the taxonomy, restricted to the request's allow-list
// when one is present.
func (s *Strategist) vocabulary(req SearchRequest) []string {
	if len(req.AllowCategories) == 0 {
		return SearchableCategories()
	}
	var out []string
	for _, label := range req.AllowCategories {
		label = strings.TrimSpace(strings.ToLower(label))
		if ValidCategory(label) {
			out = append(out, label)
		}
	}
	if len(out) == 0 {
		return SearchableCategories()
	}
	return out
}

func (s *Strategist) createCategoryPrompt(req SearchRequest, count int, exclude map[string]struct{}, vocabulary []string) string {
	vocabJSON, _ := json.Marshal(vocabulary)

	excludeBlock := ""
	if len(exclude) > 0 {
		labels := make([]string, 0, len(exclude))
		for label := range exclude {
			labels = append(labels, label)
		}
		excludedJSON, _ := json.Marshal(labels)
		excludeBlock = fmt.Sprintf("4. EXCLUSION: the following categories were already used. Do NOT pick any of them: %s\n", excludedJSON)
	}
	feedbackBlock := ""
	if strings.TrimSpace(req.Feedback) != "" {
		feedbackBlock = fmt.Sprintf("5. TOP PRIORITY - USER FEEDBACK: the following guidance is crucial: %q. Translate the suggested activities into categories from the allowed list; your selection MUST reflect this request first.\n", req.Feedback)
	}

	return fmt.Sprintf(`MISSION: you are a local marketing strategist. Identify the best partner business categories for my company, to be used with a nearby-business search API.

MY COMPANY:
- Name: %q
- Activity: %q

TASKS:
1. Analyse my activity and identify complementary, non-competing partner business types.
2. Pick up to %d relevant categories from the allowed list below, maximising the variety of results.

CRITICAL RULES:
1. You MUST pick categories EXCLUSIVELY from the allowed list below.
2. Never return a category that is not textually present in that list. Do not invent identifiers.
3. If an ideal category (such as "architect" or "landscaper") is missing from the list, pick the closest valid one instead (e.g. "home_goods_store", "store", "florist").
%s%s
ALLOWED CATEGORIES:
%s

OUTPUT FORMAT:
Return ONLY a valid JSON array of the chosen strings. Example: ["plumber", "electrician", "hardware_store"]`,
		req.ClientName, req.ClientDescription, count, excludeBlock, feedbackBlock, vocabJSON)
}
