package places

import (
	"context"

	"partnerguide/config"
	"partnerguide/internal/guide"
	"partnerguide/internal/httpx"
)

// Searcher is the nearby-business search capability: one category, one
// center, one radius in, a bounded list of raw candidates out, in the
// backend's own ranking (distance by default).
type Searcher interface {
	SearchNearby(ctx context.Context, category string, center guide.GeoPoint, radiusKm float64, maxResults int) ([]guide.Candidate, error)
}

const fieldMask = "places.displayName,places.formattedAddress,places.internationalPhoneNumber,places.websiteUri,places.googleMapsUri,places.rating,places.userRatingCount"

// Client implements Searcher against a Places-v1-style searchNearby endpoint.
type Client struct {
	cfg  config.PlacesConfig
	http *httpx.Client
}

func New(cfg config.PlacesConfig) *Client {
	return &Client{cfg: cfg, http: httpx.NewClient(cfg.Timeout, 1, 0)}
}

func (c *Client) SearchNearby(ctx context.Context, category string, center guide.GeoPoint, radiusKm float64, maxResults int) ([]guide.Candidate, error) {
	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://places.googleapis.com/v1/places:searchNearby"
	}
	if maxResults <= 0 {
		maxResults = c.cfg.MaxResults
	}
	if maxResults <= 0 {
		maxResults = 20
	}
	language := c.cfg.Language
	if language == "" {
		language = "fr"
	}

	body := map[string]any{
		"includedTypes":  []string{category},
		"maxResultCount": maxResults,
		"locationRestriction": map[string]any{
			"circle": map[string]any{
				"center": map[string]any{"latitude": center.Lat, "longitude": center.Lng},
				"radius": radiusKm * 1000,
			},
		},
		"languageCode":   language,
		"rankPreference": "DISTANCE",
	}
	headers := map[string]string{
		"X-Goog-Api-Key":   c.cfg.APIKey,
		"X-Goog-FieldMask": fieldMask,
	}

	var resp struct {
		Places []struct {
			DisplayName struct {
				Text string `json:"text"`
			} `json:"displayName"`
			FormattedAddress         string  `json:"formattedAddress"`
			InternationalPhoneNumber string  `json:"internationalPhoneNumber"`
			WebsiteURI               string  `json:"websiteUri"`
			GoogleMapsURI            string  `json:"googleMapsUri"`
			Rating                   float64 `json:"rating"`
			UserRatingCount          int     `json:"userRatingCount"`
		} `json:"places"`
	}
	if err := c.http.DoJSON(ctx, "POST", endpoint, headers, body, &resp); err != nil {
		return nil, err
	}

	out := make([]guide.Candidate, 0, len(resp.Places))
	for _, p := range resp.Places {
		if p.DisplayName.Text == "" {
			continue
		}
		cand := guide.Candidate{
			Name:    p.DisplayName.Text,
			Address: p.FormattedAddress,
		}
		if p.InternationalPhoneNumber != "" {
			cand.Phone = ptr(p.InternationalPhoneNumber)
		}
		if p.WebsiteURI != "" {
			cand.Website = ptr(p.WebsiteURI)
		}
		if p.GoogleMapsURI != "" {
			cand.MapURL = ptr(p.GoogleMapsURI)
		}
		if p.Rating > 0 {
			r := p.Rating
			cand.Rating = &r
		}
		if p.UserRatingCount > 0 {
			n := p.UserRatingCount
			cand.ReviewCount = &n
		}
		out = append(out, cand)
	}
	return out, nil
}

func ptr(s string) *string { return &s }
