package registry

import (
	"context"
	"net/url"

	"partnerguide/config"
	"partnerguide/internal/httpx"
)

// Lookup is the business-registry capability: given a registry number of
// the national fixed format, report whether an active record matches it.
type Lookup interface {
	Match(ctx context.Context, number string) (bool, error)
}

// Client implements Lookup against a French company-search-style API that
// indexes establishments by their 14-digit identifier.
type Client struct {
	cfg  config.RegistryConfig
	http *httpx.Client
}

func New(cfg config.RegistryConfig) *Client {
	return &Client{cfg: cfg, http: httpx.NewClient(cfg.Timeout, 0, 0)}
}

func (c *Client) Match(ctx context.Context, number string) (bool, error) {
	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://recherche-entreprises.api.gouv.fr/search"
	}
	q := url.Values{}
	q.Set("q", number)
	q.Set("page", "1")
	q.Set("per_page", "1")

	var resp struct {
		Results []struct {
			MatchingEstablishments []struct {
				Siret         string `json:"siret"`
				AdministState string `json:"etat_administratif"`
			} `json:"matching_etablissements"`
			Siege struct {
				Siret         string `json:"siret"`
				AdministState string `json:"etat_administratif"`
			} `json:"siege"`
		} `json:"results"`
	}
	if err := c.http.DoJSON(ctx, "GET", endpoint+"?"+q.Encode(), nil, nil, &resp); err != nil {
		return false, err
	}
	for _, r := range resp.Results {
		if r.Siege.Siret == number && active(r.Siege.AdministState) {
			return true, nil
		}
		for _, e := range r.MatchingEstablishments {
			if e.Siret == number && active(e.AdministState) {
				return true, nil
			}
		}
	}
	return false, nil
}

// active matches the registry's administrative state flag; "A" is active,
// "F" is closed. An absent flag is treated as active for older records.
func active(state string) bool {
	return state == "" || state == "A"
}
