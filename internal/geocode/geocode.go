package geocode

import (
	"context"
	"fmt"
	"net/url"

	"partnerguide/config"
	"partnerguide/internal/guide"
	"partnerguide/internal/httpx"
)

// Geocoder converts a free-text postal address into coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (guide.GeoPoint, error)
}

// Client implements Geocoder against a Google-Geocoding-style JSON endpoint.
// A failed resolution aborts the whole run, so the upstream status and
// error message are surfaced verbatim in the returned error.
type Client struct {
	cfg  config.GeocodingConfig
	http *httpx.Client
}

func New(cfg config.GeocodingConfig) *Client {
	return &Client{cfg: cfg, http: httpx.NewClient(cfg.Timeout, 0, 0)}
}

func (c *Client) Resolve(ctx context.Context, address string) (guide.GeoPoint, error) {
	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://maps.googleapis.com/maps/api/geocode/json"
	}
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", c.cfg.APIKey)
	if c.cfg.Language != "" {
		q.Set("language", c.cfg.Language)
	}

	var resp struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
		Results      []struct {
			Geometry struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := c.http.DoJSON(ctx, "GET", endpoint+"?"+q.Encode(), nil, nil, &resp); err != nil {
		return guide.GeoPoint{}, fmt.Errorf("geocoding request: %w", err)
	}
	if resp.Status != "OK" || len(resp.Results) == 0 {
		return guide.GeoPoint{}, &guide.UnresolvableAddressError{
			Address: address,
			Status:  resp.Status,
			Reason:  resp.ErrorMessage,
		}
	}
	loc := resp.Results[0].Geometry.Location
	return guide.GeoPoint{Lat: loc.Lat, Lng: loc.Lng}, nil
}
