package guide

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"partnerguide/config"
)

type lookupStub struct {
	known map[string]bool
	err   error
	calls int
}

func (l *lookupStub) Match(ctx context.Context, number string) (bool, error) {
	l.calls++
	if l.err != nil {
		return false, l.err
	}
	return l.known[number], nil
}

func verifierConfig() config.VerifierConfig {
	return config.VerifierConfig{CheckTimeout: 2 * time.Second, MaxConcurrency: 4}
}

func strptr(s string) *string { return &s }

func TestVerifierQualifiesWebsitePlusRegistry(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer site.Close()

	lookup := &lookupStub{known: map[string]bool{"12345678901234": true}}
	v := NewVerifier(verifierConfig(), lookup, nil)

	out := v.VerifyAll(context.Background(), []Candidate{{
		Name:           "Acme Plomberie",
		Website:        strptr(site.URL),
		RegistryNumber: strptr("12345678901234"),
	}})
	if len(out) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out))
	}
	res := out[0]
	if !res.Verification.WebsiteValid || !res.Verification.RegistryValid {
		t.Fatalf("unexpected verification: %+v", res.Verification)
	}
	if !res.Qualified() {
		t.Fatalf("candidate with website+registry should qualify")
	}
}

func TestVerifierWebsiteDownDisqualifies(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer site.Close()

	v := NewVerifier(verifierConfig(), &lookupStub{}, nil)
	out := v.VerifyAll(context.Background(), []Candidate{{
		Name:    "Ghost Shop",
		Website: strptr(site.URL),
		MapURL:  strptr("https://maps.google.com/?cid=123"),
	}})
	if out[0].Verification.WebsiteValid {
		t.Fatalf("404 website should not validate")
	}
	if !out[0].Verification.MapValid {
		t.Fatalf("map listing should validate independently")
	}
	if out[0].Qualified() {
		t.Fatalf("map alone must not qualify without a live website")
	}
}

func TestVerifierMissingFieldsReadFalse(t *testing.T) {
	v := NewVerifier(verifierConfig(), &lookupStub{}, nil)
	out := v.VerifyAll(context.Background(), []Candidate{{Name: "Bare"}})
	if out[0].Verification != (Verification{}) {
		t.Fatalf("candidate without assertions should fail all checks: %+v", out[0].Verification)
	}
}

func TestVerifierMalformedRegistryNumberSkipsLookup(t *testing.T) {
	lookup := &lookupStub{}
	v := NewVerifier(verifierConfig(), lookup, nil)
	out := v.VerifyAll(context.Background(), []Candidate{{
		Name:           "Acme",
		RegistryNumber: strptr("123"),
	}})
	if out[0].Verification.RegistryValid {
		t.Fatalf("malformed registry number validated")
	}
	if lookup.calls != 0 {
		t.Fatalf("lookup called for malformed number")
	}
}

func TestVerifierRegistryErrorReadsFalse(t *testing.T) {
	lookup := &lookupStub{err: errors.New("registry down")}
	v := NewVerifier(verifierConfig(), lookup, nil)
	out := v.VerifyAll(context.Background(), []Candidate{{
		Name:           "Acme",
		RegistryNumber: strptr("12345678901234"),
	}})
	if out[0].Verification.RegistryValid {
		t.Fatalf("lookup failure must read as unverified")
	}
}

func TestVerifierPreservesOrder(t *testing.T) {
	v := NewVerifier(verifierConfig(), &lookupStub{}, nil)
	candidates := []Candidate{
		{Name: "first"}, {Name: "second"}, {Name: "third"}, {Name: "fourth"},
	}
	out := v.VerifyAll(context.Background(), candidates)
	if len(out) != len(candidates) {
		t.Fatalf("expected %d results, got %d", len(candidates), len(out))
	}
	for i := range candidates {
		if out[i].Name != candidates[i].Name {
			t.Fatalf("order not preserved at %d: %s", i, out[i].Name)
		}
	}
}

func TestMapListingValid(t *testing.T) {
	cases := map[string]bool{
		"https://maps.google.com/?cid=42":          true,
		"https://www.google.com/maps/place/x":      true,
		"https://goo.gl/maps/abc":                  true,
		"https://maps.app.goo.gl/xyz":              true,
		"https://example.com/maps.google.com":      false,
		"http://maps.google.com/?cid=42":           false,
		"": false,
	}
	for url, want := range cases {
		if got := MapListingValid(url); got != want {
			t.Fatalf("MapListingValid(%q) = %v, want %v", url, got, want)
		}
	}
}
