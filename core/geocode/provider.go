package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	ProviderGSI       = "gsi"
	ProviderNominatim = "nominatim"
	ProviderGoogle    = "google"
)

// ErrNoAPIKey is returned when the google provider is selected without a key.
var ErrNoAPIKey = errors.New("geocode: google provider requires an api key")

// Query is an address split the way the sources report it. Address is already
// normalized.
type Query struct {
	Prefecture string
	City       string
	Address    string
}

// Provider resolves an address through a remote service.
type Provider interface {
	// Name is stored next to cached entries.
	Name() string
	// Lookup returns ok=false when the service has no match.
	Lookup(ctx context.Context, q Query) (coord Coordinate, ok bool, err error)
	// Pause adapts the configured pause to the service's rate policy.
	Pause(configured time.Duration) time.Duration
}

// NewProvider builds the provider selected by cfg.Provider. A nil client gets a
// default one with cfg's timeout.
func NewProvider(cfg Config, client *http.Client) (Provider, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}
	base := httpJSON{client: client, userAgent: cfg.UserAgent}
	switch cfg.Provider {
	case "", ProviderGSI:
		return &GSIProvider{httpJSON: base, Endpoint: GSIEndpoint}, nil
	case ProviderNominatim:
		return &NominatimProvider{httpJSON: base, Endpoint: NominatimEndpoint}, nil
	case ProviderGoogle:
		if cfg.GoogleAPIKey == "" {
			return nil, ErrNoAPIKey
		}
		return &GoogleProvider{httpJSON: base, Endpoint: GoogleEndpoint, APIKey: cfg.GoogleAPIKey}, nil
	default:
		return nil, fmt.Errorf("unknown geocode provider %q", cfg.Provider)
	}
}

type httpJSON struct {
	client    *http.Client
	userAgent string
}

// get decodes a 200 JSON response into out. Other statuses are errors.
func (h httpJSON) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("geocode request failed with status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func clamp(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if hi > 0 && d > hi {
		return hi
	}
	return d
}
