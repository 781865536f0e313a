package geocode

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// GoogleEndpoint is the Google Maps geocoding API.
const GoogleEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleProvider queries the Google geocoding API. It is billed per request.
type GoogleProvider struct {
	httpJSON
	Endpoint string
	APIKey   string
}

type googleResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location *Coordinate `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (p *GoogleProvider) Name() string {
	return ProviderGoogle
}

func (p *GoogleProvider) Lookup(ctx context.Context, q Query) (Coordinate, bool, error) {
	params := url.Values{
		"address":  {q.Prefecture + q.City + q.Address},
		"language": {"ja"},
		"key":      {p.APIKey},
	}
	var resp googleResponse
	if err := p.get(ctx, p.Endpoint+"?"+params.Encode(), &resp); err != nil {
		return Coordinate{}, false, err
	}
	switch resp.Status {
	case "", "OK", "ZERO_RESULTS":
	default:
		return Coordinate{}, false, fmt.Errorf("google geocode status %s", resp.Status)
	}
	if len(resp.Results) == 0 || resp.Results[0].Geometry.Location == nil {
		return Coordinate{}, false, nil
	}
	return *resp.Results[0].Geometry.Location, true, nil
}

// Pause keeps Google calls between 0.2s and 0.5s apart.
func (p *GoogleProvider) Pause(configured time.Duration) time.Duration {
	return clamp(configured, 200*time.Millisecond, 500*time.Millisecond)
}
