package geocode

import (
	"context"
	"net/url"
	"time"
)

// GSIEndpoint is the address search API of the Geospatial Information Authority of Japan.
const GSIEndpoint = "https://msearch.gsi.go.jp/address-search/AddressSearch"

// GSIProvider queries the GSI address search.
type GSIProvider struct {
	httpJSON
	Endpoint string
}

type gsiFeature struct {
	Geometry struct {
		// Coordinates is [lng, lat].
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
}

func (p *GSIProvider) Name() string {
	return ProviderGSI
}

func (p *GSIProvider) Lookup(ctx context.Context, q Query) (Coordinate, bool, error) {
	params := url.Values{"q": {q.Prefecture + q.City + q.Address}}
	var features []gsiFeature
	if err := p.get(ctx, p.Endpoint+"?"+params.Encode(), &features); err != nil {
		return Coordinate{}, false, err
	}
	if len(features) == 0 || len(features[0].Geometry.Coordinates) < 2 {
		return Coordinate{}, false, nil
	}
	c := features[0].Geometry.Coordinates
	return Coordinate{Lat: c[1], Lng: c[0]}, true, nil
}

// Pause keeps GSI calls between 0.3s and 0.6s apart.
func (p *GSIProvider) Pause(configured time.Duration) time.Duration {
	return clamp(configured, 300*time.Millisecond, 600*time.Millisecond)
}
