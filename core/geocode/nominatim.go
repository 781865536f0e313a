package geocode

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// NominatimEndpoint is the public OpenStreetMap search API.
const NominatimEndpoint = "https://nominatim.openstreetmap.org/search"

// NominatimProvider queries OpenStreetMap Nominatim. Its usage policy allows at
// most one request per second.
type NominatimProvider struct {
	httpJSON
	Endpoint string
}

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (p *NominatimProvider) Name() string {
	return ProviderNominatim
}

func (p *NominatimProvider) Lookup(ctx context.Context, q Query) (Coordinate, bool, error) {
	query := strings.TrimSpace(q.Prefecture + q.City + " " + q.Address + ", Japan")
	params := url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}
	var places []nominatimPlace
	if err := p.get(ctx, p.Endpoint+"?"+params.Encode(), &places); err != nil {
		return Coordinate{}, false, err
	}
	if len(places) == 0 {
		return Coordinate{}, false, nil
	}
	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return Coordinate{}, false, err
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return Coordinate{}, false, err
	}
	return Coordinate{Lat: lat, Lng: lng}, true, nil
}

// Pause never goes below one second.
func (p *NominatimProvider) Pause(configured time.Duration) time.Duration {
	return clamp(configured, time.Second, 0)
}
