package geocode

import "time"

// Config holds configuration for address geocoding.
type Config struct {
	// Enabled turns enrichment on for sources that lack coordinates.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Provider selects the lookup service (gsi, nominatim, google).
	Provider string `mapstructure:"provider" default:"gsi"`
	// CachePath is the cache file location.
	CachePath string `mapstructure:"cache_path" default:"gmanhole_geocode_cache.json"`
	// SleepSeconds is the base pause between provider calls.
	SleepSeconds float64 `mapstructure:"sleep_seconds" default:"1.1"`
	// TimeoutSeconds bounds a single provider request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"20"`
	// GoogleAPIKey is required by the google provider.
	GoogleAPIKey string `mapstructure:"google_api_key" default:""`
	// UserAgent is sent to the provider.
	UserAgent string `mapstructure:"user_agent" default:"manhole-tracker/1.0 geocode"`
}

// Sleep returns the configured pause between provider calls.
func (c Config) Sleep() time.Duration {
	return time.Duration(c.SleepSeconds * float64(time.Second))
}

// Timeout returns the per-request timeout, 20s when unset.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
