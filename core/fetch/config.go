package fetch

import "time"

// MinRequestDelay is the floor applied to the configured inter-request delay.
const MinRequestDelay = 200 * time.Millisecond

// Config holds configuration for the fetcher.
type Config struct {
	// UserAgent is sent with every request.
	UserAgent string `mapstructure:"user_agent" default:"manhole-tracker/1.0 (+incremental crawler)"`
	// AcceptLanguage is sent when not empty.
	AcceptLanguage string `mapstructure:"accept_language" default:"ja,en;q=0.8"`
	// TimeoutSeconds bounds a single request attempt.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"15"`
	// MaxAttempts is the number of attempts before a transient error becomes a Failure.
	MaxAttempts int `mapstructure:"max_attempts" default:"3"`
	// RetryBaseSeconds is the base unit of the linear backoff.
	RetryBaseSeconds float64 `mapstructure:"retry_base_seconds" default:"1"`
	// RequestDelaySeconds is the pause after every request.
	RequestDelaySeconds float64 `mapstructure:"request_delay_seconds" default:"0.4"`
}

// Timeout returns the per-attempt timeout, 15s when unset.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Attempts returns the attempt budget, 3 when unset.
func (c Config) Attempts() int {
	if c.MaxAttempts <= 0 {
		return 3
	}
	return c.MaxAttempts
}

// RequestDelay returns the inter-request delay, never below MinRequestDelay.
func (c Config) RequestDelay() time.Duration {
	d := seconds(c.RequestDelaySeconds)
	if d < MinRequestDelay {
		return MinRequestDelay
	}
	return d
}

// RetryBase returns the backoff unit, 1s when unset.
func (c Config) RetryBase() time.Duration {
	if c.RetryBaseSeconds <= 0 {
		return time.Second
	}
	return seconds(c.RetryBaseSeconds)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
