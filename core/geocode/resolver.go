package geocode

import (
	"context"
	"time"

	"manhole-tracker/core/fetch"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Resolver answers lookups from the cache, falling back to a provider.
type Resolver struct {
	cache    *Cache
	provider Provider
	pause    time.Duration
	sleeper  fetch.Sleeper
	logger   *zap.Logger
	group    singleflight.Group
}

type lookupResult struct {
	coord Coordinate
	ok    bool
}

// NewResolver creates a resolver. A nil provider makes it cache-only.
func NewResolver(cache *Cache, provider Provider, pause time.Duration, sleeper fetch.Sleeper, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sleeper == nil {
		sleeper = fetch.RealSleeper{}
	}
	if provider != nil {
		pause = provider.Pause(pause)
	}
	return &Resolver{
		cache:    cache,
		provider: provider,
		pause:    pause,
		sleeper:  sleeper,
		logger:   logger,
	}
}

// Resolve returns the coordinate of an address. ok is false when the address is
// incomplete or no provider knows it. Provider errors are logged, not returned.
func (r *Resolver) Resolve(ctx context.Context, prefecture, city, address string) (Coordinate, bool) {
	if address == "" || prefecture == "" {
		return Coordinate{}, false
	}
	key := Key(prefecture, city, address)
	if c, ok := r.cache.Lookup(key); ok {
		r.logger.Debug("Geocode cache hit", zap.String("key", key))
		return c, true
	}
	if r.provider == nil {
		return Coordinate{}, false
	}

	v, _, _ := r.group.Do(key, func() (any, error) {
		if c, ok := r.cache.Lookup(key); ok {
			return lookupResult{coord: c, ok: true}, nil
		}
		q := Query{Prefecture: prefecture, City: city, Address: NormalizeAddress(address)}
		defer r.wait(ctx)
		c, ok, err := r.provider.Lookup(ctx, q)
		if err != nil {
			r.logger.Debug("Geocode lookup failed",
				zap.String("provider", r.provider.Name()),
				zap.String("key", key),
				zap.Error(err),
			)
			return lookupResult{}, nil
		}
		if !ok {
			r.logger.Debug("Geocode lookup found nothing", zap.String("key", key))
			return lookupResult{}, nil
		}
		r.cache.Store(key, c, r.provider.Name())
		r.logger.Info("Geocoded address",
			zap.String("provider", r.provider.Name()),
			zap.String("key", key),
			zap.Float64("lat", c.Lat),
			zap.Float64("lng", c.Lng),
		)
		return lookupResult{coord: c, ok: true}, nil
	})
	res := v.(lookupResult)
	return res.coord, res.ok
}

func (r *Resolver) wait(ctx context.Context) {
	if err := r.sleeper.Sleep(ctx, r.pause); err != nil {
		r.logger.Debug("Geocode pause interrupted", zap.Error(err))
	}
}
