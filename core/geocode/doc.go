// Package geocode turns Japanese addresses into coordinates.
//
// Lookups go through a persistent, append-only Cache keyed by
// "prefecture|city|normalized address". Only misses reach a Provider (GSI,
// Nominatim or Google), and concurrent lookups of the same key are collapsed
// into one provider call. Providers are paced with the same Sleeper the fetcher
// uses.
//
// # Cache file
//
// The cache is a JSON object mapping keys to {"lat", "lng", "provider"}. A
// missing or corrupt file is not an error: the cache starts empty and a warning
// is logged. Entries are never overwritten or evicted.
//
// # Usage
//
//	cache := geocode.Load(cfg.Geocode.CachePath, logg)
//	provider, _ := geocode.NewProvider(cfg.Geocode, nil)
//	res := geocode.NewResolver(cache, provider, cfg.Geocode.Sleep(), fetch.RealSleeper{}, logg)
//	enricher := geocode.NewEnricher(res, logg)
//	enricher.Enrich(ctx, candidate)
//	_ = cache.Save()
package geocode
