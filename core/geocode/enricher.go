package geocode

import (
	"context"

	"manhole-tracker/core/record"

	"go.uber.org/zap"
)

// Enricher fills in coordinates for candidates that only carry an address.
type Enricher struct {
	resolver *Resolver
	logger   *zap.Logger
}

// NewEnricher creates an enricher.
func NewEnricher(resolver *Resolver, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{resolver: resolver, logger: logger}
}

// Enrich sets lat, lng and geocoded on cand when it has no coordinates. It
// reports whether coordinates were added. Candidates that already have
// coordinates are left alone.
func (e *Enricher) Enrich(ctx context.Context, cand record.Candidate) bool {
	if cand.HasCoordinates() {
		return false
	}
	coord, ok := e.resolver.Resolve(ctx,
		cand.String(record.FieldPrefecture),
		cand.String(record.FieldCity),
		cand.String(record.FieldAddress),
	)
	if !ok {
		cand.Set(record.FieldGeocoded, false)
		e.logger.Debug("Address not geocoded", zap.String("id", cand.ID))
		return false
	}
	cand.Set(record.FieldLat, coord.Lat)
	cand.Set(record.FieldLng, coord.Lng)
	cand.Set(record.FieldGeocoded, true)
	return true
}
