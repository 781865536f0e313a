package geocode

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"sync"

	"manhole-tracker/core/utils"

	"go.uber.org/zap"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Entry is one cached lookup.
type Entry struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Provider string  `json:"provider,omitempty"`
}

// Coordinate returns the point of the entry.
func (e Entry) Coordinate() Coordinate {
	return Coordinate{Lat: e.Lat, Lng: e.Lng}
}

// Cache is an append-only map from address key to coordinates. It is safe for
// concurrent use.
type Cache struct {
	mu      sync.RWMutex
	path    string
	entries map[string]Entry
	dirty   bool
	logger  *zap.Logger
}

// NewCache returns an empty cache that saves to path.
func NewCache(path string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{path: path, entries: make(map[string]Entry), logger: logger}
}

// Load reads the cache file at path. Problems are logged and yield an empty
// cache; they never fail the caller.
func Load(path string, logger *zap.Logger) *Cache {
	c := NewCache(path, logger)
	log := c.logger.With(zap.String("path", path))

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug("Geocode cache not found, starting empty")
		return c
	}
	if err != nil {
		log.Warn("Failed to read geocode cache, starting empty", zap.Error(err))
		return c
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn("Failed to parse geocode cache, starting empty", zap.Error(err))
		return c
	}

	dropped := 0
	for key, msg := range raw {
		var fields map[string]any
		if err := json.Unmarshal(msg, &fields); err != nil {
			dropped++
			continue
		}
		lat, okLat := utils.ToFloat(fields["lat"])
		lng, okLng := utils.ToFloat(fields["lng"])
		if !okLat || !okLng {
			dropped++
			continue
		}
		provider, _ := fields["provider"].(string)
		c.entries[key] = Entry{Lat: lat, Lng: lng, Provider: provider}
	}
	log.Info("Geocode cache loaded", zap.Int("entries", len(c.entries)), zap.Int("dropped", dropped))
	return c
}

// Lookup returns the cached coordinate of key.
func (c *Cache) Lookup(key string) (Coordinate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e.Coordinate(), ok
}

// Store records a coordinate. An existing key is left untouched and Store
// reports false.
func (c *Cache) Store(key string, coord Coordinate, provider string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return false
	}
	c.entries[key] = Entry{Lat: coord.Lat, Lng: coord.Lng, Provider: provider}
	c.dirty = true
	return true
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Dirty reports whether entries were added since the last load or save.
func (c *Cache) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

// Save writes the cache atomically when it has new entries.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty || c.path == "" {
		return nil
	}

	err := utils.WriteFileAtomic(c.path, 0o644, func(w *bufio.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(c.entries)
	})
	if err != nil {
		return err
	}
	c.dirty = false
	c.logger.Info("Geocode cache saved", zap.String("path", c.path), zap.Int("entries", len(c.entries)))
	return nil
}
