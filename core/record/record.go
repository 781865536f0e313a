package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"manhole-tracker/core/utils"
)

// Status is the lifecycle state of a record.
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusDeleted
}

// Provenance keys. They are owned by the record itself and never stored in Fields.
const (
	KeyID          = "id"
	KeyStatus      = "status"
	KeyFirstSeen   = "first_seen"
	KeyAddedAt     = "added_at"
	KeyLastUpdated = "last_updated"

	// legacy keys replaced by last_updated
	keyLastSeen          = "last_seen"
	keySourceLastChecked = "source_last_checked"
)

// Well-known domain field names produced by the source adapters.
const (
	FieldTitle             = "title"
	FieldTitleEn           = "title_en"
	FieldTitleZh           = "title_zh"
	FieldPrefecture        = "prefecture"
	FieldCity              = "city"
	FieldAddress           = "address"
	FieldLat               = "lat"
	FieldLng               = "lng"
	FieldPokemons          = "pokemons"
	FieldPokemonsEn        = "pokemons_en"
	FieldPokemonsZh        = "pokemons_zh"
	FieldDetailURL         = "detail_url"
	FieldPrefectureSiteURL = "prefecture_site_url"
	FieldImageURLs         = "image_urls"
	FieldImagesCount       = "images_count"
	FieldFranchise         = "franchise"
	FieldCharacters        = "characters"
	FieldSeries            = "series"
	FieldSlug              = "slug"
	FieldGeocoded          = "geocoded"
)

// TimeLayout is the serialized timestamp format (RFC3339, UTC, second precision).
const TimeLayout = "2006-01-02T15:04:05Z"

var (
	// ErrInvalidID is returned when an entry has no usable digit-string ID.
	ErrInvalidID = errors.New("record: missing or invalid id")
	// ErrNotObject is returned when an entry is not a JSON object.
	ErrNotObject = errors.New("record: entry is not a JSON object")
)

// Record is one discovered entity.
type Record struct {
	ID          string
	Status      Status
	FirstSeen   time.Time
	AddedAt     time.Time
	LastUpdated time.Time

	// Fields holds the domain fields as compact JSON values.
	Fields map[string]json.RawMessage
}

// New creates an active record from a candidate, stamping every provenance
// timestamp with now.
func New(c Candidate, now time.Time) (*Record, error) {
	now = Stamp(now)
	r := &Record{
		ID:          c.ID,
		Status:      StatusActive,
		FirstSeen:   now,
		AddedAt:     now,
		LastUpdated: now,
		Fields:      make(map[string]json.RawMessage, len(c.Fields)),
	}
	for name, v := range c.Fields {
		if err := r.SetField(name, v); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Stamp normalizes a timestamp to the precision that is persisted.
func Stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// ValidID reports whether id is a non-empty string of ASCII digits.
func ValidID(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// CanonicalID strips leading zeros so "007" and "7" name the same record.
// The zero ID stays "0".
func CanonicalID(id string) string {
	trimmed := strings.TrimLeft(id, "0")
	if trimmed == "" && id != "" {
		return "0"
	}
	return trimmed
}

// CompareIDs orders two digit-string IDs numerically without overflowing.
func CompareIDs(a, b string) int {
	ta := strings.TrimLeft(a, "0")
	tb := strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		if len(ta) < len(tb) {
			return -1
		}
		return 1
	}
	return strings.Compare(ta, tb)
}

// SortIDs sorts ids in ascending numeric order.
func SortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		if c := CompareIDs(ids[i], ids[j]); c != 0 {
			return c < 0
		}
		return ids[i] < ids[j]
	})
}

// Field decodes a domain field. ok is false when the field is absent.
func (r *Record) Field(name string) (v any, ok bool) {
	raw, ok := r.Fields[name]
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return v, true
}

// StringField returns a string field or "" when absent or not a string.
func (r *Record) StringField(name string) string {
	v, _ := r.Field(name)
	s, _ := v.(string)
	return s
}

// SetField stores v under name as compact JSON.
func (r *Record) SetField(name string, v any) error {
	raw, err := encodeValue(v)
	if err != nil {
		return fmt.Errorf("record %s: field %s: %w", r.ID, name, err)
	}
	if r.Fields == nil {
		r.Fields = make(map[string]json.RawMessage)
	}
	r.Fields[name] = raw
	return nil
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	c := *r
	c.Fields = make(map[string]json.RawMessage, len(r.Fields))
	for k, v := range r.Fields {
		c.Fields[k] = append(json.RawMessage(nil), v...)
	}
	return &c
}

// Normalize upgrades a record loaded from a legacy file in place. Missing
// provenance is filled in and the deprecated last_seen/source_last_checked keys
// are folded into last_updated. It reports whether anything changed.
func (r *Record) Normalize(now time.Time) bool {
	changed := false
	if r.Status == "" {
		r.Status = StatusActive
		changed = true
	}
	if r.FirstSeen.IsZero() {
		if !r.AddedAt.IsZero() {
			r.FirstSeen = r.AddedAt
		} else {
			r.FirstSeen = Stamp(now)
		}
		changed = true
	}
	if r.AddedAt.IsZero() {
		r.AddedAt = r.FirstSeen
		changed = true
	}
	if r.LastUpdated.IsZero() {
		r.LastUpdated = r.FirstSeen
		for _, legacy := range []string{keyLastSeen, keySourceLastChecked} {
			if t, ok := parseTime(r.StringField(legacy)); ok {
				r.LastUpdated = t
				break
			}
		}
		changed = true
	}
	for _, legacy := range []string{keyLastSeen, keySourceLastChecked} {
		if _, ok := r.Fields[legacy]; ok {
			delete(r.Fields, legacy)
			changed = true
		}
	}
	return changed
}

// MarshalJSON renders the record as a flat object: id first, domain fields in key
// order, then provenance.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeKV(&buf, KeyID, mustEncode(r.ID))

	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		raw := r.Fields[name]
		if !json.Valid(raw) {
			return nil, fmt.Errorf("record %s: field %s: invalid JSON value", r.ID, name)
		}
		buf.WriteByte(',')
		writeKV(&buf, name, raw)
	}

	for _, kv := range []struct {
		key string
		t   time.Time
	}{
		{KeyFirstSeen, r.FirstSeen},
		{KeyAddedAt, r.AddedAt},
		{KeyLastUpdated, r.LastUpdated},
	} {
		buf.WriteByte(',')
		writeKV(&buf, kv.key, mustEncode(formatTime(kv.t)))
	}
	buf.WriteByte(',')
	writeKV(&buf, KeyStatus, mustEncode(string(r.Status)))
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts a flat object. The id may be a string or a JSON number.
// Missing provenance is left zero for Normalize to fill in.
func (r *Record) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrNotObject
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}

	out := Record{Fields: make(map[string]json.RawMessage, len(obj))}
	rawID, ok := obj[KeyID]
	if !ok {
		return ErrInvalidID
	}
	id, err := decodeID(rawID)
	if err != nil {
		return err
	}
	out.ID = id

	if raw, ok := obj[KeyStatus]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("record %s: status: %w", id, err)
		}
		out.Status = Status(s)
		if s != "" && !out.Status.Valid() {
			return fmt.Errorf("record %s: unknown status %q", id, s)
		}
	}

	for key, dst := range map[string]*time.Time{
		KeyFirstSeen:   &out.FirstSeen,
		KeyAddedAt:     &out.AddedAt,
		KeyLastUpdated: &out.LastUpdated,
	} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("record %s: %s: %w", id, key, err)
		}
		if s == "" {
			continue
		}
		t, ok := parseTime(s)
		if !ok {
			return fmt.Errorf("record %s: %s: invalid timestamp %q", id, key, s)
		}
		*dst = t
	}

	for key, raw := range obj {
		switch key {
		case KeyID, KeyStatus, KeyFirstSeen, KeyAddedAt, KeyLastUpdated:
			continue
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return fmt.Errorf("record %s: field %s: %w", id, key, err)
		}
		out.Fields[key] = compact.Bytes()
	}

	*r = out
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", ErrInvalidID
	}
	id := strings.TrimSpace(utils.ToString(v))
	if !ValidID(id) {
		return "", ErrInvalidID
	}
	return CanonicalID(id), nil
}

var timeLayouts = []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Stamp(t), true
		}
	}
	return time.Time{}, false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func writeKV(buf *bytes.Buffer, key string, value []byte) {
	buf.Write(mustEncode(key))
	buf.WriteByte(':')
	buf.Write(value)
}

// encodeValue marshals v without HTML escaping and without a trailing newline.
func encodeValue(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func mustEncode(v any) []byte {
	raw, err := encodeValue(v)
	if err != nil {
		// strings never fail to encode
		panic(err)
	}
	return raw
}
