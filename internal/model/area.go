package model

// AreaType identifies the kind of area and which field specs apply to it
type AreaType string

const (
	AreaTypeCommunity AreaType = "community"
	AreaTypeCountry   AreaType = "country"
	AreaTypeUnknown   AreaType = "unknown"
)

// KnownAreaTypes lists every area type that has a field schema
var KnownAreaTypes = []AreaType{AreaTypeCommunity, AreaTypeCountry}

// AreaRecord is a raw area as supplied by the external store.
// Tag values are untyped at ingestion (string, number, or nested GeoJSON)
// and become typed only after validation.
type AreaRecord struct {
	ID        string         `json:"id"`
	Tags      map[string]any `json:"tags"`
	CreatedAt string         `json:"created_at,omitempty"`
	UpdatedAt string         `json:"updated_at,omitempty"`
	DeletedAt string         `json:"deleted_at,omitempty"`
}

// Type returns the area type from the "type" tag
func (r AreaRecord) Type() AreaType {
	if t, ok := r.Tags["type"].(string); ok {
		for _, known := range KnownAreaTypes {
			if AreaType(t) == known {
				return known
			}
		}
	}
	return AreaTypeUnknown
}

// Name returns the "name" tag, or "Unknown" when absent
func (r AreaRecord) Name() string {
	if n, ok := r.Tags["name"].(string); ok && n != "" {
		return n
	}
	return "Unknown"
}

// Deleted reports whether the external store has marked the area deleted
func (r AreaRecord) Deleted() bool {
	return r.DeletedAt != ""
}

// NormalizedRecord is an AreaRecord whose tags have all passed validation
// and carry canonical typed values (integers as int64, numbers as float64,
// geometry rewound, area_km2 derived). It is always a fresh copy; the raw
// record is never mutated in place.
type NormalizedRecord struct {
	ID        string         `json:"id"`
	Type      AreaType       `json:"type"`
	Tags      map[string]any `json:"tags"`
	CreatedAt string         `json:"created_at,omitempty"`
	UpdatedAt string         `json:"updated_at,omitempty"`
}

// Clone returns a copy with an independent tag map
func (r *NormalizedRecord) Clone() *NormalizedRecord {
	tags := make(map[string]any, len(r.Tags))
	for k, v := range r.Tags {
		tags[k] = v
	}
	out := *r
	out.Tags = tags
	return &out
}
