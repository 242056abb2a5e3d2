package model

// ValueKind selects the validation applied to a tag value
type ValueKind string

const (
	KindText     ValueKind = "text"
	KindInteger  ValueKind = "integer"
	KindNumber   ValueKind = "number"
	KindDate     ValueKind = "date"
	KindURL      ValueKind = "url"
	KindEmail    ValueKind = "email"
	KindPhone    ValueKind = "tel"
	KindSelect   ValueKind = "select"
	KindGeometry ValueKind = "geo_json"
)

// FieldSpec describes one tag of an area type. Specs are immutable and
// defined per area type at process start.
type FieldSpec struct {
	Key           string
	Kind          ValueKind
	Required      bool
	AllowedValues []string // case-insensitive match, canonical casing returned
}

// Continents are the allowed values for the community continent tag
var Continents = []string{
	"africa", "asia", "europe", "north-america", "oceania", "south-america",
}

var communitySpecs = []FieldSpec{
	{Key: "name", Kind: KindText, Required: true},
	{Key: "url_alias", Kind: KindText, Required: true},
	{Key: "continent", Kind: KindSelect, Required: true, AllowedValues: Continents},
	{Key: "icon:square", Kind: KindText, Required: true},
	{Key: "population", Kind: KindNumber, Required: true},
	{Key: "population:date", Kind: KindDate, Required: true},
	{Key: "area_km2", Kind: KindNumber},
	{Key: "verified:date", Kind: KindDate},
	{Key: "organization", Kind: KindText},
	{Key: "language", Kind: KindText},
	{Key: "description", Kind: KindText},
	{Key: "contact:twitter", Kind: KindURL},
	{Key: "contact:website", Kind: KindURL},
	{Key: "contact:email", Kind: KindEmail},
	{Key: "contact:telegram", Kind: KindURL},
	{Key: "contact:signal", Kind: KindURL},
	{Key: "contact:whatsapp", Kind: KindURL},
	{Key: "contact:nostr", Kind: KindText},
	{Key: "contact:meetup", Kind: KindURL},
	{Key: "contact:discord", Kind: KindURL},
	{Key: "contact:instagram", Kind: KindURL},
	{Key: "contact:youtube", Kind: KindURL},
	{Key: "contact:facebook", Kind: KindURL},
	{Key: "contact:linkedin", Kind: KindURL},
	{Key: "contact:rss", Kind: KindURL},
	{Key: "contact:phone", Kind: KindPhone},
	{Key: "contact:github", Kind: KindURL},
	{Key: "contact:matrix", Kind: KindURL},
	{Key: "contact:geyser", Kind: KindURL},
	{Key: "tips:lightning_address", Kind: KindText},
	// Geometry is validated last so the derived area_km2 wins over any
	// hand-entered value.
	{Key: "geo_json", Kind: KindGeometry},
}

var countrySpecs = []FieldSpec{
	{Key: "name", Kind: KindText, Required: true},
	{Key: "population", Kind: KindNumber},
	{Key: "population:date", Kind: KindDate},
	{Key: "area_km2", Kind: KindNumber},
	{Key: "description", Kind: KindText},
	{Key: "geo_json", Kind: KindGeometry},
}

// SpecsFor returns the ordered field specs for an area type, or nil for an
// unknown type. The returned slice must not be modified.
func SpecsFor(t AreaType) []FieldSpec {
	switch t {
	case AreaTypeCommunity:
		return communitySpecs
	case AreaTypeCountry:
		return countrySpecs
	default:
		return nil
	}
}
