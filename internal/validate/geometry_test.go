package validate

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/ppiankov/arealint/internal/model"
)

// sphericalQuadKm2 is the exact surface area of a lon/lat aligned
// quadrilateral on the authalic sphere, in square kilometers.
func sphericalQuadKm2(lon1, lat1, lon2, lat2 float64) float64 {
	dLon := (lon2 - lon1) * math.Pi / 180
	return authalicRadius * authalicRadius * dLon *
		(math.Sin(lat2*math.Pi/180) - math.Sin(lat1*math.Pi/180)) / 1e6
}

func TestGeometry_ValidPolygon(t *testing.T) {
	// Exterior ring in clockwise order; normalization must flip it.
	raw := `{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[1,0],[0,0]]]}`

	result, verr := Geometry(raw)
	if verr != nil {
		t.Fatalf("Expected valid geometry, got %v", verr)
	}

	poly, ok := result.Geometry.Geometry().(orb.Polygon)
	if !ok {
		t.Fatalf("Expected Polygon output, got %T", result.Geometry.Geometry())
	}
	if poly[0].Orientation() != orb.CCW {
		t.Error("Expected exterior ring rewound to counter-clockwise")
	}

	expected := sphericalQuadKm2(0, 0, 1, 1)
	if math.Abs(result.AreaKm2-expected)/expected > 0.001 {
		t.Errorf("Expected area near %.2f km2, got %.2f", expected, result.AreaKm2)
	}
}

func TestGeometry_RewindIdempotent(t *testing.T) {
	raw := `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`

	first, verr := Geometry(raw)
	if verr != nil {
		t.Fatalf("Expected valid geometry, got %v", verr)
	}
	second, verr := Geometry(first.Geometry)
	if verr != nil {
		t.Fatalf("Expected re-normalization to succeed, got %v", verr)
	}

	if !first.Geometry.Geometry().(orb.Polygon).Equal(second.Geometry.Geometry().(orb.Polygon)) {
		t.Error("Expected already-canonical geometry to round-trip unchanged")
	}
	if first.AreaKm2 != second.AreaKm2 {
		t.Errorf("Expected stable area, got %.2f then %.2f", first.AreaKm2, second.AreaKm2)
	}
}

func TestGeometry_HoleSubtracted(t *testing.T) {
	// Hole supplied counter-clockwise; normalization must flip it to
	// clockwise and its area must still subtract.
	raw := `{"type":"Polygon","coordinates":[
		[[0,0],[1,0],[1,1],[0,1],[0,0]],
		[[0.25,0.25],[0.75,0.25],[0.75,0.75],[0.25,0.75],[0.25,0.25]]
	]}`

	result, verr := Geometry(raw)
	if verr != nil {
		t.Fatalf("Expected valid geometry, got %v", verr)
	}

	poly := result.Geometry.Geometry().(orb.Polygon)
	if poly[1].Orientation() != orb.CW {
		t.Error("Expected hole rewound to clockwise")
	}

	expected := sphericalQuadKm2(0, 0, 1, 1) - sphericalQuadKm2(0.25, 0.25, 0.75, 0.75)
	if math.Abs(result.AreaKm2-expected)/expected > 0.001 {
		t.Errorf("Expected area near %.2f km2, got %.2f", expected, result.AreaKm2)
	}
}

func TestGeometry_MultiPolygon(t *testing.T) {
	raw := `{"type":"MultiPolygon","coordinates":[
		[[[0,0],[1,0],[1,1],[0,1],[0,0]]],
		[[[10,10],[11,10],[11,11],[10,11],[10,10]]]
	]}`

	result, verr := Geometry(raw)
	if verr != nil {
		t.Fatalf("Expected valid geometry, got %v", verr)
	}
	if _, ok := result.Geometry.Geometry().(orb.MultiPolygon); !ok {
		t.Fatalf("Expected MultiPolygon output, got %T", result.Geometry.Geometry())
	}
	if result.AreaKm2 <= 0 {
		t.Errorf("Expected positive area, got %.2f", result.AreaKm2)
	}
}

func TestGeometry_Invalid(t *testing.T) {
	tests := []struct {
		raw     string
		errKind model.ErrorKind
		desc    string
	}{
		{
			raw:     `{"type":"LineString","coordinates":[[0,0],[1,1]]}`,
			errKind: model.ErrGeometryInvalid,
			desc:    "LineString rejected by type",
		},
		{
			raw:     `{"type":"Point","coordinates":[0,0]}`,
			errKind: model.ErrGeometryInvalid,
			desc:    "Point rejected by type",
		},
		{
			raw:     `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1]]]}`,
			errKind: model.ErrGeometryInvalid,
			desc:    "unclosed ring",
		},
		{
			raw:     `{"type":"Polygon","coordinates":[[[0,0],[1,1],[0,0]]]}`,
			errKind: model.ErrGeometryInvalid,
			desc:    "fewer than 4 points",
		},
		{
			raw:     `{"type":"Polygon","coordinates":[[[200,0],[201,0],[201,1],[200,1],[200,0]]]}`,
			errKind: model.ErrGeometryInvalid,
			desc:    "longitude out of range",
		},
		{
			raw:     `{"type":"Polygon","coordinates":[[[0,91],[1,91],[1,92],[0,92],[0,91]]]}`,
			errKind: model.ErrGeometryInvalid,
			desc:    "latitude out of range",
		},
		{
			raw:     `{"type":"Polygon","coordinates":[[[179,0],[-179,0],[-179,1],[179,1],[179,0]]]}`,
			errKind: model.ErrGeometryInvalid,
			desc:    "antimeridian crossing",
		},
		{
			raw:     `{"type":"Polygon","coordinates":[]}`,
			errKind: model.ErrGeometryInvalid,
			desc:    "polygon with no rings",
		},
		{
			raw:     `{"type":"MultiPolygon","coordinates":[]}`,
			errKind: model.ErrGeometryInvalid,
			desc:    "multipolygon with no polygons",
		},
		{
			raw:     `{not json`,
			errKind: model.ErrFormatInvalid,
			desc:    "malformed JSON",
		},
	}

	for _, tt := range tests {
		_, verr := Geometry(tt.raw)
		if verr == nil {
			t.Errorf("%s: expected error, got none", tt.desc)
			continue
		}
		if verr.Kind != tt.errKind {
			t.Errorf("%s: expected %s, got %s (%s)", tt.desc, tt.errKind, verr.Kind, verr.Message)
		}
		if verr.Field != "geo_json" {
			t.Errorf("%s: expected field geo_json, got %s", tt.desc, verr.Field)
		}
	}
}

func TestGeometry_MapInput(t *testing.T) {
	raw := map[string]any{
		"type": "Polygon",
		"coordinates": []any{
			[]any{
				[]any{0.0, 0.0}, []any{1.0, 0.0}, []any{1.0, 1.0}, []any{0.0, 1.0}, []any{0.0, 0.0},
			},
		},
	}

	result, verr := Geometry(raw)
	if verr != nil {
		t.Fatalf("Expected parsed-object geometry to validate, got %v", verr)
	}
	if result.AreaKm2 <= 0 {
		t.Errorf("Expected positive area, got %.2f", result.AreaKm2)
	}
}

func TestGeometry_RejectsNonGeometryInput(t *testing.T) {
	if _, verr := Geometry(42); verr == nil || verr.Kind != model.ErrFormatInvalid {
		t.Errorf("Expected format_invalid for numeric input, got %v", verr)
	}
}
