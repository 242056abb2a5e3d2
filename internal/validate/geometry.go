package validate

import (
	"encoding/json"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/ppiankov/arealint/internal/model"
)

// authalicRadius is the GRS 80 authalic sphere radius in meters. Projecting
// onto a sphere of this radius keeps surface areas consistent with the
// ellipsoid to well under the 0.1% tolerance the derived area carries.
const authalicRadius = 6371007.1809

// GeometryResult is the output of a successful geometry normalization
type GeometryResult struct {
	Geometry *geojson.Geometry // rewound: exterior CCW, holes CW
	AreaKm2  float64           // equal-area surface area, 2 decimals
}

// Geometry validates a raw geo_json value (JSON string or parsed object),
// corrects ring winding, and derives the surface area via an Albers
// equal-area projection. Rewinding is a pure transform: the input is never
// mutated and an already-canonical geometry round-trips unchanged.
func Geometry(raw any) (*GeometryResult, *model.ValidationError) {
	data, verr := geometryBytes(raw)
	if verr != nil {
		return nil, verr
	}

	// Check the declared type before handing off to the decoder so that a
	// LineString reports geometry_invalid, not a parse failure.
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, geoFormatInvalid("invalid JSON")
	}
	if header.Type != "Polygon" && header.Type != "MultiPolygon" {
		return nil, geoInvalid("only Polygon and MultiPolygon types are accepted")
	}

	decoded, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, geoFormatInvalid("malformed geometry: " + err.Error())
	}

	var mp orb.MultiPolygon
	switch g := decoded.Geometry().(type) {
	case orb.Polygon:
		mp = orb.MultiPolygon{g.Clone()}
	case orb.MultiPolygon:
		mp = g.Clone()
	default:
		return nil, geoInvalid("only Polygon and MultiPolygon types are accepted")
	}

	if len(mp) == 0 {
		return nil, geoInvalid("geometry has no polygons")
	}
	for _, poly := range mp {
		if len(poly) == 0 {
			return nil, geoInvalid("polygon has no rings")
		}
		for _, ring := range poly {
			if verr := checkRing(ring); verr != nil {
				return nil, verr
			}
		}
	}

	rewind(mp)

	areaKm2 := round2(surfaceAreaM2(mp) / 1e6)

	var out *geojson.Geometry
	if header.Type == "Polygon" {
		out = geojson.NewGeometry(mp[0])
	} else {
		out = geojson.NewGeometry(mp)
	}
	return &GeometryResult{Geometry: out, AreaKm2: areaKm2}, nil
}

// checkRing enforces the structural invariants on one ring: closed, at
// least 4 points, finite in-range coordinates, no antimeridian crossing.
func checkRing(ring orb.Ring) *model.ValidationError {
	if len(ring) < 4 {
		return geoInvalid("ring must have at least 4 points")
	}
	if !ring.Closed() {
		return geoInvalid("ring is not closed (first point must equal last)")
	}
	for _, p := range ring {
		lon, lat := p[0], p[1]
		if math.IsNaN(lon) || math.IsInf(lon, 0) || math.IsNaN(lat) || math.IsInf(lat, 0) {
			return geoInvalid("coordinates must be finite numbers")
		}
		if lon < -180 || lon > 180 {
			return geoInvalid("longitude out of range [-180, 180]")
		}
		if lat < -90 || lat > 90 {
			return geoInvalid("latitude out of range [-90, 90]")
		}
	}
	for i := 1; i < len(ring); i++ {
		// A jump of more than 180 degrees between consecutive vertices means
		// the ring crosses the antimeridian. The planar area of such a ring
		// is wildly inflated, so it is rejected rather than silently kept.
		if math.Abs(ring[i][0]-ring[i-1][0]) > 180 {
			return geoInvalid("ring crosses the antimeridian, split the polygon at 180 degrees")
		}
	}
	return nil
}

// rewind orients rings in place to the right-hand rule: exterior rings
// counter-clockwise, holes clockwise. Never fails.
func rewind(mp orb.MultiPolygon) {
	for _, poly := range mp {
		for i, ring := range poly {
			want := orb.CCW
			if i > 0 {
				want = orb.CW
			}
			if ring.Orientation() != want {
				ring.Reverse()
			}
		}
	}
}

// surfaceAreaM2 projects the geometry onto an Albers equal-area plane and
// returns its planar area in square meters.
func surfaceAreaM2(mp orb.MultiPolygon) float64 {
	proj := albersFor(mp.Bound())
	projected := make(orb.MultiPolygon, len(mp))
	for i, poly := range mp {
		pp := make(orb.Polygon, len(poly))
		for j, ring := range poly {
			pr := make(orb.Ring, len(ring))
			for k, pt := range ring {
				pr[k] = proj(pt)
			}
			pp[j] = pr
		}
		projected[i] = pp
	}
	return math.Abs(planar.Area(projected))
}

// albersFor builds an Albers equal-area conic projection with standard
// parallels at the geometry's latitude bounds, matching the conventional
// per-geometry parameterization. When the parallels cancel out (symmetric
// about the equator) the conic degenerates, so a Lambert cylindrical
// equal-area projection takes over; both preserve area exactly on the
// sphere.
func albersFor(bound orb.Bound) func(orb.Point) orb.Point {
	phi1 := bound.Min[1] * math.Pi / 180
	phi2 := bound.Max[1] * math.Pi / 180
	lon0 := (bound.Min[0] + bound.Max[0]) / 2 * math.Pi / 180
	lat0 := (bound.Min[1] + bound.Max[1]) / 2 * math.Pi / 180

	n := (math.Sin(phi1) + math.Sin(phi2)) / 2
	if math.Abs(n) < 1e-9 {
		cosStd := math.Cos(phi1)
		if cosStd == 0 {
			cosStd = 1
		}
		return func(p orb.Point) orb.Point {
			lon := p[0]*math.Pi/180 - lon0
			lat := p[1] * math.Pi / 180
			return orb.Point{
				authalicRadius * lon * cosStd,
				authalicRadius * math.Sin(lat) / cosStd,
			}
		}
	}

	c := math.Cos(phi1)*math.Cos(phi1) + 2*n*math.Sin(phi1)
	rho0 := authalicRadius * math.Sqrt(c-2*n*math.Sin(lat0)) / n
	return func(p orb.Point) orb.Point {
		lon := p[0]*math.Pi/180 - lon0
		lat := p[1] * math.Pi / 180
		rho := authalicRadius * math.Sqrt(c-2*n*math.Sin(lat)) / n
		theta := n * lon
		return orb.Point{
			rho * math.Sin(theta),
			rho0 - rho*math.Cos(theta),
		}
	}
}

// geometryBytes normalizes the accepted input shapes to raw JSON
func geometryBytes(raw any) ([]byte, *model.ValidationError) {
	switch v := raw.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, geoFormatInvalid("geometry is not JSON-encodable")
		}
		return data, nil
	case *geojson.Geometry:
		data, err := v.MarshalJSON()
		if err != nil {
			return nil, geoFormatInvalid("geometry is not JSON-encodable")
		}
		return data, nil
	default:
		return nil, geoFormatInvalid("geometry must be a JSON object or a JSON string")
	}
}

func geoInvalid(msg string) *model.ValidationError {
	return &model.ValidationError{Field: "geo_json", Kind: model.ErrGeometryInvalid, Message: msg}
}

func geoFormatInvalid(msg string) *model.ValidationError {
	return &model.ValidationError{Field: "geo_json", Kind: model.ErrFormatInvalid, Message: msg}
}
