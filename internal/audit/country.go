package audit

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/ppiankov/arealint/internal/model"
)

// countryEntry is one country boundary in the containment index
type countryEntry struct {
	id    string
	name  string
	bound orb.Bound
	geom  orb.Geometry
}

// countryIndex answers which country boundary contains a point. Entries keep
// corpus order, which is sorted by area id, so overlapping boundaries
// resolve deterministically to the lowest id.
type countryIndex struct {
	entries []countryEntry
}

// buildCountryIndex collects every non-deleted country result that carries a
// normalized geometry. Invalid or boundary-less countries simply contribute
// nothing.
func buildCountryIndex(results []AreaResult) *countryIndex {
	idx := &countryIndex{}
	for _, res := range results {
		if res.Type != model.AreaTypeCountry || res.Deleted || len(res.Errors) > 0 {
			continue
		}
		geom := resultGeometry(res)
		if geom == nil {
			continue
		}
		idx.entries = append(idx.entries, countryEntry{
			id:    res.AreaID,
			name:  res.Name,
			bound: geom.Bound(),
			geom:  geom,
		})
	}
	return idx
}

// locate returns the country containing the point. The bounding box filter
// skips the expensive ring test for the vast majority of candidates.
func (idx *countryIndex) locate(pt orb.Point) (string, string, bool) {
	for _, e := range idx.entries {
		if !e.bound.Contains(pt) {
			continue
		}
		if geometryContains(e.geom, pt) {
			return e.id, e.name, true
		}
	}
	return "", "", false
}

func geometryContains(geom orb.Geometry, pt orb.Point) bool {
	switch g := geom.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, pt)
	}
	return false
}

// resultGeometry extracts the normalized boundary from a result's tags
func resultGeometry(res AreaResult) orb.Geometry {
	g, ok := res.Tags["geo_json"].(*geojson.Geometry)
	if !ok || g == nil {
		return nil
	}
	return g.Geometry()
}

// deriveCountries stamps every valid community result with the country
// whose boundary contains its centroid. A community outside every known
// boundary is marked "Unknown"; communities without geometry and the
// countries themselves are left blank.
func deriveCountries(results []AreaResult) {
	idx := buildCountryIndex(results)
	if len(idx.entries) == 0 {
		return
	}

	for i := range results {
		res := &results[i]
		if res.Type != model.AreaTypeCommunity || res.Deleted || len(res.Errors) > 0 {
			continue
		}
		geom := resultGeometry(*res)
		if geom == nil {
			continue
		}
		centroid, _ := planar.CentroidArea(geom)
		if id, name, ok := idx.locate(centroid); ok {
			res.CountryID = id
			res.CountryName = name
		} else {
			res.CountryName = "Unknown"
		}
	}
}
