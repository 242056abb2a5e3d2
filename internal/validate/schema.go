package validate

import (
	"fmt"

	"github.com/ppiankov/arealint/internal/model"
)

// Record validates a raw area record against the field schema for its type
// and returns a normalized copy. All field errors are collected in one
// pass, never short-circuited, so a single call surfaces every problem.
// Tags not covered by any spec pass through unchanged as opaque custom
// fields. When the geometry tag is present and valid, area_km2 is always
// recomputed from it so geometry and area can never disagree.
func Record(rec model.AreaRecord) (*model.NormalizedRecord, []model.ValidationError) {
	areaType := rec.Type()
	specs := model.SpecsFor(areaType)
	if specs == nil {
		return nil, []model.ValidationError{{
			Field:   "type",
			Kind:    model.ErrNotAllowed,
			Message: fmt.Sprintf("unknown area type %v", rec.Tags["type"]),
		}}
	}

	tags := make(map[string]any, len(rec.Tags))
	for k, v := range rec.Tags {
		tags[k] = v
	}

	var errs []model.ValidationError
	var geo *GeometryResult

	for _, spec := range specs {
		raw, present := rec.Tags[spec.Key]
		if !present {
			if spec.Required {
				errs = append(errs, model.ValidationError{
					Field:   spec.Key,
					Kind:    model.ErrMissing,
					Message: "required field is missing",
				})
			}
			continue
		}

		if spec.Kind == model.KindGeometry {
			result, verr := Geometry(raw)
			if verr != nil {
				errs = append(errs, *verr)
				continue
			}
			geo = result
			tags[spec.Key] = result.Geometry
			continue
		}

		normalized, verr := Field(spec, raw)
		if verr != nil {
			errs = append(errs, *verr)
			continue
		}
		tags[spec.Key] = normalized
	}

	if len(errs) > 0 {
		return nil, errs
	}

	// The derived area overrides any caller-provided value.
	if geo != nil {
		tags["area_km2"] = geo.AreaKm2
	}

	return &model.NormalizedRecord{
		ID:        rec.ID,
		Type:      areaType,
		Tags:      tags,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}
