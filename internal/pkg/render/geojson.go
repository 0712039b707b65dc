package render

import (
	"encoding/json"
	"fmt"

	"github.com/peterstace/simplefeatures/geom"

	"github.com/samirrijal/cumulus/internal/core/domain"
)

// GeoJSON exports the results of s as a FeatureCollection of WGS 84 points.
func GeoJSON(s *domain.Snapshot) ([]byte, error) {
	fc := make(geom.GeoJSONFeatureCollection, 0, len(s.Results))
	for _, r := range s.Results {
		pt, err := geom.NewPoint(geom.Coordinates{
			XY:   geom.XY{X: r.Crossing.Coordinates.Lon, Y: r.Crossing.Coordinates.Lat},
			Type: geom.DimXY,
		})
		if err != nil {
			return nil, fmt.Errorf("crossing %q point: %w", r.Crossing.Name, err)
		}

		props := map[string]any{
			"name":          r.Crossing.Name,
			"borderNumber":  r.BorderNumber,
			"detectionType": string(r.Detection.DetectionType),
			"hasClouds":     r.Detection.HasClouds,
			"needsHighRes":  r.Detection.NeedsHighRes,
			"confidence":    r.Detection.Confidence,
			"analysis":      r.Detection.Analysis,
			"inBounds":      r.InBounds,
			"selected":      s.IsSelected(r.BorderNumber),
			"pixel":         r.Pixel,
		}
		if st := r.Crossing.State(); st != "" {
			props["state"] = st
		}

		fc = append(fc, geom.GeoJSONFeature{
			Geometry:   pt.AsGeometry(),
			ID:         r.BorderNumber,
			Properties: props,
		})
	}

	out, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("marshal geojson: %w", err)
	}
	return out, nil
}
