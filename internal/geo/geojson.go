package geo

import (
	"encoding/json"
	"fmt"
)

type feature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

// FeatureCollection encodes trajectories as a GeoJSON FeatureCollection of
// LineString Z features.
func FeatureCollection(missionID string, ts []Trajectory) ([]byte, error) {
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(ts))}
	for _, t := range ts {
		geometry, err := t.Path.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode %s path: %w", t.Stage, err)
		}
		fc.Features = append(fc.Features, feature{
			Type:     "Feature",
			Geometry: geometry,
			Properties: map[string]any{
				"missionId": missionID,
				"stage":     t.Stage,
				"points":    t.Path.Coordinates().Length(),
				"ecef":      t.ECEF,
			},
		})
	}
	return json.Marshal(fc)
}
