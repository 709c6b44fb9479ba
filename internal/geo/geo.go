// Package geo assembles planned stage trajectories from mission data.
package geo

import (
	"errors"
	"fmt"
	"math"
	"slices"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/OCAP2/launch-telemetry/pkg/core"
)

// Planned trajectory properties are <stage>PlannedLatitude and so on.
const (
	SuffixLatitude  = core.PlannedMarker + "Latitude"
	SuffixLongitude = core.PlannedMarker + "Longitude"
	SuffixAltitude  = core.PlannedMarker + "Altitude"
)

// MetresPerAltitudeUnit converts mission altitude values (km) to metres.
const MetresPerAltitudeUnit = 1000.0

const (
	epsgLonLat = 4326
	epsgECEF   = 4978
	epsgWebMap = 3857
)

// ErrNoTrajectory is returned when a stage has fewer than two usable planned
// positions.
var ErrNoTrajectory = errors.New("no planned trajectory")

// ECEF is an earth-centred earth-fixed position in metres.
type ECEF struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Trajectory is the planned path of one stage.
type Trajectory struct {
	Stage string
	// Path holds lon, lat, altitude in metres.
	Path geom.LineString
	ECEF []ECEF
}

// PlannedTrajectory zips the stage's planned latitude, longitude and altitude
// series into a path. Positions with a non-finite component are skipped and
// the series are truncated to the shortest of the three.
func PlannedTrajectory(m *core.Mission, stage string) (Trajectory, error) {
	lat := m.MissionData[stage+SuffixLatitude]
	lon := m.MissionData[stage+SuffixLongitude]
	alt := m.MissionData[stage+SuffixAltitude]
	n := min(len(lat), len(lon), len(alt))

	toECEF := wgs84.EPSG().Transform(epsgLonLat, epsgECEF)

	flat := make([]float64, 0, n*3)
	points := make([]ECEF, 0, n)
	for i := 0; i < n; i++ {
		la, lo, al := lat[i].Value, lon[i].Value, alt[i].Value*MetresPerAltitudeUnit
		if !finite(la) || !finite(lo) || !finite(al) {
			continue
		}
		flat = append(flat, lo, la, al)
		x, y, z := toECEF(lo, la, al)
		points = append(points, ECEF{X: x, Y: y, Z: z})
	}
	if len(points) < 2 {
		return Trajectory{}, fmt.Errorf("stage %s: %w", stage, ErrNoTrajectory)
	}

	// a path needs two distinct horizontal positions
	path, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXYZ))
	if err != nil {
		return Trajectory{}, fmt.Errorf("stage %s: %w: %w", stage, ErrNoTrajectory, err)
	}

	return Trajectory{
		Stage: stage,
		Path:  path,
		ECEF:  points,
	}, nil
}

// PlannedTrajectories returns a trajectory for every stage that has one, in
// stage key order.
func PlannedTrajectories(m *core.Mission) []Trajectory {
	stages := make([]string, 0, len(m.MissionStages))
	for stage := range m.MissionStages {
		stages = append(stages, stage)
	}
	slices.Sort(stages)

	var out []Trajectory
	for _, stage := range stages {
		t, err := PlannedTrajectory(m, stage)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}

// WebMercator projects a lon/lat pair to EPSG:3857. Non-finite input or a
// latitude outside the projection's range yields an error.
func WebMercator(longitude, latitude float64) (geom.Point, error) {
	f := wgs84.EPSG().Transform(epsgLonLat, epsgWebMap)
	x, y, _ := f(longitude, latitude, 0)
	p, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: y}})
	if err != nil {
		return geom.Point{}, fmt.Errorf("project %v,%v: %w", longitude, latitude, err)
	}
	return p, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
