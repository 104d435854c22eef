// Package worldmap rasterizes a landmass vector dataset onto a character
// grid and overlays peer markers with collision-avoiding placement.
package worldmap

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/tidwall/rtree"
)

// Land south of this latitude is excluded: peers are never in Antarctica
// and dropping it buys usable resolution for the rest of the grid.
const southLimit = -60.0

// Land holds the landmass polygons with a bounding-box index for
// point-containment queries. Built once, queried per grid cell.
type Land struct {
	polygons []orb.Polygon
	index    rtree.RTreeG[int]
}

// LoadLand reads a GeoJSON landmass file and indexes its polygons.
func LoadLand(path string) (*Land, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read land data: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse land data: %w", err)
	}

	var polygons []orb.Polygon
	for _, feature := range fc.Features {
		switch geom := feature.Geometry.(type) {
		case orb.Polygon:
			polygons = append(polygons, geom)
		case orb.MultiPolygon:
			polygons = append(polygons, geom...)
		}
	}
	return NewLand(polygons), nil
}

// NewLand indexes the given polygons, dropping any entirely south of the
// Antarctica cutoff.
func NewLand(polygons []orb.Polygon) *Land {
	land := &Land{}
	for _, poly := range polygons {
		if len(poly) == 0 {
			continue
		}
		bound := poly.Bound()
		if bound.Max.Lat() < southLimit {
			continue
		}
		idx := len(land.polygons)
		land.polygons = append(land.polygons, poly)
		land.index.Insert(
			[2]float64{bound.Min.Lon(), bound.Min.Lat()},
			[2]float64{bound.Max.Lon(), bound.Max.Lat()},
			idx,
		)
	}
	if len(land.polygons) == 0 {
		return nil
	}
	return land
}

// Contains reports whether the point lies on land.
func (l *Land) Contains(lon, lat float64) bool {
	pt := orb.Point{lon, lat}
	found := false
	l.index.Search([2]float64{lon, lat}, [2]float64{lon, lat}, func(_, _ [2]float64, idx int) bool {
		if planar.PolygonContains(l.polygons[idx], pt) {
			found = true
			return false
		}
		return true
	})
	return found
}
