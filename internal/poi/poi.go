// Package poi holds the point-of-interest marker shown on the map.
package poi

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LayerID names both the geojson source and the circle layer of the marker.
const LayerID = "places"

// Feature is a single point of interest.
type Feature struct {
	Coordinates orb.Point
	Title       string
	Description string
}

// Default returns the seeded marker: the Imperial Palace in Tokyo.
func Default() Feature {
	return Feature{
		Coordinates: orb.Point{139.75688, 35.68345},
		Title:       "皇居",
		Description: "東京都千代田区千代田1-1",
	}
}

// GeoJSON returns the feature as a geojson Point feature with title and
// description properties.
func (f Feature) GeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Coordinates)
	gf.Properties["title"] = f.Title
	gf.Properties["description"] = f.Description
	return gf
}

// FeatureCollection wraps the feature in a single-feature collection, the
// shape the places source is seeded with.
func (f Feature) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(f.GeoJSON())
	return fc
}
