// Package style builds MapLibre style documents from the tile catalog.
package style

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joeblew999/plat-basemap/internal/catalog"
	"github.com/joeblew999/plat-basemap/internal/poi"
)

// Version is the MapLibre style spec version.
const Version = 8

// Layout visibility values.
const (
	Visible = "visible"
	None    = "none"
)

var ErrEmptyCatalog = errors.New("style: catalog is empty")

// Document is a style document: sources plus the layers that draw them.
type Document struct {
	Version int               `json:"version" yaml:"version" doc:"Style spec version" example:"8"`
	Sources map[string]Source `json:"sources" yaml:"sources" doc:"Sources keyed by id"`
	Layers  []Layer           `json:"layers" yaml:"layers" doc:"Layers in draw order"`
}

// Source is a style source.
type Source struct {
	Type        string   `json:"type" yaml:"type"`
	URL         string   `json:"url,omitempty" yaml:"url,omitempty"`
	Tiles       []string `json:"tiles,omitempty" yaml:"tiles,omitempty"`
	TileSize    int      `json:"tileSize,omitempty" yaml:"tileSize,omitempty"`
	MinZoom     int      `json:"minzoom,omitempty" yaml:"minzoom,omitempty"`
	MaxZoom     int      `json:"maxzoom,omitempty" yaml:"maxzoom,omitempty"`
	Attribution string   `json:"attribution,omitempty" yaml:"attribution,omitempty"`
	Data        any      `json:"data,omitempty" yaml:"data,omitempty"`
}

// Layer is a style layer.
type Layer struct {
	ID          string         `json:"id" yaml:"id"`
	Type        string         `json:"type" yaml:"type"`
	Source      string         `json:"source" yaml:"source"`
	SourceLayer string         `json:"source-layer,omitempty" yaml:"source-layer,omitempty"`
	MinZoom     int            `json:"minzoom,omitempty" yaml:"minzoom,omitempty"`
	MaxZoom     int            `json:"maxzoom,omitempty" yaml:"maxzoom,omitempty"`
	Layout      map[string]any `json:"layout,omitempty" yaml:"layout,omitempty"`
	Paint       map[string]any `json:"paint,omitempty" yaml:"paint,omitempty"`
}

// BuildInitialStyle returns the style the map is constructed with: the
// catalog's default entry as the only source and the only layer. Every
// other source is added once the map reports it is ready.
func BuildInitialStyle(c catalog.Catalog) (Document, error) {
	d, ok := c.DefaultEntry()
	if !ok {
		return Document{}, ErrEmptyCatalog
	}

	return Document{
		Version: Version,
		Sources: map[string]Source{d.ID: SourceFor(d)},
		Layers:  []Layer{LayerFor(d, true)},
	}, nil
}

// Validate checks that layer ids are unique and every layer names a source
// present in the document.
func (doc Document) Validate() error {
	if doc.Version != Version {
		return fmt.Errorf("style: version %d, want %d", doc.Version, Version)
	}
	seen := make(map[string]bool, len(doc.Layers))
	for _, l := range doc.Layers {
		if seen[l.ID] {
			return fmt.Errorf("style: duplicate layer %q", l.ID)
		}
		seen[l.ID] = true
		if _, ok := doc.Sources[l.Source]; !ok {
			return fmt.Errorf("style: layer %q references missing source %q", l.ID, l.Source)
		}
	}
	return nil
}

// SourceFor converts a catalog descriptor to a style source.
func SourceFor(d catalog.Descriptor) Source {
	src := Source{
		Type:        string(d.Kind),
		MinZoom:     d.MinZoom,
		MaxZoom:     d.MaxZoom,
		Attribution: d.Attribution,
	}
	switch d.Kind {
	case catalog.GeoJSON:
		src.Data = d.URLTemplates[0]
	default:
		// Archives carry their own tile index.
		if len(d.URLTemplates) == 1 && strings.HasPrefix(d.URLTemplates[0], "pmtiles://") {
			src.URL = d.URLTemplates[0]
			src.TileSize = d.TileSize
			break
		}
		src.Tiles = append([]string(nil), d.URLTemplates...)
		src.TileSize = d.TileSize
	}
	return src
}

// LayerType returns the layer type used to draw a source kind.
func LayerType(k catalog.Kind) string {
	switch k {
	case catalog.Vector:
		return "line"
	case catalog.GeoJSON:
		return "circle"
	default:
		return "raster"
	}
}

// LayerFor returns the layer drawing descriptor d, sharing its id with the
// source. Zoom bounds stay on the source so tiles overzoom past MaxZoom.
func LayerFor(d catalog.Descriptor, visible bool) Layer {
	return Layer{
		ID:          d.ID,
		Type:        LayerType(d.Kind),
		Source:      d.ID,
		SourceLayer: d.SourceLayer,
		Layout:      map[string]any{"visibility": Visibility(visible)},
	}
}

// PlacesSource is the geojson source seeded with the point of interest.
func PlacesSource(f poi.Feature) Source {
	return Source{
		Type: "geojson",
		Data: f.FeatureCollection(),
	}
}

// PlacesLayer draws the point of interest as a red ring so the basemap stays
// visible under the marker.
func PlacesLayer() Layer {
	return Layer{
		ID:     poi.LayerID,
		Type:   "circle",
		Source: poi.LayerID,
		Paint: map[string]any{
			"circle-radius":       5,
			"circle-color":        "transparent",
			"circle-stroke-width": 2,
			"circle-stroke-color": "red",
		},
	}
}

// OpacityProperty returns the paint property controlling a layer type's opacity.
func OpacityProperty(layerType string) string {
	switch layerType {
	case "raster":
		return "raster-opacity"
	case "line":
		return "line-opacity"
	case "fill":
		return "fill-opacity"
	case "circle":
		return "circle-opacity"
	case "symbol":
		return "icon-opacity"
	}
	return ""
}

// Visibility returns the layout value for a visibility flag.
func Visibility(visible bool) string {
	if visible {
		return Visible
	}
	return None
}
