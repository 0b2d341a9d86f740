// Package catalog holds the ordered list of tile sources the viewer can show.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Kind is the tile source type.
type Kind string

const (
	Raster  Kind = "raster"
	Vector  Kind = "vector"
	GeoJSON Kind = "geojson"
)

// ReservedID is the point-of-interest source id; catalog entries may not use it.
const ReservedID = "places"

var (
	ErrEmpty       = errors.New("catalog is empty")
	ErrDuplicateID = errors.New("duplicate tile source id")
	ErrInvalid     = errors.New("invalid tile source")
)

// Descriptor describes a single tile source.
type Descriptor struct {
	ID           string   `yaml:"id" json:"id" doc:"Unique source identifier" example:"std"`
	Label        string   `yaml:"label" json:"label" doc:"Display name" example:"標準地図"`
	Kind         Kind     `yaml:"kind" json:"kind" enum:"raster,vector,geojson" doc:"Source kind"`
	URLTemplates []string `yaml:"tiles" json:"tiles" doc:"Tile URL templates"`
	TileSize     int      `yaml:"tileSize" json:"tileSize" doc:"Tile size in pixels" example:"256"`
	MinZoom      int      `yaml:"minzoom" json:"minzoom" doc:"Minimum zoom"`
	MaxZoom      int      `yaml:"maxzoom" json:"maxzoom" doc:"Maximum zoom" example:"18"`
	Attribution  string   `yaml:"attribution" json:"attribution,omitempty" doc:"Attribution HTML"`
	SourceLayer  string   `yaml:"sourceLayer,omitempty" json:"sourceLayer,omitempty" doc:"Layer name inside vector tiles"`
	Default      bool     `yaml:"default,omitempty" json:"default" doc:"Visible at startup"`
}

func (d Descriptor) validate() error {
	switch {
	case d.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalid)
	case d.ID == ReservedID:
		return fmt.Errorf("%w: id %q is reserved", ErrInvalid, d.ID)
	case d.Kind != Raster && d.Kind != Vector && d.Kind != GeoJSON:
		return fmt.Errorf("%w: %q has unknown kind %q", ErrInvalid, d.ID, d.Kind)
	case len(d.URLTemplates) == 0:
		return fmt.Errorf("%w: %q has no tile urls", ErrInvalid, d.ID)
	case d.TileSize <= 0:
		return fmt.Errorf("%w: %q tile size must be positive", ErrInvalid, d.ID)
	case d.MinZoom < 0 || d.MaxZoom < d.MinZoom:
		return fmt.Errorf("%w: %q zoom range %d-%d", ErrInvalid, d.ID, d.MinZoom, d.MaxZoom)
	}
	return nil
}

// Catalog is an immutable, validated, ordered list of descriptors.
// Entry 0 is the default basemap.
type Catalog struct {
	entries []Descriptor
	index   map[string]int
}

// New validates entries and builds a catalog.
func New(entries ...Descriptor) (Catalog, error) {
	if len(entries) == 0 {
		return Catalog{}, ErrEmpty
	}

	c := Catalog{
		entries: make([]Descriptor, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for i, d := range entries {
		if err := d.validate(); err != nil {
			return Catalog{}, err
		}
		if _, exists := c.index[d.ID]; exists {
			return Catalog{}, fmt.Errorf("%w: %q", ErrDuplicateID, d.ID)
		}
		if d.Default && i != 0 {
			return Catalog{}, fmt.Errorf("%w: default source %q must be listed first", ErrInvalid, d.ID)
		}
		d.URLTemplates = append([]string(nil), d.URLTemplates...)
		d.Default = i == 0
		c.entries[i] = d
		c.index[d.ID] = i
	}
	return c, nil
}

// MustNew is New for package-level literals.
func MustNew(entries ...Descriptor) Catalog {
	c, err := New(entries...)
	if err != nil {
		panic(err)
	}
	return c
}

// Append returns a new catalog with extra entries after the existing ones.
func Append(c Catalog, extra ...Descriptor) (Catalog, error) {
	all := append(c.Entries(), extra...)
	return New(all...)
}

// Len returns the number of entries.
func (c Catalog) Len() int { return len(c.entries) }

// At returns entry i.
func (c Catalog) At(i int) Descriptor { return c.entries[i] }

// Entries returns a copy of all entries in order.
func (c Catalog) Entries() []Descriptor {
	return append([]Descriptor(nil), c.entries...)
}

// DefaultEntry returns the startup basemap.
func (c Catalog) DefaultEntry() (Descriptor, bool) {
	if len(c.entries) == 0 {
		return Descriptor{}, false
	}
	return c.entries[0], true
}

// Rest returns every entry after the default.
func (c Catalog) Rest() []Descriptor {
	if len(c.entries) < 2 {
		return nil
	}
	return append([]Descriptor(nil), c.entries[1:]...)
}

// Lookup returns the entry with the given id.
func (c Catalog) Lookup(id string) (Descriptor, bool) {
	i, ok := c.index[id]
	if !ok {
		return Descriptor{}, false
	}
	return c.entries[i], true
}

// Load reads a YAML catalog file:
//
//	- id: std
//	  label: 標準地図
//	  kind: raster
//	  tiles: ["https://cyberjapandata.gsi.go.jp/xyz/std/{z}/{x}/{y}.png"]
//	  tileSize: 256
//	  maxzoom: 18
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("reading catalog: %w", err)
	}

	var entries []Descriptor
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return Catalog{}, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return New(entries...)
}
