// Package engine is the boundary with the map rendering engine. The viewer
// only ever talks to a map through these capabilities; tile fetching,
// projection and gesture handling stay on the other side.
package engine

import (
	"errors"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-basemap/internal/style"
)

var (
	// ErrDuplicateID is returned when a source or layer id is already on the map.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrUnknownLayer is returned when a property is set on a missing layer.
	ErrUnknownLayer = errors.New("unknown layer")
	// ErrRemoved is returned by calls on a map that has been removed.
	ErrRemoved = errors.New("map removed")
)

// Event is a map lifecycle or input event name.
type Event string

const (
	// EventLoad fires once the map style has loaded and sources may be added.
	EventLoad  Event = "load"
	EventClick Event = "click"
)

// Position is a screen corner a control is pinned to.
type Position string

const (
	TopLeft     Position = "top-left"
	TopRight    Position = "top-right"
	BottomLeft  Position = "bottom-left"
	BottomRight Position = "bottom-right"
)

// Valid reports whether p is one of the four corners.
func (p Position) Valid() bool {
	switch p {
	case TopLeft, TopRight, BottomLeft, BottomRight:
		return true
	}
	return false
}

// MapConfig is what a map is constructed with.
type MapConfig struct {
	Container string
	Style     style.Document
	Center    orb.Point
	Zoom      float64
	Bearing   float64
	Pitch     float64
}

// MouseEvent is delivered to handlers. LngLat is zero for load events.
type MouseEvent struct {
	Event   Event     `json:"event" enum:"load,click" doc:"Event name"`
	LayerID string    `json:"layer,omitempty" doc:"Layer the event hit"`
	LngLat  orb.Point `json:"lngLat,omitempty" doc:"[lng, lat]"`
}

// Handler handles a map event. A returned error is reported to whoever
// dispatched the event.
type Handler func(ev MouseEvent) error

// Control is a UI widget that can be pinned to the map.
type Control interface {
	// ControlType names the widget, e.g. "navigation".
	ControlType() string
	// ControlOptions are the widget's constructor options.
	ControlOptions() map[string]any
}

// Engine creates maps.
type Engine interface {
	CreateMap(cfg MapConfig) (Map, error)
}

// Map is a live rendering surface.
type Map interface {
	AddControl(c Control, pos Position) error
	AddSource(id string, src style.Source) error
	AddLayer(l style.Layer) error
	HasSource(id string) bool
	HasLayer(id string) bool
	SetLayoutProperty(layerID, name string, value any) error
	SetPaintProperty(layerID, name string, value any) error
	// On registers h for ev. A non-empty layerID scopes the listener to
	// features of that layer. The returned func detaches the listener.
	On(ev Event, layerID string, h Handler) (off func())
	AddPopup(p Popup) error
	// Remove releases the rendering surface and every listener.
	Remove()
}
