package engine

import "github.com/paulmach/orb"

// NavigationControl is the zoom and compass widget.
type NavigationControl struct{}

func (NavigationControl) ControlType() string { return "navigation" }

func (NavigationControl) ControlOptions() map[string]any { return nil }

// GeolocateControl centres the map on the device location.
type GeolocateControl struct {
	HighAccuracy      bool
	TrackUserLocation bool
}

func (GeolocateControl) ControlType() string { return "geolocate" }

func (g GeolocateControl) ControlOptions() map[string]any {
	return map[string]any{
		"positionOptions":   map[string]any{"enableHighAccuracy": g.HighAccuracy},
		"trackUserLocation": g.TrackUserLocation,
	}
}

// Popup is an info bubble anchored at a coordinate.
type Popup struct {
	LngLat orb.Point
	HTML   string
}

// NewPopup starts a popup.
func NewPopup() *Popup { return &Popup{} }

// SetLngLat anchors the popup.
func (p *Popup) SetLngLat(c orb.Point) *Popup {
	p.LngLat = c
	return p
}

// SetHTML sets the popup content.
func (p *Popup) SetHTML(html string) *Popup {
	p.HTML = html
	return p
}

// AddTo shows the popup on m.
func (p *Popup) AddTo(m Map) error {
	return m.AddPopup(*p)
}
