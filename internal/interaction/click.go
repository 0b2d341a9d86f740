// Package interaction opens a popup where the point-of-interest marker is clicked.
package interaction

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"github.com/joeblew999/plat-basemap/internal/engine"
	"github.com/joeblew999/plat-basemap/internal/poi"
)

// Instance is the part of the map manager the handler needs.
type Instance interface {
	Instance() (engine.Map, bool)
}

// ClickHandler shows the clicked coordinate in a popup. Every click opens a
// new popup; closing earlier ones is left to the engine.
type ClickHandler struct {
	maps Instance
	log  logrus.FieldLogger
}

// NewClickHandler returns a handler acting on whatever map maps holds.
func NewClickHandler(maps Instance, log logrus.FieldLogger) *ClickHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ClickHandler{maps: maps, log: log}
}

// Click handles a click event. Clicks outside the places layer and clicks
// arriving after the map was torn down are ignored.
func (h *ClickHandler) Click(ev engine.MouseEvent) error {
	if ev.Event != engine.EventClick || ev.LayerID != poi.LayerID {
		return nil
	}
	m, ok := h.maps.Instance()
	if !ok {
		return nil
	}

	h.log.WithFields(logrus.Fields{
		"layer": ev.LayerID,
		"lng":   ev.LngLat.Lon(),
		"lat":   ev.LngLat.Lat(),
	}).Debug("places clicked")

	if err := engine.NewPopup().SetLngLat(ev.LngLat).SetHTML(PopupHTML(ev.LngLat)).AddTo(m); err != nil {
		return fmt.Errorf("opening popup: %w", err)
	}
	return nil
}

// PopupHTML renders the popup body for a coordinate, e.g.
// <p style="color:aqua;">LngLat(139.75688, 35.68345)</p>.
func PopupHTML(c orb.Point) string {
	return `<p style="color:aqua;">` + FormatLngLat(c) + `</p>`
}

// FormatLngLat formats a coordinate the way the browser engine prints one.
func FormatLngLat(c orb.Point) string {
	return "LngLat(" + strconv.FormatFloat(c.Lon(), 'f', -1, 64) + ", " +
		strconv.FormatFloat(c.Lat(), 'f', -1, 64) + ")"
}
