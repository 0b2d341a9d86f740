// Package registrar adds the lazily loaded sources and layers once the map
// is ready.
package registrar

import (
	"fmt"

	"github.com/joeblew999/plat-basemap/internal/catalog"
	"github.com/joeblew999/plat-basemap/internal/engine"
	"github.com/joeblew999/plat-basemap/internal/poi"
	"github.com/joeblew999/plat-basemap/internal/style"
)

// Result lists the layer ids added, in draw order.
type Result struct {
	Layers []string
}

// Register adds every catalog entry after the default as a hidden source
// and layer, then the places marker on top. It must run once per map: if
// any id it would add is already present it fails with
// engine.ErrDuplicateID before touching the map.
func Register(m engine.Map, c catalog.Catalog, place poi.Feature) (Result, error) {
	rest := c.Rest()

	ids := make([]string, 0, len(rest)+1)
	for _, d := range rest {
		ids = append(ids, d.ID)
	}
	ids = append(ids, poi.LayerID)

	for _, id := range ids {
		if m.HasSource(id) || m.HasLayer(id) {
			return Result{}, fmt.Errorf("registering %q: %w", id, engine.ErrDuplicateID)
		}
	}

	var res Result
	for _, d := range rest {
		if err := m.AddSource(d.ID, style.SourceFor(d)); err != nil {
			return res, fmt.Errorf("adding source %q: %w", d.ID, err)
		}
		// Visibility is owned by the layer control, which projects its
		// state onto these layers when it attaches.
		if err := m.AddLayer(style.LayerFor(d, false)); err != nil {
			return res, fmt.Errorf("adding layer %q: %w", d.ID, err)
		}
		res.Layers = append(res.Layers, d.ID)
	}

	if err := m.AddSource(poi.LayerID, style.PlacesSource(place)); err != nil {
		return res, fmt.Errorf("adding source %q: %w", poi.LayerID, err)
	}
	if err := m.AddLayer(style.PlacesLayer()); err != nil {
		return res, fmt.Errorf("adding layer %q: %w", poi.LayerID, err)
	}
	res.Layers = append(res.Layers, poi.LayerID)
	return res, nil
}
