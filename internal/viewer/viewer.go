// Package viewer composes the map: it mounts the map once, registers the
// lazily loaded layers when the map is ready, attaches the layer control
// and wires the marker popup.
package viewer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/joeblew999/plat-basemap/internal/catalog"
	"github.com/joeblew999/plat-basemap/internal/control"
	"github.com/joeblew999/plat-basemap/internal/engine"
	"github.com/joeblew999/plat-basemap/internal/interaction"
	"github.com/joeblew999/plat-basemap/internal/mapview"
	"github.com/joeblew999/plat-basemap/internal/poi"
	"github.com/joeblew999/plat-basemap/internal/registrar"
	"github.com/joeblew999/plat-basemap/internal/style"
)

// ErrNotReady is returned for control events before the map is ready.
var ErrNotReady = errors.New("viewer: map not ready")

// Config holds what a viewer shows.
type Config struct {
	Catalog catalog.Catalog
	Place   poi.Feature
	View    mapview.ViewState
	// Control overrides the layer control options built from the catalog.
	Control *control.Options
}

// Viewer is one mounted map view.
type Viewer struct {
	cfg     Config
	initial style.Document
	maps    *mapview.Manager
	clicks  *interaction.ClickHandler
	log     logrus.FieldLogger

	mu       sync.Mutex
	control  *control.Control
	onChange func(control.View)
}

// New builds a viewer over engine e.
func New(e engine.Engine, cfg Config, log logrus.FieldLogger) (*Viewer, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	initial, err := style.BuildInitialStyle(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	maps := mapview.NewManager(e, log)
	return &Viewer{
		cfg:     cfg,
		initial: initial,
		maps:    maps,
		clicks:  interaction.NewClickHandler(maps, log),
		log:     log,
	}, nil
}

// OnControlChange registers fn to receive the widget view whenever the
// control is attached or its state changes.
func (v *Viewer) OnControlChange(fn func(control.View)) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}

// Maps exposes the instance manager.
func (v *Viewer) Maps() *mapview.Manager { return v.maps }

// Mount creates the map in container and registers the event handlers.
// Mounting again while mounted, or without a container, does nothing.
func (v *Viewer) Mount(container string) error {
	if _, live := v.maps.Instance(); live {
		return nil
	}
	m, err := v.maps.Initialize(container, v.initial, v.cfg.View)
	if err != nil || m == nil {
		return err
	}

	if err := m.AddControl(engine.NavigationControl{}, engine.TopRight); err != nil {
		v.maps.Teardown()
		return fmt.Errorf("adding navigation control: %w", err)
	}
	if err := m.AddControl(engine.GeolocateControl{HighAccuracy: true, TrackUserLocation: true}, engine.TopRight); err != nil {
		v.maps.Teardown()
		return fmt.Errorf("adding geolocate control: %w", err)
	}

	v.maps.On(engine.EventLoad, "", v.onReady)
	v.maps.On(engine.EventClick, poi.LayerID, v.clicks.Click)
	return nil
}

// onReady adds the remaining layers, then the control that references them.
func (v *Viewer) onReady(ev engine.MouseEvent) error {
	m, ok := v.maps.Instance()
	if !ok {
		return nil
	}

	res, err := registrar.Register(m, v.cfg.Catalog, v.cfg.Place)
	if err != nil {
		return err
	}
	v.log.WithField("layers", res.Layers).Info("layers registered")

	opts := control.FromCatalog(v.cfg.Catalog)
	if v.cfg.Control != nil {
		opts = *v.cfg.Control
	}
	ctl, err := control.New(opts)
	if err != nil {
		return err
	}
	if err := ctl.Attach(m); err != nil {
		return err
	}

	v.mu.Lock()
	v.control = ctl
	notify := v.onChange
	v.mu.Unlock()

	if notify != nil {
		notify(ctl.View())
	}
	return nil
}

// Control forwards a user input event to the layer control.
func (v *Viewer) Control(ev control.Event) error {
	if _, live := v.maps.Instance(); !live {
		return nil
	}
	v.mu.Lock()
	ctl := v.control
	notify := v.onChange
	v.mu.Unlock()
	if ctl == nil {
		return ErrNotReady
	}

	if err := ctl.Handle(ev); err != nil {
		return err
	}
	v.log.WithFields(logrus.Fields{"kind": ev.Kind, "layer": ev.LayerID}).Debug("layer control changed")
	if notify != nil {
		notify(ctl.View())
	}
	return nil
}

// State returns the layer visibility state, if the control is attached.
func (v *Viewer) State() (control.State, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.control == nil {
		return control.State{}, false
	}
	return v.control.State(), true
}

// Unmount tears the map down and drops the control.
func (v *Viewer) Unmount() {
	v.mu.Lock()
	ctl := v.control
	v.control = nil
	v.mu.Unlock()
	if ctl != nil {
		ctl.Detach()
	}
	v.maps.Teardown()
}
