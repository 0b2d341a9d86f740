package control

import (
	"errors"
	"fmt"
	"sync"

	"github.com/joeblew999/plat-basemap/internal/catalog"
	"github.com/joeblew999/plat-basemap/internal/engine"
	"github.com/joeblew999/plat-basemap/internal/style"
)

// WidgetType is the engine control type of the layer switcher.
const WidgetType = "layers"

var (
	ErrAttached    = errors.New("control: already attached")
	ErrNotAttached = errors.New("control: not attached to a map")
)

// Options configure the control.
type Options struct {
	BaseLayers     []Entry
	OverLayers     []Entry
	OpacityControl bool
	Position       engine.Position
}

// FromCatalog offers every catalog entry as a base layer and every entry
// after the default as an overlay, with opacity sliders enabled.
func FromCatalog(c catalog.Catalog) Options {
	opts := Options{OpacityControl: true, Position: engine.BottomLeft}
	for i, d := range c.Entries() {
		e := Entry{
			ID:              d.ID,
			Label:           d.Label,
			OpacityProperty: style.OpacityProperty(style.LayerType(d.Kind)),
		}
		opts.BaseLayers = append(opts.BaseLayers, e)
		if i > 0 {
			opts.OverLayers = append(opts.OverLayers, e)
		}
	}
	return opts
}

// Control is the layer switcher widget bound to one map.
type Control struct {
	opts Options

	mu    sync.Mutex
	state State
	m     engine.Map
}

// New validates opts and returns a detached control.
func New(opts Options) (*Control, error) {
	if opts.Position == "" {
		opts.Position = engine.TopRight
	}
	if !opts.Position.Valid() {
		return nil, fmt.Errorf("control: invalid position %q", opts.Position)
	}
	s, err := NewState(opts)
	if err != nil {
		return nil, err
	}
	return &Control{opts: opts, state: s}, nil
}

// ControlType implements engine.Control.
func (c *Control) ControlType() string { return WidgetType }

// ControlOptions implements engine.Control.
func (c *Control) ControlOptions() map[string]any {
	labels := func(entries []Entry) map[string]string {
		m := make(map[string]string, len(entries))
		for _, e := range entries {
			m[e.ID] = e.Label
		}
		return m
	}
	return map[string]any{
		"baseLayers":     labels(c.opts.BaseLayers),
		"overLayers":     labels(c.opts.OverLayers),
		"opacityControl": c.opts.OpacityControl,
	}
}

// Position returns the corner the control is pinned to.
func (c *Control) Position() engine.Position { return c.opts.Position }

// Attach pins the control to m and writes the full state onto its layers.
// Every layer the control references must already exist on m.
func (c *Control) Attach(m engine.Map) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m != nil {
		return ErrAttached
	}

	if err := m.AddControl(c, c.opts.Position); err != nil {
		return fmt.Errorf("adding layer control: %w", err)
	}
	c.m = m
	return apply(m, c.state.Projection())
}

// Detach forgets the map so a later Attach binds a new one.
func (c *Control) Detach() {
	c.mu.Lock()
	c.m = nil
	c.mu.Unlock()
}

// Handle applies a user input event and projects it onto the map.
func (c *Control) Handle(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		return ErrNotAttached
	}

	next, muts, err := Reduce(c.state, ev)
	if err != nil {
		return err
	}
	c.state = next
	return apply(c.m, muts)
}

// State returns the current state.
func (c *Control) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func apply(m engine.Map, muts []Mutation) error {
	for _, mu := range muts {
		var err error
		if mu.Paint {
			err = m.SetPaintProperty(mu.LayerID, mu.Property, mu.Value)
		} else {
			err = m.SetLayoutProperty(mu.LayerID, mu.Property, mu.Value)
		}
		if err != nil {
			return fmt.Errorf("projecting %s on %q: %w", mu.Property, mu.LayerID, err)
		}
	}
	return nil
}

// ViewEntry is one row of the rendered widget.
type ViewEntry struct {
	ID      string
	Label   string
	Checked bool
	Opacity float64
}

// View is the data the widget template renders.
type View struct {
	Base           []ViewEntry
	Overlays       []ViewEntry
	OpacityControl bool
}

// View snapshots the widget rows.
func (c *Control) View() View {
	s := c.State()
	v := View{OpacityControl: c.opts.OpacityControl}
	for _, e := range c.opts.BaseLayers {
		v.Base = append(v.Base, ViewEntry{ID: e.ID, Label: e.Label, Checked: s.BaseVisible(e.ID), Opacity: s.opacity[e.ID]})
	}
	for _, e := range c.opts.OverLayers {
		v.Overlays = append(v.Overlays, ViewEntry{ID: e.ID, Label: e.Label, Checked: s.OverlayVisible(e.ID), Opacity: s.opacity[e.ID]})
	}
	return v
}
