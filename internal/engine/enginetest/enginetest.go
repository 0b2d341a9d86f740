// Package enginetest provides an in-memory engine that records every call,
// for testing code that drives a map without a browser.
package enginetest

import (
	"fmt"
	"sync"

	"github.com/joeblew999/plat-basemap/internal/engine"
	"github.com/joeblew999/plat-basemap/internal/style"
)

// Engine creates fake maps and remembers them in creation order.
type Engine struct {
	mu   sync.Mutex
	Maps []*Map
	// Err, when set, is returned by CreateMap.
	Err error
	// ControlErr, when set, is returned by AddControl on new maps.
	ControlErr error
}

// New returns an empty fake engine.
func New() *Engine { return &Engine{} }

// CreateMap implements engine.Engine. Sources and layers of the initial
// style count as already added.
func (e *Engine) CreateMap(cfg engine.MapConfig) (engine.Map, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}

	m := &Map{
		Config:     cfg,
		Sources:    map[string]style.Source{},
		Layout:     map[string]map[string]any{},
		Paint:      map[string]map[string]any{},
		ControlErr: e.ControlErr,
		handlers:   map[int]listener{},
	}
	for id, src := range cfg.Style.Sources {
		m.Sources[id] = src
	}
	for _, l := range cfg.Style.Layers {
		m.addLayer(l)
	}
	e.Maps = append(e.Maps, m)
	return m, nil
}

// Created returns how many maps were created.
func (e *Engine) Created() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Maps)
}

// Last returns the most recently created map, or nil.
func (e *Engine) Last() *Map {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Maps) == 0 {
		return nil
	}
	return e.Maps[len(e.Maps)-1]
}

// ControlCall records an AddControl call.
type ControlCall struct {
	Control  engine.Control
	Position engine.Position
}

type listener struct {
	event   engine.Event
	layerID string
	handler engine.Handler
}

// Map records what was done to it.
type Map struct {
	mu sync.Mutex

	Config   engine.MapConfig
	Sources  map[string]style.Source
	Layers   []style.Layer
	Layout   map[string]map[string]any
	Paint    map[string]map[string]any
	Controls []ControlCall
	Popups   []engine.Popup
	Removed  bool

	// ControlErr, when set, is returned by AddControl.
	ControlErr error

	// PropertyCalls counts SetLayoutProperty and SetPaintProperty calls.
	PropertyCalls int

	handlers map[int]listener
	nextID   int
}

func (m *Map) addLayer(l style.Layer) {
	m.Layers = append(m.Layers, l)
	m.Layout[l.ID] = map[string]any{}
	for k, v := range l.Layout {
		m.Layout[l.ID][k] = v
	}
	m.Paint[l.ID] = map[string]any{}
	for k, v := range l.Paint {
		m.Paint[l.ID][k] = v
	}
}

func (m *Map) AddControl(c engine.Control, pos engine.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Removed {
		return engine.ErrRemoved
	}
	if m.ControlErr != nil {
		return m.ControlErr
	}
	m.Controls = append(m.Controls, ControlCall{Control: c, Position: pos})
	return nil
}

func (m *Map) AddSource(id string, src style.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Removed {
		return engine.ErrRemoved
	}
	if _, exists := m.Sources[id]; exists {
		return fmt.Errorf("source %q: %w", id, engine.ErrDuplicateID)
	}
	m.Sources[id] = src
	return nil
}

func (m *Map) AddLayer(l style.Layer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Removed {
		return engine.ErrRemoved
	}
	if m.hasLayer(l.ID) {
		return fmt.Errorf("layer %q: %w", l.ID, engine.ErrDuplicateID)
	}
	if _, ok := m.Sources[l.Source]; !ok {
		return fmt.Errorf("layer %q references missing source %q", l.ID, l.Source)
	}
	m.addLayer(l)
	return nil
}

func (m *Map) HasSource(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Sources[id]
	return ok
}

func (m *Map) HasLayer(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasLayer(id)
}

func (m *Map) hasLayer(id string) bool {
	for _, l := range m.Layers {
		if l.ID == id {
			return true
		}
	}
	return false
}

func (m *Map) SetLayoutProperty(layerID, name string, value any) error {
	return m.setProperty(m.Layout, layerID, name, value)
}

func (m *Map) SetPaintProperty(layerID, name string, value any) error {
	return m.setProperty(m.Paint, layerID, name, value)
}

func (m *Map) setProperty(props map[string]map[string]any, layerID, name string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Removed {
		return engine.ErrRemoved
	}
	if !m.hasLayer(layerID) {
		return fmt.Errorf("%w: %q", engine.ErrUnknownLayer, layerID)
	}
	props[layerID][name] = value
	m.PropertyCalls++
	return nil
}

func (m *Map) On(ev engine.Event, layerID string, h engine.Handler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = listener{event: ev, layerID: layerID, handler: h}
	return func() {
		m.mu.Lock()
		delete(m.handlers, id)
		m.mu.Unlock()
	}
}

func (m *Map) AddPopup(p engine.Popup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Removed {
		return engine.ErrRemoved
	}
	m.Popups = append(m.Popups, p)
	return nil
}

// Remove marks the map removed and drops all listeners.
func (m *Map) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Removed = true
	m.handlers = map[int]listener{}
}

// Listeners returns the number of attached listeners.
func (m *Map) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// Visibility returns the layout visibility of a layer ("visible" when unset).
func (m *Map) Visibility(layerID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.Layout[layerID]["visibility"].(string); ok {
		return v
	}
	return style.Visible
}

// Fire dispatches ev to matching listeners the way the engine would: a
// layer-scoped listener only receives events carrying its layer id. The
// first handler error is returned.
func (m *Map) Fire(ev engine.MouseEvent) error {
	m.mu.Lock()
	var matched []engine.Handler
	for id := 0; id < m.nextID; id++ {
		l, ok := m.handlers[id]
		if !ok || l.event != ev.Event {
			continue
		}
		if l.layerID != "" && l.layerID != ev.LayerID {
			continue
		}
		matched = append(matched, l.handler)
	}
	m.mu.Unlock()

	for _, h := range matched {
		if err := h(ev); err != nil {
			return err
		}
	}
	return nil
}
