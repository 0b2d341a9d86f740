// Package maplibre drives a MapLibre GL JS map running in the browser. Each
// engine call becomes a JavaScript statement handed to a Sink (the viewer
// session streams them over SSE); browser events come back through
// Map.Dispatch.
package maplibre

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/joeblew999/plat-basemap/internal/engine"
	"github.com/joeblew999/plat-basemap/internal/style"
)

// Sink receives scripts to run in the page, in order.
type Sink interface {
	Script(js string)
}

// Options configure the browser side.
type Options struct {
	// MapVar is the window property holding the map. Default "platMap".
	MapVar string
	// EventsURL receives browser map events as JSON engine.MouseEvent bodies.
	EventsURL string
}

// Engine creates browser maps.
type Engine struct {
	sink Sink
	opts Options
}

// New returns an engine writing scripts to sink.
func New(sink Sink, opts Options) *Engine {
	if opts.MapVar == "" {
		opts.MapVar = "platMap"
	}
	return &Engine{sink: sink, opts: opts}
}

// CreateMap implements engine.Engine.
func (e *Engine) CreateMap(cfg engine.MapConfig) (engine.Map, error) {
	if err := cfg.Style.Validate(); err != nil {
		return nil, err
	}
	options := map[string]any{
		"container": cfg.Container,
		"style":     cfg.Style,
		"center":    cfg.Center,
		"zoom":      cfg.Zoom,
		"bearing":   cfg.Bearing,
		"pitch":     cfg.Pitch,
	}
	opts, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("encoding map options: %w", err)
	}

	m := &Map{
		sink:     e.sink,
		ref:      "window." + e.opts.MapVar,
		events:   e.opts.EventsURL,
		sources:  map[string]bool{},
		layers:   map[string]bool{},
		handlers: map[string]listener{},
	}
	for id := range cfg.Style.Sources {
		m.sources[id] = true
	}
	for _, l := range cfg.Style.Layers {
		m.layers[l.ID] = true
	}
	m.emit("%s = new maplibregl.Map(%s);", m.ref, opts)
	return m, nil
}

type listener struct {
	seq     int
	event   engine.Event
	layerID string
	handler engine.Handler
}

// Map mirrors the browser map's source and layer ids so duplicate ids fail
// on the server, where the error can be reported.
type Map struct {
	sink   Sink
	ref    string
	events string

	mu       sync.Mutex
	sources  map[string]bool
	layers   map[string]bool
	handlers map[string]listener
	seq      int
	removed  bool
}

func (m *Map) emit(format string, args ...any) {
	m.sink.Script(fmt.Sprintf(format, args...))
}

func jsValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// ControlElementID is the id of the element a custom control of the given
// type renders into.
func ControlElementID(controlType string) string {
	return controlType + "-control"
}

func (m *Map) AddControl(c engine.Control, pos engine.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return engine.ErrRemoved
	}
	if !pos.Valid() {
		return fmt.Errorf("invalid control position %q", pos)
	}

	var ctor string
	switch c.ControlType() {
	case "navigation":
		ctor = fmt.Sprintf("new maplibregl.NavigationControl(%s)", jsValue(orEmpty(c.ControlOptions())))
	case "geolocate":
		ctor = fmt.Sprintf("new maplibregl.GeolocateControl(%s)", jsValue(orEmpty(c.ControlOptions())))
	default:
		// Widgets rendered by the server get an empty container the page
		// patches HTML into.
		ctor = fmt.Sprintf(`{onAdd(){const d=document.createElement("div");d.id=%s;d.className="maplibregl-ctrl maplibregl-ctrl-group";return d},onRemove(){document.getElementById(%s)?.remove()}}`,
			jsValue(ControlElementID(c.ControlType())), jsValue(ControlElementID(c.ControlType())))
	}
	m.emit("%s.addControl(%s, %s);", m.ref, ctor, jsValue(pos))
	return nil
}

func orEmpty(opts map[string]any) map[string]any {
	if opts == nil {
		return map[string]any{}
	}
	return opts
}

func (m *Map) AddSource(id string, src style.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return engine.ErrRemoved
	}
	if m.sources[id] {
		return fmt.Errorf("source %q: %w", id, engine.ErrDuplicateID)
	}
	m.sources[id] = true
	m.emit("%s.addSource(%s, %s);", m.ref, jsValue(id), jsValue(src))
	return nil
}

func (m *Map) AddLayer(l style.Layer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return engine.ErrRemoved
	}
	if m.layers[l.ID] {
		return fmt.Errorf("layer %q: %w", l.ID, engine.ErrDuplicateID)
	}
	if !m.sources[l.Source] {
		return fmt.Errorf("layer %q references missing source %q", l.ID, l.Source)
	}
	m.layers[l.ID] = true
	m.emit("%s.addLayer(%s);", m.ref, jsValue(l))
	return nil
}

func (m *Map) HasSource(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sources[id]
}

func (m *Map) HasLayer(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.layers[id]
}

func (m *Map) SetLayoutProperty(layerID, name string, value any) error {
	return m.setProperty("setLayoutProperty", layerID, name, value)
}

func (m *Map) SetPaintProperty(layerID, name string, value any) error {
	return m.setProperty("setPaintProperty", layerID, name, value)
}

func (m *Map) setProperty(method, layerID, name string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return engine.ErrRemoved
	}
	if !m.layers[layerID] {
		return fmt.Errorf("%w: %q", engine.ErrUnknownLayer, layerID)
	}
	m.emit("%s.%s(%s, %s, %s);", m.ref, method, jsValue(layerID), jsValue(name), jsValue(value))
	return nil
}

// On registers h and installs a browser listener that posts matching events
// back to the events URL.
func (m *Map) On(ev engine.Event, layerID string, h engine.Handler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return func() {}
	}

	m.seq++
	key := fmt.Sprintf("%s:%s:%d", ev, layerID, m.seq)
	m.handlers[key] = listener{seq: m.seq, event: ev, layerID: layerID, handler: h}

	fn := fmt.Sprintf(`function(e){fetch(%s,{method:"POST",headers:{"Content-Type":"application/json"},body:JSON.stringify({event:%s,layer:%s,lngLat:e.lngLat?[e.lngLat.lng,e.lngLat.lat]:[0,0]})})}`,
		jsValue(m.events), jsValue(ev), jsValue(layerID))
	m.emit("(window.__plat=window.__plat||{})[%s]=%s;", jsValue(key), fn)
	m.emit("%s.on(%s);", m.ref, listenerArgs(ev, layerID, key))

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.handlers[key]; !ok {
			return
		}
		delete(m.handlers, key)
		if !m.removed {
			m.emit("%s.off(%s);delete window.__plat[%s];", m.ref, listenerArgs(ev, layerID, key), jsValue(key))
		}
	}
}

func listenerArgs(ev engine.Event, layerID, key string) string {
	args := []string{jsValue(ev)}
	if layerID != "" {
		args = append(args, jsValue(layerID))
	}
	args = append(args, "window.__plat["+jsValue(key)+"]")
	return strings.Join(args, ",")
}

func (m *Map) AddPopup(p engine.Popup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return engine.ErrRemoved
	}
	m.emit("new maplibregl.Popup().setLngLat(%s).setHTML(%s).addTo(%s);", jsValue(p.LngLat), jsValue(p.HTML), m.ref)
	return nil
}

// Remove destroys the browser map and forgets all listeners.
func (m *Map) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return
	}
	m.removed = true
	m.handlers = map[string]listener{}
	m.emit("%s?.remove();delete %s;", m.ref, m.ref)
}

// Dispatch delivers a browser event to the matching handlers in
// registration order. Layer-scoped handlers only see events for their layer.
func (m *Map) Dispatch(ev engine.MouseEvent) error {
	m.mu.Lock()
	if m.removed {
		m.mu.Unlock()
		return nil
	}
	var matched []listener
	for _, l := range m.handlers {
		if l.event != ev.Event || (l.layerID != "" && l.layerID != ev.LayerID) {
			continue
		}
		matched = append(matched, l)
	}
	m.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })
	for _, l := range matched {
		if err := l.handler(ev); err != nil {
			return err
		}
	}
	return nil
}
