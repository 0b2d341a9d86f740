// Package mapview owns the single live map of a mounted view.
package mapview

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"github.com/joeblew999/plat-basemap/internal/engine"
	"github.com/joeblew999/plat-basemap/internal/style"
)

// ViewState is the camera the map opens with.
type ViewState struct {
	Center  orb.Point
	Zoom    float64
	Bearing float64
	Pitch   float64
}

// DefaultView centres on the Imperial Palace at street level.
func DefaultView() ViewState {
	return ViewState{Center: orb.Point{139.75688, 35.68345}, Zoom: 14}
}

// Manager creates the map at most once per mount and tears it down on
// unmount. Other components receive the map from it; none create or
// destroy maps themselves.
type Manager struct {
	engine engine.Engine
	log    logrus.FieldLogger

	mu        sync.Mutex
	instance  engine.Map
	container string
	offs      []func()
}

// NewManager returns a manager that creates maps with e.
func NewManager(e engine.Engine, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{engine: e, log: log}
}

// Initialize creates the map in container. Without a container it does
// nothing and returns nil. When a map already exists it is returned as is.
func (m *Manager) Initialize(container string, initial style.Document, view ViewState) (engine.Map, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.instance != nil {
		m.log.WithField("container", m.container).Debug("map already initialized")
		return m.instance, nil
	}
	if container == "" {
		m.log.Debug("no container, skipping map initialization")
		return nil, nil
	}

	inst, err := m.engine.CreateMap(engine.MapConfig{
		Container: container,
		Style:     initial,
		Center:    view.Center,
		Zoom:      view.Zoom,
		Bearing:   view.Bearing,
		Pitch:     view.Pitch,
	})
	if err != nil {
		return nil, fmt.Errorf("creating map in %q: %w", container, err)
	}

	m.instance = inst
	m.container = container
	m.log.WithField("container", container).Info("map initialized")
	return inst, nil
}

// Instance returns the live map, if any.
func (m *Manager) Instance() (engine.Map, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.instance, m.instance != nil
}

// Live reports whether inst is still the managed map.
func (m *Manager) Live(inst engine.Map) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return inst != nil && m.instance == inst
}

// On registers h on the live map. The listener is detached on Teardown,
// and events reaching it after the map was torn down are dropped.
// It returns false when there is no live map.
func (m *Manager) On(ev engine.Event, layerID string, h engine.Handler) bool {
	m.mu.Lock()
	inst := m.instance
	m.mu.Unlock()
	if inst == nil {
		return false
	}

	off := inst.On(ev, layerID, func(e engine.MouseEvent) error {
		if !m.Live(inst) {
			m.log.WithField("event", e.Event).Debug("dropping event for torn down map")
			return nil
		}
		return h(e)
	})

	m.mu.Lock()
	if m.instance != inst {
		m.mu.Unlock()
		off()
		return false
	}
	m.offs = append(m.offs, off)
	m.mu.Unlock()
	return true
}

// Teardown detaches listeners, removes the map and forgets it so a later
// Initialize creates a fresh one.
func (m *Manager) Teardown() {
	m.mu.Lock()
	inst := m.instance
	offs := m.offs
	container := m.container
	m.instance = nil
	m.container = ""
	m.offs = nil
	m.mu.Unlock()

	if inst == nil {
		return
	}
	for _, off := range offs {
		off()
	}
	inst.Remove()
	m.log.WithField("container", container).Info("map torn down")
}
