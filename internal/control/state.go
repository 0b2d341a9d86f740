// Package control implements the basemap/overlay layer switcher. Its State
// is the only record of which layers are shown; the map's layer properties
// are a projection of it, written one way.
package control

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/joeblew999/plat-basemap/internal/style"
)

var (
	ErrUnknownLayer    = errors.New("control: unknown layer")
	ErrOpacityDisabled = errors.New("control: opacity control disabled")
	ErrBadEvent        = errors.New("control: bad event")
)

// Entry is a layer offered by the control.
type Entry struct {
	ID    string
	Label string
	// OpacityProperty is the paint property the opacity slider drives.
	OpacityProperty string
}

// LayerState is the projected state of one map layer.
type LayerState struct {
	Visible bool    `json:"visible" doc:"Whether the layer is drawn"`
	Opacity float64 `json:"opacity" minimum:"0" maximum:"1" doc:"Layer opacity (0-1)"`
}

// State is the layer visibility state. Exactly one base layer is selected
// and selecting one hides every other base layer, overlay flag or not.
// Toggling an overlay writes only that layer.
type State struct {
	base     []string
	overlays []string
	selected string
	shown    map[string]bool
	visible  map[string]bool
	opacity  map[string]float64
	props    map[string]string
	slider   bool
}

// NewState returns the initial state: the first base layer selected, all
// overlays hidden, every layer fully opaque.
func NewState(opts Options) (State, error) {
	if len(opts.BaseLayers) == 0 {
		return State{}, fmt.Errorf("%w: no base layers", ErrBadEvent)
	}

	s := State{
		shown:   map[string]bool{},
		visible: map[string]bool{},
		opacity: map[string]float64{},
		props:   map[string]string{},
		slider:  opts.OpacityControl,
	}
	seen := map[string]bool{}
	for _, e := range opts.BaseLayers {
		if seen[e.ID] {
			return State{}, fmt.Errorf("duplicate base layer %q", e.ID)
		}
		seen[e.ID] = true
		s.base = append(s.base, e.ID)
		s.register(e)
	}
	seen = map[string]bool{}
	for _, e := range opts.OverLayers {
		if seen[e.ID] {
			return State{}, fmt.Errorf("duplicate overlay %q", e.ID)
		}
		seen[e.ID] = true
		s.overlays = append(s.overlays, e.ID)
		s.shown[e.ID] = false
		s.register(e)
	}
	s.selected = s.base[0]
	s.visible[s.selected] = true
	return s, nil
}

func (s *State) register(e Entry) {
	s.opacity[e.ID] = 1
	if e.OpacityProperty != "" {
		s.props[e.ID] = e.OpacityProperty
	}
}

func (s State) clone() State {
	n := s
	n.shown = make(map[string]bool, len(s.shown))
	for k, v := range s.shown {
		n.shown[k] = v
	}
	n.visible = make(map[string]bool, len(s.visible))
	for k, v := range s.visible {
		n.visible[k] = v
	}
	n.opacity = make(map[string]float64, len(s.opacity))
	for k, v := range s.opacity {
		n.opacity[k] = v
	}
	return n
}

// Selected returns the visible base layer.
func (s State) Selected() string { return s.selected }

// BaseVisible reports whether id is the selected base layer.
func (s State) BaseVisible(id string) bool { return id == s.selected }

// OverlayVisible reports whether overlay id is switched on.
func (s State) OverlayVisible(id string) bool { return s.shown[id] }

// IsBase reports whether id is in the base group.
func (s State) IsBase(id string) bool { return contains(s.base, id) }

// IsOverlay reports whether id is in the overlay group.
func (s State) IsOverlay(id string) bool { return contains(s.overlays, id) }

// Layer projects the state of one layer.
func (s State) Layer(id string) (LayerState, bool) {
	if !s.IsBase(id) && !s.IsOverlay(id) {
		return LayerState{}, false
	}
	return LayerState{
		Visible: s.visible[id],
		Opacity: s.opacity[id],
	}, true
}

// Layers projects the state of every layer the control knows.
func (s State) Layers() map[string]LayerState {
	out := make(map[string]LayerState, len(s.opacity))
	for id := range s.opacity {
		out[id], _ = s.Layer(id)
	}
	return out
}

// ids returns every known layer id, base layers first, each once.
func (s State) ids() []string {
	ids := append([]string(nil), s.base...)
	for _, id := range s.overlays {
		if !contains(s.base, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// EventKind enumerates control input events.
type EventKind string

const (
	SelectBase    EventKind = "base"
	ToggleOverlay EventKind = "overlay"
	SetOpacity    EventKind = "opacity"
)

// Event is a user input on the control.
type Event struct {
	Kind    EventKind
	LayerID string
	Visible bool
	Opacity float64
}

// Mutation is a single map property write.
type Mutation struct {
	LayerID  string
	Paint    bool
	Property string
	Value    any
}

// Reduce applies ev to s and returns the new state together with the map
// writes that project the change. s itself is not modified.
func Reduce(s State, ev Event) (State, []Mutation, error) {
	switch ev.Kind {
	case SelectBase:
		if !s.IsBase(ev.LayerID) {
			return s, nil, fmt.Errorf("%w: base %q", ErrUnknownLayer, ev.LayerID)
		}
		n := s.clone()
		n.selected = ev.LayerID
		muts := make([]Mutation, 0, len(n.base))
		for _, id := range n.base {
			on := id == ev.LayerID
			n.visible[id] = on
			if !on {
				n.shown[id] = false
			}
			muts = append(muts, n.visibilityMutation(id))
		}
		return n, muts, nil

	case ToggleOverlay:
		if !s.IsOverlay(ev.LayerID) {
			return s, nil, fmt.Errorf("%w: overlay %q", ErrUnknownLayer, ev.LayerID)
		}
		n := s.clone()
		n.shown[ev.LayerID] = ev.Visible
		n.visible[ev.LayerID] = ev.Visible
		return n, []Mutation{n.visibilityMutation(ev.LayerID)}, nil

	case SetOpacity:
		if !s.slider {
			return s, nil, ErrOpacityDisabled
		}
		if !s.IsOverlay(ev.LayerID) {
			return s, nil, fmt.Errorf("%w: overlay %q", ErrUnknownLayer, ev.LayerID)
		}
		if math.IsNaN(ev.Opacity) {
			return s, nil, fmt.Errorf("%w: opacity is NaN", ErrBadEvent)
		}
		n := s.clone()
		n.opacity[ev.LayerID] = math.Max(0, math.Min(1, ev.Opacity))
		m, ok := n.opacityMutation(ev.LayerID)
		if !ok {
			return n, nil, nil
		}
		return n, []Mutation{m}, nil
	}
	return s, nil, fmt.Errorf("%w: kind %q", ErrBadEvent, ev.Kind)
}

// Projection returns the writes that bring a map fully in line with s.
func (s State) Projection() []Mutation {
	var muts []Mutation
	for _, id := range s.ids() {
		muts = append(muts, s.visibilityMutation(id))
		if m, ok := s.opacityMutation(id); ok {
			muts = append(muts, m)
		}
	}
	return muts
}

func (s State) visibilityMutation(id string) Mutation {
	ls, _ := s.Layer(id)
	return Mutation{LayerID: id, Property: "visibility", Value: style.Visibility(ls.Visible)}
}

func (s State) opacityMutation(id string) (Mutation, bool) {
	prop, ok := s.props[id]
	if !ok {
		return Mutation{}, false
	}
	return Mutation{LayerID: id, Paint: true, Property: prop, Value: s.opacity[id]}, true
}

// VisibleIDs returns the ids currently drawn, sorted.
func (s State) VisibleIDs() []string {
	var ids []string
	for id, ls := range s.Layers() {
		if ls.Visible {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
