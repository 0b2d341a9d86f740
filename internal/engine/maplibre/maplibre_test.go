package maplibre

import (
	"errors"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-basemap/internal/catalog"
	"github.com/joeblew999/plat-basemap/internal/engine"
	"github.com/joeblew999/plat-basemap/internal/style"
)

type recorder struct {
	scripts []string
}

func (r *recorder) Script(js string) { r.scripts = append(r.scripts, js) }

func (r *recorder) last() string {
	if len(r.scripts) == 0 {
		return ""
	}
	return r.scripts[len(r.scripts)-1]
}

func newMap(t *testing.T) (*Map, *recorder) {
	t.Helper()
	doc, err := style.BuildInitialStyle(catalog.Default())
	if err != nil {
		t.Fatal(err)
	}
	r := &recorder{}
	m, err := New(r, Options{EventsURL: "/events"}).CreateMap(engine.MapConfig{
		Container: "map",
		Style:     doc,
		Center:    orb.Point{139.75688, 35.68345},
		Zoom:      14,
	})
	if err != nil {
		t.Fatal(err)
	}
	return m.(*Map), r
}

type widget struct{}

func (widget) ControlType() string            { return "layers" }
func (widget) ControlOptions() map[string]any { return nil }

func TestCreateMap(t *testing.T) {
	_, r := newMap(t)
	if len(r.scripts) != 1 {
		t.Fatalf("scripts=%d, want 1", len(r.scripts))
	}
	js := r.scripts[0]
	for _, want := range []string{
		"window.platMap = new maplibregl.Map(",
		`"container":"map"`,
		`"center":[139.75688,35.68345]`,
		`"zoom":14`,
		`"version":8`,
	} {
		if !strings.Contains(js, want) {
			t.Fatalf("script %q missing %q", js, want)
		}
	}
}

func TestCreateMapInvalidStyle(t *testing.T) {
	r := &recorder{}
	if _, err := New(r, Options{}).CreateMap(engine.MapConfig{Container: "map"}); err == nil {
		t.Fatal("expected error for invalid style")
	}
	if len(r.scripts) != 0 {
		t.Fatal("script emitted for invalid style")
	}
}

func TestSourcesAndLayers(t *testing.T) {
	m, r := newMap(t)

	if err := m.AddSource("std", style.Source{Type: "raster"}); !errors.Is(err, engine.ErrDuplicateID) {
		t.Fatalf("err=%v, want ErrDuplicateID", err)
	}
	if err := m.AddLayer(style.Layer{ID: "x", Type: "raster", Source: "missing"}); err == nil {
		t.Fatal("expected error for missing source")
	}
	if len(r.scripts) != 1 {
		t.Fatal("failed calls emitted scripts")
	}

	if err := m.AddSource("pale", style.Source{Type: "raster", Tiles: []string{"https://t/{z}/{x}/{y}.png"}}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(r.last(), `window.platMap.addSource("pale", {"type":"raster"`) {
		t.Fatalf("script=%q", r.last())
	}
	if err := m.AddLayer(style.Layer{ID: "pale", Type: "raster", Source: "pale"}); err != nil {
		t.Fatal(err)
	}
	if !m.HasLayer("pale") || !m.HasSource("pale") {
		t.Fatal("pale not tracked")
	}

	if err := m.SetLayoutProperty("pale", "visibility", "none"); err != nil {
		t.Fatal(err)
	}
	if r.last() != `window.platMap.setLayoutProperty("pale", "visibility", "none");` {
		t.Fatalf("script=%q", r.last())
	}
	if err := m.SetPaintProperty("nope", "raster-opacity", 0.5); !errors.Is(err, engine.ErrUnknownLayer) {
		t.Fatalf("err=%v, want ErrUnknownLayer", err)
	}
}

func TestAddControl(t *testing.T) {
	m, r := newMap(t)

	if err := m.AddControl(engine.NavigationControl{}, engine.TopRight); err != nil {
		t.Fatal(err)
	}
	if r.last() != `window.platMap.addControl(new maplibregl.NavigationControl({}), "top-right");` {
		t.Fatalf("script=%q", r.last())
	}

	if err := m.AddControl(widget{}, engine.BottomLeft); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.last(), `d.id="layers-control"`) || !strings.HasSuffix(r.last(), `"bottom-left");`) {
		t.Fatalf("script=%q", r.last())
	}

	if err := m.AddControl(widget{}, "middle"); err == nil {
		t.Fatal("expected error for invalid position")
	}
}

func TestOnDispatch(t *testing.T) {
	m, r := newMap(t)

	var got []string
	m.On(engine.EventClick, "", func(engine.MouseEvent) error { got = append(got, "any"); return nil })
	off := m.On(engine.EventClick, "places", func(engine.MouseEvent) error { got = append(got, "places"); return nil })
	m.On(engine.EventLoad, "", func(engine.MouseEvent) error { got = append(got, "load"); return nil })

	if !strings.Contains(r.last(), `window.platMap.on("load",window.__plat[`) {
		t.Fatalf("script=%q", r.last())
	}
	if !strings.Contains(r.scripts[len(r.scripts)-3], `window.platMap.on("click","places",`) {
		t.Fatalf("script=%q", r.scripts[len(r.scripts)-3])
	}
	if !strings.Contains(r.scripts[len(r.scripts)-4], `fetch("/events"`) {
		t.Fatalf("bridge=%q", r.scripts[len(r.scripts)-4])
	}

	if err := m.Dispatch(engine.MouseEvent{Event: engine.EventClick, LayerID: "places"}); err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, ",") != "any,places" {
		t.Fatalf("handlers ran %v, want [any places]", got)
	}

	got = nil
	if err := m.Dispatch(engine.MouseEvent{Event: engine.EventClick, LayerID: "std"}); err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, ",") != "any" {
		t.Fatalf("handlers ran %v, want [any]", got)
	}

	off()
	if !strings.Contains(r.last(), `window.platMap.off("click","places",`) {
		t.Fatalf("script=%q", r.last())
	}
	n := len(r.scripts)
	off()
	if len(r.scripts) != n {
		t.Fatal("second off emitted a script")
	}

	got = nil
	if err := m.Dispatch(engine.MouseEvent{Event: engine.EventClick, LayerID: "places"}); err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, ",") != "any" {
		t.Fatalf("handlers ran %v after off, want [any]", got)
	}
}

func TestDispatchError(t *testing.T) {
	m, _ := newMap(t)
	boom := errors.New("boom")
	m.On(engine.EventLoad, "", func(engine.MouseEvent) error { return boom })
	if err := m.Dispatch(engine.MouseEvent{Event: engine.EventLoad}); !errors.Is(err, boom) {
		t.Fatalf("err=%v, want boom", err)
	}
}

func TestPopup(t *testing.T) {
	m, r := newMap(t)
	p := engine.NewPopup().SetLngLat(orb.Point{139.75688, 35.68345}).SetHTML("<p>hi</p>")
	if err := p.AddTo(m); err != nil {
		t.Fatal(err)
	}
	// Markup is escaped so it cannot close the surrounding script element.
	want := `new maplibregl.Popup().setLngLat([139.75688,35.68345]).setHTML("\u003cp\u003ehi\u003c/p\u003e").addTo(window.platMap);`
	if r.last() != want {
		t.Fatalf("script=%q, want %q", r.last(), want)
	}
}

func TestRemove(t *testing.T) {
	m, r := newMap(t)
	calls := 0
	m.On(engine.EventClick, "", func(engine.MouseEvent) error { calls++; return nil })

	m.Remove()
	if r.last() != "window.platMap?.remove();delete window.platMap;" {
		t.Fatalf("script=%q", r.last())
	}
	n := len(r.scripts)
	m.Remove()
	if len(r.scripts) != n {
		t.Fatal("second Remove emitted a script")
	}

	if err := m.Dispatch(engine.MouseEvent{Event: engine.EventClick}); err != nil || calls != 0 {
		t.Fatalf("dispatch after remove: err=%v calls=%d", err, calls)
	}
	if err := m.AddSource("x", style.Source{Type: "raster"}); !errors.Is(err, engine.ErrRemoved) {
		t.Fatalf("err=%v, want ErrRemoved", err)
	}
	if err := m.AddPopup(engine.Popup{}); !errors.Is(err, engine.ErrRemoved) {
		t.Fatalf("err=%v, want ErrRemoved", err)
	}
	if err := m.SetLayoutProperty("std", "visibility", "none"); !errors.Is(err, engine.ErrRemoved) {
		t.Fatalf("err=%v, want ErrRemoved", err)
	}
}

func TestCustomMapVar(t *testing.T) {
	doc, _ := style.BuildInitialStyle(catalog.Default())
	r := &recorder{}
	if _, err := New(r, Options{MapVar: "m1"}).CreateMap(engine.MapConfig{Container: "map", Style: doc}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(r.last(), "window.m1 = ") {
		t.Fatalf("script=%q", r.last())
	}
}
