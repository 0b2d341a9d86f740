package session

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"github.com/joeblew999/plat-basemap/internal/catalog"
	"github.com/joeblew999/plat-basemap/internal/control"
	"github.com/joeblew999/plat-basemap/internal/engine"
	"github.com/joeblew999/plat-basemap/internal/mapview"
	"github.com/joeblew999/plat-basemap/internal/poi"
	"github.com/joeblew999/plat-basemap/internal/viewer"
)

func newRegistry(limit int) *Registry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewRegistry(Options{
		Viewer: viewer.Config{
			Catalog: catalog.Default(),
			Place:   poi.Default(),
			View:    mapview.DefaultView(),
		},
		RenderControl: func(id string, v control.View) (string, error) {
			var b strings.Builder
			for _, e := range v.Base {
				if e.Checked {
					b.WriteString("base:" + e.ID)
				}
			}
			return b.String(), nil
		},
		MaxSessions: limit,
	}, log)
}

func scripts(cmds []Command) string {
	var b strings.Builder
	for _, c := range cmds {
		b.WriteString(c.Script)
		b.WriteString("\n")
	}
	return b.String()
}

func TestOutbox(t *testing.T) {
	o := NewOutbox()
	o.Script("a()")
	o.Patch("<p>x</p>", "#w")
	o.Script("b()")

	select {
	case <-o.Ready():
	default:
		t.Fatal("ready not signalled")
	}
	if o.Len() != 3 {
		t.Fatalf("len=%d, want 3", o.Len())
	}

	cmds := o.Drain()
	if len(cmds) != 3 || cmds[0].Script != "a()" || cmds[1].Selector != "#w" || cmds[2].Script != "b()" {
		t.Fatalf("drained %+v", cmds)
	}
	if o.Len() != 0 || len(o.Drain()) != 0 {
		t.Fatal("outbox not empty after drain")
	}

	o.Script("c()")
	o.Close()
	o.Close()
	o.Script("d()")
	select {
	case <-o.Done():
	default:
		t.Fatal("done not closed")
	}
	if cmds := o.Drain(); len(cmds) != 1 || cmds[0].Script != "c()" {
		t.Fatalf("drained %+v after close, want only c()", cmds)
	}
}

func TestCreate(t *testing.T) {
	r := newRegistry(0)
	s, err := r.Create()
	if err != nil {
		t.Fatal(err)
	}
	if s.ID == "" || r.Len() != 1 {
		t.Fatalf("id=%q len=%d", s.ID, r.Len())
	}

	js := scripts(s.Outbox().Drain())
	for _, want := range []string{
		"window.platMap = new maplibregl.Map(",
		"maplibregl.NavigationControl",
		"maplibregl.GeolocateControl",
		`window.platMap.on("load",`,
		`window.platMap.on("click","places",`,
		`"/api/v1/viewer/sessions/` + s.ID + `/events"`,
	} {
		if !strings.Contains(js, want) {
			t.Fatalf("scripts missing %q:\n%s", want, js)
		}
	}

	got, err := r.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("Get=%v, %v", got, err)
	}
}

func TestDispatchLoadPatchesControl(t *testing.T) {
	r := newRegistry(0)
	s, _ := r.Create()
	s.Outbox().Drain()

	if err := s.Dispatch(engine.MouseEvent{Event: engine.EventLoad}); err != nil {
		t.Fatal(err)
	}
	cmds := s.Outbox().Drain()
	if len(cmds) == 0 {
		t.Fatal("nothing queued after load")
	}
	last := cmds[len(cmds)-1]
	if last.Selector != "#layers-control" || last.HTML != "base:std" {
		t.Fatalf("last command=%+v", last)
	}
	js := scripts(cmds)
	if !strings.Contains(js, `addSource("places"`) || !strings.Contains(js, `d.id="layers-control"`) {
		t.Fatalf("load scripts:\n%s", js)
	}

	if err := s.Control(control.Event{Kind: control.SelectBase, LayerID: "pale"}); err != nil {
		t.Fatal(err)
	}
	cmds = s.Outbox().Drain()
	if !strings.Contains(scripts(cmds), `setLayoutProperty("pale", "visibility", "visible")`) {
		t.Fatalf("select scripts:\n%s", scripts(cmds))
	}
	if last := cmds[len(cmds)-1]; last.HTML != "base:pale" {
		t.Fatalf("patch=%q, want base:pale", last.HTML)
	}

	if err := s.Dispatch(engine.MouseEvent{Event: engine.EventClick, LayerID: "places", LngLat: orb.Point{139.75688, 35.68345}}); err != nil {
		t.Fatal(err)
	}
	if js := scripts(s.Outbox().Drain()); !strings.Contains(js, "LngLat(139.75688, 35.68345)") {
		t.Fatalf("click scripts:\n%s", js)
	}
}

func TestControlBeforeLoad(t *testing.T) {
	r := newRegistry(0)
	s, _ := r.Create()
	if err := s.Control(control.Event{Kind: control.SelectBase, LayerID: "pale"}); !errors.Is(err, viewer.ErrNotReady) {
		t.Fatalf("err=%v, want ErrNotReady", err)
	}
}

func TestClose(t *testing.T) {
	r := newRegistry(0)
	s, _ := r.Create()
	s.Outbox().Drain()

	r.Close(s.ID)
	if _, err := r.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
	if err := s.Dispatch(engine.MouseEvent{Event: engine.EventLoad}); !errors.Is(err, ErrClosed) {
		t.Fatalf("err=%v, want ErrClosed", err)
	}
	if js := scripts(s.Outbox().Drain()); !strings.Contains(js, "window.platMap?.remove()") {
		t.Fatalf("close scripts:\n%s", js)
	}
	select {
	case <-s.Outbox().Done():
	default:
		t.Fatal("outbox not closed")
	}

	// Unknown ids are ignored.
	r.Close("nope")
}

func TestMaxSessions(t *testing.T) {
	r := newRegistry(2)
	for i := 0; i < 2; i++ {
		if _, err := r.Create(); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := r.Create(); !errors.Is(err, ErrLimit) {
		t.Fatalf("err=%v, want ErrLimit", err)
	}

	r.CloseAll()
	if r.Len() != 0 {
		t.Fatalf("len=%d after CloseAll", r.Len())
	}
	if _, err := r.Create(); err != nil {
		t.Fatal(err)
	}
}

func TestMaxSessionsConcurrent(t *testing.T) {
	r := newRegistry(3)
	defer r.CloseAll()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Create(); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			} else if !errors.Is(err, ErrLimit) {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if created != 3 || r.Len() != 3 {
		t.Fatalf("created=%d len=%d, want 3", created, r.Len())
	}
}

func TestRenderError(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	r := NewRegistry(Options{
		Viewer: viewer.Config{Catalog: catalog.Default(), Place: poi.Default(), View: mapview.DefaultView()},
		RenderControl: func(string, control.View) (string, error) {
			return "", errors.New("no <template>")
		},
	}, log)
	s, err := r.Create()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Dispatch(engine.MouseEvent{Event: engine.EventLoad}); err != nil {
		t.Fatal(err)
	}
	cmds := s.Outbox().Drain()
	if last := cmds[len(cmds)-1]; last.HTML != "<p>no &lt;template&gt;</p>" {
		t.Fatalf("patch=%q", last.HTML)
	}
}
