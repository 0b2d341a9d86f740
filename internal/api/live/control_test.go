package live

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/sirupsen/logrus"

	"github.com/joeblew999/plat-basemap/internal/api"
	"github.com/joeblew999/plat-basemap/internal/catalog"
	"github.com/joeblew999/plat-basemap/internal/mapview"
	"github.com/joeblew999/plat-basemap/internal/poi"
	"github.com/joeblew999/plat-basemap/internal/session"
	"github.com/joeblew999/plat-basemap/internal/viewer"
)

func setup(t *testing.T) (humatest.TestAPI, *session.Registry) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	reg := session.NewRegistry(session.Options{
		Viewer: viewer.Config{
			Catalog: catalog.Default(),
			Place:   poi.Default(),
			View:    mapview.DefaultView(),
		},
	}, log)
	t.Cleanup(reg.CloseAll)

	cfg := huma.DefaultConfig("test", "1.0.0")
	cfg.Transformers = append(cfg.Transformers, api.LinkTransformer())
	_, tapi := humatest.New(t, cfg)
	NewControlHandler(reg, log).RegisterRoutes(tapi)
	return tapi, reg
}

// loaded creates a session whose map has fired its load event.
func loaded(t *testing.T, tapi humatest.TestAPI, reg *session.Registry) string {
	t.Helper()
	s, err := reg.Create()
	if err != nil {
		t.Fatal(err)
	}
	resp := tapi.Post("/api/v1/viewer/sessions/"+s.ID+"/events", map[string]any{"event": "load"})
	if resp.Code != http.StatusNoContent {
		t.Fatalf("load status=%d body=%s", resp.Code, resp.Body.String())
	}
	return s.ID
}

func decode(t *testing.T, resp interface{ Bytes() []byte }) ControlBody {
	t.Helper()
	var body ControlBody
	if err := json.Unmarshal(resp.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	return body
}

func TestGetControl(t *testing.T) {
	tapi, reg := setup(t)
	id := loaded(t, tapi, reg)

	resp := tapi.Get("/api/v1/viewer/sessions/" + id + "/control")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.Code)
	}
	body := decode(t, resp.Body)
	if body.Session != id || body.Selected != "std" {
		t.Fatalf("body=%+v", body)
	}
	if len(body.Visible) != 1 || body.Visible[0] != "std" {
		t.Fatalf("visible=%v, want [std]", body.Visible)
	}
	if len(body.Layers) != 5 {
		t.Fatalf("layers=%d, want 5", len(body.Layers))
	}

	want := `</api/v1/viewer/sessions/` + id + `/control/base/pale>; rel="select"; method="POST"; title="Show as basemap"`
	found := false
	for _, l := range resp.Header().Values("Link") {
		if l == want {
			found = true
		}
		if strings.Contains(l, "/control/base/std>") {
			t.Fatalf("selected base offered as action: %s", l)
		}
	}
	if !found {
		t.Fatalf("links=%v", resp.Header().Values("Link"))
	}
}

func TestSelectBase(t *testing.T) {
	tapi, reg := setup(t)
	id := loaded(t, tapi, reg)

	resp := tapi.Post("/api/v1/viewer/sessions/" + id + "/control/base/pale")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}
	if body := decode(t, resp.Body); body.Selected != "pale" || !body.Layers["pale"].Visible || body.Layers["std"].Visible {
		t.Fatalf("body=%+v", body)
	}

	s, _ := reg.Get(id)
	var js strings.Builder
	for _, c := range s.Outbox().Drain() {
		js.WriteString(c.Script)
	}
	if !strings.Contains(js.String(), `setLayoutProperty("pale", "visibility", "visible")`) {
		t.Fatalf("scripts=%s", js.String())
	}
}

func TestOverlayActionsFollowOverlayFlag(t *testing.T) {
	tapi, reg := setup(t)
	id := loaded(t, tapi, reg)

	// pale is drawn as the base but its overlay is off.
	resp := tapi.Post("/api/v1/viewer/sessions/" + id + "/control/base/pale")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}
	if body := decode(t, resp.Body); len(body.Shown) != 0 {
		t.Fatalf("shown=%v, want none", body.Shown)
	}
	show := `</api/v1/viewer/sessions/` + id + `/control/overlay/pale?visible=true>; rel="show"`
	hide := `/control/overlay/pale?visible=false>`
	found := false
	for _, l := range resp.Header().Values("Link") {
		if strings.HasPrefix(l, show) {
			found = true
		}
		if strings.Contains(l, hide) {
			t.Fatalf("hidden overlay offered hide: %s", l)
		}
	}
	if !found {
		t.Fatalf("links=%v, want show on pale", resp.Header().Values("Link"))
	}

	resp = tapi.Post("/api/v1/viewer/sessions/" + id + "/control/overlay/ortoEsri?visible=true")
	if body := decode(t, resp.Body); len(body.Shown) != 1 || body.Shown[0] != "ortoEsri" {
		t.Fatalf("shown=%v, want [ortoEsri]", body.Shown)
	}
}

func TestToggleOverlay(t *testing.T) {
	tapi, reg := setup(t)
	id := loaded(t, tapi, reg)

	resp := tapi.Post("/api/v1/viewer/sessions/" + id + "/control/overlay/ortoEsri?visible=true")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}
	body := decode(t, resp.Body)
	if !body.Layers["ortoEsri"].Visible || body.Selected != "std" {
		t.Fatalf("body=%+v", body)
	}

	if resp := tapi.Post("/api/v1/viewer/sessions/" + id + "/control/overlay/nope?visible=true"); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown overlay status=%d, want 404", resp.Code)
	}
}

func TestSetOpacity(t *testing.T) {
	tapi, reg := setup(t)
	id := loaded(t, tapi, reg)

	resp := tapi.Post("/api/v1/viewer/sessions/"+id+"/control/opacity/pale?value=0.25", "Datastar-Request: true")
	if resp.Code != http.StatusNoContent {
		t.Fatalf("status=%d, want 204", resp.Code)
	}
	if resp.Body.Len() != 0 {
		t.Fatalf("body=%q, want empty", resp.Body.String())
	}

	resp = tapi.Get("/api/v1/viewer/sessions/" + id + "/control")
	if body := decode(t, resp.Body); body.Layers["pale"].Opacity != 0.25 {
		t.Fatalf("opacity=%v, want 0.25", body.Layers["pale"].Opacity)
	}

	if resp := tapi.Post("/api/v1/viewer/sessions/" + id + "/control/opacity/pale?value=2"); resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("out of range status=%d, want 422", resp.Code)
	}
}

func TestControlErrors(t *testing.T) {
	tapi, reg := setup(t)

	if resp := tapi.Post("/api/v1/viewer/sessions/nope/control/base/pale"); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown session status=%d, want 404", resp.Code)
	}
	if resp := tapi.Post("/api/v1/viewer/sessions/nope/events", map[string]any{"event": "load"}); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown session event status=%d, want 404", resp.Code)
	}

	s, err := reg.Create()
	if err != nil {
		t.Fatal(err)
	}
	if resp := tapi.Post("/api/v1/viewer/sessions/" + s.ID + "/control/base/pale"); resp.Code != http.StatusConflict {
		t.Fatalf("before load status=%d, want 409", resp.Code)
	}
	if resp := tapi.Get("/api/v1/viewer/sessions/" + s.ID + "/control"); resp.Code != http.StatusConflict {
		t.Fatalf("get before load status=%d, want 409", resp.Code)
	}

	tapi.Post("/api/v1/viewer/sessions/"+s.ID+"/events", map[string]any{"event": "load"})
	if resp := tapi.Post("/api/v1/viewer/sessions/"+s.ID+"/events", map[string]any{"event": "load"}); resp.Code != http.StatusConflict {
		t.Fatalf("second load status=%d, want 409", resp.Code)
	}
}

func TestClickEvent(t *testing.T) {
	tapi, reg := setup(t)
	id := loaded(t, tapi, reg)
	s, _ := reg.Get(id)
	s.Outbox().Drain()

	resp := tapi.Post("/api/v1/viewer/sessions/"+id+"/events", map[string]any{
		"event":  "click",
		"layer":  "places",
		"lngLat": []float64{139.75688, 35.68345},
	})
	if resp.Code != http.StatusNoContent {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}
	cmds := s.Outbox().Drain()
	if len(cmds) != 1 || !strings.Contains(cmds[0].Script, "LngLat(139.75688, 35.68345)") {
		t.Fatalf("commands=%+v", cmds)
	}
}
