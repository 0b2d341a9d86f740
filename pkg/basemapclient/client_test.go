package basemapclient_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/sirupsen/logrus"

	"github.com/joeblew999/plat-basemap/internal/api/live"
	"github.com/joeblew999/plat-basemap/internal/catalog"
	"github.com/joeblew999/plat-basemap/internal/engine"
	"github.com/joeblew999/plat-basemap/internal/mapview"
	"github.com/joeblew999/plat-basemap/internal/poi"
	"github.com/joeblew999/plat-basemap/internal/server"
	"github.com/joeblew999/plat-basemap/internal/session"
	"github.com/joeblew999/plat-basemap/internal/viewer"
	"github.com/joeblew999/plat-basemap/pkg/basemapclient"
)

func quiet() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func client(t *testing.T) *basemapclient.Client {
	t.Helper()
	srv, err := server.New(server.Config{Host: "localhost", Port: "0", Logger: quiet()})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return basemapclient.New(ts.URL + "/")
}

func TestHealth(t *testing.T) {
	body, err := client(t).Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" {
		t.Fatalf("status=%q, want ok", body.Status)
	}
}

func TestGetInfo(t *testing.T) {
	body, err := client(t).GetInfo(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if body.Name != "plat-basemap" || body.Layers != 5 {
		t.Fatalf("info=%+v", body)
	}
}

func TestCatalog(t *testing.T) {
	c := client(t)
	ctx := context.Background()

	page, err := c.ListCatalog(ctx, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 5 || len(page.Data) != 2 || page.Data[0].ID != "pale" {
		t.Fatalf("page=%+v", page)
	}

	entry, err := c.GetEntry(ctx, "OpenStreetMap")
	if err != nil {
		t.Fatal(err)
	}
	if entry.MaxZoom != 20 || entry.Kind != "raster" {
		t.Fatalf("entry=%+v", entry)
	}

	_, err = c.GetEntry(ctx, "nope")
	var apiErr *basemapclient.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("err=%v, want 404", err)
	}

	doc, err := c.GetStyle(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc) == 0 {
		t.Fatal("empty style")
	}
}

func TestControl(t *testing.T) {
	reg := session.NewRegistry(session.Options{
		Viewer: viewer.Config{Catalog: catalog.Default(), Place: poi.Default(), View: mapview.DefaultView()},
	}, quiet())
	t.Cleanup(reg.CloseAll)

	mux := http.NewServeMux()
	live.NewControlHandler(reg, quiet()).RegisterRoutes(humago.New(mux, huma.DefaultConfig("test", "1.0.0")))
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	s, err := reg.Create()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Dispatch(engine.MouseEvent{Event: engine.EventLoad}); err != nil {
		t.Fatal(err)
	}

	c := basemapclient.New(ts.URL)
	ctx := context.Background()

	st, err := c.SelectBase(ctx, s.ID, "seamlessphoto")
	if err != nil {
		t.Fatal(err)
	}
	if st.Selected != "seamlessphoto" {
		t.Fatalf("selected=%q", st.Selected)
	}

	if st, err = c.SetOverlay(ctx, s.ID, "pale", true); err != nil {
		t.Fatal(err)
	}
	if !st.Layers["pale"].Visible || len(st.Shown) != 1 || st.Shown[0] != "pale" {
		t.Fatalf("overlay not shown: %+v", st)
	}

	if st, err = c.SetOpacity(ctx, s.ID, "pale", 0.4); err != nil {
		t.Fatal(err)
	}
	if st.Layers["pale"].Opacity != 0.4 {
		t.Fatalf("opacity=%v, want 0.4", st.Layers["pale"].Opacity)
	}

	st, err = c.GetControl(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Visible) != 2 {
		t.Fatalf("visible=%v, want pale and seamlessphoto", st.Visible)
	}

	_, err = c.SetOpacity(ctx, s.ID, "pale", 3)
	var apiErr *basemapclient.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("err=%v, want 422", err)
	}
}
