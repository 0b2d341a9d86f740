package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/danielgtaylor/humaclient"
	"github.com/sirupsen/logrus"

	"github.com/joeblew999/plat-basemap/internal/api"
	"github.com/joeblew999/plat-basemap/internal/api/live"
	"github.com/joeblew999/plat-basemap/internal/catalog"
	"github.com/joeblew999/plat-basemap/internal/control"
	"github.com/joeblew999/plat-basemap/internal/mapview"
	"github.com/joeblew999/plat-basemap/internal/poi"
	"github.com/joeblew999/plat-basemap/internal/session"
	"github.com/joeblew999/plat-basemap/internal/templates"
	"github.com/joeblew999/plat-basemap/internal/viewer"
)

// Config holds the server configuration.
type Config struct {
	Host        string
	Port        string
	DataDir     string
	WebDir      string // Optional directory of *.html template overrides
	CatalogFile string // Optional YAML catalog replacing the built-in one
	MaxSessions int
	Logger      logrus.FieldLogger
}

// Server is the basemap HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	log      logrus.FieldLogger
	services *api.Services
	sessions *session.Registry
	renderer *templates.Renderer
}

// New creates a new basemap server.
func New(cfg Config) (*Server, error) {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	cat, err := loadCatalog(cfg, log)
	if err != nil {
		return nil, err
	}
	styles, err := api.NewStyleCache(cat)
	if err != nil {
		return nil, err
	}
	renderer, err := templates.New(cfg.WebDir)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-basemap API", "1.0.0")
	humaConfig.Info.Description = "Basemap viewer API: tile catalog, map style and live layer control."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	place := poi.Default()
	sessions := session.NewRegistry(session.Options{
		Viewer: viewer.Config{
			Catalog: cat,
			Place:   place,
			View:    mapview.DefaultView(),
		},
		RenderControl: func(id string, v control.View) (string, error) {
			return renderer.LayerControl("/api/v1/viewer/sessions/"+id+"/control", v)
		},
		MaxSessions: cfg.MaxSessions,
	}, log)

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		log:      log,
		services: &api.Services{Catalog: cat, Place: place, Styles: styles},
		sessions: sessions,
		renderer: renderer,
	}
	s.routes()
	return s, nil
}

func loadCatalog(cfg Config, log logrus.FieldLogger) (catalog.Catalog, error) {
	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		c, err := catalog.Load(cfg.CatalogFile)
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("loading catalog: %w", err)
		}
		cat = c
	}
	if cfg.DataDir == "" {
		return cat, nil
	}

	found, err := catalog.Discover(filepath.Join(cfg.DataDir, "tiles"), "/tiles")
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("discovering tiles: %w", err)
	}
	if len(found) > 0 {
		log.WithField("count", len(found)).Info("pmtiles archives added to catalog")
	}
	return catalog.Append(cat, found...)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// GenerateClient writes a Go client SDK for the API into outDir. The package
// is named after the directory.
func (s *Server) GenerateClient(outDir string) error {
	err := humaclient.GenerateClientWithOptions(s.humaAPI, humaclient.Options{
		PackageName:     filepath.Base(outDir),
		ClientName:      "BasemapClient",
		OutputDirectory: outDir,
	})
	if err != nil {
		return fmt.Errorf("generating client in %s: %w", outDir, err)
	}
	return nil
}

// Close ends every viewer session and releases the style cache.
func (s *Server) Close() error {
	s.sessions.CloseAll()
	s.services.Styles.Close()
	return nil
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewInfoHandler(s.config.DataDir, s.services.Catalog.Len(), s.sessions).RegisterRoutes(s.humaAPI)

	// Register viewer SSE routes using Huma + Datastar SDK
	live.NewStreamHandler(s.sessions, s.log).RegisterRoutes(s.humaAPI)
	live.NewControlHandler(s.sessions, s.log).RegisterRoutes(s.humaAPI)

	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}
	if s.config.DataDir != "" {
		tilesDir := filepath.Join(s.config.DataDir, "tiles")
		s.mux.Handle("/tiles/", http.StripPrefix("/tiles/", s.handleTiles(tilesDir)))
	}

	// Page routes
	s.mux.HandleFunc("/viewer", s.handleViewer)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-basemap",
		"status":  "running",
		"viewer":  "/viewer",
	})
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	page, err := s.renderer.Page(templates.PageData{
		Title:     "plat-basemap",
		StreamURL: "/api/v1/viewer/stream",
	})
	if err != nil {
		s.log.WithError(err).Error("rendering viewer page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}

// handleTiles serves PMTiles archives with the CORS and range headers the
// browser protocol handler needs.
func (s *Server) handleTiles(tilesDir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		http.FileServer(http.Dir(tilesDir)).ServeHTTP(w, r)
	})
}
