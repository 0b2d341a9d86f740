package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// SessionCounter reports live viewer sessions.
type SessionCounter interface {
	Len() int
}

type InfoHandler struct {
	dataDir  string
	layers   int
	sessions SessionCounter
}

func NewInfoHandler(dataDir string, layers int, sessions SessionCounter) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, layers: layers, sessions: sessions}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	Layers   int      `json:"layers" doc:"Number of catalog layers"`
	Sessions int      `json:"sessions" doc:"Live viewer sessions"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	sessions := 0
	if h.sessions != nil {
		sessions = h.sessions.Len()
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-basemap",
		Version:  "0.1.0",
		DataDir:  h.dataDir,
		Layers:   h.layers,
		Sessions: sessions,
		Features: []string{"raster", "pmtiles", "layer-control", "popup"},
	}}, nil
}
