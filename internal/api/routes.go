// Package api defines the Huma API routes and handlers.
package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-basemap/internal/catalog"
	"github.com/joeblew999/plat-basemap/internal/humastar"
	"github.com/joeblew999/plat-basemap/internal/poi"
	"github.com/joeblew999/plat-basemap/internal/style"
)

// Services holds the dependencies for API handlers.
type Services struct {
	Catalog catalog.Catalog
	Place   poi.Feature
	Styles  *StyleCache
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Catalog entry ID" example:"pale"`
}

type PageInput struct {
	Offset int `query:"offset" minimum:"0" doc:"Index of the first entry"`
	Limit  int `query:"limit" minimum:"0" maximum:"100" doc:"Page size (0 for all)"`
}

type CatalogOutput struct {
	Body humastar.PageBody[catalog.Descriptor]
}

type EntryOutput struct {
	Body catalog.Descriptor
}

type StyleOutput struct {
	Body style.Document
}

type PlacesOutput struct {
	Body *geojson.FeatureCollection
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterCatalog registers tile catalog routes.
func (h *APIHandler) RegisterCatalog(api huma.API) {
	huma.Get(api, "/api/v1/catalog", h.GetCatalog, huma.OperationTags("catalog"))
	huma.Get(api, "/api/v1/catalog/{id}", h.GetEntry, huma.OperationTags("catalog"))
}

// RegisterStyle registers the initial style route.
func (h *APIHandler) RegisterStyle(api huma.API) {
	huma.Get(api, "/api/v1/style", h.GetStyle, huma.OperationTags("style"))
}

// RegisterPlaces registers the point of interest route.
func (h *APIHandler) RegisterPlaces(api huma.API) {
	huma.Get(api, "/api/v1/places", h.GetPlaces, huma.OperationTags("places"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetCatalog(ctx context.Context, input *PageInput) (*CatalogOutput, error) {
	return &CatalogOutput{Body: humastar.Page(h.svc.Catalog.Entries(), input.Offset, input.Limit)}, nil
}

func (h *APIHandler) GetEntry(ctx context.Context, input *IDInput) (*EntryOutput, error) {
	d, ok := h.svc.Catalog.Lookup(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("catalog entry not found")
	}
	return &EntryOutput{Body: d}, nil
}

func (h *APIHandler) GetStyle(ctx context.Context, input *struct{}) (*StyleOutput, error) {
	if h.svc.Styles == nil {
		return nil, huma.Error503ServiceUnavailable("style not available")
	}
	doc, err := h.svc.Styles.Initial()
	if err != nil {
		return nil, huma.Error500InternalServerError("building style", err)
	}
	return &StyleOutput{Body: doc}, nil
}

func (h *APIHandler) GetPlaces(ctx context.Context, input *struct{}) (*PlacesOutput, error) {
	return &PlacesOutput{Body: h.svc.Place.FeatureCollection()}, nil
}
