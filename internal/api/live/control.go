package live

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sort"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"github.com/joeblew999/plat-basemap/internal/control"
	"github.com/joeblew999/plat-basemap/internal/engine"
	"github.com/joeblew999/plat-basemap/internal/humastar"
	"github.com/joeblew999/plat-basemap/internal/session"
	"github.com/joeblew999/plat-basemap/internal/viewer"
)

// ControlHandler receives map events and layer control input for a session.
type ControlHandler struct {
	sessions *session.Registry
	log      logrus.FieldLogger
}

func NewControlHandler(sessions *session.Registry, log logrus.FieldLogger) *ControlHandler {
	return &ControlHandler{sessions: sessions, log: log}
}

func (h *ControlHandler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/v1/viewer/sessions/{id}/events", h.Event,
		huma.OperationTags("viewer"),
	)
	huma.Get(api, "/api/v1/viewer/sessions/{id}/control", h.GetControl,
		huma.OperationTags("viewer"),
	)
	huma.Post(api, "/api/v1/viewer/sessions/{id}/control/base/{layer}", h.SelectBase,
		huma.OperationTags("viewer"),
	)
	huma.Post(api, "/api/v1/viewer/sessions/{id}/control/overlay/{layer}", h.ToggleOverlay,
		huma.OperationTags("viewer"),
	)
	huma.Post(api, "/api/v1/viewer/sessions/{id}/control/opacity/{layer}", h.SetOpacity,
		huma.OperationTags("viewer"),
	)
}

type SessionInput struct {
	ID string `path:"id" doc:"Viewer session ID"`
}

type LayerInput struct {
	SessionInput
	Layer    string `path:"layer" doc:"Layer ID" example:"pale"`
	Datastar bool   `header:"Datastar-Request" doc:"Set by Datastar; suppresses the response body"`
}

type EventInput struct {
	SessionInput
	Body engine.MouseEvent
}

type OverlayInput struct {
	LayerInput
	Visible bool `query:"visible" doc:"Show or hide the overlay"`
}

type OpacityInput struct {
	LayerInput
	Value float64 `query:"value" minimum:"0" maximum:"1" doc:"Layer opacity (0-1)"`
}

// ControlBody is the layer control state of a session.
type ControlBody struct {
	Session  string                        `json:"session" doc:"Viewer session ID"`
	Selected string                        `json:"selected" doc:"Visible base layer"`
	Visible  []string                      `json:"visible" doc:"Layers currently drawn"`
	Shown    []string                      `json:"shown" doc:"Overlays switched on"`
	Layers   map[string]control.LayerState `json:"layers" doc:"Per-layer state"`

	base     []string
	overlays []string
}

var controlActions = []humastar.ActionDef{
	{Rel: "select", Pattern: "/api/v1/viewer/sessions/%s/control/base/%s", Method: "POST", Title: "Show as basemap"},
}

var overlayActions = []humastar.ActionDef{
	{Rel: "show", Pattern: "/api/v1/viewer/sessions/%s/control/overlay/%s?visible=true", Method: "POST", Title: "Show overlay"},
	{Rel: "hide", Pattern: "/api/v1/viewer/sessions/%s/control/overlay/%s?visible=false", Method: "POST", Title: "Hide overlay"},
}

// Actions implements humastar.Actor.
func (b *ControlBody) Actions() []humastar.Action {
	if b == nil {
		return nil
	}
	var actions []humastar.Action
	for _, id := range b.base {
		if id != b.Selected {
			actions = append(actions, humastar.ActionsFor(controlActions, b.Session, id)...)
		}
	}
	for _, id := range b.overlays {
		defs := overlayActions[:1]
		if slices.Contains(b.Shown, id) {
			defs = overlayActions[1:]
		}
		actions = append(actions, humastar.ActionsFor(defs, b.Session, id)...)
	}
	return actions
}

type ControlOutput struct {
	Status int
	Body   *ControlBody
}

func (h *ControlHandler) Event(ctx context.Context, input *EventInput) (*struct{}, error) {
	s, err := h.sessions.Get(input.ID)
	if err != nil {
		return nil, toHTTP(err)
	}
	if err := s.Dispatch(input.Body); err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"session": input.ID,
			"event":   input.Body.Event,
			"layer":   input.Body.LayerID,
		}).Error("map event failed")
		return nil, toHTTP(err)
	}
	return nil, nil
}

func (h *ControlHandler) GetControl(ctx context.Context, input *SessionInput) (*ControlOutput, error) {
	s, err := h.sessions.Get(input.ID)
	if err != nil {
		return nil, toHTTP(err)
	}
	return h.respond(s, false)
}

func (h *ControlHandler) SelectBase(ctx context.Context, input *LayerInput) (*ControlOutput, error) {
	return h.control(*input, control.Event{Kind: control.SelectBase, LayerID: input.Layer})
}

func (h *ControlHandler) ToggleOverlay(ctx context.Context, input *OverlayInput) (*ControlOutput, error) {
	return h.control(input.LayerInput, control.Event{Kind: control.ToggleOverlay, LayerID: input.Layer, Visible: input.Visible})
}

func (h *ControlHandler) SetOpacity(ctx context.Context, input *OpacityInput) (*ControlOutput, error) {
	return h.control(input.LayerInput, control.Event{Kind: control.SetOpacity, LayerID: input.Layer, Opacity: input.Value})
}

func (h *ControlHandler) control(input LayerInput, ev control.Event) (*ControlOutput, error) {
	s, err := h.sessions.Get(input.ID)
	if err != nil {
		return nil, toHTTP(err)
	}
	if err := s.Control(ev); err != nil {
		return nil, toHTTP(err)
	}
	return h.respond(s, input.Datastar)
}

func (h *ControlHandler) respond(s *session.Session, empty bool) (*ControlOutput, error) {
	if empty {
		return &ControlOutput{Status: http.StatusNoContent}, nil
	}
	st, ok := s.Viewer().State()
	if !ok {
		return nil, toHTTP(viewer.ErrNotReady)
	}
	body := &ControlBody{
		Session:  s.ID,
		Selected: st.Selected(),
		Visible:  st.VisibleIDs(),
		Shown:    []string{},
		Layers:   st.Layers(),
	}
	for _, id := range sortedKeys(body.Layers) {
		if st.IsBase(id) {
			body.base = append(body.base, id)
		}
		if st.IsOverlay(id) {
			body.overlays = append(body.overlays, id)
			if st.OverlayVisible(id) {
				body.Shown = append(body.Shown, id)
			}
		}
	}
	return &ControlOutput{Status: http.StatusOK, Body: body}, nil
}

func sortedKeys(m map[string]control.LayerState) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toHTTP(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, session.ErrClosed):
		return huma.NewError(http.StatusGone, err.Error())
	case errors.Is(err, control.ErrUnknownLayer):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, control.ErrOpacityDisabled), errors.Is(err, viewer.ErrNotReady):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, control.ErrBadEvent):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, engine.ErrDuplicateID):
		return huma.Error409Conflict(err.Error())
	}
	return huma.Error500InternalServerError("viewer error", err)
}
