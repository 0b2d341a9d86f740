// Package live contains the Datastar SSE handlers that drive browser maps.
package live

import (
	"context"
	"errors"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"github.com/joeblew999/plat-basemap/internal/humastar"
	"github.com/joeblew999/plat-basemap/internal/session"
)

// StreamHandler opens viewer sessions and streams their updates.
type StreamHandler struct {
	sessions *session.Registry
	log      logrus.FieldLogger
}

func NewStreamHandler(sessions *session.Registry, log logrus.FieldLogger) *StreamHandler {
	return &StreamHandler{sessions: sessions, log: log}
}

func (h *StreamHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/viewer/stream", h.Stream,
		huma.OperationTags("viewer"),
	)
}

// Stream creates a session, mounts its map and forwards every queued page
// update until the client goes away, then unmounts the map.
func (h *StreamHandler) Stream(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	s, err := h.sessions.Create()
	if err != nil {
		if errors.Is(err, session.ErrLimit) {
			return nil, huma.Error503ServiceUnavailable(err.Error())
		}
		return nil, huma.Error500InternalServerError("creating session", err)
	}

	return humastar.Stream(func(ctx context.Context, sse humastar.SSE) {
		defer h.sessions.Close(s.ID)

		if err := sse.Signals(map[string]any{"session": s.ID}); err != nil {
			return
		}

		out := s.Outbox()
		for {
			if err := flush(sse, out.Drain()); err != nil {
				h.log.WithError(err).WithField("session", s.ID).Debug("stream closed")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-out.Done():
				flush(sse, out.Drain())
				return
			case <-out.Ready():
			}
		}
	}), nil
}

// flush sends commands in order, joining runs of scripts into one event.
func flush(sse humastar.SSE, cmds []session.Command) error {
	var scripts []string
	send := func() error {
		if len(scripts) == 0 {
			return nil
		}
		err := sse.Script(strings.Join(scripts, "\n"))
		scripts = scripts[:0]
		return err
	}

	for _, c := range cmds {
		if c.Script != "" {
			scripts = append(scripts, c.Script)
			continue
		}
		if err := send(); err != nil {
			return err
		}
		if err := sse.Patch(c.HTML, c.Selector); err != nil {
			return err
		}
	}
	return send()
}
