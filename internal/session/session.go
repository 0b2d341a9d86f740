// Package session holds one map viewer per connected browser. Each session
// owns a viewer driving a browser map through an Outbox, which the SSE stream
// drains to the page.
package session

import (
	"errors"
	"html"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/joeblew999/plat-basemap/internal/control"
	"github.com/joeblew999/plat-basemap/internal/engine"
	"github.com/joeblew999/plat-basemap/internal/engine/maplibre"
	"github.com/joeblew999/plat-basemap/internal/viewer"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrClosed   = errors.New("session closed")
	ErrLimit    = errors.New("too many sessions")
)

// Dispatcher is implemented by maps that accept events from the browser.
type Dispatcher interface {
	Dispatch(engine.MouseEvent) error
}

// Options configure new sessions.
type Options struct {
	Viewer viewer.Config
	// Container is the id of the page element the map is drawn in.
	Container string
	// EventsURL returns where the page posts map events for a session.
	EventsURL func(id string) string
	// RenderControl renders the layer control widget of a session.
	RenderControl func(id string, v control.View) (string, error)
	// MaxSessions caps live sessions. Zero means no limit.
	MaxSessions int
}

// Session is one browser's map.
type Session struct {
	ID      string
	Created time.Time

	outbox *Outbox
	viewer *viewer.Viewer
	log    logrus.FieldLogger

	mu     sync.Mutex
	closed bool
}

// Outbox returns the queue the stream drains.
func (s *Session) Outbox() *Outbox { return s.outbox }

// Viewer returns the session's viewer.
func (s *Session) Viewer() *viewer.Viewer { return s.viewer }

// Do runs fn with the session's events serialised.
func (s *Session) Do(fn func(v *viewer.Viewer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return fn(s.viewer)
}

// Dispatch delivers a browser map event.
func (s *Session) Dispatch(ev engine.MouseEvent) error {
	return s.Do(func(v *viewer.Viewer) error {
		m, ok := v.Maps().Instance()
		if !ok {
			return nil
		}
		d, ok := m.(Dispatcher)
		if !ok {
			return nil
		}
		return d.Dispatch(ev)
	})
}

// Control forwards a layer control input.
func (s *Session) Control(ev control.Event) error {
	return s.Do(func(v *viewer.Viewer) error { return v.Control(ev) })
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.viewer.Unmount()
	s.closed = true
	s.outbox.Close()
	s.log.Debug("viewer unmounted")
}

// Registry tracks live sessions by id.
type Registry struct {
	opts Options
	log  logrus.FieldLogger

	mu       sync.RWMutex
	sessions map[string]*Session
	// pending counts sessions being created that hold a slot.
	pending int
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options, log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.Container == "" {
		opts.Container = "map"
	}
	if opts.EventsURL == nil {
		opts.EventsURL = func(id string) string { return "/api/v1/viewer/sessions/" + id + "/events" }
	}
	if opts.RenderControl == nil {
		opts.RenderControl = func(string, control.View) (string, error) { return "", nil }
	}
	return &Registry{opts: opts, log: log, sessions: map[string]*Session{}}
}

// Create starts a session and mounts its map. The scripts that build the map
// are queued on the session's outbox.
func (r *Registry) Create() (*Session, error) {
	r.mu.Lock()
	if r.opts.MaxSessions > 0 && len(r.sessions)+r.pending >= r.opts.MaxSessions {
		r.mu.Unlock()
		return nil, ErrLimit
	}
	r.pending++
	r.mu.Unlock()

	s, err := r.start()
	r.mu.Lock()
	r.pending--
	if err == nil {
		r.sessions[s.ID] = s
	}
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.log.Info("viewer session created")
	return s, nil
}

// start builds a session and mounts its map.
func (r *Registry) start() (*Session, error) {
	id := uuid.NewString()
	log := r.log.WithField("session", id)
	out := NewOutbox()
	eng := maplibre.New(out, maplibre.Options{EventsURL: r.opts.EventsURL(id)})
	v, err := viewer.New(eng, r.opts.Viewer, log)
	if err != nil {
		return nil, err
	}

	selector := "#" + maplibre.ControlElementID(control.WidgetType)
	v.OnControlChange(func(view control.View) {
		markup, err := r.opts.RenderControl(id, view)
		if err != nil {
			log.WithError(err).Warn("rendering layer control")
			markup = "<p>" + html.EscapeString(err.Error()) + "</p>"
		}
		out.Patch(markup, selector)
	})

	s := &Session{ID: id, Created: time.Now(), outbox: out, viewer: v, log: log}
	if err := s.Do(func(v *viewer.Viewer) error { return v.Mount(r.opts.Container) }); err != nil {
		return nil, err
	}
	return s, nil
}

// Get looks a session up.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Close unmounts and forgets a session. Closing an unknown id does nothing.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return
	}
	s.close()
	r.log.WithField("session", id).Info("viewer session closed")
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes every session.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	for _, id := range ids {
		r.Close(id)
	}
}
