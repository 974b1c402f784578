// Package gateway is the HTTP facade thin mobile clients talk to. Every
// route under /v1/sessions/{id} resolves the session and forwards one input
// event to its ownership loop; reads answer with the post-event snapshot so
// clients never need a second round trip.
package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wowedo/searchsync/internal/health"
	"github.com/wowedo/searchsync/internal/location"
	"github.com/wowedo/searchsync/internal/metrics"
	imw "github.com/wowedo/searchsync/internal/middleware"
	"github.com/wowedo/searchsync/internal/model"
	"github.com/wowedo/searchsync/internal/session"
)

type Options struct {
	Logger       *slog.Logger
	Registry     *Registry
	ReadyPingers []health.Pinger
	MountMetrics bool
}

type Server struct {
	logger   *slog.Logger
	registry *Registry
	router   chi.Router
}

func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{logger: log, registry: opts.Registry}

	r := chi.NewRouter()
	r.Use(imw.Recover(log))
	r.Use(imw.RequestID())
	r.Use(imw.Logging(log, func(req *http.Request) string {
		if rc := chi.RouteContext(req.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				return p
			}
		}
		return req.URL.Path
	}))
	r.Use(imw.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(2*time.Second, opts.ReadyPingers...))
	if opts.MountMetrics {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Delete("/", s.deleteSession)
			r.Get("/state", s.state)

			r.Post("/search-text", s.searchText)
			r.Post("/element-type", s.elementType)
			r.Post("/view-type", s.viewType)
			r.Post("/toggle", s.toggle)
			r.Post("/events/next-page", s.nextEventsPage)

			r.Post("/filters/open", s.filtersOpen)
			r.Post("/filters/apply", s.filtersApply)
			r.Post("/filters/reset", s.filtersReset)
			r.Post("/filters/category-query", s.categoryQuery)

			r.Post("/map/appear", s.mapAppear)
			r.Get("/map/render", s.mapRender)
			r.Post("/map/tap", s.mapTap)

			r.Post("/location/authorization", s.locationAuthorization)
			r.Post("/location/coordinate", s.locationCoordinate)
		})
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return false
	}
	return true
}

// resolve looks up the session for the route or answers 404.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (*session.Session, *location.ChannelProvider, bool) {
	id := chi.URLParam(r, "sessionID")
	sess, loc, err := s.registry.Get(id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, nil, false
	}
	return sess, loc, true
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id := s.registry.Create(r.Context())
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": id})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.resolve(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) searchText(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.resolve(w, r)
	if !ok {
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	sess.SetSearchText(body.Text)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) elementType(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.resolve(w, r)
	if !ok {
		return
	}
	var body struct {
		ElementType string `json:"elementType"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	t, err := model.ParseElementType(body.ElementType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess.SetElementType(t)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) viewType(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.resolve(w, r)
	if !ok {
		return
	}
	var body struct {
		ViewType string `json:"viewType"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	v, err := model.ParseViewType(body.ViewType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess.SetViewType(v)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.resolve(w, r)
	if !ok {
		return
	}
	var body struct {
		ID           int  `json:"id"`
		AlreadyAdded bool `json:"alreadyAdded"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	sess.Toggle(body.ID, body.AlreadyAdded)
	// the mutation and refresh are async; the snapshot reflects them once
	// the upstream answers
	writeJSON(w, http.StatusAccepted, sess.Snapshot())
}

func (s *Server) nextEventsPage(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.resolve(w, r)
	if !ok {
		return
	}
	sess.NextEventsPage()
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) filtersOpen(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.resolve(w, r)
	if !ok {
		return
	}
	sess.OpenFilters()
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) filtersApply(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.resolve(w, r)
	if !ok {
		return
	}
	var draft session.FilterDraft
	if !decodeBody(w, r, &draft) {
		return
	}
	sess.ApplyFilters(draft)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) filtersReset(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.resolve(w, r)
	if !ok {
		return
	}
	sess.ResetFilters()
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) categoryQuery(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.resolve(w, r)
	if !ok {
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	sess.EditCategoryQuery(body.Text)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) mapAppear(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.resolve(w, r)
	if !ok {
		return
	}
	sess.MapAppeared()
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) mapRender(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.resolve(w, r)
	if !ok {
		return
	}
	pass, alive := sess.RenderMap()
	if !alive {
		writeError(w, http.StatusGone, "session stopped")
		return
	}
	writeJSON(w, http.StatusOK, pass)
}

func (s *Server) mapTap(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.resolve(w, r)
	if !ok {
		return
	}
	var body struct {
		Title string `json:"title"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	p, found := sess.TapAnnotation(body.Title)
	if !found {
		writeError(w, http.StatusNotFound, "no annotation with that title")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) locationAuthorization(w http.ResponseWriter, r *http.Request) {
	_, loc, ok := s.resolve(w, r)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	st, err := location.ParseAuthStatus(body.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	loc.PushAuthorization(st)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) locationCoordinate(w http.ResponseWriter, r *http.Request) {
	_, loc, ok := s.resolve(w, r)
	if !ok {
		return
	}
	var body struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	c := model.Coordinate{Lat: body.Lat, Lon: body.Lon}
	if !c.Valid() {
		writeError(w, http.StatusBadRequest, "coordinate out of range")
		return
	}
	loc.PushCoordinate(c)
	w.WriteHeader(http.StatusAccepted)
}
