package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/leapview/internal/emit"
	"github.com/leapstack-labs/leapview/internal/plan"
	"github.com/leapstack-labs/leapview/internal/server/notifier"
	"github.com/leapstack-labs/leapview/internal/session"
	"github.com/leapstack-labs/leapview/internal/surface"
	"github.com/leapstack-labs/leapview/internal/workspace"
	"github.com/leapstack-labs/leapview/pkg/core"
)

const maxBodyBytes = 1 << 20

func (s *Server) routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/events", s.handleEvents)
		r.Get("/interfaces", s.handleListInterfaces)

		r.Route("/interfaces/{id}", func(r chi.Router) {
			r.Delete("/", s.handleCloseSession)
			r.Get("/slices", s.handleSlices)
			r.Patch("/slices/{slice}", s.handlePatchSlice)
			r.Put("/slices/{slice}/actions/{action}", s.handlePutAction)
			r.Post("/slices/{slice}/actions/{action}/toggle", s.handleToggle)
			r.Get("/plan", s.handlePlan)
			r.Patch("/plan/{step}", s.handleEditStep)
			r.Post("/plan/{step}/move", s.handleMoveStep)
			r.Get("/artifacts", s.handleArtifacts)
			r.Get("/validation", s.handleValidation)
			r.Put("/handler", s.handleSetHandler)
			r.Delete("/handler", s.handleResetHandler)
			r.Put("/page", s.handleSetPage)
			r.Delete("/page", s.handleResetPage)
			r.Put("/imports", s.handleSetImports)
			r.Put("/lookups/{kind}", s.handleSetLookups)
		})
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workspace.ErrUnknownNode),
		errors.Is(err, session.ErrUnknownSlice),
		errors.Is(err, session.ErrUnknownAction),
		errors.Is(err, plan.ErrUnknownStep):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrClosed):
		status = http.StatusConflict
	case errors.Is(err, surface.ErrSurfaceUnavailable),
		errors.Is(err, surface.ErrEmptySelection),
		errors.Is(err, plan.ErrInvalidResultName),
		errors.Is(err, plan.ErrDuplicateResultName),
		errors.Is(err, session.ErrInvalidEdit),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// session resolves the {id} parameter and opens the interface's session.
func (s *Server) session(r *http.Request) (*session.Session, error) {
	id, err := s.workspace.ResolveInterface(chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	return s.manager.Open(r.Context(), id)
}

// withSession wraps a handler that needs the interface's session.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*session.Session) (any, error)) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	v, err := fn(sess)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// --- Read handlers ---

type interfaceSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Lookup  string `json:"lookup"`
	WebPath string `json:"web_path,omitempty"`
	Open    bool   `json:"open"`
}

func (s *Server) handleListInterfaces(w http.ResponseWriter, _ *http.Request) {
	out := []interfaceSummary{}
	for _, id := range s.workspace.Interfaces() {
		n, err := s.workspace.Interface(id)
		if err != nil {
			continue
		}
		_, open := s.manager.ForInterface(id)
		out = append(out, interfaceSummary{ID: n.ID, Name: n.Name, Lookup: n.Lookup, WebPath: n.WebPath, Open: open})
	}
	writeJSON(w, http.StatusOK, out)
}

type slicesResponse struct {
	Slices     []*core.GeneratedDataSlice `json:"slices"`
	Unresolved []string                   `json:"unresolved"`
	Detached   []string                   `json:"detached"`
}

func (s *Server) handleSlices(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		v := sess.Snapshot()
		return slicesResponse{
			Slices:     v.Slices.Sorted(),
			Unresolved: nonNil(v.Unresolved),
			Detached:   nonNil(v.Detached),
		}, nil
	})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		return nonNil(sess.Snapshot().Interface.Plan), nil
	})
}

type artifactsResponse struct {
	Files       []emit.Artifact   `json:"files"`
	Diagnostics []core.Diagnostic `json:"diagnostics"`
}

func (s *Server) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		v := sess.Snapshot()
		return artifactsResponse{Files: v.Files, Diagnostics: nonNil(v.Diagnostics)}, nil
	})
}

func (s *Server) handleValidation(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		return sess.Validation(), nil
	})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.workspace.ResolveInterface(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.manager.Close(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Slice edits ---

type slicePatch struct {
	AccessMode     *core.AccessMode             `json:"access_mode,omitempty"`
	Hydration      *core.Hydration              `json:"hydration,omitempty"`
	DataConnection *core.DataConnectionFeatures `json:"data_connection,omitempty"`
}

func (s *Server) handlePatchSlice(w http.ResponseWriter, r *http.Request) {
	var p slicePatch
	if err := decode(w, r, &p); err != nil {
		s.writeError(w, err)
		return
	}
	key := chi.URLParam(r, "slice")
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		ctx := r.Context()
		if p.AccessMode != nil {
			if err := sess.SetAccessMode(ctx, key, *p.AccessMode); err != nil {
				return nil, err
			}
		}
		if p.Hydration != nil {
			if err := sess.SetHydration(ctx, key, *p.Hydration); err != nil {
				return nil, err
			}
		}
		if p.DataConnection != nil {
			if err := sess.SetDataConnection(ctx, key, p.DataConnection); err != nil {
				return nil, err
			}
		}
		return sess.Snapshot().Slices[key], nil
	})
}

type actionPut struct {
	Enabled *bool                `json:"enabled,omitempty"`
	Mode    *core.InvocationMode `json:"mode,omitempty"`
}

type modeResponse struct {
	Mode core.InvocationMode `json:"mode"`
}

func (s *Server) handlePutAction(w http.ResponseWriter, r *http.Request) {
	var p actionPut
	if err := decode(w, r, &p); err != nil {
		s.writeError(w, err)
		return
	}
	sliceKey, actionKey := chi.URLParam(r, "slice"), chi.URLParam(r, "action")
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		var mode core.InvocationMode
		var err error
		switch {
		case p.Mode != nil:
			mode, err = sess.SetActionMode(r.Context(), sliceKey, actionKey, *p.Mode)
		case p.Enabled != nil:
			mode, err = sess.SetActionEnabled(r.Context(), sliceKey, actionKey, *p.Enabled)
		default:
			err = fmt.Errorf("%w: enabled or mode is required", errBadRequest)
		}
		return modeResponse{Mode: mode}, err
	})
}

type toggleRequest struct {
	Surface core.Surface `json:"surface"`
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var p toggleRequest
	if err := decode(w, r, &p); err != nil {
		s.writeError(w, err)
		return
	}
	sliceKey, actionKey := chi.URLParam(r, "slice"), chi.URLParam(r, "action")
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		mode, err := sess.ToggleSurface(r.Context(), sliceKey, actionKey, p.Surface)
		return modeResponse{Mode: mode}, err
	})
}

func (s *Server) handleSetLookups(w http.ResponseWriter, r *http.Request) {
	var lookups []string
	if err := decode(w, r, &lookups); err != nil {
		s.writeError(w, err)
		return
	}
	kind := core.CapabilityKind(chi.URLParam(r, "kind"))
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		if err := sess.SetLookups(r.Context(), kind, lookups); err != nil {
			return nil, err
		}
		v := sess.Snapshot()
		return slicesResponse{Slices: v.Slices.Sorted(), Unresolved: nonNil(v.Unresolved), Detached: nonNil(v.Detached)}, nil
	})
}

// --- Plan edits ---

func (s *Server) handleEditStep(w http.ResponseWriter, r *http.Request) {
	var e plan.StepEdit
	if err := decode(w, r, &e); err != nil {
		s.writeError(w, err)
		return
	}
	step := chi.URLParam(r, "step")
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		if err := sess.EditStep(r.Context(), step, e); err != nil {
			return nil, err
		}
		return sess.Snapshot().Interface.Plan, nil
	})
}

type moveRequest struct {
	To int `json:"to"`
}

func (s *Server) handleMoveStep(w http.ResponseWriter, r *http.Request) {
	var p moveRequest
	if err := decode(w, r, &p); err != nil {
		s.writeError(w, err)
		return
	}
	step := chi.URLParam(r, "step")
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		if err := sess.MoveStep(r.Context(), step, p.To); err != nil {
			return nil, err
		}
		return sess.Snapshot().Interface.Plan, nil
	})
}

// --- Fragments and imports ---

type fragmentRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleSetHandler(w http.ResponseWriter, r *http.Request) {
	s.setFragment(w, r, (*session.Session).SetHandler, func(n *core.InterfaceNode) core.Fragment { return n.Handler })
}

func (s *Server) handleSetPage(w http.ResponseWriter, r *http.Request) {
	s.setFragment(w, r, (*session.Session).SetPage, func(n *core.InterfaceNode) core.Fragment { return n.Page })
}

func (s *Server) setFragment(
	w http.ResponseWriter,
	r *http.Request,
	set func(*session.Session, context.Context, string) error,
	get func(*core.InterfaceNode) core.Fragment,
) {
	var p fragmentRequest
	if err := decode(w, r, &p); err != nil {
		s.writeError(w, err)
		return
	}
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		if err := set(sess, r.Context(), p.Value); err != nil {
			return nil, err
		}
		return fragmentResponse(get(sess.Snapshot().Interface)), nil
	})
}

func (s *Server) handleResetHandler(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		if err := sess.ResetHandler(r.Context()); err != nil {
			return nil, err
		}
		return fragmentResponse(sess.Snapshot().Interface.Handler), nil
	})
}

func (s *Server) handleResetPage(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		if err := sess.ResetPage(r.Context()); err != nil {
			return nil, err
		}
		return fragmentResponse(sess.Snapshot().Interface.Page), nil
	})
}

type fragmentBody struct {
	Value  string `json:"value"`
	Custom bool   `json:"custom"`
}

func fragmentResponse(f core.Fragment) fragmentBody {
	return fragmentBody{Value: f.Value, Custom: f.Dirty()}
}

func (s *Server) handleSetImports(w http.ResponseWriter, r *http.Request) {
	var entries []core.ImportEntry
	if err := decode(w, r, &entries); err != nil {
		s.writeError(w, err)
		return
	}
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		if err := sess.SetImports(r.Context(), entries); err != nil {
			return nil, err
		}
		return nonNil(sess.Snapshot().Interface.Details.Imports), nil
	})
}

// --- Events ---

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(ch)

	_, _ = fmt.Fprint(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			data, _ := json.Marshal(e)
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data)
			flusher.Flush()
		}
	}
}

// Broadcast publishes a compile event for an interface. It is meant to be
// used as the session OnChange hook.
func (s *Server) Broadcast(interfaceID string) {
	s.notifier.Broadcast(notifier.Event{Kind: notifier.KindCompiled, Interface: interfaceID})
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
