package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/dd0wney/forcegraph/pkg/diagram"
	"github.com/dd0wney/forcegraph/pkg/geometry"
	"github.com/dd0wney/forcegraph/pkg/graph"
	"github.com/dd0wney/forcegraph/pkg/logging"
	"github.com/dd0wney/forcegraph/pkg/snapshot"
	"github.com/dd0wney/forcegraph/pkg/validation"
)

// NodeRequest creates a node
type NodeRequest struct {
	Label     string          `json:"label" validate:"max=256"`
	Radius    float64         `json:"radius" validate:"gte=0"`
	Color     string          `json:"color" validate:"omitempty,hexcolor"`
	AutoSize  bool            `json:"autoSize"`
	Neighbors []graph.NodeID  `json:"neighbors"`
	Position  *geometry.Point `json:"position"`
}

// NodePatch changes attributes of a node. Omitted fields are left alone; an
// empty color restores the graph default.
type NodePatch struct {
	Label    *string  `json:"label"`
	Radius   *float64 `json:"radius"`
	Color    *string  `json:"color"`
	AutoSize *bool    `json:"autoSize"`
}

// NodeResponse describes a node after an update
type NodeResponse struct {
	ID       graph.NodeID `json:"id"`
	Label    string       `json:"label"`
	Radius   float64      `json:"radius"`
	Color    string       `json:"color,omitempty"`
	AutoSize bool         `json:"autoSize"`
}

// EdgeRequest creates an edge
type EdgeRequest struct {
	A graph.NodeID `json:"a"`
	B graph.NodeID `json:"b"`
}

// ZoomRequest sets the scale about a device point
type ZoomRequest struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale" validate:"gt=0"`
}

// ErrorResponse is the body of every failed control request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// controlAPI exposes the mutation, frame and view operations over HTTP.
// Every call is queued onto the frame goroutine.
type controlAPI struct {
	dr      *driver
	timeout time.Duration
	logger  logging.Logger
}

func newControlAPI(dr *driver, logger logging.Logger) *controlAPI {
	return &controlAPI{dr: dr, timeout: 5 * time.Second, logger: logger.With(logging.Component("control"))}
}

func (a *controlAPI) routes(r *mux.Router) {
	r.HandleFunc("/nodes", a.createNode).Methods(http.MethodPost)
	r.HandleFunc("/nodes/{id:[0-9]+}", a.updateNode).Methods(http.MethodPatch)
	r.HandleFunc("/nodes/{id:[0-9]+}", a.removeNode).Methods(http.MethodDelete)
	r.HandleFunc("/edges", a.createEdge).Methods(http.MethodPost)
	r.HandleFunc("/edges/{a:[0-9]+}/{b:[0-9]+}", a.removeEdge).Methods(http.MethodDelete)
	r.HandleFunc("/view/fit", a.fitView).Methods(http.MethodPost)
	r.HandleFunc("/view/reset", a.resetView).Methods(http.MethodPost)
	r.HandleFunc("/view/zoom", a.zoom).Methods(http.MethodPost)
	r.HandleFunc("/layout/{action:stop|resume}", a.layout).Methods(http.MethodPost)
	r.HandleFunc("/layout/arrange/{placement:random|circular|hierarchical}", a.arrange).Methods(http.MethodPost)
	r.HandleFunc("/snapshot", a.getSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/snapshot", a.putSnapshot).Methods(http.MethodPut)
}

func (a *controlAPI) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Warn("failed to write response", logging.Error(err))
	}
}

func (a *controlAPI) respondError(w http.ResponseWriter, status int, message string) {
	a.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// respondFailure maps graph and queue errors to a status
func (a *controlAPI) respondFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, graph.ErrInvalidInput), errors.Is(err, snapshot.ErrInvalidDocument):
		a.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, graph.ErrNodeNotFound):
		a.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errDriverStopped), errors.Is(err, context.DeadlineExceeded):
		a.respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		a.logger.Error("control request failed", logging.Error(err))
		a.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// run queues fn and reports its error
func (a *controlAPI) run(r *http.Request, fn func(*diagram.Diagram) error) error {
	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()
	var opErr error
	if err := a.dr.do(ctx, func(d *diagram.Diagram) { opErr = fn(d) }); err != nil {
		return err
	}
	return opErr
}

func (a *controlAPI) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validation.Struct(v); err != nil {
		a.respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func pathID(r *http.Request, name string) graph.NodeID {
	// the route pattern guarantees digits
	id, _ := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	return graph.NodeID(id)
}

func (a *controlAPI) createNode(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	if !a.decode(w, r, &req) {
		return
	}
	var id graph.NodeID
	err := a.run(r, func(d *diagram.Diagram) (err error) {
		id, err = d.CreateNode(graph.NodeSpec{
			Label:     req.Label,
			Radius:    req.Radius,
			Color:     req.Color,
			AutoSize:  req.AutoSize,
			Neighbors: req.Neighbors,
			Position:  req.Position,
		})
		return err
	})
	if err != nil {
		a.respondFailure(w, err)
		return
	}
	a.respondJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (a *controlAPI) updateNode(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	var req NodePatch
	if !a.decode(w, r, &req) {
		return
	}
	var resp NodeResponse
	err := a.run(r, func(d *diagram.Diagram) error {
		err := d.UpdateNode(id, graph.NodeUpdate{
			Label:    req.Label,
			Radius:   req.Radius,
			Color:    req.Color,
			AutoSize: req.AutoSize,
		})
		if err != nil {
			return err
		}
		n, _ := d.Store().Node(id)
		resp = NodeResponse{ID: n.ID, Label: n.Label, Radius: n.Radius, Color: n.Color, AutoSize: n.AutoSize}
		return nil
	})
	if err != nil {
		a.respondFailure(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, resp)
}

func (a *controlAPI) removeNode(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if err := a.run(r, func(d *diagram.Diagram) error { return d.RemoveNode(id) }); err != nil {
		a.respondFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *controlAPI) createEdge(w http.ResponseWriter, r *http.Request) {
	var req EdgeRequest
	if !a.decode(w, r, &req) {
		return
	}
	var created bool
	err := a.run(r, func(d *diagram.Diagram) (err error) {
		created, err = d.CreateEdge(req.A, req.B)
		return err
	})
	if err != nil {
		a.respondFailure(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	a.respondJSON(w, status, map[string]any{"created": created})
}

func (a *controlAPI) removeEdge(w http.ResponseWriter, r *http.Request) {
	ea, eb := pathID(r, "a"), pathID(r, "b")
	var removed bool
	if err := a.run(r, func(d *diagram.Diagram) error { removed = d.RemoveEdge(ea, eb); return nil }); err != nil {
		a.respondFailure(w, err)
		return
	}
	if !removed {
		a.respondError(w, http.StatusNotFound, graph.ErrEdgeNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// viewResult reports the transform after a view change
func (a *controlAPI) viewResult(w http.ResponseWriter, r *http.Request, fn func(*diagram.Diagram) bool) {
	var changed bool
	var scale float64
	err := a.run(r, func(d *diagram.Diagram) error {
		changed = fn(d)
		scale = d.Transform().Scale
		return nil
	})
	if err != nil {
		a.respondFailure(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, map[string]any{"changed": changed, "scale": scale})
}

func (a *controlAPI) fitView(w http.ResponseWriter, r *http.Request) {
	a.viewResult(w, r, (*diagram.Diagram).FitView)
}

func (a *controlAPI) resetView(w http.ResponseWriter, r *http.Request) {
	a.viewResult(w, r, (*diagram.Diagram).ResetView)
}

func (a *controlAPI) zoom(w http.ResponseWriter, r *http.Request) {
	var req ZoomRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.viewResult(w, r, func(d *diagram.Diagram) bool { return d.ZoomTo(req.X, req.Y, req.Scale) })
}

func (a *controlAPI) layout(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	var running bool
	err := a.run(r, func(d *diagram.Diagram) error {
		if action == "stop" {
			d.Stop()
		} else {
			d.Resume()
		}
		running = d.Running()
		return nil
	})
	if err != nil {
		a.respondFailure(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, map[string]any{"running": running})
}

func (a *controlAPI) arrange(w http.ResponseWriter, r *http.Request) {
	placement := mux.Vars(r)["placement"]
	err := a.run(r, func(d *diagram.Diagram) error {
		d.Arrange(placement)
		d.Resume()
		return nil
	})
	if err != nil {
		a.respondFailure(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, map[string]any{"placement": placement})
}

// getSnapshot writes the document as JSON, or YAML with ?format=yaml
func (a *controlAPI) getSnapshot(w http.ResponseWriter, r *http.Request) {
	var doc snapshot.Document
	if err := a.run(r, func(d *diagram.Diagram) error { doc = d.Snapshot(); return nil }); err != nil {
		a.respondFailure(w, err)
		return
	}

	format, contentType := snapshot.JSON, "application/json"
	if r.URL.Query().Get("format") == "yaml" {
		format, contentType = snapshot.YAML, "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	if err := snapshot.Encode(w, doc, format); err != nil {
		a.logger.Warn("failed to write snapshot", logging.Error(err))
	}
}

// putSnapshot replaces the graph with a JSON or YAML document
func (a *controlAPI) putSnapshot(w http.ResponseWriter, r *http.Request) {
	format := snapshot.JSON
	if ct := r.Header.Get("Content-Type"); ct == "application/yaml" || ct == "application/x-yaml" {
		format = snapshot.YAML
	}
	doc, err := snapshot.Decode(r.Body, format)
	if err != nil {
		a.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var loaded int
	err = a.run(r, func(d *diagram.Diagram) error {
		ids, err := d.Load(doc)
		loaded = len(ids)
		return err
	})
	if err != nil {
		a.respondFailure(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, map[string]any{"nodes": loaded})
}
