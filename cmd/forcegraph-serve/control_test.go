package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/forcegraph/pkg/diagram"
	"github.com/dd0wney/forcegraph/pkg/logging"
)

func newTestAPI(t *testing.T) (http.Handler, *driver, context.CancelFunc) {
	t.Helper()
	dr, cancel := startDriver(t, nil)
	r := mux.NewRouter()
	newControlAPI(dr, logging.NewNopLogger()).routes(r.PathPrefix("/api").Subrouter())
	return r, dr, cancel
}

func call(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func TestControlNodes(t *testing.T) {
	h, dr, _ := newTestAPI(t)

	code, body := call(t, h, "POST", "/api/nodes", `{"label": "a"}`)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, 0.0, body["id"])

	code, body = call(t, h, "POST", "/api/nodes", `{"label": "b", "neighbors": [0], "position": {"x": 10, "y": 20}}`)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, 1.0, body["id"])

	var edges int
	require.NoError(t, dr.do(context.Background(), func(d *diagram.Diagram) { edges = d.Store().EdgeCount() }))
	assert.Equal(t, 1, edges)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"bad color", `{"color": "red"}`, http.StatusBadRequest},
		{"negative radius", `{"radius": -1}`, http.StatusBadRequest},
		{"unknown neighbor", `{"neighbors": [42]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := call(t, h, "POST", "/api/nodes", tt.body)
			assert.Equal(t, tt.code, code, body)
		})
	}

	code, _ = call(t, h, "DELETE", "/api/nodes/1", "")
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = call(t, h, "DELETE", "/api/nodes/1", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = call(t, h, "DELETE", "/api/nodes/abc", "")
	assert.Equal(t, http.StatusNotFound, code, "ids are numeric")
}

func TestControlUpdateNode(t *testing.T) {
	h, _, _ := newTestAPI(t)
	code, _ := call(t, h, "POST", "/api/nodes", `{"label": "a", "radius": 14}`)
	require.Equal(t, http.StatusCreated, code)

	code, body := call(t, h, "PATCH", "/api/nodes/0", `{"label": "renamed", "color": "#ff0000"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "renamed", body["label"])
	assert.Equal(t, "#ff0000", body["color"])
	assert.Equal(t, 14.0, body["radius"])

	code, body = call(t, h, "PATCH", "/api/nodes/0", `{"autoSize": true}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["autoSize"])
	assert.NotEqual(t, 14.0, body["radius"], "an isolated auto-sized node takes the curve's radius")

	code, body = call(t, h, "PATCH", "/api/nodes/0", `{"autoSize": false}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, 14.0, body["radius"], "turning auto-size off restores the created radius")

	code, body = call(t, h, "PATCH", "/api/nodes/0", `{"radius": 30, "color": ""}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, 30.0, body["radius"])
	assert.Nil(t, body["color"])

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"bad color", "/api/nodes/0", `{"color": "red"}`, http.StatusBadRequest},
		{"zero radius", "/api/nodes/0", `{"radius": 0}`, http.StatusBadRequest},
		{"bad json", "/api/nodes/0", `{`, http.StatusBadRequest},
		{"missing node", "/api/nodes/7", `{"label": "x"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := call(t, h, "PATCH", tt.path, tt.body)
			assert.Equal(t, tt.code, code, body)
		})
	}

	code, body = call(t, h, "PATCH", "/api/nodes/0", `{}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "renamed", body["label"], "failed updates change nothing")
	assert.Equal(t, 30.0, body["radius"])
}

func TestControlEdges(t *testing.T) {
	h, _, _ := newTestAPI(t)
	for i := 0; i < 2; i++ {
		code, _ := call(t, h, "POST", "/api/nodes", `{}`)
		require.Equal(t, http.StatusCreated, code)
	}

	code, body := call(t, h, "POST", "/api/edges", `{"a": 1, "b": 0}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, true, body["created"])

	code, body = call(t, h, "POST", "/api/edges", `{"a": 0, "b": 1}`)
	assert.Equal(t, http.StatusOK, code, "existing edges are a no-op")
	assert.Equal(t, false, body["created"])

	code, _ = call(t, h, "POST", "/api/edges", `{"a": 0, "b": 0}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, h, "DELETE", "/api/edges/0/1", "")
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = call(t, h, "DELETE", "/api/edges/0/1", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestControlViewAndLayout(t *testing.T) {
	h, dr, _ := newTestAPI(t)
	code, _ := call(t, h, "POST", "/api/nodes", `{"position": {"x": 100, "y": 100}}`)
	require.Equal(t, http.StatusCreated, code)

	code, body := call(t, h, "POST", "/api/view/zoom", `{"x": 0, "y": 0, "scale": 2}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, 2.0, body["scale"])

	code, _ = call(t, h, "POST", "/api/view/zoom", `{"scale": 0}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = call(t, h, "POST", "/api/view/reset", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["scale"])

	code, _ = call(t, h, "POST", "/api/view/fit", "")
	assert.Equal(t, http.StatusOK, code)

	code, body = call(t, h, "POST", "/api/layout/stop", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["running"])
	assert.False(t, dr.Running())

	code, body = call(t, h, "POST", "/api/layout/arrange/circular", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "circular", body["placement"])
	assert.True(t, dr.Running(), "arranging resumes the layout")

	code, _ = call(t, h, "POST", "/api/layout/arrange/spiral", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = call(t, h, "GET", "/api/layout/stop", "")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestControlSnapshot(t *testing.T) {
	h, _, _ := newTestAPI(t)
	code, _ := call(t, h, "POST", "/api/nodes", `{"label": "keep", "position": {"x": 5, "y": 6}}`)
	require.Equal(t, http.StatusCreated, code)

	code, body := call(t, h, "GET", "/api/snapshot", "")
	require.Equal(t, http.StatusOK, code)
	nodes := body["nodes"].([]any)
	require.Len(t, nodes, 1)
	assert.Equal(t, "keep", nodes[0].(map[string]any)["label"])

	req := httptest.NewRequest("GET", "/api/snapshot?format=yaml", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "label: keep")

	yamlDoc := "version: 1\nnodes:\n  - id: 10\n    label: x\n  - id: 11\n    label: y\nedges:\n  - {a: 10, b: 11}\n"
	req = httptest.NewRequest("PUT", "/api/snapshot", strings.NewReader(yamlDoc))
	req.Header.Set("Content-Type", "application/yaml")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"nodes": 2}`, rec.Body.String())

	code, _ = call(t, h, "PUT", "/api/snapshot", `{"version": 1, "nodes": [{"id": 1}], "edges": [{"a": 1, "b": 2}]}`)
	assert.Equal(t, http.StatusBadRequest, code, "edges must reference listed nodes")
}

func TestControlUnavailableAfterShutdown(t *testing.T) {
	h, dr, cancel := newTestAPI(t)
	cancel()
	require.Eventually(t, func() bool { return !dr.Alive() }, time.Second, time.Millisecond)

	code, body := call(t, h, "POST", "/api/layout/stop", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, errDriverStopped.Error(), body["message"])
}
