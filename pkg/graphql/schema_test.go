package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dd0wney/forcegraph/pkg/diagram"
	"github.com/dd0wney/forcegraph/pkg/graph"
	"github.com/dd0wney/forcegraph/pkg/stream"
	"github.com/dd0wney/forcegraph/pkg/viewport"
	"github.com/dd0wney/forcegraph/pkg/visualization"
)

type staticSource struct {
	scene diagram.Scene
	ok    bool
}

func (s staticSource) LatestScene() (diagram.Scene, bool) {
	return s.scene, s.ok
}

// hub 0 linked to 1 and 2; 3 is isolated and hovered
func fixtureScene() diagram.Scene {
	return diagram.Scene{
		Instance:  "fixture",
		Frame:     42,
		Running:   true,
		Transform: viewport.Transform{Scale: 1.5, TranslateX: 10, TranslateY: -5, PixelRatio: 1},
		Stats:     visualization.FrameStats{Frame: 41, Passes: 1, MaxDelta: 0.25},
		Cursor:    "pointer",
		Nodes: []diagram.SceneNode{
			{ID: 0, Label: "hub", X: 100, Y: 100, Radius: 12},
			{ID: 1, Label: "left", X: 50, Y: 150, Radius: 8, Dimmed: true},
			{ID: 2, Label: "right", X: 150, Y: 150, Radius: 8, Dimmed: true},
			{ID: 3, Label: "alone", X: 300, Y: 300, Radius: 6, Hovered: true},
		},
		Edges: []diagram.SceneEdge{
			{A: 0, B: 1, Color: "#9c9c9c"},
			{A: 2, B: 0, Color: "#9c9c9c", Dimmed: true},
		},
	}
}

func newTestSchema(t *testing.T, src SceneSource) *GraphQLHandler {
	t.Helper()
	schema, err := NewSchema(src, DefaultLimitConfig())
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}
	return NewGraphQLHandler(schema)
}

func post(t *testing.T, h http.Handler, query string, variables map[string]any) GraphQLResponse {
	t.Helper()
	body, _ := json.Marshal(GraphQLRequest{Query: query, Variables: variables})
	req := httptest.NewRequest("POST", "/graphql", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp GraphQLResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func field(t *testing.T, resp GraphQLResponse, name string) any {
	t.Helper()
	if len(resp.Errors) > 0 {
		t.Fatalf("Unexpected errors: %v", resp.Errors)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("Expected data object, got %T", resp.Data)
	}
	return data[name]
}

func TestSceneQuery(t *testing.T) {
	h := newTestSchema(t, staticSource{fixtureScene(), true})

	resp := post(t, h, `{ scene { instance frame running scale translateX passes maxDelta cursor nodeCount edgeCount } }`, nil)
	scene := field(t, resp, "scene").(map[string]any)

	want := map[string]any{
		"instance":   "fixture",
		"frame":      42.0,
		"running":    true,
		"scale":      1.5,
		"translateX": 10.0,
		"passes":     1.0,
		"maxDelta":   0.25,
		"cursor":     "pointer",
		"nodeCount":  4.0,
		"edgeCount":  2.0,
	}
	for k, v := range want {
		if scene[k] != v {
			t.Errorf("scene.%s = %v, want %v", k, scene[k], v)
		}
	}
}

func TestNodeQueryWithNeighbors(t *testing.T) {
	h := newTestSchema(t, staticSource{fixtureScene(), true})

	resp := post(t, h, `query($id: ID!) { node(id: $id) { id label x radius degree neighbors { label } } }`,
		map[string]any{"id": "0"})
	node := field(t, resp, "node").(map[string]any)

	if node["label"] != "hub" || node["x"] != 100.0 || node["degree"] != 2.0 {
		t.Errorf("Unexpected node %v", node)
	}
	neighbors := node["neighbors"].([]any)
	labels := []string{}
	for _, n := range neighbors {
		labels = append(labels, n.(map[string]any)["label"].(string))
	}
	if strings.Join(labels, ",") != "left,right" {
		t.Errorf("Expected neighbors left,right, got %v", labels)
	}

	resp = post(t, h, `{ node(id: "99") { id } }`, nil)
	if got := field(t, resp, "node"); got != nil {
		t.Errorf("Expected null for unknown node, got %v", got)
	}

	resp = post(t, h, `{ node(id: "hub") { id } }`, nil)
	if len(resp.Errors) == 0 {
		t.Error("Expected an error for a non-numeric id")
	}
}

func TestNodesFilters(t *testing.T) {
	h := newTestSchema(t, staticSource{fixtureScene(), true})

	tests := []struct {
		query string
		want  []string
	}{
		{`{ nodes { label } }`, []string{"hub", "left", "right", "alone"}},
		{`{ nodes(limit: 2) { label } }`, []string{"hub", "left"}},
		{`{ nodes(dimmed: true) { label } }`, []string{"left", "right"}},
		{`{ nodes(hovered: true) { label } }`, []string{"alone"}},
		{`{ nodes(label: "right") { label } }`, []string{"right"}},
		{`{ nodes(limit: 0) { label } }`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			nodes := field(t, post(t, h, tt.query, nil), "nodes").([]any)
			got := []string{}
			for _, n := range nodes {
				got = append(got, n.(map[string]any)["label"].(string))
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEdgesQuery(t *testing.T) {
	h := newTestSchema(t, staticSource{fixtureScene(), true})

	edges := field(t, post(t, h, `{ edges { a b dimmed source { label } target { label } } }`, nil), "edges").([]any)
	if len(edges) != 2 {
		t.Fatalf("Expected 2 edges, got %d", len(edges))
	}
	second := edges[1].(map[string]any)
	if second["a"] != "2" || second["dimmed"] != true {
		t.Errorf("Unexpected edge %v", second)
	}
	if second["source"].(map[string]any)["label"] != "right" || second["target"].(map[string]any)["label"] != "hub" {
		t.Errorf("Unexpected endpoints %v", second)
	}

	edges = field(t, post(t, h, `{ edges(node: "1") { a b } }`, nil), "edges").([]any)
	if len(edges) != 1 {
		t.Errorf("Expected 1 edge touching node 1, got %d", len(edges))
	}
}

func TestQueriesBeforeFirstFrame(t *testing.T) {
	h := newTestSchema(t, staticSource{})

	resp := post(t, h, `{ health scene { frame } nodes { id } }`, nil)
	if field(t, resp, "health") != "ok" {
		t.Error("Expected health ok")
	}
	if field(t, resp, "scene") != nil {
		t.Error("Expected null scene before the first frame")
	}
	if nodes := field(t, resp, "nodes").([]any); len(nodes) != 0 {
		t.Errorf("Expected no nodes, got %v", nodes)
	}
}

func TestDepthLimit(t *testing.T) {
	h := newTestSchema(t, staticSource{fixtureScene(), true})

	shallow := `{ node(id: "0") { neighbors { neighbors { label } } } }`
	if resp := post(t, h, shallow, nil); len(resp.Errors) > 0 {
		t.Fatalf("Expected depth 4 query to succeed, got %v", resp.Errors)
	}

	deep := `{ node(id: "0") { neighbors { neighbors { neighbors { label } } } } }`
	resp := post(t, h, deep, nil)
	if len(resp.Errors) == 0 || !strings.Contains(resp.Errors[0].Message, "exceeds maximum allowed depth") {
		t.Errorf("Expected depth error, got %v", resp.Errors)
	}

	viaFragment := `
		query { node(id: "0") { ...deep } }
		fragment deep on Node { neighbors { neighbors { neighbors { id } } } }`
	resp = post(t, h, viaFragment, nil)
	if len(resp.Errors) == 0 {
		t.Error("Expected fragments to count toward depth")
	}
}

func TestCalculateQueryDepth(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{`{ health }`, 1},
		{`{ scene { frame } }`, 2},
		{`{ edges { source { label } } }`, 3},
		{`{ __schema { types { name } } }`, 1},
		{`{ nodes { ... on Node { neighbors { id } } } }`, 3},
	}
	for _, tt := range tests {
		if err := ValidateQueryDepth(tt.query, tt.want); err != nil {
			t.Errorf("%s: expected depth <= %d, got %v", tt.query, tt.want, err)
		}
		if tt.want > 1 {
			if err := ValidateQueryDepth(tt.query, tt.want-1); err == nil {
				t.Errorf("%s: expected depth %d to exceed %d", tt.query, tt.want, tt.want-1)
			}
		}
	}

	if err := ValidateQueryDepth(`{ broken`, 5); err == nil {
		t.Error("Expected parse error")
	}
}

func TestHTTPMethods(t *testing.T) {
	h := newTestSchema(t, staticSource{fixtureScene(), true})

	req := httptest.NewRequest("GET", "/graphql?query="+url.QueryEscape(`{ scene { frame } }`), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"frame":42`) {
		t.Errorf("GET query failed: %d %s", rec.Code, rec.Body.String())
	}

	cases := []struct {
		method string
		body   string
		status int
	}{
		{"OPTIONS", "", http.StatusOK},
		{"DELETE", "", http.StatusMethodNotAllowed},
		{"POST", "{not json", http.StatusBadRequest},
		{"POST", `{"query": ""}`, http.StatusBadRequest},
	}
	for _, c := range cases {
		req := httptest.NewRequest(c.method, "/graphql", strings.NewReader(c.body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != c.status {
			t.Errorf("%s %q: expected %d, got %d", c.method, c.body, c.status, rec.Code)
		}
	}
}

func TestBrokerAsSource(t *testing.T) {
	b := stream.NewBroker()
	defer b.Close()

	d, err := diagram.New(b, diagram.DefaultConfig())
	if err != nil {
		t.Fatalf("diagram.New failed: %v", err)
	}
	a, _ := d.CreateNode(graph.NodeSpec{Label: "a"})
	_, _ = d.CreateNode(graph.NodeSpec{Label: "b", Neighbors: []graph.NodeID{a}})
	d.Advance()

	schema, err := NewSchema(b, DefaultLimitConfig())
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}
	result := Execute(context.Background(), schema, `{ scene { frame nodeCount edgeCount } }`, nil, DefaultMaxDepth)
	if result.HasErrors() {
		t.Fatalf("Unexpected errors: %v", result.Errors)
	}
	scene := result.Data.(map[string]any)["scene"].(map[string]any)
	if scene["nodeCount"] != 2 || scene["edgeCount"] != 1 {
		t.Errorf("Unexpected scene %v", scene)
	}
}

func TestInvalidLimits(t *testing.T) {
	for _, cfg := range []LimitConfig{{DefaultLimit: 0, MaxLimit: 10}, {DefaultLimit: 20, MaxLimit: 10}, {}} {
		if _, err := NewSchema(staticSource{}, cfg); err == nil {
			t.Errorf("Expected error for %+v", cfg)
		}
	}
}
