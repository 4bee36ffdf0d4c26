package main

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/forcegraph/pkg/diagram"
	"github.com/dd0wney/forcegraph/pkg/graph"
	"github.com/dd0wney/forcegraph/pkg/logging"
	"github.com/dd0wney/forcegraph/pkg/snapshot"
)

type countingRenderer struct {
	frames atomic.Int64
	last   atomic.Value
}

func (c *countingRenderer) Render(scene diagram.Scene) error {
	c.frames.Add(1)
	c.last.Store(scene)
	return nil
}

// startDriver runs a driver until the test ends
func startDriver(t *testing.T, target *countingRenderer) (*driver, context.CancelFunc) {
	t.Helper()
	var r diagram.Renderer
	if target != nil {
		r = target
	}
	d, err := diagram.New(r, diagram.DefaultConfig())
	require.NoError(t, err)

	dr := newDriver(d, r, time.Millisecond, logging.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dr.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Error("frame loop did not stop")
		}
	})
	return dr, cancel
}

func TestDriverAdvancesFrames(t *testing.T) {
	target := &countingRenderer{}
	dr, _ := startDriver(t, target)

	assert.Eventually(t, func() bool { return target.frames.Load() >= 3 }, 2*time.Second, time.Millisecond)
	assert.True(t, dr.Running())
	assert.True(t, dr.Alive())
}

func TestDriverDoRunsOnLoop(t *testing.T) {
	target := &countingRenderer{}
	dr, _ := startDriver(t, target)
	ctx := context.Background()

	var id graph.NodeID
	require.NoError(t, dr.do(ctx, func(d *diagram.Diagram) {
		id, _ = d.CreateNode(graph.NodeSpec{Label: "a"})
		d.Stop()
	}))
	assert.False(t, dr.Running())

	// stopped diagrams still publish the result of a command
	before := target.frames.Load()
	require.NoError(t, dr.do(ctx, func(d *diagram.Diagram) { d.ResetView() }))
	assert.Equal(t, before+1, target.frames.Load())
	scene := target.last.Load().(diagram.Scene)
	_, ok := scene.Node(id)
	assert.True(t, ok)
	assert.False(t, scene.Running)
}

func TestDriverDoAfterStop(t *testing.T) {
	dr, cancel := startDriver(t, nil)
	cancel()
	assert.Eventually(t, func() bool { return !dr.Alive() }, time.Second, time.Millisecond)

	err := dr.do(context.Background(), func(*diagram.Diagram) {})
	assert.ErrorIs(t, err, errDriverStopped)
}

func TestDriverDoHonoursContext(t *testing.T) {
	dr, _ := startDriver(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// either the loop picks the command up or the cancelled context wins
	err := dr.do(ctx, func(*diagram.Diagram) {})
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestReloadAndSave(t *testing.T) {
	dr, _ := startDriver(t, nil)
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, reloadGraph(ctx, dr, "", logging.NewNopLogger()), "no graph file is a no-op")

	graphPath := filepath.Join(dir, "graph.yaml")
	require.NoError(t, snapshot.SaveFile(graphPath, snapshot.Demo()))
	require.NoError(t, reloadGraph(ctx, dr, graphPath, logging.NewNopLogger()))

	savePath := filepath.Join(dir, "saved.fgz")
	require.NoError(t, saveSnapshot(ctx, dr, savePath))
	doc, err := snapshot.LoadFile(savePath)
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 8)
	assert.Len(t, doc.Edges, 15)
	for _, n := range doc.Nodes {
		assert.NotNil(t, n.Position, "saved nodes carry positions")
	}

	assert.Error(t, reloadGraph(ctx, dr, filepath.Join(dir, "missing.yaml"), logging.NewNopLogger()))
}
