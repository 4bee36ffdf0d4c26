package stream

import (
	"context"
	"fmt"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fgtls "github.com/dd0wney/forcegraph/pkg/tls"
)

func TestNNGDelivery(t *testing.T) {
	addr := "inproc://forcegraph-" + t.Name()
	pub, err := ListenNNG(addr)
	require.NoError(t, err)
	defer pub.Close()
	assert.Equal(t, addr, pub.Addr())

	sub, err := DialNNG(addr)
	require.NoError(t, err)
	defer sub.Close()
	require.NoError(t, sub.SetRecvDeadline(50*time.Millisecond))

	msg, err := Encode(testScene(3))
	require.NoError(t, err)

	// Frames sent before the pipe is up are lost, so keep sending.
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, pub.Send(msg))
		scene, err := sub.Recv()
		if err == nil {
			assert.Equal(t, uint64(3), scene.Frame)
			assert.Len(t, scene.Nodes, 2)
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("no frame received: %v", err)
		}
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestNNGDeliveryOverTLS(t *testing.T) {
	cfg := fgtls.DefaultConfig()
	cfg.AutoGenerate = true
	serverTLS, err := fgtls.LoadTLSConfig(cfg)
	require.NoError(t, err)
	clientTLS, err := fgtls.ClientConfig(serverTLS, "127.0.0.1")
	require.NoError(t, err)

	addr := fmt.Sprintf("tls+tcp://127.0.0.1:%d", freePort(t))
	pub, err := ListenNNG(addr, WithTLS(serverTLS))
	require.NoError(t, err)
	defer pub.Close()

	sub, err := DialNNG(addr, WithTLS(clientTLS))
	require.NoError(t, err)
	defer sub.Close()
	require.NoError(t, sub.SetRecvDeadline(50*time.Millisecond))

	msg, err := Encode(testScene(7))
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, pub.Send(msg))
		scene, err := sub.Recv()
		if err == nil {
			assert.Equal(t, uint64(7), scene.Frame)
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("no frame received over TLS: %v", err)
		}
	}
}

func TestNNGRunForwardsBroker(t *testing.T) {
	addr := "inproc://forcegraph-" + t.Name()
	b := NewBroker()
	pub, err := ListenNNG(addr)
	require.NoError(t, err)
	defer pub.Close()

	sub, err := DialNNG(addr)
	require.NoError(t, err)
	defer sub.Close()
	require.NoError(t, sub.SetRecvDeadline(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pub.Run(ctx, b) }()

	deadline := time.Now().Add(3 * time.Second)
	for frame := uint64(1); ; frame++ {
		require.NoError(t, b.Render(testScene(frame)))
		if scene, err := sub.Recv(); err == nil {
			assert.Positive(t, scene.Frame)
			break
		}
		require.False(t, time.Now().After(deadline), "no frame forwarded")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	b.Close()
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	require.NoError(t, err)
	return conn
}

func TestWebSocketStreamsFrames(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	srv := httptest.NewServer(NewWebSocketHandler(b))
	defer srv.Close()

	require.NoError(t, b.Render(testScene(1)))

	conn := dialWS(t, srv.URL)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	scene, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), scene.Frame, "latest frame is sent on connect")

	require.NoError(t, b.Render(testScene(2)))
	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	scene, err = Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), scene.Frame)
}

func TestWebSocketJSON(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	srv := httptest.NewServer(NewWebSocketHandler(b))
	defer srv.Close()

	require.NoError(t, b.Render(testScene(4)))

	conn := dialWS(t, srv.URL+"/?format=json")
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.Contains(t, string(data), `"frame":4`)
	assert.Contains(t, string(data), `"label":"a"`)
}

func TestWebSocketClosesWithBroker(t *testing.T) {
	b := NewBroker()
	srv := httptest.NewServer(NewWebSocketHandler(b))
	defer srv.Close()

	require.NoError(t, b.Render(testScene(1)))
	conn := dialWS(t, srv.URL)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	_, _, err := conn.ReadMessage()
	require.NoError(t, err)

	b.Close()
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
