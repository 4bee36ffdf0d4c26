package stream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dd0wney/forcegraph/pkg/logging"
)

const transportWebSocket = "websocket"

// WebSocketHandler streams frames to browser renderers. Clients receive the
// latest frame on connect and every frame after that. Frames are binary
// snappy blocks unless the client asks for ?format=json, which sends text
// JSON.
type WebSocketHandler struct {
	broker       *Broker
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	opts         options
	logger       logging.Logger
}

// NewWebSocketHandler serves frames published on b
func NewWebSocketHandler(b *Broker, opts ...Option) *WebSocketHandler {
	o := buildOptions(opts)
	return &WebSocketHandler{
		broker: b,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16384,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		writeTimeout: 5 * time.Second,
		opts:         o,
		logger:       o.logger.With(logging.Component("stream"), logging.String("transport", transportWebSocket)),
	}
}

// ServeHTTP upgrades the connection and writes frames until either side goes away
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	sub, err := h.broker.Subscribe(r.Context())
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()),
			time.Now().Add(h.writeTimeout))
		return
	}
	defer sub.Unsubscribe()

	gauge := h.opts.metrics.StreamSubscribers.WithLabelValues(transportWebSocket)
	gauge.Inc()
	defer gauge.Dec()

	asJSON := r.URL.Query().Get("format") == "json"
	h.logger.Debug("client connected", logging.String("remote", r.RemoteAddr), logging.Bool("json", asJSON))

	// Reads only detect the peer closing; clients have nothing to say.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if msg, ok := h.broker.Latest(); ok {
		if err := h.write(conn, msg, asJSON); err != nil {
			return
		}
	}

	for {
		select {
		case <-gone:
			h.logger.Debug("client disconnected", logging.String("remote", r.RemoteAddr))
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(h.writeTimeout))
				return
			}
			if err := h.write(conn, msg, asJSON); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) write(conn *websocket.Conn, msg Message, asJSON bool) error {
	kind, data := websocket.BinaryMessage, msg.Data
	if asJSON {
		kind, data = websocket.TextMessage, msg.JSON
	}

	_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	if err := conn.WriteMessage(kind, data); err != nil {
		h.opts.metrics.StreamPublishErrors.WithLabelValues(transportWebSocket).Inc()
		h.logger.Debug("write failed", logging.Error(err))
		return err
	}
	h.opts.metrics.RecordStreamPublish(transportWebSocket, len(data), 0)
	return nil
}
