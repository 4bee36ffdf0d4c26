package stream

import (
	"context"
	"fmt"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"
	"go.nanomsg.org/mangos/v3/protocol/sub"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/forcegraph/pkg/diagram"
	"github.com/dd0wney/forcegraph/pkg/logging"
)

const transportNNG = "nng"

// NNGPublisher forwards broker frames on an nng PUB socket. Subscribers that
// are not connected when a frame is sent miss it; each frame is a complete
// scene so they catch up on the next one.
type NNGPublisher struct {
	sock   mangos.Socket
	addr   string
	opts   options
	logger logging.Logger
}

// ListenNNG binds a PUB socket, e.g. "tcp://*:9090" or "inproc://scenes"
func ListenNNG(addr string, opts ...Option) (*NNGPublisher, error) {
	o := buildOptions(opts)

	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	if err := sock.ListenOptions(addr, socketOptions(o)); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to bind PUB socket to %s: %w", addr, err)
	}

	p := &NNGPublisher{
		sock:   sock,
		addr:   addr,
		opts:   o,
		logger: o.logger.With(logging.Component("stream"), logging.String("transport", transportNNG)),
	}
	p.logger.Info("scene publisher bound", logging.String("addr", addr))
	return p, nil
}

func socketOptions(o options) map[string]interface{} {
	if o.tls == nil {
		return nil
	}
	return map[string]interface{}{mangos.OptionTLSConfig: o.tls}
}

// Addr returns the bound address
func (p *NNGPublisher) Addr() string {
	return p.addr
}

// Send publishes one frame
func (p *NNGPublisher) Send(msg Message) error {
	if err := p.sock.Send(msg.Data); err != nil {
		p.opts.metrics.StreamPublishErrors.WithLabelValues(transportNNG).Inc()
		return fmt.Errorf("publish frame %d: %w", msg.Frame, err)
	}
	p.opts.metrics.RecordStreamPublish(transportNNG, len(msg.Data), 0)
	return nil
}

// Run forwards every frame published on b until ctx is done or b closes
func (p *NNGPublisher) Run(ctx context.Context, b *Broker) error {
	s, err := b.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer s.Unsubscribe()

	for msg := range s.Channel() {
		if err := p.Send(msg); err != nil {
			p.logger.Warn("publish failed", logging.Error(err))
		}
	}
	return ctx.Err()
}

// Close closes the socket
func (p *NNGPublisher) Close() error {
	return p.sock.Close()
}

// NNGSubscriber receives scenes from an NNGPublisher
type NNGSubscriber struct {
	sock mangos.Socket
}

// DialNNG connects a SUB socket to a publisher. Only WithTLS applies.
func DialNNG(addr string, opts ...Option) (*NNGSubscriber, error) {
	o := buildOptions(opts)

	sock, err := sub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}
	if err := sock.SetOption(mangos.OptionSubscribe, []byte{}); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	if err := sock.DialOptions(addr, socketOptions(o)); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to connect SUB socket to %s: %w", addr, err)
	}
	return &NNGSubscriber{sock: sock}, nil
}

// SetRecvDeadline bounds each Recv. Zero waits forever.
func (s *NNGSubscriber) SetRecvDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionRecvDeadline, d)
}

// Recv blocks for the next scene
func (s *NNGSubscriber) Recv() (diagram.Scene, error) {
	data, err := s.sock.Recv()
	if err != nil {
		return diagram.Scene{}, err
	}
	return Decode(data)
}

// Close closes the socket
func (s *NNGSubscriber) Close() error {
	return s.sock.Close()
}
