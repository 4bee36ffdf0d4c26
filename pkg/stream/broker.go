package stream

import (
	"context"
	"crypto/tls"
	"sync"

	"github.com/dd0wney/forcegraph/pkg/diagram"
	"github.com/dd0wney/forcegraph/pkg/logging"
	"github.com/dd0wney/forcegraph/pkg/metrics"
)

const transportBroker = "broker"

type options struct {
	logger  logging.Logger
	metrics *metrics.Registry
	buffer  int
	tls     *tls.Config
}

// Option configures brokers and transports
type Option func(*options)

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics records into r instead of a private registry
func WithMetrics(r *metrics.Registry) Option {
	return func(o *options) { o.metrics = r }
}

// WithBuffer sets how many frames a subscriber may fall behind before frames
// are dropped for it
func WithBuffer(n int) Option {
	return func(o *options) { o.buffer = n }
}

// WithTLS secures tls+tcp:// nng addresses
func WithTLS(cfg *tls.Config) Option {
	return func(o *options) { o.tls = cfg }
}

func buildOptions(opts []Option) options {
	o := options{logger: logging.NewNopLogger(), buffer: 16}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = metrics.NewRegistry()
	}
	if o.buffer < 1 {
		o.buffer = 1
	}
	return o
}

// Broker fans published frames out to subscribers. It implements
// diagram.Renderer so a Diagram can publish into it directly. Publishing
// never blocks: a subscriber whose buffer is full misses the frame.
type Broker struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	latest *Message

	shutdown   chan struct{}
	shutdownMu sync.Mutex
	isShutdown bool

	opts   options
	logger logging.Logger
}

var _ diagram.Renderer = (*Broker)(nil)

// NewBroker creates a broker
func NewBroker(opts ...Option) *Broker {
	o := buildOptions(opts)
	return &Broker{
		subs:     make(map[*Subscription]struct{}),
		shutdown: make(chan struct{}),
		opts:     o,
		logger:   o.logger.With(logging.Component("stream")),
	}
}

// Subscription receives published frames until it is cancelled or the
// broker closes
type Subscription struct {
	channel   chan Message
	b         *Broker
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Subscribe registers a subscriber that lives until ctx is done
func (b *Broker) Subscribe(ctx context.Context) (*Subscription, error) {
	b.shutdownMu.Lock()
	defer b.shutdownMu.Unlock()
	if b.isShutdown {
		return nil, ErrClosed
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		channel: make(chan Message, b.opts.buffer),
		b:       b,
		cancel:  cancel,
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	b.opts.metrics.StreamSubscribers.WithLabelValues(transportBroker).Inc()

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-b.shutdown:
			sub.close()
		}
	}()
	return sub, nil
}

// Render encodes the scene and publishes it
func (b *Broker) Render(scene diagram.Scene) error {
	msg, err := Encode(scene)
	if err != nil {
		b.opts.metrics.StreamPublishErrors.WithLabelValues(transportBroker).Inc()
		return err
	}
	b.Publish(msg)
	return nil
}

// Publish hands an encoded frame to every subscriber
func (b *Broker) Publish(msg Message) {
	b.shutdownMu.Lock()
	closed := b.isShutdown
	b.shutdownMu.Unlock()
	if closed {
		return
	}

	b.mu.Lock()
	b.latest = &msg
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	dropped := 0
	for _, sub := range subs {
		if !sub.offer(msg) {
			dropped++
		}
	}
	b.opts.metrics.RecordStreamPublish(transportBroker, len(msg.Data), dropped)
	if dropped > 0 {
		b.logger.Debug("frame dropped for slow subscribers",
			logging.Uint64("frame", msg.Frame), logging.Count(dropped))
	}
}

// Latest returns the most recently published frame
func (b *Broker) Latest() (Message, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.latest == nil {
		return Message{}, false
	}
	return *b.latest, true
}

// LatestScene returns the scene of the most recent frame
func (b *Broker) LatestScene() (diagram.Scene, bool) {
	msg, ok := b.Latest()
	return msg.Scene, ok
}

// SubscriberCount returns the number of live subscriptions
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription. Later publishes are ignored.
func (b *Broker) Close() {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.isShutdown = true
	b.shutdownMu.Unlock()

	close(b.shutdown)

	b.mu.Lock()
	for sub := range b.subs {
		sub.close()
		delete(b.subs, sub)
	}
	b.mu.Unlock()
	b.opts.metrics.StreamSubscribers.WithLabelValues(transportBroker).Set(0)
}

// Channel returns the subscription's frames. It is closed when the
// subscription ends.
func (s *Subscription) Channel() <-chan Message {
	return s.channel
}

// Unsubscribe removes the subscription
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.b.mu.Lock()
	_, ok := s.b.subs[s]
	delete(s.b.subs, s)
	s.b.mu.Unlock()
	if ok {
		s.b.opts.metrics.StreamSubscribers.WithLabelValues(transportBroker).Dec()
	}

	s.close()
}

// offer sends without blocking. Holding the broker read lock keeps close
// from racing the send.
func (s *Subscription) offer(msg Message) bool {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	if _, ok := s.b.subs[s]; !ok {
		return true
	}
	select {
	case s.channel <- msg:
		return true
	default:
		return false
	}
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}
