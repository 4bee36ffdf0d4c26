// Command forcegraph-serve runs a diagram headless at a fixed frame rate and
// publishes every frame to remote renderers over WebSocket and nng. It also
// serves a GraphQL view of the latest scene, a control API, health checks
// and Prometheus metrics.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/forcegraph/pkg/diagram"
	"github.com/dd0wney/forcegraph/pkg/graphql"
	"github.com/dd0wney/forcegraph/pkg/health"
	"github.com/dd0wney/forcegraph/pkg/logging"
	"github.com/dd0wney/forcegraph/pkg/metrics"
	"github.com/dd0wney/forcegraph/pkg/prefs"
	"github.com/dd0wney/forcegraph/pkg/server"
	"github.com/dd0wney/forcegraph/pkg/snapshot"
	"github.com/dd0wney/forcegraph/pkg/stream"
	fgtls "github.com/dd0wney/forcegraph/pkg/tls"
)

// options collects the command line
type options struct {
	addr       string
	nngAddr    string
	tlsCert    string
	tlsKey     string
	selfSigned bool
	configPath string
	graphPath  string
	savePath   string
	prefsLoc   string
	interval   time.Duration
	stallAfter time.Duration
	buffer     int
	logLevel   string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.addr, "addr", ":8080", "HTTP listen address")
	flag.StringVar(&o.nngAddr, "nng", "tcp://127.0.0.1:40899", "nng PUB address for scene frames (empty disables)")
	flag.StringVar(&o.tlsCert, "tls-cert", "", "TLS certificate file (serves HTTPS and enables tls+tcp:// for nng)")
	flag.StringVar(&o.tlsKey, "tls-key", "", "TLS private key file")
	flag.BoolVar(&o.selfSigned, "tls-self-signed", false, "Serve TLS with a generated self-signed certificate")
	flag.StringVar(&o.configPath, "config", "", "Diagram config file (YAML)")
	flag.StringVar(&o.graphPath, "graph", "", "Graph file loaded at start and on SIGHUP")
	flag.StringVar(&o.savePath, "save", "", "Snapshot written on shutdown")
	flag.StringVar(&o.prefsLoc, "prefs", "memory:", "Preference store (memory:, file:PATH, sqlite:PATH, postgres://...)")
	flag.DurationVar(&o.interval, "interval", 16*time.Millisecond, "Frame interval")
	flag.DurationVar(&o.stallAfter, "stall-after", 2*time.Second, "Report the frame loop unhealthy after this long without a frame")
	flag.IntVar(&o.buffer, "buffer", 16, "Frames a subscriber may fall behind before frames are dropped")
	flag.StringVar(&o.logLevel, "log-level", "", "Log level (default from LOG_LEVEL, else info)")
	flag.Parse()
	return o
}

func main() {
	o := parseFlags()

	logger := logging.FromEnv(os.Stderr)
	if o.logLevel != "" {
		logger.SetLevel(logging.ParseLevel(o.logLevel))
	}
	if err := run(o, logger); err != nil {
		log.Fatalf("forcegraph-serve: %v", err)
	}
}

func run(o options, logger logging.Logger) error {
	started := time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := diagram.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = diagram.LoadConfig(o.configPath); err != nil {
			return err
		}
	}

	openCtx, openCancel := context.WithTimeout(ctx, 5*time.Second)
	store, err := prefs.Open(openCtx, o.prefsLoc)
	openCancel()
	if err != nil {
		return err
	}
	defer store.Close()

	tlsCfg := fgtls.DefaultConfig()
	tlsCfg.CertFile, tlsCfg.KeyFile = o.tlsCert, o.tlsKey
	tlsCfg.AutoGenerate = o.selfSigned
	serverTLS, err := fgtls.LoadTLSConfig(tlsCfg)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	broker := stream.NewBroker(
		stream.WithLogger(logger),
		stream.WithMetrics(reg),
		stream.WithBuffer(o.buffer),
	)
	defer broker.Close()

	hb := &health.Heartbeat{}
	target := diagram.RendererFunc(func(scene diagram.Scene) error {
		hb.Beat()
		return broker.Render(scene)
	})

	d, err := diagram.New(target, cfg,
		diagram.WithContext(ctx),
		diagram.WithLogger(logger),
		diagram.WithMetrics(reg),
		diagram.WithPrefs(store),
	)
	if err != nil {
		return err
	}

	doc := snapshot.Demo()
	if o.graphPath != "" {
		if doc, err = snapshot.LoadFile(o.graphPath); err != nil {
			return err
		}
	}
	if _, err := d.Load(doc); err != nil {
		return err
	}

	dr := newDriver(d, target, o.interval, logger)
	loopDone := make(chan error, 1)
	go func() { loopDone <- dr.Run(ctx) }()

	if o.nngAddr != "" {
		pub, err := stream.ListenNNG(o.nngAddr,
			stream.WithLogger(logger),
			stream.WithMetrics(reg),
			stream.WithTLS(serverTLS))
		if err != nil {
			return err
		}
		defer pub.Close()
		go func() {
			if err := pub.Run(ctx, broker); err != nil && ctx.Err() == nil {
				logger.Error("nng publisher stopped", logging.Error(err))
			}
		}()
	}

	reg.SetHostInfo(d.ID())
	go reportHostMetrics(ctx, reg, started, hb)

	hc := health.NewHealthChecker()
	hc.WatchFrames(hb)
	hc.RegisterCheck("frames", health.FrameLoopCheck(hb, o.stallAfter, dr.Running), health.AlsoReady())
	hc.RegisterCheck("prefs", health.PrefsCheck(store.Ping, 2*time.Second), health.Optional())
	hc.RegisterLivenessCheck("driver", func() health.Check {
		c := health.SimpleCheck("driver")
		if !dr.Alive() {
			c.Status, c.Message = health.StatusUnhealthy, "frame loop exited"
		}
		return c
	})
	hc.RegisterReadinessCheck("scene", func() health.Check {
		c := health.SimpleCheck("scene")
		if _, ok := broker.Latest(); !ok {
			c.Status, c.Message = health.StatusDegraded, "no scene published yet"
		}
		return c
	})
	hc.RegisterCheck("memory", health.MemoryCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	}), health.Optional())

	schema, err := graphql.NewSchema(broker, graphql.DefaultLimitConfig())
	if err != nil {
		return err
	}

	r := mux.NewRouter()
	r.Use(server.MetricsMiddleware(reg))
	r.Handle("/metrics", promhttp.HandlerFor(reg.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	r.Handle("/graphql", graphql.NewGraphQLHandler(schema, graphql.WithLogger(logger)))
	r.Handle("/ws", stream.NewWebSocketHandler(broker, stream.WithLogger(logger), stream.WithMetrics(reg)))
	hc.Routes(r)
	newControlAPI(dr, logger).routes(r.PathPrefix("/api").Subrouter())

	srv := server.NewGracefulServer(o.addr, r, logger)
	if serverTLS != nil {
		srv.SetTLSConfig(serverTLS)
	}
	srv.SetReloadFunc(func() error {
		return reloadGraph(ctx, dr, o.graphPath, logger)
	})

	logger.Info("forcegraph-serve starting",
		logging.String("addr", o.addr),
		logging.String("nng", o.nngAddr),
		logging.Bool("tls", serverTLS != nil),
		logging.Instance(d.ID()),
		logging.Count(d.Store().NodeCount()))

	serveErr := srv.Run(ctx, 30*time.Second)
	if o.savePath != "" {
		saveCtx, saveCancel := context.WithTimeout(context.Background(), 5*time.Second)
		saveErr := saveSnapshot(saveCtx, dr, o.savePath)
		saveCancel()
		if saveErr != nil {
			logger.Error("failed to save snapshot", logging.Path(o.savePath), logging.Error(saveErr))
		} else {
			logger.Info("snapshot saved", logging.Path(o.savePath))
		}
	}
	cancel()
	<-loopDone

	if serveErr != nil && serveErr != http.ErrServerClosed {
		return serveErr
	}
	return nil
}

// reloadGraph replaces the graph with the file's contents
func reloadGraph(ctx context.Context, dr *driver, path string, logger logging.Logger) error {
	if path == "" {
		return nil
	}
	timer := logging.StartTimer(logger, "graph reloaded", logging.Path(path))
	doc, err := snapshot.LoadFile(path)
	if err != nil {
		return err
	}
	var loadErr error
	if err := dr.do(ctx, func(d *diagram.Diagram) {
		_, loadErr = d.Load(doc)
		d.Resume()
	}); err != nil {
		return err
	}
	if loadErr != nil {
		return loadErr
	}
	timer.End(logging.Count(len(doc.Nodes)))
	return nil
}

// saveSnapshot captures the diagram on the frame goroutine and writes it
func saveSnapshot(ctx context.Context, dr *driver, path string) error {
	var doc snapshot.Document
	if err := dr.do(ctx, func(d *diagram.Diagram) { doc = d.Snapshot() }); err != nil {
		return err
	}
	return snapshot.SaveFile(path, doc)
}

func reportHostMetrics(ctx context.Context, reg *metrics.Registry, started time.Time, hb *health.Heartbeat) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	reg.SampleHost(started, hb.Last())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reg.SampleHost(started, hb.Last())
		}
	}
}
