// Command forcegraph-tui draws a live force-directed diagram in the terminal.
// Nodes can be hovered and dragged with the mouse, the wheel zooms, and the
// graph file is reloaded whenever it changes on disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/forcegraph/pkg/diagram"
	"github.com/dd0wney/forcegraph/pkg/logging"
	"github.com/dd0wney/forcegraph/pkg/prefs"
	"github.com/dd0wney/forcegraph/pkg/snapshot"
)

func defaultPrefs() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "memory:"
	}
	return "file:" + filepath.Join(dir, "forcegraph", "prefs.yaml")
}

func main() {
	configPath := flag.String("config", "", "Diagram config file (YAML)")
	graphPath := flag.String("graph", "", "Graph file to load and watch (.yaml, .json, .fgz)")
	savePath := flag.String("save", "", "Snapshot written on 's' and on exit")
	prefsLoc := flag.String("prefs", defaultPrefs(), "Preference store (memory:, file:PATH, sqlite:PATH, postgres://...)")
	logPath := flag.String("log", "forcegraph-tui.log", "Log file")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger, logFile, err := logging.OpenFile(*logPath, logging.ParseLevel(*logLevel))
	if err != nil {
		log.Fatalf("Failed to open log: %v", err)
	}
	defer logFile.Close()

	cfg := diagram.DefaultConfig()
	if *configPath != "" {
		if cfg, err = diagram.LoadConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	store, err := prefs.Open(ctx, *prefsLoc)
	cancel()
	if err != nil {
		logger.Warn("preferences unavailable, zoom will not persist", logging.Error(err))
		store = prefs.NewMemoryStore()
	}
	defer store.Close()

	canvas := NewCanvas(cfg.Layout.Width, cfg.Layout.Height, 80, 24)
	d, err := diagram.New(canvas, cfg,
		diagram.WithLogger(logger),
		diagram.WithPrefs(store),
	)
	if err != nil {
		log.Fatalf("Failed to create diagram: %v", err)
	}

	doc := snapshot.Demo()
	if *graphPath != "" {
		if doc, err = snapshot.LoadFile(*graphPath); err != nil {
			log.Fatalf("Failed to load graph: %v", err)
		}
	}
	if _, err := d.Load(doc); err != nil {
		log.Fatalf("Failed to load graph: %v", err)
	}

	m := newModel(d, canvas, logger)
	m.graphPath = *graphPath
	m.savePath = *savePath
	if *graphPath != "" {
		if m.watcher, err = watchFile(*graphPath); err != nil {
			logger.Warn("not watching graph file", logging.Path(*graphPath), logging.Error(err))
		} else {
			defer m.watcher.Close()
		}
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}

	if *savePath != "" {
		if err := snapshot.SaveFile(*savePath, d.Snapshot()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save snapshot: %v\n", err)
			os.Exit(1)
		}
		logger.Info("snapshot saved", logging.Path(*savePath))
	}
}
