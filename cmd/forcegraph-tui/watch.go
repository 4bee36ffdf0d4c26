package main

import (
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

// Editors often write a file in several steps; changes closer together than
// this collapse into one reload.
const reloadDebounce = 150 * time.Millisecond

type fileChangedMsg struct{ path string }

type watchErrorMsg struct{ err error }

// fileWatcher reports changes to one file. The parent directory is watched
// so atomic rename-over saves are seen too.
type fileWatcher struct {
	path string
	w    *fsnotify.Watcher
}

func watchFile(path string) (*fileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}
	return &fileWatcher{path: abs, w: w}, nil
}

func (fw *fileWatcher) matches(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != fw.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// wait blocks until the file changes and settles
func (fw *fileWatcher) wait() tea.Cmd {
	if fw == nil {
		return nil
	}
	return func() tea.Msg {
		var settle <-chan time.Time
		for {
			select {
			case ev, ok := <-fw.w.Events:
				if !ok {
					return nil
				}
				if fw.matches(ev) {
					settle = time.After(reloadDebounce)
				}
			case err, ok := <-fw.w.Errors:
				if !ok {
					return nil
				}
				return watchErrorMsg{err: err}
			case <-settle:
				return fileChangedMsg{path: fw.path}
			}
		}
	}
}

func (fw *fileWatcher) Close() error {
	return fw.w.Close()
}
