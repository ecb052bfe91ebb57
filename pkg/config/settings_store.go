package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aurigaai/auriga-setup-agent-go/log"
)

// SettingsStore holds the current driver settings. It is safe for concurrent use.
type SettingsStore struct {
	mu       sync.RWMutex
	path     string
	settings Settings
	override string // api url given on the command line, wins over the file
}

// NewSettingsStore loads path. Load errors are logged, defaults are used then.
func NewSettingsStore(path, apiURLOverride string) *SettingsStore {
	st := &SettingsStore{path: path, override: apiURLOverride}
	st.Reload()
	return st
}

func (st *SettingsStore) Get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	ret := st.settings
	if st.override != "" {
		ret.APIURL = st.override
	}
	return ret
}

// Set stores s and persists it
func (st *SettingsStore) Set(s Settings) error {
	if err := SaveSettings(st.path, s); err != nil {
		return err
	}
	s.normalize()
	st.mu.Lock()
	st.settings = s
	st.mu.Unlock()
	return nil
}

func (st *SettingsStore) Reload() {
	s, err := LoadSettings(st.path)
	if err != nil {
		log.Warn("could not load settings, using defaults",
			log.String("path", st.path), log.ErrorField(err))
	}
	st.mu.Lock()
	st.settings = s
	st.mu.Unlock()
}

// Watch reloads the settings whenever the file is written until ctx is done.
// The directory is watched since editors often replace the file.
func (st *SettingsStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(st.path)); err != nil {
		w.Close()
		return err
	}
	go func() {
		defer w.Close()
		// editors produce bursts of events, reload once they settle
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(st.path) {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
					ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
					pending = time.After(100 * time.Millisecond)
				}
			case <-pending:
				pending = nil
				st.Reload()
				log.Info("settings reloaded", log.String("path", st.path))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("settings watcher", log.ErrorField(err))
			}
		}
	}()
	return nil
}
