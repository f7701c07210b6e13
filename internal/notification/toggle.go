package notification

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// ReadState interprets a toggle file. A missing or unreadable file means on;
// otherwise only the content "on" (trimmed, any case) means on.
func ReadState(path string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[toggle] read %s: %v (treating as on)", path, err)
		}
		return true
	}
	return strings.EqualFold(strings.TrimSpace(string(raw)), "on")
}

// Toggle is a file-backed on/off switch for outgoing notifications.
// Without Watch it re-reads the file on every query; while Watch runs it
// serves a cached state refreshed on file events.
type Toggle struct {
	path     string
	watching atomic.Bool
	state    atomic.Bool

	mu       sync.Mutex // serializes Set
	onChange func(on bool)
}

func NewToggle(path string) *Toggle {
	t := &Toggle{path: path}
	t.state.Store(ReadState(path))
	return t
}

// Path returns the watched file.
func (t *Toggle) Path() string { return t.path }

// OnChange registers fn to run after each observed state change.
func (t *Toggle) OnChange(fn func(on bool)) { t.onChange = fn }

// Enabled reports whether notifications should be sent.
func (t *Toggle) Enabled() bool {
	if t.watching.Load() {
		return t.state.Load()
	}
	return ReadState(t.path)
}

// Set writes "on" or "off" to the file.
func (t *Toggle) Set(on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	content := "off"
	if on {
		content = "on"
	}
	if err := os.WriteFile(t.path, []byte(content+"\n"), 0o644); err != nil {
		return fmt.Errorf("write toggle: %w", err)
	}
	t.refresh()
	return nil
}

func (t *Toggle) refresh() {
	on := ReadState(t.path)
	if old := t.state.Swap(on); old != on {
		log.Printf("[toggle] notifications %s", onOff(on))
		if t.onChange != nil {
			t.onChange(on)
		}
	}
}

// Watch follows the toggle file until ctx ends. The parent directory is
// watched so the file may be created, replaced or removed at any time.
func (t *Toggle) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("toggle watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(t.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("toggle watch %s: %w", dir, err)
	}
	t.refresh()
	t.watching.Store(true)
	defer t.watching.Store(false)

	name := filepath.Clean(t.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				t.refresh()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("[toggle] watcher error: %v", err)
		}
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
