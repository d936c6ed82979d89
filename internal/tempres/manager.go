// Package tempres tracks every transient artifact created during a render
// run — downloaded backgrounds, per-segment audio, intermediate clips — and
// releases all of them exactly once when the run ends, on success or failure.
package tempres

import (
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Kind describes what a registered resource is.
type Kind string

const (
	KindFile   Kind = "file"
	KindHandle Kind = "handle"
)

type resource struct {
	kind      Kind
	path      string
	closer    io.Closer
	name      string
	createdAt time.Time
}

// Manager is a registry of transient artifacts. Components register at
// creation time; ReleaseAll runs once at run end. Per-resource cleanup
// failures are logged and swallowed so one stuck artifact never blocks the
// rest or masks the run's real outcome.
type Manager struct {
	mu        sync.Mutex
	resources []resource
	released  bool
}

func NewManager() *Manager {
	return &Manager{}
}

// RegisterFile records a filesystem path to delete at run end.
func (m *Manager) RegisterFile(path string) {
	if path == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		log.Printf("[cleanup] warning: file %s registered after release, removing immediately", path)
		removeFile(path)
		return
	}
	m.resources = append(m.resources, resource{kind: KindFile, path: path, name: path, createdAt: time.Now()})
}

// RegisterCloser records a handle to close at run end.
func (m *Manager) RegisterCloser(name string, c io.Closer) {
	if c == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		log.Printf("[cleanup] warning: handle %s registered after release, closing immediately", name)
		if err := c.Close(); err != nil {
			log.Printf("[cleanup] close %s: %v", name, err)
		}
		return
	}
	m.resources = append(m.resources, resource{kind: KindHandle, closer: c, name: name, createdAt: time.Now()})
}

// ReleaseAll closes handles and deletes files in registration order.
// It is idempotent; only the first call does work.
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return
	}
	m.released = true
	resources := m.resources
	m.resources = nil
	m.mu.Unlock()

	for _, r := range resources {
		switch r.kind {
		case KindHandle:
			if err := r.closer.Close(); err != nil {
				log.Printf("[cleanup] close %s: %v", r.name, err)
			}
		case KindFile:
			removeFile(r.path)
		}
	}
}

// Count reports how many resources are currently registered.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.resources)
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("[cleanup] remove %s: %v", path, err)
	}
}
