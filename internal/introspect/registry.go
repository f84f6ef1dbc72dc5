package introspect

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry holds validated interface specifications keyed by interface name.
// Reads are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	ifaces map[string]Interface
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ifaces: make(map[string]Interface)}
}

// Add validates and stores one interface, replacing any previous entry with
// the same name.
func (r *Registry) Add(iface Interface) error {
	if err := Validate(&iface); err != nil {
		return err
	}

	r.mu.Lock()
	r.ifaces[iface.Name] = iface
	r.mu.Unlock()
	return nil
}

// LoadFile parses one introspection XML file and stores every interface it
// declares.
func (r *Registry) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open spec file: %w", err)
	}
	defer f.Close()

	node, err := Parse(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	r.mu.Lock()
	for _, iface := range node.AllInterfaces() {
		r.ifaces[iface.Name] = iface
	}
	r.mu.Unlock()
	return nil
}

// LoadDir loads every .xml file directly inside dir.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read spec dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".xml") {
			continue
		}
		if err := r.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the interface registered under name.
func (r *Registry) Lookup(name string) (Interface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	iface, ok := r.ifaces[name]
	return iface, ok
}

// Names returns the registered interface names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ifaces))
	for name := range r.ifaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered interfaces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ifaces)
}
