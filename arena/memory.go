package arena

import (
	"fmt"
	"sync"

	"plato-wp36.eu/testbench/lightcurve"
)

// MemoryBackend holds intermediate products for the lifetime of one
// worker process; nothing here ever reaches disk. It is the default
// backend for artifacts that do not need to survive past the current
// TaskList.
type MemoryBackend struct {
	mu        sync.Mutex
	artifacts map[string]map[string]*lightcurve.ArbitraryRaster
}

// NewMemoryBackend returns an empty memory arena.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{artifacts: map[string]map[string]*lightcurve.ArbitraryRaster{}}
}

func (m *MemoryBackend) Put(handle Handle, product *lightcurve.ArbitraryRaster) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir, ok := m.artifacts[handle.Directory]
	if !ok {
		dir = map[string]*lightcurve.ArbitraryRaster{}
		m.artifacts[handle.Directory] = dir
	}
	dir[handle.Filename] = product
	return nil
}

func (m *MemoryBackend) Get(handle Handle) (*lightcurve.ArbitraryRaster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir, ok := m.artifacts[handle.Directory]
	if !ok {
		return nil, fmt.Errorf("arena: directory %q not found in memory backend", handle.Directory)
	}
	product, ok := dir[handle.Filename]
	if !ok {
		return nil, fmt.Errorf("arena: %q not found in memory backend directory %q", handle.Filename, handle.Directory)
	}
	return product, nil
}

func (m *MemoryBackend) Remove(handle Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir, ok := m.artifacts[handle.Directory]
	if !ok {
		return nil
	}
	delete(dir, handle.Filename)
	return nil
}
