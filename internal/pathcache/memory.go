// Package pathcache stores derived learning paths keyed by course. Values are
// opaque bytes; the graph service owns their encoding.
package pathcache

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-process cache. It is the default when no Redis address is
// configured.
type Memory struct {
	mu      sync.RWMutex
	courses map[string]map[string][]byte
}

// NewMemory returns an empty Memory cache.
func NewMemory() *Memory {
	return &Memory{courses: make(map[string]map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, courseID, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.courses[courseID][key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (m *Memory) Put(_ context.Context, courseID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := m.courses[courseID]
	if !ok {
		entries = make(map[string][]byte)
		m.courses[courseID] = entries
	}
	entries[key] = slices.Clone(value)
	return nil
}

func (m *Memory) Invalidate(_ context.Context, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.courses, courseID)
	return nil
}

// Len returns the number of cached entries for a course.
func (m *Memory) Len(courseID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.courses[courseID])
}
