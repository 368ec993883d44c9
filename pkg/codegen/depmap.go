package codegen

import (
	"slices"
	"sync"

	"github.com/soundprediction/blockgraph/pkg/types"
)

// DependencyMap records directed "source depends on target" edges between ontology types.
// It is safe for concurrent use.
type DependencyMap struct {
	mu   sync.RWMutex
	deps map[types.VersionedURL]map[types.VersionedURL]struct{}
}

func NewDependencyMap() *DependencyMap {
	return &DependencyMap{deps: make(map[types.VersionedURL]map[types.VersionedURL]struct{})}
}

// AddType registers id with no dependencies if it is not known yet.
func (m *DependencyMap) AddType(id types.VersionedURL) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(id)
}

// AddDependency records that source depends on target. Both become known types.
func (m *DependencyMap) AddDependency(source, target types.VersionedURL) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(source)[target] = struct{}{}
	m.ensure(target)
}

func (m *DependencyMap) ensure(id types.VersionedURL) map[types.VersionedURL]struct{} {
	set, ok := m.deps[id]
	if !ok {
		set = make(map[types.VersionedURL]struct{})
		m.deps[id] = set
	}
	return set
}

// DirectDependencies returns the sorted immediate dependencies of id.
func (m *DependencyMap) DirectDependencies(id types.VersionedURL) []types.VersionedURL {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.deps[id])
}

// GetDependenciesForType returns the transitive closure of id's dependencies, sorted.
// id itself is only included when it is reachable through a cycle.
func (m *DependencyMap) GetDependenciesForType(id types.VersionedURL) []types.VersionedURL {
	m.mu.RLock()
	defer m.mu.RUnlock()

	visited := make(map[types.VersionedURL]struct{})
	stack := sortedKeys(m.deps[id])
	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[next]; seen {
			continue
		}
		visited[next] = struct{}{}
		for dep := range m.deps[next] {
			if _, seen := visited[dep]; !seen {
				stack = append(stack, dep)
			}
		}
	}
	return sortedKeys(visited)
}

// Types returns every known type, sorted.
func (m *DependencyMap) Types() []types.VersionedURL {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.VersionedURL, 0, len(m.deps))
	for id := range m.deps {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of known types.
func (m *DependencyMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.deps)
}

func sortedKeys(set map[types.VersionedURL]struct{}) []types.VersionedURL {
	if len(set) == 0 {
		return nil
	}
	out := make([]types.VersionedURL, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
