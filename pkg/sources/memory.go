package sources

import (
	"context"
	"sync"

	"github.com/agentstation/tagsync/pkg/errors"
	"github.com/agentstation/tagsync/pkg/labels"
)

// Memory is an in-memory Source. It is used by tests and examples, and keeps
// every successful Apply so callers can inspect what would have been written.
type Memory struct {
	SourceID ID

	// RootObjects is returned by Roots in order.
	RootObjects []Object
	// Bindings maps a root ID to the bindings Expand returns for it.
	Bindings map[string][]Binding
	// Tags holds the labels of every object by ID.
	Tags map[string]labels.Set

	// RootsErr, ExpandErr, LabelErr and ApplyErr inject failures. The maps
	// are keyed by object ID.
	RootsErr  error
	ExpandErr map[string]error
	LabelErr  map[string]error
	ApplyErr  map[string]error

	mu      sync.Mutex
	applied []Applied
}

// Applied records one Apply call.
type Applied struct {
	Target string
	Delta  labels.Set
}

// ID implements Source.
func (m *Memory) ID() ID {
	if m.SourceID == "" {
		return "memory"
	}
	return m.SourceID
}

// Roots implements Source.
func (m *Memory) Roots(_ context.Context) ([]Object, error) {
	if m.RootsErr != nil {
		return nil, errors.WrapListing("roots", "", m.RootsErr)
	}
	return m.RootObjects, nil
}

// Expand implements Source.
func (m *Memory) Expand(_ context.Context, root Object) ([]Binding, error) {
	if err := m.ExpandErr[root.ID]; err != nil {
		return nil, errors.WrapListing("bindings", root.ID, err)
	}
	return m.Bindings[root.ID], nil
}

// Labels implements Source.
func (m *Memory) Labels(_ context.Context, obj Object) (labels.Set, error) {
	if err := m.LabelErr[obj.ID]; err != nil {
		return nil, errors.WrapLabelFetch(string(obj.Kind), obj.ID, err)
	}
	if obj.Labels != nil {
		return obj.Labels, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Tags[obj.ID].Clone(), nil
}

// Apply implements Source. A successful call adds delta to the stored tags
// of target without touching existing keys.
func (m *Memory) Apply(_ context.Context, target Object, delta labels.Set) error {
	if err := m.ApplyErr[target.ID]; err != nil {
		return errors.WrapApply(string(target.Kind), target.ID, delta.Keys(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Tags == nil {
		m.Tags = make(map[string]labels.Set)
	}
	m.Tags[target.ID] = m.Tags[target.ID].Union(delta)
	m.applied = append(m.applied, Applied{Target: target.ID, Delta: delta.Clone()})
	return nil
}

// Applied returns the successful Apply calls in call order.
func (m *Memory) Applied() []Applied {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Applied, len(m.applied))
	copy(out, m.applied)
	return out
}
