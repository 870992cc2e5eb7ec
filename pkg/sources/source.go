// Package sources defines the collaborator contracts that feed a
// reconciliation run: enumerating objects, reading their labels, and writing
// label deltas back.
//
// A Source is one reconciliation variant. Roots enumerates the objects that
// drive a run (policies, stacks), Expand turns a root into units of work
// (Bindings), and Labels/Apply read and write tags. Listing order is
// significant: the order of Binding.Sources decides which source wins when
// several of them carry the same key.
//
// Example usage:
//
//	src := iampolicy.New(client, iampolicy.ByScope(client))
//	roots, err := src.Roots(ctx)
//	for _, root := range roots {
//	    bindings, err := src.Expand(ctx, root)
//	    ...
//	}
package sources

import (
	"context"
	"fmt"
	"slices"

	"github.com/agentstation/tagsync/pkg/labels"
)

// ID represents the identifier of a reconciliation variant.
type ID string

// String returns the string representation of a source ID.
func (id ID) String() string {
	return string(id)
}

// Known source IDs.
const (
	// PoliciesID copies IAM role tags onto the customer-managed policies attached to them.
	PoliciesID ID = "policies"
	// StacksID copies CloudFormation stack tags onto the resources of each stack.
	StacksID ID = "stacks"
)

// IDs returns all known source IDs.
func IDs() []ID {
	return []ID{PoliciesID, StacksID}
}

// IsValid returns true if the ID is one of the defined constants.
func (id ID) IsValid() bool {
	return slices.Contains(IDs(), id)
}

// Kind names the type of a cloud object.
type Kind string

// Object kinds.
const (
	KindRole     Kind = "role"
	KindPolicy   Kind = "policy"
	KindStack    Kind = "stack"
	KindResource Kind = "resource"
)

// Object is a reference to a labelled cloud object.
type Object struct {
	Kind Kind
	// ID uniquely identifies the object for API calls (ARN or name).
	ID string
	// Name is a human-readable name; may equal ID.
	Name string
	// Labels holds tags already returned by the listing call. Nil means the
	// labels have to be fetched.
	Labels labels.Set
}

// DisplayName returns Name, falling back to ID.
func (o Object) DisplayName() string {
	if o.Name != "" {
		return o.Name
	}
	return o.ID
}

// String returns e.g. "policy deploy (arn:aws:iam::123456789012:policy/deploy)".
func (o Object) String() string {
	if o.Name == "" || o.Name == o.ID {
		return fmt.Sprintf("%s %s", o.Kind, o.ID)
	}
	return fmt.Sprintf("%s %s (%s)", o.Kind, o.Name, o.ID)
}

// Binding is one unit of work: a target and the ordered sources whose labels
// it should carry.
type Binding struct {
	Target  Object
	Sources []Object
}

// Source represents one reconciliation variant backed by a cloud catalog.
type Source interface {
	// ID returns the variant identifier.
	ID() ID

	// Roots enumerates the objects that drive the run, in listing order.
	Roots(ctx context.Context) ([]Object, error)

	// Expand returns the units of work rooted at root. It may return none.
	Expand(ctx context.Context, root Object) ([]Binding, error)

	// Labels returns the current labels of obj.
	Labels(ctx context.Context, obj Object) (labels.Set, error)

	// Apply writes delta to target in a single batched call.
	Apply(ctx context.Context, target Object, delta labels.Set) error
}

// Selector chooses which root objects a Source works on.
type Selector interface {
	Select(ctx context.Context) ([]Object, error)
}

// SelectorFunc adapts a function to the Selector interface.
type SelectorFunc func(ctx context.Context) ([]Object, error)

// Select implements Selector.
func (f SelectorFunc) Select(ctx context.Context) ([]Object, error) {
	return f(ctx)
}

// Sources holds the variants available to an entry point, keyed by ID.
type Sources struct {
	sources map[ID]Source
}

// NewSources creates a new Sources instance holding srcs. A later source
// replaces an earlier one with the same ID.
func NewSources(srcs ...Source) *Sources {
	s := &Sources{sources: make(map[ID]Source, len(srcs))}
	for _, src := range srcs {
		s.sources[src.ID()] = src
	}
	return s
}

// Get returns a source by ID.
func (s *Sources) Get(id ID) (Source, bool) {
	src, found := s.sources[id]
	return src, found
}

// IDs returns the IDs of all held sources, sorted.
func (s *Sources) IDs() []ID {
	ids := make([]ID, 0, len(s.sources))
	for id := range s.sources {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
