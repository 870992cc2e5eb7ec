// Package labels implements tag reconciliation between an authoritative
// source label set and a target's current label set.
//
// Reconciliation is strictly additive: a Delta only ever contains keys the
// target does not have yet, so applying it can never remove or overwrite an
// existing target label, even when the source carries a different value.
package labels

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Set maps label keys to values. Keys are unique; iteration order is undefined.
type Set map[string]string

// Delta returns every label of source whose key is absent from target, with
// the value taken from source. It never returns nil.
func Delta(source, target Set) Set {
	delta := make(Set)
	for key, value := range source {
		if _, ok := target[key]; !ok {
			delta[key] = value
		}
	}
	return delta
}

// Merge unions the given sets in order. When a key appears in more than one
// set the later set wins, so callers must pass sources in enumeration order.
func Merge(sets ...Set) Set {
	merged := make(Set)
	for _, s := range sets {
		maps.Copy(merged, s)
	}
	return merged
}

// ApplyFunc writes a label delta to a single target in one batched call.
type ApplyFunc func(ctx context.Context, delta Set) error

// Apply hands delta to fn exactly once. An empty delta is a no-op: fn is not
// called and Apply reports (false, nil). A failing fn is not retried; its
// error is returned to the caller for counting and logging.
func Apply(ctx context.Context, fn ApplyFunc, delta Set) (bool, error) {
	if len(delta) == 0 {
		return false, nil
	}
	if err := fn(ctx, delta); err != nil {
		return false, err
	}
	return true, nil
}

// Keys returns the keys of s in sorted order.
func (s Set) Keys() []string {
	return slices.Sorted(maps.Keys(s))
}

// Clone returns a copy of s. Cloning a nil set yields an empty, non-nil set.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	maps.Copy(c, s)
	return c
}

// Union returns a new set with the labels of s and other. Keys already in s
// keep their value, which is how a target looks after a Delta is applied.
func (s Set) Union(other Set) Set {
	u := s.Clone()
	for key, value := range other {
		if _, ok := u[key]; !ok {
			u[key] = value
		}
	}
	return u
}

// String renders s as sorted key=value pairs, e.g. "{env=prod, team=x}".
func (s Set) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, key := range s.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%s", key, s[key])
	}
	b.WriteByte('}')
	return b.String()
}
