// Package primitives: MachineDefinition is the immutable, shareable tree of
// state nodes at the root of a statechart, plus named implementations and
// root-level global transitions.
package primitives

import (
	"fmt"
	"strings"
)

// MachineDefinition defines the complete, immutable statechart configuration.
// Once returned from Build, a MachineDefinition's StateNode tree must never be
// mutated; Provide returns a new MachineDefinition sharing the tree but
// carrying a different Implementations overlay.
type MachineDefinition struct {
	ID      string                 `json:"id" yaml:"id"`
	Initial string                 `json:"initial" yaml:"initial"`
	States  map[string]*StateNode  `json:"states" yaml:"states"`
	On      map[string][]TransitionDescriptor `json:"on,omitempty" yaml:"on,omitempty"`

	// Context is either a concrete zero-argument-constructed value or a
	// func() any invoked once per actor birth. Nil means an empty struct{}.
	Context any `json:"context,omitempty" yaml:"context,omitempty"`

	Impls Implementations `json:"-" yaml:"-"`

	// normalized marks that ValidateAndNormalize has already synthesized
	// this definition's done.invoke.*/error.invoke.* transitions, so a
	// second call (e.g. a caller re-validating a definition that already
	// went through MachineBuilder.Build or production.LoadDefinition)
	// does not duplicate them.
	normalized bool
}

// FindState resolves a state by hierarchical dotted path (e.g.
// "parent.child.grandchild"), relative to the machine root.
func (m *MachineDefinition) FindState(path string) (*StateNode, error) {
	if path == "" {
		return nil, errEmptyPath
	}
	segments := strings.Split(path, ".")
	current, ok := m.States[segments[0]]
	if !ok {
		return nil, fmt.Errorf("state %q not found", segments[0])
	}
	for i := 1; i < len(segments); i++ {
		seg := segments[i]
		child, ok := current.Children[seg]
		if !ok {
			return nil, fmt.Errorf("child %q not found in %q", seg, strings.Join(segments[:i], "."))
		}
		current = child
	}
	return current, nil
}

// Flatten returns a flat map from dotted path to StateNode for the entire
// machine.
func (m *MachineDefinition) Flatten() map[string]*StateNode {
	out := make(map[string]*StateNode)
	for id, s := range m.States {
		s.Flatten(id, out)
	}
	return out
}

// Provide returns a new MachineDefinition sharing the same StateNode tree but
// with overrides merged on top of the current Implementations (C2 §4.2).
func (m *MachineDefinition) Provide(overrides Implementations) *MachineDefinition {
	next := *m
	next.Impls = m.Impls.Merge(overrides)
	return &next
}
