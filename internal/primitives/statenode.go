// Package primitives defines the foundational data structures for the statechart engine.
// All implementations use only the Go standard library. No external dependencies.
//
// StateNode represents a state in the statechart, supporting atomic, compound, parallel,
// and history state kinds with transitions, actions, delays and invocations.
package primitives

import (
	"errors"
	"fmt"
	"strings"
)

// StateKind defines the possible kinds of states in the statechart.
type StateKind string

const (
	Atomic   StateKind = "atomic"
	Compound StateKind = "compound"
	Parallel StateKind = "parallel"
	History  StateKind = "history"
)

// HistoryKind distinguishes shallow from deep history nodes. Only meaningful
// when StateNode.Kind == History.
type HistoryKind string

const (
	ShallowHistory HistoryKind = "shallow"
	DeepHistory    HistoryKind = "deep"
)

// StateNode defines a state configuration, supporting hierarchical nesting.
// StateNode values are treated as immutable once a MachineDefinition has been
// built: the builder is the only code allowed to mutate them.
type StateNode struct {
	ID      string    `json:"id" yaml:"id"`
	Kind    StateKind `json:"type" yaml:"type"`
	Initial string    `json:"initial,omitempty" yaml:"initial,omitempty"` // compound/parallel only

	History HistoryKind `json:"history,omitempty" yaml:"history,omitempty"` // history only
	Target  string      `json:"target,omitempty" yaml:"target,omitempty"`  // history only, default target

	On      map[string][]TransitionDescriptor `json:"on,omitempty" yaml:"on,omitempty"`
	Always  []TransitionDescriptor             `json:"always,omitempty" yaml:"always,omitempty"`
	After   map[string][]TransitionDescriptor  `json:"after,omitempty" yaml:"after,omitempty"`
	Entry   []ActionRef                        `json:"entry,omitempty" yaml:"entry,omitempty"`
	Exit    []ActionRef                        `json:"exit,omitempty" yaml:"exit,omitempty"`
	Invoke  []InvocationDescriptor             `json:"invoke,omitempty" yaml:"invoke,omitempty"`
	Children map[string]*StateNode             `json:"states,omitempty" yaml:"states,omitempty"`
}

// NewStateNode creates a new StateNode with ID and Kind.
func NewStateNode(id string, kind StateKind) *StateNode {
	return &StateNode{ID: id, Kind: kind}
}

// AddChild adds a child state (compound/parallel only).
func (s *StateNode) AddChild(child *StateNode) *StateNode {
	if s.Children == nil {
		s.Children = make(map[string]*StateNode)
	}
	s.Children[child.ID] = child
	return s
}

// AddTransition adds a transition descriptor for an event.
func (s *StateNode) AddTransition(event string, trans TransitionDescriptor) *StateNode {
	if s.On == nil {
		s.On = make(map[string][]TransitionDescriptor)
	}
	s.On[event] = append(s.On[event], trans)
	return s
}

// AddAlways adds an eventless transition descriptor.
func (s *StateNode) AddAlways(trans TransitionDescriptor) *StateNode {
	s.Always = append(s.Always, trans)
	return s
}

// AddAfter adds a delayed transition descriptor under a delay key (numeric
// milliseconds as a string, or a named delay resolved via the implementations
// table).
func (s *StateNode) AddAfter(delayKey string, trans TransitionDescriptor) *StateNode {
	if s.After == nil {
		s.After = make(map[string][]TransitionDescriptor)
	}
	s.After[delayKey] = append(s.After[delayKey], trans)
	return s
}

// AddInvoke adds an invocation descriptor.
func (s *StateNode) AddInvoke(inv InvocationDescriptor) *StateNode {
	s.Invoke = append(s.Invoke, inv)
	return s
}

// IsCompoundLike reports whether the node has an initial-child concept.
func (s *StateNode) IsCompoundLike() bool {
	return s.Kind == Compound || s.Kind == Parallel
}

// Validate performs recursive validation of the StateNode subtree rooted at s.
// path is the dotted path of s from the machine root, used to build error
// messages naming the offending path per spec §7.
func (s *StateNode) Validate(path string) error {
	if s.ID == "" {
		return fmt.Errorf("invalid-config: state at %q has empty id", path)
	}

	switch s.Kind {
	case Atomic:
		if len(s.Children) > 0 {
			return fmt.Errorf("invalid-config: atomic state %q cannot have children", path)
		}
	case Compound:
		if len(s.Children) == 0 {
			return fmt.Errorf("invalid-config: compound state %q requires children", path)
		}
		if s.Initial == "" {
			return fmt.Errorf("invalid-config: compound state %q requires an initial child", path)
		}
		if _, ok := s.Children[s.Initial]; !ok {
			return fmt.Errorf("invalid-config: initial child %q not found in children of %q", s.Initial, path)
		}
	case Parallel:
		if len(s.Children) == 0 {
			return fmt.Errorf("invalid-config: parallel state %q requires children (regions)", path)
		}
		if s.Initial != "" {
			return fmt.Errorf("invalid-config: parallel state %q must not declare initial", path)
		}
	case History:
		if len(s.Children) > 0 {
			return fmt.Errorf("invalid-config: history state %q cannot have children", path)
		}
		if s.History != ShallowHistory && s.History != DeepHistory {
			return fmt.Errorf("invalid-config: history state %q needs history=shallow|deep", path)
		}
	default:
		return fmt.Errorf("invalid-config: state %q has unknown type %q", path, s.Kind)
	}

	if s.On != nil {
		for event := range s.On {
			if strings.TrimSpace(event) == "" {
				return fmt.Errorf("invalid-config: empty event name in 'on' of %q", path)
			}
		}
	}

	for id, child := range s.Children {
		if id != child.ID {
			return fmt.Errorf("invalid-config: children key %q does not match child id %q at %q", id, child.ID, path)
		}
		childPath := path + "." + id
		if err := child.Validate(childPath); err != nil {
			return err
		}
	}

	return nil
}

// Flatten returns a flat map from dotted path to StateNode for the subtree
// rooted at s, where path is s's own dotted path from the machine root.
func (s *StateNode) Flatten(path string, out map[string]*StateNode) {
	out[path] = s
	for id, child := range s.Children {
		child.Flatten(path+"."+id, out)
	}
}

var errEmptyPath = errors.New("path cannot be empty")
