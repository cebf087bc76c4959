// Package ustate is the public facade over internal/primitives and
// internal/core: everything a caller outside this module needs to author,
// build and run a statechart, since Go's internal/ visibility rule means
// nothing under internal/ is importable from outside this module (spec §6
// "External interfaces"). Grounded on the teacher's own preference for a
// thin outer layer over an internal engine, but unlike the teacher's
// (broken, prototype-only) root statechart.go, this one actually forwards
// to the internal engine rather than duplicating it.
package ustate

import (
	"errors"

	"github.com/nullstyle/ustate/internal/primitives"
)

// Re-exported vocabulary types for authoring a statechart configuration
// programmatically (via NewMachineBuilder) or by hand.
type (
	StateKind             = primitives.StateKind
	HistoryKind           = primitives.HistoryKind
	StateNode             = primitives.StateNode
	MachineDefinition     = primitives.MachineDefinition
	TransitionDescriptor  = primitives.TransitionDescriptor
	InvocationDescriptor  = primitives.InvocationDescriptor
	Implementations       = primitives.Implementations
	MachineBuilder        = primitives.MachineBuilder
	StateBuilder          = primitives.StateBuilder
)

// State kinds (spec §3 "State kinds").
const (
	Atomic   = primitives.Atomic
	Compound = primitives.Compound
	Parallel = primitives.Parallel
	History  = primitives.History
)

// History flavors.
const (
	ShallowHistory = primitives.ShallowHistory
	DeepHistory    = primitives.DeepHistory
)

// NewMachineBuilder starts a fluent machine configuration (spec §6
// "Configuration schema").
var NewMachineBuilder = primitives.NewMachineBuilder

// NewImplementations builds an empty named action/guard/delay table.
var NewImplementations = primitives.NewImplementations

// Machine is an immutable, buildable statechart definition ready to spawn
// actors from (spec §6 "Machine builder").
type Machine struct {
	def *primitives.MachineDefinition
}

// Build wraps an already-validated MachineDefinition — produced by
// NewMachineBuilder(...).Build() or production.LoadDefinition — as a
// Machine, merging any Implementations overlays supplied on top of
// whatever the definition already carries.
func Build(def *primitives.MachineDefinition, impls ...primitives.Implementations) (*Machine, error) {
	if def == nil {
		return nil, errors.New("ustate: nil machine definition")
	}
	m := &Machine{def: def}
	for _, overrides := range impls {
		m = m.Provide(overrides)
	}
	return m, nil
}

// Provide returns a new Machine with overrides merged on top of the current
// named actions/guards/delays (spec §6 "Machine.provide").
func (m *Machine) Provide(overrides primitives.Implementations) *Machine {
	return &Machine{def: m.def.Provide(overrides)}
}

// Definition exposes the underlying MachineDefinition, e.g. for
// production.SaveDefinition.
func (m *Machine) Definition() *primitives.MachineDefinition {
	return m.def
}
