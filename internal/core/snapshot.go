// Snapshot is the immutable point-in-time view of an Actor handed to
// observers and returned by GetSnapshot (spec §4.1 "Snapshot"). Grounded on
// the teacher's internal/core/machine.go MachineSnapshot, extended with
// Matches/Can as thin wrappers over the same StateValue/Resolver machinery
// the actor itself uses, so a snapshot can answer "would this event do
// anything" without mutating or even holding a reference to the live actor.
package core

import "github.com/nullstyle/ustate/internal/primitives"

// Snapshot is a read-only view of an actor's configuration and context at
// one instant. Value and Context are never mutated after the snapshot is
// built; StateValue's own immutable-by-convention contract makes sharing it
// with observers safe.
type Snapshot struct {
	Value   StateValue
	Context any

	resolver *Resolver
	impls    primitives.Implementations
}

// Matches reports whether query is a prefix of some active path in this
// snapshot's configuration (spec §4.1).
func (s Snapshot) Matches(query string) bool {
	return s.Value.Matches(query)
}

// Can reports whether sending event against this snapshot's configuration
// would select at least one transition, evaluating guards but running no
// actions (spec §9 Open Questions: "Can dry-runs guard evaluation only").
func (s Snapshot) Can(event primitives.Event) bool {
	if s.resolver == nil {
		return false
	}
	dryCtx := &primitives.Context{Data: s.Context}
	selected := s.resolver.SelectEvent(s.Value, dryCtx, event, s.impls)
	return len(selected) > 0
}
