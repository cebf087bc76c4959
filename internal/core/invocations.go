// C7: invocation lifecycle bound to state entry/exit (spec §4.8).
// Grounded on the teacher's internal/core/historymanager.go pairing
// (RecordExit mirrored by a restore path) generalised to a start/stop pair
// over primitives.InvocationDescriptor, with the three adapters in
// adapters.go supplying the actual running child. Zombie prevention is not
// explicit cancellation tracking: once Stop removes an invocation's entry,
// its done.invoke.<id>/error.invoke.<id> events are just unrecognised event
// types against whatever state is active by the time they might arrive (the
// declaring state is no longer active to claim them), so a stray late
// arrival from the invocation its adapter fails to fully silence is
// harmless rather than routed anywhere.
package core

import (
	"errors"

	"github.com/nullstyle/ustate/internal/primitives"
)

// InvocationManager owns every running invocation for one Actor, keyed by
// invocation id.
type InvocationManager struct {
	enqueue func(primitives.Event)
	logger  Logger
	opts    []Option
	running map[string]primitives.ActorRef
	byPath  map[string][]string // path -> invocation ids started while it was active
}

// NewInvocationManager returns an InvocationManager that starts children
// through enqueue (the owning Actor's event queue) and opts (propagated to
// nested-machine invocations so they share the parent's Clock/IDGenerator).
func NewInvocationManager(enqueue func(primitives.Event), logger Logger, opts []Option) *InvocationManager {
	return &InvocationManager{
		enqueue: enqueue,
		logger:  logger,
		opts:    opts,
		running: make(map[string]primitives.ActorRef),
		byPath:  make(map[string][]string),
	}
}

// Start launches every invocation declared on node, bound to path's
// lifetime.
func (m *InvocationManager) Start(path string, node *primitives.StateNode, ctx *primitives.Context, event primitives.Event) {
	for _, inv := range node.Invoke {
		input := resolveInput(inv.Input, ctx, event)
		ref, err := m.startOne(inv, input)
		if err != nil {
			logWarn(m.logger, "invocation %q at %q failed to start: %v", inv.ID, path, err)
			continue
		}
		m.running[inv.ID] = ref
		m.byPath[path] = append(m.byPath[path], inv.ID)
	}
}

func (m *InvocationManager) startOne(inv primitives.InvocationDescriptor, input any) (primitives.ActorRef, error) {
	switch inv.Src.Kind {
	case primitives.LogicPromise:
		return startPromise(inv.ID, inv.Src, input, m.enqueue, m.logger, len(inv.OnError) > 0), nil
	case primitives.LogicCallback:
		return startCallback(inv.ID, inv.Src, input, m.enqueue), nil
	case primitives.LogicMachine:
		return startMachine(inv.ID, inv.Src.Definition, input, m.enqueue, m.opts...)
	default:
		return nil, errUnknownLogicKind
	}
}

// Stop stops every invocation that was started while path was active.
func (m *InvocationManager) Stop(path string) {
	for _, id := range m.byPath[path] {
		if ref, ok := m.running[id]; ok {
			ref.Stop()
			delete(m.running, id)
		}
	}
	delete(m.byPath, path)
}

// StopAll stops every running invocation.
func (m *InvocationManager) StopAll() {
	for id, ref := range m.running {
		ref.Stop()
		delete(m.running, id)
	}
	m.byPath = make(map[string][]string)
}

// Get looks up a running invocation by id, for sendTo effect delivery.
func (m *InvocationManager) Get(id string) (primitives.ActorRef, bool) {
	ref, ok := m.running[id]
	return ref, ok
}

// resolveInput evaluates an InputRef against the declaring state's working
// context and triggering event: a callable is invoked once, at invocation
// start; any other value is used as-is (spec §4.8).
func resolveInput(ref primitives.InputRef, ctx *primitives.Context, event primitives.Event) any {
	switch v := ref.(type) {
	case nil:
		return nil
	case func(*primitives.Context, primitives.Event) any:
		return v(ctx, event)
	default:
		return v
	}
}

var errUnknownLogicKind = errors.New("ustate: invocation has an unrecognised logic kind")
