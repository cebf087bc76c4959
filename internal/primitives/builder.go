// MachineBuilder builds a hierarchical MachineDefinition fluently. Grounded
// on the teacher's internal/primitives/machinebuilder.go (Compound/Parallel/
// Atomic/History/WithInitial/Transition/Up/Build), extended with Always,
// After, Invoke and a root Context/On surface per spec §4.2 and §6.
// Implementations are supplied after Build, through the definition's
// Provide.
package primitives

// MachineBuilder accumulates top-level states and root options.
type MachineBuilder struct {
	id      string
	initial string
	ctx     any
	on      map[string][]TransitionDescriptor
	roots   map[string]*StateNode
	stack   []*StateNode
}

// NewMachineBuilder starts a new builder for a machine with the given id and
// root initial state name.
func NewMachineBuilder(id, initial string) *MachineBuilder {
	return &MachineBuilder{
		id:      id,
		initial: initial,
		roots:   make(map[string]*StateNode),
	}
}

// WithContext sets the machine's initial context: either a concrete value or
// a func() any invoked once per actor birth.
func (b *MachineBuilder) WithContext(ctx any) *MachineBuilder {
	b.ctx = ctx
	return b
}

// On adds a root-level (global) transition, consulted only when no active
// node handles the event (spec §4.3 "Unhandled events").
func (b *MachineBuilder) On(event, target string, opts ...TransitionDescriptor) *MachineBuilder {
	if b.on == nil {
		b.on = make(map[string][]TransitionDescriptor)
	}
	trans := TransitionDescriptor{Target: target}
	if len(opts) > 0 {
		trans = opts[0]
		if trans.Target == "" {
			trans.Target = target
		}
	}
	b.on[event] = append(b.on[event], trans)
	return b
}

func (b *MachineBuilder) addRoot(s *StateNode) *StateBuilder {
	b.roots[s.ID] = s
	return &StateBuilder{state: s, mb: b}
}

// Compound starts a top-level compound state.
func (b *MachineBuilder) Compound(id string) *StateBuilder {
	return b.addRoot(NewStateNode(id, Compound))
}

// Parallel starts a top-level parallel state.
func (b *MachineBuilder) Parallel(id string) *StateBuilder {
	return b.addRoot(NewStateNode(id, Parallel))
}

// Atomic starts a top-level atomic state.
func (b *MachineBuilder) Atomic(id string) *StateBuilder {
	return b.addRoot(NewStateNode(id, Atomic))
}

// Build finalizes, validates and normalises (§4.2) the machine definition.
func (b *MachineBuilder) Build() (*MachineDefinition, error) {
	def := &MachineDefinition{
		ID:      b.id,
		Initial: b.initial,
		States:  b.roots,
		On:      b.on,
		Context: b.ctx,
		Impls:   NewImplementations(),
	}
	if err := ValidateAndNormalize(def); err != nil {
		return nil, err
	}
	return def, nil
}

// StateBuilder provides fluent methods for configuring one state and nesting
// children under it.
type StateBuilder struct {
	state *StateNode
	mb    *MachineBuilder
}

// WithInitial sets the initial child name (compound only).
func (sb *StateBuilder) WithInitial(initial string) *StateBuilder {
	sb.state.Initial = initial
	return sb
}

// WithHistoryTarget sets the default target for a history state, used when no
// history has been recorded yet and the history node declares no default
// otherwise falls back to the parent's initial (spec §4.4).
func (sb *StateBuilder) WithHistoryTarget(target string) *StateBuilder {
	sb.state.Target = target
	return sb
}

// Transition adds a transition for an event.
func (sb *StateBuilder) Transition(event, target string, opts ...TransitionDescriptor) *StateBuilder {
	trans := TransitionDescriptor{Target: target}
	if len(opts) > 0 {
		trans = opts[0]
		if trans.Target == "" {
			trans.Target = target
		}
	}
	sb.state.AddTransition(event, trans)
	return sb
}

// InternalTransition adds a transition with no target: actions run without
// computing an exit/entry set (spec §4.3 "Internal transitions").
func (sb *StateBuilder) InternalTransition(event string, trans TransitionDescriptor) *StateBuilder {
	trans.Target = ""
	sb.state.AddTransition(event, trans)
	return sb
}

// Always adds an eventless transition.
func (sb *StateBuilder) Always(trans TransitionDescriptor) *StateBuilder {
	sb.state.AddAlways(trans)
	return sb
}

// After adds a delayed transition under a delay key. key may be a decimal
// string of milliseconds ("200") or a name resolved via Implementations.
func (sb *StateBuilder) After(key string, trans TransitionDescriptor) *StateBuilder {
	sb.state.AddAfter(key, trans)
	return sb
}

// Entry appends an entry action.
func (sb *StateBuilder) Entry(action ActionRef) *StateBuilder {
	sb.state.Entry = append(sb.state.Entry, action)
	return sb
}

// Exit appends an exit action.
func (sb *StateBuilder) Exit(action ActionRef) *StateBuilder {
	sb.state.Exit = append(sb.state.Exit, action)
	return sb
}

// Invoke appends an invocation descriptor.
func (sb *StateBuilder) Invoke(inv InvocationDescriptor) *StateBuilder {
	sb.state.AddInvoke(inv)
	return sb
}

func (sb *StateBuilder) addChild(child *StateNode) *StateBuilder {
	sb.state.AddChild(child)
	sb.mb.stack = append(sb.mb.stack, sb.state)
	return &StateBuilder{state: child, mb: sb.mb}
}

// Compound nests a compound child under the current state.
func (sb *StateBuilder) Compound(id string) *StateBuilder {
	return sb.addChild(NewStateNode(id, Compound))
}

// Parallel nests a parallel child (region container) under the current state.
func (sb *StateBuilder) Parallel(id string) *StateBuilder {
	return sb.addChild(NewStateNode(id, Parallel))
}

// Atomic nests an atomic child under the current state.
func (sb *StateBuilder) Atomic(id string) *StateBuilder {
	return sb.addChild(NewStateNode(id, Atomic))
}

// History nests a history pseudo-state child under the current state.
func (sb *StateBuilder) History(id string, kind HistoryKind) *StateBuilder {
	child := NewStateNode(id, History)
	child.History = kind
	return sb.addChild(child)
}

// Build finalizes, validates and normalises (§4.2) the machine definition,
// delegating to the root MachineBuilder.
func (sb *StateBuilder) Build() (*MachineDefinition, error) {
	return sb.mb.Build()
}

// Up returns the StateBuilder for the parent of the current state, so
// sibling states can be added by chaining. Calling Up at the top of the
// nesting stack is a no-op returning sb.
func (sb *StateBuilder) Up() *StateBuilder {
	if len(sb.mb.stack) == 0 {
		return sb
	}
	parent := sb.mb.stack[len(sb.mb.stack)-1]
	sb.mb.stack = sb.mb.stack[:len(sb.mb.stack)-1]
	return &StateBuilder{state: parent, mb: sb.mb}
}
