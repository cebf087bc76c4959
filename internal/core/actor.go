// C5: the actor runtime. Runs the macro-step algorithm (spec §4.5) over a
// MachineDefinition: select transition(s), compute exit/entry sets, run
// actions, publish the new configuration/context atomically, reconcile
// timers and invocations, execute effects, and close the eventless (always)
// loop to quiescence before notifying observers. Grounded on the teacher's
// internal/core/machine.go: the functional Option pattern, the
// mutex-guarded mutable fields and the Start/Send/Stop/Current shape all
// carry over, but the teacher's asynchronous goroutine-and-channel
// interpret() loop is replaced with a synchronous-to-completion Send,
// matching the contract spec §5 calls for ("send runs synchronously to
// completion before returning"); re-entrant Send calls made from within an
// action are queued and drained by whichever goroutine is already running
// the loop, rather than processed by a background goroutine of their own.
package core

import (
	"fmt"
	"sync"

	"github.com/nullstyle/ustate/internal/primitives"
)

// eventlessCap bounds the eventless (`always`) closure so a machine whose
// guards never settle cannot spin forever (spec §4.5 step 12: "a bounded
// iteration count, logging a warning if exceeded").
const eventlessCap = 100

// Observer receives an immutable snapshot when the actor starts and after
// every macro-step that actually fired (spec §4.5 step 13, §9 "Observer
// monotonicity").
type Observer interface {
	Notify(Snapshot)
}

// Subscription is returned by Actor.Subscribe; Unsubscribe detaches the
// observer. Safe to call more than once.
type Subscription struct {
	unsub func()
}

// Unsubscribe detaches the subscription's observer. A no-op if already
// unsubscribed.
func (s Subscription) Unsubscribe() {
	if s.unsub != nil {
		s.unsub()
	}
}

// Option configures an Actor at construction, mirroring the teacher's
// functional-options Machine constructor.
type Option func(*Actor)

// WithID overrides the actor's id (default: the MachineDefinition's id).
func WithID(id string) Option {
	return func(a *Actor) { a.id = id }
}

// WithClock injects a Clock for delayed-transition scheduling (spec §6,
// P-5).
func WithClock(clock Clock) Option {
	return func(a *Actor) { a.clock = clock }
}

// WithIDGenerator injects an IDGenerator for auto-assigned spawn/invocation
// ids.
func WithIDGenerator(gen IDGenerator) Option {
	return func(a *Actor) { a.idGen = gen }
}

// WithLogger injects a Logger for the warnings spec §7 calls for.
func WithLogger(logger Logger) Option {
	return func(a *Actor) { a.logger = logger }
}

// WithParentSink wires a sendParent effect to an external sink, used when
// this Actor is itself running as invoked machine logic (spec §4.8).
func WithParentSink(sink func(primitives.Event)) Option {
	return func(a *Actor) { a.parentSink = sink }
}

// Actor is a single running instance of a MachineDefinition.
type Actor struct {
	id     string
	def    *primitives.MachineDefinition
	clock  Clock
	idGen  IDGenerator
	logger Logger

	resolver *Resolver
	targets  *TargetResolver
	history  *HistoryStore

	mu      sync.Mutex
	value   StateValue
	ctxVal  *primitives.Context
	running bool

	timers      *TimerManager
	invocations *InvocationManager
	spawned     map[string]primitives.ActorRef

	observers map[int]Observer
	nextObsID int

	parentSink func(primitives.Event)

	processing bool
	queue      []primitives.Event

	opts []Option
}

// NewActor builds an Actor for def. The actor is not running until Start is
// called.
func NewActor(def *primitives.MachineDefinition, opts ...Option) *Actor {
	a := &Actor{
		id:      def.ID,
		def:     def,
		clock:   NewRealClock(),
		idGen:   NewUUIDGenerator(),
		logger:  NewStdLogger(),
		spawned: make(map[string]primitives.ActorRef),
		opts:    opts,
	}
	for _, o := range opts {
		o(a)
	}
	a.history = NewHistoryStore()
	a.resolver = NewResolver(def, a.history)
	a.targets = NewTargetResolver(def, a.history)
	a.timers = NewTimerManager(a.clock, a.enqueueDelay)
	a.invocations = NewInvocationManager(a.enqueueEvent, a.logger, a.opts)
	return a
}

func (a *Actor) lock()   { a.mu.Lock() }
func (a *Actor) unlock() { a.mu.Unlock() }

// ID returns the actor's id.
func (a *Actor) ID() string { return a.id }

// enqueueEvent is the sink handed to invocation adapters: it delivers an
// event the same way an external Send call would.
func (a *Actor) enqueueEvent(e primitives.Event) {
	if err := a.Send(e); err != nil {
		logWarn(a.logger, "actor %q: processing %q from a child actor: %v", a.id, e.Type, err)
	}
}

// enqueueDelay is the sink handed to the TimerManager.
func (a *Actor) enqueueDelay(e primitives.Event) {
	if err := a.Send(e); err != nil {
		logWarn(a.logger, "actor %q: processing delayed event %q: %v", a.id, e.Type, err)
	}
}

// Start computes the initial configuration (spec §4.4), runs entry actions
// shallowest-first, starts initial timers/invocations, closes the eventless
// loop, and notifies observers once.
func (a *Actor) Start() (err error) {
	a.lock()
	if a.running {
		a.unlock()
		logWarn(a.logger, "actor %q: already started", a.id)
		return nil
	}
	a.running = true
	ctxData := instantiateContext(a.def.Context)
	a.ctxVal = CloneContext(&primitives.Context{Data: ctxData})
	a.unlock()

	raw, err := a.targets.Expand(a.def.Initial)
	if err != nil {
		a.lock()
		a.running = false
		a.unlock()
		return fmt.Errorf("ustate: actor %q: resolving initial configuration: %w", a.id, err)
	}
	// Expand(path) returns path's own configuration without wrapping path's
	// own name (that wrap is a parent's job, same as every other level of
	// the tree). The machine root has no parent to do it, so Start does it
	// once here, keeping a.value's paths absolute from the machine root the
	// way FindState expects.
	rooted := wrapOwn(a.def.Initial, raw)
	initial, err := a.targets.Autocomplete(rooted)
	if err != nil {
		a.lock()
		a.running = false
		a.unlock()
		return fmt.Errorf("ustate: actor %q: autocompleting initial configuration: %w", a.id, err)
	}

	a.lock()
	a.value = initial
	working := a.ctxVal
	a.unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ustate: actor %q: entry action panicked during start: %v", a.id, r)
			a.lock()
			a.running = false
			a.unlock()
		}
	}()

	entryPaths := sortByDepthAscCopy(initial.NodeSet())
	effects := a.runActionsAt(entryPaths, working, primitives.NewEvent("", nil), func(n *primitives.StateNode) []primitives.ActionRef { return n.Entry })
	a.reconcile(nil, entryPaths, working)
	a.executeEffects(effects)

	if err := a.runEventlessClosure(); err != nil {
		return err
	}
	a.notifyObservers()
	return nil
}

// Stop cancels every timer, stops every invocation and spawned actor, runs
// exit actions for every active node deepest-first with a synthesised
// $stop event, and clears observers (spec §4.5 "Stop"). An exit-action
// panic is recovered and re-raised as an error, matching Send/Start (spec
// §7's "strict re-raise" decision), but cleanup still runs regardless.
func (a *Actor) Stop() (err error) {
	a.lock()
	if !a.running {
		a.unlock()
		return nil
	}
	current := a.value
	working := a.ctxVal
	a.running = false
	a.unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ustate: actor %q: exit action panicked during stop: %v", a.id, r)
		}
		a.timers.CancelAll()
		a.invocations.StopAll()

		a.lock()
		for _, ref := range a.spawned {
			ref.Stop()
		}
		a.spawned = make(map[string]primitives.ActorRef)
		a.observers = nil
		a.unlock()
	}()

	exitPaths := sortByDepthDescCopy(current.NodeSet())
	a.runActionsAt(exitPaths, working, primitives.NewEvent("$stop", nil), func(n *primitives.StateNode) []primitives.ActionRef { return n.Exit })
	return nil
}

// Send delivers event to the actor, running the full macro-step (and any
// eventless closure it triggers) to completion before returning. A call
// made while another Send is already draining (whether from the same
// goroutine, e.g. an action sending to itself, or a different one, e.g. a
// background invocation adapter) is queued and drained by whichever
// goroutine currently owns the loop.
func (a *Actor) Send(event primitives.Event) error {
	a.lock()
	if !a.running {
		a.unlock()
		logWarn(a.logger, "actor %q: dropping %q sent to a stopped actor", a.id, event.Type)
		return nil
	}
	if a.processing {
		a.queue = append(a.queue, event)
		a.unlock()
		return nil
	}
	a.processing = true
	a.unlock()

	err := a.drain(event)

	a.lock()
	for err == nil && len(a.queue) > 0 {
		next := a.queue[0]
		a.queue = a.queue[1:]
		a.unlock()
		err = a.drain(next)
		a.lock()
	}
	a.processing = false
	a.unlock()
	return err
}

func (a *Actor) drain(first primitives.Event) error {
	pending := []primitives.Event{first}
	for len(pending) > 0 {
		ev := pending[0]
		pending = pending[1:]
		if err := a.macroStep(ev); err != nil {
			a.lock()
			a.queue = nil
			a.unlock()
			return err
		}
		a.lock()
		pending = append(pending, a.queue...)
		a.queue = nil
		a.unlock()
	}
	return nil
}

// macroStep implements spec §4.5 steps 1-13 for one external (or
// self-queued) event, followed by the eventless closure.
func (a *Actor) macroStep(event primitives.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ustate: actor %q: action or guard panicked: %v", a.id, r)
		}
	}()

	fired, err := a.runOneStep(event, false)
	if err != nil {
		return err
	}
	if !fired {
		return nil
	}

	if err := a.runEventlessClosure(); err != nil {
		return err
	}
	a.notifyObservers()
	return nil
}

func (a *Actor) runEventlessClosure() error {
	for i := 0; i < eventlessCap; i++ {
		again, err := a.runOneStep(primitives.NewEvent("$$always", nil), true)
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
	}
	logWarn(a.logger, "actor %q: eventless closure exceeded %d iterations, stopping", a.id, eventlessCap)
	return nil
}

// runOneStep performs steps 1-11 for a single selection round: it clones
// the context, asks the resolver for the transition(s) the event selects,
// and if any were selected, resolves each in turn (running its exit,
// transition and entry actions, in region declaration order), publishes the
// new configuration/context atomically, reconciles timers/invocations, and
// executes the collected effects. Returns fired=false when nothing was
// selected (the event is dropped, spec §4.5 step 3). A synthetic
// "$delay.<path>.<key>" event (TimerManager's own enqueue) is routed to
// SelectDelay instead of SelectEvent, since `after` transitions live in
// node.After, not node.On (spec §4.6).
func (a *Actor) runOneStep(event primitives.Event, always bool) (bool, error) {
	a.lock()
	current := a.value
	ctxSnapshot := a.ctxVal
	a.unlock()

	working := CloneContext(ctxSnapshot)

	var selected []SelectedTransition
	switch {
	case always:
		selected = a.resolver.SelectAlways(current, working, a.def.Impls)
	default:
		if path, key, isDelay := parseDelayEvent(event); isDelay {
			if t, found := a.resolver.SelectDelay(current, path, key, working, a.def.Impls); found {
				selected = []SelectedTransition{t}
			}
		} else {
			selected = a.resolver.SelectEvent(current, working, event, a.def.Impls)
		}
	}
	if len(selected) == 0 {
		return false, nil
	}

	workingValue := current
	var effects []primitives.Effect
	var allExit, allEntry []string

	for _, t := range selected {
		rt, err := a.resolver.Resolve(workingValue, t)
		if err != nil {
			return false, fmt.Errorf("ustate: actor %q: resolving transition from %q: %w", a.id, t.SourcePath, err)
		}

		if !rt.Internal {
			a.snapshotHistory(workingValue, rt.ExitSet)
			for _, p := range rt.ExitSet {
				if node, ferr := a.def.FindState(p); ferr == nil {
					effects = append(effects, a.runActions(node.Exit, working, event)...)
				}
			}
			allExit = append(allExit, rt.ExitSet...)
		}

		effects = append(effects, a.runActions(rt.Descriptor.Actions, working, event)...)

		if !rt.Internal {
			for _, p := range rt.EntrySet {
				if node, ferr := a.def.FindState(p); ferr == nil {
					effects = append(effects, a.runActions(node.Entry, working, event)...)
				}
			}
			allEntry = append(allEntry, rt.EntrySet...)
			workingValue = rt.NextValue
		}
	}

	a.lock()
	a.value = workingValue
	a.ctxVal = working
	a.unlock()

	a.reconcile(allExit, allEntry, working)
	a.executeEffects(effects)

	return true, nil
}

// snapshotHistory records, for every exited node that is a compound or
// parallel state, its configuration as it stood immediately before this
// transition's exit actions ran (spec §3 "History store", §4.6).
func (a *Actor) snapshotHistory(current StateValue, exitSet []string) {
	for _, p := range exitSet {
		node, err := a.def.FindState(p)
		if err != nil || !node.IsCompoundLike() {
			continue
		}
		sub, err := NavigateTo(current, p)
		if err != nil {
			continue
		}
		a.history.Record(p, sub)
	}
}

// reconcile starts timers/invocations for every newly entered path and
// cancels/stops them for every exited path (spec §4.5 step 10). Passing the
// same path in both lists, as happens for a self-transition whose LCA is
// the path's own parent, correctly stops-then-restarts rather than leaving
// the prior instance running, since exitPaths are always reconciled first.
func (a *Actor) reconcile(exitPaths, entryPaths []string, ctx *primitives.Context) {
	for _, p := range exitPaths {
		a.timers.Cancel(p)
		a.invocations.Stop(p)
	}
	for _, p := range entryPaths {
		node, err := a.def.FindState(p)
		if err != nil {
			continue
		}
		entryEvent := primitives.NewEvent("", nil)
		a.timers.Start(p, node, ctx, entryEvent, a.def.Impls)
		a.invocations.Start(p, node, ctx, entryEvent)
	}
}

// runActions resolves and calls each action reference in order, collecting
// returned effects, against an ActionAPI bound to this actor.
func (a *Actor) runActions(refs []primitives.ActionRef, ctx *primitives.Context, event primitives.Event) []primitives.Effect {
	if len(refs) == 0 {
		return nil
	}
	api := &actionAPIImpl{actor: a}
	var out []primitives.Effect
	for _, ref := range refs {
		fn, warned := a.def.Impls.ResolveAction(ref)
		if warned {
			logWarn(a.logger, "actor %q: unresolved action reference treated as no-op", a.id)
		}
		out = append(out, fn(ctx, event, api)...)
	}
	return out
}

// runActionsAt runs, for every path in order, whichever action list pick
// selects off that path's StateNode. Used by Start (entry) and Stop (exit)
// where there is no per-transition descriptor, only a flat path list.
func (a *Actor) runActionsAt(paths []string, ctx *primitives.Context, event primitives.Event, pick func(*primitives.StateNode) []primitives.ActionRef) []primitives.Effect {
	var out []primitives.Effect
	for _, p := range paths {
		node, err := a.def.FindState(p)
		if err != nil {
			continue
		}
		out = append(out, a.runActions(pick(node), ctx, event)...)
	}
	return out
}

// executeEffects carries out every sendTo/sendParent effect an action
// returned, after the new state/context have already been published (spec
// §4.5 step 11).
func (a *Actor) executeEffects(effects []primitives.Effect) {
	for _, e := range effects {
		if actorID, event, ok := primitives.AsSendTo(e); ok {
			ref, found := a.lookupChild(actorID)
			if !found {
				logWarn(a.logger, "actor %q: sendTo unknown actor %q dropped", a.id, actorID)
				continue
			}
			ref.Send(event)
			continue
		}
		if event, ok := primitives.AsSendParent(e); ok {
			if a.parentSink == nil {
				logWarn(a.logger, "actor %q: sendParent with no parent sink dropped", a.id)
				continue
			}
			a.parentSink(event)
		}
	}
}

func (a *Actor) lookupChild(id string) (primitives.ActorRef, bool) {
	a.lock()
	ref, ok := a.spawned[id]
	a.unlock()
	if ok {
		return ref, true
	}
	return a.invocations.Get(id)
}

// Subscribe registers obs to receive a Snapshot when the actor starts and
// after every macro-step that fires a transition.
func (a *Actor) Subscribe(obs Observer) Subscription {
	a.lock()
	if a.observers == nil {
		a.observers = make(map[int]Observer)
	}
	id := a.nextObsID
	a.nextObsID++
	a.observers[id] = obs
	a.unlock()

	return Subscription{unsub: func() {
		a.lock()
		delete(a.observers, id)
		a.unlock()
	}}
}

func (a *Actor) notifyObservers() {
	a.lock()
	snap := a.snapshotLocked()
	obsList := make([]Observer, 0, len(a.observers))
	for _, o := range a.observers {
		obsList = append(obsList, o)
	}
	a.unlock()

	for _, o := range obsList {
		a.notifyOne(o, snap)
	}
}

// notifyOne isolates one observer's panic from every other observer and
// from the actor's own loop (spec §9 "Observer error policy": "log and
// continue").
func (a *Actor) notifyOne(o Observer, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			logWarn(a.logger, "actor %q: observer panicked: %v", a.id, r)
		}
	}()
	o.Notify(snap)
}

// GetSnapshot returns the actor's current immutable snapshot.
func (a *Actor) GetSnapshot() Snapshot {
	a.lock()
	defer a.unlock()
	return a.snapshotLocked()
}

func (a *Actor) snapshotLocked() Snapshot {
	return Snapshot{
		Value:    a.value,
		Context:  a.ctxVal.Data,
		resolver: a.resolver,
		impls:    a.def.Impls,
	}
}

// instantiateContext evaluates a MachineDefinition's Context field: a
// zero-argument constructor is called once per actor birth, any other value
// is used as-is, and nil becomes an empty struct (spec §3 "Context").
func instantiateContext(raw any) any {
	switch v := raw.(type) {
	case nil:
		return struct{}{}
	case func() any:
		return v()
	default:
		return v
	}
}

func sortByDepthAscCopy(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sortByDepthAsc(out)
	return out
}

func sortByDepthDescCopy(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sortByDepthDesc(out)
	return out
}

// actionAPIImpl is the ActionAPI handed to every action/guard invocation.
type actionAPIImpl struct {
	actor *Actor
}

func (api *actionAPIImpl) Self() primitives.ActorRef {
	return &actorRefImpl{
		id:     api.actor.id,
		sendFn: func(e primitives.Event) { api.actor.Send(e) },
		stopFn: func() { api.actor.Stop() },
	}
}

func (api *actionAPIImpl) Spawn(logic primitives.Logic, opts ...primitives.SpawnOption) (primitives.ActorRef, error) {
	cfg := primitives.SpawnConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	a := api.actor
	a.lock()
	id := cfg.ID
	if id == "" {
		id = a.idGen.NewID()
	}
	if _, exists := a.spawned[id]; exists {
		a.unlock()
		return nil, fmt.Errorf("ustate: actor %q: duplicate spawn id %q", a.id, id)
	}
	a.unlock()

	var ref primitives.ActorRef
	var err error
	switch logic.Kind {
	case primitives.LogicPromise:
		ref = startPromise(id, logic, cfg.Input, a.enqueueEvent, a.logger, true)
	case primitives.LogicCallback:
		ref = startCallback(id, logic, cfg.Input, a.enqueueEvent)
	case primitives.LogicMachine:
		ref, err = startMachine(id, logic.Definition, cfg.Input, a.enqueueEvent, a.opts...)
	default:
		err = fmt.Errorf("ustate: actor %q: spawn with unrecognised logic kind", a.id)
	}
	if err != nil {
		return nil, err
	}

	a.lock()
	a.spawned[id] = ref
	a.unlock()
	return ref, nil
}
