package primitives

// ActorRef is a handle to a running actor (spawned or invoked), sufficient
// for an action to talk to a child it just created (spec §4.5 "Spawning").
type ActorRef interface {
	ID() string
	Send(Event)
	Stop()
}

// SpawnConfig configures a dynamically spawned child actor.
type SpawnConfig struct {
	// ID, if empty, is generated by the actor's IDGenerator.
	ID string
	// Input is passed through to Logic implementations that accept it (the
	// callback/promise adapters receive it as their `input` argument).
	Input any
}

// SpawnOption mutates a SpawnConfig.
type SpawnOption func(*SpawnConfig)

// WithSpawnID assigns an explicit id to a spawned actor. Spawning a second
// actor under an id already in use is an error (spec §7 "Duplicate spawn
// id").
func WithSpawnID(id string) SpawnOption {
	return func(c *SpawnConfig) { c.ID = id }
}

// WithSpawnInput attaches an input value to a spawned actor's logic.
func WithSpawnInput(input any) SpawnOption {
	return func(c *SpawnConfig) { c.Input = input }
}

// ActionAPI is made available to actions and guards during a macro-step so
// they can spawn independent child actors (spec §4.5 "Spawning": lifetime
// bound to the parent actor, not to any state).
type ActionAPI interface {
	Spawn(logic Logic, opts ...SpawnOption) (ActorRef, error)
	Self() ActorRef
}

// ActionFunc is a direct-callable action implementation. It may mutate ctx.Data
// in place and return effect descriptors for internal/core to execute after
// the macro-step's state/context publish.
type ActionFunc func(ctx *Context, event Event, api ActionAPI) []Effect

// GuardFunc is a direct-callable guard implementation. Guards must be pure
// (spec §9 Open Questions): no mutation of ctx.Data, no side effects.
type GuardFunc func(ctx *Context, event Event) bool

// DelayFunc resolves a named delay to a millisecond duration, given the
// context and event active when the declaring state was entered (spec §4.6:
// "resolved once at scheduling time").
type DelayFunc func(ctx *Context, event Event) int64
