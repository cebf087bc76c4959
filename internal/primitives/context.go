package primitives

// Context wraps the actor's user-supplied extended state. Data holds
// whatever value the caller passed to the machine's `context` option (or a
// per-actor value produced by a zero-argument constructor). Actions and
// guards type-assert Data back to their own concrete type.
//
// A Context is deep-cloned by internal/core at actor birth and again before
// every macro-step (spec §3, "Context" invariant): actions observe and
// mutate the working copy freely, and the runtime publishes that copy as the
// new context atomically with the new state value.
type Context struct {
	Data any
}

// Cloner lets a user context type provide its own copy semantics instead of
// relying on internal/core's generic reflection-based deep clone. Useful when
// a context type owns resources (e.g. a channel or a mutex) that must not be
// walked by reflection.
type Cloner interface {
	CloneContext() any
}
