package primitives

import "context"

// LogicKind distinguishes the built-in child-actor logic adapters (C8).
type LogicKind string

const (
	LogicPromise  LogicKind = "promise"
	LogicCallback LogicKind = "callback"
	LogicMachine  LogicKind = "machine"
)

// Logic describes a child-actor implementation to invoke. Exactly one of the
// callable fields is populated, selected by Kind. Definition is populated
// when Kind == LogicMachine.
type Logic struct {
	Kind LogicKind

	// PromiseFn implements LogicPromise: it is run on its own goroutine and
	// its return value/error map to done.invoke.<id>/error.invoke.<id>.
	PromiseFn func(ctx context.Context, input any) (any, error)

	// CallbackFn implements LogicCallback: it receives a way to send events
	// back to the parent and a way to receive events sent into the
	// invocation, and optionally returns a cleanup function.
	CallbackFn func(sendBack func(Event), receive func(handler func(Event)), input any) func()

	// Definition, when set, makes this Logic wrap a nested machine (C8
	// "a machine can also be used as a logic").
	Definition *MachineDefinition
}

// InputRef resolves the `input` argument passed to an invocation: either a
// static value or a callable over the declaring state's context and the
// triggering event.
type InputRef any

// InvocationDescriptor describes a child actor bound to a state's lifetime.
type InvocationDescriptor struct {
	// ID identifies this invocation for done.invoke.<id>/error.invoke.<id>
	// event synthesis. If empty, the builder assigns "<state-path>:<index>"
	// during MachineDefinition validation (see validate.go).
	ID string

	Src Logic

	Input InputRef

	OnDone  []TransitionDescriptor
	OnError []TransitionDescriptor
}
