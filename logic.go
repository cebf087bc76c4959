package ustate

import (
	"context"

	"github.com/nullstyle/ustate/internal/primitives"
)

// Logic re-exports the invocation-logic descriptor (spec §4.8 "Invocations").
type Logic = primitives.Logic

// FromPromise wraps fn as promise invocation logic (spec §6 "fromPromise"):
// fn runs on its own goroutine; its return value maps to done.invoke.<id>,
// its error to error.invoke.<id>.
func FromPromise(fn func(ctx context.Context, input any) (any, error)) Logic {
	return Logic{Kind: primitives.LogicPromise, PromiseFn: fn}
}

// FromCallback wraps fn as callback invocation logic (spec §6
// "fromCallback"): fn receives a way to send events to the invoking actor
// and a way to register a handler for events sent into the invocation, and
// may return a cleanup function run on stop.
func FromCallback(fn func(sendBack func(Event), receive func(handler func(Event)), input any) func()) Logic {
	return Logic{Kind: primitives.LogicCallback, CallbackFn: fn}
}

// FromMachine wraps def as nested-machine invocation logic: the invoked
// child's sendParent effects deliver directly into the invoking actor's own
// event queue (spec §4.8 "a machine can also be used as invocation logic").
func FromMachine(def *MachineDefinition) Logic {
	return Logic{Kind: primitives.LogicMachine, Definition: def}
}
