// C8: child-actor logic adapters. Two built-in kinds — promise and
// callback — plus a machine adapter that lets a nested MachineDefinition
// serve as invocation logic (spec §4.8). Grounded on the spec's own §9
// design note ("model macro-steps as synchronous functions and adapters as
// tasks or channels that post events back to the actor's mailbox"), using
// goroutines posting onto the actor's queue the same way the teacher's
// internal/extensibility/eventsource.go's TimerEventSource.run posts onto
// its channel.
package core

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/nullstyle/ustate/internal/primitives"
)

// actorRefImpl is the uniform primitives.ActorRef handed back for spawned
// and invoked children, whatever adapter kind backs them.
type actorRefImpl struct {
	id       string
	sendFn   func(primitives.Event)
	stopFn   func()
	snapshot func() (StateValue, any)
}

func (r *actorRefImpl) ID() string          { return r.id }
func (r *actorRefImpl) Send(e primitives.Event) { r.sendFn(e) }
func (r *actorRefImpl) Stop()               { r.stopFn() }

// startPromise runs logic.PromiseFn on its own goroutine. On success it
// enqueues done.invoke.<id> with the output under event.Data; on failure,
// error.invoke.<id> with the error. After Stop, no emission occurs (spec
// §4.8: "After stop, no emission").
func startPromise(id string, logic primitives.Logic, input any, enqueue func(primitives.Event), logger Logger, hasErrorHandler bool) primitives.ActorRef {
	var stopped int32
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		output, err := logic.PromiseFn(ctx, input)
		if atomic.LoadInt32(&stopped) != 0 {
			return
		}
		if err != nil {
			if !hasErrorHandler {
				logWarn(logger, "invocation %q: promise rejected with no error.invoke handler registered: %v", id, err)
			}
			enqueue(primitives.NewEvent("error.invoke."+id, err))
			return
		}
		enqueue(primitives.NewEvent("done.invoke."+id, output))
	}()

	return &actorRefImpl{
		id:     id,
		sendFn: func(primitives.Event) {}, // promises accept no inbound events
		stopFn: func() {
			atomic.StoreInt32(&stopped, 1)
			cancel()
		},
	}
}

// startCallback runs logic.CallbackFn, wiring sendBack to enqueue and
// receive to a listener slot the parent can post into via Send. On Stop the
// adapter's cleanup callable (if any) runs and further sendBack calls are
// inhibited (spec §4.8).
func startCallback(id string, logic primitives.Logic, input any, enqueue func(primitives.Event)) primitives.ActorRef {
	var stopped int32
	var listener func(primitives.Event)

	sendBack := func(e primitives.Event) {
		if atomic.LoadInt32(&stopped) != 0 {
			return
		}
		enqueue(e)
	}
	receive := func(handler func(primitives.Event)) {
		listener = handler
	}

	cleanup := logic.CallbackFn(sendBack, receive, input)

	return &actorRefImpl{
		id: id,
		sendFn: func(e primitives.Event) {
			if atomic.LoadInt32(&stopped) != 0 {
				return
			}
			if listener != nil {
				listener(e)
			}
		},
		stopFn: func() {
			if atomic.CompareAndSwapInt32(&stopped, 0, 1) && cleanup != nil {
				cleanup()
			}
		},
	}
}

// startMachine invokes a nested MachineDefinition as logic: it spawns a new
// Actor whose parent sink forwards events verbatim into the outer actor's
// mailbox via enqueue (spec §4.8: "a parent-event sink directed at the
// outer actor's event queue").
func startMachine(id string, def *primitives.MachineDefinition, input any, enqueue func(primitives.Event), opts ...Option) (primitives.ActorRef, error) {
	if def == nil {
		return nil, fmt.Errorf("ustate: invocation %q: machine logic has a nil definition", id)
	}
	child := NewActor(def, append(append([]Option{}, opts...), WithID(id), WithParentSink(enqueue))...)
	if err := child.Start(); err != nil {
		return nil, err
	}
	return &actorRefImpl{
		id:     id,
		sendFn: func(e primitives.Event) { child.Send(e) },
		stopFn: func() { child.Stop() },
		snapshot: func() (StateValue, any) {
			s := child.GetSnapshot()
			return s.Value, s.Context
		},
	}, nil
}
