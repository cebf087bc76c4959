package core

import (
	"testing"
	"time"

	"github.com/nullstyle/ustate/internal/primitives"
)

func buildCounterMachine(t *testing.T) *primitives.MachineDefinition {
	t.Helper()
	mb := primitives.NewMachineBuilder("counter", "idle")
	mb.Atomic("idle").
		Transition("GO", "running")
	mb.Atomic("running").
		Transition("STOP", "idle")
	def, err := mb.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return def
}

func TestActorStartEntersInitialConfiguration(t *testing.T) {
	def := buildCounterMachine(t)
	a := NewActor(def, WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	snap := a.GetSnapshot()
	if !snap.Matches("idle") {
		t.Errorf("snapshot = %v, want idle active", snap.Value)
	}
}

func TestActorStartTwiceIsANoop(t *testing.T) {
	def := buildCounterMachine(t)
	a := NewActor(def, WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()
	if err := a.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
}

func TestActorSendRunsTransitionSynchronously(t *testing.T) {
	def := buildCounterMachine(t)
	a := NewActor(def, WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	if err := a.Send(primitives.NewEvent("GO", nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !a.GetSnapshot().Matches("running") {
		t.Errorf("snapshot = %v, want running active", a.GetSnapshot().Value)
	}
}

func TestActorSendToStoppedActorIsDroppedNotError(t *testing.T) {
	def := buildCounterMachine(t)
	a := NewActor(def, WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := a.Send(primitives.NewEvent("GO", nil)); err != nil {
		t.Errorf("Send after Stop should not error, got %v", err)
	}
}

func TestActorEntryExitActionsRunInOrder(t *testing.T) {
	var trace []string
	mb := primitives.NewMachineBuilder("trace", "a")
	mb.Atomic("a").
		Exit(func(ctx *primitives.Context, e primitives.Event, api primitives.ActionAPI) []primitives.Effect {
			trace = append(trace, "exit:a")
			return nil
		}).
		Transition("NEXT", "b")
	mb.Atomic("b").
		Entry(func(ctx *primitives.Context, e primitives.Event, api primitives.ActionAPI) []primitives.Effect {
			trace = append(trace, "entry:b")
			return nil
		})
	def, err := mb.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	a := NewActor(def, WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	if err := a.Send(primitives.NewEvent("NEXT", nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(trace) != 2 || trace[0] != "exit:a" || trace[1] != "entry:b" {
		t.Errorf("trace = %v, want [exit:a entry:b]", trace)
	}
}

func TestActorSelfTransitionRestartsCompoundChild(t *testing.T) {
	entries := 0
	mb := primitives.NewMachineBuilder("restart", "wizard")
	wb := mb.Compound("wizard").WithInitial("step")
	wb.Atomic("step").
		Entry(func(ctx *primitives.Context, e primitives.Event, api primitives.ActionAPI) []primitives.Effect {
			entries++
			return nil
		})
	wb.Transition("RESTART", "wizard")
	def, err := mb.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	a := NewActor(def, WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	if entries != 1 {
		t.Fatalf("entries after Start = %d, want 1", entries)
	}

	if err := a.Send(primitives.NewEvent("RESTART", nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if entries != 2 {
		t.Errorf("entries after self-transition = %d, want 2 (restarted)", entries)
	}
	if !a.GetSnapshot().Matches("wizard.step") {
		t.Errorf("snapshot = %v, want wizard.step active", a.GetSnapshot().Value)
	}
}

func TestActorEventlessClosureRunsToQuiescence(t *testing.T) {
	mb := primitives.NewMachineBuilder("chain", "machine")
	cb := mb.Compound("machine").WithInitial("a")
	cb.Atomic("a").Always(primitives.TransitionDescriptor{Target: "machine.b"})
	cb.Atomic("b").Always(primitives.TransitionDescriptor{Target: "machine.c"})
	cb.Atomic("c")
	def, err := mb.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	a := NewActor(def, WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	if !a.GetSnapshot().Matches("machine.c") {
		t.Errorf("snapshot = %v, want machine.c after eventless closure settles", a.GetSnapshot().Value)
	}
}

func TestActorParallelRegionsStepIndependently(t *testing.T) {
	mb := primitives.NewMachineBuilder("parallel", "par")
	pb := mb.Parallel("par")

	lb := pb.Compound("left").WithInitial("l1")
	lb.Atomic("l1").Transition("LEFT", "par.left.l2")
	lb.Atomic("l2")

	rb := pb.Compound("right").WithInitial("r1")
	rb.Atomic("r1").Transition("RIGHT", "par.right.r2")
	rb.Atomic("r2")
	def, err := mb.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	a := NewActor(def, WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	if err := a.Send(primitives.NewEvent("LEFT", nil)); err != nil {
		t.Fatalf("Send LEFT: %v", err)
	}
	snap := a.GetSnapshot()
	if !snap.Matches("par.left.l2") || !snap.Matches("par.right.r1") {
		t.Errorf("after LEFT, snapshot = %v, want left in l2 and right untouched in r1", snap.Value)
	}

	if err := a.Send(primitives.NewEvent("RIGHT", nil)); err != nil {
		t.Fatalf("Send RIGHT: %v", err)
	}
	snap = a.GetSnapshot()
	if !snap.Matches("par.left.l2") || !snap.Matches("par.right.r2") {
		t.Errorf("after RIGHT, snapshot = %v, want left in l2 and right in r2", snap.Value)
	}
}

func TestActorDelayedTransitionFiresAfterClockAdvance(t *testing.T) {
	mb := primitives.NewMachineBuilder("timeout", "machine")
	cb := mb.Compound("machine").WithInitial("waiting")
	cb.Atomic("waiting").After("100", primitives.TransitionDescriptor{Target: "machine.done"})
	cb.Atomic("done")
	def, err := mb.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	clock := NewVirtualClock(time.Unix(0, 0))
	a := NewActor(def, WithClock(clock), WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	if a.GetSnapshot().Matches("machine.done") {
		t.Fatal("should not have transitioned before the clock advances")
	}

	clock.Advance(100 * time.Millisecond)

	if !a.GetSnapshot().Matches("machine.done") {
		t.Errorf("snapshot = %v, want machine.done after the delay fires", a.GetSnapshot().Value)
	}
}

func TestActorExitingAStateCancelsItsPendingTimer(t *testing.T) {
	mb := primitives.NewMachineBuilder("cancel", "machine")
	cb := mb.Compound("machine").WithInitial("waiting")
	cb.Atomic("waiting").
		After("100", primitives.TransitionDescriptor{Target: "machine.timedOut"}).
		Transition("ESCAPE", "machine.escaped")
	cb.Atomic("timedOut")
	cb.Atomic("escaped")
	def, err := mb.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	clock := NewVirtualClock(time.Unix(0, 0))
	a := NewActor(def, WithClock(clock), WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	if err := a.Send(primitives.NewEvent("ESCAPE", nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	clock.Advance(time.Second)

	if !a.GetSnapshot().Matches("machine.escaped") {
		t.Errorf("snapshot = %v, want to remain at machine.escaped", a.GetSnapshot().Value)
	}
	if a.GetSnapshot().Matches("machine.timedOut") {
		t.Error("the cancelled timer must not fire after its state was exited")
	}
}

func TestActorSubscribeReceivesSnapshotsOnFiredTransitions(t *testing.T) {
	def := buildCounterMachine(t)
	a := NewActor(def, WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	var got []Snapshot
	sub := a.Subscribe(notifyFunc(func(s Snapshot) { got = append(got, s) }))
	defer sub.Unsubscribe()

	if err := a.Send(primitives.NewEvent("GO", nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := a.Send(primitives.NewEvent("NOPE", nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d notifications, want 1 (only the fired transition)", len(got))
	}
	if !got[0].Matches("running") {
		t.Errorf("notified snapshot = %v, want running", got[0].Value)
	}
}

func TestActorUnsubscribeStopsNotifications(t *testing.T) {
	def := buildCounterMachine(t)
	a := NewActor(def, WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	count := 0
	sub := a.Subscribe(notifyFunc(func(Snapshot) { count++ }))
	sub.Unsubscribe()
	sub.Unsubscribe() // safe to call twice

	if err := a.Send(primitives.NewEvent("GO", nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if count != 0 {
		t.Errorf("got %d notifications after unsubscribe, want 0", count)
	}
}

func TestActorObserverPanicIsIsolated(t *testing.T) {
	def := buildCounterMachine(t)
	a := NewActor(def, WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	a.Subscribe(notifyFunc(func(Snapshot) { panic("boom") }))
	good := 0
	a.Subscribe(notifyFunc(func(Snapshot) { good++ }))

	if err := a.Send(primitives.NewEvent("GO", nil)); err != nil {
		t.Fatalf("Send should not fail due to an observer panic: %v", err)
	}
	if good != 1 {
		t.Errorf("the well-behaved observer should still have been notified once, got %d", good)
	}
}

func TestActorActionPanicIsReRaisedAsError(t *testing.T) {
	mb := primitives.NewMachineBuilder("panicking", "a")
	mb.Atomic("a").Transition("GO", "b", primitives.TransitionDescriptor{
		Target: "b",
		Actions: []primitives.ActionRef{
			func(ctx *primitives.Context, e primitives.Event, api primitives.ActionAPI) []primitives.Effect {
				panic("boom")
			},
		},
	})
	mb.Atomic("b")
	def, err := mb.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	a := NewActor(def, WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	if err := a.Send(primitives.NewEvent("GO", nil)); err == nil {
		t.Error("a panicking action should surface as an error from Send")
	}
}

func TestActorStopRunsExitActionsDeepestFirst(t *testing.T) {
	var trace []string
	mb := primitives.NewMachineBuilder("stopping", "outer")
	ob := mb.Compound("outer").WithInitial("inner").
		Exit(func(ctx *primitives.Context, e primitives.Event, api primitives.ActionAPI) []primitives.Effect {
			trace = append(trace, "outer")
			return nil
		})
	ob.Atomic("inner").
		Exit(func(ctx *primitives.Context, e primitives.Event, api primitives.ActionAPI) []primitives.Effect {
			trace = append(trace, "inner")
			return nil
		})
	def, err := mb.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	a := NewActor(def, WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if len(trace) != 2 || trace[0] != "inner" || trace[1] != "outer" {
		t.Errorf("exit trace = %v, want [inner outer]", trace)
	}
}

func TestActorSpawnedChildOutlivesStateTransitions(t *testing.T) {
	child := buildCounterMachine(t)

	var ref primitives.ActorRef
	mb := primitives.NewMachineBuilder("spawner", "a")
	mb.Atomic("a").
		Entry(func(ctx *primitives.Context, e primitives.Event, api primitives.ActionAPI) []primitives.Effect {
			var err error
			ref, err = api.Spawn(primitives.Logic{Kind: primitives.LogicMachine, Definition: child}, primitives.WithSpawnID("kid"))
			if err != nil {
				t.Fatalf("Spawn: %v", err)
			}
			return nil
		}).
		Transition("NEXT", "b")
	mb.Atomic("b")
	def, err := mb.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	a := NewActor(def, WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	if ref == nil {
		t.Fatal("Spawn never set ref")
	}
	if err := a.Send(primitives.NewEvent("NEXT", nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	ref.Send(primitives.NewEvent("GO", nil))
}

func TestActorDuplicateSpawnIDErrors(t *testing.T) {
	child := buildCounterMachine(t)

	var firstErr, secondErr error
	mb := primitives.NewMachineBuilder("dupspawn", "a")
	mb.Atomic("a").
		Entry(func(ctx *primitives.Context, e primitives.Event, api primitives.ActionAPI) []primitives.Effect {
			_, firstErr = api.Spawn(primitives.Logic{Kind: primitives.LogicMachine, Definition: child}, primitives.WithSpawnID("kid"))
			_, secondErr = api.Spawn(primitives.Logic{Kind: primitives.LogicMachine, Definition: child}, primitives.WithSpawnID("kid"))
			return nil
		})
	def, err := mb.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	a := NewActor(def, WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	if firstErr != nil {
		t.Fatalf("first spawn: %v", firstErr)
	}
	if secondErr == nil {
		t.Error("second spawn with the same id should have errored")
	}
}

func TestActorSendToEffectDeliversToSpawnedChild(t *testing.T) {
	received := make(chan primitives.Event, 1)
	childLogic := primitives.Logic{
		Kind: primitives.LogicCallback,
		CallbackFn: func(sendBack func(primitives.Event), receive func(func(primitives.Event)), input any) func() {
			receive(func(e primitives.Event) { received <- e })
			return nil
		},
	}

	mb := primitives.NewMachineBuilder("sendto", "a")
	mb.Atomic("a").
		Entry(func(ctx *primitives.Context, e primitives.Event, api primitives.ActionAPI) []primitives.Effect {
			if _, err := api.Spawn(childLogic, primitives.WithSpawnID("kid")); err != nil {
				t.Fatalf("Spawn: %v", err)
			}
			return nil
		}).
		InternalTransition("PING", primitives.TransitionDescriptor{
			Actions: []primitives.ActionRef{
				func(ctx *primitives.Context, e primitives.Event, api primitives.ActionAPI) []primitives.Effect {
					return []primitives.Effect{primitives.SendTo("kid", primitives.NewEvent("PING", nil))}
				},
			},
		})
	def, err := mb.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	a := NewActor(def, WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	if err := a.Send(primitives.NewEvent("PING", nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case e := <-received:
		if e.Type != "PING" {
			t.Errorf("child received %+v, want PING", e)
		}
	case <-time.After(time.Second):
		t.Fatal("the spawned child never received the sendTo effect")
	}
}

func TestActorSendParentEffectReachesInvokingActor(t *testing.T) {
	childDef := buildCounterMachine(t)
	childDef.States["idle"].AddTransition("FORWARD", primitives.TransitionDescriptor{
		Actions: []primitives.ActionRef{
			func(ctx *primitives.Context, e primitives.Event, api primitives.ActionAPI) []primitives.Effect {
				return []primitives.Effect{primitives.SendParent(primitives.NewEvent("FROM_CHILD", nil))}
			},
		},
	})

	var childRef primitives.ActorRef
	receivedFromChild := make(chan struct{}, 1)
	mb := primitives.NewMachineBuilder("parent", "a")
	mb.Atomic("a").
		Entry(func(ctx *primitives.Context, e primitives.Event, api primitives.ActionAPI) []primitives.Effect {
			var err error
			childRef, err = api.Spawn(primitives.Logic{Kind: primitives.LogicMachine, Definition: childDef}, primitives.WithSpawnID("kid"))
			if err != nil {
				t.Fatalf("Spawn: %v", err)
			}
			return nil
		}).
		InternalTransition("FROM_CHILD", primitives.TransitionDescriptor{
			Actions: []primitives.ActionRef{
				func(ctx *primitives.Context, e primitives.Event, api primitives.ActionAPI) []primitives.Effect {
					receivedFromChild <- struct{}{}
					return nil
				},
			},
		})
	def, err := mb.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	a := NewActor(def, WithLogger(NoopLogger{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	childRef.Send(primitives.NewEvent("FORWARD", nil))

	select {
	case <-receivedFromChild:
	case <-time.After(time.Second):
		t.Fatal("the parent never observed the sendParent effect")
	}
}

type notifyFunc func(Snapshot)

func (f notifyFunc) Notify(s Snapshot) { f(s) }
