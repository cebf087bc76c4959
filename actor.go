package ustate

import (
	"github.com/nullstyle/ustate/internal/core"
	"github.com/nullstyle/ustate/internal/primitives"
)

// Re-exported runtime types so callers never need to import internal/core or
// internal/primitives directly.
type (
	Observer     = core.Observer
	Subscription = core.Subscription
	Snapshot     = core.Snapshot
	Option       = core.Option
	Clock        = core.Clock
	IDGenerator  = core.IDGenerator
	Logger       = core.Logger

	Context     = primitives.Context
	Event       = primitives.Event
	Effect      = primitives.Effect
	ActorRef    = primitives.ActorRef
	ActionAPI   = primitives.ActionAPI
	ActionFunc  = primitives.ActionFunc
	GuardFunc   = primitives.GuardFunc
	DelayFunc   = primitives.DelayFunc
	ActionRef   = primitives.ActionRef
	GuardRef    = primitives.GuardRef
	DelayRef    = primitives.DelayRef
	SpawnOption = primitives.SpawnOption
)

// Actor-tuning options (spec §6 "Actor construction options").
var (
	WithID          = core.WithID
	WithClock       = core.WithClock
	WithIDGenerator = core.WithIDGenerator
	WithLogger      = core.WithLogger
)

// Clock/IDGenerator/Logger constructors.
var (
	NewRealClock    = core.NewRealClock
	NewVirtualClock = core.NewVirtualClock

	NewUUIDGenerator         = core.NewUUIDGenerator
	NewSequentialIDGenerator = core.NewSequentialIDGenerator

	NewStdLogger = core.NewStdLogger
)

// NewEvent constructs an Event (spec §3 "Event").
var NewEvent = primitives.NewEvent

// Send/sendParent effect constructors and accessors (spec §4.7 "Effects").
var (
	SendTo       = primitives.SendTo
	SendParent   = primitives.SendParent
	AsSendTo     = primitives.AsSendTo
	AsSendParent = primitives.AsSendParent
)

// Spawn options (spec §4.8 "action.spawn").
var (
	WithSpawnID    = primitives.WithSpawnID
	WithSpawnInput = primitives.WithSpawnInput
)

// Actor is a single running instance of a Machine (spec §6 "Actor").
type Actor struct {
	inner *core.Actor
}

// SpawnActor creates an Actor for m in the stopped state (spec §6
// "spawnActor"). Call Start to enter the initial configuration.
func SpawnActor(m *Machine, opts ...Option) *Actor {
	return &Actor{inner: core.NewActor(m.def, opts...)}
}

// Start enters the initial configuration, running entry actions and any
// resulting eventless closure. Idempotent with a warning on re-start.
func (a *Actor) Start() error { return a.inner.Start() }

// Send delivers event and runs the resulting macro-step (and any eventless
// closure it triggers) synchronously to completion before returning. A
// no-op with a warning if the actor is not running.
func (a *Actor) Send(event Event) error { return a.inner.Send(event) }

// Stop runs exit actions for the current configuration, cancels timers,
// stops invocations and spawned actors, and clears observers.
func (a *Actor) Stop() error { return a.inner.Stop() }

// Subscribe registers obs to receive a Snapshot when the actor starts and
// after every macro-step that selects at least one transition.
func (a *Actor) Subscribe(obs Observer) Subscription { return a.inner.Subscribe(obs) }

// GetSnapshot returns the actor's current immutable snapshot.
func (a *Actor) GetSnapshot() Snapshot { return a.inner.GetSnapshot() }

// ID returns the actor's id.
func (a *Actor) ID() string { return a.inner.ID() }
