package primitives

// Effect is a declarative request an action can return for internal/core to
// carry out after the macro-step's state/context publish (spec §4.5,
// "Effect descriptors"). It is a closed sum type: the only implementations
// are sendToEffect and sendParentEffect, constructed via SendTo/SendParent.
type Effect interface {
	isEffect()
}

type sendToEffect struct {
	ActorID string
	Event   Event
}

func (sendToEffect) isEffect() {}

type sendParentEffect struct {
	Event Event
}

func (sendParentEffect) isEffect() {}

// SendTo builds an effect requesting delivery of event to the child actor
// (spawned or invoked) registered under actorID.
func SendTo(actorID string, event Event) Effect {
	return sendToEffect{ActorID: actorID, Event: event}
}

// SendParent builds an effect requesting delivery of event to the parent
// actor via the sink passed at construction, if any.
func SendParent(event Event) Effect {
	return sendParentEffect{Event: event}
}

// AsSendTo extracts the fields of a SendTo effect, if e is one.
func AsSendTo(e Effect) (actorID string, event Event, ok bool) {
	if s, is := e.(sendToEffect); is {
		return s.ActorID, s.Event, true
	}
	return "", Event{}, false
}

// AsSendParent extracts the fields of a SendParent effect, if e is one.
func AsSendParent(e Effect) (event Event, ok bool) {
	if s, is := e.(sendParentEffect); is {
		return s.Event, true
	}
	return Event{}, false
}
