// Package extensibility holds optional ambient adapters that feed events
// into an Actor from outside the process (spec §6 "Environment & services").
// Grounded on the teacher's internal/extensibility/eventsource.go, kept
// close to shape (a channel-backed source plus a ticker-backed one), but
// retargeted from feeding the teacher's own internal event-queue channel to
// driving an Actor's synchronous Send directly, since this module's Actor
// has no background goroutine of its own to select against.
package extensibility

import (
	"time"

	"github.com/nullstyle/ustate/internal/primitives"
)

// EventSink is the subset of Actor a source needs: a synchronous Send.
type EventSink interface {
	Send(primitives.Event) error
}

// ErrorHandler receives delivery failures from a running source (an Actor
// panic recovered as an error). May be nil.
type ErrorHandler func(event primitives.Event, err error)

// ChannelEventSource pumps events arriving on a Go channel into an Actor,
// one at a time, until Stop or the channel is closed. Feeding events onto a
// buffered channel from any number of producer goroutines gives external
// callers backpressure-aware, decoupled delivery without touching the
// Actor's own Send serialisation.
type ChannelEventSource struct {
	ch   chan primitives.Event
	stop chan struct{}
	done chan struct{}
}

// NewChannelEventSource wraps ch. The caller owns ch's lifetime (closing it
// stops the source as surely as calling Stop).
func NewChannelEventSource(ch chan primitives.Event) *ChannelEventSource {
	return &ChannelEventSource{ch: ch, stop: make(chan struct{}), done: make(chan struct{})}
}

// Run starts delivering events to sink on their own goroutine and returns
// immediately. Call Stop to end delivery.
func (s *ChannelEventSource) Run(sink EventSink, onError ErrorHandler) {
	go func() {
		defer close(s.done)
		for {
			select {
			case e, ok := <-s.ch:
				if !ok {
					return
				}
				if err := sink.Send(e); err != nil && onError != nil {
					onError(e, err)
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop ends delivery and waits for the pump goroutine to exit.
func (s *ChannelEventSource) Stop() {
	close(s.stop)
	<-s.done
}

// TimerEventSource delivers a fixed event on a fixed interval, useful for
// heartbeat/timeout-style statecharts driven from outside the machine's own
// `after` transitions.
type TimerEventSource struct {
	eventType string
	data      any
	ticker    *time.Ticker
	stop      chan struct{}
	done      chan struct{}
}

// NewTimerEventSource builds a source that has not yet started ticking; call
// Run to begin.
func NewTimerEventSource(eventType string, data any, d time.Duration) *TimerEventSource {
	return &TimerEventSource{
		eventType: eventType,
		data:      data,
		ticker:    time.NewTicker(d),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run starts delivering the configured event to sink on every tick, on its
// own goroutine, until Stop is called.
func (t *TimerEventSource) Run(sink EventSink, onError ErrorHandler) {
	go func() {
		defer close(t.done)
		for {
			select {
			case <-t.ticker.C:
				if err := sink.Send(primitives.NewEvent(t.eventType, t.data)); err != nil && onError != nil {
					onError(primitives.NewEvent(t.eventType, t.data), err)
				}
			case <-t.stop:
				return
			}
		}
	}()
}

// Stop stops the ticker and waits for the pump goroutine to exit.
func (t *TimerEventSource) Stop() {
	t.ticker.Stop()
	close(t.stop)
	<-t.done
}
