package production

import (
	"github.com/nullstyle/ustate/internal/core"
)

// ChannelObserver is a core.Observer that forwards every snapshot to a Go
// channel, non-blocking with drop-on-backpressure. Grounded on the
// teacher's internal/production/eventpublisher.go ChannelPublisher,
// retargeted from publishing (Event, MachineMetadata) pairs to publishing
// the core.Snapshot an Actor actually produces at the end of a macro-step
// (spec §4.5 step 13).
type ChannelObserver struct {
	ch chan<- core.Snapshot
}

// NewChannelObserver creates a ChannelObserver writing to ch. The caller
// owns ch's lifetime; Close closes it.
func NewChannelObserver(ch chan<- core.Snapshot) *ChannelObserver {
	return &ChannelObserver{ch: ch}
}

// Notify implements core.Observer.
func (o *ChannelObserver) Notify(snap core.Snapshot) {
	select {
	case o.ch <- snap:
	default:
		// Non-blocking drop: a slow consumer must not stall the actor's
		// own macro-step loop.
	}
}

// Close closes the underlying channel. Call only after the owning Actor has
// been stopped and will send no further snapshots.
func (o *ChannelObserver) Close() error {
	close(o.ch)
	return nil
}
