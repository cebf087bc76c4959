// C6: delayed-transition scheduling against an injectable Clock (spec §4.6).
// Grounded on the teacher's internal/extensibility/eventsource.go, whose
// TimerEventSource already wraps time.AfterFunc-style scheduling behind a
// start/stop pair; here scheduling is per (path, delay key) rather than
// machine-wide, and the delay amount is resolved once, at entry time, per
// spec §4.6 ("resolved once at scheduling time").
package core

import (
	"strconv"
	"strings"
	"time"

	"github.com/nullstyle/ustate/internal/primitives"
)

// TimerManager owns every pending delayed-transition timer for one Actor.
// Not safe for concurrent use outside the owning Actor's own locking.
type TimerManager struct {
	clock   Clock
	enqueue func(primitives.Event)
	handles map[string]Timer // key: path + "\x00" + delayKey
}

// NewTimerManager returns a TimerManager that schedules through clock and
// delivers fired delays by calling enqueue with a synthetic event.
func NewTimerManager(clock Clock, enqueue func(primitives.Event)) *TimerManager {
	return &TimerManager{clock: clock, enqueue: enqueue, handles: make(map[string]Timer)}
}

// delayEventData is carried as the Data of a synthetic "$delay.<path>.<key>"
// event so the macro-step loop can recover path/key without re-splitting a
// string that may itself contain dots (a state path always does).
type delayEventData struct {
	Path string
	Key  string
}

// parseDelayEvent recovers the (path, key) a fired delay timer names, if
// event is one of TimerManager's own synthetic events.
func parseDelayEvent(event primitives.Event) (path, key string, ok bool) {
	if !strings.HasPrefix(event.Type, "$delay.") {
		return "", "", false
	}
	d, isDelay := event.Data.(delayEventData)
	if !isDelay {
		return "", "", false
	}
	return d.Path, d.Key, true
}

// Start schedules every `after` entry declared on node, using ctx/event as
// they stood at the moment node was entered.
func (t *TimerManager) Start(path string, node *primitives.StateNode, ctx *primitives.Context, event primitives.Event, impls primitives.Implementations) {
	for key := range node.After {
		delayFn := resolveDelayKey(key, impls)
		ms := delayFn(ctx, event)
		handleKey := timerKey(path, key)
		p, k := path, key
		t.handles[handleKey] = t.clock.AfterFunc(time.Duration(ms)*time.Millisecond, func() {
			t.enqueue(primitives.NewEvent("$delay."+p+"."+k, delayEventData{Path: p, Key: k}))
		})
	}
}

// Cancel stops every timer scheduled for path (every delay key it declared).
func (t *TimerManager) Cancel(path string) {
	prefix := path + "\x00"
	for key, handle := range t.handles {
		if strings.HasPrefix(key, prefix) {
			handle.Stop()
			delete(t.handles, key)
		}
	}
}

// CancelAll stops every pending timer.
func (t *TimerManager) CancelAll() {
	for key, handle := range t.handles {
		handle.Stop()
		delete(t.handles, key)
	}
}

func timerKey(path, delayKey string) string {
	return path + "\x00" + delayKey
}

// resolveDelayKey interprets an `after` map key: a numeric string bypasses
// the implementations table as a literal millisecond count (spec §3,
// "Numeric delays bypass the table"); anything else is looked up as a named
// delay.
func resolveDelayKey(key string, impls primitives.Implementations) primitives.DelayFunc {
	if ms, err := strconv.ParseInt(key, 10, 64); err == nil {
		fn, _ := impls.ResolveDelay(ms)
		return fn
	}
	fn, _ := impls.ResolveDelay(key)
	return fn
}
