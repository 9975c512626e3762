package socketio

import (
	"sync"
	"time"

	"github.com/lordxmusic/hybrid-player-backend/internal/domain/player"
)

// BroadcastDebouncer collapses rapid store changes into batched broadcasts.
// Multiple changes within the debounce window result in a single broadcast
// for each affected push type (state, queue and/or library).
type BroadcastDebouncer struct {
	window          time.Duration
	stateCallback   func()
	queueCallback   func()
	libraryCallback func()

	mu             sync.Mutex
	pendingState   bool
	pendingQueue   bool
	pendingLibrary bool
	timer          *time.Timer
	stopped        bool
}

// NewBroadcastDebouncer creates a debouncer with the given window duration.
// stateCallback fires for playback state changes, queueCallback for queue
// replacements, libraryCallback for playlist/imported-track mutations.
func NewBroadcastDebouncer(window time.Duration, stateCallback, queueCallback, libraryCallback func()) *BroadcastDebouncer {
	return &BroadcastDebouncer{
		window:          window,
		stateCallback:   stateCallback,
		queueCallback:   queueCallback,
		libraryCallback: libraryCallback,
	}
}

// Trigger records that a store change of the given kind happened.
// The actual broadcast callbacks are deferred until the debounce window
// elapses without further triggers.
func (d *BroadcastDebouncer) Trigger(kind player.ChangeKind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	switch kind {
	case player.ChangeQueue:
		d.pendingState = true
		d.pendingQueue = true
	case player.ChangeLibrary:
		d.pendingLibrary = true
	default:
		d.pendingState = true
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush fires callbacks for any pending flags and resets them.
func (d *BroadcastDebouncer) flush() {
	d.mu.Lock()
	doState := d.pendingState
	doQueue := d.pendingQueue
	doLibrary := d.pendingLibrary
	d.pendingState = false
	d.pendingQueue = false
	d.pendingLibrary = false
	d.mu.Unlock()

	if doState && d.stateCallback != nil {
		d.stateCallback()
	}
	if doQueue && d.queueCallback != nil {
		d.queueCallback()
	}
	if doLibrary && d.libraryCallback != nil {
		d.libraryCallback()
	}
}

// Stop prevents any further callbacks from firing.
func (d *BroadcastDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pendingState = false
	d.pendingQueue = false
	d.pendingLibrary = false
}
