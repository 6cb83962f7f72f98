package selection

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDebounce is the quiet period the notifier waits for after the last
// mutation before firing.
const DefaultDebounce = 150 * time.Millisecond

// Notifier coalesces bursts of selection mutations into a single "filters
// changed" signal. Every Trigger restarts the quiet-period timer; Cancel
// discards a pending signal without firing. The signal carries no payload.
type Notifier struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	gen   uint64
	subs  map[uuid.UUID]func()
}

func NewNotifier(delay time.Duration) *Notifier {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Notifier{
		delay: delay,
		subs:  map[uuid.UUID]func(){},
	}
}

// Subscribe registers a handler and returns its handle. Handlers run outside
// the notifier lock, so a handler mutating the selection schedules a fresh
// debounce cycle instead of recursing into the current one.
func (n *Notifier) Subscribe(fn func()) uuid.UUID {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := uuid.New()
	n.subs[id] = fn
	return id
}

func (n *Notifier) Unsubscribe(id uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs, id)
}

// Trigger restarts the debounce window. The signal fires once, after the
// quiet period elapses with no further trigger.
func (n *Notifier) Trigger() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.gen++
	gen := n.gen
	n.timer = time.AfterFunc(n.delay, func() { n.fire(gen) })
}

// Cancel discards any pending signal. Bumping the generation also kills a
// callback that already left AfterFunc but has not taken the lock yet.
func (n *Notifier) Cancel() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.gen++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

// fire delivers the signal unless the window it belongs to was superseded by
// a later Trigger or a Cancel while the callback was in flight.
func (n *Notifier) fire(gen uint64) {
	n.mu.Lock()
	if gen != n.gen {
		n.mu.Unlock()
		return
	}
	n.timer = nil
	handlers := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		handlers = append(handlers, fn)
	}
	n.mu.Unlock()
	for _, fn := range handlers {
		fn()
	}
}
