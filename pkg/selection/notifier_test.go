package selection

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestNotifierCoalescesBursts(t *testing.T) {
	n := NewNotifier(20 * time.Millisecond)
	var fired atomic.Int32
	n.Subscribe(func() { fired.Add(1) })

	for range 5 {
		n.Trigger()
		time.Sleep(time.Millisecond)
	}
	if got := fired.Load(); got != 0 {
		t.Errorf("signal fired inside the quiet window, count=%d", got)
	}
	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("expected exactly one signal for the burst, got %d", got)
	}
}

func TestNotifierCancelDiscardsPending(t *testing.T) {
	n := NewNotifier(20 * time.Millisecond)
	var fired atomic.Int32
	n.Subscribe(func() { fired.Add(1) })

	n.Trigger()
	n.Cancel()
	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("cancelled signal must not fire, got %d", got)
	}
}

func TestNotifierSeparateBurstsFireSeparately(t *testing.T) {
	n := NewNotifier(10 * time.Millisecond)
	var fired atomic.Int32
	n.Subscribe(func() { fired.Add(1) })

	n.Trigger()
	time.Sleep(50 * time.Millisecond)
	n.Trigger()
	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != 2 {
		t.Errorf("expected two signals for two quiet periods, got %d", got)
	}
}

func TestNotifierUnsubscribe(t *testing.T) {
	n := NewNotifier(5 * time.Millisecond)
	var fired atomic.Int32
	id := n.Subscribe(func() { fired.Add(1) })
	n.Unsubscribe(id)

	n.Trigger()
	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("unsubscribed handler must not run, got %d", got)
	}
}

func TestNotifierStaleCallbackDoesNotFireOrClobberTimer(t *testing.T) {
	n := NewNotifier(20 * time.Millisecond)
	var fired atomic.Int32
	n.Subscribe(func() { fired.Add(1) })

	n.Trigger()
	// a callback from a window that Trigger already superseded must neither
	// deliver nor null out the re-armed timer
	n.fire(0)
	if got := fired.Load(); got != 0 {
		t.Errorf("superseded callback must not deliver, got %d", got)
	}
	n.Cancel()
	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("cancel must still stop the armed timer, got %d", got)
	}
}

func TestNotifierCancelKillsInFlightCallback(t *testing.T) {
	n := NewNotifier(20 * time.Millisecond)
	var fired atomic.Int32
	n.Subscribe(func() { fired.Add(1) })

	n.Trigger()
	n.Cancel()
	// a callback that left AfterFunc before the cancel is generation-checked
	n.fire(1)
	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("cancelled generation must not deliver, got %d", got)
	}
}

func TestNotifierRetriggerFromHandlerSchedulesNewCycle(t *testing.T) {
	n := NewNotifier(10 * time.Millisecond)
	var fired atomic.Int32
	n.Subscribe(func() {
		if fired.Add(1) == 1 {
			n.Trigger()
		}
	})

	n.Trigger()
	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 2 {
		t.Errorf("handler retrigger must schedule one more cycle, got %d", got)
	}
}
