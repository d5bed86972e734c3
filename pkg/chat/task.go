package chat

import (
	"time"

	"github.com/benbjohnson/clock"
)

// task is a cancellable delayed call that runs on the event loop. Once
// cancelled it never runs, even if its timer already fired.
type task struct {
	timer     *clock.Timer
	cancelled bool
}

func (e *Engine) after(d time.Duration, fn func()) *task {
	t := &task{}
	t.timer = e.clock.AfterFunc(d, func() {
		e.inbox.post(func() {
			if t.cancelled {
				return
			}
			fn()
		})
	})
	return t
}

// Cancel must be called from the event loop
func (t *task) Cancel() {
	t.cancelled = true
	t.timer.Stop()
}

// heartbeat delivers ticks to the event loop until stopped
type heartbeat struct {
	ticker  *clock.Ticker
	stop    chan struct{}
	stopped bool
}

func (e *Engine) every(d time.Duration, fn func()) *heartbeat {
	h := &heartbeat{
		ticker: e.clock.Ticker(d),
		stop:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-h.ticker.C:
				e.inbox.post(func() {
					if h.stopped {
						return
					}
					fn()
				})
			case <-h.stop:
				return
			}
		}
	}()
	return h
}

// Stop must be called from the event loop
func (h *heartbeat) Stop() {
	if h.stopped {
		return
	}
	h.stopped = true
	h.ticker.Stop()
	close(h.stop)
}
