// Package mainthread pins one goroutine to one OS thread and funnels work
// onto it: plugin-main-thread callbacks and the window message pump must
// run on the same OS thread, a prerequisite of most native plugin ABIs,
// which assume GUI and lifecycle calls never migrate threads.
//
// A goroutine scheduler has no fixed "the main thread" to ask about, so
// instead of querying we *establish* one: NewGuard starts a dedicated
// goroutine locked to its OS thread via runtime.LockOSThread, and every
// subsequent call the plugin ABI requires on that thread is funneled
// through Guard.Do.
package mainthread

import (
	"context"
	"runtime"
)

// Guard owns one OS-thread-locked goroutine and serializes work onto it.
type Guard struct {
	work chan func()
	done chan struct{}
}

// NewGuard starts the pinned goroutine. Call Stop to release it.
func NewGuard() *Guard {
	g := &Guard{
		work: make(chan func()),
		done: make(chan struct{}),
	}
	go g.loop()
	return g
}

func (g *Guard) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	for {
		select {
		case fn := <-g.work:
			fn()
		case <-g.done:
			return
		}
	}
}

// Do runs fn on the guarded thread and blocks until it returns. It also
// returns early if ctx is canceled before fn is scheduled.
func (g *Guard) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case g.work <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-g.done:
		return context.Canceled
	}
	select {
	case <-done:
		return nil
	case <-g.done:
		return context.Canceled
	}
}

// Stop releases the pinned goroutine. Safe to call once.
func (g *Guard) Stop() {
	close(g.done)
}
