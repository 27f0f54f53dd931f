//go:build linux

// Package ipcevent implements an auto-reset "request"/"response" event
// pair using a non-blocking Linux eventfd: Wait polls until the counter is
// nonzero, then a read() atomically resets it to zero (since we never set
// EFD_SEMAPHORE), which is exactly the "wait then auto-clear" contract a single in-flight
// block per slot needs.
package ipcevent

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Event is a cross-process auto-reset signal backed by an eventfd.
type Event struct {
	fd int
}

// New creates a fresh, unsignaled event.
func New() (*Event, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("ipcevent: eventfd: %w", err)
	}
	return &Event{fd: fd}, nil
}

// FromFD wraps an already-open eventfd descriptor, used by the plugin
// subprocess side of pkg/audiotransport to adopt a fd received from the
// engine over the control socket rather than creating a fresh one.
func FromFD(fd int) *Event {
	return &Event{fd: fd}
}

// FD returns the underlying file descriptor, which the engine passes to the
// plugin subprocess over the control socket (see control.SendWithFDs).
func (e *Event) FD() int {
	return e.fd
}

// Set signals the event (pulses the counter by one).
func (e *Event) Set() error {
	var buf [8]byte
	buf[0] = 1
	_, err := unix.Write(e.fd, buf[:])
	if err != nil && err != unix.EAGAIN {
		return fmt.Errorf("ipcevent: set: %w", err)
	}
	return nil
}

// Wait blocks until the event is signaled (or timeout elapses), then resets
// it. A zero timeout waits forever - used only off the audio thread; the
// audio callback always passes a bounded timeout rather than waiting
// indefinitely on a plugin's response.
func (e *Event) Wait(timeout time.Duration) error {
	pfd := []unix.PollFd{{Fd: int32(e.fd), Events: unix.POLLIN}}
	ms := -1
	if timeout > 0 {
		ms = int(timeout / time.Millisecond)
	}
	n, err := unix.Poll(pfd, ms)
	if err != nil {
		return fmt.Errorf("ipcevent: poll: %w", err)
	}
	if n == 0 {
		return ErrTimeout
	}
	var buf [8]byte
	if _, err := unix.Read(e.fd, buf[:]); err != nil && err != unix.EAGAIN {
		return fmt.Errorf("ipcevent: read: %w", err)
	}
	return nil
}

// Close releases the underlying file descriptor.
func (e *Event) Close() error {
	return unix.Close(e.fd)
}

// ErrTimeout is returned by Wait when the timeout elapses before the event
// is signaled.
var ErrTimeout = fmt.Errorf("ipcevent: wait timed out")
