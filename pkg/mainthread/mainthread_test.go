package mainthread

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGuardSerializesWork(t *testing.T) {
	g := NewGuard()
	defer g.Stop()

	var order []int
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, g.Do(ctx, func() { order = append(order, i) }))
	}

	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestGuardRunsConcurrentCallersOneAtATime(t *testing.T) {
	g := NewGuard()
	defer g.Stop()

	var active int32
	var sawOverlap int32
	run := func() {
		if atomic.AddInt32(&active, 1) > 1 {
			atomic.StoreInt32(&sawOverlap, 1)
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&active, -1)
	}

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			_ = g.Do(context.Background(), run)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	require.Zero(t, atomic.LoadInt32(&sawOverlap))
}

func TestGuardDoRespectsContextCancel(t *testing.T) {
	g := NewGuard()
	defer g.Stop()

	release := make(chan struct{})
	go g.Do(context.Background(), func() { <-release })
	defer close(release)
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	err := g.Do(ctx, func() {})
	require.Error(t, err)
}
