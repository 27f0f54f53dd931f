package workerpool

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolExecutesEveryIndexExactlyOnce(t *testing.T) {
	const n = 37
	var seen [n]int32

	p := New(4)
	p.Execute(n, func(i int) {
		atomic.AddInt32(&seen[i], 1)
	})

	for i, count := range seen {
		require.Equal(t, int32(1), count, "index %d ran %d times", i, count)
	}
}

func TestPoolZeroTasksNoop(t *testing.T) {
	p := New(2)
	require.NotPanics(t, func() {
		p.Execute(0, func(int) { t.Fatal("should not run") })
	})
}
