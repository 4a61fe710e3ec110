package tradelock_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-escrow/internal/core/application/tradelock"
)

func TestLockerSerializesPerTrade(t *testing.T) {
	locker := tradelock.New()
	counters := map[string]*int{"a": new(int), "b": new(int)}
	active := map[string]*int{"a": new(int), "b": new(int)}
	var mu sync.Mutex

	wg := &sync.WaitGroup{}
	for i := 0; i < 100; i++ {
		for _, id := range []string{"a", "b"} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				locker.Run(id, func() {
					mu.Lock()
					*active[id]++
					assert.Equal(t, 1, *active[id])
					mu.Unlock()

					*counters[id]++

					mu.Lock()
					*active[id]--
					mu.Unlock()
				})
			}(id)
		}
	}
	wg.Wait()

	require.Equal(t, 100, *counters["a"])
	require.Equal(t, 100, *counters["b"])
}
