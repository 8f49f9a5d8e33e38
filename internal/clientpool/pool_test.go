package clientpool

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetReturnsSameClientForSameWorker(t *testing.T) {
	t.Parallel()

	pool := New(Config{})
	first := pool.Get(3)
	second := pool.Get(3)
	require.Same(t, first, second)
	require.Equal(t, 1, pool.Len())
}

func TestGetReturnsDistinctClientsPerWorker(t *testing.T) {
	t.Parallel()

	pool := New(Config{})
	a := pool.Get(0)
	b := pool.Get(1)
	require.NotSame(t, a, b)
	require.NotSame(t, a.Transport, b.Transport)
	require.Equal(t, 2, pool.Len())
}

func TestGetAppliesConfig(t *testing.T) {
	t.Parallel()

	pool := New(Config{Timeout: 3 * time.Second, MaxIdleConnsPerHost: 5})
	client := pool.Get(0)
	require.Equal(t, 3*time.Second, client.Timeout)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	require.Equal(t, 5, transport.MaxIdleConnsPerHost)
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	pool := New(Config{})
	require.Equal(t, 15*time.Second, pool.Get(0).Timeout)
}

func TestGetConcurrentWorkers(t *testing.T) {
	t.Parallel()

	const workers = 8
	pool := New(Config{})
	got := make([][]*http.Client, workers)

	var wg sync.WaitGroup
	for id := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				got[id] = append(got[id], pool.Get(id))
			}
		}()
	}
	wg.Wait()

	seen := make(map[*http.Client]int)
	for id, clients := range got {
		for _, c := range clients {
			require.Same(t, clients[0], c)
		}
		if owner, dup := seen[clients[0]]; dup {
			t.Fatalf("client shared by workers %d and %d", owner, id)
		}
		seen[clients[0]] = id
	}
	require.Equal(t, workers, pool.Len())
}

func TestCloseIdle(t *testing.T) {
	t.Parallel()

	pool := New(Config{})
	pool.Get(0)
	pool.Get(1)
	require.NotPanics(t, pool.CloseIdle)
}
