package crawler

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVisitedSetTryVisit(t *testing.T) {
	t.Parallel()

	set := NewVisitedSet()
	require.False(t, set.Seen("https://example.com"))
	require.True(t, set.TryVisit("https://example.com"))
	require.False(t, set.TryVisit("https://example.com"))
	require.True(t, set.Seen("https://example.com"))
	require.True(t, set.TryVisit("https://example.com/other"))
	require.Equal(t, 2, set.Len())
}

func TestVisitedSetTryVisitConcurrentCallersClaimOnce(t *testing.T) {
	t.Parallel()

	const (
		callers = 64
		urls    = 50
	)
	set := NewVisitedSet()
	var wins [urls]atomic.Int32

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for u := 0; u < urls; u++ {
				if set.TryVisit(urlFor(u)) {
					wins[u].Add(1)
				}
			}
		}()
	}
	close(start)
	wg.Wait()

	for u := 0; u < urls; u++ {
		require.Equal(t, int32(1), wins[u].Load(), "url %d claimed %d times", u, wins[u].Load())
	}
	require.Equal(t, urls, set.Len())
}

func urlFor(i int) string {
	return "https://example.com/page/" + string(rune('a'+i%26)) + string(rune('a'+i/26))
}
