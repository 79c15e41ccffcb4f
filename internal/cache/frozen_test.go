package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestFrozen_FirstWriterWins(t *testing.T) {
	f := NewFrozen()

	assert.True(t, f.Store("k", Entry{Tag: "int", Value: 1}))
	assert.False(t, f.Store("k", Entry{Tag: "int", Value: 2}))

	e, ok := f.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1, e.Value)
	assert.Equal(t, 1, f.Len())
}

func TestFrozen_ConcurrentStoresKeepExactlyOne(t *testing.T) {
	for range 50 {
		f := NewFrozen()
		var g errgroup.Group
		var mu sync.Mutex
		var published []int

		for i := range 8 {
			g.Go(func() error {
				if f.Store("k", Entry{Tag: "int", Value: i}) {
					mu.Lock()
					published = append(published, i)
					mu.Unlock()
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())
		require.Len(t, published, 1)

		for range 10 {
			e, ok := f.Get("k")
			require.True(t, ok)
			assert.Equal(t, published[0], e.Value)
		}
	}
}

func TestFrozen_ReadersNeverSeeTornMaps(t *testing.T) {
	f := NewFrozen()
	var g errgroup.Group

	g.Go(func() error {
		for i := range 200 {
			f.Store(fmt.Sprintf("k%d", i), Entry{Tag: "int", Value: i})
		}
		return nil
	})
	for range 4 {
		g.Go(func() error {
			for i := range 200 {
				if e, ok := f.Get(fmt.Sprintf("k%d", i)); ok && e.Value != i {
					return fmt.Errorf("k%d holds %v", i, e.Value)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 200, f.Len())
}
