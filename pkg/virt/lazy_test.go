package virt

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazy_FetchOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	l := NewLazy(func() (string, error) {
		calls.Add(1)
		return "<domain/>", nil
	})

	_, ok := l.Cached()
	assert.False(t, ok)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := l.Get()
			assert.NoError(t, err)
			assert.Equal(t, "<domain/>", v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestLazy_Invalidate(t *testing.T) {
	t.Parallel()

	version := 0
	l := NewLazy(func() (int, error) {
		version++
		return version, nil
	})

	v, err := l.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	l.Invalidate()
	// 失效不会立即重新获取
	assert.Equal(t, 1, version)
	_, ok := l.Cached()
	assert.False(t, ok)

	v, err = l.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestLazy_ErrorNotCached(t *testing.T) {
	t.Parallel()

	fail := true
	l := NewLazy(func() (string, error) {
		if fail {
			return "", errors.New("unavailable")
		}
		return "ok", nil
	})

	_, err := l.Get()
	require.Error(t, err)
	_, ok := l.Cached()
	assert.False(t, ok)

	fail = false
	v, err := l.Get()
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}
