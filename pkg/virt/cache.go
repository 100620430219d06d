package virt

import (
	"fmt"
	"sync"

	"github.com/jimyag/jvirt/pkg/apierror"
	"golang.org/x/sync/singleflight"
)

// Disposable 可释放对象
type Disposable interface {
	Dispose()
}

// errSuperseded 构造期间该标识被移除
var errSuperseded = apierror.WrapError(ErrNotFound, "object was removed while it was being resolved", nil)

// ObjectCache 按稳定标识缓存包装对象
//
// 同一标识同一时刻至多一个存活对象；并发的 GetOrCreate 只调用一次 factory。
// 不同标识的构造互不阻塞。
type ObjectCache[K comparable, V Disposable] struct {
	mu      sync.RWMutex
	entries map[K]V
	// gens 记录标识被移除的次数，构造期间发生移除时丢弃构造结果
	gens  map[K]uint64
	group singleflight.Group
}

// NewObjectCache 创建对象缓存
func NewObjectCache[K comparable, V Disposable]() *ObjectCache[K, V] {
	return &ObjectCache[K, V]{
		entries: make(map[K]V),
		gens:    make(map[K]uint64),
	}
}

// Get 只返回已缓存的对象，不访问原生层
func (c *ObjectCache[K, V]) Get(id K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[id]
	return v, ok
}

// GetOrCreate 返回已缓存对象，不存在时调用 factory 构造并缓存
// factory 返回错误时不缓存任何内容，错误返回给所有等待者
func (c *ObjectCache[K, V]) GetOrCreate(id K, factory func() (V, error)) (V, error) {
	if v, ok := c.Get(id); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(fmt.Sprint(id), func() (any, error) {
		c.mu.RLock()
		if v, ok := c.entries[id]; ok {
			c.mu.RUnlock()
			return v, nil
		}
		gen := c.gens[id]
		c.mu.RUnlock()

		v, err := factory()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gens[id] != gen {
			c.mu.Unlock()
			v.Dispose()
			return nil, errSuperseded
		}
		c.entries[id] = v
		delete(c.gens, id)
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Remove 移除并返回对象，由调用方负责释放
func (c *ObjectCache[K, V]) Remove(id K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[id]++
	v, ok := c.entries[id]
	if ok {
		delete(c.entries, id)
	}
	return v, ok
}

// Values 返回当前缓存对象的快照
func (c *ObjectCache[K, V]) Values() []V {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]V, 0, len(c.entries))
	for _, v := range c.entries {
		out = append(out, v)
	}
	return out
}

// Len 缓存对象数量
func (c *ObjectCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Drain 移除并返回全部对象
func (c *ObjectCache[K, V]) Drain() []V {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]V, 0, len(c.entries))
	for id, v := range c.entries {
		out = append(out, v)
		c.gens[id]++
	}
	c.entries = make(map[K]V)
	return out
}
