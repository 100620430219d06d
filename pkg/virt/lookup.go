package virt

import (
	"github.com/google/uuid"
)

// adopt 用一个调用方持有的句柄解析缓存对象
// 句柄被新对象接管，否则释放；构造期间对象被移除时返回 nil
func adopt[K comparable, V Disposable](c *Connection, cache *ObjectCache[K, V], id K, h Handle, build func(ref *handleRef) V) (V, error) {
	var zero V
	created := false
	v, err := cache.GetOrCreate(id, func() (V, error) {
		created = true
		return build(adoptHandle(c.drv, h)), nil
	})
	if !created {
		c.free(h)
	}
	if err != nil {
		if IsNotFound(err) {
			return zero, nil
		}
		return zero, err
	}

	// 释放过程中插入的对象不会被 Drain 看到
	if c.State() != ConnectionOpen {
		if evicted, ok := cache.Remove(id); ok {
			evicted.Dispose()
		}
		return zero, ErrDisposed
	}
	return v, nil
}

func (c *Connection) free(h Handle) {
	if err := c.drv.Free(h); err != nil {
		c.log.Warn().Err(err).Msg("free native handle failed")
	}
}

func (c *Connection) freeAll(handles []Handle) {
	for _, h := range handles {
		c.free(h)
	}
}

func (c *Connection) adoptDomain(h Handle) (*Domain, error) {
	raw, err := c.drv.DomainUUID(h)
	if err != nil {
		c.free(h)
		return nil, queryError("get domain uuid", err)
	}
	id, ok := parseIdentity(raw)
	if !ok {
		c.free(h)
		return nil, apierrorf(ErrQueryFailed, "domain has an empty identity")
	}
	return adopt(c, c.domains, id, h, func(ref *handleRef) *Domain {
		return newDomain(c, id, ref)
	})
}

func (c *Connection) adoptPool(h Handle) (*StoragePool, error) {
	raw, err := c.drv.StoragePoolUUID(h)
	if err != nil {
		c.free(h)
		return nil, queryError("get storage pool uuid", err)
	}
	id, ok := parseIdentity(raw)
	if !ok {
		c.free(h)
		return nil, apierrorf(ErrQueryFailed, "storage pool has an empty identity")
	}
	return adopt(c, c.pools, id, h, func(ref *handleRef) *StoragePool {
		return newStoragePool(c, id, ref)
	})
}

func (c *Connection) adoptVolume(h Handle) (*StorageVolume, error) {
	key, err := c.drv.StorageVolumeKey(h)
	if err != nil {
		c.free(h)
		return nil, queryError("get storage volume key", err)
	}
	if key == "" {
		c.free(h)
		return nil, apierrorf(ErrQueryFailed, "storage volume has an empty key")
	}
	return adopt(c, c.volumes, key, h, func(ref *handleRef) *StorageVolume {
		return newStorageVolume(c, key, ref)
	})
}

// Domains 枚举运行中和已定义的域
// 枚举期间消失的域被跳过，其他失败中止枚举
func (c *Connection) Domains() ([]*Domain, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	// 1. 运行中的域
	ids, err := c.drv.ListActiveDomainIDs()
	if err != nil {
		return nil, queryError("list active domains", err)
	}
	out := make([]*Domain, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	collect := func(h Handle, lookupErr error) error {
		if lookupErr != nil {
			if IsNotFound(lookupErr) {
				return nil
			}
			return queryError("lookup domain", lookupErr)
		}
		d, err := c.adoptDomain(h)
		if err != nil {
			return err
		}
		if d == nil {
			return nil
		}
		if _, ok := seen[d.UUID()]; ok {
			return nil
		}
		seen[d.UUID()] = struct{}{}
		out = append(out, d)
		return nil
	}
	for _, id := range ids {
		if err := collect(c.drv.LookupDomainByID(id)); err != nil {
			return nil, err
		}
	}

	// 2. 已定义未运行的域
	names, err := c.drv.ListDefinedDomainNames()
	if err != nil {
		return nil, queryError("list defined domains", err)
	}
	for _, name := range names {
		if err := collect(c.drv.LookupDomainByName(name)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DomainByUUID 按 UUID 查找域
// cachedOnly 为 true 时只查缓存；否则重新查询原生层，
// 原生层已不存在时把缓存中的旧对象移除并释放
func (c *Connection) DomainByUUID(id uuid.UUID, cachedOnly bool) (*Domain, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if cachedOnly {
		d, _ := c.domains.Get(id)
		return d, nil
	}

	h, err := c.drv.LookupDomainByUUID(id[:])
	if err != nil {
		if !IsNotFound(err) {
			return nil, queryError("lookup domain by uuid", err)
		}
		if stale, ok := c.domains.Remove(id); ok {
			c.log.Info().Str("domain_uuid", id.String()).Msg("evict domain that no longer exists")
			stale.Dispose()
		}
		c.log.Debug().Str("domain_uuid", id.String()).Msg("domain not found")
		return nil, nil
	}
	return c.adoptDomain(h)
}

// DomainByName 按名称查找域
func (c *Connection) DomainByName(name string) (*Domain, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	h, err := c.drv.LookupDomainByName(name)
	if err != nil {
		if IsNotFound(err) {
			c.log.Debug().Str("domain_name", name).Msg("domain not found")
			return nil, nil
		}
		return nil, queryError("lookup domain by name", err)
	}
	return c.adoptDomain(h)
}

// DomainByID 按运行时 ID 查找域
func (c *Connection) DomainByID(id int32) (*Domain, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	h, err := c.drv.LookupDomainByID(id)
	if err != nil {
		if IsNotFound(err) {
			c.log.Debug().Int32("domain_id", id).Msg("domain not found")
			return nil, nil
		}
		return nil, queryError("lookup domain by id", err)
	}
	return c.adoptDomain(h)
}

// StoragePools 枚举运行中和已定义的存储池
func (c *Connection) StoragePools() ([]*StoragePool, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	active, err := c.drv.ListActiveStoragePools()
	if err != nil {
		return nil, queryError("list active storage pools", err)
	}
	defined, err := c.drv.ListDefinedStoragePools()
	if err != nil {
		return nil, queryError("list defined storage pools", err)
	}

	names := append(active, defined...)
	out := make([]*StoragePool, 0, len(names))
	seen := make(map[uuid.UUID]struct{}, len(names))
	for _, name := range names {
		h, err := c.drv.LookupStoragePoolByName(name)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, queryError("lookup storage pool", err)
		}
		p, err := c.adoptPool(h)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		if _, ok := seen[p.UUID()]; ok {
			continue
		}
		seen[p.UUID()] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// StoragePoolByName 按名称查找存储池
func (c *Connection) StoragePoolByName(name string) (*StoragePool, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	h, err := c.drv.LookupStoragePoolByName(name)
	if err != nil {
		if IsNotFound(err) {
			c.log.Debug().Str("pool_name", name).Msg("storage pool not found")
			return nil, nil
		}
		return nil, queryError("lookup storage pool by name", err)
	}
	return c.adoptPool(h)
}

// StoragePoolByUUID 按 UUID 查找存储池，语义同 DomainByUUID
func (c *Connection) StoragePoolByUUID(id uuid.UUID, cachedOnly bool) (*StoragePool, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if cachedOnly {
		p, _ := c.pools.Get(id)
		return p, nil
	}

	h, err := c.drv.LookupStoragePoolByUUID(id[:])
	if err != nil {
		if !IsNotFound(err) {
			return nil, queryError("lookup storage pool by uuid", err)
		}
		if stale, ok := c.pools.Remove(id); ok {
			c.log.Info().Str("pool_uuid", id.String()).Msg("evict storage pool that no longer exists")
			stale.Dispose()
		}
		return nil, nil
	}
	return c.adoptPool(h)
}

// StorageVolumeByKey 按 key 查找存储卷
func (c *Connection) StorageVolumeByKey(key string) (*StorageVolume, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	h, err := c.drv.LookupStorageVolumeByKey(key)
	if err != nil {
		if IsNotFound(err) {
			if stale, ok := c.volumes.Remove(key); ok {
				stale.Dispose()
			}
			c.log.Debug().Str("volume_key", key).Msg("storage volume not found")
			return nil, nil
		}
		return nil, queryError("lookup storage volume by key", err)
	}
	return c.adoptVolume(h)
}
