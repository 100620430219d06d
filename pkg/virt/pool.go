package virt

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"libvirt.org/go/libvirtxml"
)

// StoragePool 缓存的存储池对象
type StoragePool struct {
	conn *Connection
	id   uuid.UUID
	ref  *handleRef
	xml  *Lazy[string]
	log  zerolog.Logger

	disposeOnce sync.Once
	disposed    atomic.Bool
}

func newStoragePool(conn *Connection, id uuid.UUID, ref *handleRef) *StoragePool {
	p := &StoragePool{
		conn: conn,
		id:   id,
		ref:  ref,
		log:  conn.log.With().Str("pool_uuid", id.String()).Logger(),
	}
	p.xml = NewLazy(p.fetchXML)
	return p
}

// UUID 存储池的稳定标识
func (p *StoragePool) UUID() uuid.UUID {
	return p.id
}

// Name 存储池名称
func (p *StoragePool) Name() (string, error) {
	return withValue(p.ref, func(h Handle) (string, error) {
		name, err := p.conn.drv.StoragePoolName(h)
		return name, queryError("get storage pool name", err)
	})
}

// Info 状态与容量
func (p *StoragePool) Info() (StoragePoolInfo, error) {
	return withValue(p.ref, func(h Handle) (StoragePoolInfo, error) {
		info, err := p.conn.drv.StoragePoolInfo(h)
		return info, queryError("get storage pool info", err)
	})
}

// IsActive 存储池是否已启动
func (p *StoragePool) IsActive() (bool, error) {
	return withValue(p.ref, func(h Handle) (bool, error) {
		active, err := p.conn.drv.StoragePoolIsActive(h)
		return active, queryError("get storage pool active state", err)
	})
}

// State 存储池状态
func (p *StoragePool) State() (StoragePoolState, error) {
	info, err := p.Info()
	return info.State, err
}

// Capacity 总容量，单位字节
func (p *StoragePool) Capacity() (uint64, error) {
	info, err := p.Info()
	return info.Capacity, err
}

// Allocation 已分配容量
func (p *StoragePool) Allocation() (uint64, error) {
	info, err := p.Info()
	return info.Allocation, err
}

// Available 可用容量
func (p *StoragePool) Available() (uint64, error) {
	info, err := p.Info()
	return info.Available, err
}

// XML 存储池描述符，刷新和生命周期事件会使其失效
func (p *StoragePool) XML() (string, error) {
	return p.xml.Get()
}

func (p *StoragePool) fetchXML() (string, error) {
	return withValue(p.ref, func(h Handle) (string, error) {
		doc, err := p.conn.drv.StoragePoolXML(h)
		if err == nil && doc == "" {
			return "", apierrorf(ErrQueryFailed, "empty descriptor for storage pool %s", p.id)
		}
		return doc, queryError("get storage pool xml", err)
	})
}

// Descriptor 解析后的存储池描述符
func (p *StoragePool) Descriptor() (*libvirtxml.StoragePool, error) {
	doc, err := p.XML()
	if err != nil {
		return nil, err
	}
	desc := &libvirtxml.StoragePool{}
	if err := desc.Unmarshal(doc); err != nil {
		return nil, queryError("parse storage pool xml", err)
	}
	return desc, nil
}

// Refresh 让后端重新扫描存储池
func (p *StoragePool) Refresh() error {
	err := p.ref.with(func(h Handle) error {
		return queryError("refresh storage pool", p.conn.drv.RefreshStoragePool(h))
	})
	if err != nil {
		return err
	}
	p.xml.Invalidate()
	return nil
}

// Volumes 枚举存储卷，每次都从原生层获取列表，对象从缓存解析
func (p *StoragePool) Volumes() ([]*StorageVolume, error) {
	if err := p.conn.checkOpen(); err != nil {
		return nil, err
	}
	handles, err := withValue(p.ref, func(h Handle) ([]Handle, error) {
		vols, err := p.conn.drv.ListStorageVolumes(h)
		return vols, queryError("list storage volumes", err)
	})
	if err != nil {
		return nil, err
	}

	out := make([]*StorageVolume, 0, len(handles))
	for i, vh := range handles {
		v, err := p.conn.adoptVolume(vh)
		if err != nil {
			// 中止枚举，释放剩余句柄
			p.conn.freeAll(handles[i+1:])
			return nil, err
		}
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

// VolumeByName 按名称查找存储卷，不存在时返回 nil
func (p *StoragePool) VolumeByName(name string) (*StorageVolume, error) {
	if err := p.conn.checkOpen(); err != nil {
		return nil, err
	}
	h, err := withValue(p.ref, func(h Handle) (Handle, error) {
		return p.conn.drv.LookupStorageVolumeByName(h, name)
	})
	if err != nil {
		if IsNotFound(err) {
			p.log.Debug().Str("volume_name", name).Msg("storage volume not found")
			return nil, nil
		}
		return nil, queryError("lookup storage volume by name", err)
	}
	return p.conn.adoptVolume(h)
}

// Disposed 是否已释放
func (p *StoragePool) Disposed() bool {
	return p.disposed.Load()
}

// Dispose 释放原生句柄，可重复调用
func (p *StoragePool) Dispose() {
	p.disposeOnce.Do(func() {
		p.disposed.Store(true)
		if err := p.ref.release(); err != nil {
			p.log.Warn().Err(err).Msg("free storage pool handle failed")
		}
	})
}

func (p *StoragePool) handleLifecycle(ev PoolLifecycleEvent) {
	switch ev.Type {
	case PoolEventDefined, PoolEventUndefined, PoolEventStarted, PoolEventStopped, PoolEventDeleted:
		p.xml.Invalidate()
	}
}

func (p *StoragePool) handleRefresh(PoolRefreshEvent) {
	p.xml.Invalidate()
}
