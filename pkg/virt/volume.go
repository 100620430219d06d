package virt

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"libvirt.org/go/libvirtxml"
)

// StorageVolume 缓存的存储卷对象，以 key 为标识
type StorageVolume struct {
	conn *Connection
	key  string
	ref  *handleRef
	xml  *Lazy[string]
	log  zerolog.Logger

	disposeOnce sync.Once
	disposed    atomic.Bool
}

func newStorageVolume(conn *Connection, key string, ref *handleRef) *StorageVolume {
	v := &StorageVolume{
		conn: conn,
		key:  key,
		ref:  ref,
		log:  conn.log.With().Str("volume_key", key).Logger(),
	}
	v.xml = NewLazy(v.fetchXML)
	return v
}

// Key 存储卷的稳定标识
func (v *StorageVolume) Key() string {
	return v.key
}

// Name 存储卷名称
func (v *StorageVolume) Name() (string, error) {
	return withValue(v.ref, func(h Handle) (string, error) {
		name, err := v.conn.drv.StorageVolumeName(h)
		return name, queryError("get storage volume name", err)
	})
}

// Path 存储卷在宿主机上的路径
func (v *StorageVolume) Path() (string, error) {
	return withValue(v.ref, func(h Handle) (string, error) {
		path, err := v.conn.drv.StorageVolumePath(h)
		return path, queryError("get storage volume path", err)
	})
}

// Info 类型与容量
func (v *StorageVolume) Info() (StorageVolumeInfo, error) {
	return withValue(v.ref, func(h Handle) (StorageVolumeInfo, error) {
		info, err := v.conn.drv.StorageVolumeInfo(h)
		return info, queryError("get storage volume info", err)
	})
}

// Type 存储卷类型
func (v *StorageVolume) Type() (StorageVolumeType, error) {
	info, err := v.Info()
	if err != nil {
		return StorageVolumeFile, err
	}
	return info.Type, nil
}

// Capacity 逻辑容量，单位字节
func (v *StorageVolume) Capacity() (uint64, error) {
	info, err := v.Info()
	return info.Capacity, err
}

// Allocation 实际占用
func (v *StorageVolume) Allocation() (uint64, error) {
	info, err := v.Info()
	return info.Allocation, err
}

// XML 存储卷描述符
func (v *StorageVolume) XML() (string, error) {
	return v.xml.Get()
}

func (v *StorageVolume) fetchXML() (string, error) {
	return withValue(v.ref, func(h Handle) (string, error) {
		doc, err := v.conn.drv.StorageVolumeXML(h)
		if err == nil && doc == "" {
			return "", apierrorf(ErrQueryFailed, "empty descriptor for storage volume %s", v.key)
		}
		return doc, queryError("get storage volume xml", err)
	})
}

// Descriptor 解析后的存储卷描述符
func (v *StorageVolume) Descriptor() (*libvirtxml.StorageVolume, error) {
	doc, err := v.XML()
	if err != nil {
		return nil, err
	}
	desc := &libvirtxml.StorageVolume{}
	if err := desc.Unmarshal(doc); err != nil {
		return nil, queryError("parse storage volume xml", err)
	}
	return desc, nil
}

// Pool 所属存储池，从连接缓存解析
func (v *StorageVolume) Pool() (*StoragePool, error) {
	if err := v.conn.checkOpen(); err != nil {
		return nil, err
	}
	h, err := withValue(v.ref, func(h Handle) (Handle, error) {
		return v.conn.drv.StoragePoolOfVolume(h)
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, queryError("lookup storage pool of volume", err)
	}
	return v.conn.adoptPool(h)
}

// PoolUUID 所属存储池的标识
func (v *StorageVolume) PoolUUID() (uuid.UUID, error) {
	pool, err := v.Pool()
	if err != nil || pool == nil {
		return uuid.Nil, err
	}
	return pool.UUID(), nil
}

// Disposed 是否已释放
func (v *StorageVolume) Disposed() bool {
	return v.disposed.Load()
}

// Dispose 释放原生句柄，可重复调用
func (v *StorageVolume) Dispose() {
	v.disposeOnce.Do(func() {
		v.disposed.Store(true)
		if err := v.ref.release(); err != nil {
			v.log.Warn().Err(err).Msg("free storage volume handle failed")
		}
	})
}
