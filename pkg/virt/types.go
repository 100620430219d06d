package virt

import (
	"github.com/google/uuid"
)

// EventCategory 事件类别，每个类别向驱动注册一个回调
type EventCategory int

const (
	EventDomainLifecycle EventCategory = iota
	EventPoolLifecycle
	EventPoolRefresh
)

func (c EventCategory) String() string {
	switch c {
	case EventDomainLifecycle:
		return "domain-lifecycle"
	case EventPoolLifecycle:
		return "pool-lifecycle"
	case EventPoolRefresh:
		return "pool-refresh"
	default:
		return "unknown"
	}
}

// DomainEventType 域生命周期事件类型，取值与 libvirt 一致
type DomainEventType int32

const (
	DomainEventDefined DomainEventType = iota
	DomainEventUndefined
	DomainEventStarted
	DomainEventSuspended
	DomainEventResumed
	DomainEventStopped
	DomainEventShutdown
	DomainEventPMSuspended
	DomainEventCrashed
)

func (t DomainEventType) String() string {
	switch t {
	case DomainEventDefined:
		return "defined"
	case DomainEventUndefined:
		return "undefined"
	case DomainEventStarted:
		return "started"
	case DomainEventSuspended:
		return "suspended"
	case DomainEventResumed:
		return "resumed"
	case DomainEventStopped:
		return "stopped"
	case DomainEventShutdown:
		return "shutdown"
	case DomainEventPMSuspended:
		return "pmsuspended"
	case DomainEventCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// PoolEventType 存储池生命周期事件类型，取值与 libvirt 一致
type PoolEventType int32

const (
	PoolEventDefined PoolEventType = iota
	PoolEventUndefined
	PoolEventStarted
	PoolEventStopped
	PoolEventCreated
	PoolEventDeleted
)

func (t PoolEventType) String() string {
	switch t {
	case PoolEventDefined:
		return "defined"
	case PoolEventUndefined:
		return "undefined"
	case PoolEventStarted:
		return "started"
	case PoolEventStopped:
		return "stopped"
	case PoolEventCreated:
		return "created"
	case PoolEventDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// DomainLifecycleEvent 域生命周期事件
type DomainLifecycleEvent struct {
	ID     uuid.UUID
	Type   DomainEventType
	Detail int32
}

// removal 事件是否表示对象被永久移除
func (e DomainLifecycleEvent) removal() bool {
	return e.Type == DomainEventUndefined
}

// PoolLifecycleEvent 存储池生命周期事件
type PoolLifecycleEvent struct {
	ID     uuid.UUID
	Type   PoolEventType
	Detail int32
}

// Deleted 只删除了底层存储，池定义仍在，可以重新 build
func (e PoolLifecycleEvent) removal() bool {
	return e.Type == PoolEventUndefined
}

// PoolRefreshEvent 存储池刷新事件
type PoolRefreshEvent struct {
	ID uuid.UUID
}

func (PoolRefreshEvent) removal() bool {
	return false
}

// DomainState 域运行状态，取值与 libvirt 一致
type DomainState int32

const (
	DomainStateNoState DomainState = iota
	DomainStateRunning
	DomainStateBlocked
	DomainStatePaused
	DomainStateShutdown
	DomainStateShutoff
	DomainStateCrashed
	DomainStatePMSuspended
)

func (s DomainState) String() string {
	switch s {
	case DomainStateNoState:
		return "nostate"
	case DomainStateRunning:
		return "running"
	case DomainStateBlocked:
		return "blocked"
	case DomainStatePaused:
		return "paused"
	case DomainStateShutdown:
		return "shutdown"
	case DomainStateShutoff:
		return "shutoff"
	case DomainStateCrashed:
		return "crashed"
	case DomainStatePMSuspended:
		return "pmsuspended"
	default:
		return "unknown"
	}
}

// StoragePoolState 存储池状态
type StoragePoolState int32

const (
	StoragePoolInactive StoragePoolState = iota
	StoragePoolBuilding
	StoragePoolRunning
	StoragePoolDegraded
	StoragePoolInaccessible
)

func (s StoragePoolState) String() string {
	switch s {
	case StoragePoolInactive:
		return "inactive"
	case StoragePoolBuilding:
		return "building"
	case StoragePoolRunning:
		return "running"
	case StoragePoolDegraded:
		return "degraded"
	case StoragePoolInaccessible:
		return "inaccessible"
	default:
		return "unknown"
	}
}

// StorageVolumeType 存储卷类型
type StorageVolumeType int32

const (
	StorageVolumeFile StorageVolumeType = iota
	StorageVolumeBlock
	StorageVolumeDir
	StorageVolumeNetwork
	StorageVolumeNetDir
	StorageVolumePloop
)

func (t StorageVolumeType) String() string {
	switch t {
	case StorageVolumeFile:
		return "file"
	case StorageVolumeBlock:
		return "block"
	case StorageVolumeDir:
		return "dir"
	case StorageVolumeNetwork:
		return "network"
	case StorageVolumeNetDir:
		return "netdir"
	case StorageVolumePloop:
		return "ploop"
	default:
		return "unknown"
	}
}

// parseIdentity 把驱动返回的原始 16 字节转换为 UUID，长度不符或全零视为无效
func parseIdentity(raw []byte) (uuid.UUID, bool) {
	id, err := uuid.FromBytes(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
