package libvirt

import (
	"context"

	"github.com/digitalocean/go-libvirt"
)

// RPC 是 go-libvirt 中驱动用到的方法子集
// 用于抽象 libvirt 远程调用，便于测试和 mock
type RPC interface {
	// 连接
	ConnectToURI(uri libvirt.ConnectURI) error
	Disconnect() error
	IsConnected() bool
	ConnectGetHostname() (string, error)

	// 宿主机
	NodeGetInfo() (rModel [32]int8, rMemory uint64, rCpus int32, rMhz int32, rNodes int32, rSockets int32, rCores int32, rThreads int32, err error)
	NodeGetFreeMemory() (uint64, error)

	// Domain
	ConnectListAllDomains(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error)
	DomainLookupByID(id int32) (libvirt.Domain, error)
	DomainLookupByName(name string) (libvirt.Domain, error)
	DomainLookupByUUID(uuid libvirt.UUID) (libvirt.Domain, error)
	DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error)
	DomainGetInfo(dom libvirt.Domain) (rState uint8, rMaxMem uint64, rMemory uint64, rNrVirtCPU uint16, rCPUTime uint64, err error)
	DomainIsActive(dom libvirt.Domain) (int32, error)
	DomainGetOsType(dom libvirt.Domain) (string, error)
	DomainGetCPUStats(dom libvirt.Domain, nparams uint32, startCPU int32, ncpus uint32, flags libvirt.TypedParameterFlags) ([]libvirt.TypedParam, int32, error)
	DomainCreate(dom libvirt.Domain) error
	DomainShutdown(dom libvirt.Domain) error
	DomainReset(dom libvirt.Domain, flags uint32) error
	DomainSuspend(dom libvirt.Domain) error
	DomainResume(dom libvirt.Domain) error
	DomainManagedSave(dom libvirt.Domain, flags uint32) error
	DomainBlockStats(dom libvirt.Domain, path string) (rRdReq int64, rRdBytes int64, rWrReq int64, rWrBytes int64, rErrs int64, err error)
	DomainInterfaceAddresses(dom libvirt.Domain, source uint32, flags uint32) ([]libvirt.DomainInterface, error)

	// Storage Pool
	ConnectListAllStoragePools(needResults int32, flags libvirt.ConnectListAllStoragePoolsFlags) ([]libvirt.StoragePool, uint32, error)
	StoragePoolLookupByName(name string) (libvirt.StoragePool, error)
	StoragePoolLookupByUUID(uuid libvirt.UUID) (libvirt.StoragePool, error)
	StoragePoolLookupByVolume(vol libvirt.StorageVol) (libvirt.StoragePool, error)
	StoragePoolGetXMLDesc(pool libvirt.StoragePool, flags libvirt.StorageXMLFlags) (string, error)
	StoragePoolGetInfo(pool libvirt.StoragePool) (rState uint8, rCapacity uint64, rAllocation uint64, rAvailable uint64, err error)
	StoragePoolIsActive(pool libvirt.StoragePool) (int32, error)
	StoragePoolRefresh(pool libvirt.StoragePool, flags uint32) error
	StoragePoolListAllVolumes(pool libvirt.StoragePool, needResults int32, flags uint32) ([]libvirt.StorageVol, uint32, error)

	// Storage Volume
	StorageVolLookupByKey(key string) (libvirt.StorageVol, error)
	StorageVolLookupByName(pool libvirt.StoragePool, name string) (libvirt.StorageVol, error)
	StorageVolGetInfo(vol libvirt.StorageVol) (rType int8, rCapacity uint64, rAllocation uint64, err error)
	StorageVolGetPath(vol libvirt.StorageVol) (string, error)
	StorageVolGetXMLDesc(vol libvirt.StorageVol, flags uint32) (string, error)

	// 事件
	LifecycleEvents(ctx context.Context) (<-chan libvirt.DomainEventLifecycleMsg, error)
}

var _ RPC = (*libvirt.Libvirt)(nil)
