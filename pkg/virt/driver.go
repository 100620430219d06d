package virt

import (
	"context"
)

// Handle 是驱动层返回的对象句柄，由驱动自行解释
// 句柄值本身不稳定，不能作为缓存 key
type Handle any

// XMLFlags 描述符获取标志
type XMLFlags uint32

const (
	XMLSecure   XMLFlags = 1 << 0
	XMLInactive XMLFlags = 1 << 1
)

// DomainOp 域控制操作
type DomainOp int

const (
	DomainOpCreate DomainOp = iota
	DomainOpShutdown
	DomainOpReset
	DomainOpSuspend
	DomainOpResume
	DomainOpManagedSave
)

func (op DomainOp) String() string {
	switch op {
	case DomainOpCreate:
		return "create"
	case DomainOpShutdown:
		return "shutdown"
	case DomainOpReset:
		return "reset"
	case DomainOpSuspend:
		return "suspend"
	case DomainOpResume:
		return "resume"
	case DomainOpManagedSave:
		return "managed-save"
	default:
		return "unknown"
	}
}

// DomainInfo 域基本信息
type DomainInfo struct {
	State     DomainState
	MaxMemKB  uint64
	MemoryKB  uint64
	VCPUs     uint16
	CPUTimeNs uint64
}

// CPUStats 累计 CPU 时间，单位纳秒
type CPUStats struct {
	CPUTime    uint64
	SystemTime uint64
	UserTime   uint64
}

// BlockStats 单个磁盘的累计 I/O 计数
type BlockStats struct {
	ReadRequests  int64
	ReadBytes     int64
	WriteRequests int64
	WriteBytes    int64
	Errors        int64
}

// IPAddressType 地址族，取值与 libvirt 一致
type IPAddressType int32

const (
	IPAddressV4 IPAddressType = iota
	IPAddressV6
)

func (t IPAddressType) String() string {
	switch t {
	case IPAddressV4:
		return "ipv4"
	case IPAddressV6:
		return "ipv6"
	default:
		return "unknown"
	}
}

// IPAddress 网卡上的一个地址
type IPAddress struct {
	Type   IPAddressType
	Addr   string
	Prefix uint32
}

// InterfaceAddress 客户机网卡及其地址，由 guest agent 上报
type InterfaceAddress struct {
	Name   string
	HWAddr string
	Addrs  []IPAddress
}

// StoragePoolInfo 存储池信息
type StoragePoolInfo struct {
	State      StoragePoolState
	Capacity   uint64
	Allocation uint64
	Available  uint64
}

// StorageVolumeInfo 存储卷信息
type StorageVolumeInfo struct {
	Type       StorageVolumeType
	Capacity   uint64
	Allocation uint64
}

// NodeInfo 宿主机硬件信息
type NodeInfo struct {
	Model    string
	MemoryKB uint64
	CPUs     int32
	MHz      int32
	Nodes    int32
	Sockets  int32
	Cores    int32
	Threads  int32
}

// Credentials 连接认证信息，Username 为空时使用本地认证
type Credentials struct {
	Username string
	Password string
}

// IsLocal 是否使用本地认证
func (c Credentials) IsLocal() bool {
	return c.Username == ""
}

// EventCallback 驱动在 RunOneIteration 中回调，h 为受影响对象的句柄
type EventCallback func(h Handle, event, detail int32)

// Driver 是原生虚拟化库的抽象边界
//
// 查找类方法在对象不存在时返回 ErrNotFound。
// 查找和枚举返回的句柄已为调用方计入一次引用，不再使用时必须 Free；
// EventCallback 传入的句柄是借用的，需要保留时先 Ref。
type Driver interface {
	// 会话
	Open(ctx context.Context, uri string, cred Credentials) error
	Close() error
	IsAlive() bool
	SetKeepAlive(interval, count int) error

	// 引用计数
	Ref(h Handle) error
	Free(h Handle) error

	// 域
	ListActiveDomainIDs() ([]int32, error)
	ListDefinedDomainNames() ([]string, error)
	LookupDomainByID(id int32) (Handle, error)
	LookupDomainByName(name string) (Handle, error)
	LookupDomainByUUID(uuid []byte) (Handle, error)
	DomainUUID(h Handle) ([]byte, error)
	DomainName(h Handle) (string, error)
	DomainID(h Handle) (int32, error)
	DomainIsActive(h Handle) (bool, error)
	DomainXML(h Handle, flags XMLFlags) (string, error)
	DomainInfo(h Handle) (DomainInfo, error)
	DomainOSType(h Handle) (string, error)
	DomainCPUStats(h Handle) (CPUStats, error)
	DomainControl(h Handle, op DomainOp) error
	DomainMonitorCommand(h Handle, cmd string) (string, error)
	// DomainBlockStats dev 为磁盘的 target 名，如 vda
	DomainBlockStats(h Handle, dev string) (BlockStats, error)
	// DomainInterfaceAddresses 地址来源为 guest agent
	DomainInterfaceAddresses(h Handle) ([]InterfaceAddress, error)

	// 存储池
	ListActiveStoragePools() ([]string, error)
	ListDefinedStoragePools() ([]string, error)
	LookupStoragePoolByName(name string) (Handle, error)
	LookupStoragePoolByUUID(uuid []byte) (Handle, error)
	StoragePoolUUID(h Handle) ([]byte, error)
	StoragePoolName(h Handle) (string, error)
	StoragePoolXML(h Handle) (string, error)
	StoragePoolInfo(h Handle) (StoragePoolInfo, error)
	StoragePoolIsActive(h Handle) (bool, error)
	RefreshStoragePool(h Handle) error

	// 存储卷
	ListStorageVolumes(pool Handle) ([]Handle, error)
	LookupStorageVolumeByKey(key string) (Handle, error)
	LookupStorageVolumeByName(pool Handle, name string) (Handle, error)
	StoragePoolOfVolume(h Handle) (Handle, error)
	StorageVolumeKey(h Handle) (string, error)
	StorageVolumeName(h Handle) (string, error)
	StorageVolumePath(h Handle) (string, error)
	StorageVolumeXML(h Handle) (string, error)
	StorageVolumeInfo(h Handle) (StorageVolumeInfo, error)

	// 宿主机
	Hostname() (string, error)
	NodeInfo() (NodeInfo, error)
	NodeFreeMemory() (uint64, error)

	// 事件
	RegisterEvent(category EventCategory, cb EventCallback) (int, error)
	DeregisterEvent(id int) error
	// RunOneIteration 阻塞直到至少一个已注册事件被回调或内部超时
	RunOneIteration(ctx context.Context) error
}
