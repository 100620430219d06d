package libvirt

import (
	"context"

	"github.com/digitalocean/go-libvirt"
	"github.com/jimyag/jvirt/pkg/virt"
	"github.com/stretchr/testify/mock"
)

// MockRPC 是 RPC 的 mock 实现
// 用于测试，不需要真实的 libvirt 连接
type MockRPC struct {
	mock.Mock
}

var _ RPC = (*MockRPC)(nil)

// NewMockDriver 创建使用 rpc 的驱动，Open 不建立真实连接
func NewMockDriver(rpc *MockRPC, opts ...Option) *Client {
	opts = append([]Option{
		WithRPCFactory(func(context.Context, string, virt.Credentials) (RPC, error) {
			return rpc, nil
		}),
	}, opts...)
	return NewDriver(opts...)
}

// ExpectSession 允许会话存活检查和断开调用任意次数
func (m *MockRPC) ExpectSession() *MockRPC {
	m.On("IsConnected").Return(true).Maybe()
	m.On("Disconnect").Return(nil).Maybe()
	return m
}

// 连接
func (m *MockRPC) ConnectToURI(uri libvirt.ConnectURI) error {
	return m.Called(uri).Error(0)
}

func (m *MockRPC) Disconnect() error {
	return m.Called().Error(0)
}

func (m *MockRPC) IsConnected() bool {
	return m.Called().Bool(0)
}

func (m *MockRPC) ConnectGetHostname() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

// 宿主机
func (m *MockRPC) NodeGetInfo() ([32]int8, uint64, int32, int32, int32, int32, int32, int32, error) {
	args := m.Called()
	return args.Get(0).([32]int8), args.Get(1).(uint64), args.Get(2).(int32), args.Get(3).(int32),
		args.Get(4).(int32), args.Get(5).(int32), args.Get(6).(int32), args.Get(7).(int32), args.Error(8)
}

func (m *MockRPC) NodeGetFreeMemory() (uint64, error) {
	args := m.Called()
	return args.Get(0).(uint64), args.Error(1)
}

// Domain
func (m *MockRPC) ConnectListAllDomains(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error) {
	args := m.Called(needResults, flags)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]libvirt.Domain), args.Get(1).(uint32), args.Error(2)
}

func (m *MockRPC) DomainLookupByID(id int32) (libvirt.Domain, error) {
	args := m.Called(id)
	return args.Get(0).(libvirt.Domain), args.Error(1)
}

func (m *MockRPC) DomainLookupByName(name string) (libvirt.Domain, error) {
	args := m.Called(name)
	return args.Get(0).(libvirt.Domain), args.Error(1)
}

func (m *MockRPC) DomainLookupByUUID(uuid libvirt.UUID) (libvirt.Domain, error) {
	args := m.Called(uuid)
	return args.Get(0).(libvirt.Domain), args.Error(1)
}

func (m *MockRPC) DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error) {
	args := m.Called(dom, flags)
	return args.String(0), args.Error(1)
}

func (m *MockRPC) DomainGetInfo(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error) {
	args := m.Called(dom)
	return args.Get(0).(uint8), args.Get(1).(uint64), args.Get(2).(uint64), args.Get(3).(uint16), args.Get(4).(uint64), args.Error(5)
}

func (m *MockRPC) DomainIsActive(dom libvirt.Domain) (int32, error) {
	args := m.Called(dom)
	return args.Get(0).(int32), args.Error(1)
}

func (m *MockRPC) DomainGetOsType(dom libvirt.Domain) (string, error) {
	args := m.Called(dom)
	return args.String(0), args.Error(1)
}

func (m *MockRPC) DomainGetCPUStats(dom libvirt.Domain, nparams uint32, startCPU int32, ncpus uint32, flags libvirt.TypedParameterFlags) ([]libvirt.TypedParam, int32, error) {
	args := m.Called(dom, nparams, startCPU, ncpus, flags)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int32), args.Error(2)
	}
	return args.Get(0).([]libvirt.TypedParam), args.Get(1).(int32), args.Error(2)
}

func (m *MockRPC) DomainBlockStats(dom libvirt.Domain, path string) (int64, int64, int64, int64, int64, error) {
	args := m.Called(dom, path)
	return args.Get(0).(int64), args.Get(1).(int64), args.Get(2).(int64), args.Get(3).(int64), args.Get(4).(int64), args.Error(5)
}

func (m *MockRPC) DomainInterfaceAddresses(dom libvirt.Domain, source uint32, flags uint32) ([]libvirt.DomainInterface, error) {
	args := m.Called(dom, source, flags)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]libvirt.DomainInterface), args.Error(1)
}

func (m *MockRPC) DomainCreate(dom libvirt.Domain) error {
	return m.Called(dom).Error(0)
}

func (m *MockRPC) DomainShutdown(dom libvirt.Domain) error {
	return m.Called(dom).Error(0)
}

func (m *MockRPC) DomainReset(dom libvirt.Domain, flags uint32) error {
	return m.Called(dom, flags).Error(0)
}

func (m *MockRPC) DomainSuspend(dom libvirt.Domain) error {
	return m.Called(dom).Error(0)
}

func (m *MockRPC) DomainResume(dom libvirt.Domain) error {
	return m.Called(dom).Error(0)
}

func (m *MockRPC) DomainManagedSave(dom libvirt.Domain, flags uint32) error {
	return m.Called(dom, flags).Error(0)
}

// Storage Pool
func (m *MockRPC) ConnectListAllStoragePools(needResults int32, flags libvirt.ConnectListAllStoragePoolsFlags) ([]libvirt.StoragePool, uint32, error) {
	args := m.Called(needResults, flags)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]libvirt.StoragePool), args.Get(1).(uint32), args.Error(2)
}

func (m *MockRPC) StoragePoolLookupByName(name string) (libvirt.StoragePool, error) {
	args := m.Called(name)
	return args.Get(0).(libvirt.StoragePool), args.Error(1)
}

func (m *MockRPC) StoragePoolLookupByUUID(uuid libvirt.UUID) (libvirt.StoragePool, error) {
	args := m.Called(uuid)
	return args.Get(0).(libvirt.StoragePool), args.Error(1)
}

func (m *MockRPC) StoragePoolLookupByVolume(vol libvirt.StorageVol) (libvirt.StoragePool, error) {
	args := m.Called(vol)
	return args.Get(0).(libvirt.StoragePool), args.Error(1)
}

func (m *MockRPC) StoragePoolGetXMLDesc(pool libvirt.StoragePool, flags libvirt.StorageXMLFlags) (string, error) {
	args := m.Called(pool, flags)
	return args.String(0), args.Error(1)
}

func (m *MockRPC) StoragePoolGetInfo(pool libvirt.StoragePool) (uint8, uint64, uint64, uint64, error) {
	args := m.Called(pool)
	return args.Get(0).(uint8), args.Get(1).(uint64), args.Get(2).(uint64), args.Get(3).(uint64), args.Error(4)
}

func (m *MockRPC) StoragePoolIsActive(pool libvirt.StoragePool) (int32, error) {
	args := m.Called(pool)
	return args.Get(0).(int32), args.Error(1)
}

func (m *MockRPC) StoragePoolRefresh(pool libvirt.StoragePool, flags uint32) error {
	return m.Called(pool, flags).Error(0)
}

func (m *MockRPC) StoragePoolListAllVolumes(pool libvirt.StoragePool, needResults int32, flags uint32) ([]libvirt.StorageVol, uint32, error) {
	args := m.Called(pool, needResults, flags)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]libvirt.StorageVol), args.Get(1).(uint32), args.Error(2)
}

// Storage Volume
func (m *MockRPC) StorageVolLookupByKey(key string) (libvirt.StorageVol, error) {
	args := m.Called(key)
	return args.Get(0).(libvirt.StorageVol), args.Error(1)
}

func (m *MockRPC) StorageVolLookupByName(pool libvirt.StoragePool, name string) (libvirt.StorageVol, error) {
	args := m.Called(pool, name)
	return args.Get(0).(libvirt.StorageVol), args.Error(1)
}

func (m *MockRPC) StorageVolGetInfo(vol libvirt.StorageVol) (int8, uint64, uint64, error) {
	args := m.Called(vol)
	return args.Get(0).(int8), args.Get(1).(uint64), args.Get(2).(uint64), args.Error(3)
}

func (m *MockRPC) StorageVolGetPath(vol libvirt.StorageVol) (string, error) {
	args := m.Called(vol)
	return args.String(0), args.Error(1)
}

func (m *MockRPC) StorageVolGetXMLDesc(vol libvirt.StorageVol, flags uint32) (string, error) {
	args := m.Called(vol, flags)
	return args.String(0), args.Error(1)
}

// 事件
func (m *MockRPC) LifecycleEvents(ctx context.Context) (<-chan libvirt.DomainEventLifecycleMsg, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan libvirt.DomainEventLifecycleMsg), args.Error(1)
}
