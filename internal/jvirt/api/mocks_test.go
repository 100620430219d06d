package api

import (
	"context"
	"net/http"

	"github.com/jimyag/jvirt/internal/jvirt/entity"
	"github.com/jimyag/jvirt/internal/jvirt/repository"
	"github.com/jimyag/jvirt/pkg/virt"
	"github.com/stretchr/testify/mock"
)

// MockDomainService 是 DomainService 的 mock 实现
type MockDomainService struct {
	mock.Mock
}

func (m *MockDomainService) ListDomains(ctx context.Context) ([]*entity.Domain, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Domain), args.Error(1)
}

func (m *MockDomainService) DescribeDomain(ctx context.Context, ref entity.DomainRef) (*entity.Domain, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Domain), args.Error(1)
}

func (m *MockDomainService) DescribeDomainXML(ctx context.Context, ref entity.DomainRef) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

func (m *MockDomainService) ControlDomain(ctx context.Context, ref entity.DomainRef, op virt.DomainOp) error {
	return m.Called(ctx, ref, op).Error(0)
}

func (m *MockDomainService) SetConsolePassword(ctx context.Context, ref entity.DomainRef, password string) error {
	return m.Called(ctx, ref, password).Error(0)
}

func (m *MockDomainService) DescribeDomainMetrics(ctx context.Context, ref entity.DomainRef, withHistory bool) (*entity.DomainMetrics, error) {
	args := m.Called(ctx, ref, withHistory)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.DomainMetrics), args.Error(1)
}

func (m *MockDomainService) ConsoleTarget(ctx context.Context, ref entity.DomainRef) (*entity.ConsoleTarget, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ConsoleTarget), args.Error(1)
}

func (m *MockDomainService) DescribeDomainRuntime(ctx context.Context, ref entity.DomainRef) (*entity.DomainRuntime, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.DomainRuntime), args.Error(1)
}

// MockStorageService 是 StorageService 的 mock 实现
type MockStorageService struct {
	mock.Mock
}

func (m *MockStorageService) ListStoragePools(ctx context.Context) ([]*entity.StoragePool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.StoragePool), args.Error(1)
}

func (m *MockStorageService) DescribeStoragePool(ctx context.Context, ref entity.StoragePoolRef) (*entity.StoragePool, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.StoragePool), args.Error(1)
}

func (m *MockStorageService) RefreshStoragePool(ctx context.Context, ref entity.StoragePoolRef) error {
	return m.Called(ctx, ref).Error(0)
}

func (m *MockStorageService) ListVolumes(ctx context.Context, ref entity.StoragePoolRef) ([]*entity.StorageVolume, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.StorageVolume), args.Error(1)
}

func (m *MockStorageService) DescribeVolume(ctx context.Context, ref entity.StorageVolumeRef) (*entity.StorageVolume, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.StorageVolume), args.Error(1)
}

// MockNodeService 是 NodeService 的 mock 实现
type MockNodeService struct {
	mock.Mock
}

func (m *MockNodeService) DescribeNode(ctx context.Context, refresh bool) (*entity.Node, error) {
	args := m.Called(ctx, refresh)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Node), args.Error(1)
}

// MockEventService 是 EventService 的 mock 实现
type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) ListEvents(ctx context.Context, filter repository.EventFilter) ([]*entity.Event, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Event), args.Error(1)
}

// MockMetricsService 是 MetricsService 的 mock 实现
type MockMetricsService struct {
	mock.Mock
}

func (m *MockMetricsService) SetMetricsInterval(ctx context.Context, seconds int) error {
	return m.Called(ctx, seconds).Error(0)
}

func (m *MockMetricsService) MetricsInterval(ctx context.Context) int {
	return m.Called(ctx).Int(0)
}

func (m *MockMetricsService) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("jvirt_cache_objects{kind=\"domain\"} 1\n"))
	})
}
