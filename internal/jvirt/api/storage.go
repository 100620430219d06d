package api

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/jvirt/internal/jvirt/entity"
	"github.com/jimyag/jvirt/pkg/ginx"
)

// StorageServiceInterface 定义存储服务的接口
type StorageServiceInterface interface {
	ListStoragePools(ctx context.Context) ([]*entity.StoragePool, error)
	DescribeStoragePool(ctx context.Context, ref entity.StoragePoolRef) (*entity.StoragePool, error)
	RefreshStoragePool(ctx context.Context, ref entity.StoragePoolRef) error
	ListVolumes(ctx context.Context, ref entity.StoragePoolRef) ([]*entity.StorageVolume, error)
	DescribeVolume(ctx context.Context, ref entity.StorageVolumeRef) (*entity.StorageVolume, error)
}

// StorageAPI 存储池与存储卷 API
type StorageAPI struct {
	storageService StorageServiceInterface
}

// NewStorageAPI 创建存储 API
func NewStorageAPI(storageService StorageServiceInterface) *StorageAPI {
	return &StorageAPI{storageService: storageService}
}

// RegisterRoutes 注册路由
func (a *StorageAPI) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/list-storage-pools", ginx.Handle(a.ListStoragePools))
	r.POST("/describe-storage-pool", ginx.Handle(a.DescribeStoragePool))
	r.POST("/refresh-storage-pool", ginx.Action(a.RefreshStoragePool))
	r.POST("/list-volumes", ginx.Handle(a.ListVolumes))
	r.POST("/describe-volume", ginx.Handle(a.DescribeVolume))
}

// StoragePoolRequest 通过 pool_uuid 或 pool_name 指定存储池
type StoragePoolRequest struct {
	PoolUUID string `json:"pool_uuid" xml:"pool_uuid"`
	PoolName string `json:"pool_name" xml:"pool_name"`
}

func (r *StoragePoolRequest) IsValid() error {
	if r.PoolUUID == "" && r.PoolName == "" {
		return errors.New("pool_uuid or pool_name is required")
	}
	return nil
}

func (r *StoragePoolRequest) ref() entity.StoragePoolRef {
	return entity.StoragePoolRef{UUID: r.PoolUUID, Name: r.PoolName}
}

// ListStoragePoolsRequest 列举存储池请求
type ListStoragePoolsRequest struct{}

// ListStoragePoolsResponse 列举存储池响应
type ListStoragePoolsResponse struct {
	StoragePools []*entity.StoragePool `json:"storage_pools" xml:"storage_pools>storage_pool"`
}

// ListStoragePools 列举存储池
func (a *StorageAPI) ListStoragePools(ctx *gin.Context, _ *ListStoragePoolsRequest) (*ListStoragePoolsResponse, error) {
	pools, err := a.storageService.ListStoragePools(ctx.Request.Context())
	if err != nil {
		return nil, err
	}
	return &ListStoragePoolsResponse{StoragePools: pools}, nil
}

// DescribeStoragePoolResponse 查询存储池详情响应
type DescribeStoragePoolResponse struct {
	StoragePool *entity.StoragePool `json:"storage_pool" xml:"storage_pool"`
}

// DescribeStoragePool 查询存储池详情
func (a *StorageAPI) DescribeStoragePool(ctx *gin.Context, req *StoragePoolRequest) (*DescribeStoragePoolResponse, error) {
	pool, err := a.storageService.DescribeStoragePool(ctx.Request.Context(), req.ref())
	if err != nil {
		return nil, err
	}
	return &DescribeStoragePoolResponse{StoragePool: pool}, nil
}

// RefreshStoragePool 重新扫描存储池
func (a *StorageAPI) RefreshStoragePool(ctx *gin.Context, req *StoragePoolRequest) error {
	return a.storageService.RefreshStoragePool(ctx.Request.Context(), req.ref())
}

// ListVolumesResponse 列举存储卷响应
type ListVolumesResponse struct {
	Volumes []*entity.StorageVolume `json:"volumes" xml:"volumes>volume"`
}

// ListVolumes 列举存储池中的存储卷
func (a *StorageAPI) ListVolumes(ctx *gin.Context, req *StoragePoolRequest) (*ListVolumesResponse, error) {
	vols, err := a.storageService.ListVolumes(ctx.Request.Context(), req.ref())
	if err != nil {
		return nil, err
	}
	return &ListVolumesResponse{Volumes: vols}, nil
}

// DescribeVolumeRequest 通过 key，或 存储池 + name 指定存储卷
type DescribeVolumeRequest struct {
	Key      string `json:"key" xml:"key"`
	PoolUUID string `json:"pool_uuid" xml:"pool_uuid"`
	PoolName string `json:"pool_name" xml:"pool_name"`
	Name     string `json:"name" xml:"name"`
}

func (r *DescribeVolumeRequest) IsValid() error {
	if r.Key != "" {
		return nil
	}
	if r.Name == "" || (r.PoolUUID == "" && r.PoolName == "") {
		return errors.New("key, or pool and name are required")
	}
	return nil
}

// DescribeVolumeResponse 查询存储卷详情响应
type DescribeVolumeResponse struct {
	Volume *entity.StorageVolume `json:"volume" xml:"volume"`
}

// DescribeVolume 查询存储卷详情
func (a *StorageAPI) DescribeVolume(ctx *gin.Context, req *DescribeVolumeRequest) (*DescribeVolumeResponse, error) {
	vol, err := a.storageService.DescribeVolume(ctx.Request.Context(), entity.StorageVolumeRef{
		Key:  req.Key,
		Pool: entity.StoragePoolRef{UUID: req.PoolUUID, Name: req.PoolName},
		Name: req.Name,
	})
	if err != nil {
		return nil, err
	}
	return &DescribeVolumeResponse{Volume: vol}, nil
}
