package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jimyag/jvirt/internal/jvirt/entity"
	"github.com/jimyag/jvirt/pkg/apierror"
	"github.com/jimyag/jvirt/pkg/virt"
	"github.com/rs/zerolog"
)

// StorageService 存储池与存储卷查询
type StorageService struct {
	conn *virt.Connection
}

// NewStorageService 创建存储服务
func NewStorageService(conn *virt.Connection) *StorageService {
	return &StorageService{conn: conn}
}

func (s *StorageService) resolvePool(ref entity.StoragePoolRef) (*virt.StoragePool, error) {
	var (
		p   *virt.StoragePool
		err error
		key string
	)
	switch {
	case ref.UUID != "":
		id, perr := parseUUID(ref.UUID)
		if perr != nil {
			return nil, perr
		}
		key = ref.UUID
		p, err = s.conn.StoragePoolByUUID(id, false)
	case ref.Name != "":
		key = ref.Name
		p, err = s.conn.StoragePoolByName(ref.Name)
	default:
		return nil, apierror.WrapError(apierror.ErrMissingParameter, "pool uuid or name is required", nil)
	}
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFound(apierror.ErrStoragePoolNotFound, "storage pool", key)
	}
	return p, nil
}

func (s *StorageService) resolveVolume(ref entity.StorageVolumeRef) (*virt.StorageVolume, error) {
	if ref.Key != "" {
		v, err := s.conn.StorageVolumeByKey(ref.Key)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, notFound(apierror.ErrStorageVolumeNotFound, "storage volume", ref.Key)
		}
		return v, nil
	}
	if ref.Name == "" {
		return nil, apierror.WrapError(apierror.ErrMissingParameter, "volume key or pool and name are required", nil)
	}

	p, err := s.resolvePool(ref.Pool)
	if err != nil {
		return nil, err
	}
	v, err := p.VolumeByName(ref.Name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, notFound(apierror.ErrStorageVolumeNotFound, "storage volume", ref.Name)
	}
	return v, nil
}

// ListStoragePools 列出运行中和已定义的存储池
func (s *StorageService) ListStoragePools(ctx context.Context) ([]*entity.StoragePool, error) {
	pools, err := s.conn.StoragePools()
	if err != nil {
		return nil, err
	}
	out := make([]*entity.StoragePool, 0, len(pools))
	for _, p := range pools {
		e, err := poolEntity(p)
		if err != nil {
			if p.Disposed() || virt.IsNotFound(err) {
				zerolog.Ctx(ctx).Debug().Str("pool_uuid", p.UUID().String()).Msg("skip vanished storage pool")
				continue
			}
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// DescribeStoragePool 查询存储池详情
func (s *StorageService) DescribeStoragePool(ctx context.Context, ref entity.StoragePoolRef) (*entity.StoragePool, error) {
	p, err := s.resolvePool(ref)
	if err != nil {
		return nil, err
	}
	return poolEntity(p)
}

// RefreshStoragePool 重新扫描存储池
func (s *StorageService) RefreshStoragePool(ctx context.Context, ref entity.StoragePoolRef) error {
	p, err := s.resolvePool(ref)
	if err != nil {
		return err
	}
	if err := p.Refresh(); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("pool_uuid", p.UUID().String()).Msg("storage pool refreshed")
	return nil
}

// ListVolumes 列出存储池中的存储卷
func (s *StorageService) ListVolumes(ctx context.Context, ref entity.StoragePoolRef) ([]*entity.StorageVolume, error) {
	p, err := s.resolvePool(ref)
	if err != nil {
		return nil, err
	}
	vols, err := p.Volumes()
	if err != nil {
		return nil, err
	}
	out := make([]*entity.StorageVolume, 0, len(vols))
	for _, v := range vols {
		e, err := volumeEntity(v)
		if err != nil {
			return nil, err
		}
		e.PoolUUID = p.UUID().String()
		out = append(out, e)
	}
	return out, nil
}

// DescribeVolume 查询存储卷详情
func (s *StorageService) DescribeVolume(ctx context.Context, ref entity.StorageVolumeRef) (*entity.StorageVolume, error) {
	v, err := s.resolveVolume(ref)
	if err != nil {
		return nil, err
	}
	e, err := volumeEntity(v)
	if err != nil {
		return nil, err
	}
	poolID, err := v.PoolUUID()
	if err != nil {
		return nil, err
	}
	if poolID != uuid.Nil {
		e.PoolUUID = poolID.String()
	}
	return e, nil
}

func poolEntity(p *virt.StoragePool) (*entity.StoragePool, error) {
	name, err := p.Name()
	if err != nil {
		return nil, err
	}
	info, err := p.Info()
	if err != nil {
		return nil, err
	}
	active, err := p.IsActive()
	if err != nil {
		return nil, err
	}
	desc, err := p.Descriptor()
	if err != nil {
		return nil, err
	}

	e := &entity.StoragePool{
		UUID:       p.UUID().String(),
		Name:       name,
		State:      info.State.String(),
		Active:     active,
		Capacity:   info.Capacity,
		Allocation: info.Allocation,
		Available:  info.Available,
		Type:       desc.Type,
	}
	if desc.Target != nil {
		e.Path = desc.Target.Path
	}
	return e, nil
}

func volumeEntity(v *virt.StorageVolume) (*entity.StorageVolume, error) {
	name, err := v.Name()
	if err != nil {
		return nil, err
	}
	path, err := v.Path()
	if err != nil {
		return nil, err
	}
	info, err := v.Info()
	if err != nil {
		return nil, err
	}
	desc, err := v.Descriptor()
	if err != nil {
		return nil, err
	}

	e := &entity.StorageVolume{
		Key:        v.Key(),
		Name:       name,
		Path:       path,
		Type:       info.Type.String(),
		Capacity:   info.Capacity,
		Allocation: info.Allocation,
	}
	if desc.Target != nil && desc.Target.Format != nil {
		e.Format = desc.Target.Format.Type
	}
	return e, nil
}
