package service

import (
	"context"
	"errors"
	"testing"

	golibvirt "github.com/digitalocean/go-libvirt"
	"github.com/jimyag/jvirt/internal/jvirt/entity"
	"github.com/jimyag/jvirt/pkg/apierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageService_ListStoragePools(t *testing.T) {
	t.Parallel()

	conn, rpc, _ := openConn(t, connOptions{})
	expectStorage(rpc)
	rpc.On("ConnectListAllStoragePools", int32(1), golibvirt.ConnectListStoragePoolsActive).
		Return([]golibvirt.StoragePool{testPool}, uint32(1), nil)
	rpc.On("ConnectListAllStoragePools", int32(1), golibvirt.ConnectListStoragePoolsInactive).
		Return([]golibvirt.StoragePool{}, uint32(0), nil)

	pools, err := NewStorageService(conn).ListStoragePools(context.Background())
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Equal(t, &entity.StoragePool{
		UUID:       testPoolUUID,
		Name:       "default",
		State:      "running",
		Active:     true,
		Capacity:   100,
		Allocation: 40,
		Available:  60,
		Type:       "dir",
		Path:       "/var/lib/libvirt/images",
	}, pools[0])
}

func TestStorageService_DescribeStoragePool(t *testing.T) {
	t.Parallel()

	conn, rpc, _ := openConn(t, connOptions{})
	expectStorage(rpc)
	rpc.On("StoragePoolLookupByName", "missing").
		Return(golibvirt.StoragePool{}, golibvirt.Error{Code: uint32(golibvirt.ErrNoStoragePool)})
	svc := NewStorageService(conn)

	testcases := []struct {
		name    string
		ref     entity.StoragePoolRef
		wantErr *apierror.Error
	}{
		{name: "by uuid", ref: entity.StoragePoolRef{UUID: testPoolUUID}},
		{name: "by name", ref: entity.StoragePoolRef{Name: "default"}},
		{name: "missing", ref: entity.StoragePoolRef{Name: "missing"}, wantErr: apierror.ErrStoragePoolNotFound},
		{name: "empty", ref: entity.StoragePoolRef{}, wantErr: apierror.ErrMissingParameter},
	}
	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, err := svc.DescribeStoragePool(context.Background(), tc.ref)
			if tc.wantErr != nil {
				assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "default", p.Name)
		})
	}
}

func TestStorageService_RefreshStoragePool(t *testing.T) {
	t.Parallel()

	conn, rpc, _ := openConn(t, connOptions{})
	expectStorage(rpc)
	rpc.On("StoragePoolRefresh", testPool, uint32(0)).Return(nil).Once()

	require.NoError(t, NewStorageService(conn).RefreshStoragePool(context.Background(), entity.StoragePoolRef{Name: "default"}))
	rpc.AssertCalled(t, "StoragePoolRefresh", testPool, uint32(0))
}

func TestStorageService_ListVolumes(t *testing.T) {
	t.Parallel()

	conn, rpc, _ := openConn(t, connOptions{})
	expectStorage(rpc)

	vols, err := NewStorageService(conn).ListVolumes(context.Background(), entity.StoragePoolRef{Name: "default"})
	require.NoError(t, err)
	require.Len(t, vols, 1)
	assert.Equal(t, &entity.StorageVolume{
		Key:        testVol.Key,
		Name:       "disk.qcow2",
		Path:       testVol.Key,
		Type:       "file",
		Capacity:   10,
		Allocation: 4,
		Format:     "qcow2",
		PoolUUID:   testPoolUUID,
	}, vols[0])
}

func TestStorageService_DescribeVolume(t *testing.T) {
	t.Parallel()

	conn, rpc, _ := openConn(t, connOptions{})
	expectStorage(rpc)
	rpc.On("StorageVolLookupByKey", "missing").
		Return(golibvirt.StorageVol{}, golibvirt.Error{Code: uint32(golibvirt.ErrNoStorageVol)})
	svc := NewStorageService(conn)

	testcases := []struct {
		name    string
		ref     entity.StorageVolumeRef
		wantErr *apierror.Error
	}{
		{name: "by key", ref: entity.StorageVolumeRef{Key: testVol.Key}},
		{name: "by pool and name", ref: entity.StorageVolumeRef{Pool: entity.StoragePoolRef{Name: "default"}, Name: "disk.qcow2"}},
		{name: "missing key", ref: entity.StorageVolumeRef{Key: "missing"}, wantErr: apierror.ErrStorageVolumeNotFound},
		{name: "no key or name", ref: entity.StorageVolumeRef{}, wantErr: apierror.ErrMissingParameter},
	}
	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v, err := svc.DescribeVolume(context.Background(), tc.ref)
			if tc.wantErr != nil {
				assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testVol.Key, v.Key)
			assert.Equal(t, "qcow2", v.Format)
			assert.Equal(t, testPoolUUID, v.PoolUUID)
		})
	}
}
