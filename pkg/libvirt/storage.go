package libvirt

import (
	"github.com/digitalocean/go-libvirt"
	"github.com/jimyag/jvirt/pkg/virt"
)

func (c *Client) listPools(flags libvirt.ConnectListAllStoragePoolsFlags, msg string) ([]string, error) {
	rpc, err := c.session()
	if err != nil {
		return nil, err
	}
	pools, _, err := rpc.ConnectListAllStoragePools(1, flags)
	if err != nil {
		return nil, mapError(msg, err)
	}
	names := make([]string, 0, len(pools))
	for _, p := range pools {
		names = append(names, p.Name)
	}
	return names, nil
}

// ListActiveStoragePools 运行中存储池的名称
func (c *Client) ListActiveStoragePools() ([]string, error) {
	return c.listPools(libvirt.ConnectListStoragePoolsActive, "list active storage pools")
}

// ListDefinedStoragePools 已定义未运行存储池的名称
func (c *Client) ListDefinedStoragePools() ([]string, error) {
	return c.listPools(libvirt.ConnectListStoragePoolsInactive, "list defined storage pools")
}

func (c *Client) LookupStoragePoolByName(name string) (virt.Handle, error) {
	rpc, err := c.session()
	if err != nil {
		return nil, err
	}
	pool, err := rpc.StoragePoolLookupByName(name)
	if err != nil {
		return nil, mapError("lookup storage pool by name", err)
	}
	return c.poolHandle(pool), nil
}

func (c *Client) LookupStoragePoolByUUID(raw []byte) (virt.Handle, error) {
	rpc, err := c.session()
	if err != nil {
		return nil, err
	}
	id, err := toUUID(raw)
	if err != nil {
		return nil, err
	}
	pool, err := rpc.StoragePoolLookupByUUID(id)
	if err != nil {
		return nil, mapError("lookup storage pool by uuid", err)
	}
	return c.poolHandle(pool), nil
}

func (c *Client) StoragePoolUUID(h virt.Handle) ([]byte, error) {
	pool, err := poolOf(h)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(pool.UUID))
	copy(out, pool.UUID[:])
	return out, nil
}

func (c *Client) StoragePoolName(h virt.Handle) (string, error) {
	pool, err := poolOf(h)
	if err != nil {
		return "", err
	}
	return pool.Name, nil
}

func (c *Client) StoragePoolXML(h virt.Handle) (string, error) {
	pool, err := poolOf(h)
	if err != nil {
		return "", err
	}
	rpc, err := c.session()
	if err != nil {
		return "", err
	}
	xml, err := rpc.StoragePoolGetXMLDesc(pool, 0)
	if err != nil {
		return "", mapError("get storage pool xml", err)
	}
	return xml, nil
}

func (c *Client) StoragePoolInfo(h virt.Handle) (virt.StoragePoolInfo, error) {
	pool, err := poolOf(h)
	if err != nil {
		return virt.StoragePoolInfo{}, err
	}
	rpc, err := c.session()
	if err != nil {
		return virt.StoragePoolInfo{}, err
	}
	state, capacity, allocation, available, err := rpc.StoragePoolGetInfo(pool)
	if err != nil {
		return virt.StoragePoolInfo{}, mapError("get storage pool info", err)
	}
	return virt.StoragePoolInfo{
		State:      virt.StoragePoolState(state),
		Capacity:   capacity,
		Allocation: allocation,
		Available:  available,
	}, nil
}

func (c *Client) StoragePoolIsActive(h virt.Handle) (bool, error) {
	pool, err := poolOf(h)
	if err != nil {
		return false, err
	}
	rpc, err := c.session()
	if err != nil {
		return false, err
	}
	active, err := rpc.StoragePoolIsActive(pool)
	if err != nil {
		return false, mapError("get storage pool active state", err)
	}
	return active == 1, nil
}

func (c *Client) RefreshStoragePool(h virt.Handle) error {
	pool, err := poolOf(h)
	if err != nil {
		return err
	}
	rpc, err := c.session()
	if err != nil {
		return err
	}
	return mapError("refresh storage pool", rpc.StoragePoolRefresh(pool, 0))
}

// ListStorageVolumes 存储池中的卷，每个句柄都计入一次引用
func (c *Client) ListStorageVolumes(ph virt.Handle) ([]virt.Handle, error) {
	pool, err := poolOf(ph)
	if err != nil {
		return nil, err
	}
	rpc, err := c.session()
	if err != nil {
		return nil, err
	}
	vols, _, err := rpc.StoragePoolListAllVolumes(pool, 1, 0)
	if err != nil {
		return nil, mapError("list storage volumes", err)
	}
	out := make([]virt.Handle, 0, len(vols))
	for _, v := range vols {
		out = append(out, c.volumeHandle(v))
	}
	return out, nil
}

func (c *Client) LookupStorageVolumeByKey(key string) (virt.Handle, error) {
	rpc, err := c.session()
	if err != nil {
		return nil, err
	}
	vol, err := rpc.StorageVolLookupByKey(key)
	if err != nil {
		return nil, mapError("lookup storage volume by key", err)
	}
	return c.volumeHandle(vol), nil
}

func (c *Client) LookupStorageVolumeByName(ph virt.Handle, name string) (virt.Handle, error) {
	pool, err := poolOf(ph)
	if err != nil {
		return nil, err
	}
	rpc, err := c.session()
	if err != nil {
		return nil, err
	}
	vol, err := rpc.StorageVolLookupByName(pool, name)
	if err != nil {
		return nil, mapError("lookup storage volume by name", err)
	}
	return c.volumeHandle(vol), nil
}

func (c *Client) StoragePoolOfVolume(h virt.Handle) (virt.Handle, error) {
	vol, err := volumeOf(h)
	if err != nil {
		return nil, err
	}
	rpc, err := c.session()
	if err != nil {
		return nil, err
	}
	pool, err := rpc.StoragePoolLookupByVolume(vol)
	if err != nil {
		return nil, mapError("lookup storage pool of volume", err)
	}
	return c.poolHandle(pool), nil
}

func (c *Client) StorageVolumeKey(h virt.Handle) (string, error) {
	vol, err := volumeOf(h)
	if err != nil {
		return "", err
	}
	return vol.Key, nil
}

func (c *Client) StorageVolumeName(h virt.Handle) (string, error) {
	vol, err := volumeOf(h)
	if err != nil {
		return "", err
	}
	return vol.Name, nil
}

func (c *Client) StorageVolumePath(h virt.Handle) (string, error) {
	vol, err := volumeOf(h)
	if err != nil {
		return "", err
	}
	rpc, err := c.session()
	if err != nil {
		return "", err
	}
	path, err := rpc.StorageVolGetPath(vol)
	if err != nil {
		return "", mapError("get storage volume path", err)
	}
	return path, nil
}

func (c *Client) StorageVolumeXML(h virt.Handle) (string, error) {
	vol, err := volumeOf(h)
	if err != nil {
		return "", err
	}
	rpc, err := c.session()
	if err != nil {
		return "", err
	}
	xml, err := rpc.StorageVolGetXMLDesc(vol, 0)
	if err != nil {
		return "", mapError("get storage volume xml", err)
	}
	return xml, nil
}

func (c *Client) StorageVolumeInfo(h virt.Handle) (virt.StorageVolumeInfo, error) {
	vol, err := volumeOf(h)
	if err != nil {
		return virt.StorageVolumeInfo{}, err
	}
	rpc, err := c.session()
	if err != nil {
		return virt.StorageVolumeInfo{}, err
	}
	typ, capacity, allocation, err := rpc.StorageVolGetInfo(vol)
	if err != nil {
		return virt.StorageVolumeInfo{}, mapError("get storage volume info", err)
	}
	return virt.StorageVolumeInfo{
		Type:       virt.StorageVolumeType(typ),
		Capacity:   capacity,
		Allocation: allocation,
	}, nil
}
