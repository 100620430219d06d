package entity

// StoragePool 存储池信息
type StoragePool struct {
	UUID       string `json:"uuid"`
	Name       string `json:"name"`
	State      string `json:"state"` // inactive, building, running, degraded, inaccessible
	Active     bool   `json:"active"`
	Capacity   uint64 `json:"capacity"`   // bytes
	Allocation uint64 `json:"allocation"` // bytes
	Available  uint64 `json:"available"`  // bytes
	Type       string `json:"type,omitempty"`
	Path       string `json:"path,omitempty"` // 目标路径
}

// StoragePoolRef 通过 UUID 或名称定位存储池，UUID 优先
type StoragePoolRef struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// StorageVolume 存储卷信息
type StorageVolume struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	Type       string `json:"type"`       // file, block, dir, ...
	Capacity   uint64 `json:"capacity"`   // bytes
	Allocation uint64 `json:"allocation"` // bytes
	Format     string `json:"format,omitempty"`
	PoolUUID   string `json:"pool_uuid,omitempty"`
}

// StorageVolumeRef 通过 key 或 存储池 + 名称 定位存储卷，key 优先
type StorageVolumeRef struct {
	Key  string         `json:"key"`
	Pool StoragePoolRef `json:"pool"`
	Name string         `json:"name"`
}
