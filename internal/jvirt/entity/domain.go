package entity

import "time"

// Domain 域信息
type Domain struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	ID          int32  `json:"id"`     // 运行时 ID，未运行时为 -1
	State       string `json:"state"`  // running, paused, shutoff, ...
	Active      bool   `json:"active"` // 是否运行中
	VCPUs       int    `json:"vcpus"`
	MemoryKB    uint64 `json:"memory_kb"`     // 当前使用内存 (KB)
	MaxMemoryKB uint64 `json:"max_memory_kb"` // 最大内存 (KB)
	CPUTimeNs   uint64 `json:"cpu_time_ns"`   // 累计 CPU 时间 (ns)
	OSType      string `json:"os_type,omitempty"`
	DriverType  string `json:"driver_type,omitempty"` // kvm, qemu, ...
	MachineType string `json:"machine_type,omitempty"`
	Arch        string `json:"arch,omitempty"`
	OsInfoID    string `json:"os_info_id,omitempty"`   // libosinfo 标识
	GraphicsURI string `json:"graphics_uri,omitempty"` // vnc://host:port
}

// DomainRuntime 域的运行时数据
type DomainRuntime struct {
	UUID          string               `json:"uuid"`
	Name          string               `json:"name"`
	ModifiedAt    *time.Time           `json:"modified_at,omitempty"`
	UptimeSeconds int64                `json:"uptime_seconds"`
	Disks         map[string]DiskStats `json:"disks"`
	Interfaces    []DomainInterface    `json:"interfaces"`
}

// DiskStats 磁盘累计 I/O
type DiskStats struct {
	ReadRequests  int64 `json:"read_requests"`
	ReadBytes     int64 `json:"read_bytes"`
	WriteRequests int64 `json:"write_requests"`
	WriteBytes    int64 `json:"write_bytes"`
	Errors        int64 `json:"errors"`
}

// DomainInterface guest agent 上报的网卡
type DomainInterface struct {
	Name      string   `json:"name"`
	HWAddr    string   `json:"hwaddr,omitempty"`
	Addresses []string `json:"addresses"` // CIDR 形式，如 192.168.122.10/24
}

// DomainRef 通过 UUID 或名称定位域，UUID 优先
type DomainRef struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// DomainMetrics 域的 CPU 利用率
type DomainMetrics struct {
	UUID       string    `json:"uuid"`
	Name       string    `json:"name"`
	VCPUs      int       `json:"vcpus"`
	LastSecond float64   `json:"last_second"` // 最近一次采样 (%)
	LastMinute float64   `json:"last_minute"` // 最近 60 次采样的平均值 (%)
	History    []float64 `json:"history,omitempty"`
	Interval   int       `json:"interval"` // 采样间隔 (秒)
}

// ConsoleTarget 域 VNC 控制台的连接地址
type ConsoleTarget struct {
	Network string `json:"network"` // unix 或 tcp
	Address string `json:"address"`
}
