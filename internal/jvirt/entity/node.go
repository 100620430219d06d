package entity

// Node 宿主机信息
type Node struct {
	Hostname   string `json:"hostname"`
	URI        string `json:"uri"` // Libvirt 连接 URI
	Model      string `json:"model"`
	MemoryKB   uint64 `json:"memory_kb"`
	CPUs       int32  `json:"cpus"`
	MHz        int32  `json:"mhz"`
	Nodes      int32  `json:"nodes"` // NUMA 节点数
	Sockets    int32  `json:"sockets"`
	Cores      int32  `json:"cores"`
	Threads    int32  `json:"threads"`
	FreeMemory uint64 `json:"free_memory"` // bytes
	Alive      bool   `json:"alive"`
}
