package libvirt

import (
	"github.com/jimyag/jvirt/pkg/virt"
)

func (c *Client) Hostname() (string, error) {
	rpc, err := c.session()
	if err != nil {
		return "", err
	}
	name, err := rpc.ConnectGetHostname()
	if err != nil {
		return "", mapError("get hostname", err)
	}
	return name, nil
}

func (c *Client) NodeInfo() (virt.NodeInfo, error) {
	rpc, err := c.session()
	if err != nil {
		return virt.NodeInfo{}, err
	}
	model, memory, cpus, mhz, nodes, sockets, cores, threads, err := rpc.NodeGetInfo()
	if err != nil {
		return virt.NodeInfo{}, mapError("get node info", err)
	}
	return virt.NodeInfo{
		Model:    cString(model[:]),
		MemoryKB: memory,
		CPUs:     cpus,
		MHz:      mhz,
		Nodes:    nodes,
		Sockets:  sockets,
		Cores:    cores,
		Threads:  threads,
	}, nil
}

// NodeFreeMemory 空闲内存，单位字节
func (c *Client) NodeFreeMemory() (uint64, error) {
	rpc, err := c.session()
	if err != nil {
		return 0, err
	}
	free, err := rpc.NodeGetFreeMemory()
	if err != nil {
		return 0, mapError("get node free memory", err)
	}
	return free, nil
}

// cString 把以 0 结尾的 int8 数组转换为字符串
func cString(b []int8) string {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c == 0 {
			break
		}
		out = append(out, byte(c))
	}
	return string(out)
}
