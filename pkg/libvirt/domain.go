package libvirt

import (
	"github.com/digitalocean/go-libvirt"
	"github.com/jimyag/jvirt/pkg/apierror"
	"github.com/jimyag/jvirt/pkg/virt"
)

// ListActiveDomainIDs 运行中域的 ID
func (c *Client) ListActiveDomainIDs() ([]int32, error) {
	rpc, err := c.session()
	if err != nil {
		return nil, err
	}
	doms, _, err := rpc.ConnectListAllDomains(1, libvirt.ConnectListDomainsActive)
	if err != nil {
		return nil, mapError("list active domains", err)
	}
	ids := make([]int32, 0, len(doms))
	for _, d := range doms {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// ListDefinedDomainNames 已定义未运行域的名称
func (c *Client) ListDefinedDomainNames() ([]string, error) {
	rpc, err := c.session()
	if err != nil {
		return nil, err
	}
	doms, _, err := rpc.ConnectListAllDomains(1, libvirt.ConnectListDomainsInactive)
	if err != nil {
		return nil, mapError("list defined domains", err)
	}
	names := make([]string, 0, len(doms))
	for _, d := range doms {
		names = append(names, d.Name)
	}
	return names, nil
}

func (c *Client) LookupDomainByID(id int32) (virt.Handle, error) {
	rpc, err := c.session()
	if err != nil {
		return nil, err
	}
	dom, err := rpc.DomainLookupByID(id)
	if err != nil {
		return nil, mapError("lookup domain by id", err)
	}
	return c.domainHandle(dom), nil
}

func (c *Client) LookupDomainByName(name string) (virt.Handle, error) {
	rpc, err := c.session()
	if err != nil {
		return nil, err
	}
	dom, err := rpc.DomainLookupByName(name)
	if err != nil {
		return nil, mapError("lookup domain by name", err)
	}
	return c.domainHandle(dom), nil
}

func (c *Client) LookupDomainByUUID(raw []byte) (virt.Handle, error) {
	rpc, err := c.session()
	if err != nil {
		return nil, err
	}
	id, err := toUUID(raw)
	if err != nil {
		return nil, err
	}
	dom, err := rpc.DomainLookupByUUID(id)
	if err != nil {
		return nil, mapError("lookup domain by uuid", err)
	}
	return c.domainHandle(dom), nil
}

func (c *Client) DomainUUID(h virt.Handle) ([]byte, error) {
	dom, err := domainOf(h)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(dom.UUID))
	copy(out, dom.UUID[:])
	return out, nil
}

func (c *Client) DomainName(h virt.Handle) (string, error) {
	dom, err := domainOf(h)
	if err != nil {
		return "", err
	}
	return dom.Name, nil
}

// DomainID 运行时 ID 会随启停变化，每次重新查询
func (c *Client) DomainID(h virt.Handle) (int32, error) {
	dom, err := domainOf(h)
	if err != nil {
		return 0, err
	}
	rpc, err := c.session()
	if err != nil {
		return 0, err
	}
	cur, err := rpc.DomainLookupByUUID(dom.UUID)
	if err != nil {
		return 0, mapError("get domain id", err)
	}
	return cur.ID, nil
}

func (c *Client) DomainIsActive(h virt.Handle) (bool, error) {
	dom, err := domainOf(h)
	if err != nil {
		return false, err
	}
	rpc, err := c.session()
	if err != nil {
		return false, err
	}
	active, err := rpc.DomainIsActive(dom)
	if err != nil {
		return false, mapError("get domain active state", err)
	}
	return active == 1, nil
}

func (c *Client) DomainXML(h virt.Handle, flags virt.XMLFlags) (string, error) {
	dom, err := domainOf(h)
	if err != nil {
		return "", err
	}
	rpc, err := c.session()
	if err != nil {
		return "", err
	}
	var lf libvirt.DomainXMLFlags
	if flags&virt.XMLSecure != 0 {
		lf |= libvirt.DomainXMLSecure
	}
	if flags&virt.XMLInactive != 0 {
		lf |= libvirt.DomainXMLInactive
	}
	xml, err := rpc.DomainGetXMLDesc(dom, lf)
	if err != nil {
		return "", mapError("get domain xml", err)
	}
	return xml, nil
}

func (c *Client) DomainInfo(h virt.Handle) (virt.DomainInfo, error) {
	dom, err := domainOf(h)
	if err != nil {
		return virt.DomainInfo{}, err
	}
	rpc, err := c.session()
	if err != nil {
		return virt.DomainInfo{}, err
	}
	state, maxMem, mem, vcpus, cpuTime, err := rpc.DomainGetInfo(dom)
	if err != nil {
		return virt.DomainInfo{}, mapError("get domain info", err)
	}
	return virt.DomainInfo{
		State:     virt.DomainState(state),
		MaxMemKB:  maxMem,
		MemoryKB:  mem,
		VCPUs:     vcpus,
		CPUTimeNs: cpuTime,
	}, nil
}

func (c *Client) DomainOSType(h virt.Handle) (string, error) {
	dom, err := domainOf(h)
	if err != nil {
		return "", err
	}
	rpc, err := c.session()
	if err != nil {
		return "", err
	}
	os, err := rpc.DomainGetOsType(dom)
	if err != nil {
		return "", mapError("get domain os type", err)
	}
	return os, nil
}

// DomainCPUStats 取域的累计 CPU 时间
// 先以 nparams=0 查询参数个数，再取全部 CPU 的汇总值
func (c *Client) DomainCPUStats(h virt.Handle) (virt.CPUStats, error) {
	dom, err := domainOf(h)
	if err != nil {
		return virt.CPUStats{}, err
	}
	rpc, err := c.session()
	if err != nil {
		return virt.CPUStats{}, err
	}
	_, n, err := rpc.DomainGetCPUStats(dom, 0, -1, 1, 0)
	if err != nil {
		return virt.CPUStats{}, mapError("get domain cpu stats count", err)
	}
	if n <= 0 {
		return virt.CPUStats{}, nil
	}
	params, _, err := rpc.DomainGetCPUStats(dom, uint32(n), -1, 1, 0)
	if err != nil {
		return virt.CPUStats{}, mapError("get domain cpu stats", err)
	}

	var stats virt.CPUStats
	for _, p := range params {
		v, ok := paramUint64(p)
		if !ok {
			continue
		}
		switch p.Field {
		case "cpu_time":
			stats.CPUTime = v
		case "user_time":
			stats.UserTime = v
		case "system_time":
			stats.SystemTime = v
		}
	}
	return stats, nil
}

func paramUint64(p libvirt.TypedParam) (uint64, bool) {
	switch v := p.Value.I.(type) {
	case uint64:
		return v, true
	case int64:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case int32:
		return uint64(v), true
	default:
		return 0, false
	}
}

// DomainControl 执行控制操作
func (c *Client) DomainControl(h virt.Handle, op virt.DomainOp) error {
	dom, err := domainOf(h)
	if err != nil {
		return err
	}
	rpc, err := c.session()
	if err != nil {
		return err
	}
	switch op {
	case virt.DomainOpCreate:
		err = rpc.DomainCreate(dom)
	case virt.DomainOpShutdown:
		err = rpc.DomainShutdown(dom)
	case virt.DomainOpReset:
		err = rpc.DomainReset(dom, 0)
	case virt.DomainOpSuspend:
		err = rpc.DomainSuspend(dom)
	case virt.DomainOpResume:
		err = rpc.DomainResume(dom)
	case virt.DomainOpManagedSave:
		err = rpc.DomainManagedSave(dom, 0)
	default:
		return apierror.WrapError(virt.ErrInvalidArgument, "unknown domain operation "+op.String(), nil)
	}
	return mapError(op.String()+" domain", err)
}

// DomainBlockStats 按磁盘 target 名查询 I/O 计数
func (c *Client) DomainBlockStats(h virt.Handle, dev string) (virt.BlockStats, error) {
	dom, err := domainOf(h)
	if err != nil {
		return virt.BlockStats{}, err
	}
	rpc, err := c.session()
	if err != nil {
		return virt.BlockStats{}, err
	}
	rdReq, rdBytes, wrReq, wrBytes, errs, err := rpc.DomainBlockStats(dom, dev)
	if err != nil {
		return virt.BlockStats{}, mapError("get block stats of "+dev, err)
	}
	return virt.BlockStats{
		ReadRequests:  rdReq,
		ReadBytes:     rdBytes,
		WriteRequests: wrReq,
		WriteBytes:    wrBytes,
		Errors:        errs,
	}, nil
}

// DomainInterfaceAddresses 通过 guest agent 查询网卡地址
func (c *Client) DomainInterfaceAddresses(h virt.Handle) ([]virt.InterfaceAddress, error) {
	dom, err := domainOf(h)
	if err != nil {
		return nil, err
	}
	rpc, err := c.session()
	if err != nil {
		return nil, err
	}
	ifaces, err := rpc.DomainInterfaceAddresses(dom, uint32(libvirt.DomainInterfaceAddressesSrcAgent), 0)
	if err != nil {
		return nil, mapError("get interface addresses", err)
	}

	out := make([]virt.InterfaceAddress, 0, len(ifaces))
	for _, iface := range ifaces {
		ia := virt.InterfaceAddress{Name: iface.Name}
		if len(iface.Hwaddr) > 0 {
			ia.HWAddr = iface.Hwaddr[0]
		}
		for _, a := range iface.Addrs {
			ia.Addrs = append(ia.Addrs, virt.IPAddress{
				Type:   virt.IPAddressType(a.Type),
				Addr:   a.Addr,
				Prefix: a.Prefix,
			})
		}
		out = append(out, ia)
	}
	return out, nil
}

func toUUID(raw []byte) (libvirt.UUID, error) {
	var id libvirt.UUID
	if len(raw) != len(id) {
		return id, apierror.WrapError(virt.ErrInvalidArgument, "uuid must be 16 bytes", nil)
	}
	copy(id[:], raw)
	return id, nil
}
