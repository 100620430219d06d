package service

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/jimyag/jvirt/internal/jvirt/entity"
	"github.com/jimyag/jvirt/pkg/apierror"
	"github.com/jimyag/jvirt/pkg/virt"
	"github.com/rs/zerolog"
	"libvirt.org/go/libvirtxml"
)

// DomainService 域查询与控制
type DomainService struct {
	conn *virt.Connection
}

// NewDomainService 创建域服务
func NewDomainService(conn *virt.Connection) *DomainService {
	return &DomainService{conn: conn}
}

// resolve 按 UUID 或名称查找域，UUID 优先
func (s *DomainService) resolve(ref entity.DomainRef) (*virt.Domain, error) {
	var (
		d   *virt.Domain
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
		d, err = s.conn.DomainByUUID(id, false)
	case ref.Name != "":
		key = ref.Name
		d, err = s.conn.DomainByName(ref.Name)
	default:
		return nil, apierror.WrapError(apierror.ErrMissingParameter, "uuid or name is required", nil)
	}
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, notFound(apierror.ErrDomainNotFound, "domain", key)
	}
	return d, nil
}

// ListDomains 列出运行中和已定义的域
func (s *DomainService) ListDomains(ctx context.Context) ([]*entity.Domain, error) {
	logger := zerolog.Ctx(ctx)

	domains, err := s.conn.Domains()
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Domain, 0, len(domains))
	for _, d := range domains {
		e, err := s.toEntity(d, false)
		if err != nil {
			// 枚举后被删除的域
			if d.Disposed() || virt.IsNotFound(err) {
				logger.Debug().Str("domain_uuid", d.UUID().String()).Msg("skip vanished domain")
				continue
			}
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// DescribeDomain 查询域详情，包括描述符中的驱动、机器类型和架构
func (s *DomainService) DescribeDomain(ctx context.Context, ref entity.DomainRef) (*entity.Domain, error) {
	d, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	return s.toEntity(d, true)
}

// DescribeDomainXML 域描述符原文
func (s *DomainService) DescribeDomainXML(ctx context.Context, ref entity.DomainRef) (string, error) {
	d, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	return d.XML()
}

// ControlDomain 对域执行启动、关机等控制操作
func (s *DomainService) ControlDomain(ctx context.Context, ref entity.DomainRef, op virt.DomainOp) error {
	logger := zerolog.Ctx(ctx)

	d, err := s.resolve(ref)
	if err != nil {
		return err
	}

	var fn func() error
	switch op {
	case virt.DomainOpCreate:
		fn = d.Create
	case virt.DomainOpShutdown:
		fn = d.Shutdown
	case virt.DomainOpReset:
		fn = d.Reset
	case virt.DomainOpSuspend:
		fn = d.Suspend
	case virt.DomainOpResume:
		fn = d.Resume
	case virt.DomainOpManagedSave:
		fn = d.ManagedSave
	default:
		return apierror.WrapError(apierror.ErrInvalidParameter, "unknown domain operation "+op.String(), nil)
	}
	if err := fn(); err != nil {
		logger.Error().Err(err).Str("domain_uuid", d.UUID().String()).Stringer("op", op).Msg("domain operation failed")
		return err
	}
	logger.Info().Str("domain_uuid", d.UUID().String()).Stringer("op", op).Msg("domain operation done")
	return nil
}

// SetConsolePassword 设置 VNC 控制台密码
func (s *DomainService) SetConsolePassword(ctx context.Context, ref entity.DomainRef, password string) error {
	d, err := s.resolve(ref)
	if err != nil {
		return err
	}
	return d.SetConsolePassword(password)
}

// DescribeDomainMetrics 域的 CPU 利用率
func (s *DomainService) DescribeDomainMetrics(ctx context.Context, ref entity.DomainRef, withHistory bool) (*entity.DomainMetrics, error) {
	d, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	u := d.CPUUtilization()
	if u == nil {
		return nil, apierror.WrapError(virt.ErrNotImplemented, "metrics are disabled", nil)
	}
	name, err := d.Name()
	if err != nil {
		return nil, err
	}

	m := &entity.DomainMetrics{
		UUID:       d.UUID().String(),
		Name:       name,
		VCPUs:      u.CPUCount(),
		LastSecond: u.LastSecond(),
		LastMinute: u.LastMinute(),
		Interval:   s.conn.MetricsInterval(),
	}
	if withHistory {
		m.History = u.History()
	}
	return m, nil
}

func (s *DomainService) toEntity(d *virt.Domain, withDescriptor bool) (*entity.Domain, error) {
	name, err := d.Name()
	if err != nil {
		return nil, err
	}
	active, err := d.IsActive()
	if err != nil {
		return nil, err
	}
	id := int32(-1)
	if active {
		if id, err = d.ID(); err != nil {
			return nil, err
		}
	}
	info, err := d.Info()
	if err != nil {
		return nil, err
	}

	e := &entity.Domain{
		UUID:        d.UUID().String(),
		Name:        name,
		ID:          id,
		State:       info.State.String(),
		Active:      active,
		VCPUs:       int(info.VCPUs),
		MemoryKB:    info.MemoryKB,
		MaxMemoryKB: info.MaxMemKB,
		CPUTimeNs:   info.CPUTimeNs,
	}
	if !withDescriptor {
		return e, nil
	}

	if e.OSType, err = d.OSType(); err != nil {
		return nil, err
	}
	desc, err := d.Descriptor()
	if err != nil {
		return nil, err
	}
	e.DriverType = desc.Type
	if desc.OS != nil && desc.OS.Type != nil {
		e.MachineType = desc.OS.Type.Machine
		e.Arch = desc.OS.Type.Arch
	}
	if e.OsInfoID, err = d.OsInfoID(); err != nil {
		return nil, err
	}
	if e.GraphicsURI, err = d.GraphicsURI(""); err != nil {
		return nil, err
	}
	return e, nil
}

// DescribeDomainRuntime 域的运行时数据，网卡地址只在域运行时查询
func (s *DomainService) DescribeDomainRuntime(ctx context.Context, ref entity.DomainRef) (*entity.DomainRuntime, error) {
	logger := zerolog.Ctx(ctx)

	d, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	name, err := d.Name()
	if err != nil {
		return nil, err
	}
	modified, err := d.ModifiedAt()
	if err != nil {
		return nil, err
	}
	uptime, err := d.Uptime()
	if err != nil {
		return nil, err
	}
	stats, err := d.BlockStats()
	if err != nil {
		return nil, err
	}

	rt := &entity.DomainRuntime{
		UUID:          d.UUID().String(),
		Name:          name,
		UptimeSeconds: int64(uptime / time.Second),
		Disks:         make(map[string]entity.DiskStats, len(stats)),
		Interfaces:    []entity.DomainInterface{},
	}
	if !modified.IsZero() {
		rt.ModifiedAt = &modified
	}
	for dev, st := range stats {
		rt.Disks[dev] = entity.DiskStats{
			ReadRequests:  st.ReadRequests,
			ReadBytes:     st.ReadBytes,
			WriteRequests: st.WriteRequests,
			WriteBytes:    st.WriteBytes,
			Errors:        st.Errors,
		}
	}

	active, err := d.IsActive()
	if err != nil {
		return nil, err
	}
	if !active {
		return rt, nil
	}
	ifaces, err := d.InterfaceAddresses()
	if err != nil {
		// 客户机没有运行 guest agent
		logger.Warn().Err(err).Str("domain_uuid", rt.UUID).Msg("get interface addresses failed")
		return rt, nil
	}
	for _, iface := range ifaces {
		e := entity.DomainInterface{Name: iface.Name, HWAddr: iface.HWAddr, Addresses: []string{}}
		for _, a := range iface.Addrs {
			e.Addresses = append(e.Addresses, a.Addr+"/"+strconv.Itoa(int(a.Prefix)))
		}
		rt.Interfaces = append(rt.Interfaces, e)
	}
	return rt, nil
}

// ConsoleTarget 从域描述符中找出 VNC 控制台的地址
// 优先使用 unix socket，其次是 listen 地址加端口
func (s *DomainService) ConsoleTarget(ctx context.Context, ref entity.DomainRef) (*entity.ConsoleTarget, error) {
	d, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	active, err := d.IsActive()
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apierror.WrapError(apierror.ErrDomainNotRunning,
			fmt.Sprintf("domain %s is not running", d.UUID()), nil)
	}
	desc, err := d.Descriptor()
	if err != nil {
		return nil, err
	}

	if desc.Devices != nil {
		for _, g := range desc.Devices.Graphics {
			if t := vncTarget(g.VNC); t != nil {
				return t, nil
			}
		}
	}
	return nil, apierror.WrapError(apierror.ErrConsoleNotFound,
		fmt.Sprintf("domain %s has no vnc console", d.UUID()), nil)
}

func vncTarget(vnc *libvirtxml.DomainGraphicVNC) *entity.ConsoleTarget {
	if vnc == nil {
		return nil
	}
	if vnc.Socket != "" {
		return &entity.ConsoleTarget{Network: "unix", Address: vnc.Socket}
	}
	host := vnc.Listen
	for _, l := range vnc.Listeners {
		if l.Socket != nil && l.Socket.Socket != "" {
			return &entity.ConsoleTarget{Network: "unix", Address: l.Socket.Socket}
		}
		if host == "" && l.Address != nil {
			host = l.Address.Address
		}
	}
	// autoport 未分配时 port 为 -1
	if vnc.Port <= 0 {
		return nil
	}
	switch host {
	case "", "0.0.0.0":
		host = "127.0.0.1"
	case "::":
		host = "::1"
	}
	return &entity.ConsoleTarget{Network: "tcp", Address: net.JoinHostPort(host, strconv.Itoa(vnc.Port))}
}
