package virt

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"libvirt.org/go/libvirtxml"
)

// Domain 缓存的域对象，同一连接内同一 UUID 只存在一个实例
type Domain struct {
	conn *Connection
	id   uuid.UUID
	ref  *handleRef
	xml  *Lazy[string]
	log  zerolog.Logger

	// cpu 在关闭指标采样时为 nil
	cpu     *CPUUtilization
	tickSub Subscription

	disposeOnce sync.Once
	disposed    atomic.Bool
}

func newDomain(conn *Connection, id uuid.UUID, ref *handleRef) *Domain {
	d := &Domain{
		conn: conn,
		id:   id,
		ref:  ref,
		log:  conn.log.With().Str("domain_uuid", id.String()).Logger(),
	}
	d.xml = NewLazy(d.fetchXML)

	if conn.cfg.MetricsEnabled && conn.ticker != nil {
		cpuCount := 1
		if info, err := d.Info(); err == nil {
			cpuCount = int(info.VCPUs)
		} else {
			d.log.Warn().Err(err).Msg("get domain info for metrics failed")
		}
		d.cpu = NewCPUUtilization(cpuCount, conn.cfg.MetricsHistory)
		d.tickSub = conn.ticker.Subscribe(d.onMetricsTick)
	}
	return d
}

// UUID 域的稳定标识
func (d *Domain) UUID() uuid.UUID {
	return d.id
}

// Name 域名称
func (d *Domain) Name() (string, error) {
	return withValue(d.ref, func(h Handle) (string, error) {
		name, err := d.conn.drv.DomainName(h)
		return name, queryError("get domain name", err)
	})
}

// ID 运行时 ID，未运行的域为 -1
func (d *Domain) ID() (int32, error) {
	return withValue(d.ref, func(h Handle) (int32, error) {
		id, err := d.conn.drv.DomainID(h)
		return id, queryError("get domain id", err)
	})
}

// IsActive 域是否在运行
func (d *Domain) IsActive() (bool, error) {
	return withValue(d.ref, func(h Handle) (bool, error) {
		active, err := d.conn.drv.DomainIsActive(h)
		return active, queryError("get domain active state", err)
	})
}

// Info 域基本信息（状态、内存、vCPU、CPU 时间）
func (d *Domain) Info() (DomainInfo, error) {
	return withValue(d.ref, func(h Handle) (DomainInfo, error) {
		info, err := d.conn.drv.DomainInfo(h)
		return info, queryError("get domain info", err)
	})
}

// State 域运行状态
func (d *Domain) State() (DomainState, error) {
	info, err := d.Info()
	if err != nil {
		return DomainStateNoState, err
	}
	return info.State, nil
}

// CPUCount vCPU 数量
func (d *Domain) CPUCount() (int, error) {
	info, err := d.Info()
	return int(info.VCPUs), err
}

// MemoryUsedKB 当前内存
func (d *Domain) MemoryUsedKB() (uint64, error) {
	info, err := d.Info()
	return info.MemoryKB, err
}

// MemoryMaxKB 最大内存
func (d *Domain) MemoryMaxKB() (uint64, error) {
	info, err := d.Info()
	return info.MaxMemKB, err
}

// CPUTime 累计 CPU 时间
func (d *Domain) CPUTime() (time.Duration, error) {
	info, err := d.Info()
	return time.Duration(info.CPUTimeNs), err
}

// OSType 客户机操作系统类型
func (d *Domain) OSType() (string, error) {
	return withValue(d.ref, func(h Handle) (string, error) {
		t, err := d.conn.drv.DomainOSType(h)
		return t, queryError("get domain os type", err)
	})
}

// XML 域描述符，首次访问时获取并缓存，生命周期事件会使其失效
func (d *Domain) XML() (string, error) {
	return d.xml.Get()
}

func (d *Domain) fetchXML() (string, error) {
	flags := XMLSecure
	active, err := d.IsActive()
	if err != nil {
		return "", err
	}
	if !active {
		flags |= XMLInactive
	}
	return withValue(d.ref, func(h Handle) (string, error) {
		doc, err := d.conn.drv.DomainXML(h, flags)
		if err == nil && doc == "" {
			return "", apierrorf(ErrQueryFailed, "empty descriptor for domain %s", d.id)
		}
		return doc, queryError("get domain xml", err)
	})
}

// Descriptor 解析后的域描述符
func (d *Domain) Descriptor() (*libvirtxml.Domain, error) {
	doc, err := d.XML()
	if err != nil {
		return nil, err
	}
	desc := &libvirtxml.Domain{}
	if err := desc.Unmarshal(doc); err != nil {
		return nil, queryError("parse domain xml", err)
	}
	return desc, nil
}

// DriverType 描述符根节点的 type 属性，如 kvm、qemu
func (d *Domain) DriverType() (string, error) {
	desc, err := d.Descriptor()
	if err != nil {
		return "", err
	}
	return desc.Type, nil
}

// MachineType 机器类型，如 pc-q35-8.2
func (d *Domain) MachineType() (string, error) {
	desc, err := d.Descriptor()
	if err != nil {
		return "", err
	}
	if desc.OS == nil || desc.OS.Type == nil {
		return "", nil
	}
	return desc.OS.Type.Machine, nil
}

// Arch CPU 架构
func (d *Domain) Arch() (string, error) {
	desc, err := d.Descriptor()
	if err != nil {
		return "", err
	}
	if desc.OS == nil || desc.OS.Type == nil {
		return "", nil
	}
	return desc.OS.Type.Arch, nil
}

// Create 启动已定义的域
func (d *Domain) Create() error { return d.control(DomainOpCreate) }

// Shutdown 请求客户机关机
func (d *Domain) Shutdown() error { return d.control(DomainOpShutdown) }

// Reset 硬复位
func (d *Domain) Reset() error { return d.control(DomainOpReset) }

// Suspend 暂停
func (d *Domain) Suspend() error { return d.control(DomainOpSuspend) }

// Resume 恢复
func (d *Domain) Resume() error { return d.control(DomainOpResume) }

// ManagedSave 保存状态并停止，下次 Create 时恢复
func (d *Domain) ManagedSave() error { return d.control(DomainOpManagedSave) }

func (d *Domain) control(op DomainOp) error {
	return d.ref.with(func(h Handle) error {
		if err := d.conn.drv.DomainControl(h, op); err != nil {
			return queryError(fmt.Sprintf("%s domain %s", op, d.id), err)
		}
		return nil
	})
}

// SetConsolePassword 通过监视器设置 VNC 控制台密码，仅支持 qemu/kvm
func (d *Domain) SetConsolePassword(password string) error {
	driverType, err := d.DriverType()
	if err != nil {
		return err
	}
	if driverType != "qemu" && driverType != "kvm" {
		return apierrorf(ErrNotImplemented, "console password is not supported for driver type %q", driverType)
	}
	return d.ref.with(func(h Handle) error {
		if _, err := d.conn.drv.DomainMonitorCommand(h, "change vnc password "+password); err != nil {
			return queryError("set console password", err)
		}
		return nil
	})
}

// CPUUtilization CPU 利用率窗口，关闭指标采样时返回 nil
func (d *Domain) CPUUtilization() *CPUUtilization {
	return d.cpu
}

// Disposed 是否已释放
func (d *Domain) Disposed() bool {
	return d.disposed.Load()
}

// Dispose 取消指标订阅后释放原生句柄，可重复调用
func (d *Domain) Dispose() {
	d.disposeOnce.Do(func() {
		d.disposed.Store(true)
		if d.cpu != nil {
			d.conn.ticker.Unsubscribe(d.tickSub)
		}
		if err := d.ref.release(); err != nil {
			d.log.Warn().Err(err).Msg("free domain handle failed")
		}
	})
}

// handleLifecycle 域自身的事件处理
func (d *Domain) handleLifecycle(ev DomainLifecycleEvent) {
	switch ev.Type {
	case DomainEventDefined, DomainEventUndefined, DomainEventStarted,
		DomainEventSuspended, DomainEventStopped:
		d.xml.Invalidate()
	}

	if ev.Type == DomainEventDefined && d.cpu != nil {
		d.cpu.Reset()
		if info, err := d.Info(); err == nil {
			d.cpu.SetCPUCount(int(info.VCPUs))
		} else {
			d.log.Warn().Err(err).Msg("refresh cpu count failed")
		}
	}
}

// onMetricsTick 运行中的域读取 CPU 计数，未运行的域记录 0
func (d *Domain) onMetricsTick(now time.Time) {
	if d.disposed.Load() {
		return
	}

	active, err := d.IsActive()
	if err != nil {
		d.log.Debug().Err(err).Msg("metrics tick: get active state failed")
		return
	}
	if !active {
		d.cpu.Update(CPUStats{}, now)
		return
	}

	stats, err := withValue(d.ref, func(h Handle) (CPUStats, error) {
		return d.conn.drv.DomainCPUStats(h)
	})
	if err != nil {
		d.log.Debug().Err(err).Msg("metrics tick: get cpu stats failed")
		return
	}
	d.cpu.Update(stats, now)
}
