package virt

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"libvirt.org/go/libvirtxml"
)

const libosinfoNamespace = "http://libosinfo.org/xmlns/libvirt/domain/1.0"

// 以下查询读取 QEMU 运行时目录，只对本机连接有意义

// ModifiedAt 域状态最后一次变化的时间
// 运行中取 <run>/<name>.xml 的修改时间，否则优先取 <log>/<name>.log，最后取 <etc>/<name>.xml。
// 文件都不存在时返回零值
func (d *Domain) ModifiedAt() (time.Time, error) {
	name, err := d.Name()
	if err != nil {
		return time.Time{}, err
	}
	active, err := d.IsActive()
	if err != nil {
		return time.Time{}, err
	}

	cfg := d.conn.cfg
	var candidates []string
	if active {
		candidates = []string{filepath.Join(cfg.QemuRunPath, name+".xml")}
	} else {
		candidates = []string{
			filepath.Join(cfg.QemuLogPath, name+".log"),
			filepath.Join(cfg.QemuEtcPath, name+".xml"),
		}
	}
	for _, path := range candidates {
		fi, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return time.Time{}, queryError("stat "+path, err)
		}
		return fi.ModTime(), nil
	}
	return time.Time{}, nil
}

// Uptime 运行时长，以 <run>/<name>.pid 的写入时间为启动时间
// 未运行或 pid 文件不存在时返回 0
func (d *Domain) Uptime() (time.Duration, error) {
	active, err := d.IsActive()
	if err != nil || !active {
		return 0, err
	}
	name, err := d.Name()
	if err != nil {
		return 0, err
	}

	path := filepath.Join(d.conn.cfg.QemuRunPath, name+".pid")
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, queryError("stat "+path, err)
	}
	up := d.conn.cfg.Clock.Since(fi.ModTime())
	if up < 0 {
		return 0, nil
	}
	return up, nil
}

// OsInfoID 描述符 metadata 中 libosinfo 记录的系统标识，未记录时返回空串
func (d *Domain) OsInfoID() (string, error) {
	desc, err := d.Descriptor()
	if err != nil {
		return "", err
	}
	if desc.Metadata == nil {
		return "", nil
	}
	return osInfoID(desc.Metadata.XML)
}

func osInfoID(metadata string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(metadata))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		if err != nil {
			return "", queryError("parse domain metadata", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Space != libosinfoNamespace || se.Name.Local != "os" {
			continue
		}
		for _, attr := range se.Attr {
			if attr.Name.Local == "id" {
				return attr.Value, nil
			}
		}
	}
}

// GraphicsURI 图形控制台地址，如 vnc://node-1:5900
// 依次尝试 preferred、vnc、spice、rdp，每种类型只看第一个设备。
// 监听通配地址时使用宿主机主机名，没有可用设备时返回空串
func (d *Domain) GraphicsURI(preferred string) (string, error) {
	desc, err := d.Descriptor()
	if err != nil {
		return "", err
	}
	if desc.Devices == nil {
		return "", nil
	}

	for _, typ := range []string{strings.ToLower(preferred), "vnc", "spice", "rdp"} {
		listen, port, ok := firstGraphics(desc.Devices.Graphics, typ)
		if !ok || port <= 0 {
			continue
		}
		switch listen {
		case "0.0.0.0", "::":
			node, err := d.conn.Node()
			if err != nil {
				return "", err
			}
			if listen, err = node.Hostname(); err != nil {
				return "", err
			}
		case "":
			listen = "127.0.0.1"
		}
		return fmt.Sprintf("%s://%s", typ, net.JoinHostPort(listen, strconv.Itoa(port))), nil
	}
	return "", nil
}

// firstGraphics 返回 typ 类型第一个图形设备的监听地址和端口
func firstGraphics(graphics []libvirtxml.DomainGraphic, typ string) (string, int, bool) {
	for _, g := range graphics {
		var (
			port      int
			listen    string
			listeners []libvirtxml.DomainGraphicListener
		)
		switch {
		case typ == "vnc" && g.VNC != nil:
			port, listen, listeners = g.VNC.Port, g.VNC.Listen, g.VNC.Listeners
		case typ == "spice" && g.Spice != nil:
			port, listen, listeners = g.Spice.Port, g.Spice.Listen, g.Spice.Listeners
		case typ == "rdp" && g.RDP != nil:
			port, listen, listeners = g.RDP.Port, g.RDP.Listen, g.RDP.Listeners
		default:
			continue
		}
		if listen == "" {
			for _, l := range listeners {
				if l.Address != nil && l.Address.Address != "" {
					listen = l.Address.Address
					break
				}
			}
		}
		return listen, port, true
	}
	return "", 0, false
}

// Disks 描述符中磁盘的 target 名，如 vda、sdb
func (d *Domain) Disks() ([]string, error) {
	desc, err := d.Descriptor()
	if err != nil {
		return nil, err
	}
	if desc.Devices == nil {
		return nil, nil
	}
	var out []string
	for _, disk := range desc.Devices.Disks {
		if disk.Target != nil && disk.Target.Dev != "" {
			out = append(out, disk.Target.Dev)
		}
	}
	return out, nil
}

// DiskBlockStats 单个磁盘的 I/O 计数
func (d *Domain) DiskBlockStats(dev string) (BlockStats, error) {
	return withValue(d.ref, func(h Handle) (BlockStats, error) {
		stats, err := d.conn.drv.DomainBlockStats(h, dev)
		return stats, queryError("get block stats of "+dev, err)
	})
}

// BlockStats 所有磁盘的 I/O 计数，按 target 名索引
// 单个磁盘查询失败（如 cdrom 未插入介质）时跳过该磁盘
func (d *Domain) BlockStats() (map[string]BlockStats, error) {
	disks, err := d.Disks()
	if err != nil {
		return nil, err
	}
	out := make(map[string]BlockStats, len(disks))
	for _, dev := range disks {
		stats, err := d.DiskBlockStats(dev)
		if err != nil {
			if errors.Is(err, ErrDisposed) {
				return nil, err
			}
			d.log.Debug().Err(err).Str("disk", dev).Msg("skip disk without block stats")
			continue
		}
		out[dev] = stats
	}
	return out, nil
}

// InterfaceAddresses guest agent 上报的网卡地址，需要客户机运行 qemu-guest-agent
func (d *Domain) InterfaceAddresses() ([]InterfaceAddress, error) {
	return withValue(d.ref, func(h Handle) ([]InterfaceAddress, error) {
		addrs, err := d.conn.drv.DomainInterfaceAddresses(h)
		return addrs, queryError("get interface addresses", err)
	})
}
