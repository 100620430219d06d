package libvirt

import (
	"encoding/json"

	"github.com/digitalocean/go-libvirt"
	"github.com/digitalocean/go-libvirt/socket"
	"github.com/digitalocean/go-qemu/qmp"
	"github.com/jimyag/jvirt/pkg/apierror"
	"github.com/jimyag/jvirt/pkg/virt"
)

type hmpCommand struct {
	Execute   string         `json:"execute"`
	Arguments map[string]any `json:"arguments"`
}

type hmpResponse struct {
	Return string `json:"return"`
}

// defaultMonitorFactory 通过 libvirt RPC 转发 QMP
// monitor 使用同一 dialer 新建的专用连接，Disconnect 只关闭这条连接，不影响主会话
// qmp.LibvirtRPCMonitor 固定连接 qemu:///system，其他驱动 uri 不支持
func defaultMonitorFactory(dialer socket.Dialer, uri, domain string) (qmp.Monitor, error) {
	if dialer == nil {
		return nil, apierror.WrapError(virt.ErrNotImplemented, "qmp monitor requires a go-libvirt session", nil)
	}
	if uri != string(libvirt.QEMUSystem) {
		return nil, apierror.WrapError(virt.ErrNotImplemented, "qmp monitor only supports "+string(libvirt.QEMUSystem), nil)
	}
	conn, err := dialer.Dial()
	if err != nil {
		return nil, mapError("dial qmp monitor", err)
	}
	return qmp.NewLibvirtRPCMonitor(domain, conn), nil
}

// DomainMonitorCommand 以 human-monitor-command 执行一条 HMP 命令
func (c *Client) DomainMonitorCommand(h virt.Handle, cmd string) (string, error) {
	dom, err := domainOf(h)
	if err != nil {
		return "", err
	}
	if _, err := c.session(); err != nil {
		return "", err
	}
	c.mu.RLock()
	dialer, uri := c.monitorDialer, c.sessionURI
	c.mu.RUnlock()

	// 1. 建立 monitor
	mon, err := c.newMonitor(dialer, uri, dom.Name)
	if err != nil {
		return "", err
	}
	if err := mon.Connect(); err != nil {
		return "", mapError("connect qmp monitor", err)
	}
	defer func() {
		if err := mon.Disconnect(); err != nil {
			c.log.Warn().Err(err).Str("domain", dom.Name).Msg("disconnect qmp monitor failed")
		}
	}()

	// 2. 发送命令
	req, err := json.Marshal(hmpCommand{
		Execute:   "human-monitor-command",
		Arguments: map[string]any{"command-line": cmd},
	})
	if err != nil {
		return "", err
	}
	raw, err := mon.Run(req)
	if err != nil {
		return "", mapError("run monitor command", err)
	}

	// 3. 解析输出
	var resp hmpResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", apierror.WrapError(virt.ErrQueryFailed, "decode monitor response", err)
	}
	return resp.Return, nil
}
