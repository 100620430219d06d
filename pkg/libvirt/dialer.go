package libvirt

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/jimyag/jvirt/pkg/apierror"
	"github.com/jimyag/jvirt/pkg/virt"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const remoteLibvirtSocket = "/var/run/libvirt/libvirt-sock"

// sshDialer 通过 ssh 隧道连接远端 libvirtd 的 unix socket
type sshDialer struct {
	client *ssh.Client
	socket string
}

func newSSHDialer(ctx context.Context, host string, cred virt.Credentials, knownHostsPath string, timeout time.Duration) (*sshDialer, error) {
	// 1. 校验主机指纹
	hostKey, err := hostKeyCallback(knownHostsPath)
	if err != nil {
		return nil, apierror.WrapError(virt.ErrConnection, "load known_hosts", err)
	}

	// 2. 建立 ssh 连接
	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		addr = net.JoinHostPort(host, "22")
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, apierror.WrapError(virt.ErrConnection, "dial ssh", err)
	}
	cfg := &ssh.ClientConfig{
		User:            cred.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(cred.Password)},
		HostKeyCallback: hostKey,
		Timeout:         timeout,
	}
	sc, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, apierror.WrapError(virt.ErrConnection, "ssh handshake", err)
	}
	return &sshDialer{client: ssh.NewClient(sc, chans, reqs), socket: remoteLibvirtSocket}, nil
}

func hostKeyCallback(path string) (ssh.HostKeyCallback, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	return knownhosts.New(path)
}

// Dial 实现 socket.Dialer
func (d *sshDialer) Dial() (net.Conn, error) {
	return d.client.Dial("unix", d.socket)
}

func (d *sshDialer) Close() error {
	return d.client.Close()
}

// keepAlive 周期发送 keepalive 请求，连续 count 次失败后关闭隧道
// count 为 0 时只记录失败
func (d *sshDialer) keepAlive(clk clock.Clock, interval time.Duration, count int, stop <-chan struct{}, logger zerolog.Logger) {
	ticker := clk.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if _, _, err := d.client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				failures++
				logger.Warn().Err(err).Int("failures", failures).Msg("ssh keepalive failed")
				if count > 0 && failures >= count {
					logger.Error().Msg("ssh keepalive exhausted, closing tunnel")
					d.client.Close()
					return
				}
				continue
			}
			failures = 0
		}
	}
}
