package libvirt

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/digitalocean/go-libvirt"
	"github.com/digitalocean/go-libvirt/socket"
	"github.com/digitalocean/go-libvirt/socket/dialers"
	"github.com/digitalocean/go-qemu/qmp"
	"github.com/jimyag/jvirt/pkg/apierror"
	"github.com/jimyag/jvirt/pkg/virt"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultDialTimeout      = 10 * time.Second
	defaultIterationTimeout = time.Second
	pendingEventBuffer      = 64
)

// RPCFactory 根据 uri 和认证信息建立 libvirt 会话
type RPCFactory func(ctx context.Context, uri string, cred virt.Credentials) (RPC, error)

// MonitorFactory 为指定域创建 QMP monitor
// dialer 与 uri 来自当前会话，注入 RPC 的会话中二者为空
type MonitorFactory func(dialer socket.Dialer, uri, domain string) (qmp.Monitor, error)

// Client 基于 go-libvirt 的 virt.Driver 实现
type Client struct {
	clk              clock.Clock
	log              zerolog.Logger
	dialTimeout      time.Duration
	iterationTimeout time.Duration
	knownHosts       string
	newRPC           RPCFactory
	newMonitor       MonitorFactory

	mu  sync.RWMutex
	rpc RPC
	// ssh 远程连接时非空，用于保活
	ssh *sshDialer
	// 会话使用的 dialer 与驱动 uri，monitor 用它们建立专用连接
	monitorDialer socket.Dialer
	sessionURI    string

	keepAliveInterval int
	keepAliveCount    int
	keepAliveStop     chan struct{}

	// live 当前持有引用的句柄数
	live atomic.Int64

	events eventState
}

// Option Client 选项
type Option func(*Client)

// WithClock 替换时钟
func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clk = clk }
}

// WithLogger 设置日志
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.log = logger }
}

// WithDialTimeout 设置建连超时
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) { c.dialTimeout = d }
}

// WithIterationTimeout 设置单次事件迭代的最长等待
func WithIterationTimeout(d time.Duration) Option {
	return func(c *Client) { c.iterationTimeout = d }
}

// WithKnownHosts 设置 ssh known_hosts 文件路径
func WithKnownHosts(path string) Option {
	return func(c *Client) { c.knownHosts = path }
}

// WithRPCFactory 替换会话工厂，测试中注入 MockRPC
func WithRPCFactory(f RPCFactory) Option {
	return func(c *Client) { c.newRPC = f }
}

// WithMonitorFactory 替换 QMP monitor 工厂
func WithMonitorFactory(f MonitorFactory) Option {
	return func(c *Client) { c.newMonitor = f }
}

// NewDriver 创建驱动，会话在 Open 时建立
func NewDriver(opts ...Option) *Client {
	c := &Client{
		clk:              clock.NewClock(),
		log:              log.Logger,
		dialTimeout:      defaultDialTimeout,
		iterationTimeout: defaultIterationTimeout,
		newMonitor:       defaultMonitorFactory,
	}
	c.newRPC = c.dial
	for _, opt := range opts {
		opt(c)
	}
	c.events.init()
	return c
}

var _ virt.Driver = (*Client)(nil)

// Open 建立会话
func (c *Client) Open(ctx context.Context, uri string, cred virt.Credentials) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpc != nil {
		return apierror.WrapError(virt.ErrInvalidArgument, "session already open", nil)
	}
	rpc, err := c.newRPC(ctx, uri, cred)
	if err != nil {
		return err
	}
	c.rpc = rpc
	c.log.Info().Str("uri", uri).Bool("local_auth", cred.IsLocal()).Msg("libvirt session opened")
	return nil
}

// dial 默认的会话工厂
// 本地 uri 走 unix socket，qemu+ssh 走 ssh 隧道，其他远程 uri 走 tcp
func (c *Client) dial(ctx context.Context, uri string, cred virt.Credentials) (RPC, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, apierror.WrapError(virt.ErrInvalidArgument, "parse uri", err)
	}

	var dialer socket.Dialer
	switch {
	case u.Host == "":
		dialer = dialers.NewLocal(dialers.WithLocalTimeout(c.dialTimeout))
	case strings.HasSuffix(u.Scheme, "+ssh"):
		if cred.IsLocal() {
			return nil, apierror.WrapError(virt.ErrInvalidArgument, "ssh transport requires credentials", nil)
		}
		d, err := newSSHDialer(ctx, u.Host, cred, c.knownHosts, c.dialTimeout)
		if err != nil {
			return nil, err
		}
		c.ssh = d
		dialer = d
	default:
		opts := []dialers.RemoteOption{dialers.WithRemoteTimeout(c.dialTimeout)}
		if port := u.Port(); port != "" {
			opts = append(opts, dialers.UsePort(port))
		}
		dialer = dialers.NewRemote(u.Hostname(), opts...)
	}

	l := libvirt.NewWithDialer(dialer)
	target := driverURI(u)
	if err := l.ConnectToURI(libvirt.ConnectURI(target)); err != nil {
		if c.ssh != nil {
			c.ssh.Close()
			c.ssh = nil
		}
		return nil, err
	}
	c.monitorDialer = dialer
	c.sessionURI = target
	return l, nil
}

// driverURI 去掉传输方式与主机，得到远端 libvirtd 使用的驱动 uri
// qemu+ssh://user@host/system -> qemu:///system
func driverURI(u *url.URL) string {
	scheme := u.Scheme
	if i := strings.Index(scheme, "+"); i >= 0 {
		scheme = scheme[:i]
	}
	return fmt.Sprintf("%s://%s", scheme, u.Path)
}

// Close 关闭会话，重复调用无副作用
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpc == nil {
		return nil
	}
	c.stopKeepAlive()
	err := c.rpc.Disconnect()
	c.rpc = nil
	c.monitorDialer = nil
	c.sessionURI = ""
	if c.ssh != nil {
		if cerr := c.ssh.Close(); cerr != nil && err == nil {
			err = cerr
		}
		c.ssh = nil
	}
	if live := c.live.Load(); live != 0 {
		c.log.Warn().Int64("live_handles", live).Msg("session closed with live handles")
	}
	return err
}

// IsAlive 会话是否存活
func (c *Client) IsAlive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rpc != nil && c.rpc.IsConnected()
}

// SetKeepAlive 记录保活参数
// ssh 传输下按间隔发送 keepalive 请求，连续 count 次失败后关闭隧道
func (c *Client) SetKeepAlive(interval, count int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if interval < 0 || count < 0 {
		return apierror.WrapError(virt.ErrInvalidArgument, "keepalive interval and count must not be negative", nil)
	}
	c.keepAliveInterval = interval
	c.keepAliveCount = count
	c.stopKeepAlive()
	if c.ssh != nil && interval > 0 {
		c.keepAliveStop = make(chan struct{})
		go c.ssh.keepAlive(c.clk, time.Duration(interval)*time.Second, count, c.keepAliveStop, c.log)
	}
	return nil
}

// KeepAlive 当前保活参数
func (c *Client) KeepAlive() (interval, count int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keepAliveInterval, c.keepAliveCount
}

func (c *Client) stopKeepAlive() {
	if c.keepAliveStop != nil {
		close(c.keepAliveStop)
		c.keepAliveStop = nil
	}
}

// LiveHandles 当前持有引用的句柄数
func (c *Client) LiveHandles() int64 {
	return c.live.Load()
}

// session 取当前会话
func (c *Client) session() (RPC, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.rpc == nil {
		return nil, apierror.WrapError(virt.ErrConnection, "session is not open", nil)
	}
	return c.rpc, nil
}

// mapError 把 libvirt 的不存在错误映射为 virt.ErrNotFound
func mapError(msg string, err error) error {
	if err == nil {
		return nil
	}
	if libvirt.IsNotFound(err) {
		return apierror.WrapError(virt.ErrNotFound, msg, err)
	}
	var lerr libvirt.Error
	if errors.As(err, &lerr) && lerr.Code == uint32(libvirt.ErrNoSupport) {
		return apierror.WrapError(virt.ErrNotImplemented, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
