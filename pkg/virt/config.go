package virt

import (
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultURI               = "qemu:///system"
	DefaultKeepAliveInterval = 6
	DefaultKeepAliveCount    = 5
	DefaultMetricsInterval   = 1
	DefaultMetricsHistory    = 300
	MinMetricsHistory        = 2
	DefaultJoinTimeout       = 60 * time.Second

	DefaultQemuRunPath = "/var/run/libvirt/qemu"
	DefaultQemuLogPath = "/var/log/libvirt/qemu"
	DefaultQemuEtcPath = "/etc/libvirt/qemu"
)

// Config 连接配置
type Config struct {
	// URI libvirt 连接地址
	URI string
	// Credentials 为空时使用本地认证
	Credentials Credentials

	// KeepAliveInterval 保活间隔（秒），0 表示关闭保活
	KeepAliveInterval int
	// KeepAliveCount 无响应多少次后认为连接断开
	KeepAliveCount int

	// EventsEnabled 是否启动事件循环
	EventsEnabled bool
	// MetricsEnabled 是否启动指标采样
	MetricsEnabled bool
	// MetricsInterval 采样间隔（秒），0 表示暂停
	MetricsInterval int
	// MetricsHistory 每秒采样历史的容量
	MetricsHistory int

	// QEMU 运行时、日志与配置目录
	QemuRunPath string
	QemuLogPath string
	QemuEtcPath string

	// JoinTimeout 释放连接时等待事件循环退出的上限
	JoinTimeout time.Duration

	Clock  clock.Clock
	Logger zerolog.Logger
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	logger := log.Logger
	if zerolog.DefaultContextLogger != nil {
		logger = *zerolog.DefaultContextLogger
	}
	return Config{
		URI:               DefaultURI,
		KeepAliveInterval: DefaultKeepAliveInterval,
		KeepAliveCount:    DefaultKeepAliveCount,
		EventsEnabled:     true,
		MetricsEnabled:    true,
		MetricsInterval:   DefaultMetricsInterval,
		MetricsHistory:    DefaultMetricsHistory,
		QemuRunPath:       DefaultQemuRunPath,
		QemuLogPath:       DefaultQemuLogPath,
		QemuEtcPath:       DefaultQemuEtcPath,
		JoinTimeout:       DefaultJoinTimeout,
		Clock:             clock.NewClock(),
		Logger:            logger,
	}
}

// Option 修改连接配置
type Option func(*Config)

// WithURI 设置连接地址
func WithURI(uri string) Option {
	return func(c *Config) { c.URI = uri }
}

// WithCredentials 使用用户名密码认证
func WithCredentials(username, password string) Option {
	return func(c *Config) {
		c.Credentials = Credentials{Username: username, Password: password}
	}
}

// WithLocalAuth 使用本地认证
func WithLocalAuth() Option {
	return func(c *Config) { c.Credentials = Credentials{} }
}

// WithKeepAlive 设置保活参数，interval 为 0 时关闭保活
func WithKeepAlive(interval, count int) Option {
	return func(c *Config) {
		c.KeepAliveInterval = interval
		c.KeepAliveCount = count
	}
}

// WithEvents 开关事件循环
func WithEvents(enabled bool) Option {
	return func(c *Config) { c.EventsEnabled = enabled }
}

// WithMetrics 开关指标采样
func WithMetrics(enabled bool) Option {
	return func(c *Config) { c.MetricsEnabled = enabled }
}

// WithMetricsInterval 设置采样间隔（秒）
func WithMetricsInterval(seconds int) Option {
	return func(c *Config) { c.MetricsInterval = seconds }
}

// WithMetricsHistory 设置每秒采样历史容量
func WithMetricsHistory(capacity int) Option {
	return func(c *Config) { c.MetricsHistory = capacity }
}

// WithQemuPaths 设置 QEMU 目录
func WithQemuPaths(run, logDir, etc string) Option {
	return func(c *Config) {
		c.QemuRunPath = run
		c.QemuLogPath = logDir
		c.QemuEtcPath = etc
	}
}

// WithJoinTimeout 设置等待事件循环退出的上限
func WithJoinTimeout(d time.Duration) Option {
	return func(c *Config) { c.JoinTimeout = d }
}

// WithClock 替换时钟，测试中使用 fakeclock
func WithClock(clk clock.Clock) Option {
	return func(c *Config) { c.Clock = clk }
}

// WithLogger 设置日志
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// validate 校验并修正配置
func (c *Config) validate() error {
	if c.URI == "" {
		c.URI = DefaultURI
	}
	if c.KeepAliveInterval < 0 || c.KeepAliveCount < 0 {
		return apierrorf(ErrInvalidArgument, "keepalive interval and count must not be negative")
	}
	if c.MetricsInterval < 0 {
		return apierrorf(ErrInvalidArgument, "metrics interval must not be negative")
	}
	if c.MetricsHistory < MinMetricsHistory {
		c.MetricsHistory = MinMetricsHistory
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = DefaultJoinTimeout
	}
	if c.Clock == nil {
		c.Clock = clock.NewClock()
	}
	return nil
}
