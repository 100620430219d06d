// Package config 读取 jvirt 服务配置
// 优先级：环境变量 > 配置文件（JVIRT_CONFIG）> 默认值
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jimyag/jvirt/pkg/virt"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// LibvirtURI 是 libvirt 连接 URI
	// 支持以下格式：
	// - qemu:///system (本地系统连接，默认)
	// - qemu+ssh://user@host/system (SSH 远程连接，需要 LibvirtUser/LibvirtPassword)
	// - qemu+tcp://host/system (TCP 远程连接)
	LibvirtURI      string `yaml:"libvirt_uri"`
	LibvirtUser     string `yaml:"libvirt_user"`
	LibvirtPassword string `yaml:"libvirt_password"`
	// KnownHosts ssh 远程连接使用的 known_hosts 文件，默认 ~/.ssh/known_hosts
	KnownHosts string `yaml:"known_hosts"`

	// DataDir 存放事件日志数据库
	// 默认：~/.local/share/jvirt
	DataDir string `yaml:"data_dir"`

	Address string `yaml:"address"`

	EventsEnabled     bool `yaml:"events_enabled"`
	MetricsEnabled    bool `yaml:"metrics_enabled"`
	MetricsInterval   int  `yaml:"metrics_interval"`
	MetricsHistory    int  `yaml:"metrics_history"`
	KeepAliveInterval int  `yaml:"keepalive_interval"`
	KeepAliveCount    int  `yaml:"keepalive_count"`

	// EventRetention 事件日志保留时长，0 表示不清理
	EventRetention time.Duration `yaml:"event_retention"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		LibvirtURI:        virt.DefaultURI,
		DataDir:           defaultDataDir(),
		Address:           "0.0.0.0:7777",
		EventsEnabled:     true,
		MetricsEnabled:    true,
		MetricsInterval:   virt.DefaultMetricsInterval,
		MetricsHistory:    virt.DefaultMetricsHistory,
		KeepAliveInterval: virt.DefaultKeepAliveInterval,
		KeepAliveCount:    virt.DefaultKeepAliveCount,
		EventRetention:    7 * 24 * time.Hour,
	}
}

func New() (*Config, error) {
	cfg := Default()

	// 1. 配置文件
	if path := os.Getenv("JVIRT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// 2. 环境变量
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	// LIBVIRT_URI 优先于 JVIRT_LIBVIRT_URI
	if uri := os.Getenv("LIBVIRT_URI"); uri != "" {
		c.LibvirtURI = uri
	} else if uri := os.Getenv("JVIRT_LIBVIRT_URI"); uri != "" {
		c.LibvirtURI = uri
	}
	setString(&c.LibvirtUser, "JVIRT_LIBVIRT_USER")
	setString(&c.LibvirtPassword, "JVIRT_LIBVIRT_PASSWORD")
	setString(&c.KnownHosts, "JVIRT_KNOWN_HOSTS")
	setString(&c.DataDir, "JVIRT_DATA_DIR")
	setString(&c.Address, "JVIRT_ADDRESS")

	for _, kv := range []struct {
		key string
		dst *int
	}{
		{"JVIRT_METRICS_INTERVAL", &c.MetricsInterval},
		{"JVIRT_METRICS_HISTORY", &c.MetricsHistory},
		{"JVIRT_KEEPALIVE_INTERVAL", &c.KeepAliveInterval},
		{"JVIRT_KEEPALIVE_COUNT", &c.KeepAliveCount},
	} {
		if err := setInt(kv.dst, kv.key); err != nil {
			return err
		}
	}
	if err := setBool(&c.EventsEnabled, "JVIRT_EVENTS_ENABLED"); err != nil {
		return err
	}
	if err := setBool(&c.MetricsEnabled, "JVIRT_METRICS_ENABLED"); err != nil {
		return err
	}
	if v := os.Getenv("JVIRT_EVENT_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse JVIRT_EVENT_RETENTION: %w", err)
		}
		c.EventRetention = d
	}
	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.LibvirtURI == "" {
		return fmt.Errorf("libvirt uri is required")
	}
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	if c.MetricsInterval < 0 || c.KeepAliveInterval < 0 || c.KeepAliveCount < 0 {
		return fmt.Errorf("intervals and counts must not be negative")
	}
	if c.MetricsHistory < virt.MinMetricsHistory {
		return fmt.Errorf("metrics history must be at least %d", virt.MinMetricsHistory)
	}
	if (c.LibvirtUser == "") != (c.LibvirtPassword == "") {
		return fmt.Errorf("libvirt user and password must be set together")
	}
	return nil
}

// DBPath 事件日志数据库路径
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "jvirt.db")
}

// VirtOptions 转换为连接选项
func (c *Config) VirtOptions() []virt.Option {
	opts := []virt.Option{
		virt.WithURI(c.LibvirtURI),
		virt.WithKeepAlive(c.KeepAliveInterval, c.KeepAliveCount),
		virt.WithEvents(c.EventsEnabled),
		virt.WithMetrics(c.MetricsEnabled),
		virt.WithMetricsInterval(c.MetricsInterval),
		virt.WithMetricsHistory(c.MetricsHistory),
	}
	if c.LibvirtUser != "" {
		opts = append(opts, virt.WithCredentials(c.LibvirtUser, c.LibvirtPassword))
	} else {
		opts = append(opts, virt.WithLocalAuth())
	}
	return opts
}

// defaultDataDir 获取数据目录
func defaultDataDir() string {
	// 1. 使用用户主目录下的 .local/share/jvirt
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "jvirt")
	}

	// 2. 如果无法获取主目录，使用当前目录下的 data
	return filepath.Join(".", "data")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = b
	return nil
}
