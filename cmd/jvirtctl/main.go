package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/jimmicro/version"
	"github.com/jimyag/jvirt/pkg/libvirt"
	"github.com/jimyag/jvirt/pkg/virt"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	uri        string
	user       string
	password   string
	knownHosts string
	verbose    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "jvirtctl",
	Short: "jvirtctl - inspect and control a libvirt host",
	Long: `jvirtctl talks to libvirt directly through the jvirt connection core.

It lists domains, storage pools and volumes, controls domain lifecycle,
and watches lifecycle events together with per-second CPU utilization.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&uri, "uri", envOr("LIBVIRT_URI", virt.DefaultURI), "libvirt connection URI")
	rootCmd.PersistentFlags().StringVar(&user, "user", os.Getenv("JVIRT_LIBVIRT_USER"), "username for qemu+ssh connections")
	rootCmd.PersistentFlags().StringVar(&password, "password", os.Getenv("JVIRT_LIBVIRT_PASSWORD"), "password for qemu+ssh connections")
	rootCmd.PersistentFlags().StringVar(&knownHosts, "known-hosts", "", "known_hosts file for qemu+ssh connections")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log connection internals to stderr")

	rootCmd.AddCommand(domainsCmd)
	rootCmd.AddCommand(domainCmd)
	rootCmd.AddCommand(poolsCmd)
	rootCmd.AddCommand(volumesCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(watchCmd)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// connect 打开连接，只有 watch 需要事件和指标采样
func connect(ctx context.Context, watch bool) (*virt.Connection, error) {
	logger := zerolog.Nop()
	if verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	drv := libvirt.NewDriver(
		libvirt.WithLogger(logger),
		libvirt.WithKnownHosts(knownHosts),
	)
	opts := []virt.Option{
		virt.WithURI(uri),
		virt.WithLogger(logger),
		virt.WithEvents(watch),
		virt.WithMetrics(watch),
	}
	if user != "" {
		opts = append(opts, virt.WithCredentials(user, password))
	}

	conn, err := virt.Open(ctx, drv, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to libvirt: %w", err)
	}
	return conn, nil
}

func gib(bytes uint64) float64 {
	return float64(bytes) / (1 << 30)
}
