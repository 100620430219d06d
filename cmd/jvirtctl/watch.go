package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/jimyag/jvirt/pkg/virt"
	"github.com/spf13/cobra"
)

var watchInterval int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print lifecycle events and CPU utilization until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		conn, err := connect(ctx, true)
		if err != nil {
			return err
		}
		defer conn.Dispose()

		// 1. 先枚举一次，让已有的域进入缓存参与采样
		if _, err := conn.Domains(); err != nil {
			return fmt.Errorf("failed to list domains: %w", err)
		}
		if err := conn.SetMetricsInterval(watchInterval); err != nil {
			return err
		}

		// 2. 事件
		conn.SubscribeDomainEvents(func(d *virt.Domain, ev virt.DomainLifecycleEvent) {
			fmt.Printf("%s domain %s %s (detail %d)\n", stamp(), label(d, ev.ID.String()), ev.Type, ev.Detail)
		})
		conn.SubscribePoolEvents(func(p *virt.StoragePool, ev virt.PoolLifecycleEvent) {
			fmt.Printf("%s pool %s %s\n", stamp(), poolLabel(p, ev.ID.String()), ev.Type)
		})
		conn.SubscribePoolRefresh(func(p *virt.StoragePool, ev virt.PoolRefreshEvent) {
			fmt.Printf("%s pool %s refreshed\n", stamp(), poolLabel(p, ev.ID.String()))
		})
		fmt.Printf("Watching %s (events: %v), press Ctrl-C to stop\n", conn.URI(), conn.RegisteredEvents())

		// 3. 每秒打印运行中域的利用率
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				printUtilization(conn)
			}
		}
	},
}

func init() {
	watchCmd.Flags().IntVar(&watchInterval, "interval", virt.DefaultMetricsInterval, "sampling interval in seconds")
}

func printUtilization(conn *virt.Connection) {
	domains := conn.CachedDomains()
	sort.Slice(domains, func(i, j int) bool {
		return domains[i].UUID().String() < domains[j].UUID().String()
	})
	for _, d := range domains {
		u := d.CPUUtilization()
		if u == nil {
			continue
		}
		if active, err := d.IsActive(); err != nil || !active {
			continue
		}
		fmt.Printf("%s cpu %-24s %6.2f%% (1m %6.2f%%)\n", stamp(), label(d, d.UUID().String()), u.LastSecond(), u.LastMinute())
	}
}

func stamp() string {
	return time.Now().Format("15:04:05")
}

func label(d *virt.Domain, fallback string) string {
	if d == nil {
		return fallback
	}
	if name, err := d.Name(); err == nil {
		return name
	}
	return fallback
}

func poolLabel(p *virt.StoragePool, fallback string) string {
	if p == nil {
		return fallback
	}
	if name, err := p.Name(); err == nil {
		return name
	}
	return fallback
}
