package main

import (
	"context"
	"fmt"

	"github.com/jimyag/jvirt/internal/jvirt/service"
	"github.com/spf13/cobra"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Show host information",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		conn, err := connect(ctx, false)
		if err != nil {
			return err
		}
		defer conn.Dispose()

		n, err := service.NewNodeService(conn).DescribeNode(ctx, false)
		if err != nil {
			return fmt.Errorf("failed to describe node: %w", err)
		}

		fmt.Printf("Hostname:     %s\n", n.Hostname)
		fmt.Printf("URI:          %s\n", n.URI)
		fmt.Printf("CPU model:    %s\n", n.Model)
		fmt.Printf("CPUs:         %d (%d MHz)\n", n.CPUs, n.MHz)
		fmt.Printf("Topology:     %d node(s), %d socket(s), %d core(s), %d thread(s)\n", n.Nodes, n.Sockets, n.Cores, n.Threads)
		fmt.Printf("Memory:       %.1fGB\n", float64(n.MemoryKB)/(1<<20))
		fmt.Printf("Free memory:  %.1fGB\n", gib(n.FreeMemory))
		return nil
	},
}
