package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jimyag/jvirt/internal/jvirt/entity"
	"github.com/jimyag/jvirt/internal/jvirt/service"
	"github.com/spf13/cobra"
)

var poolsCmd = &cobra.Command{
	Use:   "pools",
	Short: "List all storage pools",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		conn, err := connect(ctx, false)
		if err != nil {
			return err
		}
		defer conn.Dispose()

		pools, err := service.NewStorageService(conn).ListStoragePools(ctx)
		if err != nil {
			return fmt.Errorf("failed to list pools: %w", err)
		}
		if len(pools) == 0 {
			fmt.Println("No storage pools found")
			return nil
		}

		fmt.Printf("%-20s %-10s %-10s %12s %12s %12s\n",
			"NAME", "TYPE", "STATE", "CAPACITY", "ALLOCATED", "AVAILABLE")
		fmt.Println(strings.Repeat("-", 88))
		for _, p := range pools {
			fmt.Printf("%-20s %-10s %-10s %10.1fGB %10.1fGB %10.1fGB\n",
				p.Name, p.Type, p.State, gib(p.Capacity), gib(p.Allocation), gib(p.Available))
		}
		fmt.Printf("\nTotal: %d pool(s)\n", len(pools))
		return nil
	},
}

var volumesCmd = &cobra.Command{
	Use:   "volumes <pool>",
	Short: "List volumes in a storage pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		conn, err := connect(ctx, false)
		if err != nil {
			return err
		}
		defer conn.Dispose()

		vols, err := service.NewStorageService(conn).ListVolumes(ctx, entity.StoragePoolRef{Name: args[0]})
		if err != nil {
			return fmt.Errorf("failed to list volumes: %w", err)
		}
		if len(vols) == 0 {
			fmt.Printf("No volumes found in pool %s\n", args[0])
			return nil
		}

		fmt.Printf("%-32s %-8s %-6s %10s %10s  %s\n", "NAME", "TYPE", "FORMAT", "CAPACITY", "ALLOCATED", "PATH")
		fmt.Println(strings.Repeat("-", 100))
		for _, v := range vols {
			fmt.Printf("%-32s %-8s %-6s %8.1fGB %8.1fGB  %s\n",
				v.Name, v.Type, v.Format, gib(v.Capacity), gib(v.Allocation), v.Path)
		}
		fmt.Printf("\nTotal: %d volume(s)\n", len(vols))
		return nil
	},
}
