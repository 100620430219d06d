package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jimyag/jvirt/internal/jvirt/entity"
	"github.com/jimyag/jvirt/internal/jvirt/service"
	"github.com/jimyag/jvirt/pkg/virt"
	"github.com/spf13/cobra"
)

var domainOps = map[string]virt.DomainOp{
	"start":        virt.DomainOpCreate,
	"shutdown":     virt.DomainOpShutdown,
	"reset":        virt.DomainOpReset,
	"suspend":      virt.DomainOpSuspend,
	"resume":       virt.DomainOpResume,
	"managed-save": virt.DomainOpManagedSave,
}

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List all domains",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		conn, err := connect(ctx, false)
		if err != nil {
			return err
		}
		defer conn.Dispose()

		domains, err := service.NewDomainService(conn).ListDomains(ctx)
		if err != nil {
			return fmt.Errorf("failed to list domains: %w", err)
		}
		if len(domains) == 0 {
			fmt.Println("No domains found")
			return nil
		}

		fmt.Printf("%-5s %-24s %-10s %5s %10s  %s\n", "ID", "NAME", "STATE", "VCPUS", "MEMORY", "UUID")
		fmt.Println(strings.Repeat("-", 96))
		for _, d := range domains {
			id := "-"
			if d.ID >= 0 {
				id = fmt.Sprint(d.ID)
			}
			fmt.Printf("%-5s %-24s %-10s %5d %8dMB  %s\n",
				id, d.Name, d.State, d.VCPUs, d.MaxMemoryKB/1024, d.UUID)
		}
		fmt.Printf("\nTotal: %d domain(s)\n", len(domains))
		return nil
	},
}

var domainCmd = &cobra.Command{
	Use:   "domain <op> <name>",
	Short: "Show or control a domain",
	Long: `Show or control a single domain by name.

Operations:
  xml           print the domain descriptor
  start         start a defined domain
  shutdown      request a guest shutdown
  reset         hard reset
  suspend       pause all vCPUs
  resume        resume a suspended domain
  managed-save  save state to disk and stop`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opName, name := args[0], args[1]
		op, ok := domainOps[opName]
		if opName != "xml" && !ok {
			return fmt.Errorf("unknown domain operation %q", opName)
		}

		ctx := context.Background()
		conn, err := connect(ctx, false)
		if err != nil {
			return err
		}
		defer conn.Dispose()

		svc := service.NewDomainService(conn)
		ref := entity.DomainRef{Name: name}
		if opName == "xml" {
			doc, err := svc.DescribeDomainXML(ctx, ref)
			if err != nil {
				return fmt.Errorf("failed to get domain xml: %w", err)
			}
			fmt.Println(doc)
			return nil
		}

		if err := svc.ControlDomain(ctx, ref, op); err != nil {
			return fmt.Errorf("failed to %s domain %s: %w", opName, name, err)
		}
		fmt.Printf("✓ %s %s\n", opName, name)
		return nil
	},
}
