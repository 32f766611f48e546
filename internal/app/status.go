package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gajzzs/hostsbypass/internal/platform"
	"github.com/gajzzs/hostsbypass/internal/service"
)

func NewStatusCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:                   "status",
		Short:                 "Show whether the hosts bypass is installed and current",
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := rt()
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			out := cmd.OutOrStdout()
			report := checkStatus(ctx, r)

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			fmt.Fprintln(out, "Hosts Bypass Status")
			fmt.Fprintln(out, "===================")
			printReport(out, report)
			fmt.Fprintf(out, "Hosts file: %s\n", r.HostsPath)
			fmt.Fprintf(out, "Elevated: %t\n", platform.IsElevated())

			fmt.Fprintln(out, "\nSystem Information:")
			if info, err := r.Monitor.HostInfo(); err == nil {
				fmt.Fprintf(out, "  Host: %s\n", info)
			}
			if iface := platform.DefaultInterface(); iface != "" {
				fmt.Fprintf(out, "  Default interface: %s\n", iface)
			}
			if caches := r.Monitor.DNSCaches(); len(caches) > 0 {
				fmt.Fprintf(out, "  DNS caches: %s\n", strings.Join(caches, ", "))
			} else {
				fmt.Fprintln(out, "  DNS caches: none detected")
			}

			fmt.Fprintln(out, "\nService:")
			if sm, err := service.NewManager(r.Daemon(), r.serviceConfigPath()); err == nil {
				if st, err := sm.Status(); err == nil {
					fmt.Fprintf(out, "  Status: %s\n", st)
				} else {
					fmt.Fprintln(out, "  Status: Not installed")
				}
				fmt.Fprintf(out, "  Config: %s\n", service.ConfigPath())
			} else {
				fmt.Fprintln(out, "  Status: Not Available")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
