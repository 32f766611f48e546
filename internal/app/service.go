package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gajzzs/hostsbypass/internal/service"
)

func NewServiceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the background refresh service",
	}

	manager := func() (*service.Manager, error) {
		r := rt()
		return service.NewManager(r.Daemon(), r.serviceConfigPath())
	}

	simple := func(use, short, done string, op func(*service.Manager) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				sm, err := manager()
				if err != nil {
					return err
				}
				if err := op(sm); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), done)
				return nil
			},
		}
	}

	cmd.AddCommand(
		simple("install", "Install the service and enable it at boot", "Service installed and enabled for auto-start", (*service.Manager).Install),
		simple("uninstall", "Remove the service", "Service uninstalled", (*service.Manager).Uninstall),
		simple("start", "Start the service", "Service started", (*service.Manager).Start),
		simple("stop", "Stop the service", "Service stopped", (*service.Manager).Stop),
		simple("restart", "Restart the service", "Service restarted", (*service.Manager).Restart),
		&cobra.Command{
			Use:   "status",
			Short: "Show the service status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				sm, err := manager()
				if err != nil {
					return err
				}
				st, err := sm.Status()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Service status: %s\nConfig: %s\n", st, service.ConfigPath())
				return nil
			},
		},
		&cobra.Command{
			Use:    "run",
			Short:  "Run the refresh loop in the foreground",
			Args:   cobra.NoArgs,
			Hidden: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				sm, err := manager()
				if err != nil {
					return err
				}
				return sm.Run()
			},
		},
	)
	return cmd
}
