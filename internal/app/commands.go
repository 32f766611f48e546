package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gajzzs/hostsbypass/internal/config"
	"github.com/gajzzs/hostsbypass/internal/status"
	"github.com/gajzzs/hostsbypass/internal/update"
)

// ErrAborted is returned when the user declines a confirmation prompt.
var ErrAborted = errors.New("aborted by user")

func NewInstallCommand() *cobra.Command {
	return newHostsCommand(ActionInstall, "install", "Install the hosts bypass")
}

func NewUpdateCommand() *cobra.Command {
	return newHostsCommand(ActionUpdate, "update", "Update the installed hosts bypass")
}

func NewUninstallCommand() *cobra.Command {
	return newHostsCommand(ActionUninstall, "uninstall", "Restore the default hosts file")
}

func newHostsCommand(action Action, use, short string) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := rt()
			if !yes {
				if err := confirm(fmt.Sprintf("%s %s", short, r.HostsPath)); err != nil {
					return err
				}
			}
			return runHostsAction(cmd.Context(), cmd.OutOrStdout(), r, action)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func confirm(label string) error {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		return ErrAborted
	}
	return nil
}

// runHostsAction runs one install, update or uninstall through the
// dispatcher, then re-checks and prints the status.
func runHostsAction(ctx context.Context, out io.Writer, r *Runtime, action Action) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Fprintln(out, progressMessages[action])

	res, _ := r.Dispatcher.Await(action, func() (any, error) {
		if action == ActionUninstall {
			return r.Installer.Uninstall(ctx), nil
		}
		return r.Installer.Install(ctx), nil
	}, nil)

	ok, _ := res.Value.(bool)
	if res.Err != nil {
		r.Logger.Error("hosts action failed", zap.String("action", string(action)), zap.Error(res.Err))
		ok = false
	}
	msg := outcomeMessage(action, ok, r.Installer.Hint())

	report := checkStatus(ctx, r)
	if !ok {
		printReport(out, report)
		return errors.New(msg)
	}
	fmt.Fprintln(out, msg)
	printReport(out, report)
	return nil
}

func checkStatus(ctx context.Context, r *Runtime) status.Report {
	res, _ := r.Dispatcher.Await(ActionStatus, func() (any, error) {
		return r.Oracle.Check(ctx), nil
	}, nil)
	report, ok := res.Value.(status.Report)
	if !ok || res.Err != nil {
		return status.Report{Status: status.Outdated, Label: "Устарело", Color: status.ColorBad}
	}
	return report
}

func printReport(out io.Writer, report status.Report) {
	fmt.Fprintf(out, "Статус: %s\n", report.Label)
	if report.RemoteDate != "" {
		fmt.Fprintf(out, "Последнее обновление: %s\n", report.RemoteDate)
	}
}

func NewCheckUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-update",
		Short: "Check for a newer release of the application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := rt()
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			res, _ := r.Dispatcher.Await(ActionCheckUpdate, func() (any, error) {
				return r.Updater.Check(ctx)
			}, nil)
			result, _ := res.Value.(update.Result)
			msg := updateMessage(result, res.Err)
			if res.Err != nil {
				return errors.New(msg)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Write a config file with the default settings",
			Args:  cobra.NoArgs,
			// The target file usually does not exist yet, so it must not be loaded.
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				requestedPath = ""
				if f := cmd.Flag("config"); f != nil {
					requestedPath = f.Value.String()
				}
				return nil
			},
			RunE: func(cmd *cobra.Command, args []string) error {
				path := configInitPath()
				if err := config.WriteDefault(path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				r := rt()
				data, err := r.Config.YAML()
				if err != nil {
					return err
				}
				if r.ConfigFile != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", r.ConfigFile)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			},
		},
	)
	return cmd
}
