// Author @gajzzs
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gajzzs/hostsbypass/internal/app"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "hostsbypass",
	Short:         "Install and maintain a hosts file that bypasses DNS blocking",
	Long:          "hostsbypass replaces the system hosts file with a maintained bypass list, keeps it current and restores the default on request",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return app.Setup(configPath)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/hostsbypass/config.yaml)")
	rootCmd.AddCommand(
		app.NewStatusCommand(),
		app.NewInstallCommand(),
		app.NewUpdateCommand(),
		app.NewUninstallCommand(),
		app.NewCheckUpdateCommand(),
		app.NewConfigCommand(),
		app.NewServiceCommand(),
	)
}

func main() {
	err := rootCmd.Execute()
	app.Shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
