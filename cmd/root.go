/* cmd/root.go */

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	// Subcommands
	"github.com/rosterlabs/rosterctl/cmd/deploy"
	"github.com/rosterlabs/rosterctl/cmd/verify"

	"github.com/rosterlabs/rosterctl/pkg/logger"
	"github.com/rosterlabs/rosterctl/pkg/roster_cli"
	"github.com/rosterlabs/rosterctl/pkg/roster_err"
	"github.com/rosterlabs/rosterctl/pkg/roster_io"
)

// RootCmd is the base command for rosterctl.
var RootCmd = &cobra.Command{
	Use:   "rosterctl",
	Short: "Rosterctl provisions and verifies a Roster backend host",
	Long: `Rosterctl deploys the Roster backend onto a single Ubuntu host: system
packages, the service user, the Postgres database and role, generated
secrets and configuration, the systemd unit, the nginx reverse proxy
with optional TLS, the firewall, and the nightly backup job.

It also ships an acceptance probe that verifies the login endpoint's
rate limiter against the deployed service.`,
	RunE: roster_cli.Wrap(func(rc *roster_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		fmt.Println("No subcommand provided. Try `rosterctl help`.")
		return cmd.Help()
	}),
}

// RegisterCommands adds all subcommands to the root command.
func RegisterCommands() {
	for _, subCmd := range []*cobra.Command{
		deploy.DeployCmd,
		verify.VerifyCmd,
	} {
		RootCmd.AddCommand(subCmd)
	}
}

// Execute initializes and runs the root command.
func Execute() {
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Failed to flush logs: %v\n", err)
		}
	}()

	RegisterCommands()

	if err := RootCmd.Execute(); err != nil {
		if roster_err.IsExpectedUserError(err) {
			logger.L().Warn("CLI completed with user error", zap.Error(err))
			fmt.Fprintln(os.Stderr, "Error: "+err.Error())
			os.Exit(roster_err.GetExitCode(err))
		}
		logger.L().Error("CLI execution error", zap.Error(err))
		os.Exit(roster_err.GetExitCode(err))
	}
}
