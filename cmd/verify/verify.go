// cmd/verify/verify.go

package verify

import (
	"github.com/spf13/cobra"

	"github.com/rosterlabs/rosterctl/pkg/roster_cli"
	"github.com/rosterlabs/rosterctl/pkg/roster_io"
)

// VerifyCmd groups post-deployment acceptance probes.
var VerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run acceptance probes against a deployed Roster backend",
	RunE: roster_cli.Wrap(func(rc *roster_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}),
}

func init() {
	VerifyCmd.AddCommand(RatelimitCmd)
}
