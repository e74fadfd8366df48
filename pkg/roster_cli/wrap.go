// pkg/roster_cli/wrap.go

package roster_cli

import (
	"github.com/spf13/cobra"

	"github.com/rosterlabs/rosterctl/pkg/roster_io"
)

// Wrap adapts a RuntimeContext-style handler to cobra's RunE signature,
// adding panic recovery and end-of-run logging.
func Wrap(fn func(rc *roster_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		rc := roster_io.NewContext(cmd.Context(), cmd.Name())
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		return fn(rc, cmd, args)
	}
}
