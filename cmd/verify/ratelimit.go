// cmd/verify/ratelimit.go

package verify

import (
	"os"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/rosterlabs/rosterctl/pkg/roster_cli"
	"github.com/rosterlabs/rosterctl/pkg/roster_io"
	"github.com/rosterlabs/rosterctl/pkg/verify"
)

var (
	flagURL      string
	flagRequests int
	flagLimit    int
	flagDelay    time.Duration
	flagEmail    string
	flagPassword string
)

// RatelimitCmd probes the live login rate limiter.
var RatelimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Probe the login endpoint's rate limiter",
	Long: `Ratelimit sends a short burst of deliberately invalid credentials at
the login endpoint and classifies the responses. With the defaults
(7 requests against a limit of 5) a healthy limiter produces five 401s
followed by two 429s.

The probe reports what it observed; it does not fail the process on a
mismatch. Use the report (or wrap the command) to judge pass/fail.`,
	Example: `  rosterctl verify ratelimit --url http://roster.example.com/api/auth/login
  rosterctl verify ratelimit --url http://203.0.113.10/api/auth/login --requests 10 --limit 5`,
	RunE: roster_cli.Wrap(func(rc *roster_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		if flagURL == "" {
			return cerr.New("--url is required")
		}

		probe := verify.NewProbe(flagURL)
		probe.Requests = flagRequests
		probe.Limit = flagLimit
		probe.Delay = flagDelay
		if flagEmail != "" {
			probe.Email = flagEmail
		}
		if flagPassword != "" {
			probe.Password = flagPassword
		}

		report, err := probe.Run(rc)
		if err != nil {
			return err
		}
		report.Render(os.Stdout)
		return nil
	}),
}

func init() {
	RatelimitCmd.Flags().StringVar(&flagURL, "url", "", "Login endpoint URL to probe")
	RatelimitCmd.Flags().IntVar(&flagRequests, "requests", verify.DefaultRequests, "Number of requests in the burst")
	RatelimitCmd.Flags().IntVar(&flagLimit, "limit", verify.DefaultLimit, "Configured rate limit being checked")
	RatelimitCmd.Flags().DurationVar(&flagDelay, "delay", verify.DefaultDelay, "Delay between requests")
	RatelimitCmd.Flags().StringVar(&flagEmail, "email", "", "Credential email (defaults to a known-invalid account)")
	RatelimitCmd.Flags().StringVar(&flagPassword, "password", "", "Credential password (defaults to a known-invalid value)")
}
