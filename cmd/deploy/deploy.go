// cmd/deploy/deploy.go

package deploy

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rosterlabs/rosterctl/pkg/config"
	"github.com/rosterlabs/rosterctl/pkg/crypto"
	"github.com/rosterlabs/rosterctl/pkg/deploy"
	"github.com/rosterlabs/rosterctl/pkg/interaction"
	"github.com/rosterlabs/rosterctl/pkg/roster_cli"
	"github.com/rosterlabs/rosterctl/pkg/roster_io"
)

var (
	flagDomain     string
	flagSSLEmail   string
	flagDBPassword string
	flagDryRun     bool
)

// DeployCmd provisions the Roster backend on the local host.
var DeployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Provision the Roster backend on this host",
	Long: `Deploy runs the full provisioning workflow: system packages, the
service user, the Postgres role and database, generated secrets and
configuration artifacts, the systemd unit, the nginx site, the
firewall, optional TLS issuance, and the nightly backup job.

Every step checks host state first, so re-running a partial or
completed deploy is safe: finished work is skipped, not redone.

Without --domain the site is keyed on the host's public IP and TLS
issuance is skipped.`,
	RunE: roster_cli.Wrap(func(rc *roster_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		in, err := collectInput(cmd)
		if err != nil {
			return err
		}

		rc.Log.Info("Starting deploy",
			zap.String("domain", in.DomainName),
			zap.Bool("dry_run", flagDryRun))

		o := deploy.NewOrchestrator(cfg)
		o.DryRun = flagDryRun
		return o.Run(rc, in)
	}),
}

// collectInput merges flags with interactive prompts. Domain and SSL
// email are prompted only on a terminal; the password is prompted twice
// when not supplied. When the password comes from the flag the
// confirmation is the same value, matching non-interactive use
// (CI, expect scripts) where the flag is the single source of truth.
func collectInput(cmd *cobra.Command) (*deploy.ProvisioningInput, error) {
	domain, err := interaction.PromptIfMissing(cmd, "domain",
		"Domain name (leave empty to use the public IP)")
	if err != nil {
		return nil, err
	}

	email := flagSSLEmail
	if domain != "" {
		email, err = interaction.PromptIfMissing(cmd, "ssl-email",
			"Contact email for TLS issuance (leave empty to skip TLS)")
		if err != nil {
			return nil, err
		}
	}

	in := &deploy.ProvisioningInput{
		DomainName: domain,
		SSLEmail:   email,
	}

	if flagDBPassword != "" {
		in.DBPassword = crypto.NewSecret(flagDBPassword)
		in.DBPasswordConfirm = in.DBPassword
		return in, nil
	}

	pw, confirm, err := interaction.PromptSecretWithConfirmation("Database password for the roster role")
	if err != nil {
		return nil, err
	}
	in.DBPassword = pw
	in.DBPasswordConfirm = confirm
	return in, nil
}

func init() {
	DeployCmd.Flags().StringVar(&flagDomain, "domain", "", "Domain name for the site (omit to key on the public IP)")
	DeployCmd.Flags().StringVar(&flagSSLEmail, "ssl-email", "", "Contact email for TLS certificate issuance")
	DeployCmd.Flags().StringVar(&flagDBPassword, "db-password", "", "Database password (prompted when omitted)")
	DeployCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "List the planned steps without touching the host")
}
