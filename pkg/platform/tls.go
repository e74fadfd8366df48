// pkg/platform/tls.go

package platform

import (
	"context"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/rosterlabs/rosterctl/pkg/execute"
)

// IssueCertificate obtains and installs a TLS certificate for the
// domain via certbot's nginx plugin. Non-interactive: terms are
// accepted and HTTP traffic is redirected to HTTPS. Issuance needs the
// firewall already open on 80/443 so the CA can reach the host.
func IssueCertificate(ctx context.Context, domain, email string) error {
	logger := otelzap.Ctx(ctx)
	logger.Info("Requesting TLS certificate",
		zap.String("domain", domain),
		zap.String("email", email))

	if _, err := execute.Run(ctx, execute.Options{
		Command: "certbot",
		Args: []string{
			"--nginx",
			"-d", domain,
			"-m", email,
			"--non-interactive",
			"--agree-tos",
			"--redirect",
		},
		Timeout: 5 * time.Minute,
	}); err != nil {
		return cerr.Wrapf(err, "certbot issuance for %s", domain)
	}

	logger.Info("TLS certificate installed", zap.String("domain", domain))
	return nil
}
