// pkg/platform/firewall.go

package platform

import (
	"context"
	"os/exec"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/rosterlabs/rosterctl/pkg/execute"
	"github.com/rosterlabs/rosterctl/pkg/roster_err"
)

// PortsAllowed reports whether UFW is active and every given port (or
// application profile) already has an allow rule.
func PortsAllowed(ctx context.Context, ports []string) bool {
	out, err := execute.Run(ctx, execute.Options{
		Command: "ufw",
		Args:    []string{"status"},
		Capture: true,
	})
	if err != nil {
		return false
	}
	if !strings.Contains(out, "Status: active") {
		return false
	}
	for _, port := range ports {
		if !ruleListed(out, port) {
			return false
		}
	}
	return true
}

// ruleListed scans `ufw status` output for an ALLOW rule matching the
// port or profile name.
func ruleListed(status, port string) bool {
	for _, line := range strings.Split(status, "\n") {
		if !strings.Contains(line, "ALLOW") {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), port) {
			return true
		}
	}
	return false
}

// AllowPorts opens the given ports (or ufw application profiles, e.g.
// "OpenSSH") through UFW. Re-running for an already-allowed port is a
// no-op on ufw's side, so the whole call is idempotent.
func AllowPorts(ctx context.Context, ports []string) error {
	logger := otelzap.Ctx(ctx)

	if _, err := exec.LookPath("ufw"); err != nil {
		return roster_err.NewDependencyError("ufw", "opening firewall ports",
			"Install ufw (apt-get install ufw) and re-run the deploy")
	}

	for _, port := range ports {
		logger.Info("Allowing firewall port", zap.String("port", port))
		if err := execute.RunSimple(ctx, "ufw", "allow", port); err != nil {
			return cerr.Wrapf(err, "allow port %s", port)
		}
	}

	// `ufw --force enable` is safe when the firewall is already active.
	if err := execute.RunSimple(ctx, "ufw", "--force", "enable"); err != nil {
		return cerr.Wrap(err, "enable ufw")
	}
	return nil
}
