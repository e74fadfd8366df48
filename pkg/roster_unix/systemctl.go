// pkg/roster_unix/systemctl.go

package roster_unix

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

// Systemctl exit codes, per systemctl(1). The status-query subcommands
// use non-zero codes for ordinary negative answers, so callers must not
// treat every non-zero exit as a failure.
const (
	ExitSuccess     = 0
	ExitGenericFail = 1
	ExitInactive    = 3
	ExitUnknown     = 4
	ExitNotLoaded   = 5
)

// DaemonReload makes systemd re-read unit files after a write.
func DaemonReload(ctx context.Context) error {
	logger := otelzap.Ctx(ctx)

	if _, err := exec.LookPath("systemctl"); err != nil {
		return roster_err.NewDependencyError("systemctl", "managing the backend service",
			"rosterctl requires a systemd host")
	}

	logger.Info("Reloading systemd daemon")
	if err := execute.RunSimple(ctx, "systemctl", "daemon-reload"); err != nil {
		return cerr.Wrap(err, "daemon-reload")
	}
	return nil
}

// EnableNow enables the unit for boot and starts it in one step.
func EnableNow(ctx context.Context, unit string) error {
	logger := otelzap.Ctx(ctx)
	logger.Info("Enabling and starting systemd unit", zap.String("unit", unit))

	out, err := execute.Run(ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{"enable", "--now", unit},
		Capture: true,
	})
	if err != nil {
		status := captureStatus(ctx, unit)
		logger.Error("Failed to enable/start unit",
			zap.String("unit", unit),
			zap.String("output", out),
			zap.String("status", status),
			zap.Error(err))
		return cerr.Wrapf(err, "enable --now %s", unit)
	}
	return nil
}

// Reload asks the unit to reload its configuration.
func Reload(ctx context.Context, unit string) error {
	return execute.RunSimple(ctx, "systemctl", "reload", unit)
}

// Restart restarts the unit.
func Restart(ctx context.Context, unit string) error {
	return execute.RunSimple(ctx, "systemctl", "restart", unit)
}

// IsActive reports whether the unit is currently running. A non-zero
// exit from `systemctl is-active` is a negative answer, not an error.
func IsActive(ctx context.Context, unit string) bool {
	out, err := execute.Run(ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{"is-active", unit},
		Capture: true,
	})
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "active"
}

// IsEnabled reports whether the unit is registered to start on boot.
func IsEnabled(ctx context.Context, unit string) bool {
	out, err := execute.Run(ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{"is-enabled", unit},
		Capture: true,
	})
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "enabled"
}

// captureStatus grabs `systemctl status` output for failure diagnostics.
func captureStatus(ctx context.Context, unit string) string {
	out, _ := execute.Run(ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{"status", unit, "--no-pager", "--lines", "10"},
		Capture: true,
	})
	return out
}
