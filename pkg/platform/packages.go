// pkg/platform/packages.go

package platform

import (
	"context"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/rosterlabs/rosterctl/pkg/execute"
)

// PackagesInstalled reports whether every named package is already
// present, via dpkg-query. Any query failure counts as "not installed".
func PackagesInstalled(ctx context.Context, pkgs []string) bool {
	for _, pkg := range pkgs {
		out, err := execute.Run(ctx, execute.Options{
			Command: "dpkg-query",
			Args:    []string{"-W", "-f", "${Status}", pkg},
			Capture: true,
		})
		if err != nil || strings.TrimSpace(out) != "install ok installed" {
			return false
		}
	}
	return true
}

// AptInstall refreshes the package index and installs the given
// packages non-interactively. apt tolerates already-installed packages,
// so the call is safe to repeat.
func AptInstall(ctx context.Context, pkgs []string) error {
	logger := otelzap.Ctx(ctx)
	logger.Info("Installing system packages", zap.Strings("packages", pkgs))

	env := []string{"DEBIAN_FRONTEND=noninteractive"}

	if _, err := execute.Run(ctx, execute.Options{
		Command: "apt-get",
		Args:    []string{"update"},
		Env:     env,
	}); err != nil {
		return cerr.Wrap(err, "apt-get update")
	}

	args := append([]string{"install", "-y"}, pkgs...)
	if _, err := execute.Run(ctx, execute.Options{
		Command: "apt-get",
		Args:    args,
		Env:     env,
	}); err != nil {
		return cerr.Wrap(err, "apt-get install")
	}
	return nil
}
