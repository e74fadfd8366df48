// pkg/roster_unix/user.go

package roster_unix

import (
	"context"
	"os/user"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/rosterlabs/rosterctl/pkg/execute"
)

// UserExists reports whether a local account with the given name exists.
func UserExists(name string) bool {
	_, err := user.Lookup(name)
	return err == nil
}

// EnsureSystemUser creates a locked system account owning the
// application directory. No password is set; the account is for the
// supervised service process only.
func EnsureSystemUser(ctx context.Context, name, homeDir string) error {
	logger := otelzap.Ctx(ctx)

	if UserExists(name) {
		logger.Info("System user already exists", zap.String("user", name))
		return nil
	}

	logger.Info("Creating system user",
		zap.String("user", name),
		zap.String("home", homeDir))

	if err := execute.RunSimple(ctx, "useradd",
		"--system",
		"--create-home",
		"--home-dir", homeDir,
		"--shell", "/usr/sbin/nologin",
		name,
	); err != nil {
		return cerr.Wrapf(err, "create system user %s", name)
	}
	return nil
}

// Chown hands a path to the given user and their primary group.
func Chown(ctx context.Context, path, owner string) error {
	if err := execute.RunSimple(ctx, "chown", owner+":"+owner, path); err != nil {
		return cerr.Wrapf(err, "chown %s to %s", path, owner)
	}
	return nil
}
