// pkg/platform/scheduler.go

package platform

import (
	"context"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/rosterlabs/rosterctl/pkg/execute"
)

// CronEntry builds a crontab line running cmd on the given schedule,
// appending output to logPath.
func CronEntry(spec, cmd, logPath string) string {
	return spec + " " + cmd + " >> " + logPath + " 2>&1"
}

// CronContains reports whether an installed crontab already carries an
// entry for the given command, ignoring schedule and redirection so a
// changed schedule still counts as "installed" rather than a duplicate.
func CronContains(crontab, cmd string) bool {
	for _, line := range strings.Split(crontab, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, cmd) {
			return true
		}
	}
	return false
}

// ReadCrontab returns the current root crontab, treating "no crontab"
// as an ordinary empty state.
func ReadCrontab(ctx context.Context) (string, error) {
	out, err := execute.Run(ctx, execute.Options{
		Command: "crontab",
		Args:    []string{"-l"},
		Capture: true,
	})
	if err != nil {
		if strings.Contains(out, "no crontab for") {
			return "", nil
		}
		return "", cerr.Wrap(err, "read crontab")
	}
	return out, nil
}

// EnsureCronEntry installs a crontab line for cmd unless one already
// exists. Reinstalling the schedule never duplicates the job.
func EnsureCronEntry(ctx context.Context, spec, cmd, logPath string) (bool, error) {
	logger := otelzap.Ctx(ctx)

	current, err := ReadCrontab(ctx)
	if err != nil {
		return false, err
	}
	if CronContains(current, cmd) {
		logger.Info("Cron entry already installed", zap.String("command", cmd))
		return false, nil
	}

	entry := CronEntry(spec, cmd, logPath)
	updated := current
	if updated != "" && !strings.HasSuffix(updated, "\n") {
		updated += "\n"
	}
	updated += entry + "\n"

	logger.Info("Installing cron entry", zap.String("entry", entry))
	if err := WriteCrontab(ctx, updated); err != nil {
		return false, err
	}
	return true, nil
}

// WriteCrontab replaces the root crontab with the given content.
func WriteCrontab(ctx context.Context, content string) error {
	if _, err := execute.Run(ctx, execute.Options{
		Command: "crontab",
		Args:    []string{"-"},
		Stdin:   content,
	}); err != nil {
		return cerr.Wrap(err, "install crontab")
	}
	return nil
}
