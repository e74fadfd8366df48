// pkg/nginx/nginx.go

package nginx

import (
	"context"
	"os"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/rosterlabs/rosterctl/pkg/execute"
	"github.com/rosterlabs/rosterctl/pkg/roster_unix"
)

// Site describes one nginx site to activate.
type Site struct {
	// AvailablePath is the rendered config under sites-available.
	AvailablePath string
	// EnabledPath is the activation symlink under sites-enabled.
	EnabledPath string
	// DefaultSite is the distro default symlink to displace, if present.
	DefaultSite string
	// Content is the rendered site configuration.
	Content []byte
}

// SiteEnabled reports whether the activation symlink is in place.
func SiteEnabled(enabledPath string) bool {
	_, err := os.Lstat(enabledPath)
	return err == nil
}

// Activate writes the site config, swaps the sites-enabled symlink, and
// reloads nginx only after `nginx -t` passes. On validation failure the
// previous configuration is restored and stays live; the distro default
// site is displaced only once the new configuration has validated, so a
// broken render can never take existing routing down with it.
func Activate(ctx context.Context, site Site) error {
	logger := otelzap.Ctx(ctx)

	prior, err := snapshot(site)
	if err != nil {
		return cerr.Wrap(err, "snapshot existing site state")
	}

	if err := os.WriteFile(site.AvailablePath, site.Content, 0644); err != nil {
		return cerr.Wrapf(err, "write site config %s", site.AvailablePath)
	}

	if err := ensureSymlink(site.AvailablePath, site.EnabledPath); err != nil {
		return cerr.Wrap(err, "enable site")
	}

	if err := Validate(ctx); err != nil {
		logger.Error("Generated nginx config failed validation, restoring previous",
			zap.String("site", site.AvailablePath),
			zap.Error(err))
		if restoreErr := prior.restore(site); restoreErr != nil {
			logger.Error("Restore of previous site config failed",
				zap.Error(restoreErr))
		}
		return cerr.Wrap(err, "nginx config validation")
	}

	if site.DefaultSite != "" {
		if err := os.Remove(site.DefaultSite); err != nil && !os.IsNotExist(err) {
			return cerr.Wrapf(err, "remove default site %s", site.DefaultSite)
		}
	}

	logger.Info("Reloading nginx")
	if err := roster_unix.Reload(ctx, "nginx"); err != nil {
		return cerr.Wrap(err, "reload nginx")
	}

	logger.Info("Site activated", zap.String("site", site.AvailablePath))
	return nil
}

// Validate runs `nginx -t` against the full on-host configuration.
func Validate(ctx context.Context) error {
	out, err := execute.Run(ctx, execute.Options{
		Command: "nginx",
		Args:    []string{"-t"},
		Capture: true,
	})
	if err != nil {
		return cerr.Wrapf(err, "nginx -t: %s", out)
	}
	return nil
}

// siteBackup captures everything Activate mutates before validation, so
// a failed `nginx -t` can put both the config file and the activation
// symlink back exactly as they were.
type siteBackup struct {
	content    []byte
	hadContent bool
	linkTarget string
	hadLink    bool
}

func snapshot(site Site) (siteBackup, error) {
	var b siteBackup

	content, err := os.ReadFile(site.AvailablePath)
	switch {
	case err == nil:
		b.content = content
		b.hadContent = true
	case !os.IsNotExist(err):
		return b, err
	}

	if target, err := os.Readlink(site.EnabledPath); err == nil {
		b.linkTarget = target
		b.hadLink = true
	}
	return b, nil
}

func (b siteBackup) restore(site Site) error {
	if b.hadContent {
		if err := os.WriteFile(site.AvailablePath, b.content, 0644); err != nil {
			return err
		}
	} else {
		// A fresh install had nothing to roll back to: withdraw the
		// broken config entirely.
		if err := os.Remove(site.AvailablePath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	if b.hadLink {
		return ensureSymlink(b.linkTarget, site.EnabledPath)
	}
	// The site was not enabled before this run; re-enabling a site the
	// operator had disabled would be its own kind of breakage.
	if err := os.Remove(site.EnabledPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func ensureSymlink(target, link string) error {
	if existing, err := os.Readlink(link); err == nil && existing == target {
		return nil
	}
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Symlink(target, link)
}
