// pkg/deploy/hoststate.go

package deploy

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rosterlabs/rosterctl/pkg/config"
	"github.com/rosterlabs/rosterctl/pkg/nginx"
	"github.com/rosterlabs/rosterctl/pkg/platform"
	"github.com/rosterlabs/rosterctl/pkg/roster_unix"
)

// HostState is the orchestrator's single source of truth for "is this
// already done". Every step's precondition goes through it, which keeps
// existence checks out of the step actions and lets tests substitute a
// fake host.
type HostState interface {
	PackagesInstalled(ctx context.Context, pkgs []string) bool
	UserExists(name string) bool
	RoleExists(ctx context.Context, name string) (bool, error)
	DatabaseExists(ctx context.Context, name string) (bool, error)
	FileMatches(path string, content []byte) bool
	UnitEnabled(ctx context.Context, unit string) bool
	UnitActive(ctx context.Context, unit string) bool
	SiteEnabled(path string) bool
	PortsAllowed(ctx context.Context, ports []string) bool
	CertificateExists(domain string) bool
	CronInstalled(ctx context.Context, cmd string) (bool, error)
}

// localHost answers HostState queries against the machine rosterctl is
// running on.
type localHost struct {
	cfg *config.Settings
}

// NewLocalHost returns the production HostState.
func NewLocalHost(cfg *config.Settings) HostState {
	return &localHost{cfg: cfg}
}

func (h *localHost) PackagesInstalled(ctx context.Context, pkgs []string) bool {
	return platform.PackagesInstalled(ctx, pkgs)
}

func (h *localHost) UserExists(name string) bool {
	return roster_unix.UserExists(name)
}

func (h *localHost) RoleExists(ctx context.Context, name string) (bool, error) {
	admin, err := OpenAdmin(ctx)
	if err != nil {
		return false, err
	}
	defer admin.Close()
	return admin.RoleExists(ctx, name)
}

func (h *localHost) DatabaseExists(ctx context.Context, name string) (bool, error) {
	admin, err := OpenAdmin(ctx)
	if err != nil {
		return false, err
	}
	defer admin.Close()
	return admin.DatabaseExists(ctx, name)
}

// FileMatches reports whether the file at path already holds exactly
// the given content. Because artifact rendering is deterministic, a
// byte-equal file means the write step is already satisfied.
func (h *localHost) FileMatches(path string, content []byte) bool {
	existing, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return string(existing) == string(content)
}

func (h *localHost) UnitEnabled(ctx context.Context, unit string) bool {
	return roster_unix.IsEnabled(ctx, unit)
}

func (h *localHost) UnitActive(ctx context.Context, unit string) bool {
	return roster_unix.IsActive(ctx, unit)
}

func (h *localHost) SiteEnabled(path string) bool {
	return nginx.SiteEnabled(path)
}

func (h *localHost) PortsAllowed(ctx context.Context, ports []string) bool {
	return platform.PortsAllowed(ctx, ports)
}

func (h *localHost) CertificateExists(domain string) bool {
	_, err := os.Stat(filepath.Join("/etc/letsencrypt/live", domain, "fullchain.pem"))
	return err == nil
}

func (h *localHost) CronInstalled(ctx context.Context, cmd string) (bool, error) {
	crontab, err := platform.ReadCrontab(ctx)
	if err != nil {
		return false, err
	}
	return platform.CronContains(crontab, cmd), nil
}
