// pkg/deploy/orchestrator.go
//
// The orchestrator runs a fixed, ordered list of idempotent steps
// against one host. Ordering is load-bearing: packages before the user,
// the user before the database, artifacts before the service (the unit
// references the environment file), the service before the proxy (the
// upstream must exist), the firewall before TLS issuance (the CA must
// reach the host). Nothing is transactional; the recovery path for a
// partial run is re-running the whole workflow and letting the
// precondition checks skip completed work.

package deploy

import (
	"fmt"
	"io"
	"os"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/rosterlabs/rosterctl/pkg/config"
	"github.com/rosterlabs/rosterctl/pkg/nginx"
	"github.com/rosterlabs/rosterctl/pkg/platform"
	"github.com/rosterlabs/rosterctl/pkg/roster_io"
	"github.com/rosterlabs/rosterctl/pkg/roster_unix"
)

// Orchestrator provisions the Roster backend on the local host.
type Orchestrator struct {
	Cfg  *config.Settings
	Host HostState

	// Out receives the operator-facing phase banners. Defaults to
	// stdout; tests substitute a buffer.
	Out io.Writer

	// DryRun stops the workflow after planning: steps are listed but
	// never executed and the host is not touched.
	DryRun bool
}

// NewOrchestrator wires the orchestrator against the real local host.
func NewOrchestrator(cfg *config.Settings) *Orchestrator {
	return &Orchestrator{
		Cfg:  cfg,
		Host: NewLocalHost(cfg),
		Out:  os.Stdout,
	}
}

// Run executes the full provisioning workflow. It fails closed: input
// validation and the password-match invariant run before the first
// host-mutating step.
func (o *Orchestrator) Run(rc *roster_io.RuntimeContext, in *ProvisioningInput) error {
	logger := otelzap.Ctx(rc.Ctx)

	if err := in.Validate(); err != nil {
		return err
	}

	o.banner("Provisioning secrets")
	secret, err := ProvisionSecrets(rc, in, o.Cfg.EnvFile)
	if err != nil {
		return err
	}

	publicIP := ""
	if in.DomainName == "" {
		o.banner("No domain supplied, discovering public IP")
		publicIP, err = platform.DiscoverPublicIP(rc.Ctx)
		if err != nil {
			return err
		}
	}

	artifacts, err := RenderArtifacts(o.Cfg, in, secret, publicIP)
	if err != nil {
		return err
	}

	steps := o.BuildSteps(in, artifacts)

	if o.DryRun {
		o.banner("Dry run: the following steps would execute, in order:")
		for i, step := range steps {
			o.banner(fmt.Sprintf("  %2d. %s", i+1, step.Name))
		}
		return nil
	}

	results, err := o.RunSteps(rc, steps)
	if err != nil {
		o.banner("Deployment FAILED — fix the cause and re-run; completed steps will be skipped")
		return err
	}

	logger.Info("Deployment complete",
		zap.Int("steps", len(results)),
		zap.String("site", siteKey(in, publicIP)))
	o.summary(results, in, publicIP)
	return nil
}

// BuildSteps assembles the fixed step order for one deploy. Exposed so
// tests can assert ordering without touching a host.
func (o *Orchestrator) BuildSteps(in *ProvisioningInput, artifacts []Artifact) []Step {
	cfg := o.Cfg

	steps := []Step{
		{
			Name: "system packages",
			Check: func(rc *roster_io.RuntimeContext) (bool, error) {
				return o.Host.PackagesInstalled(rc.Ctx, cfg.Packages), nil
			},
			Apply: func(rc *roster_io.RuntimeContext) error {
				return platform.AptInstall(rc.Ctx, cfg.Packages)
			},
		},
		{
			Name: "system user",
			Check: func(rc *roster_io.RuntimeContext) (bool, error) {
				return o.Host.UserExists(cfg.SystemUser), nil
			},
			Apply: func(rc *roster_io.RuntimeContext) error {
				return roster_unix.EnsureSystemUser(rc.Ctx, cfg.SystemUser, cfg.AppDir)
			},
		},
		{
			Name: "database role",
			Check: func(rc *roster_io.RuntimeContext) (bool, error) {
				return o.Host.RoleExists(rc.Ctx, cfg.DBRole)
			},
			Apply: func(rc *roster_io.RuntimeContext) error {
				admin, err := OpenAdmin(rc.Ctx)
				if err != nil {
					return err
				}
				defer admin.Close()
				return admin.EnsureRole(rc.Ctx, cfg.DBRole, in.DBPassword)
			},
		},
		{
			Name: "database",
			Check: func(rc *roster_io.RuntimeContext) (bool, error) {
				return o.Host.DatabaseExists(rc.Ctx, cfg.DBName)
			},
			Apply: func(rc *roster_io.RuntimeContext) error {
				admin, err := OpenAdmin(rc.Ctx)
				if err != nil {
					return err
				}
				defer admin.Close()
				if err := admin.EnsureDatabase(rc.Ctx, cfg.DBName, cfg.DBRole); err != nil {
					return err
				}
				return admin.GrantAll(rc.Ctx, cfg.DBName, cfg.DBRole)
			},
		},
	}

	// One write step per rendered artifact. Rendering is deterministic,
	// so a byte-identical file on disk satisfies the precondition.
	// artifactsChanged feeds the service step: a running service must be
	// restarted to pick up a rewritten environment file or unit.
	artifactsChanged := false
	var siteArtifact Artifact
	for _, art := range artifacts {
		art := art
		if art.Kind == ProxySiteConfig {
			// The site config is placed by the proxy activation step so
			// validation and symlink swap happen together.
			siteArtifact = art
			continue
		}
		steps = append(steps, Step{
			Name: "artifact: " + string(art.Kind),
			Check: func(rc *roster_io.RuntimeContext) (bool, error) {
				return o.Host.FileMatches(art.Path, art.Content), nil
			},
			Apply: func(rc *roster_io.RuntimeContext) error {
				if err := WriteArtifact(rc, art); err != nil {
					return err
				}
				artifactsChanged = true
				return nil
			},
		})
	}

	steps = append(steps,
		Step{
			Name: "backend service",
			Check: func(rc *roster_io.RuntimeContext) (bool, error) {
				return o.Host.UnitEnabled(rc.Ctx, cfg.ServiceName) &&
					o.Host.UnitActive(rc.Ctx, cfg.ServiceName) &&
					!artifactsChanged, nil
			},
			Apply: func(rc *roster_io.RuntimeContext) error {
				wasActive := o.Host.UnitActive(rc.Ctx, cfg.ServiceName)
				if err := InstallService(rc, cfg.ServiceName); err != nil {
					return err
				}
				// enable --now does not restart an already-running
				// service, so a config change needs an explicit kick.
				if wasActive && artifactsChanged {
					if err := roster_unix.Restart(rc.Ctx, cfg.ServiceName); err != nil {
						return err
					}
				}
				return WaitHealthy(rc.Ctx, cfg.HealthURL, healthTimeout(cfg))
			},
		},
		Step{
			Name: "reverse proxy",
			Check: func(rc *roster_io.RuntimeContext) (bool, error) {
				return o.Host.SiteEnabled(cfg.SiteEnabled) &&
					o.Host.FileMatches(siteArtifact.Path, siteArtifact.Content), nil
			},
			Apply: func(rc *roster_io.RuntimeContext) error {
				return nginx.Activate(rc.Ctx, nginx.Site{
					AvailablePath: cfg.SiteAvailable,
					EnabledPath:   cfg.SiteEnabled,
					DefaultSite:   cfg.DefaultSite,
					Content:       siteArtifact.Content,
				})
			},
		},
		Step{
			Name: "firewall",
			Check: func(rc *roster_io.RuntimeContext) (bool, error) {
				return o.Host.PortsAllowed(rc.Ctx, cfg.FirewallPorts), nil
			},
			Apply: func(rc *roster_io.RuntimeContext) error {
				return platform.AllowPorts(rc.Ctx, cfg.FirewallPorts)
			},
		},
	)

	if in.DomainName != "" && in.SSLEmail != "" {
		domain := in.DomainName
		steps = append(steps, Step{
			Name: "tls certificate",
			Check: func(rc *roster_io.RuntimeContext) (bool, error) {
				return o.Host.CertificateExists(domain), nil
			},
			Apply: func(rc *roster_io.RuntimeContext) error {
				return platform.IssueCertificate(rc.Ctx, domain, in.SSLEmail)
			},
			// A failed issuance leaves a working plain-HTTP deployment;
			// the operator can re-run once DNS or CA reachability is
			// sorted out.
			NonFatal: true,
		})
	}

	steps = append(steps, Step{
		Name: "backup schedule",
		Check: func(rc *roster_io.RuntimeContext) (bool, error) {
			return o.Host.CronInstalled(rc.Ctx, cfg.BackupScript)
		},
		Apply: func(rc *roster_io.RuntimeContext) error {
			_, err := platform.EnsureCronEntry(rc.Ctx, cfg.CronSpec, cfg.BackupScript, cfg.CronLog)
			return err
		},
	})

	return steps
}

// RunSteps executes steps in order with fail-fast semantics: the first
// fatal failure stops the run and no later step executes. It returns
// the results of every step that ran.
func (o *Orchestrator) RunSteps(rc *roster_io.RuntimeContext, steps []Step) ([]StepResult, error) {
	logger := otelzap.Ctx(rc.Ctx)
	results := make([]StepResult, 0, len(steps))

	for _, step := range steps {
		o.banner("▶ " + step.Name)

		if step.Check != nil {
			satisfied, err := step.Check(rc)
			if err != nil {
				logger.Error("Precondition check failed",
					zap.String("step", step.Name),
					zap.Error(err))
				results = append(results, StepResult{step.Name, OutcomeFailed, err})
				return results, cerr.Wrapf(err, "step %q precondition", step.Name)
			}
			if satisfied {
				logger.Info("Step already satisfied", zap.String("step", step.Name))
				o.banner("  already satisfied")
				results = append(results, StepResult{step.Name, OutcomeAlreadySatisfied, nil})
				continue
			}
		}

		if err := step.Apply(rc); err != nil {
			if step.NonFatal {
				logger.Warn("Optional step failed, continuing",
					zap.String("step", step.Name),
					zap.Error(err))
				o.banner("  ✗ " + step.Name + " failed (optional, continuing)")
				results = append(results, StepResult{step.Name, OutcomeSkipped, err})
				continue
			}
			logger.Error("Step failed",
				zap.String("step", step.Name),
				zap.Error(err))
			results = append(results, StepResult{step.Name, OutcomeFailed, err})
			return results, cerr.Wrapf(err, "step %q", step.Name)
		}

		o.banner("  ✓ done")
		results = append(results, StepResult{step.Name, OutcomeApplied, nil})
	}

	return results, nil
}

func (o *Orchestrator) banner(msg string) {
	if o.Out == nil {
		return
	}
	fmt.Fprintln(o.Out, msg)
}

func (o *Orchestrator) summary(results []StepResult, in *ProvisioningInput, publicIP string) {
	o.banner("")
	o.banner("Deployment succeeded ✓")
	for _, r := range results {
		o.banner(fmt.Sprintf("  %-28s %s", r.Name, r.Outcome))
	}
	o.banner("")
	o.banner("Service:  http://" + siteKey(in, publicIP) + "/api/")
	o.banner("Health:   http://" + siteKey(in, publicIP) + "/health")
}

func siteKey(in *ProvisioningInput, publicIP string) string {
	if in.DomainName != "" {
		return in.DomainName
	}
	return publicIP
}

func healthTimeout(cfg *config.Settings) time.Duration {
	return time.Duration(cfg.HealthTimeout) * time.Second
}
