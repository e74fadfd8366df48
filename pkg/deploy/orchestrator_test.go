// pkg/deploy/orchestrator_test.go

package deploy

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterlabs/rosterctl/pkg/crypto"
	"github.com/rosterlabs/rosterctl/pkg/roster_err"
	"github.com/rosterlabs/rosterctl/pkg/roster_io"
)

// fakeHost answers every HostState query from canned values and never
// touches the machine.
type fakeHost struct {
	packages bool
	user     bool
	role     bool
	database bool
	files    bool
	unit     bool
	site     bool
	firewall bool
	cert     bool
	cron     bool
}

func (f *fakeHost) PackagesInstalled(ctx context.Context, pkgs []string) bool { return f.packages }
func (f *fakeHost) UserExists(name string) bool                               { return f.user }
func (f *fakeHost) RoleExists(ctx context.Context, name string) (bool, error) { return f.role, nil }
func (f *fakeHost) DatabaseExists(ctx context.Context, name string) (bool, error) {
	return f.database, nil
}
func (f *fakeHost) FileMatches(path string, content []byte) bool          { return f.files }
func (f *fakeHost) UnitEnabled(ctx context.Context, unit string) bool     { return f.unit }
func (f *fakeHost) UnitActive(ctx context.Context, unit string) bool      { return f.unit }
func (f *fakeHost) SiteEnabled(path string) bool                          { return f.site }
func (f *fakeHost) PortsAllowed(ctx context.Context, ports []string) bool { return f.firewall }
func (f *fakeHost) CertificateExists(domain string) bool                  { return f.cert }
func (f *fakeHost) CronInstalled(ctx context.Context, cmd string) (bool, error) {
	return f.cron, nil
}

func testOrchestrator(t *testing.T, host HostState) (*Orchestrator, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &Orchestrator{Cfg: testSettings(t), Host: host, Out: &out}, &out
}

func TestBuildStepsOrdering(t *testing.T) {
	t.Parallel()

	in := testInput()
	in.DomainName = "roster.example.com"
	in.SSLEmail = "ops@example.com"

	o, _ := testOrchestrator(t, &fakeHost{})
	arts := renderAll(t, in, "")
	steps := o.BuildSteps(in, arts)

	var names []string
	for _, s := range steps {
		names = append(names, s.Name)
	}

	assert.Equal(t, []string{
		"system packages",
		"system user",
		"database role",
		"database",
		"artifact: environment-file",
		"artifact: service-unit",
		"artifact: backup-script",
		"backend service",
		"reverse proxy",
		"firewall",
		"tls certificate",
		"backup schedule",
	}, names)
}

func TestBuildStepsSkipsTLSWithoutDomain(t *testing.T) {
	t.Parallel()

	o, _ := testOrchestrator(t, &fakeHost{})
	steps := o.BuildSteps(testInput(), renderAll(t, testInput(), "203.0.113.10"))

	for _, s := range steps {
		assert.NotEqual(t, "tls certificate", s.Name)
	}
}

func stubStep(name string, applied *[]string, applyErr error) Step {
	return Step{
		Name: name,
		Apply: func(rc *roster_io.RuntimeContext) error {
			*applied = append(*applied, name)
			return applyErr
		},
	}
}

func TestRunStepsFailFast(t *testing.T) {
	t.Parallel()

	var applied []string
	steps := []Step{
		stubStep("packages", &applied, nil),
		stubStep("database", &applied, cerr.New("connection refused")),
		stubStep("service", &applied, nil),
		stubStep("proxy", &applied, nil),
	}

	o, _ := testOrchestrator(t, &fakeHost{})
	results, err := o.RunSteps(testRC(t), steps)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `step "database"`)

	// Nothing after the failed step ran.
	assert.Equal(t, []string{"packages", "database"}, applied)
	require.Len(t, results, 2)
	assert.Equal(t, OutcomeApplied, results[0].Outcome)
	assert.Equal(t, OutcomeFailed, results[1].Outcome)
}

func TestRunStepsAlreadySatisfiedSkipsApply(t *testing.T) {
	t.Parallel()

	var applied []string
	step := Step{
		Name: "system user",
		Check: func(rc *roster_io.RuntimeContext) (bool, error) {
			return true, nil
		},
		Apply: func(rc *roster_io.RuntimeContext) error {
			applied = append(applied, "system user")
			return nil
		},
	}

	o, _ := testOrchestrator(t, &fakeHost{})
	results, err := o.RunSteps(testRC(t), []Step{step})

	require.NoError(t, err)
	assert.Empty(t, applied)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeAlreadySatisfied, results[0].Outcome)
}

func TestRunStepsNonFatalContinues(t *testing.T) {
	t.Parallel()

	var applied []string
	tls := stubStep("tls certificate", &applied, cerr.New("CA unreachable"))
	tls.NonFatal = true
	steps := []Step{
		tls,
		stubStep("backup schedule", &applied, nil),
	}

	o, _ := testOrchestrator(t, &fakeHost{})
	results, err := o.RunSteps(testRC(t), steps)

	require.NoError(t, err)
	assert.Equal(t, []string{"tls certificate", "backup schedule"}, applied)
	require.Len(t, results, 2)
	assert.Equal(t, OutcomeSkipped, results[0].Outcome)
	assert.Equal(t, OutcomeApplied, results[1].Outcome)
}

func TestSecondRunReportsAlreadySatisfied(t *testing.T) {
	t.Parallel()

	// A fully provisioned host: every precondition already holds,
	// including the firewall rules and the issued certificate.
	o, _ := testOrchestrator(t, &fakeHost{
		packages: true, user: true, role: true, database: true,
		files: true, unit: true, site: true, firewall: true,
		cert: true, cron: true,
	})

	in := testInput()
	in.DomainName = "roster.example.com"
	in.SSLEmail = "ops@example.com"
	steps := o.BuildSteps(in, renderAll(t, in, ""))

	results, err := o.RunSteps(testRC(t), steps)
	require.NoError(t, err)
	require.Len(t, results, len(steps))
	for _, r := range results {
		assert.Equal(t, OutcomeAlreadySatisfied, r.Outcome,
			"step %q should be a no-op on a provisioned host", r.Name)
	}
}

func TestRunAbortsBeforeStepsOnCredentialMismatch(t *testing.T) {
	t.Parallel()

	o, out := testOrchestrator(t, &fakeHost{})
	in := &ProvisioningInput{
		DBPassword:        crypto.NewSecret("one"),
		DBPasswordConfirm: crypto.NewSecret("two"),
	}

	err := o.Run(testRC(t), in)
	require.Error(t, err)
	assert.True(t, roster_err.IsExpectedUserError(err))

	// No step banner was printed: the run stopped before any host
	// mutation could begin.
	assert.NotContains(t, out.String(), "▶")
}

func findStep(t *testing.T, steps []Step, name string) Step {
	t.Helper()
	for _, s := range steps {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("step %q not built", name)
	return Step{}
}

func TestServiceStepRestartsAfterArtifactChange(t *testing.T) {
	t.Parallel()

	// Enabled and running, but the on-disk artifacts are stale.
	o, _ := testOrchestrator(t, &fakeHost{unit: true})

	tmp := t.TempDir()
	o.Cfg.EnvFile = filepath.Join(tmp, "roster.env")
	o.Cfg.UnitPath = filepath.Join(tmp, "roster.service")
	o.Cfg.BackupScript = filepath.Join(tmp, "backup.sh")
	o.Cfg.SystemUser = "" // skip chown on the test filesystem

	in := testInput()
	arts, err := RenderArtifacts(o.Cfg, in, crypto.NewSecret("app-secret-token"), "203.0.113.10")
	require.NoError(t, err)
	steps := o.BuildSteps(in, arts)

	rc := testRC(t)
	serviceStep := findStep(t, steps, "backend service")

	// Before any artifact is rewritten a running unit is satisfied.
	satisfied, err := serviceStep.Check(rc)
	require.NoError(t, err)
	assert.True(t, satisfied)

	envStep := findStep(t, steps, "artifact: environment-file")
	require.NoError(t, envStep.Apply(rc))

	// A rewritten environment file forces the service step to run so
	// the process restarts on the new configuration.
	satisfied, err = serviceStep.Check(rc)
	require.NoError(t, err)
	assert.False(t, satisfied)
}

func TestDryRunPlansWithoutExecuting(t *testing.T) {
	t.Parallel()

	o, out := testOrchestrator(t, &fakeHost{})
	o.DryRun = true

	in := testInput()
	in.DomainName = "roster.example.com"

	require.NoError(t, o.Run(testRC(t), in))
	assert.Contains(t, out.String(), "Dry run")
	assert.Contains(t, out.String(), "backend service")
	assert.NotContains(t, out.String(), "▶")
}

func TestRunRejectsEmptyPassword(t *testing.T) {
	t.Parallel()

	o, _ := testOrchestrator(t, &fakeHost{})
	err := o.Run(testRC(t), &ProvisioningInput{})
	require.Error(t, err)
	assert.True(t, roster_err.IsExpectedUserError(err))
	assert.Equal(t, 2, roster_err.GetExitCode(err))
}

func TestValidateInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(in *ProvisioningInput)
		wantErr bool
	}{
		{"valid minimal", func(in *ProvisioningInput) {}, false},
		{"valid with domain and email", func(in *ProvisioningInput) {
			in.DomainName = "roster.example.com"
			in.SSLEmail = "ops@example.com"
		}, false},
		{"bad domain", func(in *ProvisioningInput) {
			in.DomainName = "not a domain"
		}, true},
		{"bad email", func(in *ProvisioningInput) {
			in.SSLEmail = "nope"
		}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := testInput()
			tt.mutate(in)
			err := in.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
