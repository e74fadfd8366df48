// pkg/deploy/types.go

package deploy

import (
	"github.com/go-playground/validator/v10"

	"github.com/rosterlabs/rosterctl/pkg/crypto"
	"github.com/rosterlabs/rosterctl/pkg/roster_err"
	"github.com/rosterlabs/rosterctl/pkg/roster_io"
)

// ProvisioningInput is everything the operator supplies for one deploy.
// DomainName and SSLEmail are optional; without a domain the site is
// keyed on the host's public IP and TLS issuance is skipped.
type ProvisioningInput struct {
	DomainName        string              `validate:"omitempty,fqdn"`
	SSLEmail          string              `validate:"omitempty,email"`
	DBPassword        crypto.SecretString `validate:"-"`
	DBPasswordConfirm crypto.SecretString `validate:"-"`
}

var validate = validator.New()

// Validate checks the operator input before any host mutation. The
// password equality invariant lives in ProvisionSecrets; this covers
// the shape of the optional fields.
func (in *ProvisioningInput) Validate() error {
	if in.DBPassword.IsZero() {
		return roster_err.NewExpectedError(
			roster_err.NewValidationError("database password must not be empty"))
	}
	if err := validate.Struct(in); err != nil {
		return roster_err.NewExpectedError(
			roster_err.NewValidationError(err.Error()))
	}
	return nil
}

// Outcome is the result of one provisioning step.
type Outcome int

const (
	// OutcomeApplied - the step's action ran and mutated the host.
	OutcomeApplied Outcome = iota
	// OutcomeAlreadySatisfied - the precondition held, nothing to do.
	OutcomeAlreadySatisfied
	// OutcomeFailed - the action failed; the run aborts here.
	OutcomeFailed
	// OutcomeSkipped - the step does not apply to this input (e.g. TLS
	// without a domain) or failed non-fatally.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeAlreadySatisfied:
		return "already satisfied"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Step is one idempotent provisioning action. Check reports whether the
// desired end state already holds; Apply mutates the host toward it.
// A nil Check means the step always applies.
type Step struct {
	Name  string
	Check func(rc *roster_io.RuntimeContext) (bool, error)
	Apply func(rc *roster_io.RuntimeContext) error

	// NonFatal steps log their failure and let the run continue
	// (the TLS issuance step: the deployment is still serviceable
	// over plain HTTP).
	NonFatal bool
}

// StepResult records how one step ended.
type StepResult struct {
	Name    string
	Outcome Outcome
	Err     error
}
