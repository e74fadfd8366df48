// pkg/deploy/secrets.go

package deploy

import (
	"os"

	cerr "github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"

	"github.com/rosterlabs/rosterctl/pkg/crypto"
	"github.com/rosterlabs/rosterctl/pkg/roster_err"
	"github.com/rosterlabs/rosterctl/pkg/roster_io"
)

const secretKeyVar = "SECRET_KEY"

// appSecretBytes of randomness go into the application signing secret.
const appSecretBytes = 32

// ProvisionSecrets validates the operator's database password entry and
// produces the application signing secret. It fails closed: a password
// mismatch aborts before any host mutation.
//
// On a re-run the existing environment file's secret is reused so that
// re-rendering artifacts never rotates a live signing key.
func ProvisionSecrets(rc *roster_io.RuntimeContext, in *ProvisioningInput, envFile string) (crypto.SecretString, error) {
	logger := otelzap.Ctx(rc.Ctx)

	if !in.DBPassword.Equal(in.DBPasswordConfirm) {
		return crypto.SecretString{}, roster_err.NewExpectedError(
			roster_err.NewValidationError("database passwords do not match",
				"Re-run the deploy and enter the same password twice"))
	}

	if existing, ok := existingAppSecret(envFile); ok {
		logger.Info("Reusing application secret from existing environment file")
		return existing, nil
	}

	logger.Info("Generating application secret")
	secret, err := crypto.GenerateToken(appSecretBytes)
	if err != nil {
		return crypto.SecretString{}, cerr.Wrap(err, "generate application secret")
	}
	return secret, nil
}

func existingAppSecret(envFile string) (crypto.SecretString, bool) {
	if envFile == "" {
		return crypto.SecretString{}, false
	}
	if _, err := os.Stat(envFile); err != nil {
		return crypto.SecretString{}, false
	}

	vars, err := godotenv.Read(envFile)
	if err != nil {
		return crypto.SecretString{}, false
	}

	val, ok := vars[secretKeyVar]
	if !ok || val == "" {
		return crypto.SecretString{}, false
	}
	return crypto.NewSecret(val), true
}
