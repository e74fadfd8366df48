// pkg/interaction/prompt.go

package interaction

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/rosterlabs/rosterctl/pkg/crypto"
)

// PromptSecret asks the user for a hidden input (no terminal echo).
func PromptSecret(prompt string) (crypto.SecretString, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return crypto.SecretString{}, cerr.New("secret prompt failed: no terminal available")
	}

	fmt.Fprint(os.Stderr, prompt+": ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return crypto.SecretString{}, cerr.Wrap(err, "read secret input")
	}

	secret := strings.TrimSpace(string(raw))
	if secret == "" {
		zap.L().Warn("No input received for secret", zap.String("prompt", prompt))
	}
	return crypto.NewSecret(secret), nil
}

// PromptSecretWithConfirmation asks for a hidden input twice. It does
// not compare the two entries; the caller owns the mismatch policy.
func PromptSecretWithConfirmation(prompt string) (crypto.SecretString, crypto.SecretString, error) {
	first, err := PromptSecret(prompt)
	if err != nil {
		return crypto.SecretString{}, crypto.SecretString{}, err
	}
	second, err := PromptSecret(prompt + " (confirm)")
	if err != nil {
		return crypto.SecretString{}, crypto.SecretString{}, err
	}
	return first, second, nil
}

// PromptIfMissing returns the value of a CLI flag, prompting the user
// when it's unset and stdin is a terminal. Non-interactive runs get the
// flag value as-is so scripts never block on a prompt.
func PromptIfMissing(cmd *cobra.Command, flagName, prompt string) (string, error) {
	val, err := cmd.Flags().GetString(flagName)
	if err != nil {
		return "", cerr.Wrapf(err, "read flag %q", flagName)
	}
	if val != "" || !term.IsTerminal(int(os.Stdin.Fd())) {
		return val, nil
	}

	zap.L().Debug("Prompting for missing flag", zap.String("flag", flagName))
	return PromptInput(prompt, "")
}

// PromptInput reads a line of visible input, returning defaultVal when
// the user just presses enter.
func PromptInput(prompt, defaultVal string) (string, error) {
	if defaultVal != "" {
		fmt.Fprintf(os.Stderr, "%s [%s]: ", prompt, defaultVal)
	} else {
		fmt.Fprintf(os.Stderr, "%s: ", prompt)
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", cerr.Wrap(err, "read input")
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return defaultVal, nil
	}
	return line, nil
}
