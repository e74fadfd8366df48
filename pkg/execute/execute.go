// pkg/execute/execute.go

package execute

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/rosterlabs/rosterctl/pkg/roster_err"
	"github.com/rosterlabs/rosterctl/pkg/telemetry"
)

// Options controls a single command execution.
type Options struct {
	Command string
	Args    []string
	Dir     string
	Env     []string // appended to the inherited environment
	Stdin   string   // fed to the command's standard input when non-empty

	// Capture returns combined stdout/stderr to the caller; otherwise
	// output is only logged.
	Capture bool

	Timeout time.Duration // defaults to defaultCommandTimeout
	Retries int
	Delay   time.Duration
	DryRun  bool

	Logger *zap.Logger
}

const defaultCommandTimeout = 3 * time.Minute

// Run executes a command with structured logging and proper error
// handling. Shell execution is not supported; pass argv explicitly.
func Run(ctx context.Context, opts Options) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := opts.Logger
	if log == nil {
		log = zap.L()
	}

	cmdStr := opts.Command + " " + strings.Join(opts.Args, " ")

	runCtx, cancel := context.WithTimeout(ctx, timeout(opts.Timeout))
	defer cancel()

	runCtx, span := telemetry.Start(runCtx, "execute.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("command", opts.Command),
		attribute.String("args", strings.Join(opts.Args, " ")),
	)

	if opts.DryRun {
		log.Info("Dry run mode, command not executed", zap.String("command", cmdStr))
		return "", nil
	}

	log.Debug("Starting execution", zap.String("command", cmdStr))

	attempts := opts.Retries
	if attempts < 1 {
		attempts = 1
	}

	var output string
	var err error
	for i := 1; i <= attempts; i++ {
		cmd := exec.CommandContext(runCtx, opts.Command, opts.Args...)
		if opts.Dir != "" {
			cmd.Dir = opts.Dir
		}
		if len(opts.Env) > 0 {
			cmd.Env = append(cmd.Environ(), opts.Env...)
		}
		if opts.Stdin != "" {
			cmd.Stdin = strings.NewReader(opts.Stdin)
		}

		var buf bytes.Buffer
		cmd.Stdout = &buf
		cmd.Stderr = &buf

		err = cmd.Run()
		output = buf.String()

		if err == nil {
			log.Debug("Execution succeeded", zap.String("command", cmdStr))
			break
		}

		span.RecordError(err)
		log.Error("Execution failed",
			zap.Int("attempt", i),
			zap.String("command", cmdStr),
			zap.String("summary", roster_err.ExtractSummary(output, 2)),
			zap.Error(err))

		if i < attempts {
			time.Sleep(opts.Delay)
		}
	}

	if err != nil {
		return output, cerr.Wrapf(err, "command %q failed", opts.Command)
	}

	if opts.Capture {
		return output, nil
	}
	return "", nil
}

// RunSimple executes a command with minimal options.
func RunSimple(ctx context.Context, cmd string, args ...string) error {
	_, err := Run(ctx, Options{
		Command: cmd,
		Args:    args,
	})
	return err
}

func timeout(t time.Duration) time.Duration {
	if t > 0 {
		return t
	}
	return defaultCommandTimeout
}
