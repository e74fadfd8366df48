// pkg/execute/execute_test.go

package execute

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesOutput(t *testing.T) {
	t.Parallel()

	out, err := Run(context.Background(), Options{
		Command: "sh",
		Args:    []string{"-c", "echo hello"},
		Capture: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", strings.TrimSpace(out))
}

func TestRunWithoutCaptureReturnsEmpty(t *testing.T) {
	t.Parallel()

	out, err := Run(context.Background(), Options{
		Command: "sh",
		Args:    []string{"-c", "echo ignored"},
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunFailureWrapped(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), Options{
		Command: "sh",
		Args:    []string{"-c", "exit 7"},
		Capture: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `command "sh" failed`)
}

func TestRunDryRun(t *testing.T) {
	t.Parallel()

	out, err := Run(context.Background(), Options{
		Command: "definitely-not-a-real-binary",
		DryRun:  true,
		Capture: true,
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunHonorsTimeout(t *testing.T) {
	t.Parallel()

	start := time.Now()
	_, err := Run(context.Background(), Options{
		Command: "sleep",
		Args:    []string{"10"},
		Timeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
