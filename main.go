// main.go

package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rosterlabs/rosterctl/cmd"
	"github.com/rosterlabs/rosterctl/pkg/logger"
	"github.com/rosterlabs/rosterctl/pkg/telemetry"
)

func main() {
	logger.InitializeWithFallback()

	if err := telemetry.Init("rosterctl"); err != nil {
		// Telemetry is best effort; the CLI still works without it.
		fmt.Fprintf(os.Stderr, "⚠️  Telemetry disabled: %v\n", err)
		logger.L().Warn("Telemetry initialization failed", zap.Error(err))
	}

	cmd.Execute()
}
