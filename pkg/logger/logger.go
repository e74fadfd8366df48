// pkg/logger/logger.go

package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

var log *zap.Logger

// DefaultLogPath is where rosterctl keeps its structured JSON log when
// running as root; non-root runs fall back to the user's cache dir.
const DefaultLogPath = "/var/log/rosterctl/rosterctl.log"

// L returns the process logger, falling back to the zap global if
// initialization never ran (e.g. in tests).
func L() *zap.Logger {
	if log != nil {
		return log
	}
	return zap.L()
}

// Sync flushes any buffered log entries.
func Sync() error {
	if log == nil {
		return nil
	}
	return log.Sync()
}

// ResolveLogPath picks a writable location for the JSON log file.
func ResolveLogPath() (string, error) {
	if err := ensureLogDir(DefaultLogPath); err == nil {
		return DefaultLogPath, nil
	}

	cache, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(cache, "rosterctl", "rosterctl.log")
	if err := ensureLogDir(path); err != nil {
		return "", err
	}
	return path, nil
}

func ensureLogDir(logFilePath string) error {
	dir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	return f.Close()
}
