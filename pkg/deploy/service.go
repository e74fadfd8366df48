// pkg/deploy/service.go

package deploy

import (
	"context"
	"net/http"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/rosterlabs/rosterctl/pkg/roster_io"
	"github.com/rosterlabs/rosterctl/pkg/roster_unix"
)

// WriteArtifact places a rendered artifact on disk with its mode and
// ownership. The mode is set before any content is written, so a
// secret-bearing file is never readable with loose permissions, even
// mid-write.
func WriteArtifact(rc *roster_io.RuntimeContext, art Artifact) error {
	logger := otelzap.Ctx(rc.Ctx)
	logger.Info("Writing artifact",
		zap.String("kind", string(art.Kind)),
		zap.String("path", art.Path),
		zap.String("mode", art.Mode.String()))

	if err := writeFileAtomic(art.Path, art.Content, art.Mode); err != nil {
		return cerr.Wrapf(err, "write %s", art.Path)
	}

	if art.Owner != "" {
		if err := roster_unix.Chown(rc.Ctx, art.Path, art.Owner); err != nil {
			return err
		}
	}
	return nil
}

// InstallService registers the unit with systemd, enables it for boot,
// and starts it.
func InstallService(rc *roster_io.RuntimeContext, unit string) error {
	if err := roster_unix.DaemonReload(rc.Ctx); err != nil {
		return err
	}
	return roster_unix.EnableNow(rc.Ctx, unit)
}

// WaitHealthy polls the service's internal health endpoint until it
// answers 200 or the timeout expires. The proxy depends on this
// upstream existing before activation.
func WaitHealthy(ctx context.Context, url string, timeout time.Duration) error {
	logger := otelzap.Ctx(ctx)
	logger.Info("Waiting for service health", zap.String("url", url))

	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 3 * time.Second}

	var lastErr error
	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return cerr.Wrap(err, "build health request")
		}

		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				logger.Info("Service is healthy")
				return nil
			}
			lastErr = cerr.Newf("health endpoint returned %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	return cerr.Wrapf(lastErr, "service did not become healthy within %s", timeout)
}
