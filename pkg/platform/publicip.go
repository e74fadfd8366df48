// pkg/platform/publicip.go

package platform

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/rosterlabs/rosterctl/pkg/execute"
)

const publicIPEndpoint = "https://api.ipify.org"

// DiscoverPublicIP finds the host's public address, first via an
// external echo service and, when the host has no outbound HTTPS,
// falling back to the first address `hostname -I` reports.
func DiscoverPublicIP(ctx context.Context) (string, error) {
	logger := otelzap.Ctx(ctx)

	if ip, err := fetchPublicIP(ctx); err == nil {
		logger.Info("Discovered public IP", zap.String("ip", ip))
		return ip, nil
	} else {
		logger.Warn("Public IP lookup failed, falling back to hostname -I",
			zap.Error(err))
	}

	out, err := execute.Run(ctx, execute.Options{
		Command: "hostname",
		Args:    []string{"-I"},
		Capture: true,
	})
	if err != nil {
		return "", cerr.Wrap(err, "discover host address")
	}

	fields := strings.Fields(out)
	if len(fields) == 0 {
		return "", cerr.New("hostname -I returned no addresses")
	}
	logger.Info("Using local address as site match key", zap.String("ip", fields[0]))
	return fields[0], nil
}

func fetchPublicIP(ctx context.Context) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, publicIPEndpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", cerr.Newf("unexpected status %d from %s", resp.StatusCode, publicIPEndpoint)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return "", err
	}

	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return "", cerr.Newf("echo service returned %q, not an IP", ip)
	}
	return ip, nil
}
