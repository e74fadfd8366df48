// pkg/verify/ratelimit.go
//
// An acceptance probe for the login rate limiter. It fires a short
// burst of deliberately bad credentials at the live endpoint and
// classifies the responses against the configured limit. The probe
// reports; it never asserts. Judging the report is the operator's (or
// a wrapping test runner's) job.

package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rosterlabs/rosterctl/pkg/roster_io"
)

// Classification buckets one HTTP response from the probed endpoint.
type Classification string

const (
	RateLimited  Classification = "rate-limited"  // 429
	AuthRejected Classification = "auth-rejected" // 401, request reached business logic
	Other        Classification = "other"         // anything else, including transport errors
)

func classify(status int) Classification {
	switch status {
	case http.StatusTooManyRequests:
		return RateLimited
	case http.StatusUnauthorized:
		return AuthRejected
	default:
		return Other
	}
}

// Result is the outcome of one probe request.
type Result struct {
	Seq            int
	Status         int
	Classification Classification
	RequestID      string
	Elapsed        time.Duration
	Err            error
}

// Probe drives a bounded sequential burst at one endpoint. Requests are
// paced, not concurrent; the burst is rate-bounded by design so the
// probe measures the limiter rather than stressing the host.
type Probe struct {
	// TargetURL is the login endpoint, e.g.
	// http://203.0.113.10/api/auth/login.
	TargetURL string

	// Requests to send and the limit they are checked against. With the
	// defaults (7 against a limit of 5) the expected pattern is five
	// auth rejections followed by two rate-limit responses.
	Requests int
	Limit    int

	// Delay between requests. Small enough that the burst stays inside
	// one limiting window.
	Delay time.Duration

	// Email and Password form the known-invalid credential payload.
	// They must not belong to a real account: the point is that each
	// unthrottled request reaches authentication and comes back 401.
	Email    string
	Password string

	Client *http.Client
}

const (
	DefaultRequests = 7
	DefaultLimit    = 5
	DefaultDelay    = 200 * time.Millisecond
	defaultEmail    = "ratelimit-probe@invalid.example"
	defaultPassword = "definitely-not-a-real-password"
)

// NewProbe returns a probe with the default burst shape against url.
func NewProbe(url string) *Probe {
	return &Probe{
		TargetURL: url,
		Requests:  DefaultRequests,
		Limit:     DefaultLimit,
		Delay:     DefaultDelay,
		Email:     defaultEmail,
		Password:  defaultPassword,
		Client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Run sends the burst and returns the classified report. A transport
// failure on an individual request is recorded as Other, not returned:
// a half-broken endpoint is exactly what the report should surface.
func (p *Probe) Run(rc *roster_io.RuntimeContext) (*Report, error) {
	logger := otelzap.Ctx(rc.Ctx)

	if p.TargetURL == "" {
		return nil, cerr.New("probe target URL is required")
	}
	if p.Requests <= 0 || p.Limit <= 0 {
		return nil, cerr.Newf("invalid burst shape: %d requests against limit %d", p.Requests, p.Limit)
	}

	body, err := json.Marshal(loginPayload{Email: p.Email, Password: p.Password})
	if err != nil {
		return nil, cerr.Wrap(err, "encode credential payload")
	}

	// rate.Every(Delay) paces the burst; the first request fires
	// immediately.
	limiter := rate.NewLimiter(rate.Every(p.Delay), 1)

	logger.Info("Starting rate-limit probe",
		zap.String("url", p.TargetURL),
		zap.Int("requests", p.Requests),
		zap.Int("limit", p.Limit),
		zap.Duration("delay", p.Delay))

	report := &Report{Limit: p.Limit}
	for i := 0; i < p.Requests; i++ {
		if err := limiter.Wait(rc.Ctx); err != nil {
			return nil, cerr.Wrap(err, "probe interrupted")
		}
		report.Results = append(report.Results, p.send(rc.Ctx, i+1, body))
	}

	logger.Info("Probe complete",
		zap.Bool("matches_expected", report.Matches()),
		zap.String("observed", report.sequence()))
	return report, nil
}

func (p *Probe) send(ctx context.Context, seq int, body []byte) Result {
	requestID := uuid.New().String()
	res := Result{Seq: seq, RequestID: requestID}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.TargetURL, bytes.NewReader(body))
	if err != nil {
		res.Classification = Other
		res.Err = err
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := p.Client.Do(req)
	res.Elapsed = time.Since(start)
	if err != nil {
		res.Classification = Other
		res.Err = err
		return res
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	res.Status = resp.StatusCode
	res.Classification = classify(resp.StatusCode)
	return res
}

// Report is the classified outcome of one burst.
type Report struct {
	Results []Result
	Limit   int
}

// Expected returns the classification sequence a correctly configured
// limiter should produce for this burst: the first Limit requests reach
// authentication and bounce off it, everything after is throttled.
func (r *Report) Expected() []Classification {
	expected := make([]Classification, len(r.Results))
	for i := range expected {
		if i < r.Limit {
			expected[i] = AuthRejected
		} else {
			expected[i] = RateLimited
		}
	}
	return expected
}

// Matches reports whether the observed sequence equals Expected().
func (r *Report) Matches() bool {
	for i, want := range r.Expected() {
		if r.Results[i].Classification != want {
			return false
		}
	}
	return true
}

func (r *Report) sequence() string {
	parts := make([]string, len(r.Results))
	for i, res := range r.Results {
		parts[i] = string(res.Classification)
	}
	return strings.Join(parts, ",")
}

// Render writes the operator-facing report to w.
func (r *Report) Render(w io.Writer) {
	fmt.Fprintf(w, "Rate-limit probe: %d requests, limit %d\n\n", len(r.Results), r.Limit)
	for i, res := range r.Results {
		marker := "✓"
		if res.Classification != r.Expected()[i] {
			marker = "✗"
		}
		switch {
		case res.Err != nil:
			fmt.Fprintf(w, "  %s #%d  request failed: %v\n", marker, res.Seq, res.Err)
		default:
			fmt.Fprintf(w, "  %s #%d  %d %-14s (%s, %s)\n",
				marker, res.Seq, res.Status, res.Classification,
				res.Elapsed.Round(time.Millisecond), res.RequestID[:8])
		}
	}
	fmt.Fprintln(w)
	if r.Matches() {
		fmt.Fprintf(w, "Observed behavior matches the configured limit of %d per window.\n", r.Limit)
	} else {
		fmt.Fprintf(w, "Observed behavior DOES NOT match the configured limit of %d per window.\n", r.Limit)
		fmt.Fprintf(w, "Expected: %d auth rejections then %d rate-limited responses.\n",
			r.Limit, len(r.Results)-r.Limit)
	}
}
