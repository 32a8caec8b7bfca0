package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"sentinel/pkg/httpclient"
)

// graceTimeout sits on top of the per-target timeout so a probe can come
// back with a structured timeout result instead of being killed mid-flight.
const graceTimeout = 2 * time.Second

type Prober struct {
	client *http.Client
	logger *zerolog.Logger
}

func New(logger *zerolog.Logger) *Prober {
	return &Prober{
		client: httpclient.New(),
		logger: logger,
	}
}

// Execute runs one check against the target. It never returns an error:
// every network failure is classified into the result's Reason. Invocations
// are independent and safe to run in parallel.
func (p *Prober) Execute(ctx context.Context, t Target) Result {
	checkCtx, cancel := context.WithTimeout(ctx, t.Timeout+graceTimeout)
	defer cancel()

	switch t.Kind {
	case KindTCP:
		return p.checkTCP(checkCtx, t)
	case KindICMP:
		return p.checkICMP(checkCtx, t)
	default:
		return p.checkHTTP(checkCtx, t)
	}
}

func classify(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return ReasonTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonDNSFailure
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return ReasonConnRefused
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}

	return ReasonUnknown
}

func failed(t Target, start time.Time, reason Reason) Result {
	return Result{
		MonitorID: t.MonitorID,
		CheckedAt: time.Now(),
		LatencyMs: time.Since(start).Milliseconds(),
		Reason:    reason,
	}
}
