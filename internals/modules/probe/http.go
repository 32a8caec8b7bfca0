package probe

import (
	"context"
	"io"
	"net/http"
	"time"
)

// cap on how much of the body gets drained so keep-alive connections can be
// reused without letting a huge response eat the probe's time budget
const maxDrainBytes = 512 * 1024

func (p *Prober) checkHTTP(ctx context.Context, t Target) Result {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, t.Address, nil)
	if err != nil {
		// targets are validated on registration, so a bad URL here is ours
		p.logger.Error().Err(err).Str("target", t.Address).Msg("failed to build probe request")
		return failed(t, start, ReasonUnknown)
	}

	resp, err := p.client.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return failed(t, start, classify(err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	if !statusMatches(resp.StatusCode, t.ExpectedStatus) {
		return Result{
			MonitorID:  t.MonitorID,
			CheckedAt:  time.Now(),
			StatusCode: resp.StatusCode,
			LatencyMs:  latency,
			Reason:     ReasonAssertion,
		}
	}

	return Result{
		MonitorID:  t.MonitorID,
		CheckedAt:  time.Now(),
		Success:    true,
		StatusCode: resp.StatusCode,
		LatencyMs:  latency,
	}
}

// statusMatches treats 0 as "any 2xx".
func statusMatches(got, want int) bool {
	if want == 0 {
		return got >= 200 && got < 300
	}
	return got == want
}
