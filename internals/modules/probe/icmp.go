package probe

import (
	"context"
	"time"

	"github.com/go-ping/ping"
)

// checkICMP sends a single unprivileged (UDP-socket) echo request.
func (p *Prober) checkICMP(ctx context.Context, t Target) Result {
	start := time.Now()

	pinger, err := ping.NewPinger(t.Address)
	if err != nil {
		// NewPinger resolves the hostname, so lookup failures land here
		return failed(t, start, classify(err))
	}

	pinger.Count = 1
	pinger.Timeout = t.Timeout
	pinger.SetPrivileged(false)

	done := make(chan error, 1)
	go func() { done <- pinger.Run() }()

	select {
	case <-ctx.Done():
		pinger.Stop()
		<-done
		return failed(t, start, ReasonTimeout)
	case err := <-done:
		if err != nil {
			return failed(t, start, classify(err))
		}
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return failed(t, start, ReasonTimeout)
	}

	return Result{
		MonitorID: t.MonitorID,
		CheckedAt: time.Now(),
		Success:   true,
		LatencyMs: stats.AvgRtt.Milliseconds(),
	}
}
