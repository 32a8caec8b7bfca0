package probe

import (
	"context"
	"net"
	"time"
)

func (p *Prober) checkTCP(ctx context.Context, t Target) Result {
	start := time.Now()

	dialCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", t.Address)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return failed(t, start, classify(err))
	}
	conn.Close()

	return Result{
		MonitorID: t.MonitorID,
		CheckedAt: time.Now(),
		Success:   true,
		LatencyMs: latency,
	}
}
