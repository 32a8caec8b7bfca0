package metrics

import (
	"fmt"
	"net/http"
	"strconv"

	"sentinel/internals/modules/monitor"
)

// Handler renders the aggregator in the text exposition format, so any
// scraper that speaks the plain-text convention can collect it.
func Handler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := agg.Snapshot()
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		fmt.Fprintln(w, "# HELP sentinel_checks_total Total checks executed, by outcome.")
		fmt.Fprintln(w, "# TYPE sentinel_checks_total counter")
		for i := outcome(0); i < outcomeCount; i++ {
			name := outcomeNames[i]
			fmt.Fprintf(w, "sentinel_checks_total{outcome=%q} %d\n", name, snap.Outcomes[name])
		}

		fmt.Fprintln(w, "# HELP sentinel_probe_latency_ms Latency of checks that reached the target.")
		fmt.Fprintln(w, "# TYPE sentinel_probe_latency_ms histogram")
		for _, b := range snap.Buckets {
			le := "+Inf"
			if b.UpperMs > 0 {
				le = strconv.FormatInt(b.UpperMs, 10)
			}
			fmt.Fprintf(w, "sentinel_probe_latency_ms_bucket{le=%q} %d\n", le, b.Count)
		}
		fmt.Fprintf(w, "sentinel_probe_latency_ms_sum %d\n", snap.LatencySumMs)
		fmt.Fprintf(w, "sentinel_probe_latency_ms_count %d\n", snap.LatencyCount)

		fmt.Fprintln(w, "# HELP sentinel_monitors_state Monitors currently in each state.")
		fmt.Fprintln(w, "# TYPE sentinel_monitors_state gauge")
		for _, st := range stateOrder {
			fmt.Fprintf(w, "sentinel_monitors_state{state=%q} %d\n", st, snap.States[st])
		}

		fmt.Fprintln(w, "# HELP sentinel_monitors_up Monitors currently UP.")
		fmt.Fprintln(w, "# TYPE sentinel_monitors_up gauge")
		fmt.Fprintf(w, "sentinel_monitors_up %d\n", snap.States[monitor.StateUp])
	}
}
