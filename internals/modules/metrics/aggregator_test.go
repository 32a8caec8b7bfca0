package metrics

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"sentinel/internals/modules/monitor"
	"sentinel/internals/modules/probe"
)

func TestObserveCountsOutcomes(t *testing.T) {
	agg := NewAggregator()

	agg.Observe(probe.Result{Success: true, LatencyMs: 12})
	agg.Observe(probe.Result{Success: true, LatencyMs: 300})
	agg.Observe(probe.Result{Reason: probe.ReasonTimeout})
	agg.Observe(probe.Result{Reason: probe.ReasonDNSFailure})
	agg.Observe(probe.Result{Reason: probe.ReasonAssertion, LatencyMs: 40})

	snap := agg.Snapshot()

	if got := snap.Outcomes["success"]; got != 2 {
		t.Errorf("success = %d, want 2", got)
	}
	if got := snap.Outcomes["timeout"]; got != 1 {
		t.Errorf("timeout = %d, want 1", got)
	}
	if got := snap.Outcomes["dns_failure"]; got != 1 {
		t.Errorf("dns_failure = %d, want 1", got)
	}
	if got := snap.Outcomes["assertion_failure"]; got != 1 {
		t.Errorf("assertion_failure = %d, want 1", got)
	}

	// successes and assertion failures carry latency, the timeout and
	// dns failure never reached the target
	if snap.LatencyCount != 3 {
		t.Errorf("latency count = %d, want 3", snap.LatencyCount)
	}
	if snap.LatencySumMs != 352 {
		t.Errorf("latency sum = %d, want 352", snap.LatencySumMs)
	}
}

func TestBucketsAreCumulative(t *testing.T) {
	agg := NewAggregator()
	for _, ms := range []int64{5, 20, 20, 90, 800, 20000} {
		agg.Observe(probe.Result{Success: true, LatencyMs: ms})
	}

	snap := agg.Snapshot()
	want := map[int64]int64{
		10:    1, // 5
		25:    3, // + two 20s
		50:    3,
		100:   4, // + 90
		250:   4,
		500:   4,
		1000:  5, // + 800
		2500:  5,
		5000:  5,
		10000: 5,
		0:     6, // +Inf, the 20s outlier included
	}
	for _, b := range snap.Buckets {
		if b.Count != want[b.UpperMs] {
			t.Errorf("bucket le=%d count = %d, want %d", b.UpperMs, b.Count, want[b.UpperMs])
		}
	}
}

func TestStateGauges(t *testing.T) {
	agg := NewAggregator()

	agg.MonitorAdded(monitor.StatePending)
	agg.MonitorAdded(monitor.StatePending)
	agg.Transition(monitor.StatePending, monitor.StateUp)
	agg.Transition(monitor.StateUp, monitor.StateDown)
	agg.MonitorRemoved(monitor.StatePending)

	snap := agg.Snapshot()
	if got := snap.States[monitor.StatePending]; got != 0 {
		t.Errorf("pending = %d, want 0", got)
	}
	if got := snap.States[monitor.StateUp]; got != 0 {
		t.Errorf("up = %d, want 0", got)
	}
	if got := snap.States[monitor.StateDown]; got != 1 {
		t.Errorf("down = %d, want 1", got)
	}
}

func TestObserveConcurrent(t *testing.T) {
	agg := NewAggregator()

	const goroutines = 8
	const perG = 500

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				agg.Observe(probe.Result{Success: true, LatencyMs: 30})
			}
		}()
	}
	wg.Wait()

	snap := agg.Snapshot()
	if want := int64(goroutines * perG); snap.Outcomes["success"] != want {
		t.Errorf("success = %d, want %d", snap.Outcomes["success"], want)
	}
	if want := int64(goroutines * perG); snap.LatencyCount != want {
		t.Errorf("latency count = %d, want %d", snap.LatencyCount, want)
	}
}

func TestHandlerExposition(t *testing.T) {
	agg := NewAggregator()
	agg.MonitorAdded(monitor.StateUp)
	agg.Observe(probe.Result{Success: true, LatencyMs: 15})

	rec := httptest.NewRecorder()
	Handler(agg)(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`sentinel_checks_total{outcome="success"} 1`,
		`sentinel_probe_latency_ms_bucket{le="25"} 1`,
		`sentinel_probe_latency_ms_bucket{le="+Inf"} 1`,
		"sentinel_probe_latency_ms_sum 15",
		"sentinel_probe_latency_ms_count 1",
		`sentinel_monitors_state{state="UP"} 1`,
		"sentinel_monitors_up 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q\n%s", want, body)
		}
	}
}
