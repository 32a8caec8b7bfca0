// Package metrics keeps process-local counters over the check pipeline.
// Everything is lock-free atomics so the hot path (one Observe per check)
// costs a handful of adds.
package metrics

import (
	"sync/atomic"

	"sentinel/internals/modules/monitor"
	"sentinel/internals/modules/probe"
)

// latency histogram bucket upper bounds, in milliseconds
var bucketBounds = []int64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeTimeout
	outcomeConnRefused
	outcomeDNSFailure
	outcomeAssertion
	outcomeUnknown
	outcomeCount
)

var outcomeNames = [outcomeCount]string{
	"success",
	"timeout",
	"connection_refused",
	"dns_failure",
	"assertion_failure",
	"unknown",
}

func outcomeOf(r probe.Result) outcome {
	if r.Success {
		return outcomeSuccess
	}
	switch r.Reason {
	case probe.ReasonTimeout:
		return outcomeTimeout
	case probe.ReasonConnRefused:
		return outcomeConnRefused
	case probe.ReasonDNSFailure:
		return outcomeDNSFailure
	case probe.ReasonAssertion:
		return outcomeAssertion
	default:
		return outcomeUnknown
	}
}

var stateOrder = []monitor.State{
	monitor.StatePending,
	monitor.StateUp,
	monitor.StateDegraded,
	monitor.StateDown,
}

func stateIndex(s monitor.State) int {
	for i, st := range stateOrder {
		if st == s {
			return i
		}
	}
	return 0
}

// Aggregator accumulates check outcomes, latency distribution and current
// per-state monitor counts. Safe for concurrent use.
type Aggregator struct {
	outcomes   [outcomeCount]atomic.Int64
	buckets    []atomic.Int64 // one per bound, +Inf is implicit via count
	latencySum atomic.Int64
	latencyCnt atomic.Int64
	states     [4]atomic.Int64
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		buckets: make([]atomic.Int64, len(bucketBounds)),
	}
}

// Observe folds one check result into the counters. Latency is only
// sampled for checks that reached the target, so failed dials don't skew
// the distribution.
func (a *Aggregator) Observe(r probe.Result) {
	a.outcomes[outcomeOf(r)].Add(1)

	if !r.Success && r.Reason != probe.ReasonAssertion {
		return
	}
	a.latencySum.Add(r.LatencyMs)
	a.latencyCnt.Add(1)
	for i, bound := range bucketBounds {
		if r.LatencyMs <= bound {
			a.buckets[i].Add(1)
		}
	}
}

// Transition moves one monitor between state gauges.
func (a *Aggregator) Transition(from, to monitor.State) {
	if from == to {
		return
	}
	a.states[stateIndex(from)].Add(-1)
	a.states[stateIndex(to)].Add(1)
}

// MonitorAdded registers a monitor in its starting state gauge.
func (a *Aggregator) MonitorAdded(s monitor.State) {
	a.states[stateIndex(s)].Add(1)
}

// MonitorRemoved drops a monitor from its state gauge.
func (a *Aggregator) MonitorRemoved(s monitor.State) {
	a.states[stateIndex(s)].Add(-1)
}

// Snapshot is a point-in-time copy of every counter. Bucket values are
// cumulative, matching the usual histogram exposition convention.
type Snapshot struct {
	Outcomes     map[string]int64        `json:"outcomes"`
	Buckets      []BucketCount           `json:"latency_buckets"`
	LatencySumMs int64                   `json:"latency_sum_ms"`
	LatencyCount int64                   `json:"latency_count"`
	States       map[monitor.State]int64 `json:"states"`
}

type BucketCount struct {
	UpperMs int64 `json:"le_ms"` // 0 means +Inf
	Count   int64 `json:"count"`
}

func (a *Aggregator) Snapshot() Snapshot {
	snap := Snapshot{
		Outcomes:     make(map[string]int64, outcomeCount),
		Buckets:      make([]BucketCount, 0, len(bucketBounds)+1),
		LatencySumMs: a.latencySum.Load(),
		LatencyCount: a.latencyCnt.Load(),
		States:       make(map[monitor.State]int64, len(stateOrder)),
	}
	for i := outcome(0); i < outcomeCount; i++ {
		snap.Outcomes[outcomeNames[i]] = a.outcomes[i].Load()
	}
	for i, bound := range bucketBounds {
		snap.Buckets = append(snap.Buckets, BucketCount{UpperMs: bound, Count: a.buckets[i].Load()})
	}
	snap.Buckets = append(snap.Buckets, BucketCount{UpperMs: 0, Count: snap.LatencyCount})
	for i, st := range stateOrder {
		snap.States[st] = a.states[i].Load()
	}
	return snap
}
