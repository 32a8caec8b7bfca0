// Package state implements the transition rules that turn raw check
// results into monitor states. Apply is pure: same inputs, same outputs,
// no clock reads and no I/O, which keeps replays and tests deterministic.
package state

import (
	"sentinel/internals/modules/alert"
	"sentinel/internals/modules/monitor"
	"sentinel/internals/modules/probe"
)

// Apply folds one check result into the monitor's status. It returns the
// updated status and, when the state changed and the change is notifiable,
// the alert event describing the transition.
//
// Counter rules:
//   - a fast success increments ConsecSuccess and clears the other streaks
//   - a slow success (latency above the policy threshold) increments
//     SlowStreak only; it does not count toward recovery
//   - a failure increments ConsecFailure and clears the other streaks
func Apply(m monitor.Monitor, st monitor.Status, r probe.Result) (monitor.Status, *alert.Event) {
	st.LastCheck = r.CheckedAt
	st.LastLatencyMs = r.LatencyMs
	st.LastReason = r.Reason

	pol := m.Policy
	slow := r.Success && pol.LatencyThresholdMs > 0 && r.LatencyMs > pol.LatencyThresholdMs

	switch {
	case slow:
		st.SlowStreak++
		st.ConsecSuccess = 0
		st.ConsecFailure = 0
	case r.Success:
		st.ConsecSuccess++
		st.ConsecFailure = 0
		st.SlowStreak = 0
	default:
		st.ConsecFailure++
		st.ConsecSuccess = 0
		st.SlowStreak = 0
	}

	next := nextState(pol, st, r.Success)
	if next == st.State {
		return st, nil
	}

	from := st.State
	st.State = next
	st.LastTransition = r.CheckedAt

	if !notifiable(pol, from, next) {
		return st, nil
	}

	return st, &alert.Event{
		MonitorID:   m.ID,
		MonitorName: m.Name,
		Target:      m.Target,
		From:        from,
		To:          next,
		Reason:      r.Reason,
		LatencyMs:   r.LatencyMs,
		At:          r.CheckedAt,
	}
}

func nextState(pol monitor.Policy, st monitor.Status, success bool) monitor.State {
	switch st.State {
	case monitor.StatePending:
		// first success confirms the target regardless of thresholds
		if success {
			return monitor.StateUp
		}
		if st.ConsecFailure >= pol.FailureThreshold {
			return monitor.StateDown
		}

	case monitor.StateUp:
		if st.ConsecFailure >= pol.FailureThreshold {
			return monitor.StateDown
		}
		if degraded(pol, st) {
			return monitor.StateDegraded
		}

	case monitor.StateDegraded:
		if st.ConsecFailure >= pol.FailureThreshold {
			return monitor.StateDown
		}
		if st.ConsecSuccess >= pol.RecoveryThreshold {
			return monitor.StateUp
		}

	case monitor.StateDown:
		if st.ConsecSuccess >= pol.RecoveryThreshold {
			return monitor.StateUp
		}
	}

	return st.State
}

// degraded reports whether either streak has crossed the degraded
// threshold. A zero threshold disables the DEGRADED state entirely.
func degraded(pol monitor.Policy, st monitor.Status) bool {
	if pol.DegradedThreshold <= 0 {
		return false
	}
	return st.ConsecFailure >= pol.DegradedThreshold || st.SlowStreak >= pol.DegradedThreshold
}

// notifiable gates transitions in and out of DEGRADED behind the policy
// flag. Everything touching DOWN, and the initial confirmation, always
// notifies.
func notifiable(pol monitor.Policy, from, to monitor.State) bool {
	if to == monitor.StateDegraded || (from == monitor.StateDegraded && to == monitor.StateUp) {
		return pol.AlertOnDegraded
	}
	return true
}
