// Package scheduler decides when each monitor's next check runs. The
// registry is the in-memory source of truth for what is being watched;
// the heap orders upcoming checks by due time.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sentinel/internals/modules/monitor"
)

// retryDelay is how long a due check waits when the job buffer is full.
const retryDelay = time.Second

// Job is one check execution handed to the executor. Gen ties the job to
// the monitor config revision it was scheduled under.
type Job struct {
	Monitor monitor.Monitor
	Gen     uint64
}

type entry struct {
	m           monitor.Monitor
	gen         uint64
	inflightGen uint64 // gen of the running check, zero when idle
}

// Scheduler owns the check timeline. An entry exists per enabled monitor;
// its generation invalidates queued items after updates or removals, and
// the in-flight generation guarantees at most one running check per
// monitor. Generations are unique across the scheduler's lifetime so a
// completion can never be credited to a later registration of the same
// monitor. Intervals are measured from check completion, not dispatch.
type Scheduler struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
	queue   dueQueue
	lastGen uint64

	jobs   chan Job
	kickCh chan struct{}
	logger *zerolog.Logger
}

func New(jobBuffer int, logger *zerolog.Logger) *Scheduler {
	if jobBuffer <= 0 {
		jobBuffer = 256
	}
	return &Scheduler{
		entries: make(map[uuid.UUID]*entry),
		jobs:    make(chan Job, jobBuffer),
		kickCh:  make(chan struct{}, 1),
		logger:  logger,
	}
}

// Jobs is the stream of due checks, consumed by the executor pool.
func (s *Scheduler) Jobs() <-chan Job { return s.jobs }

// Upsert registers a monitor, or replaces its config in place. The next
// check is scheduled immediately; any previously queued item dies by
// generation mismatch. A check already running keeps its in-flight claim,
// so the new config's first run waits for its completion.
func (s *Scheduler) Upsert(m monitor.Monitor) {
	s.mu.Lock()
	s.lastGen++
	e, ok := s.entries[m.ID]
	if ok {
		e.gen = s.lastGen
		e.m = m
		if e.inflightGen != 0 {
			s.mu.Unlock()
			return
		}
	} else {
		e = &entry{m: m, gen: s.lastGen}
		s.entries[m.ID] = e
	}
	heap.Push(&s.queue, queueItem{monitorID: m.ID, gen: e.gen, runAt: time.Now()})
	s.mu.Unlock()
	s.kick()
}

// Remove drops a monitor from the timeline. Queued items for it become
// stale and are discarded when they surface.
func (s *Scheduler) Remove(id uuid.UUID) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

// Completed reports that the check dispatched under gen finished, and
// schedules the next one a full interval from now. A completion for a
// removed monitor, or for a check from an earlier registration, is a
// no-op. A completion whose gen trails the entry's means the monitor was
// reconfigured while that check ran; it releases the in-flight claim and
// starts the new config right away.
func (s *Scheduler) Completed(id uuid.UUID, gen uint64) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok || e.inflightGen != gen {
		s.mu.Unlock()
		return
	}
	e.inflightGen = 0
	if e.gen == gen {
		heap.Push(&s.queue, queueItem{monitorID: id, gen: gen, runAt: time.Now().Add(e.m.Interval())})
	} else {
		heap.Push(&s.queue, queueItem{monitorID: id, gen: e.gen, runAt: time.Now()})
	}
	s.mu.Unlock()
	s.kick()
}

// Len reports how many monitors are currently registered.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Run drives the timeline until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		next := s.dispatchDue()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		wait := time.Hour
		if !next.IsZero() {
			wait = time.Until(next)
			if wait < 0 {
				wait = 0
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-s.kickCh:
		}
	}
}

// dispatchDue fires every item whose time has come and returns the due
// time of the next queued item, or zero when the queue is empty.
func (s *Scheduler) dispatchDue() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for s.queue.Len() > 0 {
		if s.queue[0].runAt.After(now) {
			return s.queue[0].runAt
		}
		item := heap.Pop(&s.queue).(queueItem)
		s.fire(item, now)
	}
	return time.Time{}
}

// fire dispatches one due item. Caller holds the lock.
func (s *Scheduler) fire(item queueItem, now time.Time) {
	e, ok := s.entries[item.monitorID]
	if !ok || e.gen != item.gen {
		// removed or reconfigured since this item was queued
		return
	}
	if e.inflightGen != 0 {
		s.logger.Warn().
			Str("monitor_id", item.monitorID.String()).
			Msg("check still running at next due time, skipping")
		return
	}

	select {
	case s.jobs <- Job{Monitor: e.m, Gen: e.gen}:
		e.inflightGen = e.gen
	default:
		// executor backlog; retry shortly instead of blocking the loop
		heap.Push(&s.queue, queueItem{monitorID: item.monitorID, gen: item.gen, runAt: now.Add(retryDelay)})
		s.logger.Warn().
			Str("monitor_id", item.monitorID.String()).
			Msg("job buffer full, delaying check")
	}
}

func (s *Scheduler) kick() {
	select {
	case s.kickCh <- struct{}{}:
	default:
	}
}
