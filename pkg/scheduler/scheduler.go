/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package scheduler decides when each device is polled. It owns the
// per-device state machine that guarantees at most one poll per device is
// queued or running at any moment.
package scheduler

import (
	"math"
	"sort"
	"sync"
	"time"
)

// State is a device's position in the poll cycle.
type State int

const (
	StateIdle State = iota
	StateQueued
	StateInFlight
	StateBackoff
	// StateSuspended devices are skipped until registered again.
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateQueued:
		return "queued"
	case StateInFlight:
		return "in_flight"
	case StateBackoff:
		return "backoff"
	case StateSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// Job is one scheduled poll.
type Job struct {
	DeviceID    string
	ScheduledAt time.Time
	// Attempt counts consecutive failures before this job, plus one.
	Attempt int
	Manual  bool
}

// Backoff is the failure delay schedule: Initial after the first failure,
// multiplied per further failure, capped at Max.
type Backoff struct {
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration
}

// Delay returns the wait after the given number of consecutive failures.
func (b Backoff) Delay(failures int) time.Duration {
	if failures <= 0 || b.Initial <= 0 {
		return 0
	}

	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}

	d := float64(b.Initial) * math.Pow(mult, float64(failures-1))
	if b.Max > 0 && (d > float64(b.Max) || math.IsInf(d, 0)) {
		return b.Max
	}

	return time.Duration(d)
}

// Status is a read-only view of one device's schedule.
type Status struct {
	DeviceID string        `json:"device_id"`
	State    string        `json:"state"`
	Interval time.Duration `json:"interval"`
	NextDue  time.Time     `json:"next_due"`
	Failures int           `json:"consecutive_failures"`
}

type entry struct {
	id       string
	interval time.Duration
	state    State
	nextDue  time.Time
	failures int
}

// Scheduler holds the state machine for every registered device. All
// methods are safe for concurrent use.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*entry
	backoff Backoff
}

// New creates an empty Scheduler.
func New(backoff Backoff) *Scheduler {
	return &Scheduler{
		entries: make(map[string]*entry),
		backoff: backoff,
	}
}

// Register adds a device, due at now. Registering a known device updates its
// interval and lifts a suspension; its current cycle is otherwise untouched,
// so a device that is queued or in flight stays the only job for that id.
// Entries are never removed.
func (s *Scheduler) Register(id string, interval time.Duration, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		e.interval = interval

		if e.state == StateSuspended {
			e.state = StateIdle
			e.nextDue = now
		}

		return
	}

	s.entries[id] = &entry{id: id, interval: interval, state: StateIdle, nextDue: now}
}

// Tick queues every device that is due at now and returns the jobs in
// due-time order. Devices that are queued, in flight or still backing off
// are left alone.
func (s *Scheduler) Tick(now time.Time) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*entry

	for _, e := range s.entries {
		switch e.state {
		case StateBackoff:
			if now.Before(e.nextDue) {
				continue
			}

			e.state = StateIdle
		case StateIdle:
		case StateQueued, StateInFlight, StateSuspended:
			continue
		}

		if !now.Before(e.nextDue) {
			due = append(due, e)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if !due[i].nextDue.Equal(due[j].nextDue) {
			return due[i].nextDue.Before(due[j].nextDue)
		}

		return due[i].id < due[j].id
	})

	jobs := make([]Job, 0, len(due))

	for _, e := range due {
		e.state = StateQueued
		jobs = append(jobs, Job{DeviceID: e.id, ScheduledAt: now, Attempt: e.failures + 1})
	}

	return jobs
}

// ProbeNow queues a manual poll for an idle or backing-off device.
func (s *Scheduler) ProbeNow(id string, now time.Time) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return Job{}, ErrUnknownDevice
	}

	switch e.state {
	case StateQueued, StateInFlight:
		return Job{}, ErrAlreadyActive
	case StateSuspended:
		return Job{}, ErrSuspended
	case StateIdle, StateBackoff:
	}

	e.state = StateQueued

	return Job{DeviceID: id, ScheduledAt: now, Attempt: e.failures + 1, Manual: true}, nil
}

// Start marks a queued job as running. It returns false when the device is
// not queued, in which case the job must be dropped.
func (s *Scheduler) Start(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.state != StateQueued {
		return false
	}

	e.state = StateInFlight

	return true
}

// Release returns a queued device that was never dispatched to Idle without
// moving its due time.
func (s *Scheduler) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok && e.state == StateQueued {
		e.state = StateIdle
	}
}

// Finish ends a running poll. Success schedules the next poll one interval
// from now; failure enters Backoff. It returns the next due time.
func (s *Scheduler) Finish(id string, ok bool, now time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.entries[id]
	if !found || e.state != StateInFlight {
		return time.Time{}
	}

	if ok {
		e.failures = 0
		e.state = StateIdle
		e.nextDue = now.Add(e.interval)

		return e.nextDue
	}

	e.failures++
	e.state = StateBackoff
	e.nextDue = now.Add(s.backoff.Delay(e.failures))

	return e.nextDue
}

// Suspend parks a device until it is registered again.
func (s *Scheduler) Suspend(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		e.state = StateSuspended
	}
}

// State reports a device's current state.
func (s *Scheduler) State(id string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return StateIdle, false
	}

	return e.state, true
}

// Status returns the schedule of one device.
func (s *Scheduler) Status(id string) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return Status{}, false
	}

	return e.status(), true
}

// Statuses returns every device's schedule sorted by id.
func (s *Scheduler) Statuses() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Status, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.status())
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })

	return out
}

func (e *entry) status() Status {
	return Status{
		DeviceID: e.id,
		State:    e.state.String(),
		Interval: e.interval,
		NextDue:  e.nextDue,
		Failures: e.failures,
	}
}
