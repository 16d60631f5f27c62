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

package mapper

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrConfigNil          = errors.New("config cannot be nil")
	ErrInvalidWorkers     = errors.New("workers must not be negative")
	ErrInvalidRetries     = errors.New("retries must not be negative")
	ErrInvalidBackoff     = errors.New("invalid backoff")
	ErrInvalidGracePolicy = errors.New("down_after_failures and stale_after_misses must be at least 1")
	ErrNoTargets          = errors.New("no discovery targets configured")
	ErrInvalidTarget      = errors.New("invalid discovery target")

	// ErrConfig marks a device whose credentials are missing or invalid. It is
	// fatal for that device and never retried until the config changes.
	ErrConfig = errors.New("device configuration error")
	// ErrIdentityFailed wraps the transport error of a failed identity query.
	ErrIdentityFailed = errors.New("identity query failed")
	// ErrProbeInterrupted is returned when cancellation cut the identity query
	// short. Nothing was learned about the device.
	ErrProbeInterrupted = errors.New("probe interrupted")

	ErrEngineStopped   = errors.New("discovery engine is stopped")
	ErrEngineStarted   = errors.New("discovery engine already started")
	ErrUnknownTarget   = errors.New("unknown device or address")
	ErrJobQueueFull    = errors.New("job queue full, cannot enqueue probe")
	ErrStopTimeout     = errors.New("discovery engine stop timed out")
	ErrStoreRequired   = errors.New("store is required")
	ErrTransportNeeded = errors.New("snmp transport is required")
)

// PartialResult collects the sub-walks of a probe that failed after the
// identity query succeeded. Data gathered by the other steps stays valid.
type PartialResult struct {
	Errors map[string]error
}

func (p *PartialResult) add(step string, err error) {
	if p.Errors == nil {
		p.Errors = make(map[string]error)
	}

	p.Errors[step] = err
}

// Failed reports whether the named step failed.
func (p *PartialResult) Failed(step string) bool {
	_, ok := p.Errors[step]

	return ok
}

// Steps returns the failed step names in sorted order.
func (p *PartialResult) Steps() []string {
	steps := make([]string, 0, len(p.Errors))
	for s := range p.Errors {
		steps = append(steps, s)
	}

	sort.Strings(steps)

	return steps
}

// Warnings renders one line per failed step.
func (p *PartialResult) Warnings() []string {
	out := make([]string, 0, len(p.Errors))
	for _, s := range p.Steps() {
		out = append(out, fmt.Sprintf("%s: %v", s, p.Errors[s]))
	}

	return out
}

func (p *PartialResult) Error() string {
	return "partial probe result: " + strings.Join(p.Warnings(), "; ")
}

func (p *PartialResult) Unwrap() []error {
	errs := make([]error, 0, len(p.Errors))
	for _, s := range p.Steps() {
		errs = append(errs, p.Errors[s])
	}

	return errs
}
