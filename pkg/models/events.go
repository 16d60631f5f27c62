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

package models

import "time"

// CloudEvent represents a CloudEvents v1.0 compliant event.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// PollOutcome summarizes how a poll cycle ended.
type PollOutcome string

const (
	OutcomeSuccess      PollOutcome = "success"
	OutcomePartial      PollOutcome = "partial"
	OutcomeFailed       PollOutcome = "failed"
	OutcomeAuthRejected PollOutcome = "auth_rejected"
	OutcomeConfigError  PollOutcome = "config_error"
)

// Operator reports whether the outcome needs operator attention rather than a retry.
func (o PollOutcome) Operator() bool {
	return o == OutcomeAuthRejected || o == OutcomeConfigError
}

// DiscoveryEvent is emitted once per completed poll cycle.
type DiscoveryEvent struct {
	DeviceID   string       `json:"device_id,omitempty"`
	Address    string       `json:"address"`
	Status     DeviceStatus `json:"status"`
	Outcome    PollOutcome  `json:"outcome"`
	New        int          `json:"new"`
	Changed    int          `json:"changed"`
	Stale      int          `json:"stale"`
	Warnings   []string     `json:"warnings,omitempty"`
	Error      string       `json:"error,omitempty"`
	Manual     bool         `json:"manual"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}
