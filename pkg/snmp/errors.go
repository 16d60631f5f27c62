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

package snmp

import (
	"errors"
	"fmt"
)

var (
	// Transport errors.
	ErrTimeout      = errors.New("snmp request timed out")
	ErrUnreachable  = errors.New("snmp agent unreachable")
	ErrAuthRejected = errors.New("snmp authentication rejected")
	// ErrInterrupted is returned when the caller's context ends between requests.
	ErrInterrupted = errors.New("snmp walk interrupted")

	// Decode errors.
	ErrMalformedMessage   = errors.New("malformed snmp message")
	ErrUnsupportedVersion = errors.New("unsupported snmp version")

	// ErrInvalidCredentials marks a configuration problem; it is never retried.
	ErrInvalidCredentials = errors.New("invalid snmp credentials")
)

// TransportKind classifies a TransportError.
type TransportKind string

const (
	KindTimeout      TransportKind = "timeout"
	KindUnreachable  TransportKind = "unreachable"
	KindAuthRejected TransportKind = "auth_rejected"
)

// TransportError describes a failed exchange with one agent.
type TransportError struct {
	Kind     TransportKind
	Target   string
	Op       string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("snmp %s %s: %s after %d attempt(s): %v", e.Op, e.Target, e.Kind, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() []error {
	var sentinel error

	switch e.Kind {
	case KindTimeout:
		sentinel = ErrTimeout
	case KindUnreachable:
		sentinel = ErrUnreachable
	case KindAuthRejected:
		sentinel = ErrAuthRejected
	}

	return []error{sentinel, e.Err}
}

// DecodeError describes a message or binding that could not be parsed.
type DecodeError struct {
	Reason error // ErrMalformedMessage or ErrUnsupportedVersion
	Detail string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v: %s", e.Reason, e.Detail)
}

func (e *DecodeError) Unwrap() error {
	return e.Reason
}

func malformed(format string, args ...interface{}) error {
	return &DecodeError{Reason: ErrMalformedMessage, Detail: fmt.Sprintf(format, args...)}
}
