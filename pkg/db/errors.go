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

package db

import "errors"

var (

	// Core database errors.

	ErrDatabaseError  = errors.New("database error")
	ErrFailedOpenDB   = errors.New("failed to open database")
	ErrFailedToInit   = errors.New("failed to initialize schema")
	ErrUnknownDriver  = errors.New("unknown database driver")
	ErrTLSDisabled    = errors.New("tls client certificates require sslmode other than disable")
	ErrMissingTLSFile = errors.New("cert_file, key_file, and ca_file are required")

	// Reconciliation errors.

	// ErrSnapshotConflict is returned when a plan was computed against a
	// version that is no longer current. The caller reloads and retries.
	ErrSnapshotConflict = errors.New("snapshot version conflict")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrPlanWithoutID    = errors.New("plan device has no id")
)
