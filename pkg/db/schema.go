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

// Timestamps are stored as Unix nanoseconds so both dialects round-trip
// them exactly.
//
//nolint:gochecknoglobals // schema statements
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		id                   TEXT PRIMARY KEY,
		address              TEXT NOT NULL UNIQUE,
		hostname             TEXT NOT NULL DEFAULT '',
		sys_name             TEXT NOT NULL DEFAULT '',
		sys_descr            TEXT NOT NULL DEFAULT '',
		sys_object_id        TEXT NOT NULL DEFAULT '',
		sys_contact          TEXT NOT NULL DEFAULT '',
		sys_location         TEXT NOT NULL DEFAULT '',
		chassis_id           TEXT NOT NULL DEFAULT '',
		vendor               TEXT NOT NULL DEFAULT '',
		model                TEXT NOT NULL DEFAULT '',
		os_version           TEXT NOT NULL DEFAULT '',
		serial_number        TEXT NOT NULL DEFAULT '',
		uptime_ns            BIGINT NOT NULL DEFAULT 0,
		status               TEXT NOT NULL,
		consecutive_failures INTEGER NOT NULL DEFAULT 0,
		last_polled          BIGINT NOT NULL DEFAULT 0,
		last_seen            BIGINT NOT NULL DEFAULT 0,
		first_seen           BIGINT NOT NULL DEFAULT 0,
		updated_at           BIGINT NOT NULL DEFAULT 0,
		version              BIGINT NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS interfaces (
		device_id    TEXT NOT NULL REFERENCES devices (id) ON DELETE CASCADE,
		if_index     INTEGER NOT NULL,
		name         TEXT NOT NULL DEFAULT '',
		descr        TEXT NOT NULL DEFAULT '',
		alias        TEXT NOT NULL DEFAULT '',
		if_type      INTEGER NOT NULL DEFAULT 0,
		admin_status TEXT NOT NULL DEFAULT '',
		oper_status  TEXT NOT NULL DEFAULT '',
		speed        BIGINT NOT NULL DEFAULT 0,
		mtu          INTEGER NOT NULL DEFAULT 0,
		phys_address TEXT NOT NULL DEFAULT '',
		last_change  BIGINT,
		stale        BOOLEAN NOT NULL DEFAULT FALSE,
		miss_count   INTEGER NOT NULL DEFAULT 0,
		first_seen   BIGINT NOT NULL DEFAULT 0,
		last_seen    BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (device_id, if_index)
	)`,
	`CREATE TABLE IF NOT EXISTS mac_entries (
		id            TEXT PRIMARY KEY,
		device_id     TEXT NOT NULL REFERENCES devices (id) ON DELETE CASCADE,
		if_index      INTEGER NOT NULL,
		mac           TEXT NOT NULL,
		vlan          INTEGER NOT NULL DEFAULT 0,
		first_seen    BIGINT NOT NULL DEFAULT 0,
		last_seen     BIGINT NOT NULL DEFAULT 0,
		miss_count    INTEGER NOT NULL DEFAULT 0,
		retired_at    BIGINT,
		retire_reason TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS mac_entries_active
		ON mac_entries (device_id, mac, vlan) WHERE retired_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS mac_entries_mac ON mac_entries (mac)`,
	`CREATE TABLE IF NOT EXISTS topology_edges (
		edge_key           TEXT PRIMARY KEY,
		a_device_id        TEXT NOT NULL,
		a_if_index         INTEGER NOT NULL DEFAULT 0,
		a_if_name          TEXT NOT NULL DEFAULT '',
		b_device_id        TEXT NOT NULL DEFAULT '',
		b_if_index         INTEGER NOT NULL DEFAULT 0,
		b_if_name          TEXT NOT NULL DEFAULT '',
		b_claim_chassis_id TEXT NOT NULL DEFAULT '',
		b_claim_port_id    TEXT NOT NULL DEFAULT '',
		b_claim_sys_name   TEXT NOT NULL DEFAULT '',
		protocol           TEXT NOT NULL,
		speed              BIGINT NOT NULL DEFAULT 0,
		confidence         TEXT NOT NULL,
		resolved           BOOLEAN NOT NULL DEFAULT FALSE,
		reporters          INTEGER NOT NULL DEFAULT 0,
		first_seen         BIGINT NOT NULL DEFAULT 0,
		last_confirmed     BIGINT NOT NULL DEFAULT 0,
		miss_count         INTEGER NOT NULL DEFAULT 0,
		stale              BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS topology_meta (
		id      INTEGER PRIMARY KEY,
		version BIGINT NOT NULL
	)`,
}
