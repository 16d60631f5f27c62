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

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/carverauto/netdiscovery/pkg/logger"
	"github.com/carverauto/netdiscovery/pkg/models"
	"github.com/carverauto/netdiscovery/pkg/reconcile"
)

// Dialect selects placeholder syntax.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// SQLStore implements Store on database/sql. Postgres connections come from a
// pgx pool; SQLite uses the pure-Go modernc driver.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	pool    *pgxpool.Pool
	logger  logger.Logger
}

// Open connects to the configured backend and migrates the schema.
func Open(ctx context.Context, cfg *models.DatabaseConfig, log logger.Logger) (*SQLStore, error) {
	var store *SQLStore

	switch strings.ToLower(cfg.Driver) {
	case "", "postgres", "postgresql":
		pool, err := NewPostgresPool(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
		}

		store = NewSQLStore(stdlib.OpenDBFromPool(pool), DialectPostgres, log)
		store.pool = pool
	case "sqlite", "sqlite3":
		db, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}

		store = NewSQLStore(db, DialectSQLite, log)

		log.Info().Str("path", cfg.Path).Msg("opened SQLite database")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	return store, nil
}

// OpenSQLite opens a SQLite database file with foreign keys enforced. An
// empty path or ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*sql.DB, error) {
	if path == "" {
		path = ":memory:"
	}

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
	}

	// one connection: an in-memory database is per connection, and SQLite
	// serializes writers anyway
	db.SetMaxOpenConns(1)

	return db, nil
}

// NewSQLStore wraps an open database. Call Migrate before use.
func NewSQLStore(db *sql.DB, dialect Dialect, log logger.Logger) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, logger: log}
}

// Migrate creates missing tables and indexes.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %w", ErrFailedToInit, err)
		}
	}

	if _, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO topology_meta (id, version) VALUES (1, 0) ON CONFLICT (id) DO NOTHING`)); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToInit, err)
	}

	return nil
}

func (s *SQLStore) Close() error {
	err := s.db.Close()

	if s.pool != nil {
		s.pool.Close()
	}

	return err
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder

	n := 0

	for _, r := range query {
		if r == '?' {
			n++

			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))

			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}

	return time.Unix(0, n).UTC()
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: nanos(*t), Valid: true}
}

func fromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}

	t := fromNanos(n.Int64)

	return &t
}

type scanner interface {
	Scan(dest ...any) error
}

const deviceColumns = `id, address, hostname, sys_name, sys_descr, sys_object_id, sys_contact,
	sys_location, chassis_id, vendor, model, os_version, serial_number, uptime_ns, status,
	consecutive_failures, last_polled, last_seen, first_seen, updated_at, version`

func scanDevice(row scanner) (*models.Device, int64, error) {
	var (
		d                                         models.Device
		uptime, polled, seen, first, updated, ver int64
		status                                    string
	)

	err := row.Scan(&d.ID, &d.Address, &d.Hostname, &d.SysName, &d.SysDescr, &d.SysObjectID,
		&d.SysContact, &d.SysLocation, &d.ChassisID, &d.Vendor, &d.Model, &d.OSVersion,
		&d.SerialNumber, &uptime, &status, &d.ConsecutiveFailures, &polled, &seen, &first,
		&updated, &ver)
	if err != nil {
		return nil, 0, err
	}

	d.Uptime = time.Duration(uptime)
	d.Status = models.DeviceStatus(status)
	d.LastPolled = fromNanos(polled)
	d.LastSeen = fromNanos(seen)
	d.FirstSeen = fromNanos(first)
	d.UpdatedAt = fromNanos(updated)

	return &d, ver, nil
}

func deviceArgs(d *models.Device) []any {
	return []any{
		d.Address, d.Hostname, d.SysName, d.SysDescr, d.SysObjectID, d.SysContact,
		d.SysLocation, d.ChassisID, d.Vendor, d.Model, d.OSVersion, d.SerialNumber,
		int64(d.Uptime), string(d.Status), d.ConsecutiveFailures, nanos(d.LastPolled),
		nanos(d.LastSeen), nanos(d.FirstSeen), nanos(d.UpdatedAt),
	}
}

func (s *SQLStore) getDevice(ctx context.Context, where string, arg string) (*models.Device, int64, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+deviceColumns+` FROM devices WHERE `+where+` = ?`), arg)

	d, ver, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrDeviceNotFound
	}

	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return d, ver, nil
}

func (s *SQLStore) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	d, _, err := s.getDevice(ctx, "id", id)

	return d, err
}

func (s *SQLStore) GetDeviceByAddress(ctx context.Context, address string) (*models.Device, error) {
	d, _, err := s.getDevice(ctx, "address", address)

	return d, err
}

func (s *SQLStore) ListDevices(ctx context.Context) ([]models.Device, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Device

	for rows.Next() {
		d, _, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}

		out = append(out, *d)
	}

	return out, rows.Err()
}

const interfaceColumns = `device_id, if_index, name, descr, alias, if_type, admin_status, oper_status,
	speed, mtu, phys_address, last_change, stale, miss_count, first_seen, last_seen`

func (s *SQLStore) ListInterfaces(ctx context.Context, deviceID string) ([]models.Interface, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT `+interfaceColumns+` FROM interfaces WHERE device_id = ? ORDER BY if_index`), deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Interface

	for rows.Next() {
		var (
			i                  models.Interface
			admin, oper        string
			speed, first, seen int64
			lastChange         sql.NullInt64
		)

		if err := rows.Scan(&i.DeviceID, &i.IfIndex, &i.Name, &i.Descr, &i.Alias, &i.Type, &admin,
			&oper, &speed, &i.MTU, &i.PhysAddress, &lastChange, &i.Stale, &i.MissCount, &first, &seen); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}

		i.AdminStatus = models.IfStatus(admin)
		i.OperStatus = models.IfStatus(oper)
		i.Speed = uint64(speed) //nolint:gosec // stored from a uint64
		i.LastChange = fromNullNanos(lastChange)
		i.FirstSeen = fromNanos(first)
		i.LastSeen = fromNanos(seen)

		out = append(out, i)
	}

	return out, rows.Err()
}

const macColumns = `id, device_id, if_index, mac, vlan, first_seen, last_seen, miss_count, retired_at, retire_reason`

func (s *SQLStore) ListMacEntries(ctx context.Context, deviceID string, includeRetired bool) ([]models.MacEntry, error) {
	query := `SELECT ` + macColumns + ` FROM mac_entries WHERE device_id = ?`
	if !includeRetired {
		query += ` AND retired_at IS NULL`
	}

	query += ` ORDER BY mac, vlan, first_seen`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.MacEntry

	for rows.Next() {
		var (
			m           models.MacEntry
			first, seen int64
			retired     sql.NullInt64
			reason      string
		)

		if err := rows.Scan(&m.ID, &m.DeviceID, &m.IfIndex, &m.MAC, &m.VLAN, &first, &seen,
			&m.MissCount, &retired, &reason); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}

		m.FirstSeen = fromNanos(first)
		m.LastSeen = fromNanos(seen)
		m.RetiredAt = fromNullNanos(retired)
		m.RetireReason = models.RetireReason(reason)

		out = append(out, m)
	}

	return out, rows.Err()
}

func (s *SQLStore) LoadSnapshot(ctx context.Context, address string) (*reconcile.Snapshot, error) {
	d, ver, err := s.getDevice(ctx, "address", address)
	if errors.Is(err, ErrDeviceNotFound) {
		return &reconcile.Snapshot{}, nil
	}

	if err != nil {
		return nil, err
	}

	ifaces, err := s.ListInterfaces(ctx, d.ID)
	if err != nil {
		return nil, err
	}

	macs, err := s.ListMacEntries(ctx, d.ID, false)
	if err != nil {
		return nil, err
	}

	return &reconcile.Snapshot{Version: ver, Device: d, Interfaces: ifaces, MacEntries: macs}, nil
}

// ApplyDevicePlan writes the whole plan in one transaction. Retirements run
// before inserts so a moved MAC never has two active bindings.
func (s *SQLStore) ApplyDevicePlan(ctx context.Context, plan *reconcile.Plan) (err error) {
	if plan.Device == nil {
		return nil
	}

	if plan.Device.ID == "" {
		return ErrPlanWithoutID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.writeDevice(ctx, tx, plan); err != nil {
		return err
	}

	if err = s.writeInterfaces(ctx, tx, plan); err != nil {
		return err
	}

	if err = s.writeMacs(ctx, tx, plan); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return nil
}

func (s *SQLStore) writeDevice(ctx context.Context, tx *sql.Tx, plan *reconcile.Plan) error {
	var current int64

	err := tx.QueryRowContext(ctx, s.rebind(`SELECT version FROM devices WHERE address = ?`),
		plan.Device.Address).Scan(&current)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		current = 0
	case err != nil:
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	if current != plan.BaseVersion {
		return fmt.Errorf("%w: device %s at version %d, plan based on %d",
			ErrSnapshotConflict, plan.Device.Address, current, plan.BaseVersion)
	}

	args := deviceArgs(plan.Device)

	if current == 0 {
		_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO devices (address, hostname, sys_name,
			sys_descr, sys_object_id, sys_contact, sys_location, chassis_id, vendor, model,
			os_version, serial_number, uptime_ns, status, consecutive_failures, last_polled,
			last_seen, first_seen, updated_at, id, version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`),
			append(args, plan.Device.ID)...)
		if err != nil {
			return fmt.Errorf("%w: insert device: %w", ErrDatabaseError, err)
		}

		return nil
	}

	res, err := tx.ExecContext(ctx, s.rebind(`UPDATE devices SET address = ?, hostname = ?,
		sys_name = ?, sys_descr = ?, sys_object_id = ?, sys_contact = ?, sys_location = ?,
		chassis_id = ?, vendor = ?, model = ?, os_version = ?, serial_number = ?, uptime_ns = ?,
		status = ?, consecutive_failures = ?, last_polled = ?, last_seen = ?, first_seen = ?,
		updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`), append(args, plan.Device.ID, current)...)
	if err != nil {
		return fmt.Errorf("%w: update device: %w", ErrDatabaseError, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: device %s changed concurrently", ErrSnapshotConflict, plan.Device.Address)
	}

	return nil
}

func (s *SQLStore) writeInterfaces(ctx context.Context, tx *sql.Tx, plan *reconcile.Plan) error {
	if len(plan.InsertInterfaces)+len(plan.UpdateInterfaces) > 0 {
		stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO interfaces (`+interfaceColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (device_id, if_index) DO UPDATE SET
				name = excluded.name, descr = excluded.descr, alias = excluded.alias,
				if_type = excluded.if_type, admin_status = excluded.admin_status,
				oper_status = excluded.oper_status, speed = excluded.speed, mtu = excluded.mtu,
				phys_address = excluded.phys_address, last_change = excluded.last_change,
				stale = excluded.stale, miss_count = excluded.miss_count,
				first_seen = excluded.first_seen, last_seen = excluded.last_seen`))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}
		defer func() { _ = stmt.Close() }()

		rows := append(append([]models.Interface(nil), plan.InsertInterfaces...), plan.UpdateInterfaces...)

		for i := range rows {
			ifc := &rows[i]

			if _, err := stmt.ExecContext(ctx, plan.Device.ID, ifc.IfIndex, ifc.Name, ifc.Descr, ifc.Alias,
				ifc.Type, string(ifc.AdminStatus), string(ifc.OperStatus), int64(ifc.Speed), //nolint:gosec // link speeds fit int64
				ifc.MTU, ifc.PhysAddress, nullNanos(ifc.LastChange), ifc.Stale, ifc.MissCount,
				nanos(ifc.FirstSeen), nanos(ifc.LastSeen)); err != nil {
				return fmt.Errorf("%w: upsert interface %d: %w", ErrDatabaseError, ifc.IfIndex, err)
			}
		}
	}

	for _, idx := range plan.TouchInterfaces {
		if _, err := tx.ExecContext(ctx, s.rebind(
			`UPDATE interfaces SET last_seen = ? WHERE device_id = ? AND if_index = ?`),
			nanos(plan.ObservedAt), plan.Device.ID, idx); err != nil {
			return fmt.Errorf("%w: touch interface %d: %w", ErrDatabaseError, idx, err)
		}
	}

	return nil
}

func (s *SQLStore) writeMacs(ctx context.Context, tx *sql.Tx, plan *reconcile.Plan) error {
	for i := range plan.RetireMacs {
		m := &plan.RetireMacs[i]

		if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE mac_entries SET retired_at = ?,
			retire_reason = ?, miss_count = ?, last_seen = ? WHERE id = ?`),
			nullNanos(m.RetiredAt), string(m.RetireReason), m.MissCount, nanos(m.LastSeen), m.ID); err != nil {
			return fmt.Errorf("%w: retire mac %s: %w", ErrDatabaseError, m.MAC, err)
		}
	}

	for i := range plan.UpdateMacs {
		m := &plan.UpdateMacs[i]

		if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE mac_entries SET if_index = ?,
			last_seen = ?, miss_count = ? WHERE id = ?`),
			m.IfIndex, nanos(m.LastSeen), m.MissCount, m.ID); err != nil {
			return fmt.Errorf("%w: update mac %s: %w", ErrDatabaseError, m.MAC, err)
		}
	}

	for i := range plan.InsertMacs {
		m := &plan.InsertMacs[i]

		if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO mac_entries (`+macColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			m.ID, plan.Device.ID, m.IfIndex, m.MAC, m.VLAN, nanos(m.FirstSeen), nanos(m.LastSeen),
			m.MissCount, nullNanos(m.RetiredAt), string(m.RetireReason)); err != nil {
			return fmt.Errorf("%w: insert mac %s: %w", ErrDatabaseError, m.MAC, err)
		}
	}

	for _, id := range plan.TouchMacs {
		if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE mac_entries SET last_seen = ? WHERE id = ?`),
			nanos(plan.ObservedAt), id); err != nil {
			return fmt.Errorf("%w: touch mac %s: %w", ErrDatabaseError, id, err)
		}
	}

	return nil
}

const edgeColumns = `edge_key, a_device_id, a_if_index, a_if_name, b_device_id, b_if_index, b_if_name,
	b_claim_chassis_id, b_claim_port_id, b_claim_sys_name, protocol, speed, confidence, resolved,
	reporters, first_seen, last_confirmed, miss_count, stale`

func (s *SQLStore) LoadEdges(ctx context.Context) ([]models.TopologyEdge, int64, error) {
	var version int64

	if err := s.db.QueryRowContext(ctx, `SELECT version FROM topology_meta WHERE id = 1`).Scan(&version); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+edgeColumns+` FROM topology_edges ORDER BY edge_key`)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.TopologyEdge

	for rows.Next() {
		var (
			e                       models.TopologyEdge
			protocol, confidence    string
			speed, first, confirmed int64
		)

		if err := rows.Scan(&e.Key, &e.A.DeviceID, &e.A.IfIndex, &e.A.IfName, &e.B.DeviceID,
			&e.B.IfIndex, &e.B.IfName, &e.B.ClaimChassisID, &e.B.ClaimPortID, &e.B.ClaimSysName,
			&protocol, &speed, &confidence, &e.Resolved, &e.Reporters, &first, &confirmed,
			&e.MissCount, &e.Stale); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}

		e.Protocol = models.NeighborProtocol(protocol)
		e.Confidence = models.Confidence(confidence)
		e.Speed = uint64(speed) //nolint:gosec // stored from a uint64
		e.FirstSeen = fromNanos(first)
		e.LastConfirmed = fromNanos(confirmed)

		out = append(out, e)
	}

	return out, version, rows.Err()
}

func (s *SQLStore) ApplyEdgePlan(ctx context.Context, plan *reconcile.EdgePlan) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, s.rebind(
		`UPDATE topology_meta SET version = version + 1 WHERE id = 1 AND version = ?`), plan.BaseVersion)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: edge set moved past version %d", ErrSnapshotConflict, plan.BaseVersion)
	}

	if len(plan.Insert)+len(plan.Update) > 0 {
		stmt, perr := tx.PrepareContext(ctx, s.rebind(`INSERT INTO topology_edges (`+edgeColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (edge_key) DO UPDATE SET
				a_device_id = excluded.a_device_id, a_if_index = excluded.a_if_index,
				a_if_name = excluded.a_if_name, b_device_id = excluded.b_device_id,
				b_if_index = excluded.b_if_index, b_if_name = excluded.b_if_name,
				b_claim_chassis_id = excluded.b_claim_chassis_id,
				b_claim_port_id = excluded.b_claim_port_id,
				b_claim_sys_name = excluded.b_claim_sys_name, protocol = excluded.protocol,
				speed = excluded.speed, confidence = excluded.confidence,
				resolved = excluded.resolved, reporters = excluded.reporters,
				first_seen = excluded.first_seen, last_confirmed = excluded.last_confirmed,
				miss_count = excluded.miss_count, stale = excluded.stale`))
		if perr != nil {
			err = fmt.Errorf("%w: %w", ErrDatabaseError, perr)
			return err
		}
		defer func() { _ = stmt.Close() }()

		edges := append(append([]models.TopologyEdge(nil), plan.Insert...), plan.Update...)

		for i := range edges {
			e := &edges[i]

			if _, err = stmt.ExecContext(ctx, e.Key, e.A.DeviceID, e.A.IfIndex, e.A.IfName,
				e.B.DeviceID, e.B.IfIndex, e.B.IfName, e.B.ClaimChassisID, e.B.ClaimPortID,
				e.B.ClaimSysName, string(e.Protocol), int64(e.Speed), string(e.Confidence), //nolint:gosec // link speeds fit int64
				e.Resolved, e.Reporters, nanos(e.FirstSeen), nanos(e.LastConfirmed),
				e.MissCount, e.Stale); err != nil {
				return fmt.Errorf("%w: upsert edge %s: %w", ErrDatabaseError, e.Key, err)
			}
		}
	}

	for _, key := range plan.Touch {
		if _, err = tx.ExecContext(ctx, s.rebind(
			`UPDATE topology_edges SET last_confirmed = ? WHERE edge_key = ?`),
			nanos(plan.ObservedAt), key); err != nil {
			return fmt.Errorf("%w: touch edge %s: %w", ErrDatabaseError, key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return nil
}
