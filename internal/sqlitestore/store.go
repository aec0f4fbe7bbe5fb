// Package sqlitestore is the embedded SQLite implementation of the engine
// store, used for local runs and for tests of the transactional behaviour.
// Timestamps are stored as Unix nanoseconds.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/septivank/energy-insight-engine/internal/db"
	"github.com/septivank/energy-insight-engine/internal/engine"
	_ "modernc.org/sqlite"
)

// Store is a SQLite backed engine store
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	// BEGIN IMMEDIATE takes the write lock up front, which serializes
	// InUserTx callers; a single connection keeps the lock in-process.
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] failed to open sqlite database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: sqlDB}
	if err := s.Migrate(context.Background()); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for seeding and maintenance
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate applies the schema and seeds the tip catalog
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range db.SQLiteMigrations() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	for _, tip := range db.DefaultTips() {
		_, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO energy_tips (id, title, description, impact_level, estimated_saving)
			VALUES (?, ?, ?, ?, ?)
		`, tip.ID, tip.Title, tip.Description, string(tip.ImpactLevel), tip.EstimatedSaving)
		if err != nil {
			return fmt.Errorf("failed to seed tip %d: %w", tip.ID, err)
		}
	}
	return nil
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const readingColumns = `
	pr.id, pr.device_id, pr.user_id, d.name, d.type, pr.timestamp,
	pr.power_usage, pr.voltage, pr.current, pr.duration_hours, pr.rate`

// ReadingsForUser returns the user's readings at or after since
func (s *Store) ReadingsForUser(ctx context.Context, userID int64, since time.Time) ([]db.PowerReading, error) {
	query := `SELECT` + readingColumns + `
		FROM power_readings pr
		JOIN devices d ON pr.device_id = d.id
		WHERE pr.user_id = ? AND pr.timestamp >= ?
		ORDER BY pr.timestamp DESC`
	return s.queryReadings(ctx, query, userID, since.UnixNano())
}

// ReadingsForDeviceType returns the user's readings of devices of one type
func (s *Store) ReadingsForDeviceType(ctx context.Context, userID int64, deviceType db.DeviceType, since time.Time) ([]db.PowerReading, error) {
	query := `SELECT` + readingColumns + `
		FROM power_readings pr
		JOIN devices d ON pr.device_id = d.id
		WHERE pr.user_id = ? AND d.type = ? AND pr.timestamp >= ?
		ORDER BY pr.timestamp DESC`
	return s.queryReadings(ctx, query, userID, string(deviceType), since.UnixNano())
}

func (s *Store) queryReadings(ctx context.Context, query string, args ...any) ([]db.PowerReading, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []db.PowerReading
	for rows.Next() {
		var (
			r          db.PowerReading
			deviceType string
			ts         int64
		)
		if err := rows.Scan(&r.ID, &r.DeviceID, &r.UserID, &r.DeviceName, &deviceType, &ts,
			&r.PowerUsage, &r.Voltage, &r.Current, &r.DurationHours, &r.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		r.DeviceType = db.DeviceType(deviceType)
		r.Timestamp = time.Unix(0, ts).UTC()
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return readings, nil
}

// GetUser returns the user's credit position
func (s *Store) GetUser(ctx context.Context, userID int64) (*db.User, error) {
	var u db.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, credit_balance, credit_threshold FROM users WHERE id = ?
	`, userID).Scan(&u.ID, &u.CreditBalance, &u.CreditThreshold)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

// SetThreshold updates the user's credit threshold
func (s *Store) SetThreshold(ctx context.Context, userID int64, value float64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET credit_threshold = ? WHERE id = ?`, value, userID)
	if err != nil {
		return fmt.Errorf("failed to update threshold: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}

// RecentNotifications returns notifications created at or after since, newest first
func (s *Store) RecentNotifications(ctx context.Context, userID int64, since time.Time) ([]db.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, message, created_at
		FROM notifications
		WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at DESC, id DESC
	`, userID, since.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []db.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNotification(row scanner) (*db.Notification, error) {
	var (
		n  db.Notification
		ts int64
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}
	n.CreatedAt = time.Unix(0, ts).UTC()
	return &n, nil
}

// GetDevice returns a device by ID
func (s *Store) GetDevice(ctx context.Context, deviceID int64) (*db.Device, error) {
	var (
		d          db.Device
		deviceType string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, type, max_power, location FROM devices WHERE id = ?
	`, deviceID).Scan(&d.ID, &d.UserID, &d.Name, &deviceType, &d.MaxPower, &d.Location)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query device: %w", err)
	}
	d.Type = db.DeviceType(deviceType)
	return &d, nil
}

// DeleteDeviceAndReadings deletes readings then the device in one transaction
func (s *Store) DeleteDeviceAndReadings(ctx context.Context, userID, deviceID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM power_readings WHERE device_id = ?`, deviceID); err != nil {
		return fmt.Errorf("failed to delete readings: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM devices WHERE id = ? AND user_id = ?`, deviceID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return db.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InsertReading stores a reading for an existing device. The owning user is
// taken from the device row; a missing device yields db.ErrNotFound.
func (s *Store) InsertReading(ctx context.Context, r *db.PowerReading) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var ownerID int64
	err = tx.QueryRowContext(ctx, `SELECT user_id FROM devices WHERE id = ?`, r.DeviceID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return db.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to query device: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO power_readings (device_id, user_id, timestamp, power_usage, voltage, current, duration_hours, rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.DeviceID, ownerID, r.Timestamp.UnixNano(), r.PowerUsage, r.Voltage, r.Current, r.DurationHours, r.Rate)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read reading id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.ID = id
	r.UserID = ownerID
	return nil
}

// RecentDeviceUsage returns the latest power usage values of a device
func (s *Store) RecentDeviceUsage(ctx context.Context, deviceID int64, limit int) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT power_usage FROM power_readings
		WHERE device_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent readings: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return values, nil
}

// InUserTx runs fn inside an immediate transaction
func (s *Store) InUserTx(ctx context.Context, userID int64, fn func(tx engine.UserTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&userTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type userTx struct {
	tx *sql.Tx
}

func (t *userTx) TipsCatalog(ctx context.Context) ([]db.Tip, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, title, description, impact_level, estimated_saving FROM energy_tips ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tips: %w", err)
	}
	defer rows.Close()

	var tips []db.Tip
	for rows.Next() {
		var (
			tip    db.Tip
			impact string
		)
		if err := rows.Scan(&tip.ID, &tip.Title, &tip.Description, &impact, &tip.EstimatedSaving); err != nil {
			return nil, fmt.Errorf("failed to scan tip: %w", err)
		}
		tip.ImpactLevel = db.Impact(impact)
		tips = append(tips, tip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return tips, nil
}

func (t *userTx) ShownTips(ctx context.Context, userID int64, since time.Time) (map[int64]struct{}, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT DISTINCT tip_id FROM shown_tips WHERE user_id = ? AND shown_at > ?
	`, userID, since.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to query shown tips: %w", err)
	}
	defer rows.Close()

	shown := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tip id: %w", err)
		}
		shown[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return shown, nil
}

func (t *userTx) AppendShownTip(ctx context.Context, userID, tipID int64, when time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO shown_tips (user_id, tip_id, shown_at) VALUES (?, ?, ?)
	`, userID, tipID, when.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record shown tip: %w", err)
	}
	return nil
}

func (t *userTx) AppendNotification(ctx context.Context, userID int64, kind, message string, when time.Time) (*db.Notification, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO notifications (user_id, type, message, created_at) VALUES (?, ?, ?, ?)
	`, userID, kind, message, when.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read notification id: %w", err)
	}
	return &db.Notification{ID: id, UserID: userID, Type: kind, Message: message, CreatedAt: when.UTC()}, nil
}

func (t *userTx) LastNotification(ctx context.Context, userID int64, kind string) (*db.Notification, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, user_id, type, message, created_at
		FROM notifications
		WHERE user_id = ? AND type = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID, kind)
	return scanNotification(row)
}

func (t *userTx) CreditRecoveredAt(ctx context.Context, userID int64) (time.Time, error) {
	var nanos int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT recovered_at FROM credit_recoveries WHERE user_id = ?
	`, userID).Scan(&nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, db.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query credit recovery: %w", err)
	}
	return time.Unix(0, nanos).UTC(), nil
}

func (t *userTx) SetCreditRecoveredAt(ctx context.Context, userID int64, when time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO credit_recoveries (user_id, recovered_at) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET recovered_at = excluded.recovered_at
	`, userID, when.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record credit recovery: %w", err)
	}
	return nil
}
